package models

import (
	"time"

	"gorm.io/datatypes"
)

type FastspringEventLogStatus string

const (
	FastspringEventLogStatusReceived     FastspringEventLogStatus = "received"
	FastspringEventLogStatusHandled      FastspringEventLogStatus = "handled"
	FastspringEventLogStatusHandleFailed FastspringEventLogStatus = "handle_failed"
)

// FastspringEventLog is an audit trail of webhook events. It is written for
// diagnostics only; nothing replays from it.
type FastspringEventLog struct {
	ID             string                   `gorm:"column:id;type:uuid;primary_key" json:"id"`
	EventID        string                   `gorm:"column:event_id;type:varchar(128);not null;index" json:"event_id"`
	EventType      string                   `gorm:"column:event_type;type:varchar(128);not null;index" json:"event_type"`
	Live           bool                     `gorm:"column:live" json:"live"`
	TraceID        string                   `gorm:"column:trace_id;type:varchar(128)" json:"trace_id"`
	EventCreatedAt time.Time                `gorm:"column:event_created_at" json:"event_created_at"`
	Data           datatypes.JSON           `gorm:"column:data;type:jsonb" json:"data"`
	Result         *datatypes.JSON          `gorm:"column:result;type:jsonb" json:"result"`
	Status         FastspringEventLogStatus `gorm:"column:status;type:varchar(64);not null" json:"status"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
}

func (FastspringEventLog) TableName() string { return "fastspring_event_log" }
