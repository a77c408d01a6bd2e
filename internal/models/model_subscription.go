package models

import (
	"time"

	"github.com/fatflowers/fastspring-cashier/pkg/types"
)

// Subscription is the local mirror of a Fastspring subscription.
// State is last-write-wins: it reflects the most recently processed
// state-changing webhook, in delivery order.
type Subscription struct {
	ID     string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID string `gorm:"column:user_id;type:varchar(64);not null;index" json:"user_id"`
	// FastspringID is the remote subscription id.
	FastspringID   string                  `gorm:"column:fastspring_id;type:varchar(128);not null;uniqueIndex" json:"fastspring_id"`
	Name           string                  `gorm:"column:name;type:varchar(128);not null;index" json:"name"`
	Plan           string                  `gorm:"column:plan;type:varchar(255);not null" json:"plan"`
	Quantity       int                     `gorm:"column:quantity;not null;default:1" json:"quantity"`
	State          types.SubscriptionState `gorm:"column:state;type:varchar(64);not null" json:"state"`
	Currency       string                  `gorm:"column:currency;type:varchar(8)" json:"currency"`
	IntervalUnit   types.IntervalUnit      `gorm:"column:interval_unit;type:varchar(16)" json:"interval_unit"`
	IntervalLength int                     `gorm:"column:interval_length" json:"interval_length"`
	CreatedAt      time.Time               `json:"created_at"`
	UpdatedAt      time.Time               `json:"updated_at"`

	Periods []SubscriptionPeriod `gorm:"foreignKey:SubscriptionID" json:"periods,omitempty"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

func (s *Subscription) Active() bool {
	return s != nil && s.State == types.SubscriptionStateActive
}

func (s *Subscription) OnTrial() bool {
	return s != nil && s.State == types.SubscriptionStateTrial
}

func (s *Subscription) Overdue() bool {
	return s != nil && s.State == types.SubscriptionStateOverdue
}

// Canceled subscriptions keep running until Fastspring deactivates them.
func (s *Subscription) Canceled() bool {
	return s != nil && s.State == types.SubscriptionStateCanceled
}

func (s *Subscription) Deactivated() bool {
	return s != nil && s.State == types.SubscriptionStateDeactivated
}

// Valid reports whether the subscription still grants access.
func (s *Subscription) Valid() bool {
	return s != nil && s.State != "" && !s.Deactivated()
}
