package models

import "time"

type SubscriptionPeriod struct {
	ID             string        `gorm:"column:id;type:uuid;primary_key" json:"id"`
	SubscriptionID string        `gorm:"column:subscription_id;type:uuid;not null;uniqueIndex:ux_subscription_periods_subscription_start,priority:1" json:"subscription_id"`
	Subscription   *Subscription `gorm:"foreignKey:SubscriptionID" json:"subscription,omitempty"`
	StartDate      time.Time     `gorm:"column:start_date;not null;uniqueIndex:ux_subscription_periods_subscription_start,priority:2" json:"start_date"`
	EndDate        time.Time     `gorm:"column:end_date;not null" json:"end_date"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

func (SubscriptionPeriod) TableName() string {
	return "subscription_periods"
}

// Contains reports whether t falls inside the period, both ends inclusive.
func (p *SubscriptionPeriod) Contains(t time.Time) bool {
	return p != nil && !t.Before(p.StartDate) && !t.After(p.EndDate)
}
