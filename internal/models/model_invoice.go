package models

import (
	"time"

	"github.com/fatflowers/fastspring-cashier/pkg/types"
)

// Invoice is unique per (fastspring_id, type); webhook redelivery updates the
// existing row instead of inserting a new one.
type Invoice struct {
	ID                   string            `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID               string            `gorm:"column:user_id;type:varchar(64);not null;index" json:"user_id"`
	FastspringID         string            `gorm:"column:fastspring_id;type:varchar(128);not null;uniqueIndex:ux_invoices_fastspring_id_type,priority:1" json:"fastspring_id"`
	Type                 types.InvoiceType `gorm:"column:type;type:varchar(32);not null;uniqueIndex:ux_invoices_fastspring_id_type,priority:2" json:"type"`
	SubscriptionSequence int               `gorm:"column:subscription_sequence" json:"subscription_sequence"`
	SubscriptionDisplay  string            `gorm:"column:subscription_display;type:varchar(255)" json:"subscription_display"`
	SubscriptionProduct  string            `gorm:"column:subscription_product;type:varchar(255)" json:"subscription_product"`
	InvoiceURL           string            `gorm:"column:invoice_url;type:text" json:"invoice_url"`
	Total                float64           `gorm:"column:total;type:numeric(12,2)" json:"total"`
	Tax                  float64           `gorm:"column:tax;type:numeric(12,2)" json:"tax"`
	Subtotal             float64           `gorm:"column:subtotal;type:numeric(12,2)" json:"subtotal"`
	Discount             float64           `gorm:"column:discount;type:numeric(12,2)" json:"discount"`
	Currency             string            `gorm:"column:currency;type:varchar(8)" json:"currency"`
	PaymentType          string            `gorm:"column:payment_type;type:varchar(64)" json:"payment_type"`
	Completed            bool              `gorm:"column:completed;not null;default:false" json:"completed"`
	// Period boundaries of the billed subscription cycle.
	SubscriptionPeriodStartDate *time.Time `gorm:"column:subscription_period_start_date;default:null" json:"subscription_period_start_date"`
	SubscriptionPeriodEndDate   *time.Time `gorm:"column:subscription_period_end_date;default:null" json:"subscription_period_end_date"`
	CreatedAt                   time.Time  `json:"created_at"`
	UpdatedAt                   time.Time  `json:"updated_at"`
}

func (Invoice) TableName() string {
	return "invoices"
}
