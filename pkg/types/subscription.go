package types

// SubscriptionState mirrors the Fastspring subscription state strings.
type SubscriptionState string

const (
	SubscriptionStateActive      SubscriptionState = "active"
	SubscriptionStateTrial       SubscriptionState = "trial"
	SubscriptionStateOverdue     SubscriptionState = "overdue"
	SubscriptionStateCanceled    SubscriptionState = "canceled"
	SubscriptionStateDeactivated SubscriptionState = "deactivated"
)

// IntervalUnit is the billing interval unit of a subscription.
type IntervalUnit string

const (
	IntervalUnitDay   IntervalUnit = "day"
	IntervalUnitWeek  IntervalUnit = "week"
	IntervalUnitMonth IntervalUnit = "month"
	IntervalUnitYear  IntervalUnit = "year"
)

type InvoiceType string

const (
	InvoiceTypeSubscription InvoiceType = "subscription"
)

// DefaultSubscriptionName is used when a subscription carries no name tag.
const DefaultSubscriptionName = "default"

type BillableSubscriptionInfo struct {
	Name     string            `json:"name"`
	Plan     string            `json:"plan"`
	State    SubscriptionState `json:"state"`
	Valid    bool              `json:"valid"`
	OnTrial  bool              `json:"on_trial"`
	Quantity int               `json:"quantity"`
}
