package webhook

// Fastspring event types the service accepts. Events of any other type are
// reported as failed so they stay visible in the Fastspring dashboard.
var CatalogEventTypes = []string{
	"account.created",
	"fulfillment.failed",
	"mailingListEntry.removed",
	"mailingListEntry.updated",
	"order.approval.pending",
	"order.canceled",
	"order.payment.pending",
	"order.completed",
	"order.failed",
	"payoutEntry.created",
	"return.created",
	"subscription.activated",
	"subscription.canceled",
	"subscription.charge.completed",
	"subscription.charge.failed",
	"subscription.deactivated",
	"subscription.payment.overdue",
	"subscription.payment.reminder",
	"subscription.trial.reminder",
	"subscription.updated",
}

// DefineCatalog registers every catalog event type on d.
func DefineCatalog(d *Dispatcher) {
	for _, t := range CatalogEventTypes {
		d.Define(SpecificIdentity(t))
	}
}
