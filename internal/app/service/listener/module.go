package listener

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/fastspring-cashier/internal/app/service/billing_store"
	"github.com/fatflowers/fastspring-cashier/internal/app/service/webhook"
)

// Register binds the reconciliation listeners to their event identities.
func Register(d *webhook.Dispatcher, store Store, log *zap.SugaredLogger) {
	base := NewBase(store, log)
	stateChanged := &SubscriptionStateChanged{Base: base}

	d.Listen(webhook.SpecificIdentity("order.completed"), &OrderCompleted{Base: base})
	d.Listen(webhook.SpecificIdentity("subscription.activated"), &SubscriptionActivated{Base: base})
	d.Listen(webhook.SpecificIdentity("subscription.charge.completed"), &SubscriptionChargeCompleted{Base: base})
	d.Listen(webhook.SpecificIdentity("subscription.deactivated"), &SubscriptionDeactivated{Base: base})
	d.Listen(webhook.SpecificIdentity("subscription.canceled"), stateChanged)
	d.Listen(webhook.SpecificIdentity("subscription.payment.overdue"), stateChanged)
	d.Listen(webhook.SpecificIdentity("subscription.updated"), stateChanged)
}

func register(d *webhook.Dispatcher, store *billing_store.Store, log *zap.SugaredLogger) {
	Register(d, store, log)
	log.Infow("webhook listeners registered", "identities", d.RegisteredIdentities())
}

var Module = fx.Options(
	fx.Invoke(register),
)
