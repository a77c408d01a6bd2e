package listener

import (
	"context"
	"fmt"

	"github.com/fatflowers/fastspring-cashier/internal/app/service/webhook"
	"github.com/fatflowers/fastspring-cashier/pkg/logctx"
	"github.com/fatflowers/fastspring-cashier/pkg/types"
)

// SubscriptionActivated creates the local subscription for a new Fastspring
// subscription, or refreshes it on redelivery. The name comes from the "name"
// tag set by the subscription builder.
type SubscriptionActivated struct {
	Base
}

func (l *SubscriptionActivated) Handle(ctx context.Context, evt *webhook.Event) error {
	var data subscriptionData
	if err := evt.DecodeData(&data); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if data.ID == "" {
		return fmt.Errorf("%w: subscription id is empty", ErrInvalidPayload)
	}

	owner, err := l.ownerByFastspringID(ctx, data.Account.ID)
	if err != nil {
		return err
	}
	sub, err := l.store.FirstOrNewSubscription(ctx, data.ID)
	if err != nil {
		return err
	}

	if data.Tags.Name != "" {
		sub.Name = data.Tags.Name
	}
	if sub.Name == "" {
		sub.Name = types.DefaultSubscriptionName
	}
	if data.State == "" {
		data.State = string(types.SubscriptionStateActive)
	}
	if sub.Quantity == 0 {
		sub.Quantity = 1
	}
	fillSubscription(sub, owner, &data)

	if err := l.store.SaveSubscription(ctx, sub); err != nil {
		return err
	}
	logctx.FromCtx(ctx, l.log).Infow("subscription_activated", "subscription_id", sub.ID, "name", sub.Name, "plan", sub.Plan)
	return nil
}
