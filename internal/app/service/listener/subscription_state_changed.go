package listener

import (
	"context"
	"fmt"

	"github.com/fatflowers/fastspring-cashier/internal/app/service/webhook"
	"github.com/fatflowers/fastspring-cashier/internal/models"
	"github.com/fatflowers/fastspring-cashier/pkg/logctx"
	"github.com/fatflowers/fastspring-cashier/pkg/types"
)

// SubscriptionStateChanged mirrors canceled, overdue and updated
// subscriptions. The subscription must already exist locally. State is last
// write wins in delivery order.
type SubscriptionStateChanged struct {
	Base
}

func (l *SubscriptionStateChanged) Handle(ctx context.Context, evt *webhook.Event) error {
	return l.apply(ctx, evt)
}

// SubscriptionDeactivated mirrors the end of a subscription. Applications
// that downgrade users on deactivation can listen on the same identity.
type SubscriptionDeactivated struct {
	Base
}

func (l *SubscriptionDeactivated) Handle(ctx context.Context, evt *webhook.Event) error {
	return l.apply(ctx, evt)
}

func (b *Base) apply(ctx context.Context, evt *webhook.Event) error {
	var data subscriptionData
	if err := evt.DecodeData(&data); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if data.State == "" {
		return fmt.Errorf("%w: state is empty", ErrInvalidPayload)
	}

	sub, err := b.store.FindSubscriptionByFastspringID(ctx, data.ID)
	if err != nil {
		return err
	}
	owner, err := b.ownerByFastspringID(ctx, data.Account.ID)
	if err != nil {
		return err
	}
	fillSubscription(sub, owner, &data)

	if err := b.store.SaveSubscription(ctx, sub); err != nil {
		return err
	}
	logctx.FromCtx(ctx, b.log).Infow("subscription_state_changed", "subscription_id", sub.ID, "state", sub.State)
	return nil
}

func fillSubscription(sub *models.Subscription, owner *models.User, data *subscriptionData) {
	sub.UserID = owner.ID
	sub.Plan = data.Product.Product
	sub.State = types.SubscriptionState(data.State)
	sub.Currency = data.Currency
	if data.Quantity != nil {
		sub.Quantity = *data.Quantity
	}
	if data.IntervalUnit != "" && data.IntervalLength > 0 {
		sub.IntervalUnit = types.IntervalUnit(data.IntervalUnit)
		sub.IntervalLength = data.IntervalLength
	}
}
