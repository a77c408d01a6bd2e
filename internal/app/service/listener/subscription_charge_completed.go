package listener

import (
	"context"
	"fmt"
	"time"

	"github.com/fatflowers/fastspring-cashier/internal/app/service/webhook"
	"github.com/fatflowers/fastspring-cashier/pkg/logctx"
	"github.com/fatflowers/fastspring-cashier/pkg/types"
)

// SubscriptionChargeCompleted records the invoice of a renewal charge and
// reactivates the subscription. Fastspring omits the period boundaries on
// this event, so they are rebuilt from the next charge date.
type SubscriptionChargeCompleted struct {
	Base
}

func (l *SubscriptionChargeCompleted) Handle(ctx context.Context, evt *webhook.Event) error {
	var data chargeCompletedData
	if err := evt.DecodeData(&data); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if data.Order.ID == "" {
		return fmt.Errorf("%w: order id is empty", ErrInvalidPayload)
	}
	if data.Subscription.NextInSeconds == 0 {
		return fmt.Errorf("%w: subscription.nextInSeconds is empty", ErrInvalidPayload)
	}

	sub, err := l.store.FindSubscriptionByFastspringID(ctx, data.Subscription.ID)
	if err != nil {
		return err
	}

	accountID := data.Account.ID
	if accountID == "" {
		accountID = data.Order.Account.ID
	}
	owner, err := l.ownerByFastspringID(ctx, accountID)
	if err != nil {
		return err
	}

	unit, length := sub.IntervalUnit, sub.IntervalLength
	if unit == "" {
		unit, length = types.IntervalUnit(data.Subscription.IntervalUnit), data.Subscription.IntervalLength
	}
	start, end, err := ChargedPeriod(time.Unix(data.Subscription.NextInSeconds, 0).UTC(), unit, length)
	if err != nil {
		return fmt.Errorf("subscription %s: %w", sub.FastspringID, err)
	}

	inv, err := l.store.FirstOrNewInvoice(ctx, data.Order.ID, types.InvoiceTypeSubscription)
	if err != nil {
		return err
	}
	inv.UserID = owner.ID
	inv.SubscriptionSequence = data.Subscription.Sequence
	inv.SubscriptionDisplay = data.Subscription.Display
	inv.SubscriptionProduct = data.Subscription.Product.Product
	inv.InvoiceURL = data.Order.InvoiceURL
	inv.Total = data.Order.Total
	inv.Tax = data.Order.Tax
	inv.Subtotal = data.Order.Subtotal
	inv.Discount = data.Order.Discount
	inv.Currency = data.Order.Currency
	inv.PaymentType = data.Order.Payment.Type
	inv.Completed = data.Order.Completed
	inv.SubscriptionPeriodStartDate = &start
	inv.SubscriptionPeriodEndDate = &end

	if err := l.store.SaveInvoice(ctx, inv); err != nil {
		return err
	}

	sub.State = types.SubscriptionStateActive
	if err := l.store.SaveSubscription(ctx, sub); err != nil {
		return err
	}
	logctx.FromCtx(ctx, l.log).Infow("subscription_charged",
		"subscription_id", sub.ID,
		"invoice_id", inv.ID,
		"period_start", start,
		"period_end", end,
	)
	return nil
}
