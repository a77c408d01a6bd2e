package listener

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatflowers/fastspring-cashier/internal/app/service/webhook"
	"github.com/fatflowers/fastspring-cashier/pkg/logctx"
	"github.com/fatflowers/fastspring-cashier/pkg/types"
)

var ErrMissingSubscriptionItem = errors.New("order has no subscription item")

// OrderCompleted records the invoice of a completed subscription order.
type OrderCompleted struct {
	Base
}

func (l *OrderCompleted) Handle(ctx context.Context, evt *webhook.Event) error {
	var data orderData
	if err := evt.DecodeData(&data); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if data.ID == "" {
		return fmt.Errorf("%w: order id is empty", ErrInvalidPayload)
	}
	if len(data.Items) == 0 || data.Items[0].Subscription == nil {
		return fmt.Errorf("%w: order %s", ErrMissingSubscriptionItem, data.ID)
	}
	sub := data.Items[0].Subscription

	owner, err := l.ownerByFastspringID(ctx, data.Account.ID)
	if err != nil {
		return err
	}

	inv, err := l.store.FirstOrNewInvoice(ctx, data.ID, types.InvoiceTypeSubscription)
	if err != nil {
		return err
	}
	inv.UserID = owner.ID
	inv.SubscriptionSequence = sub.Sequence
	inv.SubscriptionDisplay = sub.Display
	inv.SubscriptionProduct = sub.Product.Product
	inv.InvoiceURL = data.InvoiceURL
	inv.Total = data.Total
	inv.Tax = data.Tax
	inv.Subtotal = data.Subtotal
	inv.Discount = data.Discount
	inv.Currency = data.Currency
	inv.PaymentType = data.Payment.Type
	inv.Completed = data.Completed
	inv.SubscriptionPeriodStartDate = unixUTC(sub.BeginInSeconds)
	inv.SubscriptionPeriodEndDate = unixUTC(sub.NextInSeconds)

	if err := l.store.SaveInvoice(ctx, inv); err != nil {
		return err
	}
	logctx.FromCtx(ctx, l.log).Infow("invoice_saved", "invoice_id", inv.ID, "fastspring_id", inv.FastspringID, "user_id", owner.ID)
	return nil
}
