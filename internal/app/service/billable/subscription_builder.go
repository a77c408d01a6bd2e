package billable

import (
	"context"
	"errors"

	"github.com/fatflowers/fastspring-cashier/internal/platform/fastspring"
)

// SubscriptionBuilder prepares a Fastspring checkout session for a new
// subscription. The local subscription row is created later, by the
// subscription.activated webhook.
type SubscriptionBuilder struct {
	svc      *Service
	owner    Owner
	name     string
	plan     string
	quantity int
	coupon   string
}

func (b *SubscriptionBuilder) Quantity(n int) *SubscriptionBuilder {
	b.quantity = n
	return b
}

func (b *SubscriptionBuilder) WithCoupon(coupon string) *SubscriptionBuilder {
	b.coupon = coupon
	return b
}

// Create makes sure the owner has a Fastspring account, then opens a session.
func (b *SubscriptionBuilder) Create(ctx context.Context) (*fastspring.Session, error) {
	accountID, err := b.fastspringIDOfCustomer(ctx)
	if err != nil {
		return nil, err
	}
	return b.svc.client.CreateSession(ctx, b.payload(accountID))
}

// fastspringIDOfCustomer creates the remote account on first use. When
// Fastspring already knows the email, the existing account is adopted.
func (b *SubscriptionBuilder) fastspringIDOfCustomer(ctx context.Context) (string, error) {
	if b.owner.GetFastspringID() != "" {
		return b.owner.GetFastspringID(), nil
	}
	_, err := b.svc.CreateAsFastspringCustomer(ctx, b.owner, nil)
	if err == nil {
		return b.owner.GetFastspringID(), nil
	}

	var ce *fastspring.ClientError
	if !errors.As(err, &ce) || !ce.HasEmailError() {
		return "", err
	}
	accounts, err := b.svc.client.GetAccounts(ctx, map[string]string{"email": b.owner.GetEmail()})
	if err != nil {
		return "", err
	}
	if len(accounts.Accounts) > 0 {
		if err := b.svc.attachFastspringID(ctx, b.owner, accounts.Accounts[0].ID); err != nil {
			return "", err
		}
	}
	return b.owner.GetFastspringID(), nil
}

func (b *SubscriptionBuilder) payload(accountID string) *fastspring.SessionRequest {
	req := &fastspring.SessionRequest{
		Account: accountID,
		Items:   []fastspring.SessionItem{{Product: b.plan, Quantity: b.quantity}},
		Coupon:  b.coupon,
	}
	if b.name != "" {
		req.Tags = map[string]string{"name": b.name}
	}
	return req
}
