package listener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fatflowers/fastspring-cashier/internal/app/service/billing_store"
	"github.com/fatflowers/fastspring-cashier/internal/app/service/webhook"
	"github.com/fatflowers/fastspring-cashier/internal/models"
	"github.com/fatflowers/fastspring-cashier/pkg/types"
)

type invoiceKey struct {
	fastspringID string
	typ          types.InvoiceType
}

// memStore keeps rows in maps keyed like the unique indexes of the real tables.
type memStore struct {
	owners        map[string]*models.User
	invoices      map[invoiceKey]*models.Invoice
	subscriptions map[string]*models.Subscription
	nextID        int
	saveErr       error
}

func newMemStore() *memStore {
	return &memStore{
		owners:        map[string]*models.User{},
		invoices:      map[invoiceKey]*models.Invoice{},
		subscriptions: map[string]*models.Subscription{},
	}
}

func (m *memStore) id() string {
	m.nextID++
	return fmt.Sprintf("id-%d", m.nextID)
}

func (m *memStore) addOwner(id, fastspringID string) *models.User {
	u := &models.User{ID: id}
	u.SetFastspringID(fastspringID)
	m.owners[fastspringID] = u
	return u
}

func (m *memStore) FindOwnerByFastspringID(_ context.Context, fastspringID string) (*models.User, error) {
	if u, ok := m.owners[fastspringID]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("%w: fastspring_id=%s", billing_store.ErrOwnerNotFound, fastspringID)
}

func (m *memStore) FirstOrNewInvoice(_ context.Context, fastspringID string, typ types.InvoiceType) (*models.Invoice, error) {
	if inv, ok := m.invoices[invoiceKey{fastspringID, typ}]; ok {
		cp := *inv
		return &cp, nil
	}
	return &models.Invoice{ID: m.id(), FastspringID: fastspringID, Type: typ}, nil
}

func (m *memStore) SaveInvoice(_ context.Context, inv *models.Invoice) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	cp := *inv
	m.invoices[invoiceKey{inv.FastspringID, inv.Type}] = &cp
	return nil
}

func (m *memStore) FindSubscriptionByFastspringID(_ context.Context, fastspringID string) (*models.Subscription, error) {
	if s, ok := m.subscriptions[fastspringID]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, fmt.Errorf("%w: fastspring_id=%s", billing_store.ErrSubscriptionNotFound, fastspringID)
}

func (m *memStore) FirstOrNewSubscription(ctx context.Context, fastspringID string) (*models.Subscription, error) {
	s, err := m.FindSubscriptionByFastspringID(ctx, fastspringID)
	if errors.Is(err, billing_store.ErrSubscriptionNotFound) {
		return &models.Subscription{ID: m.id(), FastspringID: fastspringID, Name: types.DefaultSubscriptionName}, nil
	}
	return s, err
}

func (m *memStore) SaveSubscription(_ context.Context, sub *models.Subscription) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	cp := *sub
	m.subscriptions[sub.FastspringID] = &cp
	return nil
}

func newEvent(t *testing.T, id, typ string, data any) *webhook.Event {
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return &webhook.Event{ID: id, Type: typ, Data: raw}
}

func newRegisteredDispatcher(store Store) *webhook.Dispatcher {
	d := webhook.NewDispatcher(zap.NewNop().Sugar(), nil)
	webhook.DefineCatalog(d)
	Register(d, store, zap.NewNop().Sugar())
	return d
}

func orderCompletedPayload() map[string]any {
	return map[string]any{
		"id":         "order-1",
		"account":    map[string]any{"id": "acc-1"},
		"invoiceUrl": "https://example.com/invoice/1",
		"total":      11.9,
		"tax":        1.9,
		"subtotal":   10.0,
		"discount":   0.0,
		"currency":   "USD",
		"payment":    map[string]any{"type": "card"},
		"completed":  true,
		"items": []any{map[string]any{
			"product":  "pro-monthly",
			"quantity": 1,
			"subscription": map[string]any{
				"id":             "sub-1",
				"sequence":       1,
				"display":        "Pro Monthly",
				"product":        "pro-monthly",
				"beginInSeconds": 1709251200, // 2024-03-01
				"nextInSeconds":  1711929600, // 2024-04-01
			},
		}},
	}
}

func TestOrderCompleted_RedeliveryUpdatesSameInvoice(t *testing.T) {
	store := newMemStore()
	store.addOwner("u-1", "acc-1")
	d := newRegisteredDispatcher(store)

	payload := orderCompletedPayload()
	res := d.Dispatch(context.Background(), newEvent(t, "e1", "order.completed", payload))
	require.NoError(t, res.Err)

	payload["total"] = 12.5
	res = d.Dispatch(context.Background(), newEvent(t, "e1", "order.completed", payload))
	require.NoError(t, res.Err)

	require.Len(t, store.invoices, 1)
	inv := store.invoices[invoiceKey{"order-1", types.InvoiceTypeSubscription}]
	require.Equal(t, "id-1", inv.ID)
	require.Equal(t, "u-1", inv.UserID)
	require.Equal(t, 12.5, inv.Total)
	require.Equal(t, 1.9, inv.Tax)
	require.Equal(t, "card", inv.PaymentType)
	require.Equal(t, "pro-monthly", inv.SubscriptionProduct)
	require.Equal(t, "Pro Monthly", inv.SubscriptionDisplay)
	require.True(t, inv.Completed)
	require.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *inv.SubscriptionPeriodStartDate)
	require.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), *inv.SubscriptionPeriodEndDate)
}

func TestOrderCompleted_AccountAsString(t *testing.T) {
	store := newMemStore()
	store.addOwner("u-1", "acc-1")
	d := newRegisteredDispatcher(store)

	payload := orderCompletedPayload()
	payload["account"] = "acc-1"
	require.NoError(t, d.Dispatch(context.Background(), newEvent(t, "e1", "order.completed", payload)).Err)
}

func TestOrderCompleted_Failures(t *testing.T) {
	store := newMemStore()
	d := newRegisteredDispatcher(store)

	res := d.Dispatch(context.Background(), newEvent(t, "e1", "order.completed", orderCompletedPayload()))
	require.ErrorIs(t, res.Err, billing_store.ErrOwnerNotFound)
	require.Empty(t, store.invoices)

	store.addOwner("u-1", "acc-1")
	payload := orderCompletedPayload()
	payload["items"] = []any{}
	res = d.Dispatch(context.Background(), newEvent(t, "e2", "order.completed", payload))
	require.ErrorIs(t, res.Err, ErrMissingSubscriptionItem)

	store.saveErr = errors.New("db down")
	res = d.Dispatch(context.Background(), newEvent(t, "e3", "order.completed", orderCompletedPayload()))
	require.ErrorContains(t, res.Err, "db down")
}

func chargeCompletedPayload(next time.Time) map[string]any {
	return map[string]any{
		"account": map[string]any{"id": "acc-1"},
		"subscription": map[string]any{
			"id":            "sub-1",
			"sequence":      3,
			"display":       "Pro Monthly",
			"product":       "pro-monthly",
			"nextInSeconds": next.Unix(),
		},
		"order": map[string]any{
			"id":         "order-9",
			"invoiceUrl": "https://example.com/invoice/9",
			"total":      20,
			"tax":        2,
			"subtotal":   18,
			"discount":   0,
			"currency":   "EUR",
			"payment":    map[string]any{"type": "paypal"},
			"completed":  true,
		},
	}
}

func TestSubscriptionChargeCompleted_ReconstructsPeriod(t *testing.T) {
	store := newMemStore()
	store.addOwner("u-1", "acc-1")
	store.subscriptions["sub-1"] = &models.Subscription{
		ID:             "s-1",
		FastspringID:   "sub-1",
		State:          types.SubscriptionStateOverdue,
		IntervalUnit:   types.IntervalUnitMonth,
		IntervalLength: 1,
	}
	d := newRegisteredDispatcher(store)

	next := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	res := d.Dispatch(context.Background(), newEvent(t, "e1", "subscription.charge.completed", chargeCompletedPayload(next)))
	require.NoError(t, res.Err)

	inv := store.invoices[invoiceKey{"order-9", types.InvoiceTypeSubscription}]
	require.NotNil(t, inv)
	require.Equal(t, time.Date(2024, 3, 30, 0, 0, 0, 0, time.UTC), *inv.SubscriptionPeriodEndDate)
	require.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *inv.SubscriptionPeriodStartDate)
	require.Equal(t, 3, inv.SubscriptionSequence)
	require.Equal(t, "paypal", inv.PaymentType)
	require.Equal(t, "EUR", inv.Currency)
	require.Equal(t, types.SubscriptionStateActive, store.subscriptions["sub-1"].State)
}

func TestSubscriptionChargeCompleted_FallsBackToPayloadInterval(t *testing.T) {
	store := newMemStore()
	store.addOwner("u-1", "acc-1")
	store.subscriptions["sub-1"] = &models.Subscription{ID: "s-1", FastspringID: "sub-1"}
	d := newRegisteredDispatcher(store)

	payload := chargeCompletedPayload(time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC))
	sub := payload["subscription"].(map[string]any)
	sub["intervalUnit"] = "week"
	sub["intervalLength"] = 2

	require.NoError(t, d.Dispatch(context.Background(), newEvent(t, "e1", "subscription.charge.completed", payload)).Err)
	inv := store.invoices[invoiceKey{"order-9", types.InvoiceTypeSubscription}]
	require.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), *inv.SubscriptionPeriodStartDate)
	require.Equal(t, time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC), *inv.SubscriptionPeriodEndDate)
}

func TestSubscriptionChargeCompleted_MissingSubscription(t *testing.T) {
	store := newMemStore()
	store.addOwner("u-1", "acc-1")
	d := newRegisteredDispatcher(store)

	res := d.Dispatch(context.Background(), newEvent(t, "e1", "subscription.charge.completed", chargeCompletedPayload(time.Now())))
	require.ErrorIs(t, res.Err, billing_store.ErrSubscriptionNotFound)
	require.Empty(t, store.invoices)
}

func subscriptionPayload(state string) map[string]any {
	return map[string]any{
		"id":       "sub-1",
		"account":  "acc-2",
		"product":  map[string]any{"product": "pro-yearly"},
		"state":    state,
		"currency": "GBP",
		"quantity": 4,
	}
}

func TestSubscriptionStateChanged_LastWriteWins(t *testing.T) {
	store := newMemStore()
	store.addOwner("u-2", "acc-2")
	store.subscriptions["sub-1"] = &models.Subscription{ID: "s-1", FastspringID: "sub-1", State: types.SubscriptionStateActive, Quantity: 1}
	d := newRegisteredDispatcher(store)

	res := d.DispatchBatch(context.Background(), &webhook.Batch{Events: []webhook.Event{
		*newEvent(t, "e1", "subscription.payment.overdue", subscriptionPayload("overdue")),
		*newEvent(t, "e2", "subscription.canceled", subscriptionPayload("canceled")),
	}})
	require.Equal(t, "e1\ne2", res.Body())

	sub := store.subscriptions["sub-1"]
	require.Equal(t, types.SubscriptionStateCanceled, sub.State)
	require.Equal(t, "u-2", sub.UserID)
	require.Equal(t, "pro-yearly", sub.Plan)
	require.Equal(t, "GBP", sub.Currency)
	require.Equal(t, 4, sub.Quantity)
}

func TestSubscriptionStateChanged_QuantityFromPayload(t *testing.T) {
	store := newMemStore()
	store.addOwner("u-2", "acc-2")
	store.subscriptions["sub-1"] = &models.Subscription{ID: "s-1", FastspringID: "sub-1", State: types.SubscriptionStateActive, Quantity: 3}
	d := newRegisteredDispatcher(store)

	withoutQuantity := subscriptionPayload("overdue")
	delete(withoutQuantity, "quantity")
	res := d.Dispatch(context.Background(), newEvent(t, "e1", "subscription.payment.overdue", withoutQuantity))
	require.NoError(t, res.Err)
	require.Equal(t, 3, store.subscriptions["sub-1"].Quantity)

	zero := subscriptionPayload("canceled")
	zero["quantity"] = 0
	res = d.Dispatch(context.Background(), newEvent(t, "e2", "subscription.canceled", zero))
	require.NoError(t, res.Err)
	require.Equal(t, 0, store.subscriptions["sub-1"].Quantity)
}

func TestSubscriptionDeactivated(t *testing.T) {
	store := newMemStore()
	store.addOwner("u-2", "acc-2")
	d := newRegisteredDispatcher(store)

	res := d.Dispatch(context.Background(), newEvent(t, "e1", "subscription.deactivated", subscriptionPayload("deactivated")))
	require.ErrorIs(t, res.Err, billing_store.ErrSubscriptionNotFound)

	store.subscriptions["sub-1"] = &models.Subscription{ID: "s-1", FastspringID: "sub-1", State: types.SubscriptionStateCanceled}
	res = d.Dispatch(context.Background(), newEvent(t, "e1", "subscription.deactivated", subscriptionPayload("deactivated")))
	require.NoError(t, res.Err)
	require.True(t, store.subscriptions["sub-1"].Deactivated())
	require.False(t, store.subscriptions["sub-1"].Valid())
}

func TestSubscriptionActivated_CreatesThenRefreshes(t *testing.T) {
	store := newMemStore()
	store.addOwner("u-2", "acc-2")
	d := newRegisteredDispatcher(store)

	payload := subscriptionPayload("active")
	payload["tags"] = map[string]any{"name": "main"}
	payload["intervalUnit"] = "month"
	payload["intervalLength"] = 1
	require.NoError(t, d.Dispatch(context.Background(), newEvent(t, "e1", "subscription.activated", payload)).Err)
	require.NoError(t, d.Dispatch(context.Background(), newEvent(t, "e1", "subscription.activated", payload)).Err)

	require.Len(t, store.subscriptions, 1)
	sub := store.subscriptions["sub-1"]
	require.Equal(t, "id-1", sub.ID)
	require.Equal(t, "main", sub.Name)
	require.Equal(t, types.IntervalUnitMonth, sub.IntervalUnit)
	require.True(t, sub.Active())
}

func TestSubscriptionActivated_DefaultName(t *testing.T) {
	store := newMemStore()
	store.addOwner("u-2", "acc-2")
	d := newRegisteredDispatcher(store)

	payload := subscriptionPayload("trial")
	payload["tags"] = []any{"ignored"}
	require.NoError(t, d.Dispatch(context.Background(), newEvent(t, "e1", "subscription.activated", payload)).Err)
	require.Equal(t, types.DefaultSubscriptionName, store.subscriptions["sub-1"].Name)
	require.True(t, store.subscriptions["sub-1"].OnTrial())
}

func TestBatch_MixedOutcomes(t *testing.T) {
	store := newMemStore()
	store.addOwner("u-1", "acc-1")
	d := newRegisteredDispatcher(store)

	res := d.DispatchBatch(context.Background(), &webhook.Batch{Events: []webhook.Event{
		*newEvent(t, "e1", "order.completed", orderCompletedPayload()),
		*newEvent(t, "e2", "subscription.canceled", subscriptionPayload("canceled")),
		*newEvent(t, "e3", "something.unknown", map[string]any{}),
		*newEvent(t, "e4", "mailingListEntry.updated", map[string]any{}),
	}})
	require.Equal(t, "e1\ne4", res.Body())
	require.Equal(t, []string{"e2", "e3"}, res.FailedIDs())
}
