package webhook

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingListener struct {
	mu    sync.Mutex
	name  string
	calls *[]string
	err   error
}

func (l *recordingListener) Handle(_ context.Context, evt *Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.calls = append(*l.calls, l.name+":"+evt.ID)
	return l.err
}

type fakeMetrics struct {
	mu  sync.Mutex
	obs map[string][]bool
}

func (m *fakeMetrics) ObserveEvent(identity string, ok bool, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.obs == nil {
		m.obs = map[string][]bool{}
	}
	m.obs[identity] = append(m.obs[identity], ok)
}

func newTestDispatcher() *Dispatcher {
	d := NewDispatcher(zap.NewNop().Sugar(), nil)
	DefineCatalog(d)
	return d
}

func TestDispatch_PublishOrderExactlyOnce(t *testing.T) {
	d := newTestDispatcher()
	var calls []string
	d.Listen("SubscriptionChargeCompleted", &recordingListener{name: "specific", calls: &calls})
	d.Listen("SubscriptionAny", &recordingListener{name: "category", calls: &calls})
	d.Listen(AnyIdentity, &recordingListener{name: "any", calls: &calls})

	res := d.Dispatch(context.Background(), &Event{ID: "e1", Type: "subscription.charge.completed"})
	require.NoError(t, res.Err)
	require.Equal(t, []string{"any:e1", "category:e1", "specific:e1"}, calls)
	require.Equal(t, []string{"Any", "SubscriptionAny", "SubscriptionChargeCompleted"}, res.Identities)
}

func TestDispatch_UnregisteredFailsWithoutPublishing(t *testing.T) {
	d := newTestDispatcher()
	var calls []string
	d.Listen(AnyIdentity, &recordingListener{name: "any", calls: &calls})

	res := d.Dispatch(context.Background(), &Event{ID: "e1", Type: "widget.exploded"})
	require.ErrorIs(t, res.Err, ErrUnregisteredEvent)
	require.Empty(t, calls)
}

func TestDispatch_DefinedWithoutListenerSucceeds(t *testing.T) {
	d := newTestDispatcher()
	res := d.Dispatch(context.Background(), &Event{ID: "e1", Type: "mailingListEntry.removed"})
	require.NoError(t, res.Err)
	require.True(t, d.Registered("MailingListEntryRemoved"))
}

func TestDispatch_StopsAtFirstError(t *testing.T) {
	d := newTestDispatcher()
	var calls []string
	boom := errors.New("boom")
	d.Listen("OrderAny", &recordingListener{name: "category", calls: &calls, err: boom})
	d.Listen("OrderCompleted", &recordingListener{name: "specific", calls: &calls})

	res := d.Dispatch(context.Background(), &Event{ID: "e1", Type: "order.completed"})
	require.ErrorIs(t, res.Err, boom)
	require.Equal(t, []string{"category:e1"}, calls)
}

func TestDispatch_RecoversPanics(t *testing.T) {
	d := newTestDispatcher()
	d.Listen("OrderCompleted", ListenerFunc(func(context.Context, *Event) error {
		panic("listener exploded")
	}))

	res := d.Dispatch(context.Background(), &Event{ID: "e1", Type: "order.completed"})
	require.Error(t, res.Err)
	require.Contains(t, res.Err.Error(), "listener exploded")
}

func TestDispatch_EventTimeoutBoundsContext(t *testing.T) {
	d := NewDispatcher(zap.NewNop().Sugar(), nil, WithEventTimeout(20*time.Millisecond))
	DefineCatalog(d)
	d.Listen("OrderCompleted", ListenerFunc(func(ctx context.Context, _ *Event) error {
		deadline, ok := ctx.Deadline()
		require.True(t, ok)
		require.WithinDuration(t, time.Now().Add(20*time.Millisecond), deadline, 20*time.Millisecond)
		<-ctx.Done()
		return ctx.Err()
	}))

	res := d.Dispatch(context.Background(), &Event{ID: "e1", Type: "order.completed"})
	require.ErrorIs(t, res.Err, context.DeadlineExceeded)
}

func TestDispatchBatch_PartialFailureKeepsOrder(t *testing.T) {
	m := &fakeMetrics{}
	d := NewDispatcher(zap.NewNop().Sugar(), m)
	DefineCatalog(d)
	var calls []string
	d.Listen("OrderCompleted", ListenerFunc(func(_ context.Context, evt *Event) error {
		calls = append(calls, evt.ID)
		if evt.ID == "e2" {
			return errors.New("owner missing")
		}
		return nil
	}))

	res := d.DispatchBatch(context.Background(), &Batch{Events: []Event{
		{ID: "e1", Type: "order.completed"},
		{ID: "e2", Type: "order.completed"},
		{ID: "e3", Type: "bogus.type"},
		{ID: "e4", Type: "order.completed"},
		{ID: "e5", Type: "subscription.trial.reminder"},
	}})

	require.Equal(t, []string{"e1", "e2", "e4"}, calls)
	require.Equal(t, []string{"e1", "e4", "e5"}, res.SucceededIDs())
	require.Equal(t, []string{"e2", "e3"}, res.FailedIDs())
	require.Equal(t, "e1\ne4\ne5", res.Body())
	require.Equal(t, []bool{true, false, true}, m.obs["OrderCompleted"])
	require.Equal(t, []bool{false}, m.obs["BogusType"])
}

func TestDispatchBatch_Empty(t *testing.T) {
	d := newTestDispatcher()
	res := d.DispatchBatch(context.Background(), &Batch{Events: []Event{}})
	require.Empty(t, res.Results)
	require.Equal(t, "", res.Body())
}

type recordingObserver struct {
	seen []string
}

func (o *recordingObserver) EventReceived(_ context.Context, evt *Event) func(EventResult) {
	o.seen = append(o.seen, "received:"+evt.ID)
	return func(res EventResult) {
		status := "ok"
		if !res.Succeeded() {
			status = "failed"
		}
		o.seen = append(o.seen, status+":"+evt.ID)
	}
}

func TestDispatchBatch_NotifiesObserver(t *testing.T) {
	obs := &recordingObserver{}
	d := NewDispatcher(zap.NewNop().Sugar(), nil, WithObserver(obs))
	DefineCatalog(d)

	d.DispatchBatch(context.Background(), &Batch{Events: []Event{
		{ID: "e1", Type: "order.completed"},
		{ID: "e2", Type: "nope"},
	}})
	require.Equal(t, []string{"received:e1", "ok:e1", "received:e2", "failed:e2"}, obs.seen)
}

func TestRegisteredIdentities_Sorted(t *testing.T) {
	d := NewDispatcher(zap.NewNop().Sugar(), nil)
	d.Define("OrderCompleted", "AccountCreated")
	d.Listen(AnyIdentity)
	require.Equal(t, []string{"AccountCreated", "Any", "OrderCompleted"}, d.RegisteredIdentities())
}
