package webhook

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fatflowers/fastspring-cashier/pkg/logctx"
	"github.com/fatflowers/fastspring-cashier/pkg/metrics"
)

var ErrUnregisteredEvent = errors.New("unregistered webhook event")

// DefaultEventTimeout bounds the store calls made for a single event.
const DefaultEventTimeout = 10 * time.Second

// Listener reacts to a webhook event. Returning an error marks the event as
// failed so Fastspring redelivers it.
type Listener interface {
	Handle(ctx context.Context, evt *Event) error
}

type ListenerFunc func(ctx context.Context, evt *Event) error

func (f ListenerFunc) Handle(ctx context.Context, evt *Event) error { return f(ctx, evt) }

// EventObserver is told about every event before it is dispatched. The
// returned func, when not nil, receives the outcome of that same delivery.
type EventObserver interface {
	EventReceived(ctx context.Context, evt *Event) (done func(EventResult))
}

type DispatcherOption func(*Dispatcher)

func WithObserver(o EventObserver) DispatcherOption {
	return func(disp *Dispatcher) { disp.observer = o }
}

func WithEventTimeout(d time.Duration) DispatcherOption {
	return func(disp *Dispatcher) {
		if d > 0 {
			disp.eventTimeout = d
		}
	}
}

// Dispatcher routes events to listeners registered under the three identities
// derived from the event type. Registration is expected at startup; dispatch
// is safe for concurrent batches.
type Dispatcher struct {
	log          *zap.SugaredLogger
	metrics      metrics.WebhookMetrics
	eventTimeout time.Duration
	observer     EventObserver

	mu        sync.RWMutex
	listeners map[string][]Listener
}

func NewDispatcher(log *zap.SugaredLogger, m metrics.WebhookMetrics, opts ...DispatcherOption) *Dispatcher {
	if m == nil {
		m = metrics.NoopWebhookMetrics{}
	}
	d := &Dispatcher{
		log:          log,
		metrics:      m,
		eventTimeout: DefaultEventTimeout,
		listeners:    map[string][]Listener{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Define marks identities as known event types without attaching listeners.
// Events of a defined type with no listener succeed.
func (d *Dispatcher) Define(identities ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, id := range identities {
		if _, ok := d.listeners[id]; !ok {
			d.listeners[id] = nil
		}
	}
}

// Listen attaches listeners to identity and registers the identity.
func (d *Dispatcher) Listen(identity string, listeners ...Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[identity] = append(d.listeners[identity], listeners...)
}

func (d *Dispatcher) Registered(identity string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.listeners[identity]
	return ok
}

// RegisteredIdentities lists every registered identity, sorted.
func (d *Dispatcher) RegisteredIdentities() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.listeners))
	for id := range d.listeners {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Identities returns the publish order for evt: Any, category, specific.
func (d *Dispatcher) Identities(evt *Event) []string {
	return []string{AnyIdentity, CategoryIdentity(evt.Type), SpecificIdentity(evt.Type)}
}

func (d *Dispatcher) listenersFor(identity string) []Listener {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Listener(nil), d.listeners[identity]...)
}

// Dispatch publishes evt to every listener of its identities, each exactly
// once, stopping at the first error.
func (d *Dispatcher) Dispatch(ctx context.Context, evt *Event) EventResult {
	start := time.Now()
	ids := d.Identities(evt)
	specific := ids[len(ids)-1]
	res := EventResult{EventID: evt.ID, Type: evt.Type, Identities: ids}

	lg := logctx.FromCtx(ctx, d.log).With("event_id", evt.ID, "event_type", evt.Type)
	ctx = logctx.WithLogger(logctx.WithEventID(ctx, evt.ID), lg)

	if !d.Registered(specific) {
		res.Err = fmt.Errorf("%w: %s (%s)", ErrUnregisteredEvent, evt.Type, specific)
	} else {
		evtCtx, cancel := context.WithTimeout(ctx, d.eventTimeout)
		res.Err = d.publish(evtCtx, ids, evt)
		cancel()
	}
	res.Duration = time.Since(start)

	d.metrics.ObserveEvent(specific, res.Succeeded(), res.Duration)
	if res.Err != nil {
		lg.Warnw("webhook_event_failed", "identity", specific, "err", res.Err, "elapsed_ms", res.Duration.Milliseconds())
	} else {
		lg.Infow("webhook_event_handled", "identity", specific, "elapsed_ms", res.Duration.Milliseconds())
	}
	return res
}

func (d *Dispatcher) publish(ctx context.Context, ids []string, evt *Event) error {
	for _, id := range ids {
		for _, l := range d.listenersFor(id) {
			if err := safeHandle(ctx, l, evt); err != nil {
				return fmt.Errorf("%s listener: %w", id, err)
			}
		}
	}
	return nil
}

func safeHandle(ctx context.Context, l Listener, evt *Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panic: %v\n%s", r, debug.Stack())
		}
	}()
	return l.Handle(ctx, evt)
}

// DispatchBatch handles events strictly in order. A failed event never stops
// the batch.
func (d *Dispatcher) DispatchBatch(ctx context.Context, b *Batch) *BatchResult {
	out := &BatchResult{Results: make([]EventResult, 0, len(b.Events))}
	for i := range b.Events {
		evt := &b.Events[i]
		var done func(EventResult)
		if d.observer != nil {
			done = d.observer.EventReceived(ctx, evt)
		}
		res := d.Dispatch(ctx, evt)
		if done != nil {
			done(res)
		}
		out.Results = append(out.Results, res)
	}
	logctx.FromCtx(ctx, d.log).Infow("webhook_batch_processed",
		"events", len(out.Results),
		"succeeded", len(out.SucceededIDs()),
		"failed", out.FailedIDs(),
	)
	return out
}
