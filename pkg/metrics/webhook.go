package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var MetricsWebhookEvent = &Metric{
	ID:          "webhookEvt",
	Name:        "webhook_events_total",
	Description: "How many webhook events were dispatched, partitioned by identity and status.",
	Type:        "counter_vec",
	Args:        []string{"identity", "status"},
}

var MetricsWebhookEventDur = &Metric{
	ID:          "webhookEvtDur",
	Name:        "webhook_event_dur_ms",
	Description: "Webhook event handling latency in milliseconds.",
	Type:        "histogram_vec",
	Args:        []string{"identity"},
}

const (
	WebhookStatusHandled = "handled"
	WebhookStatusFailed  = "failed"
)

// WebhookMetrics records the outcome of every dispatched webhook event.
type WebhookMetrics interface {
	ObserveEvent(identity string, ok bool, d time.Duration)
}

// NoopWebhookMetrics discards observations.
type NoopWebhookMetrics struct{}

func (NoopWebhookMetrics) ObserveEvent(string, bool, time.Duration) {}

type promWebhookMetrics struct {
	events *prometheus.CounterVec
	dur    *prometheus.HistogramVec
}

// NewWebhookMetrics registers the webhook collectors on reg. Collectors that are
// already registered are reused.
func NewWebhookMetrics(reg prometheus.Registerer, subsystem string) (WebhookMetrics, error) {
	events, err := register(reg, NewMetric(MetricsWebhookEvent, subsystem))
	if err != nil {
		return nil, err
	}
	dur, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Subsystem: subsystem,
		Name:      MetricsWebhookEventDur.Name,
		Help:      MetricsWebhookEventDur.Description,
		Buckets:   HistogramBuckets,
	}, MetricsWebhookEventDur.Args))
	if err != nil {
		return nil, err
	}
	return &promWebhookMetrics{
		events: events.(*prometheus.CounterVec),
		dur:    dur.(*prometheus.HistogramVec),
	}, nil
}

func register(reg prometheus.Registerer, c prometheus.Collector) (prometheus.Collector, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector, nil
		}
		return nil, err
	}
	return c, nil
}

func (m *promWebhookMetrics) ObserveEvent(identity string, ok bool, d time.Duration) {
	status := WebhookStatusHandled
	if !ok {
		status = WebhookStatusFailed
	}
	m.events.WithLabelValues(identity, status).Inc()
	m.dur.WithLabelValues(identity).Observe(float64(d.Milliseconds()))
}
