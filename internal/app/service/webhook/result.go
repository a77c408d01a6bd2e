package webhook

import (
	"strings"
	"time"

	"github.com/samber/lo"
)

// EventResult is the outcome of dispatching one event. A failed event is a
// value, not an error of the batch.
type EventResult struct {
	EventID    string
	Type       string
	Identities []string
	Err        error
	Duration   time.Duration
}

func (r EventResult) Succeeded() bool {
	return r.Err == nil
}

type BatchResult struct {
	Results []EventResult
}

// SucceededIDs returns the ids of handled events in batch order.
func (b *BatchResult) SucceededIDs() []string {
	return lo.FilterMap(b.Results, func(r EventResult, _ int) (string, bool) {
		return r.EventID, r.Succeeded()
	})
}

func (b *BatchResult) FailedIDs() []string {
	return lo.FilterMap(b.Results, func(r EventResult, _ int) (string, bool) {
		return r.EventID, !r.Succeeded()
	})
}

// Body is the acknowledgement returned to Fastspring: the ids of the events
// it may consider delivered, one per line.
func (b *BatchResult) Body() string {
	return strings.Join(b.SucceededIDs(), "\n")
}
