package webhook_log

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fatflowers/fastspring-cashier/internal/app/service/webhook"
	"github.com/fatflowers/fastspring-cashier/internal/models"
)

type memWriter struct {
	mu   sync.Mutex
	rows []models.FastspringEventLog
}

func (w *memWriter) Save(_ context.Context, row *models.FastspringEventLog) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rows = append(w.rows, *row)
	return nil
}

func TestService_RecordsReceivedThenOutcome(t *testing.T) {
	w := &memWriter{}
	s := NewWithWriter(w, zap.NewNop().Sugar())
	s.Start()

	ctx := context.WithValue(context.Background(), "traceID", "trace-1")
	ok := &webhook.Event{ID: "e1", Type: "order.completed", Live: true, Created: 1700000000000, Data: []byte(`{"id":"o1"}`)}
	bad := &webhook.Event{ID: "e2", Type: "nope"}

	s.EventReceived(ctx, ok)(webhook.EventResult{EventID: "e1", Identities: []string{"Any", "OrderAny", "OrderCompleted"}})
	s.EventReceived(ctx, bad)(webhook.EventResult{EventID: "e2", Err: errors.New("unregistered")})

	require.NoError(t, s.Stop(context.Background()))
	require.Len(t, w.rows, 4)

	require.Equal(t, models.FastspringEventLogStatusReceived, w.rows[0].Status)
	require.Equal(t, "trace-1", w.rows[0].TraceID)
	require.JSONEq(t, `{"id":"o1"}`, string(w.rows[0].Data))
	require.Equal(t, models.FastspringEventLogStatusHandled, w.rows[1].Status)
	require.Equal(t, w.rows[0].ID, w.rows[1].ID)

	require.Equal(t, models.FastspringEventLogStatusHandleFailed, w.rows[3].Status)
	require.Equal(t, w.rows[2].ID, w.rows[3].ID)
	var result map[string]any
	require.NoError(t, json.Unmarshal(*w.rows[3].Result, &result))
	require.Equal(t, "unregistered", result["error"])
}

func TestService_OverlappingRedeliveriesKeepSeparateRows(t *testing.T) {
	w := &memWriter{}
	s := NewWithWriter(w, zap.NewNop().Sugar())
	s.Start()

	ctx := context.Background()
	first := s.EventReceived(ctx, &webhook.Event{ID: "e1", Type: "order.completed"})
	second := s.EventReceived(ctx, &webhook.Event{ID: "e1", Type: "order.completed"})
	first(webhook.EventResult{EventID: "e1", Err: errors.New("db down")})
	second(webhook.EventResult{EventID: "e1"})

	require.NoError(t, s.Stop(context.Background()))
	require.Len(t, w.rows, 4)

	final := map[string]models.FastspringEventLogStatus{}
	for _, row := range w.rows {
		final[row.ID] = row.Status
	}
	require.Len(t, final, 2)
	require.Equal(t, models.FastspringEventLogStatusHandleFailed, final[w.rows[0].ID])
	require.Equal(t, models.FastspringEventLogStatusHandled, final[w.rows[1].ID])
}

func TestNoopObserver_ReturnsNoCallback(t *testing.T) {
	require.Nil(t, noopObserver{}.EventReceived(context.Background(), &webhook.Event{ID: "e1"}))
}
