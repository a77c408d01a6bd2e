package webhook_log

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/fatflowers/fastspring-cashier/internal/app/service/webhook"
	"github.com/fatflowers/fastspring-cashier/internal/models"
	"github.com/fatflowers/fastspring-cashier/pkg/logctx"
	"github.com/fatflowers/fastspring-cashier/pkg/tool"
)

const queueSize = 1024

// Writer persists event log rows.
type Writer interface {
	Save(ctx context.Context, row *models.FastspringEventLog) error
}

type gormWriter struct {
	db *gorm.DB
}

func (w gormWriter) Save(ctx context.Context, row *models.FastspringEventLog) error {
	return w.db.WithContext(ctx).Save(row).Error
}

type job struct {
	ctx context.Context
	row models.FastspringEventLog
}

// Service records every webhook event as received, then as handled or
// failed. Writes happen on a single background worker so the two rows of an
// event land in order and never slow the webhook response down.
type Service struct {
	writer Writer
	log    *zap.SugaredLogger

	queue chan job
	done  chan struct{}
	once  sync.Once
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return NewWithWriter(gormWriter{db: db}, log)
}

func NewWithWriter(w Writer, log *zap.SugaredLogger) *Service {
	return &Service{
		writer: w,
		log:    log,
		queue:  make(chan job, queueSize),
		done:   make(chan struct{}),
	}
}

// Start launches the writer loop.
func (s *Service) Start() {
	go s.run()
}

// Stop drains queued rows and waits for the worker to exit.
func (s *Service) Stop(ctx context.Context) error {
	s.once.Do(func() { close(s.queue) })
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) run() {
	defer close(s.done)
	for j := range s.queue {
		row := j.row
		if err := s.writer.Save(j.ctx, &row); err != nil {
			logctx.FromCtx(j.ctx, s.log).Errorf("failed to save webhook event log: %v", err)
		}
	}
}

func (s *Service) enqueue(ctx context.Context, row *models.FastspringEventLog) {
	j := job{ctx: context.WithoutCancel(ctx), row: *row}
	select {
	case s.queue <- j:
	default:
		logctx.FromCtx(ctx, s.log).Warnw("webhook event log queue full, dropping row", "event_id", row.EventID, "status", row.Status)
	}
}

// EventReceived writes the received row and returns the func that records
// the outcome on that same row. Each delivery owns its row, so a redelivery
// racing the first one gets a row of its own.
func (s *Service) EventReceived(ctx context.Context, evt *webhook.Event) func(webhook.EventResult) {
	row := models.FastspringEventLog{
		ID:             tool.GenerateUUIDV7(),
		EventID:        evt.ID,
		EventType:      evt.Type,
		Live:           evt.Live,
		TraceID:        logctx.TraceID(ctx),
		EventCreatedAt: evt.CreatedAt(),
		Data:           datatypes.JSON(evt.Data),
		Status:         models.FastspringEventLogStatusReceived,
	}
	if len(row.Data) == 0 {
		row.Data = datatypes.JSON("null")
	}
	s.enqueue(ctx, &row)

	return func(res webhook.EventResult) {
		s.eventDispatched(ctx, row, res)
	}
}

func (s *Service) eventDispatched(ctx context.Context, row models.FastspringEventLog, res webhook.EventResult) {
	result := map[string]any{
		"identities":  res.Identities,
		"duration_ms": res.Duration.Milliseconds(),
	}
	row.Status = models.FastspringEventLogStatusHandled
	if res.Err != nil {
		row.Status = models.FastspringEventLogStatusHandleFailed
		result["error"] = res.Err.Error()
	}
	if b, err := json.Marshal(result); err == nil {
		j := datatypes.JSON(b)
		row.Result = &j
	}
	s.enqueue(ctx, &row)
}

// noopObserver is installed when event logging is disabled.
type noopObserver struct{}

func (noopObserver) EventReceived(context.Context, *webhook.Event) func(webhook.EventResult) {
	return nil
}
