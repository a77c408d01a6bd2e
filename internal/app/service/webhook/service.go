package webhook

import (
	"context"

	"go.uber.org/zap"

	"github.com/fatflowers/fastspring-cashier/pkg/logctx"
)

type Service struct {
	verifier   *SignatureVerifier
	dispatcher *Dispatcher
	log        *zap.SugaredLogger
}

func NewService(verifier *SignatureVerifier, dispatcher *Dispatcher, log *zap.SugaredLogger) *Service {
	return &Service{verifier: verifier, dispatcher: dispatcher, log: log}
}

func (s *Service) Dispatcher() *Dispatcher { return s.dispatcher }

// HandleWebhook authenticates body, then dispatches every event it carries.
// The returned error covers whole-request rejection only; per-event failures
// are reported in the BatchResult.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signature string) (*BatchResult, error) {
	lg := logctx.FromCtx(ctx, s.log)
	if err := s.verifier.Verify(body, signature); err != nil {
		lg.Warnw("webhook_rejected", "reason", err.Error())
		return nil, err
	}
	batch, err := ParseBatch(body)
	if err != nil {
		lg.Warnw("webhook_rejected", "reason", err.Error())
		return nil, err
	}
	return s.dispatcher.DispatchBatch(ctx, batch), nil
}
