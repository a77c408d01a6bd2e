package webhook

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"

	cfgpkg "github.com/fatflowers/fastspring-cashier/pkg/config"
	"github.com/fatflowers/fastspring-cashier/pkg/metrics"
)

type dispatcherParams struct {
	fx.In

	Log      *zap.SugaredLogger
	Cfg      *cfgpkg.Config
	Metrics  metrics.WebhookMetrics
	Observer EventObserver `optional:"true"`
}

func newDispatcher(p dispatcherParams) *Dispatcher {
	opts := []DispatcherOption{WithEventTimeout(p.Cfg.Webhook.EventTimeout)}
	if p.Observer != nil {
		opts = append(opts, WithObserver(p.Observer))
	}
	d := NewDispatcher(p.Log, p.Metrics, opts...)
	DefineCatalog(d)
	return d
}

func newVerifier(cfg *cfgpkg.Config, log *zap.SugaredLogger) *SignatureVerifier {
	if cfg.Fastspring.HMACSecret == "" {
		log.Warnw("fastspring hmac secret is empty; every webhook will be rejected")
	}
	return NewSignatureVerifier(cfg.Fastspring.HMACSecret)
}

func newWebhookMetrics() (metrics.WebhookMetrics, error) {
	return metrics.NewWebhookMetrics(prometheus.DefaultRegisterer, "cashier")
}

var Module = fx.Options(
	fx.Provide(newWebhookMetrics),
	fx.Provide(newVerifier),
	fx.Provide(newDispatcher),
	fx.Provide(NewService),
)
