package webhook_log

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fatflowers/fastspring-cashier/internal/app/service/webhook"
	cfgpkg "github.com/fatflowers/fastspring-cashier/pkg/config"
)

func newObserver(lc fx.Lifecycle, cfg *cfgpkg.Config, db *gorm.DB, log *zap.SugaredLogger) webhook.EventObserver {
	if !cfg.Webhook.LogEvents {
		return noopObserver{}
	}
	s := New(db, log)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			s.Start()
			return nil
		},
		OnStop: s.Stop,
	})
	return s
}

var Module = fx.Options(
	fx.Provide(newObserver),
)
