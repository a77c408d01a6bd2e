package billable

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/fastspring-cashier/internal/app/service/billing_store"
	"github.com/fatflowers/fastspring-cashier/internal/platform/fastspring"
)

func newService(store *billing_store.Store, client *fastspring.Client, log *zap.SugaredLogger) *Service {
	return New(store, client, log)
}

var Module = fx.Options(
	fx.Provide(newService),
)
