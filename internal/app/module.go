package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/fatflowers/fastspring-cashier/internal/app/api/server"
	"github.com/fatflowers/fastspring-cashier/internal/app/service/billable"
	"github.com/fatflowers/fastspring-cashier/internal/app/service/billing_store"
	"github.com/fatflowers/fastspring-cashier/internal/app/service/listener"
	"github.com/fatflowers/fastspring-cashier/internal/app/service/statistics"
	"github.com/fatflowers/fastspring-cashier/internal/app/service/webhook"
	"github.com/fatflowers/fastspring-cashier/internal/app/service/webhook_log"
	"github.com/fatflowers/fastspring-cashier/internal/platform/db"
	"github.com/fatflowers/fastspring-cashier/internal/platform/fastspring"
	"github.com/fatflowers/fastspring-cashier/pkg/config"
	"github.com/fatflowers/fastspring-cashier/pkg/logger"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	fastspring.Module,
	billing_store.Module,
	webhook_log.Module,
	webhook.Module,
	listener.Module,
	billable.Module,
	statistics.Module,
	server.Module,
)
