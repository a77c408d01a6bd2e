package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/fastspring-cashier/docs"
	"github.com/fatflowers/fastspring-cashier/internal/app/api/handlers"
	mw "github.com/fatflowers/fastspring-cashier/internal/app/api/middleware"
	"github.com/fatflowers/fastspring-cashier/internal/app/service/billable"
	"github.com/fatflowers/fastspring-cashier/internal/app/service/billing_store"
	"github.com/fatflowers/fastspring-cashier/internal/app/service/statistics"
	"github.com/fatflowers/fastspring-cashier/internal/app/service/webhook"
	cfgpkg "github.com/fatflowers/fastspring-cashier/pkg/config"
	metrics "github.com/fatflowers/fastspring-cashier/pkg/metrics"
)

func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	// Add request tracing middleware only; request logger & access log are attached per group in registerRoutes
	r.Use(mw.TraceMiddleware())
	return r
}

type routeParams struct {
	fx.In

	Engine  *gin.Engine
	Log     *zap.SugaredLogger
	Config  *cfgpkg.Config
	Webhook *webhook.Service
	Billing *billable.Service
	Store   *billing_store.Store
	Stats   *statistics.Service
}

func registerRoutes(p routeParams) {
	r, log, cfg := p.Engine, p.Log, p.Config

	// Prometheus metrics; webhook deliveries are counted per event by webhook_events_total
	if cfg.MetricsAddr != "" {
		prom := metrics.NewPrometheus(metrics.NewPrometheusOptions{
			Subsystem: "cashier",
			ReqCntURLLabelMappingFn: func(c *gin.Context) string {
				if fp := c.FullPath(); fp != "" {
					return fp
				}
				return c.Request.URL.Path
			},
			SkipURLs: []string{"/webhook", "/api/v1/fastspring/webhook"},
			Logger:   log,
		})
		prom.SetListenAddress(cfg.MetricsAddr)
		prom.Use(r)
	}

	// Public group: request logger + access log
	pub := r.Group("/")
	pub.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(log))
	handlers.RegisterHealthRoutes(pub)
	handlers.RegisterLegacyWebhookRoute(pub, p.Webhook, cfg.Webhook.MaxBodyBytes, log)
	// Swagger UI
	docs.SwaggerInfo.BasePath = "/"
	pub.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	apiV1 := r.Group("/api/v1")
	apiV1.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(log))
	handlers.RegisterFastspringWebhookRoutes(apiV1, p.Webhook, cfg.Webhook.MaxBodyBytes, log)
	handlers.RegisterBillingRoutes(apiV1.Group("/billing"), p.Billing)

	// Admin APIs require a bearer token signed with admin.jwt_secret
	admin := apiV1.Group("/admin")
	admin.Use(mw.AdminAuthMiddleware(cfg.Admin.JWTSecret, log))
	handlers.RegisterAdminRoutes(admin, p.Store)
	handlers.RegisterStatisticRoutes(admin, p.Stats)
}

func runServer(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting HTTP server", "addr", addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Errorf("server error: %v", err)
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping HTTP server")
			shutdownCtx, cancel := context.WithTimeout(ctx, 120*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(newEngine),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
)
