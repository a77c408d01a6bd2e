package db

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/fatflowers/fastspring-cashier/internal/models"
	cfgpkg "github.com/fatflowers/fastspring-cashier/pkg/config"
	gormzap "github.com/fatflowers/fastspring-cashier/pkg/gormlog"
)

func NewDB(l *zap.SugaredLogger, cfg *cfgpkg.Config) (*gorm.DB, error) {
	if cfg.Database.DSN == "" {
		l.Error("database DSN is empty")
		return nil, gorm.ErrInvalidDB
	}
	var opts []gormzap.Option
	if cfg.Env == cfgpkg.EnvProd {
		opts = append(opts, gormzap.WithLogLevel(gormlogger.Warn))
	}
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{Logger: gormzap.New(l, opts...)})
	if err != nil {
		l.Errorf("failed to connect database: %v", err)
		return nil, err
	}
	l.Infow("connected to postgres via DSN")
	return db, nil
}

var Module = fx.Options(
	fx.Provide(NewDB),
	fx.Invoke(AutoMigrate),
	fx.Invoke(registerDBClose),
)

// AutoMigrate runs GORM migrations on startup. The owner model is migrated into
// the configured owner table so that only the billing columns are added to an
// application-managed table.
func AutoMigrate(l *zap.SugaredLogger, cfg *cfgpkg.Config, db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Subscription{},
		&models.SubscriptionPeriod{},
		&models.Invoice{},
		&models.FastspringEventLog{},
	); err != nil {
		l.Errorf("automigrate failed: %v", err)
		return err
	}
	owner := cfg.Fastspring.OwnerTable
	if owner == "" {
		owner = models.User{}.TableName()
	}
	if err := db.Table(owner).AutoMigrate(&models.User{}); err != nil {
		l.Errorf("automigrate owner table %s failed: %v", owner, err)
		return err
	}
	l.Infow("automigrate completed", "owner_table", owner)
	return nil
}

// registerDBClose ensures the underlying *sql.DB is closed on shutdown
func registerDBClose(lc fx.Lifecycle, l *zap.SugaredLogger, gdb *gorm.DB) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			sqlDB, err := gdb.DB()
			if err != nil {
				l.Warnw("gorm: get sql.DB failed", "err", err)
				return nil
			}
			l.Infow("closing postgres connection pool")
			return sqlDB.Close()
		},
	})
}
