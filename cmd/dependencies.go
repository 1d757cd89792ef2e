package cmd

import (
	"context"

	"backtest-engine/config"
	"backtest-engine/pkg/cache"
	"backtest-engine/pkg/logger"
	"backtest-engine/pkg/postgres"
	"backtest-engine/pkg/telegram"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type AppDependency struct {
	db        *postgres.DB
	cfg       *config.Config
	log       *logger.Logger
	validator *goValidator.Validate
	echo      *echo.Echo
	cache     cache.Cache
	telegram  *telegram.Notifier
}

func NewAppDependency(ctx context.Context) (*AppDependency, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return nil, err
	}

	notifier, err := telegram.NewNotifier(&cfg.Telegram, log, "")
	if err != nil {
		log.Error("Failed to create telegram notifier", zap.Error(err))
		return nil, err
	}
	if notifier.Enabled() {
		log = log.WithAlerts(notifier, zapcore.WarnLevel)
	}

	db, err := postgres.NewDB(cfg.DB, log)
	if err != nil {
		log.Error("Failed to connect to database", zap.Error(err))
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	return &AppDependency{
		cfg:       cfg,
		log:       log,
		validator: goValidator.New(),
		db:        db,
		echo:      e,
		cache:     cache.NewCache(cfg.Cache.DefaultExpiration, cfg.Cache.CleanupInterval),
		telegram:  notifier,
	}, nil
}

// alerter returns the notifier as a logger.Alerter, or nil when telegram is
// disabled so services skip notifications entirely.
func (d *AppDependency) alerter() logger.Alerter {
	if !d.telegram.Enabled() {
		return nil
	}
	return d.telegram
}

func (d *AppDependency) Close() error {
	d.log.Info("Closing app dependency")
	_ = d.log.Sync()
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}
