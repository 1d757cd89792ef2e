package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"backtest-engine/config"
	"backtest-engine/internal/model"
	"backtest-engine/internal/risk"
	"backtest-engine/pkg/cache"
	"backtest-engine/pkg/common"

	"gorm.io/gorm"
)

type SystemParamRepository interface {
	Get(ctx context.Context, name string, destValue interface{}) error
	GetRiskThresholds(ctx context.Context) (risk.Thresholds, error)
}

type systemParamRepository struct {
	cfg           *config.Config
	inmemoryCache cache.Cache
	db            *gorm.DB
}

func NewSystemParamRepository(cfg *config.Config, inmemoryCache cache.Cache, db *gorm.DB) SystemParamRepository {
	return &systemParamRepository{cfg: cfg, inmemoryCache: inmemoryCache, db: db}
}

func (s *systemParamRepository) Get(ctx context.Context, name string, destValue interface{}) error {
	var param model.SystemParameter

	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&param).Error; err != nil {
		return mapErr(err)
	}
	return json.Unmarshal(param.Value, destValue)
}

// GetRiskThresholds returns the configured thresholds overlaid with the
// RISK_THRESHOLDS system parameter, if present. Keys missing from the stored
// JSON keep their configured value.
func (s *systemParamRepository) GetRiskThresholds(ctx context.Context) (risk.Thresholds, error) {
	key := fmt.Sprintf(common.KEY_SYSTEM_PARAM, model.SysParamRiskThresholds)
	return cache.GetOrLoad(s.inmemoryCache, key, s.cfg.Cache.SysParamExpDuration, func() (risk.Thresholds, error) {
		th := ThresholdsFromConfig(s.cfg.Risk)
		err := s.Get(ctx, model.SysParamRiskThresholds, &th)
		if err != nil && err != ErrNotFound {
			return risk.Thresholds{}, err
		}
		return th, nil
	})
}

// ThresholdsFromConfig maps the risk config section onto risk.Thresholds.
func ThresholdsFromConfig(cfg config.Risk) risk.Thresholds {
	return risk.Thresholds{
		MinTradeSizeUSD:     cfg.MinTradeSizeUSD,
		MinTrades:           cfg.MinTrades,
		MinWinRate:          cfg.MinWinRate,
		MinROI30d:           cfg.MinROI30d,
		MinConfidence:       cfg.MinConfidence,
		MaxPositionPct:      cfg.MaxPositionPct,
		MinPositionUSD:      cfg.MinPositionUSD,
		MaxDailyDrawdownPct: cfg.MaxDailyDrawdownPct,
		MaxDailyFailures:    cfg.MaxDailyFailures,
		KellyMultiplier:     cfg.KellyMultiplier,
		DefaultAvgWin:       cfg.DefaultAvgWin,
		DefaultAvgLoss:      cfg.DefaultAvgLoss,
	}
}
