package repository

import (
	"database/sql"

	"backtest-engine/config"
	"backtest-engine/internal/risk"
	"backtest-engine/pkg/cache"
	"backtest-engine/pkg/logger"

	"gorm.io/gorm"
)

type Repository struct {
	StrategyRepo    StrategyRepository
	BacktestRepo    BacktestRepository
	LeaderboardRepo LeaderboardRepository
	SignalRepo      SignalRepository
	SystemParamRepo SystemParamRepository
	KellyOracle     risk.KellyOracle
	UnitOfWork      UnitOfWork
}

func NewRepository(cfg *config.Config, inmemoryCache cache.Cache, db *gorm.DB, log *logger.Logger) (*Repository, error) {
	uow := NewUnitOfWork(db, sql.LevelReadCommitted)
	kellyOracle, err := NewKellyOracle(cfg, log)
	if err != nil {
		return nil, err
	}

	return &Repository{
		StrategyRepo:    NewStrategyRepository(db),
		BacktestRepo:    NewBacktestRepository(db),
		LeaderboardRepo: NewLeaderboardRepository(db),
		SignalRepo:      NewSignalRepository(db),
		SystemParamRepo: NewSystemParamRepository(cfg, inmemoryCache, db),
		KellyOracle:     kellyOracle,
		UnitOfWork:      uow,
	}, nil
}
