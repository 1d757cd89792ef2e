package service

import (
	"backtest-engine/config"
	"backtest-engine/internal/engine"
	"backtest-engine/internal/repository"
	"backtest-engine/internal/risk"
	"backtest-engine/pkg/cache"
	"backtest-engine/pkg/logger"
)

type Service struct {
	StrategyService    StrategyService
	BacktestService    BacktestService
	LeaderboardService LeaderboardService
	RiskService        RiskService
	SchedulerService   SchedulerService
}

// NewService wires every service. notifier may be nil, in which case
// approved signals are only logged.
func NewService(
	cfg *config.Config,
	log *logger.Logger,
	repo *repository.Repository,
	inmemoryCache cache.Cache,
	notifier logger.Alerter,
) *Service {
	strategyService := NewStrategyService(log, repo.StrategyRepo)
	backtestService := NewBacktestService(cfg, log, repo.StrategyRepo, repo.BacktestRepo)
	leaderboardService := NewLeaderboardService(cfg, log, inmemoryCache, repo.BacktestRepo, repo.LeaderboardRepo, repo.UnitOfWork)
	riskService := NewRiskService(cfg, log, repo.SignalRepo, repo.SystemParamRepo, repo.UnitOfWork,
		risk.NewOracleCheck(repo.KellyOracle, cfg.Oracle.Tolerance, log), notifier)
	schedulerService := NewSchedulerService(cfg, log, leaderboardService, backtestService)

	return &Service{
		StrategyService:    strategyService,
		BacktestService:    backtestService,
		LeaderboardService: leaderboardService,
		RiskService:        riskService,
		SchedulerService:   schedulerService,
	}
}

// EngineConfig maps the backtest config section onto the engine cost model.
func EngineConfig(cfg config.Backtest) engine.Config {
	ec := engine.DefaultConfig()
	if cfg.InitialCapital > 0 {
		ec.InitialCapital = cfg.InitialCapital
	}
	if cfg.Slippage >= 0 {
		ec.Slippage = cfg.Slippage
	}
	if cfg.Commission >= 0 {
		ec.Commission = cfg.Commission
	}
	if cfg.EquityStride > 0 {
		ec.EquityStride = cfg.EquityStride
	}
	if cfg.Annualization > 0 {
		ec.Annualization = cfg.Annualization
	}
	return ec
}

// SyntheticConfig maps the backtest config section onto the random walk.
func SyntheticConfig(cfg config.Backtest) engine.SyntheticConfig {
	sc := engine.DefaultSyntheticConfig()
	if cfg.SyntheticStartPrice > 0 {
		sc.StartPrice = cfg.SyntheticStartPrice
	}
	if cfg.SyntheticFloor > 0 {
		sc.Floor = cfg.SyntheticFloor
	}
	if cfg.SyntheticVolatility > 0 {
		sc.Volatility = cfg.SyntheticVolatility
	}
	if cfg.PeriodsPerDay > 0 {
		sc.PeriodsPerDay = cfg.PeriodsPerDay
	}
	sc.Drift = cfg.SyntheticDrift
	sc.Seed = cfg.SyntheticSeed
	return sc
}
