package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"backtest-engine/config"
	"backtest-engine/internal/dto"
	"backtest-engine/internal/engine"
	"backtest-engine/internal/model"
	"backtest-engine/internal/repository"
	"backtest-engine/pkg/logger"
	"backtest-engine/pkg/utils"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type BacktestService interface {
	// Enqueue stores a queued run of a registered strategy and executes it in
	// the background.
	Enqueue(ctx context.Context, req dto.CreateBacktestRequest) (*dto.BacktestResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*dto.BacktestResponse, error)
	// RunSync backtests inline code over a synthetic series without
	// persisting anything.
	RunSync(ctx context.Context, req dto.RunBacktestRequest) (*dto.RunBacktestResponse, error)
	RunBatch(ctx context.Context, reqs []dto.RunBacktestRequest) ([]dto.RunBacktestResponse, error)
	// Cleanup drops trades and equity curves past the retention window.
	Cleanup(ctx context.Context) (int64, error)
	// Wait blocks until every background run has finished.
	Wait()
}

type backtestService struct {
	cfg          *config.Config
	log          *logger.Logger
	strategyRepo repository.StrategyRepository
	backtestRepo repository.BacktestRepository
	semaphore    chan struct{}
	wg           sync.WaitGroup
	now          func() time.Time
	newSource    func(seed int64) engine.PriceSource
}

func NewBacktestService(
	cfg *config.Config,
	log *logger.Logger,
	strategyRepo repository.StrategyRepository,
	backtestRepo repository.BacktestRepository,
) *backtestService {
	concurrency := cfg.Backtest.MaxConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &backtestService{
		cfg:          cfg,
		log:          log,
		strategyRepo: strategyRepo,
		backtestRepo: backtestRepo,
		semaphore:    make(chan struct{}, concurrency),
		now:          func() time.Time { return time.Now().UTC() },
		newSource: func(seed int64) engine.PriceSource {
			sc := SyntheticConfig(cfg.Backtest)
			sc.Seed = seed
			return engine.NewSyntheticSource(sc)
		},
	}
}

func (s *backtestService) engineFor(initialCapital float64) *engine.Engine {
	ec := EngineConfig(s.cfg.Backtest)
	if initialCapital > 0 {
		ec.InitialCapital = initialCapital
	}
	return engine.New(ec)
}

func (s *backtestService) Enqueue(ctx context.Context, req dto.CreateBacktestRequest) (*dto.BacktestResponse, error) {
	strategy, err := s.strategyRepo.GetByID(ctx, req.StrategyID)
	if err != nil {
		return nil, err
	}

	capital := req.InitialCapital
	if capital <= 0 {
		capital = EngineConfig(s.cfg.Backtest).InitialCapital
	}

	backtest := &model.Backtest{
		StrategyID:     strategy.ID,
		Status:         model.BacktestQueued,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		InitialCapital: capital,
	}
	if err := s.backtestRepo.Create(ctx, backtest); err != nil {
		s.log.ErrorContext(ctx, "Failed to create backtest", logger.ErrorField(err))
		return nil, err
	}

	s.log.InfoContext(ctx, "Backtest queued",
		logger.IDField("backtest_id", backtest.ID),
		logger.IDField("strategy_id", strategy.ID),
		logger.IntField("active_concurrency", len(s.semaphore)),
		logger.IntField("max_concurrency", cap(s.semaphore)),
	)

	queued := *backtest
	s.wg.Add(1)
	utils.GoSafe(s.log, func() {
		defer s.wg.Done()

		s.semaphore <- struct{}{}
		defer func() {
			<-s.semaphore
		}()

		runCtx, cancel := context.WithTimeout(context.Background(), s.runTimeout())
		defer cancel()
		runCtx = logger.NewContext(runCtx, s.log.FromContext(ctx))

		s.execute(runCtx, &queued, strategy)
	})

	return toBacktestResponse(ctx, s.log, backtest), nil
}

func (s *backtestService) runTimeout() time.Duration {
	if s.cfg.Backtest.Timeout > 0 {
		return s.cfg.Backtest.Timeout
	}
	return 5 * time.Minute
}

func (s *backtestService) execute(ctx context.Context, backtest *model.Backtest, strategy *model.Strategy) {
	log := s.log.With(
		logger.IDField("backtest_id", backtest.ID),
		logger.IDField("strategy_id", strategy.ID),
	)

	if err := s.backtestRepo.MarkRunning(ctx, backtest.ID, s.now()); err != nil {
		log.ErrorContext(ctx, "Failed to mark backtest running", logger.ErrorField(err))
		s.fail(ctx, log, backtest.ID, err)
		return
	}

	started := time.Now()
	result, params, err := s.run(ctx, backtest, strategy)
	if err != nil {
		if errors.Is(err, engine.ErrUnsupportedStrategyKind) {
			log.ErrorContext(ctx, "Unsupported strategy kind", logger.StringField("kind", strategy.Kind))
		} else {
			log.WarnContext(ctx, "Backtest failed", logger.ErrorField(err))
		}
		s.fail(ctx, log, backtest.ID, err)
		return
	}

	if err := applyResult(backtest, params, result); err != nil {
		log.ErrorContext(ctx, "Failed to encode backtest result", logger.ErrorField(err))
		s.fail(ctx, log, backtest.ID, err)
		return
	}
	backtest.Status = model.BacktestCompleted
	backtest.CompletedAt = sql.NullTime{Time: s.now(), Valid: true}

	if err := s.backtestRepo.Complete(ctx, backtest); err != nil {
		log.ErrorContext(ctx, "Failed to store backtest result", logger.ErrorField(err))
		s.fail(ctx, log, backtest.ID, fmt.Errorf("store result: %w", err))
		return
	}

	log.InfoContext(ctx, "Backtest completed",
		logger.IntField("total_trades", result.TotalTrades),
		logger.Float64Field("composite_score", result.CompositeScore),
		logger.DurationField("elapsed", time.Since(started)),
	)
}

// fail records cause on the backtest so it never stays queued or running.
func (s *backtestService) fail(ctx context.Context, log *logger.Logger, id uuid.UUID, cause error) {
	// the run context may be the one that expired
	failCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.backtestRepo.Fail(failCtx, id, cause.Error(), s.now()); err != nil {
		log.ErrorContext(ctx, "Failed to mark backtest failed", logger.ErrorField(err))
	}
}

func (s *backtestService) run(ctx context.Context, backtest *model.Backtest, strategy *model.Strategy) (engine.BacktestResult, engine.StrategyParameters, error) {
	series, err := s.newSource(s.cfg.Backtest.SyntheticSeed).Prices(ctx, backtest.StartDate, backtest.EndDate)
	if err != nil {
		return engine.BacktestResult{}, engine.StrategyParameters{}, err
	}
	if err := ctx.Err(); err != nil {
		return engine.BacktestResult{}, engine.StrategyParameters{}, err
	}

	result, params, _, err := s.engineFor(backtest.InitialCapital).Run(engine.StrategyDefinition{
		Kind: engine.StrategyKind(strategy.Kind),
		Code: strategy.Code,
	}, series)
	return result, params, err
}

func applyResult(backtest *model.Backtest, params engine.StrategyParameters, result engine.BacktestResult) error {
	var err error
	if backtest.Parameters, err = json.Marshal(params); err != nil {
		return err
	}
	if backtest.Trades, err = json.Marshal(result.Trades); err != nil {
		return err
	}
	if backtest.EquityCurve, err = json.Marshal(result.EquityCurve); err != nil {
		return err
	}

	backtest.TotalTrades = result.TotalTrades
	backtest.WinningTrades = result.WinningTrades
	backtest.LosingTrades = result.LosingTrades
	backtest.WinRate = result.WinRate
	backtest.ProfitFactor = result.ProfitFactor
	backtest.SharpeRatio = result.SharpeRatio
	backtest.SortinoRatio = result.SortinoRatio
	backtest.MaxDrawdown = result.MaxDrawdown
	backtest.AvgTradePnL = result.AvgTradePnL
	backtest.TotalReturn = result.TotalReturn
	backtest.FinalEquity = result.FinalEquity
	backtest.CompositeScore = result.CompositeScore
	return nil
}

func (s *backtestService) GetByID(ctx context.Context, id uuid.UUID) (*dto.BacktestResponse, error) {
	backtest, err := s.backtestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toBacktestResponse(ctx, s.log, backtest), nil
}

func toBacktestResponse(ctx context.Context, log *logger.Logger, m *model.Backtest) *dto.BacktestResponse {
	resp := &dto.BacktestResponse{
		ID:         m.ID,
		StrategyID: m.StrategyID,
		Status:     string(m.Status),
		StartDate:  m.StartDate,
		EndDate:    m.EndDate,
		CreatedAt:  m.CreatedAt,
	}
	if m.ErrorMessage.Valid {
		resp.ErrorMessage = m.ErrorMessage.String
	}
	if m.StartedAt.Valid {
		resp.StartedAt = utils.ToPointer(m.StartedAt.Time)
	}
	if m.CompletedAt.Valid {
		resp.CompletedAt = utils.ToPointer(m.CompletedAt.Time)
	}
	if len(m.Parameters) > 0 {
		var params engine.StrategyParameters
		if json.Unmarshal(m.Parameters, &params) == nil {
			resp.Parameters = &params
		}
	}

	if m.Status != model.BacktestCompleted {
		return resp
	}
	result := engine.BacktestResult{
		TotalTrades:    m.TotalTrades,
		WinningTrades:  m.WinningTrades,
		LosingTrades:   m.LosingTrades,
		WinRate:        m.WinRate,
		ProfitFactor:   m.ProfitFactor,
		SharpeRatio:    m.SharpeRatio,
		SortinoRatio:   m.SortinoRatio,
		MaxDrawdown:    m.MaxDrawdown,
		AvgTradePnL:    m.AvgTradePnL,
		TotalReturn:    m.TotalReturn,
		FinalEquity:    m.FinalEquity,
		CompositeScore: m.CompositeScore,
		Trades:         []engine.Trade{},
		EquityCurve:    []engine.EquityPoint{},
	}
	// cleaned-up runs keep only the summary
	if len(m.Trades) > 0 {
		if err := json.Unmarshal(m.Trades, &result.Trades); err != nil {
			log.WarnContext(ctx, "Failed to decode stored trades", logger.IDField("backtest_id", m.ID), logger.ErrorField(err))
		}
	}
	if len(m.EquityCurve) > 0 {
		if err := json.Unmarshal(m.EquityCurve, &result.EquityCurve); err != nil {
			log.WarnContext(ctx, "Failed to decode stored equity curve", logger.IDField("backtest_id", m.ID), logger.ErrorField(err))
		}
	}
	resp.Result = &result
	return resp
}

func (s *backtestService) RunSync(ctx context.Context, req dto.RunBacktestRequest) (*dto.RunBacktestResponse, error) {
	if !req.EndDate.After(req.StartDate) {
		return nil, fmt.Errorf("%w: end_date must be after start_date", ErrInvalidRequest)
	}

	seed := s.cfg.Backtest.SyntheticSeed
	if req.Seed != nil {
		seed = *req.Seed
	}
	series, err := s.newSource(seed).Prices(ctx, req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	result, params, issues, err := s.engineFor(req.InitialCapital).Run(engine.StrategyDefinition{
		Kind: engine.StrategyKind(req.Kind),
		Code: req.Code,
	}, series)
	if err != nil {
		if errors.Is(err, engine.ErrUnsupportedStrategyKind) {
			s.log.ErrorContext(ctx, "Unsupported strategy kind", logger.StringField("kind", req.Kind))
		}
		return nil, err
	}

	resp := &dto.RunBacktestResponse{
		Parameters: params,
		Issues:     make([]string, 0, len(issues)),
		Result:     result,
	}
	for _, issue := range issues {
		resp.Issues = append(resp.Issues, issue.String())
	}
	return resp, nil
}

// RunBatch runs independent backtests in parallel, bounded by the configured
// concurrency. The first failure cancels the rest.
func (s *backtestService) RunBatch(ctx context.Context, reqs []dto.RunBacktestRequest) ([]dto.RunBacktestResponse, error) {
	results := make([]dto.RunBacktestResponse, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cap(s.semaphore))
	for i, req := range reqs {
		g.Go(func() error {
			resp, err := s.RunSync(gctx, req)
			if err != nil {
				return fmt.Errorf("backtest %d: %w", i, err)
			}
			results[i] = *resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *backtestService) Cleanup(ctx context.Context) (int64, error) {
	days := s.cfg.Backtest.RetentionDays
	if days <= 0 {
		return 0, nil
	}
	cutoff := s.now().AddDate(0, 0, -days)
	n, err := s.backtestRepo.ClearDetailsBefore(ctx, cutoff)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to clean up backtest details", logger.ErrorField(err))
		return 0, err
	}
	s.log.InfoContext(ctx, "Backtest details cleaned up",
		logger.IntField("rows", int(n)),
		logger.StringField("cutoff", cutoff.Format(time.RFC3339)),
	)
	return n, nil
}

func (s *backtestService) Wait() {
	s.wg.Wait()
}
