package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"backtest-engine/config"
	"backtest-engine/internal/dto"
	"backtest-engine/internal/model"
	"backtest-engine/internal/repository"
	"backtest-engine/pkg/cache"
	"backtest-engine/pkg/common"
	"backtest-engine/pkg/logger"
	"backtest-engine/pkg/utils"

	"github.com/google/uuid"
)

const defaultLeaderboardLimit = 50

type LeaderboardService interface {
	// Refresh rebuilds the ranking of every timeframe.
	Refresh(ctx context.Context) error
	RefreshTimeframe(ctx context.Context, timeframe string) ([]model.LeaderboardEntry, error)
	Get(ctx context.Context, req dto.LeaderboardRequest) (*dto.LeaderboardResponse, error)
}

type leaderboardService struct {
	cfg             *config.Config
	log             *logger.Logger
	inmemoryCache   cache.Cache
	backtestRepo    repository.BacktestRepository
	leaderboardRepo repository.LeaderboardRepository
	unitOfWork      repository.UnitOfWork
	now             func() time.Time
}

func NewLeaderboardService(
	cfg *config.Config,
	log *logger.Logger,
	inmemoryCache cache.Cache,
	backtestRepo repository.BacktestRepository,
	leaderboardRepo repository.LeaderboardRepository,
	unitOfWork repository.UnitOfWork,
) LeaderboardService {
	return &leaderboardService{
		cfg:             cfg,
		log:             log,
		inmemoryCache:   inmemoryCache,
		backtestRepo:    backtestRepo,
		leaderboardRepo: leaderboardRepo,
		unitOfWork:      unitOfWork,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

func (s *leaderboardService) Refresh(ctx context.Context) error {
	for _, timeframe := range common.GetTimeframeList() {
		if !utils.ShouldContinue(ctx, s.log) {
			return ctx.Err()
		}
		if _, err := s.RefreshTimeframe(ctx, timeframe); err != nil {
			return err
		}
	}
	return nil
}

// RefreshTimeframe ranks the best completed run of each strategy inside the
// window by composite score. Earlier completion wins ties.
func (s *leaderboardService) RefreshTimeframe(ctx context.Context, timeframe string) ([]model.LeaderboardEntry, error) {
	if !utils.ContainsString(common.GetTimeframeList(), timeframe) {
		return nil, fmt.Errorf("%w: unknown timeframe %q", ErrInvalidRequest, timeframe)
	}

	var since *time.Time
	if start, ok := utils.TimeframeStart(timeframe, s.now()); ok {
		since = &start
	}

	backtests, err := s.backtestRepo.ListCompleted(ctx, since)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to list completed backtests", logger.ErrorField(err), logger.StringField("timeframe", timeframe))
		return nil, err
	}

	previous, err := s.leaderboardRepo.GetByTimeframe(ctx, timeframe)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to load previous leaderboard", logger.ErrorField(err), logger.StringField("timeframe", timeframe))
		return nil, err
	}
	previousRank := make(map[uuid.UUID]int, len(previous))
	for _, e := range previous {
		previousRank[e.StrategyID] = e.Rank
	}

	entries := rankBacktests(timeframe, backtests, previousRank)

	err = s.unitOfWork.Run(ctx, func(opts ...utils.DBOption) error {
		return s.leaderboardRepo.Replace(ctx, timeframe, entries, opts...)
	})
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to store leaderboard", logger.ErrorField(err), logger.StringField("timeframe", timeframe))
		return nil, err
	}

	s.inmemoryCache.Set(fmt.Sprintf(common.KEY_LEADERBOARD, timeframe), entries, s.cfg.Cache.LeaderboardExpDuration)
	s.log.InfoContext(ctx, "Leaderboard refreshed",
		logger.StringField("timeframe", timeframe),
		logger.IntField("entries", len(entries)),
	)
	return entries, nil
}

// rankBacktests expects backtests ordered best first.
func rankBacktests(timeframe string, backtests []model.Backtest, previousRank map[uuid.UUID]int) []model.LeaderboardEntry {
	seen := make(map[uuid.UUID]bool, len(backtests))
	entries := make([]model.LeaderboardEntry, 0, len(backtests))

	for _, b := range backtests {
		if seen[b.StrategyID] {
			continue
		}
		seen[b.StrategyID] = true

		entry := model.LeaderboardEntry{
			Timeframe:      timeframe,
			Rank:           len(entries) + 1,
			StrategyID:     b.StrategyID,
			BacktestID:     b.ID,
			CompositeScore: b.CompositeScore,
			SharpeRatio:    b.SharpeRatio,
			WinRate:        b.WinRate,
			TotalReturn:    b.TotalReturn,
			MaxDrawdown:    b.MaxDrawdown,
		}
		if b.Strategy != nil {
			entry.StrategyName = b.Strategy.Name
		}
		if rank, ok := previousRank[b.StrategyID]; ok {
			entry.PreviousRank = sql.NullInt32{Int32: int32(rank), Valid: true}
		}
		entries = append(entries, entry)
	}
	return entries
}

func (s *leaderboardService) Get(ctx context.Context, req dto.LeaderboardRequest) (*dto.LeaderboardResponse, error) {
	timeframe := req.Timeframe
	if timeframe == "" {
		timeframe = common.TIMEFRAME_ALL_TIME
	}
	if !utils.ContainsString(common.GetTimeframeList(), timeframe) {
		return nil, fmt.Errorf("%w: unknown timeframe %q", ErrInvalidRequest, timeframe)
	}

	key := fmt.Sprintf(common.KEY_LEADERBOARD, timeframe)
	entries, err := cache.GetOrLoad(s.inmemoryCache, key, s.cfg.Cache.LeaderboardExpDuration, func() ([]model.LeaderboardEntry, error) {
		return s.leaderboardRepo.GetByTimeframe(ctx, timeframe)
	})
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to load leaderboard", logger.ErrorField(err), logger.StringField("timeframe", timeframe))
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	start := max(0, min(req.Offset, len(entries)))
	end := min(start+limit, len(entries))

	resp := &dto.LeaderboardResponse{
		Timeframe: timeframe,
		Total:     len(entries),
		Items:     make([]dto.LeaderboardItem, 0, end-start),
	}
	for _, e := range entries[start:end] {
		item := dto.LeaderboardItem{
			Rank:           e.Rank,
			StrategyID:     e.StrategyID,
			StrategyName:   e.StrategyName,
			BacktestID:     e.BacktestID,
			CompositeScore: e.CompositeScore,
			SharpeRatio:    e.SharpeRatio,
			WinRate:        e.WinRate,
			TotalReturn:    e.TotalReturn,
			MaxDrawdown:    e.MaxDrawdown,
		}
		if e.PreviousRank.Valid {
			item.PreviousRank = utils.ToPointer(int(e.PreviousRank.Int32))
		}
		resp.Items = append(resp.Items, item)
	}
	return resp, nil
}
