package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"backtest-engine/internal/dto"
	"backtest-engine/internal/model"
	"backtest-engine/internal/repository"
	"backtest-engine/internal/risk"
	"backtest-engine/pkg/utils"

	"github.com/google/uuid"
)

type fakeUnitOfWork struct {
	runs int
}

func (u *fakeUnitOfWork) Run(_ context.Context, fn func(opts ...utils.DBOption) error) error {
	u.runs++
	return fn()
}

type fakeStrategyRepo struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*model.Strategy
}

func newFakeStrategyRepo() *fakeStrategyRepo {
	return &fakeStrategyRepo{byID: map[uuid.UUID]*model.Strategy{}}
}

func (r *fakeStrategyRepo) Create(_ context.Context, s *model.Strategy, _ ...utils.DBOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.CreatedAt = time.Now()
	cp := *s
	r.byID[s.ID] = &cp
	return nil
}

func (r *fakeStrategyRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Strategy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeStrategyRepo) GetByHash(_ context.Context, hash string) (*model.Strategy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.byID {
		if s.CodeHash == hash {
			cp := *s
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

type fakeBacktestRepo struct {
	mu        sync.Mutex
	byID      map[uuid.UUID]*model.Backtest
	strategy  *fakeStrategyRepo
	cleanedAt time.Time

	markRunningErr error
	completeErr    error
}

func newFakeBacktestRepo(strategies *fakeStrategyRepo) *fakeBacktestRepo {
	return &fakeBacktestRepo{byID: map[uuid.UUID]*model.Backtest{}, strategy: strategies}
}

func (r *fakeBacktestRepo) Create(_ context.Context, b *model.Backtest, _ ...utils.DBOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	cp := *b
	r.byID[b.ID] = &cp
	return nil
}

func (r *fakeBacktestRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Backtest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *fakeBacktestRepo) MarkRunning(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.markRunningErr != nil {
		return r.markRunningErr
	}
	b := r.byID[id]
	b.Status = model.BacktestRunning
	b.StartedAt.Time, b.StartedAt.Valid = at, true
	return nil
}

func (r *fakeBacktestRepo) Complete(_ context.Context, b *model.Backtest, _ ...utils.DBOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.completeErr != nil {
		return r.completeErr
	}
	stored := r.byID[b.ID]
	startedAt := stored.StartedAt
	cp := *b
	cp.StartedAt = startedAt
	r.byID[b.ID] = &cp
	return nil
}

func (r *fakeBacktestRepo) Fail(_ context.Context, id uuid.UUID, message string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := r.byID[id]
	b.Status = model.BacktestFailed
	b.ErrorMessage.String, b.ErrorMessage.Valid = message, true
	b.CompletedAt.Time, b.CompletedAt.Valid = at, true
	return nil
}

func (r *fakeBacktestRepo) ListCompleted(ctx context.Context, since *time.Time) ([]model.Backtest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Backtest
	for _, b := range r.byID {
		if b.Status != model.BacktestCompleted {
			continue
		}
		if since != nil && b.CompletedAt.Time.Before(*since) {
			continue
		}
		cp := *b
		if s, err := r.strategy.GetByID(ctx, b.StrategyID); err == nil {
			cp.Strategy = s
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CompositeScore != out[j].CompositeScore {
			return out[i].CompositeScore > out[j].CompositeScore
		}
		return out[i].CompletedAt.Time.Before(out[j].CompletedAt.Time)
	})
	return out, nil
}

func (r *fakeBacktestRepo) ClearDetailsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleanedAt = cutoff
	var n int64
	for _, b := range r.byID {
		if b.CompletedAt.Valid && b.CompletedAt.Time.Before(cutoff) && (b.Trades != nil || b.EquityCurve != nil) {
			b.Trades, b.EquityCurve = nil, nil
			n++
		}
	}
	return n, nil
}

func (r *fakeBacktestRepo) get(id uuid.UUID) model.Backtest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.byID[id]
}

type fakeLeaderboardRepo struct {
	byTimeframe map[string][]model.LeaderboardEntry
	reads       int
}

func newFakeLeaderboardRepo() *fakeLeaderboardRepo {
	return &fakeLeaderboardRepo{byTimeframe: map[string][]model.LeaderboardEntry{}}
}

func (r *fakeLeaderboardRepo) GetByTimeframe(_ context.Context, timeframe string, _ ...utils.DBOption) ([]model.LeaderboardEntry, error) {
	r.reads++
	return append([]model.LeaderboardEntry(nil), r.byTimeframe[timeframe]...), nil
}

func (r *fakeLeaderboardRepo) Replace(_ context.Context, timeframe string, entries []model.LeaderboardEntry, _ ...utils.DBOption) error {
	r.byTimeframe[timeframe] = append([]model.LeaderboardEntry(nil), entries...)
	return nil
}

type fakeSignalRepo struct {
	signals  []*model.CandidateSignal
	breakers []*model.CircuitBreakerEvent
	daily    map[time.Time]*model.DailyMetric
	counters map[string]int
}

func newFakeSignalRepo() *fakeSignalRepo {
	return &fakeSignalRepo{daily: map[time.Time]*model.DailyMetric{}, counters: map[string]int{}}
}

func (r *fakeSignalRepo) Create(_ context.Context, s *model.CandidateSignal, _ ...utils.DBOption) error {
	s.ID = uint(len(r.signals) + 1)
	s.CreatedAt = time.Now().UTC()
	r.signals = append(r.signals, s)
	return nil
}

func (r *fakeSignalRepo) UpdateStatus(_ context.Context, id uint, status string, at time.Time) error {
	if id == 0 || int(id) > len(r.signals) {
		return repository.ErrNotFound
	}
	s := r.signals[id-1]
	if s.Status != risk.StatusSent {
		return repository.ErrStatusConflict
	}
	s.Status = status
	if status == risk.StatusExecuted {
		s.ExecutedAt.Time, s.ExecutedAt.Valid = at, true
	}
	return nil
}

func (r *fakeSignalRepo) CountByStatusSince(_ context.Context, status string, since time.Time) (int64, error) {
	var n int64
	for _, s := range r.signals {
		if s.Status == status && !s.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *fakeSignalRepo) Stats(_ context.Context, dayStart time.Time) (dto.SignalStats, error) {
	var stats dto.SignalStats
	for _, s := range r.signals {
		stats.TotalSignals++
		switch s.Status {
		case risk.StatusSent:
			stats.Sent++
		case risk.StatusExecuted:
			stats.Executed++
			stats.OpenExposureUSD += s.SuggestedPositionUSD
		case risk.StatusFiltered:
			stats.Filtered++
		case risk.StatusHalted:
			stats.Halted++
		case risk.StatusFailed:
			stats.Failed++
		}
		if !s.CreatedAt.Before(dayStart) {
			stats.TodaySignals++
		}
	}
	stats.BreakerEventsDay = int64(len(r.breakers))
	return stats, nil
}

func (r *fakeSignalRepo) CreateBreakerEvent(_ context.Context, e *model.CircuitBreakerEvent, _ ...utils.DBOption) error {
	e.ID = uint(len(r.breakers) + 1)
	r.breakers = append(r.breakers, e)
	return nil
}

func (r *fakeSignalRepo) GetDailyMetric(_ context.Context, date time.Time) (*model.DailyMetric, error) {
	m, ok := r.daily[utils.StartOfDay(date)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return m, nil
}

func (r *fakeSignalRepo) IncrementDailyCounters(_ context.Context, _ time.Time, status string, _ ...utils.DBOption) error {
	r.counters[status]++
	return nil
}

type fakeSystemParamRepo struct {
	th  risk.Thresholds
	err error
}

func (r *fakeSystemParamRepo) Get(_ context.Context, _ string, _ interface{}) error {
	return repository.ErrNotFound
}

func (r *fakeSystemParamRepo) GetRiskThresholds(_ context.Context) (risk.Thresholds, error) {
	return r.th, r.err
}

type fakeNotifier struct {
	messages []string
	err      error
}

func (n *fakeNotifier) SendAlert(_ context.Context, message string) error {
	n.messages = append(n.messages, message)
	return n.err
}

type fakeOracle struct {
	value float64
}

func (o *fakeOracle) SuggestKelly(_ context.Context, _, _, _ float64) (float64, error) {
	return o.value, nil
}
