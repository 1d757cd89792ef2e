package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"backtest-engine/config"
	"backtest-engine/internal/dto"
	"backtest-engine/internal/engine"
	"backtest-engine/internal/model"
	"backtest-engine/internal/repository"
	"backtest-engine/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/datatypes"
)

var (
	rangeStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rangeEnd   = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
)

func newTestBacktestService(t *testing.T) (*backtestService, *fakeStrategyRepo, *fakeBacktestRepo) {
	t.Helper()
	cfg := config.Default()
	cfg.Backtest.MaxConcurrency = 2
	cfg.Backtest.Timeout = 10 * time.Second

	strategies := newFakeStrategyRepo()
	backtests := newFakeBacktestRepo(strategies)
	return NewBacktestService(cfg, logger.NewNop(), strategies, backtests), strategies, backtests
}

func storeStrategy(t *testing.T, repo *fakeStrategyRepo, kind, code string) *model.Strategy {
	t.Helper()
	s := &model.Strategy{Name: kind + " strategy", Kind: kind, Code: code, CodeHash: CodeHash(code)}
	require.NoError(t, repo.Create(context.Background(), s))
	return s
}

func TestBacktestService_Enqueue(t *testing.T) {
	svc, strategies, backtests := newTestBacktestService(t)
	ctx := context.Background()
	strategy := storeStrategy(t, strategies, "pine_script", pineStrategy)

	queued, err := svc.Enqueue(ctx, dto.CreateBacktestRequest{StrategyID: strategy.ID, StartDate: rangeStart, EndDate: rangeEnd})
	require.NoError(t, err)
	assert.Equal(t, string(model.BacktestQueued), queued.Status)
	assert.Nil(t, queued.Result)

	svc.Wait()

	stored := backtests.get(queued.ID)
	assert.Equal(t, model.BacktestCompleted, stored.Status)
	assert.True(t, stored.StartedAt.Valid)
	assert.True(t, stored.CompletedAt.Valid)
	assert.Equal(t, 10000.0, stored.InitialCapital)
	assert.NotEmpty(t, stored.EquityCurve)

	got, err := svc.GetByID(ctx, queued.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Result)
	require.NotNil(t, got.Parameters)
	assert.Equal(t, 14, got.Parameters.Lookback)
	assert.NotEmpty(t, got.Result.EquityCurve)
	assert.Equal(t, stored.FinalEquity, got.Result.FinalEquity)
}

func TestBacktestService_EnqueueStoreErrorsFailTheRun(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(r *fakeBacktestRepo)
		wantError string
	}{
		{
			name:      "complete fails",
			setup:     func(r *fakeBacktestRepo) { r.completeErr = errors.New("connection reset") },
			wantError: "store result: connection reset",
		},
		{
			name:      "mark running fails",
			setup:     func(r *fakeBacktestRepo) { r.markRunningErr = errors.New("deadlock detected") },
			wantError: "deadlock detected",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, strategies, backtests := newTestBacktestService(t)
			strategy := storeStrategy(t, strategies, "pine_script", pineStrategy)
			tt.setup(backtests)

			queued, err := svc.Enqueue(context.Background(), dto.CreateBacktestRequest{StrategyID: strategy.ID, StartDate: rangeStart, EndDate: rangeEnd})
			require.NoError(t, err)
			svc.Wait()

			stored := backtests.get(queued.ID)
			assert.Equal(t, model.BacktestFailed, stored.Status)
			assert.Equal(t, tt.wantError, stored.ErrorMessage.String)
			assert.True(t, stored.CompletedAt.Valid)
		})
	}
}

func TestBacktestService_EnqueueUnsupportedKindFails(t *testing.T) {
	svc, strategies, backtests := newTestBacktestService(t)
	strategy := storeStrategy(t, strategies, "python", "def run(): pass")

	queued, err := svc.Enqueue(context.Background(), dto.CreateBacktestRequest{StrategyID: strategy.ID, StartDate: rangeStart, EndDate: rangeEnd})
	require.NoError(t, err)
	svc.Wait()

	stored := backtests.get(queued.ID)
	assert.Equal(t, model.BacktestFailed, stored.Status)
	assert.Contains(t, stored.ErrorMessage.String, "unsupported strategy kind")

	got, err := svc.GetByID(context.Background(), queued.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Result)
	assert.NotEmpty(t, got.ErrorMessage)
}

func TestBacktestService_EnqueueUnknownStrategy(t *testing.T) {
	svc, _, _ := newTestBacktestService(t)
	_, err := svc.Enqueue(context.Background(), dto.CreateBacktestRequest{StrategyID: uuid.New(), StartDate: rangeStart, EndDate: rangeEnd})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestBacktestService_RunSync(t *testing.T) {
	svc, _, _ := newTestBacktestService(t)
	ctx := context.Background()
	seed := int64(7)
	req := dto.RunBacktestRequest{Kind: "pine_script", Code: pineStrategy, StartDate: rangeStart, EndDate: rangeEnd, Seed: &seed}

	first, err := svc.RunSync(ctx, req)
	require.NoError(t, err)
	second, err := svc.RunSync(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first, second, "same seed and code give the same result")
	assert.Equal(t, 14, first.Parameters.Lookback)
	assert.Len(t, first.Issues, 1)
	assert.NotEmpty(t, first.Result.EquityCurve)

	req.InitialCapital = 50000
	bigger, err := svc.RunSync(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 50000.0, bigger.Result.EquityCurve[0].Equity)
}

func TestBacktestService_RunSyncErrors(t *testing.T) {
	svc, _, _ := newTestBacktestService(t)
	ctx := context.Background()

	_, err := svc.RunSync(ctx, dto.RunBacktestRequest{Kind: "python", Code: "x", StartDate: rangeStart, EndDate: rangeEnd})
	assert.ErrorIs(t, err, engine.ErrUnsupportedStrategyKind)

	_, err = svc.RunSync(ctx, dto.RunBacktestRequest{Kind: "pine_script", StartDate: rangeEnd, EndDate: rangeStart})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestBacktestService_RunBatch(t *testing.T) {
	svc, _, _ := newTestBacktestService(t)
	ctx := context.Background()

	reqs := make([]dto.RunBacktestRequest, 4)
	for i := range reqs {
		seed := int64(i + 1)
		reqs[i] = dto.RunBacktestRequest{Kind: "pine_script", Code: pineStrategy, StartDate: rangeStart, EndDate: rangeEnd, Seed: &seed}
	}

	results, err := svc.RunBatch(ctx, reqs)
	require.NoError(t, err)
	require.Len(t, results, len(reqs))
	for i, req := range reqs {
		single, err := svc.RunSync(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, *single, results[i], "batch result %d keeps its position", i)
	}

	reqs[2].Kind = "python"
	_, err = svc.RunBatch(ctx, reqs)
	assert.ErrorIs(t, err, engine.ErrUnsupportedStrategyKind)
}

func TestBacktestService_Cleanup(t *testing.T) {
	svc, strategies, backtests := newTestBacktestService(t)
	now := time.Date(2024, 6, 1, 3, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	strategy := storeStrategy(t, strategies, "pine_script", pineStrategy)

	old := &model.Backtest{StrategyID: strategy.ID, Status: model.BacktestCompleted, Trades: datatypes.JSON(`[]`), EquityCurve: datatypes.JSON(`[]`)}
	old.CompletedAt.Time, old.CompletedAt.Valid = now.AddDate(0, 0, -120), true
	recent := &model.Backtest{StrategyID: strategy.ID, Status: model.BacktestCompleted, Trades: datatypes.JSON(`[]`)}
	recent.CompletedAt.Time, recent.CompletedAt.Valid = now.AddDate(0, 0, -10), true
	require.NoError(t, backtests.Create(context.Background(), old))
	require.NoError(t, backtests.Create(context.Background(), recent))

	n, err := svc.Cleanup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, now.AddDate(0, 0, -90), backtests.cleanedAt)
	assert.Nil(t, backtests.get(old.ID).Trades)
	assert.NotNil(t, backtests.get(recent.ID).Trades)
}

func TestBacktestService_GetByIDLogsCorruptDetails(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	svc, strategies, backtests := newTestBacktestService(t)
	svc.log = &logger.Logger{Logger: zap.New(core)}
	strategy := storeStrategy(t, strategies, "pine_script", pineStrategy)

	corrupt := &model.Backtest{
		StrategyID:  strategy.ID,
		Status:      model.BacktestCompleted,
		TotalTrades: 4,
		Trades:      datatypes.JSON(`{"not":"a list"}`),
		EquityCurve: datatypes.JSON(`[{"equity":`),
	}
	require.NoError(t, backtests.Create(context.Background(), corrupt))

	got, err := svc.GetByID(context.Background(), corrupt.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Result)
	assert.Equal(t, 4, got.Result.TotalTrades)

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "Failed to decode stored trades", logs.All()[0].Message)
	assert.Equal(t, "Failed to decode stored equity curve", logs.All()[1].Message)
	assert.Equal(t, corrupt.ID.String(), logs.All()[0].ContextMap()["backtest_id"])
}
