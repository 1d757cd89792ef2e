package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tradingSeries(t *testing.T) PriceSeries {
	t.Helper()
	src := NewSyntheticSource(SyntheticConfig{StartPrice: 0.4, Floor: 0.01, Volatility: 0.05, PeriodsPerDay: 6, Seed: 11})
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	series, err := src.Prices(context.Background(), start, start.AddDate(0, 0, 60))
	require.NoError(t, err)
	return series
}

func TestRunBacktest_Idempotent(t *testing.T) {
	eng := New(DefaultConfig())
	series := tradingSeries(t)
	p := DefaultParameters()
	p.Lookback = 5

	first, err := eng.RunBacktest(p, series)
	require.NoError(t, err)
	second, err := eng.RunBacktest(p, series)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, first.TotalTrades, len(first.Trades))
	assert.Equal(t, first.TotalTrades, first.WinningTrades+first.LosingTrades)
	assert.GreaterOrEqual(t, first.CompositeScore, 0.0)
	assert.LessOrEqual(t, first.CompositeScore, 100.0)
	assert.LessOrEqual(t, first.MaxDrawdown, 0.0)
	assert.NotEmpty(t, first.EquityCurve)
}

func TestRunBacktest_FinalEquityMatchesTrades(t *testing.T) {
	eng := New(DefaultConfig())
	p := DefaultParameters()
	p.Lookback = 3

	result, err := eng.RunBacktest(p, tradingSeries(t))
	require.NoError(t, err)
	require.NotZero(t, result.TotalTrades, "fixture should trade")

	sum := 0.0
	for _, tr := range result.Trades {
		require.True(t, tr.Closed())
		require.NotNil(t, tr.ExitIndex)
		assert.Greater(t, *tr.ExitIndex, tr.EntryIndex)
		sum += tr.ProfitLoss()
	}
	assert.InDelta(t, DefaultInitialCapital+sum, result.FinalEquity, 1e-6)
}

func TestRunBacktest_FlatSeries(t *testing.T) {
	prices := make([]float64, 100)
	for i := range prices {
		prices[i] = 250
	}
	series := PriceSeries{Start: time.Unix(0, 0).UTC(), Period: 4 * time.Hour, Prices: prices}

	result, err := New(DefaultConfig()).RunBacktest(DefaultParameters(), series)
	require.NoError(t, err)
	assert.Zero(t, result.TotalTrades)
	assert.Zero(t, result.CompositeScore)
	assert.Len(t, result.EquityCurve, 10)
}

func TestRunBacktest_Rejects(t *testing.T) {
	eng := New(DefaultConfig())
	series := PriceSeries{Start: time.Unix(0, 0), Period: time.Hour, Prices: []float64{1, 2, 3}}

	bad := DefaultParameters()
	bad.Lookback = 0
	_, err := eng.RunBacktest(bad, series)
	assert.True(t, errors.Is(err, ErrInvalidParameters))

	series.Prices[1] = -1
	_, err = eng.RunBacktest(DefaultParameters(), series)
	assert.True(t, errors.Is(err, ErrInvalidPriceSeries))
}

func TestRun(t *testing.T) {
	eng := New(DefaultConfig())
	series := tradingSeries(t)

	_, _, _, err := eng.Run(StrategyDefinition{Kind: StrategyKindPython, Code: "def strategy(): pass"}, series)
	assert.True(t, errors.Is(err, ErrUnsupportedStrategyKind))

	result, params, issues, err := eng.Run(StrategyDefinition{Kind: StrategyKindPineScript, Code: residualMomentumScript}, series)
	require.NoError(t, err)
	assert.Empty(t, issues)
	assert.Equal(t, 30, params.Lookback)

	direct, err := eng.RunBacktest(params, series)
	require.NoError(t, err)
	assert.Equal(t, direct, result)
}

func TestSyntheticSource(t *testing.T) {
	src := NewSyntheticSource(DefaultSyntheticConfig())
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	series, err := src.Prices(context.Background(), start, start.AddDate(0, 0, 10))
	require.NoError(t, err)
	assert.Equal(t, 61, series.Len())
	assert.Equal(t, 45000.0, series.Prices[0])
	assert.Equal(t, 4*time.Hour, series.Period)
	assert.Equal(t, start.Add(8*time.Hour), series.TimeAt(2))
	require.NoError(t, series.Validate())

	again, err := src.Prices(context.Background(), start, start.AddDate(0, 0, 10))
	require.NoError(t, err)
	assert.Equal(t, series.Prices, again.Prices)

	_, err = src.Prices(context.Background(), start, start)
	assert.True(t, errors.Is(err, ErrInvalidPriceSeries))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.Prices(ctx, start, start.AddDate(0, 0, 10))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStaticSource(t *testing.T) {
	src := &StaticSource{Series: PriceSeries{Start: time.Unix(0, 0), Period: time.Minute, Prices: []float64{1, 1.1}}}
	got, err := src.Prices(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 2, got.Len())

	src.Series.Prices = []float64{0}
	_, err = src.Prices(context.Background(), time.Time{}, time.Time{})
	assert.Error(t, err)
}
