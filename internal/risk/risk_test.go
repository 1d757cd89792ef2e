package risk

import (
	"context"
	"math"
	"testing"

	"backtest-engine/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestSizePosition(t *testing.T) {
	caps := DefaultCaps()

	tests := []struct {
		name                           string
		portfolio, confidence, winRate float64
		avgWin, avgLoss                float64
		wantAmount, wantFraction       float64
	}{
		{name: "quarter kelly clamps to max position", portfolio: 10000, confidence: 1, winRate: 0.6, avgWin: 0.03, avgLoss: 0.015, wantAmount: 500, wantFraction: 0.05},
		{name: "confidence scales below cap", portfolio: 100000, confidence: 0.3, winRate: 0.6, avgWin: 0.03, avgLoss: 0.015, wantAmount: 3000, wantFraction: 0.03},
		{name: "zero average loss fails closed", portfolio: 10000, confidence: 1, winRate: 0.9, avgWin: 0.03, avgLoss: 0, wantAmount: 0, wantFraction: 0},
		{name: "zero average win fails closed", portfolio: 10000, confidence: 1, winRate: 0.9, avgWin: 0, avgLoss: 0.01, wantAmount: 0, wantFraction: 0},
		{name: "negative edge sizes nothing", portfolio: 10000, confidence: 1, winRate: 0.2, avgWin: 0.01, avgLoss: 0.01, wantAmount: 0, wantFraction: 0},
		{name: "below minimum position", portfolio: 1000, confidence: 1, winRate: 0.6, avgWin: 0.03, avgLoss: 0.015, wantAmount: 0, wantFraction: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, fraction := SizePosition(tt.portfolio, tt.confidence, tt.winRate, tt.avgWin, tt.avgLoss, caps)
			assert.InDelta(t, tt.wantAmount, amount, 1e-9)
			assert.InDelta(t, tt.wantFraction, fraction, 1e-9)
		})
	}
}

func TestSizePosition_FractionWithinCaps(t *testing.T) {
	caps := Caps{MaxPositionPct: 0.08, MinPositionUSD: 0, KellyMultiplier: 0.25}
	for _, conf := range []float64{-0.5, 0, 0.25, 0.7, 1} {
		for _, wr := range []float64{0, 0.1, 0.5, 0.75, 1} {
			for _, loss := range []float64{0, 0.005, 0.02, 0.1} {
				_, fraction := SizePosition(50000, conf, wr, 0.02, loss, caps)
				assert.GreaterOrEqual(t, fraction, 0.0)
				assert.LessOrEqual(t, fraction, caps.MaxPositionPct)
			}
		}
	}
}

func TestSizePosition_RoundingStaysUnderCap(t *testing.T) {
	caps := Caps{MaxPositionPct: 0.03335, MinPositionUSD: 0, KellyMultiplier: 0.25}

	amount, fraction := SizePosition(100000, 1, 0.6, 0.03, 0.015, caps)
	assert.LessOrEqual(t, fraction, caps.MaxPositionPct)
	assert.Equal(t, 0.03335, fraction)
	assert.Equal(t, 3335.0, amount)

	amount, fraction = SizePosition(100000, 0.123456, 0.6, 0.03, 0.015, DefaultCaps())
	assert.Equal(t, 0.0123, fraction)
	assert.Equal(t, 1230.0, amount, "amount follows the reported fraction")
}

func TestKelly(t *testing.T) {
	got := Kelly(0.6, 0.03, 0.015)
	assert.True(t, got.Valid)
	assert.Equal(t, 0.4, got.FullKelly)
	assert.Equal(t, 0.2, got.HalfKelly)
	assert.Equal(t, 0.1, got.QuarterKelly)
	assert.Equal(t, 2.0, got.WinLossRatio)

	assert.False(t, Kelly(0.6, 0.03, 0).Valid)
}

func excellentCandidate() Candidate {
	return Candidate{
		Source:    "0xabc",
		Symbol:    "PEPE",
		Action:    "BUY",
		AmountUSD: 50000,
		Stats:     PerformanceStats{TotalTrades: 45, WinRate: 0.73, ROI30d: 0.38},
	}
}

func TestEvaluate(t *testing.T) {
	th := DefaultThresholds()

	tests := []struct {
		name       string
		candidate  func() Candidate
		daily      DailyState
		portfolio  float64
		wantKind   DecisionKind
		wantReason string
	}{
		{
			name:       "approved and capped",
			candidate:  excellentCandidate,
			portfolio:  10000,
			wantKind:   DecisionApprove,
			wantReason: ReasonPassed,
		},
		{
			name: "small trade filtered regardless of stats",
			candidate: func() Candidate {
				c := excellentCandidate()
				c.AmountUSD = 5000
				c.Stats = PerformanceStats{TotalTrades: 500, WinRate: 0.99, ROI30d: 3}
				return c
			},
			portfolio:  10000,
			wantKind:   DecisionFilter,
			wantReason: "trade size",
		},
		{
			name: "trade count checked before win rate",
			candidate: func() Candidate {
				c := excellentCandidate()
				c.Stats.TotalTrades = 5
				c.Stats.WinRate = 0.1
				return c
			},
			portfolio:  10000,
			wantKind:   DecisionFilter,
			wantReason: "trades (5)",
		},
		{
			name: "win rate",
			candidate: func() Candidate {
				c := excellentCandidate()
				c.Stats.WinRate = 0.5
				return c
			},
			portfolio:  10000,
			wantKind:   DecisionFilter,
			wantReason: "win rate",
		},
		{
			name: "roi",
			candidate: func() Candidate {
				c := excellentCandidate()
				c.Stats.ROI30d = 0.1
				return c
			},
			portfolio:  10000,
			wantKind:   DecisionFilter,
			wantReason: "ROI 30d",
		},
		{
			name: "confidence",
			candidate: func() Candidate {
				c := excellentCandidate()
				c.Stats = PerformanceStats{TotalTrades: 10, WinRate: 0.55, ROI30d: 0.15}
				return c
			},
			portfolio:  10000,
			wantKind:   DecisionFilter,
			wantReason: "confidence (0.48)",
		},
		{
			name:       "position too small for portfolio",
			candidate:  excellentCandidate,
			portfolio:  1000,
			wantKind:   DecisionFilter,
			wantReason: ReasonPositionTooSmall,
		},
		{
			name: "negative kelly sizes to nothing",
			candidate: func() Candidate {
				c := excellentCandidate()
				c.Stats.AvgWin = ptr(0.001)
				c.Stats.AvgLoss = ptr(0.05)
				return c
			},
			portfolio:  10000,
			wantKind:   DecisionFilter,
			wantReason: ReasonPositionTooSmall,
		},
		{
			name: "drawdown halts before filters",
			candidate: func() Candidate {
				c := excellentCandidate()
				c.AmountUSD = 1
				return c
			},
			daily:      DailyState{PnLPct: -0.06},
			portfolio:  10000,
			wantKind:   DecisionHalt,
			wantReason: "daily drawdown",
		},
		{
			name:       "failed executions halt",
			candidate:  excellentCandidate,
			daily:      DailyState{FailedExecutions: 3},
			portfolio:  10000,
			wantKind:   DecisionHalt,
			wantReason: "3 failed executions",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.candidate(), tt.daily, th, tt.portfolio)
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.Contains(t, got.Reason, tt.wantReason)

			if got.Kind == DecisionHalt {
				require.NotNil(t, got.Breaker)
				assert.Equal(t, StatusHalted, got.Status())
			} else {
				assert.Nil(t, got.Breaker)
			}
			if got.Kind != DecisionApprove {
				assert.Zero(t, got.AmountUSD)
				assert.Zero(t, got.Fraction)
			}
		})
	}
}

func TestEvaluate_ApprovedSizing(t *testing.T) {
	got := Evaluate(excellentCandidate(), DailyState{PnLPct: -0.01, FailedExecutions: 2}, DefaultThresholds(), 10000)
	require.Equal(t, DecisionApprove, got.Kind)
	assert.Equal(t, 0.89, got.Confidence)
	assert.Equal(t, 500.0, got.AmountUSD)
	assert.Equal(t, 0.05, got.Fraction)
	assert.Equal(t, StatusSent, got.Status())
}

func TestCheckBreaker(t *testing.T) {
	th := DefaultThresholds()
	assert.Nil(t, CheckBreaker(DailyState{PnLPct: -0.05, FailedExecutions: 2}, th), "exactly at the floor does not trip")

	event := CheckBreaker(DailyState{PnLPct: -0.08, FailedExecutions: 5}, th)
	require.NotNil(t, event)
	assert.Equal(t, BreakerDailyDrawdown, event.Kind, "drawdown reported first")
	assert.Equal(t, -0.08, event.Actual)

	event = CheckBreaker(DailyState{FailedExecutions: 4}, th)
	require.NotNil(t, event)
	assert.Equal(t, BreakerFailedExecutions, event.Kind)
	assert.Equal(t, 3.0, event.Threshold)
}

type fakeOracle struct {
	value float64
	err   error
	calls int
}

func (f *fakeOracle) SuggestKelly(_ context.Context, _, _, _ float64) (float64, error) {
	f.calls++
	return f.value, f.err
}

func TestOracleCheck(t *testing.T) {
	ctx := context.Background()
	log := logger.NewNop()

	t.Run("agreement", func(t *testing.T) {
		check := NewOracleCheck(&fakeOracle{value: 0.405}, 0.01, log)
		report := check.Verify(ctx, 0.6, 0.03, 0.015)
		assert.InDelta(t, 0.4, report.Local, 1e-12)
		require.NotNil(t, report.Suggested)
		assert.True(t, report.Agrees)
	})

	t.Run("disagreement keeps local", func(t *testing.T) {
		check := NewOracleCheck(&fakeOracle{value: 0.9}, 0.01, log)
		report := check.Verify(ctx, 0.6, 0.03, 0.015)
		assert.InDelta(t, 0.4, report.Local, 1e-12)
		assert.False(t, report.Agrees)
	})

	t.Run("failure is soft", func(t *testing.T) {
		check := NewOracleCheck(&fakeOracle{err: ErrOracleUnavailable}, 0, log)
		report := check.Verify(ctx, 0.6, 0.03, 0.015)
		assert.InDelta(t, 0.4, report.Local, 1e-12)
		assert.Nil(t, report.Suggested)
	})

	t.Run("non finite suggestion treated as malformed", func(t *testing.T) {
		check := NewOracleCheck(&fakeOracle{value: math.NaN()}, 0, log)
		report := check.Verify(ctx, 0.6, 0.03, 0.015)
		assert.Nil(t, report.Suggested)
	})

	t.Run("undefined ratio skips the oracle", func(t *testing.T) {
		oracle := &fakeOracle{value: 1}
		report := NewOracleCheck(oracle, 0, log).Verify(ctx, 0.6, 0.03, 0)
		assert.Zero(t, report.Local)
		assert.Zero(t, oracle.calls)
	})

	t.Run("nil oracle", func(t *testing.T) {
		report := NewOracleCheck(nil, 0, log).Verify(ctx, 0.6, 0.03, 0.015)
		assert.InDelta(t, 0.4, report.Local, 1e-12)
		assert.Nil(t, report.Suggested)
	})
}
