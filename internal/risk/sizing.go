package risk

import (
	"backtest-engine/internal/quant"
)

const (
	DefaultKellyMultiplier = 0.25
	DefaultMaxPositionPct  = 0.05
	DefaultMinPositionUSD  = 100.0
)

// Caps bound a sized position.
type Caps struct {
	MaxPositionPct  float64 `json:"max_position_pct"`
	MinPositionUSD  float64 `json:"min_position_usd"`
	KellyMultiplier float64 `json:"kelly_multiplier"`
}

func DefaultCaps() Caps {
	return Caps{
		MaxPositionPct:  DefaultMaxPositionPct,
		MinPositionUSD:  DefaultMinPositionUSD,
		KellyMultiplier: DefaultKellyMultiplier,
	}
}

// SizePosition returns the currency amount and portfolio fraction to commit.
// The Kelly fraction is scaled by the multiplier and by confidence, clamped to
// [0, MaxPositionPct], and dropped to (0, 0) when the amount falls under
// MinPositionUSD or the win/loss ratio is undefined.
func SizePosition(portfolioValue, confidence, winRate, avgWin, avgLoss float64, caps Caps) (amount, fraction float64) {
	kelly, ok := quant.KellyFraction(winRate, avgWin, avgLoss)
	if !ok {
		return 0, 0
	}

	multiplier := caps.KellyMultiplier
	if multiplier <= 0 {
		multiplier = DefaultKellyMultiplier
	}

	fraction = quant.Clamp(kelly*multiplier*confidence, 0, caps.MaxPositionPct)
	// rounding can push a clamped fraction past a cap with more than 4 decimals
	fraction = quant.Clamp(quant.Round(fraction, 4), 0, caps.MaxPositionPct)

	amount = portfolioValue * fraction
	if amount < caps.MinPositionUSD || amount <= 0 {
		return 0, 0
	}
	return quant.Round(amount, 2), fraction
}

// KellyBreakdown is the standalone calculator output.
type KellyBreakdown struct {
	FullKelly    float64 `json:"full_kelly"`
	HalfKelly    float64 `json:"half_kelly"`
	QuarterKelly float64 `json:"quarter_kelly"`
	WinLossRatio float64 `json:"win_loss_ratio"`
	Valid        bool    `json:"valid"`
}

// Kelly computes the full, half and quarter Kelly fractions. A negative edge
// is reported as is; Valid is false when the ratio is undefined.
func Kelly(winRate, avgWin, avgLoss float64) KellyBreakdown {
	full, ok := quant.KellyFraction(winRate, avgWin, avgLoss)
	if !ok {
		return KellyBreakdown{}
	}
	return KellyBreakdown{
		FullKelly:    quant.Round(full, 4),
		HalfKelly:    quant.Round(full/2, 4),
		QuarterKelly: quant.Round(full/4, 4),
		WinLossRatio: quant.Round(quant.WinLossRatio(avgWin, avgLoss), 4),
		Valid:        true,
	}
}
