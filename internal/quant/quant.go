// Package quant holds the side-effect-free math shared by the backtest engine
// and the live risk pipeline. Kelly and confidence formulas live here only.
package quant

import (
	"math"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

const (
	ConfidenceTargetWinRate = 0.75
	ConfidenceTargetROI30d  = 0.50
	ConfidenceTargetTrades  = 30.0

	confidenceWeightWinRate = 0.4
	confidenceWeightROI     = 0.4
	confidenceWeightTrades  = 0.2
)

// Mean returns the arithmetic mean, 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

// StdDev returns the sample (n-1) standard deviation, 0 when fewer than two
// samples are given.
func StdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	sd := stat.StdDev(xs, nil)
	if math.IsNaN(sd) || math.IsInf(sd, 0) {
		return 0
	}
	return sd
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Round rounds half away from zero to the given number of decimal places.
func Round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// capRatio returns value/target capped at 1. Negative inputs stay negative so a
// losing track record pulls confidence down.
func capRatio(value, target float64) float64 {
	if target <= 0 {
		return 0
	}
	return math.Min(value/target, 1.0)
}

// KellyFraction returns the full Kelly fraction f = (p(b+1)-1)/b with
// b = avgWin/avgLoss. ok is false when avgLoss or b is zero; callers must then
// size nothing.
func KellyFraction(winRate, avgWin, avgLoss float64) (f float64, ok bool) {
	if avgLoss == 0 {
		return 0, false
	}
	b := avgWin / avgLoss
	if b == 0 || math.IsNaN(b) || math.IsInf(b, 0) {
		return 0, false
	}
	return (winRate*(b+1) - 1) / b, true
}

// WinLossRatio returns avgWin/|avgLoss|, 0 when avgLoss is zero.
func WinLossRatio(avgWin, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 0
	}
	return avgWin / math.Abs(avgLoss)
}

// Confidence blends trailing performance into a score of at most 1:
// 0.4·winRate/0.75 + 0.4·roi30d/0.50 + 0.2·trades/30, each term capped at 1.
func Confidence(winRate, roi30d float64, totalTrades int) float64 {
	c := capRatio(winRate, ConfidenceTargetWinRate)*confidenceWeightWinRate +
		capRatio(roi30d, ConfidenceTargetROI30d)*confidenceWeightROI +
		capRatio(float64(totalTrades), ConfidenceTargetTrades)*confidenceWeightTrades
	return Round(c, 2)
}
