package engine

import (
	"iter"

	"backtest-engine/internal/quant"
)

// Signal is the discrete decision emitted for one price sample.
type Signal string

const (
	SignalLong  Signal = "LONG"
	SignalShort Signal = "SHORT"
	SignalClose Signal = "CLOSE"
	SignalHold  Signal = "HOLD"
)

// Direction of an open position.
type Direction string

const (
	DirectionNone  Direction = ""
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// fallbackVolatility stands in when the window is too short for a sample
// standard deviation.
const fallbackVolatility = 0.02

// WarmUp returns the number of leading samples that are always HOLD.
func WarmUp(p StrategyParameters) int {
	return p.Lookback + 2
}

// residualScore is the volatility-normalised residual momentum at index i.
// It reads only prices[i-lookback .. i].
func residualScore(prices []float64, i, lookback int, changes []float64) float64 {
	changes = changes[:0]
	for j := i - lookback + 1; j <= i; j++ {
		changes = append(changes, prices[j]-prices[j-1])
	}

	priceChange := prices[i] - prices[i-1]
	trend := quant.Mean(changes)
	residual := priceChange - trend

	vol := fallbackVolatility
	if len(changes) > 1 {
		vol = quant.StdDev(changes)
	}
	if vol <= 0 {
		return 0
	}
	return residual / (vol * prices[i])
}

// Signals lazily yields one signal per price, in index order. It runs the
// residual-momentum state machine over a single logical position and never
// looks ahead. Stopping the iteration early is safe.
func Signals(prices []float64, p StrategyParameters) iter.Seq2[int, Signal] {
	return func(yield func(int, Signal) bool) {
		position := DirectionNone
		warmUp := WarmUp(p)
		changes := make([]float64, 0, max(p.Lookback, 0))

		for i := range prices {
			signal := SignalHold

			if i >= warmUp {
				score := residualScore(prices, i, p.Lookback, changes)

				switch position {
				case DirectionNone:
					if score > p.EntryThreshold {
						signal = SignalLong
						position = DirectionLong
					} else if score < -p.EntryThreshold {
						signal = SignalShort
						position = DirectionShort
					}
				case DirectionLong:
					if score < p.ExitThreshold {
						signal = SignalClose
						position = DirectionNone
					}
				case DirectionShort:
					if score > -p.ExitThreshold {
						signal = SignalClose
						position = DirectionNone
					}
				}
			}

			if !yield(i, signal) {
				return
			}
		}
	}
}

// GenerateSignals collects Signals into a slice aligned with prices.
func GenerateSignals(prices []float64, p StrategyParameters) []Signal {
	out := make([]Signal, 0, len(prices))
	for _, s := range Signals(prices, p) {
		out = append(out, s)
	}
	return out
}
