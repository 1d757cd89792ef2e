package engine

import (
	"math"

	"backtest-engine/internal/quant"
)

// DefaultAnnualization is the trading-days factor applied to Sharpe and Sortino.
const DefaultAnnualization = 252.0

// BacktestResult aggregates one simulation. WinRate and TotalReturn are
// percentages; MaxDrawdown is a non-positive percentage.
type BacktestResult struct {
	TotalTrades    int           `json:"total_trades"`
	WinningTrades  int           `json:"winning_trades"`
	LosingTrades   int           `json:"losing_trades"`
	WinRate        float64       `json:"win_rate"`
	GrossProfit    float64       `json:"gross_profit"`
	GrossLoss      float64       `json:"gross_loss"`
	ProfitFactor   float64       `json:"profit_factor"`
	SharpeRatio    float64       `json:"sharpe_ratio"`
	SortinoRatio   float64       `json:"sortino_ratio"`
	MaxDrawdown    float64       `json:"max_drawdown"`
	AvgTradePnL    float64       `json:"avg_trade_pnl"`
	TotalReturn    float64       `json:"total_return"`
	FinalEquity    float64       `json:"final_equity"`
	CompositeScore float64       `json:"composite_score"`
	EquityCurve    []EquityPoint `json:"equity_curve"`
	Trades         []Trade       `json:"trades"`
}

// Summarize reduces trades and the equity curve into a BacktestResult. With no
// trades every metric is zero and only the curve is carried through.
func Summarize(trades []Trade, curve []EquityPoint, initialCapital, annualization float64) BacktestResult {
	result := BacktestResult{
		EquityCurve: curve,
		Trades:      trades,
	}
	if len(trades) == 0 {
		if result.Trades == nil {
			result.Trades = []Trade{}
		}
		return result
	}
	if annualization <= 0 {
		annualization = DefaultAnnualization
	}

	var totalPnL float64
	returns := make([]float64, 0, len(trades))
	for _, t := range trades {
		pnl := t.ProfitLoss()
		totalPnL += pnl
		if pnl > 0 {
			result.WinningTrades++
			result.GrossProfit += pnl
		} else {
			result.GrossLoss += math.Abs(pnl)
		}
		if t.PnLPct != nil {
			returns = append(returns, *t.PnLPct)
		}
	}

	result.TotalTrades = len(trades)
	result.LosingTrades = result.TotalTrades - result.WinningTrades
	result.WinRate = float64(result.WinningTrades) / float64(result.TotalTrades) * 100
	if result.GrossLoss > 0 {
		result.ProfitFactor = result.GrossProfit / result.GrossLoss
	}
	result.AvgTradePnL = totalPnL / float64(result.TotalTrades)

	result.FinalEquity = initialCapital + totalPnL
	if initialCapital > 0 {
		result.TotalReturn = (result.FinalEquity - initialCapital) / initialCapital * 100
	}

	result.SharpeRatio, result.SortinoRatio = riskAdjustedReturns(returns, annualization)
	result.MaxDrawdown = MaxDrawdown(curve, initialCapital)
	result.CompositeScore = CompositeScore(result.SharpeRatio, result.ProfitFactor, result.WinRate, result.MaxDrawdown)
	return result
}

// riskAdjustedReturns computes annualised Sharpe and Sortino over per-trade
// percentage returns. Both are 0 with fewer than two returns or zero variance;
// the downside deviation falls back to 1 when fewer than two losses exist.
func riskAdjustedReturns(returns []float64, annualization float64) (sharpe, sortino float64) {
	if len(returns) < 2 {
		return 0, 0
	}
	scale := math.Sqrt(annualization)
	avg := quant.Mean(returns)

	if sd := quant.StdDev(returns); sd > 0 {
		sharpe = avg / sd * scale
	}

	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	downsideSD := 1.0
	if len(downside) > 1 {
		downsideSD = quant.StdDev(downside)
	}
	if downsideSD > 0 {
		sortino = avg / downsideSD * scale
	}
	return sharpe, sortino
}

// MaxDrawdown returns the deepest fall from the running peak as a
// non-positive percentage. The peak starts at the initial capital.
func MaxDrawdown(curve []EquityPoint, initialCapital float64) float64 {
	peak := initialCapital
	maxDD := 0.0
	for _, point := range curve {
		if point.Equity > peak {
			peak = point.Equity
		}
		if peak <= 0 {
			continue
		}
		dd := (point.Equity - peak) / peak * 100
		maxDD = math.Min(maxDD, dd)
	}
	return maxDD
}

// CompositeScore is the bounded ranking blend:
// 0.4·min(sharpe,5) + 0.3·min(pf,3) + 0.2·winRate − 0.1·|maxDD|, clamped to
// [0,100] and rounded to two decimals.
func CompositeScore(sharpe, profitFactor, winRate, maxDrawdown float64) float64 {
	score := math.Min(sharpe, 5)*0.4 +
		math.Min(profitFactor, 3)*0.3 +
		winRate*0.2 -
		math.Abs(maxDrawdown)*0.1
	return quant.Round(quant.Clamp(score, 0, 100), 2)
}
