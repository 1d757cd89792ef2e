package risk

import (
	"fmt"
	"time"

	"backtest-engine/internal/quant"
)

// PerformanceStats is the trailing track record behind a candidate. AvgWin and
// AvgLoss are optional; Thresholds defaults stand in when they are nil.
type PerformanceStats struct {
	TotalTrades int      `json:"total_trades"`
	WinRate     float64  `json:"win_rate"`
	ROI30d      float64  `json:"roi_30d"`
	ROI7d       float64  `json:"roi_7d"`
	AvgWin      *float64 `json:"avg_win,omitempty"`
	AvgLoss     *float64 `json:"avg_loss,omitempty"`
}

// Candidate is a proposed trade to be filtered and sized.
type Candidate struct {
	Source    string           `json:"source"`
	Label     string           `json:"label"`
	Asset     string           `json:"asset"`
	Symbol    string           `json:"symbol"`
	Chain     string           `json:"chain"`
	Action    string           `json:"action"`
	AmountUSD float64          `json:"amount_usd"`
	PriceUSD  float64          `json:"price_usd"`
	Stats     PerformanceStats `json:"stats"`
}

// DailyState is today's aggregate as owned by the persistence layer.
type DailyState struct {
	Date             time.Time `json:"date"`
	PnLPct           float64   `json:"pnl_pct"`
	FailedExecutions int       `json:"failed_executions"`
}

// Thresholds are the named limits read once per evaluation. Fractions are
// expressed as 0..1 (MaxDailyDrawdownPct -0.05 means -5%).
type Thresholds struct {
	MinTradeSizeUSD     float64 `json:"min_trade_size_usd" mapstructure:"min_trade_size_usd"`
	MinTrades           int     `json:"min_trades" mapstructure:"min_trades"`
	MinWinRate          float64 `json:"min_win_rate" mapstructure:"min_win_rate"`
	MinROI30d           float64 `json:"min_roi_30d" mapstructure:"min_roi_30d"`
	MinConfidence       float64 `json:"min_confidence" mapstructure:"min_confidence"`
	MaxPositionPct      float64 `json:"max_position_pct" mapstructure:"max_position_pct"`
	MinPositionUSD      float64 `json:"min_position_usd" mapstructure:"min_position_usd"`
	MaxDailyDrawdownPct float64 `json:"max_daily_drawdown_pct" mapstructure:"max_daily_drawdown_pct"`
	MaxDailyFailures    int     `json:"max_daily_failures" mapstructure:"max_daily_failures"`
	KellyMultiplier     float64 `json:"kelly_multiplier" mapstructure:"kelly_multiplier"`
	DefaultAvgWin       float64 `json:"default_avg_win" mapstructure:"default_avg_win"`
	DefaultAvgLoss      float64 `json:"default_avg_loss" mapstructure:"default_avg_loss"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		MinTradeSizeUSD:     10000,
		MinTrades:           10,
		MinWinRate:          0.55,
		MinROI30d:           0.15,
		MinConfidence:       0.7,
		MaxPositionPct:      DefaultMaxPositionPct,
		MinPositionUSD:      DefaultMinPositionUSD,
		MaxDailyDrawdownPct: -0.05,
		MaxDailyFailures:    3,
		KellyMultiplier:     DefaultKellyMultiplier,
		DefaultAvgWin:       0.02,
		DefaultAvgLoss:      0.01,
	}
}

// Caps returns the sizing caps carried by th.
func (th Thresholds) Caps() Caps {
	return Caps{
		MaxPositionPct:  th.MaxPositionPct,
		MinPositionUSD:  th.MinPositionUSD,
		KellyMultiplier: th.KellyMultiplier,
	}
}

type DecisionKind string

const (
	DecisionApprove DecisionKind = "approve"
	DecisionFilter  DecisionKind = "filter"
	DecisionHalt    DecisionKind = "halt"
)

// Persisted signal statuses.
const (
	StatusSent     = "sent"
	StatusFiltered = "filtered"
	StatusHalted   = "halted"
	StatusExecuted = "executed"
	StatusFailed   = "failed"
)

const (
	ReasonPassed            = "PASSED"
	ReasonPositionTooSmall  = "position too small"
	BreakerDailyDrawdown    = "daily_drawdown"
	BreakerFailedExecutions = "failed_executions"
)

// BreakerEvent records why trading was halted. It is immutable once logged.
type BreakerEvent struct {
	Kind      string  `json:"kind"`
	Reason    string  `json:"reason"`
	Threshold float64 `json:"threshold"`
	Actual    float64 `json:"actual"`
}

// Decision is the outcome of Evaluate. Confidence is always populated; amount
// and fraction only on approval.
type Decision struct {
	Kind       DecisionKind  `json:"kind"`
	Reason     string        `json:"reason"`
	Confidence float64       `json:"confidence"`
	AmountUSD  float64       `json:"amount_usd"`
	Fraction   float64       `json:"fraction"`
	Breaker    *BreakerEvent `json:"breaker,omitempty"`
}

// Status maps the decision onto the persisted signal status.
func (d Decision) Status() string {
	switch d.Kind {
	case DecisionApprove:
		return StatusSent
	case DecisionHalt:
		return StatusHalted
	default:
		return StatusFiltered
	}
}

// CheckBreaker returns the tripped breaker, or nil when trading may continue.
// The drawdown floor is checked before the failure count.
func CheckBreaker(daily DailyState, th Thresholds) *BreakerEvent {
	if daily.PnLPct < th.MaxDailyDrawdownPct {
		return &BreakerEvent{
			Kind:      BreakerDailyDrawdown,
			Reason:    fmt.Sprintf("daily drawdown %.2f%% exceeds limit %.2f%%", daily.PnLPct*100, th.MaxDailyDrawdownPct*100),
			Threshold: th.MaxDailyDrawdownPct,
			Actual:    daily.PnLPct,
		}
	}
	maxFailures := th.MaxDailyFailures
	if maxFailures <= 0 {
		maxFailures = 3
	}
	if daily.FailedExecutions >= maxFailures {
		return &BreakerEvent{
			Kind:      BreakerFailedExecutions,
			Reason:    fmt.Sprintf("%d failed executions today", daily.FailedExecutions),
			Threshold: float64(maxFailures),
			Actual:    float64(daily.FailedExecutions),
		}
	}
	return nil
}

// filterReason returns the first failing eligibility check, or "" when the
// candidate passes all of them.
func filterReason(c Candidate, confidence float64, th Thresholds) string {
	switch {
	case c.AmountUSD < th.MinTradeSizeUSD:
		return fmt.Sprintf("trade size $%.2f < $%.2f", c.AmountUSD, th.MinTradeSizeUSD)
	case c.Stats.TotalTrades < th.MinTrades:
		return fmt.Sprintf("trades (%d) < %d", c.Stats.TotalTrades, th.MinTrades)
	case c.Stats.WinRate < th.MinWinRate:
		return fmt.Sprintf("win rate (%.4g) < %.4g", c.Stats.WinRate, th.MinWinRate)
	case c.Stats.ROI30d < th.MinROI30d:
		return fmt.Sprintf("ROI 30d (%.4g) < %.4g", c.Stats.ROI30d, th.MinROI30d)
	case confidence < th.MinConfidence:
		return fmt.Sprintf("confidence (%.2f) < %.2f", confidence, th.MinConfidence)
	}
	return ""
}

// Evaluate decides whether a candidate is approved, filtered or halted. The
// breaker is checked before candidate quality; filters short-circuit on the
// first failure; an approved candidate that sizes to nothing is filtered.
func Evaluate(c Candidate, daily DailyState, th Thresholds, portfolioValue float64) Decision {
	confidence := quant.Confidence(c.Stats.WinRate, c.Stats.ROI30d, c.Stats.TotalTrades)

	if event := CheckBreaker(daily, th); event != nil {
		return Decision{Kind: DecisionHalt, Reason: event.Reason, Confidence: confidence, Breaker: event}
	}

	if reason := filterReason(c, confidence, th); reason != "" {
		return Decision{Kind: DecisionFilter, Reason: reason, Confidence: confidence}
	}

	avgWin, avgLoss := th.DefaultAvgWin, th.DefaultAvgLoss
	if c.Stats.AvgWin != nil {
		avgWin = *c.Stats.AvgWin
	}
	if c.Stats.AvgLoss != nil {
		avgLoss = *c.Stats.AvgLoss
	}

	amount, fraction := SizePosition(portfolioValue, confidence, c.Stats.WinRate, avgWin, avgLoss, th.Caps())
	if amount == 0 {
		return Decision{Kind: DecisionFilter, Reason: ReasonPositionTooSmall, Confidence: confidence}
	}

	return Decision{
		Kind:       DecisionApprove,
		Reason:     ReasonPassed,
		Confidence: confidence,
		AmountUSD:  amount,
		Fraction:   fraction,
	}
}
