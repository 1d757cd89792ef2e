package dto

import "backtest-engine/internal/risk"

type EvaluateSignalRequest struct {
	Source         string   `json:"source" validate:"required,max=100"`
	Label          string   `json:"label" validate:"omitempty,max=100"`
	Asset          string   `json:"asset" validate:"required,max=100"`
	Symbol         string   `json:"symbol" validate:"required,max=20"`
	Chain          string   `json:"chain" validate:"omitempty,max=20"`
	Action         string   `json:"action" validate:"omitempty,oneof=BUY SELL"`
	AmountUSD      float64  `json:"amount_usd" validate:"gte=0"`
	PriceUSD       float64  `json:"price_usd" validate:"gte=0"`
	TotalTrades    int      `json:"total_trades" validate:"gte=0"`
	WinRate        float64  `json:"win_rate" validate:"gte=0,lte=1"`
	ROI30d         float64  `json:"roi_30d"`
	ROI7d          float64  `json:"roi_7d"`
	AvgWin         *float64 `json:"avg_win" validate:"omitempty,gte=0"`
	AvgLoss        *float64 `json:"avg_loss" validate:"omitempty,gte=0"`
	PortfolioValue float64  `json:"portfolio_value" validate:"omitempty,gt=0"`
}

func (r EvaluateSignalRequest) ToCandidate() risk.Candidate {
	action := r.Action
	if action == "" {
		action = "BUY"
	}
	chain := r.Chain
	if chain == "" {
		chain = "ethereum"
	}
	return risk.Candidate{
		Source:    r.Source,
		Label:     r.Label,
		Asset:     r.Asset,
		Symbol:    r.Symbol,
		Chain:     chain,
		Action:    action,
		AmountUSD: r.AmountUSD,
		PriceUSD:  r.PriceUSD,
		Stats: risk.PerformanceStats{
			TotalTrades: r.TotalTrades,
			WinRate:     r.WinRate,
			ROI30d:      r.ROI30d,
			ROI7d:       r.ROI7d,
			AvgWin:      r.AvgWin,
			AvgLoss:     r.AvgLoss,
		},
	}
}

type EvaluateSignalResponse struct {
	SignalID uint          `json:"signal_id"`
	Status   string        `json:"status"`
	Decision risk.Decision `json:"decision"`
}

type UpdateSignalStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=executed failed"`
}

type SignalStats struct {
	TotalSignals     int64   `json:"total_signals"`
	Sent             int64   `json:"sent"`
	Executed         int64   `json:"executed"`
	Filtered         int64   `json:"filtered"`
	Halted           int64   `json:"halted"`
	Failed           int64   `json:"failed"`
	TodaySignals     int64   `json:"today_signals"`
	OpenExposureUSD  float64 `json:"open_exposure_usd"`
	BreakerEventsDay int64   `json:"breaker_events_today"`
}
