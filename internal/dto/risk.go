package dto

import "backtest-engine/internal/risk"

type SizePositionRequest struct {
	PortfolioValue float64 `json:"portfolio_value" validate:"gt=0"`
	Confidence     float64 `json:"confidence" validate:"gte=0,lte=1"`
	WinRate        float64 `json:"win_rate" validate:"gte=0,lte=1"`
	AvgWin         float64 `json:"avg_win" validate:"gte=0"`
	AvgLoss        float64 `json:"avg_loss" validate:"gte=0"`
}

type SizePositionResponse struct {
	AmountUSD float64            `json:"amount_usd"`
	Fraction  float64            `json:"fraction"`
	Oracle    *risk.OracleReport `json:"oracle,omitempty"`
}

type KellyRequest struct {
	WinRate float64 `json:"win_rate" validate:"gte=0,lte=1"`
	AvgWin  float64 `json:"avg_win" validate:"gte=0"`
	AvgLoss float64 `json:"avg_loss" validate:"gte=0"`
}
