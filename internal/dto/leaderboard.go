package dto

import "github.com/google/uuid"

type LeaderboardRequest struct {
	Timeframe string `query:"timeframe" validate:"omitempty,oneof=24h 7d 30d 90d all_time"`
	Pagination
}

type LeaderboardItem struct {
	Rank           int       `json:"rank"`
	PreviousRank   *int      `json:"previous_rank,omitempty"`
	StrategyID     uuid.UUID `json:"strategy_id"`
	StrategyName   string    `json:"strategy_name"`
	BacktestID     uuid.UUID `json:"backtest_id"`
	CompositeScore float64   `json:"composite_score"`
	SharpeRatio    float64   `json:"sharpe_ratio"`
	WinRate        float64   `json:"win_rate"`
	TotalReturn    float64   `json:"total_return"`
	MaxDrawdown    float64   `json:"max_drawdown"`
}

type LeaderboardResponse struct {
	Timeframe string            `json:"timeframe"`
	Total     int               `json:"total"`
	Items     []LeaderboardItem `json:"items"`
}
