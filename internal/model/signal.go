package model

import (
	"database/sql"
	"time"

	"gorm.io/datatypes"
)

// CandidateSignal is a persisted evaluation of a candidate trade. Status is
// one of sent, filtered, halted, executed or failed.
type CandidateSignal struct {
	ID                   uint           `gorm:"primaryKey" json:"id"`
	Source               string         `gorm:"type:varchar(100);index" json:"source"`
	Label                string         `gorm:"type:varchar(100)" json:"label"`
	Asset                string         `gorm:"type:varchar(100);index" json:"asset"`
	Symbol               string         `gorm:"type:varchar(20)" json:"symbol"`
	Chain                string         `gorm:"type:varchar(20)" json:"chain"`
	Action               string         `gorm:"type:varchar(10)" json:"action"`
	AmountUSD            float64        `gorm:"column:amount_usd" json:"amount_usd"`
	PriceUSD             float64        `gorm:"column:price_usd" json:"price_usd"`
	TotalTrades          int            `json:"total_trades"`
	WinRate              float64        `json:"win_rate"`
	ROI30d               float64        `gorm:"column:roi_30d" json:"roi_30d"`
	ROI7d                float64        `gorm:"column:roi_7d" json:"roi_7d"`
	ConfidenceScore      float64        `json:"confidence_score"`
	SuggestedPositionUSD float64        `gorm:"column:suggested_position_usd" json:"suggested_position_usd"`
	KellyFraction        float64        `json:"kelly_fraction"`
	Status               string         `gorm:"type:varchar(20);not null;index" json:"status"`
	Notes                string         `gorm:"type:text" json:"notes"`
	RawData              datatypes.JSON `gorm:"type:jsonb" json:"-"`
	ExecutedAt           sql.NullTime   `json:"-"`
	CreatedAt            time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
}

func (CandidateSignal) TableName() string {
	return "candidate_signals"
}

type CircuitBreakerEvent struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	Kind           string       `gorm:"type:varchar(50);not null" json:"kind"`
	Reason         string       `gorm:"type:text;not null" json:"reason"`
	ThresholdValue float64      `json:"threshold_value"`
	ActualValue    float64      `json:"actual_value"`
	TriggeredAt    time.Time    `gorm:"autoCreateTime" json:"triggered_at"`
	Resolved       bool         `gorm:"default:false" json:"resolved"`
	ResetAt        sql.NullTime `json:"-"`
}

func (CircuitBreakerEvent) TableName() string {
	return "circuit_breaker_log"
}

// DailyMetric is the daily portfolio aggregate feeding the circuit breaker.
// DailyPnLPct is a fraction (-0.05 is -5%).
type DailyMetric struct {
	Date             time.Time `gorm:"type:date;primaryKey" json:"date"`
	StartBalanceUSD  float64   `gorm:"column:start_balance_usd" json:"start_balance_usd"`
	EndBalanceUSD    float64   `gorm:"column:end_balance_usd" json:"end_balance_usd"`
	DailyPnLUSD      float64   `gorm:"column:daily_pnl_usd" json:"daily_pnl_usd"`
	DailyPnLPct      float64   `gorm:"column:daily_pnl_pct" json:"daily_pnl_pct"`
	SignalsGenerated int       `json:"signals_generated"`
	SignalsFiltered  int       `json:"signals_filtered"`
	SignalsSent      int       `json:"signals_sent"`
	TradesExecuted   int       `json:"trades_executed"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (DailyMetric) TableName() string {
	return "daily_metrics"
}
