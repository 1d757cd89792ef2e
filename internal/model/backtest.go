package model

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type BacktestStatus string

const (
	BacktestQueued    BacktestStatus = "queued"
	BacktestRunning   BacktestStatus = "running"
	BacktestCompleted BacktestStatus = "completed"
	BacktestFailed    BacktestStatus = "failed"
)

// Backtest is one run of a strategy over a date range. Metric columns are
// zero until the run completes.
type Backtest struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	StrategyID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"strategy_id"`
	Status         BacktestStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	StartDate      time.Time      `gorm:"not null" json:"start_date"`
	EndDate        time.Time      `gorm:"not null" json:"end_date"`
	InitialCapital float64        `gorm:"type:numeric(18,2);not null" json:"initial_capital"`
	Parameters     datatypes.JSON `gorm:"type:jsonb" json:"parameters"`

	TotalTrades    int     `json:"total_trades"`
	WinningTrades  int     `json:"winning_trades"`
	LosingTrades   int     `json:"losing_trades"`
	WinRate        float64 `json:"win_rate"`
	ProfitFactor   float64 `json:"profit_factor"`
	SharpeRatio    float64 `json:"sharpe_ratio"`
	SortinoRatio   float64 `json:"sortino_ratio"`
	MaxDrawdown    float64 `json:"max_drawdown"`
	AvgTradePnL    float64 `gorm:"column:avg_trade_pnl" json:"avg_trade_pnl"`
	TotalReturn    float64 `json:"total_return"`
	FinalEquity    float64 `json:"final_equity"`
	CompositeScore float64 `gorm:"index" json:"composite_score"`

	Trades      datatypes.JSON `gorm:"type:jsonb" json:"trades,omitempty"`
	EquityCurve datatypes.JSON `gorm:"type:jsonb" json:"equity_curve,omitempty"`

	ErrorMessage sql.NullString `gorm:"type:text" json:"-"`
	StartedAt    sql.NullTime   `json:"-"`
	CompletedAt  sql.NullTime   `gorm:"index" json:"-"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`

	Strategy *Strategy `gorm:"foreignKey:StrategyID" json:"strategy,omitempty"`
}

func (Backtest) TableName() string {
	return "backtests"
}

func (b *Backtest) BeforeCreate(_ *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
