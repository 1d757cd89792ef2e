package model

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type LeaderboardEntry struct {
	ID             uint          `gorm:"primaryKey" json:"-"`
	Timeframe      string        `gorm:"type:varchar(10);not null;uniqueIndex:idx_leaderboard_tf_rank" json:"timeframe"`
	Rank           int           `gorm:"not null;uniqueIndex:idx_leaderboard_tf_rank" json:"rank"`
	PreviousRank   sql.NullInt32 `json:"-"`
	StrategyID     uuid.UUID     `gorm:"type:uuid;not null" json:"strategy_id"`
	BacktestID     uuid.UUID     `gorm:"type:uuid;not null" json:"backtest_id"`
	StrategyName   string        `gorm:"type:varchar(200)" json:"strategy_name"`
	CompositeScore float64       `json:"composite_score"`
	SharpeRatio    float64       `json:"sharpe_ratio"`
	WinRate        float64       `json:"win_rate"`
	TotalReturn    float64       `json:"total_return"`
	MaxDrawdown    float64       `json:"max_drawdown"`
	UpdatedAt      time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

func (LeaderboardEntry) TableName() string {
	return "leaderboard_entries"
}
