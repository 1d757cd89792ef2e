package dto

import (
	"time"

	"backtest-engine/internal/engine"

	"github.com/google/uuid"
)

// CreateBacktestRequest enqueues a backtest of a stored strategy.
type CreateBacktestRequest struct {
	StrategyID     uuid.UUID `json:"strategy_id" validate:"required"`
	StartDate      time.Time `json:"start_date" validate:"required"`
	EndDate        time.Time `json:"end_date" validate:"required,gtfield=StartDate"`
	InitialCapital float64   `json:"initial_capital" validate:"omitempty,gt=0"`
}

// RunBacktestRequest runs inline code synchronously over a synthetic range.
type RunBacktestRequest struct {
	Kind           string    `json:"kind" validate:"required,oneof=pine_script python"`
	Code           string    `json:"code"`
	StartDate      time.Time `json:"start_date" validate:"required"`
	EndDate        time.Time `json:"end_date" validate:"required,gtfield=StartDate"`
	InitialCapital float64   `json:"initial_capital" validate:"omitempty,gt=0"`
	Seed           *int64    `json:"seed"`
}

// RunBatchRequest runs several independent inline backtests at once.
type RunBatchRequest struct {
	Runs []RunBacktestRequest `json:"runs" validate:"required,min=1,max=20,dive"`
}

type BacktestResponse struct {
	ID           uuid.UUID                  `json:"id"`
	StrategyID   uuid.UUID                  `json:"strategy_id"`
	Status       string                     `json:"status"`
	StartDate    time.Time                  `json:"start_date"`
	EndDate      time.Time                  `json:"end_date"`
	Parameters   *engine.StrategyParameters `json:"parameters,omitempty"`
	Result       *engine.BacktestResult     `json:"result,omitempty"`
	ErrorMessage string                     `json:"error_message,omitempty"`
	StartedAt    *time.Time                 `json:"started_at,omitempty"`
	CompletedAt  *time.Time                 `json:"completed_at,omitempty"`
	CreatedAt    time.Time                  `json:"created_at"`
}

type RunBacktestResponse struct {
	Parameters engine.StrategyParameters `json:"parameters"`
	Issues     []string                  `json:"issues"`
	Result     engine.BacktestResult     `json:"result"`
}
