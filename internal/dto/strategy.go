package dto

import (
	"time"

	"backtest-engine/internal/engine"

	"github.com/google/uuid"
)

type CreateStrategyRequest struct {
	Name      string `json:"name" validate:"required,max=200"`
	Kind      string `json:"kind" validate:"required,oneof=pine_script python"`
	Asset     string `json:"asset" validate:"omitempty,max=50"`
	Timeframe string `json:"timeframe" validate:"omitempty,max=10"`
	Code      string `json:"code" validate:"required"`
}

type ValidateStrategyRequest struct {
	Kind string `json:"kind" validate:"required,oneof=pine_script python"`
	Code string `json:"code" validate:"required"`
}

// StrategyValidation reports whether code can be accepted and what was
// extracted from it.
type StrategyValidation struct {
	Valid      bool                      `json:"valid"`
	Errors     []string                  `json:"errors"`
	Warnings   []string                  `json:"warnings"`
	Parameters engine.StrategyParameters `json:"parameters"`
	CodeHash   string                    `json:"code_hash"`
}

type StrategyResponse struct {
	ID         uuid.UUID                 `json:"id"`
	Name       string                    `json:"name"`
	Kind       string                    `json:"kind"`
	Asset      string                    `json:"asset"`
	Timeframe  string                    `json:"timeframe"`
	CodeHash   string                    `json:"code_hash"`
	Parameters engine.StrategyParameters `json:"parameters"`
	Warnings   []string                  `json:"warnings"`
	CreatedAt  time.Time                 `json:"created_at"`
}
