package risk

import (
	"context"
	"errors"
	"math"

	"backtest-engine/internal/quant"
	"backtest-engine/pkg/logger"

	"go.uber.org/zap"
)

var (
	ErrOracleUnavailable = errors.New("kelly oracle unavailable")
	ErrOracleMalformed   = errors.New("kelly oracle returned a malformed response")
)

// KellyOracle suggests a full Kelly fraction computed elsewhere.
type KellyOracle interface {
	SuggestKelly(ctx context.Context, winRate, avgWin, avgLoss float64) (float64, error)
}

const DefaultOracleTolerance = 0.01

// OracleReport is the result of a cross-check. Local is always the value to
// use; Suggested is nil when the oracle was not consulted or failed.
type OracleReport struct {
	Local     float64  `json:"local"`
	Suggested *float64 `json:"suggested,omitempty"`
	Agrees    bool     `json:"agrees"`
}

// OracleCheck compares an advisory oracle against the local Kelly fraction.
// Oracle failures are logged at warn level and never returned.
type OracleCheck struct {
	oracle    KellyOracle
	tolerance float64
	log       *logger.Logger
}

func NewOracleCheck(oracle KellyOracle, tolerance float64, log *logger.Logger) *OracleCheck {
	if tolerance <= 0 {
		tolerance = DefaultOracleTolerance
	}
	return &OracleCheck{oracle: oracle, tolerance: tolerance, log: log}
}

func (c *OracleCheck) Verify(ctx context.Context, winRate, avgWin, avgLoss float64) OracleReport {
	local, ok := quant.KellyFraction(winRate, avgWin, avgLoss)
	report := OracleReport{Local: local}
	if !ok || c == nil || c.oracle == nil {
		return report
	}

	suggested, err := c.oracle.SuggestKelly(ctx, winRate, avgWin, avgLoss)
	if err == nil && (math.IsNaN(suggested) || math.IsInf(suggested, 0)) {
		err = ErrOracleMalformed
	}
	if err != nil {
		c.log.WarnContext(ctx, "kelly oracle failed, using local value",
			logger.ErrorField(err),
			zap.Float64("local_kelly", local),
		)
		return report
	}

	report.Suggested = &suggested
	report.Agrees = math.Abs(suggested-local) <= c.tolerance
	if !report.Agrees {
		c.log.WarnContext(ctx, "kelly oracle disagrees with local value",
			zap.Float64("local_kelly", local),
			zap.Float64("oracle_kelly", suggested),
			zap.Float64("tolerance", c.tolerance),
		)
	}
	return report
}
