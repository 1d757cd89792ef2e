// Package engine runs a strategy over a price series: parameter extraction,
// residual-momentum signals, trade simulation and performance metrics. It is
// stateless across calls and safe for concurrent use.
package engine

import (
	"fmt"
)

// StrategyKind identifies how a strategy definition is interpreted.
type StrategyKind string

const (
	StrategyKindPineScript StrategyKind = "pine_script"
	StrategyKindPython     StrategyKind = "python"
)

// StrategyDefinition is the raw strategy submitted for a backtest.
type StrategyDefinition struct {
	Kind StrategyKind
	Code string
}

// Config holds the cost model and reporting knobs of a run.
type Config struct {
	InitialCapital float64
	Slippage       float64
	Commission     float64
	EquityStride   int
	Annualization  float64
}

// DefaultConfig returns the reference cost model.
func DefaultConfig() Config {
	return Config{
		InitialCapital: DefaultInitialCapital,
		Slippage:       DefaultSlippage,
		Commission:     DefaultCommission,
		EquityStride:   DefaultEquityStride,
		Annualization:  DefaultAnnualization,
	}
}

type Engine struct {
	cfg Config
}

func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Run interprets def and backtests it. Only pine_script definitions are
// understood; any other kind fails with ErrUnsupportedStrategyKind.
func (e *Engine) Run(def StrategyDefinition, series PriceSeries) (BacktestResult, StrategyParameters, []FieldIssue, error) {
	if def.Kind != StrategyKindPineScript {
		return BacktestResult{}, StrategyParameters{}, nil, fmt.Errorf("%w: %q", ErrUnsupportedStrategyKind, def.Kind)
	}
	params, issues := ExtractParameters(def.Code)
	result, err := e.RunBacktest(params, series)
	return result, params, issues, err
}

// RunBacktest generates signals, simulates trades and summarises them. The
// same params and series always yield the same result.
func (e *Engine) RunBacktest(params StrategyParameters, series PriceSeries) (BacktestResult, error) {
	if err := params.Validate(); err != nil {
		return BacktestResult{}, fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}
	if err := series.Validate(); err != nil {
		return BacktestResult{}, err
	}

	signals := GenerateSignals(series.Prices, params)

	sim := Simulator{
		InitialCapital: e.cfg.InitialCapital,
		Slippage:       e.cfg.Slippage,
		Commission:     e.cfg.Commission,
		EquityStride:   e.cfg.EquityStride,
		Start:          series.Start,
		Period:         series.Period,
	}
	trades, curve := sim.Simulate(series.Prices, signals, params.KellyFractionCap)

	return Summarize(trades, curve, e.cfg.InitialCapital, e.cfg.Annualization), nil
}
