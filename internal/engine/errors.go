package engine

import "errors"

var (
	// ErrUnsupportedStrategyKind is fatal for the backtest that requested it.
	ErrUnsupportedStrategyKind = errors.New("unsupported strategy kind")
	ErrInvalidPriceSeries      = errors.New("invalid price series")
	ErrInvalidParameters       = errors.New("invalid strategy parameters")
)
