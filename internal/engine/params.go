package engine

import (
	"fmt"
	"regexp"
	"strconv"
)

const (
	DefaultLookback          = 20
	DefaultEntryThreshold    = 1.5
	DefaultExitThreshold     = 0.5
	DefaultKellyFractionCap  = 0.25
	DefaultTradingHoursStart = 0
	DefaultTradingHoursEnd   = 23
)

// StrategyParameters are the numeric knobs read from a strategy definition.
type StrategyParameters struct {
	Lookback          int     `json:"lookback"`
	EntryThreshold    float64 `json:"entry_threshold"`
	ExitThreshold     float64 `json:"exit_threshold"`
	KellyFractionCap  float64 `json:"kelly_fraction"`
	TradingHoursStart int     `json:"trading_hours_start"`
	TradingHoursEnd   int     `json:"trading_hours_end"`
}

// DefaultParameters returns the documented defaults.
func DefaultParameters() StrategyParameters {
	return StrategyParameters{
		Lookback:          DefaultLookback,
		EntryThreshold:    DefaultEntryThreshold,
		ExitThreshold:     DefaultExitThreshold,
		KellyFractionCap:  DefaultKellyFractionCap,
		TradingHoursStart: DefaultTradingHoursStart,
		TradingHoursEnd:   DefaultTradingHoursEnd,
	}
}

// FieldIssue records a field whose literal was found but rejected, so the
// default was used instead.
type FieldIssue struct {
	Field string `json:"field"`
	Raw   string `json:"raw"`
	Cause string `json:"cause"`
}

func (f FieldIssue) String() string {
	return fmt.Sprintf("%s=%q: %s", f.Field, f.Raw, f.Cause)
}

// fieldRule extracts and validates one parameter. apply returns a non-empty
// cause when the raw literal is unusable.
type fieldRule struct {
	field   string
	pattern *regexp.Regexp
	apply   func(p *StrategyParameters, raw string) string
}

var parameterRules = []fieldRule{
	{
		field:   "lookback",
		pattern: regexp.MustCompile(`lookback\s*=\s*input\.int\(\s*(-?\d+)`),
		apply: func(p *StrategyParameters, raw string) string {
			v, err := strconv.Atoi(raw)
			if err != nil {
				return err.Error()
			}
			if v < 1 {
				return "must be a positive integer"
			}
			p.Lookback = v
			return ""
		},
	},
	{
		field:   "entryThreshold",
		pattern: regexp.MustCompile(`entryThreshold\s*=\s*input\.float\(\s*(-?[\d.]+)`),
		apply: func(p *StrategyParameters, raw string) string {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return err.Error()
			}
			if v <= 0 {
				return "must be greater than zero"
			}
			p.EntryThreshold = v
			return ""
		},
	},
	{
		field:   "exitThreshold",
		pattern: regexp.MustCompile(`exitThreshold\s*=\s*input\.float\(\s*(-?[\d.]+)`),
		apply: func(p *StrategyParameters, raw string) string {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return err.Error()
			}
			if v < 0 {
				return "must not be negative"
			}
			p.ExitThreshold = v
			return ""
		},
	},
	{
		field:   "kellyFraction",
		pattern: regexp.MustCompile(`kellyFraction\s*=\s*input\.float\(\s*(-?[\d.]+)`),
		apply: func(p *StrategyParameters, raw string) string {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return err.Error()
			}
			if v <= 0 || v > 1 {
				return "must be in (0,1]"
			}
			p.KellyFractionCap = v
			return ""
		},
	},
	{
		field:   "tradingHoursStart",
		pattern: regexp.MustCompile(`tradingHoursStart\s*=\s*input\.int\(\s*(-?\d+)`),
		apply: func(p *StrategyParameters, raw string) string {
			return applyHour(&p.TradingHoursStart, raw)
		},
	},
	{
		field:   "tradingHoursEnd",
		pattern: regexp.MustCompile(`tradingHoursEnd\s*=\s*input\.int\(\s*(-?\d+)`),
		apply: func(p *StrategyParameters, raw string) string {
			return applyHour(&p.TradingHoursEnd, raw)
		},
	},
}

func applyHour(dst *int, raw string) string {
	v, err := strconv.Atoi(raw)
	if err != nil {
		return err.Error()
	}
	if v < 0 || v > 23 {
		return "must be an hour in [0,23]"
	}
	*dst = v
	return ""
}

// ExtractParameters scans a strategy definition for the known named literals.
// Every field is resolved on its own: a missing or invalid literal leaves that
// field at its default and never affects the others.
func ExtractParameters(code string) (StrategyParameters, []FieldIssue) {
	params := DefaultParameters()
	var issues []FieldIssue

	for _, rule := range parameterRules {
		m := rule.pattern.FindStringSubmatch(code)
		if m == nil {
			continue
		}
		if cause := rule.apply(&params, m[1]); cause != "" {
			issues = append(issues, FieldIssue{Field: rule.field, Raw: m[1], Cause: cause})
		}
	}
	return params, issues
}

// Validate reports the first out-of-range field.
func (p StrategyParameters) Validate() error {
	switch {
	case p.Lookback < 1:
		return fmt.Errorf("lookback must be positive, got %d", p.Lookback)
	case p.EntryThreshold <= 0:
		return fmt.Errorf("entry threshold must be positive, got %v", p.EntryThreshold)
	case p.ExitThreshold < 0:
		return fmt.Errorf("exit threshold must not be negative, got %v", p.ExitThreshold)
	case p.KellyFractionCap <= 0 || p.KellyFractionCap > 1:
		return fmt.Errorf("kelly fraction must be in (0,1], got %v", p.KellyFractionCap)
	case p.TradingHoursStart < 0 || p.TradingHoursStart > 23 || p.TradingHoursEnd < 0 || p.TradingHoursEnd > 23:
		return fmt.Errorf("trading hours must be within [0,23], got %d-%d", p.TradingHoursStart, p.TradingHoursEnd)
	}
	return nil
}
