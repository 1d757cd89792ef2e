package repository

import (
	"encoding/json"
	"fmt"
	"strings"

	"backtest-engine/config"
	"backtest-engine/internal/risk"
	"backtest-engine/pkg/logger"
)

const (
	OracleProviderGemini = "gemini"
	OracleProviderHTTP   = "http"
)

// NewKellyOracle builds the configured advisory oracle. A disabled oracle is
// nil, which risk.OracleCheck treats as "not consulted".
func NewKellyOracle(cfg *config.Config, log *logger.Logger) (risk.KellyOracle, error) {
	if !cfg.Oracle.Enabled {
		return nil, nil
	}
	switch strings.ToLower(cfg.Oracle.Provider) {
	case OracleProviderGemini:
		return NewGeminiKellyOracle(cfg, log)
	case OracleProviderHTTP:
		return NewHTTPKellyOracle(cfg, log), nil
	default:
		return nil, fmt.Errorf("unknown kelly oracle provider %q", cfg.Oracle.Provider)
	}
}

type kellySuggestion struct {
	FullKelly *float64 `json:"full_kelly"`
}

// parseKellySuggestion reads {"full_kelly": x}, tolerating a fenced code
// block around the JSON.
func parseKellySuggestion(body string) (float64, error) {
	body = strings.TrimSpace(body)
	body = strings.TrimPrefix(body, "```json")
	body = strings.Trim(body, "`\n ")

	var s kellySuggestion
	if err := json.Unmarshal([]byte(body), &s); err != nil {
		return 0, fmt.Errorf("%w: %v", risk.ErrOracleMalformed, err)
	}
	if s.FullKelly == nil {
		return 0, fmt.Errorf("%w: missing full_kelly", risk.ErrOracleMalformed)
	}
	return *s.FullKelly, nil
}
