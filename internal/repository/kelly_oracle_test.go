package repository

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"backtest-engine/config"
	"backtest-engine/internal/risk"
	"backtest-engine/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKellySuggestion(t *testing.T) {
	v, err := parseKellySuggestion(`{"full_kelly": 0.4}`)
	require.NoError(t, err)
	assert.Equal(t, 0.4, v)

	v, err = parseKellySuggestion("```json\n{\"full_kelly\": -0.25}\n```")
	require.NoError(t, err)
	assert.Equal(t, -0.25, v)

	_, err = parseKellySuggestion(`{"kelly": 0.4}`)
	assert.ErrorIs(t, err, risk.ErrOracleMalformed)

	_, err = parseKellySuggestion(`not json`)
	assert.ErrorIs(t, err, risk.ErrOracleMalformed)
}

func oracleConfig(baseURL string) *config.Config {
	cfg := config.Default()
	cfg.Oracle.Enabled = true
	cfg.Oracle.Provider = OracleProviderHTTP
	cfg.Oracle.BaseURL = baseURL
	cfg.Oracle.Timeout = 2 * time.Second
	cfg.Oracle.MaxRequestPerMinute = 600
	return cfg
}

func TestHTTPKellyOracle(t *testing.T) {
	var got kellyOracleRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/kelly", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"full_kelly": 0.4}`))
	}))
	defer srv.Close()

	oracle, err := NewKellyOracle(oracleConfig(srv.URL), logger.NewNop())
	require.NoError(t, err)

	v, err := oracle.SuggestKelly(context.Background(), 0.6, 0.03, 0.015)
	require.NoError(t, err)
	assert.Equal(t, 0.4, v)
	assert.Equal(t, kellyOracleRequest{WinRate: 0.6, AvgWin: 0.03, AvgLoss: 0.015}, got)
}

func TestHTTPKellyOracle_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	oracle := NewHTTPKellyOracle(oracleConfig(srv.URL), logger.NewNop())
	_, err := oracle.SuggestKelly(context.Background(), 0.6, 0.03, 0.015)
	assert.ErrorIs(t, err, risk.ErrOracleUnavailable)

	malformed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"value": 1}`))
	}))
	defer malformed.Close()

	oracle = NewHTTPKellyOracle(oracleConfig(malformed.URL), logger.NewNop())
	_, err = oracle.SuggestKelly(context.Background(), 0.6, 0.03, 0.015)
	assert.ErrorIs(t, err, risk.ErrOracleMalformed)
}

func TestNewKellyOracle(t *testing.T) {
	cfg := config.Default()
	oracle, err := NewKellyOracle(cfg, logger.NewNop())
	require.NoError(t, err)
	assert.Nil(t, oracle)

	cfg.Oracle.Enabled = true
	cfg.Oracle.Provider = "carrier-pigeon"
	_, err = NewKellyOracle(cfg, logger.NewNop())
	assert.Error(t, err)
}

func TestPromptKelly(t *testing.T) {
	p := promptKelly(0.6, 0.03, 0.015)
	assert.Contains(t, p, "p = 0.600000")
	assert.Contains(t, p, `{"full_kelly": <number>}`)
}
