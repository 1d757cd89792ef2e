package repository

import (
	"context"
	"fmt"

	"backtest-engine/config"
	"backtest-engine/internal/risk"
	"backtest-engine/pkg/httpclient"
	"backtest-engine/pkg/logger"
	"backtest-engine/pkg/ratelimit"

	"golang.org/x/time/rate"
)

// httpKellyOracle posts the inputs to an external sizing service that
// answers {"full_kelly": x}.
type httpKellyOracle struct {
	httpClient     httpclient.HTTPClient
	logger         *logger.Logger
	requestLimiter *rate.Limiter
}

type kellyOracleRequest struct {
	WinRate float64 `json:"win_rate"`
	AvgWin  float64 `json:"avg_win"`
	AvgLoss float64 `json:"avg_loss"`
}

func NewHTTPKellyOracle(cfg *config.Config, log *logger.Logger) risk.KellyOracle {
	return &httpKellyOracle{
		httpClient:     httpclient.New(cfg.Oracle.BaseURL, cfg.Oracle.Timeout, cfg.Oracle.APIKey, 1),
		logger:         log,
		requestLimiter: rate.NewLimiter(ratelimit.PerMinute(cfg.Oracle.MaxRequestPerMinute), 1),
	}
}

func (r *httpKellyOracle) SuggestKelly(ctx context.Context, winRate, avgWin, avgLoss float64) (float64, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("%w: request limit: %v", risk.ErrOracleUnavailable, err)
	}

	var result kellySuggestion
	resp, err := r.httpClient.Post(ctx, "/kelly", kellyOracleRequest{
		WinRate: winRate,
		AvgWin:  avgWin,
		AvgLoss: avgLoss,
	}, nil, &result)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", risk.ErrOracleUnavailable, err)
	}
	if !resp.IsSuccess() {
		r.logger.WarnContext(ctx, "kelly oracle returned an error status", logger.IntField("status_code", resp.StatusCode))
		return 0, fmt.Errorf("%w: status %d", risk.ErrOracleUnavailable, resp.StatusCode)
	}

	if result.FullKelly != nil {
		return *result.FullKelly, nil
	}
	return parseKellySuggestion(string(resp.Body))
}
