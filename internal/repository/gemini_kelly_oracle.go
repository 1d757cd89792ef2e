package repository

import (
	"context"
	"fmt"
	"time"

	"backtest-engine/config"
	"backtest-engine/internal/risk"
	"backtest-engine/pkg/logger"
	"backtest-engine/pkg/ratelimit"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// geminiKellyOracle asks a Gemini model for the full Kelly fraction.
type geminiKellyOracle struct {
	cfg            *config.Config
	logger         *logger.Logger
	tokenLimiter   *ratelimit.TokenLimiter
	requestLimiter *rate.Limiter
	genAiClient    *genai.Client
}

func NewGeminiKellyOracle(cfg *config.Config, log *logger.Logger) (risk.KellyOracle, error) {
	perMinute := cfg.Oracle.MaxRequestPerMinute
	if perMinute <= 0 {
		perMinute = 1
	}
	secondsPerRequest := time.Minute / time.Duration(perMinute)
	requestLimiter := rate.NewLimiter(rate.Every(secondsPerRequest), 1)

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.Oracle.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.Oracle.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.Oracle.BaseURL}
	}
	genAiClient, err := genai.NewClient(context.Background(), clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &geminiKellyOracle{
		cfg:            cfg,
		logger:         log,
		tokenLimiter:   ratelimit.NewTokenLimiter(cfg.Oracle.MaxTokenPerMinute),
		requestLimiter: requestLimiter,
		genAiClient:    genAiClient,
	}, nil
}

func (r *geminiKellyOracle) SuggestKelly(ctx context.Context, winRate, avgWin, avgLoss float64) (float64, error) {
	if r.cfg.Oracle.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Oracle.Timeout)
		defer cancel()
	}

	contents := []*genai.Content{
		genai.NewContentFromText(promptKelly(winRate, avgWin, avgLoss), "user"),
	}

	tokenResp, err := r.genAiClient.Models.CountTokens(ctx, r.cfg.Oracle.Model, contents, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: count tokens: %v", risk.ErrOracleUnavailable, err)
	}

	r.logger.Debug("Gemini token count",
		logger.IntField("total_tokens", int(tokenResp.TotalTokens)),
		logger.IntField("remaining", r.tokenLimiter.GetRemaining()),
	)
	if err := r.tokenLimiter.Wait(ctx, int(tokenResp.TotalTokens)); err != nil {
		return 0, fmt.Errorf("%w: token limit: %v", risk.ErrOracleUnavailable, err)
	}
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("%w: request limit: %v", risk.ErrOracleUnavailable, err)
	}

	temperature := float32(0)
	resp, err := r.genAiClient.Models.GenerateContent(ctx, r.cfg.Oracle.Model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      &temperature,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", risk.ErrOracleUnavailable, err)
	}

	return parseKellySuggestion(resp.Text())
}

func promptKelly(winRate, avgWin, avgLoss float64) string {
	return fmt.Sprintf(`You compute the Kelly criterion for position sizing.

Inputs:
- win rate p = %.6f
- average winning return = %.6f
- average losing return (magnitude) = %.6f

Let b = average win / average loss and q = 1 - p. Compute the full Kelly
fraction f = (b*p - q) / b without clamping or scaling.

Respond with JSON only, exactly in this shape: {"full_kelly": <number>}`,
		winRate, avgWin, avgLoss)
}
