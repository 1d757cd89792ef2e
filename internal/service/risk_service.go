package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"backtest-engine/config"
	"backtest-engine/internal/dto"
	"backtest-engine/internal/model"
	"backtest-engine/internal/repository"
	"backtest-engine/internal/risk"
	"backtest-engine/pkg/logger"
	"backtest-engine/pkg/utils"

	"go.uber.org/zap"
)

type RiskService interface {
	// EvaluateCandidate filters, sizes and records a candidate trade.
	EvaluateCandidate(ctx context.Context, req dto.EvaluateSignalRequest) (*dto.EvaluateSignalResponse, error)
	SizePosition(ctx context.Context, req dto.SizePositionRequest) (*dto.SizePositionResponse, error)
	Kelly(ctx context.Context, req dto.KellyRequest) risk.KellyBreakdown
	UpdateSignalStatus(ctx context.Context, id uint, req dto.UpdateSignalStatusRequest) error
	Stats(ctx context.Context) (*dto.SignalStats, error)
}

type riskService struct {
	cfg             *config.Config
	log             *logger.Logger
	signalRepo      repository.SignalRepository
	systemParamRepo repository.SystemParamRepository
	unitOfWork      repository.UnitOfWork
	oracleCheck     *risk.OracleCheck
	notifier        logger.Alerter
	now             func() time.Time
}

func NewRiskService(
	cfg *config.Config,
	log *logger.Logger,
	signalRepo repository.SignalRepository,
	systemParamRepo repository.SystemParamRepository,
	unitOfWork repository.UnitOfWork,
	oracleCheck *risk.OracleCheck,
	notifier logger.Alerter,
) RiskService {
	return &riskService{
		cfg:             cfg,
		log:             log,
		signalRepo:      signalRepo,
		systemParamRepo: systemParamRepo,
		unitOfWork:      unitOfWork,
		oracleCheck:     oracleCheck,
		notifier:        notifier,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

func (s *riskService) thresholds(ctx context.Context) risk.Thresholds {
	th, err := s.systemParamRepo.GetRiskThresholds(ctx)
	if err != nil {
		s.log.WarnContext(ctx, "Failed to load risk thresholds, using config", logger.ErrorField(err))
		return repository.ThresholdsFromConfig(s.cfg.Risk)
	}
	return th
}

// dailyState snapshots today's PnL and failed executions.
func (s *riskService) dailyState(ctx context.Context, today time.Time) (risk.DailyState, error) {
	state := risk.DailyState{Date: today}

	metric, err := s.signalRepo.GetDailyMetric(ctx, today)
	switch {
	case err == nil:
		state.PnLPct = metric.DailyPnLPct
	case errors.Is(err, repository.ErrNotFound):
	default:
		return state, fmt.Errorf("failed to load daily metric: %w", err)
	}

	failed, err := s.signalRepo.CountByStatusSince(ctx, risk.StatusFailed, today)
	if err != nil {
		return state, fmt.Errorf("failed to count failed executions: %w", err)
	}
	state.FailedExecutions = int(failed)
	return state, nil
}

func (s *riskService) EvaluateCandidate(ctx context.Context, req dto.EvaluateSignalRequest) (*dto.EvaluateSignalResponse, error) {
	candidate := req.ToCandidate()
	th := s.thresholds(ctx)
	today := utils.StartOfDay(s.now())

	daily, err := s.dailyState(ctx, today)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to load daily state", logger.ErrorField(err))
		return nil, err
	}

	portfolio := req.PortfolioValue
	if portfolio <= 0 {
		portfolio = s.cfg.Risk.PortfolioValue
	}

	decision := risk.Evaluate(candidate, daily, th, portfolio)
	status := decision.Status()

	raw, err := json.Marshal(candidate)
	if err != nil {
		return nil, err
	}
	signal := &model.CandidateSignal{
		Source:               candidate.Source,
		Label:                candidate.Label,
		Asset:                candidate.Asset,
		Symbol:               candidate.Symbol,
		Chain:                candidate.Chain,
		Action:               candidate.Action,
		AmountUSD:            candidate.AmountUSD,
		PriceUSD:             candidate.PriceUSD,
		TotalTrades:          candidate.Stats.TotalTrades,
		WinRate:              candidate.Stats.WinRate,
		ROI30d:               candidate.Stats.ROI30d,
		ROI7d:                candidate.Stats.ROI7d,
		ConfidenceScore:      decision.Confidence,
		SuggestedPositionUSD: decision.AmountUSD,
		KellyFraction:        decision.Fraction,
		Status:               status,
		Notes:                decision.Reason,
		RawData:              raw,
	}

	err = s.unitOfWork.Run(ctx, func(opts ...utils.DBOption) error {
		if err := s.signalRepo.Create(ctx, signal, opts...); err != nil {
			return fmt.Errorf("failed to store signal: %w", err)
		}
		if err := s.signalRepo.IncrementDailyCounters(ctx, today, status, opts...); err != nil {
			return fmt.Errorf("failed to update daily counters: %w", err)
		}
		if decision.Breaker != nil {
			event := &model.CircuitBreakerEvent{
				Kind:           decision.Breaker.Kind,
				Reason:         decision.Breaker.Reason,
				ThresholdValue: decision.Breaker.Threshold,
				ActualValue:    decision.Breaker.Actual,
			}
			if err := s.signalRepo.CreateBreakerEvent(ctx, event, opts...); err != nil {
				return fmt.Errorf("failed to store breaker event: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to record candidate evaluation", logger.ErrorField(err))
		return nil, err
	}

	fields := []zap.Field{
		logger.IntField("signal_id", int(signal.ID)),
		logger.StringField("source", candidate.Source),
		logger.StringField("symbol", candidate.Symbol),
		logger.StringField("status", status),
		logger.StringField("reason", decision.Reason),
		logger.Float64Field("confidence", decision.Confidence),
	}
	switch decision.Kind {
	case risk.DecisionHalt:
		s.log.WarnContextWithAlert(ctx, "Circuit breaker tripped", append(fields,
			logger.StringField("breaker", decision.Breaker.Kind),
			logger.Float64Field("threshold", decision.Breaker.Threshold),
			logger.Float64Field("actual", decision.Breaker.Actual),
		)...)
	case risk.DecisionApprove:
		s.log.InfoContext(ctx, "Candidate approved", append(fields, logger.Float64Field("amount_usd", decision.AmountUSD))...)
		s.notifyApproved(ctx, candidate, decision)
	default:
		s.log.DebugContext(ctx, "Candidate filtered", fields...)
	}

	return &dto.EvaluateSignalResponse{
		SignalID: signal.ID,
		Status:   status,
		Decision: decision,
	}, nil
}

func (s *riskService) notifyApproved(ctx context.Context, c risk.Candidate, d risk.Decision) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SendAlert(ctx, FormatApprovedSignal(c, d, s.now())); err != nil {
		s.log.WarnContext(ctx, "Failed to send signal notification", logger.ErrorField(err))
	}
}

// FormatApprovedSignal renders an approved candidate as a Telegram Markdown
// message.
func FormatApprovedSignal(c risk.Candidate, d risk.Decision, at time.Time) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("✅ *%s %s*\n\n", utils.EscapeMarkdown(c.Action), utils.EscapeMarkdown(c.Symbol)))
	label := c.Source
	if c.Label != "" {
		label = c.Label
	}
	sb.WriteString(fmt.Sprintf("*Source:* %s\n", utils.EscapeMarkdown(label)))
	if c.Chain != "" {
		sb.WriteString(fmt.Sprintf("*Chain:* %s\n", utils.EscapeMarkdown(c.Chain)))
	}
	sb.WriteString(fmt.Sprintf("*Trade size:* %s\n", utils.FormatUSD(c.AmountUSD)))
	sb.WriteString(fmt.Sprintf("*Win rate:* %s (%d trades)\n", utils.FormatPercentage(c.Stats.WinRate*100), c.Stats.TotalTrades))
	sb.WriteString(fmt.Sprintf("*ROI 30d:* %s\n\n", utils.FormatPercentage(c.Stats.ROI30d*100)))
	sb.WriteString(fmt.Sprintf("*Confidence:* %.2f\n", d.Confidence))
	sb.WriteString(fmt.Sprintf("*Position:* %s (%.2f%% of portfolio)\n", utils.FormatUSD(d.AmountUSD), d.Fraction*100))
	sb.WriteString(fmt.Sprintf("\n_%s_", utils.PrettyDate(at)))
	return sb.String()
}

func (s *riskService) SizePosition(ctx context.Context, req dto.SizePositionRequest) (*dto.SizePositionResponse, error) {
	th := s.thresholds(ctx)
	amount, fraction := risk.SizePosition(req.PortfolioValue, req.Confidence, req.WinRate, req.AvgWin, req.AvgLoss, th.Caps())

	resp := &dto.SizePositionResponse{AmountUSD: amount, Fraction: fraction}
	if s.oracleCheck != nil && s.cfg.Oracle.Enabled {
		report := s.oracleCheck.Verify(ctx, req.WinRate, req.AvgWin, req.AvgLoss)
		resp.Oracle = &report
	}
	return resp, nil
}

func (s *riskService) Kelly(_ context.Context, req dto.KellyRequest) risk.KellyBreakdown {
	return risk.Kelly(req.WinRate, req.AvgWin, req.AvgLoss)
}

func (s *riskService) UpdateSignalStatus(ctx context.Context, id uint, req dto.UpdateSignalStatusRequest) error {
	if req.Status != risk.StatusExecuted && req.Status != risk.StatusFailed {
		return fmt.Errorf("%w: status must be executed or failed", ErrInvalidRequest)
	}
	if err := s.signalRepo.UpdateStatus(ctx, id, req.Status, s.now()); err != nil {
		if !errors.Is(err, repository.ErrNotFound) && !errors.Is(err, repository.ErrStatusConflict) {
			s.log.ErrorContext(ctx, "Failed to update signal status", logger.ErrorField(err), logger.IntField("signal_id", int(id)))
		}
		return err
	}
	s.log.InfoContext(ctx, "Signal status updated", logger.IntField("signal_id", int(id)), logger.StringField("status", req.Status))
	return nil
}

func (s *riskService) Stats(ctx context.Context) (*dto.SignalStats, error) {
	stats, err := s.signalRepo.Stats(ctx, utils.StartOfDay(s.now()))
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to load signal stats", logger.ErrorField(err))
		return nil, err
	}
	return &stats, nil
}
