package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"backtest-engine/internal/dto"
	"backtest-engine/internal/engine"
	"backtest-engine/internal/model"
	"backtest-engine/internal/repository"
	"backtest-engine/pkg/logger"

	"github.com/google/uuid"
)

// Order placement belongs to the execution side; strategies may only emit
// signals.
var forbiddenPineCalls = []string{"strategy.entry", "strategy.exit", "strategy.close"}

type StrategyService interface {
	Validate(ctx context.Context, req dto.ValidateStrategyRequest) dto.StrategyValidation
	Create(ctx context.Context, req dto.CreateStrategyRequest) (*dto.StrategyResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*dto.StrategyResponse, error)
}

type strategyService struct {
	log          *logger.Logger
	strategyRepo repository.StrategyRepository
}

func NewStrategyService(log *logger.Logger, strategyRepo repository.StrategyRepository) StrategyService {
	return &strategyService{log: log, strategyRepo: strategyRepo}
}

func CodeHash(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

func (s *strategyService) Validate(_ context.Context, req dto.ValidateStrategyRequest) dto.StrategyValidation {
	v := dto.StrategyValidation{
		Errors:     []string{},
		Warnings:   []string{},
		Parameters: engine.DefaultParameters(),
		CodeHash:   CodeHash(req.Code),
	}

	if strings.TrimSpace(req.Code) == "" {
		v.Errors = append(v.Errors, "code is empty")
	}

	switch engine.StrategyKind(req.Kind) {
	case engine.StrategyKindPineScript:
		for _, call := range forbiddenPineCalls {
			if strings.Contains(req.Code, call) {
				v.Errors = append(v.Errors, fmt.Sprintf("%s() is not allowed, emit signals only", call))
			}
		}
		if !strings.Contains(req.Code, "study(") && !strings.Contains(req.Code, "strategy(") && !strings.Contains(req.Code, "indicator(") {
			v.Warnings = append(v.Warnings, "no study(), indicator() or strategy() declaration found")
		}
		params, issues := engine.ExtractParameters(req.Code)
		v.Parameters = params
		for _, issue := range issues {
			v.Warnings = append(v.Warnings, issue.String())
		}
	case engine.StrategyKindPython:
		v.Warnings = append(v.Warnings, "python strategies are stored but cannot be backtested")
	default:
		v.Errors = append(v.Errors, fmt.Sprintf("unknown strategy kind %q", req.Kind))
	}

	v.Valid = len(v.Errors) == 0
	return v
}

// Create stores a validated strategy. Submitting code that is already stored
// returns the existing strategy.
func (s *strategyService) Create(ctx context.Context, req dto.CreateStrategyRequest) (*dto.StrategyResponse, error) {
	validation := s.Validate(ctx, dto.ValidateStrategyRequest{Kind: req.Kind, Code: req.Code})
	if !validation.Valid {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStrategy, strings.Join(validation.Errors, "; "))
	}

	existing, err := s.strategyRepo.GetByHash(ctx, validation.CodeHash)
	if err == nil {
		s.log.InfoContext(ctx, "Strategy already registered", logger.IDField("strategy_id", existing.ID))
		return toStrategyResponse(existing), nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		s.log.ErrorContext(ctx, "Failed to look up strategy by hash", logger.ErrorField(err))
		return nil, err
	}

	params, err := json.Marshal(validation.Parameters)
	if err != nil {
		return nil, err
	}
	warnings, err := json.Marshal(validation.Warnings)
	if err != nil {
		return nil, err
	}

	strategy := &model.Strategy{
		Name:       req.Name,
		Kind:       req.Kind,
		Asset:      req.Asset,
		Timeframe:  req.Timeframe,
		Code:       req.Code,
		CodeHash:   validation.CodeHash,
		Parameters: params,
		Warnings:   warnings,
	}
	if err := s.strategyRepo.Create(ctx, strategy); err != nil {
		s.log.ErrorContext(ctx, "Failed to create strategy", logger.ErrorField(err))
		return nil, err
	}

	s.log.InfoContext(ctx, "Strategy registered",
		logger.IDField("strategy_id", strategy.ID),
		logger.StringField("kind", strategy.Kind),
		logger.IntField("warnings", len(validation.Warnings)),
	)
	return toStrategyResponse(strategy), nil
}

func (s *strategyService) GetByID(ctx context.Context, id uuid.UUID) (*dto.StrategyResponse, error) {
	strategy, err := s.strategyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toStrategyResponse(strategy), nil
}

func toStrategyResponse(m *model.Strategy) *dto.StrategyResponse {
	resp := &dto.StrategyResponse{
		ID:         m.ID,
		Name:       m.Name,
		Kind:       m.Kind,
		Asset:      m.Asset,
		Timeframe:  m.Timeframe,
		CodeHash:   m.CodeHash,
		Parameters: engine.DefaultParameters(),
		Warnings:   []string{},
		CreatedAt:  m.CreatedAt,
	}
	if len(m.Parameters) > 0 {
		_ = json.Unmarshal(m.Parameters, &resp.Parameters)
	}
	if len(m.Warnings) > 0 {
		_ = json.Unmarshal(m.Warnings, &resp.Warnings)
	}
	return resp
}
