package repository

import (
	"context"

	"backtest-engine/internal/model"
	"backtest-engine/pkg/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StrategyRepository interface {
	Create(ctx context.Context, strategy *model.Strategy, opts ...utils.DBOption) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Strategy, error)
	GetByHash(ctx context.Context, codeHash string) (*model.Strategy, error)
}

type strategyRepository struct {
	db *gorm.DB
}

func NewStrategyRepository(db *gorm.DB) StrategyRepository {
	return &strategyRepository{db: db}
}

func (r *strategyRepository) Create(ctx context.Context, strategy *model.Strategy, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Create(strategy).Error
}

func (r *strategyRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Strategy, error) {
	var strategy model.Strategy
	if err := r.db.WithContext(ctx).First(&strategy, "id = ?", id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &strategy, nil
}

func (r *strategyRepository) GetByHash(ctx context.Context, codeHash string) (*model.Strategy, error) {
	var strategy model.Strategy
	if err := r.db.WithContext(ctx).First(&strategy, "code_hash = ?", codeHash).Error; err != nil {
		return nil, mapErr(err)
	}
	return &strategy, nil
}
