package repository

import (
	"context"
	"database/sql"
	"time"

	"backtest-engine/internal/model"
	"backtest-engine/pkg/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BacktestRepository interface {
	Create(ctx context.Context, backtest *model.Backtest, opts ...utils.DBOption) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Backtest, error)
	MarkRunning(ctx context.Context, id uuid.UUID, startedAt time.Time) error
	Complete(ctx context.Context, backtest *model.Backtest, opts ...utils.DBOption) error
	Fail(ctx context.Context, id uuid.UUID, message string, at time.Time) error
	// ListCompleted returns completed runs finished at or after since (all
	// when since is nil) ordered by composite score, without trades or
	// equity curve.
	ListCompleted(ctx context.Context, since *time.Time) ([]model.Backtest, error)
	// ClearDetailsBefore drops trades and equity curves of runs completed
	// before cutoff and returns how many rows were touched.
	ClearDetailsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type backtestRepository struct {
	db *gorm.DB
}

func NewBacktestRepository(db *gorm.DB) BacktestRepository {
	return &backtestRepository{db: db}
}

func (r *backtestRepository) Create(ctx context.Context, backtest *model.Backtest, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Create(backtest).Error
}

func (r *backtestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Backtest, error) {
	var backtest model.Backtest
	if err := r.db.WithContext(ctx).Preload("Strategy").First(&backtest, "id = ?", id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &backtest, nil
}

func (r *backtestRepository) MarkRunning(ctx context.Context, id uuid.UUID, startedAt time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Backtest{}).
		Where("id = ? AND status = ?", id, model.BacktestQueued).
		Updates(map[string]interface{}{
			"status":     model.BacktestRunning,
			"started_at": sql.NullTime{Time: startedAt, Valid: true},
		}).Error
}

func (r *backtestRepository) Complete(ctx context.Context, backtest *model.Backtest, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(backtest).
		Select(
			"status", "parameters", "total_trades", "winning_trades", "losing_trades",
			"win_rate", "profit_factor", "sharpe_ratio", "sortino_ratio", "max_drawdown",
			"avg_trade_pnl", "total_return", "final_equity", "composite_score",
			"trades", "equity_curve", "completed_at",
		).
		Updates(backtest).Error
}

func (r *backtestRepository) Fail(ctx context.Context, id uuid.UUID, message string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Backtest{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        model.BacktestFailed,
			"error_message": sql.NullString{String: message, Valid: true},
			"completed_at":  sql.NullTime{Time: at, Valid: true},
		}).Error
}

func (r *backtestRepository) ListCompleted(ctx context.Context, since *time.Time) ([]model.Backtest, error) {
	var backtests []model.Backtest
	q := r.db.WithContext(ctx).
		Omit("trades", "equity_curve").
		Preload("Strategy", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "name")
		}).
		Where("status = ?", model.BacktestCompleted)
	if since != nil {
		q = q.Where("completed_at >= ?", *since)
	}
	if err := q.Order("composite_score DESC, completed_at ASC").Find(&backtests).Error; err != nil {
		return nil, err
	}
	return backtests, nil
}

func (r *backtestRepository) ClearDetailsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Backtest{}).
		Where("completed_at < ? AND (trades IS NOT NULL OR equity_curve IS NOT NULL)", cutoff).
		Updates(map[string]interface{}{
			"trades":       gorm.Expr("NULL"),
			"equity_curve": gorm.Expr("NULL"),
		})
	return res.RowsAffected, res.Error
}
