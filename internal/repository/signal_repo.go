package repository

import (
	"context"
	"database/sql"
	"time"

	"backtest-engine/internal/dto"
	"backtest-engine/internal/model"
	"backtest-engine/internal/risk"
	"backtest-engine/pkg/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SignalRepository interface {
	Create(ctx context.Context, signal *model.CandidateSignal, opts ...utils.DBOption) error
	UpdateStatus(ctx context.Context, id uint, status string, at time.Time) error
	CountByStatusSince(ctx context.Context, status string, since time.Time) (int64, error)
	Stats(ctx context.Context, dayStart time.Time) (dto.SignalStats, error)

	CreateBreakerEvent(ctx context.Context, event *model.CircuitBreakerEvent, opts ...utils.DBOption) error

	GetDailyMetric(ctx context.Context, date time.Time) (*model.DailyMetric, error)
	// IncrementDailyCounters bumps the signal counters of date for status,
	// creating the row if needed.
	IncrementDailyCounters(ctx context.Context, date time.Time, status string, opts ...utils.DBOption) error
}

type signalRepository struct {
	db *gorm.DB
}

func NewSignalRepository(db *gorm.DB) SignalRepository {
	return &signalRepository{db: db}
}

func (r *signalRepository) Create(ctx context.Context, signal *model.CandidateSignal, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Create(signal).Error
}

func (r *signalRepository) UpdateStatus(ctx context.Context, id uint, status string, at time.Time) error {
	updates := map[string]interface{}{"status": status}
	if status == risk.StatusExecuted {
		updates["executed_at"] = sql.NullTime{Time: at, Valid: true}
	}
	// only signals that were actually sent can be executed or fail
	res := r.db.WithContext(ctx).Model(&model.CandidateSignal{}).
		Where("id = ? AND status = ?", id, risk.StatusSent).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&model.CandidateSignal{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrStatusConflict
}

func (r *signalRepository) CountByStatusSince(ctx context.Context, status string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.CandidateSignal{}).
		Where("status = ? AND created_at >= ?", status, since).
		Count(&count).Error
	return count, err
}

func (r *signalRepository) Stats(ctx context.Context, dayStart time.Time) (dto.SignalStats, error) {
	var stats dto.SignalStats

	err := r.db.WithContext(ctx).Model(&model.CandidateSignal{}).
		Select(`COUNT(*) AS total_signals,
			COALESCE(SUM(CASE WHEN status = 'sent' THEN 1 ELSE 0 END), 0) AS sent,
			COALESCE(SUM(CASE WHEN status = 'executed' THEN 1 ELSE 0 END), 0) AS executed,
			COALESCE(SUM(CASE WHEN status = 'filtered' THEN 1 ELSE 0 END), 0) AS filtered,
			COALESCE(SUM(CASE WHEN status = 'halted' THEN 1 ELSE 0 END), 0) AS halted,
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0) AS failed,
			COALESCE(SUM(CASE WHEN status = 'executed' THEN suggested_position_usd ELSE 0 END), 0) AS open_exposure_usd`).
		Scan(&stats).Error
	if err != nil {
		return stats, err
	}

	if err := r.db.WithContext(ctx).Model(&model.CandidateSignal{}).
		Where("created_at >= ?", dayStart).
		Count(&stats.TodaySignals).Error; err != nil {
		return stats, err
	}

	if err := r.db.WithContext(ctx).Model(&model.CircuitBreakerEvent{}).
		Where("triggered_at >= ?", dayStart).
		Count(&stats.BreakerEventsDay).Error; err != nil {
		return stats, err
	}
	return stats, nil
}

func (r *signalRepository) CreateBreakerEvent(ctx context.Context, event *model.CircuitBreakerEvent, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Create(event).Error
}

func (r *signalRepository) GetDailyMetric(ctx context.Context, date time.Time) (*model.DailyMetric, error) {
	var metric model.DailyMetric
	if err := r.db.WithContext(ctx).First(&metric, "date = ?", utils.StartOfDay(date)).Error; err != nil {
		return nil, mapErr(err)
	}
	return &metric, nil
}

func (r *signalRepository) IncrementDailyCounters(ctx context.Context, date time.Time, status string, opts ...utils.DBOption) error {
	row := model.DailyMetric{Date: utils.StartOfDay(date), SignalsGenerated: 1}
	updates := map[string]interface{}{
		"signals_generated": gorm.Expr("daily_metrics.signals_generated + 1"),
	}
	switch status {
	case risk.StatusSent:
		row.SignalsSent = 1
		updates["signals_sent"] = gorm.Expr("daily_metrics.signals_sent + 1")
	case risk.StatusFiltered:
		row.SignalsFiltered = 1
		updates["signals_filtered"] = gorm.Expr("daily_metrics.signals_filtered + 1")
	}

	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "date"}},
			DoUpdates: clause.Assignments(updates),
		}).
		Create(&row).Error
}
