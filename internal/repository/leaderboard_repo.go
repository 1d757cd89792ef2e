package repository

import (
	"context"

	"backtest-engine/internal/model"
	"backtest-engine/pkg/utils"

	"gorm.io/gorm"
)

type LeaderboardRepository interface {
	GetByTimeframe(ctx context.Context, timeframe string, opts ...utils.DBOption) ([]model.LeaderboardEntry, error)
	// Replace swaps the whole ranking of a timeframe.
	Replace(ctx context.Context, timeframe string, entries []model.LeaderboardEntry, opts ...utils.DBOption) error
}

type leaderboardRepository struct {
	db *gorm.DB
}

func NewLeaderboardRepository(db *gorm.DB) LeaderboardRepository {
	return &leaderboardRepository{db: db}
}

func (r *leaderboardRepository) GetByTimeframe(ctx context.Context, timeframe string, opts ...utils.DBOption) ([]model.LeaderboardEntry, error) {
	var entries []model.LeaderboardEntry
	q := utils.ApplyOptions(r.db.WithContext(ctx), opts...)
	if err := q.Where("timeframe = ?", timeframe).Order("rank ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *leaderboardRepository) Replace(ctx context.Context, timeframe string, entries []model.LeaderboardEntry, opts ...utils.DBOption) error {
	db := utils.ApplyOptions(r.db.WithContext(ctx), opts...)
	if err := db.Where("timeframe = ?", timeframe).Delete(&model.LeaderboardEntry{}).Error; err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	return db.CreateInBatches(entries, 100).Error
}
