package repository

import (
	"context"
	"database/sql"
	"fmt"

	"backtest-engine/pkg/utils"

	"gorm.io/gorm"
)

// UnitOfWork groups repository writes, e.g. a candidate signal with its daily
// counters and breaker event, or a full leaderboard replacement.
type UnitOfWork interface {
	Run(ctx context.Context, fn func(opts ...utils.DBOption) error) error
}

type unitOfWork struct {
	db        *gorm.DB
	isolation sql.IsolationLevel
}

// NewUnitOfWork returns a UnitOfWork whose transactions use the given
// isolation level. sql.LevelDefault leaves it to the database.
func NewUnitOfWork(db *gorm.DB, isolation sql.IsolationLevel) UnitOfWork {
	return &unitOfWork{
		db:        db,
		isolation: isolation,
	}
}

// Run executes fn inside one transaction. fn receives a WithTx option to pass
// to repository calls; an error or panic rolls everything back.
func (u *unitOfWork) Run(ctx context.Context, fn func(opts ...utils.DBOption) error) error {
	var txOpts []*sql.TxOptions
	if u.isolation != sql.LevelDefault {
		txOpts = append(txOpts, &sql.TxOptions{Isolation: u.isolation})
	}

	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(utils.WithTx(tx))
	}, txOpts...)
	if err != nil {
		return fmt.Errorf("unit of work: %w", err)
	}
	return nil
}
