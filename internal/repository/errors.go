package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrStatusConflict is returned when a row exists but is not in a state
	// that allows the requested change.
	ErrStatusConflict = errors.New("status change not allowed")
)

// mapErr translates gorm sentinels into repository ones.
func mapErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
