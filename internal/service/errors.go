package service

import "errors"

var (
	ErrInvalidStrategy = errors.New("invalid strategy")
	ErrInvalidRequest  = errors.New("invalid request")
)
