package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidQuote      = errors.New("invalid quote")
	ErrSourceUnavailable = errors.New("quote source unavailable")
	ErrConfigInvalid     = errors.New("invalid settings")
	ErrContextDone       = errors.New("context cancelled")
)
