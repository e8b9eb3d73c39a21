package engine

import "errors"

// Precondition failures. They signal a caller bug and are never retried.
var (
	ErrInvalidBoard       = errors.New("invalid board")
	ErrPositionOutOfRange = errors.New("position out of range")
	ErrUnknownDifficulty  = errors.New("unknown difficulty")
	ErrInvalidConfig      = errors.New("invalid engine config")
)
