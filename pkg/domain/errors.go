package domain

import "errors"

// ErrSessionNotFound is returned when an operation requires a session that does not exist.
var ErrSessionNotFound = errors.New("session not found")

// ErrStepOutOfOrder is returned when a step update would skip ahead or rewind the session.
var ErrStepOutOfOrder = errors.New("step out of order")

// ErrNotCompleted is returned when results are requested for a session that has steps left.
var ErrNotCompleted = errors.New("simulation not completed")
