package service

import "errors"

// Link-state errors are user-visible notices, not failures that halt a flow.
// Persist failures wrap store write errors and name the attempted action.
var (
	ErrInvalidRange        = errors.New("invalid date range: start is after end")
	ErrScheduleUnavailable = errors.New("work schedule unavailable")
	ErrAlreadyLinked       = errors.New("task is already linked to this time block")
	ErrNothingToUnlink     = errors.New("time block has no linked tasks")
	ErrTaskNotLinked       = errors.New("task is not linked to this time block")
	ErrPersistFailure      = errors.New("persist failed")
	ErrTaskNotFound        = errors.New("task not found")
	ErrBlockNotFound       = errors.New("time block not found")
)
