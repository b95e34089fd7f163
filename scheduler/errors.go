package scheduler

import "errors"

// Refresher errors
var (
	ErrUnsupportedTarget = errors.New("provider cannot be refreshed")
	ErrNoTargets         = errors.New("no providers to refresh")
	ErrInvalidSchedule   = errors.New("invalid cron schedule")
	ErrStopTimeout       = errors.New("refresher shutdown timed out")
)
