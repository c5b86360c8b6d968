package scheduler

import "errors"

var (
	ErrSchedulerNotRunning = errors.New("scheduler: not running")
	ErrJobQueueFull        = errors.New("scheduler: queue full")
	ErrInvalidJobType      = errors.New("scheduler: unknown job type")
	// ErrInvalidSchedule wraps cron parse failures and empty schedules
	ErrInvalidSchedule = errors.New("scheduler: invalid schedule")
)
