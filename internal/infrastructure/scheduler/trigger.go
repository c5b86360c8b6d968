package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Submitter accepts jobs for execution
type Submitter interface {
	Submit(jobType JobType) (*Job, error)
}

// ParseCronSchedule extracts hour and minute from a "minute hour * * *"
// expression. Day, month and weekday fields are ignored.
func ParseCronSchedule(cronExpr string) (hour, minute int, err error) {
	hour, minute = 2, 0

	parts := strings.Fields(cronExpr)
	if len(parts) == 0 {
		return hour, minute, nil
	}
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("%w: %q needs minute and hour fields", ErrInvalidSchedule, cronExpr)
	}

	if parts[0] != "*" {
		if minute, err = strconv.Atoi(parts[0]); err != nil {
			return 0, 0, fmt.Errorf("%w: minute %q", ErrInvalidSchedule, parts[0])
		}
	}
	if parts[1] != "*" {
		if hour, err = strconv.Atoi(parts[1]); err != nil {
			return 0, 0, fmt.Errorf("%w: hour %q", ErrInvalidSchedule, parts[1])
		}
	}

	if minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: minute must be 0-59, got %d", ErrInvalidSchedule, minute)
	}
	if hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: hour must be 0-23, got %d", ErrInvalidSchedule, hour)
	}
	return hour, minute, nil
}

// DailyTrigger submits a fixed set of jobs once a day at a wall-clock time
type DailyTrigger struct {
	hour          int
	minute        int
	jobs          []JobType
	checkInterval time.Duration
	submitter     Submitter
	logger        *zap.Logger
	now           func() time.Time

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	isRunning   bool
	lastRunDate string
}

// NewDailyTrigger creates a trigger from a cron expression
func NewDailyTrigger(schedule string, jobs []JobType, submitter Submitter, logger *zap.Logger) (*DailyTrigger, error) {
	hour, minute, err := ParseCronSchedule(schedule)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DailyTrigger{
		hour:          hour,
		minute:        minute,
		jobs:          jobs,
		checkInterval: time.Minute,
		submitter:     submitter,
		logger:        logger,
		now:           time.Now,
	}, nil
}

// Start starts the check loop
func (t *DailyTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = true
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("Daily maintenance trigger started",
		zap.String("at", fmt.Sprintf("%02d:%02d", t.hour, t.minute)),
		zap.Int("jobs", len(t.jobs)),
	)
	return nil
}

// Stop stops the check loop
func (t *DailyTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *DailyTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.checkAndTrigger()
		}
	}
}

// checkAndTrigger submits the jobs when the clock matches and they have not
// run yet today. It reports whether anything was submitted.
func (t *DailyTrigger) checkAndTrigger() bool {
	now := t.now()
	today := now.Format("2006-01-02")

	t.mu.Lock()
	if t.lastRunDate == today || now.Hour() != t.hour || now.Minute() != t.minute {
		t.mu.Unlock()
		return false
	}
	t.lastRunDate = today
	t.mu.Unlock()

	t.logger.Info("Triggering daily maintenance", zap.String("date", today))
	for _, jobType := range t.jobs {
		if _, err := t.submitter.Submit(jobType); err != nil {
			t.logger.Error("Failed to submit maintenance job",
				zap.String("job_type", string(jobType)),
				zap.Error(err),
			)
		}
	}
	return true
}
