package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingExecutor struct {
	mu       sync.Mutex
	runs     map[JobType]int
	failures int // number of initial calls that fail
}

func newRecordingExecutor(failures int) *recordingExecutor {
	return &recordingExecutor{runs: make(map[JobType]int), failures: failures}
}

func (e *recordingExecutor) Execute(_ context.Context, job *Job) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.runs[job.Type]++
	if e.failures > 0 {
		e.failures--
		return errors.New("boom")
	}
	return nil
}

type executorFunc func(ctx context.Context, job *Job) error

func (f executorFunc) Execute(ctx context.Context, job *Job) error { return f(ctx, job) }

func (e *recordingExecutor) count(jt JobType) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runs[jt]
}

func TestParseJobTypes(t *testing.T) {
	types, err := ParseJobTypes([]string{"verify_balances", " BACKUP ", "VERIFY_BALANCES"})
	require.NoError(t, err)
	assert.Equal(t, []JobType{JobTypeVerifyBalances, JobTypeBackup}, types)

	_, err = ParseJobTypes([]string{"SALES_SUMMARY"})
	assert.ErrorIs(t, err, ErrInvalidJobType)
}

func TestJob_Lifecycle(t *testing.T) {
	job := NewJob(JobTypeBackup)
	assert.Equal(t, JobStatusQueued, job.Status)
	assert.Zero(t, job.Attempt)

	start := time.Date(2024, 5, 10, 2, 0, 0, 0, time.UTC)
	job.begin(start)
	assert.Equal(t, JobStatusRunning, job.Status)
	assert.Equal(t, 1, job.Attempt)

	job.finish(errors.New("disk full"), start.Add(time.Second))
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "disk full", job.LastError)
	assert.Equal(t, time.Second, job.FinishedAt.Sub(job.StartedAt))

	require.True(t, job.requeue(2))
	assert.Equal(t, JobStatusQueued, job.Status)

	job.begin(start.Add(time.Minute))
	assert.True(t, job.FinishedAt.IsZero())
	job.finish(errors.New("disk full"), start.Add(2*time.Minute))
	assert.False(t, job.requeue(2), "attempts exhausted")

	job.begin(start.Add(time.Hour))
	job.finish(nil, start.Add(time.Hour))
	assert.Equal(t, JobStatusSucceeded, job.Status)
	assert.Empty(t, job.LastError)
	assert.False(t, job.requeue(5), "a success is never retried")
}

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{RetryAttempts: -1}.withDefaults()
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, 16, cfg.QueueSize)
	assert.Equal(t, 30*time.Minute, cfg.JobTimeout)
	assert.Zero(t, cfg.RetryAttempts)
}

func TestScheduler_SubmitRequiresStart(t *testing.T) {
	s := NewScheduler(DefaultConfig(), newRecordingExecutor(0), zap.NewNop())

	_, err := s.Submit(JobTypeVerifyBalances)
	assert.ErrorIs(t, err, ErrSchedulerNotRunning)
}

func TestScheduler_RunsSubmittedJobs(t *testing.T) {
	exec := newRecordingExecutor(0)
	s := NewScheduler(Config{Workers: 2, JobTimeout: time.Second}, exec, zap.NewNop())
	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop(context.Background()) }()

	_, err := s.Submit(JobTypeVerifyBalances)
	require.NoError(t, err)
	_, err = s.Submit(JobTypeBackup)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return exec.count(JobTypeVerifyBalances) == 1 && exec.count(JobTypeBackup) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestScheduler_RetriesFailedJobs(t *testing.T) {
	exec := newRecordingExecutor(2)
	s := NewScheduler(Config{
		Workers:       1,
		JobTimeout:    time.Second,
		RetryAttempts: 2,
		RetryDelay:    10 * time.Millisecond,
	}, exec, zap.NewNop())
	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop(context.Background()) }()

	_, err := s.Submit(JobTypeRefreshBalances)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return exec.count(JobTypeRefreshBalances) == 3
	}, 2*time.Second, 10*time.Millisecond)

	// no fourth attempt after a success
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 3, exec.count(JobTypeRefreshBalances))
}

func TestScheduler_QueueFull(t *testing.T) {
	block := make(chan struct{})
	exec := executorFunc(func(ctx context.Context, _ *Job) error {
		select {
		case <-block:
		case <-ctx.Done():
		}
		return nil
	})
	s := NewScheduler(Config{Workers: 1, QueueSize: 1, JobTimeout: time.Second}, exec, nil)
	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop(context.Background()) }()
	defer close(block)

	// the first job occupies the worker, the second fills the queue
	_, err := s.Submit(JobTypeBackup)
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		_, err := s.Submit(JobTypeBackup)
		return err == nil
	}, time.Second, 5*time.Millisecond)

	_, err = s.Submit(JobTypeBackup)
	assert.ErrorIs(t, err, ErrJobQueueFull)
}

func TestScheduler_StopCancelsRunningJobs(t *testing.T) {
	started := make(chan struct{})
	exec := executorFunc(func(ctx context.Context, _ *Job) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	s := NewScheduler(Config{Workers: 1, JobTimeout: time.Hour, RetryAttempts: 3, RetryDelay: time.Millisecond}, exec, nil)
	require.NoError(t, s.Start(context.Background()))

	job, err := s.Submit(JobTypeVerifyBalances)
	require.NoError(t, err)
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.Equal(t, JobStatusFailed, job.Status, "cancelled jobs are not retried")
}

func TestScheduler_StopIsIdempotent(t *testing.T) {
	s := NewScheduler(DefaultConfig(), newRecordingExecutor(0), nil)
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Stop(context.Background()))

	_, err := s.Submit(JobTypeBackup)
	assert.ErrorIs(t, err, ErrSchedulerNotRunning)
}
