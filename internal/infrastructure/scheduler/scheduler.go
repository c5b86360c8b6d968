// Package scheduler runs ledger maintenance jobs on a small worker pool and
// triggers them once a day.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// JobExecutor runs the work behind a job
type JobExecutor interface {
	Execute(ctx context.Context, job *Job) error
}

// Config holds worker pool settings. RetryAttempts counts runs after the
// first; the nth retry waits n*RetryDelay.
type Config struct {
	Workers       int
	QueueSize     int
	JobTimeout    time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// DefaultConfig returns the worker pool defaults
func DefaultConfig() Config {
	return Config{
		Workers:       1,
		QueueSize:     16,
		JobTimeout:    30 * time.Minute,
		RetryAttempts: 2,
		RetryDelay:    5 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.QueueSize <= 0 {
		c.QueueSize = d.QueueSize
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = d.JobTimeout
	}
	c.RetryAttempts = max(c.RetryAttempts, 0)
	return c
}

// Scheduler executes submitted jobs on Config.Workers goroutines
type Scheduler struct {
	cfg      Config
	executor JobExecutor
	logger   *zap.Logger

	mu      sync.Mutex
	queue   chan *Job
	running bool
	cancel  context.CancelFunc
	workers *errgroup.Group
	retries map[uuid.UUID]*time.Timer
}

// NewScheduler creates a stopped scheduler
func NewScheduler(cfg Config, executor JobExecutor, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cfg:      cfg.withDefaults(),
		executor: executor,
		logger:   logger,
	}
}

// Start launches the workers. Starting a running scheduler does nothing.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.queue = make(chan *Job, s.cfg.QueueSize)
	s.retries = make(map[uuid.UUID]*time.Timer)
	s.workers = new(errgroup.Group)
	for id := range s.cfg.Workers {
		queue := s.queue
		s.workers.Go(func() error {
			s.work(ctx, id, queue)
			return nil
		})
	}
	s.running = true

	s.logger.Info("Maintenance scheduler started",
		zap.Int("workers", s.cfg.Workers),
		zap.Duration("job_timeout", s.cfg.JobTimeout))
	return nil
}

// Stop drops queued retries, cancels running jobs and waits for the workers
// until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	for _, timer := range s.retries {
		timer.Stop()
	}
	clear(s.retries)
	close(s.queue)
	s.cancel()
	workers := s.workers
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		_ = workers.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Maintenance scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit queues a new job. It fails when the scheduler is stopped or the
// queue is full.
func (s *Scheduler) Submit(jobType JobType) (*Job, error) {
	job := NewJob(jobType)
	if err := s.enqueue(job); err != nil {
		return nil, err
	}
	s.logger.Debug("Job submitted", jobFields(job)...)
	return job, nil
}

func (s *Scheduler) enqueue(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return ErrSchedulerNotRunning
	}
	select {
	case s.queue <- job:
		return nil
	default:
		return ErrJobQueueFull
	}
}

func (s *Scheduler) work(ctx context.Context, id int, queue <-chan *Job) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-queue:
			if !ok {
				return
			}
			s.run(ctx, job, s.logger.With(zap.Int("worker_id", id)))
		}
	}
}

func (s *Scheduler) run(ctx context.Context, job *Job, log *zap.Logger) {
	job.begin(time.Now())
	log.Info("Running job", jobFields(job)...)

	jobCtx, cancel := context.WithTimeout(ctx, s.cfg.JobTimeout)
	err := s.executor.Execute(jobCtx, job)
	cancel()
	job.finish(err, time.Now())

	elapsed := zap.Duration("elapsed", job.FinishedAt.Sub(job.StartedAt))
	if err == nil {
		log.Info("Job succeeded", append(jobFields(job), elapsed)...)
		return
	}
	log.Error("Job failed", append(jobFields(job), elapsed, zap.Error(err))...)
	if ctx.Err() == nil && job.requeue(1+s.cfg.RetryAttempts) {
		s.retryLater(job)
	}
}

func (s *Scheduler) retryLater(job *Job) {
	delay := s.cfg.RetryDelay * time.Duration(job.Attempt)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.retries[job.ID] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.retries, job.ID)
		s.mu.Unlock()
		if err := s.enqueue(job); err != nil {
			s.logger.Warn("Dropped job retry", append(jobFields(job), zap.Error(err))...)
		}
	})
	s.logger.Info("Job retry scheduled", append(jobFields(job), zap.Duration("delay", delay))...)
}

func jobFields(job *Job) []zap.Field {
	return []zap.Field{
		zap.String("job_id", job.ID.String()),
		zap.String("job_type", string(job.Type)),
		zap.Int("attempt", job.Attempt),
	}
}
