package scheduler

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// JobType names a maintenance task
type JobType string

const (
	JobTypeVerifyBalances  JobType = "VERIFY_BALANCES"
	JobTypeRefreshBalances JobType = "REFRESH_BALANCES"
	JobTypeBackup          JobType = "BACKUP"
)

var knownJobTypes = []JobType{JobTypeVerifyBalances, JobTypeRefreshBalances, JobTypeBackup}

// ParseJobTypes parses job type names case-insensitively, keeping the first
// occurrence of each.
func ParseJobTypes(names []string) ([]JobType, error) {
	types := make([]JobType, 0, len(names))
	for _, name := range names {
		jt := JobType(strings.ToUpper(strings.TrimSpace(name)))
		if !slices.Contains(knownJobTypes, jt) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidJobType, name)
		}
		if !slices.Contains(types, jt) {
			types = append(types, jt)
		}
	}
	return types, nil
}

// JobStatus is where a job is in its lifecycle
type JobStatus string

const (
	JobStatusQueued    JobStatus = "QUEUED"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusSucceeded JobStatus = "SUCCEEDED"
	JobStatusFailed    JobStatus = "FAILED"
)

// Job is one submission of a maintenance task. A failed job may be queued
// again; Attempt counts executions including the current one.
type Job struct {
	ID          uuid.UUID
	Type        JobType
	Status      JobStatus
	Attempt     int
	LastError   string
	SubmittedAt time.Time
	StartedAt   time.Time
	FinishedAt  time.Time
}

// NewJob returns a queued job of the given type
func NewJob(jobType JobType) *Job {
	return &Job{
		ID:          uuid.New(),
		Type:        jobType,
		Status:      JobStatusQueued,
		SubmittedAt: time.Now(),
	}
}

func (j *Job) begin(now time.Time) {
	j.Attempt++
	j.Status = JobStatusRunning
	j.StartedAt = now
	j.FinishedAt = time.Time{}
}

func (j *Job) finish(err error, now time.Time) {
	j.FinishedAt = now
	if err != nil {
		j.Status = JobStatusFailed
		j.LastError = err.Error()
		return
	}
	j.Status = JobStatusSucceeded
	j.LastError = ""
}

// requeue reports whether a failed job gets another attempt out of
// maxAttempts and, if so, marks it queued.
func (j *Job) requeue(maxAttempts int) bool {
	if j.Status != JobStatusFailed || j.Attempt >= maxAttempts {
		return false
	}
	j.Status = JobStatusQueued
	return true
}
