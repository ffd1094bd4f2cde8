// Package jobs records ingestion jobs and enforces their status transitions.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperjump/shiori/internal/models"
)

// Ledger stores one record per ingestion attempt.
//
// A job starts as processing and moves exactly once to completed or failed.
// UpdateJob on a job that already reached a terminal status returns
// models.ErrInvalidTransition. Missing jobs return models.ErrJobNotFound.
type Ledger interface {
	CreateJob(ctx context.Context, id, sourceType string) (*models.Job, error)
	UpdateJob(ctx context.Context, id string, upd models.JobUpdate) (*models.Job, error)
	GetJob(ctx context.Context, id string) (*models.Job, error)
	// Backend names the storage in use: mongo, sqlite or memory.
	Backend() string
	Close() error
}

// Option configures a ledger.
type Option func(*ledgerOptions)

type ledgerOptions struct {
	now func() time.Time
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *ledgerOptions) {
		o.now = now
	}
}

func buildOptions(opts []Option) ledgerOptions {
	o := ledgerOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// timestamp truncates t to the millisecond precision every backend can store.
func timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// nextTimestamp returns the updated_at for a mutation read at now, strictly
// after prev even when the clock has not advanced.
func nextTimestamp(now, prev time.Time) time.Time {
	ts := timestamp(now)
	if !ts.After(prev) {
		ts = prev.Add(time.Millisecond)
	}
	return ts
}

func newJob(id, sourceType string, now time.Time) *models.Job {
	ts := timestamp(now)
	return &models.Job{
		ID:         id,
		SourceType: sourceType,
		Status:     models.JobProcessing,
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}
}

// apply merges upd into job and refreshes UpdatedAt.
func apply(job *models.Job, upd models.JobUpdate, now time.Time) error {
	if job.Status.Terminal() {
		return fmt.Errorf("%w: job %s is already %s", models.ErrInvalidTransition, job.ID, job.Status)
	}
	if upd.Status != nil {
		switch *upd.Status {
		case models.JobProcessing, models.JobCompleted, models.JobFailed:
		default:
			return fmt.Errorf("%w: unknown status %q", models.ErrInvalidTransition, *upd.Status)
		}
		job.Status = *upd.Status
	}
	if upd.Stats != nil {
		job.Stats = cloneStats(*upd.Stats)
	}
	if upd.Error != nil {
		msg := *upd.Error
		job.Error = &msg
	}
	job.UpdatedAt = nextTimestamp(now, job.UpdatedAt)
	return nil
}

func cloneStats(s models.JobStats) models.JobStats {
	if s.Tokens != nil {
		n := *s.Tokens
		s.Tokens = &n
	}
	return s
}

func cloneJob(j *models.Job) *models.Job {
	c := *j
	c.Stats = cloneStats(j.Stats)
	if j.Error != nil {
		msg := *j.Error
		c.Error = &msg
	}
	return &c
}

func notFound(id string) error {
	return fmt.Errorf("%w: %s", models.ErrJobNotFound, id)
}
