// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/creatorsync/internal/config"
	"github.com/tomtom215/creatorsync/internal/logging"
	"github.com/tomtom215/creatorsync/internal/metrics"
	"github.com/tomtom215/creatorsync/internal/models"
	syncer "github.com/tomtom215/creatorsync/internal/sync"
)

var (
	// ErrAlreadyQueued is returned when a brand already has a job queued,
	// running or snoozed.
	ErrAlreadyQueued = errors.New("sync already queued for brand")

	// ErrQueueFull is returned when the pending queue has no room.
	ErrQueueFull = errors.New("sync job queue is full")
)

const queueCapacity = 1024

// State is where a job is in its lifecycle.
type State string

const (
	StateQueued   State = "queued"
	StateRunning  State = "running"
	StateSnoozed  State = "snoozed"
	StateRetrying State = "retrying"
)

// Outcome is the result of one job attempt.
type Outcome string

const (
	OutcomeDone      Outcome = "done"
	OutcomeSnoozed   Outcome = "snoozed"
	OutcomeRetry     Outcome = "retry"
	OutcomeDiscarded Outcome = "discarded"
)

// Job is one brand sync request.
type Job struct {
	ID         string     `json:"id"`
	BrandID    int64      `json:"brand_id"`
	Windows    []int      `json:"windows,omitempty"`
	State      State      `json:"state"`
	Attempt    int        `json:"attempt"`
	Snoozes    int        `json:"snoozes"`
	EnqueuedAt time.Time  `json:"enqueued_at"`
	NextRunAt  *time.Time `json:"next_run_at,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
}

// SyncRunner runs one sync for a brand.
type SyncRunner interface {
	RunSync(ctx context.Context, brandID int64, windows []int) (*models.SyncStats, error)
}

// Runner executes brand sync jobs on a fixed worker pool. At most one job per
// brand exists at a time, from enqueue until it is done or discarded.
type Runner struct {
	syncer      SyncRunner
	workers     int
	maxAttempts int
	retryDelay  time.Duration

	queue chan *Job
	stop  chan struct{}
	now   func() time.Time

	mu     sync.Mutex
	jobs   map[int64]*Job
	timers map[int64]*time.Timer
	wg     sync.WaitGroup
}

// NewRunner creates a runner from the sync config.
func NewRunner(s SyncRunner, cfg *config.SyncConfig) *Runner {
	workers := cfg.JobWorkers
	if workers < 1 {
		workers = 1
	}
	maxAttempts := cfg.JobMaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Runner{
		syncer:      s,
		workers:     workers,
		maxAttempts: maxAttempts,
		retryDelay:  cfg.JobRetryDelay,
		queue:       make(chan *Job, queueCapacity),
		stop:        make(chan struct{}),
		now:         time.Now,
		jobs:        make(map[int64]*Job),
		timers:      make(map[int64]*time.Timer),
	}
}

// Enqueue adds a sync job for brandID. It fails with ErrAlreadyQueued if the
// brand already has a job in flight.
func (r *Runner) Enqueue(brandID int64, windows []int) (Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[brandID]; ok {
		metrics.JobOutcomes.WithLabelValues("rejected").Inc()
		return Job{}, fmt.Errorf("brand %d: %w", brandID, ErrAlreadyQueued)
	}

	job := &Job{
		ID:         uuid.NewString(),
		BrandID:    brandID,
		Windows:    windows,
		State:      StateQueued,
		EnqueuedAt: r.now().UTC(),
	}
	select {
	case r.queue <- job:
	default:
		return Job{}, ErrQueueFull
	}
	r.jobs[brandID] = job
	metrics.JobsQueued.Set(float64(len(r.jobs)))

	logging.Info().Str("job_id", job.ID).Int64("brand_id", brandID).Ints("windows", windows).Msg("Sync job enqueued")
	return *job, nil
}

// Get returns the in-flight job for brandID.
func (r *Runner) Get(brandID int64) (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[brandID]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// List returns every in-flight job ordered by brand.
func (r *Runner) List() []Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, *j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].BrandID < out[k].BrandID })
	return out
}

// Serve runs the workers until ctx is done. Snoozed and retrying jobs are
// dropped on shutdown.
func (r *Runner) Serve(ctx context.Context) error {
	logging.Info().Int("workers", r.workers).Int("max_attempts", r.maxAttempts).Msg("Sync job runner started")

	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.worker(ctx)
	}

	<-ctx.Done()
	close(r.stop)

	r.mu.Lock()
	for brandID, t := range r.timers {
		t.Stop()
		delete(r.timers, brandID)
	}
	r.mu.Unlock()

	r.wg.Wait()
	logging.Info().Msg("Sync job runner stopped")
	return ctx.Err()
}

func (r *Runner) worker(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-r.queue:
			r.execute(ctx, job)
		}
	}
}

func (r *Runner) execute(ctx context.Context, job *Job) {
	r.mu.Lock()
	job.State = StateRunning
	job.Attempt++
	job.NextRunAt = nil
	snapshot := *job
	r.mu.Unlock()

	stats, err := r.syncer.RunSync(ctx, snapshot.BrandID, snapshot.Windows)
	if ctx.Err() != nil {
		r.finish(job)
		return
	}

	outcome, delay := r.classify(snapshot.Attempt, stats, err)
	metrics.JobOutcomes.WithLabelValues(string(outcome)).Inc()

	log := logging.Ctx(ctx).With().
		Str("job_id", snapshot.ID).
		Int64("brand_id", snapshot.BrandID).
		Int("attempt", snapshot.Attempt).
		Str("outcome", string(outcome)).
		Logger()

	switch outcome {
	case OutcomeDone:
		log.Info().Msg("Sync job done")
		r.finish(job)
	case OutcomeDiscarded:
		log.Error().Err(err).Msg("Sync job discarded after final attempt")
		r.finish(job)
	case OutcomeSnoozed:
		log.Info().Dur("delay", delay).Msg("Sync job snoozed")
		r.reschedule(job, StateSnoozed, delay, err, true)
	case OutcomeRetry:
		log.Warn().Err(err).Dur("delay", delay).Msg("Sync job will retry")
		r.reschedule(job, StateRetrying, delay, err, false)
	}
}

// classify maps a run result to an outcome and the delay before the next
// attempt. Cooldown no-ops and rate limits snooze without using an attempt.
func (r *Runner) classify(attempt int, stats *models.SyncStats, err error) (Outcome, time.Duration) {
	now := r.now()

	var rl *syncer.RateLimitedError
	switch {
	case errors.As(err, &rl):
		return OutcomeSnoozed, nonNegative(rl.NextAttemptAt.Sub(now))
	case err == nil && stats != nil && stats.Status == models.SyncStatusCooldown:
		if stats.NextAttemptAt != nil {
			return OutcomeSnoozed, nonNegative(stats.NextAttemptAt.Sub(now))
		}
		return OutcomeSnoozed, r.retryDelay
	case err == nil:
		return OutcomeDone, 0
	case errors.Is(err, syncer.ErrInvalidWindow), errors.Is(err, syncer.ErrNoBrandAccount), attempt >= r.maxAttempts:
		return OutcomeDiscarded, 0
	default:
		return OutcomeRetry, r.retryDelay << (attempt - 1)
	}
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}

func (r *Runner) reschedule(job *Job, state State, delay time.Duration, err error, snooze bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.now().UTC().Add(delay)
	job.State = state
	job.NextRunAt = &next
	if err != nil {
		job.LastError = err.Error()
	}
	if snooze {
		// A snooze does not count against the attempt budget.
		job.Attempt--
		job.Snoozes++
	}

	r.timers[job.BrandID] = time.AfterFunc(delay, func() {
		r.mu.Lock()
		delete(r.timers, job.BrandID)
		job.State = StateQueued
		r.mu.Unlock()

		select {
		case r.queue <- job:
		case <-r.stop:
		}
	})
}

func (r *Runner) finish(job *Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.timers[job.BrandID]; ok {
		t.Stop()
		delete(r.timers, job.BrandID)
	}
	delete(r.jobs, job.BrandID)
	metrics.JobsQueued.Set(float64(len(r.jobs)))
}
