// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tomtom215/creatorsync/internal/config"
	"github.com/tomtom215/creatorsync/internal/logging"
)

// Enqueuer accepts brand sync jobs.
type Enqueuer interface {
	Enqueue(brandID int64, windows []int) (Job, error)
}

// Scheduler enqueues a sync for every configured brand on a cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	enqueuer Enqueuer
	brands   []int64
	windows  []int
	spec     string
}

// NewScheduler parses cfg.Schedule (standard five-field cron, UTC). An empty
// schedule returns a nil scheduler and no error.
func NewScheduler(enqueuer Enqueuer, cfg *config.SyncConfig) (*Scheduler, error) {
	if cfg.Schedule == "" {
		return nil, nil
	}

	s := &Scheduler{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		enqueuer: enqueuer,
		brands:   cfg.Brands,
		windows:  cfg.Windows,
		spec:     cfg.Schedule,
	}
	if _, err := s.cron.AddFunc(cfg.Schedule, s.tick); err != nil {
		return nil, fmt.Errorf("invalid sync schedule %q: %w", cfg.Schedule, err)
	}
	return s, nil
}

// tick enqueues every brand. Brands that still have a job in flight are
// skipped.
func (s *Scheduler) tick() {
	enqueued := 0
	for _, brandID := range s.brands {
		_, err := s.enqueuer.Enqueue(brandID, s.windows)
		switch {
		case err == nil:
			enqueued++
		case errors.Is(err, ErrAlreadyQueued):
			logging.Debug().Int64("brand_id", brandID).Msg("Scheduled sync skipped, job already in flight")
		default:
			logging.Error().Err(err).Int64("brand_id", brandID).Msg("Failed to enqueue scheduled sync")
		}
	}
	logging.Info().Int("enqueued", enqueued).Int("brands", len(s.brands)).Msg("Scheduled sync tick")
}

// Next returns the next scheduled tick.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Serve runs the cron loop until ctx is done.
func (s *Scheduler) Serve(ctx context.Context) error {
	s.cron.Start()
	logging.Info().Str("schedule", s.spec).Int("brands", len(s.brands)).Time("next", s.Next()).Msg("Sync scheduler started")

	<-ctx.Done()

	stopped := s.cron.Stop()
	<-stopped.Done()
	logging.Info().Msg("Sync scheduler stopped")
	return ctx.Err()
}
