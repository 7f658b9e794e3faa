// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

/*
manager.go - Sync Run Orchestration

RunSync is the single entry point of the reconciliation pipeline. One call
processes one brand:

 1. Refuse to start while the brand is inside its rate-limit cooldown.
 2. Fetch every window before anything is written. A rate limit here records
    the streak and returns *RateLimitedError; other fetch errors fail the run.
 3. Dedupe each window, in ascending window order.
 4. Upsert the all-time canonical videos from the union of windows.
 5. Persist one dated snapshot set per window.
 6. Reset the streak, record the last successful sync and the run history.

Runs for the same brand must not overlap. The job runner enforces this; the
manager only tracks which brands are in flight for status reporting.
*/

//nolint:staticcheck // File documentation, not package doc
package sync

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/tomtom215/creatorsync/internal/config"
	"github.com/tomtom215/creatorsync/internal/cooldown"
	"github.com/tomtom215/creatorsync/internal/dedupe"
	"github.com/tomtom215/creatorsync/internal/logging"
	"github.com/tomtom215/creatorsync/internal/metrics"
	"github.com/tomtom215/creatorsync/internal/models"
	"github.com/tomtom215/creatorsync/internal/validation"
)

const recentRunsLimit = 10

// Store is every persistence operation a sync run needs.
type Store interface {
	CreatorStore
	CatalogStore
	VideoStore
	SnapshotStore
	GetLastSuccessfulSync(ctx context.Context, brandID int64) (*time.Time, error)
	SetLastSuccessfulSync(ctx context.Context, brandID int64, at time.Time, runID string) error
	RecordSyncRun(ctx context.Context, run *models.SyncRun) error
	ListSyncRuns(ctx context.Context, brandID int64, limit int) ([]models.SyncRun, error)
}

// CooldownStore holds the persisted per-brand rate-limit state.
type CooldownStore interface {
	GetLastRateLimitedAt(ctx context.Context, brandID int64) (*time.Time, error)
	RecordRateLimit(ctx context.Context, brandID int64, at time.Time) (int, error)
	ResetRateLimitStreak(ctx context.Context, brandID int64) error
	State(ctx context.Context, brandID int64) (cooldown.State, error)
}

// LifecyclePublisher receives run lifecycle notifications.
type LifecyclePublisher interface {
	PublishStarted(ctx context.Context, runID string, brandID int64, windows []int) error
	PublishCompleted(ctx context.Context, stats *models.SyncStats) error
	PublishFailed(ctx context.Context, run *models.SyncRun) error
}

// Manager runs syncs for brands.
type Manager struct {
	fetcher   Fetcher
	store     Store
	cooldowns CooldownStore
	publisher LifecyclePublisher
	cfg       *config.Config
	policy    cooldown.Policy

	upserter  *VideoUpserter
	persister *SnapshotPersister

	now func() time.Time

	mu       sync.Mutex
	inFlight map[int64]bool
}

// NewManager wires the pipeline components. publisher may be nil.
func NewManager(fetcher Fetcher, store Store, cooldowns CooldownStore, publisher LifecyclePublisher, cfg *config.Config) *Manager {
	resolver := NewCreatorResolver(store)
	linker := NewProductLinker(store)

	m := &Manager{
		fetcher:   fetcher,
		store:     store,
		cooldowns: cooldowns,
		publisher: publisher,
		cfg:       cfg,
		policy: cooldown.Policy{
			Window:  cfg.Sync.RateLimitCooldown,
			Initial: cfg.Sync.BackoffInitial,
			Max:     cfg.Sync.BackoffMax,
		},
		upserter:  NewVideoUpserter(resolver, store, linker, cfg.Sync.RowLogSample),
		persister: NewSnapshotPersister(store),
		now:       time.Now,
		inFlight:  make(map[int64]bool),
	}

	logging.Info().
		Ints("windows", cfg.Sync.Windows).
		Dur("rate_limit_cooldown", cfg.Sync.RateLimitCooldown).
		Dur("backoff_initial", cfg.Sync.BackoffInitial).
		Dur("backoff_max", cfg.Sync.BackoffMax).
		Msg("Sync manager config loaded")

	return m
}

// SetClock replaces the wall clock. Tests only.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// Policy returns the cooldown policy in effect.
func (m *Manager) Policy() cooldown.Policy {
	return m.policy
}

// normalizeWindows defaults, validates, sorts and dedupes window lengths.
func (m *Manager) normalizeWindows(windows []int) ([]int, error) {
	if len(windows) == 0 {
		windows = m.cfg.Sync.Windows
	}
	if len(windows) == 0 {
		return nil, fmt.Errorf("%w: no windows configured", ErrInvalidWindow)
	}
	for _, w := range windows {
		if w < 1 || w > validation.MaxWindowDays {
			return nil, fmt.Errorf("%w: %d days", ErrInvalidWindow, w)
		}
	}
	out := lo.Uniq(windows)
	slices.Sort(out)
	return out, nil
}

// windowRange returns the date range of a trailing window ending today.
func windowRange(now time.Time, days int) (time.Time, time.Time) {
	end := dateOf(now)
	return end.AddDate(0, 0, -days), end
}

func (m *Manager) markInFlight(brandID int64, running bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if running {
		m.inFlight[brandID] = true
	} else {
		delete(m.inFlight, brandID)
	}
}

// IsInFlight reports whether a run for brandID is executing in this process.
func (m *Manager) IsInFlight(brandID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inFlight[brandID]
}

// RunSync runs the reconciliation pipeline for one brand. An empty windows
// slice uses the configured windows.
//
// A brand inside its cooldown returns stats with Status cooldown and a nil
// error, without calling the API. A rate-limited run returns the stats and a
// *RateLimitedError. Other fatal errors are returned with Status failed.
// Row-level failures never fail the run; they yield Status partial.
func (m *Manager) RunSync(ctx context.Context, brandID int64, windows []int) (*models.SyncStats, error) {
	windows, err := m.normalizeWindows(windows)
	if err != nil {
		return nil, err
	}
	brandAccount, ok := m.cfg.BrandAccount(brandID)
	if !ok {
		return nil, fmt.Errorf("%w: brand %d", ErrNoBrandAccount, brandID)
	}

	runID := uuid.NewString()
	ctx = logging.ContextWithRun(ctx, runID, brandID)
	log := logging.Ctx(ctx)

	m.markInFlight(brandID, true)
	defer m.markInFlight(brandID, false)

	startedAt := m.now().UTC()
	stats := &models.SyncStats{
		RunID:     runID,
		BrandID:   brandID,
		Windows:   windows,
		StartedAt: startedAt,
	}

	lastLimited, err := m.cooldowns.GetLastRateLimitedAt(ctx, brandID)
	if err != nil {
		return m.fail(ctx, stats, fmt.Errorf("read cooldown state: %w", err))
	}
	if active, until := m.policy.Active(lastLimited, startedAt); active {
		stats.Status = models.SyncStatusCooldown
		stats.NextAttemptAt = &until
		stats.FinishedAt = startedAt
		m.recordRun(ctx, stats, "")
		metrics.RecordSyncRun(brandID, string(stats.Status), 0, 0, 0, false)
		log.Info().Time("cooldown_until", until).Msg("Brand in rate-limit cooldown, skipping run")
		return stats, nil
	}

	if m.cfg.Sync.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.Sync.RunTimeout)
		defer cancel()
	}

	m.publishStarted(ctx, runID, brandID, windows)
	log.Info().Ints("windows", windows).Msg("Sync run started")

	account := Account{
		BrandID:     brandID,
		AccessToken: brandAccount.AccessToken,
		AccountType: brandAccount.AccountType,
	}
	raw := make(map[int][]models.RawRow, len(windows))
	for _, w := range windows {
		start, end := windowRange(startedAt, w)
		rows, err := m.fetcher.FetchWindow(ctx, account, start, end)
		if err != nil {
			if IsRateLimited(err) {
				return m.rateLimited(ctx, stats)
			}
			return m.fail(ctx, stats, fmt.Errorf("fetch %d day window: %w", w, err))
		}
		raw[w] = rows
		log.Debug().Int("window_days", w).Int("rows", len(rows)).Msg("Fetched window")
	}

	perWindow := make(map[int][]dedupe.CanonicalRow, len(windows))
	stats.PerWindow = make([]models.WindowStats, 0, len(windows))
	var total models.DedupeStats
	// A video that conflicts in several windows is one conflicting video.
	conflicting := make(map[string]struct{})
	for _, w := range windows {
		res := dedupe.Dedupe(raw[w])
		perWindow[w] = res.Rows
		total.Add(res.Stats)
		for _, id := range res.ConflictVideoIDs {
			conflicting[id] = struct{}{}
		}
		stats.PerWindow = append(stats.PerWindow, models.WindowStats{
			WindowDays:  w,
			RowsFetched: len(raw[w]),
			Dedupe:      res.Stats,
		})
		metrics.RecordDedupe(w, len(raw[w]), res.Stats.DuplicateRows, res.Stats.ConflictVideoCount, res.Stats.MaxGMVDiscrepancyCents)
		if res.Stats.ConflictVideoCount > 0 {
			log.Warn().
				Int("window_days", w).
				Int("conflict_videos", res.Stats.ConflictVideoCount).
				Int64("max_gmv_discrepancy_cents", res.Stats.MaxGMVDiscrepancyCents).
				Msg("Analytics API returned conflicting duplicates")
		}
	}
	stats.DuplicateRows = total.DuplicateRows
	stats.ConflictVideoCount = len(conflicting)
	stats.MaxConflictGMVCents = total.MaxGMVDiscrepancyCents

	upserted, err := m.upserter.UpsertAllTime(ctx, brandID, perWindow)
	if err != nil {
		return m.fail(ctx, stats, fmt.Errorf("upsert videos: %w", err))
	}
	us := upserted.Stats
	stats.VideosSynced = us.VideosSynced
	stats.CreatorsCreated = us.CreatorsCreated
	stats.CreatorsMatched = us.CreatorsMatched
	stats.MissingRequiredFields = us.MissingRequiredFields
	stats.ProductLinks = us.ProductLinks
	stats.RowsConsidered = us.VideosSynced + us.MissingRequiredFields + us.RowErrors
	stats.RowErrors = us.RowErrors

	for i, w := range windows {
		snap, err := m.persister.PersistWindow(ctx, WindowSnapshotInput{
			BrandID:      brandID,
			WindowDays:   w,
			Rows:         perWindow[w],
			VideoLookup:  upserted.VideoLookup,
			SnapshotDate: startedAt,
			SourceRunID:  runID,
		})
		if err != nil {
			if ctx.Err() != nil {
				return m.fail(ctx, stats, ctx.Err())
			}
			// Lookups failed before any write; every row the persister would
			// have considered is lost. Rows without a video id never are.
			snap.Errors = lo.CountBy(perWindow[w], func(r dedupe.CanonicalRow) bool { return r.VideoID != "" })
			log.Error().Err(err).Int("window_days", w).Msg("Failed to persist window snapshots")
		}
		stats.PerWindow[i].Snapshots = snap
		stats.RowErrors += snap.Errors
	}

	finishedAt := m.now().UTC()
	stats.FinishedAt = finishedAt
	stats.Status = models.SyncStatusCompleted
	if stats.RowErrors > 0 {
		stats.Status = models.SyncStatusPartial
	}

	bg := context.WithoutCancel(ctx)
	if err := m.cooldowns.ResetRateLimitStreak(bg, brandID); err != nil {
		log.Warn().Err(err).Msg("Failed to reset rate-limit streak")
	}
	metrics.SetRateLimitStreak(brandID, 0)
	if err := m.store.SetLastSuccessfulSync(bg, brandID, finishedAt, runID); err != nil {
		log.Error().Err(err).Msg("Failed to record last successful sync")
	}
	m.recordRun(bg, stats, "")
	m.publishCompleted(bg, stats)

	duration := finishedAt.Sub(startedAt)
	metrics.RecordSyncRun(brandID, string(stats.Status), duration, stats.VideosSynced, stats.RowErrors, true)
	log.Info().
		Str("status", string(stats.Status)).
		Int("videos_synced", stats.VideosSynced).
		Int("creators_created", stats.CreatorsCreated).
		Int("creators_matched", stats.CreatorsMatched).
		Int("duplicate_rows", stats.DuplicateRows).
		Int("conflict_videos", stats.ConflictVideoCount).
		Int("row_errors", stats.RowErrors).
		Int("rows_considered", stats.RowsConsidered).
		Dur("duration", duration).
		Msg("Sync run finished")
	if upserted.RowErr != nil {
		log.Debug().Err(upserted.RowErr).Msg("Row errors")
	}

	return stats, nil
}

// rateLimited escalates the persisted streak and reports when to retry.
func (m *Manager) rateLimited(ctx context.Context, stats *models.SyncStats) (*models.SyncStats, error) {
	bg := context.WithoutCancel(ctx)
	now := m.now().UTC()

	streak, err := m.cooldowns.RecordRateLimit(bg, stats.BrandID, now)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Failed to persist rate limit")
		streak = 1
	}
	delay := m.policy.Backoff(streak)
	next := now.Add(delay)

	rlErr := &RateLimitedError{
		BrandID:       stats.BrandID,
		Streak:        streak,
		RetryAfter:    delay,
		NextAttemptAt: next,
	}

	stats.Status = models.SyncStatusRateLimited
	stats.FinishedAt = now
	stats.NextAttemptAt = &next

	run := m.recordRun(bg, stats, rlErr.Error())
	m.publishFailed(bg, run)
	metrics.SetRateLimitStreak(stats.BrandID, streak)
	metrics.RecordSyncRun(stats.BrandID, string(stats.Status), now.Sub(stats.StartedAt), 0, 0, false)

	logging.Ctx(ctx).Warn().
		Int("streak", streak).
		Dur("retry_after", delay).
		Time("next_attempt_at", next).
		Msg("Analytics API rate limited the run")
	return stats, rlErr
}

// fail records a run that changed nothing it could not keep.
func (m *Manager) fail(ctx context.Context, stats *models.SyncStats, err error) (*models.SyncStats, error) {
	bg := context.WithoutCancel(ctx)
	now := m.now().UTC()
	stats.Status = models.SyncStatusFailed
	stats.FinishedAt = now

	run := m.recordRun(bg, stats, err.Error())
	m.publishFailed(bg, run)
	metrics.RecordSyncRun(stats.BrandID, string(stats.Status), now.Sub(stats.StartedAt), 0, 0, false)

	logging.Ctx(ctx).Error().Err(err).Msg("Sync run failed")
	return stats, err
}

func (m *Manager) recordRun(ctx context.Context, stats *models.SyncStats, errText string) *models.SyncRun {
	finished := stats.FinishedAt
	run := &models.SyncRun{
		RunID:      stats.RunID,
		BrandID:    stats.BrandID,
		Status:     stats.Status,
		Windows:    stats.Windows,
		StartedAt:  stats.StartedAt,
		FinishedAt: &finished,
		Stats:      stats,
		Error:      errText,
	}
	if err := m.store.RecordSyncRun(ctx, run); err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Failed to record sync run")
	}
	return run
}

func (m *Manager) publishStarted(ctx context.Context, runID string, brandID int64, windows []int) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.PublishStarted(ctx, runID, brandID, windows); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to publish sync started event")
	}
}

func (m *Manager) publishCompleted(ctx context.Context, stats *models.SyncStats) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.PublishCompleted(ctx, stats); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to publish sync completed event")
	}
}

func (m *Manager) publishFailed(ctx context.Context, run *models.SyncRun) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.PublishFailed(ctx, run); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to publish sync failed event")
	}
}

// Status reports the sync state of a brand.
func (m *Manager) Status(ctx context.Context, brandID int64) (*models.BrandSyncStatus, error) {
	last, err := m.store.GetLastSuccessfulSync(ctx, brandID)
	if err != nil {
		return nil, fmt.Errorf("last successful sync: %w", err)
	}
	st, err := m.cooldowns.State(ctx, brandID)
	if err != nil {
		return nil, fmt.Errorf("cooldown state: %w", err)
	}
	runs, err := m.store.ListSyncRuns(ctx, brandID, recentRunsLimit)
	if err != nil {
		return nil, fmt.Errorf("recent runs: %w", err)
	}

	status := &models.BrandSyncStatus{
		BrandID:              brandID,
		LastSuccessfulSyncAt: last,
		LastRateLimitedAt:    st.LastRateLimitedAt,
		RateLimitStreak:      st.Streak,
		InFlight:             m.IsInFlight(brandID),
		RecentRuns:           runs,
	}
	if active, until := m.policy.Active(st.LastRateLimitedAt, m.now().UTC()); active {
		status.CooldownUntil = &until
	}
	return status, nil
}
