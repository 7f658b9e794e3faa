// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package models

import (
	"time"
)

// SyncStatus is the outcome of a sync run.
type SyncStatus string

const (
	// SyncStatusCompleted means every row was written without error.
	SyncStatusCompleted SyncStatus = "completed"
	// SyncStatusPartial means the run finished but some rows failed.
	SyncStatusPartial SyncStatus = "partial"
	// SyncStatusFailed means the run aborted; nothing was written.
	SyncStatusFailed SyncStatus = "failed"
	// SyncStatusRateLimited means the API rate limited the run.
	SyncStatusRateLimited SyncStatus = "rate_limited"
	// SyncStatusCooldown means the run was skipped inside the cooldown window.
	SyncStatusCooldown SyncStatus = "cooldown"
)

// DedupeStats describes duplication and conflicts in one set of raw rows.
type DedupeStats struct {
	TotalRows              int   `json:"total_rows"`
	CanonicalRows          int   `json:"canonical_rows"`
	DuplicateRows          int   `json:"duplicate_rows"`
	ConflictVideoCount     int   `json:"conflict_video_count"`
	MaxGMVDiscrepancyCents int64 `json:"max_gmv_discrepancy_cents"`
	MissingVideoIDRows     int   `json:"missing_video_id_rows"`
}

// Add accumulates other into s. The discrepancy keeps the maximum.
func (s *DedupeStats) Add(other DedupeStats) {
	s.TotalRows += other.TotalRows
	s.CanonicalRows += other.CanonicalRows
	s.DuplicateRows += other.DuplicateRows
	s.ConflictVideoCount += other.ConflictVideoCount
	s.MissingVideoIDRows += other.MissingVideoIDRows
	if other.MaxGMVDiscrepancyCents > s.MaxGMVDiscrepancyCents {
		s.MaxGMVDiscrepancyCents = other.MaxGMVDiscrepancyCents
	}
}

// UpsertStats are the counters produced by the canonical video upsert.
type UpsertStats struct {
	VideosSynced          int `json:"videos_synced"`
	CreatorsCreated       int `json:"creators_created"`
	CreatorsMatched       int `json:"creators_matched"`
	MissingRequiredFields int `json:"missing_required_fields"`
	RowErrors             int `json:"row_errors"`
	ProductLinks          int `json:"product_links"`
}

// SnapshotStats are the per-window snapshot decision counters. A row is
// counted in exactly one of them.
type SnapshotStats struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
	Errors   int `json:"errors"`
}

// WindowStats groups what happened to one window during a run.
type WindowStats struct {
	WindowDays  int           `json:"window_days"`
	RowsFetched int           `json:"rows_fetched"`
	Dedupe      DedupeStats   `json:"dedupe"`
	Snapshots   SnapshotStats `json:"snapshots"`
}

// SyncStats is the result of one RunSync call.
type SyncStats struct {
	RunID                 string        `json:"run_id"`
	BrandID               int64         `json:"brand_id"`
	Status                SyncStatus    `json:"status"`
	Windows               []int         `json:"windows"`
	StartedAt             time.Time     `json:"started_at"`
	FinishedAt            time.Time     `json:"finished_at"`
	VideosSynced          int           `json:"videos_synced"`
	CreatorsCreated       int           `json:"creators_created"`
	CreatorsMatched       int           `json:"creators_matched"`
	MissingRequiredFields int           `json:"missing_required_fields"`
	ProductLinks          int           `json:"product_links"`
	RowsConsidered        int           `json:"rows_considered"`
	RowErrors             int           `json:"row_errors"`
	DuplicateRows         int           `json:"duplicate_rows"`
	// ConflictVideoCount counts distinct video ids across all windows;
	// PerWindow carries the per-window counts.
	ConflictVideoCount    int           `json:"conflict_video_count"`
	MaxConflictGMVCents   int64         `json:"max_conflict_gmv_cents"`
	PerWindow             []WindowStats `json:"per_window"`
	NextAttemptAt         *time.Time    `json:"next_attempt_at,omitempty"`
}

// SyncRun is one row of run history.
type SyncRun struct {
	RunID      string     `json:"run_id"`
	BrandID    int64      `json:"brand_id"`
	Status     SyncStatus `json:"status"`
	Windows    []int      `json:"windows"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Stats      *SyncStats `json:"stats,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// BrandSyncStatus summarizes sync state for one brand.
type BrandSyncStatus struct {
	BrandID              int64      `json:"brand_id"`
	LastSuccessfulSyncAt *time.Time `json:"last_successful_sync_at,omitempty"`
	LastRateLimitedAt    *time.Time `json:"last_rate_limited_at,omitempty"`
	RateLimitStreak      int        `json:"rate_limit_streak"`
	CooldownUntil        *time.Time `json:"cooldown_until,omitempty"`
	InFlight             bool       `json:"in_flight"`
	RecentRuns           []SyncRun  `json:"recent_runs"`
}
