// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/creatorsync/internal/models"
)

// GetLastSuccessfulSync returns when the brand last completed a sync, or nil.
func (db *DB) GetLastSuccessfulSync(ctx context.Context, brandID int64) (*time.Time, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var at sql.NullTime
	err := db.conn.QueryRowContext(ctx,
		`SELECT last_successful_sync_at FROM brand_sync_state WHERE brand_id = ?`, brandID).Scan(&at)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get last successful sync: %w", err)
	}
	return timePtr(at), nil
}

// SetLastSuccessfulSync records a completed sync for the brand.
func (db *DB) SetLastSuccessfulSync(ctx context.Context, brandID int64, at time.Time, runID string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO brand_sync_state (brand_id, last_successful_sync_at, last_run_id, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (brand_id) DO UPDATE SET
			last_successful_sync_at = EXCLUDED.last_successful_sync_at,
			last_run_id = EXCLUDED.last_run_id,
			updated_at = EXCLUDED.updated_at`,
		brandID, at.UTC(), runID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set last successful sync: %w", err)
	}
	return nil
}

// RecordSyncRun inserts or updates one run history row.
func (db *DB) RecordSyncRun(ctx context.Context, run *models.SyncRun) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	windows, err := json.Marshal(run.Windows)
	if err != nil {
		return fmt.Errorf("encode windows: %w", err)
	}
	var stats any
	if run.Stats != nil {
		b, err := json.Marshal(run.Stats)
		if err != nil {
			return fmt.Errorf("encode stats: %w", err)
		}
		stats = string(b)
	}

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO sync_runs (run_id, brand_id, status, windows, started_at, finished_at, stats, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id) DO UPDATE SET
			status = EXCLUDED.status,
			finished_at = EXCLUDED.finished_at,
			stats = EXCLUDED.stats,
			error = EXCLUDED.error`,
		run.RunID, run.BrandID, string(run.Status), string(windows), run.StartedAt.UTC(),
		timeArg(run.FinishedAt), stats, stringArg(run.Error))
	if err != nil {
		return fmt.Errorf("record sync run %s: %w", run.RunID, err)
	}
	return nil
}

// ListSyncRuns returns the most recent runs for a brand, newest first.
func (db *DB) ListSyncRuns(ctx context.Context, brandID int64, limit int) ([]models.SyncRun, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if limit <= 0 {
		limit = 20
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT run_id, brand_id, status, windows, started_at, finished_at, stats, error
		FROM sync_runs
		WHERE brand_id = ?
		ORDER BY started_at DESC
		LIMIT ?`, brandID, limit)
	if err != nil {
		return nil, fmt.Errorf("list sync runs: %w", err)
	}
	defer closeWithLog(rows, "rows")

	runs := []models.SyncRun{}
	for rows.Next() {
		var (
			run        models.SyncRun
			status     string
			windows    string
			finishedAt sql.NullTime
			stats      sql.NullString
			errText    sql.NullString
		)
		if err := rows.Scan(&run.RunID, &run.BrandID, &status, &windows, &run.StartedAt,
			&finishedAt, &stats, &errText); err != nil {
			return nil, fmt.Errorf("scan sync run: %w", err)
		}
		run.Status = models.SyncStatus(status)
		run.FinishedAt = timePtr(finishedAt)
		run.Error = errText.String
		if err := json.Unmarshal([]byte(windows), &run.Windows); err != nil {
			return nil, fmt.Errorf("decode windows for run %s: %w", run.RunID, err)
		}
		if stats.Valid {
			run.Stats = &models.SyncStats{}
			if err := json.Unmarshal([]byte(stats.String), run.Stats); err != nil {
				return nil, fmt.Errorf("decode stats for run %s: %w", run.RunID, err)
			}
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
