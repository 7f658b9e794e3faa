// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tomtom215/creatorsync/internal/models"
)

const snapshotColumns = `brand_id, external_video_id, window_days, snapshot_date, creator_video_id,
	gmv_cents, views, items_sold, gpm_cents, ctr, duration, posted_at, hashtags,
	source_run_id, raw_payload, created_at, updated_at`

const upsertSnapshotSQL = `
	INSERT INTO video_metric_snapshots (` + snapshotColumns + `)
	VALUES (?, ?, ?, CAST(? AS DATE), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (brand_id, external_video_id, window_days, snapshot_date) DO UPDATE SET
		creator_video_id = EXCLUDED.creator_video_id,
		gmv_cents = EXCLUDED.gmv_cents,
		views = EXCLUDED.views,
		items_sold = EXCLUDED.items_sold,
		gpm_cents = EXCLUDED.gpm_cents,
		ctr = EXCLUDED.ctr,
		duration = EXCLUDED.duration,
		posted_at = EXCLUDED.posted_at,
		hashtags = EXCLUDED.hashtags,
		source_run_id = EXCLUDED.source_run_id,
		raw_payload = EXCLUDED.raw_payload,
		updated_at = EXCLUDED.updated_at`

// GetSnapshots returns existing snapshots for one (brand, window, date)
// keyed by external video id, using batched IN lookups.
func (db *DB) GetSnapshots(ctx context.Context, brandID int64, windowDays int, snapshotDate time.Time, externalVideoIDs []string) (map[string]*models.VideoMetricSnapshot, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	out := make(map[string]*models.VideoMetricSnapshot, len(externalVideoIDs))
	for _, chunk := range chunkStrings(externalVideoIDs) {
		args := make([]any, 0, len(chunk)+3)
		args = append(args, brandID, windowDays, dateOnly(snapshotDate))
		for _, id := range chunk {
			args = append(args, id)
		}

		//nolint:gosec // placeholders only, values are bound
		query := fmt.Sprintf(`SELECT %s FROM video_metric_snapshots
			WHERE brand_id = ? AND window_days = ? AND snapshot_date = CAST(? AS DATE)
			AND external_video_id IN (%s)`, snapshotColumns, placeholders(len(chunk)))

		snaps, err := db.querySnapshots(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		for _, s := range snaps {
			out[s.ExternalVideoID] = s
		}
	}
	return out, nil
}

// ListSnapshots returns the snapshot history of one video, oldest first.
func (db *DB) ListSnapshots(ctx context.Context, brandID int64, externalVideoID string) ([]*models.VideoMetricSnapshot, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	return db.querySnapshots(ctx, `SELECT `+snapshotColumns+` FROM video_metric_snapshots
		WHERE brand_id = ? AND external_video_id = ?
		ORDER BY snapshot_date, window_days`, brandID, externalVideoID)
}

func (db *DB) querySnapshots(ctx context.Context, query string, args ...any) ([]*models.VideoMetricSnapshot, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer closeWithLog(rows, "rows")

	var out []*models.VideoMetricSnapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanSnapshot(rows *sql.Rows) (*models.VideoMetricSnapshot, error) {
	var (
		s                                models.VideoMetricSnapshot
		creatorVideoID                   sql.NullInt64
		gmv, views, items, gpm, duration sql.NullInt64
		ctr                              sql.NullFloat64
		postedAt                         sql.NullTime
		tags, raw                        sql.NullString
	)
	if err := rows.Scan(
		&s.BrandID, &s.ExternalVideoID, &s.WindowDays, &s.SnapshotDate, &creatorVideoID,
		&gmv, &views, &items, &gpm, &ctr, &duration, &postedAt, &tags,
		&s.SourceRunID, &raw, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("scan snapshot: %w", err)
	}

	s.SnapshotDate = dateOnly(s.SnapshotDate)
	s.CreatorVideoID = int64Ptr(creatorVideoID)
	s.Metrics = models.MetricSet{
		GMVCents:  int64Ptr(gmv),
		Views:     int64Ptr(views),
		ItemsSold: int64Ptr(items),
		GPMCents:  int64Ptr(gpm),
		CTR:       decimalPtr(ctr),
		Duration:  int64Ptr(duration),
		PostedAt:  timePtr(postedAt),
		HashTags:  hashTagsFrom(tags),
	}
	if raw.Valid {
		s.RawPayload = []byte(raw.String)
	}
	return &s, nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func snapshotArgs(s *models.VideoMetricSnapshot, now time.Time) ([]any, error) {
	tags, err := hashTagsArg(s.Metrics.HashTags)
	if err != nil {
		return nil, fmt.Errorf("encode hashtags: %w", err)
	}
	var raw any
	if len(s.RawPayload) > 0 {
		raw = string(s.RawPayload)
	}
	createdAt := s.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	m := s.Metrics
	return []any{
		s.BrandID, s.ExternalVideoID, s.WindowDays, dateOnly(s.SnapshotDate), int64Arg(s.CreatorVideoID),
		int64Arg(m.GMVCents), int64Arg(m.Views), int64Arg(m.ItemsSold), int64Arg(m.GPMCents),
		decimalArg(m.CTR), int64Arg(m.Duration), timeArg(m.PostedAt), tags,
		s.SourceRunID, raw, createdAt, now,
	}, nil
}

func upsertSnapshot(ctx context.Context, ex execer, s *models.VideoMetricSnapshot, now time.Time) error {
	args, err := snapshotArgs(s, now)
	if err != nil {
		return err
	}
	if _, err := ex.ExecContext(ctx, upsertSnapshotSQL, args...); err != nil {
		return fmt.Errorf("upsert snapshot video=%s window=%d: %w", s.ExternalVideoID, s.WindowDays, err)
	}
	return nil
}

// UpsertSnapshots writes all snapshots in one transaction. Either every row
// is written or none is. Callers must not pass two rows with the same key.
func (db *DB) UpsertSnapshots(ctx context.Context, snaps []*models.VideoMetricSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot batch: %w", err)
	}
	defer rollbackQuietly(tx)

	now := time.Now().UTC()
	for _, s := range snaps {
		if err := upsertSnapshot(ctx, tx, s, now); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot batch: %w", err)
	}
	return nil
}

// UpsertSnapshot writes a single snapshot.
func (db *DB) UpsertSnapshot(ctx context.Context, s *models.VideoMetricSnapshot) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	return upsertSnapshot(ctx, db.conn, s, time.Now().UTC())
}
