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

	"github.com/tomtom215/creatorsync/internal/models"
)

// UpsertCreatorVideo inserts the canonical row for (brand, external video id)
// or overwrites every tracked field of the existing row. It returns the row
// id and sets v.ID.
func (db *DB) UpsertCreatorVideo(ctx context.Context, v *models.CreatorVideo) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if v.ExternalVideoID == "" {
		return 0, fmt.Errorf("upsert creator video: external video id is blank")
	}

	tags, err := hashTagsArg(v.HashTags)
	if err != nil {
		return 0, fmt.Errorf("encode hashtags: %w", err)
	}

	now := time.Now().UTC()
	var id int64
	err = db.conn.QueryRowContext(ctx, `
		INSERT INTO creator_videos (
			brand_id, external_video_id, creator_id, title, url, posted_at,
			gmv_cents, gpm_cents, items_sold, impressions, ctr, duration, hashtags,
			likes, comments, shares, affiliate_orders, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (brand_id, external_video_id) DO UPDATE SET
			creator_id = EXCLUDED.creator_id,
			title = EXCLUDED.title,
			url = EXCLUDED.url,
			posted_at = EXCLUDED.posted_at,
			gmv_cents = EXCLUDED.gmv_cents,
			gpm_cents = EXCLUDED.gpm_cents,
			items_sold = EXCLUDED.items_sold,
			impressions = EXCLUDED.impressions,
			ctr = EXCLUDED.ctr,
			duration = EXCLUDED.duration,
			hashtags = EXCLUDED.hashtags,
			likes = EXCLUDED.likes,
			comments = EXCLUDED.comments,
			shares = EXCLUDED.shares,
			affiliate_orders = EXCLUDED.affiliate_orders,
			updated_at = EXCLUDED.updated_at
		RETURNING id`,
		v.BrandID, v.ExternalVideoID, v.CreatorID, stringArg(v.Title), stringArg(v.URL), timeArg(v.PostedAt),
		int64Arg(v.GMVCents), int64Arg(v.GPMCents), int64Arg(v.ItemsSold), int64Arg(v.Impressions),
		decimalArg(v.CTR), int64Arg(v.Duration), tags,
		int64Arg(v.Likes), int64Arg(v.Comments), int64Arg(v.Shares), int64Arg(v.AffiliateOrders),
		now, now,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert creator video brand=%d video=%s: %w", v.BrandID, v.ExternalVideoID, err)
	}

	v.ID = id
	return id, nil
}

// GetCreatorVideo returns the canonical row for a video, or ErrNotFound.
func (db *DB) GetCreatorVideo(ctx context.Context, brandID int64, externalVideoID string) (*models.CreatorVideo, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var (
		v                                       models.CreatorVideo
		title, url, tags                        sql.NullString
		postedAt                                sql.NullTime
		gmv, gpm, items, impressions, duration  sql.NullInt64
		likes, comments, shares, affiliateOrder sql.NullInt64
		ctr                                     sql.NullFloat64
	)
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, brand_id, external_video_id, creator_id, title, url, posted_at,
			gmv_cents, gpm_cents, items_sold, impressions, ctr, duration, hashtags,
			likes, comments, shares, affiliate_orders, created_at, updated_at
		FROM creator_videos
		WHERE brand_id = ? AND external_video_id = ?`, brandID, externalVideoID).Scan(
		&v.ID, &v.BrandID, &v.ExternalVideoID, &v.CreatorID, &title, &url, &postedAt,
		&gmv, &gpm, &items, &impressions, &ctr, &duration, &tags,
		&likes, &comments, &shares, &affiliateOrder, &v.CreatedAt, &v.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get creator video: %w", err)
	}

	v.Title, v.URL = title.String, url.String
	v.PostedAt = timePtr(postedAt)
	v.GMVCents, v.GPMCents, v.ItemsSold = int64Ptr(gmv), int64Ptr(gpm), int64Ptr(items)
	v.Impressions, v.Duration = int64Ptr(impressions), int64Ptr(duration)
	v.CTR = decimalPtr(ctr)
	v.HashTags = hashTagsFrom(tags)
	v.Likes, v.Comments, v.Shares = int64Ptr(likes), int64Ptr(comments), int64Ptr(shares)
	v.AffiliateOrders = int64Ptr(affiliateOrder)
	return &v, nil
}

// FindVideoIDs maps external video ids to creator_videos ids for a brand.
// Ids without a row are absent from the result.
func (db *DB) FindVideoIDs(ctx context.Context, brandID int64, externalVideoIDs []string) (map[string]int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	out := make(map[string]int64, len(externalVideoIDs))
	for _, chunk := range chunkStrings(externalVideoIDs) {
		args := make([]any, 0, len(chunk)+1)
		args = append(args, brandID)
		for _, id := range chunk {
			args = append(args, id)
		}

		//nolint:gosec // placeholders only, values are bound
		query := fmt.Sprintf(`
			SELECT external_video_id, id FROM creator_videos
			WHERE brand_id = ? AND external_video_id IN (%s)`, placeholders(len(chunk)))

		if err := db.scanVideoIDs(ctx, query, args, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (db *DB) scanVideoIDs(ctx context.Context, query string, args []any, out map[string]int64) error {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("find video ids: %w", err)
	}
	defer closeWithLog(rows, "rows")

	for rows.Next() {
		var ext string
		var id int64
		if err := rows.Scan(&ext, &id); err != nil {
			return fmt.Errorf("scan video id: %w", err)
		}
		out[ext] = id
	}
	return rows.Err()
}

// CountCreatorVideos returns the number of canonical videos for a brand.
func (db *DB) CountCreatorVideos(ctx context.Context, brandID int64) (int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var n int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM creator_videos WHERE brand_id = ?`, brandID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count creator videos: %w", err)
	}
	return n, nil
}
