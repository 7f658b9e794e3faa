// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/creatorsync/internal/dedupe"
	"github.com/tomtom215/creatorsync/internal/logging"
	"github.com/tomtom215/creatorsync/internal/models"
	"github.com/tomtom215/creatorsync/internal/validation"
)

// VideoStore writes the all-time canonical video rows.
type VideoStore interface {
	UpsertCreatorVideo(ctx context.Context, v *models.CreatorVideo) (int64, error)
}

// requiredRowFields are the fields a row needs to become a CreatorVideo.
type requiredRowFields struct {
	VideoID  string `json:"video_id" validate:"notblank"`
	Username string `json:"username" validate:"notblank"`
}

// UpsertResult is the outcome of UpsertAllTime.
type UpsertResult struct {
	Stats models.UpsertStats
	// VideoLookup maps external video id to creator_videos.id for every row
	// written in this call.
	VideoLookup map[string]int64
	// RowErr joins the per-row failures. The batch itself never fails on them.
	RowErr error
}

// VideoUpserter writes one canonical CreatorVideo per video id.
type VideoUpserter struct {
	resolver *CreatorResolver
	videos   VideoStore
	linker   *ProductLinker
	rowLog   zerolog.Logger
}

// NewVideoUpserter creates an upserter. Rows failing validation are logged
// through a sampler keeping one in rowLogSample lines.
func NewVideoUpserter(resolver *CreatorResolver, videos VideoStore, linker *ProductLinker, rowLogSample uint32) *VideoUpserter {
	return &VideoUpserter{
		resolver: resolver,
		videos:   videos,
		linker:   linker,
		rowLog:   logging.Sampled("upserter", rowLogSample),
	}
}

// UpsertAllTime merges every window's canonical rows, re-runs Dedupe over
// the union and upserts the winner of each video id. The stored row is
// overwritten with the new values unconditionally.
//
// Rows without a video id or username are skipped and counted. Creator
// resolution and write failures are counted as row errors. Only context
// cancellation aborts the batch.
func (u *VideoUpserter) UpsertAllTime(ctx context.Context, brandID int64, perWindow map[int][]dedupe.CanonicalRow) (*UpsertResult, error) {
	merged := dedupe.Dedupe(dedupe.Flatten(perWindow))

	res := &UpsertResult{VideoLookup: make(map[string]int64, len(merged.Rows))}
	resolver := u.resolver.ForRun()
	var rowErrs []error

	for i := range merged.Rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		row := &merged.Rows[i]

		if verr := validation.ValidateStruct(&requiredRowFields{VideoID: row.VideoID, Username: row.Username}); verr != nil {
			res.Stats.MissingRequiredFields++
			u.rowLog.Warn().
				Str("video_id", row.VideoID).
				Str("username", row.Username).
				Strs("fields", verr.Fields()).
				Msg("Skipping row with missing required fields")
			continue
		}

		id, status, err := u.upsertRow(ctx, resolver, brandID, row)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			res.Stats.RowErrors++
			rowErrs = append(rowErrs, err)
			logging.Ctx(ctx).Error().Err(err).
				Str("video_id", row.VideoID).
				Str("username", row.Username).
				Msg("Failed to upsert video")
			continue
		}

		res.VideoLookup[row.VideoID] = id
		res.Stats.VideosSynced++
		if status == ResolveCreated {
			res.Stats.CreatorsCreated++
		} else {
			res.Stats.CreatorsMatched++
		}

		if u.linker != nil && len(row.Products) > 0 {
			res.Stats.ProductLinks += u.linker.LinkProducts(ctx, brandID, id, row.Products)
		}
	}

	res.RowErr = errors.Join(rowErrs...)
	return res, nil
}

func (u *VideoUpserter) upsertRow(ctx context.Context, resolver *CreatorResolver, brandID int64, row *dedupe.CanonicalRow) (int64, ResolveStatus, error) {
	creator, status, err := resolver.ResolveOrCreate(ctx, brandID, row.Username)
	if err != nil {
		return 0, "", fmt.Errorf("video %s: %w", row.VideoID, err)
	}

	video := models.NewCreatorVideo(brandID, row.VideoID, creator.ID, row.Metrics, row.Details)
	id, err := u.videos.UpsertCreatorVideo(ctx, video)
	if err != nil {
		return 0, "", fmt.Errorf("video %s: %w", row.VideoID, err)
	}
	return id, status, nil
}
