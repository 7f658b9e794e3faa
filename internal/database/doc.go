// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

/*
Package database is the DuckDB-backed durable store for CreatorSync.

It holds creators and their brand memberships, the all-time canonical
creator_videos rows, dated per-window video_metric_snapshots, catalog
products and video to product links, and per-brand sync state with run
history.

Every write is an upsert keyed on the entity's natural key, so re-running a
sync with identical input leaves the store unchanged:

	creator_videos          (brand_id, external_video_id)
	video_metric_snapshots  (brand_id, external_video_id, window_days, snapshot_date)
	video_products          (creator_video_id, external_product_id)
	creator_brands          (creator_id, brand_id)

Lookups that feed batch decisions (FindVideoIDs, GetSnapshots) take a slice
of ids and query in chunks with IN lists instead of one query per row.

Errors:
  - ErrNotFound: the looked-up row does not exist
  - ErrConflict: a uniqueness violation on insert (lost creation race)

Usage:

	db, err := database.New(&cfg.Database)
	if err != nil {
	    return err
	}
	defer db.Close()

	creator, err := db.FindCreatorByAnyUsername(ctx, "CreatorX")
	if errors.Is(err, database.ErrNotFound) {
	    creator, err = db.CreateCreator(ctx, "CreatorX")
	}
*/
package database
