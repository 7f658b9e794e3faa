// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

/*
schema.go - Database Schema Management

Tables:
  - creators: creator identities, unique on lowercased username
  - creator_usernames: historical usernames per creator
  - creator_brands: creator to brand membership
  - creator_videos: all-time canonical video rows, unique on (brand_id, external_video_id)
  - video_metric_snapshots: dated per-window metrics,
    keyed by (brand_id, external_video_id, window_days, snapshot_date)
  - products: locally synced catalog products
  - video_products: video to product links, product_id NULL until the product is synced
  - brand_sync_state: last successful sync per brand
  - sync_runs: run history with stats JSON

Columns assigned by ON CONFLICT DO UPDATE must not be indexed; DuckDB
rejects the upsert otherwise. Identifiers come from sequences. Timestamps are
written by the application in UTC.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the core database tables
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}

	return nil
}

// createIndexes creates secondary indexes
func (db *DB) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range indexCreationQueries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create index: %s: %w", query, err)
		}
	}

	return nil
}

var tableCreationQueries = []string{
	`CREATE SEQUENCE IF NOT EXISTS creators_id_seq START 1`,
	`CREATE TABLE IF NOT EXISTS creators (
		id BIGINT PRIMARY KEY DEFAULT nextval('creators_id_seq'),
		username VARCHAR NOT NULL,
		username_key VARCHAR NOT NULL UNIQUE,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS creator_usernames (
		creator_id BIGINT NOT NULL,
		username VARCHAR NOT NULL,
		username_key VARCHAR NOT NULL,
		PRIMARY KEY (creator_id, username_key)
	)`,
	`CREATE TABLE IF NOT EXISTS creator_brands (
		creator_id BIGINT NOT NULL,
		brand_id BIGINT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		PRIMARY KEY (creator_id, brand_id)
	)`,

	`CREATE SEQUENCE IF NOT EXISTS creator_videos_id_seq START 1`,
	`CREATE TABLE IF NOT EXISTS creator_videos (
		id BIGINT PRIMARY KEY DEFAULT nextval('creator_videos_id_seq'),
		brand_id BIGINT NOT NULL,
		external_video_id VARCHAR NOT NULL,
		creator_id BIGINT NOT NULL,
		title VARCHAR,
		url VARCHAR,
		posted_at TIMESTAMP,
		gmv_cents BIGINT,
		gpm_cents BIGINT,
		items_sold BIGINT,
		impressions BIGINT,
		ctr DOUBLE,
		duration BIGINT,
		hashtags VARCHAR,
		likes BIGINT,
		comments BIGINT,
		shares BIGINT,
		affiliate_orders BIGINT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		UNIQUE (brand_id, external_video_id)
	)`,

	`CREATE TABLE IF NOT EXISTS video_metric_snapshots (
		brand_id BIGINT NOT NULL,
		external_video_id VARCHAR NOT NULL,
		window_days INTEGER NOT NULL,
		snapshot_date DATE NOT NULL,
		creator_video_id BIGINT,
		gmv_cents BIGINT,
		views BIGINT,
		items_sold BIGINT,
		gpm_cents BIGINT,
		ctr DOUBLE,
		duration BIGINT,
		posted_at TIMESTAMP,
		hashtags VARCHAR,
		source_run_id VARCHAR NOT NULL,
		raw_payload VARCHAR,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (brand_id, external_video_id, window_days, snapshot_date)
	)`,

	`CREATE SEQUENCE IF NOT EXISTS products_id_seq START 1`,
	`CREATE TABLE IF NOT EXISTS products (
		id BIGINT PRIMARY KEY DEFAULT nextval('products_id_seq'),
		brand_id BIGINT NOT NULL,
		external_product_id VARCHAR NOT NULL,
		name VARCHAR,
		UNIQUE (brand_id, external_product_id)
	)`,
	`CREATE TABLE IF NOT EXISTS video_products (
		creator_video_id BIGINT NOT NULL,
		external_product_id VARCHAR NOT NULL,
		brand_id BIGINT NOT NULL,
		product_id BIGINT,
		created_at TIMESTAMP NOT NULL,
		PRIMARY KEY (creator_video_id, external_product_id)
	)`,

	`CREATE TABLE IF NOT EXISTS brand_sync_state (
		brand_id BIGINT PRIMARY KEY,
		last_successful_sync_at TIMESTAMP,
		last_run_id VARCHAR,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sync_runs (
		run_id VARCHAR PRIMARY KEY,
		brand_id BIGINT NOT NULL,
		status VARCHAR NOT NULL,
		windows VARCHAR NOT NULL,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP,
		stats VARCHAR,
		error VARCHAR
	)`,
}

var indexCreationQueries = []string{
	`CREATE INDEX IF NOT EXISTS idx_creator_usernames_key ON creator_usernames(username_key)`,
	`CREATE INDEX IF NOT EXISTS idx_snapshots_window_date ON video_metric_snapshots(brand_id, window_days, snapshot_date)`,
	`CREATE INDEX IF NOT EXISTS idx_video_products_unresolved ON video_products(brand_id, external_product_id)`,
	`CREATE INDEX IF NOT EXISTS idx_sync_runs_brand ON sync_runs(brand_id, started_at)`,
}
