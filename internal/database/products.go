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

// FindProductByExternalID returns the local catalog product, or ErrNotFound
// when the product has not been synced yet.
func (db *DB) FindProductByExternalID(ctx context.Context, brandID int64, externalProductID string) (*models.Product, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var p models.Product
	var name sql.NullString
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, brand_id, external_product_id, name
		FROM products
		WHERE brand_id = ? AND external_product_id = ?`, brandID, externalProductID).
		Scan(&p.ID, &p.BrandID, &p.ExternalProductID, &name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find product: %w", err)
	}
	p.Name = name.String
	return &p, nil
}

// UpsertProduct writes a catalog product. Used by catalog sync and tests.
func (db *DB) UpsertProduct(ctx context.Context, p *models.Product) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var id int64
	err := db.conn.QueryRowContext(ctx, `
		INSERT INTO products (brand_id, external_product_id, name)
		VALUES (?, ?, ?)
		ON CONFLICT (brand_id, external_product_id) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`, p.BrandID, p.ExternalProductID, stringArg(p.Name)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert product %s: %w", p.ExternalProductID, err)
	}
	p.ID = id
	return id, nil
}

// UpsertVideoProductLink records a video to product association. A known
// product id is never replaced by NULL.
func (db *DB) UpsertVideoProductLink(ctx context.Context, link *models.VideoProductLink) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO video_products (creator_video_id, external_product_id, brand_id, product_id, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (creator_video_id, external_product_id) DO UPDATE SET
			product_id = COALESCE(EXCLUDED.product_id, video_products.product_id)`,
		link.CreatorVideoID, link.ExternalProductID, link.BrandID, int64Arg(link.ProductID), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("link video %d to product %s: %w", link.CreatorVideoID, link.ExternalProductID, err)
	}
	return nil
}

// ListVideoProductLinks returns the links of one video ordered by external id.
func (db *DB) ListVideoProductLinks(ctx context.Context, creatorVideoID int64) ([]models.VideoProductLink, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT creator_video_id, brand_id, external_product_id, product_id
		FROM video_products
		WHERE creator_video_id = ?
		ORDER BY external_product_id`, creatorVideoID)
	if err != nil {
		return nil, fmt.Errorf("list video product links: %w", err)
	}
	defer closeWithLog(rows, "rows")

	var links []models.VideoProductLink
	for rows.Next() {
		var l models.VideoProductLink
		var productID sql.NullInt64
		if err := rows.Scan(&l.CreatorVideoID, &l.BrandID, &l.ExternalProductID, &productID); err != nil {
			return nil, fmt.Errorf("scan video product link: %w", err)
		}
		l.ProductID = int64Ptr(productID)
		links = append(links, l)
	}
	return links, rows.Err()
}

// BackfillProductLinks resolves links recorded before their product was
// synced. It returns the number of links updated.
func (db *DB) BackfillProductLinks(ctx context.Context, brandID int64) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx, `
		UPDATE video_products
		SET product_id = p.id
		FROM products p
		WHERE video_products.brand_id = ?
		  AND video_products.product_id IS NULL
		  AND p.brand_id = video_products.brand_id
		  AND p.external_product_id = video_products.external_product_id`, brandID)
	if err != nil {
		return 0, fmt.Errorf("backfill product links: %w", err)
	}
	return res.RowsAffected()
}
