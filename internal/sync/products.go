// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package sync

import (
	"context"
	"errors"
	"strings"

	"github.com/tomtom215/creatorsync/internal/database"
	"github.com/tomtom215/creatorsync/internal/logging"
	"github.com/tomtom215/creatorsync/internal/models"
)

// CatalogStore resolves external product ids and records video links.
type CatalogStore interface {
	FindProductByExternalID(ctx context.Context, brandID int64, externalProductID string) (*models.Product, error)
	UpsertVideoProductLink(ctx context.Context, link *models.VideoProductLink) error
}

// ProductLinker associates videos with the products they reference.
type ProductLinker struct {
	store CatalogStore
}

// NewProductLinker creates a linker backed by store.
func NewProductLinker(store CatalogStore) *ProductLinker {
	return &ProductLinker{store: store}
}

// LinkProducts records one link per referenced product and returns how many
// were written. Products not yet in the local catalog are linked by external
// id only. Failures are logged and never returned.
func (l *ProductLinker) LinkProducts(ctx context.Context, brandID, creatorVideoID int64, refs []models.RawProductRef) int {
	written := 0
	for _, ref := range refs {
		externalID := strings.TrimSpace(ref.ExternalID)
		if externalID == "" {
			continue
		}

		link := &models.VideoProductLink{
			CreatorVideoID:    creatorVideoID,
			BrandID:           brandID,
			ExternalProductID: externalID,
		}

		product, err := l.store.FindProductByExternalID(ctx, brandID, externalID)
		switch {
		case err == nil:
			link.ProductID = &product.ID
		case errors.Is(err, database.ErrNotFound):
		default:
			logging.Ctx(ctx).Warn().Err(err).
				Int64("creator_video_id", creatorVideoID).
				Str("product_id", externalID).
				Msg("Product lookup failed, linking by external id")
		}

		if err := l.store.UpsertVideoProductLink(ctx, link); err != nil {
			logging.Ctx(ctx).Warn().Err(err).
				Int64("creator_video_id", creatorVideoID).
				Str("product_id", externalID).
				Msg("Failed to link product")
			continue
		}
		written++
	}
	return written
}
