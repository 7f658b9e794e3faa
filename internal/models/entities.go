// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

/*
entities.go - Durable Entities

Creator, CreatorVideo and VideoMetricSnapshot are the long-lived rows written
by the reconciliation pipeline. Creator is shared with the broader creator
management subsystem, which may rename creators or move usernames into
PreviousUsernames at any time.

Keys:
  - Creator: ID (username unique case-insensitively)
  - CreatorVideo: (BrandID, ExternalVideoID)
  - VideoMetricSnapshot: (BrandID, ExternalVideoID, WindowDays, SnapshotDate)
  - VideoProductLink: (CreatorVideoID, ExternalProductID)
*/

//nolint:staticcheck // File documentation, not package doc
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Creator is a content creator identity.
type Creator struct {
	ID                int64     `json:"id"`
	Username          string    `json:"username"`
	PreviousUsernames []string  `json:"previous_usernames,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// CreatorVideo is the all-time canonical record of one video for one brand.
type CreatorVideo struct {
	ID              int64            `json:"id"`
	BrandID         int64            `json:"brand_id"`
	ExternalVideoID string           `json:"external_video_id"`
	CreatorID       int64            `json:"creator_id"`
	Title           string           `json:"title,omitempty"`
	URL             string           `json:"url,omitempty"`
	PostedAt        *time.Time       `json:"posted_at,omitempty"`
	GMVCents        *int64           `json:"gmv_cents,omitempty"`
	GPMCents        *int64           `json:"gpm_cents,omitempty"`
	ItemsSold       *int64           `json:"items_sold,omitempty"`
	Impressions     *int64           `json:"impressions,omitempty"`
	CTR             *decimal.Decimal `json:"ctr,omitempty"`
	Duration        *int64           `json:"duration,omitempty"`
	HashTags        []string         `json:"hashtags,omitempty"`
	Likes           *int64           `json:"likes,omitempty"`
	Comments        *int64           `json:"comments,omitempty"`
	Shares          *int64           `json:"shares,omitempty"`
	AffiliateOrders *int64           `json:"affiliate_orders,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// NewCreatorVideo builds the canonical row for a video from its parsed metrics.
func NewCreatorVideo(brandID int64, externalVideoID string, creatorID int64, m MetricSet, d VideoDetails) *CreatorVideo {
	return &CreatorVideo{
		BrandID:         brandID,
		ExternalVideoID: externalVideoID,
		CreatorID:       creatorID,
		Title:           d.Title,
		URL:             d.URL,
		PostedAt:        m.PostedAt,
		GMVCents:        m.GMVCents,
		GPMCents:        m.GPMCents,
		ItemsSold:       m.ItemsSold,
		Impressions:     m.Views,
		CTR:             m.CTR,
		Duration:        m.Duration,
		HashTags:        m.HashTags,
		Likes:           d.Likes,
		Comments:        d.Comments,
		Shares:          d.Shares,
		AffiliateOrders: d.AffiliateOrders,
	}
}

// VideoMetricSnapshot is a dated, per-window copy of a video's metrics.
type VideoMetricSnapshot struct {
	BrandID         int64     `json:"brand_id"`
	ExternalVideoID string    `json:"external_video_id"`
	WindowDays      int       `json:"window_days"`
	SnapshotDate    time.Time `json:"snapshot_date"`
	CreatorVideoID  *int64    `json:"creator_video_id,omitempty"`
	Metrics         MetricSet `json:"metrics"`
	SourceRunID     string    `json:"source_run_id"`
	RawPayload      []byte    `json:"-"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Product is a locally synced catalog product.
type Product struct {
	ID                int64  `json:"id"`
	BrandID           int64  `json:"brand_id"`
	ExternalProductID string `json:"external_product_id"`
	Name              string `json:"name"`
}

// VideoProductLink associates a video with a product. ProductID stays nil
// until the product has been synced locally.
type VideoProductLink struct {
	CreatorVideoID    int64  `json:"creator_video_id"`
	BrandID           int64  `json:"brand_id"`
	ExternalProductID string `json:"external_product_id"`
	ProductID         *int64 `json:"product_id,omitempty"`
}
