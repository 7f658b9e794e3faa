// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawRow is one untyped record as returned by the analytics API for one
// window. It only lives for the duration of a sync run.
type RawRow map[string]any

// MetricSet is the typed view of a RawRow's performance metrics. Every field
// is optional; nil means the API did not report a parseable value, which is
// different from a reported zero.
type MetricSet struct {
	GMVCents  *int64           `json:"gmv_cents,omitempty"`
	Views     *int64           `json:"views,omitempty"`
	ItemsSold *int64           `json:"items_sold,omitempty"`
	GPMCents  *int64           `json:"gpm_cents,omitempty"`
	CTR       *decimal.Decimal `json:"ctr,omitempty"`
	Duration  *int64           `json:"duration,omitempty"`
	PostedAt  *time.Time       `json:"posted_at,omitempty"`
	HashTags  []string         `json:"hash_tags,omitempty"`
}

// GMVOrZero returns GMV in cents, treating an absent value as 0.
func (m MetricSet) GMVOrZero() int64 { return valueOrZero(m.GMVCents) }

// ViewsOrZero returns views, treating an absent value as 0.
func (m MetricSet) ViewsOrZero() int64 { return valueOrZero(m.Views) }

// ItemsSoldOrZero returns items sold, treating an absent value as 0.
func (m MetricSet) ItemsSoldOrZero() int64 { return valueOrZero(m.ItemsSold) }

// Completeness counts the non-null metric fields.
func (m MetricSet) Completeness() int {
	n := 0
	for _, present := range []bool{
		m.GMVCents != nil,
		m.Views != nil,
		m.ItemsSold != nil,
		m.GPMCents != nil,
		m.CTR != nil,
		m.Duration != nil,
		m.PostedAt != nil,
		m.HashTags != nil,
	} {
		if present {
			n++
		}
	}
	return n
}

func valueOrZero(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

// VideoDetails holds descriptive and engagement fields that are stored on the
// canonical video but take no part in quality scoring.
type VideoDetails struct {
	Title           string `json:"title,omitempty"`
	URL             string `json:"url,omitempty"`
	Likes           *int64 `json:"likes,omitempty"`
	Comments        *int64 `json:"comments,omitempty"`
	Shares          *int64 `json:"shares,omitempty"`
	AffiliateOrders *int64 `json:"affiliate_orders,omitempty"`
}

// RawProductRef is a catalog product referenced from a raw analytics row.
type RawProductRef struct {
	ExternalID string `json:"external_id"`
	Name       string `json:"name,omitempty"`
}
