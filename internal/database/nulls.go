// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package database

import (
	"database/sql"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// lookupChunkSize bounds the number of parameters in one IN (...) list.
const lookupChunkSize = 500

func int64Arg(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func timeArg(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.UTC()
}

func decimalArg(v *decimal.Decimal) any {
	if v == nil {
		return nil
	}
	return v.InexactFloat64()
}

func stringArg(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// hashTagsArg stores tags as a JSON array. nil stays NULL so an absent
// field keeps counting as absent after a round trip.
func hashTagsArg(tags []string) (any, error) {
	if tags == nil {
		return nil, nil
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	return &t
}

func decimalPtr(v sql.NullFloat64) *decimal.Decimal {
	if !v.Valid {
		return nil
	}
	d := decimal.NewFromFloat(v.Float64)
	return &d
}

func hashTagsFrom(v sql.NullString) []string {
	if !v.Valid {
		return nil
	}
	tags := []string{}
	if err := json.Unmarshal([]byte(v.String), &tags); err != nil {
		return nil
	}
	return tags
}

// placeholders returns "?, ?, ?" for n parameters.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// chunkStrings splits values for batched IN lookups, dropping duplicates.
func chunkStrings(values []string) [][]string {
	return lo.Chunk(lo.Uniq(values), lookupChunkSize)
}

// dateOnly truncates t to midnight UTC.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
