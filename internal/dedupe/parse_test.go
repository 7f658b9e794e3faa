// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package dedupe

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/tomtom215/creatorsync/internal/models"
)

func TestParseMoneyCents(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input any
		want  *int64
	}{
		{"dollar string", "$12.50", ptr(1250)},
		{"thousands separator", "$1,234.56", ptr(123456)},
		{"currency suffix", "99.99 USD", ptr(9999)},
		{"float", 10.0, ptr(1000)},
		{"float rounding", 0.125, ptr(13)},
		{"int", 7, ptr(700)},
		{"amount object", map[string]any{"amount": "3.10", "currency": "USD"}, ptr(310)},
		{"zero", "0", ptr(0)},
		{"empty", "", nil},
		{"garbage", "n/a", nil},
		{"nil", nil, nil},
		{"bool", true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assertInt64Ptr(t, parseMoneyCents(tt.input), tt.want)
		})
	}
}

func TestParseCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input any
		want  *int64
	}{
		{"float", 1234.0, ptr(1234)},
		{"comma string", "1,234", ptr(1234)},
		{"k suffix", "1.5K", ptr(1500)},
		{"m suffix", "2M", ptr(2_000_000)},
		{"plain string", "42", ptr(42)},
		{"blank", "  ", nil},
		{"text", "many", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assertInt64Ptr(t, parseCount(tt.input), tt.want)
		})
	}
}

func TestParseRatio(t *testing.T) {
	t.Parallel()

	got := parseRatio("2.5%")
	if got == nil || !got.Equal(decimal.RequireFromString("0.025")) {
		t.Errorf("parseRatio(2.5%%) = %v, want 0.025", got)
	}
	got = parseRatio(0.04)
	if got == nil || !got.Equal(decimal.RequireFromString("0.04")) {
		t.Errorf("parseRatio(0.04) = %v, want 0.04", got)
	}
	if parseRatio("bad%") != nil {
		t.Error("expected nil for unparseable percentage")
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	want := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	inputs := []any{
		"2024-01-02T03:04:05Z",
		"2024-01-02 03:04:05",
		float64(want.Unix()),
		"1704164645",
	}
	for _, in := range inputs {
		got := parseTimestamp(in)
		if got == nil || !got.Equal(want) {
			t.Errorf("parseTimestamp(%v) = %v, want %v", in, got, want)
		}
	}

	day := parseTimestamp("2024-01-02")
	if day == nil || !day.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date-only parse = %v", day)
	}
	if parseTimestamp("yesterday") != nil {
		t.Error("expected nil for unparseable timestamp")
	}
}

func TestParseHashTags(t *testing.T) {
	t.Parallel()

	got := parseHashTags([]any{"#fyp", "deals", "#fyp", ""})
	if len(got) != 2 || got[0] != "fyp" || got[1] != "deals" {
		t.Errorf("list form = %v", got)
	}
	got = parseHashTags("summer, #sale")
	if len(got) != 2 || got[0] != "summer" || got[1] != "sale" {
		t.Errorf("string form = %v", got)
	}
	if parseHashTags("") != nil {
		t.Error("blank string should be absent")
	}
}

func TestParseRow_Aliases(t *testing.T) {
	t.Parallel()

	p := ParseRow(models.RawRow{
		"video_id":        7.0e6,
		"handle":          "@CreatorX",
		"revenue":         "$20",
		"impressions":     "3.2K",
		"units_sold":      4.0,
		"video_post_time": "2024-03-01",
		"hashtags":        "a,b",
		"video_url":       "https://example.test/v/7",
		"likes":           12.0,
		"products": []any{
			map[string]any{"product_id": "p1", "name": "Mug"},
			map[string]any{"id": 99.0},
			"p1",
		},
		"product_ids": []any{"p3"},
	})

	if p.VideoID != "7000000" {
		t.Errorf("video id = %q", p.VideoID)
	}
	if p.Username != "CreatorX" {
		t.Errorf("username = %q", p.Username)
	}
	assertInt64Ptr(t, p.Metrics.GMVCents, ptr(2000))
	assertInt64Ptr(t, p.Metrics.Views, ptr(3200))
	assertInt64Ptr(t, p.Metrics.ItemsSold, ptr(4))
	assertInt64Ptr(t, p.Details.Likes, ptr(12))
	if p.Details.URL != "https://example.test/v/7" {
		t.Errorf("url = %q", p.Details.URL)
	}
	if p.Metrics.PostedAt == nil {
		t.Error("posted_at not parsed")
	}
	if got := p.Metrics.Completeness(); got != 5 {
		t.Errorf("completeness = %d, want 5", got)
	}

	ids := make([]string, 0, len(p.Products))
	for _, ref := range p.Products {
		ids = append(ids, ref.ExternalID)
	}
	if len(ids) != 3 || ids[0] != "p1" || ids[1] != "99" || ids[2] != "p3" {
		t.Errorf("products = %v", ids)
	}
	if p.Products[0].Name != "Mug" {
		t.Errorf("product name = %q", p.Products[0].Name)
	}
}

func TestParseRow_NumberValues(t *testing.T) {
	t.Parallel()

	p := ParseRow(models.RawRow{
		"id":          json.Number("7312345678901234567"),
		"username":    "alice",
		"gmv":         json.Number("12.5"),
		"views":       json.Number("1200"),
		"ctr":         json.Number("0.025"),
		"create_time": json.Number("1709251200"),
		"product_ids": []any{json.Number("9007199254740993")},
	})

	if p.VideoID != "7312345678901234567" {
		t.Errorf("video id = %q", p.VideoID)
	}
	assertInt64Ptr(t, p.Metrics.GMVCents, ptr(1250))
	assertInt64Ptr(t, p.Metrics.Views, ptr(1200))
	if p.Metrics.CTR == nil || !p.Metrics.CTR.Equal(decimal.RequireFromString("0.025")) {
		t.Errorf("ctr = %v", p.Metrics.CTR)
	}
	if p.Metrics.PostedAt == nil || !p.Metrics.PostedAt.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("posted_at = %v", p.Metrics.PostedAt)
	}
	if len(p.Products) != 1 || p.Products[0].ExternalID != "9007199254740993" {
		t.Errorf("products = %+v", p.Products)
	}
}

func TestStringValue_FloatIDs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"small integer", 42.0, "42"},
		{"largest exact integer", float64(1 << 53), "9007199254740992"},
		{"beyond exact range", 7312345678901234567.0, ""},
		{"fractional", 1.5, ""},
		{"number literal", json.Number("7312345678901234567"), "7312345678901234567"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := stringValue(tt.in); got != tt.want {
				t.Errorf("stringValue(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseRow_UnparseableIsAbsent(t *testing.T) {
	t.Parallel()

	p := ParseRow(models.RawRow{"id": "v", "gmv": "unknown", "views": nil})
	if p.Metrics.GMVCents != nil || p.Metrics.Views != nil {
		t.Errorf("expected absent metrics, got %+v", p.Metrics)
	}
	if p.Metrics.Completeness() != 0 {
		t.Errorf("completeness = %d, want 0", p.Metrics.Completeness())
	}
}

func ptr(v int64) *int64 { return &v }

func assertInt64Ptr(t *testing.T, got, want *int64) {
	t.Helper()
	switch {
	case got == nil && want == nil:
	case got == nil || want == nil:
		t.Errorf("got %v, want %v", fmtPtr(got), fmtPtr(want))
	case *got != *want:
		t.Errorf("got %d, want %d", *got, *want)
	}
}

func fmtPtr(v *int64) any {
	if v == nil {
		return "nil"
	}
	return *v
}
