// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package dedupe

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/tomtom215/creatorsync/internal/models"
)

// Key aliases observed in analytics API payloads, in lookup priority order.
var (
	videoIDKeys   = []string{"id", "video_id", "item_id"}
	usernameKeys  = []string{"username", "creator_username", "handle"}
	gmvKeys       = []string{"gmv", "revenue"}
	viewsKeys     = []string{"views", "impressions", "video_views"}
	itemsSoldKeys = []string{"items_sold", "units_sold", "sku_orders"}
	gpmKeys       = []string{"gpm"}
	ctrKeys       = []string{"ctr"}
	durationKeys  = []string{"duration", "duration_seconds"}
	postedAtKeys  = []string{"posted_at", "video_post_time", "create_time"}
	hashTagKeys   = []string{"hash_tags", "hashtags"}
	titleKeys     = []string{"title", "video_title"}
	urlKeys       = []string{"url", "video_url"}
)

var hundred = decimal.NewFromInt(100)

// ParsedRow is the typed view of one RawRow.
type ParsedRow struct {
	VideoID  string
	Username string
	Metrics  models.MetricSet
	Details  models.VideoDetails
	Products []models.RawProductRef
}

// ParseRow converts an untyped API row into typed fields. Missing or
// unparseable values are left nil; nothing defaults to zero here.
func ParseRow(row models.RawRow) ParsedRow {
	p := ParsedRow{
		VideoID:  strings.TrimSpace(stringField(row, videoIDKeys)),
		Username: normalizeUsername(stringField(row, usernameKeys)),
	}

	p.Metrics = models.MetricSet{
		GMVCents:  parseMoneyCents(first(row, gmvKeys)),
		Views:     parseCount(first(row, viewsKeys)),
		ItemsSold: parseCount(first(row, itemsSoldKeys)),
		GPMCents:  parseMoneyCents(first(row, gpmKeys)),
		CTR:       parseRatio(first(row, ctrKeys)),
		Duration:  parseCount(first(row, durationKeys)),
		PostedAt:  parseTimestamp(first(row, postedAtKeys)),
		HashTags:  parseHashTags(first(row, hashTagKeys)),
	}

	p.Details = models.VideoDetails{
		Title:           strings.TrimSpace(stringField(row, titleKeys)),
		URL:             strings.TrimSpace(stringField(row, urlKeys)),
		Likes:           parseCount(row["likes"]),
		Comments:        parseCount(row["comments"]),
		Shares:          parseCount(row["shares"]),
		AffiliateOrders: parseCount(row["affiliate_orders"]),
	}

	p.Products = parseProducts(row)
	return p
}

// first returns the value of the first alias present with a non-nil value.
func first(row models.RawRow, keys []string) any {
	for _, k := range keys {
		if v, ok := row[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func stringField(row models.RawRow, keys []string) string {
	return stringValue(first(row, keys))
}

// maxExactFloatInt is the largest integer a float64 holds without rounding.
const maxExactFloatInt = 1 << 53

// stringValue renders scalar identifiers. json.Number keeps the literal
// digits. A float64 is only accepted while it is an exact integer; beyond
// 2^53 neighbouring ids collapse onto the same value, so it reads as absent.
func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		if t != math.Trunc(t) || math.Abs(t) > maxExactFloatInt {
			return ""
		}
		return strconv.FormatFloat(t, 'f', 0, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case fmt.Stringer:
		return t.String()
	default:
		return ""
	}
}

func normalizeUsername(s string) string {
	return strings.TrimPrefix(strings.TrimSpace(s), "@")
}

// toDecimal converts numbers and loosely formatted numeric strings. It
// strips currency symbols, thousands separators and trailing currency codes.
func toDecimal(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat(t), true
	case float32:
		return toDecimal(float64(t))
	case int:
		return decimal.NewFromInt(int64(t)), true
	case int64:
		return decimal.NewFromInt(t), true
	case string:
		return decimalFromString(t)
	case fmt.Stringer:
		return decimalFromString(t.String())
	case map[string]any:
		// {"amount": "12.50", "currency": "USD"}
		if amount, ok := t["amount"]; ok {
			return toDecimal(amount)
		}
		if amount, ok := t["value"]; ok {
			return toDecimal(amount)
		}
	}
	return decimal.Decimal{}, false
}

func decimalFromString(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, false
	}
	s = strings.TrimRight(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz ")
	s = strings.Map(func(r rune) rune {
		switch r {
		case '$', ',', ' ', '€', '£':
			return -1
		}
		return r
	}, s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// parseMoneyCents returns whole cents, rounding half away from zero.
func parseMoneyCents(v any) *int64 {
	d, ok := toDecimal(v)
	if !ok {
		return nil
	}
	cents := d.Mul(hundred).Round(0).IntPart()
	return &cents
}

// parseCount accepts integers, "1,234" and abbreviated forms like "1.2K".
func parseCount(v any) *int64 {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
		multiplier := int64(1)
		if n := len(s); n > 0 {
			switch s[n-1] {
			case 'k', 'K':
				multiplier = 1_000
			case 'm', 'M':
				multiplier = 1_000_000
			case 'b', 'B':
				multiplier = 1_000_000_000
			}
			if multiplier > 1 {
				s = s[:n-1]
			}
		}
		d, err := decimal.NewFromString(strings.TrimSpace(s))
		if err != nil {
			return nil
		}
		n := d.Mul(decimal.NewFromInt(multiplier)).Round(0).IntPart()
		return &n
	}
	d, ok := toDecimal(v)
	if !ok {
		return nil
	}
	n := d.Round(0).IntPart()
	return &n
}

// parseRatio returns CTR as a fraction. "2.5%" becomes 0.025.
func parseRatio(v any) *decimal.Decimal {
	if s, ok := v.(string); ok && strings.HasSuffix(strings.TrimSpace(s), "%") {
		d, ok := decimalFromString(strings.TrimSuffix(strings.TrimSpace(s), "%"))
		if !ok {
			return nil
		}
		r := d.Div(hundred)
		return &r
	}
	d, ok := toDecimal(v)
	if !ok {
		return nil
	}
	return &d
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTimestamp(v any) *time.Time {
	var ts time.Time
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		for _, layout := range timestampLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				ts = parsed.UTC()
				return &ts
			}
		}
		secs, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil
		}
		ts = time.Unix(secs, 0).UTC()
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		if err != nil {
			return nil
		}
		ts = time.Unix(d.IntPart(), 0).UTC()
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
		ts = time.Unix(int64(t), 0).UTC()
	case int64:
		ts = time.Unix(t, 0).UTC()
	case int:
		ts = time.Unix(int64(t), 0).UTC()
	default:
		return nil
	}
	return &ts
}

// parseHashTags accepts a list or a comma separated string. Leading '#' is
// dropped and the result keeps first-seen order without duplicates.
func parseHashTags(v any) []string {
	var parts []string
	switch t := v.(type) {
	case []any:
		parts = make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, stringValue(item))
		}
	case []string:
		parts = t
	case string:
		if strings.TrimSpace(t) == "" {
			return nil
		}
		parts = strings.Split(t, ",")
	default:
		return nil
	}

	tags := lo.Map(parts, func(s string, _ int) string {
		return strings.TrimPrefix(strings.TrimSpace(s), "#")
	})
	return lo.Uniq(lo.Compact(tags))
}

// parseProducts reads "products" ([{product_id, name}]) or "product_ids".
func parseProducts(row models.RawRow) []models.RawProductRef {
	var refs []models.RawProductRef
	if list, ok := row["products"].([]any); ok {
		for _, item := range list {
			switch p := item.(type) {
			case map[string]any:
				id := strings.TrimSpace(stringValue(first(p, []string{"product_id", "id"})))
				if id != "" {
					refs = append(refs, models.RawProductRef{ExternalID: id, Name: stringValue(p["name"])})
				}
			default:
				if id := strings.TrimSpace(stringValue(p)); id != "" {
					refs = append(refs, models.RawProductRef{ExternalID: id})
				}
			}
		}
	}
	if list, ok := row["product_ids"].([]any); ok {
		for _, item := range list {
			if id := strings.TrimSpace(stringValue(item)); id != "" {
				refs = append(refs, models.RawProductRef{ExternalID: id})
			}
		}
	}
	return lo.UniqBy(refs, func(r models.RawProductRef) string { return r.ExternalID })
}
