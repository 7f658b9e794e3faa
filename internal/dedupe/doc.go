// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

/*
Package dedupe turns noisy analytics rows into one canonical row per video.

The analytics API returns the same video several times across pages and
windows, often with different metric values. Dedupe parses every row into a
typed models.MetricSet, groups by video id and keeps the best candidate:

	gmv_cents > views > items_sold > completeness > earliest position

Absent metrics count as zero for ranking. Completeness is the number of
non-null metric fields. The last key makes the order total, so the pick is
deterministic for a given input order.

CompareQuality exposes the same ranking without the position key. The
snapshot persister uses it to decide whether an incoming snapshot replaces a
stored one.

Usage:

	res := dedupe.Dedupe(rows)
	for _, row := range res.Rows {
		fmt.Println(row.VideoID, *row.Metrics.GMVCents)
	}
	log.Printf("%d duplicates, %d conflicts", res.Stats.DuplicateRows, res.Stats.ConflictVideoCount)
*/
package dedupe
