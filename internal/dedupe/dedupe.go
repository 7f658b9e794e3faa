// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package dedupe

import (
	"slices"
	"strconv"

	"github.com/tomtom215/creatorsync/internal/models"
)

// Candidate is one parsed raw row tagged with its input position.
type Candidate struct {
	ParsedRow
	Raw            models.RawRow
	FirstSeenIndex int
}

// CanonicalRow is the candidate chosen to represent a video id.
type CanonicalRow struct {
	Candidate
	Score Score
}

// Result is the output of Dedupe.
type Result struct {
	Rows  []CanonicalRow
	Stats models.DedupeStats
	// ConflictVideoIDs lists the video ids counted in
	// Stats.ConflictVideoCount, in first-seen order.
	ConflictVideoIDs []string
}

// missingIDPrefix cannot collide with API ids, which never contain NUL.
const missingIDPrefix = "\x00missing:"

// Dedupe groups rows by video id and selects one canonical row per group.
//
// Rows without a video id are never merged with each other. Within a group
// the row with the best Score wins; see Score.Compare. Rows are returned in
// ascending first-seen order.
func Dedupe(rows []models.RawRow) Result {
	res := Result{Stats: models.DedupeStats{TotalRows: len(rows)}}
	if len(rows) == 0 {
		return res
	}

	groups := make(map[string][]Candidate, len(rows))
	order := make([]string, 0, len(rows))

	for i, raw := range rows {
		c := Candidate{ParsedRow: ParseRow(raw), Raw: raw, FirstSeenIndex: i}
		key := c.VideoID
		if key == "" {
			key = missingIDPrefix + strconv.Itoa(i)
			res.Stats.MissingVideoIDRows++
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], c)
	}

	res.Rows = make([]CanonicalRow, 0, len(order))
	for _, key := range order {
		group := groups[key]
		res.Rows = append(res.Rows, pickCanonical(group))

		if len(group) > 1 {
			res.Stats.DuplicateRows += len(group) - 1
			if conflict, gmvSpread := measureConflict(group); conflict {
				res.Stats.ConflictVideoCount++
				res.ConflictVideoIDs = append(res.ConflictVideoIDs, key)
				res.Stats.MaxGMVDiscrepancyCents = max(res.Stats.MaxGMVDiscrepancyCents, gmvSpread)
			}
		}
	}

	// Group order already follows first appearance, but the winner of a
	// group may have been seen later than the group's first row.
	slices.SortFunc(res.Rows, func(a, b CanonicalRow) int {
		return a.FirstSeenIndex - b.FirstSeenIndex
	})
	res.Stats.CanonicalRows = len(res.Rows)
	return res
}

func pickCanonical(group []Candidate) CanonicalRow {
	best := CanonicalRow{Candidate: group[0], Score: ScoreOf(group[0].Metrics, group[0].FirstSeenIndex)}
	for _, c := range group[1:] {
		s := ScoreOf(c.Metrics, c.FirstSeenIndex)
		if s.Compare(best.Score) == Greater {
			best = CanonicalRow{Candidate: c, Score: s}
		}
	}
	return best
}

// measureConflict reports whether the group disagrees on GMV, views or items
// sold, and the GMV spread in cents. Absent values count as zero.
func measureConflict(group []Candidate) (bool, int64) {
	first := group[0].Metrics
	minGMV, maxGMV := first.GMVOrZero(), first.GMVOrZero()
	minViews, maxViews := first.ViewsOrZero(), first.ViewsOrZero()
	minItems, maxItems := first.ItemsSoldOrZero(), first.ItemsSoldOrZero()

	for _, c := range group[1:] {
		gmv, views, items := c.Metrics.GMVOrZero(), c.Metrics.ViewsOrZero(), c.Metrics.ItemsSoldOrZero()
		minGMV, maxGMV = min(minGMV, gmv), max(maxGMV, gmv)
		minViews, maxViews = min(minViews, views), max(maxViews, views)
		minItems, maxItems = min(minItems, items), max(maxItems, items)
	}

	spread := maxGMV - minGMV
	return spread > 0 || maxViews != minViews || maxItems != minItems, spread
}

// Flatten returns the raw rows of canonical rows from several windows,
// windows in ascending order and rows in their existing order.
func Flatten(perWindow map[int][]CanonicalRow) []models.RawRow {
	windows := make([]int, 0, len(perWindow))
	total := 0
	for w, rows := range perWindow {
		windows = append(windows, w)
		total += len(rows)
	}
	slices.Sort(windows)

	out := make([]models.RawRow, 0, total)
	for _, w := range windows {
		for _, r := range perWindow[w] {
			out = append(out, r.Raw)
		}
	}
	return out
}
