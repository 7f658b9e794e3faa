// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package dedupe

import (
	"cmp"

	"github.com/tomtom215/creatorsync/internal/models"
)

// Ordering is the result of a quality comparison.
type Ordering int

const (
	Less    Ordering = -1
	Equal   Ordering = 0
	Greater Ordering = 1
)

func (o Ordering) String() string {
	switch o {
	case Less:
		return "less"
	case Greater:
		return "greater"
	default:
		return "equal"
	}
}

// Score is the ordering key of a candidate. Higher is better on every
// component except FirstSeenIndex, where the earlier row wins.
type Score struct {
	GMVCents       int64
	Views          int64
	ItemsSold      int64
	Completeness   int
	FirstSeenIndex int
}

// ScoreOf builds the score for metrics observed at the given input index.
func ScoreOf(m models.MetricSet, firstSeenIndex int) Score {
	return Score{
		GMVCents:       m.GMVOrZero(),
		Views:          m.ViewsOrZero(),
		ItemsSold:      m.ItemsSoldOrZero(),
		Completeness:   m.Completeness(),
		FirstSeenIndex: firstSeenIndex,
	}
}

// Compare orders two scores including the first-seen tie-break, so two
// candidates from different input positions never compare Equal.
func (s Score) Compare(o Score) Ordering {
	if c := s.compareQuality(o); c != Equal {
		return c
	}
	// Lower index is better.
	return Ordering(cmp.Compare(o.FirstSeenIndex, s.FirstSeenIndex))
}

func (s Score) compareQuality(o Score) Ordering {
	if c := cmp.Compare(s.GMVCents, o.GMVCents); c != 0 {
		return Ordering(c)
	}
	if c := cmp.Compare(s.Views, o.Views); c != 0 {
		return Ordering(c)
	}
	if c := cmp.Compare(s.ItemsSold, o.ItemsSold); c != 0 {
		return Ordering(c)
	}
	return Ordering(cmp.Compare(s.Completeness, o.Completeness))
}

// CompareQuality orders two metric sets by GMV, views, items sold and then
// completeness. Position is not considered. The deduplicator and the
// snapshot persister both rank candidates through this function.
func CompareQuality(a, b models.MetricSet) Ordering {
	return ScoreOf(a, 0).compareQuality(ScoreOf(b, 0))
}
