// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package dedupe

import (
	"testing"

	"github.com/tomtom215/creatorsync/internal/models"
)

func TestCompareQuality(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b models.MetricSet
		want Ordering
	}{
		{"higher gmv", models.MetricSet{GMVCents: ptr(1500)}, models.MetricSet{GMVCents: ptr(1000)}, Greater},
		{"lower gmv", models.MetricSet{GMVCents: ptr(900)}, models.MetricSet{GMVCents: ptr(1000)}, Less},
		{"gmv tie views decide", models.MetricSet{GMVCents: ptr(1), Views: ptr(5)}, models.MetricSet{GMVCents: ptr(1), Views: ptr(6)}, Less},
		{"completeness", models.MetricSet{GMVCents: ptr(1), Duration: ptr(10)}, models.MetricSet{GMVCents: ptr(1)}, Greater},
		{"absent equals zero", models.MetricSet{GMVCents: ptr(0), Views: ptr(0)}, models.MetricSet{}, Greater},
		{"identical", models.MetricSet{GMVCents: ptr(1), Views: ptr(2)}, models.MetricSet{GMVCents: ptr(1), Views: ptr(2)}, Equal},
		{"empty", models.MetricSet{}, models.MetricSet{}, Equal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := CompareQuality(tt.a, tt.b); got != tt.want {
				t.Errorf("CompareQuality = %s, want %s", got, tt.want)
			}
			if got := CompareQuality(tt.b, tt.a); got != -tt.want {
				t.Errorf("reverse CompareQuality = %s, want %s", got, -tt.want)
			}
		})
	}
}

func TestScoreCompare_IndexTieBreak(t *testing.T) {
	t.Parallel()

	m := models.MetricSet{GMVCents: ptr(100)}
	early, late := ScoreOf(m, 1), ScoreOf(m, 4)
	if early.Compare(late) != Greater {
		t.Error("earlier row should outrank later row on a full tie")
	}
	if late.Compare(early) != Less {
		t.Error("later row should rank below earlier row")
	}
	if early.Compare(early) != Equal {
		t.Error("score should equal itself")
	}
}
