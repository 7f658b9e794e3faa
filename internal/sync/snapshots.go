// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/samber/lo"

	"github.com/tomtom215/creatorsync/internal/dedupe"
	"github.com/tomtom215/creatorsync/internal/logging"
	"github.com/tomtom215/creatorsync/internal/metrics"
	"github.com/tomtom215/creatorsync/internal/models"
)

// SnapshotStore reads and writes dated per-window snapshots.
type SnapshotStore interface {
	GetSnapshots(ctx context.Context, brandID int64, windowDays int, snapshotDate time.Time, externalVideoIDs []string) (map[string]*models.VideoMetricSnapshot, error)
	UpsertSnapshots(ctx context.Context, snaps []*models.VideoMetricSnapshot) error
	UpsertSnapshot(ctx context.Context, s *models.VideoMetricSnapshot) error
	FindVideoIDs(ctx context.Context, brandID int64, externalVideoIDs []string) (map[string]int64, error)
}

// SnapshotDecision is what happens to one candidate snapshot.
type SnapshotDecision int

const (
	DecisionSkip SnapshotDecision = iota
	DecisionInsert
	DecisionUpdate
)

func (d SnapshotDecision) String() string {
	switch d {
	case DecisionInsert:
		return "insert"
	case DecisionUpdate:
		return "update"
	default:
		return "skip"
	}
}

// DecideSnapshot compares a candidate with the stored snapshot for the same
// key. A stored snapshot is replaced only by strictly better metrics, or on
// an exact tie when the candidate resolves a creator video link the stored
// row lacks.
func DecideSnapshot(existing, candidate *models.VideoMetricSnapshot) SnapshotDecision {
	if existing == nil {
		return DecisionInsert
	}
	switch dedupe.CompareQuality(candidate.Metrics, existing.Metrics) {
	case dedupe.Greater:
		return DecisionUpdate
	case dedupe.Equal:
		if existing.CreatorVideoID == nil && candidate.CreatorVideoID != nil {
			return DecisionUpdate
		}
	}
	return DecisionSkip
}

// WindowSnapshotInput is everything PersistWindow needs for one window.
type WindowSnapshotInput struct {
	BrandID      int64
	WindowDays   int
	Rows         []dedupe.CanonicalRow
	VideoLookup  map[string]int64
	SnapshotDate time.Time
	SourceRunID  string
}

// SnapshotPersister writes per-window snapshots with quality-based overwrite.
type SnapshotPersister struct {
	store SnapshotStore
}

// NewSnapshotPersister creates a persister backed by store.
func NewSnapshotPersister(store SnapshotStore) *SnapshotPersister {
	return &SnapshotPersister{store: store}
}

type pendingWrite struct {
	snap     *models.VideoMetricSnapshot
	decision SnapshotDecision
}

// PersistWindow decides insert, update or skip for each canonical row with a
// video id and writes the inserts and updates in one batch. If the batch
// fails the rows are written one at a time and failures are counted in
// Errors. Every considered row lands in exactly one counter.
//
// An error is returned only when the batched lookups fail; nothing has been
// written in that case.
func (p *SnapshotPersister) PersistWindow(ctx context.Context, in WindowSnapshotInput) (models.SnapshotStats, error) {
	var stats models.SnapshotStats
	log := logging.Ctx(ctx).With().Int("window_days", in.WindowDays).Logger()

	rows := lo.Filter(in.Rows, func(r dedupe.CanonicalRow, _ int) bool { return r.VideoID != "" })
	if len(rows) == 0 {
		return stats, nil
	}
	ids := lo.Map(rows, func(r dedupe.CanonicalRow, _ int) string { return r.VideoID })
	snapshotDate := dateOf(in.SnapshotDate)

	lookup, err := p.resolveVideoIDs(ctx, in.BrandID, ids, in.VideoLookup)
	if err != nil {
		return stats, err
	}

	existing, err := p.store.GetSnapshots(ctx, in.BrandID, in.WindowDays, snapshotDate, ids)
	if err != nil {
		return stats, fmt.Errorf("load snapshots for window %d: %w", in.WindowDays, err)
	}

	writes := make([]pendingWrite, 0, len(rows))
	for i := range rows {
		candidate := buildSnapshot(in, snapshotDate, &rows[i], lookup)
		decision := DecideSnapshot(existing[candidate.ExternalVideoID], candidate)
		if decision == DecisionSkip {
			stats.Skipped++
			continue
		}
		writes = append(writes, pendingWrite{snap: candidate, decision: decision})
	}

	p.write(ctx, writes, &stats)

	metrics.RecordSnapshotDecisions(in.WindowDays, stats.Inserted, stats.Updated, stats.Skipped, stats.Errors)
	log.Info().
		Time("snapshot_date", snapshotDate).
		Int("inserted", stats.Inserted).
		Int("updated", stats.Updated).
		Int("skipped", stats.Skipped).
		Int("errors", stats.Errors).
		Msg("Persisted window snapshots")
	return stats, nil
}

// resolveVideoIDs fills ids missing from known with one batched store lookup.
func (p *SnapshotPersister) resolveVideoIDs(ctx context.Context, brandID int64, ids []string, known map[string]int64) (map[string]int64, error) {
	lookup := make(map[string]int64, len(ids))
	var missing []string
	for _, id := range ids {
		if v, ok := known[id]; ok {
			lookup[id] = v
		} else {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return lookup, nil
	}

	found, err := p.store.FindVideoIDs(ctx, brandID, missing)
	if err != nil {
		return nil, fmt.Errorf("resolve creator video ids: %w", err)
	}
	for k, v := range found {
		lookup[k] = v
	}
	return lookup, nil
}

func (p *SnapshotPersister) write(ctx context.Context, writes []pendingWrite, stats *models.SnapshotStats) {
	if len(writes) == 0 {
		return
	}

	snaps := lo.Map(writes, func(w pendingWrite, _ int) *models.VideoMetricSnapshot { return w.snap })
	if err := p.store.UpsertSnapshots(ctx, snaps); err == nil {
		for _, w := range writes {
			countWrite(stats, w.decision)
		}
		return
	} else {
		logging.Ctx(ctx).Warn().Err(err).Int("rows", len(writes)).Msg("Bulk snapshot upsert failed, writing rows individually")
	}

	for _, w := range writes {
		if err := p.store.UpsertSnapshot(ctx, w.snap); err != nil {
			stats.Errors++
			logging.Ctx(ctx).Error().Err(err).
				Str("video_id", w.snap.ExternalVideoID).
				Int("window_days", w.snap.WindowDays).
				Msg("Failed to write snapshot")
			continue
		}
		countWrite(stats, w.decision)
	}
}

func countWrite(stats *models.SnapshotStats, d SnapshotDecision) {
	if d == DecisionInsert {
		stats.Inserted++
	} else {
		stats.Updated++
	}
}

func buildSnapshot(in WindowSnapshotInput, snapshotDate time.Time, row *dedupe.CanonicalRow, lookup map[string]int64) *models.VideoMetricSnapshot {
	s := &models.VideoMetricSnapshot{
		BrandID:         in.BrandID,
		ExternalVideoID: row.VideoID,
		WindowDays:      in.WindowDays,
		SnapshotDate:    snapshotDate,
		Metrics:         row.Metrics,
		SourceRunID:     in.SourceRunID,
	}
	if id, ok := lookup[row.VideoID]; ok {
		s.CreatorVideoID = &id
	}
	if raw, err := json.Marshal(row.Raw); err == nil {
		s.RawPayload = raw
	}
	return s
}

// dateOf truncates t to its UTC calendar day.
func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
