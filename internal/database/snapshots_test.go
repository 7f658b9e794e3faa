// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package database

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/creatorsync/internal/models"
)

func TestSnapshots_UpsertAndGet(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	day := time.Date(2024, 1, 1, 15, 30, 0, 0, time.UTC)
	snaps := []*models.VideoMetricSnapshot{
		{BrandID: 1, ExternalVideoID: "v1", WindowDays: 30, SnapshotDate: day, SourceRunID: "r1",
			Metrics: models.MetricSet{GMVCents: int64p(1000), Views: int64p(10)}, RawPayload: []byte(`{"id":"v1"}`)},
		{BrandID: 1, ExternalVideoID: "v2", WindowDays: 30, SnapshotDate: day, SourceRunID: "r1",
			CreatorVideoID: int64p(42), Metrics: models.MetricSet{GMVCents: int64p(5)}},
		{BrandID: 1, ExternalVideoID: "v1", WindowDays: 90, SnapshotDate: day, SourceRunID: "r1",
			Metrics: models.MetricSet{GMVCents: int64p(7)}},
	}
	if err := db.UpsertSnapshots(ctx, snaps); err != nil {
		t.Fatalf("UpsertSnapshots() error = %v", err)
	}

	got, err := db.GetSnapshots(ctx, 1, 30, day, []string{"v1", "v2", "v3"})
	if err != nil {
		t.Fatalf("GetSnapshots() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d snapshots, want 2", len(got))
	}
	v1 := got["v1"]
	if *v1.Metrics.GMVCents != 1000 || v1.CreatorVideoID != nil || string(v1.RawPayload) != `{"id":"v1"}` {
		t.Errorf("v1 snapshot = %+v", v1)
	}
	if !v1.SnapshotDate.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("snapshot date = %v", v1.SnapshotDate)
	}
	if got["v2"].CreatorVideoID == nil || *got["v2"].CreatorVideoID != 42 {
		t.Errorf("v2 creator video id = %v", got["v2"].CreatorVideoID)
	}

	// Update in place keeps one row per key.
	update := *snaps[0]
	update.Metrics = models.MetricSet{GMVCents: int64p(1500)}
	update.SourceRunID = "r2"
	if err := db.UpsertSnapshot(ctx, &update); err != nil {
		t.Fatalf("UpsertSnapshot() error = %v", err)
	}

	history, err := db.ListSnapshots(ctx, 1, "v1")
	if err != nil {
		t.Fatalf("ListSnapshots() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history has %d rows, want 2 (one per window)", len(history))
	}
	if history[0].WindowDays != 30 || *history[0].Metrics.GMVCents != 1500 || history[0].SourceRunID != "r2" {
		t.Errorf("updated snapshot = %+v", history[0])
	}
}

func TestUpsertSnapshots_RollsBackOnError(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	snaps := []*models.VideoMetricSnapshot{
		{BrandID: 1, ExternalVideoID: "ok", WindowDays: 30, SnapshotDate: day, SourceRunID: "r"},
		// window_days is an INTEGER column; this value cannot be stored.
		{BrandID: 1, ExternalVideoID: "bad", WindowDays: 1 << 40, SnapshotDate: day, SourceRunID: "r"},
	}
	if err := db.UpsertSnapshots(ctx, snaps); err == nil {
		t.Fatal("expected batch error")
	}

	got, err := db.GetSnapshots(ctx, 1, 30, day, []string{"ok"})
	if err != nil {
		t.Fatalf("GetSnapshots() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("failed batch left %d rows", len(got))
	}
}

func TestUpsertSnapshots_Empty(t *testing.T) {
	db := setupTestDB(t)
	if err := db.UpsertSnapshots(context.Background(), nil); err != nil {
		t.Errorf("UpsertSnapshots(nil) error = %v", err)
	}
}
