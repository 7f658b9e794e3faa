// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/tomtom215/creatorsync/internal/dedupe"
	"github.com/tomtom215/creatorsync/internal/models"
)

func newTestUpserter(store *memStore) *VideoUpserter {
	return NewVideoUpserter(NewCreatorResolver(store), store, NewProductLinker(store), 1)
}

func TestUpsertAllTime_BestObservationAcrossWindows(t *testing.T) {
	store := newMemStore()
	u := newTestUpserter(store)

	perWindow := map[int][]dedupe.CanonicalRow{
		30: canonicalRows(models.RawRow{"id": "v1", "username": "alice", "gmv": "$12.50", "title": "short window"}),
		90: canonicalRows(
			models.RawRow{"id": "v1", "username": "alice", "gmv": "$10.00", "views": 500, "title": "long window"},
			models.RawRow{"id": "v2", "username": "@Bob", "gmv": "$1.00"},
		),
	}

	res, err := u.UpsertAllTime(context.Background(), 1, perWindow)
	if err != nil {
		t.Fatalf("UpsertAllTime() error = %v", err)
	}
	want := models.UpsertStats{VideosSynced: 2, CreatorsCreated: 2}
	if res.Stats != want {
		t.Errorf("stats = %+v, want %+v", res.Stats, want)
	}
	if res.RowErr != nil {
		t.Errorf("row errors = %v", res.RowErr)
	}

	v1 := store.video(1, "v1")
	if v1 == nil || *v1.GMVCents != 1250 || v1.Title != "short window" {
		t.Errorf("v1 = %+v, want the 30 day observation", v1)
	}
	if res.VideoLookup["v1"] != v1.ID || res.VideoLookup["v2"] == 0 {
		t.Errorf("video lookup = %v", res.VideoLookup)
	}

	bob, err := store.FindCreatorByAnyUsername(context.Background(), "bob")
	if err != nil || store.video(1, "v2").CreatorID != bob.ID {
		t.Errorf("v2 not attributed to bob: %v", err)
	}
}

func TestUpsertAllTime_OverwritesUnconditionally(t *testing.T) {
	store := newMemStore()
	u := newTestUpserter(store)

	first := map[int][]dedupe.CanonicalRow{30: canonicalRows(models.RawRow{"id": "v1", "username": "a", "gmv": 20})}
	if _, err := u.UpsertAllTime(context.Background(), 1, first); err != nil {
		t.Fatal(err)
	}
	second := map[int][]dedupe.CanonicalRow{30: canonicalRows(models.RawRow{"id": "v1", "username": "a", "gmv": 5})}
	res, err := u.UpsertAllTime(context.Background(), 1, second)
	if err != nil {
		t.Fatal(err)
	}
	if res.Stats.CreatorsMatched != 1 || res.Stats.CreatorsCreated != 0 {
		t.Errorf("stats = %+v, want creator matched", res.Stats)
	}
	if got := *store.video(1, "v1").GMVCents; got != 500 {
		t.Errorf("gmv = %d, want 500 from the latest run", got)
	}
}

func TestUpsertAllTime_RowFailuresAreIsolated(t *testing.T) {
	store := newMemStore()
	store.videoErrs["broken"] = errors.New("constraint violated")
	u := newTestUpserter(store)

	perWindow := map[int][]dedupe.CanonicalRow{
		30: canonicalRows(
			models.RawRow{"id": "ok", "username": "a"},
			models.RawRow{"id": "no-user"},
			models.RawRow{"username": "no-id"},
			models.RawRow{"id": "broken", "username": "b"},
		),
	}
	res, err := u.UpsertAllTime(context.Background(), 1, perWindow)
	if err != nil {
		t.Fatalf("UpsertAllTime() error = %v", err)
	}
	if res.Stats.VideosSynced != 1 || res.Stats.MissingRequiredFields != 2 || res.Stats.RowErrors != 1 {
		t.Errorf("stats = %+v", res.Stats)
	}
	if res.RowErr == nil {
		t.Error("expected joined row error")
	}
	if store.video(1, "ok") == nil {
		t.Error("good row not written")
	}
}

func TestUpsertAllTime_LinksProducts(t *testing.T) {
	store := newMemStore()
	store.addProduct(1, "p1")
	u := newTestUpserter(store)

	perWindow := map[int][]dedupe.CanonicalRow{
		30: canonicalRows(models.RawRow{
			"id": "v1", "username": "a",
			"products": []any{map[string]any{"product_id": "p1"}, map[string]any{"product_id": "p2"}},
		}),
	}
	res, err := u.UpsertAllTime(context.Background(), 1, perWindow)
	if err != nil {
		t.Fatal(err)
	}
	if res.Stats.ProductLinks != 2 {
		t.Errorf("product links = %d, want 2", res.Stats.ProductLinks)
	}
}

func TestUpsertAllTime_CancelledContext(t *testing.T) {
	store := newMemStore()
	u := newTestUpserter(store)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := u.UpsertAllTime(ctx, 1, map[int][]dedupe.CanonicalRow{
		30: canonicalRows(models.RawRow{"id": "v1", "username": "a"}),
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
