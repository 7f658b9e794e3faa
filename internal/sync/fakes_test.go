// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package sync

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tomtom215/creatorsync/internal/database"
	"github.com/tomtom215/creatorsync/internal/models"
)

// memStore is an in-memory Store with fault injection.
type memStore struct {
	mu     sync.Mutex
	nextID int64

	creators    map[int64]*models.Creator
	memberships map[[2]int64]bool
	videos      map[string]*models.CreatorVideo
	snapshots   map[string]*models.VideoMetricSnapshot
	products    map[string]*models.Product
	links       map[string]models.VideoProductLink
	lastSync    map[int64]time.Time
	runs        []models.SyncRun

	// videoErrs fails UpsertCreatorVideo for the listed external ids.
	videoErrs map[string]error
	// bulkErr fails UpsertSnapshots; snapshotErrs fails UpsertSnapshot per id.
	bulkErr      error
	snapshotErrs map[string]error
	// getSnapshotsErr fails the batched existing-snapshot lookup.
	getSnapshotsErr error

	bulkCalls    int
	findIDsCalls int
}

func newMemStore() *memStore {
	return &memStore{
		creators:     make(map[int64]*models.Creator),
		memberships:  make(map[[2]int64]bool),
		videos:       make(map[string]*models.CreatorVideo),
		snapshots:    make(map[string]*models.VideoMetricSnapshot),
		products:     make(map[string]*models.Product),
		links:        make(map[string]models.VideoProductLink),
		lastSync:     make(map[int64]time.Time),
		videoErrs:    make(map[string]error),
		snapshotErrs: make(map[string]error),
	}
}

var _ Store = (*memStore)(nil)

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func videoKey(brandID int64, ext string) string {
	return fmt.Sprintf("%d/%s", brandID, ext)
}

func snapshotKey(brandID int64, ext string, window int, date time.Time) string {
	return fmt.Sprintf("%d/%s/%d/%s", brandID, ext, window, date.Format("2006-01-02"))
}

func (s *memStore) FindCreatorByAnyUsername(_ context.Context, username string) (*models.Creator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := database.UsernameKey(username)
	for _, c := range s.creators {
		if c.Username == key {
			cp := *c
			return &cp, nil
		}
		for _, prev := range c.PreviousUsernames {
			if prev == key {
				cp := *c
				return &cp, nil
			}
		}
	}
	return nil, database.ErrNotFound
}

func (s *memStore) CreateCreator(_ context.Context, username string) (*models.Creator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := database.UsernameKey(username)
	for _, c := range s.creators {
		if c.Username == key {
			return nil, database.ErrConflict
		}
	}
	c := &models.Creator{ID: s.id(), Username: key}
	s.creators[c.ID] = c
	cp := *c
	return &cp, nil
}

func (s *memStore) EnsureBrandMembership(_ context.Context, creatorID, brandID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memberships[[2]int64{creatorID, brandID}] = true
	return nil
}

func (s *memStore) FindProductByExternalID(_ context.Context, brandID int64, ext string) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.products[videoKey(brandID, ext)]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, database.ErrNotFound
}

func (s *memStore) addProduct(brandID int64, ext string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &models.Product{ID: s.id(), BrandID: brandID, ExternalProductID: ext}
	s.products[videoKey(brandID, ext)] = p
	return p.ID
}

func (s *memStore) UpsertVideoProductLink(_ context.Context, link *models.VideoProductLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := fmt.Sprintf("%d/%s", link.CreatorVideoID, link.ExternalProductID)
	if prev, ok := s.links[key]; ok && link.ProductID == nil {
		link.ProductID = prev.ProductID
	}
	s.links[key] = *link
	return nil
}

func (s *memStore) UpsertCreatorVideo(_ context.Context, v *models.CreatorVideo) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.videoErrs[v.ExternalVideoID]; err != nil {
		return 0, err
	}
	key := videoKey(v.BrandID, v.ExternalVideoID)
	cp := *v
	if prev, ok := s.videos[key]; ok {
		cp.ID = prev.ID
	} else {
		cp.ID = s.id()
	}
	s.videos[key] = &cp
	return cp.ID, nil
}

func (s *memStore) video(brandID int64, ext string) *models.CreatorVideo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.videos[videoKey(brandID, ext)]
}

func (s *memStore) FindVideoIDs(_ context.Context, brandID int64, ids []string) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findIDsCalls++
	out := make(map[string]int64)
	for _, id := range ids {
		if v, ok := s.videos[videoKey(brandID, id)]; ok {
			out[id] = v.ID
		}
	}
	return out, nil
}

func (s *memStore) GetSnapshots(_ context.Context, brandID int64, window int, date time.Time, ids []string) (map[string]*models.VideoMetricSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getSnapshotsErr != nil {
		return nil, s.getSnapshotsErr
	}
	out := make(map[string]*models.VideoMetricSnapshot)
	for _, id := range ids {
		if snap, ok := s.snapshots[snapshotKey(brandID, id, window, date)]; ok {
			cp := *snap
			out[id] = &cp
		}
	}
	return out, nil
}

func (s *memStore) UpsertSnapshots(_ context.Context, snaps []*models.VideoMetricSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bulkCalls++
	if s.bulkErr != nil {
		return s.bulkErr
	}
	for _, snap := range snaps {
		cp := *snap
		s.snapshots[snapshotKey(snap.BrandID, snap.ExternalVideoID, snap.WindowDays, snap.SnapshotDate)] = &cp
	}
	return nil
}

func (s *memStore) UpsertSnapshot(_ context.Context, snap *models.VideoMetricSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.snapshotErrs[snap.ExternalVideoID]; err != nil {
		return err
	}
	cp := *snap
	s.snapshots[snapshotKey(snap.BrandID, snap.ExternalVideoID, snap.WindowDays, snap.SnapshotDate)] = &cp
	return nil
}

func (s *memStore) snapshot(brandID int64, ext string, window int, date time.Time) *models.VideoMetricSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshots[snapshotKey(brandID, ext, window, date)]
}

func (s *memStore) putSnapshot(snap *models.VideoMetricSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *snap
	s.snapshots[snapshotKey(snap.BrandID, snap.ExternalVideoID, snap.WindowDays, snap.SnapshotDate)] = &cp
}

func (s *memStore) GetLastSuccessfulSync(_ context.Context, brandID int64) (*time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.lastSync[brandID]; ok {
		return &t, nil
	}
	return nil, nil
}

func (s *memStore) SetLastSuccessfulSync(_ context.Context, brandID int64, at time.Time, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSync[brandID] = at
	return nil
}

func (s *memStore) RecordSyncRun(_ context.Context, run *models.SyncRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, *run)
	return nil
}

func (s *memStore) ListSyncRuns(_ context.Context, brandID int64, limit int) ([]models.SyncRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SyncRun
	for i := len(s.runs) - 1; i >= 0 && len(out) < limit; i-- {
		if s.runs[i].BrandID == brandID {
			out = append(out, s.runs[i])
		}
	}
	return out, nil
}

// fakeFetcher serves canned rows per window length.
type fakeFetcher struct {
	mu       sync.Mutex
	rows     map[int][]models.RawRow
	errs     map[int]error
	calls    []int
	accounts []Account
}

func (f *fakeFetcher) FetchWindow(_ context.Context, account Account, start, end time.Time) ([]models.RawRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	days := int(end.Sub(start).Hours() / 24)
	f.calls = append(f.calls, days)
	f.accounts = append(f.accounts, account)
	if err := f.errs[days]; err != nil {
		return nil, err
	}
	return f.rows[days], nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// recordingPublisher records lifecycle notifications by kind.
type recordingPublisher struct {
	mu     sync.Mutex
	events []string
	last   *models.SyncStats
	failed *models.SyncRun
}

func (p *recordingPublisher) PublishStarted(_ context.Context, runID string, _ int64, _ []int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, "started")
	return nil
}

func (p *recordingPublisher) PublishCompleted(_ context.Context, stats *models.SyncStats) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, "completed")
	p.last = stats
	return nil
}

func (p *recordingPublisher) PublishFailed(_ context.Context, run *models.SyncRun) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, "failed")
	p.failed = run
	return nil
}

func (p *recordingPublisher) kinds() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return strings.Join(p.events, ",")
}

func i64(v int64) *int64 { return &v }
