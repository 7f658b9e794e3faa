// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/creatorsync/internal/config"
	"github.com/tomtom215/creatorsync/internal/jobs"
	"github.com/tomtom215/creatorsync/internal/logging"
	"github.com/tomtom215/creatorsync/internal/models"
)

//nolint:gochecknoinits // quiet logging for tests
func init() {
	logging.Init(logging.Config{Level: "error", Format: "console", Output: io.Discard})
}

type fakeStatus struct {
	err error
}

func (f *fakeStatus) Status(_ context.Context, brandID int64) (*models.BrandSyncStatus, error) {
	if f.err != nil {
		return nil, f.err
	}
	last := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	return &models.BrandSyncStatus{BrandID: brandID, LastSuccessfulSyncAt: &last, RecentRuns: []models.SyncRun{}}, nil
}

type fakeRuns struct {
	gotLimit int
	runs     []models.SyncRun
	err      error
}

func (f *fakeRuns) ListSyncRuns(_ context.Context, _ int64, limit int) ([]models.SyncRun, error) {
	f.gotLimit = limit
	return f.runs, f.err
}

type fakeQueue struct {
	mu       sync.Mutex
	jobs     map[int64]jobs.Job
	enqueued [][]int
	err      error
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{jobs: make(map[int64]jobs.Job)}
}

func (q *fakeQueue) Enqueue(brandID int64, windows []int) (jobs.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return jobs.Job{}, q.err
	}
	if _, ok := q.jobs[brandID]; ok {
		return jobs.Job{}, jobs.ErrAlreadyQueued
	}
	j := jobs.Job{ID: "job-1", BrandID: brandID, Windows: windows, State: jobs.StateQueued}
	q.jobs[brandID] = j
	q.enqueued = append(q.enqueued, windows)
	return j, nil
}

func (q *fakeQueue) Get(brandID int64) (jobs.Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	j, ok := q.jobs[brandID]
	return j, ok
}

func (q *fakeQueue) List() []jobs.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]jobs.Job, 0, len(q.jobs))
	for _, j := range q.jobs {
		out = append(out, j)
	}
	return out
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

var errDown = errors.New("down")

type testEnv struct {
	queue  *fakeQueue
	runs   *fakeRuns
	status *fakeStatus
	db     *fakePinger
	cfg    *config.Config
}

func newTestEnv() *testEnv {
	return &testEnv{
		queue:  newFakeQueue(),
		runs:   &fakeRuns{},
		status: &fakeStatus{},
		db:     &fakePinger{},
		cfg: &config.Config{
			Analytics: config.AnalyticsConfig{AccessToken: "token"},
			Sync:      config.SyncConfig{Windows: []int{30, 90}},
			Security:  config.SecurityConfig{RateLimitDisabled: true},
		},
	}
}

func (e *testEnv) handler(tokens *TokenValidator) http.Handler {
	h := NewHandler(e.cfg, e.status, e.runs, e.queue, e.db, nil)
	mw := NewChiMiddleware(ChiMiddlewareConfigFrom(&e.cfg.Security), tokens)
	return NewRouter(h, mw).Setup()
}

func do(t *testing.T, h http.Handler, method, target, body string, header map[string]string) (*httptest.ResponseRecorder, models.APIResponse) {
	t.Helper()
	var rdr io.Reader = http.NoBody
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp models.APIResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, resp
}
