// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package api

import (
	"context"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"github.com/tomtom215/creatorsync/internal/config"
	"github.com/tomtom215/creatorsync/internal/jobs"
	"github.com/tomtom215/creatorsync/internal/models"
	ws "github.com/tomtom215/creatorsync/internal/websocket"
)

// StatusProvider reports per-brand sync state. Implemented by sync.Manager.
type StatusProvider interface {
	Status(ctx context.Context, brandID int64) (*models.BrandSyncStatus, error)
}

// RunHistory lists recorded sync runs. Implemented by database.DB.
type RunHistory interface {
	ListSyncRuns(ctx context.Context, brandID int64, limit int) ([]models.SyncRun, error)
}

// JobQueue accepts and reports brand sync jobs. Implemented by jobs.Runner.
type JobQueue interface {
	Enqueue(brandID int64, windows []int) (jobs.Job, error)
	Get(brandID int64) (jobs.Job, bool)
	List() []jobs.Job
}

// Pinger checks store connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains dependencies for API handlers
//
// Handler methods are split across files:
//   - handlers_health.go: liveness and readiness
//   - handlers_sync.go: trigger, status, run history, job listing
//   - handlers_websocket.go: lifecycle event feed
type Handler struct {
	config    *config.Config
	status    StatusProvider
	runs      RunHistory
	queue     JobQueue
	db        Pinger
	wsHub     *ws.Hub
	upgrader  *gorillaws.Upgrader
	startTime time.Time
}

// NewHandler creates the API handler. hub may be nil, in which case the
// websocket feed answers 503.
func NewHandler(cfg *config.Config, status StatusProvider, runs RunHistory, queue JobQueue, db Pinger, hub *ws.Hub) *Handler {
	return &Handler{
		config:    cfg,
		status:    status,
		runs:      runs,
		queue:     queue,
		db:        db,
		wsHub:     hub,
		upgrader:  ws.Upgrader(cfg.Security.CORSOrigins),
		startTime: time.Now(),
	}
}
