// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package api

import (
	"context"
	"net/http"
	"time"
)

// HealthStatus is the body of the health endpoints.
type HealthStatus struct {
	Status            string  `json:"status"`
	DatabaseConnected bool    `json:"database_connected"`
	WebsocketClients  int     `json:"websocket_clients"`
	QueuedJobs        int     `json:"queued_jobs"`
	UptimeSeconds     float64 `json:"uptime_seconds"`
}

// HealthLive reports that the process is serving HTTP.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HealthReady reports 200 when the store answers a ping, 503 otherwise.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	health := h.health(r.Context())
	status := http.StatusOK
	if health.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	respondSuccess(w, status, health, start)
}

// Health returns the health summary with 200 regardless of state.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	respondSuccess(w, http.StatusOK, h.health(r.Context()), start)
}

func (h *Handler) health(ctx context.Context) HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	dbConnected := h.db != nil && h.db.Ping(ctx) == nil
	hs := HealthStatus{
		Status:            "healthy",
		DatabaseConnected: dbConnected,
		UptimeSeconds:     time.Since(h.startTime).Seconds(),
	}
	if !dbConnected {
		hs.Status = "degraded"
	}
	if h.wsHub != nil {
		hs.WebsocketClients = h.wsHub.GetClientCount()
	}
	if h.queue != nil {
		hs.QueuedJobs = len(h.queue.List())
	}
	return hs
}
