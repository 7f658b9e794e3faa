// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/creatorsync/internal/jobs"
	"github.com/tomtom215/creatorsync/internal/logging"
	"github.com/tomtom215/creatorsync/internal/models"
)

const maxTriggerBody = 4 << 10

// TriggerSyncRequest is the optional body of POST /brands/{brandID}/sync.
// No windows means the configured defaults.
type TriggerSyncRequest struct {
	BrandID int64 `json:"brand_id" validate:"gt=0"`
	Windows []int `json:"windows" validate:"omitempty,max=12,dive,window_days"`
}

// RunHistoryRequest holds run history query parameters.
type RunHistoryRequest struct {
	BrandID int64 `json:"brand_id" validate:"gt=0"`
	Limit   int   `json:"limit" validate:"min=1,max=100"`
}

// BrandSyncResponse is the body of GET /brands/{brandID}/sync.
type BrandSyncResponse struct {
	*models.BrandSyncStatus
	Job *jobs.Job `json:"job,omitempty"`
}

// brandIDParam parses the {brandID} path parameter. Invalid values become 0
// and fail validation.
func brandIDParam(r *http.Request) int64 {
	id, err := strconv.ParseInt(chi.URLParam(r, "brandID"), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// TriggerSync enqueues a sync job for the brand. 202 with the job, 404 for a
// brand without an analytics account, 409 when a job for the brand is
// already in flight.
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	req := TriggerSyncRequest{}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxTriggerBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeValidation, "Could not read request body", err)
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			respondError(w, http.StatusBadRequest, ErrCodeValidation, "Request body must be JSON: {\"windows\": [30, 90]}", nil)
			return
		}
	}
	// Path wins over body.
	req.BrandID = brandIDParam(r)
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidation(w, apiErr)
		return
	}

	if _, ok := h.config.BrandAccount(req.BrandID); !ok {
		respondError(w, http.StatusNotFound, ErrCodeUnknownBrand, "No analytics account is configured for this brand", nil)
		return
	}

	windows := req.Windows
	if len(windows) == 0 {
		windows = h.config.Sync.Windows
	}

	job, err := h.queue.Enqueue(req.BrandID, windows)
	switch {
	case errors.Is(err, jobs.ErrAlreadyQueued):
		respondError(w, http.StatusConflict, ErrCodeSyncInFlight, "A sync for this brand is already queued or running", nil)
		return
	case errors.Is(err, jobs.ErrQueueFull):
		respondError(w, http.StatusServiceUnavailable, ErrCodeQueueFull, "Sync queue is full, try again later", err)
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, ErrCodeUnavailable, "Could not enqueue sync", err)
		return
	}

	logging.Ctx(r.Context()).Info().Int64("brand_id", req.BrandID).Str("job_id", job.ID).Msg("Sync triggered via API")
	respondSuccess(w, http.StatusAccepted, job, start)
}

// BrandSyncStatus returns last sync, cooldown state, recent runs and the
// in-flight job for a brand.
func (h *Handler) BrandSyncStatus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	brandID := brandIDParam(r)
	if apiErr := validateRequest(&RunHistoryRequest{BrandID: brandID, Limit: 1}); apiErr != nil {
		respondValidation(w, apiErr)
		return
	}

	status, err := h.status.Status(r.Context(), brandID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeDatabase, "Failed to load sync status", err)
		return
	}

	resp := BrandSyncResponse{BrandSyncStatus: status}
	if job, ok := h.queue.Get(brandID); ok {
		resp.Job = &job
	}
	respondSuccess(w, http.StatusOK, resp, start)
}

// SyncRuns returns the brand's run history, newest first.
func (h *Handler) SyncRuns(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req := RunHistoryRequest{BrandID: brandIDParam(r), Limit: 20}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			n = -1
		}
		req.Limit = n
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidation(w, apiErr)
		return
	}

	runs, err := h.runs.ListSyncRuns(r.Context(), req.BrandID, req.Limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeDatabase, "Failed to load sync runs", err)
		return
	}
	if runs == nil {
		runs = []models.SyncRun{}
	}
	respondSuccess(w, http.StatusOK, runs, start)
}

// Jobs lists every in-flight job.
func (h *Handler) Jobs(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, h.queue.List(), time.Now())
}
