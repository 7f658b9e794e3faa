// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package models

import (
	"time"
)

// APIResponse is the envelope used by every HTTP endpoint.
//
// Status is "success" (see Data) or "error" (see Error):
//
//	{
//	  "status": "success",
//	  "data": {"job_id": "7-1700000000", "brand_id": 7, "windows": [30, 90]},
//	  "metadata": {"timestamp": "2026-01-02T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
}

// APIError is the structured error body.
//
// Codes in use:
//   - VALIDATION_ERROR: invalid path or body parameters
//   - AUTHENTICATION_ERROR: missing or invalid bearer token
//   - SYNC_IN_FLIGHT: a sync for the brand is already queued or running
//   - DATABASE_ERROR: store query failure
//   - RATE_LIMIT_EXCEEDED: too many requests to this API
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
