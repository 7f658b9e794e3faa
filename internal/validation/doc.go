// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

// Package validation provides struct validation using go-playground/validator v10.
//
// A thread-safe singleton validator is shared by the sync pipeline (required
// row fields) and the HTTP API (trigger request bodies). Field names in errors
// follow json tags.
//
// # Custom Tags
//
//   - notblank: string is non-empty after trimming whitespace
//   - window_days: integer in 1..MaxWindowDays
//
// # Usage
//
//	type TriggerSyncRequest struct {
//	    Windows []int `json:"windows" validate:"omitempty,max=8,unique,dive,window_days"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
//	    return
//	}
//
// Row checks in the pipeline use the same entry point:
//
//	type requiredRowFields struct {
//	    VideoID  string `validate:"notblank"`
//	    Username string `validate:"notblank"`
//	}
package validation
