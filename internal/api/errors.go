// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package api

import "errors"

var (
	// ErrMissingToken indicates no bearer token was presented.
	ErrMissingToken = errors.New("missing bearer token")

	// ErrInvalidAuthHeader indicates a malformed Authorization header.
	ErrInvalidAuthHeader = errors.New("invalid authorization header")
)
