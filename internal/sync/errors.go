// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package sync

import (
	"errors"
	"fmt"
	"time"
)

// maxSampleBytes bounds payload samples carried in errors and logs.
const maxSampleBytes = 512

var (
	// ErrRateLimited is returned when the analytics API answers 429 or an
	// envelope code of 429. It is never retried inside a run.
	ErrRateLimited = errors.New("analytics api rate limited")

	// ErrCreatorNotFound is returned when creating a creator conflicts and the
	// follow-up lookup still finds nothing.
	ErrCreatorNotFound = errors.New("creator not found after creation conflict")

	// ErrInvalidWindow is returned for a window that is not a positive day count.
	ErrInvalidWindow = errors.New("invalid sync window")

	// ErrNoBrandAccount is returned for a brand with no configured analytics
	// account.
	ErrNoBrandAccount = errors.New("no analytics account for brand")
)

// ServerError is a 5xx status or an envelope code >= 500. Retried per page.
type ServerError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("analytics server error (status=%d code=%d): %s", e.StatusCode, e.Code, e.Message)
}

// APIError is a non-retryable client-side failure such as 400 or 401.
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("analytics api error (status=%d code=%d): %s", e.StatusCode, e.Code, e.Message)
}

// NetworkError wraps transport failures: connection resets, timeouts, DNS.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return "analytics network error: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// UnexpectedResponseShapeError means the body did not match the envelope,
// so pagination state is unknown and the run cannot continue.
type UnexpectedResponseShapeError struct {
	StatusCode int
	Reason     string
	Sample     string
}

func (e *UnexpectedResponseShapeError) Error() string {
	return fmt.Sprintf("unexpected analytics response shape (status=%d): %s", e.StatusCode, e.Reason)
}

// RateLimitedError is returned by RunSync when the run was rate limited. It
// carries the persisted streak and when the brand should be retried.
type RateLimitedError struct {
	BrandID       int64
	Streak        int
	RetryAfter    time.Duration
	NextAttemptAt time.Time
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("brand %d rate limited (streak=%d), retry after %s", e.BrandID, e.Streak, e.RetryAfter)
}

func (e *RateLimitedError) Unwrap() error {
	return ErrRateLimited
}

// isRetryable reports whether a page request may be retried inline.
func isRetryable(err error) bool {
	var serverErr *ServerError
	var netErr *NetworkError
	return errors.As(err, &serverErr) || errors.As(err, &netErr)
}

// truncateSample returns at most maxSampleBytes of body for diagnostics.
func truncateSample(body []byte) string {
	if len(body) <= maxSampleBytes {
		return string(body)
	}
	return string(body[:maxSampleBytes]) + "...(truncated)"
}
