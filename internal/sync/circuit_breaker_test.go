// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package sync

import (
	"errors"
	"testing"

	gobreaker "github.com/sony/gobreaker/v2"
)

func TestPageBreaker_TripsOnServerErrors(t *testing.T) {
	cb := newPageBreaker("test-trip")

	for i := 0; i < 10; i++ {
		_, _ = executeWithBreaker(cb, func() (*page, error) {
			return nil, &ServerError{StatusCode: 503}
		})
	}
	if cb.State() != gobreaker.StateOpen {
		t.Fatalf("state = %s, want open", stateToString(cb.State()))
	}

	_, err := executeWithBreaker(cb, func() (*page, error) { return &page{}, nil })
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("error = %v, want ErrOpenState", err)
	}
}

func TestPageBreaker_IgnoresNonHealthErrors(t *testing.T) {
	cb := newPageBreaker("test-ignore")

	for i := 0; i < 20; i++ {
		_, _ = executeWithBreaker(cb, func() (*page, error) { return nil, ErrRateLimited })
		_, _ = executeWithBreaker(cb, func() (*page, error) { return nil, &APIError{StatusCode: 400} })
	}
	if cb.State() != gobreaker.StateClosed {
		t.Errorf("state = %s, want closed", stateToString(cb.State()))
	}
}

func TestStateConversions(t *testing.T) {
	t.Parallel()
	tests := []struct {
		state gobreaker.State
		f     float64
		s     string
	}{
		{gobreaker.StateClosed, 0, "closed"},
		{gobreaker.StateHalfOpen, 1, "half-open"},
		{gobreaker.StateOpen, 2, "open"},
	}
	for _, tt := range tests {
		if got := stateToFloat(tt.state); got != tt.f {
			t.Errorf("stateToFloat(%v) = %v, want %v", tt.state, got, tt.f)
		}
		if got := stateToString(tt.state); got != tt.s {
			t.Errorf("stateToString(%v) = %q, want %q", tt.state, got, tt.s)
		}
	}
}
