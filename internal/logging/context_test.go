// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestGenerateCorrelationID(t *testing.T) {
	t.Parallel()

	id := GenerateCorrelationID()
	if len(id) != 8 {
		t.Errorf("expected 8 character id, got %q", id)
	}
	if id == GenerateCorrelationID() {
		t.Error("expected distinct correlation ids")
	}
}

func TestCorrelationIDRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := ContextWithCorrelationID(context.Background(), "abc12345")
	if got := CorrelationIDFromContext(ctx); got != "abc12345" {
		t.Errorf("CorrelationIDFromContext() = %q, want abc12345", got)
	}
	if got := CorrelationIDFromContext(context.Background()); got != "" {
		t.Errorf("expected empty correlation id, got %q", got)
	}
}

func TestCtx_AddsRunFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ctx := ContextWithLogger(context.Background(), NewTestLogger(&buf))
	ctx = ContextWithCorrelationID(ctx, "corr0001")
	ctx = ContextWithRun(ctx, "run-1", 42)

	Ctx(ctx).Info().Msg("persisted")

	out := buf.String()
	for _, want := range []string{`"correlation_id":"corr0001"`, `"run_id":"run-1"`, `"brand_id":42`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in output, got: %s", want, out)
		}
	}
	if got := RunIDFromContext(ctx); got != "run-1" {
		t.Errorf("RunIDFromContext() = %q, want run-1", got)
	}
}

func TestCtx_NoFieldsWithoutContextValues(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ctx := ContextWithLogger(context.Background(), NewTestLogger(&buf))
	Ctx(ctx).Info().Msg("plain")

	if strings.Contains(buf.String(), "run_id") || strings.Contains(buf.String(), "correlation_id") {
		t.Errorf("unexpected context fields: %s", buf.String())
	}
}
