// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package supervisor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

// mockService runs until cancelled, optionally failing its first runs.
type mockService struct {
	name      string
	starts    atomic.Int32
	failFirst int32
}

func (m *mockService) Serve(ctx context.Context) error {
	n := m.starts.Add(1)
	if n <= m.failFirst {
		return errors.New("simulated failure")
	}
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockService) String() string { return m.name }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewSupervisorTree_Defaults(t *testing.T) {
	tree, err := NewSupervisorTree(quietLogger(), TreeConfig{})
	if err != nil {
		t.Fatalf("NewSupervisorTree() error = %v", err)
	}
	if tree.config != DefaultTreeConfig() {
		t.Errorf("config = %+v, want defaults", tree.config)
	}
	if tree.Root() == nil {
		t.Error("root supervisor should not be nil")
	}
}

func TestSupervisorTree_RunsEveryLayer(t *testing.T) {
	tree, err := NewSupervisorTree(quietLogger(), TreeConfig{
		FailureBackoff:  10 * time.Millisecond,
		ShutdownTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("NewSupervisorTree() error = %v", err)
	}

	hub := &mockService{name: "websocket-hub"}
	runner := &mockService{name: "sync-job-runner", failFirst: 2}
	httpSvc := &mockService{name: "http-server"}
	tree.AddMessagingService(hub)
	tree.AddJobsService(runner)
	tree.AddAPIService(httpSvc)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	deadline := time.Now().Add(3 * time.Second)
	for runner.starts.Load() < 3 || hub.starts.Load() < 1 || httpSvc.starts.Load() < 1 {
		if time.Now().After(deadline) {
			t.Fatalf("services not started: hub=%d runner=%d http=%d",
				hub.starts.Load(), runner.starts.Load(), httpSvc.starts.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}

	// A failing jobs service must not restart the other layers.
	if hub.starts.Load() != 1 || httpSvc.starts.Load() != 1 {
		t.Errorf("other layers restarted: hub=%d http=%d", hub.starts.Load(), httpSvc.starts.Load())
	}

	cancel()
	select {
	case <-errCh:
	case <-time.After(3 * time.Second):
		t.Fatal("tree did not stop")
	}

	report, err := tree.UnstoppedServiceReport()
	if err != nil || len(report) != 0 {
		t.Errorf("unstopped services = %v, %v", report, err)
	}
}
