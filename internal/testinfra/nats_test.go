// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

//go:build integration

package testinfra

import (
	"context"
	"testing"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/creatorsync/internal/config"
	"github.com/tomtom215/creatorsync/internal/events"
	"github.com/tomtom215/creatorsync/internal/models"
)

func TestExternalNATS_LifecycleEventsReachStream(t *testing.T) {
	SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	natsC, err := NewNATSContainer(ctx)
	if err != nil {
		t.Fatalf("NewNATSContainer() error = %v", err)
	}
	CleanupContainer(t, natsC)

	cfg := &config.NATSConfig{
		Enabled:       true,
		URL:           natsC.URL,
		StreamName:    "CREATORSYNC_IT",
		SubjectPrefix: "creatorsync",
		RetentionDays: 1,
	}
	bus, err := events.Open(ctx, cfg)
	if err != nil {
		t.Fatalf("events.Open() error = %v", err)
	}
	defer bus.Close() //nolint:errcheck

	stats := &models.SyncStats{RunID: "it-run", BrandID: 11, Status: models.SyncStatusCompleted, VideosSynced: 3}
	if err := bus.PublishCompleted(ctx, stats); err != nil {
		t.Fatalf("PublishCompleted() error = %v", err)
	}

	nc, err := natsgo.Connect(natsC.URL)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer nc.Close()
	js, err := jetstream.New(nc)
	if err != nil {
		t.Fatalf("jetstream: %v", err)
	}
	stream, err := js.Stream(ctx, cfg.StreamName)
	if err != nil {
		t.Fatalf("stream lookup: %v", err)
	}
	msg, err := stream.GetLastMsgForSubject(ctx, "creatorsync.sync.completed")
	if err != nil {
		t.Fatalf("GetLastMsgForSubject() error = %v", err)
	}

	e, err := events.Unmarshal(msg.Data)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if e.RunID != "it-run" || e.BrandID != 11 || e.Type != events.EventSyncCompleted {
		t.Errorf("stored event = %+v", e)
	}
}
