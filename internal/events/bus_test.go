// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/creatorsync/internal/config"
	"github.com/tomtom215/creatorsync/internal/models"
)

func TestBus_LocalDelivery(t *testing.T) {
	bus := NewLocalBus()
	defer bus.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msgs, err := bus.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if err := bus.PublishStarted(ctx, "run-1", 7, []int{30}); err != nil {
		t.Fatalf("PublishStarted() error = %v", err)
	}
	if err := bus.PublishCompleted(ctx, &models.SyncStats{RunID: "run-1", BrandID: 7, Status: models.SyncStatusCompleted}); err != nil {
		t.Fatalf("PublishCompleted() error = %v", err)
	}

	var got []EventType
	for len(got) < 2 {
		select {
		case msg := <-msgs:
			e, err := Unmarshal(msg.Payload)
			if err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if msg.Metadata.Get("brand_id") != "7" || msg.Metadata.Get("type") != string(e.Type) {
				t.Errorf("metadata = %v", msg.Metadata)
			}
			got = append(got, e.Type)
			msg.Ack()
		case <-ctx.Done():
			t.Fatalf("received %v before timeout", got)
		}
	}
	if got[0] != EventSyncStarted || got[1] != EventSyncCompleted {
		t.Errorf("event order = %v", got)
	}
}

func TestBus_Closed(t *testing.T) {
	bus := NewLocalBus()
	if err := bus.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := bus.PublishStarted(context.Background(), "r", 1, nil); !errors.Is(err, ErrClosed) {
		t.Errorf("publish after close = %v, want ErrClosed", err)
	}
	if _, err := bus.Subscribe(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("subscribe after close = %v, want ErrClosed", err)
	}
}

func TestOpen_Disabled(t *testing.T) {
	bus, err := Open(context.Background(), &config.NATSConfig{Enabled: false})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer bus.Close()
	if bus.HasRemote() {
		t.Error("disabled NATS attached a remote publisher")
	}
}

func TestEmbeddedOptionsFor(t *testing.T) {
	t.Parallel()
	opts := embeddedOptionsFor(&config.NATSConfig{URL: "nats://0.0.0.0:4333", StoreDir: "/tmp/js"})
	if opts.Host != "0.0.0.0" || opts.Port != 4333 || opts.StoreDir != "/tmp/js" {
		t.Errorf("options = %+v", opts)
	}
	opts = embeddedOptionsFor(&config.NATSConfig{URL: "not a url"})
	if opts.Port != defaultNATSPort {
		t.Errorf("fallback port = %d", opts.Port)
	}
}

func TestEmbeddedNATS_PublishesToStream(t *testing.T) {
	if testing.Short() {
		t.Skip("starts a NATS server")
	}

	srv, err := NewEmbeddedServer(EmbeddedOptions{Host: "127.0.0.1", Port: -1, StoreDir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewEmbeddedServer() error = %v", err)
	}
	defer srv.Shutdown()

	cfg := &config.NATSConfig{
		Enabled:       true,
		URL:           srv.ClientURL(),
		StreamName:    "CREATORSYNC_TEST",
		SubjectPrefix: "creatorsync",
		RetentionDays: 1,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	bus, err := Open(ctx, cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer bus.Close()
	if !bus.HasRemote() {
		t.Fatal("NATS publisher not attached")
	}

	// Opening twice updates the existing stream instead of failing.
	again, err := Open(ctx, cfg)
	if err != nil {
		t.Fatalf("second Open() error = %v", err)
	}
	_ = again.Close()

	if err := bus.PublishFailed(ctx, &models.SyncRun{RunID: "r", BrandID: 3, Status: models.SyncStatusFailed, Error: "boom"}); err != nil {
		t.Fatalf("PublishFailed() error = %v", err)
	}

	nc, err := natsgo.Connect(srv.ClientURL())
	if err != nil {
		t.Fatal(err)
	}
	defer nc.Close()
	js, err := jetstream.New(nc)
	if err != nil {
		t.Fatal(err)
	}
	stream, err := js.Stream(ctx, cfg.StreamName)
	if err != nil {
		t.Fatalf("stream missing: %v", err)
	}
	msg, err := stream.GetLastMsgForSubject(ctx, "creatorsync.sync.failed")
	if err != nil {
		t.Fatalf("GetLastMsgForSubject() error = %v", err)
	}
	e, err := Unmarshal(msg.Data)
	if err != nil || e.Error != "boom" || e.BrandID != 3 {
		t.Errorf("stored event = %+v, %v", e, err)
	}
}
