// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package events

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/nats-io/nats-server/v2/server"

	"github.com/tomtom215/creatorsync/internal/config"
	"github.com/tomtom215/creatorsync/internal/logging"
)

const (
	defaultNATSPort = 4222
	readyTimeout    = 30 * time.Second
	duplicateWindow = 2 * time.Minute
)

// EmbeddedOptions configures an in-process NATS JetStream server.
type EmbeddedOptions struct {
	Host     string
	Port     int // -1 picks a random port
	StoreDir string
	MaxMem   int64
	MaxStore int64
}

// EmbeddedServer wraps the NATS server with lifecycle management.
type EmbeddedServer struct {
	server    *server.Server
	clientURL string
}

// NewEmbeddedServer creates and starts an embedded NATS server with
// JetStream. It fails if the server is not ready within 30 seconds.
func NewEmbeddedServer(opts EmbeddedOptions) (*EmbeddedServer, error) {
	ns, err := server.NewServer(&server.Options{
		ServerName:         "creatorsync-events",
		Host:               opts.Host,
		Port:               opts.Port,
		JetStream:          true,
		StoreDir:           opts.StoreDir,
		JetStreamMaxMemory: opts.MaxMem,
		JetStreamMaxStore:  opts.MaxStore,
		NoLog:              true,
		MaxPayload:         8 * 1024 * 1024,
	})
	if err != nil {
		return nil, fmt.Errorf("create NATS server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(readyTimeout) {
		ns.Shutdown()
		return nil, errors.New("NATS server not ready within timeout")
	}

	return &EmbeddedServer{server: ns, clientURL: ns.ClientURL()}, nil
}

// ClientURL returns the connection URL for clients.
func (s *EmbeddedServer) ClientURL() string {
	return s.clientURL
}

// IsRunning returns server health status.
func (s *EmbeddedServer) IsRunning() bool {
	return s.server.Running()
}

// Shutdown stops the server and waits for it to exit.
func (s *EmbeddedServer) Shutdown() error {
	s.server.Shutdown()
	s.server.WaitForShutdown()
	return nil
}

// StreamManager is the subset of jetstream.JetStream used by EnsureStream.
type StreamManager interface {
	Stream(ctx context.Context, name string) (jetstream.Stream, error)
	CreateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
	UpdateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
}

// StreamConfig returns the lifecycle stream definition for cfg.
func StreamConfig(cfg *config.NATSConfig) jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:       cfg.StreamName,
		Subjects:   []string{cfg.SubjectPrefix + ".>"},
		Retention:  jetstream.LimitsPolicy,
		MaxAge:     time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		Duplicates: duplicateWindow,
		Storage:    jetstream.FileStorage,
		Discard:    jetstream.DiscardOld,
	}
}

// EnsureStream creates the stream, or updates it if it already exists.
func EnsureStream(ctx context.Context, js StreamManager, cfg jetstream.StreamConfig) (jetstream.Stream, error) {
	_, err := js.Stream(ctx, cfg.Name)
	if err == nil {
		stream, err := js.UpdateStream(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("update stream %s: %w", cfg.Name, err)
		}
		return stream, nil
	}
	if errors.Is(err, jetstream.ErrStreamNotFound) {
		stream, err := js.CreateStream(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("create stream %s: %w", cfg.Name, err)
		}
		return stream, nil
	}
	return nil, fmt.Errorf("check stream %s: %w", cfg.Name, err)
}

// embeddedOptionsFor derives listen address and limits from cfg.URL.
func embeddedOptionsFor(cfg *config.NATSConfig) EmbeddedOptions {
	opts := EmbeddedOptions{
		Host:     "127.0.0.1",
		Port:     defaultNATSPort,
		StoreDir: cfg.StoreDir,
		MaxMem:   cfg.MaxMemory,
		MaxStore: cfg.MaxStore,
	}
	if u, err := url.Parse(cfg.URL); err == nil && u.Host != "" {
		host, port, err := net.SplitHostPort(u.Host)
		if err == nil {
			opts.Host = host
			if p, err := strconv.Atoi(port); err == nil {
				opts.Port = p
			}
		}
	}
	return opts
}

func natsOptions() []natsgo.Option {
	log := logging.WithComponent("nats")
	return []natsgo.Option{
		natsgo.Name("creatorsync"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}
}

// Open creates the event bus for cfg. With NATS disabled only the in-process
// transport is used. Otherwise the embedded server is started if configured,
// the stream is provisioned and a JetStream publisher is attached.
func Open(ctx context.Context, cfg *config.NATSConfig) (*Bus, error) {
	bus := NewLocalBus()
	if !cfg.Enabled {
		logging.Info().Msg("NATS disabled, lifecycle events are in-process only")
		return bus, nil
	}

	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
		_ = bus.Close()
	}

	natsURL := cfg.URL
	if cfg.EmbeddedServer {
		srv, err := NewEmbeddedServer(embeddedOptionsFor(cfg))
		if err != nil {
			cleanup()
			return nil, err
		}
		closers = append(closers, srv.Shutdown)
		natsURL = srv.ClientURL()
		logging.Info().Str("url", natsURL).Msg("Embedded NATS server started")
	}

	nc, err := natsgo.Connect(natsURL, natsOptions()...)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	closers = append(closers, func() error { nc.Close(); return nil })

	js, err := jetstream.New(nc)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}
	if _, err := EnsureStream(ctx, js, StreamConfig(cfg)); err != nil {
		cleanup()
		return nil, err
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         natsURL,
		NatsOptions: natsOptions(),
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: false,
			TrackMsgId:    true,
		},
	}, bus.logger)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}

	// Close in reverse start order: publisher, connection, server.
	reversed := make([]func() error, 0, len(closers))
	for i := len(closers) - 1; i >= 0; i-- {
		reversed = append(reversed, closers[i])
	}
	bus.attachRemote(pub, cfg.SubjectPrefix, reversed...)

	logging.Info().
		Str("stream", cfg.StreamName).
		Str("subject_prefix", cfg.SubjectPrefix).
		Msg("Lifecycle events published to NATS JetStream")
	return bus, nil
}
