// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// DefaultNATSImage runs a JetStream-enabled NATS server.
	DefaultNATSImage = "nats:2.10-alpine"

	natsClientPort = "4222/tcp"
)

// NATSContainer is a running NATS server with JetStream enabled.
type NATSContainer struct {
	testcontainers.Container
	URL string
}

// NATSOption configures the container.
type NATSOption func(*natsConfig)

type natsConfig struct {
	image        string
	startTimeout time.Duration
}

// WithNATSImage overrides the image.
func WithNATSImage(image string) NATSOption {
	return func(c *natsConfig) { c.image = image }
}

// WithNATSStartTimeout sets how long to wait for readiness.
func WithNATSStartTimeout(d time.Duration) NATSOption {
	return func(c *natsConfig) { c.startTimeout = d }
}

// NewNATSContainer starts a NATS server and returns its client URL.
func NewNATSContainer(ctx context.Context, opts ...NATSOption) (*NATSContainer, error) {
	cfg := &natsConfig{image: DefaultNATSImage, startTimeout: 60 * time.Second}
	for _, opt := range opts {
		opt(cfg)
	}

	req := testcontainers.ContainerRequest{
		Image:        cfg.image,
		Cmd:          []string{"-js"},
		ExposedPorts: []string{natsClientPort},
		WaitingFor: wait.ForAll(
			wait.ForLog("Server is ready"),
			wait.ForListeningPort(natsClientPort),
		).WithStartupTimeout(cfg.startTimeout),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("create nats container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("container host: %w", err)
	}
	port, err := container.MappedPort(ctx, natsClientPort)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("mapped port: %w", err)
	}

	return &NATSContainer{
		Container: container,
		URL:       fmt.Sprintf("nats://%s:%s", host, port.Port()),
	}, nil
}
