// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package events

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/tomtom215/creatorsync/internal/logging"
	"github.com/tomtom215/creatorsync/internal/metrics"
	"github.com/tomtom215/creatorsync/internal/models"
)

// ErrClosed is returned by a closed Bus.
var ErrClosed = errors.New("event bus is closed")

const localBuffer = 256

// Bus publishes run lifecycle events on the in-process GoChannel and, when
// configured, on NATS JetStream.
type Bus struct {
	local  *gochannel.GoChannel
	remote message.Publisher
	prefix string
	logger watermill.LoggerAdapter

	mu      sync.RWMutex
	closed  bool
	closers []func() error
}

// NewLocalBus creates a bus with only the in-process transport.
func NewLocalBus() *Bus {
	logger := logging.NewWatermillLogger()
	return &Bus{
		local: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: localBuffer,
		}, logger),
		logger: logger,
	}
}

// attachRemote adds a publisher for subject prefix. closers run on Close
// after the publisher is closed, in order.
func (b *Bus) attachRemote(pub message.Publisher, prefix string, closers ...func() error) {
	b.remote = pub
	b.prefix = prefix
	b.closers = append(b.closers, closers...)
}

// HasRemote reports whether events also go to NATS.
func (b *Bus) HasRemote() bool {
	return b.remote != nil
}

// PublishStarted emits sync.started.
func (b *Bus) PublishStarted(ctx context.Context, runID string, brandID int64, windows []int) error {
	return b.Publish(ctx, NewStartedEvent(runID, brandID, windows))
}

// PublishCompleted emits sync.completed.
func (b *Bus) PublishCompleted(ctx context.Context, stats *models.SyncStats) error {
	return b.Publish(ctx, NewCompletedEvent(stats))
}

// PublishFailed emits sync.failed.
func (b *Bus) PublishFailed(ctx context.Context, run *models.SyncRun) error {
	return b.Publish(ctx, NewFailedEvent(run))
}

// Publish sends e to every transport. A remote failure does not prevent
// local delivery; both errors are returned joined.
func (b *Bus) Publish(ctx context.Context, e *SyncEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}

	data, err := Marshal(e)
	if err != nil {
		metrics.RecordEventPublish(string(e.Type), err)
		return err
	}

	var errs []error
	if err := b.local.Publish(LocalTopic, b.newMessage(ctx, e, data)); err != nil {
		errs = append(errs, fmt.Errorf("local publish: %w", err))
	}
	if b.remote != nil {
		if err := b.remote.Publish(e.Subject(b.prefix), b.newMessage(ctx, e, data)); err != nil {
			errs = append(errs, fmt.Errorf("nats publish %s: %w", e.Subject(b.prefix), err))
		}
	}

	err = errors.Join(errs...)
	metrics.RecordEventPublish(string(e.Type), err)
	return err
}

func (b *Bus) newMessage(ctx context.Context, e *SyncEvent, data []byte) *message.Message {
	msg := message.NewMessage(e.EventID, data)
	msg.Metadata.Set("type", string(e.Type))
	msg.Metadata.Set("brand_id", strconv.FormatInt(e.BrandID, 10))
	msg.Metadata.Set("run_id", e.RunID)
	msg.SetContext(ctx)
	return msg
}

// Subscribe returns a channel of local lifecycle messages. Each message must
// be acked. The channel closes when ctx is done or the bus is closed.
func (b *Bus) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrClosed
	}
	return b.local.Subscribe(ctx, LocalTopic)
}

// Close shuts down every transport.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	var errs []error
	if b.remote != nil {
		if err := b.remote.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, c := range b.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := b.local.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
