// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package websocket

import (
	"context"
	"errors"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/creatorsync/internal/events"
	"github.com/tomtom215/creatorsync/internal/logging"
)

// EventSource yields sync lifecycle messages.
type EventSource interface {
	Subscribe(ctx context.Context) (<-chan *message.Message, error)
}

// Bridge forwards lifecycle events from the bus to the hub.
type Bridge struct {
	hub    *Hub
	source EventSource
}

// NewBridge creates a bus to websocket bridge.
func NewBridge(hub *Hub, source EventSource) *Bridge {
	return &Bridge{hub: hub, source: source}
}

// Serve subscribes to the bus and broadcasts until ctx is done. A closed bus
// stops the bridge for good.
func (b *Bridge) Serve(ctx context.Context) error {
	msgs, err := b.source.Subscribe(ctx)
	if errors.Is(err, events.ErrClosed) {
		return suture.ErrDoNotRestart
	}
	if err != nil {
		return err
	}
	logging.Info().Msg("Event to websocket bridge started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				logging.Info().Msg("Event to websocket bridge stopped, bus closed")
				return suture.ErrDoNotRestart
			}
			b.handle(msg)
		}
	}
}

func (b *Bridge) handle(msg *message.Message) {
	defer msg.Ack()

	e, err := events.Unmarshal(msg.Payload)
	if err != nil {
		logging.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("Dropping undecodable lifecycle event")
		return
	}
	b.hub.BroadcastEvent(e)
}
