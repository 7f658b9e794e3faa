// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/tomtom215/creatorsync/internal/events"
	"github.com/tomtom215/creatorsync/internal/logging"
	"github.com/tomtom215/creatorsync/internal/metrics"
)

// ShutdownReason identifies why the hub stopped.
type ShutdownReason string

const (
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types
const (
	MessageTypePing = "ping"
	MessageTypePong = "pong"
	// Sync lifecycle messages reuse the event type, e.g. "sync.completed".
)

// Message is one frame sent to or received from a client.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub tracks connected clients and fans messages out to them. A client may
// subscribe to a single brand; brand 0 receives everything.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan brandMessage
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

type brandMessage struct {
	brandID int64
	msg     Message
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan brandMessage, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// RunWithContext runs the hub until ctx is done, then closes every client.
//
// Lifecycle events are handled before broadcasts so a client registered just
// before a broadcast always receives it.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.add(client)
			continue
		case client := <-h.Unregister:
			h.remove(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.add(client)
		case client := <-h.Unregister:
			h.remove(client)
		case bm := <-h.broadcast:
			h.broadcastToClients(bm)
		}
	}
}

// Serve implements suture.Service.
func (h *Hub) Serve(ctx context.Context) error {
	return h.RunWithContext(ctx)
}

func (h *Hub) add(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	n := len(h.clients)
	h.mu.Unlock()
	metrics.WSConnections.Set(float64(n))
	logging.Info().Int("total_clients", n).Int64("brand_id", client.brandID).Msg("websocket client connected")
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	metrics.WSConnections.Set(float64(n))
	logging.Info().Int("total_clients", n).Msg("websocket client disconnected")
}

func (h *Hub) shutdown(ctx context.Context) {
	count := h.GetClientCount()
	h.closeAllClients()
	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", count).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if ctx.Err() == context.DeadlineExceeded {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}

// sortedClients returns clients in connection order. Caller holds h.mu.
func (h *Hub) sortedClients() []*Client {
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	return clients
}

// broadcastToClients delivers to every matching client. Clients whose send
// buffer is full are dropped.
func (h *Hub) broadcastToClients(bm brandMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var toRemove []*Client
	sent := 0
	for _, client := range h.sortedClients() {
		if !client.wants(bm.brandID) {
			continue
		}
		select {
		case client.send <- bm.msg:
			sent++
		default:
			toRemove = append(toRemove, client)
		}
	}
	metrics.WSMessagesSent.Add(float64(sent))

	for _, client := range toRemove {
		close(client.send)
		delete(h.clients, client)
	}
	if len(toRemove) > 0 {
		metrics.WSConnections.Set(float64(len(h.clients)))
		logging.Warn().Int("dropped_clients", len(toRemove)).Msg("websocket clients dropped, send buffer full")
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, client := range h.sortedClients() {
		close(client.send)
		delete(h.clients, client)
	}
	metrics.WSConnections.Set(0)
}

// BroadcastEvent sends a sync lifecycle event to every client watching its
// brand.
func (h *Hub) BroadcastEvent(e *events.SyncEvent) {
	bm := brandMessage{brandID: e.BrandID, msg: Message{Type: string(e.Type), Data: e}}
	select {
	case h.broadcast <- bm:
	default:
		logging.Warn().Str("message_type", string(e.Type)).Str("run_id", e.RunID).Msg("broadcast channel full, dropping event")
	}
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
