// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

/*
Package websocket streams sync lifecycle events to browser clients.

Components:

  - Hub: tracks clients and fans messages out, filtered by brand
  - Client: one connection with a read pump (pings) and a write pump
  - Bridge: subscribes to the in-process event bus and feeds the hub

Each lifecycle event is sent as

	{"type": "sync.completed", "data": {...SyncEvent...}}

Clients connected with brand 0 receive events for every brand. A client whose
send buffer fills up is disconnected rather than slowing the hub.

Usage:

	hub := websocket.NewHub()
	bridge := websocket.NewBridge(hub, bus)
	// add hub and bridge to the supervisor tree
	upgrader := websocket.Upgrader(cfg.Security.CORSOrigins)
	r.Get("/api/v1/events/ws", func(w http.ResponseWriter, r *http.Request) {
	    websocket.ServeWS(hub, upgrader, w, r, 0)
	})
*/
package websocket
