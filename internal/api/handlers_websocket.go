// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package api

import (
	"net/http"
	"strconv"

	ws "github.com/tomtom215/creatorsync/internal/websocket"
)

// EventsWebSocket upgrades to a websocket streaming sync lifecycle events.
// Optional ?brand_id= limits the feed to one brand.
func (h *Handler) EventsWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		respondError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "Event feed is not enabled", nil)
		return
	}

	var brandID int64
	if v := r.URL.Query().Get("brand_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id < 0 {
			respondError(w, http.StatusBadRequest, ErrCodeValidation, "brand_id must be a positive integer", nil)
			return
		}
		brandID = id
	}

	ws.ServeWS(h.wsHub, h.upgrader, w, r, brandID)
}
