// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/creatorsync/internal/middleware"
)

// Router wires handlers to routes.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router.
func NewRouter(handler *Handler, mw *ChiMiddleware) *Router {
	return &Router{handler: handler, chiMiddleware: mw}
}

// Setup builds the chi route tree.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())
	r.Use(RequestLogger)

	// Unauthenticated probes and scrape endpoint.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
		r.Get("/", router.handler.Health)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(router.chiMiddleware.Authenticate())

		r.Get("/events/ws", router.handler.EventsWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(PrometheusMetrics)
			r.Use(middleware.Compression)

			r.Get("/jobs", router.handler.Jobs)
			r.Route("/brands/{brandID}", func(r chi.Router) {
				r.Post("/sync", router.handler.TriggerSync)
				r.Get("/sync", router.handler.BrandSyncStatus)
				r.Get("/runs", router.handler.SyncRuns)
			})
		})
	})

	return r
}
