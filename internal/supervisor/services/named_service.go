// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package services

import "context"

// Server is anything with a context-driven Serve loop: jobs.Runner,
// jobs.Scheduler, websocket.Hub, websocket.Bridge.
type Server interface {
	Serve(ctx context.Context) error
}

// NamedService gives a Server a name for suture's event log.
//
// Example usage:
//
//	runner := jobs.NewRunner(manager, &cfg.Sync)
//	tree.AddJobsService(services.Named("sync-job-runner", runner))
type NamedService struct {
	svc  Server
	name string
}

// Named wraps svc under name.
func Named(name string, svc Server) *NamedService {
	return &NamedService{svc: svc, name: name}
}

// Serve implements suture.Service.
func (n *NamedService) Serve(ctx context.Context) error {
	return n.svc.Serve(ctx)
}

// String implements fmt.Stringer; suture uses it in log messages.
func (n *NamedService) String() string {
	return n.name
}
