// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

/*
Package events publishes sync run lifecycle notifications.

Every event goes to an in-process Watermill GoChannel on LocalTopic, which
feeds the websocket live feed. With NATS enabled the same event is also
published to JetStream under <subject_prefix>.sync.{started,completed,failed};
the stream is provisioned at startup and an embedded server can be started
for single-node deployments.

Bus implements the lifecycle publisher the sync manager expects:

	bus, err := events.Open(ctx, &cfg.NATS)
	if err != nil {
	    return err
	}
	defer bus.Close()

	manager := sync.NewManager(client, db, cooldowns, bus, cfg)

Publishing never blocks a run: the manager logs publish errors and carries on.
*/
package events
