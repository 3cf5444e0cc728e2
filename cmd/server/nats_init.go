// CaseTrail - Legal Aid Platform Audit and Observability Service
// Copyright 2026 BTheCoderr
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BTheCoderr/casetrail

//go:build nats

package main

import (
	"context"

	"github.com/BTheCoderr/casetrail/internal/alerting"
	"github.com/BTheCoderr/casetrail/internal/config"
	"github.com/BTheCoderr/casetrail/internal/logging"
)

// natsComponents holds the optional NATS alert stream pieces.
type natsComponents struct {
	server   *alerting.EmbeddedServer
	notifier *alerting.NATSNotifier
}

// initNATS starts the embedded server if requested and connects the
// alert notifier. Returns nil when NATS is disabled in config.
func initNATS(cfg *config.Config) (*natsComponents, error) {
	if !cfg.Alerting.NATS.Enabled {
		return nil, nil
	}

	natsCfg := alerting.NATSConfig{
		URL:      cfg.Alerting.NATS.URL,
		Embedded: cfg.Alerting.NATS.Embedded,
		StoreDir: cfg.Alerting.NATS.StoreDir,
	}

	components := &natsComponents{}
	if natsCfg.Embedded {
		server, err := alerting.NewEmbeddedServer(natsCfg)
		if err != nil {
			return nil, err
		}
		components.server = server
		natsCfg.URL = server.ClientURL()
		logging.Info().Str("url", natsCfg.URL).Msg("Embedded NATS server started")
	}

	notifier, err := alerting.NewNATSNotifier(natsCfg)
	if err != nil {
		if components.server != nil {
			_ = components.server.Shutdown(context.Background())
		}
		return nil, err
	}
	components.notifier = notifier
	return components, nil
}

// Notifier returns the NATS alert notifier.
func (c *natsComponents) Notifier() alerting.Notifier {
	return c.notifier
}

// Shutdown closes the notifier and stops the embedded server.
func (c *natsComponents) Shutdown(ctx context.Context) {
	if c.notifier != nil {
		if err := c.notifier.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to close NATS notifier")
		}
	}
	if c.server != nil {
		if err := c.server.Shutdown(ctx); err != nil {
			logging.Warn().Err(err).Msg("Failed to stop embedded NATS server")
		}
	}
}
