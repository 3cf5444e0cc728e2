// CaseTrail - Legal Aid Platform Audit and Observability Service
// Copyright 2026 BTheCoderr
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BTheCoderr/casetrail

//go:build !nats

package main

import (
	"context"

	"github.com/BTheCoderr/casetrail/internal/alerting"
	"github.com/BTheCoderr/casetrail/internal/config"
	"github.com/BTheCoderr/casetrail/internal/logging"
)

// natsComponents is a stub for builds without the nats tag.
type natsComponents struct{}

// initNATS warns when NATS is enabled but not compiled in.
func initNATS(cfg *config.Config) (*natsComponents, error) {
	if cfg.Alerting.NATS.Enabled {
		logging.Warn().Msg("NATS alerting enabled in config but not compiled (build with -tags nats)")
	}
	return nil, nil
}

// Notifier always returns nil in non-NATS builds.
func (c *natsComponents) Notifier() alerting.Notifier { return nil }

// Shutdown is a no-op in non-NATS builds.
func (c *natsComponents) Shutdown(_ context.Context) {}
