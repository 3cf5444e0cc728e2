// CaseTrail - Legal Aid Platform Audit and Observability Service
// Copyright 2026 BTheCoderr
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BTheCoderr/casetrail

package alerting

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/BTheCoderr/casetrail/internal/logging"
	"github.com/BTheCoderr/casetrail/internal/policy"
)

// LogNotifier writes alerts to the structured log. Always enabled; it is
// the delivery channel of last resort.
type LogNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier creates a log notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{log: logging.WithComponent("alerts")}
}

// Name returns the notifier name.
func (n *LogNotifier) Name() string { return "log" }

// Notify writes the alert at a level matching its severity.
func (n *LogNotifier) Notify(_ context.Context, alert *Alert) error {
	var e *zerolog.Event
	switch {
	case alert.Severity.AtLeast(policy.SeverityCritical):
		e = n.log.Error()
	case alert.Severity.AtLeast(policy.SeverityHigh):
		e = n.log.Warn()
	default:
		e = n.log.Info()
	}
	e.Str("alert_id", alert.ID).
		Str("category", alert.Category).
		Str("severity", string(alert.Severity)).
		Str("actor_id", alert.ActorID)
	if alert.Unit != "" {
		e.Float64("value", alert.Value).Str("unit", alert.Unit)
	}
	e.Msg(alert.Message)
	return nil
}
