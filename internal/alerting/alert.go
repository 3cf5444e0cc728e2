// CaseTrail - Legal Aid Platform Audit and Observability Service
// Copyright 2026 BTheCoderr
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BTheCoderr/casetrail

// Package alerting delivers alert notifications raised by the audit
// pipeline. Alerts are published to an in-process bus and dispatched
// asynchronously to the configured notifiers, so a slow or failing
// notifier never blocks an audit write.
package alerting

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/BTheCoderr/casetrail/internal/policy"
)

// Alert categories raised by the pipeline.
const (
	CategorySecurity    = "security"
	CategoryPerformance = "performance"
	CategoryPattern     = "suspicious_pattern"
	CategoryCompliance  = "compliance"
)

// Alert is a notification raised when an audited condition crosses a
// severity or threshold boundary.
type Alert struct {
	ID        string          `json:"id"`
	Category  string          `json:"category"`
	Severity  policy.Severity `json:"severity"`
	Message   string          `json:"message"`
	Value     float64         `json:"value,omitempty"`
	Unit      string          `json:"unit,omitempty"`
	ActorID   string          `json:"actor_id,omitempty"`
	Context   json.RawMessage `json:"context,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewAlert creates an alert with a generated ID and current timestamp.
func NewAlert(category string, severity policy.Severity, message string) *Alert {
	return &Alert{
		ID:        uuid.New().String(),
		Category:  category,
		Severity:  severity,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// Publisher accepts alerts for asynchronous delivery. Publish must not
// block on downstream notifiers.
type Publisher interface {
	Publish(ctx context.Context, alert *Alert) error
}

// Notifier delivers a single alert to one destination.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, alert *Alert) error
}

// NopPublisher discards all alerts. Used when alerting is disabled and
// in tests that do not care about notifications.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, *Alert) error { return nil }
