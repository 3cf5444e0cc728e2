// CaseTrail - Legal Aid Platform Audit and Observability Service
// Copyright 2026 BTheCoderr
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BTheCoderr/casetrail

// Package docaudit records document operations: views, downloads, edits,
// generation, deletion and sharing. Repeated access across many documents
// escalates to a security event.
package docaudit

import (
	"context"
	"fmt"

	"github.com/BTheCoderr/casetrail/internal/alerting"
	"github.com/BTheCoderr/casetrail/internal/audit"
	"github.com/BTheCoderr/casetrail/internal/logging"
	"github.com/BTheCoderr/casetrail/internal/policy"
	"github.com/BTheCoderr/casetrail/internal/tracker"
)

// Document actions recorded by this logger.
const (
	ActionView     = "view"
	ActionDownload = "download"
	ActionEdit     = "edit"
	ActionGenerate = "generate"
	ActionDelete   = "delete"
	ActionShare    = "share"
)

// trackerScope is the pattern-tracker scope for document operations.
const trackerScope = "document"

// Logger records document audit events.
type Logger struct {
	audit    *audit.Service
	patterns *tracker.Tracker
}

// NewLogger creates a document audit logger.
func NewLogger(svc *audit.Service, patterns *tracker.Tracker) *Logger {
	return &Logger{audit: svc, patterns: patterns}
}

// AccessParams describes one document operation.
type AccessParams struct {
	UserID     string
	DocumentID string
	Action     string
	FileType   string
	CaseID     string
}

// severityFor maps document actions onto the severity scale. Deletion is
// high; edits and generation are medium; reads are low.
func severityFor(action string) audit.Severity {
	switch action {
	case ActionDelete:
		return policy.SeverityHigh
	case ActionEdit, ActionGenerate, ActionShare:
		return policy.SeverityMedium
	default:
		return policy.SeverityLow
	}
}

// LogAccess records a document operation and updates the actor's document
// access pattern. High-severity operations raise a security alert;
// crossing the suspicion threshold additionally records a security event.
func (l *Logger) LogAccess(ctx context.Context, params AccessParams) (*audit.Event, error) {
	var details map[string]any
	if params.CaseID != "" {
		details = map[string]any{"case_id": params.CaseID}
	}
	event, err := l.audit.LogDocumentAccess(ctx, audit.DocumentParams{
		UserID:     params.UserID,
		DocumentID: params.DocumentID,
		Action:     params.Action,
		FileType:   params.FileType,
		Severity:   severityFor(params.Action),
		Details:    details,
	})
	if err != nil {
		return nil, err
	}

	if severity := severityFor(params.Action); severity.AtLeast(policy.SeverityHigh) {
		alert := alerting.NewAlert(alerting.CategorySecurity, severity,
			fmt.Sprintf("document %s of %s by %s", params.Action, params.DocumentID, params.UserID))
		alert.ActorID = params.UserID
		l.audit.RaiseAlert(ctx, alert)
	}

	snap, crossed := l.patterns.Record(params.UserID, trackerScope, tracker.Access{
		Resource: params.DocumentID,
		Action:   params.Action,
	})
	if crossed {
		l.escalate(ctx, params.UserID, snap)
	}
	return event, nil
}

// ShareParams describes a document shared with another party.
type ShareParams struct {
	UserID     string
	DocumentID string
	SharedWith string
	Method     string
	Expiration string
	FileType   string
}

// LogShare records a document share. Shares carry who received the
// document and through what channel.
func (l *Logger) LogShare(ctx context.Context, params ShareParams) (*audit.Event, error) {
	if params.SharedWith == "" {
		return nil, &audit.ValidationError{Field: "shared_with", Reason: "required"}
	}
	event, err := l.audit.LogDocumentAccess(ctx, audit.DocumentParams{
		UserID:     params.UserID,
		DocumentID: params.DocumentID,
		Action:     ActionShare,
		FileType:   params.FileType,
		Severity:   policy.SeverityMedium,
		Details: map[string]any{
			"shared_with": params.SharedWith,
			"method":      params.Method,
			"expiration":  params.Expiration,
		},
	})
	if err != nil {
		return nil, err
	}

	l.patterns.Record(params.UserID, trackerScope, tracker.Access{
		Resource: params.DocumentID,
		Action:   ActionShare,
	})
	return event, nil
}

// Pattern returns the actor's tracked document access pattern, if any.
func (l *Logger) Pattern(userID string) (tracker.Snapshot, bool) {
	return l.patterns.Snapshot(userID, trackerScope)
}

// escalate records a security event for a newly suspicious document
// access pattern. The flag is advisory; the triggering operation has
// already been recorded and is not blocked.
func (l *Logger) escalate(ctx context.Context, userID string, snap tracker.Snapshot) {
	_, err := l.audit.LogSecurityEvent(ctx, audit.SecurityParams{
		UserID:   userID,
		Kind:     "suspicious_document_access",
		Severity: policy.SeverityHigh,
		Description: fmt.Sprintf("%d document accesses across %d distinct documents",
			snap.TotalAccesses, snap.DistinctResources),
		Details: map[string]any{
			"total_accesses":     snap.TotalAccesses,
			"distinct_documents": snap.DistinctResources,
		},
	})
	if err != nil {
		logging.Ctx(ctx).Warn().
			Err(err).
			Str("component", "docaudit").
			Str("user_id", userID).
			Msg("pattern escalation write failed")
	}
}
