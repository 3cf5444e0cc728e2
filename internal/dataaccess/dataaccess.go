// CaseTrail - Legal Aid Platform Audit and Observability Service
// Copyright 2026 BTheCoderr
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BTheCoderr/casetrail

// Package dataaccess records reads, modifications, bulk operations,
// exports and deletions of case data. Severity is derived from the
// centralized policy package so every call site classifies identically.
package dataaccess

import (
	"context"
	"fmt"
	"reflect"

	"github.com/BTheCoderr/casetrail/internal/alerting"
	"github.com/BTheCoderr/casetrail/internal/audit"
	"github.com/BTheCoderr/casetrail/internal/policy"
	"github.com/BTheCoderr/casetrail/internal/tracker"
)

// Actions recorded by this logger.
const (
	ActionAccess = "ACCESS"
	ActionDelete = "DELETE"
	ActionExport = "EXPORT"
)

// Logger records data access events against the audit pipeline and keeps
// per-actor pattern state for anomaly detection.
type Logger struct {
	audit    *audit.Service
	patterns *tracker.Tracker
}

// NewLogger creates a data access logger. The tracker may be shared with
// other specialized loggers.
func NewLogger(svc *audit.Service, patterns *tracker.Tracker) *Logger {
	return &Logger{audit: svc, patterns: patterns}
}

// Change holds the before and after values of one modified field.
type Change struct {
	OldValue any `json:"old_value"`
	NewValue any `json:"new_value"`
}

// CalculateChanges diffs oldData against newData. When changedFields is
// non-nil only those keys are compared; otherwise the union of all keys is
// compared. Keys whose values are equal are excluded, so an explicit
// changedFields entry that did not actually change produces no output.
func CalculateChanges(oldData, newData map[string]any, changedFields []string) map[string]Change {
	changes := make(map[string]Change)

	keys := changedFields
	if keys == nil {
		seen := make(map[string]struct{}, len(oldData)+len(newData))
		for k := range oldData {
			seen[k] = struct{}{}
		}
		for k := range newData {
			seen[k] = struct{}{}
		}
		keys = make([]string, 0, len(seen))
		for k := range seen {
			keys = append(keys, k)
		}
	}

	for _, k := range keys {
		oldVal, newVal := oldData[k], newData[k]
		if reflect.DeepEqual(oldVal, newVal) {
			continue
		}
		changes[k] = Change{OldValue: oldVal, NewValue: newVal}
	}
	return changes
}

// AccessParams describes a read of case data.
type AccessParams struct {
	UserID       string
	ResourceType string
	ResourceID   string
	Fields       []string
	Purpose      string
}

// LogAccess records a data read. Touching any sensitive field raises the
// severity to high.
func (l *Logger) LogAccess(ctx context.Context, params AccessParams) (*audit.Event, error) {
	sensitive := policy.AnySensitive(params.Fields) || policy.IsSensitiveName(params.ResourceType)
	severity := policy.ForDataAccess(params.ResourceType, params.Fields)

	event, err := l.audit.LogEvent(ctx, audit.EventParams{
		Type:         audit.EventTypeDataAccess,
		Severity:     severity,
		ActorID:      params.UserID,
		Action:       ActionAccess,
		ResourceID:   params.ResourceID,
		ResourceType: params.ResourceType,
		Description:  params.Purpose,
		Metadata: map[string]any{
			"fields":       params.Fields,
			"is_sensitive": sensitive,
		},
	})
	if err != nil {
		return nil, err
	}

	l.track(ctx, params.UserID, params.ResourceType, tracker.Access{
		Resource:  params.ResourceID,
		Action:    ActionAccess,
		Sensitive: sensitive,
	})
	return event, nil
}

// ModificationParams describes an update to case data.
type ModificationParams struct {
	UserID        string
	ResourceType  string
	ResourceID    string
	Action        string
	OldData       map[string]any
	NewData       map[string]any
	ChangedFields []string
}

// LogModification diffs old against new data, records the modification
// with the diff in metadata, and updates the actor's pattern state.
func (l *Logger) LogModification(ctx context.Context, params ModificationParams) (*audit.Event, error) {
	action := params.Action
	if action == "" {
		action = "UPDATE"
	}
	changes := CalculateChanges(params.OldData, params.NewData, params.ChangedFields)
	changedKeys := make([]string, 0, len(changes))
	changesMeta := make(map[string]any, len(changes))
	for k, c := range changes {
		changedKeys = append(changedKeys, k)
		changesMeta[k] = map[string]any{"old_value": c.OldValue, "new_value": c.NewValue}
	}

	sensitive := policy.AnySensitive(changedKeys) || policy.IsSensitiveName(params.ResourceType)
	severity := policy.ForModification(action, params.ResourceType, changedKeys)

	event, err := l.audit.LogEvent(ctx, audit.EventParams{
		Type:         audit.EventTypeDataModification,
		Severity:     severity,
		ActorID:      params.UserID,
		Action:       action,
		ResourceID:   params.ResourceID,
		ResourceType: params.ResourceType,
		Metadata: map[string]any{
			"changes":      changesMeta,
			"is_sensitive": sensitive,
		},
	})
	if err != nil {
		return nil, err
	}

	l.track(ctx, params.UserID, params.ResourceType, tracker.Access{
		Resource:  params.ResourceID,
		Action:    action,
		Sensitive: sensitive,
	})
	return event, nil
}

// BulkParams describes an operation affecting many records at once.
type BulkParams struct {
	UserID        string
	OperationType string
	ResourceType  string
	AffectedCount int
	Criteria      map[string]any
}

// LogBulkOperation records a bulk operation. Bulk deletes are critical;
// other bulk operations escalate on affected count. High and critical
// bulk operations additionally raise a security alert.
func (l *Logger) LogBulkOperation(ctx context.Context, params BulkParams) (*audit.Event, error) {
	severity := policy.ForBulkOperation(params.OperationType, params.AffectedCount)

	event, err := l.audit.LogEvent(ctx, audit.EventParams{
		Type:         audit.EventTypeDataModification,
		Severity:     severity,
		ActorID:      params.UserID,
		Action:       "BULK_" + params.OperationType,
		ResourceType: params.ResourceType,
		Metadata: map[string]any{
			"affected_count": params.AffectedCount,
			"criteria":       params.Criteria,
		},
	})
	if err != nil {
		return nil, err
	}

	if severity.AtLeast(policy.SeverityHigh) {
		alert := alerting.NewAlert(alerting.CategorySecurity, severity,
			fmt.Sprintf("bulk %s of %d %s records by %s",
				params.OperationType, params.AffectedCount, params.ResourceType, params.UserID))
		alert.ActorID = params.UserID
		alert.Value = float64(params.AffectedCount)
		alert.Unit = "records"
		l.audit.RaiseAlert(ctx, alert)
	}

	l.track(ctx, params.UserID, params.ResourceType, tracker.Access{
		Action: "BULK_" + params.OperationType,
	})
	return event, nil
}

// ExportParams describes a data export.
type ExportParams struct {
	UserID       string
	ResourceType string
	Fields       []string
	Format       string
	RecordCount  int
}

// LogExport records a data export. Exports are at least medium severity;
// exporting sensitive fields is high.
func (l *Logger) LogExport(ctx context.Context, params ExportParams) (*audit.Event, error) {
	severity := policy.ForExport(params.Fields)

	event, err := l.audit.LogEvent(ctx, audit.EventParams{
		Type:         audit.EventTypeDataAccess,
		Severity:     severity,
		ActorID:      params.UserID,
		Action:       ActionExport,
		ResourceType: params.ResourceType,
		Metadata: map[string]any{
			"fields":       params.Fields,
			"format":       params.Format,
			"record_count": params.RecordCount,
		},
	})
	if err != nil {
		return nil, err
	}

	l.track(ctx, params.UserID, params.ResourceType, tracker.Access{
		Action:    ActionExport,
		Sensitive: policy.AnySensitive(params.Fields),
	})
	return event, nil
}

// DeletionParams describes a single-record deletion.
type DeletionParams struct {
	UserID       string
	ResourceType string
	ResourceID   string
	Snapshot     map[string]any
	Reason       string
}

// LogDeletion records a deletion with a redacted snapshot of the deleted
// record. Deletions are always high severity.
func (l *Logger) LogDeletion(ctx context.Context, params DeletionParams) (*audit.Event, error) {
	event, err := l.audit.LogEvent(ctx, audit.EventParams{
		Type:           audit.EventTypeDataModification,
		Severity:       policy.ForModification(ActionDelete, params.ResourceType, nil),
		ActorID:        params.UserID,
		Action:         ActionDelete,
		ResourceID:     params.ResourceID,
		ResourceType:   params.ResourceType,
		Description:    params.Reason,
		RequestPayload: params.Snapshot,
	})
	if err != nil {
		return nil, err
	}

	l.track(ctx, params.UserID, params.ResourceType, tracker.Access{
		Resource: params.ResourceID,
		Action:   ActionDelete,
	})
	return event, nil
}

// Pattern returns the tracked pattern for (user, resourceType), if any.
func (l *Logger) Pattern(userID, resourceType string) (tracker.Snapshot, bool) {
	return l.patterns.Snapshot(userID, resourceType)
}

// track updates pattern state and raises an advisory alert the first time
// a pattern crosses into suspicious.
func (l *Logger) track(ctx context.Context, userID, scope string, acc tracker.Access) {
	_, crossed := l.patterns.Record(userID, scope, acc)
	if crossed {
		alert := alerting.NewAlert(alerting.CategoryPattern, policy.SeverityHigh,
			fmt.Sprintf("suspicious access pattern for %s on %s", userID, scope))
		alert.ActorID = userID
		l.audit.RaiseAlert(ctx, alert)
	}
}
