// CaseTrail - Legal Aid Platform Audit and Observability Service
// Copyright 2026 BTheCoderr
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BTheCoderr/casetrail

// Package audit implements the audit event model and the core logging
// service: structured events are built from ambient request/actor context
// plus caller-supplied fields, persisted to a Store, and never mutated
// afterward. Typed sub-records (user activity, security, performance,
// document access, compliance, API usage) are written alongside the generic
// event so queries can use either view.
package audit

import (
	"context"
	"time"

	"github.com/goccy/go-json"

	"github.com/BTheCoderr/casetrail/internal/policy"
)

// EventType categorizes audit events.
type EventType string

const (
	EventTypeSecurity         EventType = "security"
	EventTypeUserActivity     EventType = "user_activity"
	EventTypeDataAccess       EventType = "data_access"
	EventTypeDataModification EventType = "data_modification"
	EventTypePerformance      EventType = "performance"
	EventTypeAPIUsage         EventType = "api_usage"
	EventTypeDocumentAccess   EventType = "document_access"
	EventTypeCompliance       EventType = "compliance"
	EventTypeSystem           EventType = "system"
)

// eventTypes is the closed set of valid event types.
var eventTypes = map[EventType]struct{}{
	EventTypeSecurity:         {},
	EventTypeUserActivity:     {},
	EventTypeDataAccess:       {},
	EventTypeDataModification: {},
	EventTypePerformance:      {},
	EventTypeAPIUsage:         {},
	EventTypeDocumentAccess:   {},
	EventTypeCompliance:       {},
	EventTypeSystem:           {},
}

// Valid reports whether t is a defined event type.
func (t EventType) Valid() bool {
	_, ok := eventTypes[t]
	return ok
}

// Severity re-exports the ordered severity scale from the policy package so
// callers of the audit API need only one import.
type Severity = policy.Severity

const (
	SeverityLow      = policy.SeverityLow
	SeverityMedium   = policy.SeverityMedium
	SeverityHigh     = policy.SeverityHigh
	SeverityCritical = policy.SeverityCritical
)

// RequestContext is the ambient HTTP metadata captured at logging time.
// All fields are best-effort and absent outside a request scope.
type RequestContext struct {
	SessionID  string `json:"session_id,omitempty"`
	IPAddress  string `json:"ip_address,omitempty"`
	UserAgent  string `json:"user_agent,omitempty"`
	Endpoint   string `json:"endpoint,omitempty"`
	Method     string `json:"method,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
}

// Event is the atomic audit record. Once persisted it is append-only: no
// public API modifies or deletes it (retention cleanup excepted).
type Event struct {
	ID               string          `json:"id"`
	Type             EventType       `json:"event_type"`
	Severity         Severity        `json:"severity"`
	ActorID          string          `json:"actor_id,omitempty"`
	Context          *RequestContext `json:"context,omitempty"`
	Action           string          `json:"action"`
	ResourceID       string          `json:"resource_id,omitempty"`
	ResourceType     string          `json:"resource_type,omitempty"`
	Description      string          `json:"description,omitempty"`
	RequestSnapshot  json.RawMessage `json:"request_snapshot,omitempty"`
	ResponseSnapshot json.RawMessage `json:"response_snapshot,omitempty"`
	ErrorMessage     string          `json:"error_message,omitempty"`
	ProcessingTimeMS float64         `json:"processing_time_ms,omitempty"`
	Metadata         json.RawMessage `json:"metadata,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// UserActivity is the typed sub-record for user activity events.
type UserActivity struct {
	ID           string          `json:"id"`
	EventID      string          `json:"event_id"`
	UserID       string          `json:"user_id"`
	ActivityType string          `json:"activity_type"`
	Details      json.RawMessage `json:"details,omitempty"`
	IPAddress    string          `json:"ip_address,omitempty"`
	UserAgent    string          `json:"user_agent,omitempty"`
	SessionID    string          `json:"session_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// SecurityEvent is the typed sub-record for security events.
type SecurityEvent struct {
	ID          string          `json:"id"`
	EventID     string          `json:"event_id"`
	UserID      string          `json:"user_id,omitempty"`
	Kind        string          `json:"kind"`
	Severity    Severity        `json:"severity"`
	Description string          `json:"description,omitempty"`
	IPAddress   string          `json:"ip_address,omitempty"`
	Details     json.RawMessage `json:"details,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// PerformanceMetric is the typed sub-record for performance measurements.
// ExceededThreshold is computed at write time and never recomputed on read.
type PerformanceMetric struct {
	ID                string    `json:"id"`
	EventID           string    `json:"event_id"`
	MetricType        string    `json:"metric_type"`
	Value             float64   `json:"value"`
	Unit              string    `json:"unit"`
	Threshold         float64   `json:"threshold,omitempty"`
	ExceededThreshold bool      `json:"exceeded_threshold"`
	Endpoint          string    `json:"endpoint,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// DocumentAccess is the typed sub-record for document operations.
type DocumentAccess struct {
	ID         string          `json:"id"`
	EventID    string          `json:"event_id"`
	UserID     string          `json:"user_id"`
	DocumentID string          `json:"document_id"`
	Action     string          `json:"action"`
	FileType   string          `json:"file_type,omitempty"`
	Details    json.RawMessage `json:"details,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Compliance record status values.
const (
	ComplianceStatusPending   = "pending"
	ComplianceStatusCompleted = "completed"
	ComplianceStatusFailed    = "failed"
)

// ComplianceRecord is the typed sub-record for compliance obligations. It is
// the one record with a post-creation transition: pending to completed or
// failed, stamping who processed it and when.
type ComplianceRecord struct {
	ID          string          `json:"id"`
	EventID     string          `json:"event_id"`
	UserID      string          `json:"user_id,omitempty"`
	Requirement string          `json:"requirement"`
	Status      string          `json:"status"`
	ProcessedBy string          `json:"processed_by,omitempty"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
	Details     json.RawMessage `json:"details,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// APIUsage is the typed sub-record for API call accounting.
type APIUsage struct {
	ID             string    `json:"id"`
	EventID        string    `json:"event_id"`
	UserID         string    `json:"user_id,omitempty"`
	Endpoint       string    `json:"endpoint"`
	Method         string    `json:"method"`
	StatusCode     int       `json:"status_code"`
	ResponseTimeMS float64   `json:"response_time_ms"`
	CreatedAt      time.Time `json:"created_at"`
}

// QueryFilter defines filtering options for audit queries. Zero values mean
// "no constraint". Fields apply where meaningful for the record family being
// queried.
type QueryFilter struct {
	Types        []EventType `json:"types,omitempty"`
	Severities   []Severity  `json:"severities,omitempty"`
	ActorID      string      `json:"actor_id,omitempty"`
	ResourceID   string      `json:"resource_id,omitempty"`
	ResourceType string      `json:"resource_type,omitempty"`
	Action       string      `json:"action,omitempty"`
	MetricType   string      `json:"metric_type,omitempty"`
	Endpoint     string      `json:"endpoint,omitempty"`
	Status       string      `json:"status,omitempty"`
	StartTime    *time.Time  `json:"start_time,omitempty"`
	EndTime      *time.Time  `json:"end_time,omitempty"`
	Limit        int         `json:"limit,omitempty"`
}

// DefaultQueryLimit caps retrieval when the caller does not set one.
const DefaultQueryLimit = 100

// Stats summarizes the contents of a store.
type Stats struct {
	TotalEvents      int64            `json:"total_events"`
	EventsByType     map[string]int64 `json:"events_by_type"`
	EventsBySeverity map[string]int64 `json:"events_by_severity"`
	OldestEvent      *time.Time       `json:"oldest_event,omitempty"`
	NewestEvent      *time.Time       `json:"newest_event,omitempty"`
}

// Store defines the persistence interface the audit pipeline writes to and
// reads from. Implementations must return events newest-first from queries.
type Store interface {
	InsertEvent(ctx context.Context, event *Event) error
	QueryEvents(ctx context.Context, filter QueryFilter) ([]Event, error)
	CountEvents(ctx context.Context, filter QueryFilter) (int64, error)
	DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	InsertUserActivity(ctx context.Context, rec *UserActivity) error
	QueryUserActivities(ctx context.Context, filter QueryFilter) ([]UserActivity, error)

	InsertSecurityEvent(ctx context.Context, rec *SecurityEvent) error
	QuerySecurityEvents(ctx context.Context, filter QueryFilter) ([]SecurityEvent, error)

	InsertPerformanceMetric(ctx context.Context, rec *PerformanceMetric) error
	QueryPerformanceMetrics(ctx context.Context, filter QueryFilter) ([]PerformanceMetric, error)

	InsertDocumentAccess(ctx context.Context, rec *DocumentAccess) error
	QueryDocumentAccesses(ctx context.Context, filter QueryFilter) ([]DocumentAccess, error)

	InsertComplianceRecord(ctx context.Context, rec *ComplianceRecord) error
	UpdateComplianceStatus(ctx context.Context, id, status, processedBy string, processedAt time.Time) error
	QueryComplianceRecords(ctx context.Context, filter QueryFilter) ([]ComplianceRecord, error)

	InsertAPIUsage(ctx context.Context, rec *APIUsage) error
	QueryAPIUsage(ctx context.Context, filter QueryFilter) ([]APIUsage, error)

	GetStats(ctx context.Context) (*Stats, error)
}
