// CaseTrail - Legal Aid Platform Audit and Observability Service
// Copyright 2026 BTheCoderr
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BTheCoderr/casetrail

package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// DuckDBStore implements Store using DuckDB for durable persistence.
type DuckDBStore struct {
	db *sql.DB
}

// NewDuckDBStore creates a new DuckDB-backed audit store. Call CreateTables
// during database initialization before first use.
func NewDuckDBStore(db *sql.DB) *DuckDBStore {
	return &DuckDBStore{db: db}
}

// CreateTables creates the audit tables if they do not exist.
func (s *DuckDBStore) CreateTables(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS audit_events (
			id TEXT PRIMARY KEY,
			event_type TEXT NOT NULL,
			severity TEXT NOT NULL,
			actor_id TEXT,
			session_id TEXT,
			ip_address TEXT,
			user_agent TEXT,
			endpoint TEXT,
			method TEXT,
			status_code INTEGER,
			action TEXT NOT NULL,
			resource_id TEXT,
			resource_type TEXT,
			description TEXT,
			request_snapshot JSON,
			response_snapshot JSON,
			error_message TEXT,
			processing_time_ms DOUBLE,
			metadata JSON,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_audit_created ON audit_events(created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_audit_type ON audit_events(event_type);
		CREATE INDEX IF NOT EXISTS idx_audit_actor ON audit_events(actor_id);
		CREATE INDEX IF NOT EXISTS idx_audit_resource ON audit_events(resource_type, resource_id);

		CREATE TABLE IF NOT EXISTS user_activities (
			id TEXT PRIMARY KEY,
			event_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			activity_type TEXT NOT NULL,
			details JSON,
			ip_address TEXT,
			user_agent TEXT,
			session_id TEXT,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_activity_user ON user_activities(user_id);
		CREATE INDEX IF NOT EXISTS idx_activity_created ON user_activities(created_at DESC);

		CREATE TABLE IF NOT EXISTS security_events (
			id TEXT PRIMARY KEY,
			event_id TEXT NOT NULL,
			user_id TEXT,
			kind TEXT NOT NULL,
			severity TEXT NOT NULL,
			description TEXT,
			ip_address TEXT,
			details JSON,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_security_created ON security_events(created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_security_severity ON security_events(severity);

		CREATE TABLE IF NOT EXISTS performance_metrics (
			id TEXT PRIMARY KEY,
			event_id TEXT NOT NULL,
			metric_type TEXT NOT NULL,
			value DOUBLE NOT NULL,
			unit TEXT NOT NULL,
			threshold DOUBLE,
			exceeded_threshold BOOLEAN NOT NULL DEFAULT FALSE,
			endpoint TEXT,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_perf_metric ON performance_metrics(metric_type);
		CREATE INDEX IF NOT EXISTS idx_perf_created ON performance_metrics(created_at DESC);

		CREATE TABLE IF NOT EXISTS document_access (
			id TEXT PRIMARY KEY,
			event_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			document_id TEXT NOT NULL,
			action TEXT NOT NULL,
			file_type TEXT,
			details JSON,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_doc_user ON document_access(user_id);
		CREATE INDEX IF NOT EXISTS idx_doc_created ON document_access(created_at DESC);

		CREATE TABLE IF NOT EXISTS compliance_records (
			id TEXT PRIMARY KEY,
			event_id TEXT NOT NULL,
			user_id TEXT,
			requirement TEXT NOT NULL,
			status TEXT NOT NULL,
			processed_by TEXT,
			processed_at TIMESTAMPTZ,
			details JSON,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_compliance_status ON compliance_records(status);

		CREATE TABLE IF NOT EXISTS api_usage (
			id TEXT PRIMARY KEY,
			event_id TEXT NOT NULL,
			user_id TEXT,
			endpoint TEXT NOT NULL,
			method TEXT NOT NULL,
			status_code INTEGER NOT NULL,
			response_time_ms DOUBLE NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_api_endpoint ON api_usage(endpoint);
		CREATE INDEX IF NOT EXISTS idx_api_created ON api_usage(created_at DESC);
	`

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create audit tables: %w", err)
	}
	return nil
}

// buildSliceCondition creates a SQL IN condition for a slice of string values.
func buildSliceCondition[T ~string](column string, values []T, args *[]interface{}) string {
	if len(values) == 0 {
		return ""
	}
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		*args = append(*args, string(v))
	}
	return fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ","))
}

// appendEq appends an equality condition when value is non-empty.
func appendEq(conds *[]string, args *[]interface{}, column, value string) {
	if value != "" {
		*conds = append(*conds, column+" = ?")
		*args = append(*args, value)
	}
}

// appendRange appends created_at range conditions from the filter.
func appendRange(conds *[]string, args *[]interface{}, filter *QueryFilter) {
	if filter.StartTime != nil {
		*conds = append(*conds, "created_at >= ?")
		*args = append(*args, *filter.StartTime)
	}
	if filter.EndTime != nil {
		*conds = append(*conds, "created_at <= ?")
		*args = append(*args, *filter.EndTime)
	}
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

// nullable converts an empty string to NULL for optional columns.
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullableJSON(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

// InsertEvent persists a generic audit event.
func (s *DuckDBStore) InsertEvent(ctx context.Context, event *Event) error {
	rc := event.Context
	if rc == nil {
		rc = &RequestContext{}
	}

	var statusCode interface{}
	if rc.StatusCode != 0 {
		statusCode = rc.StatusCode
	}
	var processingTime interface{}
	if event.ProcessingTimeMS != 0 {
		processingTime = event.ProcessingTimeMS
	}

	query := `
		INSERT INTO audit_events (
			id, event_type, severity, actor_id,
			session_id, ip_address, user_agent, endpoint, method, status_code,
			action, resource_id, resource_type, description,
			request_snapshot, response_snapshot, error_message,
			processing_time_ms, metadata, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		event.ID, string(event.Type), string(event.Severity), nullable(event.ActorID),
		nullable(rc.SessionID), nullable(rc.IPAddress), nullable(rc.UserAgent),
		nullable(rc.Endpoint), nullable(rc.Method), statusCode,
		event.Action, nullable(event.ResourceID), nullable(event.ResourceType),
		nullable(event.Description),
		nullableJSON(event.RequestSnapshot), nullableJSON(event.ResponseSnapshot),
		nullable(event.ErrorMessage), processingTime,
		nullableJSON(event.Metadata), event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// QueryEvents returns events matching the filter, newest-first.
func (s *DuckDBStore) QueryEvents(ctx context.Context, filter QueryFilter) ([]Event, error) {
	var conds []string
	var args []interface{}

	if c := buildSliceCondition("event_type", filter.Types, &args); c != "" {
		conds = append(conds, c)
	}
	if c := buildSliceCondition("severity", filter.Severities, &args); c != "" {
		conds = append(conds, c)
	}
	appendEq(&conds, &args, "actor_id", filter.ActorID)
	appendEq(&conds, &args, "resource_id", filter.ResourceID)
	appendEq(&conds, &args, "resource_type", filter.ResourceType)
	appendEq(&conds, &args, "action", filter.Action)
	appendRange(&conds, &args, &filter)

	query := `
		SELECT id, event_type, severity,
			COALESCE(actor_id, ''),
			COALESCE(session_id, ''), COALESCE(ip_address, ''),
			COALESCE(user_agent, ''), COALESCE(endpoint, ''),
			COALESCE(method, ''), COALESCE(status_code, 0),
			action, COALESCE(resource_id, ''), COALESCE(resource_type, ''),
			COALESCE(description, ''),
			COALESCE(request_snapshot, ''), COALESCE(response_snapshot, ''),
			COALESCE(error_message, ''), COALESCE(processing_time_ms, 0),
			COALESCE(metadata, ''), created_at
		FROM audit_events` + whereClause(conds) + `
		ORDER BY created_at DESC
		LIMIT ?`
	args = append(args, effectiveLimit(&filter))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var results []Event
	for rows.Next() {
		var event Event
		var rc RequestContext
		var eventType, severity string
		var reqSnap, respSnap, metadata string
		if err := rows.Scan(
			&event.ID, &eventType, &severity, &event.ActorID,
			&rc.SessionID, &rc.IPAddress, &rc.UserAgent, &rc.Endpoint,
			&rc.Method, &rc.StatusCode,
			&event.Action, &event.ResourceID, &event.ResourceType, &event.Description,
			&reqSnap, &respSnap, &event.ErrorMessage, &event.ProcessingTimeMS,
			&metadata, &event.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Type = EventType(eventType)
		event.Severity = Severity(severity)
		if rc != (RequestContext{}) {
			event.Context = &rc
		}
		if reqSnap != "" {
			event.RequestSnapshot = json.RawMessage(reqSnap)
		}
		if respSnap != "" {
			event.ResponseSnapshot = json.RawMessage(respSnap)
		}
		if metadata != "" {
			event.Metadata = json.RawMessage(metadata)
		}
		results = append(results, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return results, nil
}

// CountEvents returns the number of events matching the filter.
func (s *DuckDBStore) CountEvents(ctx context.Context, filter QueryFilter) (int64, error) {
	var conds []string
	var args []interface{}

	if c := buildSliceCondition("event_type", filter.Types, &args); c != "" {
		conds = append(conds, c)
	}
	appendEq(&conds, &args, "actor_id", filter.ActorID)
	appendEq(&conds, &args, "resource_type", filter.ResourceType)
	appendRange(&conds, &args, &filter)

	var count int64
	query := "SELECT COUNT(*) FROM audit_events" + whereClause(conds)
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count audit events: %w", err)
	}
	return count, nil
}

// DeleteEventsBefore removes events older than cutoff from every audit
// table except compliance_records: those track regulatory obligations
// whose lifecycle (pending until processed) is independent of event
// retention, so age alone never deletes them. Used only by retention
// cleanup; nothing else deletes records.
func (s *DuckDBStore) DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM audit_events WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete audit events: %w", err)
	}
	deleted, _ := res.RowsAffected()

	for _, table := range []string{
		"user_activities", "security_events", "performance_metrics",
		"document_access", "api_usage",
	} {
		if _, err := s.db.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE created_at < ?", table), cutoff); err != nil {
			return deleted, fmt.Errorf("delete from %s: %w", table, err)
		}
	}
	return deleted, nil
}

// InsertUserActivity persists a user activity sub-record.
func (s *DuckDBStore) InsertUserActivity(ctx context.Context, rec *UserActivity) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_activities (id, event_id, user_id, activity_type, details,
			ip_address, user_agent, session_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.EventID, rec.UserID, rec.ActivityType, nullableJSON(rec.Details),
		nullable(rec.IPAddress), nullable(rec.UserAgent), nullable(rec.SessionID),
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user activity: %w", err)
	}
	return nil
}

// QueryUserActivities returns user activities matching the filter, newest-first.
func (s *DuckDBStore) QueryUserActivities(ctx context.Context, filter QueryFilter) ([]UserActivity, error) {
	var conds []string
	var args []interface{}
	appendEq(&conds, &args, "user_id", filter.ActorID)
	appendEq(&conds, &args, "activity_type", filter.Action)
	appendRange(&conds, &args, &filter)

	query := `
		SELECT id, event_id, user_id, activity_type, COALESCE(details, ''),
			COALESCE(ip_address, ''), COALESCE(user_agent, ''),
			COALESCE(session_id, ''), created_at
		FROM user_activities` + whereClause(conds) + `
		ORDER BY created_at DESC
		LIMIT ?`
	args = append(args, effectiveLimit(&filter))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query user activities: %w", err)
	}
	defer rows.Close()

	var results []UserActivity
	for rows.Next() {
		var rec UserActivity
		var details string
		if err := rows.Scan(&rec.ID, &rec.EventID, &rec.UserID, &rec.ActivityType,
			&details, &rec.IPAddress, &rec.UserAgent, &rec.SessionID, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user activity: %w", err)
		}
		if details != "" {
			rec.Details = json.RawMessage(details)
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

// InsertSecurityEvent persists a security sub-record.
func (s *DuckDBStore) InsertSecurityEvent(ctx context.Context, rec *SecurityEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO security_events (id, event_id, user_id, kind, severity,
			description, ip_address, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.EventID, nullable(rec.UserID), rec.Kind, string(rec.Severity),
		nullable(rec.Description), nullable(rec.IPAddress), nullableJSON(rec.Details),
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert security event: %w", err)
	}
	return nil
}

// QuerySecurityEvents returns security events matching the filter, newest-first.
func (s *DuckDBStore) QuerySecurityEvents(ctx context.Context, filter QueryFilter) ([]SecurityEvent, error) {
	var conds []string
	var args []interface{}
	appendEq(&conds, &args, "user_id", filter.ActorID)
	if c := buildSliceCondition("severity", filter.Severities, &args); c != "" {
		conds = append(conds, c)
	}
	appendRange(&conds, &args, &filter)

	query := `
		SELECT id, event_id, COALESCE(user_id, ''), kind, severity,
			COALESCE(description, ''), COALESCE(ip_address, ''),
			COALESCE(details, ''), created_at
		FROM security_events` + whereClause(conds) + `
		ORDER BY created_at DESC
		LIMIT ?`
	args = append(args, effectiveLimit(&filter))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query security events: %w", err)
	}
	defer rows.Close()

	var results []SecurityEvent
	for rows.Next() {
		var rec SecurityEvent
		var severity, details string
		if err := rows.Scan(&rec.ID, &rec.EventID, &rec.UserID, &rec.Kind, &severity,
			&rec.Description, &rec.IPAddress, &details, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan security event: %w", err)
		}
		rec.Severity = Severity(severity)
		if details != "" {
			rec.Details = json.RawMessage(details)
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

// InsertPerformanceMetric persists a performance sub-record.
func (s *DuckDBStore) InsertPerformanceMetric(ctx context.Context, rec *PerformanceMetric) error {
	var threshold interface{}
	if rec.Threshold != 0 {
		threshold = rec.Threshold
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO performance_metrics (id, event_id, metric_type, value, unit,
			threshold, exceeded_threshold, endpoint, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.EventID, rec.MetricType, rec.Value, rec.Unit,
		threshold, rec.ExceededThreshold, nullable(rec.Endpoint), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert performance metric: %w", err)
	}
	return nil
}

// QueryPerformanceMetrics returns performance metrics matching the filter, newest-first.
func (s *DuckDBStore) QueryPerformanceMetrics(ctx context.Context, filter QueryFilter) ([]PerformanceMetric, error) {
	var conds []string
	var args []interface{}
	appendEq(&conds, &args, "metric_type", filter.MetricType)
	appendEq(&conds, &args, "endpoint", filter.Endpoint)
	appendRange(&conds, &args, &filter)

	query := `
		SELECT id, event_id, metric_type, value, unit, COALESCE(threshold, 0),
			exceeded_threshold, COALESCE(endpoint, ''), created_at
		FROM performance_metrics` + whereClause(conds) + `
		ORDER BY created_at DESC
		LIMIT ?`
	args = append(args, effectiveLimit(&filter))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query performance metrics: %w", err)
	}
	defer rows.Close()

	var results []PerformanceMetric
	for rows.Next() {
		var rec PerformanceMetric
		if err := rows.Scan(&rec.ID, &rec.EventID, &rec.MetricType, &rec.Value,
			&rec.Unit, &rec.Threshold, &rec.ExceededThreshold, &rec.Endpoint,
			&rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan performance metric: %w", err)
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

// InsertDocumentAccess persists a document access sub-record.
func (s *DuckDBStore) InsertDocumentAccess(ctx context.Context, rec *DocumentAccess) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO document_access (id, event_id, user_id, document_id, action,
			file_type, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.EventID, rec.UserID, rec.DocumentID, rec.Action,
		nullable(rec.FileType), nullableJSON(rec.Details), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document access: %w", err)
	}
	return nil
}

// QueryDocumentAccesses returns document accesses matching the filter, newest-first.
func (s *DuckDBStore) QueryDocumentAccesses(ctx context.Context, filter QueryFilter) ([]DocumentAccess, error) {
	var conds []string
	var args []interface{}
	appendEq(&conds, &args, "user_id", filter.ActorID)
	appendEq(&conds, &args, "document_id", filter.ResourceID)
	appendEq(&conds, &args, "action", filter.Action)
	appendRange(&conds, &args, &filter)

	query := `
		SELECT id, event_id, user_id, document_id, action,
			COALESCE(file_type, ''), COALESCE(details, ''), created_at
		FROM document_access` + whereClause(conds) + `
		ORDER BY created_at DESC
		LIMIT ?`
	args = append(args, effectiveLimit(&filter))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query document accesses: %w", err)
	}
	defer rows.Close()

	var results []DocumentAccess
	for rows.Next() {
		var rec DocumentAccess
		var details string
		if err := rows.Scan(&rec.ID, &rec.EventID, &rec.UserID, &rec.DocumentID,
			&rec.Action, &rec.FileType, &details, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document access: %w", err)
		}
		if details != "" {
			rec.Details = json.RawMessage(details)
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

// InsertComplianceRecord persists a compliance sub-record.
func (s *DuckDBStore) InsertComplianceRecord(ctx context.Context, rec *ComplianceRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO compliance_records (id, event_id, user_id, requirement, status,
			processed_by, processed_at, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.EventID, nullable(rec.UserID), rec.Requirement, rec.Status,
		nullable(rec.ProcessedBy), rec.ProcessedAt, nullableJSON(rec.Details),
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert compliance record: %w", err)
	}
	return nil
}

// UpdateComplianceStatus transitions a compliance record out of pending.
func (s *DuckDBStore) UpdateComplianceStatus(ctx context.Context, id, status, processedBy string, processedAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE compliance_records
		SET status = ?, processed_by = ?, processed_at = ?
		WHERE id = ?`,
		status, processedBy, processedAt, id,
	)
	if err != nil {
		return fmt.Errorf("update compliance status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrComplianceNotFound, id)
	}
	return nil
}

// QueryComplianceRecords returns compliance records matching the filter, newest-first.
func (s *DuckDBStore) QueryComplianceRecords(ctx context.Context, filter QueryFilter) ([]ComplianceRecord, error) {
	var conds []string
	var args []interface{}
	appendEq(&conds, &args, "user_id", filter.ActorID)
	appendEq(&conds, &args, "status", filter.Status)
	appendRange(&conds, &args, &filter)

	query := `
		SELECT id, event_id, COALESCE(user_id, ''), requirement, status,
			COALESCE(processed_by, ''), processed_at, COALESCE(details, ''), created_at
		FROM compliance_records` + whereClause(conds) + `
		ORDER BY created_at DESC
		LIMIT ?`
	args = append(args, effectiveLimit(&filter))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query compliance records: %w", err)
	}
	defer rows.Close()

	var results []ComplianceRecord
	for rows.Next() {
		var rec ComplianceRecord
		var details string
		var processedAt sql.NullTime
		if err := rows.Scan(&rec.ID, &rec.EventID, &rec.UserID, &rec.Requirement,
			&rec.Status, &rec.ProcessedBy, &processedAt, &details, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan compliance record: %w", err)
		}
		if processedAt.Valid {
			t := processedAt.Time
			rec.ProcessedAt = &t
		}
		if details != "" {
			rec.Details = json.RawMessage(details)
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

// InsertAPIUsage persists an API usage sub-record.
func (s *DuckDBStore) InsertAPIUsage(ctx context.Context, rec *APIUsage) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO api_usage (id, event_id, user_id, endpoint, method,
			status_code, response_time_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.EventID, nullable(rec.UserID), rec.Endpoint, rec.Method,
		rec.StatusCode, rec.ResponseTimeMS, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert api usage: %w", err)
	}
	return nil
}

// QueryAPIUsage returns API usage records matching the filter, newest-first.
func (s *DuckDBStore) QueryAPIUsage(ctx context.Context, filter QueryFilter) ([]APIUsage, error) {
	var conds []string
	var args []interface{}
	appendEq(&conds, &args, "user_id", filter.ActorID)
	appendEq(&conds, &args, "endpoint", filter.Endpoint)
	appendRange(&conds, &args, &filter)

	query := `
		SELECT id, event_id, COALESCE(user_id, ''), endpoint, method,
			status_code, response_time_ms, created_at
		FROM api_usage` + whereClause(conds) + `
		ORDER BY created_at DESC
		LIMIT ?`
	args = append(args, effectiveLimit(&filter))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query api usage: %w", err)
	}
	defer rows.Close()

	var results []APIUsage
	for rows.Next() {
		var rec APIUsage
		if err := rows.Scan(&rec.ID, &rec.EventID, &rec.UserID, &rec.Endpoint,
			&rec.Method, &rec.StatusCode, &rec.ResponseTimeMS, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan api usage: %w", err)
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

// countByColumn executes a GROUP BY query and returns counts per value.
func (s *DuckDBStore) countByColumn(ctx context.Context, column string) (map[string]int64, error) {
	result := make(map[string]int64)
	query := fmt.Sprintf("SELECT %s, COUNT(*) FROM audit_events GROUP BY %s", column, column)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count by %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err == nil {
			result[key] = count
		}
	}
	return result, rows.Err()
}

// GetStats returns statistics about the stored events.
func (s *DuckDBStore) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM audit_events").Scan(&stats.TotalEvents); err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}

	byType, err := s.countByColumn(ctx, "event_type")
	if err != nil {
		return nil, err
	}
	stats.EventsByType = byType

	bySeverity, err := s.countByColumn(ctx, "severity")
	if err != nil {
		return nil, err
	}
	stats.EventsBySeverity = bySeverity

	var oldest, newest sql.NullTime
	if err := s.db.QueryRowContext(ctx,
		"SELECT MIN(created_at), MAX(created_at) FROM audit_events").Scan(&oldest, &newest); err != nil {
		return nil, fmt.Errorf("event time range: %w", err)
	}
	if oldest.Valid {
		stats.OldestEvent = &oldest.Time
	}
	if newest.Valid {
		stats.NewestEvent = &newest.Time
	}
	return stats, nil
}
