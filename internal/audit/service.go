// CaseTrail - Legal Aid Platform Audit and Observability Service
// Copyright 2026 BTheCoderr
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BTheCoderr/casetrail

package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/BTheCoderr/casetrail/internal/alerting"
	"github.com/BTheCoderr/casetrail/internal/logging"
)

// Service is the audit pipeline entry point. All audited operations flow
// through LogEvent or one of the typed loggers built on it. Writes are
// synchronous; alert delivery is asynchronous via the configured publisher.
type Service struct {
	store  Store
	alerts alerting.Publisher
	mode   Mode // non-empty forces a single mode for all writes
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithAlertPublisher sets the publisher that receives alerts raised during
// audit writes. Defaults to a no-op publisher.
func WithAlertPublisher(p alerting.Publisher) Option {
	return func(s *Service) { s.alerts = p }
}

// WithMode forces every write into the given mode, overriding the
// per-event-type defaults.
func WithMode(m Mode) Option {
	return func(s *Service) { s.mode = m }
}

// withClock overrides the timestamp source. Test hook.
func withClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates an audit service backed by the given store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		alerts: alerting.NopPublisher{},
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EventParams describes a generic audit event to record. Payload maps are
// redacted before serialization; never pre-serialize sensitive values into
// Metadata strings.
type EventParams struct {
	Type             EventType
	Severity         Severity
	ActorID          string
	Action           string
	ResourceID       string
	ResourceType     string
	Description      string
	RequestPayload   map[string]any
	ResponsePayload  map[string]any
	ErrorMessage     string
	ProcessingTimeMS float64
	Metadata         map[string]any
}

// LogEvent validates, enriches and persists a generic audit event. The
// actor is taken from params when set, otherwise from the context, falling
// back to the system actor. Request metadata is captured from the context
// when present.
func (s *Service) LogEvent(ctx context.Context, params EventParams) (*Event, error) {
	event, err := s.buildEvent(ctx, params)
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx, modeForWrite(s.mode, params.Type), "insert_event", func() error {
		return s.store.InsertEvent(ctx, event)
	}); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *Service) buildEvent(ctx context.Context, params EventParams) (*Event, error) {
	if !params.Type.Valid() {
		return nil, &ValidationError{Field: "type", Reason: "unknown event type"}
	}
	if params.Action == "" {
		return nil, &ValidationError{Field: "action", Reason: "required"}
	}
	severity := params.Severity
	if severity == "" {
		severity = SeverityLow
	}
	if !severity.Valid() {
		return nil, &ValidationError{Field: "severity", Reason: "unknown severity"}
	}

	actorID := params.ActorID
	if actorID == "" {
		if actor, ok := ActorFromContext(ctx); ok {
			actorID = actor.ID
		} else {
			actorID = SystemActor().ID
		}
	}

	reqSnap, err := marshalRedacted("request_snapshot", params.RequestPayload)
	if err != nil {
		return nil, err
	}
	respSnap, err := marshalRedacted("response_snapshot", params.ResponsePayload)
	if err != nil {
		return nil, err
	}
	metadata, err := marshalRedacted("metadata", params.Metadata)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:               uuid.New().String(),
		Type:             params.Type,
		Severity:         severity,
		ActorID:          actorID,
		Context:          RequestFromContext(ctx),
		Action:           params.Action,
		ResourceID:       params.ResourceID,
		ResourceType:     params.ResourceType,
		Description:      params.Description,
		RequestSnapshot:  reqSnap,
		ResponseSnapshot: respSnap,
		ErrorMessage:     params.ErrorMessage,
		ProcessingTimeMS: params.ProcessingTimeMS,
		Metadata:         metadata,
		CreatedAt:        s.now(),
	}, nil
}

func modeForWrite(override Mode, t EventType) Mode {
	if override != "" {
		return override
	}
	return modeFor(t)
}

// persist runs a store write and applies the mode's failure policy. Every
// failure is logged locally regardless of mode so audit gaps are visible
// even when swallowed.
func (s *Service) persist(ctx context.Context, mode Mode, op string, write func() error) error {
	err := write()
	if err == nil {
		return nil
	}
	perr := &PersistenceError{Op: op, Err: err}
	logging.Ctx(ctx).Error().
		Err(perr).
		Str("component", "audit").
		Str("op", op).
		Str("mode", string(mode)).
		Msg("audit write failed")
	if mode == ModeStrict {
		return perr
	}
	return nil
}

// ActivityParams describes a user activity to record.
type ActivityParams struct {
	UserID       string
	ActivityType string
	Description  string
	Details      map[string]any
}

// LogUserActivity records a user activity event and its typed sub-record.
func (s *Service) LogUserActivity(ctx context.Context, params ActivityParams) (*Event, error) {
	if params.UserID == "" {
		return nil, &ValidationError{Field: "user_id", Reason: "required"}
	}
	if params.ActivityType == "" {
		return nil, &ValidationError{Field: "activity_type", Reason: "required"}
	}
	event, err := s.buildEvent(ctx, EventParams{
		Type:        EventTypeUserActivity,
		ActorID:     params.UserID,
		Action:      params.ActivityType,
		Description: params.Description,
		Metadata:    params.Details,
	})
	if err != nil {
		return nil, err
	}

	details, err := marshalRedacted("details", params.Details)
	if err != nil {
		return nil, err
	}
	rec := &UserActivity{
		ID:           uuid.New().String(),
		EventID:      event.ID,
		UserID:       params.UserID,
		ActivityType: params.ActivityType,
		Details:      details,
		CreatedAt:    s.now(),
	}
	if rc := event.Context; rc != nil {
		rec.IPAddress = rc.IPAddress
		rec.UserAgent = rc.UserAgent
		rec.SessionID = rc.SessionID
	}

	mode := modeForWrite(s.mode, EventTypeUserActivity)
	if err := s.persist(ctx, mode, "insert_event", func() error {
		return s.store.InsertEvent(ctx, event)
	}); err != nil {
		return nil, err
	}
	if err := s.persist(ctx, mode, "insert_user_activity", func() error {
		return s.store.InsertUserActivity(ctx, rec)
	}); err != nil {
		return nil, err
	}
	return event, nil
}

// SecurityParams describes a security event to record.
type SecurityParams struct {
	UserID      string
	Kind        string
	Severity    Severity
	Description string
	Details     map[string]any
}

// LogSecurityEvent records a security event. High and critical severities
// additionally raise an alert.
func (s *Service) LogSecurityEvent(ctx context.Context, params SecurityParams) (*Event, error) {
	if params.Kind == "" {
		return nil, &ValidationError{Field: "kind", Reason: "required"}
	}
	severity := params.Severity
	if severity == "" {
		severity = SeverityMedium
	}
	event, err := s.buildEvent(ctx, EventParams{
		Type:        EventTypeSecurity,
		Severity:    severity,
		ActorID:     params.UserID,
		Action:      params.Kind,
		Description: params.Description,
		Metadata:    params.Details,
	})
	if err != nil {
		return nil, err
	}

	details, err := marshalRedacted("details", params.Details)
	if err != nil {
		return nil, err
	}
	rec := &SecurityEvent{
		ID:          uuid.New().String(),
		EventID:     event.ID,
		UserID:      params.UserID,
		Kind:        params.Kind,
		Severity:    severity,
		Description: params.Description,
		Details:     details,
		CreatedAt:   s.now(),
	}
	if rc := event.Context; rc != nil {
		rec.IPAddress = rc.IPAddress
	}

	mode := modeForWrite(s.mode, EventTypeSecurity)
	if err := s.persist(ctx, mode, "insert_event", func() error {
		return s.store.InsertEvent(ctx, event)
	}); err != nil {
		return nil, err
	}
	if err := s.persist(ctx, mode, "insert_security_event", func() error {
		return s.store.InsertSecurityEvent(ctx, rec)
	}); err != nil {
		return nil, err
	}

	if severity.AtLeast(SeverityHigh) {
		alert := alerting.NewAlert(alerting.CategorySecurity, severity, params.Kind)
		alert.ActorID = params.UserID
		alert.Context = details
		s.publishAlert(ctx, alert)
	}
	return event, nil
}

// MetricParams describes a performance measurement to record.
type MetricParams struct {
	MetricType string
	Value      float64
	Unit       string
	Threshold  float64
	Endpoint   string
}

// LogPerformanceMetric records a performance metric. When a threshold is
// set and the value exceeds it, the record is flagged at write time and an
// alert is raised.
func (s *Service) LogPerformanceMetric(ctx context.Context, params MetricParams) (*Event, error) {
	if params.MetricType == "" {
		return nil, &ValidationError{Field: "metric_type", Reason: "required"}
	}
	exceeded := params.Threshold > 0 && params.Value > params.Threshold
	severity := SeverityLow
	if exceeded {
		severity = SeverityMedium
	}
	event, err := s.buildEvent(ctx, EventParams{
		Type:     EventTypePerformance,
		Severity: severity,
		Action:   params.MetricType,
		Metadata: map[string]any{
			"value":     params.Value,
			"unit":      params.Unit,
			"threshold": params.Threshold,
		},
	})
	if err != nil {
		return nil, err
	}

	rec := &PerformanceMetric{
		ID:                uuid.New().String(),
		EventID:           event.ID,
		MetricType:        params.MetricType,
		Value:             params.Value,
		Unit:              params.Unit,
		Threshold:         params.Threshold,
		ExceededThreshold: exceeded,
		Endpoint:          params.Endpoint,
		CreatedAt:         s.now(),
	}

	mode := modeForWrite(s.mode, EventTypePerformance)
	if err := s.persist(ctx, mode, "insert_event", func() error {
		return s.store.InsertEvent(ctx, event)
	}); err != nil {
		return nil, err
	}
	if err := s.persist(ctx, mode, "insert_performance_metric", func() error {
		return s.store.InsertPerformanceMetric(ctx, rec)
	}); err != nil {
		return nil, err
	}

	if exceeded {
		alert := alerting.NewAlert(alerting.CategoryPerformance, SeverityMedium, params.MetricType+" exceeded threshold")
		alert.Value = params.Value
		alert.Unit = params.Unit
		s.publishAlert(ctx, alert)
	}
	return event, nil
}

// DocumentParams describes a document operation to record.
type DocumentParams struct {
	UserID     string
	DocumentID string
	Action     string
	FileType   string
	Severity   Severity
	Details    map[string]any
}

// LogDocumentAccess records a document operation event and its sub-record.
func (s *Service) LogDocumentAccess(ctx context.Context, params DocumentParams) (*Event, error) {
	if params.UserID == "" {
		return nil, &ValidationError{Field: "user_id", Reason: "required"}
	}
	if params.DocumentID == "" {
		return nil, &ValidationError{Field: "document_id", Reason: "required"}
	}
	if params.Action == "" {
		return nil, &ValidationError{Field: "action", Reason: "required"}
	}
	event, err := s.buildEvent(ctx, EventParams{
		Type:         EventTypeDocumentAccess,
		Severity:     params.Severity,
		ActorID:      params.UserID,
		Action:       params.Action,
		ResourceID:   params.DocumentID,
		ResourceType: "document",
		Metadata:     params.Details,
	})
	if err != nil {
		return nil, err
	}

	details, err := marshalRedacted("details", params.Details)
	if err != nil {
		return nil, err
	}
	rec := &DocumentAccess{
		ID:         uuid.New().String(),
		EventID:    event.ID,
		UserID:     params.UserID,
		DocumentID: params.DocumentID,
		Action:     params.Action,
		FileType:   params.FileType,
		Details:    details,
		CreatedAt:  s.now(),
	}

	mode := modeForWrite(s.mode, EventTypeDocumentAccess)
	if err := s.persist(ctx, mode, "insert_event", func() error {
		return s.store.InsertEvent(ctx, event)
	}); err != nil {
		return nil, err
	}
	if err := s.persist(ctx, mode, "insert_document_access", func() error {
		return s.store.InsertDocumentAccess(ctx, rec)
	}); err != nil {
		return nil, err
	}
	return event, nil
}

// ComplianceParams describes a compliance obligation to record.
type ComplianceParams struct {
	UserID      string
	Requirement string
	Description string
	Details     map[string]any
}

// LogComplianceRecord records a compliance obligation in pending status.
func (s *Service) LogComplianceRecord(ctx context.Context, params ComplianceParams) (*ComplianceRecord, error) {
	if params.Requirement == "" {
		return nil, &ValidationError{Field: "requirement", Reason: "required"}
	}
	event, err := s.buildEvent(ctx, EventParams{
		Type:        EventTypeCompliance,
		Severity:    SeverityMedium,
		ActorID:     params.UserID,
		Action:      "compliance_recorded",
		Description: params.Description,
		Metadata:    params.Details,
	})
	if err != nil {
		return nil, err
	}

	details, err := marshalRedacted("details", params.Details)
	if err != nil {
		return nil, err
	}
	rec := &ComplianceRecord{
		ID:          uuid.New().String(),
		EventID:     event.ID,
		UserID:      params.UserID,
		Requirement: params.Requirement,
		Status:      ComplianceStatusPending,
		Details:     details,
		CreatedAt:   s.now(),
	}

	mode := modeForWrite(s.mode, EventTypeCompliance)
	if err := s.persist(ctx, mode, "insert_event", func() error {
		return s.store.InsertEvent(ctx, event)
	}); err != nil {
		return nil, err
	}
	if err := s.persist(ctx, mode, "insert_compliance_record", func() error {
		return s.store.InsertComplianceRecord(ctx, rec)
	}); err != nil {
		return nil, err
	}
	return rec, nil
}

// CompleteComplianceRecord transitions a pending compliance record to
// completed or failed, recording who processed it and when. The transition
// is the only sanctioned in-place update in the audit store.
func (s *Service) CompleteComplianceRecord(ctx context.Context, id, status, processedBy string) error {
	if status != ComplianceStatusCompleted && status != ComplianceStatusFailed {
		return &ValidationError{Field: "status", Reason: "must be completed or failed"}
	}
	if processedBy == "" {
		if actor, ok := ActorFromContext(ctx); ok {
			processedBy = actor.ID
		} else {
			processedBy = SystemActor().ID
		}
	}
	processedAt := s.now()
	if err := s.persist(ctx, ModeStrict, "update_compliance_status", func() error {
		return s.store.UpdateComplianceStatus(ctx, id, status, processedBy, processedAt)
	}); err != nil {
		return err
	}

	_, err := s.LogEvent(ctx, EventParams{
		Type:        EventTypeCompliance,
		Severity:    SeverityLow,
		ActorID:     processedBy,
		Action:      "compliance_processed",
		ResourceID:  id,
		Description: "compliance record marked " + status,
	})
	return err
}

// APIUsageParams describes an API call to record.
type APIUsageParams struct {
	UserID         string
	Endpoint       string
	Method         string
	StatusCode     int
	ResponseTimeMS float64
}

// LogAPIUsage records an API usage event and its sub-record.
func (s *Service) LogAPIUsage(ctx context.Context, params APIUsageParams) (*Event, error) {
	if params.Endpoint == "" {
		return nil, &ValidationError{Field: "endpoint", Reason: "required"}
	}
	if params.Method == "" {
		return nil, &ValidationError{Field: "method", Reason: "required"}
	}
	event, err := s.buildEvent(ctx, EventParams{
		Type:             EventTypeAPIUsage,
		ActorID:          params.UserID,
		Action:           params.Method + " " + params.Endpoint,
		ProcessingTimeMS: params.ResponseTimeMS,
	})
	if err != nil {
		return nil, err
	}

	rec := &APIUsage{
		ID:             uuid.New().String(),
		EventID:        event.ID,
		UserID:         params.UserID,
		Endpoint:       params.Endpoint,
		Method:         params.Method,
		StatusCode:     params.StatusCode,
		ResponseTimeMS: params.ResponseTimeMS,
		CreatedAt:      s.now(),
	}

	mode := modeForWrite(s.mode, EventTypeAPIUsage)
	if err := s.persist(ctx, mode, "insert_event", func() error {
		return s.store.InsertEvent(ctx, event)
	}); err != nil {
		return nil, err
	}
	if err := s.persist(ctx, mode, "insert_api_usage", func() error {
		return s.store.InsertAPIUsage(ctx, rec)
	}); err != nil {
		return nil, err
	}
	return event, nil
}

// RaiseAlert publishes an alert through the configured publisher on behalf
// of a caller outside the typed loggers, such as the pattern trackers.
func (s *Service) RaiseAlert(ctx context.Context, alert *alerting.Alert) {
	s.publishAlert(ctx, alert)
}

func (s *Service) publishAlert(ctx context.Context, alert *alerting.Alert) {
	if err := s.alerts.Publish(ctx, alert); err != nil {
		logging.Ctx(ctx).Warn().
			Err(err).
			Str("component", "audit").
			Str("category", alert.Category).
			Msg("alert publish failed")
	}
}

// GetAuditLogs returns audit events matching the filter, newest-first.
func (s *Service) GetAuditLogs(ctx context.Context, filter QueryFilter) ([]Event, error) {
	return s.store.QueryEvents(ctx, filter)
}

// CountAuditLogs returns the number of events matching the filter.
func (s *Service) CountAuditLogs(ctx context.Context, filter QueryFilter) (int64, error) {
	return s.store.CountEvents(ctx, filter)
}

// GetUserActivities returns user activities matching the filter.
func (s *Service) GetUserActivities(ctx context.Context, filter QueryFilter) ([]UserActivity, error) {
	return s.store.QueryUserActivities(ctx, filter)
}

// GetSecurityEvents returns security events matching the filter.
func (s *Service) GetSecurityEvents(ctx context.Context, filter QueryFilter) ([]SecurityEvent, error) {
	return s.store.QuerySecurityEvents(ctx, filter)
}

// GetPerformanceMetrics returns performance metrics matching the filter.
func (s *Service) GetPerformanceMetrics(ctx context.Context, filter QueryFilter) ([]PerformanceMetric, error) {
	return s.store.QueryPerformanceMetrics(ctx, filter)
}

// GetDocumentAccesses returns document accesses matching the filter.
func (s *Service) GetDocumentAccesses(ctx context.Context, filter QueryFilter) ([]DocumentAccess, error) {
	return s.store.QueryDocumentAccesses(ctx, filter)
}

// GetComplianceRecords returns compliance records matching the filter.
func (s *Service) GetComplianceRecords(ctx context.Context, filter QueryFilter) ([]ComplianceRecord, error) {
	return s.store.QueryComplianceRecords(ctx, filter)
}

// GetAPIUsage returns API usage records matching the filter.
func (s *Service) GetAPIUsage(ctx context.Context, filter QueryFilter) ([]APIUsage, error) {
	return s.store.QueryAPIUsage(ctx, filter)
}

// GetStats returns aggregate statistics for the event store.
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	return s.store.GetStats(ctx)
}

// PurgeBefore deletes events older than the cutoff. Retention cleanup only.
func (s *Service) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.store.DeleteEventsBefore(ctx, cutoff)
}
