// CaseTrail - Legal Aid Platform Audit and Observability Service
// Copyright 2026 BTheCoderr
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BTheCoderr/casetrail

package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/BTheCoderr/casetrail/internal/alerting"
)

// capturePublisher records published alerts for assertions.
type capturePublisher struct {
	mu     sync.Mutex
	alerts []*alerting.Alert
}

func (p *capturePublisher) Publish(_ context.Context, alert *alerting.Alert) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, alert)
	return nil
}

func (p *capturePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.alerts)
}

// failingStore wraps a Store and fails the named operation.
type failingStore struct {
	Store
	failEvent bool
}

func (s *failingStore) InsertEvent(ctx context.Context, event *Event) error {
	if s.failEvent {
		return errors.New("disk full")
	}
	return s.Store.InsertEvent(ctx, event)
}

func newTestService(opts ...Option) (*Service, *MemoryStore) {
	store := NewMemoryStore(0)
	return NewService(store, opts...), store
}

func TestLogEventValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	tests := []struct {
		name   string
		params EventParams
		field  string
	}{
		{"unknown type", EventParams{Type: "bogus", Action: "x"}, "type"},
		{"missing action", EventParams{Type: EventTypeSystem}, "action"},
		{"bad severity", EventParams{Type: EventTypeSystem, Action: "x", Severity: "extreme"}, "severity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.LogEvent(ctx, tt.params)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Errorf("field = %s, want %s", ve.Field, tt.field)
			}
		})
	}
}

func TestLogEventDefaults(t *testing.T) {
	svc, _ := newTestService()

	event, err := svc.LogEvent(context.Background(), EventParams{
		Type:   EventTypeSystem,
		Action: "startup",
	})
	if err != nil {
		t.Fatalf("LogEvent: %v", err)
	}
	if event.ID == "" {
		t.Error("expected generated ID")
	}
	if event.Severity != SeverityLow {
		t.Errorf("severity = %s, want low", event.Severity)
	}
	if event.ActorID != SystemActor().ID {
		t.Errorf("actor = %s, want system actor", event.ActorID)
	}
	if event.CreatedAt.IsZero() {
		t.Error("expected CreatedAt set")
	}
}

func TestLogEventActorPrecedence(t *testing.T) {
	svc, _ := newTestService()
	ctx := ContextWithActor(context.Background(), Actor{ID: "user-7", Type: "staff"})

	event, err := svc.LogEvent(ctx, EventParams{Type: EventTypeSystem, Action: "x"})
	if err != nil {
		t.Fatalf("LogEvent: %v", err)
	}
	if event.ActorID != "user-7" {
		t.Errorf("actor = %s, want context actor", event.ActorID)
	}

	// An explicit actor wins over the context actor.
	event, err = svc.LogEvent(ctx, EventParams{Type: EventTypeSystem, Action: "x", ActorID: "admin-1"})
	if err != nil {
		t.Fatalf("LogEvent: %v", err)
	}
	if event.ActorID != "admin-1" {
		t.Errorf("actor = %s, want explicit actor", event.ActorID)
	}
}

func TestLogEventCapturesRequestContext(t *testing.T) {
	svc, _ := newTestService()
	ctx := ContextWithRequest(context.Background(), &RequestContext{
		IPAddress: "10.0.0.5",
		Endpoint:  "/api/cases",
		Method:    "POST",
	})

	event, err := svc.LogEvent(ctx, EventParams{Type: EventTypeSystem, Action: "x"})
	if err != nil {
		t.Fatalf("LogEvent: %v", err)
	}
	if event.Context == nil || event.Context.IPAddress != "10.0.0.5" {
		t.Errorf("request context not captured: %+v", event.Context)
	}
}

func TestLogEventRedactsSnapshots(t *testing.T) {
	svc, store := newTestService()

	_, err := svc.LogEvent(context.Background(), EventParams{
		Type:   EventTypeDataAccess,
		Action: "read",
		RequestPayload: map[string]any{
			"case_id": "C-9",
			"ssn":     "123-45-6789",
		},
		Metadata: map[string]any{"auth_token": "tok-abc"},
	})
	if err != nil {
		t.Fatalf("LogEvent: %v", err)
	}

	events, err := store.QueryEvents(context.Background(), QueryFilter{})
	if err != nil {
		t.Fatalf("QueryEvents: %v", err)
	}
	var snap map[string]any
	if err := json.Unmarshal(events[0].RequestSnapshot, &snap); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if snap["ssn"] != RedactedMarker {
		t.Errorf("stored ssn = %v, want redacted", snap["ssn"])
	}
	if snap["case_id"] != "C-9" {
		t.Errorf("stored case_id = %v, want preserved", snap["case_id"])
	}
	var meta map[string]any
	if err := json.Unmarshal(events[0].Metadata, &meta); err != nil {
		t.Fatalf("unmarshal metadata: %v", err)
	}
	if meta["auth_token"] != RedactedMarker {
		t.Errorf("stored auth_token = %v, want redacted", meta["auth_token"])
	}
}

func TestLogEventSerializationError(t *testing.T) {
	svc, store := newTestService()

	_, err := svc.LogEvent(context.Background(), EventParams{
		Type:     EventTypeSystem,
		Action:   "x",
		Metadata: map[string]any{"ch": make(chan int)},
	})
	if !IsSerialization(err) {
		t.Fatalf("err = %v, want SerializationError", err)
	}
	if store.Len() != 0 {
		t.Error("nothing should be persisted on serialization failure")
	}
}

func TestQueryNewestFirstAndIdempotent(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	svc, _ := newTestService(withClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := svc.LogEvent(ctx, EventParams{
			Type:   EventTypeSystem,
			Action: fmt.Sprintf("step-%d", i),
		}); err != nil {
			t.Fatalf("LogEvent %d: %v", i, err)
		}
	}

	first, err := svc.GetAuditLogs(ctx, QueryFilter{})
	if err != nil {
		t.Fatalf("GetAuditLogs: %v", err)
	}
	if len(first) != 5 {
		t.Fatalf("got %d events, want 5", len(first))
	}
	for i := 1; i < len(first); i++ {
		if first[i].CreatedAt.After(first[i-1].CreatedAt) {
			t.Errorf("events not newest-first at index %d", i)
		}
	}
	if first[0].Action != "step-4" {
		t.Errorf("newest action = %s, want step-4", first[0].Action)
	}

	// Retrieval must not disturb the store.
	second, err := svc.GetAuditLogs(ctx, QueryFilter{})
	if err != nil {
		t.Fatalf("GetAuditLogs again: %v", err)
	}
	if len(second) != len(first) {
		t.Fatalf("second read returned %d events, want %d", len(second), len(first))
	}
	for i := range first {
		if second[i].ID != first[i].ID {
			t.Errorf("read order changed at index %d", i)
		}
	}
}

func TestStrictModeSurfacesPersistenceError(t *testing.T) {
	store := &failingStore{Store: NewMemoryStore(0), failEvent: true}
	svc := NewService(store, WithMode(ModeStrict))

	_, err := svc.LogEvent(context.Background(), EventParams{Type: EventTypeSecurity, Action: "login_failed"})
	if !IsPersistence(err) {
		t.Fatalf("err = %v, want PersistenceError", err)
	}
}

func TestBestEffortModeSwallowsPersistenceError(t *testing.T) {
	store := &failingStore{Store: NewMemoryStore(0), failEvent: true}
	svc := NewService(store, WithMode(ModeBestEffort))

	if _, err := svc.LogEvent(context.Background(), EventParams{Type: EventTypeAPIUsage, Action: "GET /x"}); err != nil {
		t.Fatalf("best-effort write returned error: %v", err)
	}
}

func TestDefaultModePerEventType(t *testing.T) {
	store := &failingStore{Store: NewMemoryStore(0), failEvent: true}
	svc := NewService(store)
	ctx := context.Background()

	// Security writes are strict by default.
	if _, err := svc.LogEvent(ctx, EventParams{Type: EventTypeSecurity, Action: "x"}); err == nil {
		t.Error("security write should fail strict")
	}
	// API usage is best-effort by default.
	if _, err := svc.LogEvent(ctx, EventParams{Type: EventTypeAPIUsage, Action: "x"}); err != nil {
		t.Errorf("api usage write should swallow: %v", err)
	}
}

func TestLogSecurityEventAlerts(t *testing.T) {
	pub := &capturePublisher{}
	svc, store := newTestService(WithAlertPublisher(pub))
	ctx := context.Background()

	if _, err := svc.LogSecurityEvent(ctx, SecurityParams{
		UserID: "u1", Kind: "failed_login", Severity: SeverityMedium,
	}); err != nil {
		t.Fatalf("LogSecurityEvent: %v", err)
	}
	if pub.count() != 0 {
		t.Errorf("medium severity raised %d alerts, want 0", pub.count())
	}

	if _, err := svc.LogSecurityEvent(ctx, SecurityParams{
		UserID: "u1", Kind: "brute_force", Severity: SeverityCritical,
	}); err != nil {
		t.Fatalf("LogSecurityEvent: %v", err)
	}
	if pub.count() != 1 {
		t.Fatalf("critical severity raised %d alerts, want 1", pub.count())
	}
	if pub.alerts[0].Category != alerting.CategorySecurity {
		t.Errorf("category = %s, want security", pub.alerts[0].Category)
	}

	recs, err := store.QuerySecurityEvents(ctx, QueryFilter{})
	if err != nil {
		t.Fatalf("QuerySecurityEvents: %v", err)
	}
	if len(recs) != 2 {
		t.Errorf("got %d security records, want 2", len(recs))
	}
	if recs[0].EventID == "" {
		t.Error("sub-record missing parent event link")
	}
}

func TestLogPerformanceMetricThreshold(t *testing.T) {
	pub := &capturePublisher{}
	svc, store := newTestService(WithAlertPublisher(pub))
	ctx := context.Background()

	if _, err := svc.LogPerformanceMetric(ctx, MetricParams{
		MetricType: "response_time", Value: 120, Unit: "ms", Threshold: 500,
	}); err != nil {
		t.Fatalf("LogPerformanceMetric: %v", err)
	}
	if _, err := svc.LogPerformanceMetric(ctx, MetricParams{
		MetricType: "response_time", Value: 900, Unit: "ms", Threshold: 500, Endpoint: "/api/cases",
	}); err != nil {
		t.Fatalf("LogPerformanceMetric: %v", err)
	}

	metrics, err := store.QueryPerformanceMetrics(ctx, QueryFilter{})
	if err != nil {
		t.Fatalf("QueryPerformanceMetrics: %v", err)
	}
	if len(metrics) != 2 {
		t.Fatalf("got %d metrics, want 2", len(metrics))
	}
	var exceeded int
	for _, m := range metrics {
		if m.ExceededThreshold {
			exceeded++
		}
	}
	if exceeded != 1 {
		t.Errorf("exceeded count = %d, want 1", exceeded)
	}
	if pub.count() != 1 {
		t.Errorf("alerts = %d, want 1", pub.count())
	}
	if pub.alerts[0].Value != 900 {
		t.Errorf("alert value = %v, want 900", pub.alerts[0].Value)
	}
}

func TestComplianceLifecycle(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	rec, err := svc.LogComplianceRecord(ctx, ComplianceParams{
		UserID:      "u1",
		Requirement: "conflict_check",
	})
	if err != nil {
		t.Fatalf("LogComplianceRecord: %v", err)
	}
	if rec.Status != ComplianceStatusPending {
		t.Errorf("status = %s, want pending", rec.Status)
	}
	if rec.ProcessedAt != nil {
		t.Error("new record should have no processed_at")
	}

	if err := svc.CompleteComplianceRecord(ctx, rec.ID, "archived", "admin"); !IsValidation(err) {
		t.Errorf("invalid status err = %v, want ValidationError", err)
	}
	if err := svc.CompleteComplianceRecord(ctx, "nope", ComplianceStatusCompleted, "admin"); !IsPersistence(err) {
		t.Errorf("unknown id err = %v, want PersistenceError", err)
	} else if !errors.Is(err, ErrComplianceNotFound) {
		t.Errorf("unknown id err = %v, want ErrComplianceNotFound in chain", err)
	}

	if err := svc.CompleteComplianceRecord(ctx, rec.ID, ComplianceStatusCompleted, "admin"); err != nil {
		t.Fatalf("CompleteComplianceRecord: %v", err)
	}
	recs, err := store.QueryComplianceRecords(ctx, QueryFilter{Status: ComplianceStatusCompleted})
	if err != nil {
		t.Fatalf("QueryComplianceRecords: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d completed records, want 1", len(recs))
	}
	if recs[0].ProcessedBy != "admin" {
		t.Errorf("processed_by = %s, want admin", recs[0].ProcessedBy)
	}
	if recs[0].ProcessedAt == nil {
		t.Error("processed_at should be set")
	}
}

func TestLogUserActivityAndAPIUsage(t *testing.T) {
	svc, store := newTestService()
	ctx := ContextWithRequest(context.Background(), &RequestContext{
		IPAddress: "10.1.1.1",
		SessionID: "sess-1",
	})

	if _, err := svc.LogUserActivity(ctx, ActivityParams{
		UserID: "u2", ActivityType: "login",
	}); err != nil {
		t.Fatalf("LogUserActivity: %v", err)
	}
	acts, err := store.QueryUserActivities(ctx, QueryFilter{ActorID: "u2"})
	if err != nil {
		t.Fatalf("QueryUserActivities: %v", err)
	}
	if len(acts) != 1 || acts[0].IPAddress != "10.1.1.1" || acts[0].SessionID != "sess-1" {
		t.Errorf("activity = %+v, want request context carried", acts)
	}

	if _, err := svc.LogAPIUsage(ctx, APIUsageParams{
		UserID: "u2", Endpoint: "/api/cases", Method: "GET", StatusCode: 200, ResponseTimeMS: 42,
	}); err != nil {
		t.Fatalf("LogAPIUsage: %v", err)
	}
	usage, err := store.QueryAPIUsage(ctx, QueryFilter{Endpoint: "/api/cases"})
	if err != nil {
		t.Fatalf("QueryAPIUsage: %v", err)
	}
	if len(usage) != 1 || usage[0].ResponseTimeMS != 42 {
		t.Errorf("usage = %+v", usage)
	}
}

func TestLogDocumentAccess(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	if _, err := svc.LogDocumentAccess(ctx, DocumentParams{
		UserID: "u3", DocumentID: "doc-1", Action: "download", FileType: "pdf",
	}); err != nil {
		t.Fatalf("LogDocumentAccess: %v", err)
	}
	if _, err := svc.LogDocumentAccess(ctx, DocumentParams{UserID: "u3", Action: "view"}); !IsValidation(err) {
		t.Error("missing document_id should fail validation")
	}

	recs, err := store.QueryDocumentAccesses(ctx, QueryFilter{ResourceID: "doc-1"})
	if err != nil {
		t.Fatalf("QueryDocumentAccesses: %v", err)
	}
	if len(recs) != 1 || recs[0].FileType != "pdf" {
		t.Errorf("records = %+v", recs)
	}
}

func TestAppendOnlyRetention(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	svc, store := newTestService(withClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Hour)
	}))
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if _, err := svc.LogEvent(ctx, EventParams{Type: EventTypeSystem, Action: "tick"}); err != nil {
			t.Fatalf("LogEvent: %v", err)
		}
	}

	deleted, err := svc.PurgeBefore(ctx, base.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("PurgeBefore: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}
	if store.Len() != 2 {
		t.Errorf("remaining = %d, want 2", store.Len())
	}
}
