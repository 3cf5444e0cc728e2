// CaseTrail - Legal Aid Platform Audit and Observability Service
// Copyright 2026 BTheCoderr
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BTheCoderr/casetrail

package audit

import (
	"context"
	"time"

	"github.com/BTheCoderr/casetrail/internal/metrics"
)

// InstrumentedStore wraps an audit store with Prometheus instrumentation.
// Every write observes its duration and counts failures; event inserts
// additionally count throughput by type and severity.
type InstrumentedStore struct {
	Store
}

// Instrument wraps the given store.
func Instrument(store Store) *InstrumentedStore {
	return &InstrumentedStore{Store: store}
}

func (s *InstrumentedStore) InsertEvent(ctx context.Context, event *Event) error {
	start := time.Now()
	err := s.Store.InsertEvent(ctx, event)
	metrics.RecordStoreWrite("insert_event", time.Since(start), err)
	if err == nil {
		metrics.RecordEvent(string(event.Type), string(event.Severity))
	}
	return err
}

func (s *InstrumentedStore) QueryEvents(ctx context.Context, filter QueryFilter) ([]Event, error) {
	start := time.Now()
	events, err := s.Store.QueryEvents(ctx, filter)
	metrics.RecordStoreQuery("query_events", time.Since(start))
	return events, err
}

func (s *InstrumentedStore) InsertUserActivity(ctx context.Context, rec *UserActivity) error {
	start := time.Now()
	err := s.Store.InsertUserActivity(ctx, rec)
	metrics.RecordStoreWrite("insert_user_activity", time.Since(start), err)
	return err
}

func (s *InstrumentedStore) InsertSecurityEvent(ctx context.Context, rec *SecurityEvent) error {
	start := time.Now()
	err := s.Store.InsertSecurityEvent(ctx, rec)
	metrics.RecordStoreWrite("insert_security_event", time.Since(start), err)
	return err
}

func (s *InstrumentedStore) InsertPerformanceMetric(ctx context.Context, rec *PerformanceMetric) error {
	start := time.Now()
	err := s.Store.InsertPerformanceMetric(ctx, rec)
	metrics.RecordStoreWrite("insert_performance_metric", time.Since(start), err)
	return err
}

func (s *InstrumentedStore) InsertDocumentAccess(ctx context.Context, rec *DocumentAccess) error {
	start := time.Now()
	err := s.Store.InsertDocumentAccess(ctx, rec)
	metrics.RecordStoreWrite("insert_document_access", time.Since(start), err)
	return err
}

func (s *InstrumentedStore) InsertComplianceRecord(ctx context.Context, rec *ComplianceRecord) error {
	start := time.Now()
	err := s.Store.InsertComplianceRecord(ctx, rec)
	metrics.RecordStoreWrite("insert_compliance_record", time.Since(start), err)
	return err
}

func (s *InstrumentedStore) InsertAPIUsage(ctx context.Context, rec *APIUsage) error {
	start := time.Now()
	err := s.Store.InsertAPIUsage(ctx, rec)
	metrics.RecordStoreWrite("insert_api_usage", time.Since(start), err)
	return err
}

func (s *InstrumentedStore) DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	start := time.Now()
	deleted, err := s.Store.DeleteEventsBefore(ctx, cutoff)
	metrics.RecordStoreWrite("delete_events_before", time.Since(start), err)
	if err == nil && deleted > 0 {
		metrics.RetentionDeleted.Add(float64(deleted))
	}
	return deleted, err
}
