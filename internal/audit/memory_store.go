// CaseTrail - Legal Aid Platform Audit and Observability Service
// Copyright 2026 BTheCoderr
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BTheCoderr/casetrail

package audit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore implements Store using in-memory slices. Suitable for
// development and testing; data is lost on restart.
type MemoryStore struct {
	mu sync.RWMutex

	events      []Event
	activities  []UserActivity
	security    []SecurityEvent
	performance []PerformanceMetric
	documents   []DocumentAccess
	compliance  []ComplianceRecord
	apiUsage    []APIUsage

	maxLen int
}

// NewMemoryStore creates a new in-memory audit store. When the event slice
// exceeds maxLen the oldest tenth is dropped.
func NewMemoryStore(maxLen int) *MemoryStore {
	if maxLen <= 0 {
		maxLen = 10000
	}
	return &MemoryStore{maxLen: maxLen}
}

// InsertEvent persists a generic audit event.
func (s *MemoryStore) InsertEvent(ctx context.Context, event *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.events) >= s.maxLen {
		removeCount := s.maxLen / 10
		if removeCount == 0 {
			removeCount = 1
		}
		s.events = s.events[removeCount:]
	}
	s.events = append(s.events, *event)
	return nil
}

func (s *MemoryStore) matchesEvent(event *Event, filter *QueryFilter) bool {
	if len(filter.Types) > 0 {
		found := false
		for _, t := range filter.Types {
			if event.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(filter.Severities) > 0 {
		found := false
		for _, sev := range filter.Severities {
			if event.Severity == sev {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.ActorID != "" && event.ActorID != filter.ActorID {
		return false
	}
	if filter.ResourceID != "" && event.ResourceID != filter.ResourceID {
		return false
	}
	if filter.ResourceType != "" && event.ResourceType != filter.ResourceType {
		return false
	}
	if filter.Action != "" && event.Action != filter.Action {
		return false
	}
	return inRange(event.CreatedAt, filter)
}

func inRange(ts time.Time, filter *QueryFilter) bool {
	if filter.StartTime != nil && ts.Before(*filter.StartTime) {
		return false
	}
	if filter.EndTime != nil && ts.After(*filter.EndTime) {
		return false
	}
	return true
}

func effectiveLimit(filter *QueryFilter) int {
	if filter.Limit > 0 {
		return filter.Limit
	}
	return DefaultQueryLimit
}

// QueryEvents returns events matching the filter, newest-first.
func (s *MemoryStore) QueryEvents(ctx context.Context, filter QueryFilter) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := effectiveLimit(&filter)
	var results []Event
	for i := len(s.events) - 1; i >= 0; i-- {
		if !s.matchesEvent(&s.events[i], &filter) {
			continue
		}
		results = append(results, s.events[i])
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

// CountEvents returns the number of events matching the filter.
func (s *MemoryStore) CountEvents(ctx context.Context, filter QueryFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for i := range s.events {
		if s.matchesEvent(&s.events[i], &filter) {
			count++
		}
	}
	return count, nil
}

// DeleteEventsBefore removes events older than cutoff (retention cleanup).
func (s *MemoryStore) DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kept []Event
	var deleted int64
	for i := range s.events {
		if s.events[i].CreatedAt.Before(cutoff) {
			deleted++
		} else {
			kept = append(kept, s.events[i])
		}
	}
	s.events = kept
	return deleted, nil
}

// InsertUserActivity persists a user activity sub-record.
func (s *MemoryStore) InsertUserActivity(ctx context.Context, rec *UserActivity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activities = append(s.activities, *rec)
	return nil
}

// QueryUserActivities returns user activities matching the filter, newest-first.
func (s *MemoryStore) QueryUserActivities(ctx context.Context, filter QueryFilter) ([]UserActivity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := effectiveLimit(&filter)
	var results []UserActivity
	for i := len(s.activities) - 1; i >= 0; i-- {
		rec := &s.activities[i]
		if filter.ActorID != "" && rec.UserID != filter.ActorID {
			continue
		}
		if filter.Action != "" && rec.ActivityType != filter.Action {
			continue
		}
		if !inRange(rec.CreatedAt, &filter) {
			continue
		}
		results = append(results, *rec)
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

// InsertSecurityEvent persists a security sub-record.
func (s *MemoryStore) InsertSecurityEvent(ctx context.Context, rec *SecurityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.security = append(s.security, *rec)
	return nil
}

// QuerySecurityEvents returns security events matching the filter, newest-first.
func (s *MemoryStore) QuerySecurityEvents(ctx context.Context, filter QueryFilter) ([]SecurityEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := effectiveLimit(&filter)
	var results []SecurityEvent
	for i := len(s.security) - 1; i >= 0; i-- {
		rec := &s.security[i]
		if filter.ActorID != "" && rec.UserID != filter.ActorID {
			continue
		}
		if len(filter.Severities) > 0 {
			found := false
			for _, sev := range filter.Severities {
				if rec.Severity == sev {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		if !inRange(rec.CreatedAt, &filter) {
			continue
		}
		results = append(results, *rec)
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

// InsertPerformanceMetric persists a performance sub-record.
func (s *MemoryStore) InsertPerformanceMetric(ctx context.Context, rec *PerformanceMetric) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.performance = append(s.performance, *rec)
	return nil
}

// QueryPerformanceMetrics returns performance metrics matching the filter, newest-first.
func (s *MemoryStore) QueryPerformanceMetrics(ctx context.Context, filter QueryFilter) ([]PerformanceMetric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := effectiveLimit(&filter)
	var results []PerformanceMetric
	for i := len(s.performance) - 1; i >= 0; i-- {
		rec := &s.performance[i]
		if filter.MetricType != "" && rec.MetricType != filter.MetricType {
			continue
		}
		if filter.Endpoint != "" && rec.Endpoint != filter.Endpoint {
			continue
		}
		if !inRange(rec.CreatedAt, &filter) {
			continue
		}
		results = append(results, *rec)
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

// InsertDocumentAccess persists a document access sub-record.
func (s *MemoryStore) InsertDocumentAccess(ctx context.Context, rec *DocumentAccess) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents = append(s.documents, *rec)
	return nil
}

// QueryDocumentAccesses returns document accesses matching the filter, newest-first.
func (s *MemoryStore) QueryDocumentAccesses(ctx context.Context, filter QueryFilter) ([]DocumentAccess, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := effectiveLimit(&filter)
	var results []DocumentAccess
	for i := len(s.documents) - 1; i >= 0; i-- {
		rec := &s.documents[i]
		if filter.ActorID != "" && rec.UserID != filter.ActorID {
			continue
		}
		if filter.ResourceID != "" && rec.DocumentID != filter.ResourceID {
			continue
		}
		if filter.Action != "" && rec.Action != filter.Action {
			continue
		}
		if !inRange(rec.CreatedAt, &filter) {
			continue
		}
		results = append(results, *rec)
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

// InsertComplianceRecord persists a compliance sub-record.
func (s *MemoryStore) InsertComplianceRecord(ctx context.Context, rec *ComplianceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.compliance = append(s.compliance, *rec)
	return nil
}

// UpdateComplianceStatus transitions a compliance record out of pending.
// This is the single sanctioned in-place update in the store.
func (s *MemoryStore) UpdateComplianceStatus(ctx context.Context, id, status, processedBy string, processedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.compliance {
		if s.compliance[i].ID == id {
			s.compliance[i].Status = status
			s.compliance[i].ProcessedBy = processedBy
			t := processedAt
			s.compliance[i].ProcessedAt = &t
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrComplianceNotFound, id)
}

// QueryComplianceRecords returns compliance records matching the filter, newest-first.
func (s *MemoryStore) QueryComplianceRecords(ctx context.Context, filter QueryFilter) ([]ComplianceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := effectiveLimit(&filter)
	var results []ComplianceRecord
	for i := len(s.compliance) - 1; i >= 0; i-- {
		rec := &s.compliance[i]
		if filter.ActorID != "" && rec.UserID != filter.ActorID {
			continue
		}
		if filter.Status != "" && rec.Status != filter.Status {
			continue
		}
		if !inRange(rec.CreatedAt, &filter) {
			continue
		}
		results = append(results, *rec)
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

// InsertAPIUsage persists an API usage sub-record.
func (s *MemoryStore) InsertAPIUsage(ctx context.Context, rec *APIUsage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiUsage = append(s.apiUsage, *rec)
	return nil
}

// QueryAPIUsage returns API usage records matching the filter, newest-first.
func (s *MemoryStore) QueryAPIUsage(ctx context.Context, filter QueryFilter) ([]APIUsage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := effectiveLimit(&filter)
	var results []APIUsage
	for i := len(s.apiUsage) - 1; i >= 0; i-- {
		rec := &s.apiUsage[i]
		if filter.ActorID != "" && rec.UserID != filter.ActorID {
			continue
		}
		if filter.Endpoint != "" && rec.Endpoint != filter.Endpoint {
			continue
		}
		if !inRange(rec.CreatedAt, &filter) {
			continue
		}
		results = append(results, *rec)
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

// GetStats returns statistics for the memory store.
func (s *MemoryStore) GetStats(ctx context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Stats{
		TotalEvents:      int64(len(s.events)),
		EventsByType:     make(map[string]int64),
		EventsBySeverity: make(map[string]int64),
	}

	for i := range s.events {
		event := &s.events[i]
		stats.EventsByType[string(event.Type)]++
		stats.EventsBySeverity[string(event.Severity)]++

		if stats.OldestEvent == nil || event.CreatedAt.Before(*stats.OldestEvent) {
			t := event.CreatedAt
			stats.OldestEvent = &t
		}
		if stats.NewestEvent == nil || event.CreatedAt.After(*stats.NewestEvent) {
			t := event.CreatedAt
			stats.NewestEvent = &t
		}
	}
	return stats, nil
}

// Len returns the number of generic events in the store.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Clear removes all records (for testing).
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
	s.activities = nil
	s.security = nil
	s.performance = nil
	s.documents = nil
	s.compliance = nil
	s.apiUsage = nil
}
