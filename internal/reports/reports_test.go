// CaseTrail - Legal Aid Platform Audit and Observability Service
// Copyright 2026 BTheCoderr
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BTheCoderr/casetrail

package reports

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/BTheCoderr/casetrail/internal/audit"
)

func recent(hoursAgo int) time.Time {
	return time.Now().UTC().Add(-time.Duration(hoursAgo) * time.Hour)
}

func TestPeakHours(t *testing.T) {
	peaks := peakHours(map[int]int{9: 10, 10: 9, 11: 3})
	if len(peaks) != 2 || peaks[0] != 9 || peaks[1] != 10 {
		t.Errorf("peaks = %v, want [9 10]", peaks)
	}

	if peaks := peakHours(nil); peaks != nil {
		t.Errorf("empty input peaks = %v, want none", peaks)
	}

	// Exactly at the 80% boundary is included.
	peaks = peakHours(map[int]int{1: 10, 2: 8, 3: 7})
	if len(peaks) != 2 || peaks[1] != 2 {
		t.Errorf("peaks = %v, want [1 2]", peaks)
	}
}

func TestCounterTopStable(t *testing.T) {
	c := newCounter()
	// b and c tie; b was encountered first and must stay first.
	for _, k := range []string{"a", "b", "c", "a", "b", "c", "a"} {
		c.add(k)
	}
	top := c.top(2)
	if len(top) != 2 {
		t.Fatalf("top = %v, want 2 entries", top)
	}
	if top[0].Key != "a" || top[0].Count != 3 {
		t.Errorf("top[0] = %+v, want a/3", top[0])
	}
	if top[1].Key != "b" || top[1].Count != 2 {
		t.Errorf("top[1] = %+v, want b/2 (encounter order on tie)", top[1])
	}
}

func TestBuildAccessSummary(t *testing.T) {
	store := audit.NewMemoryStore(0)
	ctx := context.Background()

	insert := func(actor, action, resourceID string, sensitive bool, at time.Time) {
		meta, _ := json.Marshal(map[string]any{"is_sensitive": sensitive})
		if err := store.InsertEvent(ctx, &audit.Event{
			ID:           actor + action + resourceID + at.String(),
			Type:         audit.EventTypeDataAccess,
			Severity:     audit.SeverityLow,
			ActorID:      actor,
			Action:       action,
			ResourceID:   resourceID,
			ResourceType: "case",
			Metadata:     meta,
			CreatedAt:    at,
		}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	insert("u1", "ACCESS", "case-1", false, recent(1))
	insert("u1", "ACCESS", "case-1", true, recent(2))
	insert("u2", "ACCESS", "case-2", false, recent(3))
	insert("u2", "EXPORT", "", false, recent(4))
	// Outside a 1-day window.
	insert("u3", "ACCESS", "case-3", false, recent(48))

	summary, err := NewBuilder(store).BuildAccessSummary(ctx, Window{Days: 1})
	if err != nil {
		t.Fatalf("BuildAccessSummary: %v", err)
	}
	if summary.TotalEvents != 4 {
		t.Errorf("total = %d, want 4 (window excludes old event)", summary.TotalEvents)
	}
	if summary.ByAction["ACCESS"] != 3 || summary.ByAction["EXPORT"] != 1 {
		t.Errorf("by_action = %v", summary.ByAction)
	}
	if summary.SensitiveHits != 1 {
		t.Errorf("sensitive = %d, want 1", summary.SensitiveHits)
	}
	if summary.ByActor["u1"] != 2 || summary.ByActor["u2"] != 2 {
		t.Errorf("by_actor = %v", summary.ByActor)
	}
	want := map[string]int{"case-1": 2, "case-2": 1}
	for _, kc := range summary.TopResources {
		if want[kc.Key] != kc.Count {
			t.Errorf("top resource %s = %d, want %d", kc.Key, kc.Count, want[kc.Key])
		}
	}
}

func TestBuildModificationSummaryTopFields(t *testing.T) {
	store := audit.NewMemoryStore(0)
	ctx := context.Background()

	insert := func(id, action string, fields ...string) {
		changes := make(map[string]any, len(fields))
		for _, f := range fields {
			changes[f] = map[string]any{"old_value": "x", "new_value": "y"}
		}
		meta, _ := json.Marshal(map[string]any{"changes": changes})
		if err := store.InsertEvent(ctx, &audit.Event{
			ID:        id,
			Type:      audit.EventTypeDataModification,
			Severity:  audit.SeverityMedium,
			ActorID:   "u1",
			Action:    action,
			Metadata:  meta,
			CreatedAt: recent(1),
		}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	insert("m1", "UPDATE", "status", "assignee")
	insert("m2", "UPDATE", "status")
	insert("m3", "DELETE")
	insert("m4", "BULK_UPDATE")

	summary, err := NewBuilder(store).BuildModificationSummary(ctx, Window{Days: 7})
	if err != nil {
		t.Fatalf("BuildModificationSummary: %v", err)
	}
	if summary.TotalEvents != 4 {
		t.Errorf("total = %d, want 4", summary.TotalEvents)
	}
	if summary.Deletions != 1 {
		t.Errorf("deletions = %d, want 1", summary.Deletions)
	}
	if summary.BulkOperations != 1 {
		t.Errorf("bulk = %d, want 1", summary.BulkOperations)
	}
	if len(summary.TopFields) == 0 || summary.TopFields[0].Key != "status" || summary.TopFields[0].Count != 2 {
		t.Errorf("top fields = %v, want status/2 first", summary.TopFields)
	}
}

func TestBuildDocumentSummary(t *testing.T) {
	store := audit.NewMemoryStore(0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := store.InsertDocumentAccess(ctx, &audit.DocumentAccess{
			ID:         fmt.Sprintf("d%d", i),
			EventID:    fmt.Sprintf("e%d", i),
			UserID:     "u1",
			DocumentID: fmt.Sprintf("doc-%d", i),
			Action:     "download",
			FileType:   "pdf",
			CreatedAt:  recent(i + 1),
		}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	summary, err := NewBuilder(store).BuildDocumentSummary(ctx, Window{ActorID: "u1", Days: 30})
	if err != nil {
		t.Fatalf("BuildDocumentSummary: %v", err)
	}
	if summary.DownloadEvents != 3 {
		t.Errorf("download_events = %d, want 3", summary.DownloadEvents)
	}
	if summary.ByAction["download"] != 3 {
		t.Errorf("access_by_action[download] = %d, want 3", summary.ByAction["download"])
	}
	if len(summary.TopDocuments) != 3 {
		t.Fatalf("most_accessed_documents = %v, want 3 entries", summary.TopDocuments)
	}
	for _, kc := range summary.TopDocuments {
		if kc.Count != 1 {
			t.Errorf("document %s count = %d, want 1", kc.Key, kc.Count)
		}
	}
}

func TestBuildPerformanceSummary(t *testing.T) {
	store := audit.NewMemoryStore(0)
	ctx := context.Background()

	values := []struct {
		v        float64
		exceeded bool
	}{
		{100, false}, {300, false}, {900, true},
	}
	for i, m := range values {
		if err := store.InsertPerformanceMetric(ctx, &audit.PerformanceMetric{
			ID:                fmt.Sprintf("p%d", i),
			EventID:           fmt.Sprintf("e%d", i),
			MetricType:        "response_time",
			Value:             m.v,
			Unit:              "ms",
			Threshold:         500,
			ExceededThreshold: m.exceeded,
			Endpoint:          "/api/cases",
			CreatedAt:         recent(1),
		}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	summary, err := NewBuilder(store).BuildPerformanceSummary(ctx, Window{Days: 1})
	if err != nil {
		t.Fatalf("BuildPerformanceSummary: %v", err)
	}
	stats, ok := summary.ByType["response_time"]
	if !ok {
		t.Fatal("response_time stats missing")
	}
	if stats.Min != 100 || stats.Max != 900 {
		t.Errorf("min/max = %v/%v, want 100/900", stats.Min, stats.Max)
	}
	wantAvg := (100.0 + 300.0 + 900.0) / 3.0
	if stats.Avg != wantAvg {
		t.Errorf("avg = %v, want %v", stats.Avg, wantAvg)
	}
	if stats.ThresholdViolations != 1 {
		t.Errorf("violations = %d, want 1 (write-time flag only)", stats.ThresholdViolations)
	}
}

func TestBuildSecuritySummary(t *testing.T) {
	store := audit.NewMemoryStore(0)
	ctx := context.Background()

	severities := []audit.Severity{
		audit.SeverityLow, audit.SeverityHigh, audit.SeverityCritical,
	}
	for i, sev := range severities {
		if err := store.InsertSecurityEvent(ctx, &audit.SecurityEvent{
			ID:        fmt.Sprintf("s%d", i),
			EventID:   fmt.Sprintf("e%d", i),
			UserID:    "u1",
			Kind:      "failed_login",
			Severity:  sev,
			CreatedAt: recent(1),
		}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	summary, err := NewBuilder(store).BuildSecuritySummary(ctx, Window{Days: 1})
	if err != nil {
		t.Fatalf("BuildSecuritySummary: %v", err)
	}
	if summary.HighSeverity != 2 {
		t.Errorf("high severity = %d, want 2", summary.HighSeverity)
	}
	if summary.ByKind["failed_login"] != 3 {
		t.Errorf("by_kind = %v", summary.ByKind)
	}
}

func TestExportCSV(t *testing.T) {
	events := []audit.Event{{
		ID:        "e1",
		Type:      audit.EventTypeDataAccess,
		Severity:  audit.SeverityLow,
		ActorID:   "u1",
		Action:    "ACCESS",
		CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}}
	data, err := ExportEventsCSV(events)
	if err != nil {
		t.Fatalf("ExportEventsCSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want header plus one row", len(lines))
	}
	if !strings.HasPrefix(lines[0], "id,event_type") {
		t.Errorf("header = %s", lines[0])
	}
	if !strings.Contains(lines[1], "e1,data_access,low,u1,ACCESS") {
		t.Errorf("row = %s", lines[1])
	}
}
