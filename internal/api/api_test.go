// CaseTrail - Legal Aid Platform Audit and Observability Service
// Copyright 2026 BTheCoderr
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BTheCoderr/casetrail

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/BTheCoderr/casetrail/internal/audit"
	"github.com/BTheCoderr/casetrail/internal/config"
	"github.com/BTheCoderr/casetrail/internal/reports"
)

func testServer(t *testing.T) (*audit.Service, *httptest.Server) {
	t.Helper()

	store := audit.NewMemoryStore(1000)
	svc := audit.NewService(store)
	handler := NewHandler(svc, reports.NewBuilder(store), nil, nil)
	router := NewRouter(handler, config.APIConfig{
		RateLimit:  1000,
		RateWindow: time.Minute,
	}, nil)

	srv := httptest.NewServer(router.Setup())
	t.Cleanup(srv.Close)
	return svc, srv
}

func getJSON(t *testing.T, url string) *Response {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return &out
}

func TestHealthLive(t *testing.T) {
	_, srv := testServer(t)

	resp := getJSON(t, srv.URL+"/api/v1/health/live")
	if resp.Status != "success" {
		t.Errorf("status = %q, want success", resp.Status)
	}
}

func TestEventsEndpoint(t *testing.T) {
	svc, srv := testServer(t)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := svc.LogEvent(ctx, audit.EventParams{
			Type:    audit.EventTypeDataAccess,
			ActorID: "user-1",
			Action:  "ACCESS",
		}); err != nil {
			t.Fatalf("LogEvent: %v", err)
		}
	}

	resp := getJSON(t, srv.URL+"/api/v1/audit/events?type=data_access")
	if resp.Status != "success" {
		t.Fatalf("status = %q, want success", resp.Status)
	}
	if resp.Metadata.Count != 3 {
		t.Errorf("count = %d, want 3", resp.Metadata.Count)
	}
}

func TestEventsBadTimeParam(t *testing.T) {
	_, srv := testServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/audit/events?start_time=yesterday")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestEventCount(t *testing.T) {
	svc, srv := testServer(t)

	ctx := context.Background()
	if _, err := svc.LogSecurityEvent(ctx, audit.SecurityParams{
		Kind:   "login_failed",
		UserID: "user-2",
	}); err != nil {
		t.Fatalf("LogSecurityEvent: %v", err)
	}

	resp := getJSON(t, srv.URL+"/api/v1/audit/events/count?type=security")
	data, ok := resp.Data.(map[string]any)
	if !ok {
		t.Fatalf("data type = %T, want map", resp.Data)
	}
	if data["count"] != float64(1) {
		t.Errorf("count = %v, want 1", data["count"])
	}
}

func TestCompleteComplianceEndpoint(t *testing.T) {
	svc, srv := testServer(t)

	rec, err := svc.LogComplianceRecord(context.Background(), audit.ComplianceParams{
		Requirement: "data_retention",
		UserID:      "system",
	})
	if err != nil {
		t.Fatalf("LogComplianceRecord: %v", err)
	}

	body := strings.NewReader(`{"status":"completed","processed_by":"admin-1"}`)
	resp, err := http.Post(srv.URL+"/api/v1/audit/compliance/"+rec.ID+"/complete", "application/json", body)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	recs, err := svc.GetComplianceRecords(context.Background(), audit.QueryFilter{})
	if err != nil {
		t.Fatalf("GetComplianceRecords: %v", err)
	}
	if len(recs) != 1 || recs[0].Status != "completed" {
		t.Errorf("record status = %+v, want completed", recs)
	}
}

func TestCompleteComplianceRejectsBadStatus(t *testing.T) {
	_, srv := testServer(t)

	body := strings.NewReader(`{"status":"maybe","processed_by":"admin-1"}`)
	resp, err := http.Post(srv.URL+"/api/v1/audit/compliance/some-id/complete", "application/json", body)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestCompleteComplianceUnknownID(t *testing.T) {
	_, srv := testServer(t)

	body := strings.NewReader(`{"status":"completed","processed_by":"admin-1"}`)
	resp, err := http.Post(srv.URL+"/api/v1/audit/compliance/no-such-record/complete", "application/json", body)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

// failingComplianceStore simulates a store outage on status updates.
type failingComplianceStore struct {
	audit.Store
}

func (s *failingComplianceStore) UpdateComplianceStatus(context.Context, string, string, string, time.Time) error {
	return errors.New("write failed: disk full")
}

func TestCompleteComplianceStoreFailure(t *testing.T) {
	store := &failingComplianceStore{Store: audit.NewMemoryStore(1000)}
	svc := audit.NewService(store)
	handler := NewHandler(svc, reports.NewBuilder(store), nil, nil)
	router := NewRouter(handler, config.APIConfig{
		RateLimit:  1000,
		RateWindow: time.Minute,
	}, nil)
	srv := httptest.NewServer(router.Setup())
	defer srv.Close()

	rec, err := svc.LogComplianceRecord(context.Background(), audit.ComplianceParams{
		Requirement: "data_retention",
		UserID:      "system",
	})
	if err != nil {
		t.Fatalf("LogComplianceRecord: %v", err)
	}

	body := strings.NewReader(`{"status":"completed","processed_by":"admin-1"}`)
	resp, err := http.Post(srv.URL+"/api/v1/audit/compliance/"+rec.ID+"/complete", "application/json", body)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()

	// A write failure must not masquerade as a missing record.
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusInternalServerError)
	}
	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Error == nil || out.Error.Code != "STORAGE_ERROR" {
		t.Errorf("error = %+v, want STORAGE_ERROR", out.Error)
	}
}

func TestExportEventsCSV(t *testing.T) {
	svc, srv := testServer(t)

	if _, err := svc.LogEvent(context.Background(), audit.EventParams{
		Type:    audit.EventTypeDataAccess,
		ActorID: "user-1",
		Action:  "ACCESS",
	}); err != nil {
		t.Fatalf("LogEvent: %v", err)
	}

	resp, err := http.Get(srv.URL + "/api/v1/audit/events/export?format=csv")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Content-Type = %q, want text/csv", ct)
	}
}

func TestAccessReportEndpoint(t *testing.T) {
	svc, srv := testServer(t)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := svc.LogEvent(ctx, audit.EventParams{
			Type:         audit.EventTypeDataAccess,
			ActorID:      "user-1",
			Action:       "ACCESS",
			ResourceType: "cases",
		}); err != nil {
			t.Fatalf("LogEvent: %v", err)
		}
	}

	resp := getJSON(t, srv.URL+"/api/v1/reports/access?days=7")
	if resp.Status != "success" {
		t.Fatalf("status = %q, want success", resp.Status)
	}
	data, ok := resp.Data.(map[string]any)
	if !ok {
		t.Fatalf("data type = %T, want map", resp.Data)
	}
	if data["total_events"] != float64(2) {
		t.Errorf("total_events = %v, want 2", data["total_events"])
	}
}

func TestUnknownRouteReturns404(t *testing.T) {
	_, srv := testServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/nope")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}
