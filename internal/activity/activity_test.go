// CaseTrail - Legal Aid Platform Audit and Observability Service
// Copyright 2026 BTheCoderr
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BTheCoderr/casetrail

package activity

import (
	"context"
	"testing"

	"github.com/goccy/go-json"

	"github.com/BTheCoderr/casetrail/internal/audit"
)

func newTestLogger() (*Logger, *audit.MemoryStore) {
	store := audit.NewMemoryStore(0)
	return NewLogger(audit.NewService(store)), store
}

func TestLogLogin(t *testing.T) {
	logger, store := newTestLogger()
	ctx := context.Background()

	if _, err := logger.LogLogin(ctx, "u1", true); err != nil {
		t.Fatalf("LogLogin: %v", err)
	}
	acts, err := store.QueryUserActivities(ctx, audit.QueryFilter{ActorID: "u1"})
	if err != nil {
		t.Fatalf("QueryUserActivities: %v", err)
	}
	if len(acts) != 1 || acts[0].ActivityType != TypeLogin {
		t.Errorf("activities = %+v, want one login", acts)
	}
}

func TestFailedLoginIsSecurityEvent(t *testing.T) {
	logger, store := newTestLogger()
	ctx := context.Background()

	if _, err := logger.LogLogin(ctx, "u1", false); err != nil {
		t.Fatalf("LogLogin: %v", err)
	}
	secs, err := store.QuerySecurityEvents(ctx, audit.QueryFilter{ActorID: "u1"})
	if err != nil {
		t.Fatalf("QuerySecurityEvents: %v", err)
	}
	if len(secs) != 1 || secs[0].Kind != TypeLoginFailed {
		t.Fatalf("security events = %+v, want one failed login", secs)
	}
	if secs[0].Severity != audit.SeverityMedium {
		t.Errorf("severity = %s, want medium", secs[0].Severity)
	}
	acts, _ := store.QueryUserActivities(ctx, audit.QueryFilter{ActorID: "u1"})
	if len(acts) != 0 {
		t.Errorf("failed login should not record plain activity, got %d", len(acts))
	}
}

func TestLogProfileChangeFlagsSensitive(t *testing.T) {
	logger, store := newTestLogger()
	ctx := context.Background()

	if _, err := logger.LogProfileChange(ctx, "u1", []string{"display_name", "phone"}); err != nil {
		t.Fatalf("LogProfileChange: %v", err)
	}
	acts, _ := store.QueryUserActivities(ctx, audit.QueryFilter{ActorID: "u1"})
	if len(acts) != 1 {
		t.Fatalf("activities = %d, want 1", len(acts))
	}
	var details map[string]any
	if err := json.Unmarshal(acts[0].Details, &details); err != nil {
		t.Fatalf("unmarshal details: %v", err)
	}
	if details["is_sensitive"] != true {
		t.Errorf("is_sensitive = %v, want true", details["is_sensitive"])
	}
}
