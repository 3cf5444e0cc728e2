// CaseTrail - Legal Aid Platform Audit and Observability Service
// Copyright 2026 BTheCoderr
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BTheCoderr/casetrail

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/BTheCoderr/casetrail/internal/audit"
	"github.com/BTheCoderr/casetrail/internal/perf"
)

func TestRequestID(t *testing.T) {
	var got string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetRequestID(r.Context())
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if got == "" {
		t.Fatal("request ID missing from context")
	}
	if rr.Header().Get("X-Request-ID") != got {
		t.Error("response header should carry the same ID")
	}

	// An upstream ID is honored.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "upstream-1")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if got != "upstream-1" {
		t.Errorf("request ID = %s, want upstream-1", got)
	}
}

func TestActorFromJWT(t *testing.T) {
	const secret = "test-secret"
	var actor audit.Actor
	var present bool
	handler := ActorFromJWT(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, present = audit.ActorFromContext(r.Context())
	}))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &actorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Name: "Ada",
		Role: "attorney",
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if !present {
		t.Fatal("actor missing from context")
	}
	if actor.ID != "user-42" || actor.Type != "attorney" {
		t.Errorf("actor = %+v", actor)
	}

	// A garbage token proceeds anonymously rather than failing.
	present = false
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if present {
		t.Error("invalid token should not attach an actor")
	}
}

func TestAuditContext(t *testing.T) {
	var rc *audit.RequestContext
	handler := AuditContext(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc = audit.RequestFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/cases", nil)
	req.Header.Set("User-Agent", "test-agent")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if rc == nil {
		t.Fatal("request context missing")
	}
	if rc.Endpoint != "/api/cases" || rc.Method != http.MethodPost {
		t.Errorf("request context = %+v", rc)
	}
	if rc.UserAgent != "test-agent" {
		t.Errorf("user agent = %s", rc.UserAgent)
	}
}

func TestAPIUsage(t *testing.T) {
	store := audit.NewMemoryStore(0)
	logger := perf.NewLogger(audit.NewService(store), nil)
	handler := APIUsage(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/cases", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	usage, err := store.QueryAPIUsage(req.Context(), audit.QueryFilter{Endpoint: "/api/cases"})
	if err != nil {
		t.Fatalf("QueryAPIUsage: %v", err)
	}
	if len(usage) != 1 {
		t.Fatalf("usage records = %d, want 1", len(usage))
	}
	if usage[0].StatusCode != http.StatusTeapot {
		t.Errorf("status = %d, want 418", usage[0].StatusCode)
	}
}
