// CaseTrail - Legal Aid Platform Audit and Observability Service
// Copyright 2026 BTheCoderr
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BTheCoderr/casetrail

package audit

import (
	"context"
	"net/http"
)

// Actor identifies who caused an audited action. It is supplied by the
// surrounding HTTP layer (out of scope here) via request context.
type Actor struct {
	ID   string `json:"id"`
	Type string `json:"type,omitempty"`
	Name string `json:"name,omitempty"`
}

// SystemActor represents the service itself for events with no user actor.
func SystemActor() Actor {
	return Actor{ID: "system", Type: "system", Name: "casetrail"}
}

type contextKey string

const (
	actorKey   contextKey = "audit_actor"
	requestKey contextKey = "audit_request"
)

// ContextWithActor returns a context carrying the acting identity.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext retrieves the acting identity, if any.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey).(Actor)
	return actor, ok
}

// ContextWithRequest returns a context carrying ambient request metadata.
func ContextWithRequest(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, requestKey, rc)
}

// RequestFromContext retrieves ambient request metadata, if any. The
// returned pointer is shared; callers must copy before mutating.
func RequestFromContext(ctx context.Context) *RequestContext {
	if rc, ok := ctx.Value(requestKey).(*RequestContext); ok {
		return rc
	}
	return nil
}

// RequestContextFromHTTP captures request metadata for audit events.
// X-Forwarded-For and X-Real-IP take precedence over the socket address so
// events record the client behind a proxy.
func RequestContextFromHTTP(r *http.Request) *RequestContext {
	ip := r.RemoteAddr
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ip = xff
	} else if xri := r.Header.Get("X-Real-IP"); xri != "" {
		ip = xri
	}

	sessionID := ""
	if c, err := r.Cookie("session_id"); err == nil {
		sessionID = c.Value
	}

	return &RequestContext{
		SessionID: sessionID,
		IPAddress: ip,
		UserAgent: r.UserAgent(),
		Endpoint:  r.URL.Path,
		Method:    r.Method,
	}
}
