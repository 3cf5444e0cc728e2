// CaseTrail - Legal Aid Platform Audit and Observability Service
// Copyright 2026 BTheCoderr
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BTheCoderr/casetrail

package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/BTheCoderr/casetrail/internal/audit"
)

// actorClaims is the subset of JWT claims the audit pipeline cares about.
type actorClaims struct {
	jwt.RegisteredClaims
	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty"`
}

// ActorFromJWT extracts the authenticated actor from a bearer token and
// attaches it to the request context for audit attribution. Requests
// without a valid token proceed anonymously; this middleware identifies,
// it does not authorize.
func ActorFromJWT(secret string) func(http.Handler) http.Handler {
	keyFunc := func(_ *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || secret == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims := &actorClaims{}
			parsed, err := jwt.ParseWithClaims(token, claims, keyFunc,
				jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
			if err != nil || !parsed.Valid || claims.Subject == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := audit.ContextWithActor(r.Context(), audit.Actor{
				ID:   claims.Subject,
				Type: claims.Role,
				Name: claims.Name,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AuditContext captures the request's ambient metadata (IP, user agent,
// endpoint, session) into the context so every audit write inside the
// request records it.
func AuditContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := audit.ContextWithRequest(r.Context(), audit.RequestContextFromHTTP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
