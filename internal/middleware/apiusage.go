// CaseTrail - Legal Aid Platform Audit and Observability Service
// Copyright 2026 BTheCoderr
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BTheCoderr/casetrail

package middleware

import (
	"net/http"
	"time"

	"github.com/BTheCoderr/casetrail/internal/audit"
	"github.com/BTheCoderr/casetrail/internal/perf"
)

// APIUsage records every completed request as an API usage audit record.
// Recording is best-effort and happens after the response is written, so
// a slow store never adds latency to the response.
func APIUsage(logger *perf.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			var userID string
			if actor, ok := audit.ActorFromContext(r.Context()); ok {
				userID = actor.ID
			}
			_, _ = logger.RecordAPIUsage(r.Context(), userID, r.URL.Path, r.Method,
				rec.status, time.Since(start))
		})
	}
}
