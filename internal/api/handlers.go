// CaseTrail - Legal Aid Platform Audit and Observability Service
// Copyright 2026 BTheCoderr
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BTheCoderr/casetrail

// Package api provides the HTTP surface over the audit pipeline: event
// retrieval, summary reports, exports, compliance processing, health,
// metrics, and the live alert feed.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/BTheCoderr/casetrail/internal/audit"
	"github.com/BTheCoderr/casetrail/internal/cache"
	"github.com/BTheCoderr/casetrail/internal/reports"
	"github.com/BTheCoderr/casetrail/internal/websocket"
)

// reportCacheTTL bounds staleness of summary reports. Raw event queries
// are never cached.
const reportCacheTTL = time.Minute

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler bundles the services the HTTP endpoints call into.
type Handler struct {
	svc         *audit.Service
	reports     *reports.Builder
	reportCache *cache.Cache
	hub         *websocket.Hub
	db          Pinger
	started     time.Time
}

// NewHandler creates the endpoint handler set. hub and db may be nil;
// the websocket and readiness endpoints degrade accordingly.
func NewHandler(svc *audit.Service, builder *reports.Builder, hub *websocket.Hub, db Pinger) *Handler {
	return &Handler{
		svc:         svc,
		reports:     builder,
		reportCache: cache.New(reportCacheTTL),
		hub:         hub,
		db:          db,
		started:     time.Now(),
	}
}

// HealthLive reports process liveness.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondData(w, map[string]any{
		"status": "alive",
		"uptime": time.Since(h.started).String(),
	}, 0)
}

// HealthReady reports readiness, including store reachability.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			respondError(w, http.StatusServiceUnavailable, "DATABASE_ERROR", "event store unreachable", err)
			return
		}
	}
	respondData(w, map[string]any{"status": "ready"}, 0)
}

// WebSocket upgrades the connection and attaches it to the alert feed.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		respondError(w, http.StatusServiceUnavailable, "NOT_AVAILABLE", "alert feed is not enabled", nil)
		return
	}
	h.hub.ServeWS(w, r)
}
