// CaseTrail - Legal Aid Platform Audit and Observability Service
// Copyright 2026 BTheCoderr
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BTheCoderr/casetrail

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/BTheCoderr/casetrail/internal/cache"
	"github.com/BTheCoderr/casetrail/internal/metrics"
	"github.com/BTheCoderr/casetrail/internal/reports"
)

func reportWindow(r *http.Request) reports.Window {
	return reports.Window{
		ActorID:      r.URL.Query().Get("actor_id"),
		ResourceType: r.URL.Query().Get("resource_type"),
		MetricType:   r.URL.Query().Get("metric_type"),
		Endpoint:     r.URL.Query().Get("endpoint"),
		Days:         windowDays(r),
	}
}

// AccessReport summarizes data access events over the report window.
func (h *Handler) AccessReport(w http.ResponseWriter, r *http.Request) {
	h.buildReport(w, r, "access", func(ctx context.Context, win reports.Window) (any, error) {
		return h.reports.BuildAccessSummary(ctx, win)
	})
}

// ModificationReport summarizes data modification events.
func (h *Handler) ModificationReport(w http.ResponseWriter, r *http.Request) {
	h.buildReport(w, r, "modifications", func(ctx context.Context, win reports.Window) (any, error) {
		return h.reports.BuildModificationSummary(ctx, win)
	})
}

// DocumentReport summarizes document access events.
func (h *Handler) DocumentReport(w http.ResponseWriter, r *http.Request) {
	h.buildReport(w, r, "documents", func(ctx context.Context, win reports.Window) (any, error) {
		return h.reports.BuildDocumentSummary(ctx, win)
	})
}

// SecurityReport summarizes security events.
func (h *Handler) SecurityReport(w http.ResponseWriter, r *http.Request) {
	h.buildReport(w, r, "security", func(ctx context.Context, win reports.Window) (any, error) {
		return h.reports.BuildSecuritySummary(ctx, win)
	})
}

// ActivityReport summarizes user activity events.
func (h *Handler) ActivityReport(w http.ResponseWriter, r *http.Request) {
	h.buildReport(w, r, "activity", func(ctx context.Context, win reports.Window) (any, error) {
		return h.reports.BuildActivitySummary(ctx, win)
	})
}

// PerformanceReport summarizes performance metrics.
func (h *Handler) PerformanceReport(w http.ResponseWriter, r *http.Request) {
	h.buildReport(w, r, "performance", func(ctx context.Context, win reports.Window) (any, error) {
		return h.reports.BuildPerformanceSummary(ctx, win)
	})
}

func (h *Handler) buildReport(w http.ResponseWriter, r *http.Request, name string, build func(context.Context, reports.Window) (any, error)) {
	win := reportWindow(r)
	key := cache.GenerateKey(name, win)

	summary, cached := h.reportCache.Get(key)
	if !cached {
		start := time.Now()
		built, err := build(r.Context(), win)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to build report", err)
			return
		}
		metrics.RecordReportBuild(name, time.Since(start))
		h.reportCache.Set(key, built)
		summary = built
	}

	if r.URL.Query().Get("format") == "json-file" {
		data, err := reports.ExportJSON(summary)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to export report", err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="report.json"`)
		w.Header().Set("Cache-Control", "no-store")
		if _, err := w.Write(data); err != nil {
			respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to write report", err)
		}
		return
	}

	respondData(w, summary, 0)
}

// ExportEvents exports filtered audit events as CSV or JSON.
func (h *Handler) ExportEvents(w http.ResponseWriter, r *http.Request) {
	filter, err := queryFilterFromRequest(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid time parameter, expected RFC3339", err)
		return
	}

	events, err := h.svc.GetAuditLogs(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to query events", err)
		return
	}

	switch r.URL.Query().Get("format") {
	case "", "csv":
		data, err := reports.ExportEventsCSV(events)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to export events", err)
			return
		}
		respondCSV(w, "audit_events.csv", data)
	case "json":
		respondData(w, events, len(events))
	default:
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "format must be csv or json", nil)
	}
}
