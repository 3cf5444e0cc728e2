// CaseTrail - Legal Aid Platform Audit and Observability Service
// Copyright 2026 BTheCoderr
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BTheCoderr/casetrail

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/BTheCoderr/casetrail/internal/audit"
	"github.com/BTheCoderr/casetrail/internal/validation"
)

// Events returns audit events filtered by query parameters. Results are
// newest first.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	filter, err := queryFilterFromRequest(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid time parameter, expected RFC3339", err)
		return
	}

	start := time.Now()
	events, err := h.svc.GetAuditLogs(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to query events", err)
		return
	}

	respondJSON(w, http.StatusOK, &Response{
		Status: "success",
		Data:   events,
		Metadata: Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
			Count:       len(events),
		},
	})
}

// EventCount returns the number of events matching the filter.
func (h *Handler) EventCount(w http.ResponseWriter, r *http.Request) {
	filter, err := queryFilterFromRequest(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid time parameter, expected RFC3339", err)
		return
	}

	count, err := h.svc.CountAuditLogs(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to count events", err)
		return
	}

	respondData(w, map[string]int64{"count": count}, 0)
}

// Stats returns store-wide event counts by type and severity.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.GetStats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to compute stats", err)
		return
	}
	respondData(w, stats, 0)
}

// UserActivities returns user activity records.
func (h *Handler) UserActivities(w http.ResponseWriter, r *http.Request) {
	h.listRecords(w, r, func(filter audit.QueryFilter) (any, int, error) {
		recs, err := h.svc.GetUserActivities(r.Context(), filter)
		return recs, len(recs), err
	})
}

// SecurityEvents returns security event records.
func (h *Handler) SecurityEvents(w http.ResponseWriter, r *http.Request) {
	h.listRecords(w, r, func(filter audit.QueryFilter) (any, int, error) {
		recs, err := h.svc.GetSecurityEvents(r.Context(), filter)
		return recs, len(recs), err
	})
}

// PerformanceMetrics returns performance metric records.
func (h *Handler) PerformanceMetrics(w http.ResponseWriter, r *http.Request) {
	h.listRecords(w, r, func(filter audit.QueryFilter) (any, int, error) {
		recs, err := h.svc.GetPerformanceMetrics(r.Context(), filter)
		return recs, len(recs), err
	})
}

// DocumentAccesses returns document access records.
func (h *Handler) DocumentAccesses(w http.ResponseWriter, r *http.Request) {
	h.listRecords(w, r, func(filter audit.QueryFilter) (any, int, error) {
		recs, err := h.svc.GetDocumentAccesses(r.Context(), filter)
		return recs, len(recs), err
	})
}

// ComplianceRecords returns compliance processing records.
func (h *Handler) ComplianceRecords(w http.ResponseWriter, r *http.Request) {
	h.listRecords(w, r, func(filter audit.QueryFilter) (any, int, error) {
		recs, err := h.svc.GetComplianceRecords(r.Context(), filter)
		return recs, len(recs), err
	})
}

// APIUsage returns API usage records.
func (h *Handler) APIUsage(w http.ResponseWriter, r *http.Request) {
	h.listRecords(w, r, func(filter audit.QueryFilter) (any, int, error) {
		recs, err := h.svc.GetAPIUsage(r.Context(), filter)
		return recs, len(recs), err
	})
}

func (h *Handler) listRecords(w http.ResponseWriter, r *http.Request, query func(audit.QueryFilter) (any, int, error)) {
	filter, err := queryFilterFromRequest(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid time parameter, expected RFC3339", err)
		return
	}

	start := time.Now()
	recs, count, err := query(filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to query records", err)
		return
	}

	respondJSON(w, http.StatusOK, &Response{
		Status: "success",
		Data:   recs,
		Metadata: Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
			Count:       count,
		},
	})
}

// completeComplianceRequest is the body for marking a compliance record
// processed.
type completeComplianceRequest struct {
	Status      string `json:"status" validate:"required,oneof=completed failed"`
	ProcessedBy string `json:"processed_by" validate:"required"`
}

// CompleteCompliance marks a compliance record completed or failed and logs
// the processing event.
func (h *Handler) CompleteCompliance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "record id is required", nil)
		return
	}

	var req completeComplianceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body", err)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondJSON(w, http.StatusBadRequest, &Response{
			Status:   "error",
			Metadata: Metadata{Timestamp: time.Now()},
			Error: &APIError{
				Code:    "VALIDATION_ERROR",
				Message: verr.Error(),
				Details: verr.Details(),
			},
		})
		return
	}

	if err := h.svc.CompleteComplianceRecord(r.Context(), id, req.Status, req.ProcessedBy); err != nil {
		switch {
		case audit.IsValidation(err):
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		case errors.Is(err, audit.ErrComplianceNotFound):
			respondError(w, http.StatusNotFound, "NOT_FOUND", "compliance record not found", err)
		case audit.IsPersistence(err):
			respondError(w, http.StatusInternalServerError, "STORAGE_ERROR", "failed to update record", err)
		default:
			respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to update record", err)
		}
		return
	}

	respondData(w, map[string]string{"id": id, "status": req.Status}, 0)
}
