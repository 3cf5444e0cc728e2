// CaseTrail - Legal Aid Platform Audit and Observability Service
// Copyright 2026 BTheCoderr
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BTheCoderr/casetrail

package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/BTheCoderr/casetrail/internal/audit"
)

// maxQueryLimit bounds a single retrieval request.
const maxQueryLimit = 1000

// getIntParam extracts an integer query parameter with a default value.
func getIntParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

// parseCommaSeparated parses a comma-separated string into a slice.
func parseCommaSeparated(value string) []string {
	if value == "" {
		return nil
	}

	var result []string
	for _, part := range strings.Split(value, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// parseTimeParam parses an RFC3339 timestamp query parameter.
func parseTimeParam(r *http.Request, key string) (*time.Time, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// queryFilterFromRequest builds an event filter from query parameters.
// Unknown parameters are ignored, malformed timestamps are an error.
func queryFilterFromRequest(r *http.Request) (audit.QueryFilter, error) {
	var filter audit.QueryFilter

	for _, t := range parseCommaSeparated(r.URL.Query().Get("type")) {
		filter.Types = append(filter.Types, audit.EventType(t))
	}
	for _, s := range parseCommaSeparated(r.URL.Query().Get("severity")) {
		filter.Severities = append(filter.Severities, audit.Severity(s))
	}

	filter.ActorID = r.URL.Query().Get("actor_id")
	filter.ResourceID = r.URL.Query().Get("resource_id")
	filter.ResourceType = r.URL.Query().Get("resource_type")
	filter.Action = r.URL.Query().Get("action")
	filter.MetricType = r.URL.Query().Get("metric_type")
	filter.Endpoint = r.URL.Query().Get("endpoint")
	filter.Status = r.URL.Query().Get("status")

	start, err := parseTimeParam(r, "start_time")
	if err != nil {
		return filter, err
	}
	filter.StartTime = start

	end, err := parseTimeParam(r, "end_time")
	if err != nil {
		return filter, err
	}
	filter.EndTime = end

	limit := getIntParam(r, "limit", audit.DefaultQueryLimit)
	if limit < 1 {
		limit = audit.DefaultQueryLimit
	}
	if limit > maxQueryLimit {
		limit = maxQueryLimit
	}
	filter.Limit = limit

	return filter, nil
}

// windowDays parses the report window, defaulting to 30 days and capping
// at one year.
func windowDays(r *http.Request) int {
	days := getIntParam(r, "days", 30)
	if days < 1 {
		days = 30
	}
	if days > 365 {
		days = 365
	}
	return days
}
