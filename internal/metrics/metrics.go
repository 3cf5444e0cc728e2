// CaseTrail - Legal Aid Platform Audit and Observability Service
// Copyright 2026 BTheCoderr
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BTheCoderr/casetrail

// Package metrics exposes Prometheus instrumentation for the audit
// pipeline: event throughput, store latency, alert delivery and the HTTP
// API surface.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Audit pipeline metrics.
	EventsLogged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casetrail_audit_events_total",
			Help: "Total audit events written, by event type and severity",
		},
		[]string{"event_type", "severity"},
	)

	StoreWriteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "casetrail_store_write_duration_seconds",
			Help:    "Duration of event store writes in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	StoreWriteErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casetrail_store_write_errors_total",
			Help: "Total event store write failures",
		},
		[]string{"operation"},
	)

	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "casetrail_store_query_duration_seconds",
			Help:    "Duration of event store queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Alerting metrics.
	AlertsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casetrail_alerts_published_total",
			Help: "Total alerts published to the bus, by category",
		},
		[]string{"category", "severity"},
	)

	AlertDeliveryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casetrail_alert_delivery_errors_total",
			Help: "Total alert delivery failures, by notifier",
		},
		[]string{"notifier"},
	)

	// Pattern tracker metrics.
	TrackerKeys = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "casetrail_tracker_keys",
			Help: "Current number of tracked (actor, scope) pattern keys",
		},
	)

	SuspiciousPatterns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "casetrail_suspicious_patterns_total",
			Help: "Total patterns flagged suspicious",
		},
	)

	// HTTP API metrics.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casetrail_http_requests_total",
			Help: "Total HTTP requests, by method, path and status",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "casetrail_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Retention metrics.
	RetentionDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "casetrail_retention_deleted_total",
			Help: "Total events removed by retention cleanup",
		},
	)

	// Report metrics.
	ReportBuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "casetrail_report_build_duration_seconds",
			Help:    "Summary report build time by report name",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"report"},
	)
)

// RecordEvent counts one persisted audit event.
func RecordEvent(eventType, severity string) {
	EventsLogged.WithLabelValues(eventType, severity).Inc()
}

// RecordStoreWrite observes one store write.
func RecordStoreWrite(operation string, duration time.Duration, err error) {
	StoreWriteDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		StoreWriteErrors.WithLabelValues(operation).Inc()
	}
}

// RecordStoreQuery observes one store query.
func RecordStoreQuery(operation string, duration time.Duration) {
	StoreQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordAlert counts one published alert.
func RecordAlert(category, severity string) {
	AlertsPublished.WithLabelValues(category, severity).Inc()
}

// RecordReportBuild observes one report aggregation pass.
func RecordReportBuild(report string, duration time.Duration) {
	ReportBuildDuration.WithLabelValues(report).Observe(duration.Seconds())
}

// RecordHTTPRequest observes one completed HTTP request.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
