// CaseTrail - Legal Aid Platform Audit and Observability Service
// Copyright 2026 BTheCoderr
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BTheCoderr/casetrail

// Package perf records performance measurements and API call accounting.
// Thresholds are fixed at construction so exceeded flags are computed
// identically for every measurement of the same metric type.
package perf

import (
	"context"
	"time"

	"github.com/BTheCoderr/casetrail/internal/audit"
)

// Common metric types.
const (
	MetricResponseTime = "response_time"
	MetricQueryTime    = "query_time"
	MetricJobDuration  = "job_duration"
)

// Logger records performance metrics against the audit pipeline.
type Logger struct {
	audit      *audit.Service
	thresholds map[string]float64
}

// NewLogger creates a performance logger. thresholds maps metric type to
// the value above which a measurement is flagged and alerted; metric
// types without an entry are never flagged.
func NewLogger(svc *audit.Service, thresholds map[string]float64) *Logger {
	if thresholds == nil {
		thresholds = make(map[string]float64)
	}
	return &Logger{audit: svc, thresholds: thresholds}
}

// RecordMetric records one measurement. The threshold for the metric type,
// when configured, determines the exceeded flag at write time.
func (l *Logger) RecordMetric(ctx context.Context, metricType string, value float64, unit, endpoint string) (*audit.Event, error) {
	return l.audit.LogPerformanceMetric(ctx, audit.MetricParams{
		MetricType: metricType,
		Value:      value,
		Unit:       unit,
		Threshold:  l.thresholds[metricType],
		Endpoint:   endpoint,
	})
}

// RecordAPIUsage records one API call.
func (l *Logger) RecordAPIUsage(ctx context.Context, userID, endpoint, method string, statusCode int, elapsed time.Duration) (*audit.Event, error) {
	return l.audit.LogAPIUsage(ctx, audit.APIUsageParams{
		UserID:         userID,
		Endpoint:       endpoint,
		Method:         method,
		StatusCode:     statusCode,
		ResponseTimeMS: float64(elapsed) / float64(time.Millisecond),
	})
}

// Timer measures one operation and records it on Stop.
type Timer struct {
	logger     *Logger
	metricType string
	endpoint   string
	start      time.Time
}

// Start begins timing an operation of the given metric type.
func (l *Logger) Start(metricType, endpoint string) *Timer {
	return &Timer{
		logger:     l,
		metricType: metricType,
		endpoint:   endpoint,
		start:      time.Now(),
	}
}

// Stop records the elapsed time in milliseconds.
func (t *Timer) Stop(ctx context.Context) (*audit.Event, error) {
	elapsed := float64(time.Since(t.start)) / float64(time.Millisecond)
	return t.logger.RecordMetric(ctx, t.metricType, elapsed, "ms", t.endpoint)
}
