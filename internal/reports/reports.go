// CaseTrail - Legal Aid Platform Audit and Observability Service
// Copyright 2026 BTheCoderr
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BTheCoderr/casetrail

// Package reports builds time-windowed summaries over stored audit
// records. Every builder scans its window once, accumulating several
// grouped counters in the same pass. Top-N rollups sort count-descending
// with ties keeping encounter order; peak hours include every hour whose
// count is within 80% of the maximum.
package reports

import (
	"context"
	"sort"
	"time"

	"github.com/goccy/go-json"

	"github.com/BTheCoderr/casetrail/internal/audit"
	"github.com/BTheCoderr/casetrail/internal/policy"
)

// scanLimit bounds how many records one report scans. Windows larger than
// this are truncated to the newest records.
const scanLimit = 50000

// Builder constructs reports from the audit store.
type Builder struct {
	store audit.Store
	now   func() time.Time
}

// NewBuilder creates a report builder over the given store.
func NewBuilder(store audit.Store) *Builder {
	return &Builder{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// KeyCount is one entry of a top-N rollup.
type KeyCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// counter accumulates counts while remembering encounter order, so that
// top-N truncation is deterministic under ties.
type counter struct {
	counts map[string]int
	order  []string
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) add(key string) {
	if key == "" {
		return
	}
	if _, seen := c.counts[key]; !seen {
		c.order = append(c.order, key)
	}
	c.counts[key]++
}

func (c *counter) top(n int) []KeyCount {
	out := make([]KeyCount, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, KeyCount{Key: k, Count: c.counts[k]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func (c *counter) asMap() map[string]int {
	out := make(map[string]int, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

// peakHours returns every hour whose count is at least 80% of the maximum
// hourly count, ascending. An empty input yields no peaks.
func peakHours(byHour map[int]int) []int {
	max := 0
	for _, n := range byHour {
		if n > max {
			max = n
		}
	}
	if max == 0 {
		return nil
	}
	threshold := policy.PeakRatio * float64(max)
	var peaks []int
	for hour, n := range byHour {
		if float64(n) >= threshold {
			peaks = append(peaks, hour)
		}
	}
	sort.Ints(peaks)
	return peaks
}

// Window describes the report filter: an optional actor and resource
// scope over the trailing number of days.
type Window struct {
	ActorID      string
	ResourceType string
	MetricType   string
	Endpoint     string
	Days         int
}

func (b *Builder) windowFilter(w Window) audit.QueryFilter {
	days := w.Days
	if days <= 0 {
		days = 30
	}
	start := b.now().Add(-time.Duration(days) * 24 * time.Hour)
	return audit.QueryFilter{
		ActorID:      w.ActorID,
		ResourceType: w.ResourceType,
		MetricType:   w.MetricType,
		Endpoint:     w.Endpoint,
		StartTime:    &start,
		Limit:        scanLimit,
	}
}

// AccessSummary aggregates data access events.
type AccessSummary struct {
	Window        int            `json:"window_days"`
	TotalEvents   int            `json:"total_events"`
	ByAction      map[string]int `json:"by_action"`
	ByActor       map[string]int `json:"by_actor"`
	ByResource    map[string]int `json:"by_resource_type"`
	SensitiveHits int            `json:"sensitive_accesses"`
	TopResources  []KeyCount     `json:"most_accessed_resources"`
	PeakHours     []int          `json:"peak_hours"`
}

// BuildAccessSummary summarizes data access events in the window.
func (b *Builder) BuildAccessSummary(ctx context.Context, w Window) (*AccessSummary, error) {
	filter := b.windowFilter(w)
	filter.Types = []audit.EventType{audit.EventTypeDataAccess}
	events, err := b.store.QueryEvents(ctx, filter)
	if err != nil {
		return nil, err
	}

	byAction, byActor, byResource := newCounter(), newCounter(), newCounter()
	topResources := newCounter()
	byHour := make(map[int]int)
	sensitive := 0
	for i := range events {
		e := &events[i]
		byAction.add(e.Action)
		byActor.add(e.ActorID)
		byResource.add(e.ResourceType)
		topResources.add(e.ResourceID)
		byHour[e.CreatedAt.Hour()]++
		if metaBool(e.Metadata, "is_sensitive") {
			sensitive++
		}
	}

	return &AccessSummary{
		Window:        daysOf(w),
		TotalEvents:   len(events),
		ByAction:      byAction.asMap(),
		ByActor:       byActor.asMap(),
		ByResource:    byResource.asMap(),
		SensitiveHits: sensitive,
		TopResources:  topResources.top(policy.TopN),
		PeakHours:     peakHours(byHour),
	}, nil
}

// ModificationSummary aggregates data modification events.
type ModificationSummary struct {
	Window         int            `json:"window_days"`
	TotalEvents    int            `json:"total_events"`
	ByAction       map[string]int `json:"by_action"`
	ByActor        map[string]int `json:"by_actor"`
	ByResource     map[string]int `json:"by_resource_type"`
	Deletions      int            `json:"deletions"`
	BulkOperations int            `json:"bulk_operations"`
	TopFields      []KeyCount     `json:"most_changed_fields"`
	PeakHours      []int          `json:"peak_hours"`
}

// BuildModificationSummary summarizes data modification events, including
// the fields most commonly changed, read from each event's stored diff.
func (b *Builder) BuildModificationSummary(ctx context.Context, w Window) (*ModificationSummary, error) {
	filter := b.windowFilter(w)
	filter.Types = []audit.EventType{audit.EventTypeDataModification}
	events, err := b.store.QueryEvents(ctx, filter)
	if err != nil {
		return nil, err
	}

	byAction, byActor, byResource := newCounter(), newCounter(), newCounter()
	topFields := newCounter()
	byHour := make(map[int]int)
	deletions, bulk := 0, 0
	for i := range events {
		e := &events[i]
		byAction.add(e.Action)
		byActor.add(e.ActorID)
		byResource.add(e.ResourceType)
		byHour[e.CreatedAt.Hour()]++
		if e.Action == "DELETE" {
			deletions++
		}
		if len(e.Action) > 5 && e.Action[:5] == "BULK_" {
			bulk++
		}
		for _, field := range changedFields(e.Metadata) {
			topFields.add(field)
		}
	}

	return &ModificationSummary{
		Window:         daysOf(w),
		TotalEvents:    len(events),
		ByAction:       byAction.asMap(),
		ByActor:        byActor.asMap(),
		ByResource:     byResource.asMap(),
		Deletions:      deletions,
		BulkOperations: bulk,
		TopFields:      topFields.top(policy.TopN),
		PeakHours:      peakHours(byHour),
	}, nil
}

// DocumentSummary aggregates document access sub-records.
type DocumentSummary struct {
	Window         int            `json:"window_days"`
	TotalEvents    int            `json:"total_events"`
	DownloadEvents int            `json:"download_events"`
	ByAction       map[string]int `json:"access_by_action"`
	ByFileType     map[string]int `json:"by_file_type"`
	TopDocuments   []KeyCount     `json:"most_accessed_documents"`
	PeakHours      []int          `json:"peak_hours"`
}

// BuildDocumentSummary summarizes document operations in the window.
func (b *Builder) BuildDocumentSummary(ctx context.Context, w Window) (*DocumentSummary, error) {
	recs, err := b.store.QueryDocumentAccesses(ctx, b.windowFilter(w))
	if err != nil {
		return nil, err
	}

	byAction, byFileType, topDocs := newCounter(), newCounter(), newCounter()
	byHour := make(map[int]int)
	downloads := 0
	for i := range recs {
		r := &recs[i]
		byAction.add(r.Action)
		byFileType.add(r.FileType)
		topDocs.add(r.DocumentID)
		byHour[r.CreatedAt.Hour()]++
		if r.Action == "download" {
			downloads++
		}
	}

	return &DocumentSummary{
		Window:         daysOf(w),
		TotalEvents:    len(recs),
		DownloadEvents: downloads,
		ByAction:       byAction.asMap(),
		ByFileType:     byFileType.asMap(),
		TopDocuments:   topDocs.top(policy.TopN),
		PeakHours:      peakHours(byHour),
	}, nil
}

// SecuritySummary aggregates security events.
type SecuritySummary struct {
	Window       int            `json:"window_days"`
	TotalEvents  int            `json:"total_events"`
	ByKind       map[string]int `json:"by_kind"`
	BySeverity   map[string]int `json:"by_severity"`
	HighSeverity int            `json:"high_severity_events"`
	TopActors    []KeyCount     `json:"top_actors"`
	PeakHours    []int          `json:"peak_hours"`
}

// BuildSecuritySummary summarizes security events in the window.
func (b *Builder) BuildSecuritySummary(ctx context.Context, w Window) (*SecuritySummary, error) {
	recs, err := b.store.QuerySecurityEvents(ctx, b.windowFilter(w))
	if err != nil {
		return nil, err
	}

	byKind, bySeverity, topActors := newCounter(), newCounter(), newCounter()
	byHour := make(map[int]int)
	high := 0
	for i := range recs {
		r := &recs[i]
		byKind.add(r.Kind)
		bySeverity.add(string(r.Severity))
		topActors.add(r.UserID)
		byHour[r.CreatedAt.Hour()]++
		if r.Severity.AtLeast(policy.SeverityHigh) {
			high++
		}
	}

	return &SecuritySummary{
		Window:       daysOf(w),
		TotalEvents:  len(recs),
		ByKind:       byKind.asMap(),
		BySeverity:   bySeverity.asMap(),
		HighSeverity: high,
		TopActors:    topActors.top(policy.TopN),
		PeakHours:    peakHours(byHour),
	}, nil
}

// ActivitySummary aggregates user activity sub-records.
type ActivitySummary struct {
	Window      int            `json:"window_days"`
	TotalEvents int            `json:"total_events"`
	ByType      map[string]int `json:"by_activity_type"`
	ByUser      map[string]int `json:"by_user"`
	PeakHours   []int          `json:"peak_hours"`
}

// BuildActivitySummary summarizes user activity in the window.
func (b *Builder) BuildActivitySummary(ctx context.Context, w Window) (*ActivitySummary, error) {
	recs, err := b.store.QueryUserActivities(ctx, b.windowFilter(w))
	if err != nil {
		return nil, err
	}

	byType, byUser := newCounter(), newCounter()
	byHour := make(map[int]int)
	for i := range recs {
		r := &recs[i]
		byType.add(r.ActivityType)
		byUser.add(r.UserID)
		byHour[r.CreatedAt.Hour()]++
	}

	return &ActivitySummary{
		Window:      daysOf(w),
		TotalEvents: len(recs),
		ByType:      byType.asMap(),
		ByUser:      byUser.asMap(),
		PeakHours:   peakHours(byHour),
	}, nil
}

// MetricStats holds the per-metric-type rollup.
type MetricStats struct {
	Count               int     `json:"count"`
	Min                 float64 `json:"min"`
	Avg                 float64 `json:"avg"`
	Max                 float64 `json:"max"`
	ThresholdViolations int     `json:"threshold_violations"`
}

// PerformanceSummary aggregates performance metrics.
type PerformanceSummary struct {
	Window      int                    `json:"window_days"`
	TotalEvents int                    `json:"total_events"`
	ByType      map[string]MetricStats `json:"by_metric_type"`
	ByEndpoint  map[string]int         `json:"by_endpoint"`
}

// BuildPerformanceSummary computes min/avg/max per metric type. Threshold
// violations count records flagged at write time; the flag is never
// recomputed here.
func (b *Builder) BuildPerformanceSummary(ctx context.Context, w Window) (*PerformanceSummary, error) {
	recs, err := b.store.QueryPerformanceMetrics(ctx, b.windowFilter(w))
	if err != nil {
		return nil, err
	}

	type acc struct {
		count      int
		sum        float64
		min        float64
		max        float64
		violations int
	}
	byType := make(map[string]*acc)
	byEndpoint := newCounter()
	for i := range recs {
		r := &recs[i]
		a, ok := byType[r.MetricType]
		if !ok {
			a = &acc{min: r.Value, max: r.Value}
			byType[r.MetricType] = a
		}
		a.count++
		a.sum += r.Value
		if r.Value < a.min {
			a.min = r.Value
		}
		if r.Value > a.max {
			a.max = r.Value
		}
		if r.ExceededThreshold {
			a.violations++
		}
		byEndpoint.add(r.Endpoint)
	}

	stats := make(map[string]MetricStats, len(byType))
	for metricType, a := range byType {
		stats[metricType] = MetricStats{
			Count:               a.count,
			Min:                 a.min,
			Avg:                 a.sum / float64(a.count),
			Max:                 a.max,
			ThresholdViolations: a.violations,
		}
	}

	return &PerformanceSummary{
		Window:      daysOf(w),
		TotalEvents: len(recs),
		ByType:      stats,
		ByEndpoint:  byEndpoint.asMap(),
	}, nil
}

func daysOf(w Window) int {
	if w.Days <= 0 {
		return 30
	}
	return w.Days
}

// metaBool reads a boolean key from an event's metadata blob.
func metaBool(raw json.RawMessage, key string) bool {
	if len(raw) == 0 {
		return false
	}
	var meta map[string]any
	if err := json.Unmarshal(raw, &meta); err != nil {
		return false
	}
	v, _ := meta[key].(bool)
	return v
}

// changedFields reads the field names out of a stored modification diff.
func changedFields(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var meta struct {
		Changes map[string]json.RawMessage `json:"changes"`
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil
	}
	fields := make([]string, 0, len(meta.Changes))
	for field := range meta.Changes {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}
