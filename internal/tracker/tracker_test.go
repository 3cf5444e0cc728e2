// CaseTrail - Legal Aid Platform Audit and Observability Service
// Copyright 2026 BTheCoderr
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BTheCoderr/casetrail

package tracker

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/BTheCoderr/casetrail/internal/metrics"
	"github.com/BTheCoderr/casetrail/internal/policy"
)

func TestRecordAccumulates(t *testing.T) {
	tr := New(0)

	snap, _ := tr.Record("u1", "case", Access{Resource: "case-1", Action: "read"})
	if snap.TotalAccesses != 1 || snap.DistinctResources != 1 {
		t.Errorf("snapshot = %+v, want total 1 distinct 1", snap)
	}

	snap, _ = tr.Record("u1", "case", Access{Resource: "case-1", Action: "read", Sensitive: true})
	if snap.TotalAccesses != 2 {
		t.Errorf("total = %d, want 2", snap.TotalAccesses)
	}
	if snap.SensitiveAccesses != 1 {
		t.Errorf("sensitive = %d, want 1", snap.SensitiveAccesses)
	}
	if snap.DistinctResources != 1 {
		t.Errorf("distinct = %d, want 1 (same resource)", snap.DistinctResources)
	}
	if snap.ActionCounts["read"] != 2 {
		t.Errorf("read count = %d, want 2", snap.ActionCounts["read"])
	}
}

func TestKeysAreIndependent(t *testing.T) {
	tr := New(0)
	tr.Record("u1", "case", Access{Resource: "case-1"})
	tr.Record("u1", "document", Access{Resource: "doc-1"})
	tr.Record("u2", "case", Access{Resource: "case-1"})

	snap, ok := tr.Snapshot("u1", "case")
	if !ok || snap.TotalAccesses != 1 {
		t.Errorf("u1/case = %+v", snap)
	}
	if tr.Len() != 3 {
		t.Errorf("keys = %d, want 3", tr.Len())
	}
	if _, ok := tr.Snapshot("u3", "case"); ok {
		t.Error("untracked key should not exist")
	}
}

func TestHistoryBounded(t *testing.T) {
	tr := New(0)
	n := policy.HistoryCap + 25
	for i := 0; i < n; i++ {
		tr.Record("u1", "case", Access{
			Resource: fmt.Sprintf("case-%d", i),
			Action:   "read",
		})
	}

	snap, _ := tr.Snapshot("u1", "case")
	if len(snap.History) != policy.HistoryCap {
		t.Fatalf("history len = %d, want %d", len(snap.History), policy.HistoryCap)
	}
	// Oldest entries fall off; counters keep the full total.
	if snap.History[0].Resource != "case-25" {
		t.Errorf("oldest kept = %s, want case-25", snap.History[0].Resource)
	}
	if snap.TotalAccesses != n {
		t.Errorf("total = %d, want %d", snap.TotalAccesses, n)
	}
	if snap.DistinctResources != n {
		t.Errorf("distinct = %d, want %d", snap.DistinctResources, n)
	}
}

func TestSuspicionRequiresBothThresholds(t *testing.T) {
	tr := New(0)

	// Many accesses to one resource: high total, low distinct.
	for i := 0; i <= policy.SuspicionTotalThreshold; i++ {
		snap, _ := tr.Record("u1", "case", Access{Resource: "case-1", Action: "read"})
		if snap.Suspicious {
			t.Fatalf("suspicious at total=%d distinct=1", snap.TotalAccesses)
		}
	}

	// Few accesses to many resources: high distinct, low total.
	for i := 0; i <= policy.SuspicionDistinctThreshold; i++ {
		tr.Record("u2", "case", Access{Resource: fmt.Sprintf("case-%d", i)})
	}
	if snap, _ := tr.Snapshot("u2", "case"); snap.Suspicious {
		t.Fatalf("suspicious at total=%d distinct=%d", snap.TotalAccesses, snap.DistinctResources)
	}

	// Both thresholds crossed.
	var last Snapshot
	for i := 0; i <= policy.SuspicionTotalThreshold; i++ {
		last, _ = tr.Record("u3", "case", Access{Resource: fmt.Sprintf("case-%d", i%25)})
	}
	if !last.Suspicious {
		t.Errorf("not suspicious at total=%d distinct=%d",
			last.TotalAccesses, last.DistinctResources)
	}
}

func TestEvictionDropsOldestKey(t *testing.T) {
	tr := New(3)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	tr.Record("u1", "case", Access{Resource: "r", At: base})
	tr.Record("u2", "case", Access{Resource: "r", At: base.Add(time.Minute)})
	tr.Record("u3", "case", Access{Resource: "r", At: base.Add(2 * time.Minute)})

	// u1 becomes most recently seen.
	tr.Record("u1", "case", Access{Resource: "r", At: base.Add(3 * time.Minute)})

	// A fourth key evicts u2, the oldest last-seen.
	tr.Record("u4", "case", Access{Resource: "r", At: base.Add(4 * time.Minute)})

	if tr.Len() != 3 {
		t.Fatalf("keys = %d, want 3", tr.Len())
	}
	if _, ok := tr.Snapshot("u2", "case"); ok {
		t.Error("u2 should have been evicted")
	}
	if _, ok := tr.Snapshot("u1", "case"); !ok {
		t.Error("u1 should survive eviction")
	}
}

func TestCrossingReportedExactlyOnce(t *testing.T) {
	tr := New(0)

	crossings := 0
	n := policy.SuspicionTotalThreshold + 20
	for i := 0; i < n; i++ {
		snap, crossed := tr.Record("u1", "case", Access{Resource: fmt.Sprintf("case-%d", i%25)})
		if crossed {
			crossings++
			if !snap.Suspicious {
				t.Error("crossed reported on a non-suspicious snapshot")
			}
		}
	}
	if crossings != 1 {
		t.Errorf("crossings = %d, want 1", crossings)
	}
}

func TestConcurrentRecordsCrossOnce(t *testing.T) {
	tr := New(0)

	// Prime the pattern one access below both thresholds, then race many
	// recorders past them. Only one may observe the transition.
	for i := 0; i < policy.SuspicionTotalThreshold; i++ {
		tr.Record("u1", "case", Access{Resource: fmt.Sprintf("case-%d", i%policy.SuspicionDistinctThreshold)})
	}

	var crossings atomic.Int64
	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				_, crossed := tr.Record("u1", "case", Access{
					Resource: fmt.Sprintf("extra-%d-%d", g, i),
				})
				if crossed {
					crossings.Add(1)
				}
			}
		}(g)
	}
	wg.Wait()

	if got := crossings.Load(); got != 1 {
		t.Errorf("crossings = %d, want 1", got)
	}
}

func TestMetricsFollowTrackerState(t *testing.T) {
	suspiciousBefore := testutil.ToFloat64(metrics.SuspiciousPatterns)

	tr := New(0)
	tr.Record("m1", "case", Access{Resource: "r"})
	tr.Record("m2", "case", Access{Resource: "r"})
	if got := testutil.ToFloat64(metrics.TrackerKeys); got != 2 {
		t.Errorf("tracker keys gauge = %v, want 2", got)
	}

	tr.Reset("m2", "case")
	if got := testutil.ToFloat64(metrics.TrackerKeys); got != 1 {
		t.Errorf("tracker keys gauge after reset = %v, want 1", got)
	}

	n := policy.SuspicionTotalThreshold + 5
	for i := 0; i < n; i++ {
		tr.Record("m1", "case", Access{Resource: fmt.Sprintf("r-%d", i%25)})
	}
	if got := testutil.ToFloat64(metrics.SuspiciousPatterns); got != suspiciousBefore+1 {
		t.Errorf("suspicious patterns counter = %v, want %v", got, suspiciousBefore+1)
	}
}

func TestReset(t *testing.T) {
	tr := New(0)
	tr.Record("u1", "case", Access{Resource: "r"})
	tr.Reset("u1", "case")
	if _, ok := tr.Snapshot("u1", "case"); ok {
		t.Error("reset key should be gone")
	}
}
