// CaseTrail - Legal Aid Platform Audit and Observability Service
// Copyright 2026 BTheCoderr
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BTheCoderr/casetrail

// Package tracker maintains per-actor access pattern state used for
// suspicious-behavior detection. State is in-memory and bounded; it is a
// detection aid, not a durable record. The durable record is the audit
// store.
package tracker

import (
	"sync"
	"time"

	"github.com/BTheCoderr/casetrail/internal/metrics"
	"github.com/BTheCoderr/casetrail/internal/policy"
)

// DefaultMaxKeys bounds the number of (actor, scope) keys held at once.
const DefaultMaxKeys = 10000

// Access is one recorded access for pattern tracking.
type Access struct {
	Resource  string    `json:"resource"`
	Action    string    `json:"action"`
	Sensitive bool      `json:"sensitive"`
	At        time.Time `json:"at"`
}

// Snapshot is a point-in-time copy of one tracked pattern. Suspicious is
// computed from the counts at snapshot time.
type Snapshot struct {
	Actor             string         `json:"actor"`
	Scope             string         `json:"scope"`
	TotalAccesses     int            `json:"total_accesses"`
	SensitiveAccesses int            `json:"sensitive_accesses"`
	DistinctResources int            `json:"distinct_resources"`
	ActionCounts      map[string]int `json:"action_counts"`
	History           []Access       `json:"history"`
	LastSeen          time.Time      `json:"last_seen"`
	Suspicious        bool           `json:"suspicious"`
}

type entry struct {
	total     int
	sensitive int
	actions   map[string]int
	resources map[string]struct{}
	history   []Access
	lastSeen  time.Time
}

// Tracker accumulates access patterns keyed by (actor, scope). All methods
// are safe for concurrent use. When the key count exceeds the configured
// bound, the key with the oldest last-seen time is evicted.
type Tracker struct {
	mu      sync.Mutex
	maxKeys int
	now     func() time.Time
	entries map[key]*entry
}

type key struct {
	actor string
	scope string
}

// New creates a tracker bounded to maxKeys keys. Zero or negative uses
// DefaultMaxKeys.
func New(maxKeys int) *Tracker {
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}
	return &Tracker{
		maxKeys: maxKeys,
		now:     func() time.Time { return time.Now().UTC() },
		entries: make(map[key]*entry),
	}
}

// Record adds one access to the (actor, scope) pattern and returns the
// updated snapshot. History is FIFO-bounded; counters are not reset when
// old history entries fall off. crossed is true only for the single
// access that moved the pattern from not-suspicious to suspicious; it is
// decided under the tracker lock, so concurrent recorders cannot both
// observe the transition.
func (t *Tracker) Record(actor, scope string, acc Access) (snap Snapshot, crossed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	k := key{actor: actor, scope: scope}
	e, ok := t.entries[k]
	if !ok {
		t.evictLocked()
		e = &entry{
			actions:   make(map[string]int),
			resources: make(map[string]struct{}),
		}
		t.entries[k] = e
	}
	wasSuspicious := suspiciousLocked(e)

	if acc.At.IsZero() {
		acc.At = t.now()
	}
	e.total++
	if acc.Sensitive {
		e.sensitive++
	}
	if acc.Action != "" {
		e.actions[acc.Action]++
	}
	if acc.Resource != "" {
		e.resources[acc.Resource] = struct{}{}
	}
	e.history = append(e.history, acc)
	if len(e.history) > policy.HistoryCap {
		e.history = e.history[len(e.history)-policy.HistoryCap:]
	}
	e.lastSeen = acc.At

	crossed = !wasSuspicious && suspiciousLocked(e)
	if crossed {
		metrics.SuspiciousPatterns.Inc()
	}
	metrics.TrackerKeys.Set(float64(len(t.entries)))

	return snapshotLocked(k, e), crossed
}

// Snapshot returns the current pattern for (actor, scope), if tracked.
func (t *Tracker) Snapshot(actor, scope string) (Snapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[key{actor: actor, scope: scope}]
	if !ok {
		return Snapshot{}, false
	}
	return snapshotLocked(key{actor: actor, scope: scope}, e), true
}

// Len returns the number of tracked keys.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Reset drops the pattern for (actor, scope).
func (t *Tracker) Reset(actor, scope string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, key{actor: actor, scope: scope})
	metrics.TrackerKeys.Set(float64(len(t.entries)))
}

// evictLocked removes the oldest-seen key when the tracker is full.
// Caller holds the lock.
func (t *Tracker) evictLocked() {
	if len(t.entries) < t.maxKeys {
		return
	}
	var oldestKey key
	var oldest time.Time
	first := true
	for k, e := range t.entries {
		if first || e.lastSeen.Before(oldest) {
			oldestKey = k
			oldest = e.lastSeen
			first = false
		}
	}
	delete(t.entries, oldestKey)
}

// suspiciousLocked applies the suspicion thresholds to the current
// counters. Caller holds the lock.
func suspiciousLocked(e *entry) bool {
	return e.total > policy.SuspicionTotalThreshold &&
		len(e.resources) > policy.SuspicionDistinctThreshold
}

func snapshotLocked(k key, e *entry) Snapshot {
	actions := make(map[string]int, len(e.actions))
	for a, n := range e.actions {
		actions[a] = n
	}
	history := make([]Access, len(e.history))
	copy(history, e.history)

	return Snapshot{
		Actor:             k.actor,
		Scope:             k.scope,
		TotalAccesses:     e.total,
		SensitiveAccesses: e.sensitive,
		DistinctResources: len(e.resources),
		ActionCounts:      actions,
		History:           history,
		LastSeen:          e.lastSeen,
		Suspicious:        suspiciousLocked(e),
	}
}
