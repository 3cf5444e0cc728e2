// CaseTrail - Legal Aid Platform Audit and Observability Service
// Copyright 2026 BTheCoderr
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BTheCoderr/casetrail

package cache

import (
	"testing"
	"time"
)

func TestGetSet(t *testing.T) {
	c := New(time.Minute)
	defer c.Close()

	if _, ok := c.Get("missing"); ok {
		t.Error("Get(missing) = hit, want miss")
	}

	c.Set("report", 42)
	got, ok := c.Get("report")
	if !ok {
		t.Fatal("Get(report) = miss, want hit")
	}
	if got != 42 {
		t.Errorf("Get(report) = %v, want 42", got)
	}
}

func TestExpiration(t *testing.T) {
	c := New(10 * time.Millisecond)
	defer c.Close()

	c.Set("short", "value")
	time.Sleep(25 * time.Millisecond)

	if _, ok := c.Get("short"); ok {
		t.Error("Get after TTL = hit, want miss")
	}

	stats := c.Stats()
	if stats.Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", stats.Evictions)
	}
}

func TestStatsCounts(t *testing.T) {
	c := New(time.Minute)
	defer c.Close()

	c.Set("a", 1)
	c.Get("a")
	c.Get("a")
	c.Get("b")

	stats := c.Stats()
	if stats.Hits != 2 {
		t.Errorf("Hits = %d, want 2", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("Misses = %d, want 1", stats.Misses)
	}
	if stats.Keys != 1 {
		t.Errorf("Keys = %d, want 1", stats.Keys)
	}
}

func TestInvalidateAndClear(t *testing.T) {
	c := New(time.Minute)
	defer c.Close()

	c.Set("a", 1)
	c.Set("b", 2)
	c.Invalidate("a")
	if _, ok := c.Get("a"); ok {
		t.Error("Get after Invalidate = hit, want miss")
	}

	c.Clear()
	if _, ok := c.Get("b"); ok {
		t.Error("Get after Clear = hit, want miss")
	}
}

func TestGenerateKeyDeterministic(t *testing.T) {
	type params struct {
		Days  int
		Actor string
	}

	k1 := GenerateKey("access", params{Days: 7, Actor: "u1"})
	k2 := GenerateKey("access", params{Days: 7, Actor: "u1"})
	k3 := GenerateKey("access", params{Days: 30, Actor: "u1"})

	if k1 != k2 {
		t.Errorf("same params produced different keys: %q vs %q", k1, k2)
	}
	if k1 == k3 {
		t.Error("different params produced the same key")
	}
}
