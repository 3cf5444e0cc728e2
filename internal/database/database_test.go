// CaseTrail - Legal Aid Platform Audit and Observability Service
// Copyright 2026 BTheCoderr
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BTheCoderr/casetrail

package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/BTheCoderr/casetrail/internal/audit"
	"github.com/BTheCoderr/casetrail/internal/config"
)

func TestOpenMemory(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error = %v", err)
	}
	defer db.Close()

	if db.Path() != ":memory:" {
		t.Errorf("Path() = %q, want %q", db.Path(), ":memory:")
	}
	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "events.db")
	db, err := Open(config.DatabaseConfig{
		Path:         path,
		MaxOpenConns: 2,
		MemoryLimit:  "128MB",
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}
}

func TestSchemaCreation(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error = %v", err)
	}
	defer db.Close()

	store := audit.NewDuckDBStore(db.Conn())
	if err := store.CreateTables(context.Background()); err != nil {
		t.Fatalf("CreateTables() error = %v", err)
	}

	// Idempotent: second run must not fail.
	if err := store.CreateTables(context.Background()); err != nil {
		t.Fatalf("CreateTables() second run error = %v", err)
	}

	var count int
	row := db.Conn().QueryRowContext(context.Background(), "SELECT COUNT(*) FROM audit_events")
	if err := row.Scan(&count); err != nil {
		t.Fatalf("query audit_events: %v", err)
	}
	if count != 0 {
		t.Errorf("audit_events count = %d, want 0", count)
	}
}
