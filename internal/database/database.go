// CaseTrail - Legal Aid Platform Audit and Observability Service
// Copyright 2026 BTheCoderr
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BTheCoderr/casetrail

// Package database opens and manages the DuckDB connection backing the
// audit event store. An empty configured path selects an in-memory
// database, which loses events on restart.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // duckdb driver

	"github.com/BTheCoderr/casetrail/internal/config"
	"github.com/BTheCoderr/casetrail/internal/logging"
)

// DB wraps the DuckDB connection pool.
type DB struct {
	conn *sql.DB
	path string
}

// Open connects to DuckDB at the configured path, creates the parent
// directory if needed, and configures the connection pool. Callers own
// the returned DB and must Close it.
func Open(cfg config.DatabaseConfig) (*DB, error) {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	if path != ":memory:" {
		// Use 0750 so the database directory is not world-readable.
		dir := filepath.Dir(path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
	}

	// Disable auto-install/auto-load to prevent hangs in restricted
	// network environments.
	connStr := fmt.Sprintf("%s?access_mode=read_write&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		path, cfg.MemoryLimit)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn, path: path}
	db.configurePool(cfg.MaxOpenConns)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logging.Info().
		Str("path", path).
		Int("max_open_conns", cfg.MaxOpenConns).
		Str("memory_limit", cfg.MemoryLimit).
		Msg("Database opened")

	return db, nil
}

// OpenMemory opens an in-memory database for tests and ephemeral runs.
func OpenMemory() (*DB, error) {
	return Open(config.DatabaseConfig{MaxOpenConns: 1, MemoryLimit: "256MB"})
}

func (db *DB) configurePool(maxOpen int) {
	if maxOpen <= 0 {
		maxOpen = 1
	}
	// In-memory DuckDB databases are per-connection, so the pool must
	// stay at a single connection to see a consistent view.
	if db.path == ":memory:" {
		maxOpen = 1
	}
	db.conn.SetMaxOpenConns(maxOpen)
	db.conn.SetMaxIdleConns(2)
	db.conn.SetConnMaxLifetime(time.Hour)
	db.conn.SetConnMaxIdleTime(5 * time.Minute)
}

// Conn returns the underlying pool for store construction.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Path returns the database path, or ":memory:" for ephemeral databases.
func (db *DB) Path() string {
	return db.path
}

// Ping verifies the connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the connection pool.
func (db *DB) Close() error {
	logging.Debug().Str("path", db.path).Msg("Closing database")
	return db.conn.Close()
}

func closeQuietly(conn *sql.DB) {
	if err := conn.Close(); err != nil {
		logging.Warn().Err(err).Msg("Failed to close database connection")
	}
}
