// Copyright 2026 Bizledger Labs
// SPDX-License-Identifier: Apache-2.0

// Package localstore is the on-device SQLite store for the synchronized POS
// entities. It exposes, per entity, the narrow surface the reconciliation
// engine consumes: read-all, find-by-cloud-id, insert, update-from-cloud,
// update-cloud-id and delete-all.
package localstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/bizledger/possync/localstore/migrations"
)

// Store wraps the SQLite database. Writes are serialized through a single
// mutex to avoid SQLite locking issues under concurrent callers.
type Store struct {
	DB      *sql.DB
	logger  *slog.Logger
	writeMu sync.Mutex
}

// Open opens (creating if needed) the SQLite database at dsn, applies
// pragmas and migrations, and returns a ready Store.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	store, err := New(ctx, db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// New initializes a Store over an existing database handle. Used by tests
// with :memory: databases.
func New(ctx context.Context, db *sql.DB, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys=ON`); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if err := runMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &Store{DB: db, logger: logger}, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db, ".")
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.DB.Close()
}

func (s *Store) deleteAll(ctx context.Context, table string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.DB.ExecContext(ctx, `DELETE FROM `+table); err != nil {
		return fmt.Errorf("failed to purge %s: %w", table, err)
	}
	return nil
}
