// Copyright 2026 Bizledger Labs
// SPDX-License-Identifier: Apache-2.0

// Package cloudserver is the cloud-side document store the reconciliation
// engine syncs against: tenant-scoped named collections of JSON documents
// stored in Postgres, with merge-upsert write semantics.
package cloudserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bizledger/possync/cloudstore"
)

// Service provides tenant-scoped document collections over a Postgres pool.
type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewService creates the document store service and ensures its schema
// exists.
func NewService(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{pool: pool, logger: logger}
	if err := s.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Service) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE SCHEMA IF NOT EXISTS possync`,
		`CREATE TABLE IF NOT EXISTS possync.documents (
			tenant_id  TEXT NOT NULL,
			collection TEXT NOT NULL,
			doc_key    TEXT NOT NULL,
			doc        JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (tenant_id, collection, doc_key)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_tenant_collection
			ON possync.documents (tenant_id, collection)`,
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

// GetAll returns every document of a tenant's collection in key order.
func (s *Service) GetAll(ctx context.Context, tenantID, collection string) ([]cloudstore.Doc, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT doc_key, doc FROM possync.documents
		WHERE tenant_id = $1 AND collection = $2
		ORDER BY doc_key
	`, tenantID, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var out []cloudstore.Doc
	for rows.Next() {
		var d cloudstore.Doc
		if err := rows.Scan(&d.Key, &d.Data); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// SetMerge upserts a document with merge semantics: top-level fields present
// in patch overwrite, everything else already stored is preserved.
func (s *Service) SetMerge(ctx context.Context, tenantID, collection, key string, patch json.RawMessage) error {
	if !json.Valid(patch) {
		return fmt.Errorf("patch for %s is not valid JSON", key)
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO possync.documents (tenant_id, collection, doc_key, doc)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tenant_id, collection, doc_key)
		DO UPDATE SET doc = possync.documents.doc || excluded.doc, updated_at = now()
	`, tenantID, collection, key, patch)
	if err != nil {
		return fmt.Errorf("failed to merge document %s/%s: %w", collection, key, err)
	}
	return nil
}

// Delete removes a document. Deleting a missing key is a no-op.
func (s *Service) Delete(ctx context.Context, tenantID, collection, key string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM possync.documents
		WHERE tenant_id = $1 AND collection = $2 AND doc_key = $3
	`, tenantID, collection, key)
	if err != nil {
		return fmt.Errorf("failed to delete document %s/%s: %w", collection, key, err)
	}
	return nil
}
