// Copyright 2026 Bizledger Labs
// SPDX-License-Identifier: Apache-2.0

// Package cloudstore defines the remote document-collection contract the
// reconciliation engine consumes, together with an HTTP implementation that
// talks to a cloudserver instance and an in-memory implementation for tests.
package cloudstore

import (
	"context"
	"encoding/json"
)

// Doc is one remote document: an opaque string key plus its JSON fields.
type Doc struct {
	Key  string          `json:"key"`
	Data json.RawMessage `json:"data"`
}

// Collection is a tenant-scoped named document collection.
type Collection interface {
	// GetAll returns every document in the collection.
	GetAll(ctx context.Context) ([]Doc, error)

	// SetMerge upserts a document with merge semantics: fields present in
	// patch overwrite, fields absent from patch are preserved remotely.
	SetMerge(ctx context.Context, key string, patch any) error

	// Delete removes a document. Used only for pruning items/categories that
	// became inactive locally.
	Delete(ctx context.Context, key string) error
}

// Client scopes collections under a tenant.
type Client interface {
	Collection(tenantID, name string) Collection
}
