// Copyright 2026 Bizledger Labs
// SPDX-License-Identifier: Apache-2.0

package cloudstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// MemClient is an in-memory Client used by tests and local development. It
// applies the same top-level merge semantics as the server and counts writes
// so callers can assert that a steady-state sync pass performs none.
type MemClient struct {
	mu          sync.Mutex
	collections map[string]*MemCollection
}

// NewMemClient creates an empty in-memory cloud store.
func NewMemClient() *MemClient {
	return &MemClient{collections: make(map[string]*MemCollection)}
}

// Collection returns the named collection under a tenant, creating it on
// first use.
func (m *MemClient) Collection(tenantID, name string) Collection {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := tenantID + "/" + name
	coll, ok := m.collections[key]
	if !ok {
		coll = &MemCollection{docs: make(map[string]map[string]any)}
		m.collections[key] = coll
	}
	return coll
}

// Writes returns the total number of SetMerge and Delete calls across all
// collections.
func (m *MemClient) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, coll := range m.collections {
		total += coll.Writes()
	}
	return total
}

// MemCollection is the in-memory Collection implementation.
type MemCollection struct {
	mu     sync.Mutex
	docs   map[string]map[string]any
	writes int
	// FailSetMerge, when set, makes SetMerge fail for the given keys. Lets
	// tests exercise per-record failure tolerance.
	FailSetMerge map[string]error
	// FailGetAll, when set, makes GetAll fail. Lets tests exercise
	// collection-level fetch failures.
	FailGetAll error
}

// GetAll returns all documents in key order for deterministic enumeration.
func (c *MemCollection) GetAll(ctx context.Context) ([]Doc, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailGetAll != nil {
		return nil, c.FailGetAll
	}
	keys := make([]string, 0, len(c.docs))
	for k := range c.docs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Doc, 0, len(keys))
	for _, k := range keys {
		data, err := json.Marshal(c.docs[k])
		if err != nil {
			return nil, fmt.Errorf("failed to marshal document %s: %w", k, err)
		}
		out = append(out, Doc{Key: k, Data: data})
	}
	return out, nil
}

// SetMerge upserts a document, overwriting only the top-level fields present
// in patch.
func (c *MemCollection) SetMerge(ctx context.Context, key string, patch any) error {
	data, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("failed to marshal patch for %s: %w", key, err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("patch for %s is not a JSON object: %w", key, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err, ok := c.FailSetMerge[key]; ok {
		return err
	}
	doc, ok := c.docs[key]
	if !ok {
		doc = make(map[string]any)
		c.docs[key] = doc
	}
	for k, v := range fields {
		doc[k] = v
	}
	c.writes++
	return nil
}

// Delete removes a document. Deleting a missing key is a no-op, matching the
// server's idempotent delete.
func (c *MemCollection) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.docs, key)
	c.writes++
	return nil
}

// Writes returns the number of write calls made against this collection.
func (c *MemCollection) Writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}

// Get returns the decoded document for key, for test assertions.
func (c *MemCollection) Get(key string) (map[string]any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, ok := c.docs[key]
	if !ok {
		return nil, false
	}
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out, true
}

// Len returns the number of documents in the collection.
func (c *MemCollection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.docs)
}
