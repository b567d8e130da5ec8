// Copyright 2026 Bizledger Labs
// SPDX-License-Identifier: Apache-2.0

package cloudstore

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemCollectionMergeSemantics(t *testing.T) {
	ctx := context.Background()
	cloud := NewMemClient()
	coll := cloud.Collection("t1", "items").(*MemCollection)

	require.NoError(t, coll.SetMerge(ctx, "i1", map[string]any{
		"name": "Chai", "price": 15.0, "updatedAt": 100,
	}))
	// A partial patch only overwrites the fields it carries.
	require.NoError(t, coll.SetMerge(ctx, "i1", map[string]any{
		"price": 18.0, "updatedAt": 200,
	}))

	doc, ok := coll.Get("i1")
	require.True(t, ok)
	require.Equal(t, "Chai", doc["name"])
	require.Equal(t, 18.0, doc["price"])
	require.Equal(t, 1, coll.Len())
}

func TestMemCollectionGetAllSorted(t *testing.T) {
	ctx := context.Background()
	cloud := NewMemClient()
	coll := cloud.Collection("t1", "items")

	require.NoError(t, coll.SetMerge(ctx, "b", map[string]any{"n": 2}))
	require.NoError(t, coll.SetMerge(ctx, "a", map[string]any{"n": 1}))
	require.NoError(t, coll.SetMerge(ctx, "c", map[string]any{"n": 3}))

	docs, err := coll.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	require.Equal(t, []string{"a", "b", "c"}, []string{docs[0].Key, docs[1].Key, docs[2].Key})

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(docs[0].Data, &decoded))
	require.Equal(t, 1.0, decoded["n"])
}

func TestMemCollectionDeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	cloud := NewMemClient()
	coll := cloud.Collection("t1", "items").(*MemCollection)

	require.NoError(t, coll.SetMerge(ctx, "i1", map[string]any{"n": 1}))
	require.NoError(t, coll.Delete(ctx, "i1"))
	require.NoError(t, coll.Delete(ctx, "i1"))
	require.Zero(t, coll.Len())
}

func TestMemClientCountsWritesAcrossCollections(t *testing.T) {
	ctx := context.Background()
	cloud := NewMemClient()

	require.NoError(t, cloud.Collection("t1", "items").SetMerge(ctx, "i1", map[string]any{"n": 1}))
	require.NoError(t, cloud.Collection("t1", "customers").SetMerge(ctx, "c1", map[string]any{"n": 1}))
	require.NoError(t, cloud.Collection("t1", "items").Delete(ctx, "i1"))

	require.Equal(t, 3, cloud.Writes())

	// Tenants are isolated from each other.
	other := cloud.Collection("t2", "items").(*MemCollection)
	require.Zero(t, other.Len())
}

func TestMemCollectionRejectsNonObjectPatch(t *testing.T) {
	ctx := context.Background()
	cloud := NewMemClient()
	coll := cloud.Collection("t1", "items")

	require.Error(t, coll.SetMerge(ctx, "i1", "not an object"))
	require.Error(t, coll.SetMerge(ctx, "i1", 42))
}
