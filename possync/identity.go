// Copyright 2026 Bizledger Labs
// SPDX-License-Identifier: Apache-2.0

package possync

import (
	"strings"

	"github.com/bizledger/possync/model"
)

// Identity resolution for local records that have no cloud id yet. Matching
// is heuristic and collection-specific: first exact match on the business key
// wins, ties resolve by remote enumeration order. No fuzzy matching, no
// scoring. When nothing matches, a fresh random cloud id is minted.

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// matchCustomer finds a remote counterpart by (name, phone), case-insensitive
// and whitespace-trimmed.
func matchCustomer(local model.Customer, docs []CustomerDoc) (string, bool) {
	name := normalizeKey(local.Name)
	phone := normalizeKey(local.Phone)
	for _, d := range docs {
		if normalizeKey(d.Name) == name && normalizeKey(d.Phone) == phone {
			return d.CloudID, true
		}
	}
	return "", false
}

// matchItem finds a remote counterpart by (normalized name, exact price,
// normalized category-or-empty).
func matchItem(local model.Item, docs []ItemDoc) (string, bool) {
	name := normalizeKey(local.Name)
	category := normalizeKey(local.Category)
	for _, d := range docs {
		if normalizeKey(d.Name) == name && d.Price == local.Price &&
			normalizeKey(d.Category) == category {
			return d.CloudID, true
		}
	}
	return "", false
}

// matchCategory finds a remote counterpart by normalized name alone.
func matchCategory(local model.Category, docs []CategoryDoc) (string, bool) {
	name := normalizeKey(local.Name)
	for _, d := range docs {
		if normalizeKey(d.Name) == name {
			return d.CloudID, true
		}
	}
	return "", false
}
