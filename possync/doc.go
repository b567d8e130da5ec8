// Copyright 2026 Bizledger Labs
// SPDX-License-Identifier: Apache-2.0

// Package possync implements the cloud reconciliation engine for a retail
// point-of-sale application: a bidirectional synchronizer that keeps the
// on-device SQLite store consistent with a remote document store across
// customers, items, categories, sales, sale line-items, credit-ledger entries
// and store settings.
//
// Reconciliation is snapshot based. Each pass loads every local row and every
// remote document of a collection, pairs them by cloud id, and resolves each
// pair with last-write-wins on the updatedAt timestamp. Sales get two extra
// passes: canonical selection for duplicate remote documents sharing a bill
// number, and deletion propagation so that a tombstone on any replica
// converges everywhere. Re-running a pass with no intervening changes
// performs zero writes; idempotence is the recovery mechanism for partial
// failures, not transactions.
package possync
