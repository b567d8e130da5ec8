// Copyright 2026 Bizledger Labs
// SPDX-License-Identifier: Apache-2.0

package possync

import (
	"context"
	"fmt"

	"github.com/bizledger/possync/cloudstore"
	"github.com/bizledger/possync/model"
)

// saleRemote pairs a decoded sale document with the document key it is
// addressable under. The key and the cloudId field normally coincide; writes
// always go to the key.
type saleRemote struct {
	key string
	doc SaleDoc
}

// saleDocWins reports whether a beats b in the canonical ordering: a deleted
// document beats a live one, otherwise the greater updatedAt wins. This total
// order is what makes duplicate resolution deterministic and is also why a
// tombstone can never lose to a fresher live duplicate.
func saleDocWins(a, b SaleDoc) bool {
	if a.IsDeleted != b.IsDeleted {
		return a.IsDeleted
	}
	return a.UpdatedAt > b.UpdatedAt
}

// syncSales reconciles the sales collection. On top of the base per-entity
// algorithm it resolves duplicate remote documents per bill number to a
// single canonical one, and propagates deletions across every replica of a
// bill.
func (s *Syncer) syncSales(ctx context.Context, tenantID string) error {
	coll := s.cloud.Collection(tenantID, CollSales)

	locals, err := s.store.SalesAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load local sales: %w", err)
	}
	docs, err := coll.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch remote sales: %w", err)
	}

	var remote []saleRemote
	byID := make(map[string]saleRemote, len(docs))
	byBill := make(map[int64][]saleRemote)
	for _, d := range docs {
		doc, err := decodeSaleDoc(d.Key, d.Data)
		if err != nil {
			s.logger.Warn("skipping malformed sale document", "key", d.Key, "error", err)
			continue
		}
		r := saleRemote{key: d.Key, doc: doc}
		remote = append(remote, r)
		byID[doc.CloudID] = r
		if doc.BillNumber > 0 {
			byBill[doc.BillNumber] = append(byBill[doc.BillNumber], r)
		}
	}

	// One canonical document per bill number.
	canon := make(map[int64]saleRemote, len(byBill))
	for bill, group := range byBill {
		c := group[0]
		for _, r := range group[1:] {
			if saleDocWins(r.doc, c.doc) {
				c = r
			}
		}
		canon[bill] = c
	}

	matched := make(map[string]bool, len(locals))
	for _, l := range locals {
		if l.CloudID == "" {
			// Sales resolve identity by bill number: adopt the canonical
			// document for this bill when one exists.
			if c, ok := canon[l.LocalID]; ok {
				l.CloudID = c.doc.CloudID
			} else {
				l.CloudID = s.newCloudID()
			}
			ts := maxMs(l.UpdatedAt, s.nowMs())
			if err := s.store.UpdateSaleCloudID(ctx, l.LocalID, l.CloudID, ts); err != nil {
				return fmt.Errorf("failed to assign sale cloud id: %w", err)
			}
			l.UpdatedAt = ts
		}
		matched[l.CloudID] = true

		// Reconcile against the more canonical of remote-by-cloudId and the
		// bill-number canonical.
		var target *saleRemote
		if r, ok := byID[l.CloudID]; ok {
			rr := r
			target = &rr
		}
		if c, ok := canon[l.LocalID]; ok {
			cc := c
			if target == nil || (cc.key != target.key && saleDocWins(cc.doc, target.doc)) {
				target = &cc
			}
		}

		// The whole bill group is consumed by this local row; non-canonical
		// duplicates must never materialize a second local sale.
		for _, r := range byBill[l.LocalID] {
			matched[r.doc.CloudID] = true
			matched[r.key] = true
		}

		switch {
		case target == nil || l.UpdatedAt > target.doc.UpdatedAt:
			if err := coll.SetMerge(ctx, l.CloudID, saleDocFromLocal(l)); err != nil {
				s.logger.Warn("failed to push sale", "cloud_id", l.CloudID, "bill", l.LocalID, "error", err)
				continue
			}
			if l.IsDeleted {
				s.propagateSaleDeletion(ctx, coll, l, byBill[l.LocalID])
			}
		case target.doc.UpdatedAt > l.UpdatedAt:
			upd := saleFromDoc(target.doc)
			upd.LocalID = l.LocalID
			upd.CloudID = l.CloudID // assigned once, never changed
			upd.CustomerLocalID = s.resolveCustomerRef(ctx, target.doc.CustomerCloudID, l.CustomerLocalID)
			if err := s.store.UpdateSaleFromCloud(ctx, upd); err != nil {
				return fmt.Errorf("failed to apply remote sale: %w", err)
			}
		}
	}

	// Materialize remote-only sales: canonical documents with a positive bill
	// number only.
	for _, r := range remote {
		if matched[r.doc.CloudID] || matched[r.key] {
			continue
		}
		if r.doc.BillNumber <= 0 {
			s.logger.Debug("skipping unlinked sale document", "key", r.key)
			continue
		}
		if canon[r.doc.BillNumber].key != r.key {
			continue
		}
		existing, err := s.store.FindSaleByLocalID(ctx, r.doc.BillNumber)
		if err != nil {
			return fmt.Errorf("failed to check bill slot %d: %w", r.doc.BillNumber, err)
		}
		if existing != nil {
			continue
		}
		sa := saleFromDoc(r.doc)
		sa.LocalID = r.doc.BillNumber
		sa.CustomerLocalID = s.resolveCustomerRef(ctx, r.doc.CustomerCloudID, 0)
		if err := s.store.InsertSaleWithID(ctx, &sa); err != nil {
			return fmt.Errorf("failed to materialize remote sale %d: %w", sa.LocalID, err)
		}
	}

	return s.enforceRemoteDeletions(ctx, byBill)
}

// propagateSaleDeletion pushes a tombstone patch to every other remote
// document sharing the bill, each with a strictly increasing updatedAt so
// write ordering across duplicates is preserved.
func (s *Syncer) propagateSaleDeletion(ctx context.Context, coll cloudstore.Collection, l model.Sale, group []saleRemote) {
	base := maxMs(l.UpdatedAt, s.nowMs())
	deletedAt := l.DeletedAt
	if deletedAt == 0 {
		deletedAt = s.nowMs()
	}
	n := int64(0)
	for _, r := range group {
		if r.key == l.CloudID {
			continue
		}
		n++
		tomb := SaleTombstone{
			IsDeleted:    true,
			DeletedAt:    deletedAt,
			DeleteReason: l.DeleteReason,
			UpdatedAt:    base + n,
		}
		if err := coll.SetMerge(ctx, r.key, tomb); err != nil {
			s.logger.Warn("failed to tombstone duplicate sale", "key", r.key, "bill", l.LocalID, "error", err)
		}
	}
}

// enforceRemoteDeletions is the final guard pass: any bill whose remote group
// contains a deleted document must end up deleted locally, regardless of
// timestamps, so deletions are never lost even if earlier steps missed a
// duplicate.
func (s *Syncer) enforceRemoteDeletions(ctx context.Context, byBill map[int64][]saleRemote) error {
	for bill, group := range byBill {
		var tomb *saleRemote
		for _, r := range group {
			if !r.doc.IsDeleted {
				continue
			}
			if tomb == nil || saleDocWins(r.doc, tomb.doc) {
				rr := r
				tomb = &rr
			}
		}
		if tomb == nil {
			continue
		}

		local, err := s.store.FindSaleByLocalID(ctx, bill)
		if err != nil {
			return fmt.Errorf("failed to load sale %d for deletion guard: %w", bill, err)
		}
		if local == nil || local.IsDeleted {
			continue
		}

		now := s.nowMs()
		deletedAt := tomb.doc.DeletedAt
		if deletedAt == 0 {
			deletedAt = now
		}
		reason := tomb.doc.DeleteReason
		if reason == "" {
			reason = "deleted on another device"
		}
		ts := maxMs(local.UpdatedAt, tomb.doc.UpdatedAt) + now
		if err := s.store.MarkSaleDeleted(ctx, bill, deletedAt, reason, ts); err != nil {
			return fmt.Errorf("failed to enforce deletion of sale %d: %w", bill, err)
		}
		s.logger.Info("enforced remote deletion", "bill", bill, "reason", reason)
	}
	return nil
}

// resolveCustomerRef re-resolves a customer foreign key from its cloud id,
// preserving the previous local reference when the parent is not (yet)
// materialized.
func (s *Syncer) resolveCustomerRef(ctx context.Context, customerCloudID string, previous int64) int64 {
	if customerCloudID == "" {
		return previous
	}
	c, err := s.store.FindCustomerByCloudID(ctx, customerCloudID)
	if err != nil {
		s.logger.Warn("failed to resolve customer reference", "cloud_id", customerCloudID, "error", err)
		return previous
	}
	if c == nil {
		return previous
	}
	return c.LocalID
}

func saleDocFromLocal(l model.Sale) SaleDoc {
	return SaleDoc{
		CloudID:         l.CloudID,
		BillNumber:      l.LocalID,
		CustomerCloudID: l.CustomerCloudID,
		Total:           l.Total,
		Discount:        l.Discount,
		PaymentMode:     l.PaymentMode,
		IsDeleted:       l.IsDeleted,
		DeletedAt:       l.DeletedAt,
		DeleteReason:    l.DeleteReason,
		CreatedAt:       l.CreatedAt,
		UpdatedAt:       l.UpdatedAt,
	}
}

func saleFromDoc(d SaleDoc) model.Sale {
	return model.Sale{
		CloudID:         d.CloudID,
		CustomerCloudID: d.CustomerCloudID,
		Total:           d.Total,
		Discount:        d.Discount,
		PaymentMode:     d.PaymentMode,
		IsDeleted:       d.IsDeleted,
		DeletedAt:       d.DeletedAt,
		DeleteReason:    d.DeleteReason,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}
