// Copyright 2026 Bizledger Labs
// SPDX-License-Identifier: Apache-2.0

package possync

import (
	"context"
	"fmt"

	"github.com/bizledger/possync/model"
)

// Child entities (sale line-items, credit-ledger entries) reference their
// parents by both local id and cloud id. On ingest the local parent id is
// re-derived from the parent's cloud id (or, for sales, from the embedded
// bill number) and falls back to the 0 sentinel when the parent is not yet
// materialized. Orphans are kept, not dropped; they are not repaired by a
// later pass.

// syncSaleItems reconciles the sale line-items collection. There is no
// business-key heuristic for line items: a blank cloud id mints a fresh one.
func (s *Syncer) syncSaleItems(ctx context.Context, tenantID string) error {
	coll := s.cloud.Collection(tenantID, CollSaleItems)

	locals, err := s.store.SaleItemsAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load local sale items: %w", err)
	}
	docs, err := coll.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch remote sale items: %w", err)
	}

	remote := make([]SaleItemDoc, 0, len(docs))
	byID := make(map[string]SaleItemDoc, len(docs))
	for _, d := range docs {
		doc, err := decodeSaleItemDoc(d.Key, d.Data)
		if err != nil {
			s.logger.Warn("skipping malformed sale item document", "key", d.Key, "error", err)
			continue
		}
		remote = append(remote, doc)
		byID[doc.CloudID] = doc
	}

	matched := make(map[string]bool, len(locals))
	for _, l := range locals {
		if l.CloudID == "" {
			cloudID := s.newCloudID()
			ts := maxMs(l.UpdatedAt, s.nowMs())
			if err := s.store.UpdateSaleItemCloudID(ctx, l.LocalID, cloudID, ts); err != nil {
				return fmt.Errorf("failed to assign sale item cloud id: %w", err)
			}
			l.CloudID, l.UpdatedAt = cloudID, ts
		}
		matched[l.CloudID] = true

		rd, ok := byID[l.CloudID]
		switch {
		case !ok || l.UpdatedAt > rd.UpdatedAt:
			doc := SaleItemDoc{
				CloudID:     l.CloudID,
				SaleCloudID: l.SaleCloudID,
				BillNumber:  l.SaleLocalID,
				ItemCloudID: l.ItemCloudID,
				Name:        l.Name,
				Price:       l.Price,
				Quantity:    l.Quantity,
				UpdatedAt:   l.UpdatedAt,
			}
			if err := coll.SetMerge(ctx, l.CloudID, doc); err != nil {
				s.logger.Warn("failed to push sale item", "cloud_id", l.CloudID, "error", err)
			}
		case rd.UpdatedAt > l.UpdatedAt:
			upd := model.SaleItem{
				LocalID:     l.LocalID,
				CloudID:     l.CloudID,
				SaleLocalID: s.resolveSaleRef(ctx, rd.SaleCloudID, rd.BillNumber, l.SaleLocalID),
				SaleCloudID: rd.SaleCloudID,
				ItemLocalID: s.resolveItemRef(ctx, rd.ItemCloudID, l.ItemLocalID),
				ItemCloudID: rd.ItemCloudID,
				Name:        rd.Name,
				Price:       rd.Price,
				Quantity:    rd.Quantity,
				UpdatedAt:   rd.UpdatedAt,
			}
			if err := s.store.UpdateSaleItemFromCloud(ctx, upd); err != nil {
				return fmt.Errorf("failed to apply remote sale item: %w", err)
			}
		}
	}

	for _, rd := range remote {
		if matched[rd.CloudID] {
			continue
		}
		si := model.SaleItem{
			CloudID:     rd.CloudID,
			SaleLocalID: s.resolveSaleRef(ctx, rd.SaleCloudID, rd.BillNumber, 0),
			SaleCloudID: rd.SaleCloudID,
			ItemLocalID: s.resolveItemRef(ctx, rd.ItemCloudID, 0),
			ItemCloudID: rd.ItemCloudID,
			Name:        rd.Name,
			Price:       rd.Price,
			Quantity:    rd.Quantity,
			UpdatedAt:   rd.UpdatedAt,
		}
		if _, err := s.store.InsertSaleItem(ctx, &si); err != nil {
			return fmt.Errorf("failed to materialize remote sale item %s: %w", rd.CloudID, err)
		}
	}
	return nil
}

// syncLedger reconciles the credit-ledger collection. Like line items,
// ledger entries have no business-key heuristic.
func (s *Syncer) syncLedger(ctx context.Context, tenantID string) error {
	coll := s.cloud.Collection(tenantID, CollLedger)

	locals, err := s.store.LedgerEntriesAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load local ledger entries: %w", err)
	}
	docs, err := coll.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch remote ledger entries: %w", err)
	}

	remote := make([]LedgerDoc, 0, len(docs))
	byID := make(map[string]LedgerDoc, len(docs))
	for _, d := range docs {
		doc, err := decodeLedgerDoc(d.Key, d.Data)
		if err != nil {
			s.logger.Warn("skipping malformed ledger document", "key", d.Key, "error", err)
			continue
		}
		remote = append(remote, doc)
		byID[doc.CloudID] = doc
	}

	matched := make(map[string]bool, len(locals))
	for _, l := range locals {
		if l.CloudID == "" {
			cloudID := s.newCloudID()
			ts := maxMs(l.UpdatedAt, s.nowMs())
			if err := s.store.UpdateLedgerEntryCloudID(ctx, l.LocalID, cloudID, ts); err != nil {
				return fmt.Errorf("failed to assign ledger entry cloud id: %w", err)
			}
			l.CloudID, l.UpdatedAt = cloudID, ts
		}
		matched[l.CloudID] = true

		rd, ok := byID[l.CloudID]
		switch {
		case !ok || l.UpdatedAt > rd.UpdatedAt:
			doc := LedgerDoc{
				CloudID:         l.CloudID,
				CustomerCloudID: l.CustomerCloudID,
				Amount:          l.Amount,
				EntryType:       l.EntryType,
				Note:            l.Note,
				CreatedAt:       l.CreatedAt,
				UpdatedAt:       l.UpdatedAt,
			}
			if err := coll.SetMerge(ctx, l.CloudID, doc); err != nil {
				s.logger.Warn("failed to push ledger entry", "cloud_id", l.CloudID, "error", err)
			}
		case rd.UpdatedAt > l.UpdatedAt:
			upd := model.LedgerEntry{
				LocalID:         l.LocalID,
				CloudID:         l.CloudID,
				CustomerLocalID: s.resolveCustomerRef(ctx, rd.CustomerCloudID, l.CustomerLocalID),
				CustomerCloudID: rd.CustomerCloudID,
				Amount:          rd.Amount,
				EntryType:       rd.EntryType,
				Note:            rd.Note,
				CreatedAt:       rd.CreatedAt,
				UpdatedAt:       rd.UpdatedAt,
			}
			if err := s.store.UpdateLedgerEntryFromCloud(ctx, upd); err != nil {
				return fmt.Errorf("failed to apply remote ledger entry: %w", err)
			}
		}
	}

	for _, rd := range remote {
		if matched[rd.CloudID] {
			continue
		}
		le := model.LedgerEntry{
			CloudID:         rd.CloudID,
			CustomerLocalID: s.resolveCustomerRef(ctx, rd.CustomerCloudID, 0),
			CustomerCloudID: rd.CustomerCloudID,
			Amount:          rd.Amount,
			EntryType:       rd.EntryType,
			Note:            rd.Note,
			CreatedAt:       rd.CreatedAt,
			UpdatedAt:       rd.UpdatedAt,
		}
		if _, err := s.store.InsertLedgerEntry(ctx, &le); err != nil {
			return fmt.Errorf("failed to materialize remote ledger entry %s: %w", rd.CloudID, err)
		}
	}
	return nil
}

// resolveSaleRef re-derives a sale line-item's parent bill: by the sale's
// cloud id first, then by the embedded bill number, else the previous local
// reference (0 for new rows, the orphan sentinel).
func (s *Syncer) resolveSaleRef(ctx context.Context, saleCloudID string, billNumber int64, previous int64) int64 {
	if saleCloudID != "" {
		sa, err := s.store.FindSaleByCloudID(ctx, saleCloudID)
		if err != nil {
			s.logger.Warn("failed to resolve sale reference", "cloud_id", saleCloudID, "error", err)
		} else if sa != nil {
			return sa.LocalID
		}
	}
	if billNumber > 0 {
		return billNumber
	}
	return previous
}

// resolveItemRef re-derives an item foreign key from its cloud id.
func (s *Syncer) resolveItemRef(ctx context.Context, itemCloudID string, previous int64) int64 {
	if itemCloudID == "" {
		return previous
	}
	it, err := s.store.FindItemByCloudID(ctx, itemCloudID)
	if err != nil {
		s.logger.Warn("failed to resolve item reference", "cloud_id", itemCloudID, "error", err)
		return previous
	}
	if it == nil {
		return previous
	}
	return it.LocalID
}
