// Copyright 2026 Bizledger Labs
// SPDX-License-Identifier: Apache-2.0

package possync

import (
	"context"
	"fmt"

	"github.com/bizledger/possync/model"
)

// syncItems reconciles the items collection. Items carry a visibility flag:
// an item that became inactive locally prunes its remote document (the only
// use of remote delete), and inactive remote documents are never
// materialized.
func (s *Syncer) syncItems(ctx context.Context, tenantID string) error {
	coll := s.cloud.Collection(tenantID, CollItems)

	locals, err := s.store.ItemsAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load local items: %w", err)
	}
	docs, err := coll.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch remote items: %w", err)
	}

	remote := make([]ItemDoc, 0, len(docs))
	byID := make(map[string]ItemDoc, len(docs))
	for _, d := range docs {
		doc, err := decodeItemDoc(d.Key, d.Data)
		if err != nil {
			s.logger.Warn("skipping malformed item document", "key", d.Key, "error", err)
			continue
		}
		remote = append(remote, doc)
		byID[doc.CloudID] = doc
	}

	matched := make(map[string]bool, len(locals))
	for _, l := range locals {
		if l.CloudID == "" {
			cloudID, ok := matchItem(l, remote)
			if !ok {
				cloudID = s.newCloudID()
			}
			ts := maxMs(l.UpdatedAt, s.nowMs())
			if err := s.store.UpdateItemCloudID(ctx, l.LocalID, cloudID, ts); err != nil {
				return fmt.Errorf("failed to assign item cloud id: %w", err)
			}
			l.CloudID, l.UpdatedAt = cloudID, ts
		}
		matched[l.CloudID] = true

		rd, ok := byID[l.CloudID]
		switch {
		case !l.IsActive && (!ok || l.UpdatedAt > rd.UpdatedAt):
			// Locally deactivated and local state wins: prune the remote
			// document instead of pushing a dead item.
			if ok {
				if err := coll.Delete(ctx, l.CloudID); err != nil {
					s.logger.Warn("failed to prune inactive item", "cloud_id", l.CloudID, "error", err)
				}
			}
		case !ok || l.UpdatedAt > rd.UpdatedAt:
			doc := ItemDoc{
				CloudID:   l.CloudID,
				Name:      l.Name,
				Price:     l.Price,
				Category:  l.Category,
				Barcode:   l.Barcode,
				StockQty:  l.StockQty,
				IsActive:  l.IsActive,
				UpdatedAt: l.UpdatedAt,
			}
			if err := coll.SetMerge(ctx, l.CloudID, doc); err != nil {
				s.logger.Warn("failed to push item", "cloud_id", l.CloudID, "error", err)
			}
		case rd.UpdatedAt > l.UpdatedAt:
			upd := model.Item{
				LocalID:   l.LocalID,
				CloudID:   l.CloudID,
				Name:      rd.Name,
				Price:     rd.Price,
				Category:  rd.Category,
				Barcode:   rd.Barcode,
				StockQty:  rd.StockQty,
				IsActive:  rd.IsActive,
				UpdatedAt: rd.UpdatedAt,
			}
			if err := s.store.UpdateItemFromCloud(ctx, upd); err != nil {
				return fmt.Errorf("failed to apply remote item: %w", err)
			}
		}
	}

	for _, rd := range remote {
		if matched[rd.CloudID] || !rd.IsActive {
			continue
		}
		it := model.Item{
			CloudID:   rd.CloudID,
			Name:      rd.Name,
			Price:     rd.Price,
			Category:  rd.Category,
			Barcode:   rd.Barcode,
			StockQty:  rd.StockQty,
			IsActive:  rd.IsActive,
			UpdatedAt: rd.UpdatedAt,
		}
		if _, err := s.store.InsertItem(ctx, &it); err != nil {
			return fmt.Errorf("failed to materialize remote item %s: %w", rd.CloudID, err)
		}
	}
	return nil
}

// syncCategories reconciles the categories collection, with the same
// visibility handling as items.
func (s *Syncer) syncCategories(ctx context.Context, tenantID string) error {
	coll := s.cloud.Collection(tenantID, CollCategories)

	locals, err := s.store.CategoriesAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load local categories: %w", err)
	}
	docs, err := coll.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch remote categories: %w", err)
	}

	remote := make([]CategoryDoc, 0, len(docs))
	byID := make(map[string]CategoryDoc, len(docs))
	for _, d := range docs {
		doc, err := decodeCategoryDoc(d.Key, d.Data)
		if err != nil {
			s.logger.Warn("skipping malformed category document", "key", d.Key, "error", err)
			continue
		}
		remote = append(remote, doc)
		byID[doc.CloudID] = doc
	}

	matched := make(map[string]bool, len(locals))
	for _, l := range locals {
		if l.CloudID == "" {
			cloudID, ok := matchCategory(l, remote)
			if !ok {
				cloudID = s.newCloudID()
			}
			ts := maxMs(l.UpdatedAt, s.nowMs())
			if err := s.store.UpdateCategoryCloudID(ctx, l.LocalID, cloudID, ts); err != nil {
				return fmt.Errorf("failed to assign category cloud id: %w", err)
			}
			l.CloudID, l.UpdatedAt = cloudID, ts
		}
		matched[l.CloudID] = true

		rd, ok := byID[l.CloudID]
		switch {
		case !l.IsActive && (!ok || l.UpdatedAt > rd.UpdatedAt):
			if ok {
				if err := coll.Delete(ctx, l.CloudID); err != nil {
					s.logger.Warn("failed to prune inactive category", "cloud_id", l.CloudID, "error", err)
				}
			}
		case !ok || l.UpdatedAt > rd.UpdatedAt:
			doc := CategoryDoc{
				CloudID:   l.CloudID,
				Name:      l.Name,
				IsActive:  l.IsActive,
				UpdatedAt: l.UpdatedAt,
			}
			if err := coll.SetMerge(ctx, l.CloudID, doc); err != nil {
				s.logger.Warn("failed to push category", "cloud_id", l.CloudID, "error", err)
			}
		case rd.UpdatedAt > l.UpdatedAt:
			upd := model.Category{
				LocalID:   l.LocalID,
				CloudID:   l.CloudID,
				Name:      rd.Name,
				IsActive:  rd.IsActive,
				UpdatedAt: rd.UpdatedAt,
			}
			if err := s.store.UpdateCategoryFromCloud(ctx, upd); err != nil {
				return fmt.Errorf("failed to apply remote category: %w", err)
			}
		}
	}

	for _, rd := range remote {
		if matched[rd.CloudID] || !rd.IsActive {
			continue
		}
		c := model.Category{
			CloudID:   rd.CloudID,
			Name:      rd.Name,
			IsActive:  rd.IsActive,
			UpdatedAt: rd.UpdatedAt,
		}
		if _, err := s.store.InsertCategory(ctx, &c); err != nil {
			return fmt.Errorf("failed to materialize remote category %s: %w", rd.CloudID, err)
		}
	}
	return nil
}
