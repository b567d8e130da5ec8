// Copyright 2026 Bizledger Labs
// SPDX-License-Identifier: Apache-2.0

package possync

import (
	"context"
	"fmt"

	"github.com/bizledger/possync/model"
)

// syncCustomers reconciles the customers collection: full snapshot of both
// sides, last-write-wins per pair, materialization of remote-only documents.
func (s *Syncer) syncCustomers(ctx context.Context, tenantID string) error {
	coll := s.cloud.Collection(tenantID, CollCustomers)

	locals, err := s.store.CustomersAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load local customers: %w", err)
	}
	docs, err := coll.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch remote customers: %w", err)
	}

	remote := make([]CustomerDoc, 0, len(docs))
	byID := make(map[string]CustomerDoc, len(docs))
	for _, d := range docs {
		doc, err := decodeCustomerDoc(d.Key, d.Data)
		if err != nil {
			s.logger.Warn("skipping malformed customer document", "key", d.Key, "error", err)
			continue
		}
		remote = append(remote, doc)
		byID[doc.CloudID] = doc
	}

	matched := make(map[string]bool, len(locals))
	for _, l := range locals {
		if l.CloudID == "" {
			cloudID, ok := matchCustomer(l, remote)
			if !ok {
				cloudID = s.newCloudID()
			}
			ts := maxMs(l.UpdatedAt, s.nowMs())
			// Persist the assignment before pushing so it survives a failed push.
			if err := s.store.UpdateCustomerCloudID(ctx, l.LocalID, cloudID, ts); err != nil {
				return fmt.Errorf("failed to assign customer cloud id: %w", err)
			}
			l.CloudID, l.UpdatedAt = cloudID, ts
		}
		matched[l.CloudID] = true

		rd, ok := byID[l.CloudID]
		switch {
		case !ok || l.UpdatedAt > rd.UpdatedAt:
			doc := CustomerDoc{
				CloudID:   l.CloudID,
				Name:      l.Name,
				Phone:     l.Phone,
				Address:   l.Address,
				UpdatedAt: l.UpdatedAt,
			}
			if err := coll.SetMerge(ctx, l.CloudID, doc); err != nil {
				s.logger.Warn("failed to push customer", "cloud_id", l.CloudID, "error", err)
			}
		case rd.UpdatedAt > l.UpdatedAt:
			upd := model.Customer{
				LocalID:   l.LocalID,
				CloudID:   l.CloudID,
				Name:      rd.Name,
				Phone:     rd.Phone,
				Address:   rd.Address,
				UpdatedAt: rd.UpdatedAt,
			}
			if err := s.store.UpdateCustomerFromCloud(ctx, upd); err != nil {
				return fmt.Errorf("failed to apply remote customer: %w", err)
			}
		}
	}

	for _, rd := range remote {
		if matched[rd.CloudID] {
			continue
		}
		c := model.Customer{
			CloudID:   rd.CloudID,
			Name:      rd.Name,
			Phone:     rd.Phone,
			Address:   rd.Address,
			UpdatedAt: rd.UpdatedAt,
		}
		if _, err := s.store.InsertCustomer(ctx, &c); err != nil {
			return fmt.Errorf("failed to materialize remote customer %s: %w", rd.CloudID, err)
		}
	}
	return nil
}
