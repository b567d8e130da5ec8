// Copyright 2026 Bizledger Labs
// SPDX-License-Identifier: Apache-2.0

package possync

import (
	"context"
	"fmt"

	"github.com/bizledger/possync/model"
)

// syncSettings reconciles the settings singleton: one local row at a fixed
// key, one remote document at a fixed key, plain timestamp comparison, no
// identity resolution.
func (s *Syncer) syncSettings(ctx context.Context, tenantID string) error {
	coll := s.cloud.Collection(tenantID, CollSettings)

	local, err := s.store.GetSettings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load local settings: %w", err)
	}
	docs, err := coll.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch remote settings: %w", err)
	}

	var remote *SettingsDoc
	for _, d := range docs {
		if d.Key != SettingsDocKey {
			continue
		}
		doc, err := decodeSettingsDoc(d.Key, d.Data)
		if err != nil {
			s.logger.Warn("skipping malformed settings document", "error", err)
			continue
		}
		remote = &doc
	}

	switch {
	case local == nil && remote == nil:
		return nil
	case local == nil:
		st := settingsFromDoc(*remote)
		if err := s.store.UpsertSettings(ctx, st); err != nil {
			return fmt.Errorf("failed to materialize remote settings: %w", err)
		}
	case remote == nil || local.UpdatedAt > remote.UpdatedAt:
		doc := SettingsDoc{
			StoreName:     local.StoreName,
			Address:       local.Address,
			Phone:         local.Phone,
			Currency:      local.Currency,
			TaxPercent:    local.TaxPercent,
			ReceiptFooter: local.ReceiptFooter,
			UpdatedAt:     local.UpdatedAt,
		}
		if err := coll.SetMerge(ctx, SettingsDocKey, doc); err != nil {
			s.logger.Warn("failed to push settings", "error", err)
		}
	case remote.UpdatedAt > local.UpdatedAt:
		st := settingsFromDoc(*remote)
		if err := s.store.UpsertSettings(ctx, st); err != nil {
			return fmt.Errorf("failed to apply remote settings: %w", err)
		}
	}
	return nil
}

func settingsFromDoc(d SettingsDoc) model.Settings {
	return model.Settings{
		LocalID:       model.SettingsLocalID,
		StoreName:     d.StoreName,
		Address:       d.Address,
		Phone:         d.Phone,
		Currency:      d.Currency,
		TaxPercent:    d.TaxPercent,
		ReceiptFooter: d.ReceiptFooter,
		UpdatedAt:     d.UpdatedAt,
	}
}
