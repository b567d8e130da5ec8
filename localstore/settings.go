// Copyright 2026 Bizledger Labs
// SPDX-License-Identifier: Apache-2.0

package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bizledger/possync/model"
)

// GetSettings returns the settings singleton, or nil when none exists yet.
func (s *Store) GetSettings(ctx context.Context) (*model.Settings, error) {
	var st model.Settings
	err := s.DB.QueryRowContext(ctx, `
		SELECT local_id, store_name, address, phone, currency, tax_percent, receipt_footer, updated_at
		FROM settings WHERE local_id = ?
	`, model.SettingsLocalID).Scan(&st.LocalID, &st.StoreName, &st.Address, &st.Phone,
		&st.Currency, &st.TaxPercent, &st.ReceiptFooter, &st.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	return &st, nil
}

// UpsertSettings writes the settings singleton at its fixed local key.
func (s *Store) UpsertSettings(ctx context.Context, st model.Settings) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO settings (local_id, store_name, address, phone, currency, tax_percent,
			receipt_footer, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(local_id) DO UPDATE SET
			store_name = excluded.store_name,
			address = excluded.address,
			phone = excluded.phone,
			currency = excluded.currency,
			tax_percent = excluded.tax_percent,
			receipt_footer = excluded.receipt_footer,
			updated_at = excluded.updated_at
	`, model.SettingsLocalID, st.StoreName, st.Address, st.Phone, st.Currency,
		st.TaxPercent, st.ReceiptFooter, st.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert settings: %w", err)
	}
	return nil
}

// DeleteAllSettings purges the settings table.
func (s *Store) DeleteAllSettings(ctx context.Context) error {
	return s.deleteAll(ctx, "settings")
}
