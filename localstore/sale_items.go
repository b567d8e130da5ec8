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

// SaleItemsAll returns every sale line-item row.
func (s *Store) SaleItemsAll(ctx context.Context) ([]model.SaleItem, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT local_id, cloud_id, sale_local_id, sale_cloud_id, item_local_id, item_cloud_id,
			name, price, quantity, updated_at
		FROM sale_items ORDER BY local_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sale items: %w", err)
	}
	defer rows.Close()

	var out []model.SaleItem
	for rows.Next() {
		var si model.SaleItem
		if err := rows.Scan(&si.LocalID, &si.CloudID, &si.SaleLocalID, &si.SaleCloudID,
			&si.ItemLocalID, &si.ItemCloudID, &si.Name, &si.Price, &si.Quantity, &si.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sale item: %w", err)
		}
		out = append(out, si)
	}
	return out, rows.Err()
}

// FindSaleItemByCloudID returns the line item holding cloudID, or nil.
func (s *Store) FindSaleItemByCloudID(ctx context.Context, cloudID string) (*model.SaleItem, error) {
	var si model.SaleItem
	err := s.DB.QueryRowContext(ctx, `
		SELECT local_id, cloud_id, sale_local_id, sale_cloud_id, item_local_id, item_cloud_id,
			name, price, quantity, updated_at
		FROM sale_items WHERE cloud_id = ? LIMIT 1
	`, cloudID).Scan(&si.LocalID, &si.CloudID, &si.SaleLocalID, &si.SaleCloudID,
		&si.ItemLocalID, &si.ItemCloudID, &si.Name, &si.Price, &si.Quantity, &si.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find sale item by cloud id: %w", err)
	}
	return &si, nil
}

// InsertSaleItem inserts a line item and returns its assigned local id.
func (s *Store) InsertSaleItem(ctx context.Context, si *model.SaleItem) (int64, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO sale_items (cloud_id, sale_local_id, sale_cloud_id, item_local_id,
			item_cloud_id, name, price, quantity, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, si.CloudID, si.SaleLocalID, si.SaleCloudID, si.ItemLocalID, si.ItemCloudID,
		si.Name, si.Price, si.Quantity, si.UpdatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert sale item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get sale item id: %w", err)
	}
	si.LocalID = id
	return id, nil
}

// UpdateSaleItemFromCloud overwrites the business fields, parent references
// and timestamp of the row identified by si.LocalID.
func (s *Store) UpdateSaleItemFromCloud(ctx context.Context, si model.SaleItem) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.DB.ExecContext(ctx, `
		UPDATE sale_items SET cloud_id = ?, sale_local_id = ?, sale_cloud_id = ?,
			item_local_id = ?, item_cloud_id = ?, name = ?, price = ?, quantity = ?, updated_at = ?
		WHERE local_id = ?
	`, si.CloudID, si.SaleLocalID, si.SaleCloudID, si.ItemLocalID, si.ItemCloudID,
		si.Name, si.Price, si.Quantity, si.UpdatedAt, si.LocalID)
	if err != nil {
		return fmt.Errorf("failed to update sale item %d from cloud: %w", si.LocalID, err)
	}
	return nil
}

// UpdateSaleItemCloudID persists a cloud-id assignment.
func (s *Store) UpdateSaleItemCloudID(ctx context.Context, localID int64, cloudID string, updatedAt int64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.DB.ExecContext(ctx, `
		UPDATE sale_items SET cloud_id = ?, updated_at = ? WHERE local_id = ?
	`, cloudID, updatedAt, localID)
	if err != nil {
		return fmt.Errorf("failed to update sale item %d cloud id: %w", localID, err)
	}
	return nil
}

// DeleteAllSaleItems purges the sale_items table.
func (s *Store) DeleteAllSaleItems(ctx context.Context) error {
	return s.deleteAll(ctx, "sale_items")
}
