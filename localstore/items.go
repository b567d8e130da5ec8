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

// ItemsAll returns every item row, active or not.
func (s *Store) ItemsAll(ctx context.Context) ([]model.Item, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT local_id, cloud_id, name, price, category, barcode, stock_qty, is_active, updated_at
		FROM items ORDER BY local_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var out []model.Item
	for rows.Next() {
		var it model.Item
		if err := rows.Scan(&it.LocalID, &it.CloudID, &it.Name, &it.Price, &it.Category,
			&it.Barcode, &it.StockQty, &it.IsActive, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// FindItemByCloudID returns the item holding cloudID, or nil.
func (s *Store) FindItemByCloudID(ctx context.Context, cloudID string) (*model.Item, error) {
	var it model.Item
	err := s.DB.QueryRowContext(ctx, `
		SELECT local_id, cloud_id, name, price, category, barcode, stock_qty, is_active, updated_at
		FROM items WHERE cloud_id = ? LIMIT 1
	`, cloudID).Scan(&it.LocalID, &it.CloudID, &it.Name, &it.Price, &it.Category,
		&it.Barcode, &it.StockQty, &it.IsActive, &it.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find item by cloud id: %w", err)
	}
	return &it, nil
}

// InsertItem inserts an item and returns its assigned local id.
func (s *Store) InsertItem(ctx context.Context, it *model.Item) (int64, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO items (cloud_id, name, price, category, barcode, stock_qty, is_active, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, it.CloudID, it.Name, it.Price, it.Category, it.Barcode, it.StockQty, it.IsActive, it.UpdatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get item id: %w", err)
	}
	it.LocalID = id
	return id, nil
}

// UpdateItemFromCloud overwrites the business fields and timestamp of the row
// identified by it.LocalID.
func (s *Store) UpdateItemFromCloud(ctx context.Context, it model.Item) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.DB.ExecContext(ctx, `
		UPDATE items SET cloud_id = ?, name = ?, price = ?, category = ?, barcode = ?,
			stock_qty = ?, is_active = ?, updated_at = ?
		WHERE local_id = ?
	`, it.CloudID, it.Name, it.Price, it.Category, it.Barcode, it.StockQty, it.IsActive,
		it.UpdatedAt, it.LocalID)
	if err != nil {
		return fmt.Errorf("failed to update item %d from cloud: %w", it.LocalID, err)
	}
	return nil
}

// UpdateItemCloudID persists a cloud-id assignment.
func (s *Store) UpdateItemCloudID(ctx context.Context, localID int64, cloudID string, updatedAt int64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.DB.ExecContext(ctx, `
		UPDATE items SET cloud_id = ?, updated_at = ? WHERE local_id = ?
	`, cloudID, updatedAt, localID)
	if err != nil {
		return fmt.Errorf("failed to update item %d cloud id: %w", localID, err)
	}
	return nil
}

// DeleteAllItems purges the items table.
func (s *Store) DeleteAllItems(ctx context.Context) error {
	return s.deleteAll(ctx, "items")
}
