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

// CategoriesAll returns every category row.
func (s *Store) CategoriesAll(ctx context.Context) ([]model.Category, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT local_id, cloud_id, name, is_active, updated_at
		FROM categories ORDER BY local_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var out []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.LocalID, &c.CloudID, &c.Name, &c.IsActive, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// FindCategoryByCloudID returns the category holding cloudID, or nil.
func (s *Store) FindCategoryByCloudID(ctx context.Context, cloudID string) (*model.Category, error) {
	var c model.Category
	err := s.DB.QueryRowContext(ctx, `
		SELECT local_id, cloud_id, name, is_active, updated_at
		FROM categories WHERE cloud_id = ? LIMIT 1
	`, cloudID).Scan(&c.LocalID, &c.CloudID, &c.Name, &c.IsActive, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find category by cloud id: %w", err)
	}
	return &c, nil
}

// InsertCategory inserts a category and returns its assigned local id.
func (s *Store) InsertCategory(ctx context.Context, c *model.Category) (int64, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO categories (cloud_id, name, is_active, updated_at)
		VALUES (?, ?, ?, ?)
	`, c.CloudID, c.Name, c.IsActive, c.UpdatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get category id: %w", err)
	}
	c.LocalID = id
	return id, nil
}

// UpdateCategoryFromCloud overwrites the business fields and timestamp of the
// row identified by c.LocalID.
func (s *Store) UpdateCategoryFromCloud(ctx context.Context, c model.Category) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.DB.ExecContext(ctx, `
		UPDATE categories SET cloud_id = ?, name = ?, is_active = ?, updated_at = ?
		WHERE local_id = ?
	`, c.CloudID, c.Name, c.IsActive, c.UpdatedAt, c.LocalID)
	if err != nil {
		return fmt.Errorf("failed to update category %d from cloud: %w", c.LocalID, err)
	}
	return nil
}

// UpdateCategoryCloudID persists a cloud-id assignment.
func (s *Store) UpdateCategoryCloudID(ctx context.Context, localID int64, cloudID string, updatedAt int64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.DB.ExecContext(ctx, `
		UPDATE categories SET cloud_id = ?, updated_at = ? WHERE local_id = ?
	`, cloudID, updatedAt, localID)
	if err != nil {
		return fmt.Errorf("failed to update category %d cloud id: %w", localID, err)
	}
	return nil
}

// DeleteAllCategories purges the categories table.
func (s *Store) DeleteAllCategories(ctx context.Context) error {
	return s.deleteAll(ctx, "categories")
}
