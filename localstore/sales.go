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

const saleColumns = `local_id, cloud_id, customer_local_id, customer_cloud_id, total, discount,
	payment_mode, is_deleted, deleted_at, delete_reason, created_at, updated_at`

func scanSale(row interface{ Scan(...any) error }) (model.Sale, error) {
	var sa model.Sale
	err := row.Scan(&sa.LocalID, &sa.CloudID, &sa.CustomerLocalID, &sa.CustomerCloudID,
		&sa.Total, &sa.Discount, &sa.PaymentMode, &sa.IsDeleted, &sa.DeletedAt,
		&sa.DeleteReason, &sa.CreatedAt, &sa.UpdatedAt)
	return sa, err
}

// SalesAll returns every sale row, soft-deleted ones included.
func (s *Store) SalesAll(ctx context.Context) ([]model.Sale, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+saleColumns+` FROM sales ORDER BY local_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales: %w", err)
	}
	defer rows.Close()

	var out []model.Sale
	for rows.Next() {
		sa, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		out = append(out, sa)
	}
	return out, rows.Err()
}

// FindSaleByCloudID returns the sale holding cloudID, or nil.
func (s *Store) FindSaleByCloudID(ctx context.Context, cloudID string) (*model.Sale, error) {
	sa, err := scanSale(s.DB.QueryRowContext(ctx,
		`SELECT `+saleColumns+` FROM sales WHERE cloud_id = ? LIMIT 1`, cloudID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find sale by cloud id: %w", err)
	}
	return &sa, nil
}

// FindSaleByLocalID returns the sale with the given local id (bill number),
// or nil.
func (s *Store) FindSaleByLocalID(ctx context.Context, localID int64) (*model.Sale, error) {
	sa, err := scanSale(s.DB.QueryRowContext(ctx,
		`SELECT `+saleColumns+` FROM sales WHERE local_id = ? LIMIT 1`, localID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find sale by local id: %w", err)
	}
	return &sa, nil
}

// InsertSale inserts a sale and returns its assigned local id (the bill
// number for new bills created on this device).
func (s *Store) InsertSale(ctx context.Context, sa *model.Sale) (int64, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO sales (cloud_id, customer_local_id, customer_cloud_id, total, discount,
			payment_mode, is_deleted, deleted_at, delete_reason, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, sa.CloudID, sa.CustomerLocalID, sa.CustomerCloudID, sa.Total, sa.Discount,
		sa.PaymentMode, sa.IsDeleted, sa.DeletedAt, sa.DeleteReason, sa.CreatedAt, sa.UpdatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert sale: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get sale id: %w", err)
	}
	sa.LocalID = id
	return id, nil
}

// InsertSaleWithID inserts a sale with an explicit local id. Used when
// materializing a remote document whose bill number must become the surrogate
// key.
func (s *Store) InsertSaleWithID(ctx context.Context, sa *model.Sale) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO sales (local_id, cloud_id, customer_local_id, customer_cloud_id, total,
			discount, payment_mode, is_deleted, deleted_at, delete_reason, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, sa.LocalID, sa.CloudID, sa.CustomerLocalID, sa.CustomerCloudID, sa.Total, sa.Discount,
		sa.PaymentMode, sa.IsDeleted, sa.DeletedAt, sa.DeleteReason, sa.CreatedAt, sa.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert sale %d: %w", sa.LocalID, err)
	}
	return nil
}

// UpdateSaleFromCloud overwrites the business fields, deletion state and
// timestamp of the row identified by sa.LocalID.
func (s *Store) UpdateSaleFromCloud(ctx context.Context, sa model.Sale) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.DB.ExecContext(ctx, `
		UPDATE sales SET cloud_id = ?, customer_local_id = ?, customer_cloud_id = ?, total = ?,
			discount = ?, payment_mode = ?, is_deleted = ?, deleted_at = ?, delete_reason = ?,
			created_at = ?, updated_at = ?
		WHERE local_id = ?
	`, sa.CloudID, sa.CustomerLocalID, sa.CustomerCloudID, sa.Total, sa.Discount, sa.PaymentMode,
		sa.IsDeleted, sa.DeletedAt, sa.DeleteReason, sa.CreatedAt, sa.UpdatedAt, sa.LocalID)
	if err != nil {
		return fmt.Errorf("failed to update sale %d from cloud: %w", sa.LocalID, err)
	}
	return nil
}

// UpdateSaleCloudID persists a cloud-id assignment.
func (s *Store) UpdateSaleCloudID(ctx context.Context, localID int64, cloudID string, updatedAt int64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.DB.ExecContext(ctx, `
		UPDATE sales SET cloud_id = ?, updated_at = ? WHERE local_id = ?
	`, cloudID, updatedAt, localID)
	if err != nil {
		return fmt.Errorf("failed to update sale %d cloud id: %w", localID, err)
	}
	return nil
}

// MarkSaleDeleted soft-deletes a sale row.
func (s *Store) MarkSaleDeleted(ctx context.Context, localID int64, deletedAt int64, reason string, updatedAt int64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.DB.ExecContext(ctx, `
		UPDATE sales SET is_deleted = 1, deleted_at = ?, delete_reason = ?, updated_at = ?
		WHERE local_id = ?
	`, deletedAt, reason, updatedAt, localID)
	if err != nil {
		return fmt.Errorf("failed to mark sale %d deleted: %w", localID, err)
	}
	return nil
}

// DeleteAllSales purges the sales table.
func (s *Store) DeleteAllSales(ctx context.Context) error {
	return s.deleteAll(ctx, "sales")
}
