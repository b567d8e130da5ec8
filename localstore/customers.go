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

// CustomersAll returns every customer row.
func (s *Store) CustomersAll(ctx context.Context) ([]model.Customer, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT local_id, cloud_id, name, phone, address, updated_at
		FROM customers ORDER BY local_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	defer rows.Close()

	var out []model.Customer
	for rows.Next() {
		var c model.Customer
		if err := rows.Scan(&c.LocalID, &c.CloudID, &c.Name, &c.Phone, &c.Address, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// FindCustomerByCloudID returns the customer holding cloudID, or nil when no
// row holds it.
func (s *Store) FindCustomerByCloudID(ctx context.Context, cloudID string) (*model.Customer, error) {
	var c model.Customer
	err := s.DB.QueryRowContext(ctx, `
		SELECT local_id, cloud_id, name, phone, address, updated_at
		FROM customers WHERE cloud_id = ? LIMIT 1
	`, cloudID).Scan(&c.LocalID, &c.CloudID, &c.Name, &c.Phone, &c.Address, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find customer by cloud id: %w", err)
	}
	return &c, nil
}

// InsertCustomer inserts a customer and returns its assigned local id.
func (s *Store) InsertCustomer(ctx context.Context, c *model.Customer) (int64, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO customers (cloud_id, name, phone, address, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, c.CloudID, c.Name, c.Phone, c.Address, c.UpdatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert customer: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get customer id: %w", err)
	}
	c.LocalID = id
	return id, nil
}

// UpdateCustomerFromCloud overwrites the business fields and timestamp of the
// row identified by c.LocalID. The local id itself is never changed.
func (s *Store) UpdateCustomerFromCloud(ctx context.Context, c model.Customer) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.DB.ExecContext(ctx, `
		UPDATE customers SET cloud_id = ?, name = ?, phone = ?, address = ?, updated_at = ?
		WHERE local_id = ?
	`, c.CloudID, c.Name, c.Phone, c.Address, c.UpdatedAt, c.LocalID)
	if err != nil {
		return fmt.Errorf("failed to update customer %d from cloud: %w", c.LocalID, err)
	}
	return nil
}

// UpdateCustomerCloudID persists a cloud-id assignment.
func (s *Store) UpdateCustomerCloudID(ctx context.Context, localID int64, cloudID string, updatedAt int64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.DB.ExecContext(ctx, `
		UPDATE customers SET cloud_id = ?, updated_at = ? WHERE local_id = ?
	`, cloudID, updatedAt, localID)
	if err != nil {
		return fmt.Errorf("failed to update customer %d cloud id: %w", localID, err)
	}
	return nil
}

// DeleteAllCustomers purges the customers table.
func (s *Store) DeleteAllCustomers(ctx context.Context) error {
	return s.deleteAll(ctx, "customers")
}
