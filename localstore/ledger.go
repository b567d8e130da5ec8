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

// LedgerEntriesAll returns every credit-ledger row.
func (s *Store) LedgerEntriesAll(ctx context.Context) ([]model.LedgerEntry, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT local_id, cloud_id, customer_local_id, customer_cloud_id, amount, entry_type,
			note, created_at, updated_at
		FROM ledger_entries ORDER BY local_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	defer rows.Close()

	var out []model.LedgerEntry
	for rows.Next() {
		var le model.LedgerEntry
		if err := rows.Scan(&le.LocalID, &le.CloudID, &le.CustomerLocalID, &le.CustomerCloudID,
			&le.Amount, &le.EntryType, &le.Note, &le.CreatedAt, &le.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		out = append(out, le)
	}
	return out, rows.Err()
}

// FindLedgerEntryByCloudID returns the ledger entry holding cloudID, or nil.
func (s *Store) FindLedgerEntryByCloudID(ctx context.Context, cloudID string) (*model.LedgerEntry, error) {
	var le model.LedgerEntry
	err := s.DB.QueryRowContext(ctx, `
		SELECT local_id, cloud_id, customer_local_id, customer_cloud_id, amount, entry_type,
			note, created_at, updated_at
		FROM ledger_entries WHERE cloud_id = ? LIMIT 1
	`, cloudID).Scan(&le.LocalID, &le.CloudID, &le.CustomerLocalID, &le.CustomerCloudID,
		&le.Amount, &le.EntryType, &le.Note, &le.CreatedAt, &le.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find ledger entry by cloud id: %w", err)
	}
	return &le, nil
}

// InsertLedgerEntry inserts a ledger entry and returns its assigned local id.
func (s *Store) InsertLedgerEntry(ctx context.Context, le *model.LedgerEntry) (int64, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO ledger_entries (cloud_id, customer_local_id, customer_cloud_id, amount,
			entry_type, note, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, le.CloudID, le.CustomerLocalID, le.CustomerCloudID, le.Amount, le.EntryType,
		le.Note, le.CreatedAt, le.UpdatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert ledger entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get ledger entry id: %w", err)
	}
	le.LocalID = id
	return id, nil
}

// UpdateLedgerEntryFromCloud overwrites the business fields, parent reference
// and timestamp of the row identified by le.LocalID.
func (s *Store) UpdateLedgerEntryFromCloud(ctx context.Context, le model.LedgerEntry) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.DB.ExecContext(ctx, `
		UPDATE ledger_entries SET cloud_id = ?, customer_local_id = ?, customer_cloud_id = ?,
			amount = ?, entry_type = ?, note = ?, created_at = ?, updated_at = ?
		WHERE local_id = ?
	`, le.CloudID, le.CustomerLocalID, le.CustomerCloudID, le.Amount, le.EntryType,
		le.Note, le.CreatedAt, le.UpdatedAt, le.LocalID)
	if err != nil {
		return fmt.Errorf("failed to update ledger entry %d from cloud: %w", le.LocalID, err)
	}
	return nil
}

// UpdateLedgerEntryCloudID persists a cloud-id assignment.
func (s *Store) UpdateLedgerEntryCloudID(ctx context.Context, localID int64, cloudID string, updatedAt int64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.DB.ExecContext(ctx, `
		UPDATE ledger_entries SET cloud_id = ?, updated_at = ? WHERE local_id = ?
	`, cloudID, updatedAt, localID)
	if err != nil {
		return fmt.Errorf("failed to update ledger entry %d cloud id: %w", localID, err)
	}
	return nil
}

// DeleteAllLedgerEntries purges the ledger_entries table.
func (s *Store) DeleteAllLedgerEntries(ctx context.Context) error {
	return s.deleteAll(ctx, "ledger_entries")
}
