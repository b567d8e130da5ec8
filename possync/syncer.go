// Copyright 2026 Bizledger Labs
// SPDX-License-Identifier: Apache-2.0

package possync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/bizledger/possync/cloudstore"
	"github.com/bizledger/possync/localstore"
)

// ErrSyncInProgress is returned when a sync entry point is invoked while
// another pass is still running. Concurrent passes over the same tables would
// race on cloud-id assignment and duplicate detection, so a second trigger is
// rejected rather than queued.
var ErrSyncInProgress = errors.New("possync: sync already in progress")

// Syncer is the reconciliation orchestrator. It holds no state of its own
// between invocations; all state lives in the local store and the remote
// collections.
type Syncer struct {
	store  *localstore.Store
	cloud  cloudstore.Client
	logger *slog.Logger

	// seams for tests
	now        func() time.Time
	newCloudID func() string

	syncing int32
}

// NewSyncer creates a reconciliation engine over the given local store and
// cloud client. The caller owns the lifecycle of both.
func NewSyncer(store *localstore.Store, cloud cloudstore.Client, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		store:      store,
		cloud:      cloud,
		logger:     logger,
		now:        time.Now,
		newCloudID: uuid.NewString,
	}
}

func (s *Syncer) nowMs() int64 {
	return s.now().UnixMilli()
}

// SyncAll reconciles every collection in dependency order: customers, items
// and categories before sales, sales before sale items and ledger entries,
// settings last. A failure in one collection is logged and does not prevent
// the remaining collections from running; the joined errors are returned once
// every collection has been attempted.
func (s *Syncer) SyncAll(ctx context.Context, tenantID string) error {
	if !atomic.CompareAndSwapInt32(&s.syncing, 0, 1) {
		return ErrSyncInProgress
	}
	defer atomic.StoreInt32(&s.syncing, 0)
	return s.syncAll(ctx, tenantID)
}

// RefreshFromCloudOnLogin purges every synchronized table and re-pulls
// everything from the remote collections. Used after sign-in so the device
// starts from the cloud state.
func (s *Syncer) RefreshFromCloudOnLogin(ctx context.Context, tenantID string) error {
	if !atomic.CompareAndSwapInt32(&s.syncing, 0, 1) {
		return ErrSyncInProgress
	}
	defer atomic.StoreInt32(&s.syncing, 0)

	if err := s.clearLocalData(ctx); err != nil {
		return fmt.Errorf("failed to clear local data: %w", err)
	}
	return s.syncAll(ctx, tenantID)
}

// ClearLocalData purges every synchronized table without syncing afterwards.
// Used on sign-out.
func (s *Syncer) ClearLocalData(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.syncing, 0, 1) {
		return ErrSyncInProgress
	}
	defer atomic.StoreInt32(&s.syncing, 0)
	return s.clearLocalData(ctx)
}

func (s *Syncer) syncAll(ctx context.Context, tenantID string) error {
	steps := []struct {
		name string
		fn   func(context.Context, string) error
	}{
		{CollCustomers, s.syncCustomers},
		{CollItems, s.syncItems},
		{CollCategories, s.syncCategories},
		{CollSales, s.syncSales},
		{CollSaleItems, s.syncSaleItems},
		{CollLedger, s.syncLedger},
		{CollSettings, s.syncSettings},
	}

	var errs []error
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := step.fn(ctx, tenantID); err != nil {
			s.logger.Error("collection sync failed", "collection", step.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", step.name, err))
		}
	}
	return errors.Join(errs...)
}

// clearLocalData deletes children before parents so foreign keys never dangle
// mid-purge.
func (s *Syncer) clearLocalData(ctx context.Context) error {
	purges := []struct {
		name string
		fn   func(context.Context) error
	}{
		{CollLedger, s.store.DeleteAllLedgerEntries},
		{CollSaleItems, s.store.DeleteAllSaleItems},
		{CollSales, s.store.DeleteAllSales},
		{CollCustomers, s.store.DeleteAllCustomers},
		{CollItems, s.store.DeleteAllItems},
		{CollCategories, s.store.DeleteAllCategories},
		{CollSettings, s.store.DeleteAllSettings},
	}
	for _, p := range purges {
		if err := p.fn(ctx); err != nil {
			return fmt.Errorf("failed to purge %s: %w", p.name, err)
		}
	}
	return nil
}

func maxMs(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
