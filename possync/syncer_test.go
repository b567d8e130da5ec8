// Copyright 2026 Bizledger Labs
// SPDX-License-Identifier: Apache-2.0

package possync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bizledger/possync/cloudstore"
	"github.com/bizledger/possync/localstore"
	"github.com/bizledger/possync/model"
)

const testNowMs = int64(5_000_000)

func newTestSyncer(t *testing.T) (*Syncer, *localstore.Store, *cloudstore.MemClient) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	store, err := localstore.New(context.Background(), db, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cloud := cloudstore.NewMemClient()
	s := NewSyncer(store, cloud, logger)
	s.now = func() time.Time { return time.UnixMilli(testNowMs) }

	var seq int64
	s.newCloudID = func() string {
		seq++
		return fmt.Sprintf("cid-%04d", seq)
	}
	return s, store, cloud
}

func memColl(t *testing.T, cloud *cloudstore.MemClient, name string) *cloudstore.MemCollection {
	t.Helper()
	coll, ok := cloud.Collection("t1", name).(*cloudstore.MemCollection)
	require.True(t, ok)
	return coll
}

func TestSyncAllPushesNewLocalRecords(t *testing.T) {
	ctx := context.Background()
	s, store, cloud := newTestSyncer(t)

	_, err := store.InsertCustomer(ctx, &model.Customer{Name: "Asha", Phone: "555-0101"})
	require.NoError(t, err)
	_, err = store.InsertItem(ctx, &model.Item{Name: "Chai", Price: 15, IsActive: true})
	require.NoError(t, err)

	require.NoError(t, s.SyncAll(ctx, "t1"))

	customers, err := store.CustomersAll(ctx)
	require.NoError(t, err)
	require.Len(t, customers, 1)
	require.Equal(t, "cid-0001", customers[0].CloudID)
	require.Equal(t, testNowMs, customers[0].UpdatedAt)

	doc, ok := memColl(t, cloud, CollCustomers).Get("cid-0001")
	require.True(t, ok)
	require.Equal(t, "Asha", doc["name"])
	require.Equal(t, float64(testNowMs), doc["updatedAt"])

	_, ok = memColl(t, cloud, CollItems).Get("cid-0002")
	require.True(t, ok)
}

func TestSyncAllIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, store, cloud := newTestSyncer(t)

	_, err := store.InsertCustomer(ctx, &model.Customer{Name: "Asha", Phone: "555-0101"})
	require.NoError(t, err)
	_, err = store.InsertItem(ctx, &model.Item{Name: "Chai", Price: 15, IsActive: true})
	require.NoError(t, err)
	_, err = store.InsertCategory(ctx, &model.Category{Name: "Drinks", IsActive: true})
	require.NoError(t, err)
	_, err = store.InsertSale(ctx, &model.Sale{Total: 30, PaymentMode: "cash", CreatedAt: 100, UpdatedAt: 100})
	require.NoError(t, err)
	_, err = store.InsertSale(ctx, &model.Sale{
		Total: 10, IsDeleted: true, DeletedAt: 200, DeleteReason: "void", UpdatedAt: 200,
	})
	require.NoError(t, err)
	_, err = store.InsertSaleItem(ctx, &model.SaleItem{SaleLocalID: 1, Name: "Chai", Price: 15, Quantity: 2})
	require.NoError(t, err)
	_, err = store.InsertLedgerEntry(ctx, &model.LedgerEntry{Amount: 50, EntryType: "credit"})
	require.NoError(t, err)
	require.NoError(t, store.UpsertSettings(ctx, model.Settings{
		LocalID: model.SettingsLocalID, StoreName: "Corner Shop", Currency: "INR", UpdatedAt: 100,
	}))

	require.NoError(t, s.SyncAll(ctx, "t1"))
	writes := cloud.Writes()
	require.Positive(t, writes)

	require.NoError(t, s.SyncAll(ctx, "t1"))
	require.Equal(t, writes, cloud.Writes(), "steady-state pass must perform no cloud writes")
}

func TestCloudIDsStableAcrossPasses(t *testing.T) {
	ctx := context.Background()
	s, store, cloud := newTestSyncer(t)

	_, err := store.InsertCustomer(ctx, &model.Customer{Name: "Asha", Phone: "555-0101"})
	require.NoError(t, err)
	_, err = store.InsertItem(ctx, &model.Item{Name: "Chai", Price: 15, IsActive: true})
	require.NoError(t, err)
	_, err = store.InsertSale(ctx, &model.Sale{Total: 30, PaymentMode: "cash", UpdatedAt: 100})
	require.NoError(t, err)
	_, err = store.InsertSaleItem(ctx, &model.SaleItem{SaleLocalID: 1, Name: "Chai", Price: 15, Quantity: 2})
	require.NoError(t, err)

	require.NoError(t, s.SyncAll(ctx, "t1"))

	cloudIDs := func() map[string]string {
		ids := make(map[string]string)
		customers, err := store.CustomersAll(ctx)
		require.NoError(t, err)
		ids["customer"] = customers[0].CloudID
		items, err := store.ItemsAll(ctx)
		require.NoError(t, err)
		ids["item"] = items[0].CloudID
		sales, err := store.SalesAll(ctx)
		require.NoError(t, err)
		ids["sale"] = sales[0].CloudID
		saleItems, err := store.SaleItemsAll(ctx)
		require.NoError(t, err)
		ids["saleItem"] = saleItems[0].CloudID
		return ids
	}

	first := cloudIDs()
	for _, id := range first {
		require.NotEmpty(t, id)
	}

	// A newer remote revision forces a pull; even then the assigned cloud id
	// must never change.
	require.NoError(t, cloud.Collection("t1", CollItems).SetMerge(ctx, first["item"], ItemDoc{
		CloudID: first["item"], Name: "Chai", Price: 18, IsActive: true, UpdatedAt: testNowMs + 1000,
	}))

	require.NoError(t, s.SyncAll(ctx, "t1"))
	require.Equal(t, first, cloudIDs())
}

func TestSyncAllPullsNewerRemote(t *testing.T) {
	ctx := context.Background()
	s, store, cloud := newTestSyncer(t)

	it := model.Item{CloudID: "i1", Name: "Chai", Price: 10, IsActive: true, UpdatedAt: 100}
	_, err := store.InsertItem(ctx, &it)
	require.NoError(t, err)

	coll := cloud.Collection("t1", CollItems)
	require.NoError(t, coll.SetMerge(ctx, "i1", ItemDoc{
		CloudID: "i1", Name: "Chai", Price: 12, IsActive: true, UpdatedAt: 200,
	}))

	require.NoError(t, s.SyncAll(ctx, "t1"))

	got, err := store.FindItemByCloudID(ctx, "i1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, float64(12), got.Price)
	require.Equal(t, int64(200), got.UpdatedAt)
}

func TestSyncAllPushesNewerLocal(t *testing.T) {
	ctx := context.Background()
	s, store, cloud := newTestSyncer(t)

	it := model.Item{CloudID: "i1", Name: "Chai", Price: 12, IsActive: true, UpdatedAt: 300}
	_, err := store.InsertItem(ctx, &it)
	require.NoError(t, err)

	coll := memColl(t, cloud, CollItems)
	require.NoError(t, coll.SetMerge(ctx, "i1", ItemDoc{
		CloudID: "i1", Name: "Chai", Price: 10, IsActive: true, UpdatedAt: 100,
	}))

	require.NoError(t, s.SyncAll(ctx, "t1"))

	doc, ok := coll.Get("i1")
	require.True(t, ok)
	require.Equal(t, float64(12), doc["price"])
	require.Equal(t, float64(300), doc["updatedAt"])
}

func TestMaterializeRemoteOnlyRecords(t *testing.T) {
	ctx := context.Background()
	s, store, cloud := newTestSyncer(t)

	coll := cloud.Collection("t1", CollCustomers)
	require.NoError(t, coll.SetMerge(ctx, "c9", CustomerDoc{
		CloudID: "c9", Name: "Ravi", Phone: "555-0999", UpdatedAt: 700,
	}))

	require.NoError(t, s.SyncAll(ctx, "t1"))

	got, err := store.FindCustomerByCloudID(ctx, "c9")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "Ravi", got.Name)
	require.Equal(t, int64(700), got.UpdatedAt)
	require.Positive(t, got.LocalID)
}

func TestCustomerAdoptsMatchingRemoteIdentity(t *testing.T) {
	ctx := context.Background()
	s, store, cloud := newTestSyncer(t)

	_, err := store.InsertCustomer(ctx, &model.Customer{Name: "  ASHA ", Phone: "555-0101", UpdatedAt: 50})
	require.NoError(t, err)

	coll := memColl(t, cloud, CollCustomers)
	require.NoError(t, coll.SetMerge(ctx, "c1", CustomerDoc{
		CloudID: "c1", Name: "asha", Phone: "555-0101", Address: "Main St", UpdatedAt: 100,
	}))

	require.NoError(t, s.SyncAll(ctx, "t1"))

	customers, err := store.CustomersAll(ctx)
	require.NoError(t, err)
	require.Len(t, customers, 1, "matched identity must not duplicate the customer")
	require.Equal(t, "c1", customers[0].CloudID)
	require.Equal(t, 1, coll.Len())
}

func TestInactiveItemPrunesRemoteDocument(t *testing.T) {
	ctx := context.Background()
	s, store, cloud := newTestSyncer(t)

	it := model.Item{CloudID: "i1", Name: "Chai", Price: 10, IsActive: false, UpdatedAt: 500}
	_, err := store.InsertItem(ctx, &it)
	require.NoError(t, err)

	coll := memColl(t, cloud, CollItems)
	require.NoError(t, coll.SetMerge(ctx, "i1", ItemDoc{
		CloudID: "i1", Name: "Chai", Price: 10, IsActive: true, UpdatedAt: 100,
	}))
	// An inactive remote document must never materialize locally.
	require.NoError(t, coll.SetMerge(ctx, "i2", ItemDoc{
		CloudID: "i2", Name: "Old Stock", Price: 1, IsActive: false, UpdatedAt: 100,
	}))

	require.NoError(t, s.SyncAll(ctx, "t1"))

	_, ok := coll.Get("i1")
	require.False(t, ok, "inactive local item must prune its remote document")

	got, err := store.FindItemByCloudID(ctx, "i2")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestSaleAdoptsCanonicalDocumentForBill(t *testing.T) {
	ctx := context.Background()
	s, store, cloud := newTestSyncer(t)

	sa := model.Sale{Total: 30, PaymentMode: "cash", UpdatedAt: 100}
	_, err := store.InsertSale(ctx, &sa)
	require.NoError(t, err)
	require.Equal(t, int64(1), sa.LocalID)

	coll := memColl(t, cloud, CollSales)
	require.NoError(t, coll.SetMerge(ctx, "X", SaleDoc{
		CloudID: "X", BillNumber: 1, Total: 25, PaymentMode: "cash", UpdatedAt: 999,
	}))

	require.NoError(t, s.SyncAll(ctx, "t1"))

	got, err := store.FindSaleByLocalID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "X", got.CloudID, "blank cloud id must adopt the canonical document for the bill")

	// Adoption bumps the local timestamp, so local state wins the push.
	doc, ok := coll.Get("X")
	require.True(t, ok)
	require.Equal(t, float64(30), doc["total"])
}

func TestRemoteDeletedDuplicateWinsOverFresherLive(t *testing.T) {
	ctx := context.Background()
	s, store, cloud := newTestSyncer(t)

	sa := model.Sale{CloudID: "A", Total: 30, PaymentMode: "cash", UpdatedAt: 100}
	_, err := store.InsertSale(ctx, &sa)
	require.NoError(t, err)

	coll := cloud.Collection("t1", CollSales)
	require.NoError(t, coll.SetMerge(ctx, "A", SaleDoc{
		CloudID: "A", BillNumber: 1, Total: 30, PaymentMode: "cash", UpdatedAt: 100,
	}))
	require.NoError(t, coll.SetMerge(ctx, "B", SaleDoc{
		CloudID: "B", BillNumber: 1, Total: 30, PaymentMode: "cash",
		IsDeleted: true, DeletedAt: 40, DeleteReason: "void", UpdatedAt: 50,
	}))

	require.NoError(t, s.SyncAll(ctx, "t1"))

	got, err := store.FindSaleByLocalID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.True(t, got.IsDeleted, "a remote tombstone must never lose to a fresher live duplicate")
	require.Equal(t, "void", got.DeleteReason)
	require.Greater(t, got.UpdatedAt, int64(100))
}

func TestLocalDeletionPropagatesToDuplicates(t *testing.T) {
	ctx := context.Background()
	s, store, cloud := newTestSyncer(t)

	sa := model.Sale{
		CloudID: "A", Total: 30, PaymentMode: "cash",
		IsDeleted: true, DeletedAt: 400, DeleteReason: "entry error", UpdatedAt: 400,
	}
	_, err := store.InsertSale(ctx, &sa)
	require.NoError(t, err)

	coll := memColl(t, cloud, CollSales)
	require.NoError(t, coll.SetMerge(ctx, "A", SaleDoc{
		CloudID: "A", BillNumber: 1, Total: 30, PaymentMode: "cash", UpdatedAt: 100,
	}))
	require.NoError(t, coll.SetMerge(ctx, "B", SaleDoc{
		CloudID: "B", BillNumber: 1, Total: 30, PaymentMode: "upi", UpdatedAt: 100,
	}))

	require.NoError(t, s.SyncAll(ctx, "t1"))

	docA, ok := coll.Get("A")
	require.True(t, ok)
	require.Equal(t, true, docA["isDeleted"])

	docB, ok := coll.Get("B")
	require.True(t, ok)
	require.Equal(t, true, docB["isDeleted"])
	require.Equal(t, "entry error", docB["deleteReason"])
	// Tombstones are merge patches: untouched fields survive.
	require.Equal(t, "upi", docB["paymentMode"])
	// Strictly greater than the base so duplicate writes stay ordered.
	require.Greater(t, docB["updatedAt"], docA["updatedAt"])
}

func TestRemoteOnlySaleMaterializesCanonicalOnly(t *testing.T) {
	ctx := context.Background()
	s, store, cloud := newTestSyncer(t)

	coll := cloud.Collection("t1", CollSales)
	require.NoError(t, coll.SetMerge(ctx, "A", SaleDoc{
		CloudID: "A", BillNumber: 9, Total: 10, PaymentMode: "cash", UpdatedAt: 100,
	}))
	require.NoError(t, coll.SetMerge(ctx, "B", SaleDoc{
		CloudID: "B", BillNumber: 9, Total: 10, PaymentMode: "cash", UpdatedAt: 200,
	}))
	// No bill number, no local slot: never materialized.
	require.NoError(t, coll.SetMerge(ctx, "C", SaleDoc{
		CloudID: "C", Total: 99, PaymentMode: "cash", UpdatedAt: 300,
	}))

	require.NoError(t, s.SyncAll(ctx, "t1"))

	sales, err := store.SalesAll(ctx)
	require.NoError(t, err)
	require.Len(t, sales, 1, "only the canonical duplicate may materialize")
	require.Equal(t, int64(9), sales[0].LocalID)
	require.Equal(t, "B", sales[0].CloudID)
}

func TestSaleItemResolvesParentByBillNumber(t *testing.T) {
	ctx := context.Background()
	s, store, cloud := newTestSyncer(t)

	sa := model.Sale{CloudID: "s1", Total: 30, PaymentMode: "cash", UpdatedAt: 100}
	_, err := store.InsertSale(ctx, &sa)
	require.NoError(t, err)

	coll := cloud.Collection("t1", CollSaleItems)
	require.NoError(t, coll.SetMerge(ctx, "li1", SaleItemDoc{
		CloudID: "li1", SaleCloudID: "s1", BillNumber: 1, Name: "Chai", Price: 15, Quantity: 2, UpdatedAt: 100,
	}))
	// Parent never synced to this device: kept as an orphan at sentinel 0.
	require.NoError(t, coll.SetMerge(ctx, "li2", SaleItemDoc{
		CloudID: "li2", SaleCloudID: "missing", Name: "Samosa", Price: 5, Quantity: 1, UpdatedAt: 100,
	}))

	require.NoError(t, s.SyncAll(ctx, "t1"))

	li1, err := store.FindSaleItemByCloudID(ctx, "li1")
	require.NoError(t, err)
	require.NotNil(t, li1)
	require.Equal(t, int64(1), li1.SaleLocalID)

	li2, err := store.FindSaleItemByCloudID(ctx, "li2")
	require.NoError(t, err)
	require.NotNil(t, li2)
	require.Zero(t, li2.SaleLocalID)
}

func TestSettingsSingleton(t *testing.T) {
	ctx := context.Background()
	s, store, cloud := newTestSyncer(t)

	require.NoError(t, store.UpsertSettings(ctx, model.Settings{
		LocalID: model.SettingsLocalID, StoreName: "Corner Shop", Currency: "INR", UpdatedAt: 100,
	}))

	require.NoError(t, s.SyncAll(ctx, "t1"))

	coll := memColl(t, cloud, CollSettings)
	doc, ok := coll.Get(SettingsDocKey)
	require.True(t, ok)
	require.Equal(t, "Corner Shop", doc["storeName"])

	// A newer remote profile replaces the local one.
	require.NoError(t, coll.SetMerge(ctx, SettingsDocKey, SettingsDoc{
		StoreName: "Corner Shop & Sons", Currency: "INR", TaxPercent: 5, UpdatedAt: 900,
	}))
	require.NoError(t, s.SyncAll(ctx, "t1"))

	st, err := store.GetSettings(ctx)
	require.NoError(t, err)
	require.NotNil(t, st)
	require.Equal(t, "Corner Shop & Sons", st.StoreName)
	require.Equal(t, float64(5), st.TaxPercent)
}

func TestPushFailureSkipsRecordAndContinues(t *testing.T) {
	ctx := context.Background()
	s, store, cloud := newTestSyncer(t)

	_, err := store.InsertCustomer(ctx, &model.Customer{Name: "Asha", Phone: "555-0101"})
	require.NoError(t, err)
	_, err = store.InsertCustomer(ctx, &model.Customer{Name: "Ravi", Phone: "555-0202"})
	require.NoError(t, err)

	coll := memColl(t, cloud, CollCustomers)
	coll.FailSetMerge = map[string]error{"cid-0001": errors.New("boom")}

	require.NoError(t, s.SyncAll(ctx, "t1"), "a failed push is logged, not fatal")

	_, ok := coll.Get("cid-0001")
	require.False(t, ok)
	_, ok = coll.Get("cid-0002")
	require.True(t, ok)

	// The cloud id assignment is persisted even when the push failed.
	customers, err := store.CustomersAll(ctx)
	require.NoError(t, err)
	require.Equal(t, "cid-0001", customers[0].CloudID)
}

func TestFetchFailureFailsCollectionButContinues(t *testing.T) {
	ctx := context.Background()
	s, store, cloud := newTestSyncer(t)

	_, err := store.InsertItem(ctx, &model.Item{Name: "Chai", Price: 15, IsActive: true})
	require.NoError(t, err)

	memColl(t, cloud, CollCustomers).FailGetAll = errors.New("network down")

	err = s.SyncAll(ctx, "t1")
	require.Error(t, err)
	require.Contains(t, err.Error(), CollCustomers)

	_, ok := memColl(t, cloud, CollItems).Get("cid-0001")
	require.True(t, ok, "later collections still sync after an earlier failure")
}

func TestSyncInProgressRejected(t *testing.T) {
	s, _, _ := newTestSyncer(t)
	atomic.StoreInt32(&s.syncing, 1)

	require.ErrorIs(t, s.SyncAll(context.Background(), "t1"), ErrSyncInProgress)
	require.ErrorIs(t, s.RefreshFromCloudOnLogin(context.Background(), "t1"), ErrSyncInProgress)
	require.ErrorIs(t, s.ClearLocalData(context.Background()), ErrSyncInProgress)
}

func TestRefreshFromCloudOnLogin(t *testing.T) {
	ctx := context.Background()
	s, store, cloud := newTestSyncer(t)

	_, err := store.InsertCustomer(ctx, &model.Customer{Name: "Stale", Phone: "000"})
	require.NoError(t, err)

	coll := cloud.Collection("t1", CollCustomers)
	require.NoError(t, coll.SetMerge(ctx, "c1", CustomerDoc{
		CloudID: "c1", Name: "Ravi", Phone: "555-0999", UpdatedAt: 700,
	}))

	require.NoError(t, s.RefreshFromCloudOnLogin(ctx, "t1"))

	customers, err := store.CustomersAll(ctx)
	require.NoError(t, err)
	require.Len(t, customers, 1)
	require.Equal(t, "c1", customers[0].CloudID)
	require.Equal(t, "Ravi", customers[0].Name)
}

func TestClearLocalData(t *testing.T) {
	ctx := context.Background()
	s, store, cloud := newTestSyncer(t)

	_, err := store.InsertCustomer(ctx, &model.Customer{Name: "Asha", Phone: "555-0101"})
	require.NoError(t, err)
	_, err = store.InsertSale(ctx, &model.Sale{Total: 30, PaymentMode: "cash", UpdatedAt: 100})
	require.NoError(t, err)
	require.NoError(t, store.UpsertSettings(ctx, model.Settings{LocalID: model.SettingsLocalID, StoreName: "X"}))

	require.NoError(t, s.ClearLocalData(ctx))

	customers, err := store.CustomersAll(ctx)
	require.NoError(t, err)
	require.Empty(t, customers)
	sales, err := store.SalesAll(ctx)
	require.NoError(t, err)
	require.Empty(t, sales)
	st, err := store.GetSettings(ctx)
	require.NoError(t, err)
	require.Nil(t, st)

	require.Zero(t, cloud.Writes(), "sign-out never touches the cloud")
}

func TestMalformedRemoteDocumentSkipped(t *testing.T) {
	ctx := context.Background()
	s, store, cloud := newTestSyncer(t)

	coll := cloud.Collection("t1", CollCustomers)
	require.NoError(t, coll.SetMerge(ctx, "bad", map[string]any{"updatedAt": "not-a-number"}))
	require.NoError(t, coll.SetMerge(ctx, "c1", CustomerDoc{
		CloudID: "c1", Name: "Ravi", Phone: "555-0999", UpdatedAt: 700,
	}))

	require.NoError(t, s.SyncAll(ctx, "t1"))

	customers, err := store.CustomersAll(ctx)
	require.NoError(t, err)
	require.Len(t, customers, 1)
	require.Equal(t, "c1", customers[0].CloudID)
}

func TestDocumentKeyBackfillsMissingCloudID(t *testing.T) {
	ctx := context.Background()
	s, store, cloud := newTestSyncer(t)

	coll := cloud.Collection("t1", CollCustomers)
	require.NoError(t, coll.SetMerge(ctx, "c1", map[string]any{
		"name": "Ravi", "phone": "555-0999", "updatedAt": 700,
	}))

	require.NoError(t, s.SyncAll(ctx, "t1"))

	got, err := store.FindCustomerByCloudID(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "Ravi", got.Name)
}
