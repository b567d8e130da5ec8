// Copyright 2026 Bizledger Labs
// SPDX-License-Identifier: Apache-2.0

package possync

import (
	"encoding/json"
	"fmt"
)

// Remote collection names under a tenant scope.
const (
	CollCustomers  = "customers"
	CollItems      = "items"
	CollCategories = "categories"
	CollSales      = "sales"
	CollSaleItems  = "sale_items"
	CollLedger     = "ledger_entries"
	CollSettings   = "settings"
)

// SettingsDocKey is the fixed document key of the settings singleton.
const SettingsDocKey = "settings"

// Wire documents. Fields absent from the remote JSON decode to their stated
// defaults (zero values, isActive true) rather than failing; a document whose
// cloudId field is empty adopts its own document key as cloud id.

// CustomerDoc is the remote representation of a Customer.
type CustomerDoc struct {
	CloudID   string `json:"cloudId"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	UpdatedAt int64  `json:"updatedAt"`
}

// ItemDoc is the remote representation of an Item.
type ItemDoc struct {
	CloudID   string  `json:"cloudId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Category  string  `json:"category"`
	Barcode   string  `json:"barcode"`
	StockQty  float64 `json:"stockQty"`
	IsActive  bool    `json:"isActive"`
	UpdatedAt int64   `json:"updatedAt"`
}

// CategoryDoc is the remote representation of a Category.
type CategoryDoc struct {
	CloudID   string `json:"cloudId"`
	Name      string `json:"name"`
	IsActive  bool   `json:"isActive"`
	UpdatedAt int64  `json:"updatedAt"`
}

// SaleDoc is the remote representation of a Sale. BillNumber equals the local
// surrogate key of the sale that originated the document; documents with a
// non-positive bill number are not linked to any local bill.
type SaleDoc struct {
	CloudID         string  `json:"cloudId"`
	BillNumber      int64   `json:"billNumber"`
	CustomerCloudID string  `json:"customerCloudId"`
	Total           float64 `json:"total"`
	Discount        float64 `json:"discount"`
	PaymentMode     string  `json:"paymentMode"`
	IsDeleted       bool    `json:"isDeleted"`
	DeletedAt       int64   `json:"deletedAt"`
	DeleteReason    string  `json:"deleteReason"`
	CreatedAt       int64   `json:"createdAt"`
	UpdatedAt       int64   `json:"updatedAt"`
}

// SaleItemDoc is the remote representation of a SaleItem.
type SaleItemDoc struct {
	CloudID     string  `json:"cloudId"`
	SaleCloudID string  `json:"saleCloudId"`
	BillNumber  int64   `json:"billNumber"`
	ItemCloudID string  `json:"itemCloudId"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Quantity    float64 `json:"quantity"`
	UpdatedAt   int64   `json:"updatedAt"`
}

// LedgerDoc is the remote representation of a LedgerEntry.
type LedgerDoc struct {
	CloudID         string  `json:"cloudId"`
	CustomerCloudID string  `json:"customerCloudId"`
	Amount          float64 `json:"amount"`
	EntryType       string  `json:"entryType"`
	Note            string  `json:"note"`
	CreatedAt       int64   `json:"createdAt"`
	UpdatedAt       int64   `json:"updatedAt"`
}

// SettingsDoc is the remote representation of the Settings singleton.
type SettingsDoc struct {
	StoreName     string  `json:"storeName"`
	Address       string  `json:"address"`
	Phone         string  `json:"phone"`
	Currency      string  `json:"currency"`
	TaxPercent    float64 `json:"taxPercent"`
	ReceiptFooter string  `json:"receiptFooter"`
	UpdatedAt     int64   `json:"updatedAt"`
}

// SaleTombstone is the patch pushed to duplicate sale documents when a
// deletion propagates. Only these fields are merged; everything else on the
// remote document is preserved.
type SaleTombstone struct {
	IsDeleted    bool   `json:"isDeleted"`
	DeletedAt    int64  `json:"deletedAt"`
	DeleteReason string `json:"deleteReason,omitempty"`
	UpdatedAt    int64  `json:"updatedAt"`
}

func decodeCustomerDoc(key string, data json.RawMessage) (CustomerDoc, error) {
	var d CustomerDoc
	if err := json.Unmarshal(data, &d); err != nil {
		return d, fmt.Errorf("malformed customer document %s: %w", key, err)
	}
	if d.CloudID == "" {
		d.CloudID = key
	}
	return d, nil
}

// itemDocWire exists so that an absent isActive field defaults to true.
type itemDocWire struct {
	ItemDoc
	IsActive *bool `json:"isActive"`
}

func decodeItemDoc(key string, data json.RawMessage) (ItemDoc, error) {
	var w itemDocWire
	if err := json.Unmarshal(data, &w); err != nil {
		return ItemDoc{}, fmt.Errorf("malformed item document %s: %w", key, err)
	}
	d := w.ItemDoc
	d.IsActive = w.IsActive == nil || *w.IsActive
	if d.CloudID == "" {
		d.CloudID = key
	}
	return d, nil
}

type categoryDocWire struct {
	CategoryDoc
	IsActive *bool `json:"isActive"`
}

func decodeCategoryDoc(key string, data json.RawMessage) (CategoryDoc, error) {
	var w categoryDocWire
	if err := json.Unmarshal(data, &w); err != nil {
		return CategoryDoc{}, fmt.Errorf("malformed category document %s: %w", key, err)
	}
	d := w.CategoryDoc
	d.IsActive = w.IsActive == nil || *w.IsActive
	if d.CloudID == "" {
		d.CloudID = key
	}
	return d, nil
}

func decodeSaleDoc(key string, data json.RawMessage) (SaleDoc, error) {
	var d SaleDoc
	if err := json.Unmarshal(data, &d); err != nil {
		return d, fmt.Errorf("malformed sale document %s: %w", key, err)
	}
	if d.CloudID == "" {
		d.CloudID = key
	}
	return d, nil
}

func decodeSaleItemDoc(key string, data json.RawMessage) (SaleItemDoc, error) {
	var d SaleItemDoc
	if err := json.Unmarshal(data, &d); err != nil {
		return d, fmt.Errorf("malformed sale item document %s: %w", key, err)
	}
	if d.CloudID == "" {
		d.CloudID = key
	}
	return d, nil
}

func decodeLedgerDoc(key string, data json.RawMessage) (LedgerDoc, error) {
	var d LedgerDoc
	if err := json.Unmarshal(data, &d); err != nil {
		return d, fmt.Errorf("malformed ledger document %s: %w", key, err)
	}
	if d.CloudID == "" {
		d.CloudID = key
	}
	return d, nil
}

func decodeSettingsDoc(key string, data json.RawMessage) (SettingsDoc, error) {
	var d SettingsDoc
	if err := json.Unmarshal(data, &d); err != nil {
		return d, fmt.Errorf("malformed settings document %s: %w", key, err)
	}
	return d, nil
}
