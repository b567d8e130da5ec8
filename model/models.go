// Copyright 2026 Bizledger Labs
// SPDX-License-Identifier: Apache-2.0

package model

// Local record models for the synchronized entities.
//
// Every record carries an integer surrogate key assigned by the local store
// (meaningless outside this device), an opaque CloudID shared with the remote
// document once assigned, and an UpdatedAt timestamp in milliseconds since
// epoch that is the sole last-write-wins tie-break.

// Customer represents a store customer.
type Customer struct {
	LocalID   int64  // SQLite surrogate key
	CloudID   string // blank until first push/match
	Name      string
	Phone     string
	Address   string
	UpdatedAt int64 // epoch millis
}

// Item represents a sellable item.
type Item struct {
	LocalID   int64
	CloudID   string
	Name      string
	Price     float64
	Category  string
	Barcode   string
	StockQty  float64
	IsActive  bool // inactive items are pruned remotely, never materialized
	UpdatedAt int64
}

// Category represents an item category.
type Category struct {
	LocalID   int64
	CloudID   string
	Name      string
	IsActive  bool
	UpdatedAt int64
}

// Sale represents a bill. The local surrogate key doubles as the cross-device
// bill number, which is why duplicate remote documents can exist for it.
type Sale struct {
	LocalID         int64 // also the bill number
	CloudID         string
	CustomerLocalID int64  // 0 when unresolved
	CustomerCloudID string
	Total           float64
	Discount        float64
	PaymentMode     string
	IsDeleted       bool
	DeletedAt       int64
	DeleteReason    string
	CreatedAt       int64
	UpdatedAt       int64
}

// SaleItem represents one line of a bill. Parent references are stored by
// both local id and cloud id; an unresolvable parent stays at 0.
type SaleItem struct {
	LocalID     int64
	CloudID     string
	SaleLocalID int64 // bill number, 0 when unresolved
	SaleCloudID string
	ItemLocalID int64 // 0 when unresolved
	ItemCloudID string
	Name        string // snapshot at time of sale
	Price       float64
	Quantity    float64
	UpdatedAt   int64
}

// LedgerEntry represents a credit/debit entry against a customer account.
type LedgerEntry struct {
	LocalID         int64
	CloudID         string
	CustomerLocalID int64
	CustomerCloudID string
	Amount          float64
	EntryType       string // "credit" or "debit"
	Note            string
	CreatedAt       int64
	UpdatedAt       int64
}

// Settings is the singleton store profile, local id fixed at 1 and remote
// document key fixed at "settings".
type Settings struct {
	LocalID       int64
	StoreName     string
	Address       string
	Phone         string
	Currency      string
	TaxPercent    float64
	ReceiptFooter string
	UpdatedAt     int64
}

// SettingsLocalID is the fixed surrogate key of the settings row.
const SettingsLocalID = 1
