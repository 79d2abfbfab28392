package model

import (
	"time"
)

// LedgerEntry represents one immutable row of the credit ledger.
// SourceTransactionID is nullable so the unique index only constrains
// purchase entries; debits carry no source transaction.
type LedgerEntry struct {
	ID                  string    `gorm:"primaryKey;size:64"`
	UserID              string    `gorm:"not null;index;size:64"`
	EntryType           string    `gorm:"not null;size:16"`
	Amount              int64     `gorm:"not null"`
	SourceTransactionID *string   `gorm:"uniqueIndex;size:64"`
	Feature             string    `gorm:"size:64"`
	ResultingBalance    int64     `gorm:"not null"`
	Timestamp           time.Time `gorm:"not null;index"`
}

// TableName specifies the table name for LedgerEntry
func (LedgerEntry) TableName() string {
	return "credit_ledger"
}

// CreditBalance is the cached per-user balance projection derived from the
// ledger
type CreditBalance struct {
	UserID    string    `gorm:"primaryKey;size:64"`
	Balance   int64     `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName specifies the table name for CreditBalance
func (CreditBalance) TableName() string {
	return "credit_balances"
}
