package model

import (
	"time"
)

// Transaction represents the database model for payment transactions
type Transaction struct {
	ID            string    `gorm:"primaryKey;size:64"`
	UserID        string    `gorm:"not null;index;size:64"`
	GatewayRef    string    `gorm:"index;size:255"`
	Amount        string    `gorm:"not null;size:50"`
	AmountCents   int64     `gorm:"not null"`
	Currency      string    `gorm:"not null;size:8"`
	Method        string    `gorm:"not null;size:32"`
	PhoneNumber   string    `gorm:"size:32"`
	Purpose       string    `gorm:"not null;size:50;index:idx_transactions_purpose_ref"`
	PurposeRef    string    `gorm:"not null;size:64;index:idx_transactions_purpose_ref"`
	Status        string    `gorm:"not null;size:50;index"`
	FailureReason string    `gorm:"size:255"`
	CreatedAt     time.Time `gorm:"not null;index"`
	LastPolledAt  *time.Time
	TerminalAt    *time.Time
}

// TableName specifies the table name for Transaction
func (Transaction) TableName() string {
	return "transactions"
}
