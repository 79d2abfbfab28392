package entity

import (
	"time"

	errs "github.com/rica-io/payment-engine/internal/domain/error"
	coreport "github.com/rica-io/payment-engine/internal/domain/port/core"
)

// LedgerEntryType distinguishes ledger entries that add credits from those
// that consume them
type LedgerEntryType string

const (
	EntryCredit LedgerEntryType = "credit"
	EntryDebit  LedgerEntryType = "debit"
)

// CreditAccount is the cached balance projection for one user. The ledger is
// the source of truth; the account balance must always equal the ledger sum.
type CreditAccount struct {
	UserID    string
	balance   int64 // whole credits, never negative
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewCreditAccount creates an empty account for a user
func NewCreditAccount(userID string, timeProvider coreport.TimeProvider) (*CreditAccount, error) {
	if userID == "" {
		return nil, errs.ErrInvalidUserID
	}
	now := timeProvider.Now()
	return &CreditAccount{
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// RestoreCreditAccount rebuilds an account from persisted state
func RestoreCreditAccount(userID string, balance int64, createdAt, updatedAt time.Time) *CreditAccount {
	return &CreditAccount{
		UserID:    userID,
		balance:   balance,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}

// Balance returns the current credit balance
func (a *CreditAccount) Balance() int64 {
	return a.balance
}

// ApplyCredit adds credits to the balance
func (a *CreditAccount) ApplyCredit(amount int64, timeProvider coreport.TimeProvider) error {
	if amount <= 0 {
		return errs.ErrNegativeAmount
	}
	a.balance += amount
	a.UpdatedAt = timeProvider.Now()
	return nil
}

// ApplyDebit removes credits from the balance. Fails without side effect if
// the balance would go negative.
func (a *CreditAccount) ApplyDebit(amount int64, timeProvider coreport.TimeProvider) error {
	if amount <= 0 {
		return errs.ErrNegativeAmount
	}
	if a.balance < amount {
		return errs.ErrInsufficientBalance
	}
	a.balance -= amount
	a.UpdatedAt = timeProvider.Now()
	return nil
}

// CreditTransaction is one immutable row of the append-only credit ledger
type CreditTransaction struct {
	ID                  string
	UserID              string
	Type                LedgerEntryType
	Amount              int64  // positive credit count
	SourceTransactionID string // payment transaction for purchases, empty for debits
	Feature             string // feature that consumed credits, empty for credits
	ResultingBalance    int64
	Timestamp           time.Time
}

// NewCreditEntry builds a purchase entry linked to its payment transaction
func NewCreditEntry(
	id string,
	userID string,
	amount int64,
	sourceTransactionID string,
	resultingBalance int64,
	timeProvider coreport.TimeProvider,
) (*CreditTransaction, error) {
	if err := validateEntry(id, userID, amount); err != nil {
		return nil, err
	}
	return &CreditTransaction{
		ID:                  id,
		UserID:              userID,
		Type:                EntryCredit,
		Amount:              amount,
		SourceTransactionID: sourceTransactionID,
		ResultingBalance:    resultingBalance,
		Timestamp:           timeProvider.Now(),
	}, nil
}

// NewDebitEntry builds a consumption entry for a feature
func NewDebitEntry(
	id string,
	userID string,
	amount int64,
	feature string,
	resultingBalance int64,
	timeProvider coreport.TimeProvider,
) (*CreditTransaction, error) {
	if err := validateEntry(id, userID, amount); err != nil {
		return nil, err
	}
	return &CreditTransaction{
		ID:               id,
		UserID:           userID,
		Type:             EntryDebit,
		Amount:           amount,
		Feature:          feature,
		ResultingBalance: resultingBalance,
		Timestamp:        timeProvider.Now(),
	}, nil
}

// SignedAmount returns the entry's contribution to the ledger sum
func (e *CreditTransaction) SignedAmount() int64 {
	if e.Type == EntryDebit {
		return -e.Amount
	}
	return e.Amount
}

func validateEntry(id, userID string, amount int64) error {
	if id == "" {
		return errs.ErrInvalidRequest
	}
	if userID == "" {
		return errs.ErrInvalidUserID
	}
	if amount <= 0 {
		return errs.ErrNegativeAmount
	}
	return nil
}
