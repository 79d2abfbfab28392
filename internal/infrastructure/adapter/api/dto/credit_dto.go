package dto

import (
	"time"

	"github.com/rica-io/payment-engine/internal/domain/entity"
)

// BalanceResponse represents a user's current credit balance
type BalanceResponse struct {
	UserID  string `json:"userId"`
	Balance int64  `json:"balance"`
}

// DebitRequest represents the API request to consume credits for a feature
type DebitRequest struct {
	Feature string `json:"feature" binding:"required"`
}

// LedgerEntryResponse represents one ledger row in API responses
type LedgerEntryResponse struct {
	ID                  string    `json:"id"`
	Type                string    `json:"type"`
	Amount              int64     `json:"amount"`
	SourceTransactionID string    `json:"sourceTransactionId,omitempty"`
	Feature             string    `json:"feature,omitempty"`
	ResultingBalance    int64     `json:"resultingBalance"`
	Timestamp           time.Time `json:"timestamp"`
}

// NewLedgerEntryResponse maps a ledger entry entity to its API shape
func NewLedgerEntryResponse(entry *entity.CreditTransaction) LedgerEntryResponse {
	return LedgerEntryResponse{
		ID:                  entry.ID,
		Type:                string(entry.Type),
		Amount:              entry.Amount,
		SourceTransactionID: entry.SourceTransactionID,
		Feature:             entry.Feature,
		ResultingBalance:    entry.ResultingBalance,
		Timestamp:           entry.Timestamp,
	}
}

// HistoryResponse represents a page of ledger entries, newest first
type HistoryResponse struct {
	UserID  string                `json:"userId"`
	Entries []LedgerEntryResponse `json:"entries"`
	Limit   int                   `json:"limit"`
	Offset  int                   `json:"offset"`
}
