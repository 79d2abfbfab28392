package dto

import (
	"time"

	"github.com/rica-io/payment-engine/internal/domain/entity"
)

// InitiatePaymentRequest represents the API request to start a payment
type InitiatePaymentRequest struct {
	UserID      string `json:"userId" binding:"required"`
	Purpose     string `json:"purpose" binding:"required,oneof=credit_purchase subscription_payment"`
	PurposeRef  string `json:"purposeRef" binding:"required"`
	Method      string `json:"method" binding:"required,oneof=mobile_money card wallet"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

// TransactionResponse represents a payment transaction in API responses
type TransactionResponse struct {
	TransactionID string     `json:"transactionId"`
	UserID        string     `json:"userId"`
	GatewayRef    string     `json:"gatewayRef,omitempty"`
	Amount        string     `json:"amount"`
	Currency      string     `json:"currency"`
	Method        string     `json:"method"`
	Purpose       string     `json:"purpose"`
	PurposeRef    string     `json:"purposeRef"`
	Status        string     `json:"status"`
	FailureReason string     `json:"failureReason,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	TerminalAt    *time.Time `json:"terminalAt,omitempty"`
}

// NewTransactionResponse maps a transaction entity to its API shape
func NewTransactionResponse(txn *entity.Transaction) TransactionResponse {
	return TransactionResponse{
		TransactionID: txn.ID,
		UserID:        txn.UserID,
		GatewayRef:    txn.GatewayRef,
		Amount:        txn.Amount,
		Currency:      string(txn.Currency),
		Method:        string(txn.Method),
		Purpose:       string(txn.Purpose),
		PurposeRef:    txn.PurposeRef,
		Status:        string(txn.Status),
		FailureReason: txn.FailureReason,
		CreatedAt:     txn.CreatedAt,
		TerminalAt:    txn.TerminalAt,
	}
}
