package error

import (
	"errors"
	"fmt"
	"time"
)

// Error codes for standardized API responses
const (
	// 4xxx - Client errors
	CodeInsufficientBalance   = 4001
	CodeInvalidAmount         = 4002
	CodeInvalidUserID         = 4003
	CodeInvalidRequest        = 4004
	CodeInvalidState          = 4005
	CodeSubscriptionConflict  = 4006
	CodePaymentRequired       = 4007
	CodeUnknownCatalogItem    = 4008
	CodeTransactionNotFound   = 4040
	CodeAccountNotFound       = 4041
	CodeSubscriptionNotFound  = 4042

	// 5xxx - Server errors
	CodeInternalServer     = 5000
	CodeGatewayUnavailable = 5030
	CodeLedgerInconsistent = 5090
)

// Base error types
var (
	// ErrInsufficientBalance is returned when a debit exceeds the available credits
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidAmount is returned when a monetary amount has an invalid format
	ErrInvalidAmount = errors.New("invalid amount format")

	// ErrNegativeAmount is returned when an amount is negative
	ErrNegativeAmount = errors.New("amount cannot be negative")

	// ErrInvalidUserID is returned when the user identifier is empty
	ErrInvalidUserID = errors.New("user ID cannot be empty")

	// ErrInvalidRequest is returned when the request shape is invalid
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInvalidCurrency is returned for currencies outside the supported set
	ErrInvalidCurrency = errors.New("unsupported currency")

	// ErrInvalidPaymentMethod is returned for unknown payment methods
	ErrInvalidPaymentMethod = errors.New("invalid payment method")

	// ErrInvalidPhoneNumber is returned when a mobile money phone number is not E.164
	ErrInvalidPhoneNumber = errors.New("invalid phone number format")

	// ErrTransactionNotFound is returned when the requested transaction doesn't exist
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrTransactionTerminal is returned when mutating a transaction that already
	// reached a terminal status
	ErrTransactionTerminal = errors.New("transaction already in terminal state")

	// ErrAccountNotFound is returned when no credit account exists for the user
	ErrAccountNotFound = errors.New("credit account not found")

	// ErrDuplicateCredit is returned when a ledger credit already exists for a
	// source transaction
	ErrDuplicateCredit = errors.New("credit already recorded for this transaction")

	// ErrSubscriptionNotFound is returned when the requested subscription doesn't exist
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrSubscriptionConflict is returned when the user already has a live subscription
	ErrSubscriptionConflict = errors.New("user already has a subscription in progress")

	// ErrInvalidState is returned on an illegal lifecycle transition
	ErrInvalidState = errors.New("invalid state transition")

	// ErrPaymentRequired is returned when a renewal has no completed payment behind it
	ErrPaymentRequired = errors.New("a completed payment is required")

	// ErrUnknownPackage is returned for credit package ids missing from the catalog
	ErrUnknownPackage = errors.New("unknown credit package")

	// ErrUnknownPlan is returned for plan ids missing from the catalog
	ErrUnknownPlan = errors.New("unknown subscription plan")

	// ErrUnknownFeature is returned for features missing from the cost catalog
	ErrUnknownFeature = errors.New("unknown feature")

	// ErrGatewayUnavailable is returned when the payment gateway cannot be reached.
	// Transient by definition; the polling schedule retries it.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrLedgerInconsistent is returned when the cached balance disagrees with the
	// ledger sum. Fatal integrity error, never auto-corrected.
	ErrLedgerInconsistent = errors.New("ledger inconsistency detected")

	// ErrDatabaseConnection is returned when there's a problem talking to the database
	ErrDatabaseConnection = errors.New("database connection error")

	// ErrInternalServer is returned for unexpected server-side errors
	ErrInternalServer = errors.New("internal server error")
)

// ErrorCode returns standardized error codes for known errors
func ErrorCode(err error) int {
	switch {
	case errors.Is(err, ErrInsufficientBalance):
		return CodeInsufficientBalance
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrNegativeAmount):
		return CodeInvalidAmount
	case errors.Is(err, ErrInvalidUserID):
		return CodeInvalidUserID
	case errors.Is(err, ErrSubscriptionConflict):
		return CodeSubscriptionConflict
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrTransactionTerminal):
		return CodeInvalidState
	case errors.Is(err, ErrPaymentRequired):
		return CodePaymentRequired
	case errors.Is(err, ErrUnknownPackage), errors.Is(err, ErrUnknownPlan), errors.Is(err, ErrUnknownFeature):
		return CodeUnknownCatalogItem
	case errors.Is(err, ErrTransactionNotFound):
		return CodeTransactionNotFound
	case errors.Is(err, ErrAccountNotFound):
		return CodeAccountNotFound
	case errors.Is(err, ErrSubscriptionNotFound):
		return CodeSubscriptionNotFound
	case errors.Is(err, ErrGatewayUnavailable):
		return CodeGatewayUnavailable
	case errors.Is(err, ErrLedgerInconsistent):
		return CodeLedgerInconsistent
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrInvalidCurrency),
		errors.Is(err, ErrInvalidPaymentMethod), errors.Is(err, ErrInvalidPhoneNumber):
		return CodeInvalidRequest
	default:
		return CodeInternalServer
	}
}

// InsufficientBalanceError provides detailed error information for insufficient balance
type InsufficientBalanceError struct {
	UserID    string
	Requested int64
	Available int64
	Feature   string
}

// Error implements the error interface
func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance for user %s: required %d credits, available %d",
		e.UserID, e.Requested, e.Available)
}

// Is checks if the target error is an ErrInsufficientBalance
func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}

// LogFields returns a map of fields for structured logging
func (e *InsufficientBalanceError) LogFields() map[string]any {
	return map[string]any{
		"error_type": "insufficient_balance",
		"user_id":    e.UserID,
		"requested":  e.Requested,
		"available":  e.Available,
		"feature":    e.Feature,
		"error_code": CodeInsufficientBalance,
	}
}

// NewInsufficientBalanceError creates a new detailed insufficient balance error
func NewInsufficientBalanceError(userID string, requested, available int64, feature string) error {
	return &InsufficientBalanceError{
		UserID:    userID,
		Requested: requested,
		Available: available,
		Feature:   feature,
	}
}

// ConflictError reports an attempt to create a second live subscription for a user
type ConflictError struct {
	UserID                 string
	ExistingSubscriptionID string
	ExistingStatus         string
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	return fmt.Sprintf("user %s already has subscription %s in status %s",
		e.UserID, e.ExistingSubscriptionID, e.ExistingStatus)
}

// Is checks if the target error is an ErrSubscriptionConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrSubscriptionConflict
}

// LogFields returns a map of fields for structured logging
func (e *ConflictError) LogFields() map[string]any {
	return map[string]any{
		"error_type":      "subscription_conflict",
		"user_id":         e.UserID,
		"subscription_id": e.ExistingSubscriptionID,
		"status":          e.ExistingStatus,
		"error_code":      CodeSubscriptionConflict,
	}
}

// NewConflictError creates a new subscription conflict error
func NewConflictError(userID, subscriptionID, status string) error {
	return &ConflictError{
		UserID:                 userID,
		ExistingSubscriptionID: subscriptionID,
		ExistingStatus:         status,
	}
}

// InvalidStateError reports an illegal lifecycle transition
type InvalidStateError struct {
	EntityKind string
	EntityID   string
	From       string
	Attempted  string
}

// Error implements the error interface
func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s %s: cannot %s from status %s",
		e.EntityKind, e.EntityID, e.Attempted, e.From)
}

// Is checks if the target error is an ErrInvalidState
func (e *InvalidStateError) Is(target error) bool {
	return target == ErrInvalidState
}

// LogFields returns a map of fields for structured logging
func (e *InvalidStateError) LogFields() map[string]any {
	return map[string]any{
		"error_type": "invalid_state",
		"entity":     e.EntityKind,
		"entity_id":  e.EntityID,
		"from":       e.From,
		"attempted":  e.Attempted,
		"error_code": CodeInvalidState,
	}
}

// NewInvalidStateError creates a new invalid transition error
func NewInvalidStateError(kind, id, from, attempted string) error {
	return &InvalidStateError{
		EntityKind: kind,
		EntityID:   id,
		From:       from,
		Attempted:  attempted,
	}
}

// LedgerInconsistencyError reports a cached balance diverging from the ledger sum.
// Requires manual reconciliation.
type LedgerInconsistencyError struct {
	UserID        string
	CachedBalance int64
	LedgerSum     int64
	DetectedAt    time.Time
}

// Error implements the error interface
func (e *LedgerInconsistencyError) Error() string {
	return fmt.Sprintf("ledger inconsistency for user %s: cached balance %d, ledger sum %d",
		e.UserID, e.CachedBalance, e.LedgerSum)
}

// Is checks if the target error is an ErrLedgerInconsistent
func (e *LedgerInconsistencyError) Is(target error) bool {
	return target == ErrLedgerInconsistent
}

// LogFields returns a map of fields for structured logging
func (e *LedgerInconsistencyError) LogFields() map[string]any {
	return map[string]any{
		"error_type":     "ledger_inconsistency",
		"user_id":        e.UserID,
		"cached_balance": e.CachedBalance,
		"ledger_sum":     e.LedgerSum,
		"detected_at":    e.DetectedAt,
		"error_code":     CodeLedgerInconsistent,
	}
}

// IsInsufficientBalanceError checks if the error is related to insufficient balance
func IsInsufficientBalanceError(err error) bool {
	return errors.Is(err, ErrInsufficientBalance)
}

// IsConflictError checks if the error is a subscription conflict
func IsConflictError(err error) bool {
	return errors.Is(err, ErrSubscriptionConflict)
}

// IsInvalidStateError checks if the error is an illegal transition
func IsInvalidStateError(err error) bool {
	return errors.Is(err, ErrInvalidState) || errors.Is(err, ErrTransactionTerminal)
}

// IsPaymentRequiredError checks if the error is a missing-payment error
func IsPaymentRequiredError(err error) bool {
	return errors.Is(err, ErrPaymentRequired)
}

// IsNotFoundError checks if the error is any "not found" type of error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrTransactionNotFound) ||
		errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrSubscriptionNotFound)
}

// IsGatewayError checks if the error is a transient gateway failure
func IsGatewayError(err error) bool {
	return errors.Is(err, ErrGatewayUnavailable)
}
