package entity

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	errs "github.com/rica-io/payment-engine/internal/domain/error"
	coreport "github.com/rica-io/payment-engine/internal/domain/port/core"
)

// TransactionStatus defines the closed status set for a payment attempt.
// Gateway-specific intermediate statuses are all folded into StatusPending;
// once a transaction is completed or failed no further transition exists.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
)

// PaymentMethod represents how the user pays
type PaymentMethod string

const (
	MethodMobileMoney PaymentMethod = "mobile_money"
	MethodCard        PaymentMethod = "card"
	MethodWallet      PaymentMethod = "wallet"
)

// TransactionPurpose distinguishes what a completed payment settles
type TransactionPurpose string

const (
	PurposeCreditPurchase      TransactionPurpose = "credit_purchase"
	PurposeSubscriptionPayment TransactionPurpose = "subscription_payment"
)

// FailureReasonTimeout marks a transaction failed because the max poll
// window elapsed without a terminal gateway status.
const FailureReasonTimeout = "timeout"

// Currency is an ISO 4217 code from the supported set
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyTZS Currency = "TZS"
	CurrencyKES Currency = "KES"
	CurrencyUGX Currency = "UGX"
)

var supportedCurrencies = map[Currency]bool{
	CurrencyUSD: true,
	CurrencyEUR: true,
	CurrencyGBP: true,
	CurrencyTZS: true,
	CurrencyKES: true,
	CurrencyUGX: true,
}

var phonePattern = regexp.MustCompile(`^\+\d{1,15}$`)

// Transaction represents one payment attempt against the gateway.
// Its ID doubles as the idempotency key for the credit ledger.
type Transaction struct {
	ID            string             // Generated at initiation, sent to the gateway as reference
	UserID        string             // Stable identity from the auth provider
	GatewayRef    string             // Gateway-side id; set once the gateway accepts the request
	Amount        string             // Amount as a string with 2 decimal places
	AmountCents   int64              // Amount in minor units for precise handling
	Currency      Currency           // ISO code from the supported set
	Method        PaymentMethod      // mobile_money, card or wallet
	PhoneNumber   string             // E.164, mobile money only
	Purpose       TransactionPurpose // What a completed payment settles
	PurposeRef    string             // Credit package id or subscription id
	Status        TransactionStatus  // pending until a terminal status is observed
	FailureReason string             // Set when Status is failed
	CreatedAt     time.Time
	LastPolledAt  *time.Time
	TerminalAt    *time.Time
}

// NewTransaction creates a pending transaction with basic validation
func NewTransaction(
	id string,
	userID string,
	amountCents int64,
	currency Currency,
	method PaymentMethod,
	phoneNumber string,
	purpose TransactionPurpose,
	purposeRef string,
	timeProvider coreport.TimeProvider,
) (*Transaction, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: transaction id", errs.ErrInvalidRequest)
	}
	if userID == "" {
		return nil, errs.ErrInvalidUserID
	}
	if amountCents <= 0 {
		return nil, errs.ErrNegativeAmount
	}
	if !supportedCurrencies[currency] {
		return nil, fmt.Errorf("%w: %s", errs.ErrInvalidCurrency, currency)
	}
	if !isValidMethod(method) {
		return nil, fmt.Errorf("%w: %s", errs.ErrInvalidPaymentMethod, method)
	}
	if !isValidPurpose(purpose) || purposeRef == "" {
		return nil, fmt.Errorf("%w: purpose %q with ref %q", errs.ErrInvalidRequest, purpose, purposeRef)
	}
	if method == MethodMobileMoney && !phonePattern.MatchString(phoneNumber) {
		return nil, errs.ErrInvalidPhoneNumber
	}

	return &Transaction{
		ID:          id,
		UserID:      userID,
		Amount:      FormatCents(amountCents),
		AmountCents: amountCents,
		Currency:    currency,
		Method:      method,
		PhoneNumber: phoneNumber,
		Purpose:     purpose,
		PurposeRef:  purposeRef,
		Status:      StatusPending,
		CreatedAt:   timeProvider.Now(),
	}, nil
}

// IsTerminal reports whether the transaction reached completed or failed
func (t *Transaction) IsTerminal() bool {
	return t.Status == StatusCompleted || t.Status == StatusFailed
}

// AttachGatewayRef records the gateway-side identifier. The ref is set once;
// later calls with a different value are rejected.
func (t *Transaction) AttachGatewayRef(ref string) error {
	if t.GatewayRef != "" && t.GatewayRef != ref {
		return fmt.Errorf("%w: gateway ref already set", errs.ErrInvalidRequest)
	}
	t.GatewayRef = ref
	return nil
}

// MarkPolled stamps the last poll time on a still-pending transaction
func (t *Transaction) MarkPolled(timeProvider coreport.TimeProvider) {
	now := timeProvider.Now()
	t.LastPolledAt = &now
}

// MarkCompleted transitions the transaction to its successful terminal state.
// Returns ErrTransactionTerminal if a terminal state was already reached.
func (t *Transaction) MarkCompleted(timeProvider coreport.TimeProvider) error {
	if t.IsTerminal() {
		return errs.ErrTransactionTerminal
	}
	now := timeProvider.Now()
	t.Status = StatusCompleted
	t.TerminalAt = &now
	return nil
}

// MarkFailed transitions the transaction to its failed terminal state
func (t *Transaction) MarkFailed(timeProvider coreport.TimeProvider, reason string) error {
	if t.IsTerminal() {
		return errs.ErrTransactionTerminal
	}
	now := timeProvider.Now()
	t.Status = StatusFailed
	t.FailureReason = reason
	t.TerminalAt = &now
	return nil
}

// PollWindowExpired reports whether the maximum poll duration elapsed
func (t *Transaction) PollWindowExpired(now time.Time, window time.Duration) bool {
	return now.Sub(t.CreatedAt) >= window
}

// CurrencyForPhone infers the mobile money currency from the phone prefix
func CurrencyForPhone(phoneNumber string) Currency {
	switch {
	case strings.HasPrefix(phoneNumber, "+255"):
		return CurrencyTZS
	case strings.HasPrefix(phoneNumber, "+254"):
		return CurrencyKES
	case strings.HasPrefix(phoneNumber, "+256"):
		return CurrencyUGX
	default:
		return CurrencyTZS
	}
}

func isValidMethod(m PaymentMethod) bool {
	return m == MethodMobileMoney || m == MethodCard || m == MethodWallet
}

func isValidPurpose(p TransactionPurpose) bool {
	return p == PurposeCreditPurchase || p == PurposeSubscriptionPayment
}
