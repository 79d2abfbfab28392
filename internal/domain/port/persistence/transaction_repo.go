package persistence

import (
	"context"
	"time"

	"github.com/rica-io/payment-engine/internal/domain/entity"
)

// TransactionRepository defines essential methods to interact with payment
// transaction records
type TransactionRepository interface {
	// Create saves a new pending transaction
	//
	// Possible errors:
	// - ErrInvalidRequest: If a transaction with the same ID already exists
	// - ErrDatabaseConnection: If the database cannot be reached
	Create(ctx context.Context, transaction *entity.Transaction) error

	// Update persists status, gateway ref and poll/terminal timestamps
	//
	// Possible errors:
	// - ErrTransactionNotFound: If no transaction with the given ID exists
	// - ErrDatabaseConnection: If the database cannot be reached
	Update(ctx context.Context, transaction *entity.Transaction) error

	// GetByID retrieves a transaction by its id
	//
	// Possible errors:
	// - ErrTransactionNotFound: If no transaction with the given ID exists
	// - ErrDatabaseConnection: If the database cannot be reached
	GetByID(ctx context.Context, id string) (*entity.Transaction, error)

	// ListPending returns up to limit non-terminal transactions, oldest
	// first, for the poll sweep
	ListPending(ctx context.Context, limit int) ([]*entity.Transaction, error)

	// LatestCompletedForPurpose returns the most recent completed
	// transaction for a purpose ref (e.g. a subscription id) whose terminal
	// time is after the given instant. Used to verify a renewal was paid.
	//
	// Possible errors:
	// - ErrTransactionNotFound: If no such transaction exists
	// - ErrDatabaseConnection: If the database cannot be reached
	LatestCompletedForPurpose(ctx context.Context, purpose entity.TransactionPurpose, purposeRef string, after time.Time) (*entity.Transaction, error)
}
