package persistence

import (
	"context"
)

// UnitOfWork defines an interface for coordinating writes across multiple
// repositories inside one database transaction, so a ledger append and its
// balance projection update commit or roll back together.
type UnitOfWork interface {
	// Begin starts a new transaction and returns a transactional context
	Begin(ctx context.Context) (context.Context, error)

	// Commit commits the transaction in the given context
	Commit(ctx context.Context) error

	// Rollback rolls back the transaction in the given context
	Rollback(ctx context.Context) error

	// GetTransactionRepository returns a transaction repository bound to the
	// current transaction
	GetTransactionRepository(ctx context.Context) TransactionRepository

	// GetLedgerRepository returns a ledger repository bound to the current
	// transaction
	GetLedgerRepository(ctx context.Context) LedgerRepository

	// GetSubscriptionRepository returns a subscription repository bound to
	// the current transaction
	GetSubscriptionRepository(ctx context.Context) SubscriptionRepository
}
