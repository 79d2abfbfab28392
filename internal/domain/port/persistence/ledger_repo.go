package persistence

import (
	"context"

	"github.com/rica-io/payment-engine/internal/domain/entity"
)

// LedgerRepository defines access to the append-only credit ledger and the
// cached balance projection. Entries are never updated or deleted.
type LedgerRepository interface {
	// GetAccount retrieves the cached balance row for a user
	//
	// Possible errors:
	// - ErrAccountNotFound: If the user has no account yet
	// - ErrDatabaseConnection: If the database cannot be reached
	GetAccount(ctx context.Context, userID string) (*entity.CreditAccount, error)

	// SaveAccount inserts or updates the cached balance row
	SaveAccount(ctx context.Context, account *entity.CreditAccount) error

	// AppendEntry writes one immutable ledger row. The unique index on
	// source_transaction_id backs purchase idempotency at the storage level.
	//
	// Possible errors:
	// - ErrDuplicateCredit: If a credit entry already exists for the entry's
	//   source transaction
	// - ErrDatabaseConnection: If the database cannot be reached
	AppendEntry(ctx context.Context, entry *entity.CreditTransaction) error

	// FindBySourceTransaction returns the credit entry recorded for a
	// payment transaction, if any
	//
	// Possible errors:
	// - ErrTransactionNotFound: If no entry references the transaction
	// - ErrDatabaseConnection: If the database cannot be reached
	FindBySourceTransaction(ctx context.Context, sourceTransactionID string) (*entity.CreditTransaction, error)

	// ListByUser returns a user's ledger entries newest first with
	// limit/offset paging
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*entity.CreditTransaction, error)

	// SumByUser recomputes the balance from the ledger. Used to verify the
	// cached projection, never to correct it silently.
	SumByUser(ctx context.Context, userID string) (int64, error)
}
