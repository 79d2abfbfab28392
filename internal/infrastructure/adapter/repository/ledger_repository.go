package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/rica-io/payment-engine/internal/domain/entity"
	errs "github.com/rica-io/payment-engine/internal/domain/error"
	coreport "github.com/rica-io/payment-engine/internal/domain/port/core"
	"github.com/rica-io/payment-engine/internal/infrastructure/adapter/model"
	"gorm.io/gorm"
)

// LedgerRepository implements the LedgerRepository port using GORM. Ledger
// rows are insert-only; the balance projection is the only row ever updated.
type LedgerRepository struct {
	db              *gorm.DB
	logger          coreport.Logger
	errorClassifier *ErrorClassifier
}

// NewLedgerRepository creates a new LedgerRepository instance
func NewLedgerRepository(db *gorm.DB, logger coreport.Logger) *LedgerRepository {
	return &LedgerRepository{
		db:              db,
		logger:          logger,
		errorClassifier: NewErrorClassifier(),
	}
}

func (r *LedgerRepository) entryToModel(entry *entity.CreditTransaction) model.LedgerEntry {
	m := model.LedgerEntry{
		ID:               entry.ID,
		UserID:           entry.UserID,
		EntryType:        string(entry.Type),
		Amount:           entry.Amount,
		Feature:          entry.Feature,
		ResultingBalance: entry.ResultingBalance,
		Timestamp:        entry.Timestamp,
	}
	// NULL, not empty string, so the unique index ignores debit rows
	if entry.SourceTransactionID != "" {
		src := entry.SourceTransactionID
		m.SourceTransactionID = &src
	}
	return m
}

func (r *LedgerRepository) modelToEntry(m *model.LedgerEntry) *entity.CreditTransaction {
	entry := &entity.CreditTransaction{
		ID:               m.ID,
		UserID:           m.UserID,
		Type:             entity.LedgerEntryType(m.EntryType),
		Amount:           m.Amount,
		Feature:          m.Feature,
		ResultingBalance: m.ResultingBalance,
		Timestamp:        m.Timestamp,
	}
	if m.SourceTransactionID != nil {
		entry.SourceTransactionID = *m.SourceTransactionID
	}
	return entry
}

// GetAccount retrieves the cached balance row for a user
func (r *LedgerRepository) GetAccount(ctx context.Context, userID string) (*entity.CreditAccount, error) {
	var balanceModel model.CreditBalance
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&balanceModel)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errs.ErrAccountNotFound
		}
		r.logger.Error("Failed to get credit balance", map[string]any{
			"user_id": userID,
			"error":   result.Error.Error(),
		})
		return nil, fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}
	return entity.RestoreCreditAccount(balanceModel.UserID, balanceModel.Balance, balanceModel.CreatedAt, balanceModel.UpdatedAt), nil
}

// SaveAccount inserts or updates the cached balance row
func (r *LedgerRepository) SaveAccount(ctx context.Context, account *entity.CreditAccount) error {
	balanceModel := model.CreditBalance{
		UserID:    account.UserID,
		Balance:   account.Balance(),
		CreatedAt: account.CreatedAt,
		UpdatedAt: account.UpdatedAt,
	}
	result := r.db.WithContext(ctx).Save(&balanceModel)
	if result.Error != nil {
		r.logger.Error("Failed to save credit balance", map[string]any{
			"user_id": account.UserID,
			"error":   result.Error.Error(),
		})
		return fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}
	return nil
}

// AppendEntry writes one immutable ledger row
func (r *LedgerRepository) AppendEntry(ctx context.Context, entry *entity.CreditTransaction) error {
	entryModel := r.entryToModel(entry)
	result := r.db.WithContext(ctx).Create(&entryModel)
	if result.Error != nil {
		if r.errorClassifier.IsDuplicateKeyError(result.Error) {
			return errs.ErrDuplicateCredit
		}
		r.logger.Error("Failed to append ledger entry", map[string]any{
			"entry_id": entry.ID,
			"user_id":  entry.UserID,
			"error":    result.Error.Error(),
		})
		return fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}
	return nil
}

// FindBySourceTransaction returns the credit entry recorded for a payment
// transaction, if any
func (r *LedgerRepository) FindBySourceTransaction(ctx context.Context, sourceTransactionID string) (*entity.CreditTransaction, error) {
	var entryModel model.LedgerEntry
	result := r.db.WithContext(ctx).
		Where("source_transaction_id = ?", sourceTransactionID).
		First(&entryModel)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errs.ErrTransactionNotFound
		}
		r.logger.Error("Failed to find ledger entry by source transaction", map[string]any{
			"source_transaction_id": sourceTransactionID,
			"error":                 result.Error.Error(),
		})
		return nil, fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}
	return r.modelToEntry(&entryModel), nil
}

// ListByUser returns a user's ledger entries newest first
func (r *LedgerRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*entity.CreditTransaction, error) {
	var models []model.LedgerEntry
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp DESC").
		Limit(limit).
		Offset(offset).
		Find(&models)
	if result.Error != nil {
		r.logger.Error("Failed to list ledger entries", map[string]any{
			"user_id": userID,
			"error":   result.Error.Error(),
		})
		return nil, fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}

	entries := make([]*entity.CreditTransaction, 0, len(models))
	for i := range models {
		entries = append(entries, r.modelToEntry(&models[i]))
	}
	return entries, nil
}

// SumByUser recomputes the balance from the ledger
func (r *LedgerRepository) SumByUser(ctx context.Context, userID string) (int64, error) {
	var sum int64
	result := r.db.WithContext(ctx).Model(&model.LedgerEntry{}).
		Select("COALESCE(SUM(CASE WHEN entry_type = ? THEN -amount ELSE amount END), 0)", string(entity.EntryDebit)).
		Where("user_id = ?", userID).
		Scan(&sum)
	if result.Error != nil {
		r.logger.Error("Failed to sum ledger entries", map[string]any{
			"user_id": userID,
			"error":   result.Error.Error(),
		})
		return 0, fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}
	return sum, nil
}
