package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rica-io/payment-engine/internal/domain/entity"
	errs "github.com/rica-io/payment-engine/internal/domain/error"
	coreport "github.com/rica-io/payment-engine/internal/domain/port/core"
	"github.com/rica-io/payment-engine/internal/infrastructure/adapter/model"
	"gorm.io/gorm"
)

// TransactionRepository implements the TransactionRepository port using GORM
type TransactionRepository struct {
	db              *gorm.DB
	logger          coreport.Logger
	errorClassifier *ErrorClassifier
}

// NewTransactionRepository creates a new TransactionRepository instance
func NewTransactionRepository(db *gorm.DB, logger coreport.Logger) *TransactionRepository {
	return &TransactionRepository{
		db:              db,
		logger:          logger,
		errorClassifier: NewErrorClassifier(),
	}
}

// entityToModel converts a transaction entity to a database model
func (r *TransactionRepository) entityToModel(txn *entity.Transaction) model.Transaction {
	return model.Transaction{
		ID:            txn.ID,
		UserID:        txn.UserID,
		GatewayRef:    txn.GatewayRef,
		Amount:        txn.Amount,
		AmountCents:   txn.AmountCents,
		Currency:      string(txn.Currency),
		Method:        string(txn.Method),
		PhoneNumber:   txn.PhoneNumber,
		Purpose:       string(txn.Purpose),
		PurposeRef:    txn.PurposeRef,
		Status:        string(txn.Status),
		FailureReason: txn.FailureReason,
		CreatedAt:     txn.CreatedAt,
		LastPolledAt:  txn.LastPolledAt,
		TerminalAt:    txn.TerminalAt,
	}
}

// modelToEntity converts a transaction model to an entity
func (r *TransactionRepository) modelToEntity(m *model.Transaction) *entity.Transaction {
	return &entity.Transaction{
		ID:            m.ID,
		UserID:        m.UserID,
		GatewayRef:    m.GatewayRef,
		Amount:        m.Amount,
		AmountCents:   m.AmountCents,
		Currency:      entity.Currency(m.Currency),
		Method:        entity.PaymentMethod(m.Method),
		PhoneNumber:   m.PhoneNumber,
		Purpose:       entity.TransactionPurpose(m.Purpose),
		PurposeRef:    m.PurposeRef,
		Status:        entity.TransactionStatus(m.Status),
		FailureReason: m.FailureReason,
		CreatedAt:     m.CreatedAt,
		LastPolledAt:  m.LastPolledAt,
		TerminalAt:    m.TerminalAt,
	}
}

// Create saves a new pending transaction
func (r *TransactionRepository) Create(ctx context.Context, txn *entity.Transaction) error {
	r.logger.Debug("Creating transaction", map[string]any{
		"transaction_id": txn.ID,
		"user_id":        txn.UserID,
	})

	txnModel := r.entityToModel(txn)
	result := r.db.WithContext(ctx).Create(&txnModel)
	if result.Error != nil {
		if r.errorClassifier.IsDuplicateKeyError(result.Error) {
			r.logger.Warn("Duplicate transaction id", map[string]any{
				"transaction_id": txn.ID,
			})
			return fmt.Errorf("%w: transaction %s already exists", errs.ErrInvalidRequest, txn.ID)
		}
		r.logger.Error("Failed to create transaction", map[string]any{
			"transaction_id": txn.ID,
			"error":          result.Error.Error(),
		})
		return fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}
	return nil
}

// Update persists status, gateway ref and poll/terminal timestamps
func (r *TransactionRepository) Update(ctx context.Context, txn *entity.Transaction) error {
	txnModel := r.entityToModel(txn)

	result := r.db.WithContext(ctx).Model(&model.Transaction{}).
		Where("id = ?", txn.ID).
		Updates(map[string]interface{}{
			"gateway_ref":    txnModel.GatewayRef,
			"status":         txnModel.Status,
			"failure_reason": txnModel.FailureReason,
			"last_polled_at": txnModel.LastPolledAt,
			"terminal_at":    txnModel.TerminalAt,
		})

	if result.Error != nil {
		r.logger.Error("Failed to update transaction", map[string]any{
			"transaction_id": txn.ID,
			"error":          result.Error.Error(),
		})
		return fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}
	if result.RowsAffected == 0 {
		return errs.ErrTransactionNotFound
	}
	return nil
}

// GetByID retrieves a transaction by its id
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*entity.Transaction, error) {
	var txnModel model.Transaction
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&txnModel)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errs.ErrTransactionNotFound
		}
		r.logger.Error("Failed to get transaction", map[string]any{
			"transaction_id": id,
			"error":          result.Error.Error(),
		})
		return nil, fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}
	return r.modelToEntity(&txnModel), nil
}

// ListPending returns up to limit pending transactions, oldest first
func (r *TransactionRepository) ListPending(ctx context.Context, limit int) ([]*entity.Transaction, error) {
	var models []model.Transaction
	result := r.db.WithContext(ctx).
		Where("status = ?", string(entity.StatusPending)).
		Order("created_at ASC").
		Limit(limit).
		Find(&models)
	if result.Error != nil {
		r.logger.Error("Failed to list pending transactions", map[string]any{
			"error": result.Error.Error(),
		})
		return nil, fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}

	transactions := make([]*entity.Transaction, 0, len(models))
	for i := range models {
		transactions = append(transactions, r.modelToEntity(&models[i]))
	}
	return transactions, nil
}

// LatestCompletedForPurpose returns the most recent completed transaction for
// a purpose ref whose terminal time is after the given instant
func (r *TransactionRepository) LatestCompletedForPurpose(ctx context.Context, purpose entity.TransactionPurpose, purposeRef string, after time.Time) (*entity.Transaction, error) {
	var txnModel model.Transaction
	result := r.db.WithContext(ctx).
		Where("purpose = ? AND purpose_ref = ? AND status = ? AND terminal_at > ?",
			string(purpose), purposeRef, string(entity.StatusCompleted), after).
		Order("terminal_at DESC").
		First(&txnModel)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errs.ErrTransactionNotFound
		}
		r.logger.Error("Failed to query completed transactions", map[string]any{
			"purpose_ref": purposeRef,
			"error":       result.Error.Error(),
		})
		return nil, fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}
	return r.modelToEntity(&txnModel), nil
}
