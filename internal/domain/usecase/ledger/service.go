package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/rica-io/payment-engine/internal/domain/entity"
	errs "github.com/rica-io/payment-engine/internal/domain/error"
	coreport "github.com/rica-io/payment-engine/internal/domain/port/core"
	"github.com/rica-io/payment-engine/internal/domain/port/persistence"
)

// Service is the only component allowed to mutate a credit balance. Every
// mutation appends a ledger row and updates the cached projection inside one
// database transaction, serialized per user.
type Service struct {
	uow          persistence.UnitOfWork
	timeProvider coreport.TimeProvider
	logger       coreport.Logger

	// per-user serialization point; two users' operations proceed fully in
	// parallel
	userLocks sync.Map // map[string]*sync.Mutex
}

// NewService creates a ledger service
func NewService(uow persistence.UnitOfWork, timeProvider coreport.TimeProvider, logger coreport.Logger) *Service {
	return &Service{
		uow:          uow,
		timeProvider: timeProvider,
		logger:       logger,
	}
}

// Credit appends a purchase entry and raises the balance, keyed by the
// payment transaction id. Calling it again for the same transaction returns
// the original entry and changes nothing.
func (s *Service) Credit(ctx context.Context, userID string, amount int64, sourceTransactionID string) (*entity.CreditTransaction, error) {
	if userID == "" {
		return nil, errs.ErrInvalidUserID
	}
	if amount <= 0 {
		return nil, errs.ErrNegativeAmount
	}
	if sourceTransactionID == "" {
		return nil, fmt.Errorf("%w: source transaction id required", errs.ErrInvalidRequest)
	}

	mu := s.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()

	txCtx, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	ledgerRepo := s.uow.GetLedgerRepository(txCtx)

	// Idempotency: one credit entry per source transaction, ever.
	existing, err := ledgerRepo.FindBySourceTransaction(txCtx, sourceTransactionID)
	if err == nil {
		_ = s.uow.Rollback(txCtx)
		s.logger.Info("Credit already recorded, returning existing entry", map[string]any{
			"user_id":               userID,
			"source_transaction_id": sourceTransactionID,
			"entry_id":              existing.ID,
		})
		return existing, nil
	}
	if !errors.Is(err, errs.ErrTransactionNotFound) {
		_ = s.uow.Rollback(txCtx)
		return nil, err
	}

	account, err := s.loadOrCreateAccount(txCtx, ledgerRepo, userID)
	if err != nil {
		_ = s.uow.Rollback(txCtx)
		return nil, err
	}

	if err := account.ApplyCredit(amount, s.timeProvider); err != nil {
		_ = s.uow.Rollback(txCtx)
		return nil, err
	}

	entry, err := entity.NewCreditEntry(uuid.NewString(), userID, amount, sourceTransactionID, account.Balance(), s.timeProvider)
	if err != nil {
		_ = s.uow.Rollback(txCtx)
		return nil, err
	}

	if err := ledgerRepo.AppendEntry(txCtx, entry); err != nil {
		_ = s.uow.Rollback(txCtx)
		// Lost a race with another process crediting the same transaction;
		// the unique index makes the duplicate harmless.
		if errors.Is(err, errs.ErrDuplicateCredit) {
			return s.uow.GetLedgerRepository(ctx).FindBySourceTransaction(ctx, sourceTransactionID)
		}
		return nil, err
	}
	if err := ledgerRepo.SaveAccount(txCtx, account); err != nil {
		_ = s.uow.Rollback(txCtx)
		return nil, err
	}
	if err := s.uow.Commit(txCtx); err != nil {
		return nil, err
	}

	s.logger.Info("Credits added", map[string]any{
		"user_id":               userID,
		"amount":                amount,
		"balance":               account.Balance(),
		"source_transaction_id": sourceTransactionID,
	})
	return entry, nil
}

// Debit appends a consumption entry and lowers the balance, atomically and
// only if the balance covers the amount. Insufficient balance is a normal
// user-visible condition, not a fault.
func (s *Service) Debit(ctx context.Context, userID string, amount int64, feature string) (*entity.CreditTransaction, error) {
	if userID == "" {
		return nil, errs.ErrInvalidUserID
	}
	if amount <= 0 {
		return nil, errs.ErrNegativeAmount
	}

	mu := s.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()

	txCtx, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	ledgerRepo := s.uow.GetLedgerRepository(txCtx)

	account, err := ledgerRepo.GetAccount(txCtx, userID)
	if err != nil {
		_ = s.uow.Rollback(txCtx)
		if errors.Is(err, errs.ErrAccountNotFound) {
			return nil, errs.NewInsufficientBalanceError(userID, amount, 0, feature)
		}
		return nil, err
	}

	if account.Balance() < amount {
		_ = s.uow.Rollback(txCtx)
		return nil, errs.NewInsufficientBalanceError(userID, amount, account.Balance(), feature)
	}
	if err := account.ApplyDebit(amount, s.timeProvider); err != nil {
		_ = s.uow.Rollback(txCtx)
		return nil, err
	}

	entry, err := entity.NewDebitEntry(uuid.NewString(), userID, amount, feature, account.Balance(), s.timeProvider)
	if err != nil {
		_ = s.uow.Rollback(txCtx)
		return nil, err
	}

	if err := ledgerRepo.AppendEntry(txCtx, entry); err != nil {
		_ = s.uow.Rollback(txCtx)
		return nil, err
	}
	if err := ledgerRepo.SaveAccount(txCtx, account); err != nil {
		_ = s.uow.Rollback(txCtx)
		return nil, err
	}
	if err := s.uow.Commit(txCtx); err != nil {
		return nil, err
	}

	s.logger.Info("Credits consumed", map[string]any{
		"user_id": userID,
		"amount":  amount,
		"feature": feature,
		"balance": account.Balance(),
	})
	return entry, nil
}

// Balance returns the cached balance projection. Users without an account
// simply have zero credits.
func (s *Service) Balance(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, errs.ErrInvalidUserID
	}
	repo := s.uow.GetLedgerRepository(ctx)
	account, err := repo.GetAccount(ctx, userID)
	if err != nil {
		if errors.Is(err, errs.ErrAccountNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return account.Balance(), nil
}

// History returns the user's ledger entries newest first. Limit and offset
// make the sequence finite and restartable.
func (s *Service) History(ctx context.Context, userID string, limit, offset int) ([]*entity.CreditTransaction, error) {
	if userID == "" {
		return nil, errs.ErrInvalidUserID
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	repo := s.uow.GetLedgerRepository(ctx)
	return repo.ListByUser(ctx, userID, limit, offset)
}

// VerifyBalance recomputes the balance from the ledger and compares it with
// the cached projection. A mismatch is a fatal integrity error needing
// manual reconciliation; it is reported, never repaired here.
func (s *Service) VerifyBalance(ctx context.Context, userID string) error {
	repo := s.uow.GetLedgerRepository(ctx)

	account, err := repo.GetAccount(ctx, userID)
	if err != nil {
		if errors.Is(err, errs.ErrAccountNotFound) {
			return nil
		}
		return err
	}
	sum, err := repo.SumByUser(ctx, userID)
	if err != nil {
		return err
	}
	if sum != account.Balance() {
		incErr := &errs.LedgerInconsistencyError{
			UserID:        userID,
			CachedBalance: account.Balance(),
			LedgerSum:     sum,
			DetectedAt:    s.timeProvider.Now(),
		}
		s.logger.Error("Ledger inconsistency detected", incErr.LogFields())
		return incErr
	}
	return nil
}

// loadOrCreateAccount fetches the user's account, creating an empty one on
// first credit
func (s *Service) loadOrCreateAccount(ctx context.Context, repo persistence.LedgerRepository, userID string) (*entity.CreditAccount, error) {
	account, err := repo.GetAccount(ctx, userID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, errs.ErrAccountNotFound) {
		return nil, err
	}
	return entity.NewCreditAccount(userID, s.timeProvider)
}

func (s *Service) lockFor(userID string) *sync.Mutex {
	mu, _ := s.userLocks.LoadOrStore(userID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}
