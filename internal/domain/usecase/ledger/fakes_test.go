package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rica-io/payment-engine/internal/domain/entity"
	errs "github.com/rica-io/payment-engine/internal/domain/error"
	"github.com/rica-io/payment-engine/internal/domain/port/persistence"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Since(t time.Time) time.Duration { return c.Now().Sub(t) }
func (c *fakeClock) Sleep(d time.Duration)           {}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) WithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithCancel(ctx)
}

// memLedgerRepo keeps accounts and ledger entries in memory. forceFindMisses
// makes the next N FindBySourceTransaction calls report not-found even when
// the entry exists, to script the race where another writer appends first.
type memLedgerRepo struct {
	mu              sync.Mutex
	accounts        map[string]*entity.CreditAccount
	entries         []*entity.CreditTransaction
	bySource        map[string]*entity.CreditTransaction
	forceFindMisses int
}

func newMemLedgerRepo() *memLedgerRepo {
	return &memLedgerRepo{
		accounts: make(map[string]*entity.CreditAccount),
		bySource: make(map[string]*entity.CreditTransaction),
	}
}

func (r *memLedgerRepo) GetAccount(ctx context.Context, userID string) (*entity.CreditAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[userID]
	if !ok {
		return nil, errs.ErrAccountNotFound
	}
	return entity.RestoreCreditAccount(account.UserID, account.Balance(), account.CreatedAt, account.UpdatedAt), nil
}

func (r *memLedgerRepo) SaveAccount(ctx context.Context, account *entity.CreditAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[account.UserID] = entity.RestoreCreditAccount(account.UserID, account.Balance(), account.CreatedAt, account.UpdatedAt)
	return nil
}

func (r *memLedgerRepo) AppendEntry(ctx context.Context, entry *entity.CreditTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.SourceTransactionID != "" {
		if _, ok := r.bySource[entry.SourceTransactionID]; ok {
			return errs.ErrDuplicateCredit
		}
		r.bySource[entry.SourceTransactionID] = entry
	}
	r.entries = append(r.entries, entry)
	return nil
}

func (r *memLedgerRepo) FindBySourceTransaction(ctx context.Context, sourceTransactionID string) (*entity.CreditTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.forceFindMisses > 0 {
		r.forceFindMisses--
		return nil, errs.ErrTransactionNotFound
	}
	entry, ok := r.bySource[sourceTransactionID]
	if !ok {
		return nil, errs.ErrTransactionNotFound
	}
	return entry, nil
}

func (r *memLedgerRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*entity.CreditTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*entity.CreditTransaction
	for _, entry := range r.entries {
		if entry.UserID == userID {
			all = append(all, entry)
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Timestamp.After(all[j].Timestamp) })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *memLedgerRepo) SumByUser(ctx context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum int64
	for _, entry := range r.entries {
		if entry.UserID == userID {
			sum += entry.SignedAmount()
		}
	}
	return sum, nil
}

// fakeUnitOfWork hands out the shared in-memory repos. Commit and rollback
// only count calls; the per-user lock in the service provides the isolation
// the real database transaction would.
type fakeUnitOfWork struct {
	ledger *memLedgerRepo

	mu        sync.Mutex
	commits   int
	rollbacks int
	beginErr  error
}

func newFakeUnitOfWork() *fakeUnitOfWork {
	return &fakeUnitOfWork{ledger: newMemLedgerRepo()}
}

func (u *fakeUnitOfWork) Begin(ctx context.Context) (context.Context, error) {
	if u.beginErr != nil {
		return nil, u.beginErr
	}
	return ctx, nil
}

func (u *fakeUnitOfWork) Commit(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.commits++
	return nil
}

func (u *fakeUnitOfWork) Rollback(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.rollbacks++
	return nil
}

func (u *fakeUnitOfWork) GetTransactionRepository(ctx context.Context) persistence.TransactionRepository {
	return nil
}

func (u *fakeUnitOfWork) GetLedgerRepository(ctx context.Context) persistence.LedgerRepository {
	return u.ledger
}

func (u *fakeUnitOfWork) GetSubscriptionRepository(ctx context.Context) persistence.SubscriptionRepository {
	return nil
}
