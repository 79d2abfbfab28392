package reconcile

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rica-io/payment-engine/internal/domain/entity"
	errs "github.com/rica-io/payment-engine/internal/domain/error"
	gatewayport "github.com/rica-io/payment-engine/internal/domain/port/gateway"
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

type memTransactionRepo struct {
	mu   sync.Mutex
	rows map[string]entity.Transaction
}

func newMemTransactionRepo() *memTransactionRepo {
	return &memTransactionRepo{rows: make(map[string]entity.Transaction)}
}

func (r *memTransactionRepo) Create(ctx context.Context, txn *entity.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[txn.ID]; ok {
		return fmt.Errorf("%w: duplicate transaction id", errs.ErrInvalidRequest)
	}
	r.rows[txn.ID] = *txn
	return nil
}

func (r *memTransactionRepo) Update(ctx context.Context, txn *entity.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[txn.ID]; !ok {
		return errs.ErrTransactionNotFound
	}
	r.rows[txn.ID] = *txn
	return nil
}

func (r *memTransactionRepo) GetByID(ctx context.Context, id string) (*entity.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, errs.ErrTransactionNotFound
	}
	copied := row
	return &copied, nil
}

func (r *memTransactionRepo) ListPending(ctx context.Context, limit int) ([]*entity.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Transaction
	for _, row := range r.rows {
		if row.Status == entity.StatusPending && len(out) < limit {
			copied := row
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memTransactionRepo) LatestCompletedForPurpose(ctx context.Context, purpose entity.TransactionPurpose, purposeRef string, after time.Time) (*entity.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *entity.Transaction
	for _, row := range r.rows {
		if row.Purpose != purpose || row.PurposeRef != purposeRef || row.Status != entity.StatusCompleted {
			continue
		}
		if row.TerminalAt == nil || !row.TerminalAt.After(after) {
			continue
		}
		copied := row
		if latest == nil || copied.TerminalAt.After(*latest.TerminalAt) {
			latest = &copied
		}
	}
	if latest == nil {
		return nil, errs.ErrTransactionNotFound
	}
	return latest, nil
}

type memSubscriptionRepo struct {
	mu   sync.Mutex
	rows map[string]entity.Subscription
}

func newMemSubscriptionRepo() *memSubscriptionRepo {
	return &memSubscriptionRepo{rows: make(map[string]entity.Subscription)}
}

func (r *memSubscriptionRepo) Create(ctx context.Context, sub *entity.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[sub.ID] = *sub
	return nil
}

func (r *memSubscriptionRepo) Update(ctx context.Context, sub *entity.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[sub.ID]; !ok {
		return errs.ErrSubscriptionNotFound
	}
	r.rows[sub.ID] = *sub
	return nil
}

func (r *memSubscriptionRepo) GetByID(ctx context.Context, id string) (*entity.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, errs.ErrSubscriptionNotFound
	}
	copied := row
	return &copied, nil
}

func (r *memSubscriptionRepo) GetLiveByUser(ctx context.Context, userID string) (*entity.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.UserID == userID && row.IsLive() {
			copied := row
			return &copied, nil
		}
	}
	return nil, errs.ErrSubscriptionNotFound
}

func (r *memSubscriptionRepo) GetLatestByUser(ctx context.Context, userID string) (*entity.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *entity.Subscription
	for _, row := range r.rows {
		if row.UserID != userID {
			continue
		}
		copied := row
		if latest == nil || copied.CreatedAt.After(latest.CreatedAt) {
			latest = &copied
		}
	}
	if latest == nil {
		return nil, errs.ErrSubscriptionNotFound
	}
	return latest, nil
}

func (r *memSubscriptionRepo) ListLapsed(ctx context.Context, at time.Time, limit int) ([]*entity.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Subscription
	for _, row := range r.rows {
		lapsable := row.Status == entity.SubscriptionActive || row.Status == entity.SubscriptionCancelled
		if lapsable && !row.CurrentPeriodEnd.After(at) && len(out) < limit {
			copied := row
			out = append(out, &copied)
		}
	}
	return out, nil
}

type memLedgerRepo struct {
	mu       sync.Mutex
	accounts map[string]*entity.CreditAccount
	entries  []*entity.CreditTransaction
	bySource map[string]*entity.CreditTransaction
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

type fakeUnitOfWork struct {
	ledger *memLedgerRepo
}

func (u *fakeUnitOfWork) Begin(ctx context.Context) (context.Context, error) { return ctx, nil }
func (u *fakeUnitOfWork) Commit(ctx context.Context) error                   { return nil }
func (u *fakeUnitOfWork) Rollback(ctx context.Context) error                 { return nil }

func (u *fakeUnitOfWork) GetTransactionRepository(ctx context.Context) persistence.TransactionRepository {
	return nil
}

func (u *fakeUnitOfWork) GetLedgerRepository(ctx context.Context) persistence.LedgerRepository {
	return u.ledger
}

func (u *fakeUnitOfWork) GetSubscriptionRepository(ctx context.Context) persistence.SubscriptionRepository {
	return nil
}

// fakeGateway returns a scripted status for every transaction
type fakeGateway struct {
	mu      sync.Mutex
	status  gatewayport.Status
	message string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{status: gatewayport.StatusPending}
}

func (g *fakeGateway) setStatus(status gatewayport.Status, message string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.status = status
	g.message = message
}

func (g *fakeGateway) Initiate(ctx context.Context, req gatewayport.InitiateRequest) (*gatewayport.InitiateResponse, error) {
	return &gatewayport.InitiateResponse{
		GatewayRef: "CP-" + req.Reference,
		Status:     gatewayport.StatusPending,
	}, nil
}

func (g *fakeGateway) PollStatus(ctx context.Context, gatewayRef string) (*gatewayport.StatusResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return &gatewayport.StatusResponse{Status: g.status, Message: g.message}, nil
}
