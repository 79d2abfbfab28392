package subscription

import (
	"context"
	"sync"
	"time"

	"github.com/rica-io/payment-engine/internal/domain/entity"
	errs "github.com/rica-io/payment-engine/internal/domain/error"
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

// memSubscriptionRepo stores subscriptions by id, returning copies on reads
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

// memTransactionRepo only implements what the subscription service reads:
// the latest completed payment backing a renewal
type memTransactionRepo struct {
	mu   sync.Mutex
	rows []entity.Transaction
}

func newMemTransactionRepo() *memTransactionRepo {
	return &memTransactionRepo{}
}

func (r *memTransactionRepo) addCompleted(purposeRef string, terminalAt time.Time) {
	r.addCompletedWithID("txn-"+purposeRef, purposeRef, terminalAt)
}

func (r *memTransactionRepo) addCompletedWithID(id, purposeRef string, terminalAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, entity.Transaction{
		ID:         id,
		UserID:     "user-1",
		Purpose:    entity.PurposeSubscriptionPayment,
		PurposeRef: purposeRef,
		Status:     entity.StatusCompleted,
		TerminalAt: &terminalAt,
	})
}

func (r *memTransactionRepo) Create(ctx context.Context, txn *entity.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, *txn)
	return nil
}

func (r *memTransactionRepo) Update(ctx context.Context, txn *entity.Transaction) error {
	return nil
}

func (r *memTransactionRepo) GetByID(ctx context.Context, id string) (*entity.Transaction, error) {
	return nil, errs.ErrTransactionNotFound
}

func (r *memTransactionRepo) ListPending(ctx context.Context, limit int) ([]*entity.Transaction, error) {
	return nil, nil
}

func (r *memTransactionRepo) LatestCompletedForPurpose(ctx context.Context, purpose entity.TransactionPurpose, purposeRef string, after time.Time) (*entity.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *entity.Transaction
	for i := range r.rows {
		row := r.rows[i]
		if row.Purpose != purpose || row.PurposeRef != purposeRef || row.Status != entity.StatusCompleted {
			continue
		}
		if row.TerminalAt == nil || !row.TerminalAt.After(after) {
			continue
		}
		if latest == nil || row.TerminalAt.After(*latest.TerminalAt) {
			copied := row
			latest = &copied
		}
	}
	if latest == nil {
		return nil, errs.ErrTransactionNotFound
	}
	return latest, nil
}
