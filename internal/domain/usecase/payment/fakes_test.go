package payment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rica-io/payment-engine/internal/domain/entity"
	errs "github.com/rica-io/payment-engine/internal/domain/error"
	gatewayport "github.com/rica-io/payment-engine/internal/domain/port/gateway"
)

// fakeClock is a hand-controlled, concurrency-safe time source
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

func (c *fakeClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.Advance(d)
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) WithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithCancel(ctx)
}

// memTransactionRepo stores transactions by id. Reads return copies so the
// caller mutating a record without Update does not leak into the store,
// matching database semantics.
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

// fakeGateway returns scripted responses and counts calls
type fakeGateway struct {
	mu sync.Mutex

	initErr   error
	pollErr   error
	status    gatewayport.Status
	message   string
	initCalls int
	pollCalls int
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

func (g *fakeGateway) setErrors(initErr, pollErr error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.initErr = initErr
	g.pollErr = pollErr
}

func (g *fakeGateway) Initiate(ctx context.Context, req gatewayport.InitiateRequest) (*gatewayport.InitiateResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.initCalls++
	if g.initErr != nil {
		return nil, g.initErr
	}
	return &gatewayport.InitiateResponse{
		GatewayRef: "CP-" + req.Reference,
		Status:     gatewayport.StatusPending,
	}, nil
}

func (g *fakeGateway) PollStatus(ctx context.Context, gatewayRef string) (*gatewayport.StatusResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pollCalls++
	if g.pollErr != nil {
		return nil, g.pollErr
	}
	return &gatewayport.StatusResponse{Status: g.status, Message: g.message}, nil
}

// parkedGateway accepts initiations immediately but blocks every status
// poll until released
type parkedGateway struct {
	entered chan struct{}
	release chan struct{}
}

func newParkedGateway() *parkedGateway {
	return &parkedGateway{
		entered: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
}

func (g *parkedGateway) Initiate(ctx context.Context, req gatewayport.InitiateRequest) (*gatewayport.InitiateResponse, error) {
	return &gatewayport.InitiateResponse{
		GatewayRef: "CP-" + req.Reference,
		Status:     gatewayport.StatusPending,
	}, nil
}

func (g *parkedGateway) PollStatus(ctx context.Context, gatewayRef string) (*gatewayport.StatusResponse, error) {
	g.entered <- struct{}{}
	<-g.release
	return &gatewayport.StatusResponse{Status: gatewayport.StatusPending}, nil
}

// countingHook records every terminal notification it receives
type countingHook struct {
	mu   sync.Mutex
	txns []*entity.Transaction
}

func (h *countingHook) OnTransactionTerminal(ctx context.Context, txn *entity.Transaction) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.txns = append(h.txns, txn)
}

func (h *countingHook) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.txns)
}

func (h *countingHook) last() *entity.Transaction {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.txns) == 0 {
		return nil
	}
	return h.txns[len(h.txns)-1]
}
