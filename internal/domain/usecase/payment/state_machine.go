package payment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rica-io/payment-engine/internal/domain/entity"
	errs "github.com/rica-io/payment-engine/internal/domain/error"
	coreport "github.com/rica-io/payment-engine/internal/domain/port/core"
	gatewayport "github.com/rica-io/payment-engine/internal/domain/port/gateway"
	"github.com/rica-io/payment-engine/internal/domain/port/persistence"
)

// TerminalHook receives each transaction exactly once when it reaches a
// terminal status. The reconciliation coordinator implements it.
type TerminalHook interface {
	OnTransactionTerminal(ctx context.Context, txn *entity.Transaction)
}

// Config bounds the polling behavior of the state machine
type Config struct {
	// MaxPollWindow is how long a transaction may stay pending before it is
	// forced to failed with reason "timeout"
	MaxPollWindow time.Duration
	// GatewayCallTimeout caps each individual gateway call, independent of
	// the overall poll window
	GatewayCallTimeout time.Duration
}

// StateMachine owns the payment transaction lifecycle: it creates pending
// transactions, polls the gateway for their fate and performs the single
// transition into a terminal state under a per-transaction lock.
type StateMachine struct {
	transactionRepo persistence.TransactionRepository
	gateway         gatewayport.Client
	timeProvider    coreport.TimeProvider
	logger          coreport.Logger
	config          Config

	hook TerminalHook

	// one lock per in-flight transaction so concurrent polls cannot both
	// win the transition
	locks sync.Map // map[string]*sync.Mutex
}

// NewStateMachine creates a transaction state machine
func NewStateMachine(
	transactionRepo persistence.TransactionRepository,
	gatewayClient gatewayport.Client,
	timeProvider coreport.TimeProvider,
	logger coreport.Logger,
	config Config,
) *StateMachine {
	if config.MaxPollWindow <= 0 {
		config.MaxPollWindow = 15 * time.Minute
	}
	if config.GatewayCallTimeout <= 0 {
		config.GatewayCallTimeout = 8 * time.Second
	}
	return &StateMachine{
		transactionRepo: transactionRepo,
		gateway:         gatewayClient,
		timeProvider:    timeProvider,
		logger:          logger,
		config:          config,
	}
}

// SetTerminalHook registers the completion hook. Must be called before any
// transaction can complete; kept separate from the constructor because the
// coordinator and the state machine reference each other.
func (m *StateMachine) SetTerminalHook(hook TerminalHook) {
	m.hook = hook
}

// InitiateRequest carries everything needed to open a payment attempt
type InitiateRequest struct {
	UserID      string
	AmountCents int64
	Currency    entity.Currency
	Method      entity.PaymentMethod
	PhoneNumber string
	Purpose     entity.TransactionPurpose
	PurposeRef  string
	Description string
}

// Initiate creates a pending transaction and asks the gateway to start the
// payment. The transaction is persisted before the gateway is contacted, so
// a gateway outage leaves a pending record that the poll sweep retries; it
// is never a terminal outcome here.
func (m *StateMachine) Initiate(ctx context.Context, req InitiateRequest) (*entity.Transaction, error) {
	txn, err := entity.NewTransaction(
		newTransactionID(m.timeProvider),
		req.UserID,
		req.AmountCents,
		req.Currency,
		req.Method,
		req.PhoneNumber,
		req.Purpose,
		req.PurposeRef,
		m.timeProvider,
	)
	if err != nil {
		return nil, err
	}

	if err := m.transactionRepo.Create(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to persist transaction: %w", err)
	}

	m.logger.Info("Payment transaction initiated", map[string]any{
		"transaction_id": txn.ID,
		"user_id":        txn.UserID,
		"amount":         txn.Amount,
		"currency":       txn.Currency,
		"method":         txn.Method,
		"purpose":        txn.Purpose,
	})

	if err := m.startAtGateway(ctx, txn); err != nil {
		m.logger.Warn("Gateway initiation deferred to poll sweep", map[string]any{
			"transaction_id": txn.ID,
			"error":          err.Error(),
		})
	}
	return txn, nil
}

// Get returns the current transaction record
func (m *StateMachine) Get(ctx context.Context, transactionID string) (*entity.Transaction, error) {
	return m.transactionRepo.GetByID(ctx, transactionID)
}

// Poll fetches the gateway status for a pending transaction and applies the
// transition rule. Polling an already-terminal transaction is a no-op that
// returns the stored record. The gateway call happens outside the
// per-transaction lock; the lock only guards the reload-check-transition
// window.
func (m *StateMachine) Poll(ctx context.Context, transactionID string) (*entity.Transaction, error) {
	txn, err := m.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if txn.IsTerminal() {
		return txn, nil
	}

	now := m.timeProvider.Now()

	// No gateway ref yet means the initiation call never got through.
	// Retry it before the status poll; give up only when the window lapses.
	if txn.GatewayRef == "" {
		if txn.PollWindowExpired(now, m.config.MaxPollWindow) {
			return m.transition(ctx, transactionID, gatewayport.StatusFailed, entity.FailureReasonTimeout)
		}
		if err := m.startAtGateway(ctx, txn); err != nil {
			return txn, nil
		}
	}

	status, message, pollErr := m.pollGateway(ctx, txn.GatewayRef)
	if pollErr != nil {
		m.logger.Warn("Gateway poll failed, will retry", map[string]any{
			"transaction_id": transactionID,
			"gateway_ref":    txn.GatewayRef,
			"error":          pollErr.Error(),
		})
		if txn.PollWindowExpired(m.timeProvider.Now(), m.config.MaxPollWindow) {
			return m.transition(ctx, transactionID, gatewayport.StatusFailed, entity.FailureReasonTimeout)
		}
		return txn, nil
	}

	if status == gatewayport.StatusPending && txn.PollWindowExpired(m.timeProvider.Now(), m.config.MaxPollWindow) {
		status, message = gatewayport.StatusFailed, entity.FailureReasonTimeout
	}

	return m.transition(ctx, transactionID, status, message)
}

// startAtGateway performs the gateway initiation call with its own timeout
// and records the returned gateway ref
func (m *StateMachine) startAtGateway(ctx context.Context, txn *entity.Transaction) error {
	callCtx, cancel := m.timeProvider.WithTimeout(ctx, m.config.GatewayCallTimeout)
	defer cancel()

	resp, err := m.gateway.Initiate(callCtx, gatewayport.InitiateRequest{
		Reference:   txn.ID,
		Amount:      txn.Amount,
		Currency:    txn.Currency,
		Method:      txn.Method,
		PhoneNumber: txn.PhoneNumber,
		Description: string(txn.Purpose),
	})
	if err != nil {
		return fmt.Errorf("%w: %s", errs.ErrGatewayUnavailable, err.Error())
	}

	mu := m.lockFor(txn.ID)
	mu.Lock()
	defer mu.Unlock()

	current, err := m.transactionRepo.GetByID(ctx, txn.ID)
	if err != nil {
		return err
	}
	if current.IsTerminal() || current.GatewayRef != "" {
		*txn = *current
		return nil
	}
	if err := current.AttachGatewayRef(resp.GatewayRef); err != nil {
		return err
	}
	current.MarkPolled(m.timeProvider)
	if err := m.transactionRepo.Update(ctx, current); err != nil {
		return err
	}
	*txn = *current

	m.logger.Debug("Gateway accepted payment request", map[string]any{
		"transaction_id": txn.ID,
		"gateway_ref":    resp.GatewayRef,
		"status":         resp.Status,
	})
	return nil
}

// pollGateway performs one status call with the call-level timeout
func (m *StateMachine) pollGateway(ctx context.Context, gatewayRef string) (gatewayport.Status, string, error) {
	callCtx, cancel := m.timeProvider.WithTimeout(ctx, m.config.GatewayCallTimeout)
	defer cancel()

	resp, err := m.gateway.PollStatus(callCtx, gatewayRef)
	if err != nil {
		return gatewayport.StatusPending, "", fmt.Errorf("%w: %s", errs.ErrGatewayUnavailable, err.Error())
	}
	return resp.Status, resp.Message, nil
}

// transition applies a normalized gateway status under the per-transaction
// lock. Exactly one caller observes the pending record and performs the
// terminal transition plus the hook; everyone else sees the stored terminal
// record and does nothing.
func (m *StateMachine) transition(ctx context.Context, transactionID string, status gatewayport.Status, message string) (*entity.Transaction, error) {
	mu := m.lockFor(transactionID)
	mu.Lock()

	txn, err := m.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		mu.Unlock()
		return nil, err
	}
	if txn.IsTerminal() {
		mu.Unlock()
		return txn, nil
	}

	txn.MarkPolled(m.timeProvider)

	terminal := false
	switch status {
	case gatewayport.StatusCompleted:
		err = txn.MarkCompleted(m.timeProvider)
		terminal = true
	case gatewayport.StatusFailed:
		err = txn.MarkFailed(m.timeProvider, message)
		terminal = true
	default:
		// remain pending, stamp the poll time only
	}
	if err != nil {
		mu.Unlock()
		return nil, err
	}

	if err := m.transactionRepo.Update(ctx, txn); err != nil {
		mu.Unlock()
		return nil, fmt.Errorf("failed to persist transition: %w", err)
	}
	mu.Unlock()

	if terminal {
		m.logger.Info("Payment transaction reached terminal state", map[string]any{
			"transaction_id": txn.ID,
			"user_id":        txn.UserID,
			"status":         txn.Status,
			"reason":         txn.FailureReason,
		})
		m.locks.Delete(transactionID)
		if m.hook != nil {
			m.hook.OnTransactionTerminal(ctx, txn)
		}
	}
	return txn, nil
}

func (m *StateMachine) lockFor(transactionID string) *sync.Mutex {
	mu, _ := m.locks.LoadOrStore(transactionID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// newTransactionID builds the reference sent to the gateway, unique per
// attempt
func newTransactionID(timeProvider coreport.TimeProvider) string {
	return fmt.Sprintf("RICA-%d-%s", timeProvider.Now().UnixMilli(), uuid.NewString()[:8])
}
