package reconcile

import (
	"context"

	"github.com/rica-io/payment-engine/internal/domain/entity"
	errs "github.com/rica-io/payment-engine/internal/domain/error"
	coreport "github.com/rica-io/payment-engine/internal/domain/port/core"
	"github.com/rica-io/payment-engine/internal/domain/usecase/ledger"
	"github.com/rica-io/payment-engine/internal/domain/usecase/payment"
	"github.com/rica-io/payment-engine/internal/domain/usecase/subscription"
)

// Coordinator ties payment outcomes to their business effects. It resolves
// catalog amounts when a payment is initiated and, as the state machine's
// terminal hook, credits the ledger or activates/renews the subscription
// when the payment completes. Failed payments change nothing outside the
// transaction record.
type Coordinator struct {
	payments      *payment.StateMachine
	ledger        *ledger.Service
	subscriptions *subscription.Service
	catalog       *entity.Catalog
	logger        coreport.Logger
}

// NewCoordinator creates the reconciliation coordinator and registers it as
// the state machine's terminal hook.
func NewCoordinator(
	payments *payment.StateMachine,
	ledgerService *ledger.Service,
	subscriptionService *subscription.Service,
	catalog *entity.Catalog,
	logger coreport.Logger,
) *Coordinator {
	c := &Coordinator{
		payments:      payments,
		ledger:        ledgerService,
		subscriptions: subscriptionService,
		catalog:       catalog,
		logger:        logger,
	}
	payments.SetTerminalHook(c)
	return c
}

// InitiateCreditPurchase starts a payment for a credit package. Amount and
// currency come from the catalog, never from the caller; mobile money
// charges in the currency implied by the phone prefix.
func (c *Coordinator) InitiateCreditPurchase(ctx context.Context, userID, packageID string, method entity.PaymentMethod, phoneNumber string) (*entity.Transaction, error) {
	pkg, err := c.catalog.Package(packageID)
	if err != nil {
		return nil, err
	}

	currency := pkg.Currency
	if method == entity.MethodMobileMoney {
		currency = entity.CurrencyForPhone(phoneNumber)
	}

	return c.payments.Initiate(ctx, payment.InitiateRequest{
		UserID:      userID,
		AmountCents: pkg.PriceCents,
		Currency:    currency,
		Method:      method,
		PhoneNumber: phoneNumber,
		Purpose:     entity.PurposeCreditPurchase,
		PurposeRef:  packageID,
		Description: "Credit package: " + pkg.Name,
	})
}

// CreateSubscription registers a pending subscription and starts its first
// payment in one call. The subscription only becomes active when that
// payment completes.
func (c *Coordinator) CreateSubscription(ctx context.Context, userID, planID string, cycle entity.BillingCycle, method entity.PaymentMethod, phoneNumber string) (*entity.Subscription, *entity.Transaction, error) {
	sub, err := c.subscriptions.Create(ctx, userID, planID, cycle, string(method))
	if err != nil {
		return nil, nil, err
	}

	txn, err := c.initiateSubscriptionPayment(ctx, sub, method, phoneNumber)
	if err != nil {
		return sub, nil, err
	}
	return sub, txn, nil
}

// InitiateSubscriptionPayment starts a payment for an existing subscription:
// the first charge of a pending one or the renewal of a live one. The
// lifecycle transition happens when the payment completes.
func (c *Coordinator) InitiateSubscriptionPayment(ctx context.Context, subscriptionID string, method entity.PaymentMethod, phoneNumber string) (*entity.Transaction, error) {
	sub, err := c.subscriptions.Get(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	return c.initiateSubscriptionPayment(ctx, sub, method, phoneNumber)
}

func (c *Coordinator) initiateSubscriptionPayment(ctx context.Context, sub *entity.Subscription, method entity.PaymentMethod, phoneNumber string) (*entity.Transaction, error) {
	currency := sub.Currency
	if method == entity.MethodMobileMoney {
		currency = entity.CurrencyForPhone(phoneNumber)
	}

	return c.payments.Initiate(ctx, payment.InitiateRequest{
		UserID:      sub.UserID,
		AmountCents: sub.PriceCents,
		Currency:    currency,
		Method:      method,
		PhoneNumber: phoneNumber,
		Purpose:     entity.PurposeSubscriptionPayment,
		PurposeRef:  sub.ID,
		Description: "Subscription: " + sub.PlanID,
	})
}

// OnTransactionTerminal applies the business effect of a finished payment.
// Every effect is idempotent by construction (ledger credit keyed by the
// transaction id, activation a no-op when already active), so replaying a
// terminal transaction through here is harmless.
func (c *Coordinator) OnTransactionTerminal(ctx context.Context, txn *entity.Transaction) {
	if txn.Status != entity.StatusCompleted {
		c.logger.Info("Payment failed, no ledger or subscription effect", map[string]any{
			"transaction_id": txn.ID,
			"user_id":        txn.UserID,
			"purpose":        txn.Purpose,
			"reason":         txn.FailureReason,
		})
		return
	}

	switch txn.Purpose {
	case entity.PurposeCreditPurchase:
		c.settleCreditPurchase(ctx, txn)
	case entity.PurposeSubscriptionPayment:
		c.settleSubscriptionPayment(ctx, txn)
	default:
		c.logger.Error("Completed transaction has unknown purpose", map[string]any{
			"transaction_id": txn.ID,
			"purpose":        txn.Purpose,
		})
	}
}

func (c *Coordinator) settleCreditPurchase(ctx context.Context, txn *entity.Transaction) {
	pkg, err := c.catalog.Package(txn.PurposeRef)
	if err != nil {
		c.logger.Error("Completed credit purchase references unknown package", map[string]any{
			"transaction_id": txn.ID,
			"package_id":     txn.PurposeRef,
		})
		return
	}

	if _, err := c.ledger.Credit(ctx, txn.UserID, pkg.Credits, txn.ID); err != nil {
		// The transaction stays completed and the credit stays missing until
		// the operator replays it; Credit is idempotent so the replay is safe.
		c.logger.Error("Failed to credit completed purchase", map[string]any{
			"transaction_id": txn.ID,
			"user_id":        txn.UserID,
			"credits":        pkg.Credits,
			"error":          err.Error(),
		})
		return
	}

	c.logger.Info("Credit purchase settled", map[string]any{
		"transaction_id": txn.ID,
		"user_id":        txn.UserID,
		"package_id":     pkg.ID,
		"credits":        pkg.Credits,
	})
}

func (c *Coordinator) settleSubscriptionPayment(ctx context.Context, txn *entity.Transaction) {
	sub, err := c.subscriptions.Get(ctx, txn.PurposeRef)
	if err != nil {
		c.logger.Error("Completed subscription payment references unknown subscription", map[string]any{
			"transaction_id":  txn.ID,
			"subscription_id": txn.PurposeRef,
			"error":           err.Error(),
		})
		return
	}

	if sub.Status == entity.SubscriptionPending {
		if _, err := c.subscriptions.Activate(ctx, sub.ID); err != nil {
			c.logger.Error("Failed to activate subscription after payment", map[string]any{
				"transaction_id":  txn.ID,
				"subscription_id": sub.ID,
				"error":           err.Error(),
			})
			return
		}
		c.logger.Info("Subscription activated by completed payment", map[string]any{
			"transaction_id":  txn.ID,
			"subscription_id": sub.ID,
			"user_id":         sub.UserID,
		})
		return
	}

	if _, err := c.subscriptions.Renew(ctx, sub.ID); err != nil {
		if errs.IsPaymentRequiredError(err) {
			// The payment was already applied; a replayed completion must
			// not fund a second period.
			c.logger.Info("Subscription payment already applied, nothing to renew", map[string]any{
				"transaction_id":  txn.ID,
				"subscription_id": sub.ID,
			})
			return
		}
		if errs.IsInvalidStateError(err) {
			c.logger.Warn("Subscription not renewable in its current state", map[string]any{
				"transaction_id":  txn.ID,
				"subscription_id": sub.ID,
				"status":          sub.Status,
			})
			return
		}
		c.logger.Error("Failed to renew subscription after payment", map[string]any{
			"transaction_id":  txn.ID,
			"subscription_id": sub.ID,
			"error":           err.Error(),
		})
		return
	}

	c.logger.Info("Subscription renewed by completed payment", map[string]any{
		"transaction_id":  txn.ID,
		"subscription_id": sub.ID,
		"user_id":         sub.UserID,
	})
}
