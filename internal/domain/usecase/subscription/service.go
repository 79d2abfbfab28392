package subscription

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rica-io/payment-engine/internal/domain/entity"
	errs "github.com/rica-io/payment-engine/internal/domain/error"
	coreport "github.com/rica-io/payment-engine/internal/domain/port/core"
	"github.com/rica-io/payment-engine/internal/domain/port/persistence"
)

var expiredCounter = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "subscriptions",
		Name:      "expired_total",
		Help:      "Total number of subscriptions moved to expired by the sweep.",
	},
)

// Service owns the subscription lifecycle. All writes for one user are
// serialized so two concurrent creates cannot both pass the single-live-
// subscription check.
type Service struct {
	subscriptionRepo persistence.SubscriptionRepository
	transactionRepo  persistence.TransactionRepository
	catalog          *entity.Catalog
	timeProvider     coreport.TimeProvider
	logger           coreport.Logger

	userLocks sync.Map // map[string]*sync.Mutex
}

// NewService creates a subscription lifecycle service
func NewService(
	subscriptionRepo persistence.SubscriptionRepository,
	transactionRepo persistence.TransactionRepository,
	catalog *entity.Catalog,
	timeProvider coreport.TimeProvider,
	logger coreport.Logger,
) *Service {
	return &Service{
		subscriptionRepo: subscriptionRepo,
		transactionRepo:  transactionRepo,
		catalog:          catalog,
		timeProvider:     timeProvider,
		logger:           logger,
	}
}

// Create registers a pending subscription for the user. Fails with a
// ConflictError while any pending or active subscription exists for them,
// including one still waiting for its first payment.
func (s *Service) Create(ctx context.Context, userID, planID string, cycle entity.BillingCycle, paymentMethodRef string) (*entity.Subscription, error) {
	if userID == "" {
		return nil, errs.ErrInvalidUserID
	}

	plan, err := s.catalog.Plan(planID)
	if err != nil {
		return nil, err
	}
	price, err := s.catalog.PlanPriceCents(planID, cycle)
	if err != nil {
		return nil, err
	}

	mu := s.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()

	existing, err := s.subscriptionRepo.GetLiveByUser(ctx, userID)
	if err == nil {
		return nil, errs.NewConflictError(userID, existing.ID, string(existing.Status))
	}
	if !errors.Is(err, errs.ErrSubscriptionNotFound) {
		return nil, err
	}

	sub, err := entity.NewSubscription(
		"sub_"+uuid.NewString(),
		userID,
		planID,
		cycle,
		price,
		plan.Currency,
		paymentMethodRef,
		s.timeProvider,
	)
	if err != nil {
		return nil, err
	}

	if err := s.subscriptionRepo.Create(ctx, sub); err != nil {
		return nil, err
	}

	s.logger.Info("Subscription created", map[string]any{
		"subscription_id": sub.ID,
		"user_id":         userID,
		"plan_id":         planID,
		"billing_cycle":   cycle,
		"price":           entity.FormatCents(price),
	})
	return sub, nil
}

// Activate moves a pending subscription to active once its first payment
// completed, stamping the billing period from the activation instant.
// Activating an already-active subscription is a no-op so completion
// replays stay safe.
func (s *Service) Activate(ctx context.Context, subscriptionID string) (*entity.Subscription, error) {
	sub, err := s.subscriptionRepo.GetByID(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	mu := s.lockFor(sub.UserID)
	mu.Lock()
	defer mu.Unlock()

	sub, err = s.subscriptionRepo.GetByID(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.Status == entity.SubscriptionActive {
		return sub, nil
	}
	if err := sub.Activate(s.timeProvider); err != nil {
		return nil, err
	}
	if err := s.subscriptionRepo.Update(ctx, sub); err != nil {
		return nil, err
	}

	s.logger.Info("Subscription activated", map[string]any{
		"subscription_id": sub.ID,
		"user_id":         sub.UserID,
		"period_start":    sub.CurrentPeriodStart,
		"period_end":      sub.CurrentPeriodEnd,
	})
	return sub, nil
}

// Cancel marks an active subscription cancelled. Feature access stays valid
// until the end of the paid period; cancelling anything but an active
// subscription is an InvalidStateError, never silently ignored.
func (s *Service) Cancel(ctx context.Context, subscriptionID, reason string) (*entity.Subscription, error) {
	sub, err := s.subscriptionRepo.GetByID(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	mu := s.lockFor(sub.UserID)
	mu.Lock()
	defer mu.Unlock()

	sub, err = s.subscriptionRepo.GetByID(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if err := sub.Cancel(reason, s.timeProvider); err != nil {
		return nil, err
	}
	if err := s.subscriptionRepo.Update(ctx, sub); err != nil {
		return nil, err
	}

	s.logger.Info("Subscription cancelled", map[string]any{
		"subscription_id": sub.ID,
		"user_id":         sub.UserID,
		"reason":          reason,
		"access_until":    sub.CurrentPeriodEnd,
	})
	return sub, nil
}

// Renew advances the billing period by one cycle. Requires a completed
// subscription payment newer than the current period start that has not
// already funded a period; without one it fails with ErrPaymentRequired and
// mutates nothing. The applied transaction id is recorded on the
// subscription so one payment funds at most one period.
func (s *Service) Renew(ctx context.Context, subscriptionID string) (*entity.Subscription, error) {
	sub, err := s.subscriptionRepo.GetByID(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	mu := s.lockFor(sub.UserID)
	mu.Lock()
	defer mu.Unlock()

	sub, err = s.subscriptionRepo.GetByID(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	paymentTxn, err := s.transactionRepo.LatestCompletedForPurpose(
		ctx,
		entity.PurposeSubscriptionPayment,
		sub.ID,
		sub.CurrentPeriodStart,
	)
	if err != nil {
		if errors.Is(err, errs.ErrTransactionNotFound) {
			return nil, errs.ErrPaymentRequired
		}
		return nil, err
	}
	if paymentTxn.ID == sub.LastPaymentTxnID {
		// The only qualifying payment already funded the current period.
		return nil, errs.ErrPaymentRequired
	}

	oldEnd := sub.CurrentPeriodEnd
	if err := sub.Renew(s.timeProvider); err != nil {
		return nil, err
	}
	sub.LastPaymentTxnID = paymentTxn.ID
	if err := s.subscriptionRepo.Update(ctx, sub); err != nil {
		return nil, err
	}

	s.logger.Info("Subscription renewed", map[string]any{
		"subscription_id": sub.ID,
		"user_id":         sub.UserID,
		"payment_txn_id":  paymentTxn.ID,
		"old_period_end":  oldEnd,
		"new_period_end":  sub.CurrentPeriodEnd,
	})
	return sub, nil
}

// ChangePlan swaps plan and cycle on an active subscription, effective
// immediately. The price delta is logged for billing; no proration is
// computed.
func (s *Service) ChangePlan(ctx context.Context, subscriptionID, newPlanID string, newCycle entity.BillingCycle) (*entity.Subscription, error) {
	if _, err := s.catalog.Plan(newPlanID); err != nil {
		return nil, err
	}
	newPrice, err := s.catalog.PlanPriceCents(newPlanID, newCycle)
	if err != nil {
		return nil, err
	}

	sub, err := s.subscriptionRepo.GetByID(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	mu := s.lockFor(sub.UserID)
	mu.Lock()
	defer mu.Unlock()

	sub, err = s.subscriptionRepo.GetByID(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	oldPrice := sub.PriceCents
	oldPlan := sub.PlanID
	if err := sub.ChangePlan(newPlanID, newCycle, newPrice, s.timeProvider); err != nil {
		return nil, err
	}
	if err := s.subscriptionRepo.Update(ctx, sub); err != nil {
		return nil, err
	}

	s.logger.Info("Subscription plan changed", map[string]any{
		"subscription_id": sub.ID,
		"user_id":         sub.UserID,
		"old_plan_id":     oldPlan,
		"new_plan_id":     newPlanID,
		"billing_cycle":   newCycle,
		"price_delta":     entity.FormatCents(newPrice - oldPrice),
	})
	return sub, nil
}

// Get returns a subscription by id
func (s *Service) Get(ctx context.Context, subscriptionID string) (*entity.Subscription, error) {
	return s.subscriptionRepo.GetByID(ctx, subscriptionID)
}

// GetLiveForUser returns the user's pending or active subscription
func (s *Service) GetLiveForUser(ctx context.Context, userID string) (*entity.Subscription, error) {
	if userID == "" {
		return nil, errs.ErrInvalidUserID
	}
	return s.subscriptionRepo.GetLiveByUser(ctx, userID)
}

// HasFeatureAccess reports whether the user currently has paid feature
// access. The lookup includes cancelled subscriptions because cancellation
// keeps access until the paid period ends.
func (s *Service) HasFeatureAccess(ctx context.Context, userID string) (bool, error) {
	sub, err := s.subscriptionRepo.GetLatestByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, errs.ErrSubscriptionNotFound) {
			return false, nil
		}
		return false, err
	}
	return sub.HasFeatureAccess(s.timeProvider.Now()), nil
}

// SweepExpired moves lapsed subscriptions to expired: active ones whose
// period ended without a renewal, and cancelled ones whose grace period ran
// out. Returns how many records were expired.
func (s *Service) SweepExpired(ctx context.Context, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 100
	}

	lapsed, err := s.subscriptionRepo.ListLapsed(ctx, s.timeProvider.Now(), batchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, sub := range lapsed {
		mu := s.lockFor(sub.UserID)
		mu.Lock()
		current, err := s.subscriptionRepo.GetByID(ctx, sub.ID)
		if err != nil {
			mu.Unlock()
			s.logger.Error("Failed to reload subscription during expiry sweep", map[string]any{
				"subscription_id": sub.ID,
				"error":           err.Error(),
			})
			continue
		}
		if err := current.Expire(s.timeProvider); err != nil {
			// Renewed or already expired since listing; nothing to do.
			mu.Unlock()
			continue
		}
		if err := s.subscriptionRepo.Update(ctx, current); err != nil {
			mu.Unlock()
			s.logger.Error("Failed to expire subscription", map[string]any{
				"subscription_id": sub.ID,
				"error":           err.Error(),
			})
			continue
		}
		mu.Unlock()

		expired++
		expiredCounter.Inc()
		s.logger.Info("Subscription expired", map[string]any{
			"subscription_id": current.ID,
			"user_id":         current.UserID,
			"previous_status": sub.Status,
		})
	}
	return expired, nil
}

func (s *Service) lockFor(userID string) *sync.Mutex {
	mu, _ := s.userLocks.LoadOrStore(userID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}
