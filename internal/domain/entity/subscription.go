package entity

import (
	"time"

	errs "github.com/rica-io/payment-engine/internal/domain/error"
	coreport "github.com/rica-io/payment-engine/internal/domain/port/core"
)

// SubscriptionStatus defines the subscription lifecycle states
type SubscriptionStatus string

const (
	SubscriptionPending   SubscriptionStatus = "pending"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionExpired   SubscriptionStatus = "expired"
)

// BillingCycle is how often a subscription renews
type BillingCycle string

const (
	CycleMonthly BillingCycle = "monthly"
	CycleAnnual  BillingCycle = "annual"
)

// IsValidBillingCycle reports whether the cycle is part of the closed set
func IsValidBillingCycle(c BillingCycle) bool {
	return c == CycleMonthly || c == CycleAnnual
}

// Subscription is one user's recurring plan record. Cancellation is terminal
// for feature renewal purposes but the record is kept forever; an eligible
// cancelled subscription can only come back through an explicit renew.
type Subscription struct {
	ID                 string
	UserID             string
	PlanID             string
	BillingCycle       BillingCycle
	Status             SubscriptionStatus
	PriceCents         int64
	Currency           Currency
	PaymentMethodRef   string
	LastPaymentTxnID   string
	AutoRenew          bool
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelledAt        *time.Time
	CancellationReason string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NewSubscription creates a pending subscription awaiting its first payment.
// Billing period boundaries are stamped at activation, not creation.
func NewSubscription(
	id string,
	userID string,
	planID string,
	cycle BillingCycle,
	priceCents int64,
	currency Currency,
	paymentMethodRef string,
	timeProvider coreport.TimeProvider,
) (*Subscription, error) {
	if id == "" || planID == "" {
		return nil, errs.ErrInvalidRequest
	}
	if userID == "" {
		return nil, errs.ErrInvalidUserID
	}
	if !IsValidBillingCycle(cycle) {
		return nil, errs.ErrInvalidRequest
	}
	if priceCents <= 0 {
		return nil, errs.ErrNegativeAmount
	}

	now := timeProvider.Now()
	return &Subscription{
		ID:               id,
		UserID:           userID,
		PlanID:           planID,
		BillingCycle:     cycle,
		Status:           SubscriptionPending,
		PriceCents:       priceCents,
		Currency:         currency,
		PaymentMethodRef: paymentMethodRef,
		AutoRenew:        true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// IsLive reports whether the subscription still blocks creating another one
// for the same user
func (s *Subscription) IsLive() bool {
	return s.Status == SubscriptionPending || s.Status == SubscriptionActive
}

// Activate transitions pending -> active and stamps the first billing period
func (s *Subscription) Activate(timeProvider coreport.TimeProvider) error {
	if s.Status != SubscriptionPending {
		return errs.NewInvalidStateError("subscription", s.ID, string(s.Status), "activate")
	}
	now := timeProvider.Now()
	s.Status = SubscriptionActive
	s.CurrentPeriodStart = now
	s.CurrentPeriodEnd = addCycle(now, s.BillingCycle)
	s.UpdatedAt = now
	return nil
}

// Cancel transitions active -> cancelled. Paid feature access stays valid
// until CurrentPeriodEnd; HasFeatureAccess encodes that grace policy.
func (s *Subscription) Cancel(reason string, timeProvider coreport.TimeProvider) error {
	if s.Status != SubscriptionActive {
		return errs.NewInvalidStateError("subscription", s.ID, string(s.Status), "cancel")
	}
	now := timeProvider.Now()
	s.Status = SubscriptionCancelled
	s.CancelledAt = &now
	s.CancellationReason = reason
	s.AutoRenew = false
	s.UpdatedAt = now
	return nil
}

// Renew advances both period boundaries one billing cycle from the old
// period end. Valid on an active subscription, or on a cancelled one whose
// period has not yet lapsed (explicit reactivation).
func (s *Subscription) Renew(timeProvider coreport.TimeProvider) error {
	now := timeProvider.Now()
	switch s.Status {
	case SubscriptionActive:
		// renewal at (or near) the period boundary
	case SubscriptionCancelled:
		if now.After(s.CurrentPeriodEnd) {
			return errs.NewInvalidStateError("subscription", s.ID, string(s.Status), "renew after period lapsed")
		}
		s.CancelledAt = nil
		s.CancellationReason = ""
		s.AutoRenew = true
	default:
		return errs.NewInvalidStateError("subscription", s.ID, string(s.Status), "renew")
	}

	s.Status = SubscriptionActive
	s.CurrentPeriodStart = s.CurrentPeriodEnd
	s.CurrentPeriodEnd = addCycle(s.CurrentPeriodEnd, s.BillingCycle)
	s.UpdatedAt = now
	return nil
}

// ChangePlan swaps plan, cycle and price on an active subscription,
// effective immediately. Any price delta is informational; no proration is
// computed here.
func (s *Subscription) ChangePlan(newPlanID string, newCycle BillingCycle, newPriceCents int64, timeProvider coreport.TimeProvider) error {
	if s.Status != SubscriptionActive {
		return errs.NewInvalidStateError("subscription", s.ID, string(s.Status), "change plan")
	}
	if newPlanID == "" || !IsValidBillingCycle(newCycle) || newPriceCents <= 0 {
		return errs.ErrInvalidRequest
	}
	s.PlanID = newPlanID
	s.BillingCycle = newCycle
	s.PriceCents = newPriceCents
	s.UpdatedAt = timeProvider.Now()
	return nil
}

// Expire transitions a lapsed subscription to its expired terminal state
func (s *Subscription) Expire(timeProvider coreport.TimeProvider) error {
	if s.Status != SubscriptionActive && s.Status != SubscriptionCancelled {
		return errs.NewInvalidStateError("subscription", s.ID, string(s.Status), "expire")
	}
	now := timeProvider.Now()
	if now.Before(s.CurrentPeriodEnd) {
		return errs.NewInvalidStateError("subscription", s.ID, string(s.Status), "expire before period end")
	}
	s.Status = SubscriptionExpired
	s.AutoRenew = false
	s.UpdatedAt = now
	return nil
}

// HasFeatureAccess reports whether paid features are usable at the given
// instant. Active always grants access; cancelled keeps access until the
// paid period runs out.
func (s *Subscription) HasFeatureAccess(now time.Time) bool {
	switch s.Status {
	case SubscriptionActive:
		return true
	case SubscriptionCancelled:
		return now.Before(s.CurrentPeriodEnd)
	default:
		return false
	}
}

func addCycle(from time.Time, cycle BillingCycle) time.Time {
	if cycle == CycleAnnual {
		return from.AddDate(1, 0, 0)
	}
	return from.AddDate(0, 1, 0)
}
