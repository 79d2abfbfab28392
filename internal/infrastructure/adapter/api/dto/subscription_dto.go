package dto

import (
	"time"

	"github.com/rica-io/payment-engine/internal/domain/entity"
)

// CreateSubscriptionRequest represents the API request to start a subscription
type CreateSubscriptionRequest struct {
	UserID       string `json:"userId" binding:"required"`
	PlanID       string `json:"planId" binding:"required"`
	BillingCycle string `json:"billingCycle" binding:"required,oneof=monthly annual"`
	Method       string `json:"method" binding:"required,oneof=mobile_money card wallet"`
	PhoneNumber  string `json:"phoneNumber,omitempty"`
}

// CancelSubscriptionRequest carries the optional cancellation reason
type CancelSubscriptionRequest struct {
	Reason string `json:"reason"`
}

// RenewSubscriptionRequest represents the API request to pay for the next
// billing period
type RenewSubscriptionRequest struct {
	Method      string `json:"method" binding:"required,oneof=mobile_money card wallet"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

// ChangePlanRequest represents the API request to switch plans
type ChangePlanRequest struct {
	PlanID       string `json:"planId" binding:"required"`
	BillingCycle string `json:"billingCycle" binding:"required,oneof=monthly annual"`
}

// SubscriptionResponse represents a subscription in API responses
type SubscriptionResponse struct {
	ID                 string     `json:"id"`
	UserID             string     `json:"userId"`
	PlanID             string     `json:"planId"`
	BillingCycle       string     `json:"billingCycle"`
	Status             string     `json:"status"`
	Price              string     `json:"price"`
	Currency           string     `json:"currency"`
	AutoRenew          bool       `json:"autoRenew"`
	CurrentPeriodStart *time.Time `json:"currentPeriodStart,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"currentPeriodEnd,omitempty"`
	CancelledAt        *time.Time `json:"cancelledAt,omitempty"`
	CancellationReason string     `json:"cancellationReason,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
}

// NewSubscriptionResponse maps a subscription entity to its API shape
func NewSubscriptionResponse(sub *entity.Subscription) SubscriptionResponse {
	resp := SubscriptionResponse{
		ID:                 sub.ID,
		UserID:             sub.UserID,
		PlanID:             sub.PlanID,
		BillingCycle:       string(sub.BillingCycle),
		Status:             string(sub.Status),
		Price:              entity.FormatCents(sub.PriceCents),
		Currency:           string(sub.Currency),
		AutoRenew:          sub.AutoRenew,
		CancelledAt:        sub.CancelledAt,
		CancellationReason: sub.CancellationReason,
		CreatedAt:          sub.CreatedAt,
	}
	// Period boundaries exist only once the subscription was activated
	if !sub.CurrentPeriodStart.IsZero() {
		start := sub.CurrentPeriodStart
		end := sub.CurrentPeriodEnd
		resp.CurrentPeriodStart = &start
		resp.CurrentPeriodEnd = &end
	}
	return resp
}

// CreateSubscriptionResponse bundles the new subscription with its first
// payment transaction
type CreateSubscriptionResponse struct {
	Subscription SubscriptionResponse `json:"subscription"`
	Payment      TransactionResponse  `json:"payment"`
}
