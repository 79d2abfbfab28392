package handler

import (
	"net/http"

	"github.com/rica-io/payment-engine/internal/domain/entity"
	domainerr "github.com/rica-io/payment-engine/internal/domain/error"
	coreport "github.com/rica-io/payment-engine/internal/domain/port/core"
	"github.com/rica-io/payment-engine/internal/domain/usecase/reconcile"
	"github.com/rica-io/payment-engine/internal/domain/usecase/subscription"
	"github.com/rica-io/payment-engine/internal/infrastructure/adapter/api/dto"
	"github.com/gin-gonic/gin"
)

// SubscriptionHandler handles subscription lifecycle HTTP requests
type SubscriptionHandler struct {
	coordinator   *reconcile.Coordinator
	subscriptions *subscription.Service
	logger        coreport.Logger
}

// NewSubscriptionHandler creates a new subscription handler instance
func NewSubscriptionHandler(
	coordinator *reconcile.Coordinator,
	subscriptions *subscription.Service,
	logger coreport.Logger,
) *SubscriptionHandler {
	return &SubscriptionHandler{
		coordinator:   coordinator,
		subscriptions: subscriptions,
		logger:        logger,
	}
}

// Create handles the POST /subscriptions endpoint. The subscription starts
// pending; it activates when the returned payment completes.
func (h *SubscriptionHandler) Create(c *gin.Context) {
	var req dto.CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Code:    domainerr.ErrorCode(domainerr.ErrInvalidRequest),
			Message: "Invalid request format: " + err.Error(),
		})
		return
	}

	sub, txn, err := h.coordinator.CreateSubscription(
		c.Request.Context(),
		req.UserID,
		req.PlanID,
		entity.BillingCycle(req.BillingCycle),
		entity.PaymentMethod(req.Method),
		req.PhoneNumber,
	)
	if err != nil {
		// The pending record exists even when the first charge could not be
		// initiated; the client retries the payment, not the subscription.
		if sub != nil {
			h.logger.Warn("Subscription created but first payment failed to start", map[string]any{
				"subscription_id": sub.ID,
				"error":           err.Error(),
			})
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.CreateSubscriptionResponse{
		Subscription: dto.NewSubscriptionResponse(sub),
		Payment:      dto.NewTransactionResponse(txn),
	})
}

// GetForUser handles the GET /users/:userId/subscription endpoint
func (h *SubscriptionHandler) GetForUser(c *gin.Context) {
	sub, err := h.subscriptions.GetLiveForUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSubscriptionResponse(sub))
}

// Cancel handles the POST /subscriptions/:id/cancel endpoint
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	// Body is optional; an empty body cancels without a reason
	var req dto.CancelSubscriptionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Code:    domainerr.ErrorCode(domainerr.ErrInvalidRequest),
				Message: "Invalid request format: " + err.Error(),
			})
			return
		}
	}

	sub, err := h.subscriptions.Cancel(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSubscriptionResponse(sub))
}

// Renew handles the POST /subscriptions/:id/renew endpoint. It starts the
// renewal payment; the period advances when that payment completes.
func (h *SubscriptionHandler) Renew(c *gin.Context) {
	var req dto.RenewSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Code:    domainerr.ErrorCode(domainerr.ErrInvalidRequest),
			Message: "Invalid request format: " + err.Error(),
		})
		return
	}

	txn, err := h.coordinator.InitiateSubscriptionPayment(
		c.Request.Context(),
		c.Param("id"),
		entity.PaymentMethod(req.Method),
		req.PhoneNumber,
	)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewTransactionResponse(txn))
}

// ChangePlan handles the POST /subscriptions/:id/change-plan endpoint
func (h *SubscriptionHandler) ChangePlan(c *gin.Context) {
	var req dto.ChangePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Code:    domainerr.ErrorCode(domainerr.ErrInvalidRequest),
			Message: "Invalid request format: " + err.Error(),
		})
		return
	}

	sub, err := h.subscriptions.ChangePlan(
		c.Request.Context(),
		c.Param("id"),
		req.PlanID,
		entity.BillingCycle(req.BillingCycle),
	)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSubscriptionResponse(sub))
}
