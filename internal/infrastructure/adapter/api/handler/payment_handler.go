package handler

import (
	"net/http"

	"github.com/rica-io/payment-engine/internal/domain/entity"
	domainerr "github.com/rica-io/payment-engine/internal/domain/error"
	coreport "github.com/rica-io/payment-engine/internal/domain/port/core"
	"github.com/rica-io/payment-engine/internal/domain/usecase/payment"
	"github.com/rica-io/payment-engine/internal/domain/usecase/reconcile"
	"github.com/rica-io/payment-engine/internal/infrastructure/adapter/api/dto"
	"github.com/gin-gonic/gin"
)

// PaymentHandler handles payment-related HTTP requests
type PaymentHandler struct {
	coordinator *reconcile.Coordinator
	payments    *payment.StateMachine
	logger      coreport.Logger
}

// NewPaymentHandler creates a new payment handler instance
func NewPaymentHandler(coordinator *reconcile.Coordinator, payments *payment.StateMachine, logger coreport.Logger) *PaymentHandler {
	return &PaymentHandler{
		coordinator: coordinator,
		payments:    payments,
		logger:      logger,
	}
}

// InitiatePayment handles the POST /payments endpoint
func (h *PaymentHandler) InitiatePayment(c *gin.Context) {
	var req dto.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid payment request format", map[string]any{
			"error": err.Error(),
		})
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Code:    domainerr.ErrorCode(domainerr.ErrInvalidRequest),
			Message: "Invalid request format: " + err.Error(),
		})
		return
	}

	method := entity.PaymentMethod(req.Method)

	var txn *entity.Transaction
	var err error
	switch entity.TransactionPurpose(req.Purpose) {
	case entity.PurposeCreditPurchase:
		txn, err = h.coordinator.InitiateCreditPurchase(c.Request.Context(), req.UserID, req.PurposeRef, method, req.PhoneNumber)
	case entity.PurposeSubscriptionPayment:
		txn, err = h.coordinator.InitiateSubscriptionPayment(c.Request.Context(), req.PurposeRef, method, req.PhoneNumber)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewTransactionResponse(txn))
}

// GetTransaction handles the GET /payments/:transactionId endpoint
func (h *PaymentHandler) GetTransaction(c *gin.Context) {
	txn, err := h.payments.Get(c.Request.Context(), c.Param("transactionId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewTransactionResponse(txn))
}
