package handler

import (
	"errors"
	"net/http"

	domainerr "github.com/rica-io/payment-engine/internal/domain/error"
	"github.com/rica-io/payment-engine/internal/infrastructure/adapter/api/dto"
	"github.com/gin-gonic/gin"
)

// httpStatusFor maps domain errors to HTTP status codes
func httpStatusFor(err error) int {
	switch {
	case domainerr.IsNotFoundError(err):
		return http.StatusNotFound
	case domainerr.IsInsufficientBalanceError(err),
		domainerr.IsPaymentRequiredError(err):
		return http.StatusPaymentRequired
	case domainerr.IsConflictError(err),
		domainerr.IsInvalidStateError(err),
		errors.Is(err, domainerr.ErrDuplicateCredit),
		errors.Is(err, domainerr.ErrTransactionTerminal):
		return http.StatusConflict
	case errors.Is(err, domainerr.ErrInvalidRequest),
		errors.Is(err, domainerr.ErrInvalidAmount),
		errors.Is(err, domainerr.ErrNegativeAmount),
		errors.Is(err, domainerr.ErrInvalidUserID),
		errors.Is(err, domainerr.ErrInvalidCurrency),
		errors.Is(err, domainerr.ErrInvalidPaymentMethod),
		errors.Is(err, domainerr.ErrInvalidPhoneNumber),
		errors.Is(err, domainerr.ErrUnknownPackage),
		errors.Is(err, domainerr.ErrUnknownPlan),
		errors.Is(err, domainerr.ErrUnknownFeature):
		return http.StatusBadRequest
	case domainerr.IsGatewayError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the standard error body for a domain error. Internal
// errors are masked; everything else carries its own message.
func respondError(c *gin.Context, err error) {
	status := httpStatusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "Internal server error"
	}
	c.JSON(status, dto.ErrorResponse{
		Code:    domainerr.ErrorCode(err),
		Message: message,
	})
}
