package handler

import (
	"net/http"
	"strconv"

	"github.com/rica-io/payment-engine/internal/domain/entity"
	domainerr "github.com/rica-io/payment-engine/internal/domain/error"
	coreport "github.com/rica-io/payment-engine/internal/domain/port/core"
	"github.com/rica-io/payment-engine/internal/domain/usecase/ledger"
	"github.com/rica-io/payment-engine/internal/infrastructure/adapter/api/dto"
	"github.com/gin-gonic/gin"
)

// CreditHandler handles credit balance and ledger HTTP requests
type CreditHandler struct {
	ledger  *ledger.Service
	catalog *entity.Catalog
	logger  coreport.Logger
}

// NewCreditHandler creates a new credit handler instance
func NewCreditHandler(ledgerService *ledger.Service, catalog *entity.Catalog, logger coreport.Logger) *CreditHandler {
	return &CreditHandler{
		ledger:  ledgerService,
		catalog: catalog,
		logger:  logger,
	}
}

// GetBalance handles the GET /users/:userId/credits/balance endpoint
func (h *CreditHandler) GetBalance(c *gin.Context) {
	userID := c.Param("userId")

	balance, err := h.ledger.Balance(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.BalanceResponse{
		UserID:  userID,
		Balance: balance,
	})
}

// GetHistory handles the GET /users/:userId/credits/history endpoint
func (h *CreditHandler) GetHistory(c *gin.Context) {
	userID := c.Param("userId")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	entries, err := h.ledger.History(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := dto.HistoryResponse{
		UserID:  userID,
		Entries: make([]dto.LedgerEntryResponse, 0, len(entries)),
		Limit:   limit,
		Offset:  offset,
	}
	for _, entry := range entries {
		resp.Entries = append(resp.Entries, dto.NewLedgerEntryResponse(entry))
	}
	c.JSON(http.StatusOK, resp)
}

// Debit handles the POST /users/:userId/credits/debit endpoint. The credit
// cost is resolved from the feature catalog, never taken from the caller.
func (h *CreditHandler) Debit(c *gin.Context) {
	userID := c.Param("userId")

	var req dto.DebitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Code:    domainerr.ErrorCode(domainerr.ErrInvalidRequest),
			Message: "Invalid request format: " + err.Error(),
		})
		return
	}

	cost, err := h.catalog.FeatureCost(req.Feature)
	if err != nil {
		respondError(c, err)
		return
	}

	entry, err := h.ledger.Debit(c.Request.Context(), userID, cost, req.Feature)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewLedgerEntryResponse(entry))
}
