package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rica-io/payment-engine/internal/domain/entity"
	errs "github.com/rica-io/payment-engine/internal/domain/error"
	coreport "github.com/rica-io/payment-engine/internal/domain/port/core"
	gatewayport "github.com/rica-io/payment-engine/internal/domain/port/gateway"
)

// Config holds the ClickPesa API settings
type Config struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
}

// ClickPesaClient talks to the ClickPesa payment API over HTTP. It
// normalizes every provider status into the three-value set at this
// boundary so nothing upstream ever handles a raw gateway string.
type ClickPesaClient struct {
	httpClient *http.Client
	config     Config
	logger     coreport.Logger
}

// NewClickPesaClient creates a ClickPesa API client
func NewClickPesaClient(config Config, logger coreport.Logger) *ClickPesaClient {
	if config.HTTPTimeout <= 0 {
		config.HTTPTimeout = 10 * time.Second
	}
	return &ClickPesaClient{
		httpClient: &http.Client{Timeout: config.HTTPTimeout},
		config:     config,
		logger:     logger,
	}
}

type chargeRequest struct {
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	Reference     string `json:"reference"`
	Description   string `json:"description,omitempty"`
	PaymentMethod string `json:"payment_method"`
	Phone         string `json:"phone,omitempty"`
	ClientID      string `json:"client_id"`
}

type chargeResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	Message       string `json:"message"`
}

type statusRequest struct {
	TransactionID string `json:"transaction_id"`
	ClientID      string `json:"client_id"`
}

type statusResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	Message       string `json:"message"`
}

// Initiate asks ClickPesa to start collecting the payment
func (c *ClickPesaClient) Initiate(ctx context.Context, req gatewayport.InitiateRequest) (*gatewayport.InitiateResponse, error) {
	payload := chargeRequest{
		Amount:        req.Amount,
		Currency:      string(req.Currency),
		Reference:     req.Reference,
		Description:   req.Description,
		PaymentMethod: string(req.Method),
		ClientID:      c.config.APIKey,
	}
	if req.Method == entity.MethodMobileMoney {
		payload.Phone = req.PhoneNumber
	}

	var resp chargeResponse
	if err := c.post(ctx, c.chargePath(req.Method), payload, &resp); err != nil {
		return nil, err
	}

	c.logger.Debug("ClickPesa accepted charge request", map[string]any{
		"reference":   req.Reference,
		"gateway_ref": resp.TransactionID,
		"raw_status":  resp.Status,
	})

	return &gatewayport.InitiateResponse{
		GatewayRef: resp.TransactionID,
		Status:     normalizeStatus(resp.Status),
		Message:    resp.Message,
	}, nil
}

// PollStatus fetches the current status of a previously initiated payment
func (c *ClickPesaClient) PollStatus(ctx context.Context, gatewayRef string) (*gatewayport.StatusResponse, error) {
	payload := statusRequest{
		TransactionID: gatewayRef,
		ClientID:      c.config.APIKey,
	}

	var resp statusResponse
	if err := c.post(ctx, "/payments/status", payload, &resp); err != nil {
		return nil, err
	}

	return &gatewayport.StatusResponse{
		Status:  normalizeStatus(resp.Status),
		Message: resp.Message,
	}, nil
}

func (c *ClickPesaClient) chargePath(method entity.PaymentMethod) string {
	if method == entity.MethodMobileMoney {
		return "/payments/mobile-money/charge"
	}
	return "/payments/charge"
}

func (c *ClickPesaClient) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode gateway request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build gateway request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %s", errs.ErrGatewayUnavailable, err.Error())
	}
	defer func() { _ = httpResp.Body.Close() }()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))
		c.logger.Warn("ClickPesa returned non-success status", map[string]any{
			"path":        path,
			"http_status": httpResp.StatusCode,
			"body":        string(raw),
		})
		return fmt.Errorf("%w: gateway responded with HTTP %d", errs.ErrGatewayUnavailable, httpResp.StatusCode)
	}

	if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: invalid gateway response: %s", errs.ErrGatewayUnavailable, err.Error())
	}
	return nil
}

// normalizeStatus folds ClickPesa's status vocabulary into the closed set
func normalizeStatus(raw string) gatewayport.Status {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "SUCCESS", "SETTLED", "COMPLETED":
		return gatewayport.StatusCompleted
	case "FAILED", "DECLINED", "CANCELLED", "EXPIRED":
		return gatewayport.StatusFailed
	default:
		return gatewayport.StatusPending
	}
}
