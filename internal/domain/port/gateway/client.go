package gateway

import (
	"context"

	"github.com/rica-io/payment-engine/internal/domain/entity"
)

// Status is the normalized gateway status. Adapters fold every
// provider-specific status into one of these three at the boundary;
// the rest of the system never sees raw gateway statuses.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// InitiateRequest asks the gateway to start collecting a payment
type InitiateRequest struct {
	Reference   string // our transaction id, echoed back by the gateway
	Amount      string // decimal string with 2 places
	Currency    entity.Currency
	Method      entity.PaymentMethod
	PhoneNumber string // mobile money only
	Description string
}

// InitiateResponse is the gateway's acceptance of a payment request
type InitiateResponse struct {
	GatewayRef string // gateway-side transaction id, used for later polls
	Status     Status
	Message    string
}

// StatusResponse is the result of polling a payment's status
type StatusResponse struct {
	Status  Status
	Message string
}

// Client is the narrow interface to the external payment provider. The
// provider is treated as untrusted: slow, occasionally unreachable, and
// free to deliver the same status more than once.
//
// Both calls must respect ctx cancellation and should be given a
// call-level timeout by the caller. Transport failures are returned as
// errors wrapping ErrGatewayUnavailable and are never a terminal payment
// outcome by themselves.
type Client interface {
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResponse, error)
	PollStatus(ctx context.Context, gatewayRef string) (*StatusResponse, error)
}
