package persistence

import (
	"context"
	"time"

	"github.com/rica-io/payment-engine/internal/domain/entity"
)

// SubscriptionRepository defines access to subscription records. Records
// are never physically deleted; terminal states are kept for audit.
type SubscriptionRepository interface {
	// Create saves a new subscription
	Create(ctx context.Context, subscription *entity.Subscription) error

	// Update persists lifecycle changes
	//
	// Possible errors:
	// - ErrSubscriptionNotFound: If no subscription with the given ID exists
	// - ErrDatabaseConnection: If the database cannot be reached
	Update(ctx context.Context, subscription *entity.Subscription) error

	// GetByID retrieves a subscription by id
	//
	// Possible errors:
	// - ErrSubscriptionNotFound: If no subscription with the given ID exists
	// - ErrDatabaseConnection: If the database cannot be reached
	GetByID(ctx context.Context, id string) (*entity.Subscription, error)

	// GetLiveByUser returns the user's pending or active subscription, if
	// one exists. Backs the at-most-one-live-subscription invariant.
	//
	// Possible errors:
	// - ErrSubscriptionNotFound: If the user has no live subscription
	// - ErrDatabaseConnection: If the database cannot be reached
	GetLiveByUser(ctx context.Context, userID string) (*entity.Subscription, error)

	// GetLatestByUser returns the user's most recent subscription in any
	// state. A cancelled subscription still inside its paid period is not
	// live but still grants feature access, so access checks need it.
	//
	// Possible errors:
	// - ErrSubscriptionNotFound: If the user never had a subscription
	// - ErrDatabaseConnection: If the database cannot be reached
	GetLatestByUser(ctx context.Context, userID string) (*entity.Subscription, error)

	// ListLapsed returns up to limit active or cancelled subscriptions whose
	// current period ended at or before the given instant, for the expiry
	// sweep
	ListLapsed(ctx context.Context, at time.Time, limit int) ([]*entity.Subscription, error)
}
