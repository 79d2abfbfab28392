package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rica-io/payment-engine/internal/domain/entity"
	errs "github.com/rica-io/payment-engine/internal/domain/error"
	coreport "github.com/rica-io/payment-engine/internal/domain/port/core"
	"github.com/rica-io/payment-engine/internal/infrastructure/adapter/model"
	"gorm.io/gorm"
)

// SubscriptionRepository implements the SubscriptionRepository port using GORM
type SubscriptionRepository struct {
	db     *gorm.DB
	logger coreport.Logger
}

// NewSubscriptionRepository creates a new SubscriptionRepository instance
func NewSubscriptionRepository(db *gorm.DB, logger coreport.Logger) *SubscriptionRepository {
	return &SubscriptionRepository{
		db:     db,
		logger: logger,
	}
}

func (r *SubscriptionRepository) entityToModel(sub *entity.Subscription) model.Subscription {
	return model.Subscription{
		ID:                 sub.ID,
		UserID:             sub.UserID,
		PlanID:             sub.PlanID,
		BillingCycle:       string(sub.BillingCycle),
		Status:             string(sub.Status),
		PriceCents:         sub.PriceCents,
		Currency:           string(sub.Currency),
		PaymentMethodRef:   sub.PaymentMethodRef,
		LastPaymentTxnID:   sub.LastPaymentTxnID,
		AutoRenew:          sub.AutoRenew,
		CurrentPeriodStart: sub.CurrentPeriodStart,
		CurrentPeriodEnd:   sub.CurrentPeriodEnd,
		CancelledAt:        sub.CancelledAt,
		CancellationReason: sub.CancellationReason,
		CreatedAt:          sub.CreatedAt,
		UpdatedAt:          sub.UpdatedAt,
	}
}

func (r *SubscriptionRepository) modelToEntity(m *model.Subscription) *entity.Subscription {
	return &entity.Subscription{
		ID:                 m.ID,
		UserID:             m.UserID,
		PlanID:             m.PlanID,
		BillingCycle:       entity.BillingCycle(m.BillingCycle),
		Status:             entity.SubscriptionStatus(m.Status),
		PriceCents:         m.PriceCents,
		Currency:           entity.Currency(m.Currency),
		PaymentMethodRef:   m.PaymentMethodRef,
		LastPaymentTxnID:   m.LastPaymentTxnID,
		AutoRenew:          m.AutoRenew,
		CurrentPeriodStart: m.CurrentPeriodStart,
		CurrentPeriodEnd:   m.CurrentPeriodEnd,
		CancelledAt:        m.CancelledAt,
		CancellationReason: m.CancellationReason,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

// Create saves a new subscription
func (r *SubscriptionRepository) Create(ctx context.Context, sub *entity.Subscription) error {
	subModel := r.entityToModel(sub)
	result := r.db.WithContext(ctx).Create(&subModel)
	if result.Error != nil {
		r.logger.Error("Failed to create subscription", map[string]any{
			"subscription_id": sub.ID,
			"user_id":         sub.UserID,
			"error":           result.Error.Error(),
		})
		return fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}
	return nil
}

// Update persists lifecycle changes
func (r *SubscriptionRepository) Update(ctx context.Context, sub *entity.Subscription) error {
	subModel := r.entityToModel(sub)
	result := r.db.WithContext(ctx).Model(&model.Subscription{}).
		Where("id = ?", sub.ID).
		Updates(map[string]interface{}{
			"plan_id":              subModel.PlanID,
			"billing_cycle":        subModel.BillingCycle,
			"status":               subModel.Status,
			"price_cents":          subModel.PriceCents,
			"last_payment_txn_id":  subModel.LastPaymentTxnID,
			"auto_renew":           subModel.AutoRenew,
			"current_period_start": subModel.CurrentPeriodStart,
			"current_period_end":   subModel.CurrentPeriodEnd,
			"cancelled_at":         subModel.CancelledAt,
			"cancellation_reason":  subModel.CancellationReason,
			"updated_at":           subModel.UpdatedAt,
		})
	if result.Error != nil {
		r.logger.Error("Failed to update subscription", map[string]any{
			"subscription_id": sub.ID,
			"error":           result.Error.Error(),
		})
		return fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}
	if result.RowsAffected == 0 {
		return errs.ErrSubscriptionNotFound
	}
	return nil
}

// GetByID retrieves a subscription by id
func (r *SubscriptionRepository) GetByID(ctx context.Context, id string) (*entity.Subscription, error) {
	var subModel model.Subscription
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&subModel)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errs.ErrSubscriptionNotFound
		}
		r.logger.Error("Failed to get subscription", map[string]any{
			"subscription_id": id,
			"error":           result.Error.Error(),
		})
		return nil, fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}
	return r.modelToEntity(&subModel), nil
}

// GetLiveByUser returns the user's pending or active subscription, if any
func (r *SubscriptionRepository) GetLiveByUser(ctx context.Context, userID string) (*entity.Subscription, error) {
	var subModel model.Subscription
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND status IN ?", userID, []string{
			string(entity.SubscriptionPending),
			string(entity.SubscriptionActive),
		}).
		Order("created_at DESC").
		First(&subModel)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errs.ErrSubscriptionNotFound
		}
		r.logger.Error("Failed to get live subscription", map[string]any{
			"user_id": userID,
			"error":   result.Error.Error(),
		})
		return nil, fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}
	return r.modelToEntity(&subModel), nil
}

// GetLatestByUser returns the user's most recent subscription in any state
func (r *SubscriptionRepository) GetLatestByUser(ctx context.Context, userID string) (*entity.Subscription, error) {
	var subModel model.Subscription
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&subModel)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errs.ErrSubscriptionNotFound
		}
		r.logger.Error("Failed to get latest subscription", map[string]any{
			"user_id": userID,
			"error":   result.Error.Error(),
		})
		return nil, fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}
	return r.modelToEntity(&subModel), nil
}

// ListLapsed returns active or cancelled subscriptions whose current period
// ended at or before the given instant
func (r *SubscriptionRepository) ListLapsed(ctx context.Context, at time.Time, limit int) ([]*entity.Subscription, error) {
	var models []model.Subscription
	result := r.db.WithContext(ctx).
		Where("status IN ? AND current_period_end <= ?", []string{
			string(entity.SubscriptionActive),
			string(entity.SubscriptionCancelled),
		}, at).
		Order("current_period_end ASC").
		Limit(limit).
		Find(&models)
	if result.Error != nil {
		r.logger.Error("Failed to list lapsed subscriptions", map[string]any{
			"error": result.Error.Error(),
		})
		return nil, fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}

	subs := make([]*entity.Subscription, 0, len(models))
	for i := range models {
		subs = append(subs, r.modelToEntity(&models[i]))
	}
	return subs, nil
}
