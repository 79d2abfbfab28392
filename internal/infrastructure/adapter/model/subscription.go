package model

import (
	"time"
)

// Subscription represents the database model for subscriptions
type Subscription struct {
	ID                 string `gorm:"primaryKey;size:64"`
	UserID             string `gorm:"not null;index;size:64"`
	PlanID             string `gorm:"not null;size:64"`
	BillingCycle       string `gorm:"not null;size:16"`
	Status             string `gorm:"not null;size:32;index"`
	PriceCents         int64  `gorm:"not null"`
	Currency           string `gorm:"not null;size:8"`
	PaymentMethodRef   string `gorm:"size:64"`
	LastPaymentTxnID   string `gorm:"size:64"`
	AutoRenew          bool   `gorm:"not null;default:true"`
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time `gorm:"index"`
	CancelledAt        *time.Time
	CancellationReason string    `gorm:"size:255"`
	CreatedAt          time.Time `gorm:"not null"`
	UpdatedAt          time.Time `gorm:"not null"`
}

// TableName specifies the table name for Subscription
func (Subscription) TableName() string {
	return "subscriptions"
}
