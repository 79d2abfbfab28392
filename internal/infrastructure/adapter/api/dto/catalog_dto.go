package dto

import (
	"github.com/rica-io/payment-engine/internal/domain/entity"
)

// PackageResponse represents a credit package in API responses
type PackageResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Credits  int64  `json:"credits"`
	Price    string `json:"price"`
	Currency string `json:"currency"`
}

// NewPackageResponse maps a credit package to its API shape
func NewPackageResponse(pkg entity.CreditPackage) PackageResponse {
	return PackageResponse{
		ID:       pkg.ID,
		Name:     pkg.Name,
		Credits:  pkg.Credits,
		Price:    entity.FormatCents(pkg.PriceCents),
		Currency: string(pkg.Currency),
	}
}

// PlanResponse represents a subscription plan in API responses
type PlanResponse struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	MonthlyPrice string   `json:"monthlyPrice"`
	AnnualPrice  string   `json:"annualPrice"`
	Currency     string   `json:"currency"`
	Features     []string `json:"features"`
}

// NewPlanResponse maps a subscription plan to its API shape
func NewPlanResponse(plan entity.SubscriptionPlan) PlanResponse {
	return PlanResponse{
		ID:           plan.ID,
		Name:         plan.Name,
		MonthlyPrice: entity.FormatCents(plan.Price.MonthlyCents),
		AnnualPrice:  entity.FormatCents(plan.Price.AnnualCents),
		Currency:     string(plan.Currency),
		Features:     plan.Features,
	}
}
