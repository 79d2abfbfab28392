package entity

import (
	"fmt"
	"sort"

	errs "github.com/rica-io/payment-engine/internal/domain/error"
)

// CreditPackage maps a purchase price to a credit amount
type CreditPackage struct {
	ID         string
	Name       string
	Credits    int64
	PriceCents int64
	Currency   Currency
}

// PlanPrice holds a plan's price per billing cycle in cents
type PlanPrice struct {
	MonthlyCents int64
	AnnualCents  int64
}

// SubscriptionPlan is one row of the static plan catalog
type SubscriptionPlan struct {
	ID       string
	Name     string
	Price    PlanPrice
	Currency Currency
	Features []string
}

// Catalog is the read-only reference data for credit packages, subscription
// plans and feature costs. The core never mutates it.
type Catalog struct {
	packages     map[string]CreditPackage
	plans        map[string]SubscriptionPlan
	featureCosts map[string]int64
}

// NewCatalog builds a catalog from explicit reference data
func NewCatalog(packages []CreditPackage, plans []SubscriptionPlan, featureCosts map[string]int64) *Catalog {
	c := &Catalog{
		packages:     make(map[string]CreditPackage, len(packages)),
		plans:        make(map[string]SubscriptionPlan, len(plans)),
		featureCosts: make(map[string]int64, len(featureCosts)),
	}
	for _, p := range packages {
		c.packages[p.ID] = p
	}
	for _, p := range plans {
		c.plans[p.ID] = p
	}
	for f, cost := range featureCosts {
		c.featureCosts[f] = cost
	}
	return c
}

// DefaultCatalog returns the production reference data
func DefaultCatalog() *Catalog {
	return NewCatalog(
		[]CreditPackage{
			{ID: "small", Name: "Basic", Credits: 250, PriceCents: 1000, Currency: CurrencyUSD},
			{ID: "medium", Name: "Standard", Credits: 500, PriceCents: 2000, Currency: CurrencyUSD},
			{ID: "large", Name: "Premium", Credits: 1000, PriceCents: 4000, Currency: CurrencyUSD},
			{ID: "enterprise", Name: "Enterprise", Credits: 2500, PriceCents: 10000, Currency: CurrencyUSD},
		},
		[]SubscriptionPlan{
			{
				ID:       "personal",
				Name:     "Personal",
				Price:    PlanPrice{MonthlyCents: 999, AnnualCents: 9999},
				Currency: CurrencyUSD,
				Features: []string{"threat_scan", "profile_creation", "device_linking"},
			},
			{
				ID:       "professional",
				Name:     "Professional",
				Price:    PlanPrice{MonthlyCents: 1999, AnnualCents: 19999},
				Currency: CurrencyUSD,
				Features: []string{"threat_scan", "profile_creation", "device_linking", "automation_task", "advanced_analytics"},
			},
			{
				ID:       "team",
				Name:     "Team",
				Price:    PlanPrice{MonthlyCents: 2999, AnnualCents: 29999},
				Currency: CurrencyUSD,
				Features: []string{"threat_scan", "profile_creation", "device_linking", "automation_task", "advanced_analytics", "custom_report"},
			},
		},
		map[string]int64{
			"threat_scan":        5,
			"profile_creation":   10,
			"automation_task":    15,
			"device_linking":     20,
			"advanced_analytics": 25,
			"custom_report":      30,
		},
	)
}

// Package looks up a credit package by id
func (c *Catalog) Package(id string) (CreditPackage, error) {
	p, ok := c.packages[id]
	if !ok {
		return CreditPackage{}, fmt.Errorf("%w: %s", errs.ErrUnknownPackage, id)
	}
	return p, nil
}

// Plan looks up a subscription plan by id
func (c *Catalog) Plan(id string) (SubscriptionPlan, error) {
	p, ok := c.plans[id]
	if !ok {
		return SubscriptionPlan{}, fmt.Errorf("%w: %s", errs.ErrUnknownPlan, id)
	}
	return p, nil
}

// PlanPriceCents resolves the price of a plan for a billing cycle
func (c *Catalog) PlanPriceCents(planID string, cycle BillingCycle) (int64, error) {
	p, err := c.Plan(planID)
	if err != nil {
		return 0, err
	}
	if cycle == CycleAnnual {
		return p.Price.AnnualCents, nil
	}
	return p.Price.MonthlyCents, nil
}

// FeatureCost resolves how many credits a feature consumes
func (c *Catalog) FeatureCost(feature string) (int64, error) {
	cost, ok := c.featureCosts[feature]
	if !ok {
		return 0, fmt.Errorf("%w: %s", errs.ErrUnknownFeature, feature)
	}
	return cost, nil
}

// Packages lists all credit packages ordered by price
func (c *Catalog) Packages() []CreditPackage {
	out := make([]CreditPackage, 0, len(c.packages))
	for _, p := range c.packages {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PriceCents < out[j].PriceCents })
	return out
}

// Plans lists all subscription plans ordered by monthly price
func (c *Catalog) Plans() []SubscriptionPlan {
	out := make([]SubscriptionPlan, 0, len(c.plans))
	for _, p := range c.plans {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price.MonthlyCents < out[j].Price.MonthlyCents })
	return out
}
