package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/rica-io/payment-engine/internal/domain/error"
)

func TestCatalogLookups(t *testing.T) {
	catalog := DefaultCatalog()

	t.Run("package by id", func(t *testing.T) {
		pkg, err := catalog.Package("medium")
		require.NoError(t, err)
		assert.Equal(t, int64(500), pkg.Credits)
		assert.Equal(t, int64(2000), pkg.PriceCents)
		assert.Equal(t, CurrencyUSD, pkg.Currency)
	})

	t.Run("unknown package", func(t *testing.T) {
		_, err := catalog.Package("gigantic")
		assert.ErrorIs(t, err, errs.ErrUnknownPackage)
	})

	t.Run("plan by id", func(t *testing.T) {
		plan, err := catalog.Plan("professional")
		require.NoError(t, err)
		assert.Equal(t, "Professional", plan.Name)
		assert.Contains(t, plan.Features, "automation_task")
	})

	t.Run("unknown plan", func(t *testing.T) {
		_, err := catalog.Plan("platinum")
		assert.ErrorIs(t, err, errs.ErrUnknownPlan)
	})

	t.Run("plan price per billing cycle", func(t *testing.T) {
		monthly, err := catalog.PlanPriceCents("personal", CycleMonthly)
		require.NoError(t, err)
		assert.Equal(t, int64(999), monthly)

		annual, err := catalog.PlanPriceCents("personal", CycleAnnual)
		require.NoError(t, err)
		assert.Equal(t, int64(9999), annual)

		_, err = catalog.PlanPriceCents("platinum", CycleMonthly)
		assert.ErrorIs(t, err, errs.ErrUnknownPlan)
	})

	t.Run("feature costs", func(t *testing.T) {
		cost, err := catalog.FeatureCost("threat_scan")
		require.NoError(t, err)
		assert.Equal(t, int64(5), cost)

		cost, err = catalog.FeatureCost("custom_report")
		require.NoError(t, err)
		assert.Equal(t, int64(30), cost)

		_, err = catalog.FeatureCost("time_travel")
		assert.ErrorIs(t, err, errs.ErrUnknownFeature)
	})
}

func TestCatalogListings(t *testing.T) {
	catalog := DefaultCatalog()

	t.Run("packages sorted by price", func(t *testing.T) {
		packages := catalog.Packages()
		require.Len(t, packages, 4)
		for i := 1; i < len(packages); i++ {
			assert.Less(t, packages[i-1].PriceCents, packages[i].PriceCents)
		}
		assert.Equal(t, "small", packages[0].ID)
		assert.Equal(t, "enterprise", packages[3].ID)
	})

	t.Run("plans sorted by monthly price", func(t *testing.T) {
		plans := catalog.Plans()
		require.Len(t, plans, 3)
		assert.Equal(t, "personal", plans[0].ID)
		assert.Equal(t, "professional", plans[1].ID)
		assert.Equal(t, "team", plans[2].ID)
	})
}
