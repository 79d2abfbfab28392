package subscription

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rica-io/payment-engine/internal/domain/entity"
	errs "github.com/rica-io/payment-engine/internal/domain/error"
	"github.com/rica-io/payment-engine/internal/infrastructure/adapter/logger"
)

type subscriptionFixture struct {
	service *Service
	subs    *memSubscriptionRepo
	txns    *memTransactionRepo
	clock   *fakeClock
}

func newSubscriptionFixture(t *testing.T) *subscriptionFixture {
	t.Helper()
	f := &subscriptionFixture{
		subs:  newMemSubscriptionRepo(),
		txns:  newMemTransactionRepo(),
		clock: newFakeClock(),
	}
	f.service = NewService(f.subs, f.txns, entity.DefaultCatalog(), f.clock, logger.NewNoopLogger())
	return f
}

func (f *subscriptionFixture) createActive(t *testing.T, userID string) *entity.Subscription {
	t.Helper()
	sub, err := f.service.Create(context.Background(), userID, "professional", entity.CycleMonthly, "card")
	require.NoError(t, err)
	sub, err = f.service.Activate(context.Background(), sub.ID)
	require.NoError(t, err)
	return sub
}

func TestCreateSubscription(t *testing.T) {
	ctx := context.Background()

	t.Run("creates pending with the catalog price", func(t *testing.T) {
		f := newSubscriptionFixture(t)

		sub, err := f.service.Create(ctx, "user-1", "personal", entity.CycleAnnual, "card")
		require.NoError(t, err)

		assert.Equal(t, entity.SubscriptionPending, sub.Status)
		assert.Equal(t, int64(9999), sub.PriceCents)
		assert.Equal(t, entity.CurrencyUSD, sub.Currency)
	})

	t.Run("one live subscription per user", func(t *testing.T) {
		f := newSubscriptionFixture(t)
		first, err := f.service.Create(ctx, "user-1", "personal", entity.CycleMonthly, "card")
		require.NoError(t, err)

		_, err = f.service.Create(ctx, "user-1", "team", entity.CycleMonthly, "card")
		assert.ErrorIs(t, err, errs.ErrSubscriptionConflict)

		var conflict *errs.ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, first.ID, conflict.ExistingSubscriptionID)
	})

	t.Run("a pending subscription already blocks a second create", func(t *testing.T) {
		f := newSubscriptionFixture(t)
		_, err := f.service.Create(ctx, "user-1", "personal", entity.CycleMonthly, "card")
		require.NoError(t, err)

		_, err = f.service.Create(ctx, "user-1", "personal", entity.CycleMonthly, "card")
		assert.ErrorIs(t, err, errs.ErrSubscriptionConflict)
	})

	t.Run("an expired subscription does not block", func(t *testing.T) {
		f := newSubscriptionFixture(t)
		f.createActive(t, "user-1")
		f.clock.Advance(40 * 24 * time.Hour)
		_, err := f.service.SweepExpired(ctx, 10)
		require.NoError(t, err)

		_, err = f.service.Create(ctx, "user-1", "personal", entity.CycleMonthly, "card")
		assert.NoError(t, err)
	})

	t.Run("unknown plan", func(t *testing.T) {
		f := newSubscriptionFixture(t)
		_, err := f.service.Create(ctx, "user-1", "platinum", entity.CycleMonthly, "card")
		assert.ErrorIs(t, err, errs.ErrUnknownPlan)
	})
}

func TestActivateSubscription(t *testing.T) {
	ctx := context.Background()

	t.Run("pending becomes active with a billing period", func(t *testing.T) {
		f := newSubscriptionFixture(t)
		sub, err := f.service.Create(ctx, "user-1", "personal", entity.CycleMonthly, "card")
		require.NoError(t, err)

		activated, err := f.service.Activate(ctx, sub.ID)
		require.NoError(t, err)

		assert.Equal(t, entity.SubscriptionActive, activated.Status)
		assert.Equal(t, f.clock.Now(), activated.CurrentPeriodStart)
		assert.Equal(t, f.clock.Now().AddDate(0, 1, 0), activated.CurrentPeriodEnd)
	})

	t.Run("activating an active subscription is a no-op", func(t *testing.T) {
		f := newSubscriptionFixture(t)
		sub := f.createActive(t, "user-1")
		periodEnd := sub.CurrentPeriodEnd

		f.clock.Advance(time.Hour)
		again, err := f.service.Activate(ctx, sub.ID)
		require.NoError(t, err)

		assert.Equal(t, entity.SubscriptionActive, again.Status)
		assert.Equal(t, periodEnd, again.CurrentPeriodEnd, "replay must not move the billing period")
	})

	t.Run("cancelled cannot be activated", func(t *testing.T) {
		f := newSubscriptionFixture(t)
		sub := f.createActive(t, "user-1")
		_, err := f.service.Cancel(ctx, sub.ID, "")
		require.NoError(t, err)

		_, err = f.service.Activate(ctx, sub.ID)
		assert.True(t, errs.IsInvalidStateError(err))
	})
}

func TestCancelSubscription(t *testing.T) {
	ctx := context.Background()

	t.Run("access survives until the period end", func(t *testing.T) {
		f := newSubscriptionFixture(t)
		sub := f.createActive(t, "user-1")

		cancelled, err := f.service.Cancel(ctx, sub.ID, "too expensive")
		require.NoError(t, err)
		assert.Equal(t, entity.SubscriptionCancelled, cancelled.Status)

		has, err := f.service.HasFeatureAccess(ctx, "user-1")
		require.NoError(t, err)
		assert.True(t, has)

		f.clock.Advance(32 * 24 * time.Hour)
		has, err = f.service.HasFeatureAccess(ctx, "user-1")
		require.NoError(t, err)
		assert.False(t, has)
	})

	t.Run("cancelling a pending subscription is rejected", func(t *testing.T) {
		f := newSubscriptionFixture(t)
		sub, err := f.service.Create(ctx, "user-1", "personal", entity.CycleMonthly, "card")
		require.NoError(t, err)

		_, err = f.service.Cancel(ctx, sub.ID, "")
		assert.True(t, errs.IsInvalidStateError(err))
	})
}

func TestRenewSubscription(t *testing.T) {
	ctx := context.Background()

	t.Run("requires a completed payment newer than the period start", func(t *testing.T) {
		f := newSubscriptionFixture(t)
		sub := f.createActive(t, "user-1")

		_, err := f.service.Renew(ctx, sub.ID)
		assert.ErrorIs(t, err, errs.ErrPaymentRequired)

		current, err := f.service.Get(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, sub.CurrentPeriodEnd, current.CurrentPeriodEnd)
	})

	t.Run("renews with a fresh completed payment", func(t *testing.T) {
		f := newSubscriptionFixture(t)
		sub := f.createActive(t, "user-1")
		oldEnd := sub.CurrentPeriodEnd

		f.clock.Advance(20 * 24 * time.Hour)
		f.txns.addCompleted(sub.ID, f.clock.Now())

		renewed, err := f.service.Renew(ctx, sub.ID)
		require.NoError(t, err)

		assert.Equal(t, oldEnd, renewed.CurrentPeriodStart)
		assert.Equal(t, oldEnd.AddDate(0, 1, 0), renewed.CurrentPeriodEnd)
	})

	t.Run("a payment from the previous period does not count", func(t *testing.T) {
		f := newSubscriptionFixture(t)
		sub := f.createActive(t, "user-1")

		// completed before this period started
		f.txns.addCompleted(sub.ID, sub.CurrentPeriodStart.Add(-time.Hour))

		_, err := f.service.Renew(ctx, sub.ID)
		assert.ErrorIs(t, err, errs.ErrPaymentRequired)
	})

	t.Run("one payment funds at most one period", func(t *testing.T) {
		f := newSubscriptionFixture(t)
		sub := f.createActive(t, "user-1")

		// the period lapses before the payment lands, so the payment stays
		// newer than the advanced period start too
		f.clock.Advance(40 * 24 * time.Hour)
		f.txns.addCompleted(sub.ID, f.clock.Now())

		renewed, err := f.service.Renew(ctx, sub.ID)
		require.NoError(t, err)
		endAfterFirst := renewed.CurrentPeriodEnd

		_, err = f.service.Renew(ctx, sub.ID)
		assert.ErrorIs(t, err, errs.ErrPaymentRequired)

		current, err := f.service.Get(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, endAfterFirst, current.CurrentPeriodEnd)
	})

	t.Run("a later payment renews again", func(t *testing.T) {
		f := newSubscriptionFixture(t)
		sub := f.createActive(t, "user-1")

		f.clock.Advance(20 * 24 * time.Hour)
		f.txns.addCompletedWithID("txn-first", sub.ID, f.clock.Now())
		first, err := f.service.Renew(ctx, sub.ID)
		require.NoError(t, err)

		f.clock.Advance(30 * 24 * time.Hour)
		f.txns.addCompletedWithID("txn-second", sub.ID, f.clock.Now())
		second, err := f.service.Renew(ctx, sub.ID)
		require.NoError(t, err)

		assert.Equal(t, first.CurrentPeriodEnd, second.CurrentPeriodStart)
		assert.Equal(t, "txn-second", second.LastPaymentTxnID)
	})

	t.Run("reactivates a cancelled subscription in its grace period", func(t *testing.T) {
		f := newSubscriptionFixture(t)
		sub := f.createActive(t, "user-1")
		_, err := f.service.Cancel(ctx, sub.ID, "second thoughts")
		require.NoError(t, err)

		f.clock.Advance(24 * time.Hour)
		f.txns.addCompleted(sub.ID, f.clock.Now())

		renewed, err := f.service.Renew(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.SubscriptionActive, renewed.Status)
		assert.True(t, renewed.AutoRenew)
	})
}

func TestChangePlan(t *testing.T) {
	ctx := context.Background()

	t.Run("applies the new catalog price immediately", func(t *testing.T) {
		f := newSubscriptionFixture(t)
		sub := f.createActive(t, "user-1")

		changed, err := f.service.ChangePlan(ctx, sub.ID, "team", entity.CycleAnnual)
		require.NoError(t, err)

		assert.Equal(t, "team", changed.PlanID)
		assert.Equal(t, entity.CycleAnnual, changed.BillingCycle)
		assert.Equal(t, int64(29999), changed.PriceCents)
	})

	t.Run("unknown target plan", func(t *testing.T) {
		f := newSubscriptionFixture(t)
		sub := f.createActive(t, "user-1")

		_, err := f.service.ChangePlan(ctx, sub.ID, "platinum", entity.CycleMonthly)
		assert.ErrorIs(t, err, errs.ErrUnknownPlan)
	})
}

func TestHasFeatureAccess(t *testing.T) {
	ctx := context.Background()

	t.Run("no subscription means no access, not an error", func(t *testing.T) {
		f := newSubscriptionFixture(t)
		has, err := f.service.HasFeatureAccess(ctx, "ghost")
		require.NoError(t, err)
		assert.False(t, has)
	})

	t.Run("pending grants nothing yet", func(t *testing.T) {
		f := newSubscriptionFixture(t)
		_, err := f.service.Create(ctx, "user-1", "personal", entity.CycleMonthly, "card")
		require.NoError(t, err)

		has, err := f.service.HasFeatureAccess(ctx, "user-1")
		require.NoError(t, err)
		assert.False(t, has)
	})
}

func TestSweepExpired(t *testing.T) {
	ctx := context.Background()

	t.Run("expires lapsed active and cancelled subscriptions", func(t *testing.T) {
		f := newSubscriptionFixture(t)
		active := f.createActive(t, "user-1")
		cancelledSub := f.createActive(t, "user-2")
		_, err := f.service.Cancel(ctx, cancelledSub.ID, "")
		require.NoError(t, err)
		fresh := f.createActive(t, "user-3")

		f.clock.Advance(32 * 24 * time.Hour)
		f.txns.addCompleted(fresh.ID, f.clock.Now())
		_, err = f.service.Renew(ctx, fresh.ID)
		require.NoError(t, err)

		expired, err := f.service.SweepExpired(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, 2, expired)

		for _, id := range []string{active.ID, cancelledSub.ID} {
			sub, err := f.service.Get(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, entity.SubscriptionExpired, sub.Status)
		}

		renewed, err := f.service.Get(ctx, fresh.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.SubscriptionActive, renewed.Status)
	})

	t.Run("nothing lapsed, nothing expired", func(t *testing.T) {
		f := newSubscriptionFixture(t)
		f.createActive(t, "user-1")

		expired, err := f.service.SweepExpired(ctx, 10)
		require.NoError(t, err)
		assert.Zero(t, expired)
	})
}
