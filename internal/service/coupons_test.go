package service

import (
	"context"
	"testing"
	"time"

	"commerce-core/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeDiscountPercent(t *testing.T) {
	coupon := &models.Coupon{
		Type:  models.CouponTypePercent,
		Value: decimal.NewFromInt(10),
	}

	discount := computeDiscount(coupon, decimal.NewFromInt(200))
	assert.True(t, discount.Equal(decimal.NewFromInt(20)), "got %s", discount)
}

func TestComputeDiscountPercentCap(t *testing.T) {
	maxDiscount := decimal.NewFromInt(15)
	coupon := &models.Coupon{
		Type:        models.CouponTypePercent,
		Value:       decimal.NewFromInt(10),
		MaxDiscount: &maxDiscount,
	}

	discount := computeDiscount(coupon, decimal.NewFromInt(500))
	assert.True(t, discount.Equal(maxDiscount), "got %s", discount)
}

func TestComputeDiscountFixed(t *testing.T) {
	coupon := &models.Coupon{
		Type:  models.CouponTypeFixed,
		Value: decimal.NewFromInt(25),
	}

	discount := computeDiscount(coupon, decimal.NewFromInt(100))
	assert.True(t, discount.Equal(decimal.NewFromInt(25)), "got %s", discount)
}

func TestComputeDiscountNeverExceedsAmount(t *testing.T) {
	coupon := &models.Coupon{
		Type:  models.CouponTypeFixed,
		Value: decimal.NewFromInt(50),
	}

	discount := computeDiscount(coupon, decimal.NewFromInt(30))
	assert.True(t, discount.Equal(decimal.NewFromInt(30)), "got %s", discount)
}

func TestComputeDiscountRounding(t *testing.T) {
	coupon := &models.Coupon{
		Type:  models.CouponTypePercent,
		Value: decimal.NewFromInt(15),
	}

	// 15% of 19.99 = 2.9985, rounds to 3.00
	discount := computeDiscount(coupon, decimal.RequireFromString("19.99"))
	assert.True(t, discount.Equal(decimal.RequireFromString("3.00")), "got %s", discount)
}

func TestCheckEligibility(t *testing.T) {
	g := &CouponGuard{}
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	base := models.Coupon{
		Code:           "SUMMER10",
		IsActive:       true,
		StartsAt:       now.Add(-24 * time.Hour),
		ExpiresAt:      now.Add(24 * time.Hour),
		MinOrderAmount: decimal.NewFromInt(50),
	}

	t.Run("eligible", func(t *testing.T) {
		coupon := base
		err := g.checkEligibility(&coupon, decimal.NewFromInt(100), now)
		assert.NoError(t, err)
	})

	t.Run("inactive", func(t *testing.T) {
		coupon := base
		coupon.IsActive = false
		err := g.checkEligibility(&coupon, decimal.NewFromInt(100), now)
		assert.ErrorIs(t, err, ErrCouponNotEligible)
	})

	t.Run("not started", func(t *testing.T) {
		coupon := base
		coupon.StartsAt = now.Add(time.Hour)
		err := g.checkEligibility(&coupon, decimal.NewFromInt(100), now)
		assert.ErrorIs(t, err, ErrCouponNotEligible)
	})

	t.Run("expired", func(t *testing.T) {
		coupon := base
		coupon.ExpiresAt = now.Add(-time.Hour)
		err := g.checkEligibility(&coupon, decimal.NewFromInt(100), now)
		assert.ErrorIs(t, err, ErrCouponNotEligible)
	})

	t.Run("below minimum", func(t *testing.T) {
		coupon := base
		err := g.checkEligibility(&coupon, decimal.NewFromInt(49), now)
		assert.ErrorIs(t, err, ErrCouponNotEligible)
	})
}

func TestApplyCouponTwiceSameOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.seedUser(t)
	product := env.seedProduct(t, "50.00", 10, 1)
	coupon := env.seedCoupon(t, models.CouponTypeFixed, "5.00", 10)

	order := env.placeOrder(t, user.ID, product.ID, 1, "")

	applied, err := env.orders.ApplyCoupon(ctx, order.ID, coupon.Code)
	require.NoError(t, err)
	assert.True(t, applied.DiscountAmount.Equal(decimal.RequireFromString("5.00")),
		"got %s", applied.DiscountAmount)

	_, err = env.orders.ApplyCoupon(ctx, order.ID, coupon.Code)
	require.ErrorIs(t, err, ErrAlreadyUsed)
}

func TestApplyCouponUsageLimit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.seedUser(t)
	product := env.seedProduct(t, "50.00", 10, 1)
	coupon := env.seedCoupon(t, models.CouponTypeFixed, "5.00", 1)

	env.placeOrder(t, user.ID, product.ID, 1, coupon.Code)

	// The single usage slot is gone, so the next checkout with the same
	// code fails and leaves stock untouched.
	_, err := env.orders.PlaceOrder(ctx, &PlaceOrderRequest{
		UserID:          user.ID,
		Items:           []PlaceOrderItem{{ProductID: product.ID, Quantity: 1}},
		ShippingAddress: "1 Test Lane",
		PaymentMethod:   models.PaymentMethodOnline,
		CouponCode:      coupon.Code,
	})
	require.ErrorIs(t, err, ErrLimitExceeded)
	assert.Equal(t, 9, env.productStock(t, product.ID))
}

func TestCouponUsageSurvivesOrderCancellation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.seedUser(t)
	product := env.seedProduct(t, "50.00", 10, 1)
	coupon := env.seedCoupon(t, models.CouponTypeFixed, "5.00", 10)

	order := env.placeOrder(t, user.ID, product.ID, 1, coupon.Code)

	_, err := env.orders.Cancel(ctx, order.ID, "buyer", "changed my mind")
	require.NoError(t, err)

	// The usage row and the counter both survive cancellation.
	usages, err := env.store.GetCouponUsageByOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, usages, 1)
	assert.Equal(t, coupon.ID, usages[0].CouponID)

	current, err := env.store.GetCouponByCode(ctx, coupon.Code)
	require.NoError(t, err)
	assert.Equal(t, 1, current.UsedCount)
}
