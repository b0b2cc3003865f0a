package service

import (
	"context"
	"testing"

	"commerce-core/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefundableQuantity(t *testing.T) {
	assert.Equal(t, 3, refundableQuantity(5, 2))
	assert.Equal(t, 0, refundableQuantity(5, 5))
	assert.Equal(t, 0, refundableQuantity(5, 7))
	assert.Equal(t, 4, refundableQuantity(4, 0))
}

func TestDefaultRefundAmountPartial(t *testing.T) {
	order := &models.Order{
		TotalAmount: decimal.RequireFromString("105.00"),
		ShippingFee: decimal.RequireFromString("5.00"),
	}
	orderItems := []models.OrderItem{
		{ID: 1, Quantity: 2, UnitPrice: decimal.RequireFromString("30.00")},
		{ID: 2, Quantity: 1, UnitPrice: decimal.RequireFromString("40.00")},
	}
	refundItems := []models.RefundItem{
		{OrderItemID: 1, Quantity: 1},
	}

	amount := defaultRefundAmount(order, orderItems, refundItems, nil)

	// One of two units of item 1, no shipping fee.
	assert.True(t, amount.Equal(decimal.RequireFromString("30.00")), "got %s", amount)
}

func TestDefaultRefundAmountFullIncludesShipping(t *testing.T) {
	order := &models.Order{
		TotalAmount: decimal.RequireFromString("105.00"),
		ShippingFee: decimal.RequireFromString("5.00"),
	}
	orderItems := []models.OrderItem{
		{ID: 1, Quantity: 2, UnitPrice: decimal.RequireFromString("30.00")},
		{ID: 2, Quantity: 1, UnitPrice: decimal.RequireFromString("40.00")},
	}
	refundItems := []models.RefundItem{
		{OrderItemID: 1, Quantity: 2},
		{OrderItemID: 2, Quantity: 1},
	}

	amount := defaultRefundAmount(order, orderItems, refundItems, nil)

	assert.True(t, amount.Equal(decimal.RequireFromString("105.00")), "got %s", amount)
}

func TestDefaultRefundAmountFullAcrossRefunds(t *testing.T) {
	// A second refund that finishes off the order carries the shipping fee.
	order := &models.Order{
		TotalAmount: decimal.RequireFromString("105.00"),
		ShippingFee: decimal.RequireFromString("5.00"),
	}
	orderItems := []models.OrderItem{
		{ID: 1, Quantity: 2, UnitPrice: decimal.RequireFromString("30.00")},
		{ID: 2, Quantity: 1, UnitPrice: decimal.RequireFromString("40.00")},
	}
	refundItems := []models.RefundItem{
		{OrderItemID: 1, Quantity: 1},
		{OrderItemID: 2, Quantity: 1},
	}
	refundedBefore := map[int64]int{1: 1}

	amount := defaultRefundAmount(order, orderItems, refundItems, refundedBefore)

	// 30 + 40 + 5 shipping
	assert.True(t, amount.Equal(decimal.RequireFromString("75.00")), "got %s", amount)
}

func TestDefaultRefundAmountCappedAtOrderTotal(t *testing.T) {
	// A discounted order: item prices sum above the discounted total.
	order := &models.Order{
		TotalAmount: decimal.RequireFromString("90.00"),
		ShippingFee: decimal.RequireFromString("5.00"),
	}
	orderItems := []models.OrderItem{
		{ID: 1, Quantity: 1, UnitPrice: decimal.RequireFromString("100.00")},
	}
	refundItems := []models.RefundItem{
		{OrderItemID: 1, Quantity: 1},
	}

	amount := defaultRefundAmount(order, orderItems, refundItems, nil)

	assert.True(t, amount.Equal(decimal.RequireFromString("90.00")), "got %s", amount)
}

func TestRequestRefundValidation(t *testing.T) {
	s := &RefundService{}

	t.Run("unknown type", func(t *testing.T) {
		_, err := s.RequestRefund(context.Background(), &RequestRefundInput{
			OrderID: 1,
			UserID:  1,
			Type:    "chargeback",
			Items:   []RequestRefundItem{{OrderItemID: 1, Quantity: 1}},
		})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("no items", func(t *testing.T) {
		_, err := s.RequestRefund(context.Background(), &RequestRefundInput{
			OrderID: 1,
			UserID:  1,
			Type:    models.RefundTypeRefund,
		})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("zero quantity", func(t *testing.T) {
		_, err := s.RequestRefund(context.Background(), &RequestRefundInput{
			OrderID: 1,
			UserID:  1,
			Type:    models.RefundTypeRefund,
			Items:   []RequestRefundItem{{OrderItemID: 1, Quantity: 0}},
		})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

// deliveredOrderItem places a single-line order, walks it to delivered and
// returns the order with its one item.
func deliveredOrderItem(t *testing.T, env *testEnv, userID, productID int64, quantity int) (*models.Order, models.OrderItem) {
	t.Helper()
	order := env.placeOrder(t, userID, productID, quantity, "")
	env.deliverOrder(t, order.ID)

	_, items, _, err := env.orders.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	return order, items[0]
}

func TestOverRefundRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.seedUser(t)
	product := env.seedProduct(t, "20.00", 10, 1)
	order, item := deliveredOrderItem(t, env, user.ID, product.ID, 3)

	_, err := env.refunds.RequestRefund(ctx, &RequestRefundInput{
		OrderID: order.ID,
		UserID:  user.ID,
		Type:    models.RefundTypeRefund,
		Reason:  "damaged",
		Items:   []RequestRefundItem{{OrderItemID: item.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	// Pending refunds hold the balance: 2 of 3 units are spoken for.
	_, err = env.refunds.RequestRefund(ctx, &RequestRefundInput{
		OrderID: order.ID,
		UserID:  user.ID,
		Type:    models.RefundTypeRefund,
		Reason:  "damaged",
		Items:   []RequestRefundItem{{OrderItemID: item.ID, Quantity: 2}},
	})
	require.ErrorIs(t, err, ErrOverRefund)
}

func TestApproveCreditsStockOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.seedUser(t)
	product := env.seedProduct(t, "20.00", 10, 1)
	order, item := deliveredOrderItem(t, env, user.ID, product.ID, 4)
	require.Equal(t, 6, env.productStock(t, product.ID))

	refund, err := env.refunds.RequestRefund(ctx, &RequestRefundInput{
		OrderID: order.ID,
		UserID:  user.ID,
		Type:    models.RefundTypeReturn,
		Reason:  "wrong size",
		Items:   []RequestRefundItem{{OrderItemID: item.ID, Quantity: 4}},
	})
	require.NoError(t, err)

	_, err = env.refunds.Resolve(ctx, refund.ID, models.RefundStatusApproved, "admin", nil)
	require.NoError(t, err)
	assert.Equal(t, 10, env.productStock(t, product.ID))

	// Re-entering approved is not a legal transition, so the credit
	// cannot happen twice.
	_, err = env.refunds.Resolve(ctx, refund.ID, models.RefundStatusApproved, "admin", nil)
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, 10, env.productStock(t, product.ID))
}

func TestRejectAfterApproveReReserves(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.seedUser(t)
	product := env.seedProduct(t, "20.00", 10, 1)
	order, item := deliveredOrderItem(t, env, user.ID, product.ID, 3)

	refund, err := env.refunds.RequestRefund(ctx, &RequestRefundInput{
		OrderID: order.ID,
		UserID:  user.ID,
		Type:    models.RefundTypeReturn,
		Reason:  "wrong size",
		Items:   []RequestRefundItem{{OrderItemID: item.ID, Quantity: 3}},
	})
	require.NoError(t, err)

	_, err = env.refunds.Resolve(ctx, refund.ID, models.RefundStatusApproved, "admin", nil)
	require.NoError(t, err)
	require.Equal(t, 10, env.productStock(t, product.ID))

	_, err = env.refunds.Resolve(ctx, refund.ID, models.RefundStatusRejected, "admin", nil)
	require.NoError(t, err)

	// Walking back the approval takes the credited units out again.
	assert.Equal(t, 7, env.productStock(t, product.ID))
}

func TestCompletedSetsPaymentRefunded(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.seedUser(t)
	product := env.seedProduct(t, "20.00", 10, 1)
	order, item := deliveredOrderItem(t, env, user.ID, product.ID, 2)

	refund, err := env.refunds.RequestRefund(ctx, &RequestRefundInput{
		OrderID: order.ID,
		UserID:  user.ID,
		Type:    models.RefundTypeRefund,
		Reason:  "damaged",
		Items:   []RequestRefundItem{{OrderItemID: item.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	_, err = env.refunds.Resolve(ctx, refund.ID, models.RefundStatusApproved, "admin", nil)
	require.NoError(t, err)
	_, err = env.refunds.Resolve(ctx, refund.ID, models.RefundStatusProcessing, "admin", nil)
	require.NoError(t, err)

	resolved, err := env.refunds.Resolve(ctx, refund.ID, models.RefundStatusCompleted, "admin", nil)
	require.NoError(t, err)
	assert.Equal(t, models.RefundStatusCompleted, resolved.Status)

	// The refund covers every unit, so the order flips to refunded.
	current, _, _, err := env.orders.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, current.PaymentStatus)

	// The default policy pays items plus shipping: 2 x 20.00 + 5.00.
	require.NotNil(t, resolved.RefundAmount)
	assert.True(t, resolved.RefundAmount.Equal(decimal.RequireFromString("45.00")),
		"got %s", resolved.RefundAmount)
}
