package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"commerce-core/internal/models"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClassification(t *testing.T) {
	unique := &pq.Error{Code: "23505"}
	fk := &pq.Error{Code: "23503"}
	serialization := &pq.Error{Code: "40001"}
	deadlock := &pq.Error{Code: "40P01"}

	assert.True(t, IsUniqueViolation(unique))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert failed: %w", unique)))
	assert.False(t, IsUniqueViolation(fk))
	assert.False(t, IsUniqueViolation(errors.New("plain")))

	assert.True(t, IsForeignKeyViolation(fk))
	assert.False(t, IsForeignKeyViolation(unique))

	assert.True(t, IsSerializationFailure(serialization))
	assert.True(t, IsSerializationFailure(deadlock))
	assert.False(t, IsSerializationFailure(unique))

	assert.True(t, IsNoRows(sql.ErrNoRows))
	assert.True(t, IsNoRows(fmt.Errorf("lookup: %w", sql.ErrNoRows)))
	assert.False(t, IsNoRows(errors.New("plain")))
}

// testStore connects to the database named by TEST_DATABASE_URL, applying
// the schema first. Tests using it skip when the variable is unset.
func testStore(t *testing.T) *Store {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("integration test - set TEST_DATABASE_URL to run")
	}

	st, err := NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testSuffix() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}

func TestReserveStockRow(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	product := &models.Product{
		SKU:      "SKU-RSV-" + testSuffix(),
		Name:     "Reservation Target",
		Price:    decimal.RequireFromString("9.99"),
		Stock:    5,
		IsActive: true,
	}
	require.NoError(t, st.CreateProduct(ctx, product))

	err := st.WithTx(ctx, func(tx *Tx) error {
		current, err := tx.LockProductStock(ctx, product.ID)
		if err != nil {
			return err
		}
		if err := tx.UpdateProductStock(ctx, product.ID, current-1); err != nil {
			return err
		}
		return tx.InsertStockHistory(ctx, &models.StockHistory{
			ProductID:     product.ID,
			ChangeType:    models.StockChangeOut,
			Quantity:      1,
			PreviousStock: current,
			CurrentStock:  current - 1,
			Reason:        "test reservation",
		})
	})
	require.NoError(t, err)

	current, err := st.GetProductByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, current.Stock)
}

func TestCouponUsageUniqueConstraint(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	user := &models.User{
		Email:    "usage-" + testSuffix() + "@example.test",
		Name:     "Usage Tester",
		IsActive: true,
	}
	require.NoError(t, st.CreateUser(ctx, user))

	coupon := &models.Coupon{
		Code:           "USAGE-" + testSuffix(),
		Type:           models.CouponTypeFixed,
		Value:          decimal.NewFromInt(10),
		MinOrderAmount: decimal.Zero,
		UsageLimit:     5,
		StartsAt:       time.Now().Add(-time.Hour),
		ExpiresAt:      time.Now().Add(time.Hour),
		IsActive:       true,
	}
	require.NoError(t, st.CreateCoupon(ctx, coupon))

	order := &models.Order{
		OrderNumber:     "ORD-TEST-" + testSuffix(),
		UserID:          user.ID,
		TotalAmount:     decimal.NewFromInt(50),
		ShippingFee:     decimal.NewFromInt(5),
		DiscountAmount:  decimal.Zero,
		ShippingAddress: "1 Test Lane",
		PaymentMethod:   models.PaymentMethodOnline,
		PaymentStatus:   models.PaymentStatusPending,
		OrderStatus:     models.OrderStatusPending,
	}
	require.NoError(t, st.WithTx(ctx, func(tx *Tx) error {
		return tx.InsertOrder(ctx, order)
	}))

	usage := &models.CouponUsage{
		CouponID:       coupon.ID,
		UserID:         user.ID,
		OrderID:        order.ID,
		DiscountAmount: decimal.NewFromInt(10),
	}

	err := st.WithTx(ctx, func(tx *Tx) error {
		return tx.InsertCouponUsage(ctx, usage)
	})
	require.NoError(t, err)

	// Same (coupon, user, order) must hit the unique index.
	duplicate := &models.CouponUsage{
		CouponID:       coupon.ID,
		UserID:         user.ID,
		OrderID:        order.ID,
		DiscountAmount: decimal.NewFromInt(10),
	}
	err = st.WithTx(ctx, func(tx *Tx) error {
		return tx.InsertCouponUsage(ctx, duplicate)
	})
	assert.True(t, IsUniqueViolation(err), "got %v", err)
}
