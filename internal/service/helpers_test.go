package service

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"commerce-core/internal/models"
	"commerce-core/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// testEnv wires the services against a real database. Tests using it are
// gated on TEST_DATABASE_URL so the pure-function tests keep running
// everywhere.
type testEnv struct {
	store   *store.Store
	ledger  *Ledger
	coupons *CouponGuard
	orders  *OrderService
	refunds *RefundService
}

var seedSeq atomic.Int64

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("integration test - set TEST_DATABASE_URL to run")
	}

	st, err := store.NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	require.NoError(t, st.Migrate(context.Background()))

	monitor := NewStockAlertMonitor(NopDispatcher{})
	ledger := NewLedger(st, nil, monitor)
	coupons := NewCouponGuard(st)
	shippingFee := decimal.RequireFromString("5.00")
	orders := NewOrderService(st, ledger, coupons, NopDispatcher{}, NopAuditWriter{}, shippingFee, 3)
	refunds := NewRefundService(st, ledger, NopDispatcher{}, NopAuditWriter{}, 3)

	return &testEnv{
		store:   st,
		ledger:  ledger,
		coupons: coupons,
		orders:  orders,
		refunds: refunds,
	}
}

// uniqueSuffix keeps seeded rows from colliding across runs against a
// shared database.
func uniqueSuffix() string {
	return fmt.Sprintf("%d-%d", time.Now().UnixNano(), seedSeq.Add(1))
}

func (e *testEnv) seedUser(t *testing.T) *models.User {
	t.Helper()
	user := &models.User{
		Email:    fmt.Sprintf("buyer-%s@example.test", uniqueSuffix()),
		Name:     "Test Buyer",
		IsActive: true,
	}
	require.NoError(t, e.store.CreateUser(context.Background(), user))
	return user
}

func (e *testEnv) seedProduct(t *testing.T, price string, stock, threshold int) *models.Product {
	t.Helper()
	product := &models.Product{
		SKU:            fmt.Sprintf("SKU-%s", uniqueSuffix()),
		Name:           "Test Product",
		Price:          decimal.RequireFromString(price),
		Stock:          stock,
		AlertThreshold: threshold,
		IsActive:       true,
	}
	require.NoError(t, e.store.CreateProduct(context.Background(), product))
	return product
}

func (e *testEnv) seedVariant(t *testing.T, productID int64, stock, threshold int) *models.ProductVariant {
	t.Helper()
	variant := &models.ProductVariant{
		ProductID:      productID,
		SKU:            fmt.Sprintf("VAR-%s", uniqueSuffix()),
		Name:           "Test Variant",
		Stock:          stock,
		AlertThreshold: threshold,
		IsActive:       true,
	}
	require.NoError(t, e.store.CreateProductVariant(context.Background(), variant))
	return variant
}

func (e *testEnv) seedCoupon(t *testing.T, kind models.CouponType, value string, usageLimit int) *models.Coupon {
	t.Helper()
	coupon := &models.Coupon{
		Code:           fmt.Sprintf("TEST-%s", uniqueSuffix()),
		Type:           kind,
		Value:          decimal.RequireFromString(value),
		MinOrderAmount: decimal.Zero,
		UsageLimit:     usageLimit,
		StartsAt:       time.Now().Add(-time.Hour),
		ExpiresAt:      time.Now().Add(time.Hour),
		IsActive:       true,
	}
	require.NoError(t, e.store.CreateCoupon(context.Background(), coupon))
	return coupon
}

func (e *testEnv) placeOrder(t *testing.T, userID, productID int64, quantity int, couponCode string) *models.Order {
	t.Helper()
	order, err := e.orders.PlaceOrder(context.Background(), &PlaceOrderRequest{
		UserID:          userID,
		Items:           []PlaceOrderItem{{ProductID: productID, Quantity: quantity}},
		ShippingAddress: "1 Test Lane",
		PaymentMethod:   models.PaymentMethodOnline,
		CouponCode:      couponCode,
	})
	require.NoError(t, err)
	return order
}

// deliverOrder walks the order through the full forward path.
func (e *testEnv) deliverOrder(t *testing.T, orderID int64) {
	t.Helper()
	ctx := context.Background()
	for _, status := range []models.OrderStatus{
		models.OrderStatusConfirmed,
		models.OrderStatusProcessing,
		models.OrderStatusShipping,
		models.OrderStatusDelivered,
	} {
		_, err := e.orders.Transition(ctx, orderID, status, "admin", "")
		require.NoError(t, err)
	}
}

func (e *testEnv) productStock(t *testing.T, productID int64) int {
	t.Helper()
	stock, err := e.ledger.CurrentStock(context.Background(), productID, nil)
	require.NoError(t, err)
	return stock
}
