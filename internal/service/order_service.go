package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"commerce-core/internal/models"
	"commerce-core/internal/store"
	"commerce-core/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderService is the order state machine. It owns every order mutation:
// placement, status transitions, cancellation, and the payment-status
// setter driven by the external payment collaborator.
type OrderService struct {
	store       *store.Store
	ledger      *Ledger
	coupons     *CouponGuard
	notifier    NotificationDispatcher
	audit       AuditWriter
	logger      *zap.Logger
	shippingFee decimal.Decimal
	retries     int
	now         func() time.Time
}

// NewOrderService creates a new order service
func NewOrderService(
	st *store.Store,
	ledger *Ledger,
	coupons *CouponGuard,
	notifier NotificationDispatcher,
	audit AuditWriter,
	shippingFee decimal.Decimal,
	conflictRetries int,
) *OrderService {
	return &OrderService{
		store:       st,
		ledger:      ledger,
		coupons:     coupons,
		notifier:    notifier,
		audit:       audit,
		logger:      util.GetLogger(),
		shippingFee: shippingFee,
		retries:     conflictRetries,
		now:         time.Now,
	}
}

// PlaceOrderRequest represents a checkout request
type PlaceOrderRequest struct {
	UserID          int64                `json:"user_id" binding:"required"`
	Items           []PlaceOrderItem     `json:"items" binding:"required,min=1"`
	ShippingAddress string               `json:"shipping_address" binding:"required"`
	PaymentMethod   models.PaymentMethod `json:"payment_method" binding:"required"`
	CouponCode      string               `json:"coupon_code,omitempty"`
	Notes           string               `json:"notes,omitempty"`
}

// PlaceOrderItem represents one requested line
type PlaceOrderItem struct {
	ProductID int64  `json:"product_id" binding:"required"`
	VariantID *int64 `json:"variant_id,omitempty"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

const orderNumberAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// newOrderNumber builds a human-readable unique order number.
func newOrderNumber(t time.Time) string {
	buf := make([]byte, 6)
	_, _ = rand.Read(buf)
	for i, b := range buf {
		buf[i] = orderNumberAlphabet[int(b)%len(orderNumberAlphabet)]
	}
	return fmt.Sprintf("ORD-%s-%s", t.Format("20060102"), buf)
}

// pricedItem is a request line joined with its price snapshot.
type pricedItem struct {
	PlaceOrderItem
	unitPrice decimal.Decimal
}

func (s *OrderService) validatePlaceOrder(req *PlaceOrderRequest) error {
	if req.UserID <= 0 {
		return fmt.Errorf("%w: user_id required", ErrInvalidInput)
	}
	if len(req.Items) == 0 {
		return fmt.Errorf("%w: order must contain at least one item", ErrInvalidInput)
	}
	if req.ShippingAddress == "" {
		return fmt.Errorf("%w: shipping_address required", ErrInvalidInput)
	}
	if !req.PaymentMethod.Valid() {
		return fmt.Errorf("%w: unknown payment method %q", ErrInvalidInput, req.PaymentMethod)
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: quantity must be positive for product %d", ErrInvalidInput, item.ProductID)
		}
	}
	return nil
}

// priceItems resolves the live price snapshot for every requested line. A
// variant price overrides the product price when set.
func (s *OrderService) priceItems(ctx context.Context, items []PlaceOrderItem) ([]pricedItem, error) {
	productIDs := make([]int64, 0, len(items))
	variantIDs := make([]int64, 0)
	for _, item := range items {
		productIDs = append(productIDs, item.ProductID)
		if item.VariantID != nil {
			variantIDs = append(variantIDs, *item.VariantID)
		}
	}

	products, err := s.store.GetProductsByIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	productMap := make(map[int64]*models.Product, len(products))
	for i := range products {
		productMap[products[i].ID] = &products[i]
	}

	variants, err := s.store.GetVariantsByIDs(ctx, variantIDs)
	if err != nil {
		return nil, err
	}
	variantMap := make(map[int64]*models.ProductVariant, len(variants))
	for i := range variants {
		variantMap[variants[i].ID] = &variants[i]
	}

	priced := make([]pricedItem, 0, len(items))
	for _, item := range items {
		product, ok := productMap[item.ProductID]
		if !ok || !product.IsActive {
			return nil, fmt.Errorf("%w: product %d", ErrNotFound, item.ProductID)
		}

		price := product.Price
		if item.VariantID != nil {
			variant, ok := variantMap[*item.VariantID]
			if !ok || variant.ProductID != item.ProductID || !variant.IsActive {
				return nil, fmt.Errorf("%w: variant %d of product %d", ErrNotFound, *item.VariantID, item.ProductID)
			}
			if variant.Price != nil {
				price = *variant.Price
			}
		}

		priced = append(priced, pricedItem{PlaceOrderItem: item, unitPrice: price})
	}
	return priced, nil
}

// orderSubtotal sums the price snapshots.
func orderSubtotal(items []pricedItem) decimal.Decimal {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.unitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return subtotal.Round(2)
}

// PlaceOrder creates an order with its items, the initial status history
// row, the inventory reservation for every item, and the coupon usage, as
// one atomic unit. If any item fails stock validation the whole placement
// fails and nothing is persisted.
func (s *OrderService) PlaceOrder(ctx context.Context, req *PlaceOrderRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.PlaceOrder")
	defer span.End()

	if err := s.validatePlaceOrder(req); err != nil {
		util.OrdersFailedTotal.WithLabelValues("invalid_request").Inc()
		return nil, err
	}

	if _, err := s.store.GetUserByID(ctx, req.UserID); err != nil {
		util.OrdersFailedTotal.WithLabelValues("unknown_user").Inc()
		return nil, mapNotFound(err)
	}

	priced, err := s.priceItems(ctx, req.Items)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("invalid_items").Inc()
		return nil, err
	}

	subtotal := orderSubtotal(priced)
	actor := fmt.Sprintf("user:%d", req.UserID)

	var order *models.Order
	var entries []*models.StockHistory

	err = retryOnConflict(s.retries, func() error {
		order = &models.Order{
			OrderNumber:     newOrderNumber(s.now()),
			UserID:          req.UserID,
			TotalAmount:     subtotal.Add(s.shippingFee),
			ShippingFee:     s.shippingFee,
			DiscountAmount:  decimal.Zero,
			ShippingAddress: req.ShippingAddress,
			PaymentMethod:   req.PaymentMethod,
			PaymentStatus:   models.PaymentStatusPending,
			OrderStatus:     models.OrderStatusPending,
			Notes:           req.Notes,
		}
		entries = entries[:0]

		return s.store.WithTx(ctx, func(tx *store.Tx) error {
			if err := tx.InsertOrder(ctx, order); err != nil {
				return mapConstraint(err)
			}

			for _, item := range priced {
				orderItem := &models.OrderItem{
					OrderID:   order.ID,
					ProductID: item.ProductID,
					VariantID: item.VariantID,
					Quantity:  item.Quantity,
					UnitPrice: item.unitPrice,
				}
				if err := tx.InsertOrderItem(ctx, orderItem); err != nil {
					return mapConstraint(err)
				}

				entry, err := s.ledger.ReserveTx(ctx, tx, item.ProductID, item.VariantID,
					item.Quantity, fmt.Sprintf("order %s placed", order.OrderNumber), actor)
				if err != nil {
					return err
				}
				entries = append(entries, entry)
			}

			if req.CouponCode != "" {
				usage, err := s.coupons.ApplyTx(ctx, tx, req.CouponCode, req.UserID, order.ID, subtotal)
				if err != nil {
					return err
				}
				order.DiscountAmount = usage.DiscountAmount
				order.TotalAmount = subtotal.Sub(usage.DiscountAmount).Add(s.shippingFee)
				if err := tx.UpdateOrderAmounts(ctx, order.ID,
					order.DiscountAmount.StringFixed(2), order.TotalAmount.StringFixed(2)); err != nil {
					return err
				}
			}

			history := &models.OrderStatusHistory{
				OrderID:    order.ID,
				FromStatus: models.OrderStatusPending,
				ToStatus:   models.OrderStatusPending,
				Notes:      "order placed",
				ChangedBy:  actor,
			}
			if err := tx.InsertOrderStatusHistory(ctx, history); err != nil {
				return err
			}

			return tx.UpsertDailyStatistics(ctx, 1, order.TotalAmount.StringFixed(2), 0)
		})
	})
	if err != nil {
		switch {
		case isStockError(err):
			util.OrdersFailedTotal.WithLabelValues("insufficient_stock").Inc()
		default:
			util.OrdersFailedTotal.WithLabelValues("rejected").Inc()
		}
		return nil, err
	}

	util.OrdersPlacedTotal.Inc()
	s.logger.Info("Order placed",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("total", order.TotalAmount.String()))

	s.ledger.RefreshCacheAll(ctx, entries)
	items, _ := s.store.GetOrderItemsByOrderID(ctx, order.ID)
	s.notifier.OrderPlaced(ctx, order, items)
	s.audit.Record(ctx, actor, "order.place", "order", order.ID, order.OrderNumber)

	return order, nil
}

func isStockError(err error) bool {
	return errors.Is(err, ErrInsufficientStock)
}

// Transition moves an order along the state graph, appending one status
// history row. Cancellation requests are routed through Cancel so inventory
// restoration always happens.
func (s *OrderService) Transition(ctx context.Context, orderID int64, newStatus models.OrderStatus, actor, notes string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Transition")
	defer span.End()
	util.SpanAttrInt64(ctx, "order.id", orderID)

	if !newStatus.Valid() {
		return nil, fmt.Errorf("%w: unknown order status %q", ErrInvalidInput, newStatus)
	}
	if newStatus == models.OrderStatusCancelled {
		return s.Cancel(ctx, orderID, actor, notes)
	}

	var order *models.Order
	var from models.OrderStatus

	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		order, err = tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return mapNotFound(err)
		}

		from = order.OrderStatus
		if !from.CanTransition(newStatus) {
			return fmt.Errorf("%w: order %d: %s -> %s", ErrInvalidTransition, orderID, from, newStatus)
		}

		if err := tx.UpdateOrderStatus(ctx, orderID, newStatus); err != nil {
			return err
		}
		order.OrderStatus = newStatus

		return tx.InsertOrderStatusHistory(ctx, &models.OrderStatusHistory{
			OrderID:    orderID,
			FromStatus: from,
			ToStatus:   newStatus,
			Notes:      notes,
			ChangedBy:  actor,
		})
	})
	if err != nil {
		return nil, err
	}

	util.OrderTransitionsTotal.WithLabelValues(string(newStatus)).Inc()
	s.logger.Info("Order transitioned",
		zap.Int64("order_id", orderID),
		zap.String("from", string(from)),
		zap.String("to", string(newStatus)))

	s.notifier.OrderStatusChanged(ctx, order, from, newStatus, actor)
	s.audit.Record(ctx, actor, "order.transition", "order", orderID, fmt.Sprintf("%s -> %s", from, newStatus))

	return order, nil
}

// Cancel cancels an order from pending, confirmed or processing, releasing
// every reserved item back through the ledger in the same transaction. The
// coupon usage, if any, stays consumed.
func (s *OrderService) Cancel(ctx context.Context, orderID int64, actor, notes string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Cancel")
	defer span.End()

	var order *models.Order
	var from models.OrderStatus
	var entries []*models.StockHistory

	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		order, err = tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return mapNotFound(err)
		}

		from = order.OrderStatus
		if !from.Cancellable() {
			return fmt.Errorf("%w: order %d cannot be cancelled from %s", ErrInvalidTransition, orderID, from)
		}

		items, err := tx.GetOrderItems(ctx, orderID)
		if err != nil {
			return err
		}

		for _, item := range items {
			entry, err := s.ledger.ReleaseTx(ctx, tx, item.ProductID, item.VariantID,
				item.Quantity, fmt.Sprintf("order %s cancelled", order.OrderNumber), actor)
			if err != nil {
				return err
			}
			entries = append(entries, entry)
		}

		if err := tx.UpdateOrderStatus(ctx, orderID, models.OrderStatusCancelled); err != nil {
			return err
		}
		order.OrderStatus = models.OrderStatusCancelled

		return tx.InsertOrderStatusHistory(ctx, &models.OrderStatusHistory{
			OrderID:    orderID,
			FromStatus: from,
			ToStatus:   models.OrderStatusCancelled,
			Notes:      notes,
			ChangedBy:  actor,
		})
	})
	if err != nil {
		return nil, err
	}

	util.OrdersCancelledTotal.Inc()
	s.logger.Info("Order cancelled",
		zap.Int64("order_id", orderID),
		zap.String("from", string(from)))

	s.ledger.RefreshCacheAll(ctx, entries)
	s.notifier.OrderStatusChanged(ctx, order, from, models.OrderStatusCancelled, actor)
	s.audit.Record(ctx, actor, "order.cancel", "order", orderID, notes)

	return order, nil
}

// MarkPaymentStatus is the narrow setter driven by the payment collaborator.
// It never touches order_status.
func (s *OrderService) MarkPaymentStatus(ctx context.Context, orderID int64, status models.PaymentStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown payment status %q", ErrInvalidInput, status)
	}

	var order *models.Order
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		order, err = tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return mapNotFound(err)
		}
		if err := tx.UpdateOrderPaymentStatus(ctx, orderID, status); err != nil {
			return err
		}
		order.PaymentStatus = status
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Payment status updated",
		zap.Int64("order_id", orderID),
		zap.String("payment_status", string(status)))
	s.audit.Record(ctx, "payment-collaborator", "order.payment_status", "order", orderID, string(status))

	return order, nil
}

// ApplyCoupon applies a coupon to an already-placed order that is still
// pending, recomputing the discount and total in the same transaction as
// the usage record.
func (s *OrderService) ApplyCoupon(ctx context.Context, orderID int64, code string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ApplyCoupon")
	defer span.End()

	if code == "" {
		return nil, fmt.Errorf("%w: coupon code required", ErrInvalidInput)
	}

	var order *models.Order
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		order, err = tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return mapNotFound(err)
		}
		if order.OrderStatus != models.OrderStatusPending {
			return fmt.Errorf("%w: coupons apply to pending orders only, got %s",
				ErrInvalidTransition, order.OrderStatus)
		}
		if !order.DiscountAmount.IsZero() {
			return fmt.Errorf("%w: order %d already discounted", ErrAlreadyUsed, orderID)
		}

		subtotal := order.TotalAmount.Sub(order.ShippingFee)
		usage, err := s.coupons.ApplyTx(ctx, tx, code, order.UserID, order.ID, subtotal)
		if err != nil {
			return err
		}

		order.DiscountAmount = usage.DiscountAmount
		order.TotalAmount = subtotal.Sub(usage.DiscountAmount).Add(order.ShippingFee)
		return tx.UpdateOrderAmounts(ctx, order.ID,
			order.DiscountAmount.StringFixed(2), order.TotalAmount.StringFixed(2))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Coupon applied to order",
		zap.Int64("order_id", orderID),
		zap.String("code", code),
		zap.String("discount", order.DiscountAmount.String()))
	s.audit.Record(ctx, fmt.Sprintf("user:%d", order.UserID), "order.apply_coupon", "order", orderID, code)

	return order, nil
}

// GetOrder retrieves an order with its items and status trail.
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*models.Order, []models.OrderItem, []models.OrderStatusHistory, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, nil, nil, mapNotFound(err)
	}

	items, err := s.store.GetOrderItemsByOrderID(ctx, orderID)
	if err != nil {
		return nil, nil, nil, err
	}

	history, err := s.store.GetOrderStatusHistory(ctx, orderID)
	if err != nil {
		return nil, nil, nil, err
	}

	return order, items, history, nil
}

// ListUserOrders retrieves a user's orders, newest first.
func (s *OrderService) ListUserOrders(ctx context.Context, userID int64, limit, offset int) ([]models.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.store.GetOrdersByUserID(ctx, userID, limit, offset)
}
