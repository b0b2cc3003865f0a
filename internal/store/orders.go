package store

import (
	"context"
	"database/sql"
	"fmt"

	"commerce-core/internal/models"
)

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order not found: %d: %w", id, sql.ErrNoRows)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderByNumber retrieves an order by its human-readable number
func (s *Store) GetOrderByNumber(ctx context.Context, number string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE order_number = $1", number)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order not found: %s: %w", number, sql.ErrNoRows)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrdersByUserID retrieves orders for a user, newest first
func (s *Store) GetOrdersByUserID(ctx context.Context, userID int64, limit, offset int) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3",
		userID, limit, offset)
	return orders, err
}

// GetOrderItemsByOrderID retrieves all items for an order
func (s *Store) GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}

// GetOrderStatusHistory retrieves the transition trail for an order in
// chronological order.
func (s *Store) GetOrderStatusHistory(ctx context.Context, orderID int64) ([]models.OrderStatusHistory, error) {
	var history []models.OrderStatusHistory
	err := s.db.SelectContext(ctx, &history,
		"SELECT * FROM order_status_history WHERE order_id = $1 ORDER BY id", orderID)
	return history, err
}

// InsertOrder creates a new order row.
func (t *Tx) InsertOrder(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (order_number, user_id, total_amount, shipping_fee, discount_amount,
		                    shipping_address, payment_method, payment_status, order_status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`

	return t.tx.GetContext(ctx, order, query,
		order.OrderNumber, order.UserID, order.TotalAmount, order.ShippingFee,
		order.DiscountAmount, order.ShippingAddress, order.PaymentMethod,
		order.PaymentStatus, order.OrderStatus, order.Notes)
}

// InsertOrderItem creates a new order item row.
func (t *Tx) InsertOrderItem(ctx context.Context, item *models.OrderItem) error {
	query := `
		INSERT INTO order_items (order_id, product_id, variant_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	return t.tx.GetContext(ctx, item, query,
		item.OrderID, item.ProductID, item.VariantID, item.Quantity, item.UnitPrice)
}

// InsertOrderStatusHistory appends one transition record.
func (t *Tx) InsertOrderStatusHistory(ctx context.Context, h *models.OrderStatusHistory) error {
	query := `
		INSERT INTO order_status_history (order_id, from_status, to_status, notes, changed_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	return t.tx.GetContext(ctx, h, query,
		h.OrderID, h.FromStatus, h.ToStatus, h.Notes, h.ChangedBy)
}

// GetOrderForUpdate locks the order row for the duration of the
// transaction. Status transitions read-check-write under this lock.
func (t *Tx) GetOrderForUpdate(ctx context.Context, orderID int64) (*models.Order, error) {
	var order models.Order
	err := t.tx.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1 FOR UPDATE", orderID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order not found: %d: %w", orderID, sql.ErrNoRows)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateOrderStatus writes the new order status. Callers must hold the row
// lock and have validated the transition.
func (t *Tx) UpdateOrderStatus(ctx context.Context, orderID int64, status models.OrderStatus) error {
	_, err := t.tx.ExecContext(ctx,
		"UPDATE orders SET order_status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID)
	return err
}

// UpdateOrderPaymentStatus writes the new payment status with no order
// status side effects.
func (t *Tx) UpdateOrderPaymentStatus(ctx context.Context, orderID int64, status models.PaymentStatus) error {
	_, err := t.tx.ExecContext(ctx,
		"UPDATE orders SET payment_status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID)
	return err
}

// UpdateOrderAmounts rewrites the discount and total after a coupon is
// applied during placement, within the same transaction.
func (t *Tx) UpdateOrderAmounts(ctx context.Context, orderID int64, discount, total string) error {
	_, err := t.tx.ExecContext(ctx,
		"UPDATE orders SET discount_amount = $1::decimal, total_amount = $2::decimal, updated_at = NOW() WHERE id = $3",
		discount, total, orderID)
	return err
}

// GetOrderItems retrieves the items of an order inside the transaction.
func (t *Tx) GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := t.tx.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}

// UpsertDailyStatistics folds order/refund counters into the per-day
// aggregate row.
func (t *Tx) UpsertDailyStatistics(ctx context.Context, orderCount int, orderAmount string, refundCount int) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO daily_statistics (stat_date, order_count, order_amount, refund_count)
		VALUES (CURRENT_DATE, $1, $2::decimal, $3)
		ON CONFLICT (stat_date) DO UPDATE SET
			order_count  = daily_statistics.order_count + EXCLUDED.order_count,
			order_amount = daily_statistics.order_amount + EXCLUDED.order_amount,
			refund_count = daily_statistics.refund_count + EXCLUDED.refund_count,
			updated_at   = NOW()`,
		orderCount, orderAmount, refundCount)
	return err
}
