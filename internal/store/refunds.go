package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"commerce-core/internal/models"

	"github.com/shopspring/decimal"
)

// GetRefundByID retrieves a refund by ID
func (s *Store) GetRefundByID(ctx context.Context, id int64) (*models.Refund, error) {
	var refund models.Refund
	err := s.db.GetContext(ctx, &refund, "SELECT * FROM refunds WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("refund not found: %d: %w", id, sql.ErrNoRows)
	}
	if err != nil {
		return nil, err
	}
	return &refund, nil
}

// GetRefundItemsByRefundID retrieves all items of a refund
func (s *Store) GetRefundItemsByRefundID(ctx context.Context, refundID int64) ([]models.RefundItem, error) {
	var items []models.RefundItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM refund_items WHERE refund_id = $1 ORDER BY id", refundID)
	return items, err
}

// GetRefundsByOrderID retrieves refunds filed against an order
func (s *Store) GetRefundsByOrderID(ctx context.Context, orderID int64) ([]models.Refund, error) {
	var refunds []models.Refund
	err := s.db.SelectContext(ctx, &refunds,
		"SELECT * FROM refunds WHERE order_id = $1 ORDER BY id", orderID)
	return refunds, err
}

// InsertRefund creates a refund row.
func (t *Tx) InsertRefund(ctx context.Context, refund *models.Refund) error {
	query := `
		INSERT INTO refunds (order_id, user_id, type, status, reason, refund_amount)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	return t.tx.GetContext(ctx, refund, query,
		refund.OrderID, refund.UserID, refund.Type, refund.Status,
		refund.Reason, refund.RefundAmount)
}

// InsertRefundItem creates a refund item row.
func (t *Tx) InsertRefundItem(ctx context.Context, item *models.RefundItem) error {
	query := `
		INSERT INTO refund_items (refund_id, order_item_id, quantity, refund_amount, reason)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	return t.tx.GetContext(ctx, item, query,
		item.RefundID, item.OrderItemID, item.Quantity, item.RefundAmount, item.Reason)
}

// GetRefundForUpdate locks the refund row. The resolution idempotency guard
// re-reads status under this lock so two concurrent resolves cannot both
// pass the transition check.
func (t *Tx) GetRefundForUpdate(ctx context.Context, refundID int64) (*models.Refund, error) {
	var refund models.Refund
	err := t.tx.GetContext(ctx, &refund, "SELECT * FROM refunds WHERE id = $1 FOR UPDATE", refundID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("refund not found: %d: %w", refundID, sql.ErrNoRows)
	}
	if err != nil {
		return nil, err
	}
	return &refund, nil
}

// GetRefundItems retrieves refund items inside the transaction.
func (t *Tx) GetRefundItems(ctx context.Context, refundID int64) ([]models.RefundItem, error) {
	var items []models.RefundItem
	err := t.tx.SelectContext(ctx, &items,
		"SELECT * FROM refund_items WHERE refund_id = $1 ORDER BY id", refundID)
	return items, err
}

// GetOrderItem retrieves one order item inside the transaction.
func (t *Tx) GetOrderItem(ctx context.Context, id int64) (*models.OrderItem, error) {
	var item models.OrderItem
	err := t.tx.GetContext(ctx, &item, "SELECT * FROM order_items WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order item not found: %d: %w", id, sql.ErrNoRows)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// RefundedQuantities returns, per order item of the order, the total
// quantity already claimed by refund items whose refund is not rejected or
// cancelled.
func (t *Tx) RefundedQuantities(ctx context.Context, orderID int64) (map[int64]int, error) {
	rows := []struct {
		OrderItemID int64 `db:"order_item_id"`
		Total       int   `db:"total"`
	}{}

	err := t.tx.SelectContext(ctx, &rows, `
		SELECT ri.order_item_id, COALESCE(SUM(ri.quantity), 0) AS total
		FROM refund_items ri
		JOIN refunds r ON r.id = ri.refund_id
		JOIN order_items oi ON oi.id = ri.order_item_id
		WHERE oi.order_id = $1 AND r.status NOT IN ('rejected', 'cancelled')
		GROUP BY ri.order_item_id`, orderID)
	if err != nil {
		return nil, err
	}

	totals := make(map[int64]int, len(rows))
	for _, row := range rows {
		totals[row.OrderItemID] = row.Total
	}
	return totals, nil
}

// UpdateRefundResolution writes the new refund status together with the
// resolution metadata. processed_by/processed_at land in the same statement
// as the status change.
func (t *Tx) UpdateRefundResolution(ctx context.Context, refundID int64, status models.RefundStatus, amount *decimal.Decimal, processedBy *string, processedAt *time.Time) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE refunds
		SET status = $1,
		    refund_amount = COALESCE($2, refund_amount),
		    processed_by = COALESCE($3, processed_by),
		    processed_at = COALESCE($4, processed_at),
		    updated_at = NOW()
		WHERE id = $5`,
		status, amount, processedBy, processedAt, refundID)
	return err
}
