package store

import (
	"context"
	"database/sql"
	"fmt"

	"commerce-core/internal/models"
)

// GetCouponByCode retrieves a coupon by its code
func (s *Store) GetCouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := s.db.GetContext(ctx, &coupon, "SELECT * FROM coupons WHERE code = $1", code)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("coupon not found: %s: %w", code, sql.ErrNoRows)
	}
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// GetCouponUsageByOrder retrieves usage records tied to an order
func (s *Store) GetCouponUsageByOrder(ctx context.Context, orderID int64) ([]models.CouponUsage, error) {
	var usage []models.CouponUsage
	err := s.db.SelectContext(ctx, &usage,
		"SELECT * FROM coupon_usage WHERE order_id = $1", orderID)
	return usage, err
}

// GetCouponForUpdate locks the coupon row, serializing concurrent
// applications racing for the remaining usage budget.
func (t *Tx) GetCouponForUpdate(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := t.tx.GetContext(ctx, &coupon, "SELECT * FROM coupons WHERE code = $1 FOR UPDATE", code)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("coupon not found: %s: %w", code, sql.ErrNoRows)
	}
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// CouponUsageExists reports whether the (coupon, user, order) usage record
// already exists.
func (t *Tx) CouponUsageExists(ctx context.Context, couponID, userID, orderID int64) (bool, error) {
	var exists bool
	err := t.tx.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM coupon_usage WHERE coupon_id = $1 AND user_id = $2 AND order_id = $3)",
		couponID, userID, orderID)
	return exists, err
}

// InsertCouponUsage writes the permanent usage record. The unique constraint
// on (coupon_id, user_id, order_id) backstops the application-level check.
func (t *Tx) InsertCouponUsage(ctx context.Context, usage *models.CouponUsage) error {
	query := `
		INSERT INTO coupon_usage (coupon_id, user_id, order_id, discount_amount)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	return t.tx.GetContext(ctx, usage, query,
		usage.CouponID, usage.UserID, usage.OrderID, usage.DiscountAmount)
}

// IncrementCouponUsedCount bumps the aggregate usage counter.
func (t *Tx) IncrementCouponUsedCount(ctx context.Context, couponID int64) error {
	_, err := t.tx.ExecContext(ctx,
		"UPDATE coupons SET used_count = used_count + 1 WHERE id = $1", couponID)
	return err
}
