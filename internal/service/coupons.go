package service

import (
	"context"
	"fmt"
	"time"

	"commerce-core/internal/models"
	"commerce-core/internal/store"
	"commerce-core/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CouponGuard enforces coupon usage invariants: one application per
// (coupon, user, order), eligibility, and the aggregate usage limit. A
// usage record is permanent once written; cancelling the order does not
// free it.
type CouponGuard struct {
	store  *store.Store
	logger *zap.Logger
	now    func() time.Time
}

// NewCouponGuard creates a new coupon usage guard
func NewCouponGuard(st *store.Store) *CouponGuard {
	return &CouponGuard{
		store:  st,
		logger: util.GetLogger(),
		now:    time.Now,
	}
}

// computeDiscount returns the discount a coupon yields on the given order
// amount, rounded to 2 decimal places and never exceeding the amount.
func computeDiscount(coupon *models.Coupon, orderAmount decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal
	switch coupon.Type {
	case models.CouponTypePercent:
		discount = orderAmount.Mul(coupon.Value).Div(decimal.NewFromInt(100))
		if coupon.MaxDiscount != nil && discount.GreaterThan(*coupon.MaxDiscount) {
			discount = *coupon.MaxDiscount
		}
	case models.CouponTypeFixed:
		discount = coupon.Value
	}
	if discount.GreaterThan(orderAmount) {
		discount = orderAmount
	}
	return discount.Round(2)
}

// checkEligibility validates the coupon window, active flag and minimum
// order amount.
func (g *CouponGuard) checkEligibility(coupon *models.Coupon, orderAmount decimal.Decimal, at time.Time) error {
	if !coupon.IsActive {
		return fmt.Errorf("%w: coupon %s is inactive", ErrCouponNotEligible, coupon.Code)
	}
	if at.Before(coupon.StartsAt) || at.After(coupon.ExpiresAt) {
		return fmt.Errorf("%w: coupon %s outside validity window", ErrCouponNotEligible, coupon.Code)
	}
	if orderAmount.LessThan(coupon.MinOrderAmount) {
		return fmt.Errorf("%w: order amount below minimum %s", ErrCouponNotEligible, coupon.MinOrderAmount)
	}
	return nil
}

// ApplyTx applies a coupon to an order inside the caller's transaction.
// The coupon row lock serializes concurrent applications racing for the
// remaining usage budget.
func (g *CouponGuard) ApplyTx(ctx context.Context, tx *store.Tx, code string, userID, orderID int64, orderAmount decimal.Decimal) (*models.CouponUsage, error) {
	coupon, err := tx.GetCouponForUpdate(ctx, code)
	if err != nil {
		return nil, mapNotFound(err)
	}

	if err := g.checkEligibility(coupon, orderAmount, g.now()); err != nil {
		return nil, err
	}

	if coupon.UsageLimit > 0 && coupon.UsedCount >= coupon.UsageLimit {
		util.CouponRejections.WithLabelValues("limit_exceeded").Inc()
		return nil, fmt.Errorf("%w: coupon %s", ErrLimitExceeded, coupon.Code)
	}

	exists, err := tx.CouponUsageExists(ctx, coupon.ID, userID, orderID)
	if err != nil {
		return nil, err
	}
	if exists {
		util.CouponRejections.WithLabelValues("already_used").Inc()
		return nil, fmt.Errorf("%w: coupon %s, order %d", ErrAlreadyUsed, coupon.Code, orderID)
	}

	usage := &models.CouponUsage{
		CouponID:       coupon.ID,
		UserID:         userID,
		OrderID:        orderID,
		DiscountAmount: computeDiscount(coupon, orderAmount),
	}
	if err := tx.InsertCouponUsage(ctx, usage); err != nil {
		if store.IsUniqueViolation(err) {
			util.CouponRejections.WithLabelValues("already_used").Inc()
			return nil, fmt.Errorf("%w: coupon %s, order %d", ErrAlreadyUsed, coupon.Code, orderID)
		}
		return nil, fmt.Errorf("failed to record coupon usage: %w", err)
	}

	if err := tx.IncrementCouponUsedCount(ctx, coupon.ID); err != nil {
		return nil, fmt.Errorf("failed to increment coupon usage count: %w", err)
	}

	g.logger.Info("Coupon applied",
		zap.String("code", coupon.Code),
		zap.Int64("order_id", orderID),
		zap.String("discount", usage.DiscountAmount.String()))

	return usage, nil
}

// Preview reports the discount a coupon would yield on the given amount
// without consuming it. Eligibility and usage-limit checks run against the
// current snapshot; a concurrent Apply may still win the last slot.
func (g *CouponGuard) Preview(ctx context.Context, code string, orderAmount decimal.Decimal) (*models.Coupon, decimal.Decimal, error) {
	coupon, err := g.store.GetCouponByCode(ctx, code)
	if err != nil {
		return nil, decimal.Zero, mapNotFound(err)
	}
	if err := g.checkEligibility(coupon, orderAmount, g.now()); err != nil {
		return nil, decimal.Zero, err
	}
	if coupon.UsageLimit > 0 && coupon.UsedCount >= coupon.UsageLimit {
		return nil, decimal.Zero, fmt.Errorf("%w: coupon %s", ErrLimitExceeded, coupon.Code)
	}
	return coupon, computeDiscount(coupon, orderAmount), nil
}

