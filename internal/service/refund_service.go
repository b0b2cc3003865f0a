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

// RefundService is the refund/return workflow: a secondary state machine
// triggered from a delivered or cancelled order, reconciling refunded
// quantities against the original order items and re-crediting inventory
// exactly once.
type RefundService struct {
	store    *store.Store
	ledger   *Ledger
	notifier NotificationDispatcher
	audit    AuditWriter
	logger   *zap.Logger
	retries  int
	now      func() time.Time
}

// NewRefundService creates a new refund service
func NewRefundService(
	st *store.Store,
	ledger *Ledger,
	notifier NotificationDispatcher,
	audit AuditWriter,
	conflictRetries int,
) *RefundService {
	return &RefundService{
		store:    st,
		ledger:   ledger,
		notifier: notifier,
		audit:    audit,
		logger:   util.GetLogger(),
		retries:  conflictRetries,
		now:      time.Now,
	}
}

// RequestRefundItem is one requested refund line
type RequestRefundItem struct {
	OrderItemID int64  `json:"order_item_id" binding:"required"`
	Quantity    int    `json:"quantity" binding:"required,min=1"`
	Reason      string `json:"reason,omitempty"`
}

// RequestRefundInput represents a refund request
type RequestRefundInput struct {
	OrderID int64               `json:"order_id" binding:"required"`
	UserID  int64               `json:"user_id" binding:"required"`
	Type    models.RefundType   `json:"type" binding:"required"`
	Reason  string              `json:"reason,omitempty"`
	Items   []RequestRefundItem `json:"items" binding:"required,min=1"`
}

// refundableQuantity is the balance still open for one order item.
func refundableQuantity(original, alreadyRefunded int) int {
	remaining := original - alreadyRefunded
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RequestRefund creates a refund in pending state together with its items,
// validating every requested quantity against the remaining refundable
// balance. Allowed only for delivered or cancelled orders.
func (s *RefundService) RequestRefund(ctx context.Context, in *RequestRefundInput) (*models.Refund, error) {
	ctx, span := util.StartSpan(ctx, "RefundService.RequestRefund")
	defer span.End()

	if !in.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown refund type %q", ErrInvalidInput, in.Type)
	}
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("%w: refund must contain at least one item", ErrInvalidInput)
	}
	for _, item := range in.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be positive for order item %d", ErrInvalidInput, item.OrderItemID)
		}
	}

	var refund *models.Refund

	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		order, err := tx.GetOrderForUpdate(ctx, in.OrderID)
		if err != nil {
			return mapNotFound(err)
		}
		if order.UserID != in.UserID {
			return fmt.Errorf("%w: order %d for user %d", ErrNotFound, in.OrderID, in.UserID)
		}

		if order.OrderStatus != models.OrderStatusDelivered && order.OrderStatus != models.OrderStatusCancelled {
			return fmt.Errorf("%w: refunds require a delivered or cancelled order, got %s",
				ErrInvalidTransition, order.OrderStatus)
		}

		orderItems, err := tx.GetOrderItems(ctx, in.OrderID)
		if err != nil {
			return err
		}
		itemMap := make(map[int64]*models.OrderItem, len(orderItems))
		for i := range orderItems {
			itemMap[orderItems[i].ID] = &orderItems[i]
		}

		refunded, err := tx.RefundedQuantities(ctx, in.OrderID)
		if err != nil {
			return err
		}

		// requested accumulates within this request so a duplicated order
		// item cannot sneak past the balance check
		requested := make(map[int64]int, len(in.Items))
		for _, item := range in.Items {
			orderItem, ok := itemMap[item.OrderItemID]
			if !ok {
				return fmt.Errorf("%w: order item %d in order %d", ErrNotFound, item.OrderItemID, in.OrderID)
			}

			remaining := refundableQuantity(orderItem.Quantity, refunded[item.OrderItemID]+requested[item.OrderItemID])
			if item.Quantity > remaining {
				return fmt.Errorf("%w: order item %d: requested %d, refundable %d",
					ErrOverRefund, item.OrderItemID, item.Quantity, remaining)
			}
			requested[item.OrderItemID] += item.Quantity
		}

		refund = &models.Refund{
			OrderID: in.OrderID,
			UserID:  in.UserID,
			Type:    in.Type,
			Status:  models.RefundStatusPending,
			Reason:  in.Reason,
		}
		if err := tx.InsertRefund(ctx, refund); err != nil {
			return mapConstraint(err)
		}

		for _, item := range in.Items {
			orderItem := itemMap[item.OrderItemID]
			amount := orderItem.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)
			if err := tx.InsertRefundItem(ctx, &models.RefundItem{
				RefundID:     refund.ID,
				OrderItemID:  item.OrderItemID,
				Quantity:     item.Quantity,
				RefundAmount: &amount,
				Reason:       item.Reason,
			}); err != nil {
				return mapConstraint(err)
			}
		}

		return tx.UpsertDailyStatistics(ctx, 0, "0", 1)
	})
	if err != nil {
		return nil, err
	}

	util.RefundsRequestedTotal.Inc()
	s.logger.Info("Refund requested",
		zap.Int64("refund_id", refund.ID),
		zap.Int64("order_id", refund.OrderID),
		zap.String("type", string(refund.Type)))

	s.notifier.RefundRequested(ctx, refund)
	s.audit.Record(ctx, fmt.Sprintf("user:%d", in.UserID), "refund.request", "refund", refund.ID, in.Reason)

	return refund, nil
}

// defaultRefundAmount is the policy applied when Resolve receives no
// explicit amount: the sum of unit_price x quantity over the refund's
// items, plus the shipping fee when the refund covers every remaining unit
// of the order. The result never exceeds the order total.
func defaultRefundAmount(order *models.Order, orderItems []models.OrderItem, refundItems []models.RefundItem, refundedBefore map[int64]int) decimal.Decimal {
	itemPrices := make(map[int64]decimal.Decimal, len(orderItems))
	for _, item := range orderItems {
		itemPrices[item.ID] = item.UnitPrice
	}

	amount := decimal.Zero
	thisRefund := make(map[int64]int, len(refundItems))
	for _, item := range refundItems {
		amount = amount.Add(itemPrices[item.OrderItemID].Mul(decimal.NewFromInt(int64(item.Quantity))))
		thisRefund[item.OrderItemID] += item.Quantity
	}

	full := true
	for _, item := range orderItems {
		if refundedBefore[item.ID]+thisRefund[item.ID] < item.Quantity {
			full = false
			break
		}
	}
	if full {
		amount = amount.Add(order.ShippingFee)
	}

	amount = amount.Round(2)
	if amount.GreaterThan(order.TotalAmount) {
		amount = order.TotalAmount
	}
	return amount
}

// Resolve moves a refund along its state graph. Entering approved credits
// inventory back through the ledger, exactly once: the transition table
// forbids re-entering approved, and the check happens against the row lock
// so two concurrent resolves cannot both pass. Rejecting or cancelling an
// already-approved refund re-reserves the released quantities so the ledger
// stays consistent.
func (s *RefundService) Resolve(ctx context.Context, refundID int64, newStatus models.RefundStatus, actor string, amount *decimal.Decimal) (*models.Refund, error) {
	ctx, span := util.StartSpan(ctx, "RefundService.Resolve")
	defer span.End()
	util.SpanAttrInt64(ctx, "refund.id", refundID)

	if !newStatus.Valid() {
		return nil, fmt.Errorf("%w: unknown refund status %q", ErrInvalidInput, newStatus)
	}

	var refund *models.Refund
	var from models.RefundStatus
	var entries []*models.StockHistory

	err := retryOnConflict(s.retries, func() error {
		entries = entries[:0]
		return s.store.WithTx(ctx, func(tx *store.Tx) error {
			var err error
			refund, err = tx.GetRefundForUpdate(ctx, refundID)
			if err != nil {
				return mapNotFound(err)
			}

			from = refund.Status
			if !from.CanTransition(newStatus) {
				return fmt.Errorf("%w: refund %d: %s -> %s", ErrInvalidTransition, refundID, from, newStatus)
			}

			order, err := tx.GetOrderForUpdate(ctx, refund.OrderID)
			if err != nil {
				return mapNotFound(err)
			}

			refundItems, err := tx.GetRefundItems(ctx, refundID)
			if err != nil {
				return err
			}

			resolvedAmount := refund.RefundAmount
			if amount != nil {
				capped := amount.Round(2)
				if capped.GreaterThan(order.TotalAmount) {
					capped = order.TotalAmount
				}
				resolvedAmount = &capped
			}

			switch newStatus {
			case models.RefundStatusApproved:
				// credit stock back, once
				for _, item := range refundItems {
					orderItem, err := tx.GetOrderItem(ctx, item.OrderItemID)
					if err != nil {
						return mapNotFound(err)
					}
					entry, err := s.ledger.ReleaseTx(ctx, tx, orderItem.ProductID, orderItem.VariantID,
						item.Quantity, fmt.Sprintf("refund %d approved", refundID), actor)
					if err != nil {
						return err
					}
					entries = append(entries, entry)
				}

				if resolvedAmount == nil {
					orderItems, err := tx.GetOrderItems(ctx, refund.OrderID)
					if err != nil {
						return err
					}
					refundedAll, err := tx.RefundedQuantities(ctx, refund.OrderID)
					if err != nil {
						return err
					}
					// exclude this refund's own items from the prior balance
					for _, item := range refundItems {
						refundedAll[item.OrderItemID] -= item.Quantity
					}
					computed := defaultRefundAmount(order, orderItems, refundItems, refundedAll)
					resolvedAmount = &computed
				}

			case models.RefundStatusRejected, models.RefundStatusCancelled:
				if from == models.RefundStatusApproved {
					// take back the stock credited at approval
					for _, item := range refundItems {
						orderItem, err := tx.GetOrderItem(ctx, item.OrderItemID)
						if err != nil {
							return mapNotFound(err)
						}
						entry, err := s.ledger.ReserveTx(ctx, tx, orderItem.ProductID, orderItem.VariantID,
							item.Quantity, fmt.Sprintf("refund %d %s after approval", refundID, newStatus), actor)
						if err != nil {
							return err
						}
						entries = append(entries, entry)
					}
				}

			case models.RefundStatusCompleted:
				// stock was credited at approval; completing settles the money
				full, err := s.coversWholeOrder(ctx, tx, refund.OrderID)
				if err != nil {
					return err
				}
				if full {
					if err := tx.UpdateOrderPaymentStatus(ctx, refund.OrderID, models.PaymentStatusRefunded); err != nil {
						return err
					}
				}
			}

			var processedBy *string
			var processedAt *time.Time
			if newStatus.Resolved() {
				processedBy = &actor
				now := s.now()
				processedAt = &now
			}

			if err := tx.UpdateRefundResolution(ctx, refundID, newStatus, resolvedAmount, processedBy, processedAt); err != nil {
				return err
			}

			refund.Status = newStatus
			refund.RefundAmount = resolvedAmount
			refund.ProcessedBy = processedBy
			refund.ProcessedAt = processedAt
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	util.RefundsResolvedTotal.WithLabelValues(string(newStatus)).Inc()
	s.logger.Info("Refund resolved",
		zap.Int64("refund_id", refundID),
		zap.String("from", string(from)),
		zap.String("to", string(newStatus)))

	s.ledger.RefreshCacheAll(ctx, entries)
	s.notifier.RefundStatusChanged(ctx, refund, from, newStatus, actor)
	s.audit.Record(ctx, actor, "refund.resolve", "refund", refundID, string(newStatus))

	return refund, nil
}

// coversWholeOrder reports whether non-dead refunds now cover every unit of
// the order.
func (s *RefundService) coversWholeOrder(ctx context.Context, tx *store.Tx, orderID int64) (bool, error) {
	orderItems, err := tx.GetOrderItems(ctx, orderID)
	if err != nil {
		return false, err
	}
	refunded, err := tx.RefundedQuantities(ctx, orderID)
	if err != nil {
		return false, err
	}
	for _, item := range orderItems {
		if refunded[item.ID] < item.Quantity {
			return false, nil
		}
	}
	return true, nil
}

// GetRefund retrieves a refund with its items.
func (s *RefundService) GetRefund(ctx context.Context, refundID int64) (*models.Refund, []models.RefundItem, error) {
	refund, err := s.store.GetRefundByID(ctx, refundID)
	if err != nil {
		return nil, nil, mapNotFound(err)
	}
	items, err := s.store.GetRefundItemsByRefundID(ctx, refundID)
	if err != nil {
		return nil, nil, err
	}
	return refund, items, nil
}

// ListOrderRefunds retrieves all refunds filed against an order.
func (s *RefundService) ListOrderRefunds(ctx context.Context, orderID int64) ([]models.Refund, error) {
	return s.store.GetRefundsByOrderID(ctx, orderID)
}
