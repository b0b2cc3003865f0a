package service

import (
	"context"
	"fmt"

	"commerce-core/internal/broker"
	"commerce-core/internal/models"
	"commerce-core/internal/store"
	"commerce-core/internal/util"

	"go.uber.org/zap"
)

// EventNotifier persists a notification row and publishes the matching
// domain event. Both writes are fire-and-forget: failures are logged, never
// surfaced to the calling operation.
type EventNotifier struct {
	store     *store.Store
	publisher *broker.EventPublisher
	logger    *zap.Logger
}

// NewEventNotifier creates a kafka-and-store backed dispatcher
func NewEventNotifier(st *store.Store, publisher *broker.EventPublisher) *EventNotifier {
	return &EventNotifier{
		store:     st,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

func (n *EventNotifier) persist(ctx context.Context, userID int64, kind, title, body string) {
	err := n.store.CreateNotification(ctx, &models.Notification{
		UserID: userID,
		Type:   kind,
		Title:  title,
		Body:   body,
	})
	if err != nil {
		n.logger.Error("Failed to persist notification",
			zap.Int64("user_id", userID),
			zap.String("type", kind),
			zap.Error(err))
	}
}

// OrderPlaced implements NotificationDispatcher.
func (n *EventNotifier) OrderPlaced(ctx context.Context, order *models.Order, items []models.OrderItem) {
	n.persist(ctx, order.UserID, "order_placed",
		"Order placed",
		fmt.Sprintf("Your order %s has been placed.", order.OrderNumber))

	if err := n.publisher.PublishOrderPlaced(ctx, order, items); err != nil {
		n.logger.Error("Failed to publish OrderPlaced event", zap.Error(err))
	}
}

// OrderStatusChanged implements NotificationDispatcher.
func (n *EventNotifier) OrderStatusChanged(ctx context.Context, order *models.Order, from, to models.OrderStatus, actor string) {
	n.persist(ctx, order.UserID, "order_status",
		"Order update",
		fmt.Sprintf("Your order %s is now %s.", order.OrderNumber, to))

	if err := n.publisher.PublishOrderStatusChanged(ctx, order, from, to, actor); err != nil {
		n.logger.Error("Failed to publish OrderStatusChanged event", zap.Error(err))
	}
}

// RefundRequested implements NotificationDispatcher.
func (n *EventNotifier) RefundRequested(ctx context.Context, refund *models.Refund) {
	n.persist(ctx, refund.UserID, "refund_requested",
		"Refund request received",
		fmt.Sprintf("Your %s request for order %d is being reviewed.", refund.Type, refund.OrderID))

	if err := n.publisher.PublishRefundRequested(ctx, refund); err != nil {
		n.logger.Error("Failed to publish RefundRequested event", zap.Error(err))
	}
}

// RefundStatusChanged implements NotificationDispatcher.
func (n *EventNotifier) RefundStatusChanged(ctx context.Context, refund *models.Refund, from, to models.RefundStatus, actor string) {
	n.persist(ctx, refund.UserID, "refund_status",
		"Refund update",
		fmt.Sprintf("Your refund for order %d is now %s.", refund.OrderID, to))

	if err := n.publisher.PublishRefundStatusChanged(ctx, refund, from, to, actor); err != nil {
		n.logger.Error("Failed to publish RefundStatusChanged event", zap.Error(err))
	}
}

// StockAlert implements NotificationDispatcher. Low-stock alerts go to the
// event bus only; there is no customer to notify.
func (n *EventNotifier) StockAlert(ctx context.Context, productID int64, variantID *int64, threshold, currentStock int) {
	if err := n.publisher.PublishStockAlert(ctx, productID, variantID, threshold, currentStock); err != nil {
		n.logger.Error("Failed to publish StockAlert event", zap.Error(err))
	}
}

// StoreAuditWriter appends audit rows for every mutating operation.
type StoreAuditWriter struct {
	store  *store.Store
	logger *zap.Logger
}

// NewStoreAuditWriter creates a store-backed audit writer
func NewStoreAuditWriter(st *store.Store) *StoreAuditWriter {
	return &StoreAuditWriter{store: st, logger: util.GetLogger()}
}

// Record implements AuditWriter. Best effort.
func (w *StoreAuditWriter) Record(ctx context.Context, actor, action, entityType string, entityID int64, detail string) {
	err := w.store.CreateAuditLog(ctx, &models.AuditLog{
		Actor:      actor,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Detail:     detail,
	})
	if err != nil {
		w.logger.Error("Failed to write audit log",
			zap.String("action", action),
			zap.Int64("entity_id", entityID),
			zap.Error(err))
	}
}
