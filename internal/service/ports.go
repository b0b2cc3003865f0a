package service

import (
	"context"

	"commerce-core/internal/models"
)

// NotificationDispatcher is the fire-and-forget collaborator invoked on
// order-status, refund-status, and stock-alert transitions. Implementations
// must never fail the calling operation; delivery errors are logged and
// dropped.
type NotificationDispatcher interface {
	OrderPlaced(ctx context.Context, order *models.Order, items []models.OrderItem)
	OrderStatusChanged(ctx context.Context, order *models.Order, from, to models.OrderStatus, actor string)
	RefundRequested(ctx context.Context, refund *models.Refund)
	RefundStatusChanged(ctx context.Context, refund *models.Refund, from, to models.RefundStatus, actor string)
	StockAlert(ctx context.Context, productID int64, variantID *int64, threshold, currentStock int)
}

// AuditWriter records every mutating core operation. Best effort; failures
// are logged and dropped.
type AuditWriter interface {
	Record(ctx context.Context, actor, action, entityType string, entityID int64, detail string)
}

// NopDispatcher discards all notifications.
type NopDispatcher struct{}

func (NopDispatcher) OrderPlaced(context.Context, *models.Order, []models.OrderItem) {}
func (NopDispatcher) OrderStatusChanged(context.Context, *models.Order, models.OrderStatus, models.OrderStatus, string) {
}
func (NopDispatcher) RefundRequested(context.Context, *models.Refund) {}
func (NopDispatcher) RefundStatusChanged(context.Context, *models.Refund, models.RefundStatus, models.RefundStatus, string) {
}
func (NopDispatcher) StockAlert(context.Context, int64, *int64, int, int) {}

// NopAuditWriter discards all audit records.
type NopAuditWriter struct{}

func (NopAuditWriter) Record(context.Context, string, string, string, int64, string) {}
