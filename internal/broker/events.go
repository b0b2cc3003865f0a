package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"commerce-core/internal/models"
	"commerce-core/internal/util"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

// PublishOrderPlaced publishes OrderPlaced event
func (ep *EventPublisher) PublishOrderPlaced(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	eventItems := make([]models.OrderEventItem, 0, len(items))
	for _, item := range items {
		eventItems = append(eventItems, models.OrderEventItem{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	event := &models.OrderPlacedEvent{
		BaseEvent:   newBaseEvent(models.EventTypeOrderPlaced),
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
		Items:       eventItems,
	}
	return ep.producer.PublishEvent(ctx, fmt.Sprintf("order-%d", order.ID), event)
}

// PublishOrderStatusChanged publishes OrderStatusChanged event. A
// transition into cancelled carries its own event type so downstream
// consumers can subscribe to cancellations without inspecting payloads.
func (ep *EventPublisher) PublishOrderStatusChanged(ctx context.Context, order *models.Order, from, to models.OrderStatus, actor string) error {
	eventType := models.EventTypeOrderStatusChanged
	if to == models.OrderStatusCancelled {
		eventType = models.EventTypeOrderCancelled
	}
	event := &models.OrderStatusChangedEvent{
		BaseEvent:  newBaseEvent(eventType),
		OrderID:    order.ID,
		UserID:     order.UserID,
		FromStatus: from,
		ToStatus:   to,
		ChangedBy:  actor,
	}
	return ep.producer.PublishEvent(ctx, fmt.Sprintf("order-%d", order.ID), event)
}

// PublishRefundRequested publishes RefundRequested event
func (ep *EventPublisher) PublishRefundRequested(ctx context.Context, refund *models.Refund) error {
	event := &models.RefundRequestedEvent{
		BaseEvent: newBaseEvent(models.EventTypeRefundRequested),
		RefundID:  refund.ID,
		OrderID:   refund.OrderID,
		UserID:    refund.UserID,
		Type:      refund.Type,
	}
	return ep.producer.PublishEvent(ctx, fmt.Sprintf("order-%d", refund.OrderID), event)
}

// PublishRefundStatusChanged publishes RefundStatusChanged event
func (ep *EventPublisher) PublishRefundStatusChanged(ctx context.Context, refund *models.Refund, from, to models.RefundStatus, actor string) error {
	event := &models.RefundStatusChangedEvent{
		BaseEvent:    newBaseEvent(models.EventTypeRefundStatusChanged),
		RefundID:     refund.ID,
		OrderID:      refund.OrderID,
		UserID:       refund.UserID,
		FromStatus:   from,
		ToStatus:     to,
		RefundAmount: refund.RefundAmount,
		ProcessedBy:  actor,
	}
	return ep.producer.PublishEvent(ctx, fmt.Sprintf("order-%d", refund.OrderID), event)
}

// PublishStockAlert publishes StockAlert event
func (ep *EventPublisher) PublishStockAlert(ctx context.Context, productID int64, variantID *int64, threshold, currentStock int) error {
	event := &models.StockAlertEvent{
		BaseEvent:    newBaseEvent(models.EventTypeStockAlertTriggered),
		ProductID:    productID,
		VariantID:    variantID,
		Threshold:    threshold,
		CurrentStock: currentStock,
	}
	return ep.producer.PublishEvent(ctx, fmt.Sprintf("product-%d", productID), event)
}

// EventHandler routes inbound events to registered handlers
type EventHandler struct {
	onPaymentStatusChanged func(context.Context, *models.PaymentStatusChangedEvent) error
	logger                 *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnPaymentStatusChanged registers a handler for payment events from the
// payment collaborator.
func (eh *EventHandler) OnPaymentStatusChanged(handler func(context.Context, *models.PaymentStatusChangedEvent) error) {
	eh.onPaymentStatusChanged = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypePaymentStatusChanged:
		if eh.onPaymentStatusChanged != nil {
			var event models.PaymentStatusChangedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal PaymentStatusChanged event: %w", err)
			}
			return eh.onPaymentStatusChanged(ctx, &event)
		}

	default:
		eh.logger.Warn("Unhandled event type", zap.String("event_type", baseEvent.EventType))
	}

	return nil
}
