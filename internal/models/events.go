package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeOrderPlaced          = "ORDER_PLACED"
	EventTypeOrderStatusChanged   = "ORDER_STATUS_CHANGED"
	EventTypeOrderCancelled       = "ORDER_CANCELLED"
	EventTypeRefundRequested      = "REFUND_REQUESTED"
	EventTypeRefundStatusChanged  = "REFUND_STATUS_CHANGED"
	EventTypeStockAlertTriggered  = "STOCK_ALERT_TRIGGERED"
	EventTypePaymentStatusChanged = "PAYMENT_STATUS_CHANGED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderEventItem is the item payload carried by order events.
type OrderEventItem struct {
	ProductID int64           `json:"product_id"`
	VariantID *int64          `json:"variant_id,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// OrderPlacedEvent published when an order is placed
type OrderPlacedEvent struct {
	BaseEvent
	OrderID     int64            `json:"order_id"`
	OrderNumber string           `json:"order_number"`
	UserID      int64            `json:"user_id"`
	TotalAmount decimal.Decimal  `json:"total_amount"`
	Items       []OrderEventItem `json:"items"`
}

// OrderStatusChangedEvent published on every order transition, including
// cancellation.
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID    int64       `json:"order_id"`
	UserID     int64       `json:"user_id"`
	FromStatus OrderStatus `json:"from_status"`
	ToStatus   OrderStatus `json:"to_status"`
	ChangedBy  string      `json:"changed_by"`
}

// RefundRequestedEvent published when a refund request is created
type RefundRequestedEvent struct {
	BaseEvent
	RefundID int64      `json:"refund_id"`
	OrderID  int64      `json:"order_id"`
	UserID   int64      `json:"user_id"`
	Type     RefundType `json:"type"`
}

// RefundStatusChangedEvent published on every refund transition
type RefundStatusChangedEvent struct {
	BaseEvent
	RefundID     int64            `json:"refund_id"`
	OrderID      int64            `json:"order_id"`
	UserID       int64            `json:"user_id"`
	FromStatus   RefundStatus     `json:"from_status"`
	ToStatus     RefundStatus     `json:"to_status"`
	RefundAmount *decimal.Decimal `json:"refund_amount,omitempty"`
	ProcessedBy  string           `json:"processed_by,omitempty"`
}

// StockAlertEvent published when stock first crosses at-or-below threshold
type StockAlertEvent struct {
	BaseEvent
	ProductID    int64  `json:"product_id"`
	VariantID    *int64 `json:"variant_id,omitempty"`
	Threshold    int    `json:"threshold"`
	CurrentStock int    `json:"current_stock"`
}

// PaymentStatusChangedEvent consumed from the payment collaborator; drives
// MarkPaymentStatus.
type PaymentStatusChangedEvent struct {
	BaseEvent
	OrderID       int64         `json:"order_id"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	ProviderTxID  string        `json:"provider_tx_id,omitempty"`
}
