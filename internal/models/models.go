package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipping   OrderStatus = "shipping"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// orderTransitions is the allowed state graph. delivered and cancelled are
// terminal. Once an order is shipping, cancellation must go through the
// refund workflow.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipping, OrderStatusCancelled},
	OrderStatusShipping:   {OrderStatusDelivered},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
}

// CanTransition reports whether from -> to is an allowed order transition.
func (from OrderStatus) CanTransition(to OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Cancellable reports whether the order may still be cancelled directly.
func (from OrderStatus) Cancellable() bool {
	return from.CanTransition(OrderStatusCancelled)
}

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// PaymentStatus is the payment state of an order, driven by the external
// payment collaborator.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// PaymentMethod is how the customer pays.
type PaymentMethod string

const (
	PaymentMethodOnline PaymentMethod = "online"
	PaymentMethodCOD    PaymentMethod = "cod"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodOnline || m == PaymentMethodCOD
}

// RefundStatus is the lifecycle state of a refund request.
type RefundStatus string

const (
	RefundStatusPending    RefundStatus = "pending"
	RefundStatusApproved   RefundStatus = "approved"
	RefundStatusRejected   RefundStatus = "rejected"
	RefundStatusProcessing RefundStatus = "processing"
	RefundStatusCompleted  RefundStatus = "completed"
	RefundStatusCancelled  RefundStatus = "cancelled"
)

// refundTransitions: rejection and cancellation are only reachable before
// processing starts.
var refundTransitions = map[RefundStatus][]RefundStatus{
	RefundStatusPending:    {RefundStatusApproved, RefundStatusRejected, RefundStatusCancelled},
	RefundStatusApproved:   {RefundStatusProcessing, RefundStatusRejected, RefundStatusCancelled},
	RefundStatusProcessing: {RefundStatusCompleted},
	RefundStatusCompleted:  {},
	RefundStatusRejected:   {},
	RefundStatusCancelled:  {},
}

// CanTransition reports whether from -> to is an allowed refund transition.
func (from RefundStatus) CanTransition(to RefundStatus) bool {
	for _, next := range refundTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Resolved reports whether the status carries processed_by/processed_at.
func (s RefundStatus) Resolved() bool {
	switch s {
	case RefundStatusApproved, RefundStatusRejected, RefundStatusCompleted, RefundStatusCancelled:
		return true
	}
	return false
}

// Dead reports whether refund items under this status no longer count
// against the refundable balance of their order items.
func (s RefundStatus) Dead() bool {
	return s == RefundStatusRejected || s == RefundStatusCancelled
}

// Valid reports whether s is a known refund status.
func (s RefundStatus) Valid() bool {
	_, ok := refundTransitions[s]
	return ok
}

// RefundType distinguishes money-back, return-and-refund, and exchange.
type RefundType string

const (
	RefundTypeRefund   RefundType = "refund"
	RefundTypeReturn   RefundType = "return"
	RefundTypeExchange RefundType = "exchange"
)

// Valid reports whether t is a known refund type.
func (t RefundType) Valid() bool {
	return t == RefundTypeRefund || t == RefundTypeReturn || t == RefundTypeExchange
}

// StockChangeType tags a stock history entry.
type StockChangeType string

const (
	StockChangeIn         StockChangeType = "in"
	StockChangeOut        StockChangeType = "out"
	StockChangeAdjustment StockChangeType = "adjustment"
)

// CouponType distinguishes percentage and fixed-amount discounts.
type CouponType string

const (
	CouponTypePercent CouponType = "percent"
	CouponTypeFixed   CouponType = "fixed"
)

// User represents a registered customer.
type User struct {
	ID        int64     `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Name      string    `db:"name" json:"name"`
	Phone     string    `db:"phone" json:"phone,omitempty"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Product represents a product in the catalog. Stock is the authoritative
// snapshot maintained by the inventory ledger; nothing else writes it.
type Product struct {
	ID             int64           `db:"id" json:"id"`
	SKU            string          `db:"sku" json:"sku"`
	Name           string          `db:"name" json:"name"`
	Description    string          `db:"description" json:"description,omitempty"`
	Price          decimal.Decimal `db:"price" json:"price"`
	Stock          int             `db:"stock" json:"stock"`
	AlertThreshold int             `db:"alert_threshold" json:"alert_threshold"`
	IsActive       bool            `db:"is_active" json:"is_active"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// ProductVariant is a sellable variation of a product with its own SKU,
// optional price override and its own stock snapshot.
type ProductVariant struct {
	ID             int64            `db:"id" json:"id"`
	ProductID      int64            `db:"product_id" json:"product_id"`
	SKU            string           `db:"sku" json:"sku"`
	Name           string           `db:"name" json:"name"`
	Price          *decimal.Decimal `db:"price" json:"price,omitempty"`
	Stock          int              `db:"stock" json:"stock"`
	AlertThreshold int              `db:"alert_threshold" json:"alert_threshold"`
	IsActive       bool             `db:"is_active" json:"is_active"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// Order represents a customer order. Mutated only through the order state
// machine; never deleted.
type Order struct {
	ID              int64           `db:"id" json:"id"`
	OrderNumber     string          `db:"order_number" json:"order_number"`
	UserID          int64           `db:"user_id" json:"user_id"`
	TotalAmount     decimal.Decimal `db:"total_amount" json:"total_amount"`
	ShippingFee     decimal.Decimal `db:"shipping_fee" json:"shipping_fee"`
	DiscountAmount  decimal.Decimal `db:"discount_amount" json:"discount_amount"`
	ShippingAddress string          `db:"shipping_address" json:"shipping_address"`
	PaymentMethod   PaymentMethod   `db:"payment_method" json:"payment_method"`
	PaymentStatus   PaymentStatus   `db:"payment_status" json:"payment_status"`
	OrderStatus     OrderStatus     `db:"order_status" json:"order_status"`
	Notes           string          `db:"notes" json:"notes,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// OrderItem is an immutable line of an order. UnitPrice is the price
// snapshot captured at placement time; later price changes do not touch it.
type OrderItem struct {
	ID        int64           `db:"id" json:"id"`
	OrderID   int64           `db:"order_id" json:"order_id"`
	ProductID int64           `db:"product_id" json:"product_id"`
	VariantID *int64          `db:"variant_id" json:"variant_id,omitempty"`
	Quantity  int             `db:"quantity" json:"quantity"`
	UnitPrice decimal.Decimal `db:"unit_price" json:"unit_price"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// OrderStatusHistory is an append-only record of one order-status
// transition.
type OrderStatusHistory struct {
	ID         int64       `db:"id" json:"id"`
	OrderID    int64       `db:"order_id" json:"order_id"`
	FromStatus OrderStatus `db:"from_status" json:"from_status"`
	ToStatus   OrderStatus `db:"to_status" json:"to_status"`
	Notes      string      `db:"notes" json:"notes,omitempty"`
	ChangedBy  string      `db:"changed_by" json:"changed_by"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
}

// StockHistory is an immutable ledger entry: one signed stock delta with
// the snapshot values before and after it.
type StockHistory struct {
	ID            int64           `db:"id" json:"id"`
	ProductID     int64           `db:"product_id" json:"product_id"`
	VariantID     *int64          `db:"variant_id" json:"variant_id,omitempty"`
	ChangeType    StockChangeType `db:"change_type" json:"change_type"`
	Quantity      int             `db:"quantity" json:"quantity"`
	PreviousStock int             `db:"previous_stock" json:"previous_stock"`
	CurrentStock  int             `db:"current_stock" json:"current_stock"`
	Reason        string          `db:"reason" json:"reason,omitempty"`
	CreatedBy     string          `db:"created_by" json:"created_by,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// StockAlert is the derived low-stock read model per product/variant.
type StockAlert struct {
	ID           int64      `db:"id" json:"id"`
	ProductID    int64      `db:"product_id" json:"product_id"`
	VariantID    *int64     `db:"variant_id" json:"variant_id,omitempty"`
	Threshold    int        `db:"threshold" json:"threshold"`
	CurrentStock int        `db:"current_stock" json:"current_stock"`
	IsNotified   bool       `db:"is_notified" json:"is_notified"`
	NotifiedAt   *time.Time `db:"notified_at" json:"notified_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Coupon represents a discount code.
type Coupon struct {
	ID             int64            `db:"id" json:"id"`
	Code           string           `db:"code" json:"code"`
	Type           CouponType       `db:"type" json:"type"`
	Value          decimal.Decimal  `db:"value" json:"value"`
	MinOrderAmount decimal.Decimal  `db:"min_order_amount" json:"min_order_amount"`
	MaxDiscount    *decimal.Decimal `db:"max_discount" json:"max_discount,omitempty"`
	UsageLimit     int              `db:"usage_limit" json:"usage_limit"`
	UsedCount      int              `db:"used_count" json:"used_count"`
	StartsAt       time.Time        `db:"starts_at" json:"starts_at"`
	ExpiresAt      time.Time        `db:"expires_at" json:"expires_at"`
	IsActive       bool             `db:"is_active" json:"is_active"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
}

// CouponUsage is the permanent record of a coupon applied to an order.
// Unique per (coupon, user, order); no update or delete path exists, and a
// cancelled order does not free the usage.
type CouponUsage struct {
	ID             int64           `db:"id" json:"id"`
	CouponID       int64           `db:"coupon_id" json:"coupon_id"`
	UserID         int64           `db:"user_id" json:"user_id"`
	OrderID        int64           `db:"order_id" json:"order_id"`
	DiscountAmount decimal.Decimal `db:"discount_amount" json:"discount_amount"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// Refund is a refund/return/exchange request against an order.
type Refund struct {
	ID           int64            `db:"id" json:"id"`
	OrderID      int64            `db:"order_id" json:"order_id"`
	UserID       int64            `db:"user_id" json:"user_id"`
	Type         RefundType       `db:"type" json:"type"`
	Status       RefundStatus     `db:"status" json:"status"`
	Reason       string           `db:"reason" json:"reason,omitempty"`
	RefundAmount *decimal.Decimal `db:"refund_amount" json:"refund_amount,omitempty"`
	ProcessedBy  *string          `db:"processed_by" json:"processed_by,omitempty"`
	ProcessedAt  *time.Time       `db:"processed_at" json:"processed_at,omitempty"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`
}

// RefundItem ties a refund to one order item with the quantity being
// refunded.
type RefundItem struct {
	ID           int64            `db:"id" json:"id"`
	RefundID     int64            `db:"refund_id" json:"refund_id"`
	OrderItemID  int64            `db:"order_item_id" json:"order_item_id"`
	Quantity     int              `db:"quantity" json:"quantity"`
	RefundAmount *decimal.Decimal `db:"refund_amount" json:"refund_amount,omitempty"`
	Reason       string           `db:"reason" json:"reason,omitempty"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
}

// Review is a product review left by a customer.
type Review struct {
	ID        int64     `db:"id" json:"id"`
	ProductID int64     `db:"product_id" json:"product_id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	OrderID   *int64    `db:"order_id" json:"order_id,omitempty"`
	Rating    int       `db:"rating" json:"rating"`
	Comment   string    `db:"comment" json:"comment,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Notification is a persisted user notification; delivery happens outside
// the core.
type Notification struct {
	ID        int64      `db:"id" json:"id"`
	UserID    int64      `db:"user_id" json:"user_id"`
	Type      string     `db:"type" json:"type"`
	Title     string     `db:"title" json:"title"`
	Body      string     `db:"body" json:"body"`
	IsRead    bool       `db:"is_read" json:"is_read"`
	ReadAt    *time.Time `db:"read_at" json:"read_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// AuditLog records a mutating operation for compliance.
type AuditLog struct {
	ID         int64     `db:"id" json:"id"`
	Actor      string    `db:"actor" json:"actor"`
	Action     string    `db:"action" json:"action"`
	EntityType string    `db:"entity_type" json:"entity_type"`
	EntityID   int64     `db:"entity_id" json:"entity_id"`
	Detail     string    `db:"detail" json:"detail,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// FAQ is a frequently asked question entry.
type FAQ struct {
	ID        int64     `db:"id" json:"id"`
	Question  string    `db:"question" json:"question"`
	Answer    string    `db:"answer" json:"answer"`
	Category  string    `db:"category" json:"category,omitempty"`
	SortOrder int       `db:"sort_order" json:"sort_order"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SupportTicket is a customer support request.
type SupportTicket struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	OrderID   *int64    `db:"order_id" json:"order_id,omitempty"`
	Subject   string    `db:"subject" json:"subject"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TicketMessage is one message within a support ticket thread.
type TicketMessage struct {
	ID        int64     `db:"id" json:"id"`
	TicketID  int64     `db:"ticket_id" json:"ticket_id"`
	Sender    string    `db:"sender" json:"sender"`
	Body      string    `db:"body" json:"body"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// WishlistItem is a product saved by a user.
type WishlistItem struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	ProductID int64     `db:"product_id" json:"product_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// DailyStatistic is one day of aggregated sales counters, maintained by the
// core on placement/refund and read by reporting collaborators.
type DailyStatistic struct {
	ID          int64           `db:"id" json:"id"`
	StatDate    time.Time       `db:"stat_date" json:"stat_date"`
	OrderCount  int             `db:"order_count" json:"order_count"`
	OrderAmount decimal.Decimal `db:"order_amount" json:"order_amount"`
	RefundCount int             `db:"refund_count" json:"refund_count"`
	NewUsers    int             `db:"new_users" json:"new_users"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}
