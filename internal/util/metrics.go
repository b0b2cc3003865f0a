package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Total number of orders placed",
	})

	OrdersCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_cancelled_total",
		Help: "Total number of cancelled orders",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of rejected order placements",
	}, []string{"reason"})

	OrderTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "Total number of order status transitions",
	}, []string{"to_status"})

	RefundsRequestedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "refunds_requested_total",
		Help: "Total number of refund requests created",
	})

	RefundsResolvedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "refunds_resolved_total",
		Help: "Total number of refund resolutions",
	}, []string{"to_status"})

	CouponRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coupon_rejections_total",
		Help: "Total number of rejected coupon applications",
	}, []string{"reason"})

	LedgerOpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inventory_ledger_op_latency_seconds",
		Help:    "Latency of inventory ledger mutations",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	LedgerReservationsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inventory_reservations_failed_total",
		Help: "Total number of reservations rejected for insufficient stock",
	})

	StockAlertsTriggered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_alerts_triggered_total",
		Help: "Total number of low-stock threshold crossings",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
