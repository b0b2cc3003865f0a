package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"commerce-core/internal/models"
	"commerce-core/internal/service"
	"commerce-core/internal/store"
	"commerce-core/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Handler contains HTTP handlers
type Handler struct {
	orders  *service.OrderService
	refunds *service.RefundService
	ledger  *service.Ledger
	coupons *service.CouponGuard
	store   *store.Store
}

// NewHandler creates a new HTTP handler
func NewHandler(orders *service.OrderService, refunds *service.RefundService, ledger *service.Ledger, coupons *service.CouponGuard, st *store.Store) *Handler {
	return &Handler{
		orders:  orders,
		refunds: refunds,
		ledger:  ledger,
		coupons: coupons,
		store:   st,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/orders", h.placeOrder)
		v1.GET("/orders/:id", h.getOrder)
		v1.POST("/orders/:id/transition", h.transitionOrder)
		v1.POST("/orders/:id/cancel", h.cancelOrder)
		v1.PUT("/orders/:id/payment-status", h.markPaymentStatus)
		v1.POST("/orders/:id/coupon", h.applyCoupon)
		v1.GET("/orders/:id/refunds", h.listOrderRefunds)
		v1.GET("/users/:id/orders", h.listUserOrders)

		v1.POST("/refunds", h.requestRefund)
		v1.GET("/refunds/:id", h.getRefund)
		v1.POST("/refunds/:id/resolve", h.resolveRefund)

		v1.POST("/products/:id/stock", h.mutateStock)
		v1.GET("/products/:id/stock", h.currentStock)
		v1.GET("/products/:id/stock/history", h.stockHistory)

		v1.GET("/order-lookup", h.getOrderByNumber)
		v1.GET("/product-lookup", h.getProductBySKU)
		v1.GET("/coupons/:code/preview", h.previewCoupon)
		v1.GET("/stock-alerts", h.listStockAlerts)

		v1.GET("/products/:id/reviews", h.listProductReviews)
		v1.GET("/users/:id/wishlist", h.listWishlist)
		v1.GET("/users/:id/tickets", h.listUserTickets)
		v1.GET("/tickets/:id/messages", h.listTicketMessages)
		v1.GET("/faqs", h.listFAQs)
		v1.GET("/stats/daily", h.dailyStats)
	}
}

// statusFor maps core error kinds to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrOverRefund),
		errors.Is(err, service.ErrAlreadyUsed),
		errors.Is(err, service.ErrLimitExceeded),
		errors.Is(err, service.ErrCouponNotEligible),
		errors.Is(err, service.ErrConstraintViolation):
		return http.StatusConflict
	case errors.Is(err, service.ErrTransientConflict):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) placeOrder(c *gin.Context) {
	var req service.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	order, err := h.orders.PlaceOrder(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

func (h *Handler) getOrder(c *gin.Context) {
	orderID, err := pathID(c)
	if err != nil {
		return
	}

	order, items, history, err := h.orders.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	usage, err := h.store.GetCouponUsageByOrder(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order":        order,
		"items":        items,
		"history":      history,
		"coupon_usage": usage,
	})
}

type transitionRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
	Actor  string             `json:"actor" binding:"required"`
	Notes  string             `json:"notes,omitempty"`
}

func (h *Handler) transitionOrder(c *gin.Context) {
	orderID, err := pathID(c)
	if err != nil {
		return
	}

	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	order, err := h.orders.Transition(c.Request.Context(), orderID, req.Status, req.Actor, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

type cancelRequest struct {
	Actor string `json:"actor" binding:"required"`
	Notes string `json:"notes,omitempty"`
}

func (h *Handler) cancelOrder(c *gin.Context) {
	orderID, err := pathID(c)
	if err != nil {
		return
	}

	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	order, err := h.orders.Cancel(c.Request.Context(), orderID, req.Actor, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

type paymentStatusRequest struct {
	Status models.PaymentStatus `json:"status" binding:"required"`
}

func (h *Handler) markPaymentStatus(c *gin.Context) {
	orderID, err := pathID(c)
	if err != nil {
		return
	}

	var req paymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	order, err := h.orders.MarkPaymentStatus(c.Request.Context(), orderID, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

type applyCouponRequest struct {
	Code string `json:"code" binding:"required"`
}

func (h *Handler) applyCoupon(c *gin.Context) {
	orderID, err := pathID(c)
	if err != nil {
		return
	}

	var req applyCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	order, err := h.orders.ApplyCoupon(c.Request.Context(), orderID, req.Code)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *Handler) requestRefund(c *gin.Context) {
	var req service.RequestRefundInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	refund, err := h.refunds.RequestRefund(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, refund)
}

func (h *Handler) getRefund(c *gin.Context) {
	refundID, err := pathID(c)
	if err != nil {
		return
	}

	refund, items, err := h.refunds.GetRefund(c.Request.Context(), refundID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"refund": refund,
		"items":  items,
	})
}

type resolveRefundRequest struct {
	Status models.RefundStatus `json:"status" binding:"required"`
	Actor  string              `json:"actor" binding:"required"`
	Amount *decimal.Decimal    `json:"amount,omitempty"`
}

func (h *Handler) resolveRefund(c *gin.Context) {
	refundID, err := pathID(c)
	if err != nil {
		return
	}

	var req resolveRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	refund, err := h.refunds.Resolve(c.Request.Context(), refundID, req.Status, req.Actor, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, refund)
}

func (h *Handler) listOrderRefunds(c *gin.Context) {
	orderID, err := pathID(c)
	if err != nil {
		return
	}

	refunds, err := h.refunds.ListOrderRefunds(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"refunds": refunds})
}

func (h *Handler) listUserOrders(c *gin.Context) {
	userID, err := pathID(c)
	if err != nil {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	orders, err := h.orders.ListUserOrders(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// stockMutationRequest allows quantity zero: an adjust op may legitimately
// set a stocktake result of zero. The ledger rejects zero deltas for
// reserve and release.
type stockMutationRequest struct {
	Op        string `json:"op" binding:"required,oneof=reserve release adjust"`
	VariantID *int64 `json:"variant_id,omitempty"`
	Quantity  int    `json:"quantity" binding:"gte=0"`
	Reason    string `json:"reason" binding:"required"`
	Actor     string `json:"actor" binding:"required"`
}

// mutateStock is the manual inventory surface: reserve and release move
// stock by a delta, adjust sets the absolute quantity (stocktake).
func (h *Handler) mutateStock(c *gin.Context) {
	productID, err := pathID(c)
	if err != nil {
		return
	}

	var req stockMutationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	var entry *models.StockHistory
	switch req.Op {
	case "reserve":
		entry, err = h.ledger.Reserve(c.Request.Context(), productID, req.VariantID, req.Quantity, req.Reason, req.Actor)
	case "release":
		entry, err = h.ledger.Release(c.Request.Context(), productID, req.VariantID, req.Quantity, req.Reason, req.Actor)
	case "adjust":
		entry, err = h.ledger.Adjust(c.Request.Context(), productID, req.VariantID, req.Quantity, req.Reason, req.Actor)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

func (h *Handler) currentStock(c *gin.Context) {
	productID, err := pathID(c)
	if err != nil {
		return
	}
	variantID := optionalVariantID(c)

	stock, err := h.ledger.CurrentStock(c.Request.Context(), productID, variantID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product_id": productID,
		"variant_id": variantID,
		"stock":      stock,
	})
}

func (h *Handler) stockHistory(c *gin.Context) {
	productID, err := pathID(c)
	if err != nil {
		return
	}
	variantID := optionalVariantID(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	entries, err := h.ledger.History(c.Request.Context(), productID, variantID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": entries})
}

func (h *Handler) getOrderByNumber(c *gin.Context) {
	number := c.Query("number")
	if number == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "number is required"})
		return
	}

	order, err := h.store.GetOrderByNumber(c.Request.Context(), number)
	if err != nil {
		if store.IsNoRows(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *Handler) previewCoupon(c *gin.Context) {
	amount, err := decimal.NewFromString(c.DefaultQuery("amount", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}

	coupon, discount, err := h.coupons.Preview(c.Request.Context(), c.Param("code"), amount)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"coupon":   coupon,
		"discount": discount,
	})
}

func (h *Handler) listStockAlerts(c *gin.Context) {
	onlyNotified := c.DefaultQuery("notified", "false") == "true"
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	alerts, err := h.store.GetStockAlerts(c.Request.Context(), onlyNotified, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

func (h *Handler) getProductBySKU(c *gin.Context) {
	sku := c.Query("sku")
	if sku == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sku is required"})
		return
	}

	product, err := h.store.GetProductBySKU(c.Request.Context(), sku)
	if err != nil {
		if store.IsNoRows(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

func (h *Handler) listProductReviews(c *gin.Context) {
	productID, err := pathID(c)
	if err != nil {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	reviews, err := h.store.GetReviewsByProductID(c.Request.Context(), productID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

func (h *Handler) listWishlist(c *gin.Context) {
	userID, err := pathID(c)
	if err != nil {
		return
	}

	items, err := h.store.GetWishlistByUserID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"wishlist": items})
}

func (h *Handler) listUserTickets(c *gin.Context) {
	userID, err := pathID(c)
	if err != nil {
		return
	}

	tickets, err := h.store.GetTicketsByUserID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tickets": tickets})
}

func (h *Handler) listTicketMessages(c *gin.Context) {
	ticketID, err := pathID(c)
	if err != nil {
		return
	}

	messages, err := h.store.GetTicketMessages(c.Request.Context(), ticketID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func (h *Handler) listFAQs(c *gin.Context) {
	faqs, err := h.store.GetActiveFAQs(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"faqs": faqs})
}

func (h *Handler) dailyStats(c *gin.Context) {
	from := c.DefaultQuery("from", time.Now().AddDate(0, 0, -30).Format("2006-01-02"))
	to := c.DefaultQuery("to", time.Now().Format("2006-01-02"))

	stats, err := h.store.GetDailyStatistics(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

func pathID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, err
	}
	return id, nil
}

func optionalVariantID(c *gin.Context) *int64 {
	raw := c.Query("variant_id")
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &id
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
