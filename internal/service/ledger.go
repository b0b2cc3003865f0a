package service

import (
	"context"
	"fmt"
	"time"

	"commerce-core/internal/models"
	"commerce-core/internal/redisclient"
	"commerce-core/internal/store"
	"commerce-core/internal/util"

	"go.uber.org/zap"
)

// Ledger is the authoritative writer of stock quantity. Every successful
// mutation writes exactly one stock_history row in the same transaction as
// the snapshot update, then re-evaluates the stock alert for the affected
// product or variant. No other component writes stock directly.
type Ledger struct {
	store   *store.Store
	cache   *redisclient.Client
	monitor *StockAlertMonitor
	logger  *zap.Logger
}

// NewLedger creates a new inventory ledger. cache may be nil, in which case
// the snapshot cache is skipped.
func NewLedger(st *store.Store, cache *redisclient.Client, monitor *StockAlertMonitor) *Ledger {
	return &Ledger{
		store:   st,
		cache:   cache,
		monitor: monitor,
		logger:  util.GetLogger(),
	}
}

// Reserve decrements stock for an order placement. Fails with
// ErrInsufficientStock when the requested quantity exceeds the current
// snapshot; never partially decrements.
func (l *Ledger) Reserve(ctx context.Context, productID int64, variantID *int64, quantity int, reason, actor string) (*models.StockHistory, error) {
	var entry *models.StockHistory
	err := l.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		entry, err = l.ReserveTx(ctx, tx, productID, variantID, quantity, reason, actor)
		return err
	})
	if err != nil {
		return nil, err
	}
	l.refreshCache(ctx, entry)
	return entry, nil
}

// Release increments stock. Used for order cancellation (full restoration)
// and refund approval (partial restoration); it always succeeds for a valid
// target since stock can always be increased.
func (l *Ledger) Release(ctx context.Context, productID int64, variantID *int64, quantity int, reason, actor string) (*models.StockHistory, error) {
	var entry *models.StockHistory
	err := l.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		entry, err = l.ReleaseTx(ctx, tx, productID, variantID, quantity, reason, actor)
		return err
	})
	if err != nil {
		return nil, err
	}
	l.refreshCache(ctx, entry)
	return entry, nil
}

// Adjust sets the snapshot to an absolute value, recording the signed delta
// as an adjustment entry.
func (l *Ledger) Adjust(ctx context.Context, productID int64, variantID *int64, newQuantity int, reason, actor string) (*models.StockHistory, error) {
	var entry *models.StockHistory
	err := l.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		entry, err = l.AdjustTx(ctx, tx, productID, variantID, newQuantity, reason, actor)
		return err
	})
	if err != nil {
		return nil, err
	}
	l.refreshCache(ctx, entry)
	return entry, nil
}

// ReserveTx is the transaction-scoped reservation used by order placement so
// the decrement commits or rolls back with the rest of the order.
func (l *Ledger) ReserveTx(ctx context.Context, tx *store.Tx, productID int64, variantID *int64, quantity int, reason, actor string) (*models.StockHistory, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: reserve quantity must be positive", ErrInvalidInput)
	}

	timer := time.Now()
	defer func() {
		util.LedgerOpLatency.WithLabelValues("reserve").Observe(time.Since(timer).Seconds())
	}()

	current, err := l.lockStock(ctx, tx, productID, variantID)
	if err != nil {
		return nil, err
	}

	if current < quantity {
		util.LedgerReservationsFailed.Inc()
		return nil, fmt.Errorf("%w: available=%d, requested=%d", ErrInsufficientStock, current, quantity)
	}

	return l.applyChange(ctx, tx, productID, variantID, models.StockChangeOut, quantity, current, current-quantity, reason, actor)
}

// ReleaseTx is the transaction-scoped restoration used by cancellation and
// refund resolution.
func (l *Ledger) ReleaseTx(ctx context.Context, tx *store.Tx, productID int64, variantID *int64, quantity int, reason, actor string) (*models.StockHistory, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: release quantity must be positive", ErrInvalidInput)
	}

	timer := time.Now()
	defer func() {
		util.LedgerOpLatency.WithLabelValues("release").Observe(time.Since(timer).Seconds())
	}()

	current, err := l.lockStock(ctx, tx, productID, variantID)
	if err != nil {
		return nil, err
	}

	return l.applyChange(ctx, tx, productID, variantID, models.StockChangeIn, quantity, current, current+quantity, reason, actor)
}

// AdjustTx is the transaction-scoped absolute correction.
func (l *Ledger) AdjustTx(ctx context.Context, tx *store.Tx, productID int64, variantID *int64, newQuantity int, reason, actor string) (*models.StockHistory, error) {
	if newQuantity < 0 {
		return nil, fmt.Errorf("%w: stock cannot be negative", ErrInvalidInput)
	}

	timer := time.Now()
	defer func() {
		util.LedgerOpLatency.WithLabelValues("adjust").Observe(time.Since(timer).Seconds())
	}()

	current, err := l.lockStock(ctx, tx, productID, variantID)
	if err != nil {
		return nil, err
	}

	// quantity records the signed delta for adjustments
	return l.applyChange(ctx, tx, productID, variantID, models.StockChangeAdjustment, newQuantity-current, current, newQuantity, reason, actor)
}

// CurrentStock returns the snapshot, serving from the cache when possible.
func (l *Ledger) CurrentStock(ctx context.Context, productID int64, variantID *int64) (int, error) {
	if l.cache != nil {
		if stock, ok, err := l.cache.GetStock(ctx, productID, variantID); err == nil && ok {
			return stock, nil
		}
	}

	if variantID != nil {
		variant, err := l.store.GetVariantByID(ctx, *variantID)
		if err != nil {
			return 0, mapNotFound(err)
		}
		return variant.Stock, nil
	}

	product, err := l.store.GetProductByID(ctx, productID)
	if err != nil {
		return 0, mapNotFound(err)
	}
	return product.Stock, nil
}

// History returns ledger entries for reporting collaborators, newest first.
func (l *Ledger) History(ctx context.Context, productID int64, variantID *int64, limit, offset int) ([]models.StockHistory, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return l.store.GetStockHistory(ctx, productID, variantID, limit, offset)
}

func (l *Ledger) lockStock(ctx context.Context, tx *store.Tx, productID int64, variantID *int64) (int, error) {
	if variantID != nil {
		stock, err := tx.LockVariantStock(ctx, *variantID)
		return stock, mapNotFound(err)
	}
	stock, err := tx.LockProductStock(ctx, productID)
	return stock, mapNotFound(err)
}

// applyChange writes the snapshot and the ledger row as one unit, then has
// the monitor re-evaluate the alert for the same target.
func (l *Ledger) applyChange(ctx context.Context, tx *store.Tx, productID int64, variantID *int64, changeType models.StockChangeType, quantity, previous, next int, reason, actor string) (*models.StockHistory, error) {
	if variantID != nil {
		if err := tx.UpdateVariantStock(ctx, *variantID, next); err != nil {
			return nil, fmt.Errorf("failed to update variant stock: %w", err)
		}
	} else {
		if err := tx.UpdateProductStock(ctx, productID, next); err != nil {
			return nil, fmt.Errorf("failed to update product stock: %w", err)
		}
	}

	entry := &models.StockHistory{
		ProductID:     productID,
		VariantID:     variantID,
		ChangeType:    changeType,
		Quantity:      quantity,
		PreviousStock: previous,
		CurrentStock:  next,
		Reason:        reason,
		CreatedBy:     actor,
	}
	if err := tx.InsertStockHistory(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to write stock history: %w", err)
	}

	if err := l.monitor.EvaluateTx(ctx, tx, productID, variantID, next); err != nil {
		return nil, fmt.Errorf("failed to evaluate stock alert: %w", err)
	}

	l.logger.Debug("Stock changed",
		zap.Int64("product_id", productID),
		zap.String("change_type", string(changeType)),
		zap.Int("previous", previous),
		zap.Int("current", next))

	return entry, nil
}

// refreshCache pushes the committed snapshot into redis. Best effort; the
// store remains the source of truth.
func (l *Ledger) refreshCache(ctx context.Context, entry *models.StockHistory) {
	if l.cache == nil || entry == nil {
		return
	}
	if err := l.cache.SetStock(ctx, entry.ProductID, entry.VariantID, entry.CurrentStock); err != nil {
		l.logger.Warn("Failed to refresh stock cache",
			zap.Int64("product_id", entry.ProductID),
			zap.Error(err))
		// drop the key rather than leave a stale snapshot behind
		if err := l.cache.InvalidateStock(ctx, entry.ProductID, entry.VariantID); err != nil {
			l.logger.Warn("Failed to invalidate stock cache",
				zap.Int64("product_id", entry.ProductID),
				zap.Error(err))
		}
	}
}

// RefreshCacheAll pushes a batch of committed snapshots into redis,
// used by callers that applied several tx-scoped changes before commit.
func (l *Ledger) RefreshCacheAll(ctx context.Context, entries []*models.StockHistory) {
	for _, entry := range entries {
		l.refreshCache(ctx, entry)
	}
}
