package service

import (
	"context"
	"time"

	"commerce-core/internal/models"
	"commerce-core/internal/store"
	"commerce-core/internal/util"

	"go.uber.org/zap"
)

// StockAlertMonitor is the derived low-stock read model. It holds no write
// authority over stock; the inventory ledger invokes Evaluate after every
// mutation, inside the same transaction.
type StockAlertMonitor struct {
	notifier NotificationDispatcher
	logger   *zap.Logger
	now      func() time.Time
}

// NewStockAlertMonitor creates a new stock alert monitor
func NewStockAlertMonitor(notifier NotificationDispatcher) *StockAlertMonitor {
	return &StockAlertMonitor{
		notifier: notifier,
		logger:   util.GetLogger(),
		now:      time.Now,
	}
}

// nextAlertState computes the notified flag after a snapshot change.
// The edge fires only on the transition from above threshold to at-or-below;
// further decrements while already below do not re-fire. Crossing back above
// resets the flag without clearing history.
func nextAlertState(wasNotified bool, threshold, currentStock int) (notified, edge bool) {
	below := currentStock <= threshold
	if !below {
		return false, false
	}
	return true, !wasNotified
}

// EvaluateTx re-evaluates the alert row for a product/variant after a stock
// mutation. Runs inside the ledger's transaction so the alert row and the
// snapshot move together.
func (m *StockAlertMonitor) EvaluateTx(ctx context.Context, tx *store.Tx, productID int64, variantID *int64, currentStock int) error {
	alert, err := tx.GetStockAlertForUpdate(ctx, productID, variantID)
	if err != nil {
		return err
	}

	if alert == nil {
		threshold, err := tx.GetAlertThreshold(ctx, productID, variantID)
		if err != nil {
			return err
		}

		notified, edge := nextAlertState(false, threshold, currentStock)
		alert = &models.StockAlert{
			ProductID:    productID,
			VariantID:    variantID,
			Threshold:    threshold,
			CurrentStock: currentStock,
			IsNotified:   notified,
		}
		if notified {
			now := m.now()
			alert.NotifiedAt = &now
		}
		if err := tx.InsertStockAlert(ctx, alert); err != nil {
			return err
		}
		if edge {
			m.fire(ctx, alert)
		}
		return nil
	}

	notified, edge := nextAlertState(alert.IsNotified, alert.Threshold, currentStock)
	alert.CurrentStock = currentStock
	alert.IsNotified = notified
	if edge {
		now := m.now()
		alert.NotifiedAt = &now
	}
	if err := tx.UpdateStockAlert(ctx, alert); err != nil {
		return err
	}
	if edge {
		m.fire(ctx, alert)
	}
	return nil
}

func (m *StockAlertMonitor) fire(ctx context.Context, alert *models.StockAlert) {
	util.StockAlertsTriggered.Inc()
	m.logger.Warn("Low stock threshold crossed",
		zap.Int64("product_id", alert.ProductID),
		zap.Int("threshold", alert.Threshold),
		zap.Int("current_stock", alert.CurrentStock))
	m.notifier.StockAlert(ctx, alert.ProductID, alert.VariantID, alert.Threshold, alert.CurrentStock)
}
