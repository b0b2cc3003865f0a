package store

import (
	"context"
	"database/sql"
	"fmt"

	"commerce-core/internal/models"

	"github.com/jmoiron/sqlx"
)

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product not found: %d: %w", id, sql.ErrNoRows)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProductBySKU retrieves a product by SKU
func (s *Store) GetProductBySKU(ctx context.Context, sku string) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE sku = $1", sku)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product not found: %s: %w", sku, sql.ErrNoRows)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProductsByIDs retrieves multiple products by IDs
func (s *Store) GetProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}

	query, args, err := sqlx.In("SELECT * FROM products WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var products []models.Product
	err = s.db.SelectContext(ctx, &products, query, args...)
	return products, err
}

// GetVariantByID retrieves a product variant by ID
func (s *Store) GetVariantByID(ctx context.Context, id int64) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	err := s.db.GetContext(ctx, &variant, "SELECT * FROM product_variants WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product variant not found: %d: %w", id, sql.ErrNoRows)
	}
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

// GetVariantsByIDs retrieves multiple variants by IDs
func (s *Store) GetVariantsByIDs(ctx context.Context, ids []int64) ([]models.ProductVariant, error) {
	if len(ids) == 0 {
		return []models.ProductVariant{}, nil
	}

	query, args, err := sqlx.In("SELECT * FROM product_variants WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var variants []models.ProductVariant
	err = s.db.SelectContext(ctx, &variants, query, args...)
	return variants, err
}

// GetStockHistory retrieves ledger entries for a product or variant, newest
// first.
func (s *Store) GetStockHistory(ctx context.Context, productID int64, variantID *int64, limit, offset int) ([]models.StockHistory, error) {
	var entries []models.StockHistory
	var err error
	if variantID != nil {
		err = s.db.SelectContext(ctx, &entries,
			"SELECT * FROM stock_history WHERE variant_id = $1 ORDER BY id DESC LIMIT $2 OFFSET $3",
			*variantID, limit, offset)
	} else {
		err = s.db.SelectContext(ctx, &entries,
			"SELECT * FROM stock_history WHERE product_id = $1 AND variant_id IS NULL ORDER BY id DESC LIMIT $2 OFFSET $3",
			productID, limit, offset)
	}
	return entries, err
}

// GetStockAlerts retrieves stock alert rows, optionally only those currently
// flagged.
func (s *Store) GetStockAlerts(ctx context.Context, onlyNotified bool, limit, offset int) ([]models.StockAlert, error) {
	var alerts []models.StockAlert
	query := "SELECT * FROM stock_alerts ORDER BY updated_at DESC LIMIT $1 OFFSET $2"
	if onlyNotified {
		query = "SELECT * FROM stock_alerts WHERE is_notified ORDER BY updated_at DESC LIMIT $1 OFFSET $2"
	}
	err := s.db.SelectContext(ctx, &alerts, query, limit, offset)
	return alerts, err
}

// LockProductStock locks the product row and returns its current stock
// snapshot. The lock is held until the transaction ends, serializing
// concurrent reservations for the same product.
func (t *Tx) LockProductStock(ctx context.Context, productID int64) (int, error) {
	var stock int
	err := t.tx.GetContext(ctx, &stock,
		"SELECT stock FROM products WHERE id = $1 FOR UPDATE", productID)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("product not found: %d: %w", productID, sql.ErrNoRows)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to lock product stock: %w", err)
	}
	return stock, nil
}

// LockVariantStock locks the variant row and returns its current stock
// snapshot.
func (t *Tx) LockVariantStock(ctx context.Context, variantID int64) (int, error) {
	var stock int
	err := t.tx.GetContext(ctx, &stock,
		"SELECT stock FROM product_variants WHERE id = $1 FOR UPDATE", variantID)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("product variant not found: %d: %w", variantID, sql.ErrNoRows)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to lock variant stock: %w", err)
	}
	return stock, nil
}

// UpdateProductStock writes the new stock snapshot for a product. Callers
// must hold the row lock.
func (t *Tx) UpdateProductStock(ctx context.Context, productID int64, stock int) error {
	_, err := t.tx.ExecContext(ctx,
		"UPDATE products SET stock = $1, updated_at = NOW() WHERE id = $2",
		stock, productID)
	return err
}

// UpdateVariantStock writes the new stock snapshot for a variant.
func (t *Tx) UpdateVariantStock(ctx context.Context, variantID int64, stock int) error {
	_, err := t.tx.ExecContext(ctx,
		"UPDATE product_variants SET stock = $1, updated_at = NOW() WHERE id = $2",
		stock, variantID)
	return err
}

// GetAlertThreshold returns the configured low-stock threshold for the
// product or variant.
func (t *Tx) GetAlertThreshold(ctx context.Context, productID int64, variantID *int64) (int, error) {
	var threshold int
	var err error
	if variantID != nil {
		err = t.tx.GetContext(ctx, &threshold,
			"SELECT alert_threshold FROM product_variants WHERE id = $1", *variantID)
	} else {
		err = t.tx.GetContext(ctx, &threshold,
			"SELECT alert_threshold FROM products WHERE id = $1", productID)
	}
	return threshold, err
}

// InsertStockHistory appends one immutable ledger entry.
func (t *Tx) InsertStockHistory(ctx context.Context, entry *models.StockHistory) error {
	query := `
		INSERT INTO stock_history (product_id, variant_id, change_type, quantity, previous_stock, current_stock, reason, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	return t.tx.GetContext(ctx, entry, query,
		entry.ProductID, entry.VariantID, entry.ChangeType, entry.Quantity,
		entry.PreviousStock, entry.CurrentStock, entry.Reason, entry.CreatedBy)
}

// GetStockAlertForUpdate locks and returns the alert row for the product or
// variant, or nil if none exists yet.
func (t *Tx) GetStockAlertForUpdate(ctx context.Context, productID int64, variantID *int64) (*models.StockAlert, error) {
	var alert models.StockAlert
	var err error
	if variantID != nil {
		err = t.tx.GetContext(ctx, &alert,
			"SELECT * FROM stock_alerts WHERE variant_id = $1 FOR UPDATE", *variantID)
	} else {
		err = t.tx.GetContext(ctx, &alert,
			"SELECT * FROM stock_alerts WHERE product_id = $1 AND variant_id IS NULL FOR UPDATE", productID)
	}
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

// InsertStockAlert creates the alert row for a product/variant.
func (t *Tx) InsertStockAlert(ctx context.Context, alert *models.StockAlert) error {
	query := `
		INSERT INTO stock_alerts (product_id, variant_id, threshold, current_stock, is_notified, notified_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	return t.tx.GetContext(ctx, alert, query,
		alert.ProductID, alert.VariantID, alert.Threshold, alert.CurrentStock,
		alert.IsNotified, alert.NotifiedAt)
}

// UpdateStockAlert writes the re-evaluated alert state.
func (t *Tx) UpdateStockAlert(ctx context.Context, alert *models.StockAlert) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE stock_alerts
		 SET threshold = $1, current_stock = $2, is_notified = $3, notified_at = $4, updated_at = NOW()
		 WHERE id = $5`,
		alert.Threshold, alert.CurrentStock, alert.IsNotified, alert.NotifiedAt, alert.ID)
	return err
}
