package store

import (
	"context"

	"commerce-core/internal/models"
)

// CreateUser inserts a user row.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (email, name, phone, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, user, query,
		user.Email, user.Name, user.Phone, user.IsActive)
}

// CreateProduct inserts a product row with its initial stock snapshot.
func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (sku, name, description, price, stock, alert_threshold, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, product, query,
		product.SKU, product.Name, product.Description, product.Price,
		product.Stock, product.AlertThreshold, product.IsActive)
}

// CreateProductVariant inserts a variant row.
func (s *Store) CreateProductVariant(ctx context.Context, variant *models.ProductVariant) error {
	query := `
		INSERT INTO product_variants (product_id, sku, name, price, stock, alert_threshold, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, variant, query,
		variant.ProductID, variant.SKU, variant.Name, variant.Price,
		variant.Stock, variant.AlertThreshold, variant.IsActive)
}

// CreateCoupon inserts a coupon row.
func (s *Store) CreateCoupon(ctx context.Context, coupon *models.Coupon) error {
	query := `
		INSERT INTO coupons (code, type, value, min_order_amount, max_discount,
		                     usage_limit, starts_at, expires_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, coupon, query,
		coupon.Code, coupon.Type, coupon.Value, coupon.MinOrderAmount,
		coupon.MaxDiscount, coupon.UsageLimit, coupon.StartsAt,
		coupon.ExpiresAt, coupon.IsActive)
}
