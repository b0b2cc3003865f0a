package store

import (
	"context"
	"database/sql"
	"fmt"

	"commerce-core/internal/models"
)

// GetUserByID retrieves a user by ID
func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found: %d: %w", id, sql.ErrNoRows)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateNotification persists a user notification. Delivery is handled by
// the external dispatcher.
func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (user_id, type, title, body)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, n, query, n.UserID, n.Type, n.Title, n.Body)
}

// CreateAuditLog appends an audit record.
func (s *Store) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (actor, action, entity_type, entity_id, detail)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, entry, query,
		entry.Actor, entry.Action, entry.EntityType, entry.EntityID, entry.Detail)
}

// GetReviewsByProductID retrieves reviews for a product, newest first
func (s *Store) GetReviewsByProductID(ctx context.Context, productID int64, limit, offset int) ([]models.Review, error) {
	var reviews []models.Review
	err := s.db.SelectContext(ctx, &reviews,
		"SELECT * FROM reviews WHERE product_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3",
		productID, limit, offset)
	return reviews, err
}

// GetWishlistByUserID retrieves a user's wishlist
func (s *Store) GetWishlistByUserID(ctx context.Context, userID int64) ([]models.WishlistItem, error) {
	var items []models.WishlistItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM wishlist WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return items, err
}

// GetActiveFAQs retrieves active FAQ entries in display order
func (s *Store) GetActiveFAQs(ctx context.Context) ([]models.FAQ, error) {
	var faqs []models.FAQ
	err := s.db.SelectContext(ctx, &faqs,
		"SELECT * FROM faqs WHERE is_active ORDER BY sort_order, id")
	return faqs, err
}

// GetTicketsByUserID retrieves support tickets for a user
func (s *Store) GetTicketsByUserID(ctx context.Context, userID int64) ([]models.SupportTicket, error) {
	var tickets []models.SupportTicket
	err := s.db.SelectContext(ctx, &tickets,
		"SELECT * FROM support_tickets WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return tickets, err
}

// GetTicketMessages retrieves the thread of a support ticket
func (s *Store) GetTicketMessages(ctx context.Context, ticketID int64) ([]models.TicketMessage, error) {
	var messages []models.TicketMessage
	err := s.db.SelectContext(ctx, &messages,
		"SELECT * FROM ticket_messages WHERE ticket_id = $1 ORDER BY id", ticketID)
	return messages, err
}

// GetDailyStatistics retrieves aggregate rows for a date range, oldest
// first.
func (s *Store) GetDailyStatistics(ctx context.Context, from, to string) ([]models.DailyStatistic, error) {
	var stats []models.DailyStatistic
	err := s.db.SelectContext(ctx, &stats,
		"SELECT * FROM daily_statistics WHERE stat_date BETWEEN $1 AND $2 ORDER BY stat_date",
		from, to)
	return stats, err
}
