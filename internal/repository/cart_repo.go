package repository

import (
	"context"

	"gorm.io/gorm"

	"marketplace/internal/model"
)

// CartRepository cart repository interface
type CartRepository interface {
	// List cart items by IDs scoped to the owning user
	ListByIDsForUser(ctx context.Context, userID uint64, ids []uint64) ([]*model.CartItem, error)

	// Delete cart items by IDs scoped to the owning user
	DeleteByIDsForUser(ctx context.Context, userID uint64, ids []uint64) error
}

// cartRepository cart repository implementation
type cartRepository struct {
	db *gorm.DB
}

// NewCartRepository creates a cart repository
func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

// ListByIDsForUser lists cart items by IDs for a user, with SKU and
// product loaded. Rows belonging to other users are silently excluded,
// the caller compares counts to detect foreign references.
func (r *cartRepository) ListByIDsForUser(ctx context.Context, userID uint64, ids []uint64) ([]*model.CartItem, error) {
	var items []*model.CartItem

	if len(ids) == 0 {
		return items, nil
	}

	err := r.db.WithContext(ctx).
		Preload("SKU").
		Preload("SKU.Product").
		Where("id IN ?", ids).
		Where("user_id = ?", userID).
		Find(&items).Error

	return items, err
}

// DeleteByIDsForUser deletes cart items by IDs for a user
func (r *cartRepository) DeleteByIDsForUser(ctx context.Context, userID uint64, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Where("user_id = ?", userID).
		Delete(&model.CartItem{}).Error
}
