package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"marketplace/internal/model"
	"marketplace/pkg/utils"
)

// SKURepository SKU repository interface
type SKURepository interface {
	// Get SKU by ID
	GetByID(ctx context.Context, id uint64) (*model.SKU, error)

	// Decrement stock guarded by the last-read fingerprint
	DecrementStock(ctx context.Context, id uint64, quantity int, fingerprint time.Time) error

	// Increment stock back, used when an order is cancelled
	IncrementStock(ctx context.Context, id uint64, quantity int) error
}

// skuRepository SKU repository implementation
type skuRepository struct {
	db *gorm.DB
}

// NewSKURepository creates a SKU repository
func NewSKURepository(db *gorm.DB) SKURepository {
	return &skuRepository{db: db}
}

// GetByID gets a SKU by ID, soft-deleted rows excluded
func (r *skuRepository) GetByID(ctx context.Context, id uint64) (*model.SKU, error) {
	var sku model.SKU
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("id = ?", id).
		Where("deleted_at IS NULL").
		First(&sku).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrSKUNotFound
		}
		return nil, err
	}
	return &sku, nil
}

// DecrementStock decrements stock with a conditional update. The row must
// still carry the fingerprint read earlier and cover the quantity, a zero
// row count means a concurrent writer got there first.
func (r *skuRepository) DecrementStock(ctx context.Context, id uint64, quantity int, fingerprint time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.SKU{}).
		Where("id = ?", id).
		Where("updated_at = ?", fingerprint).
		Where("stock >= ?", quantity).
		Updates(map[string]interface{}{
			"stock":      gorm.Expr("stock - ?", quantity),
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrStockConflict
	}
	return nil
}

// IncrementStock adds quantity back to stock
func (r *skuRepository) IncrementStock(ctx context.Context, id uint64, quantity int) error {
	result := r.db.WithContext(ctx).
		Model(&model.SKU{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"stock":      gorm.Expr("stock + ?", quantity),
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrSKUNotFound
	}
	return nil
}
