package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"marketplace/internal/model"
	"marketplace/pkg/utils"
)

// OrderRepository order repository interface
type OrderRepository interface {
	// Create order with its item snapshots
	Create(ctx context.Context, order *model.Order) error

	// Get a non-deleted order by ID
	GetActiveByID(ctx context.Context, id uint64) (*model.Order, error)

	// Update order status and the acting user
	UpdateStatus(ctx context.Context, id uint64, status model.OrderStatus, updatedBy uint64) error

	// List non-deleted orders sharing a payment
	ListByPaymentID(ctx context.Context, paymentID uint64) ([]*model.Order, error)

	// Move every non-deleted order of a payment to a new status
	UpdateStatusByPaymentID(ctx context.Context, paymentID uint64, status model.OrderStatus) (int64, error)

	// List orders placed by a buyer
	ListUserOrders(ctx context.Context, userID uint64, status model.OrderStatus, page, pageSize int) ([]*model.Order, int64, error)

	// List orders received by a shop
	ListShopOrders(ctx context.Context, shopID uint64, status model.OrderStatus, page, pageSize int) ([]*model.Order, int64, error)

	// Sum of delivered order totals for a shop
	SumShopRevenue(ctx context.Context, shopID uint64) (int64, error)
}

// orderRepository order repository implementation
type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates an order repository
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

// Create creates an order together with its item snapshots
func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// GetActiveByID gets a non-deleted order by ID with items and payment
func (r *orderRepository) GetActiveByID(ctx context.Context, id uint64) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Payment").
		Where("id = ?", id).
		Where("deleted_at IS NULL").
		First(&order).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// UpdateStatus updates order status and records the acting user
func (r *orderRepository) UpdateStatus(ctx context.Context, id uint64, status model.OrderStatus, updatedBy uint64) error {
	result := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("id = ?", id).
		Where("deleted_at IS NULL").
		Updates(map[string]interface{}{
			"status":        status,
			"updated_by_id": updatedBy,
			"updated_at":    time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrOrderNotFound
	}
	return nil
}

// ListByPaymentID lists non-deleted orders sharing a payment
func (r *orderRepository) ListByPaymentID(ctx context.Context, paymentID uint64) ([]*model.Order, error) {
	var orders []*model.Order
	err := r.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		Where("deleted_at IS NULL").
		Find(&orders).Error

	return orders, err
}

// UpdateStatusByPaymentID moves every non-deleted order of a payment to a
// new status
func (r *orderRepository) UpdateStatusByPaymentID(ctx context.Context, paymentID uint64, status model.OrderStatus) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("payment_id = ?", paymentID).
		Where("deleted_at IS NULL").
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})

	return result.RowsAffected, result.Error
}

// ListUserOrders lists orders placed by a buyer, newest first
func (r *orderRepository) ListUserOrders(ctx context.Context, userID uint64, status model.OrderStatus, page, pageSize int) ([]*model.Order, int64, error) {
	return r.list(ctx, "user_id", userID, status, page, pageSize)
}

// ListShopOrders lists orders received by a shop, newest first
func (r *orderRepository) ListShopOrders(ctx context.Context, shopID uint64, status model.OrderStatus, page, pageSize int) ([]*model.Order, int64, error) {
	return r.list(ctx, "shop_id", shopID, status, page, pageSize)
}

func (r *orderRepository) list(ctx context.Context, column string, ownerID uint64, status model.OrderStatus, page, pageSize int) ([]*model.Order, int64, error) {
	var orders []*model.Order
	var total int64

	offset := (page - 1) * pageSize

	db := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where(column+" = ?", ownerID).
		Where("deleted_at IS NULL")

	if status != "" {
		db = db.Where("status = ?", status)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Offset(offset).
		Limit(pageSize).
		Order("created_at DESC").
		Preload("Items").
		Find(&orders).Error

	return orders, total, err
}

// SumShopRevenue sums delivered order totals for a shop
func (r *orderRepository) SumShopRevenue(ctx context.Context, shopID uint64) (int64, error) {
	var revenue int64
	err := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Select("COALESCE(SUM(total_price), 0)").
		Where("shop_id = ?", shopID).
		Where("status = ?", model.OrderStatusDelivered).
		Where("deleted_at IS NULL").
		Scan(&revenue).Error

	return revenue, err
}
