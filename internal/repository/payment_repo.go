package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"marketplace/internal/model"
	"marketplace/pkg/utils"
)

// PaymentRepository payment repository interface
type PaymentRepository interface {
	// Create payment
	Create(ctx context.Context, payment *model.Payment) error

	// Get payment by ID with its non-deleted orders
	GetWithOrders(ctx context.Context, id uint64) (*model.Payment, error)

	// Update payment status
	UpdateStatus(ctx context.Context, id uint64, status model.PaymentStatus) error

	// Record an inbound bank transaction, duplicate codes rejected
	CreateTransaction(ctx context.Context, txn *model.PaymentTransaction) error
}

// paymentRepository payment repository implementation
type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a payment repository
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

// Create creates a payment
func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

// GetWithOrders gets a payment by ID with its non-deleted orders
func (r *paymentRepository) GetWithOrders(ctx context.Context, id uint64) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.WithContext(ctx).
		Preload("Orders", "deleted_at IS NULL").
		Where("id = ?", id).
		First(&payment).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrPaymentNotFound
		}
		return nil, err
	}
	return &payment, nil
}

// UpdateStatus updates payment status
func (r *paymentRepository) UpdateStatus(ctx context.Context, id uint64, status model.PaymentStatus) error {
	result := r.db.WithContext(ctx).
		Model(&model.Payment{}).
		Where("id = ?", id).
		Update("status", status)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrPaymentNotFound
	}
	return nil
}

// CreateTransaction records an inbound bank transaction. The unique index
// on code turns webhook re-deliveries into ErrDuplicateTransaction.
func (r *paymentRepository) CreateTransaction(ctx context.Context, txn *model.PaymentTransaction) error {
	err := r.db.WithContext(ctx).Create(txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return utils.ErrDuplicateTransaction
		}
		return err
	}
	return nil
}
