package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repositories bundles every repository over one database handle so a
// transaction can rebind them to its own *gorm.DB.
type Repositories struct {
	Cart    CartRepository
	SKU     SKURepository
	Order   OrderRepository
	Payment PaymentRepository
}

// NewRepositories creates the repository bundle
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Cart:    NewCartRepository(db),
		SKU:     NewSKURepository(db),
		Order:   NewOrderRepository(db),
		Payment: NewPaymentRepository(db),
	}
}

// TxManager runs a function with all repositories bound to one database
// transaction. An error from fn rolls everything back.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(r *Repositories) error) error
}

// gormTxManager TxManager implementation over gorm
type gormTxManager struct {
	db *gorm.DB
}

// NewTxManager creates a transaction manager
func NewTxManager(db *gorm.DB) TxManager {
	return &gormTxManager{db: db}
}

// WithTransaction runs fn inside a single database transaction
func (m *gormTxManager) WithTransaction(ctx context.Context, fn func(r *Repositories) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}
