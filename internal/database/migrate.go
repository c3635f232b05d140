package database

import (
	"fmt"

	"gorm.io/gorm"

	"marketplace/internal/model"
	"marketplace/pkg/log"
)

// AutoMigrate auto migrate database table schema
func AutoMigrate(db *gorm.DB) error {
	log.Info("Starting database migration...")

	models := []interface{}{
		&model.Product{},
		&model.SKU{},
		&model.CartItem{},
		&model.Payment{},
		&model.PaymentTransaction{},
		&model.Order{},
		&model.OrderItem{},
	}

	for _, m := range models {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", m, err)
		}
		log.Infof("Migrated model: %T", m)
	}

	log.Info("Database migration completed successfully")
	return nil
}

// CreateIndexes create additional indexes
func CreateIndexes(db *gorm.DB) error {
	log.Info("Creating additional indexes...")

	indexes := []struct {
		table string
		name  string
		sql   string
	}{
		{
			table: "orders",
			name:  "idx_orders_user_status",
			sql:   "CREATE INDEX IF NOT EXISTS idx_orders_user_status ON orders (user_id, status, created_at)",
		},
		{
			table: "orders",
			name:  "idx_orders_shop_status",
			sql:   "CREATE INDEX IF NOT EXISTS idx_orders_shop_status ON orders (shop_id, status, created_at)",
		},
		{
			table: "orders",
			name:  "idx_orders_payment",
			sql:   "CREATE INDEX IF NOT EXISTS idx_orders_payment ON orders (payment_id)",
		},
		{
			table: "order_items",
			name:  "idx_order_items_order",
			sql:   "CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items (order_id)",
		},
	}

	for _, idx := range indexes {
		if err := db.Exec(idx.sql).Error; err != nil {
			log.Warnf("Failed to create index %s on table %s: %v", idx.name, idx.table, err)
		} else {
			log.Infof("Created index: %s on table %s", idx.name, idx.table)
		}
	}

	log.Info("Index creation completed")
	return nil
}
