package model

import (
	"time"
)

// Product catalog product owned by a shop
type Product struct {
	ID           uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ShopID       uint64     `gorm:"type:bigint unsigned;not null;index" json:"shop_id"`
	Name         string     `gorm:"type:varchar(200);not null" json:"name"`
	Translations string     `gorm:"type:text" json:"translations"`
	CreatedAt    time.Time  `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt    *time.Time `gorm:"type:timestamp;index" json:"deleted_at,omitempty"`
}

// TableName set name
func (Product) TableName() string {
	return "products"
}

// IsDeleted check product is soft-deleted
func (p *Product) IsDeleted() bool {
	return p.DeletedAt != nil
}

// SKU purchasable variant of a product, carries its own price and stock.
// UpdatedAt doubles as the optimistic-concurrency fingerprint for stock
// mutations: decrements are guarded by the last-read value.
type SKU struct {
	ID        uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID uint64     `gorm:"type:bigint unsigned;not null;index" json:"product_id"`
	Value     string     `gorm:"type:varchar(200)" json:"value"`
	Image     string     `gorm:"type:varchar(255)" json:"image"`
	Price     int64      `gorm:"type:bigint;not null" json:"price"`
	Stock     int        `gorm:"type:int;not null;default:0" json:"stock"`
	CreatedAt time.Time  `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time  `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt *time.Time `gorm:"type:timestamp;index" json:"deleted_at,omitempty"`

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// TableName set name
func (SKU) TableName() string {
	return "skus"
}

// IsDeleted check SKU is soft-deleted
func (s *SKU) IsDeleted() bool {
	return s.DeletedAt != nil
}

// HasStock check the SKU can cover the requested quantity
func (s *SKU) HasStock(quantity int) bool {
	return s.Stock >= quantity
}

// GetPriceYuan get price in currency units
func (s *SKU) GetPriceYuan() float64 {
	return float64(s.Price) / 100
}
