package model

import (
	"time"
)

// CartItem one (user, SKU) selection in a shopping cart. Consumed and
// deleted by checkout in the same transaction that creates the order.
type CartItem struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint64    `gorm:"type:bigint unsigned;not null;uniqueIndex:uk_user_sku" json:"user_id"`
	SKUID     uint64    `gorm:"type:bigint unsigned;not null;uniqueIndex:uk_user_sku" json:"sku_id"`
	Quantity  int       `gorm:"type:int;not null" json:"quantity"`
	CreatedAt time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP" json:"updated_at"`

	SKU *SKU `gorm:"foreignKey:SKUID" json:"sku,omitempty"`
}

// TableName set name
func (CartItem) TableName() string {
	return "cart_items"
}
