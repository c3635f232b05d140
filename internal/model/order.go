package model

import (
	"time"
)

// OrderStatus order lifecycle status
type OrderStatus string

// Order status const
const (
	OrderStatusPendingPayment  OrderStatus = "PENDING_PAYMENT"
	OrderStatusPendingPickup   OrderStatus = "PENDING_PICKUP"
	OrderStatusPendingDelivery OrderStatus = "PENDING_DELIVERY"
	OrderStatusDelivered       OrderStatus = "DELIVERED"
	OrderStatusReturned        OrderStatus = "RETURNED"
	OrderStatusCancelled       OrderStatus = "CANCELLED"
)

// statusTransitions allowed edges of the order state machine.
// CANCELLED and RETURNED are terminal.
var statusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPendingPayment:  {OrderStatusPendingPickup, OrderStatusCancelled},
	OrderStatusPendingPickup:   {OrderStatusPendingDelivery, OrderStatusCancelled},
	OrderStatusPendingDelivery: {OrderStatusDelivered, OrderStatusReturned},
	OrderStatusDelivered:       {OrderStatusReturned},
	OrderStatusReturned:        {},
	OrderStatusCancelled:       {},
}

// IsValidOrderStatus check the status is a known lifecycle state
func IsValidOrderStatus(status OrderStatus) bool {
	_, ok := statusTransitions[status]
	return ok
}

// CanTransition check the edge from -> to exists in the state machine
func CanTransition(from, to OrderStatus) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Order one shop's share of a checkout. Orders created in the same
// checkout call share a Payment.
type Order struct {
	ID              uint64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          uint64      `gorm:"type:bigint unsigned;not null;index" json:"user_id"`
	ShopID          uint64      `gorm:"type:bigint unsigned;not null;index" json:"shop_id"`
	PaymentID       uint64      `gorm:"type:bigint unsigned;not null;index" json:"payment_id"`
	Status          OrderStatus `gorm:"type:varchar(20);not null;default:'PENDING_PAYMENT';index" json:"status"`
	ReceiverName    string      `gorm:"type:varchar(100);not null" json:"receiver_name"`
	ReceiverPhone   string      `gorm:"type:varchar(20);not null" json:"receiver_phone"`
	ReceiverAddress string      `gorm:"type:varchar(500);not null" json:"receiver_address"`
	TotalPrice      int64       `gorm:"type:bigint;not null" json:"total_price"`
	CreatedByID     uint64      `gorm:"type:bigint unsigned;not null" json:"created_by_id"`
	UpdatedByID     *uint64     `gorm:"type:bigint unsigned" json:"updated_by_id,omitempty"`
	CreatedAt       time.Time   `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt       time.Time   `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt       *time.Time  `gorm:"type:timestamp;index" json:"deleted_at,omitempty"`

	Items   []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	Payment *Payment    `gorm:"foreignKey:PaymentID" json:"payment,omitempty"`
}

// TableName set name
func (Order) TableName() string {
	return "orders"
}

// OrderItem frozen snapshot of one purchased line. Written once with the
// order; later catalog edits never alter it.
type OrderItem struct {
	ID                  uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID             uint64    `gorm:"type:bigint unsigned;not null;index" json:"order_id"`
	SKUID               uint64    `gorm:"type:bigint unsigned;not null;index" json:"sku_id"`
	ProductID           uint64    `gorm:"type:bigint unsigned;not null" json:"product_id"`
	ProductName         string    `gorm:"type:varchar(200);not null" json:"product_name"`
	SKUPrice            int64     `gorm:"type:bigint;not null" json:"sku_price"`
	SKUValue            string    `gorm:"type:varchar(200)" json:"sku_value"`
	Image               string    `gorm:"type:varchar(255)" json:"image"`
	Quantity            int       `gorm:"type:int;not null" json:"quantity"`
	ProductTranslations string    `gorm:"type:text" json:"product_translations"`
	CreatedAt           time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName set name
func (OrderItem) TableName() string {
	return "order_items"
}

// IsDeleted check order is soft-deleted
func (o *Order) IsDeleted() bool {
	return o.DeletedAt != nil
}

// IsPendingPayment check order is awaiting payment
func (o *Order) IsPendingPayment() bool {
	return o.Status == OrderStatusPendingPayment
}

// CanCancel manual cancellation is allowed before the shop hands the
// parcel to delivery
func (o *Order) CanCancel() bool {
	return o.Status == OrderStatusPendingPayment || o.Status == OrderStatusPendingPickup
}

// CanBeSeenBy buyer and shop owner may read the order
func (o *Order) CanBeSeenBy(userID uint64) bool {
	return o.UserID == userID || o.ShopID == userID
}

// Amount line subtotal
func (i *OrderItem) Amount() int64 {
	return i.SKUPrice * int64(i.Quantity)
}

// GetTotalPriceYuan get total in currency units
func (o *Order) GetTotalPriceYuan() float64 {
	return float64(o.TotalPrice) / 100
}
