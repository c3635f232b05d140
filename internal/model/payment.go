package model

import (
	"time"
)

// PaymentStatus payment status
type PaymentStatus string

// Payment status const
const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusSuccess PaymentStatus = "SUCCESS"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

// Payment one payment aggregating the total due across every order
// created in a single checkout call.
type Payment struct {
	ID        uint64        `gorm:"primaryKey;autoIncrement" json:"id"`
	Status    PaymentStatus `gorm:"type:varchar(10);not null;default:'PENDING';index" json:"status"`
	CreatedAt time.Time     `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time     `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP" json:"updated_at"`

	Orders []Order `gorm:"foreignKey:PaymentID" json:"orders,omitempty"`
}

// TableName set name
func (Payment) TableName() string {
	return "payments"
}

// IsPending check payment is awaiting funds
func (p *Payment) IsPending() bool {
	return p.Status == PaymentStatusPending
}

// PaymentTransaction append-only log of every inbound bank-transfer
// notification. Code carries the provider transaction id; its unique
// index is the idempotency guard for re-delivered webhooks.
type PaymentTransaction struct {
	ID                 uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Gateway            string    `gorm:"type:varchar(100);not null" json:"gateway"`
	TransactionDate    time.Time `gorm:"type:timestamp;not null" json:"transaction_date"`
	AccountNumber      string    `gorm:"type:varchar(100)" json:"account_number"`
	SubAccount         string    `gorm:"type:varchar(100)" json:"sub_account"`
	AmountIn           int64     `gorm:"type:bigint;not null;default:0" json:"amount_in"`
	AmountOut          int64     `gorm:"type:bigint;not null;default:0" json:"amount_out"`
	Accumulated        int64     `gorm:"type:bigint;not null;default:0" json:"accumulated"`
	Code               string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"code"`
	TransactionContent string    `gorm:"type:text" json:"transaction_content"`
	ReferenceNumber    string    `gorm:"type:varchar(100)" json:"reference_number"`
	Body               string    `gorm:"type:text" json:"body"`
	CreatedAt          time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName set name
func (PaymentTransaction) TableName() string {
	return "payment_transactions"
}
