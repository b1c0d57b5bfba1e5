package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem is one sanitized line of an order summary
type CartItem struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"price"`
}

// LineTotal returns quantity * unit price
func (i CartItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is the idempotency anchor of one checkout attempt. It is written as
// pending before any capture and flipped to paid exactly once.
type Cart struct {
	CartID        string          `gorm:"primaryKey;size:64" json:"cartId"`
	UserID        *string         `gorm:"size:128;index" json:"userId,omitempty"`
	Email         string          `gorm:"size:254" json:"email,omitempty"`
	Items         CartItems       `gorm:"type:text" json:"items"`
	TotalAmount   decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"totalAmount"`
	Currency      string          `gorm:"size:3;not null" json:"currency"`
	TransactionID *string         `gorm:"size:64;uniqueIndex" json:"transactionId"`
	Paid          bool            `gorm:"not null;default:false;index" json:"paid"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}
