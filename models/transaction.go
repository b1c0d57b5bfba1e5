package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment methods recorded on a transaction
const (
	MethodCard   = "card"
	MethodPayPal = "paypal"
)

// Transaction sources
const (
	SourceCheckout       = "checkout"
	SourceReconciliation = "reconciliation"
)

// MetadataCartID is the metadata key linking a transaction to its cart
const MetadataCartID = "cartId"

// Transaction is an immutable settlement record. Rows are only ever inserted.
type Transaction struct {
	ID            uint            `gorm:"primaryKey" json:"-"`
	TransactionID string          `gorm:"size:64;uniqueIndex;not null" json:"transactionId"`
	Amount        decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	Currency      string          `gorm:"size:3;not null" json:"currency"`
	Method        string          `gorm:"size:32" json:"method"`
	Email         string          `gorm:"size:254" json:"email,omitempty"`
	Metadata      Metadata        `gorm:"type:text" json:"metadata"`
	CartID        *string         `gorm:"size:64;index" json:"cartId,omitempty"`
	Status        string          `gorm:"size:32" json:"status"`
	Source        string          `gorm:"size:32;not null;default:checkout" json:"source"`
	CreatedAt     time.Time       `json:"createdAt"`
}
