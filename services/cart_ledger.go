package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Govind-619/Esdukas/models"
	"github.com/Govind-619/Esdukas/utils"
	"gorm.io/gorm"
)

// MaxItemNameLength bounds a sanitized item name, in runes
const MaxItemNameLength = 120

// CartLedger creates pending carts and flips them to paid
type CartLedger interface {
	CreatePending(ctx context.Context, cart *models.Cart) error
	MarkPaid(ctx context.Context, cartID, transactionID string) error
	Get(ctx context.Context, cartID string) (*models.Cart, error)
}

// GormCartLedger stores carts through gorm
type GormCartLedger struct {
	db *gorm.DB
}

// NewCartLedger returns a CartLedger backed by db
func NewCartLedger(db *gorm.DB) *GormCartLedger {
	return &GormCartLedger{db: db}
}

// CreatePending validates and sanitizes cart, then inserts it unpaid
func (l *GormCartLedger) CreatePending(ctx context.Context, cart *models.Cart) error {
	if err := preparePendingCart(cart); err != nil {
		return err
	}
	if err := l.db.WithContext(ctx).Create(cart).Error; err != nil {
		return fmt.Errorf("insert pending cart %s: %w", cart.CartID, err)
	}
	utils.LogDebug("Pending cart %s created for %s %s", cart.CartID, cart.Currency, cart.TotalAmount.StringFixed(2))
	return nil
}

// MarkPaid sets the transaction id and paid flag. Repeating it with the same
// transaction id is a no-op; a different id is rejected.
func (l *GormCartLedger) MarkPaid(ctx context.Context, cartID, transactionID string) error {
	if cartID == "" || transactionID == "" {
		return errors.New("cart id and transaction id are required")
	}

	result := l.db.WithContext(ctx).Model(&models.Cart{}).
		Where("cart_id = ? AND (transaction_id IS NULL OR transaction_id = ?)", cartID, transactionID).
		Updates(map[string]interface{}{
			"transaction_id": transactionID,
			"paid":           true,
			"updated_at":     time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("mark cart %s paid: %w", cartID, result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	cart, err := l.Get(ctx, cartID)
	if err != nil {
		return err
	}
	stored := ""
	if cart.TransactionID != nil {
		stored = *cart.TransactionID
	}
	if stored == transactionID {
		return nil
	}
	return integrityError(cartID, stored, transactionID)
}

// Get loads a cart by id
func (l *GormCartLedger) Get(ctx context.Context, cartID string) (*models.Cart, error) {
	var cart models.Cart
	err := l.db.WithContext(ctx).Where("cart_id = ?", cartID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrCartNotFound, cartID)
	}
	if err != nil {
		return nil, fmt.Errorf("load cart %s: %w", cartID, err)
	}
	return &cart, nil
}

func preparePendingCart(cart *models.Cart) error {
	var fields utils.FieldValidationErrors
	if cart.CartID == "" {
		fields.Add("cartId", "cart id is required")
	}
	if !cart.TotalAmount.IsPositive() {
		fields.Add("amount", "amount must be greater than zero")
	}
	cart.Currency = strings.ToUpper(strings.TrimSpace(cart.Currency))
	if cart.Currency == "" {
		fields.Add("currency", "currency is required")
	}
	for i := range cart.Items {
		item := &cart.Items[i]
		item.Name = utils.TruncateRunes(utils.SanitizeString(item.Name), MaxItemNameLength)
		if item.Quantity == 0 {
			item.Quantity = 1
		}
		if item.Quantity < 0 {
			fields.Add(fmt.Sprintf("items[%d].quantity", i), "quantity must be positive")
		}
		if item.UnitPrice.IsNegative() {
			fields.Add(fmt.Sprintf("items[%d].price", i), "price must not be negative")
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	if cart.Items == nil {
		cart.Items = models.CartItems{}
	}
	cart.Paid = false
	cart.TransactionID = nil
	return nil
}
