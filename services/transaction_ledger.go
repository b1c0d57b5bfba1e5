package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Govind-619/Esdukas/gateway"
	"github.com/Govind-619/Esdukas/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TransactionLedger appends settlement records. Records are never updated.
type TransactionLedger interface {
	// Append inserts txn unless a record with the same transaction id
	// exists; inserted reports which happened.
	Append(ctx context.Context, txn *models.Transaction) (inserted bool, err error)
	FindByTransactionID(ctx context.Context, transactionID string) (*models.Transaction, error)
	// ListStranded returns captured transactions whose cart is still unpaid
	ListStranded(ctx context.Context, limit int) ([]models.Transaction, error)
	ListSince(ctx context.Context, since time.Time) ([]models.Transaction, error)
}

// GormTransactionLedger stores transactions through gorm
type GormTransactionLedger struct {
	db *gorm.DB
}

// NewTransactionLedger returns a TransactionLedger backed by db
func NewTransactionLedger(db *gorm.DB) *GormTransactionLedger {
	return &GormTransactionLedger{db: db}
}

// Append inserts txn with ON CONFLICT (transaction_id) DO NOTHING
func (l *GormTransactionLedger) Append(ctx context.Context, txn *models.Transaction) (bool, error) {
	if txn.TransactionID == "" {
		return false, errors.New("transaction id is required")
	}
	if txn.Metadata == nil {
		txn.Metadata = models.Metadata{}
	}
	if txn.CartID == nil {
		if cartID := txn.Metadata[models.MetadataCartID]; cartID != "" {
			txn.CartID = &cartID
		}
	}
	if txn.Source == "" {
		txn.Source = models.SourceCheckout
	}

	result := l.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "transaction_id"}},
			DoNothing: true,
		}).
		Create(txn)
	if result.Error != nil {
		return false, fmt.Errorf("append transaction %s: %w", txn.TransactionID, result.Error)
	}
	return result.RowsAffected == 1, nil
}

// FindByTransactionID loads a transaction by its gateway id
func (l *GormTransactionLedger) FindByTransactionID(ctx context.Context, transactionID string) (*models.Transaction, error) {
	var txn models.Transaction
	err := l.db.WithContext(ctx).Where("transaction_id = ?", transactionID).First(&txn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, transactionID)
	}
	if err != nil {
		return nil, fmt.Errorf("load transaction %s: %w", transactionID, err)
	}
	return &txn, nil
}

func (l *GormTransactionLedger) ListStranded(ctx context.Context, limit int) ([]models.Transaction, error) {
	var txns []models.Transaction
	query := l.db.WithContext(ctx).
		Select("transactions.*").
		Joins("JOIN carts ON carts.cart_id = transactions.cart_id").
		Where("carts.paid = ? AND transactions.status = ?", false, gateway.StatusCaptured).
		Order("transactions.created_at")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&txns).Error; err != nil {
		return nil, fmt.Errorf("list stranded transactions: %w", err)
	}
	return txns, nil
}

func (l *GormTransactionLedger) ListSince(ctx context.Context, since time.Time) ([]models.Transaction, error) {
	var txns []models.Transaction
	err := l.db.WithContext(ctx).
		Where("created_at >= ?", since).
		Order("created_at").
		Find(&txns).Error
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txns, nil
}
