package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/Govind-619/Esdukas/config"
	"github.com/Govind-619/Esdukas/gateway"
	"github.com/Govind-619/Esdukas/models"
	"github.com/Govind-619/Esdukas/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// observeErrorLog routes the error logger to an in-memory observer
func observeErrorLog(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	utils.SetLoggers(nil, zap.New(core), nil)
	t.Cleanup(func() { utils.SetLoggers(nil, zap.NewNop(), nil) })
	return logs
}

// MockGateway implements gateway.Client for testing
type MockGateway struct {
	mu           sync.Mutex
	SaleResult   *gateway.Transaction
	SaleErr      error
	SaleRequests []gateway.SaleRequest
	OnSale       func(req gateway.SaleRequest)

	Transactions map[string]*gateway.Transaction
	FindErr      error
	FindCalls    int
	OnFind       func(ctx context.Context)

	ClientToken  string
	PaymentToken string
	VaultToken   string
	Err          error
}

func (m *MockGateway) Sale(_ context.Context, req gateway.SaleRequest) (*gateway.Transaction, error) {
	m.mu.Lock()
	m.SaleRequests = append(m.SaleRequests, req)
	onSale := m.OnSale
	m.mu.Unlock()
	if onSale != nil {
		onSale(req)
	}
	return m.SaleResult, m.SaleErr
}

func (m *MockGateway) FindTransaction(ctx context.Context, id string) (*gateway.Transaction, error) {
	m.mu.Lock()
	onFind := m.OnFind
	m.mu.Unlock()
	if onFind != nil {
		onFind(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FindCalls++
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	txn, ok := m.Transactions[id]
	if !ok {
		return nil, gateway.ErrTransactionNotFound
	}
	return txn, nil
}

func (m *MockGateway) GenerateClientToken(_ context.Context, _ gateway.ClientTokenRequest) (string, error) {
	return m.ClientToken, m.Err
}

func (m *MockGateway) TokenizeCard(_ context.Context, _ gateway.Card) (string, error) {
	return m.PaymentToken, m.Err
}

func (m *MockGateway) VaultPaymentMethod(_ context.Context, _, _ string) (string, error) {
	return m.VaultToken, m.Err
}

// FailingCartLedger wraps a CartLedger and fails MarkPaid
type FailingCartLedger struct {
	CartLedger
	MarkPaidErr error
}

func (f *FailingCartLedger) MarkPaid(ctx context.Context, cartID, transactionID string) error {
	if f.MarkPaidErr != nil {
		return f.MarkPaidErr
	}
	return f.CartLedger.MarkPaid(ctx, cartID, transactionID)
}

// FailingTransactionLedger wraps a TransactionLedger and fails Append
type FailingTransactionLedger struct {
	TransactionLedger
	AppendErr error
}

func (f *FailingTransactionLedger) Append(ctx context.Context, txn *models.Transaction) (bool, error) {
	if f.AppendErr != nil {
		return false, f.AppendErr
	}
	return f.TransactionLedger.Append(ctx, txn)
}

// MockNotifier records receipts
type MockNotifier struct {
	mu       sync.Mutex
	Receipts []Receipt
	Err      error
	Panic    bool
}

func (m *MockNotifier) NotifyReceipt(_ context.Context, receipt Receipt) error {
	m.mu.Lock()
	m.Receipts = append(m.Receipts, receipt)
	m.mu.Unlock()
	if m.Panic {
		panic("mail transport exploded")
	}
	return m.Err
}

// MockDiagnostics records diagnostic entries
type MockDiagnostics struct {
	Entries []*models.DiagnosticLog
	Err     error
}

func (m *MockDiagnostics) WriteDiagnostic(_ context.Context, entry *models.DiagnosticLog) error {
	m.Entries = append(m.Entries, entry)
	return m.Err
}

// MockMailTransport records sent messages
type MockMailTransport struct {
	To          string
	Subject     string
	Body        string
	Attachments []utils.Attachment
	Err         error
}

func (m *MockMailTransport) Send(_ context.Context, to, subject, htmlBody string, attachments ...utils.Attachment) error {
	m.To = to
	m.Subject = subject
	m.Body = htmlBody
	m.Attachments = attachments
	return m.Err
}

func testMerchants(t *testing.T) *MerchantResolver {
	t.Helper()
	resolver, err := NewMerchantResolver(map[string]string{
		"USD": "esdukas",
		"KES": "esdukas_kes",
		"UGX": "esdukas_ugx",
		"EUR": "esdukas_eur",
	}, "USD")
	require.NoError(t, err)
	return resolver
}

func intPtr(v int) *int {
	return &v
}
