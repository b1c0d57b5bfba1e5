package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Govind-619/Esdukas/gateway"
	"github.com/Govind-619/Esdukas/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func remoteTransaction(id, cartID string) *gateway.Transaction {
	fields := map[string]string{}
	if cartID != "" {
		fields[models.MetadataCartID] = cartID
	}
	return &gateway.Transaction{
		ID:            id,
		Status:        "captured",
		Amount:        decimal.RequireFromString("10.00"),
		Currency:      "USD",
		Method:        "paypal",
		CustomerEmail: "a@b.com",
		CustomFields:  fields,
	}
}

func newTestReconciler(t *testing.T, gw *MockGateway) (*Reconciler, CartLedger, TransactionLedger) {
	t.Helper()
	db := newTestDB(t)
	carts := NewCartLedger(db)
	transactions := NewTransactionLedger(db)
	return NewReconciler(gw, carts, transactions, 0), carts, transactions
}

func TestReconciler_ByTransactionIDIsIdempotent(t *testing.T) {
	gw := &MockGateway{Transactions: map[string]*gateway.Transaction{"X": remoteTransaction("X", "")}}
	reconciler, _, transactions := newTestReconciler(t, gw)
	ctx := context.Background()

	first, err := reconciler.ByTransactionID(ctx, "X")
	require.NoError(t, err)
	assert.True(t, first.Inserted)
	assert.Equal(t, models.SourceReconciliation, first.Transaction.Source)
	assert.Equal(t, "paypal", first.Transaction.Method)
	assert.Equal(t, "a@b.com", first.Transaction.Email)

	second, err := reconciler.ByTransactionID(ctx, "X")
	require.NoError(t, err)
	assert.False(t, second.Inserted)

	txns, err := transactions.ListSince(ctx, time.Time{})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "X", txns[0].TransactionID)
}

func TestReconciler_ConcurrentCallsInsertOnce(t *testing.T) {
	gw := &MockGateway{Transactions: map[string]*gateway.Transaction{"X": remoteTransaction("X", "")}}
	reconciler, _, transactions := newTestReconciler(t, gw)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := reconciler.ByTransactionID(ctx, "X")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	txns, err := transactions.ListSince(ctx, time.Time{})
	require.NoError(t, err)
	assert.Len(t, txns, 1)
}

func TestReconciler_ExistingRecordIsNotTouched(t *testing.T) {
	gw := &MockGateway{Transactions: map[string]*gateway.Transaction{"X": remoteTransaction("X", "")}}
	reconciler, _, transactions := newTestReconciler(t, gw)
	ctx := context.Background()

	_, err := transactions.Append(ctx, &models.Transaction{
		TransactionID: "X",
		Amount:        decimal.RequireFromString("10.00"),
		Currency:      "USD",
		Method:        models.MethodCard,
		Status:        "authorized",
	})
	require.NoError(t, err)

	res, err := reconciler.ByTransactionID(ctx, "X")
	require.NoError(t, err)
	assert.False(t, res.Inserted)
	assert.Equal(t, "authorized", res.Transaction.Status)
	assert.Equal(t, "captured", res.Gateway.Status)
}

func TestReconciler_UnknownTransaction(t *testing.T) {
	reconciler, _, _ := newTestReconciler(t, &MockGateway{})
	_, err := reconciler.ByTransactionID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestReconciler_GatewayFailure(t *testing.T) {
	cause := errors.New("timeout")
	reconciler, _, transactions := newTestReconciler(t, &MockGateway{FindErr: cause})
	_, err := reconciler.ByTransactionID(context.Background(), "X")
	assert.ErrorIs(t, err, cause)

	txns, err := transactions.ListSince(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func TestReconciler_EmptyID(t *testing.T) {
	reconciler, _, _ := newTestReconciler(t, &MockGateway{})
	_, err := reconciler.ByTransactionID(context.Background(), "  ")
	var validation *ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestReconciler_RepairCartFromGatewayNotes(t *testing.T) {
	gw := &MockGateway{Transactions: map[string]*gateway.Transaction{"X": remoteTransaction("X", "cart_1")}}
	reconciler, carts, _ := newTestReconciler(t, gw)
	ctx := context.Background()
	require.NoError(t, carts.CreatePending(ctx, pendingCart("cart_1")))

	res, err := reconciler.RepairCart(ctx, "X", "")
	require.NoError(t, err)
	assert.True(t, res.Inserted)
	assert.True(t, res.CartRepaired)

	cart, err := carts.Get(ctx, "cart_1")
	require.NoError(t, err)
	assert.True(t, cart.Paid)
	assert.Equal(t, "X", *cart.TransactionID)

	again, err := reconciler.RepairCart(ctx, "X", "")
	require.NoError(t, err)
	assert.False(t, again.CartRepaired)
}

func TestReconciler_RepairCartWithOperatorHint(t *testing.T) {
	gw := &MockGateway{Transactions: map[string]*gateway.Transaction{"X": remoteTransaction("X", "")}}
	reconciler, carts, transactions := newTestReconciler(t, gw)
	ctx := context.Background()
	require.NoError(t, carts.CreatePending(ctx, pendingCart("cart_1")))

	res, err := reconciler.RepairCart(ctx, "X", "cart_1")
	require.NoError(t, err)
	assert.True(t, res.CartRepaired)

	txn, err := transactions.FindByTransactionID(ctx, "X")
	require.NoError(t, err)
	require.NotNil(t, txn.CartID)
	assert.Equal(t, "cart_1", *txn.CartID)
}

func TestReconciler_RepairCartRejectsMismatchedAmount(t *testing.T) {
	remote := remoteTransaction("X", "")
	remote.Amount = decimal.RequireFromString("99.00")
	gw := &MockGateway{Transactions: map[string]*gateway.Transaction{"X": remote}}
	reconciler, carts, _ := newTestReconciler(t, gw)
	ctx := context.Background()
	require.NoError(t, carts.CreatePending(ctx, pendingCart("cart_1")))

	_, err := reconciler.RepairCart(ctx, "X", "cart_1")
	assert.ErrorIs(t, err, ErrCartIntegrity)

	cart, err := carts.Get(ctx, "cart_1")
	require.NoError(t, err)
	assert.False(t, cart.Paid)
}

func TestReconciler_Sweep(t *testing.T) {
	reconciler, carts, transactions := newTestReconciler(t, &MockGateway{})
	ctx := context.Background()

	require.NoError(t, carts.CreatePending(ctx, pendingCart("cart_stale")))
	require.NoError(t, carts.CreatePending(ctx, pendingCart("cart_open")))

	_, err := transactions.Append(ctx, &models.Transaction{
		TransactionID: "txn_stale",
		Amount:        decimal.RequireFromString("10.00"),
		Currency:      "USD",
		Status:        gateway.StatusCaptured,
		Metadata:      models.Metadata{models.MetadataCartID: "cart_stale"},
	})
	require.NoError(t, err)
	_, err = transactions.Append(ctx, &models.Transaction{
		TransactionID: "txn_open",
		Amount:        decimal.RequireFromString("10.00"),
		Currency:      "USD",
		Status:        gateway.StatusAuthorized,
		Metadata:      models.Metadata{models.MetadataCartID: "cart_open"},
	})
	require.NoError(t, err)

	report, err := reconciler.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Examined)
	assert.Equal(t, 1, report.Repaired)
	assert.Equal(t, 0, report.Failed)

	cart, err := carts.Get(ctx, "cart_stale")
	require.NoError(t, err)
	assert.True(t, cart.Paid)

	cart, err = carts.Get(ctx, "cart_open")
	require.NoError(t, err)
	assert.False(t, cart.Paid)

	report, err = reconciler.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Examined)
}

func TestReconciler_RepairCartRequiresCapture(t *testing.T) {
	for _, status := range []string{gateway.StatusAuthorized, gateway.StatusFailed} {
		t.Run(status, func(t *testing.T) {
			remote := remoteTransaction("X", "cart_1")
			remote.Status = status
			gw := &MockGateway{Transactions: map[string]*gateway.Transaction{"X": remote}}
			reconciler, carts, transactions := newTestReconciler(t, gw)
			ctx := context.Background()
			require.NoError(t, carts.CreatePending(ctx, pendingCart("cart_1")))

			_, err := reconciler.RepairCart(ctx, "X", "")
			assert.ErrorIs(t, err, ErrTransactionNotSettled)

			cart, err := carts.Get(ctx, "cart_1")
			require.NoError(t, err)
			assert.False(t, cart.Paid)

			txns, err := transactions.ListSince(ctx, time.Time{})
			require.NoError(t, err)
			assert.Empty(t, txns)
		})
	}
}

func TestReconciler_RepairCartWithUncapturedLocalRecord(t *testing.T) {
	remote := remoteTransaction("X", "cart_1")
	remote.Status = gateway.StatusAuthorized
	gw := &MockGateway{Transactions: map[string]*gateway.Transaction{"X": remote}}
	reconciler, carts, transactions := newTestReconciler(t, gw)
	ctx := context.Background()
	require.NoError(t, carts.CreatePending(ctx, pendingCart("cart_1")))
	_, err := transactions.Append(ctx, &models.Transaction{
		TransactionID: "X",
		Amount:        decimal.RequireFromString("10.00"),
		Currency:      "USD",
		Status:        gateway.StatusAuthorized,
		Metadata:      models.Metadata{models.MetadataCartID: "cart_1"},
	})
	require.NoError(t, err)

	_, err = reconciler.RepairCart(ctx, "X", "")
	assert.ErrorIs(t, err, ErrTransactionNotSettled)

	cart, err := carts.Get(ctx, "cart_1")
	require.NoError(t, err)
	assert.False(t, cart.Paid)
}

func TestReconciler_CanceledCallerDoesNotCancelSharedFetch(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	var mu sync.Mutex
	var seen []error

	gw := &MockGateway{Transactions: map[string]*gateway.Transaction{"X": remoteTransaction("X", "")}}
	gw.OnFind = func(ctx context.Context) {
		once.Do(func() { close(started) })
		<-release
		mu.Lock()
		seen = append(seen, ctx.Err())
		mu.Unlock()
	}
	reconciler, _, transactions := newTestReconciler(t, gw)

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := reconciler.ByTransactionID(ctx, "X")
		firstErr <- err
	}()
	<-started
	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	secondErr := make(chan error, 1)
	go func() {
		_, err := reconciler.ByTransactionID(context.Background(), "X")
		secondErr <- err
	}()
	close(release)
	require.NoError(t, <-secondErr)

	mu.Lock()
	for _, err := range seen {
		assert.NoError(t, err)
	}
	mu.Unlock()

	require.Eventually(t, func() bool {
		txns, err := transactions.ListSince(context.Background(), time.Time{})
		return err == nil && len(txns) == 1
	}, time.Second, 10*time.Millisecond)
}
