package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Govind-619/Esdukas/gateway"
	"github.com/Govind-619/Esdukas/models"
	"github.com/Govind-619/Esdukas/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultSweepBatch caps how many stranded transactions one sweep repairs
const DefaultSweepBatch = 100

// ReconcileResult describes one reconciliation
type ReconcileResult struct {
	Transaction  *models.Transaction
	Gateway      *gateway.Transaction
	Inserted     bool
	CartRepaired bool
}

// SweepReport summarizes one Sweep
type SweepReport struct {
	Examined int
	Repaired int
	Failed   int
}

// Reconciler restores the ledger from the gateway, which is the source of
// truth for settlement.
type Reconciler struct {
	gateway      gateway.Client
	carts        CartLedger
	transactions TransactionLedger
	sweepBatch   int
	group        singleflight.Group
}

// NewReconciler returns a Reconciler. sweepBatch <= 0 uses DefaultSweepBatch.
func NewReconciler(client gateway.Client, carts CartLedger, transactions TransactionLedger, sweepBatch int) *Reconciler {
	if sweepBatch <= 0 {
		sweepBatch = DefaultSweepBatch
	}
	return &Reconciler{
		gateway:      client,
		carts:        carts,
		transactions: transactions,
		sweepBatch:   sweepBatch,
	}
}

// ByTransactionID fetches the gateway record for id and inserts a local
// transaction if none exists and the payment is captured. Safe to repeat;
// concurrent calls for the same id share one execution.
func (r *Reconciler) ByTransactionID(ctx context.Context, transactionID string) (*ReconcileResult, error) {
	return r.byTransactionID(ctx, transactionID, "")
}

// RepairCart reconciles transactionID and marks its cart paid. cartID is
// used when the gateway record does not name the cart.
func (r *Reconciler) RepairCart(ctx context.Context, transactionID, cartID string) (*ReconcileResult, error) {
	res, err := r.byTransactionID(ctx, transactionID, strings.TrimSpace(cartID))
	if err != nil {
		return nil, err
	}
	// A local record may predate the capture; the gateway decides
	if res.Gateway.Status != gateway.StatusCaptured {
		return res, fmt.Errorf("%w: %s is %s", ErrTransactionNotSettled, res.Transaction.TransactionID, res.Gateway.Status)
	}

	target := strings.TrimSpace(cartID)
	if target == "" && res.Transaction.CartID != nil {
		target = *res.Transaction.CartID
	}
	if target == "" {
		utils.LogWarn("Transaction %s names no cart, nothing to repair", transactionID)
		return res, nil
	}

	cart, err := r.carts.Get(ctx, target)
	if err != nil {
		return res, err
	}
	if cart.Paid && cart.TransactionID != nil && *cart.TransactionID == res.Transaction.TransactionID {
		return res, nil
	}
	if !cart.TotalAmount.Equal(res.Transaction.Amount) || !strings.EqualFold(cart.Currency, res.Transaction.Currency) {
		return res, fmt.Errorf("%w: cart %s totals %s %s, transaction %s is %s %s", ErrCartIntegrity,
			cart.CartID, cart.Currency, cart.TotalAmount.StringFixed(2),
			res.Transaction.TransactionID, res.Transaction.Currency, res.Transaction.Amount.StringFixed(2))
	}
	if err := r.carts.MarkPaid(ctx, cart.CartID, res.Transaction.TransactionID); err != nil {
		return res, err
	}
	res.CartRepaired = true
	utils.LogInfo("Cart %s repaired with transaction %s", cart.CartID, res.Transaction.TransactionID)
	return res, nil
}

// Sweep marks paid every unpaid cart that already has a recorded captured
// transaction. The local record is the evidence; the gateway is not called.
func (r *Reconciler) Sweep(ctx context.Context) (SweepReport, error) {
	var report SweepReport
	stranded, err := r.transactions.ListStranded(ctx, r.sweepBatch)
	if err != nil {
		return report, err
	}
	for _, txn := range stranded {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		if txn.CartID == nil {
			continue
		}
		report.Examined++
		err := r.carts.MarkPaid(ctx, *txn.CartID, txn.TransactionID)
		switch {
		case err == nil:
			report.Repaired++
			utils.LogInfo("Sweep marked cart %s paid with transaction %s", *txn.CartID, txn.TransactionID)
		case errors.Is(err, ErrCartIntegrity):
			report.Failed++
			utils.LogCritical("Sweep found conflicting transaction for cart",
				zap.String("cartId", *txn.CartID),
				zap.String("transactionId", txn.TransactionID),
				zap.String("amount", txn.Amount.StringFixed(2)),
				zap.Error(err),
			)
		default:
			report.Failed++
			utils.LogError("Sweep failed to mark cart %s paid: %v", *txn.CartID, err)
		}
	}
	return report, nil
}

func (r *Reconciler) byTransactionID(ctx context.Context, transactionID, cartHint string) (*ReconcileResult, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return nil, newValidationError("transactionId", "transaction id is required")
	}

	// The shared call outlives any single caller; each caller still stops
	// waiting when its own ctx is done.
	ch := r.group.DoChan(transactionID, func() (interface{}, error) {
		return r.reconcile(context.WithoutCancel(ctx), transactionID, cartHint)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case out := <-ch:
		if out.Err != nil {
			return nil, out.Err
		}
		res := *out.Val.(*ReconcileResult)
		return &res, nil
	}
}

func (r *Reconciler) reconcile(ctx context.Context, transactionID, cartHint string) (*ReconcileResult, error) {
	remote, err := r.gateway.FindTransaction(ctx, transactionID)
	if errors.Is(err, gateway.ErrTransactionNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, transactionID)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch transaction %s from gateway: %w", transactionID, err)
	}

	existing, err := r.transactions.FindByTransactionID(ctx, transactionID)
	if err == nil {
		return &ReconcileResult{Transaction: existing, Gateway: remote}, nil
	}
	if !errors.Is(err, ErrTransactionNotFound) {
		return nil, err
	}
	if remote.Status != gateway.StatusCaptured {
		return nil, fmt.Errorf("%w: %s is %s", ErrTransactionNotSettled, transactionID, remote.Status)
	}

	txn := synthesizeTransaction(remote, cartHint)
	inserted, err := r.transactions.Append(ctx, txn)
	if err != nil {
		return nil, err
	}
	if !inserted {
		// Another writer won the insert.
		if txn, err = r.transactions.FindByTransactionID(ctx, transactionID); err != nil {
			return nil, err
		}
	} else {
		utils.LogInfo("Reconciliation recorded missing transaction %s", transactionID)
	}
	return &ReconcileResult{Transaction: txn, Gateway: remote, Inserted: inserted}, nil
}

func synthesizeTransaction(remote *gateway.Transaction, cartHint string) *models.Transaction {
	metadata := models.Metadata{}
	for k, v := range remote.CustomFields {
		metadata[k] = v
	}
	if metadata[models.MetadataCartID] == "" && cartHint != "" {
		metadata[models.MetadataCartID] = cartHint
	}
	method := remote.Method
	if method == "" {
		method = models.MethodCard
	}
	return &models.Transaction{
		TransactionID: remote.ID,
		Amount:        remote.Amount,
		Currency:      remote.Currency,
		Method:        method,
		Email:         remote.CustomerEmail,
		Metadata:      metadata,
		Status:        remote.Status,
		Source:        models.SourceReconciliation,
	}
}
