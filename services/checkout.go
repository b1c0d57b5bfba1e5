package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Govind-619/Esdukas/models"
	"github.com/Govind-619/Esdukas/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CheckoutState is a step of one checkout run
type CheckoutState string

const (
	StateCreated             CheckoutState = "CREATED"
	StateCaptureRequested    CheckoutState = "CAPTURE_REQUESTED"
	StateCaptured            CheckoutState = "CAPTURED"
	StateDeclined            CheckoutState = "DECLINED"
	StateUnavailable         CheckoutState = "UNAVAILABLE"
	StateTransactionRecorded CheckoutState = "TRANSACTION_RECORDED"
	StateCartMarkedPaid      CheckoutState = "CART_MARKED_PAID"
	StateNotified            CheckoutState = "NOTIFIED"
	StateNotifySkipped       CheckoutState = "NOTIFY_SKIPPED"
)

// IsTerminal reports whether no further transition can happen
func (s CheckoutState) IsTerminal() bool {
	switch s {
	case StateDeclined, StateUnavailable, StateNotified, StateNotifySkipped:
		return true
	default:
		return false
	}
}

// Notification values reported on a CheckoutResult
const (
	NotificationDispatched = "dispatched"
	NotificationSkipped    = "skipped"
)

// DiagnosticPostCapture is the diagnostic type of a ledger failure after capture
const DiagnosticPostCapture = "post-capture-persistence"

// CheckoutItemInput is one raw order line. Price is parsed leniently.
type CheckoutItemInput struct {
	Name     string
	Quantity *int
	Price    string
}

// CheckoutInput is a checkout request as received
type CheckoutInput struct {
	Nonce    string
	Amount   string
	Currency string
	Email    string
	UserID   string
	Method   string
	Items    []CheckoutItemInput
	// Metadata is forwarded to the gateway and recorded on the transaction
	Metadata map[string]string
}

// CheckoutResult is returned for every checkout that captured funds
type CheckoutResult struct {
	CartID        string
	TransactionID string
	Status        string
	Amount        decimal.Decimal
	Currency      string
	State         CheckoutState
	Notification  string
	// ReconciliationPending is set when funds moved but a ledger write failed
	ReconciliationPending bool
}

// OrchestratorDeps are the collaborators of an Orchestrator
type OrchestratorDeps struct {
	Carts           CartLedger
	Transactions    TransactionLedger
	Capture         Capturer
	Merchants       *MerchantResolver
	Notifier        Notifier
	Diagnostics     utils.DiagnosticWriter
	DefaultCurrency string
	StoreName       string
	NotifyTimeout   time.Duration

	// Overridable for tests
	NewCartID func() string
	Now       func() time.Time
	Async     func(func())
}

// Orchestrator sequences a checkout: pending cart, capture, transaction
// record, cart paid, receipt. It holds no state between requests.
type Orchestrator struct {
	carts           CartLedger
	transactions    TransactionLedger
	capture         Capturer
	merchants       *MerchantResolver
	notifier        Notifier
	diagnostics     utils.DiagnosticWriter
	defaultCurrency string
	storeName       string
	notifyTimeout   time.Duration
	newCartID       func() string
	now             func() time.Time
	async           func(func())
}

// NewOrchestrator fills unset optional deps with defaults
func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	o := &Orchestrator{
		carts:           deps.Carts,
		transactions:    deps.Transactions,
		capture:         deps.Capture,
		merchants:       deps.Merchants,
		notifier:        deps.Notifier,
		diagnostics:     deps.Diagnostics,
		defaultCurrency: strings.ToUpper(deps.DefaultCurrency),
		storeName:       deps.StoreName,
		notifyTimeout:   deps.NotifyTimeout,
		newCartID:       deps.NewCartID,
		now:             deps.Now,
		async:           deps.Async,
	}
	if o.defaultCurrency == "" && o.merchants != nil {
		o.defaultCurrency = o.merchants.DefaultCurrency()
	}
	if o.defaultCurrency == "" {
		o.defaultCurrency = "USD"
	}
	if o.storeName == "" {
		o.storeName = "Esdukas"
	}
	if o.notifyTimeout <= 0 {
		o.notifyTimeout = 20 * time.Second
	}
	if o.newCartID == nil {
		o.newCartID = func() string { return "cart_" + uuid.New().String() }
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.async == nil {
		o.async = func(fn func()) { go fn() }
	}
	return o
}

// checkoutRun is the working state of one Checkout call
type checkoutRun struct {
	input             CheckoutInput
	state             CheckoutState
	cart              *models.Cart
	metadata          models.Metadata
	merchantAccountID string
	captured          Captured
}

// Checkout runs one checkout to a terminal state. Declines and gateway
// failures are returned as errors carrying the pending cart id. A ledger
// failure after capture is not an error: the result is flagged
// ReconciliationPending.
func (o *Orchestrator) Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error) {
	run := &checkoutRun{input: input, state: StateCreated}

	if err := o.create(ctx, run); err != nil {
		return nil, err
	}
	if err := o.requestCapture(ctx, run); err != nil {
		return nil, err
	}

	// Funds have moved. Ledger writes must not be abandoned because the
	// caller went away.
	persistCtx := context.WithoutCancel(ctx)
	if err := o.recordTransaction(persistCtx, run); err != nil {
		return o.postCaptureFailure(persistCtx, run, err), nil
	}
	if err := o.markCartPaid(persistCtx, run); err != nil {
		return o.postCaptureFailure(persistCtx, run, err), nil
	}

	result := run.result()
	o.dispatchNotification(ctx, run, result)
	return result, nil
}

// create validates input and persists the pending cart
func (o *Orchestrator) create(ctx context.Context, run *checkoutRun) error {
	if run.state != StateCreated {
		return ErrIllegalTransition
	}
	cart, metadata, err := o.buildCart(run.input)
	if err != nil {
		return err
	}
	if err := o.carts.CreatePending(ctx, cart); err != nil {
		var validation *ValidationError
		if errors.As(err, &validation) {
			return validation
		}
		return fmt.Errorf("create pending cart: %w", err)
	}
	run.cart = cart
	run.metadata = metadata
	return nil
}

// requestCapture resolves the merchant account and charges the nonce once
func (o *Orchestrator) requestCapture(ctx context.Context, run *checkoutRun) error {
	if run.state != StateCreated || run.cart == nil {
		return ErrIllegalTransition
	}
	run.state = StateCaptureRequested
	run.merchantAccountID = o.merchants.Resolve(run.cart.Currency)

	outcome := o.capture.Capture(ctx, CaptureRequest{
		Amount:            run.cart.TotalAmount,
		Currency:          run.cart.Currency,
		Nonce:             run.input.Nonce,
		MerchantAccountID: run.merchantAccountID,
		Metadata:          run.metadata,
	})

	switch out := outcome.(type) {
	case Captured:
		run.state = StateCaptured
		run.captured = out
		utils.LogInfo("Captured %s %s for cart %s as transaction %s",
			run.cart.Currency, run.cart.TotalAmount.StringFixed(2), run.cart.CartID, out.TransactionID)
		return nil
	case Declined:
		run.state = StateDeclined
		utils.LogInfo("Payment declined for cart %s: %s", run.cart.CartID, out.Message)
		return &GatewayDeclinedError{CartID: run.cart.CartID, Message: out.Message}
	case Unavailable:
		run.state = StateUnavailable
		utils.LogError("Payment gateway unavailable for cart %s: %v", run.cart.CartID, out.Cause)
		return &GatewayUnavailableError{CartID: run.cart.CartID, Cause: out.Cause}
	default:
		run.state = StateUnavailable
		return &GatewayUnavailableError{CartID: run.cart.CartID, Cause: fmt.Errorf("unexpected capture outcome %T", outcome)}
	}
}

// recordTransaction appends the settlement record before the cart is touched
func (o *Orchestrator) recordTransaction(ctx context.Context, run *checkoutRun) error {
	if run.state != StateCaptured {
		return ErrIllegalTransition
	}
	method := run.input.Method
	if method == "" {
		method = run.captured.Method
	}
	if method == "" {
		method = models.MethodCard
	}
	cartID := run.cart.CartID

	inserted, err := o.transactions.Append(ctx, &models.Transaction{
		TransactionID: run.captured.TransactionID,
		Amount:        run.cart.TotalAmount,
		Currency:      run.cart.Currency,
		Method:        method,
		Email:         run.cart.Email,
		Metadata:      run.metadata,
		CartID:        &cartID,
		Status:        run.captured.Status,
		Source:        models.SourceCheckout,
		CreatedAt:     o.now(),
	})
	if err != nil {
		return err
	}
	if !inserted {
		utils.LogWarn("Transaction %s was already recorded", run.captured.TransactionID)
	}
	run.state = StateTransactionRecorded
	return nil
}

// markCartPaid flips the pending cart to paid
func (o *Orchestrator) markCartPaid(ctx context.Context, run *checkoutRun) error {
	if run.state != StateTransactionRecorded {
		return ErrIllegalTransition
	}
	if err := o.carts.MarkPaid(ctx, run.cart.CartID, run.captured.TransactionID); err != nil {
		return err
	}
	run.state = StateCartMarkedPaid
	return nil
}

// dispatchNotification sends the receipt off the response path
func (o *Orchestrator) dispatchNotification(ctx context.Context, run *checkoutRun, result *CheckoutResult) {
	if run.state != StateCartMarkedPaid {
		return
	}
	if o.notifier == nil || run.cart.Email == "" {
		run.state = StateNotifySkipped
		result.State = run.state
		result.Notification = NotificationSkipped
		return
	}

	receipt := Receipt{
		Email:         run.cart.Email,
		StoreName:     o.storeName,
		TransactionID: run.captured.TransactionID,
		CartID:        run.cart.CartID,
		Status:        run.captured.Status,
		Amount:        run.cart.TotalAmount,
		Currency:      run.cart.Currency,
		Items:         append([]models.CartItem(nil), run.cart.Items...),
		PaidAt:        o.now(),
	}
	run.state = StateNotified
	result.State = run.state
	result.Notification = NotificationDispatched

	notifyCtx := context.WithoutCancel(ctx)
	o.async(func() {
		defer func() {
			if r := recover(); r != nil {
				utils.LogError("Receipt notification for %s panicked: %v", receipt.TransactionID, r)
			}
		}()
		ctx, cancel := context.WithTimeout(notifyCtx, o.notifyTimeout)
		defer cancel()
		if err := o.notifier.NotifyReceipt(ctx, receipt); err != nil {
			utils.LogError("Failed to send receipt for transaction %s: %v", receipt.TransactionID, err)
		}
	})
}

// postCaptureFailure reports money captured with a stale ledger. The result
// still carries the transaction so the caller can show it.
func (o *Orchestrator) postCaptureFailure(ctx context.Context, run *checkoutRun, err error) *CheckoutResult {
	failure := &PostCapturePersistenceError{
		CartID:        run.cart.CartID,
		TransactionID: run.captured.TransactionID,
		Amount:        run.cart.TotalAmount,
		Currency:      run.cart.Currency,
		Step:          run.state,
		Err:           err,
	}
	utils.LogCritical("Payment captured but ledger is stale",
		zap.String("cartId", failure.CartID),
		zap.String("transactionId", failure.TransactionID),
		zap.String("amount", failure.Amount.StringFixed(2)),
		zap.String("currency", failure.Currency),
		zap.String("step", string(failure.Step)),
		zap.Error(err),
	)
	if o.diagnostics != nil {
		entry := &models.DiagnosticLog{
			Type:    DiagnosticPostCapture,
			Message: failure.Error(),
			Path:    "checkout",
		}
		if werr := o.diagnostics.WriteDiagnostic(ctx, entry); werr != nil {
			utils.LogError("Failed to persist diagnostic for cart %s: %v", failure.CartID, werr)
		}
	}

	result := run.result()
	result.ReconciliationPending = true
	result.Notification = NotificationSkipped
	return result
}

func (run *checkoutRun) result() *CheckoutResult {
	return &CheckoutResult{
		CartID:        run.cart.CartID,
		TransactionID: run.captured.TransactionID,
		Status:        run.captured.Status,
		Amount:        run.cart.TotalAmount,
		Currency:      run.cart.Currency,
		State:         run.state,
	}
}

// buildCart validates input into a pending cart and the metadata forwarded
// to the gateway.
func (o *Orchestrator) buildCart(input CheckoutInput) (*models.Cart, models.Metadata, error) {
	var fields utils.FieldValidationErrors

	if strings.TrimSpace(input.Nonce) == "" {
		fields.Add("nonce", "nonce is required")
	}
	amount, err := ParseAmount(input.Amount)
	if err != nil {
		fields.Add("amount", err.Error())
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = o.defaultCurrency
	}
	if !utils.IsCurrencyCode(currency) {
		fields.Add("currency", "currency must be a three letter code")
	}
	email := strings.TrimSpace(input.Email)
	if email != "" && !utils.IsValidEmail(email) {
		fields.Add("email", "email is not a valid address")
	}

	items := make(models.CartItems, 0, len(input.Items))
	for i, raw := range input.Items {
		quantity := 1
		if raw.Quantity != nil && *raw.Quantity != 0 {
			quantity = *raw.Quantity
		}
		if quantity < 0 {
			fields.Add(fmt.Sprintf("items[%d].quantity", i), "quantity must be positive")
		}
		price, err := decimal.NewFromString(strings.TrimSpace(raw.Price))
		if err != nil {
			price = decimal.Zero
		}
		if price.IsNegative() {
			fields.Add(fmt.Sprintf("items[%d].price", i), "price must not be negative")
		}
		items = append(items, models.CartItem{
			Name:      raw.Name,
			Quantity:  quantity,
			UnitPrice: price,
		})
	}

	if len(fields) > 0 {
		return nil, nil, &ValidationError{Fields: fields}
	}

	cartID := o.newCartID()
	metadata := models.Metadata{}
	for k, v := range input.Metadata {
		metadata[k] = v
	}
	metadata[models.MetadataCartID] = cartID

	now := o.now()
	cart := &models.Cart{
		CartID:      cartID,
		Email:       email,
		Items:       items,
		TotalAmount: amount,
		Currency:    currency,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if userID := strings.TrimSpace(input.UserID); userID != "" {
		cart.UserID = &userID
		metadata["userId"] = userID
	}
	return cart, metadata, nil
}
