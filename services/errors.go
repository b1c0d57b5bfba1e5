package services

import (
	"errors"
	"fmt"

	"github.com/Govind-619/Esdukas/utils"
	"github.com/shopspring/decimal"
)

var (
	ErrCartNotFound        = errors.New("cart not found")
	ErrCartIntegrity       = errors.New("cart is already settled by a different transaction")
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrTransactionNotSettled refuses to record or repair with a payment
	// the gateway has not captured
	ErrTransactionNotSettled = errors.New("transaction is not settled")
	ErrIllegalTransition     = errors.New("illegal transition of checkout state")
)

// ValidationError rejects a request before anything is persisted or charged
type ValidationError struct {
	Fields utils.FieldValidationErrors
}

func (e *ValidationError) Error() string {
	return "invalid request: " + e.Fields.Error()
}

func newValidationError(field, message string) *ValidationError {
	v := &ValidationError{}
	v.Fields.Add(field, message)
	return v
}

// GatewayDeclinedError is a business refusal. The pending cart is kept.
type GatewayDeclinedError struct {
	CartID  string
	Message string
}

func (e *GatewayDeclinedError) Error() string {
	return fmt.Sprintf("payment declined for cart %s: %s", e.CartID, e.Message)
}

// GatewayUnavailableError means the capture outcome is unknown. The pending
// cart is kept and nothing is retried.
type GatewayUnavailableError struct {
	CartID string
	Cause  error
}

func (e *GatewayUnavailableError) Error() string {
	return fmt.Sprintf("payment gateway unavailable for cart %s: %v", e.CartID, e.Cause)
}

func (e *GatewayUnavailableError) Unwrap() error {
	return e.Cause
}

// PostCapturePersistenceError is a ledger write that failed after funds were
// captured.
type PostCapturePersistenceError struct {
	CartID        string
	TransactionID string
	Amount        decimal.Decimal
	Currency      string
	Step          CheckoutState
	Err           error
}

func (e *PostCapturePersistenceError) Error() string {
	return fmt.Sprintf("captured %s %s as %s but failed after %s for cart %s: %v",
		e.Currency, e.Amount.StringFixed(2), e.TransactionID, e.Step, e.CartID, e.Err)
}

func (e *PostCapturePersistenceError) Unwrap() error {
	return e.Err
}

func integrityError(cartID, stored, proposed string) error {
	return fmt.Errorf("%w: cart %s has transaction %s, refusing %s", ErrCartIntegrity, cartID, stored, proposed)
}
