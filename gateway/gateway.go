// Package gateway defines the payment gateway collaborator and its Razorpay
// implementation.
package gateway

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrTransactionNotFound is returned when the gateway has no record of an id
var ErrTransactionNotFound = errors.New("transaction not found")

// DeclinedError is a business refusal from the gateway. Any other error
// returned by a Client means the outcome is unknown.
type DeclinedError struct {
	Message string
}

func (e *DeclinedError) Error() string {
	return "payment declined: " + e.Message
}

// AsDeclined returns the DeclinedError wrapped by err, if any
func AsDeclined(err error) (*DeclinedError, bool) {
	var declined *DeclinedError
	if errors.As(err, &declined) {
		return declined, true
	}
	return nil, false
}

// SaleRequest charges or authorizes a client-tokenized instrument
type SaleRequest struct {
	Amount            decimal.Decimal
	Currency          string
	Nonce             string
	MerchantAccountID string
	// SubmitForSettlement captures the funds; false only authorizes.
	SubmitForSettlement bool
	CustomFields        map[string]string
}

// Transaction is the gateway's view of a payment
type Transaction struct {
	ID            string
	Status        string
	Amount        decimal.Decimal
	Currency      string
	Method        string
	CustomerEmail string
	CustomerID    string
	TokenID       string
	CustomFields  map[string]string
}

// ClientTokenRequest opens a client-side payment session
type ClientTokenRequest struct {
	Amount            decimal.Decimal
	Currency          string
	MerchantAccountID string
}

// Card is raw card data submitted for tokenization
type Card struct {
	Number         string
	ExpiryMonth    string
	ExpiryYear     string
	CVV            string
	CardholderName string
	CustomerID     string
}

// Client is the set of gateway operations the service consumes
type Client interface {
	Sale(ctx context.Context, req SaleRequest) (*Transaction, error)
	FindTransaction(ctx context.Context, id string) (*Transaction, error)
	GenerateClientToken(ctx context.Context, req ClientTokenRequest) (string, error)
	TokenizeCard(ctx context.Context, card Card) (string, error)
	VaultPaymentMethod(ctx context.Context, customerID, nonce string) (string, error)
}
