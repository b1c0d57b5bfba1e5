package services

import (
	"context"
	"errors"
	"time"

	"github.com/Govind-619/Esdukas/gateway"
	"github.com/shopspring/decimal"
)

// CaptureRequest is one capture attempt against a single-use nonce
type CaptureRequest struct {
	Amount            decimal.Decimal
	Currency          string
	Nonce             string
	MerchantAccountID string
	Metadata          map[string]string
}

// CaptureOutcome is one of Captured, Declined or Unavailable
type CaptureOutcome interface {
	captureOutcome()
}

// Captured means funds moved
type Captured struct {
	TransactionID string
	Status        string
	Method        string
	Email         string
}

// Declined is a business refusal; nothing was charged
type Declined struct {
	Message string
}

// Unavailable means the outcome is unknown: the charge may or may not have
// happened.
type Unavailable struct {
	Cause error
}

func (Captured) captureOutcome()    {}
func (Declined) captureOutcome()    {}
func (Unavailable) captureOutcome() {}

// Capturer is the capture step as seen by the orchestrator
type Capturer interface {
	Capture(ctx context.Context, req CaptureRequest) CaptureOutcome
	Authorize(ctx context.Context, req CaptureRequest) CaptureOutcome
}

// CaptureAdapter wraps gateway sales. It never retries: a nonce may only be
// charged once.
type CaptureAdapter struct {
	gateway gateway.Client
	timeout time.Duration
}

// NewCaptureAdapter bounds every gateway call by timeout when it is positive
func NewCaptureAdapter(client gateway.Client, timeout time.Duration) *CaptureAdapter {
	return &CaptureAdapter{gateway: client, timeout: timeout}
}

// Capture charges and settles the instrument
func (a *CaptureAdapter) Capture(ctx context.Context, req CaptureRequest) CaptureOutcome {
	return a.sale(ctx, req, true)
}

// Authorize verifies the instrument for the amount without settling
func (a *CaptureAdapter) Authorize(ctx context.Context, req CaptureRequest) CaptureOutcome {
	return a.sale(ctx, req, false)
}

func (a *CaptureAdapter) sale(ctx context.Context, req CaptureRequest, settle bool) CaptureOutcome {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	txn, err := a.gateway.Sale(ctx, gateway.SaleRequest{
		Amount:              req.Amount,
		Currency:            req.Currency,
		Nonce:               req.Nonce,
		MerchantAccountID:   req.MerchantAccountID,
		SubmitForSettlement: settle,
		CustomFields:        req.Metadata,
	})
	if err != nil {
		if declined, ok := gateway.AsDeclined(err); ok {
			return Declined{Message: declined.Message}
		}
		return Unavailable{Cause: err}
	}
	if txn == nil || txn.ID == "" {
		return Unavailable{Cause: errors.New("gateway returned no transaction")}
	}
	return Captured{
		TransactionID: txn.ID,
		Status:        txn.Status,
		Method:        txn.Method,
		Email:         txn.CustomerEmail,
	}
}
