package gateway

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"sort"
	"strconv"
	"strings"

	"github.com/Govind-619/Esdukas/models"
	"github.com/Govind-619/Esdukas/utils"
	"github.com/google/uuid"
	razorpay "github.com/razorpay/razorpay-go"
	rzperrors "github.com/razorpay/razorpay-go/errors"
	"github.com/shopspring/decimal"
)

// Razorpay status values
const (
	StatusCreated    = "created"
	StatusAuthorized = "authorized"
	StatusCaptured   = "captured"
	StatusFailed     = "failed"
)

// merchantAccountHeader routes a call to a linked (per-currency) account
const merchantAccountHeader = "X-Razorpay-Account"

// Razorpay accepts at most 15 notes of up to 256 characters each
const (
	maxNotes         = 15
	maxNoteValueSize = 256
)

// rejectedMessage stands in for refusals whose description the SDK drops
const rejectedMessage = "payment was rejected by the gateway"

var maxMinorUnits = decimal.NewFromInt(math.MaxInt32)

var zeroDecimalCurrencies = map[string]bool{
	"CLP": true,
	"JPY": true,
	"KRW": true,
	"PYG": true,
	"VND": true,
	"XAF": true,
	"XOF": true,
}

// Razorpay implements Client. A nonce is the id of a payment the client
// authorized through Razorpay Checkout.
type Razorpay struct {
	client *razorpay.Client
}

// NewRazorpay creates a gateway client for the given API key pair
func NewRazorpay(keyID, keySecret string) *Razorpay {
	return &Razorpay{client: razorpay.NewClient(keyID, keySecret)}
}

// Sale captures the authorized payment, or only verifies the authorization
// when SubmitForSettlement is false. Before a capture the custom fields are
// written to the payment notes so the gateway record names its cart. Never
// retried.
func (r *Razorpay) Sale(ctx context.Context, req SaleRequest) (*Transaction, error) {
	minor, err := toMinorUnits(req.Amount, req.Currency)
	if err != nil {
		return nil, &DeclinedError{Message: err.Error()}
	}
	headers := accountHeaders(req.MerchantAccountID)

	if req.SubmitForSettlement && len(req.CustomFields) > 0 {
		if err := r.annotate(ctx, req.Nonce, req.CustomFields, headers); err != nil {
			return nil, err
		}
	}

	var body map[string]interface{}
	err = utils.CallWithContext(ctx, func() error {
		var callErr error
		if req.SubmitForSettlement {
			body, callErr = r.client.Payment.Capture(req.Nonce, minor, map[string]interface{}{
				"currency": req.Currency,
			}, headers)
		} else {
			body, callErr = r.client.Payment.Fetch(req.Nonce, nil, headers)
		}
		return callErr
	})
	if err != nil {
		return nil, classify(err)
	}
	if len(body) == 0 {
		return nil, &DeclinedError{Message: rejectedMessage}
	}

	txn, err := parsePayment(body)
	if err != nil {
		return nil, err
	}
	if !req.SubmitForSettlement {
		if txn.Status != StatusAuthorized && txn.Status != StatusCaptured {
			return nil, &DeclinedError{Message: fmt.Sprintf("payment is %s, not authorized", txn.Status)}
		}
		if !txn.Amount.Equal(req.Amount) {
			return nil, &DeclinedError{Message: "authorized amount does not match requested amount"}
		}
	}
	return txn, nil
}

// annotate replaces the notes of an authorized payment
func (r *Razorpay) annotate(ctx context.Context, paymentID string, fields map[string]string, headers map[string]string) error {
	var body map[string]interface{}
	err := utils.CallWithContext(ctx, func() error {
		var callErr error
		body, callErr = r.client.Payment.Edit(paymentID, map[string]interface{}{
			"notes": paymentNotes(fields),
		}, headers)
		return callErr
	})
	if err != nil {
		return classify(err)
	}
	if len(body) == 0 {
		return &DeclinedError{Message: rejectedMessage}
	}
	return nil
}

// FindTransaction fetches a payment by id
func (r *Razorpay) FindTransaction(ctx context.Context, id string) (*Transaction, error) {
	var body map[string]interface{}
	err := utils.CallWithContext(ctx, func() error {
		var callErr error
		body, callErr = r.client.Payment.Fetch(id, nil, nil)
		return callErr
	})
	if err != nil {
		err = classify(err)
		if declined, ok := AsDeclined(err); ok && isNotFound(declined.Message) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	// A refused fetch (unknown id) comes back without a body
	if len(body) == 0 {
		return nil, ErrTransactionNotFound
	}
	return parsePayment(body)
}

// GenerateClientToken creates an order the client-side checkout pays
// against and returns its id.
func (r *Razorpay) GenerateClientToken(ctx context.Context, req ClientTokenRequest) (string, error) {
	minor, err := toMinorUnits(req.Amount, req.Currency)
	if err != nil {
		return "", &DeclinedError{Message: err.Error()}
	}
	data := map[string]interface{}{
		"amount":          minor,
		"currency":        req.Currency,
		"receipt":         "rcpt_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:20],
		"payment_capture": 0,
	}

	var body map[string]interface{}
	err = utils.CallWithContext(ctx, func() error {
		var callErr error
		body, callErr = r.client.Order.Create(data, accountHeaders(req.MerchantAccountID))
		return callErr
	})
	if err != nil {
		return "", classify(err)
	}
	if len(body) == 0 {
		return "", &DeclinedError{Message: rejectedMessage}
	}
	id := stringField(body, "id")
	if id == "" {
		return "", errors.New("razorpay order response has no id")
	}
	return id, nil
}

// TokenizeCard stores card data with Razorpay and returns the token id
func (r *Razorpay) TokenizeCard(ctx context.Context, card Card) (string, error) {
	cardData := map[string]interface{}{
		"number":       card.Number,
		"cvv":          card.CVV,
		"expiry_month": card.ExpiryMonth,
		"expiry_year":  card.ExpiryYear,
	}
	if card.CardholderName != "" {
		cardData["name"] = card.CardholderName
	}
	data := map[string]interface{}{
		"method": "card",
		"card":   cardData,
		"authentication": map[string]interface{}{
			"provider": "razorpay",
		},
	}
	if card.CustomerID != "" {
		data["customer_id"] = card.CustomerID
	}

	var body map[string]interface{}
	err := utils.CallWithContext(ctx, func() error {
		var callErr error
		body, callErr = r.client.Token.Create(data, nil)
		return callErr
	})
	if err != nil {
		return "", classify(err)
	}
	token := stringField(body, "id")
	if token == "" {
		return "", &DeclinedError{Message: "card could not be tokenized"}
	}
	return token, nil
}

// VaultPaymentMethod returns the reusable token saved by an authorized
// payment for customerID.
func (r *Razorpay) VaultPaymentMethod(ctx context.Context, customerID, nonce string) (string, error) {
	txn, err := r.FindTransaction(ctx, nonce)
	if errors.Is(err, ErrTransactionNotFound) {
		return "", &DeclinedError{Message: "payment method nonce not found"}
	}
	if err != nil {
		return "", err
	}
	if txn.CustomerID != "" && customerID != "" && txn.CustomerID != customerID {
		return "", &DeclinedError{Message: "payment belongs to a different customer"}
	}
	if txn.TokenID == "" {
		return "", &DeclinedError{Message: "payment method was not saved for reuse"}
	}
	return txn.TokenID, nil
}

func accountHeaders(merchantAccountID string) map[string]string {
	if merchantAccountID == "" {
		return nil
	}
	return map[string]string{merchantAccountHeader: merchantAccountID}
}

// classify separates API refusals from failures where the outcome is
// unknown: transport errors, deadlines, 5xx responses and bodies that could
// not be parsed.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("razorpay unreachable: %w", err)
	}
	var serverErr *rzperrors.ServerError
	if errors.As(err, &serverErr) {
		return fmt.Errorf("razorpay server error: %w", err)
	}
	var gatewayErr *rzperrors.GatewayError
	if errors.As(err, &gatewayErr) {
		return fmt.Errorf("razorpay gateway error: %w", err)
	}
	var badRequest *rzperrors.BadRequestError
	if errors.As(err, &badRequest) && strings.TrimSpace(badRequest.Message) != "" {
		return &DeclinedError{Message: badRequest.Message}
	}
	return fmt.Errorf("razorpay returned an unreadable response: %w", err)
}

func isNotFound(message string) bool {
	lower := strings.ToLower(message)
	return strings.Contains(lower, "does not exist") || strings.Contains(lower, "not found")
}

func currencyExponent(currency string) int32 {
	if zeroDecimalCurrencies[strings.ToUpper(currency)] {
		return 0
	}
	return 2
}

// toMinorUnits converts an amount to the integer unit the API expects
func toMinorUnits(amount decimal.Decimal, currency string) (int, error) {
	if !amount.IsPositive() {
		return 0, fmt.Errorf("amount must be positive, got %s", amount.String())
	}
	scaled := amount.Shift(currencyExponent(currency))
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has more precision than %s allows", amount.String(), currency)
	}
	if scaled.GreaterThan(maxMinorUnits) {
		return 0, fmt.Errorf("amount %s exceeds the gateway limit", amount.String())
	}
	return int(scaled.IntPart()), nil
}

func fromMinorUnits(minor int64, currency string) decimal.Decimal {
	return decimal.New(minor, -currencyExponent(currency))
}

func parsePayment(body map[string]interface{}) (*Transaction, error) {
	id := stringField(body, "id")
	if id == "" {
		return nil, errors.New("razorpay payment response has no id")
	}
	currency := strings.ToUpper(stringField(body, "currency"))
	minor, err := intField(body, "amount")
	if err != nil {
		return nil, fmt.Errorf("razorpay payment %s: %w", id, err)
	}

	method := stringField(body, "method")
	if method == "wallet" && strings.EqualFold(stringField(body, "wallet"), "paypal") {
		method = "paypal"
	}

	return &Transaction{
		ID:            id,
		Status:        stringField(body, "status"),
		Amount:        fromMinorUnits(minor, currency),
		Currency:      currency,
		Method:        method,
		CustomerEmail: stringField(body, "email"),
		CustomerID:    stringField(body, "customer_id"),
		TokenID:       stringField(body, "token_id"),
		CustomFields:  stringMap(body["notes"]),
	}, nil
}

func stringField(body map[string]interface{}, key string) string {
	switch v := body[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func intField(body map[string]interface{}, key string) (int64, error) {
	switch v := body[key].(type) {
	case float64:
		return int64(v), nil
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("field %s has unexpected type %T", key, v)
	}
}

// paymentNotes bounds fields to what the notes API accepts. The cart id is
// always kept.
func paymentNotes(fields map[string]string) map[string]interface{} {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k != models.MetadataCartID {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if _, ok := fields[models.MetadataCartID]; ok {
		keys = append([]string{models.MetadataCartID}, keys...)
	}
	if len(keys) > maxNotes {
		keys = keys[:maxNotes]
	}

	notes := make(map[string]interface{}, len(keys))
	for _, k := range keys {
		notes[k] = utils.TruncateRunes(fields[k], maxNoteValueSize)
	}
	return notes
}

// stringMap flattens Razorpay notes. Empty notes arrive as a JSON array.
func stringMap(value interface{}) map[string]string {
	out := map[string]string{}
	notes, ok := value.(map[string]interface{})
	if !ok {
		return out
	}
	for k, v := range notes {
		out[k] = fmt.Sprint(v)
	}
	return out
}
