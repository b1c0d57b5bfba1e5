package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/Govind-619/Esdukas/services"
	"github.com/Govind-619/Esdukas/utils"
)

// flexibleString accepts a JSON string or number and keeps its text
type flexibleString string

func (f *flexibleString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexibleString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected a string or number, got %s", string(data))
	}
	*f = flexibleString(n.String())
	return nil
}

type checkoutItemRequest struct {
	Name     string         `json:"name"`
	Quantity *int           `json:"quantity"`
	Price    flexibleString `json:"price"`
}

// checkoutRequest is the body of /checkout and /paypal/checkout
type checkoutRequest struct {
	Nonce    string                     `json:"nonce"`
	Amount   flexibleString             `json:"amount"`
	Currency string                     `json:"currency"`
	Email    string                     `json:"email"`
	Metadata map[string]json.RawMessage `json:"metadata"`
}

// toInput splits metadata into items, userId and the flat string fields
// forwarded to the gateway.
func (r checkoutRequest) toInput(method string) (services.CheckoutInput, error) {
	input := services.CheckoutInput{
		Nonce:    r.Nonce,
		Amount:   string(r.Amount),
		Currency: r.Currency,
		Email:    r.Email,
		Method:   method,
		Metadata: map[string]string{},
	}
	for key, raw := range r.Metadata {
		switch key {
		case "items":
			var items []checkoutItemRequest
			if err := json.Unmarshal(raw, &items); err != nil {
				return input, fmt.Errorf("metadata.items: %w", err)
			}
			for _, item := range items {
				input.Items = append(input.Items, services.CheckoutItemInput{
					Name:     item.Name,
					Quantity: item.Quantity,
					Price:    string(item.Price),
				})
			}
		case "userId":
			var userID flexibleString
			if err := json.Unmarshal(raw, &userID); err != nil {
				return input, fmt.Errorf("metadata.userId: %w", err)
			}
			input.UserID = string(userID)
		case "cartId":
			// server generated
		default:
			var value string
			if err := json.Unmarshal(raw, &value); err == nil {
				input.Metadata[key] = utils.TruncateRunes(utils.SanitizeString(value), 256)
			}
		}
	}
	return input, nil
}

type tokenizeCardRequest struct {
	CardNumber     string         `json:"cardNumber"`
	ExpirationDate string         `json:"expirationDate"`
	ExpiryMonth    flexibleString `json:"expiryMonth"`
	ExpiryYear     flexibleString `json:"expiryYear"`
	CVV            flexibleString `json:"cvv"`
	CardholderName string         `json:"cardholderName"`
	CustomerID     string         `json:"customerId"`
}

var (
	cardNumberRegex = regexp.MustCompile(`^\d{12,19}$`)
	cvvRegex        = regexp.MustCompile(`^\d{3,4}$`)
	monthRegex      = regexp.MustCompile(`^(0?[1-9]|1[0-2])$`)
	yearRegex       = regexp.MustCompile(`^(\d{2}|\d{4})$`)
)

// expiry returns month and year from either expirationDate (MM/YY) or the
// separate fields.
func (r tokenizeCardRequest) expiry() (string, string) {
	if r.ExpirationDate != "" {
		parts := strings.SplitN(r.ExpirationDate, "/", 2)
		if len(parts) == 2 {
			return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		}
		return "", ""
	}
	return strings.TrimSpace(string(r.ExpiryMonth)), strings.TrimSpace(string(r.ExpiryYear))
}

func (r tokenizeCardRequest) validate() error {
	var fields utils.FieldValidationErrors
	number := strings.ReplaceAll(strings.ReplaceAll(r.CardNumber, " ", ""), "-", "")
	if !cardNumberRegex.MatchString(number) {
		fields.Add("cardNumber", "card number must be 12 to 19 digits")
	}
	month, year := r.expiry()
	if !monthRegex.MatchString(month) || !yearRegex.MatchString(year) {
		fields.Add("expirationDate", "expiration must be MM/YY or MM/YYYY")
	}
	if !cvvRegex.MatchString(string(r.CVV)) {
		fields.Add("cvv", "cvv must be 3 or 4 digits")
	}
	if len(fields) > 0 {
		return fields
	}
	return nil
}

type authorizeRequest struct {
	Nonce    string         `json:"nonce"`
	Amount   flexibleString `json:"amount"`
	Currency string         `json:"currency"`
}

type confirmationRequest struct {
	TransactionID string `json:"transactionId"`
}

type vaultRequest struct {
	Nonce      string `json:"nonce"`
	CustomerID string `json:"customerId"`
}

type reconcileRequest struct {
	CartID string `json:"cartId"`
}

type checkoutResponse struct {
	Success               bool   `json:"success"`
	TransactionID         string `json:"transactionId"`
	CartID                string `json:"cartId"`
	Status                string `json:"status"`
	ReconciliationPending bool   `json:"reconciliationPending,omitempty"`
}
