package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	razorpay "github.com/razorpay/razorpay-go"
	rzperrors "github.com/razorpay/razorpay-go/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	Method string
	Path   string
	Body   map[string]interface{}
}

// fakeRazorpay answers API calls from a route table and records them
type fakeRazorpay struct {
	mu     sync.Mutex
	calls  []recordedCall
	routes map[string]func(w http.ResponseWriter)
}

func (f *fakeRazorpay) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	call := recordedCall{Method: r.Method, Path: r.URL.Path}
	if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
		_ = json.Unmarshal(raw, &call.Body)
	}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	respond, ok := f.routes[r.Method+" "+r.URL.Path]
	if !ok {
		writeRaw(w, http.StatusNotFound, `{"error":{"code":"BAD_REQUEST_ERROR","description":"The requested URL was not found on the server.","internal_error_code":"BAD_REQUEST_ERROR"}}`)
		return
	}
	respond(w)
}

func writeRaw(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func respondWith(status int, body string) func(http.ResponseWriter) {
	return func(w http.ResponseWriter) { writeRaw(w, status, body) }
}

// newTestRazorpay points the SDK at fake. The SDK keeps its request in a
// package variable, so these tests must not run in parallel.
func newTestRazorpay(t *testing.T, fake *fakeRazorpay) *Razorpay {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client := NewRazorpay("rzp_test_key", "secret")
	razorpay.Request.BaseURL = srv.URL
	return client
}

const capturedPayment = `{"id":"pay_1","entity":"payment","amount":1000,"currency":"USD","status":"captured","method":"card","email":"a@b.com","notes":{"cartId":"cart_1"}}`

func saleRequest() SaleRequest {
	return SaleRequest{
		Amount:              decimal.RequireFromString("10.00"),
		Currency:            "USD",
		Nonce:               "pay_1",
		SubmitForSettlement: true,
		CustomFields:        map[string]string{"cartId": "cart_1", "userId": "u_7"},
	}
}

func TestSale_WritesNotesBeforeCapture(t *testing.T) {
	fake := &fakeRazorpay{routes: map[string]func(http.ResponseWriter){
		"PATCH /v1/payments/pay_1":        respondWith(http.StatusOK, capturedPayment),
		"POST /v1/payments/pay_1/capture": respondWith(http.StatusOK, capturedPayment),
	}}
	client := newTestRazorpay(t, fake)

	txn, err := client.Sale(context.Background(), saleRequest())
	require.NoError(t, err)
	assert.Equal(t, "pay_1", txn.ID)
	assert.Equal(t, StatusCaptured, txn.Status)
	assert.Equal(t, "cart_1", txn.CustomFields["cartId"])

	require.Len(t, fake.calls, 2)
	assert.Equal(t, http.MethodPatch, fake.calls[0].Method)
	notes, ok := fake.calls[0].Body["notes"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "cart_1", notes["cartId"])
	assert.Equal(t, "u_7", notes["userId"])

	assert.Equal(t, "/v1/payments/pay_1/capture", fake.calls[1].Path)
	assert.Equal(t, float64(1000), fake.calls[1].Body["amount"])
}

func TestSale_ServerErrorsAreNotDeclines(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"json server error", `{"error":{"code":"SERVER_ERROR","description":"upstream failure","internal_error_code":"SERVER_ERROR"}}`},
		{"json gateway error", `{"error":{"code":"GATEWAY_ERROR","description":"bank timeout","internal_error_code":"GATEWAY_ERROR"}}`},
		{"html bad gateway", `<html>Bad Gateway</html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeRazorpay{routes: map[string]func(http.ResponseWriter){
				"PATCH /v1/payments/pay_1":        respondWith(http.StatusOK, capturedPayment),
				"POST /v1/payments/pay_1/capture": respondWith(http.StatusBadGateway, tt.body),
			}}
			client := newTestRazorpay(t, fake)

			_, err := client.Sale(context.Background(), saleRequest())
			require.Error(t, err)
			_, declined := AsDeclined(err)
			assert.False(t, declined, err.Error())
		})
	}
}

func TestSale_RefusedCaptureIsDeclined(t *testing.T) {
	fake := &fakeRazorpay{routes: map[string]func(http.ResponseWriter){
		"PATCH /v1/payments/pay_1": respondWith(http.StatusOK, capturedPayment),
		"POST /v1/payments/pay_1/capture": respondWith(http.StatusBadRequest,
			`{"error":{"code":"BAD_REQUEST_ERROR","description":"This payment has already been captured","internal_error_code":"BAD_REQUEST_ERROR"}}`),
	}}
	client := newTestRazorpay(t, fake)

	_, err := client.Sale(context.Background(), saleRequest())
	declined, ok := AsDeclined(err)
	require.True(t, ok, "%v", err)
	assert.NotEmpty(t, declined.Message)
}

func TestSale_NotesFailureStopsCapture(t *testing.T) {
	fake := &fakeRazorpay{routes: map[string]func(http.ResponseWriter){
		"PATCH /v1/payments/pay_1": respondWith(http.StatusInternalServerError,
			`{"error":{"code":"SERVER_ERROR","description":"try again","internal_error_code":"SERVER_ERROR"}}`),
		"POST /v1/payments/pay_1/capture": respondWith(http.StatusOK, capturedPayment),
	}}
	client := newTestRazorpay(t, fake)

	_, err := client.Sale(context.Background(), saleRequest())
	require.Error(t, err)
	var serverErr *rzperrors.ServerError
	assert.ErrorAs(t, err, &serverErr)
	require.Len(t, fake.calls, 1)
	assert.Equal(t, http.MethodPatch, fake.calls[0].Method)
}

func TestSale_AuthorizeOnlySkipsNotes(t *testing.T) {
	fake := &fakeRazorpay{routes: map[string]func(http.ResponseWriter){
		"GET /v1/payments/pay_1": respondWith(http.StatusOK,
			`{"id":"pay_1","amount":1000,"currency":"USD","status":"authorized","method":"card"}`),
	}}
	client := newTestRazorpay(t, fake)

	req := saleRequest()
	req.SubmitForSettlement = false
	txn, err := client.Sale(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, StatusAuthorized, txn.Status)
	require.Len(t, fake.calls, 1)
	assert.Equal(t, http.MethodGet, fake.calls[0].Method)
}

func TestFindTransaction(t *testing.T) {
	fake := &fakeRazorpay{routes: map[string]func(http.ResponseWriter){
		"GET /v1/payments/pay_1": respondWith(http.StatusOK, capturedPayment),
		"GET /v1/payments/pay_missing": respondWith(http.StatusBadRequest,
			`{"error":{"code":"BAD_REQUEST_ERROR","description":"The id provided does not exist","internal_error_code":"BAD_REQUEST_ERROR"}}`),
		"GET /v1/payments/pay_down": respondWith(http.StatusServiceUnavailable, `<html>down</html>`),
	}}
	client := newTestRazorpay(t, fake)

	txn, err := client.FindTransaction(context.Background(), "pay_1")
	require.NoError(t, err)
	assert.Equal(t, "cart_1", txn.CustomFields["cartId"])

	_, err = client.FindTransaction(context.Background(), "pay_missing")
	assert.ErrorIs(t, err, ErrTransactionNotFound)

	_, err = client.FindTransaction(context.Background(), "pay_down")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTransactionNotFound)
	_, declined := AsDeclined(err)
	assert.False(t, declined)
}
