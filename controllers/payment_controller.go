package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Govind-619/Esdukas/gateway"
	"github.com/Govind-619/Esdukas/middleware"
	"github.com/Govind-619/Esdukas/models"
	"github.com/Govind-619/Esdukas/services"
	"github.com/Govind-619/Esdukas/utils"
	"github.com/gin-gonic/gin"
)

// CheckoutRunner runs one checkout
type CheckoutRunner interface {
	Checkout(ctx context.Context, input services.CheckoutInput) (*services.CheckoutResult, error)
}

// TransactionReconciler restores ledger state from the gateway
type TransactionReconciler interface {
	ByTransactionID(ctx context.Context, transactionID string) (*services.ReconcileResult, error)
	RepairCart(ctx context.Context, transactionID, cartID string) (*services.ReconcileResult, error)
}

// PaymentController serves the payment API
type PaymentController struct {
	checkout   CheckoutRunner
	reconciler TransactionReconciler
	capture    services.Capturer
	gateway    gateway.Client
	merchants  *services.MerchantResolver
}

type PaymentControllerDeps struct {
	Checkout   CheckoutRunner
	Reconciler TransactionReconciler
	Capture    services.Capturer
	Gateway    gateway.Client
	Merchants  *services.MerchantResolver
}

func NewPaymentController(deps PaymentControllerDeps) *PaymentController {
	return &PaymentController{
		checkout:   deps.Checkout,
		reconciler: deps.Reconciler,
		capture:    deps.Capture,
		gateway:    deps.Gateway,
		merchants:  deps.Merchants,
	}
}

// GET /api/token?amount=&currency=
func (pc *PaymentController) ClientToken(c *gin.Context) {
	utils.LogInfo("ClientToken called")

	amount, err := services.ParseAmount(c.Query("amount"))
	if err != nil {
		utils.BadRequest(c, "Invalid amount", err.Error())
		return
	}
	currency, ok := pc.currency(c, c.Query("currency"))
	if !ok {
		return
	}

	token, err := pc.gateway.GenerateClientToken(c.Request.Context(), gateway.ClientTokenRequest{
		Amount:            amount,
		Currency:          currency,
		MerchantAccountID: pc.merchants.Resolve(currency),
	})
	if err != nil {
		utils.LogError("Failed to generate client token: %v", err)
		utils.InternalServerError(c, "Failed to generate client token", "")
		return
	}
	c.String(http.StatusOK, token)
}

// POST /api/checkout
func (pc *PaymentController) Checkout(c *gin.Context) {
	utils.LogInfo("Checkout called")
	pc.runCheckout(c, models.MethodCard)
}

// POST /api/paypal/checkout
func (pc *PaymentController) PayPalCheckout(c *gin.Context) {
	utils.LogInfo("PayPalCheckout called")
	pc.runCheckout(c, models.MethodPayPal)
}

func (pc *PaymentController) runCheckout(c *gin.Context, method string) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogDebug("Invalid checkout body: %v", err)
		utils.BadRequest(c, "Invalid request", err.Error())
		return
	}
	input, err := req.toInput(method)
	if err != nil {
		utils.BadRequest(c, "Invalid request", err.Error())
		return
	}
	if userID, ok := middleware.CurrentUserID(c); ok {
		input.UserID = userID
	}

	result, err := pc.checkout.Checkout(c.Request.Context(), input)
	if err != nil {
		respondCheckoutError(c, err)
		return
	}

	utils.Success(c, checkoutResponse{
		Success:               true,
		TransactionID:         result.TransactionID,
		CartID:                result.CartID,
		Status:                result.Status,
		ReconciliationPending: result.ReconciliationPending,
	})
}

func respondCheckoutError(c *gin.Context, err error) {
	var (
		validation  *services.ValidationError
		declined    *services.GatewayDeclinedError
		unavailable *services.GatewayUnavailableError
	)
	switch {
	case errors.As(err, &validation):
		_ = c.Error(utils.BadRequestError("Invalid request", validation.Fields))
	case errors.As(err, &declined):
		utils.ErrorWithCart(c, http.StatusBadRequest, "Payment failed", declined.Message, declined.CartID)
	case errors.As(err, &unavailable):
		utils.ErrorWithCart(c, http.StatusInternalServerError, "Payment gateway unavailable",
			"The payment outcome is unknown. Do not retry with the same nonce.", unavailable.CartID)
	default:
		_ = c.Error(err)
	}
}

// POST /api/tokenizeCard
func (pc *PaymentController) TokenizeCard(c *gin.Context) {
	utils.LogInfo("TokenizeCard called")

	var req tokenizeCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request", err.Error())
		return
	}
	if err := req.validate(); err != nil {
		utils.BadRequest(c, "Invalid card details", err.Error())
		return
	}

	month, year := req.expiry()
	token, err := pc.gateway.TokenizeCard(c.Request.Context(), gateway.Card{
		Number:         strings.ReplaceAll(strings.ReplaceAll(req.CardNumber, " ", ""), "-", ""),
		ExpiryMonth:    month,
		ExpiryYear:     year,
		CVV:            string(req.CVV),
		CardholderName: utils.SanitizeString(req.CardholderName),
		CustomerID:     req.CustomerID,
	})
	if err != nil {
		if declined, ok := gateway.AsDeclined(err); ok {
			utils.BadRequest(c, declined.Message, "")
			return
		}
		utils.LogError("Card tokenization failed: %v", err)
		utils.InternalServerError(c, "Card tokenization failed", "")
		return
	}
	utils.Success(c, gin.H{"paymentToken": token})
}

// POST /api/threeDSecure
func (pc *PaymentController) ThreeDSecure(c *gin.Context) {
	utils.LogInfo("ThreeDSecure called")

	outcome, ok := pc.authorize(c)
	if !ok {
		return
	}
	switch out := outcome.(type) {
	case services.Captured:
		utils.Success(c, gin.H{"success": true, "transactionId": out.TransactionID})
	case services.Declined:
		utils.BadRequest(c, "3D Secure Authentication failed", out.Message)
	default:
		utils.InternalServerError(c, "Payment gateway unavailable", "")
	}
}

// POST /api/paypal/createPayment
func (pc *PaymentController) PayPalCreatePayment(c *gin.Context) {
	utils.LogInfo("PayPalCreatePayment called")

	outcome, ok := pc.authorize(c)
	if !ok {
		return
	}
	switch out := outcome.(type) {
	case services.Captured:
		utils.Success(c, gin.H{"success": true, "transactionId": out.TransactionID, "status": out.Status})
	case services.Declined:
		utils.BadRequest(c, out.Message, "")
	default:
		utils.InternalServerError(c, "Payment gateway unavailable", "")
	}
}

// authorize verifies a nonce for an amount without settling it
func (pc *PaymentController) authorize(c *gin.Context) (services.CaptureOutcome, bool) {
	var req authorizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request", err.Error())
		return nil, false
	}
	if strings.TrimSpace(req.Nonce) == "" {
		utils.BadRequest(c, "Invalid request", "nonce is required")
		return nil, false
	}
	amount, err := services.ParseAmount(string(req.Amount))
	if err != nil {
		utils.BadRequest(c, "Invalid amount", err.Error())
		return nil, false
	}
	currency, ok := pc.currency(c, req.Currency)
	if !ok {
		return nil, false
	}

	outcome := pc.capture.Authorize(c.Request.Context(), services.CaptureRequest{
		Amount:            amount,
		Currency:          currency,
		Nonce:             req.Nonce,
		MerchantAccountID: pc.merchants.Resolve(currency),
	})
	if unavailable, isUnavailable := outcome.(services.Unavailable); isUnavailable {
		utils.LogError("Authorization failed, gateway unavailable: %v", unavailable.Cause)
	}
	return outcome, true
}

// POST /api/paypal/confirmation
func (pc *PaymentController) PayPalConfirmation(c *gin.Context) {
	utils.LogInfo("PayPalConfirmation called")

	var req confirmationRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.TransactionID) == "" {
		utils.BadRequest(c, "Missing transactionId", "")
		return
	}

	res, err := pc.reconciler.ByTransactionID(c.Request.Context(), req.TransactionID)
	if err != nil {
		respondReconcileError(c, err)
		return
	}
	utils.Success(c, gin.H{
		"success":       true,
		"transactionId": res.Gateway.ID,
		"status":        res.Gateway.Status,
		"amount":        res.Gateway.Amount.StringFixed(2),
		"currency":      res.Gateway.Currency,
	})
}

// POST /api/paypal/vault
func (pc *PaymentController) PayPalVault(c *gin.Context) {
	utils.LogInfo("PayPalVault called")

	var req vaultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request", err.Error())
		return
	}
	if req.Nonce == "" || req.CustomerID == "" {
		utils.BadRequest(c, "Invalid request", "nonce and customerId are required")
		return
	}

	token, err := pc.gateway.VaultPaymentMethod(c.Request.Context(), req.CustomerID, req.Nonce)
	if err != nil {
		if declined, ok := gateway.AsDeclined(err); ok {
			utils.BadRequest(c, declined.Message, "")
			return
		}
		utils.LogError("Vaulting payment method failed: %v", err)
		utils.InternalServerError(c, "Payment gateway unavailable", "")
		return
	}
	utils.Success(c, gin.H{"success": true, "paymentMethodToken": token})
}

// POST /api/transactions/:id/reconcile
func (pc *PaymentController) Reconcile(c *gin.Context) {
	transactionID := c.Param("id")
	utils.LogInfo("Reconcile called for transaction %s", transactionID)

	var req reconcileRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequest(c, "Invalid request", err.Error())
			return
		}
	}

	res, err := pc.reconciler.RepairCart(c.Request.Context(), transactionID, req.CartID)
	if err != nil {
		respondReconcileError(c, err)
		return
	}
	utils.Success(c, gin.H{
		"success":       true,
		"transactionId": res.Transaction.TransactionID,
		"inserted":      res.Inserted,
		"cartRepaired":  res.CartRepaired,
	})
}

func respondReconcileError(c *gin.Context, err error) {
	var validation *services.ValidationError
	var appErr *utils.AppError
	switch {
	case errors.As(err, &validation):
		appErr = utils.BadRequestError("Invalid request", validation.Fields)
	case errors.Is(err, services.ErrTransactionNotFound):
		appErr = utils.NotFoundError("Transaction not found", err)
	case errors.Is(err, services.ErrCartNotFound):
		appErr = utils.NotFoundError("Cart not found", err)
	case errors.Is(err, services.ErrCartIntegrity):
		utils.LogError("Reconciliation refused: %v", err)
		appErr = utils.NewAppError(http.StatusConflict, "Cart conflicts with transaction", err)
	case errors.Is(err, services.ErrTransactionNotSettled):
		appErr = utils.NewAppError(http.StatusConflict, "Transaction is not settled", err)
	default:
		appErr = utils.InternalError("Reconciliation failed", err)
	}
	// ErrorHandlerMiddleware renders it
	_ = c.Error(appErr)
}

// GET /health
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// currency normalizes a requested currency, defaulting when empty
func (pc *PaymentController) currency(c *gin.Context, raw string) (string, bool) {
	currency := strings.ToUpper(strings.TrimSpace(raw))
	if currency == "" {
		currency = pc.merchants.DefaultCurrency()
	}
	if !utils.IsCurrencyCode(currency) {
		utils.BadRequest(c, "Invalid currency", "currency must be a three letter code")
		return "", false
	}
	return currency, true
}
