package routes

import (
	"github.com/Govind-619/Esdukas/controllers"
	"github.com/gin-gonic/gin"
)

// initPaymentRoutes mounts the checkout and gateway routes. All of them sit
// behind the auth policy.
func initPaymentRoutes(router *gin.RouterGroup, pc *controllers.PaymentController) {
	router.GET("/token", pc.ClientToken)
	router.POST("/checkout", pc.Checkout)
	router.POST("/tokenizeCard", pc.TokenizeCard)
	router.POST("/threeDSecure", pc.ThreeDSecure)

	paypal := router.Group("/paypal")
	{
		paypal.POST("/createPayment", pc.PayPalCreatePayment)
		paypal.POST("/checkout", pc.PayPalCheckout)
		paypal.POST("/confirmation", pc.PayPalConfirmation)
		paypal.POST("/vault", pc.PayPalVault)
	}

	// Operator reconciliation
	router.POST("/transactions/:id/reconcile", pc.Reconcile)
}
