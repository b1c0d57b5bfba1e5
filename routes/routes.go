package routes

import (
	"github.com/Govind-619/Esdukas/controllers"
	"github.com/Govind-619/Esdukas/middleware"
	"github.com/Govind-619/Esdukas/utils"
	"github.com/gin-gonic/gin"
)

// RouterDeps are the handlers and middlewares the router mounts
type RouterDeps struct {
	Payments    *controllers.PaymentController
	Auth        gin.HandlerFunc
	RateLimiter *middleware.RateLimiter
	Diagnostics DiagnosticStore
}

// DiagnosticStore records unexpected failures and lists them for operators
type DiagnosticStore interface {
	utils.DiagnosticWriter
	controllers.DiagnosticLister
}

// SetupRouter initializes and returns the Gin router with all routes
func SetupRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	router.Use(utils.RequestIDMiddleware())
	router.Use(utils.LoggerMiddleware())
	router.Use(utils.ErrorHandlerMiddleware(deps.Diagnostics))
	router.Use(utils.CORSMiddleware())
	router.Use(utils.SecurityHeadersMiddleware())

	// Unauthenticated
	router.GET("/health", controllers.Health)

	api := router.Group("/api")
	if deps.RateLimiter != nil {
		api.Use(deps.RateLimiter.Middleware())
	}
	api.Use(deps.Auth)
	{
		initPaymentRoutes(api, deps.Payments)
		if deps.Diagnostics != nil {
			api.GET("/diagnostics", controllers.NewDiagnosticsController(deps.Diagnostics).List)
		}
	}

	return router
}
