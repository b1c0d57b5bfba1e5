package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Govind-619/Esdukas/controllers"
	"github.com/Govind-619/Esdukas/middleware"
	"github.com/Govind-619/Esdukas/routes"
	"github.com/Govind-619/Esdukas/services"
	"github.com/Govind-619/Esdukas/utils"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API (default command)",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.cfg.Validate(); err != nil {
		utils.LogError("Invalid configuration: %v", err)
		return err
	}
	if a.cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	gw, err := a.gateway()
	if err != nil {
		return err
	}
	auth, err := middleware.Authenticate(a.cfg)
	if err != nil {
		return err
	}

	var notifier services.Notifier
	if a.cfg.MailEnabled() {
		mailer := utils.NewMailer(utils.EmailConfig{
			Host:     a.cfg.SMTPHost,
			Port:     a.cfg.SMTPPort,
			Username: a.cfg.SMTPUsername,
			Password: a.cfg.SMTPPassword,
			From:     a.cfg.EmailFrom,
			FromName: a.cfg.EmailFromName,
		})
		notifier = services.NewReceiptNotifier(mailer, a.cfg.EmailFromName)
	} else {
		utils.LogWarn("SMTP is not configured, receipts will not be sent")
	}

	capture := services.NewCaptureAdapter(gw, a.cfg.CaptureTimeout)
	reconciler := services.NewReconciler(gw, a.carts, a.transactions, 0)
	orchestrator := services.NewOrchestrator(services.OrchestratorDeps{
		Carts:           a.carts,
		Transactions:    a.transactions,
		Capture:         capture,
		Merchants:       a.merchants,
		Notifier:        notifier,
		Diagnostics:     a.diagnostics,
		DefaultCurrency: a.cfg.DefaultCurrency,
		StoreName:       a.cfg.EmailFromName,
		NotifyTimeout:   a.cfg.NotifyTimeout,
	})

	var limiter *middleware.RateLimiter
	if a.cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: a.cfg.RedisAddr})
		defer client.Close()
		limiter = middleware.NewRateLimiter(client, a.cfg.RateLimitPerMinute, time.Minute)
	}

	router := routes.SetupRouter(routes.RouterDeps{
		Payments: controllers.NewPaymentController(controllers.PaymentControllerDeps{
			Checkout:   orchestrator,
			Reconciler: reconciler,
			Capture:    capture,
			Gateway:    gw,
			Merchants:  a.merchants,
		}),
		Auth:        auth,
		RateLimiter: limiter,
		Diagnostics: a.diagnostics,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.cfg.ReconcileInterval > 0 {
		utils.LogInfo("Reconciliation sweep every %s", a.cfg.ReconcileInterval)
		go services.NewReconcilePoller(reconciler, a.cfg.ReconcileInterval).Run(ctx)
	}

	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		utils.LogInfo("Server starting on port %s (auth mode %s)", a.cfg.Port, a.cfg.AuthMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			utils.LogError("Error starting server: %v", err)
		}
		return err
	case <-ctx.Done():
	}

	utils.LogInfo("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
