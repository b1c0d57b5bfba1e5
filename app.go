package main

import (
	"errors"
	"fmt"

	"github.com/Govind-619/Esdukas/config"
	"github.com/Govind-619/Esdukas/gateway"
	"github.com/Govind-619/Esdukas/services"
	"github.com/Govind-619/Esdukas/utils"
	"gorm.io/gorm"
)

// app holds the collaborators shared by every command
type app struct {
	cfg          *config.Config
	db           *gorm.DB
	merchants    *services.MerchantResolver
	carts        *services.GormCartLedger
	transactions *services.GormTransactionLedger
	diagnostics  *services.GormDiagnosticStore
}

func newApp() (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if err := utils.InitLogger(cfg.LogDir); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		return nil, err
	}
	if err := config.Migrate(db); err != nil {
		return nil, err
	}

	merchants, err := services.NewMerchantResolver(cfg.MerchantAccounts, cfg.DefaultCurrency)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:          cfg,
		db:           db,
		merchants:    merchants,
		carts:        services.NewCartLedger(db),
		transactions: services.NewTransactionLedger(db),
		diagnostics:  services.NewDiagnosticStore(db),
	}, nil
}

// gateway returns the Razorpay client; only commands that talk to the
// gateway need keys.
func (a *app) gateway() (*gateway.Razorpay, error) {
	if a.cfg.RazorpayKey == "" || a.cfg.RazorpaySecret == "" {
		return nil, errors.New("RAZORPAY_KEY and RAZORPAY_SECRET are required")
	}
	return gateway.NewRazorpay(a.cfg.RazorpayKey, a.cfg.RazorpaySecret), nil
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	utils.SyncLoggers()
}
