package services

import (
	"context"
	"time"

	"github.com/Govind-619/Esdukas/utils"
)

// Sweeper repairs stranded carts
type Sweeper interface {
	Sweep(ctx context.Context) (SweepReport, error)
}

// ReconcilePoller runs a Sweep on every tick until its context is done
type ReconcilePoller struct {
	sweeper  Sweeper
	interval time.Duration
}

func NewReconcilePoller(sweeper Sweeper, interval time.Duration) *ReconcilePoller {
	return &ReconcilePoller{sweeper: sweeper, interval: interval}
}

func (p *ReconcilePoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.sweepOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *ReconcilePoller) sweepOnce(ctx context.Context) {
	report, err := p.sweeper.Sweep(ctx)
	if err != nil {
		utils.LogError("Reconciliation sweep failed: %v", err)
		return
	}
	if report.Examined > 0 {
		utils.LogInfo("Reconciliation sweep: examined=%d repaired=%d failed=%d", report.Examined, report.Repaired, report.Failed)
	}
}
