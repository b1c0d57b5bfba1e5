package main

import (
	"fmt"
	"os"
	"time"

	"github.com/Govind-619/Esdukas/services"
	"github.com/spf13/cobra"
)

func reconcileCmd() *cobra.Command {
	var cartID string
	cmd := &cobra.Command{
		Use:   "reconcile [transactionId]",
		Short: "Record a gateway transaction missing from the ledger and repair its cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			gw, err := a.gateway()
			if err != nil {
				return err
			}
			reconciler := services.NewReconciler(gw, a.carts, a.transactions, 0)
			res, err := reconciler.RepairCart(cmd.Context(), args[0], cartID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "transaction %s: inserted=%t cartRepaired=%t status=%s\n",
				res.Transaction.TransactionID, res.Inserted, res.CartRepaired, res.Gateway.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&cartID, "cart", "", "cart id to repair when the gateway record does not name one")
	return cmd
}

func sweepCmd() *cobra.Command {
	var batch int
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Mark paid every unpaid cart that already has a recorded transaction",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			// Sweep reads only the local ledger
			reconciler := services.NewReconciler(nil, a.carts, a.transactions, batch)
			report, err := reconciler.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "examined=%d repaired=%d failed=%d\n", report.Examined, report.Repaired, report.Failed)
			if report.Failed > 0 {
				return fmt.Errorf("%d carts could not be repaired, see the error log", report.Failed)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&batch, "batch", services.DefaultSweepBatch, "maximum transactions to repair")
	return cmd
}

func exportCmd() *cobra.Command {
	var (
		out   string
		since time.Duration
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the transaction ledger as an xlsx workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", out, err)
			}
			defer f.Close()

			count, err := services.ExportLedger(cmd.Context(), a.transactions, time.Now().Add(-since), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d transactions to %s\n", count, out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "ledger.xlsx", "output file")
	cmd.Flags().DurationVar(&since, "since", 30*24*time.Hour, "how far back to export")
	return cmd
}
