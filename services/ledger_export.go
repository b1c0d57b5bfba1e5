package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Govind-619/Esdukas/models"
	"github.com/Govind-619/Esdukas/utils"
	"github.com/tealeg/xlsx"
)

var ledgerHeaders = []string{"Transaction ID", "Cart ID", "Date", "Amount", "Currency", "Method", "Status", "Email", "Source"}

// ExportLedger writes transactions recorded since since as an xlsx workbook
func ExportLedger(ctx context.Context, ledger TransactionLedger, since time.Time, w io.Writer) (int, error) {
	txns, err := ledger.ListSince(ctx, since)
	if err != nil {
		return 0, err
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Transactions")
	if err != nil {
		return 0, fmt.Errorf("failed to create sheet: %w", err)
	}

	titleRow := sheet.AddRow()
	titleRow.AddCell().SetString("ESDUKAS - Transaction Ledger")
	periodRow := sheet.AddRow()
	periodRow.AddCell().SetString("Since: " + since.Format("2006-01-02 15:04"))
	sheet.AddRow() // spacing

	headerRow := sheet.AddRow()
	for _, h := range ledgerHeaders {
		cell := headerRow.AddCell()
		cell.SetString(h)
		style := xlsx.NewStyle()
		font := xlsx.DefaultFont()
		font.Bold = true
		style.Font = *font
		cell.SetStyle(style)
	}

	for _, txn := range txns {
		addLedgerRow(sheet, txn)
	}

	if err := file.Write(w); err != nil {
		return 0, fmt.Errorf("failed to write workbook: %w", err)
	}
	utils.LogInfo("Exported %d transactions since %s", len(txns), since.Format(time.RFC3339))
	return len(txns), nil
}

func addLedgerRow(sheet *xlsx.Sheet, txn models.Transaction) {
	cartID := ""
	if txn.CartID != nil {
		cartID = *txn.CartID
	}
	row := sheet.AddRow()
	row.AddCell().SetString(txn.TransactionID)
	row.AddCell().SetString(cartID)
	row.AddCell().SetString(txn.CreatedAt.Format("2006-01-02 15:04"))
	amount, _ := txn.Amount.Float64()
	row.AddCell().SetFloat(amount)
	row.AddCell().SetString(txn.Currency)
	row.AddCell().SetString(txn.Method)
	row.AddCell().SetString(txn.Status)
	row.AddCell().SetString(txn.Email)
	row.AddCell().SetString(txn.Source)
}
