package utils

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// ReceiptLine is one item row of a receipt
type ReceiptLine struct {
	Name     string
	Quantity int
	Total    string
}

// ReceiptDocument carries everything printed on a payment receipt
type ReceiptDocument struct {
	StoreName     string
	TransactionID string
	CartID        string
	Currency      string
	Amount        string
	Status        string
	PaidAt        time.Time
	Lines         []ReceiptLine
}

// RenderReceiptPDF generates an A4 PDF receipt
func RenderReceiptPDF(doc ReceiptDocument) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	// Store info
	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(100, 10, doc.StoreName)
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(100, 10, "PAYMENT RECEIPT")
	pdf.Ln(12)
	pdf.SetFont("Arial", "", 12)
	pdf.Cell(100, 8, "Transaction ID: "+doc.TransactionID)
	pdf.Ln(8)
	pdf.Cell(100, 8, "Order reference: "+doc.CartID)
	pdf.Ln(8)
	pdf.Cell(100, 8, "Date: "+doc.PaidAt.Format("2006-01-02 15:04:05"))
	pdf.Ln(8)
	if doc.Status != "" {
		pdf.Cell(100, 8, "Status: "+doc.Status)
		pdf.Ln(8)
	}
	pdf.Ln(4)

	// Items table header
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(90, 8, "Item", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 8, "Qty", "1", 0, "C", false, 0, "")
	pdf.CellFormat(45, 8, "Total", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 12)
	for _, line := range doc.Lines {
		pdf.CellFormat(90, 8, line.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 8, fmt.Sprintf("%d", line.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(45, 8, doc.Currency+" "+line.Total, "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 13)
	pdf.CellFormat(115, 10, "Amount paid:", "", 0, "L", false, 0, "")
	pdf.CellFormat(45, 10, doc.Currency+" "+doc.Amount, "", 1, "R", false, 0, "")

	pdf.Ln(10)
	pdf.SetFont("Arial", "I", 12)
	pdf.Cell(0, 10, "Thank you for shopping with "+doc.StoreName+"!")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render receipt pdf: %w", err)
	}
	return buf.Bytes(), nil
}
