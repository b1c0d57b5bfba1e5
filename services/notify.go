package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/Govind-619/Esdukas/models"
	"github.com/Govind-619/Esdukas/utils"
	"github.com/shopspring/decimal"
)

// ErrNoRecipient is returned when a receipt has no email address
var ErrNoRecipient = errors.New("receipt has no recipient")

// ReceiptSubject is the subject line of every receipt email
const ReceiptSubject = "Your Esdukas Payment Receipt"

// Receipt is what the buyer is told about a settled checkout
type Receipt struct {
	Email         string
	StoreName     string
	TransactionID string
	CartID        string
	Status        string
	Amount        decimal.Decimal
	Currency      string
	Items         []models.CartItem
	PaidAt        time.Time
}

// Notifier delivers receipts
type Notifier interface {
	NotifyReceipt(ctx context.Context, receipt Receipt) error
}

// MailTransport sends one HTML message
type MailTransport interface {
	Send(ctx context.Context, to, subject, htmlBody string, attachments ...utils.Attachment) error
}

// ReceiptNotifier emails an itemized HTML receipt with a PDF copy attached
type ReceiptNotifier struct {
	mail      MailTransport
	storeName string
}

// NewReceiptNotifier returns a Notifier sending through mail
func NewReceiptNotifier(mail MailTransport, storeName string) *ReceiptNotifier {
	return &ReceiptNotifier{mail: mail, storeName: storeName}
}

func (n *ReceiptNotifier) NotifyReceipt(ctx context.Context, receipt Receipt) error {
	if receipt.Email == "" {
		return ErrNoRecipient
	}
	if receipt.StoreName == "" {
		receipt.StoreName = n.storeName
	}

	body, err := RenderReceiptHTML(receipt)
	if err != nil {
		return err
	}

	var attachments []utils.Attachment
	pdf, err := utils.RenderReceiptPDF(receiptDocument(receipt))
	if err != nil {
		// The HTML body is the receipt; the PDF is a convenience copy.
		utils.LogError("Failed to render receipt PDF for %s: %v", receipt.TransactionID, err)
	} else {
		attachments = append(attachments, utils.Attachment{
			Filename:    fmt.Sprintf("receipt_%s.pdf", receipt.TransactionID),
			ContentType: "application/pdf",
			Data:        pdf,
		})
	}

	if err := n.mail.Send(ctx, receipt.Email, ReceiptSubject, body, attachments...); err != nil {
		return fmt.Errorf("send receipt for %s: %w", receipt.TransactionID, err)
	}
	utils.LogInfo("Receipt for transaction %s sent to %s", receipt.TransactionID, receipt.Email)
	return nil
}

var receiptTemplate = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>{{.StoreName}}</h2>
  <p>Thank you for your payment.</p>
  <p><strong>Transaction ID:</strong> {{.TransactionID}}</p>
  <p><strong>Amount:</strong> {{.Currency}} {{.Amount}}</p>
  <table cellpadding="6" cellspacing="0" border="1" style="border-collapse: collapse;">
    <tr><th>Item</th><th>Qty</th><th>Total</th></tr>
    {{- range .Lines}}
    <tr>
      <td>{{.Name}}</td>
      <td>{{.Quantity}}</td>
      <td>{{$.Currency}} {{.Total}}</td>
    </tr>
    {{- end}}
  </table>
</body>
</html>
`))

// RenderReceiptHTML renders the receipt email body. Values are escaped.
func RenderReceiptHTML(receipt Receipt) (string, error) {
	doc := receiptDocument(receipt)
	var buf bytes.Buffer
	if err := receiptTemplate.Execute(&buf, doc); err != nil {
		return "", fmt.Errorf("render receipt: %w", err)
	}
	return buf.String(), nil
}

func receiptDocument(receipt Receipt) utils.ReceiptDocument {
	lines := make([]utils.ReceiptLine, 0, len(receipt.Items))
	for _, item := range receipt.Items {
		lines = append(lines, utils.ReceiptLine{
			Name:     item.Name,
			Quantity: item.Quantity,
			Total:    item.LineTotal().StringFixed(2),
		})
	}
	return utils.ReceiptDocument{
		StoreName:     receipt.StoreName,
		TransactionID: receipt.TransactionID,
		CartID:        receipt.CartID,
		Currency:      receipt.Currency,
		Amount:        receipt.Amount.StringFixed(2),
		Status:        receipt.Status,
		PaidAt:        receipt.PaidAt,
		Lines:         lines,
	}
}
