package utils

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/gomail.v2"
)

// EmailConfig holds email configuration
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// Attachment is an in-memory file attached to an email
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Mailer sends HTML email over SMTP
type Mailer struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
}

// NewMailer creates a Mailer for the given SMTP configuration
func NewMailer(cfg EmailConfig) *Mailer {
	port := cfg.Port
	if port == 0 {
		port = 587 // Default SMTP port
	}
	return &Mailer{
		dialer:   gomail.NewDialer(cfg.Host, port, cfg.Username, cfg.Password),
		from:     cfg.From,
		fromName: cfg.FromName,
	}
}

// Send delivers one message. gomail has no context support, so ctx only
// bounds how long the caller waits.
func (m *Mailer) Send(ctx context.Context, to, subject, htmlBody string, attachments ...Attachment) error {
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.from, m.fromName)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	for _, a := range attachments {
		data := a.Data
		settings := []gomail.FileSetting{
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}),
		}
		if a.ContentType != "" {
			settings = append(settings, gomail.SetHeader(map[string][]string{"Content-Type": {a.ContentType}}))
		}
		msg.Attach(a.Filename, settings...)
	}

	err := CallWithContext(ctx, func() error {
		return m.dialer.DialAndSend(msg)
	})
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
