// Package delivery emails rendered invoices to the client address. Delivery
// is decoupled from the request cycle: failures are retried with backoff and
// surfaced on the invoice's delivery_status, never as a failed HTTP
// response, and never by rolling back the artifact.
package delivery

import (
	"bytes"
	"context"
	"fmt"

	"github.com/wneessen/go-mail"

	"github.com/invoiceforge/backend/internal/models"
)

// Sender sends one invoice email with the PDF attached.
type Sender interface {
	Send(ctx context.Context, inv *models.Invoice, pdf []byte) error
}

// ArtifactLoader fetches the stored PDF bytes for an invoice id.
type ArtifactLoader interface {
	Load(id string) ([]byte, error)
}

// Queue hands an invoice off for asynchronous delivery.
type Queue interface {
	Enqueue(ctx context.Context, invoiceID string) error
}

// SMTPMailer sends via an outbound SMTP relay.
type SMTPMailer struct {
	client *mail.Client
	from   string
}

func NewSMTPMailer(host string, port int, username, password, from string) (*SMTPMailer, error) {
	opts := []mail.Option{mail.WithPort(port)}
	if username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(username),
			mail.WithPassword(password),
		)
	}
	client, err := mail.NewClient(host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPMailer{client: client, from: from}, nil
}

var _ Sender = (*SMTPMailer)(nil)

func (m *SMTPMailer) Send(ctx context.Context, inv *models.Invoice, pdf []byte) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("from address: %w", err)
	}
	if err := msg.To(inv.ClientEmail); err != nil {
		return fmt.Errorf("to address: %w", err)
	}
	msg.Subject(fmt.Sprintf("Invoice %s", inv.InvoiceNumber))
	msg.SetBodyString(mail.TypeTextPlain, fmt.Sprintf(
		"Hi %s,\n\nPlease find invoice %s attached. The total due is $%.2f.\n",
		inv.ClientName, inv.InvoiceNumber, inv.Total))
	msg.AttachReader(inv.ID+".pdf", bytes.NewReader(pdf))

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send invoice %s: %w", inv.ID, err)
	}
	return nil
}
