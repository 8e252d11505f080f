// File: internal/infra/adapters/mail/sendgrid_mailer.go
package mail

import (
	"context"
	"fmt"

	"booking-agent-billing/internal/domain/model"
	"booking-agent-billing/internal/domain/ports/adapter"
	"booking-agent-billing/internal/infra/metrics"

	sendgridgo "github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/rs/zerolog"
)

// Ensure compile-time conformance
var _ adapter.Mailer = (*SendGridMailer)(nil)

type SendGridMailer struct {
	client     *sendgridgo.Client
	sender     string
	senderName string
	log        *zerolog.Logger
}

func NewSendGridMailer(apiKey, sender, senderName string, logger *zerolog.Logger) *SendGridMailer {
	l := logger.With().Str("component", "SendGridMailer").Logger()
	return &SendGridMailer{
		client:     sendgridgo.NewSendClient(apiKey),
		sender:     sender,
		senderName: senderName,
		log:        &l,
	}
}

func (m *SendGridMailer) Send(ctx context.Context, toEmail string, kind model.NotificationKind, params map[string]string) error {
	subject, body := render(kind, params)
	from := sgmail.NewEmail(m.senderName, m.sender)
	to := sgmail.NewEmail("", toEmail)
	message := sgmail.NewSingleEmail(from, subject, to, body, "")

	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
	}
	metrics.IncNotificationSent(string(kind))
	m.log.Debug().Str("to", toEmail).Str("kind", string(kind)).Msg("email dispatched")
	return nil
}

func render(kind model.NotificationKind, params map[string]string) (subject, body string) {
	switch kind {
	case model.NotificationKindInvoicePaid:
		subject = "Payment received"
		body = fmt.Sprintf(
			"We received your payment of %s %s for the %s plan.\nInvoice: %s\n",
			params["amount"], params["currency"], params["plan"], params["invoice_url"])
	case model.NotificationKindExpired:
		subject = "Your subscription has expired"
		body = fmt.Sprintf(
			"Your %s plan expired on %s. Renew to keep your booking page online.\n",
			params["plan"], params["period_end"])
	case model.NotificationKindNudge1d:
		subject = "Your subscription renews tomorrow"
		body = fmt.Sprintf(
			"Your %s plan renews on %s. No action is needed if your payment method is up to date.\n",
			params["plan"], params["period_end"])
	case model.NotificationKindNudge7d:
		subject = "Your subscription renews within a week"
		body = fmt.Sprintf(
			"Your %s plan renews on %s.\n",
			params["plan"], params["period_end"])
	default:
		subject = "Notification"
		body = fmt.Sprintf("kind=%s params=%v\n", kind, params)
	}
	return subject, body
}
