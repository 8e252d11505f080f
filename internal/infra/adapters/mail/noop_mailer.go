package mail

import (
	"context"

	"booking-agent-billing/internal/domain/model"
	"booking-agent-billing/internal/domain/ports/adapter"

	"github.com/rs/zerolog"
)

var _ adapter.Mailer = (*NoopMailer)(nil)

// NoopMailer logs instead of sending. Used in dev mode.
type NoopMailer struct {
	log *zerolog.Logger
}

func NewNoopMailer(logger *zerolog.Logger) *NoopMailer {
	l := logger.With().Str("component", "NoopMailer").Logger()
	return &NoopMailer{log: &l}
}

func (m *NoopMailer) Send(ctx context.Context, toEmail string, kind model.NotificationKind, params map[string]string) error {
	m.log.Info().Str("to", toEmail).Str("kind", string(kind)).Interface("params", params).Msg("noop mailer: would send email")
	return nil
}
