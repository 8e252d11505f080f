package adapter

import (
	"context"

	"booking-agent-billing/internal/domain/model"
)

// Mailer sends a templated notification email. Best-effort: callers log a
// failed send but never retry it synchronously and never let it fail the
// surrounding billing mutation.
type Mailer interface {
	Send(ctx context.Context, toEmail string, kind model.NotificationKind, params map[string]string) error
}
