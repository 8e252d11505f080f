// File: internal/usecase/notification_uc.go
package usecase

import (
	"context"

	"booking-agent-billing/internal/domain/model"
	"booking-agent-billing/internal/domain/ports/adapter"
	"booking-agent-billing/internal/domain/ports/repository"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ NotificationUseCase = (*notificationUC)(nil)

type NotificationUseCase interface {
	// HasSent reports whether the ledger already holds the triple.
	HasSent(ctx context.Context, recipient string, kind model.NotificationKind, dedupKey string) (bool, error)
	// GuardedSend performs a ledger-guarded email dispatch: check the ledger,
	// send, then record. The returned bool is true when an email actually
	// went out this call.
	//
	// Ordering is write-after-send in every path: a failed dispatch leaves no
	// ledger row, so the next evaluation retries it; a crash between send and
	// record may duplicate one email. The ledger's insert-or-ignore conflict
	// handling, not the HasSent check, is the correctness boundary.
	GuardedSend(ctx context.Context, recipient, email string, kind model.NotificationKind, dedupKey string, params map[string]string) (bool, error)
}

type notificationUC struct {
	ledger repository.NotificationLedgerRepository
	mailer adapter.Mailer
	log    *zerolog.Logger
}

func NewNotificationUseCase(ledger repository.NotificationLedgerRepository, mailer adapter.Mailer, logger *zerolog.Logger) *notificationUC {
	l := logger.With().Str("component", "NotificationUC").Logger()
	return &notificationUC{ledger: ledger, mailer: mailer, log: &l}
}

func (n *notificationUC) HasSent(ctx context.Context, recipient string, kind model.NotificationKind, dedupKey string) (bool, error) {
	return n.ledger.HasSent(ctx, repository.NoTX, recipient, kind, dedupKey)
}

func (n *notificationUC) GuardedSend(ctx context.Context, recipient, email string, kind model.NotificationKind, dedupKey string, params map[string]string) (bool, error) {
	sent, err := n.ledger.HasSent(ctx, repository.NoTX, recipient, kind, dedupKey)
	if err != nil {
		return false, err
	}
	if sent {
		n.log.Debug().Str("recipient", recipient).Str("kind", string(kind)).Str("dedup_key", dedupKey).Msg("notification already sent; skipping")
		return false, nil
	}

	if err := n.mailer.Send(ctx, email, kind, params); err != nil {
		return false, err
	}

	entry, err := model.NewNotificationEntry(ulid.Make().String(), recipient, kind, dedupKey, params)
	if err != nil {
		return true, err
	}
	if err := n.ledger.RecordSent(ctx, repository.NoTX, entry); err != nil {
		// The email is out but the ledger row is missing; the next
		// evaluation may send again. Surface the error so callers can count
		// it, but the send itself happened.
		n.log.Error().Err(err).Str("recipient", recipient).Str("kind", string(kind)).Str("dedup_key", dedupKey).Msg("ledger write failed after send")
		return true, err
	}
	return true, nil
}
