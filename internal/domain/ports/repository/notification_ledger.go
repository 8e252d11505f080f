package repository

import (
	"context"

	"booking-agent-billing/internal/domain/model"
)

// -----------------------------
// Notification Ledger
// -----------------------------

type NotificationLedgerRepository interface {
	// RecordSent appends a ledger entry. The database UNIQUE constraint on
	// (recipient, kind, dedup_key) is the correctness boundary: inserting a
	// duplicate is a silent no-op, never an error, so concurrent or repeated
	// evaluation cannot double-send.
	RecordSent(ctx context.Context, tx Tx, e *model.NotificationEntry) error
	// HasSent checks whether a notification was already recorded. It is a
	// cost-saving short-circuit only; callers must not rely on the
	// check+insert pair being atomic.
	HasSent(ctx context.Context, tx Tx, recipient string, kind model.NotificationKind, dedupKey string) (bool, error)
	// ListByRecipient returns send history, newest first.
	ListByRecipient(ctx context.Context, tx Tx, recipient string, limit int) ([]*model.NotificationEntry, error)
}
