package model

import (
	"time"

	"booking-agent-billing/internal/domain"
)

type NotificationKind string

const (
	NotificationKindInvoicePaid NotificationKind = "invoice_paid"
	NotificationKindExpired     NotificationKind = "expired"
	NotificationKindNudge1d     NotificationKind = "nudge_1d"
	NotificationKindNudge7d     NotificationKind = "nudge_7d"
)

// NotificationEntry is one row of the append-only send ledger. The triple
// (Recipient, Kind, DedupKey) is unique; inserting a duplicate is a no-op.
// Rows are never updated or deleted, so the ledger doubles as send history.
type NotificationEntry struct {
	ID        string // ULID, sortable by creation time
	Recipient string
	Kind      NotificationKind
	DedupKey  string
	Meta      map[string]string
	CreatedAt time.Time
}

func NewNotificationEntry(id, recipient string, kind NotificationKind, dedupKey string, meta map[string]string) (*NotificationEntry, error) {
	if id == "" || recipient == "" || kind == "" || dedupKey == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &NotificationEntry{
		ID:        id,
		Recipient: recipient,
		Kind:      kind,
		DedupKey:  dedupKey,
		Meta:      meta,
		CreatedAt: time.Now(),
	}, nil
}
