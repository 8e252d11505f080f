package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"booking-agent-billing/internal/domain"
	"booking-agent-billing/internal/domain/model"
	"booking-agent-billing/internal/domain/ports/repository"
)

var _ repository.NotificationLedgerRepository = (*notificationLedgerRepo)(nil)

type notificationLedgerRepo struct {
	pool *pgxpool.Pool
}

func NewNotificationLedgerRepo(pool *pgxpool.Pool) *notificationLedgerRepo {
	return &notificationLedgerRepo{pool: pool}
}

func (r *notificationLedgerRepo) RecordSent(ctx context.Context, tx repository.Tx, e *model.NotificationEntry) error {
	const q = `
INSERT INTO notification_ledger (id, recipient, kind, dedup_key, meta, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (recipient, kind, dedup_key) DO NOTHING`

	// No existence check here. The UNIQUE constraint on
	// (recipient, kind, dedup_key) plus DO NOTHING makes a duplicate insert
	// a harmless no-op, which is what keeps concurrent evaluation from
	// double-sending.
	_, err := execSQL(ctx, r.pool, tx, q, e.ID, e.Recipient, string(e.Kind), e.DedupKey, e.Meta, e.CreatedAt)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return err
		default:
			return domain.ErrOperationFailed
		}
	}
	return nil
}

func (r *notificationLedgerRepo) HasSent(ctx context.Context, tx repository.Tx, recipient string, kind model.NotificationKind, dedupKey string) (bool, error) {
	// SELECT EXISTS(...) stops on the first match.
	const q = `
SELECT EXISTS(
    SELECT 1 FROM notification_ledger
    WHERE recipient = $1 AND kind = $2 AND dedup_key = $3
)`
	var exists bool
	row, err := pickRow(ctx, r.pool, tx, q, recipient, string(kind), dedupKey)
	if err != nil {
		return false, err
	}

	if err := row.Scan(&exists); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil // Should not happen with SELECT EXISTS, but safe to handle.
		}
		return false, domain.ErrReadDatabaseRow
	}
	return exists, nil
}

func (r *notificationLedgerRepo) ListByRecipient(ctx context.Context, tx repository.Tx, recipient string, limit int) ([]*model.NotificationEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT id, recipient, kind, dedup_key, meta, created_at
  FROM notification_ledger
 WHERE recipient = $1
 ORDER BY created_at DESC
 LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, recipient, limit)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()
	var out []*model.NotificationEntry
	for rows.Next() {
		e := &model.NotificationEntry{}
		var kind string
		if err := rows.Scan(&e.ID, &e.Recipient, &kind, &e.DedupKey, &e.Meta, &e.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		e.Kind = model.NotificationKind(kind)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}
