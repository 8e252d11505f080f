package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"booking-agent-billing/internal/domain"
	"booking-agent-billing/internal/domain/model"
	"booking-agent-billing/internal/domain/ports/repository"
)

var _ repository.BusinessRepository = (*businessRepo)(nil)

type businessRepo struct {
	pool *pgxpool.Pool
}

func NewBusinessRepo(pool *pgxpool.Pool) *businessRepo {
	return &businessRepo{pool: pool}
}

func (r *businessRepo) Save(ctx context.Context, tx repository.Tx, b *model.Business) error {
	const q = `
INSERT INTO businesses (id, owner_user_id, name, status, created_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (id) DO UPDATE SET name=$3, status=$4;`

	_, err := execSQL(ctx, r.pool, tx, q, b.ID, b.OwnerUserID, b.Name, string(b.Status), b.CreatedAt)
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

func (r *businessRepo) FindByOwner(ctx context.Context, tx repository.Tx, ownerUserID string) (*model.Business, error) {
	const q = `
SELECT id, owner_user_id, name, status, created_at
  FROM businesses
 WHERE owner_user_id=$1
 ORDER BY created_at ASC
 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, ownerUserID)
	if err != nil {
		return nil, err
	}

	b := &model.Business{}
	var status string
	if err := row.Scan(&b.ID, &b.OwnerUserID, &b.Name, &status, &b.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	b.Status = model.BusinessStatus(status)
	return b, nil
}
