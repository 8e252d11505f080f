package repository

import (
	"context"

	"booking-agent-billing/internal/domain/model"
)

type BusinessRepository interface {
	Save(ctx context.Context, tx Tx, b *model.Business) error
	FindByOwner(ctx context.Context, tx Tx, ownerUserID string) (*model.Business, error)
}
