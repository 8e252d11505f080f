package repository

import (
	"context"

	"booking-agent-billing/internal/domain/model"
)

type SubscriptionRepository interface {
	// Upsert writes the row keyed by user id. Overlapping webhook deliveries
	// may upsert the same row concurrently; last write wins on mutable fields
	// because each event recomputes them from the provider payload.
	Upsert(ctx context.Context, tx Tx, s *model.Subscription) error
	FindByUserID(ctx context.Context, tx Tx, userID string) (*model.Subscription, error)
	FindByCustomerID(ctx context.Context, tx Tx, customerID string) (*model.Subscription, error)
	FindByProviderSubID(ctx context.Context, tx Tx, providerSubID string) (*model.Subscription, error)
	// ListActiveWithPeriodEnd returns the expiry scanner's working set:
	// status=active rows that have a non-null current_period_end.
	ListActiveWithPeriodEnd(ctx context.Context, tx Tx) ([]*model.Subscription, error)
	CountByStatus(ctx context.Context, tx Tx) (map[model.SubscriptionStatus]int, error)
}
