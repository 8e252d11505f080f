package model

import (
	"time"

	"booking-agent-billing/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusTrialing SubscriptionStatus = "trialing"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
)

// Subscription is the single authoritative billing row for a user. There is
// at most one row per user; webhook handlers upsert it keyed by UserID.
type Subscription struct {
	UserID                 string
	BusinessID             *string // nil until the owning business is resolved
	PlanID                 string
	Status                 SubscriptionStatus
	ProviderCustomerID     string
	ProviderSubscriptionID string
	ProviderPriceID        string
	CurrentPeriodEnd       *time.Time // nil until the provider reports a period
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// NewSubscription validates and constructs a subscription row.
func NewSubscription(userID, planID string, status SubscriptionStatus) (*Subscription, error) {
	if userID == "" || planID == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Subscription{
		UserID:    userID,
		PlanID:    planID,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// MapProviderStatus maps a provider-reported subscription status onto the
// four internal statuses. The second return reports whether the provider
// value was recognized; unrecognized values fall back to active, which keeps
// access granted rather than revoking it. Callers that care should log the
// fallback.
func MapProviderStatus(providerStatus string) (SubscriptionStatus, bool) {
	switch providerStatus {
	case "active":
		return SubscriptionStatusActive, true
	case "trialing":
		return SubscriptionStatusTrialing, true
	case "past_due", "unpaid":
		return SubscriptionStatusPastDue, true
	case "canceled", "incomplete_expired":
		return SubscriptionStatusCanceled, true
	default:
		return SubscriptionStatusActive, false
	}
}
