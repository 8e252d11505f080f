package model

import (
	"time"

	"booking-agent-billing/internal/domain"
)

type BusinessStatus string

const (
	BusinessStatusOnboarding BusinessStatus = "onboarding"
	BusinessStatusActive     BusinessStatus = "active"
)

// Business is the bookable entity a subscription attaches to. Payment can
// legitimately precede onboarding, so the event processor creates a
// placeholder row in onboarding status when none exists yet.
type Business struct {
	ID          string // UUID
	OwnerUserID string
	Name        string
	Status      BusinessStatus
	CreatedAt   time.Time
}

// NewPlaceholderBusiness creates the minimal business row needed to attach a
// subscription for a user who paid before completing onboarding.
func NewPlaceholderBusiness(id, ownerUserID string) (*Business, error) {
	if id == "" || ownerUserID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Business{
		ID:          id,
		OwnerUserID: ownerUserID,
		Name:        "Pending setup",
		Status:      BusinessStatusOnboarding,
		CreatedAt:   time.Now(),
	}, nil
}
