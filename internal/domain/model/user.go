package model

import (
	"time"

	"booking-agent-billing/internal/domain"
)

// User carries the identity fields the billing core needs: the join key and
// the email address notifications are delivered to. Profile data lives with
// the dashboard, outside this module.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	RegisteredAt time.Time
}

func NewUser(id, email, displayName string) (*User, error) {
	if id == "" || email == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &User{
		ID:           id,
		Email:        email,
		DisplayName:  displayName,
		RegisteredAt: time.Now(),
	}, nil
}
