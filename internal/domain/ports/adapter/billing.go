package adapter

import (
	"context"
	"time"
)

// BillingEvent is a verified provider webhook event. Data holds the raw JSON
// of the event object for the handler to decode.
type BillingEvent struct {
	ID   string
	Type string
	Data []byte
}

// ProviderSubscription is the provider-side view of a subscription, reduced
// to the fields reconciliation needs (taken from the first billing item).
type ProviderSubscription struct {
	ID               string
	CustomerID       string
	PriceID          string
	Status           string
	CurrentPeriodEnd *time.Time
}

// BillingProvider is the payment provider surface the event processor
// depends on. The production implementation wraps the Stripe SDK.
type BillingProvider interface {
	// VerifyEvent checks the payload signature against the shared secret and
	// returns the decoded event. A bad or missing signature is an error and
	// the payload must not be processed.
	VerifyEvent(payload []byte, signature string) (*BillingEvent, error)
	// FetchSubscription resolves a provider subscription by its reference.
	FetchSubscription(ctx context.Context, providerSubID string) (*ProviderSubscription, error)
}
