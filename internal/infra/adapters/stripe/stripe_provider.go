// File: internal/infra/adapters/stripe/stripe_provider.go
package stripe

import (
	"context"
	"time"

	"booking-agent-billing/internal/domain/ports/adapter"

	stripego "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// Ensure compile-time conformance
var _ adapter.BillingProvider = (*Provider)(nil)

// Provider wraps the Stripe SDK behind the BillingProvider port.
type Provider struct {
	api           *client.API
	webhookSecret string
}

func NewProvider(apiKey, webhookSecret string) *Provider {
	api := &client.API{}
	api.Init(apiKey, nil)
	return &Provider{api: api, webhookSecret: webhookSecret}
}

// VerifyEvent checks the Stripe-Signature header against the endpoint secret
// and returns the decoded event envelope.
func (p *Provider) VerifyEvent(payload []byte, signature string) (*adapter.BillingEvent, error) {
	ev, err := webhook.ConstructEvent(payload, signature, p.webhookSecret)
	if err != nil {
		return nil, err
	}
	return &adapter.BillingEvent{
		ID:   ev.ID,
		Type: string(ev.Type),
		Data: ev.Data.Raw,
	}, nil
}

// FetchSubscription loads the subscription and reduces it to the fields
// reconciliation needs, taking price from the first billing item.
func (p *Provider) FetchSubscription(ctx context.Context, providerSubID string) (*adapter.ProviderSubscription, error) {
	params := &stripego.SubscriptionParams{}
	params.Context = ctx
	sub, err := p.api.Subscriptions.Get(providerSubID, params)
	if err != nil {
		return nil, err
	}

	out := &adapter.ProviderSubscription{
		ID:     sub.ID,
		Status: string(sub.Status),
	}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		out.PriceID = sub.Items.Data[0].Price.ID
	}
	if sub.CurrentPeriodEnd > 0 {
		end := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		out.CurrentPeriodEnd = &end
	}
	return out, nil
}
