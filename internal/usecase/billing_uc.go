// File: internal/usecase/billing_uc.go
package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"booking-agent-billing/internal/domain"
	"booking-agent-billing/internal/domain/model"
	"booking-agent-billing/internal/domain/ports/adapter"
	"booking-agent-billing/internal/domain/ports/repository"
	"booking-agent-billing/internal/infra/logging"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// OutcomeStatus classifies what processing an event did. The dispatcher
// turns Failed into a negative acknowledgment (provider redelivers) and
// everything else into a positive one. Skips are successes from the
// provider's point of view: the event content is permanently unprocessable
// or irrelevant, and redelivery would not change that.
type OutcomeStatus string

const (
	OutcomeApplied OutcomeStatus = "applied"
	OutcomeSkipped OutcomeStatus = "skipped"
	OutcomeFailed  OutcomeStatus = "failed"
)

type Outcome struct {
	Status OutcomeStatus
	Reason string
	Err    error
}

func applied() Outcome                { return Outcome{Status: OutcomeApplied} }
func skipped(reason string) Outcome   { return Outcome{Status: OutcomeSkipped, Reason: reason} }
func failed(err error) Outcome        { return Outcome{Status: OutcomeFailed, Err: err} }

// Compile-time check
var _ BillingEventUseCase = (*billingEventUC)(nil)

type BillingEventUseCase interface {
	// Process verifies and applies one raw webhook delivery. A non-nil error
	// means the payload failed authentication and was not processed at all;
	// every other result is described by the Outcome.
	Process(ctx context.Context, payload []byte, signature string) (string, Outcome, error)
}

type billingEventUC struct {
	provider   adapter.BillingProvider
	txm        repository.TransactionManager
	subs       repository.SubscriptionRepository
	businesses repository.BusinessRepository
	users      repository.UserRepository
	notifier   NotificationUseCase
	catalog    *model.PlanCatalog
	retry      RetryPolicy
	log        *zerolog.Logger
}

func NewBillingEventUseCase(
	provider adapter.BillingProvider,
	txm repository.TransactionManager,
	subs repository.SubscriptionRepository,
	businesses repository.BusinessRepository,
	users repository.UserRepository,
	notifier NotificationUseCase,
	catalog *model.PlanCatalog,
	retry RetryPolicy,
	logger *zerolog.Logger,
) *billingEventUC {
	l := logger.With().Str("component", "BillingEventUC").Logger()
	return &billingEventUC{
		provider:   provider,
		txm:        txm,
		subs:       subs,
		businesses: businesses,
		users:      users,
		notifier:   notifier,
		catalog:    catalog,
		retry:      retry,
		log:        &l,
	}
}

func (u *billingEventUC) Process(ctx context.Context, payload []byte, signature string) (string, Outcome, error) {
	defer logging.TraceDuration(u.log, "BillingEventUC.Process")()

	ev, err := u.provider.VerifyEvent(payload, signature)
	if err != nil {
		u.log.Warn().Err(err).Msg("webhook signature verification failed")
		return "", Outcome{}, domain.ErrInvalidSignature
	}

	var out Outcome
	switch ev.Type {
	case "checkout.session.completed":
		out = u.handleCheckoutCompleted(ctx, ev)
	case "invoice.paid":
		out = u.handleInvoicePaid(ctx, ev)
	case "customer.subscription.updated":
		out = u.handleSubscriptionUpdated(ctx, ev)
	case "customer.subscription.deleted":
		out = u.handleSubscriptionCanceled(ctx, ev)
	default:
		out = skipped("unhandled event type")
	}

	switch out.Status {
	case OutcomeApplied:
		u.log.Info().Str("event_id", ev.ID).Str("type", ev.Type).Msg("event applied")
	case OutcomeSkipped:
		u.log.Info().Str("event_id", ev.ID).Str("type", ev.Type).Str("reason", out.Reason).Msg("event skipped")
	case OutcomeFailed:
		u.log.Error().Err(out.Err).Str("event_id", ev.ID).Str("type", ev.Type).Msg("event processing failed")
	}
	return ev.Type, out, nil
}

// Event payload shapes, reduced to the fields reconciliation reads.
// References to other provider objects arrive as plain id strings.

type checkoutSessionPayload struct {
	Customer     string            `json:"customer"`
	Subscription string            `json:"subscription"`
	Metadata     map[string]string `json:"metadata"`
}

type invoicePayload struct {
	ID                string `json:"id"`
	Customer          string `json:"customer"`
	Subscription      string `json:"subscription"`
	AmountPaid        int64  `json:"amount_paid"`
	Currency          string `json:"currency"`
	HostedInvoiceURL  string `json:"hosted_invoice_url"`
	StatusTransitions struct {
		PaidAt int64 `json:"paid_at"`
	} `json:"status_transitions"`
}

type subscriptionPayload struct {
	ID               string `json:"id"`
	Customer         string `json:"customer"`
	Status           string `json:"status"`
	CurrentPeriodEnd int64  `json:"current_period_end"`
	Items            struct {
		Data []struct {
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

// handleCheckoutCompleted creates or refreshes the subscription row for the
// user named in the session metadata. It intentionally sends no email; the
// invoice.paid event is the single authoritative "payment succeeded" trigger
// no matter how many checkout-adjacent events fire.
func (u *billingEventUC) handleCheckoutCompleted(ctx context.Context, ev *adapter.BillingEvent) Outcome {
	var cs checkoutSessionPayload
	if err := json.Unmarshal(ev.Data, &cs); err != nil {
		return skipped("malformed checkout session payload")
	}
	userID := cs.Metadata["user_id"]
	if userID == "" {
		// Possibly a test fixture or a session created outside the app.
		return skipped("checkout session has no user_id metadata")
	}
	if cs.Subscription == "" {
		return skipped("checkout session has no subscription reference")
	}

	ps, err := u.provider.FetchSubscription(ctx, cs.Subscription)
	if err != nil {
		return failed(fmt.Errorf("fetch provider subscription %s: %w", cs.Subscription, err))
	}

	plan, ok := u.catalog.ResolvePrice(ps.PriceID)
	if !ok {
		u.log.Warn().Str("price_id", ps.PriceID).Str("user_id", userID).Msg("unknown price reference")
		return skipped("unknown price reference")
	}

	status := u.mapStatus(ps.Status, userID)

	sub, err := model.NewSubscription(userID, plan.ID, status)
	if err != nil {
		return failed(err)
	}
	sub.ProviderCustomerID = cs.Customer
	sub.ProviderSubscriptionID = ps.ID
	sub.ProviderPriceID = ps.PriceID
	sub.CurrentPeriodEnd = ps.CurrentPeriodEnd

	// Placeholder business and subscription land together or not at all; a
	// half-applied checkout would strand the subscription without an owner.
	err = u.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		businessID, err := u.resolveOrCreateBusiness(ctx, tx, userID)
		if err != nil {
			return err
		}
		sub.BusinessID = &businessID
		if err := u.subs.Upsert(ctx, tx, sub); err != nil {
			return fmt.Errorf("upsert subscription for user %s: %w", userID, err)
		}
		return nil
	})
	if err != nil {
		return failed(err)
	}
	return applied()
}

// handleInvoicePaid resolves the local row by customer reference and fires
// the ledger-guarded payment-confirmation email. The provider does not
// guarantee ordering across webhook types, so the invoice can land before
// checkout.session.completed has created the row; the retry policy bridges
// that window.
func (u *billingEventUC) handleInvoicePaid(ctx context.Context, ev *adapter.BillingEvent) Outcome {
	var inv invoicePayload
	if err := json.Unmarshal(ev.Data, &inv); err != nil {
		return skipped("malformed invoice payload")
	}
	if inv.Customer == "" {
		return skipped("invoice has no customer reference")
	}

	sub, err := u.retry.Resolve(ctx, func(ctx context.Context) (*model.Subscription, error) {
		return u.subs.FindByCustomerID(ctx, repository.NoTX, inv.Customer)
	})
	if errors.Is(err, domain.ErrNotFound) {
		// Still acknowledged; endless redelivery would not create the row.
		u.log.Warn().Str("customer_id", inv.Customer).Str("invoice_id", inv.ID).Msg("no subscription resolved for paid invoice after retries")
		return skipped("subscription not resolved for customer")
	}
	if err != nil {
		return failed(fmt.Errorf("resolve subscription by customer %s: %w", inv.Customer, err))
	}

	user, err := u.users.FindByID(ctx, repository.NoTX, sub.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		u.log.Warn().Str("user_id", sub.UserID).Msg("subscription references missing user")
		return skipped("recipient user not found")
	}
	if err != nil {
		return failed(fmt.Errorf("resolve user %s: %w", sub.UserID, err))
	}

	dedupKey := inv.ID
	if dedupKey == "" {
		paidAt := time.Unix(inv.StatusTransitions.PaidAt, 0).UTC()
		dedupKey = sub.ProviderSubscriptionID + "|" + paidAt.Format(time.RFC3339)
	}
	params := map[string]string{
		"amount":      fmt.Sprintf("%.2f", float64(inv.AmountPaid)/100),
		"currency":    strings.ToUpper(inv.Currency),
		"plan":        u.catalog.NameOf(sub.PlanID),
		"invoice_url": inv.HostedInvoiceURL,
	}

	// The email leg is best-effort: the billing state is already consistent,
	// so a dispatch or ledger failure must not trigger redelivery.
	if _, err := u.notifier.GuardedSend(ctx, user.ID, user.Email, model.NotificationKindInvoicePaid, dedupKey, params); err != nil {
		u.log.Warn().Err(err).Str("invoice_id", inv.ID).Str("user_id", user.ID).Msg("invoice-paid notification leg failed")
	}
	return applied()
}

// handleSubscriptionUpdated refreshes status, price, plan and period end from
// the provider item data. A missing local row is a legitimate ordering race
// and is skipped without retry; an update has no user-facing urgency.
func (u *billingEventUC) handleSubscriptionUpdated(ctx context.Context, ev *adapter.BillingEvent) Outcome {
	var sp subscriptionPayload
	if err := json.Unmarshal(ev.Data, &sp); err != nil {
		return skipped("malformed subscription payload")
	}
	if sp.ID == "" {
		return skipped("subscription event has no id")
	}

	sub, err := u.subs.FindByProviderSubID(ctx, repository.NoTX, sp.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return skipped("no local subscription for update")
	}
	if err != nil {
		return failed(fmt.Errorf("resolve subscription %s: %w", sp.ID, err))
	}

	sub.Status = u.mapStatus(sp.Status, sub.UserID)
	if len(sp.Items.Data) > 0 {
		priceID := sp.Items.Data[0].Price.ID
		sub.ProviderPriceID = priceID
		// Only overwrite the plan when the price is resolvable; an unmapped
		// price must not wipe the existing assignment.
		if plan, ok := u.catalog.ResolvePrice(priceID); ok {
			sub.PlanID = plan.ID
		}
	}
	if sp.CurrentPeriodEnd > 0 {
		end := time.Unix(sp.CurrentPeriodEnd, 0).UTC()
		sub.CurrentPeriodEnd = &end
	}
	sub.UpdatedAt = time.Now()

	if err := u.subs.Upsert(ctx, repository.NoTX, sub); err != nil {
		return failed(fmt.Errorf("update subscription %s: %w", sp.ID, err))
	}
	return applied()
}

// handleSubscriptionCanceled marks the local row canceled. Rows are never
// hard-deleted.
func (u *billingEventUC) handleSubscriptionCanceled(ctx context.Context, ev *adapter.BillingEvent) Outcome {
	var sp subscriptionPayload
	if err := json.Unmarshal(ev.Data, &sp); err != nil {
		return skipped("malformed subscription payload")
	}
	if sp.ID == "" {
		return skipped("subscription event has no id")
	}

	sub, err := u.subs.FindByProviderSubID(ctx, repository.NoTX, sp.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return skipped("no local subscription for cancellation")
	}
	if err != nil {
		return failed(fmt.Errorf("resolve subscription %s: %w", sp.ID, err))
	}

	sub.Status = model.SubscriptionStatusCanceled
	sub.UpdatedAt = time.Now()
	if err := u.subs.Upsert(ctx, repository.NoTX, sub); err != nil {
		return failed(fmt.Errorf("cancel subscription %s: %w", sp.ID, err))
	}
	return applied()
}

func (u *billingEventUC) mapStatus(providerStatus, userID string) model.SubscriptionStatus {
	status, known := model.MapProviderStatus(providerStatus)
	if !known {
		u.log.Warn().Str("provider_status", providerStatus).Str("user_id", userID).Msg("unrecognized provider status; defaulting to active")
	}
	return status
}

func (u *billingEventUC) resolveOrCreateBusiness(ctx context.Context, tx repository.Tx, userID string) (string, error) {
	b, err := u.businesses.FindByOwner(ctx, tx, userID)
	if err == nil {
		return b.ID, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return "", fmt.Errorf("resolve business for user %s: %w", userID, err)
	}
	// Payment can precede onboarding; attach the subscription to a
	// placeholder business the wizard will complete later.
	placeholder, err := model.NewPlaceholderBusiness(uuid.NewString(), userID)
	if err != nil {
		return "", err
	}
	if err := u.businesses.Save(ctx, tx, placeholder); err != nil {
		return "", fmt.Errorf("create placeholder business for user %s: %w", userID, err)
	}
	u.log.Info().Str("user_id", userID).Str("business_id", placeholder.ID).Msg("created placeholder business in onboarding status")
	return placeholder.ID, nil
}
