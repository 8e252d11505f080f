// File: internal/usecase/scanner_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"booking-agent-billing/internal/domain"
	"booking-agent-billing/internal/domain/model"
	"booking-agent-billing/internal/domain/ports/repository"
	"booking-agent-billing/internal/infra/logging"

	"github.com/rs/zerolog"
)

// ScanReport summarizes one expiry-scanner run.
type ScanReport struct {
	Processed int `json:"processed"`
	Errors    int `json:"errors"`
	Total     int `json:"total"`
}

// Compile-time check
var _ ExpiryScanUseCase = (*expiryScanUC)(nil)

type ExpiryScanUseCase interface {
	// Run classifies every active subscription with a known period end
	// against local midnight and attempts a ledger-guarded notification per
	// classified row. A failing row is counted and skipped, never aborts the
	// rest of the scan.
	Run(ctx context.Context) (ScanReport, error)
}

type expiryScanUC struct {
	subs          repository.SubscriptionRepository
	users         repository.UserRepository
	notifier      NotificationUseCase
	catalog       *model.PlanCatalog
	lookaheadDays int
	now           func() time.Time
	log           *zerolog.Logger
}

func NewExpiryScanUseCase(
	subs repository.SubscriptionRepository,
	users repository.UserRepository,
	notifier NotificationUseCase,
	catalog *model.PlanCatalog,
	lookaheadDays int,
	logger *zerolog.Logger,
) *expiryScanUC {
	if lookaheadDays <= 0 {
		lookaheadDays = 7
	}
	l := logger.With().Str("component", "ExpiryScanUC").Logger()
	return &expiryScanUC{
		subs:          subs,
		users:         users,
		notifier:      notifier,
		catalog:       catalog,
		lookaheadDays: lookaheadDays,
		now:           time.Now,
		log:           &l,
	}
}

// WithNow overrides the scanner's clock. Test hook.
func (s *expiryScanUC) WithNow(now func() time.Time) *expiryScanUC {
	s.now = now
	return s
}

func (s *expiryScanUC) Run(ctx context.Context) (ScanReport, error) {
	defer logging.TraceDuration(s.log, "ExpiryScanUC.Run")()

	var report ScanReport

	rows, err := s.subs.ListActiveWithPeriodEnd(ctx, repository.NoTX)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return report, err
	}
	report.Total = len(rows)

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	for _, sub := range rows {
		if sub.CurrentPeriodEnd == nil || sub.Status != model.SubscriptionStatusActive {
			continue
		}
		kind, ok := classifyPeriodEnd(today, *sub.CurrentPeriodEnd, s.lookaheadDays)
		if !ok {
			continue
		}
		if err := s.notifyOne(ctx, sub, kind); err != nil {
			report.Errors++
			s.log.Error().Err(err).Str("user_id", sub.UserID).Str("kind", string(kind)).Msg("expiry notification failed")
			continue
		}
		report.Processed++
	}
	return report, nil
}

// classifyPeriodEnd assigns a period end to at most one notification class.
// Classes are checked in priority order so boundaries land in the lower
// class: an end exactly one day out is a 1-day nudge, not a 7-day one.
func classifyPeriodEnd(today, end time.Time, lookaheadDays int) (model.NotificationKind, bool) {
	switch {
	case end.Before(today):
		return model.NotificationKindExpired, true
	case !end.After(today.AddDate(0, 0, 1)):
		return model.NotificationKindNudge1d, true
	case !end.After(today.AddDate(0, 0, lookaheadDays)):
		return model.NotificationKindNudge7d, true
	}
	return "", false
}

func (s *expiryScanUC) notifyOne(ctx context.Context, sub *model.Subscription, kind model.NotificationKind) error {
	user, err := s.users.FindByID(ctx, repository.NoTX, sub.UserID)
	if err != nil {
		return err
	}

	// The exact period-end timestamp is part of the key: a renewed or
	// re-scheduled period produces a fresh key and a fresh notification,
	// while repeated scans against an unchanged period end stay suppressed.
	dedupKey := dedupKeyFor(sub)
	params := map[string]string{
		"plan":       s.catalog.NameOf(sub.PlanID),
		"period_end": sub.CurrentPeriodEnd.UTC().Format("2006-01-02"),
	}

	_, err = s.notifier.GuardedSend(ctx, user.ID, user.Email, kind, dedupKey, params)
	return err
}

func dedupKeyFor(sub *model.Subscription) string {
	ref := sub.ProviderSubscriptionID
	if ref == "" {
		ref = sub.UserID
	}
	return ref + "|" + sub.CurrentPeriodEnd.UTC().Format(time.RFC3339)
}
