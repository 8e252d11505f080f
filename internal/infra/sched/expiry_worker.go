package sched

import (
	"context"
	"errors"
	"time"

	"booking-agent-billing/internal/domain"
	"booking-agent-billing/internal/infra/metrics"
	red "booking-agent-billing/internal/infra/redis"
	"booking-agent-billing/internal/usecase"

	"github.com/rs/zerolog"
)

const workerLockKey = "billing:expiry_scan_lock"

// ExpiryWorker periodically runs the expiry scanner in-process. Deployments
// with an external cron hit the scan endpoint instead and leave this
// disabled; both paths share the same use case and the same lock key.
type ExpiryWorker struct {
	interval time.Duration
	scanUC   usecase.ExpiryScanUseCase
	locker   red.Locker // optional
	log      *zerolog.Logger
}

func NewExpiryWorker(interval time.Duration, scanUC usecase.ExpiryScanUseCase, locker red.Locker, logger *zerolog.Logger) *ExpiryWorker {
	l := logger.With().Str("component", "ExpiryWorker").Logger()
	return &ExpiryWorker{
		interval: interval,
		scanUC:   scanUC,
		locker:   locker,
		log:      &l,
	}
}

func (w *ExpiryWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting expiry worker")
	// Run once on startup, then on every tick
	w.runScan(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping expiry worker")
			return ctx.Err()
		case <-ticker.C:
			w.runScan(ctx)
		}
	}
}

func (w *ExpiryWorker) runScan(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	if w.locker != nil {
		token, err := w.locker.TryLock(runCtx, workerLockKey, 10*time.Minute)
		if errors.Is(err, domain.ErrLockNotAcquired) {
			w.log.Debug().Msg("scan already running elsewhere; skipping tick")
			return
		}
		if err == nil {
			defer func() { _ = w.locker.Unlock(context.Background(), workerLockKey, token) }()
		}
	}

	report, err := w.scanUC.Run(runCtx)
	if err != nil {
		w.log.Error().Err(err).Msg("expiry scan failed")
		return
	}
	metrics.IncExpiryScanRun()
	metrics.AddExpiryScanErrors(report.Errors)
	if report.Processed > 0 || report.Errors > 0 {
		w.log.Info().Int("processed", report.Processed).Int("errors", report.Errors).Int("total", report.Total).Msg("expiry scan finished")
	}
}
