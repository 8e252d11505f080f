// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"booking-agent-billing/internal/config"
	"booking-agent-billing/internal/domain/model"
	"booking-agent-billing/internal/domain/ports/adapter"
	mailAdapters "booking-agent-billing/internal/infra/adapters/mail"
	stripeAdapter "booking-agent-billing/internal/infra/adapters/stripe"
	pg "booking-agent-billing/internal/infra/db/postgres"
	"booking-agent-billing/internal/infra/logging"
	"booking-agent-billing/internal/infra/metrics"
	red "booking-agent-billing/internal/infra/redis"
	"booking-agent-billing/internal/infra/sched"
	"booking-agent-billing/internal/infra/web"
	"booking-agent-billing/internal/usecase"

	"github.com/joho/godotenv"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, noop mailer)")
	flag.Parse()

	_ = godotenv.Load() // optional .env for local runs

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("[DEV MODE] Enabled")
	}

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis (optional: only the scan lock depends on it) ----
	var locker red.Locker
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
		locker = red.NewLocker(redisClient)
	} else {
		logger.Warn().Msg("redis.url not set; expiry scans run without cross-process locking")
	}

	// ---- Repositories ----
	subRepo := pg.NewSubscriptionRepo(pool)
	businessRepo := pg.NewBusinessRepo(pool)
	userRepo := pg.NewUserRepo(pool)
	ledgerRepo := pg.NewNotificationLedgerRepo(pool)

	// ---- Plan catalog ----
	byPrice := make(map[string]model.Plan, len(cfg.Billing.Plans))
	for _, m := range cfg.Billing.Plans {
		byPrice[m.PriceID] = model.Plan{ID: m.PlanID, Name: m.Name}
	}
	catalog := model.NewPlanCatalog(byPrice)

	// ---- Adapters ----
	provider := stripeAdapter.NewProvider(cfg.Billing.APIKey, cfg.Billing.WebhookSecret)
	var mailer adapter.Mailer
	if cfg.Runtime.Dev {
		mailer = mailAdapters.NewNoopMailer(logger)
	} else {
		mailer = mailAdapters.NewSendGridMailer(cfg.Mail.SendGridKey, cfg.Mail.Sender, cfg.Mail.SenderName, logger)
	}

	// ---- Use cases ----
	notifUC := usecase.NewNotificationUseCase(ledgerRepo, mailer, logger)
	txManager := pg.NewTxManager(pool)
	billingUC := usecase.NewBillingEventUseCase(provider, txManager, subRepo, businessRepo, userRepo, notifUC, catalog, usecase.DefaultResolutionRetry(), logger)
	scanUC := usecase.NewExpiryScanUseCase(subRepo, userRepo, notifUC, catalog, cfg.Scheduler.LookaheadDays, logger)

	// ---- Metrics ----
	metrics.MustRegister()

	// ---- HTTP server ----
	auth := web.NewAuthManager(cfg.Server.AdminAPIKey, cfg.Server.SecureCookie, cfg.Server.CookieDomain, cfg.Server.SessionTTL)
	srv := web.NewServer(billingUC, scanUC, subRepo, ledgerRepo, auth, locker, cfg.Server.ScanToken, cfg.Server.AdminAPIKey, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- In-process expiry worker (optional) ----
	if cfg.Scheduler.Interval > 0 {
		worker := sched.NewExpiryWorker(cfg.Scheduler.Interval, scanUC, locker, logger)
		go func() { _ = worker.Run(ctx) }()
	} else {
		logger.Info().Msg("scheduler.interval not set; expiry scans are triggered via the scan endpoint only")
	}

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}
