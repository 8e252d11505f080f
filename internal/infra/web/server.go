package web

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"booking-agent-billing/internal/domain/ports/repository"
	red "booking-agent-billing/internal/infra/redis"
	"booking-agent-billing/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const scanLockKey = "billing:expiry_scan_lock"

type Server struct {
	billingUC usecase.BillingEventUseCase
	scanUC    usecase.ExpiryScanUseCase
	subs      repository.SubscriptionRepository
	ledger    repository.NotificationLedgerRepository
	auth      *AuthManager
	locker    red.Locker // optional; nil disables scan locking
	scanToken string
	adminKey  string
	log       *zerolog.Logger
}

func NewServer(
	billingUC usecase.BillingEventUseCase,
	scanUC usecase.ExpiryScanUseCase,
	subs repository.SubscriptionRepository,
	ledger repository.NotificationLedgerRepository,
	auth *AuthManager,
	locker red.Locker,
	scanToken, adminKey string,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "WebServer").Logger()
	return &Server{
		billingUC: billingUC,
		scanUC:    scanUC,
		subs:      subs,
		ledger:    ledger,
		auth:      auth,
		locker:    locker,
		scanToken: scanToken,
		adminKey:  adminKey,
		log:       &l,
	}
}

// Router assembles all routes.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/webhooks/billing", s.handleWebhook)

	r.With(s.scanAuth).Post("/internal/scan/expiry", s.handleScan)

	r.Post("/api/v1/admin/login", s.handleAdminLogin)
	r.Group(func(r chi.Router) {
		r.Use(s.sessionAuth)
		r.Get("/api/v1/subscriptions/{userID}", s.handleGetSubscription)
		r.Get("/api/v1/notifications/{recipient}", s.handleListNotifications)
		r.Get("/api/v1/stats/subscriptions", s.handleSubscriptionStats)
	})

	return r
}

// scanAuth guards the scheduled-scan trigger with a shared bearer token.
func (s *Server) scanAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(s.scanToken)) != 1 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// sessionAuth guards the admin read API with a minted JWT session.
func (s *Server) sessionAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.auth.Validate(r); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
