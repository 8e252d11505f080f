package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"booking-agent-billing/internal/domain"
	"booking-agent-billing/internal/domain/model"
	"booking-agent-billing/internal/domain/ports/repository"
	"booking-agent-billing/internal/infra/metrics"
	"booking-agent-billing/internal/usecase"

	"github.com/go-chi/chi/v5"
)

const maxWebhookBody = 1 << 20 // provider payloads are small; 1 MiB is generous

// handleWebhook implements the provider acknowledgment contract: 400 on
// signature or payload verification failure, 500 only on a genuine
// processing failure (so the provider redelivers), 200 for everything else
// including skips — a permanently unprocessable event must not be
// redelivered forever.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "Unreadable payload", http.StatusBadRequest)
		return
	}
	signature := r.Header.Get("Stripe-Signature")

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	evType, outcome, err := s.billingUC.Process(ctx, body, signature)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSignature) {
			metrics.IncSignatureFailure()
			http.Error(w, "Invalid signature", http.StatusBadRequest)
			return
		}
		http.Error(w, "Verification failed", http.StatusBadRequest)
		return
	}

	metrics.IncBillingEvent(evType, string(outcome.Status))
	if outcome.Status == usecase.OutcomeFailed {
		http.Error(w, "Processing failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"received": "true",
		"outcome":  string(outcome.Status),
	})
}

// handleScan triggers one expiry-scanner run. The external scheduler calls
// this daily or twice daily; overlapping triggers are skipped via the lock.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	if s.locker != nil {
		token, err := s.locker.TryLock(ctx, scanLockKey, 10*time.Minute)
		if errors.Is(err, domain.ErrLockNotAcquired) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "skipped", "reason": "scan already running"})
			return
		}
		if err == nil {
			defer func() { _ = s.locker.Unlock(context.Background(), scanLockKey, token) }()
		}
		// A lock-service error falls through: the ledger constraint keeps a
		// concurrent run safe, just wasteful.
	}

	report, err := s.scanUC.Run(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("expiry scan failed")
		http.Error(w, "Scan failed", http.StatusInternalServerError)
		return
	}
	metrics.IncExpiryScanRun()
	metrics.AddExpiryScanErrors(report.Errors)

	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		APIKey string `json:"api_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if s.adminKey == "" || subtle.ConstantTimeCompare([]byte(req.APIKey), []byte(s.adminKey)) != 1 {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	token, err := s.auth.Mint(w)
	if err != nil {
		http.Error(w, "Failed to mint session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleGetSubscription(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		http.Error(w, "User ID is required", http.StatusBadRequest)
		return
	}

	sub, err := s.subs.FindByUserID(r.Context(), repository.NoTX, userID)
	if errors.Is(err, domain.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, "Failed to get subscription", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	recipient := chi.URLParam(r, "recipient")
	if recipient == "" {
		http.Error(w, "Recipient is required", http.StatusBadRequest)
		return
	}

	entries, err := s.ledger.ListByRecipient(r.Context(), repository.NoTX, recipient, 50)
	if err != nil {
		http.Error(w, "Failed to list notifications", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Data  []*model.NotificationEntry `json:"data"`
		Total int                        `json:"total"`
	}{Data: entries, Total: len(entries)})
}

// handleSubscriptionStats returns row counts by status, the number the ops
// dashboard compares against the provider's own dashboard.
func (s *Server) handleSubscriptionStats(w http.ResponseWriter, r *http.Request) {
	counts, err := s.subs.CountByStatus(r.Context(), repository.NoTX)
	if err != nil {
		http.Error(w, "Failed to count subscriptions", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
