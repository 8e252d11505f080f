//go:build !integration

package model

import (
	"errors"
	"testing"
	"time"

	"booking-agent-billing/internal/domain"
)

func TestNewSubscription(t *testing.T) {
	t.Run("should create a subscription row", func(t *testing.T) {
		sub, err := NewSubscription("user-1", "pro", SubscriptionStatusActive)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if sub.UserID != "user-1" || sub.PlanID != "pro" || sub.Status != SubscriptionStatusActive {
			t.Errorf("unexpected subscription: %+v", sub)
		}
		if sub.CreatedAt.IsZero() || sub.UpdatedAt.IsZero() {
			t.Error("timestamps must be set")
		}
		if sub.BusinessID != nil || sub.CurrentPeriodEnd != nil {
			t.Error("optional fields must start nil")
		}
	})

	t.Run("should reject empty user or plan", func(t *testing.T) {
		if _, err := NewSubscription("", "pro", SubscriptionStatusActive); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("empty user: got %v", err)
		}
		if _, err := NewSubscription("user-1", "", SubscriptionStatusActive); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("empty plan: got %v", err)
		}
	})
}

func TestMapProviderStatus(t *testing.T) {
	cases := []struct {
		in    string
		want  SubscriptionStatus
		known bool
	}{
		{"active", SubscriptionStatusActive, true},
		{"trialing", SubscriptionStatusTrialing, true},
		{"past_due", SubscriptionStatusPastDue, true},
		{"unpaid", SubscriptionStatusPastDue, true},
		{"canceled", SubscriptionStatusCanceled, true},
		{"incomplete_expired", SubscriptionStatusCanceled, true},
		{"paused", SubscriptionStatusActive, false},
		{"", SubscriptionStatusActive, false},
	}
	for _, tc := range cases {
		got, known := MapProviderStatus(tc.in)
		if got != tc.want || known != tc.known {
			t.Errorf("MapProviderStatus(%q) = (%q, %v), want (%q, %v)", tc.in, got, known, tc.want, tc.known)
		}
	}
}

func TestNewNotificationEntry(t *testing.T) {
	t.Run("should create a ledger entry", func(t *testing.T) {
		e, err := NewNotificationEntry("01A", "user-1", NotificationKindNudge7d, "sub_1|2026-03-17", map[string]string{"plan": "Pro"})
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if e.ID != "01A" || e.Recipient != "user-1" || e.Kind != NotificationKindNudge7d {
			t.Errorf("unexpected entry: %+v", e)
		}
		if time.Since(e.CreatedAt) > time.Second {
			t.Error("CreatedAt is too far from current time")
		}
	})

	t.Run("should reject a missing identity field", func(t *testing.T) {
		for name, args := range map[string][4]string{
			"id":        {"", "user-1", "expired", "k1"},
			"recipient": {"01A", "", "expired", "k1"},
			"kind":      {"01A", "user-1", "", "k1"},
			"dedup key": {"01A", "user-1", "expired", ""},
		} {
			_, err := NewNotificationEntry(args[0], args[1], NotificationKind(args[2]), args[3], nil)
			if !errors.Is(err, domain.ErrInvalidArgument) {
				t.Errorf("missing %s: got %v", name, err)
			}
		}
	})
}

func TestNewPlaceholderBusiness(t *testing.T) {
	b, err := NewPlaceholderBusiness("biz-1", "user-1")
	if err != nil {
		t.Fatalf("expected no error, but got: %v", err)
	}
	if b.Status != BusinessStatusOnboarding {
		t.Errorf("status = %q, want onboarding", b.Status)
	}
	if b.Name == "" {
		t.Error("placeholder needs a display name")
	}

	if _, err := NewPlaceholderBusiness("", "user-1"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("empty id: got %v", err)
	}
}

func TestPlanCatalog(t *testing.T) {
	catalog := NewPlanCatalog(map[string]Plan{
		"price_pro": {ID: "pro", Name: "Pro"},
	})

	t.Run("should resolve a mapped price", func(t *testing.T) {
		plan, ok := catalog.ResolvePrice("price_pro")
		if !ok || plan.ID != "pro" {
			t.Errorf("ResolvePrice = (%+v, %v)", plan, ok)
		}
	})

	t.Run("should miss an unmapped price", func(t *testing.T) {
		if _, ok := catalog.ResolvePrice("price_unknown"); ok {
			t.Error("expected a miss")
		}
	})

	t.Run("should fall back to the plan id for a retired plan name", func(t *testing.T) {
		if got := catalog.NameOf("pro"); got != "Pro" {
			t.Errorf("NameOf(pro) = %q", got)
		}
		if got := catalog.NameOf("legacy"); got != "legacy" {
			t.Errorf("NameOf(legacy) = %q, want the id itself", got)
		}
	})
}
