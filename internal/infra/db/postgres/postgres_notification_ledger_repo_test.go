//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"booking-agent-billing/internal/domain/model"
)

func TestNotificationLedgerRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	ctx := context.Background()
	repo := NewNotificationLedgerRepo(testPool)

	entry := func(recipient string, kind model.NotificationKind, dedupKey string) *model.NotificationEntry {
		e, err := model.NewNotificationEntry(ulid.Make().String(), recipient, kind, dedupKey, map[string]string{"plan": "Pro"})
		if err != nil {
			t.Fatalf("failed to build entry: %v", err)
		}
		return e
	}

	t.Run("should record and report sent", func(t *testing.T) {
		cleanup(t)

		sent, err := repo.HasSent(ctx, nil, "user-1", model.NotificationKindNudge7d, "k1")
		if err != nil {
			t.Fatalf("HasSent failed: %v", err)
		}
		if sent {
			t.Fatal("fresh ledger must report not sent")
		}

		if err := repo.RecordSent(ctx, nil, entry("user-1", model.NotificationKindNudge7d, "k1")); err != nil {
			t.Fatalf("RecordSent failed: %v", err)
		}

		sent, err = repo.HasSent(ctx, nil, "user-1", model.NotificationKindNudge7d, "k1")
		if err != nil {
			t.Fatalf("second HasSent failed: %v", err)
		}
		if !sent {
			t.Error("expected the triple to be recorded")
		}
	})

	t.Run("should swallow a duplicate insert as a no-op", func(t *testing.T) {
		cleanup(t)

		if err := repo.RecordSent(ctx, nil, entry("user-1", model.NotificationKindExpired, "k1")); err != nil {
			t.Fatalf("first RecordSent failed: %v", err)
		}
		// Same triple, different id: the constraint must absorb it silently.
		if err := repo.RecordSent(ctx, nil, entry("user-1", model.NotificationKindExpired, "k1")); err != nil {
			t.Fatalf("duplicate RecordSent must not error: %v", err)
		}

		var count int
		if err := testPool.QueryRow(ctx, `SELECT COUNT(*) FROM notification_ledger`).Scan(&count); err != nil {
			t.Fatal(err)
		}
		if count != 1 {
			t.Errorf("expected 1 row, got %d", count)
		}
	})

	t.Run("should keep differing kinds and keys distinct", func(t *testing.T) {
		cleanup(t)

		for _, e := range []*model.NotificationEntry{
			entry("user-1", model.NotificationKindExpired, "k1"),
			entry("user-1", model.NotificationKindNudge1d, "k1"),
			entry("user-1", model.NotificationKindExpired, "k2"),
			entry("user-2", model.NotificationKindExpired, "k1"),
		} {
			if err := repo.RecordSent(ctx, nil, e); err != nil {
				t.Fatalf("RecordSent failed: %v", err)
			}
		}

		var count int
		if err := testPool.QueryRow(ctx, `SELECT COUNT(*) FROM notification_ledger`).Scan(&count); err != nil {
			t.Fatal(err)
		}
		if count != 4 {
			t.Errorf("expected 4 rows, got %d", count)
		}
	})

	t.Run("should list recipient history newest first", func(t *testing.T) {
		cleanup(t)

		older := entry("user-1", model.NotificationKindNudge7d, "k1")
		older.CreatedAt = time.Now().Add(-time.Hour)
		newer := entry("user-1", model.NotificationKindNudge1d, "k2")
		other := entry("user-2", model.NotificationKindExpired, "k1")

		for _, e := range []*model.NotificationEntry{older, newer, other} {
			if err := repo.RecordSent(ctx, nil, e); err != nil {
				t.Fatalf("RecordSent failed: %v", err)
			}
		}

		got, err := repo.ListByRecipient(ctx, nil, "user-1", 10)
		if err != nil {
			t.Fatalf("ListByRecipient failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(got))
		}
		if got[0].DedupKey != "k2" || got[1].DedupKey != "k1" {
			t.Errorf("expected newest first, got %s then %s", got[0].DedupKey, got[1].DedupKey)
		}
		if got[0].Meta["plan"] != "Pro" {
			t.Errorf("meta not round-tripped: %v", got[0].Meta)
		}
	})
}
