//go:build !integration

package usecase_test

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"booking-agent-billing/internal/domain"
	"booking-agent-billing/internal/domain/model"
	"booking-agent-billing/internal/domain/ports/adapter"
	"booking-agent-billing/internal/domain/ports/repository"
)

// -----------------------------
// Repositories
// -----------------------------

// MockTxManager runs the callback without a real transaction; the in-memory
// repos below ignore the tx handle anyway.
type MockTxManager struct{}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func (MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, repository.NoTX)
}

// MockSubscriptionRepo is an in-memory SubscriptionRepository. Every method
// can be overridden with a func field; the default behavior is a map keyed by
// user id, matching the one-row-per-user upsert semantics.
type MockSubscriptionRepo struct {
	mu    sync.Mutex
	store map[string]*model.Subscription

	UpsertCalls int

	UpsertFunc                  func(ctx context.Context, tx repository.Tx, s *model.Subscription) error
	FindByUserIDFunc            func(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error)
	FindByCustomerIDFunc        func(ctx context.Context, tx repository.Tx, customerID string) (*model.Subscription, error)
	FindByProviderSubIDFunc     func(ctx context.Context, tx repository.Tx, providerSubID string) (*model.Subscription, error)
	ListActiveWithPeriodEndFunc func(ctx context.Context, tx repository.Tx) ([]*model.Subscription, error)
}

var _ repository.SubscriptionRepository = (*MockSubscriptionRepo)(nil)

func NewMockSubscriptionRepo() *MockSubscriptionRepo {
	return &MockSubscriptionRepo{store: make(map[string]*model.Subscription)}
}

func (m *MockSubscriptionRepo) Upsert(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	m.mu.Lock()
	m.UpsertCalls++
	m.mu.Unlock()
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, tx, s)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.store[s.UserID] = &cp
	return nil
}

func (m *MockSubscriptionRepo) FindByUserID(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	if m.FindByUserIDFunc != nil {
		return m.FindByUserIDFunc(ctx, tx, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MockSubscriptionRepo) FindByCustomerID(ctx context.Context, tx repository.Tx, customerID string) (*model.Subscription, error) {
	if m.FindByCustomerIDFunc != nil {
		return m.FindByCustomerIDFunc(ctx, tx, customerID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.store {
		if s.ProviderCustomerID == customerID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockSubscriptionRepo) FindByProviderSubID(ctx context.Context, tx repository.Tx, providerSubID string) (*model.Subscription, error) {
	if m.FindByProviderSubIDFunc != nil {
		return m.FindByProviderSubIDFunc(ctx, tx, providerSubID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.store {
		if s.ProviderSubscriptionID == providerSubID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockSubscriptionRepo) ListActiveWithPeriodEnd(ctx context.Context, tx repository.Tx) ([]*model.Subscription, error) {
	if m.ListActiveWithPeriodEndFunc != nil {
		return m.ListActiveWithPeriodEndFunc(ctx, tx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Subscription
	for _, s := range m.store {
		if s.Status == model.SubscriptionStatusActive && s.CurrentPeriodEnd != nil {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockSubscriptionRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.SubscriptionStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[model.SubscriptionStatus]int)
	for _, s := range m.store {
		counts[s.Status]++
	}
	return counts, nil
}

// Get returns the stored row for assertions, or nil.
func (m *MockSubscriptionRepo) Get(userID string) *model.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store[userID]
}

// Seed stores a row directly, bypassing the call counter.
func (m *MockSubscriptionRepo) Seed(s *model.Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.store[s.UserID] = &cp
}

// ---- Business repo ----

type MockBusinessRepo struct {
	mu    sync.Mutex
	store map[string]*model.Business // keyed by owner user id

	SaveCalls int

	SaveFunc        func(ctx context.Context, tx repository.Tx, b *model.Business) error
	FindByOwnerFunc func(ctx context.Context, tx repository.Tx, ownerUserID string) (*model.Business, error)
}

var _ repository.BusinessRepository = (*MockBusinessRepo)(nil)

func NewMockBusinessRepo() *MockBusinessRepo {
	return &MockBusinessRepo{store: make(map[string]*model.Business)}
}

func (m *MockBusinessRepo) Save(ctx context.Context, tx repository.Tx, b *model.Business) error {
	m.mu.Lock()
	m.SaveCalls++
	m.mu.Unlock()
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, b)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	m.store[b.OwnerUserID] = &cp
	return nil
}

func (m *MockBusinessRepo) FindByOwner(ctx context.Context, tx repository.Tx, ownerUserID string) (*model.Business, error) {
	if m.FindByOwnerFunc != nil {
		return m.FindByOwnerFunc(ctx, tx, ownerUserID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.store[ownerUserID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *MockBusinessRepo) Get(ownerUserID string) *model.Business {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store[ownerUserID]
}

// ---- User repo ----

type MockUserRepo struct {
	mu    sync.Mutex
	store map[string]*model.User

	FindByIDFunc func(ctx context.Context, tx repository.Tx, id string) (*model.User, error)
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func NewMockUserRepo(users ...*model.User) *MockUserRepo {
	m := &MockUserRepo{store: make(map[string]*model.User)}
	for _, u := range users {
		cp := *u
		m.store[u.ID] = &cp
	}
	return m
}

func (m *MockUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, tx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// ---- Notification ledger ----

// MockLedgerRepo mimics the database semantics the real repo leans on: the
// (recipient, kind, dedup_key) triple is unique and a duplicate insert is a
// silent no-op.
type MockLedgerRepo struct {
	mu      sync.Mutex
	entries []*model.NotificationEntry
	keys    map[string]bool

	RecordCalls int

	RecordSentFunc func(ctx context.Context, tx repository.Tx, e *model.NotificationEntry) error
	HasSentFunc    func(ctx context.Context, tx repository.Tx, recipient string, kind model.NotificationKind, dedupKey string) (bool, error)
}

var _ repository.NotificationLedgerRepository = (*MockLedgerRepo)(nil)

func NewMockLedgerRepo() *MockLedgerRepo {
	return &MockLedgerRepo{keys: make(map[string]bool)}
}

func ledgerKey(recipient string, kind model.NotificationKind, dedupKey string) string {
	return recipient + "\x00" + string(kind) + "\x00" + dedupKey
}

func (m *MockLedgerRepo) RecordSent(ctx context.Context, tx repository.Tx, e *model.NotificationEntry) error {
	m.mu.Lock()
	m.RecordCalls++
	m.mu.Unlock()
	if m.RecordSentFunc != nil {
		return m.RecordSentFunc(ctx, tx, e)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := ledgerKey(e.Recipient, e.Kind, e.DedupKey)
	if m.keys[k] {
		return nil // conflict, ignored
	}
	m.keys[k] = true
	cp := *e
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *MockLedgerRepo) HasSent(ctx context.Context, tx repository.Tx, recipient string, kind model.NotificationKind, dedupKey string) (bool, error) {
	if m.HasSentFunc != nil {
		return m.HasSentFunc(ctx, tx, recipient, kind, dedupKey)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keys[ledgerKey(recipient, kind, dedupKey)], nil
}

func (m *MockLedgerRepo) ListByRecipient(ctx context.Context, tx repository.Tx, recipient string, limit int) ([]*model.NotificationEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.NotificationEntry
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if m.entries[i].Recipient == recipient {
			cp := *m.entries[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockLedgerRepo) Entries() []*model.NotificationEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.NotificationEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// =============================
// Adapters
// =============================

// ---- Mailer ----

type SentMail struct {
	Email  string
	Kind   model.NotificationKind
	Params map[string]string
}

type MockMailer struct {
	mu   sync.Mutex
	Sent []SentMail

	SendFunc func(ctx context.Context, toEmail string, kind model.NotificationKind, params map[string]string) error
}

var _ adapter.Mailer = (*MockMailer)(nil)

func (m *MockMailer) Send(ctx context.Context, toEmail string, kind model.NotificationKind, params map[string]string) error {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, toEmail, kind, params)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, SentMail{Email: toEmail, Kind: kind, Params: params})
	return nil
}

func (m *MockMailer) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

// ---- Billing provider ----

// MockBillingProvider skips real signature checks: VerifyEvent returns the
// configured event so tests feed handlers directly.
type MockBillingProvider struct {
	Event *adapter.BillingEvent

	VerifyEventFunc       func(payload []byte, signature string) (*adapter.BillingEvent, error)
	FetchSubscriptionFunc func(ctx context.Context, providerSubID string) (*adapter.ProviderSubscription, error)
}

var _ adapter.BillingProvider = (*MockBillingProvider)(nil)

func (m *MockBillingProvider) VerifyEvent(payload []byte, signature string) (*adapter.BillingEvent, error) {
	if m.VerifyEventFunc != nil {
		return m.VerifyEventFunc(payload, signature)
	}
	return m.Event, nil
}

func (m *MockBillingProvider) FetchSubscription(ctx context.Context, providerSubID string) (*adapter.ProviderSubscription, error) {
	if m.FetchSubscriptionFunc != nil {
		return m.FetchSubscriptionFunc(ctx, providerSubID)
	}
	return nil, domain.ErrNotFound
}

// -----------------------------
// Utilities
// -----------------------------

// billingEvent builds a verified event envelope with obj marshalled as the
// event data, the shape handlers receive after signature verification.
func billingEvent(t *testing.T, id, evType string, obj any) *adapter.BillingEvent {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshal event data: %v", err)
	}
	return &adapter.BillingEvent{ID: id, Type: evType, Data: data}
}

// testCatalog maps two price references onto two plans.
func testCatalog() *model.PlanCatalog {
	return model.NewPlanCatalog(map[string]model.Plan{
		"price_starter": {ID: "starter", Name: "Starter"},
		"price_pro":     {ID: "pro", Name: "Pro"},
	})
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}
