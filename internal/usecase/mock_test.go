//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"website-billing/internal/domain"
	"website-billing/internal/domain/model"
	"website-billing/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// -----------------------------
// MockWebsiteRepo
// -----------------------------

type MockWebsiteRepo struct {
	mu   sync.Mutex
	data map[string]*model.Website // by id

	SaveFunc                  func(ctx context.Context, tx repository.Tx, w *model.Website) error
	FindByIDFunc              func(ctx context.Context, tx repository.Tx, id string) (*model.Website, error)
	ListFunc                  func(ctx context.Context, tx repository.Tx, offset, limit int) ([]*model.Website, error)
	FindBillingCandidatesFunc func(ctx context.Context, now time.Time) ([]*model.Website, error)
	UpdateBillingFunc         func(ctx context.Context, tx repository.Tx, websiteID string, b *model.BillingRecord, expected model.BillingStatus) error
	CountByBillingStatusFunc  func(ctx context.Context) (map[model.BillingStatus]int, error)
}

var _ repository.WebsiteRepository = (*MockWebsiteRepo)(nil)

func NewMockWebsiteRepo() *MockWebsiteRepo {
	return &MockWebsiteRepo{data: map[string]*model.Website{}}
}

func cloneWebsite(w *model.Website) *model.Website {
	cp := *w
	if w.Billing != nil {
		b := *w.Billing
		b.PaymentHistory = append([]model.PaymentRecord(nil), w.Billing.PaymentHistory...)
		cp.Billing = &b
	}
	return &cp
}

func (r *MockWebsiteRepo) Save(ctx context.Context, tx repository.Tx, w *model.Website) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, w)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[w.ID] = cloneWebsite(w)
	return nil
}

func (r *MockWebsiteRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Website, error) {
	if r.FindByIDFunc != nil {
		return r.FindByIDFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneWebsite(w), nil
}

func (r *MockWebsiteRepo) List(ctx context.Context, tx repository.Tx, offset, limit int) ([]*model.Website, error) {
	if r.ListFunc != nil {
		return r.ListFunc(ctx, tx, offset, limit)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Website, 0, len(r.data))
	for _, w := range r.data {
		out = append(out, cloneWebsite(w))
	}
	return out, nil
}

func (r *MockWebsiteRepo) FindBillingCandidates(ctx context.Context, now time.Time) ([]*model.Website, error) {
	if r.FindBillingCandidatesFunc != nil {
		return r.FindBillingCandidatesFunc(ctx, now)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Website
	for _, w := range r.data {
		b := w.Billing
		if b == nil {
			continue
		}
		if (b.Status == model.BillingStatusPending && b.GraceEndsAt.Before(now)) ||
			(b.Status == model.BillingStatusActive && b.DueAt.Before(now)) {
			out = append(out, cloneWebsite(w))
		}
	}
	return out, nil
}

func (r *MockWebsiteRepo) UpdateBilling(ctx context.Context, tx repository.Tx, websiteID string, b *model.BillingRecord, expected model.BillingStatus) error {
	if r.UpdateBillingFunc != nil {
		return r.UpdateBillingFunc(ctx, tx, websiteID, b, expected)
	}
	return r.defaultUpdateBilling(websiteID, b, expected)
}

func (r *MockWebsiteRepo) defaultUpdateBilling(websiteID string, b *model.BillingRecord, expected model.BillingStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.data[websiteID]
	if !ok || w.Billing == nil {
		return domain.ErrNotFound
	}
	if w.Billing.Status != expected {
		return domain.ErrConflict
	}
	cp := *b
	cp.PaymentHistory = append([]model.PaymentRecord(nil), b.PaymentHistory...)
	w.Billing = &cp
	return nil
}

func (r *MockWebsiteRepo) CountByBillingStatus(ctx context.Context) (map[model.BillingStatus]int, error) {
	if r.CountByBillingStatusFunc != nil {
		return r.CountByBillingStatusFunc(ctx)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[model.BillingStatus]int{}
	for _, w := range r.data {
		if w.Billing != nil {
			out[w.Billing.Status]++
		}
	}
	return out, nil
}

// -----------------------------
// MockRequestRepo
// -----------------------------

type MockRequestRepo struct {
	mu   sync.Mutex
	data map[string]*model.BuildRequest

	SaveFunc func(ctx context.Context, tx repository.Tx, r *model.BuildRequest) error
}

var _ repository.BuildRequestRepository = (*MockRequestRepo)(nil)

func NewMockRequestRepo() *MockRequestRepo {
	return &MockRequestRepo{data: map[string]*model.BuildRequest{}}
}

func (r *MockRequestRepo) Save(ctx context.Context, tx repository.Tx, req *model.BuildRequest) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, req)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *req
	r.data[req.ID] = &cp
	return nil
}

func (r *MockRequestRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.BuildRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *req
	return &cp, nil
}

func (r *MockRequestRepo) ListByStatus(ctx context.Context, tx repository.Tx, status model.RequestStatus, offset, limit int) ([]*model.BuildRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.BuildRequest
	for _, req := range r.data {
		if req.Status == status {
			cp := *req
			out = append(out, &cp)
		}
	}
	return out, nil
}

// -----------------------------
// MockPaymentLogRepo
// -----------------------------

type MockPaymentLogRepo struct {
	mu   sync.Mutex
	data map[string][]model.PaymentRecord

	AppendFunc func(ctx context.Context, tx repository.Tx, websiteID string, p model.PaymentRecord) error
}

var _ repository.PaymentLogRepository = (*MockPaymentLogRepo)(nil)

func NewMockPaymentLogRepo() *MockPaymentLogRepo {
	return &MockPaymentLogRepo{data: map[string][]model.PaymentRecord{}}
}

func (r *MockPaymentLogRepo) Append(ctx context.Context, tx repository.Tx, websiteID string, p model.PaymentRecord) error {
	if r.AppendFunc != nil {
		return r.AppendFunc(ctx, tx, websiteID, p)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[websiteID] = append(r.data[websiteID], p)
	return nil
}

func (r *MockPaymentLogRepo) ListByWebsite(ctx context.Context, tx repository.Tx, websiteID string) ([]model.PaymentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.PaymentRecord(nil), r.data[websiteID]...), nil
}

// -----------------------------
// MockNotificationGateway
// -----------------------------

type sentNotification struct {
	Kind      string
	WebsiteID string
	Email     string
}

type MockNotificationGateway struct {
	mu   sync.Mutex
	Sent []sentNotification

	SendSuspendedFunc func(ctx context.Context, websiteID, email string) error
	SendOverdueFunc   func(ctx context.Context, websiteID, email string) error
	SendActivatedFunc func(ctx context.Context, websiteID, email string) error
}

func NewMockNotificationGateway() *MockNotificationGateway {
	return &MockNotificationGateway{}
}

func (g *MockNotificationGateway) record(kind, websiteID, email string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Sent = append(g.Sent, sentNotification{Kind: kind, WebsiteID: websiteID, Email: email})
}

func (g *MockNotificationGateway) SendSuspended(ctx context.Context, websiteID, email string) error {
	if g.SendSuspendedFunc != nil {
		return g.SendSuspendedFunc(ctx, websiteID, email)
	}
	g.record("suspended", websiteID, email)
	return nil
}

func (g *MockNotificationGateway) SendOverdue(ctx context.Context, websiteID, email string) error {
	if g.SendOverdueFunc != nil {
		return g.SendOverdueFunc(ctx, websiteID, email)
	}
	g.record("overdue", websiteID, email)
	return nil
}

func (g *MockNotificationGateway) SendActivated(ctx context.Context, websiteID, email string) error {
	if g.SendActivatedFunc != nil {
		return g.SendActivatedFunc(ctx, websiteID, email)
	}
	g.record("activated", websiteID, email)
	return nil
}

func (g *MockNotificationGateway) SentKinds() map[string]int {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := map[string]int{}
	for _, s := range g.Sent {
		out[s.Kind]++
	}
	return out
}

// -----------------------------
// MockTxManager
// -----------------------------

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	// By default, execute the function immediately with NoTX.
	return fn(ctx, repository.NoTX)
}
