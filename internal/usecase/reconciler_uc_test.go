//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"website-billing/internal/domain"
	"website-billing/internal/domain/model"
	"website-billing/internal/domain/ports/repository"
	"website-billing/internal/usecase"
)

var t0 = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

func deployedSite(t *testing.T, repo *MockWebsiteRepo, id string, deployedAt time.Time) *model.Website {
	t.Helper()
	w, err := model.NewWebsite(id, "", "Client "+id, id+"@client.test", id+".test", deployedAt)
	if err != nil {
		t.Fatalf("NewWebsite: %v", err)
	}
	if err := w.Deploy("starter", 4900, model.BillingCycleMonthly, deployedAt); err != nil {
		t.Fatalf("Deploy: %v", err)
	}
	if err := repo.Save(context.Background(), repository.NoTX, w); err != nil {
		t.Fatalf("Save: %v", err)
	}
	return w
}

func TestBillingReconciler_Run(t *testing.T) {
	ctx := context.Background()
	testLogger := newTestLogger()

	t.Run("suspends pending records past the grace deadline", func(t *testing.T) {
		repo := NewMockWebsiteRepo()
		gw := NewMockNotificationGateway()
		deployedSite(t, repo, "site-1", t0)

		rec := usecase.NewBillingReconciler(repo, gw, 2, time.Second, testLogger)
		now := t0.AddDate(0, 0, 6)
		sum, err := rec.Run(ctx, now)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if sum.PendingToSuspended != 1 || sum.ActiveToOverdue != 0 || sum.Errors != 0 {
			t.Errorf("unexpected summary: %+v", sum)
		}

		w, _ := repo.FindByID(ctx, repository.NoTX, "site-1")
		if w.Billing.Status != model.BillingStatusSuspended {
			t.Errorf("expected suspended, got %s", w.Billing.Status)
		}
		if w.Billing.SuspendedAt == nil || !w.Billing.SuspendedAt.Equal(now) {
			t.Error("expected suspendedAt set to run time")
		}
		if got := gw.SentKinds(); got["suspended"] != 1 || len(gw.Sent) != 1 {
			t.Errorf("expected exactly one suspension notification, got %v", got)
		}
	})

	t.Run("marks active records past due as overdue without touching other fields", func(t *testing.T) {
		repo := NewMockWebsiteRepo()
		gw := NewMockNotificationGateway()
		w := deployedSite(t, repo, "site-1", t0)
		if err := w.Billing.RecordPayment(4900, t0, "card", "tx-1"); err != nil {
			t.Fatalf("RecordPayment: %v", err)
		}
		if err := repo.Save(ctx, repository.NoTX, w); err != nil {
			t.Fatalf("Save: %v", err)
		}
		dueAt := w.Billing.DueAt

		rec := usecase.NewBillingReconciler(repo, gw, 2, time.Second, testLogger)
		sum, err := rec.Run(ctx, dueAt.AddDate(0, 0, 1))
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if sum.ActiveToOverdue != 1 || sum.PendingToSuspended != 0 || sum.Errors != 0 {
			t.Errorf("unexpected summary: %+v", sum)
		}

		got, _ := repo.FindByID(ctx, repository.NoTX, "site-1")
		if got.Billing.Status != model.BillingStatusOverdue {
			t.Errorf("expected overdue, got %s", got.Billing.Status)
		}
		if !got.Billing.DueAt.Equal(dueAt) || got.Billing.SuspendedAt != nil {
			t.Error("overdue transition must not change other billing fields")
		}
		if kinds := gw.SentKinds(); kinds["overdue"] != 1 || len(gw.Sent) != 1 {
			t.Errorf("expected exactly one overdue notification, got %v", kinds)
		}
	})

	t.Run("is idempotent across back-to-back runs", func(t *testing.T) {
		repo := NewMockWebsiteRepo()
		gw := NewMockNotificationGateway()
		deployedSite(t, repo, "site-1", t0)
		w2 := deployedSite(t, repo, "site-2", t0)
		_ = w2.Billing.RecordPayment(4900, t0, "", "")
		_ = repo.Save(ctx, repository.NoTX, w2)

		rec := usecase.NewBillingReconciler(repo, gw, 2, time.Second, testLogger)
		now := t0.AddDate(0, 2, 0)
		first, err := rec.Run(ctx, now)
		if err != nil {
			t.Fatalf("first run: %v", err)
		}
		if first.PendingToSuspended != 1 || first.ActiveToOverdue != 1 {
			t.Fatalf("unexpected first summary: %+v", first)
		}

		second, err := rec.Run(ctx, now)
		if err != nil {
			t.Fatalf("second run: %v", err)
		}
		if second.PendingToSuspended != 0 || second.ActiveToOverdue != 0 || second.Errors != 0 {
			t.Errorf("expected second run to be a no-op, got %+v", second)
		}
		if len(gw.Sent) != 2 {
			t.Errorf("expected no additional notifications on second run, got %d", len(gw.Sent))
		}
	})

	t.Run("overdue records are never auto-suspended", func(t *testing.T) {
		repo := NewMockWebsiteRepo()
		gw := NewMockNotificationGateway()
		w := deployedSite(t, repo, "site-1", t0)
		_ = w.Billing.RecordPayment(4900, t0, "", "")
		_ = repo.Save(ctx, repository.NoTX, w)

		rec := usecase.NewBillingReconciler(repo, gw, 2, time.Second, testLogger)
		if _, err := rec.Run(ctx, t0.AddDate(0, 2, 0)); err != nil {
			t.Fatalf("run: %v", err)
		}
		// Much later: still overdue, no further automated transition.
		sum, err := rec.Run(ctx, t0.AddDate(2, 0, 0))
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		if sum.PendingToSuspended != 0 || sum.ActiveToOverdue != 0 {
			t.Errorf("expected no transitions, got %+v", sum)
		}
		got, _ := repo.FindByID(ctx, repository.NoTX, "site-1")
		if got.Billing.Status != model.BillingStatusOverdue {
			t.Errorf("expected record to stay overdue, got %s", got.Billing.Status)
		}
	})

	t.Run("isolates per-record persist failures", func(t *testing.T) {
		repo := NewMockWebsiteRepo()
		gw := NewMockNotificationGateway()
		for i := 1; i <= 10; i++ {
			deployedSite(t, repo, fmt.Sprintf("site-%d", i), t0)
		}
		repo.UpdateBillingFunc = func(ctx context.Context, tx repository.Tx, id string, b *model.BillingRecord, expected model.BillingStatus) error {
			if id == "site-5" {
				return domain.ErrOperationFailed
			}
			return repo.defaultUpdateBilling(id, b, expected)
		}

		rec := usecase.NewBillingReconciler(repo, gw, 1, time.Second, testLogger)
		sum, err := rec.Run(ctx, t0.AddDate(0, 0, 6))
		if err != nil {
			t.Fatalf("expected no run-level error, but got: %v", err)
		}
		if sum.Errors != 1 {
			t.Errorf("expected 1 error, got %d", sum.Errors)
		}
		if sum.PendingToSuspended != 9 {
			t.Errorf("expected 9 suspensions, got %d", sum.PendingToSuspended)
		}
		if kinds := gw.SentKinds(); kinds["suspended"] != 9 {
			t.Errorf("expected 9 suspension notifications, got %v", kinds)
		}
	})

	t.Run("treats lost conditional writes as already handled", func(t *testing.T) {
		repo := NewMockWebsiteRepo()
		gw := NewMockNotificationGateway()
		deployedSite(t, repo, "site-1", t0)
		repo.UpdateBillingFunc = func(ctx context.Context, tx repository.Tx, id string, b *model.BillingRecord, expected model.BillingStatus) error {
			return domain.ErrConflict
		}

		rec := usecase.NewBillingReconciler(repo, gw, 1, time.Second, testLogger)
		sum, err := rec.Run(ctx, t0.AddDate(0, 0, 6))
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if sum.Errors != 0 || sum.PendingToSuspended != 0 {
			t.Errorf("conflicts must not count as errors or transitions: %+v", sum)
		}
		if len(gw.Sent) != 0 {
			t.Error("conflicts must not emit notifications")
		}
	})

	t.Run("skips candidates deleted between fetch and reload", func(t *testing.T) {
		repo := NewMockWebsiteRepo()
		gw := NewMockNotificationGateway()
		kept := deployedSite(t, repo, "site-2", t0)

		// site-1 is reported by the candidate query but was never stored,
		// so the per-record reload sees it as deleted.
		gone, err := model.NewWebsite("site-1", "", "Client site-1", "site-1@client.test", "site-1.test", t0)
		if err != nil {
			t.Fatalf("NewWebsite: %v", err)
		}
		if err := gone.Deploy("starter", 4900, model.BillingCycleMonthly, t0); err != nil {
			t.Fatalf("Deploy: %v", err)
		}
		repo.FindBillingCandidatesFunc = func(ctx context.Context, now time.Time) ([]*model.Website, error) {
			return []*model.Website{gone, kept}, nil
		}

		rec := usecase.NewBillingReconciler(repo, gw, 1, time.Second, testLogger)
		sum, err := rec.Run(ctx, t0.AddDate(0, 0, 6))
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if sum.Errors != 0 {
			t.Errorf("a vanished candidate must not count as an error: %+v", sum)
		}
		if sum.PendingToSuspended != 1 {
			t.Errorf("expected the surviving candidate suspended, got %+v", sum)
		}
		if kinds := gw.SentKinds(); kinds["suspended"] != 1 || len(gw.Sent) != 1 {
			t.Errorf("expected one suspension notification, got %v", kinds)
		}
	})

	t.Run("notification failure never rolls back the transition", func(t *testing.T) {
		repo := NewMockWebsiteRepo()
		gw := NewMockNotificationGateway()
		gw.SendSuspendedFunc = func(ctx context.Context, websiteID, email string) error {
			return errors.New("smtp provider down")
		}
		deployedSite(t, repo, "site-1", t0)

		rec := usecase.NewBillingReconciler(repo, gw, 1, time.Second, testLogger)
		sum, err := rec.Run(ctx, t0.AddDate(0, 0, 6))
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if sum.PendingToSuspended != 1 || sum.Errors != 0 {
			t.Errorf("unexpected summary: %+v", sum)
		}
		w, _ := repo.FindByID(ctx, repository.NoTX, "site-1")
		if w.Billing.Status != model.BillingStatusSuspended {
			t.Errorf("expected suspended despite notification failure, got %s", w.Billing.Status)
		}
	})

	t.Run("candidate fetch failure aborts the run", func(t *testing.T) {
		repo := NewMockWebsiteRepo()
		repo.FindBillingCandidatesFunc = func(ctx context.Context, now time.Time) ([]*model.Website, error) {
			return nil, errors.New("connection refused")
		}
		rec := usecase.NewBillingReconciler(repo, NewMockNotificationGateway(), 1, time.Second, testLogger)
		_, err := rec.Run(ctx, t0)
		if !errors.Is(err, domain.ErrStoreUnavailable) {
			t.Errorf("expected ErrStoreUnavailable, got %v", err)
		}
	})
}
