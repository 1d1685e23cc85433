// File: internal/usecase/reconciler_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"website-billing/internal/domain"
	"website-billing/internal/domain/model"
	"website-billing/internal/domain/ports/adapter"
	"website-billing/internal/domain/ports/repository"
	"website-billing/internal/infra/logging"
)

// Compile-time check
var _ BillingReconciler = (*billingReconciler)(nil)

// ReconcileSummary aggregates the outcome of one reconciliation run.
type ReconcileSummary struct {
	PendingToSuspended int `json:"pending_to_suspended"`
	ActiveToOverdue    int `json:"active_to_overdue"`
	Errors             int `json:"errors"`
}

// BillingReconciler re-evaluates every billing record that may be due for
// an automated transition and applies it. Run is idempotent: the guard
// conditions derive purely from persisted state, so a second immediate
// run finds nothing to do.
type BillingReconciler interface {
	Run(ctx context.Context, now time.Time) (ReconcileSummary, error)
}

type billingReconciler struct {
	websites      repository.WebsiteRepository
	notifier      adapter.NotificationGateway
	concurrency   int
	notifyTimeout time.Duration
	log           *zerolog.Logger
}

func NewBillingReconciler(
	websites repository.WebsiteRepository,
	notifier adapter.NotificationGateway,
	concurrency int,
	notifyTimeout time.Duration,
	logger *zerolog.Logger,
) *billingReconciler {
	if concurrency <= 0 {
		concurrency = 4
	}
	if notifyTimeout <= 0 {
		notifyTimeout = 10 * time.Second
	}
	l := logger.With().Str("component", "BillingReconciler").Logger()
	return &billingReconciler{
		websites:      websites,
		notifier:      notifier,
		concurrency:   concurrency,
		notifyTimeout: notifyTimeout,
		log:           &l,
	}
}

// Run visits every candidate once. Per-record failures are isolated and
// counted; only a failed candidate fetch aborts the run.
func (r *billingReconciler) Run(ctx context.Context, now time.Time) (ReconcileSummary, error) {
	defer logging.TraceDuration(r.log, "BillingReconciler.Run")()
	runID := ulid.MustNew(ulid.Timestamp(now), rand.New(rand.NewSource(now.UnixNano()))).String()
	ctx = logging.WithRunID(ctx, runID)
	runLog := r.log.With().Str("run_id", runID).Logger()

	candidates, err := r.websites.FindBillingCandidates(ctx, now)
	if err != nil {
		return ReconcileSummary{}, fmt.Errorf("%w: fetch candidates: %v", domain.ErrStoreUnavailable, err)
	}
	runLog.Info().Int("candidates", len(candidates)).Time("now", now).Msg("reconciliation run started")

	var (
		mu  sync.Mutex
		sum ReconcileSummary
	)
	jobs := make(chan *model.Website)
	var wg sync.WaitGroup
	for i := 0; i < r.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for site := range jobs {
				r.reconcileOne(ctx, &runLog, site.ID, now, &mu, &sum)
			}
		}()
	}

feed:
	for _, site := range candidates {
		select {
		case <-ctx.Done():
			// Shutdown mid-run is safe: remaining candidates are picked up
			// by the next scheduled run.
			runLog.Info().Msg("run cancelled, leaving remaining candidates to next tick")
			break feed
		case jobs <- site:
		}
	}
	close(jobs)
	wg.Wait()

	runLog.Info().
		Int("pending_to_suspended", sum.PendingToSuspended).
		Int("active_to_overdue", sum.ActiveToOverdue).
		Int("errors", sum.Errors).
		Msg("reconciliation run finished")
	return sum, nil
}

func (r *billingReconciler) reconcileOne(ctx context.Context, log *zerolog.Logger, websiteID string, now time.Time, mu *sync.Mutex, sum *ReconcileSummary) {
	countErr := func() {
		mu.Lock()
		sum.Errors++
		mu.Unlock()
	}

	// Reload fresh: the candidate query ran earlier and another process
	// may have resolved the record since.
	site, err := r.websites.FindByID(ctx, repository.NoTX, websiteID)
	if errors.Is(err, domain.ErrNotFound) {
		// Deleted between the candidate query and the reload. Nothing to
		// reconcile, so it is a skip rather than a failure.
		log.Debug().Str("website_id", websiteID).Msg("candidate vanished, skipping")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("website_id", websiteID).Msg("load failed")
		countErr()
		return
	}
	if site.Billing == nil {
		log.Warn().Str("website_id", websiteID).Msg("candidate without billing record, skipping")
		return
	}

	decision := site.Billing.EvaluateTransition(now)
	if decision == model.NoChange {
		log.Debug().Str("website_id", websiteID).Msg("already resolved, skipping")
		return
	}

	prior := site.Billing.Status
	site.Billing.ApplyTransition(decision, now)

	err = r.websites.UpdateBilling(ctx, repository.NoTX, websiteID, site.Billing, prior)
	switch {
	case errors.Is(err, domain.ErrConflict):
		// Another run already moved this record; its notification was (or
		// will be) sent by whoever won the write.
		log.Debug().Str("website_id", websiteID).Str("prior_status", string(prior)).Msg("conditional write lost, skipping")
		return
	case err != nil:
		log.Error().Err(err).Str("website_id", websiteID).Str("prior_status", string(prior)).Time("now", now).Msg("persist failed")
		countErr()
		return
	}

	mu.Lock()
	switch decision {
	case model.TransitionToSuspended:
		sum.PendingToSuspended++
	case model.TransitionToOverdue:
		sum.ActiveToOverdue++
	}
	mu.Unlock()

	log.Info().
		Str("website_id", websiteID).
		Str("prior_status", string(prior)).
		Str("new_status", string(site.Billing.Status)).
		Msg("billing transition applied")

	// Exactly one notification attempt per applied transition. The state
	// change is already persisted, so a send failure is logged and dropped.
	nctx, cancel := context.WithTimeout(logging.WithWebsiteID(ctx, websiteID), r.notifyTimeout)
	defer cancel()
	switch decision {
	case model.TransitionToSuspended:
		err = r.notifier.SendSuspended(nctx, websiteID, site.ContactEmail)
	case model.TransitionToOverdue:
		err = r.notifier.SendOverdue(nctx, websiteID, site.ContactEmail)
	}
	if err != nil {
		log.Error().Err(err).Str("website_id", websiteID).Str("kind", decision.String()).Msg("notification failed")
	}
}
