package sched

import (
	"context"
	"errors"
	"time"

	"website-billing/internal/domain"
	"website-billing/internal/domain/ports/repository"
	"website-billing/internal/infra/metrics"
	infraRedis "website-billing/internal/infra/redis"
	"website-billing/internal/usecase"

	"github.com/rs/zerolog"
)

const reconcileLockKey = "billing:reconcile:lock"

// ReconcileWorker drives the billing reconciler on a fixed interval. Each
// tick takes a distributed lock first so overlapping ticks and concurrent
// instances skip the run instead of double-processing.
type ReconcileWorker struct {
	interval   time.Duration
	reconciler usecase.BillingReconciler
	websites   repository.WebsiteRepository
	locker     infraRedis.Locker
	lockTTL    time.Duration
	log        *zerolog.Logger
}

func NewReconcileWorker(
	interval time.Duration,
	reconciler usecase.BillingReconciler,
	websites repository.WebsiteRepository,
	locker infraRedis.Locker,
	logger *zerolog.Logger,
) *ReconcileWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	compLog := logger.With().Str("component", "ReconcileWorker").Logger()
	return &ReconcileWorker{
		interval:   interval,
		reconciler: reconciler,
		websites:   websites,
		locker:     locker,
		lockTTL:    interval / 2,
		log:        &compLog,
	}
}

func (w *ReconcileWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting reconcile worker")
	// Run once on startup, then on every tick
	w.tick(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping reconcile worker")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *ReconcileWorker) tick(ctx context.Context) {
	token, err := w.locker.TryLock(ctx, reconcileLockKey, w.lockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			w.log.Debug().Msg("reconcile lock held elsewhere, skipping run")
			metrics.ObserveReconcileRun("skipped", 0, 0)
			return
		}
		w.log.Error().Err(err).Msg("reconcile lock acquisition failed")
		return
	}
	defer func() {
		if err := w.locker.Unlock(context.Background(), reconcileLockKey, token); err != nil {
			w.log.Warn().Err(err).Msg("reconcile lock release failed")
		}
	}()

	start := time.Now()
	summary, err := w.reconciler.Run(ctx, start)
	elapsed := time.Since(start)
	if err != nil {
		w.log.Error().Err(err).Msg("reconcile run failed")
		metrics.ObserveReconcileRun("error", elapsed.Seconds(), 0)
		return
	}

	metrics.ObserveReconcileRun("ok", elapsed.Seconds(), summary.Errors)
	metrics.IncBillingTransitions("suspend", summary.PendingToSuspended)
	metrics.IncBillingTransitions("overdue", summary.ActiveToOverdue)
	w.refreshGauges(ctx)

	if summary.PendingToSuspended > 0 || summary.ActiveToOverdue > 0 || summary.Errors > 0 {
		w.log.Info().
			Int("suspended", summary.PendingToSuspended).
			Int("overdue", summary.ActiveToOverdue).
			Int("errors", summary.Errors).
			Dur("duration_ms", elapsed).
			Msg("reconcile run finished")
	}
}

func (w *ReconcileWorker) refreshGauges(ctx context.Context) {
	counts, err := w.websites.CountByBillingStatus(ctx)
	if err != nil {
		w.log.Warn().Err(err).Msg("billing status gauge refresh failed")
		return
	}
	metrics.SetWebsitesByBillingStatus(counts)
}
