package worker

import (
	"context"
	"time"

	"website-billing/internal/domain/ports/adapter"
	"website-billing/internal/infra/logging"

	"github.com/rs/zerolog"
)

var _ adapter.NotificationGateway = (*AsyncNotifier)(nil)

// AsyncNotifier wraps a NotificationGateway and pushes each send onto the
// worker pool. Callers get an immediate nil; delivery failures are logged
// by the pool task. If the queue is saturated the send happens inline so
// a notification is never silently dropped.
type AsyncNotifier struct {
	next    adapter.NotificationGateway
	pool    *Pool
	timeout time.Duration
	log     *zerolog.Logger
}

func NewAsyncNotifier(next adapter.NotificationGateway, pool *Pool, timeout time.Duration, log *zerolog.Logger) *AsyncNotifier {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	l := log.With().Str("component", "async_notifier").Logger()
	return &AsyncNotifier{next: next, pool: pool, timeout: timeout, log: &l}
}

func (n *AsyncNotifier) SendSuspended(ctx context.Context, websiteID, contactEmail string) error {
	return n.dispatch(ctx, "suspended", websiteID, contactEmail, n.next.SendSuspended)
}

func (n *AsyncNotifier) SendOverdue(ctx context.Context, websiteID, contactEmail string) error {
	return n.dispatch(ctx, "overdue", websiteID, contactEmail, n.next.SendOverdue)
}

func (n *AsyncNotifier) SendActivated(ctx context.Context, websiteID, contactEmail string) error {
	return n.dispatch(ctx, "activated", websiteID, contactEmail, n.next.SendActivated)
}

func (n *AsyncNotifier) dispatch(ctx context.Context, kind, websiteID, contactEmail string, send func(context.Context, string, string) error) error {
	// Capture caller context fields (run_id, website_id) now; the task
	// itself runs on the pool's own context.
	l := logging.With(ctx, n.log)
	task := func(ctx context.Context) error {
		sendCtx, cancel := context.WithTimeout(ctx, n.timeout)
		defer cancel()
		if err := send(sendCtx, websiteID, contactEmail); err != nil {
			l.Error().Err(err).
				Str("kind", kind).
				Str("website_id", websiteID).
				Msg("notification delivery failed")
		}
		return nil
	}
	if err := n.pool.Submit(task); err != nil {
		l.Warn().Str("kind", kind).Msg("worker queue full, sending inline")
		return task(ctx)
	}
	return nil
}
