package repository

import (
	"context"
	"time"

	"website-billing/internal/domain/model"
)

// WebsiteRepository is the port for website projects and their embedded
// billing records.
type WebsiteRepository interface {
	Save(ctx context.Context, tx Tx, w *model.Website) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Website, error)
	List(ctx context.Context, tx Tx, offset, limit int) ([]*model.Website, error)

	// FindBillingCandidates returns deployed websites whose billing record
	// may require an automated transition at `now`: pending past the grace
	// deadline, or active past the due date. The predicate is pushed to the
	// store; callers still re-evaluate each record before acting.
	FindBillingCandidates(ctx context.Context, now time.Time) ([]*model.Website, error)

	// UpdateBilling persists a single website's billing sub-record only if
	// its stored status still equals expectedPriorStatus. Returns
	// domain.ErrConflict when another process already moved the record and
	// domain.ErrNotFound when the website does not exist or has no billing.
	UpdateBilling(ctx context.Context, tx Tx, websiteID string, b *model.BillingRecord, expectedPriorStatus model.BillingStatus) error

	// CountByBillingStatus powers the status gauge and admin stats.
	CountByBillingStatus(ctx context.Context) (map[model.BillingStatus]int, error)
}

// PaymentLogRepository records the append-only payment history rows that
// back BillingRecord.PaymentHistory.
type PaymentLogRepository interface {
	Append(ctx context.Context, tx Tx, websiteID string, p model.PaymentRecord) error
	ListByWebsite(ctx context.Context, tx Tx, websiteID string) ([]model.PaymentRecord, error)
}
