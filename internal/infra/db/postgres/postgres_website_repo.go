package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"website-billing/internal/domain"
	"website-billing/internal/domain/model"
	"website-billing/internal/domain/ports/repository"
)

// Ensure websiteRepo implements repository.WebsiteRepository
var _ repository.WebsiteRepository = (*websiteRepo)(nil)

type websiteRepo struct {
	pool *pgxpool.Pool
}

func NewWebsiteRepo(pool *pgxpool.Pool) *websiteRepo {
	return &websiteRepo{pool: pool}
}

const websiteColumns = `
  id, request_id, client_name, contact_email, domain_name, status, created_at, deployed_at,
  billing_status, billing_plan, billing_price, billing_cycle, billing_activated_at,
  billing_due_at, billing_grace_ends_at, billing_last_payment_at, billing_suspended_at`

func (r *websiteRepo) Save(ctx context.Context, tx repository.Tx, w *model.Website) error {
	const q = `
INSERT INTO websites (
  id, request_id, client_name, contact_email, domain_name, status, created_at, deployed_at,
  billing_status, billing_plan, billing_price, billing_cycle, billing_activated_at,
  billing_due_at, billing_grace_ends_at, billing_last_payment_at, billing_suspended_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
ON CONFLICT (id) DO UPDATE SET
  client_name=$3, contact_email=$4, domain_name=$5, status=$6, deployed_at=$8,
  billing_status=$9, billing_plan=$10, billing_price=$11, billing_cycle=$12,
  billing_activated_at=$13, billing_due_at=$14, billing_grace_ends_at=$15,
  billing_last_payment_at=$16, billing_suspended_at=$17;`

	var (
		bStatus, bPlan, bCycle          *string
		bPrice                          *int64
		bActivated, bDue, bGrace        *time.Time
		bLastPayment, bSuspended        *time.Time
	)
	if b := w.Billing; b != nil {
		s, p, c := string(b.Status), b.Plan, string(b.Cycle)
		bStatus, bPlan, bCycle = &s, &p, &c
		price := b.Price
		bPrice = &price
		act, due, grace := b.ActivatedAt, b.DueAt, b.GraceEndsAt
		bActivated, bDue, bGrace = &act, &due, &grace
		bLastPayment = b.LastPaymentAt
		bSuspended = b.SuspendedAt
	}

	_, err := execSQL(ctx, r.pool, tx, q,
		w.ID, w.RequestID, w.ClientName, w.ContactEmail, w.DomainName, string(w.Status),
		w.CreatedAt, w.DeployedAt,
		bStatus, bPlan, bPrice, bCycle, bActivated, bDue, bGrace, bLastPayment, bSuspended,
	)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidExecContext):
			return err
		default:
			return domain.ErrOperationFailed
		}
	}
	return nil
}

func (r *websiteRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Website, error) {
	q := `SELECT` + websiteColumns + ` FROM websites WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	w, err := scanWebsite(row)
	if err != nil {
		return nil, err
	}
	if w.Billing != nil {
		history, err := r.loadPayments(ctx, tx, w.ID)
		if err != nil {
			return nil, err
		}
		w.Billing.PaymentHistory = history
	}
	return w, nil
}

func (r *websiteRepo) List(ctx context.Context, tx repository.Tx, offset, limit int) ([]*model.Website, error) {
	q := `SELECT` + websiteColumns + ` FROM websites ORDER BY created_at DESC OFFSET $1 LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, offset, limit)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()
	return collectWebsites(rows)
}

func (r *websiteRepo) FindBillingCandidates(ctx context.Context, now time.Time) ([]*model.Website, error) {
	// The transition predicate is pushed to the store so this stays a
	// filtered index scan instead of a full table walk.
	q := `SELECT` + websiteColumns + `
  FROM websites
 WHERE (billing_status='pending' AND billing_grace_ends_at < $1)
    OR (billing_status='active'  AND billing_due_at < $1)
 ORDER BY created_at ASC;`
	rows, err := queryRows(ctx, r.pool, repository.NoTX, q, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectWebsites(rows)
}

// UpdateBilling is a conditional single-record write: it succeeds only if
// the stored billing status still matches what the caller read. Activation
// and grace timestamps are immutable after initialization and deliberately
// not part of the update.
func (r *websiteRepo) UpdateBilling(ctx context.Context, tx repository.Tx, websiteID string, b *model.BillingRecord, expected model.BillingStatus) error {
	const q = `
UPDATE websites SET
  billing_status=$3, billing_plan=$4, billing_price=$5, billing_cycle=$6,
  billing_due_at=$7, billing_last_payment_at=$8, billing_suspended_at=$9
 WHERE id=$1 AND billing_status=$2;`

	tag, err := execSQL(ctx, r.pool, tx, q,
		websiteID, string(expected),
		string(b.Status), b.Plan, b.Price, string(b.Cycle),
		b.DueAt, b.LastPaymentAt, b.SuspendedAt,
	)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidExecContext):
			return err
		default:
			return domain.ErrOperationFailed
		}
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Nothing matched: either the website is gone / not deployed, or the
	// status moved underneath us.
	row, err := pickRow(ctx, r.pool, tx, `SELECT billing_status FROM websites WHERE id=$1;`, websiteID)
	if err != nil {
		return err
	}
	var current *string
	if err := row.Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return domain.ErrReadDatabaseRow
	}
	if current == nil {
		return domain.ErrNotFound
	}
	return domain.ErrConflict
}

func (r *websiteRepo) CountByBillingStatus(ctx context.Context) (map[model.BillingStatus]int, error) {
	const q = `
SELECT billing_status, COUNT(*)
  FROM websites
 WHERE billing_status IS NOT NULL
 GROUP BY billing_status;`
	rows, err := queryRows(ctx, r.pool, repository.NoTX, q)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	out := make(map[model.BillingStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out[model.BillingStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *websiteRepo) loadPayments(ctx context.Context, tx repository.Tx, websiteID string) ([]model.PaymentRecord, error) {
	const q = `
SELECT amount, paid_at, method, transaction_id
  FROM website_payments
 WHERE website_id=$1
 ORDER BY paid_at ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, websiteID)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []model.PaymentRecord
	for rows.Next() {
		var p model.PaymentRecord
		if err := rows.Scan(&p.Amount, &p.PaidAt, &p.Method, &p.TransactionID); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanWebsite(row rowScanner) (*model.Website, error) {
	var (
		w                        model.Website
		status                   string
		bStatus, bPlan, bCycle   *string
		bPrice                   *int64
		bActivated, bDue, bGrace *time.Time
		bLastPayment, bSuspended *time.Time
	)
	err := row.Scan(
		&w.ID, &w.RequestID, &w.ClientName, &w.ContactEmail, &w.DomainName, &status,
		&w.CreatedAt, &w.DeployedAt,
		&bStatus, &bPlan, &bPrice, &bCycle, &bActivated, &bDue, &bGrace, &bLastPayment, &bSuspended,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	w.Status = model.WebsiteStatus(status)
	if bStatus != nil {
		b := &model.BillingRecord{
			Status:        model.BillingStatus(*bStatus),
			LastPaymentAt: bLastPayment,
			SuspendedAt:   bSuspended,
		}
		if bPlan != nil {
			b.Plan = *bPlan
		}
		if bPrice != nil {
			b.Price = *bPrice
		}
		if bCycle != nil {
			b.Cycle = model.BillingCycle(*bCycle)
		}
		if bActivated != nil {
			b.ActivatedAt = *bActivated
		}
		if bDue != nil {
			b.DueAt = *bDue
		}
		if bGrace != nil {
			b.GraceEndsAt = *bGrace
		}
		w.Billing = b
	}
	return &w, nil
}

func collectWebsites(rows pgx.Rows) ([]*model.Website, error) {
	var out []*model.Website
	for rows.Next() {
		w, err := scanWebsite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}
