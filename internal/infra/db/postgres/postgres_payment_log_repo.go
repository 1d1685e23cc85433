package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4/pgxpool"

	"website-billing/internal/domain"
	"website-billing/internal/domain/model"
	"website-billing/internal/domain/ports/repository"
)

// Ensure paymentLogRepo implements repository.PaymentLogRepository
var _ repository.PaymentLogRepository = (*paymentLogRepo)(nil)

type paymentLogRepo struct {
	pool *pgxpool.Pool
}

func NewPaymentLogRepo(pool *pgxpool.Pool) *paymentLogRepo {
	return &paymentLogRepo{pool: pool}
}

func (r *paymentLogRepo) Append(ctx context.Context, tx repository.Tx, websiteID string, p model.PaymentRecord) error {
	const q = `
INSERT INTO website_payments (id, website_id, amount, paid_at, method, transaction_id)
VALUES ($1, $2, $3, $4, $5, $6);`

	_, err := execSQL(ctx, r.pool, tx, q,
		uuid.NewString(), websiteID, p.Amount, p.PaidAt, p.Method, p.TransactionID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		if errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *paymentLogRepo) ListByWebsite(ctx context.Context, tx repository.Tx, websiteID string) ([]model.PaymentRecord, error) {
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
