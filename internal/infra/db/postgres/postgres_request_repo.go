package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"website-billing/internal/domain"
	"website-billing/internal/domain/model"
	"website-billing/internal/domain/ports/repository"
)

// Ensure requestRepo implements repository.BuildRequestRepository
var _ repository.BuildRequestRepository = (*requestRepo)(nil)

type requestRepo struct {
	pool *pgxpool.Pool
}

func NewRequestRepo(pool *pgxpool.Pool) *requestRepo {
	return &requestRepo{pool: pool}
}

func (r *requestRepo) Save(ctx context.Context, tx repository.Tx, req *model.BuildRequest) error {
	const q = `
INSERT INTO build_requests (id, client_name, contact_email, business_type, notes, status, created_at, decided_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET status=$6, decided_at=$8;`

	_, err := execSQL(ctx, r.pool, tx, q,
		req.ID, req.ClientName, req.ContactEmail, req.BusinessType, req.Notes,
		string(req.Status), req.CreatedAt, req.DecidedAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *requestRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.BuildRequest, error) {
	const q = `
SELECT id, client_name, contact_email, business_type, notes, status, created_at, decided_at
  FROM build_requests WHERE id=$1;`

	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanRequest(row)
}

func (r *requestRepo) ListByStatus(ctx context.Context, tx repository.Tx, status model.RequestStatus, offset, limit int) ([]*model.BuildRequest, error) {
	const q = `
SELECT id, client_name, contact_email, business_type, notes, status, created_at, decided_at
  FROM build_requests
 WHERE status=$1
 ORDER BY created_at DESC OFFSET $2 LIMIT $3;`

	rows, err := queryRows(ctx, r.pool, tx, q, string(status), offset, limit)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.BuildRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func scanRequest(row rowScanner) (*model.BuildRequest, error) {
	var (
		req    model.BuildRequest
		status string
	)
	err := row.Scan(&req.ID, &req.ClientName, &req.ContactEmail, &req.BusinessType,
		&req.Notes, &status, &req.CreatedAt, &req.DecidedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	req.Status = model.RequestStatus(status)
	return &req, nil
}
