package repository

import (
	"context"

	"website-billing/internal/domain/model"
)

// BuildRequestRepository is the port for incoming build requests.
type BuildRequestRepository interface {
	Save(ctx context.Context, tx Tx, r *model.BuildRequest) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.BuildRequest, error)
	ListByStatus(ctx context.Context, tx Tx, status model.RequestStatus, offset, limit int) ([]*model.BuildRequest, error)
}
