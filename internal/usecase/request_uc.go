// File: internal/usecase/request_uc.go
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"website-billing/internal/domain"
	"website-billing/internal/domain/model"
	"website-billing/internal/domain/ports/repository"
)

// Compile-time check
var _ RequestUseCase = (*requestUC)(nil)

type RequestUseCase interface {
	Submit(ctx context.Context, clientName, contactEmail, businessType, notes string, now time.Time) (*model.BuildRequest, error)
	Approve(ctx context.Context, requestID string, now time.Time) (*model.BuildRequest, error)
	Reject(ctx context.Context, requestID string, now time.Time) (*model.BuildRequest, error)
	ListByStatus(ctx context.Context, status string, offset, limit int) ([]*model.BuildRequest, error)
}

type requestUC struct {
	requests repository.BuildRequestRepository
	log      *zerolog.Logger
}

func NewRequestUseCase(requests repository.BuildRequestRepository, logger *zerolog.Logger) *requestUC {
	l := logger.With().Str("component", "RequestUseCase").Logger()
	return &requestUC{requests: requests, log: &l}
}

func (u *requestUC) Submit(ctx context.Context, clientName, contactEmail, businessType, notes string, now time.Time) (*model.BuildRequest, error) {
	req, err := model.NewBuildRequest(uuid.NewString(), clientName, contactEmail, businessType, notes, now)
	if err != nil {
		return nil, err
	}
	if err := u.requests.Save(ctx, repository.NoTX, req); err != nil {
		return nil, err
	}
	u.log.Info().Str("request_id", req.ID).Msg("build request submitted")
	return req, nil
}

func (u *requestUC) Approve(ctx context.Context, requestID string, now time.Time) (*model.BuildRequest, error) {
	return u.decide(ctx, requestID, model.RequestStatusApproved, now)
}

func (u *requestUC) Reject(ctx context.Context, requestID string, now time.Time) (*model.BuildRequest, error) {
	return u.decide(ctx, requestID, model.RequestStatusRejected, now)
}

func (u *requestUC) decide(ctx context.Context, requestID string, status model.RequestStatus, now time.Time) (*model.BuildRequest, error) {
	req, err := u.requests.FindByID(ctx, repository.NoTX, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != model.RequestStatusPending {
		return nil, domain.ErrAlreadyExists
	}
	at := now
	req.Status = status
	req.DecidedAt = &at
	if err := u.requests.Save(ctx, repository.NoTX, req); err != nil {
		return nil, err
	}
	u.log.Info().Str("request_id", requestID).Str("status", string(status)).Msg("build request decided")
	return req, nil
}

func (u *requestUC) ListByStatus(ctx context.Context, status string, offset, limit int) ([]*model.BuildRequest, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	st := model.RequestStatus(status)
	switch st {
	case model.RequestStatusPending, model.RequestStatusApproved, model.RequestStatusRejected:
	default:
		return nil, domain.ErrInvalidArgument
	}
	return u.requests.ListByStatus(ctx, repository.NoTX, st, offset, limit)
}
