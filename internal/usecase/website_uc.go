// File: internal/usecase/website_uc.go
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
var _ WebsiteUseCase = (*websiteUC)(nil)

type WebsiteUseCase interface {
	// CreateFromRequest turns an approved build request into a tracked
	// in-progress website project.
	CreateFromRequest(ctx context.Context, requestID, domainName string, now time.Time) (*model.Website, error)
	// Deploy marks a website live and initializes its billing record.
	Deploy(ctx context.Context, websiteID, plan string, price int64, cycle string, now time.Time) (*model.Website, error)
	Get(ctx context.Context, websiteID string) (*model.Website, error)
	List(ctx context.Context, offset, limit int) ([]*model.Website, error)
	CountByBillingStatus(ctx context.Context) (map[model.BillingStatus]int, error)
}

type websiteUC struct {
	websites repository.WebsiteRepository
	requests repository.BuildRequestRepository
	log      *zerolog.Logger
}

func NewWebsiteUseCase(websites repository.WebsiteRepository, requests repository.BuildRequestRepository, logger *zerolog.Logger) *websiteUC {
	l := logger.With().Str("component", "WebsiteUseCase").Logger()
	return &websiteUC{websites: websites, requests: requests, log: &l}
}

func (u *websiteUC) CreateFromRequest(ctx context.Context, requestID, domainName string, now time.Time) (*model.Website, error) {
	req, err := u.requests.FindByID(ctx, repository.NoTX, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != model.RequestStatusApproved {
		return nil, domain.ErrInvalidArgument
	}
	site, err := model.NewWebsite(uuid.NewString(), req.ID, req.ClientName, req.ContactEmail, domainName, now)
	if err != nil {
		return nil, err
	}
	if err := u.websites.Save(ctx, repository.NoTX, site); err != nil {
		return nil, err
	}
	u.log.Info().Str("website_id", site.ID).Str("request_id", requestID).Msg("website project created")
	return site, nil
}

func (u *websiteUC) Deploy(ctx context.Context, websiteID, plan string, price int64, cycle string, now time.Time) (*model.Website, error) {
	site, err := u.websites.FindByID(ctx, repository.NoTX, websiteID)
	if err != nil {
		return nil, err
	}
	var bc model.BillingCycle
	if cycle != "" {
		bc, err = model.ParseBillingCycle(cycle)
		if err != nil {
			return nil, err
		}
	}
	if err := site.Deploy(plan, price, bc, now); err != nil {
		return nil, err
	}
	if err := u.websites.Save(ctx, repository.NoTX, site); err != nil {
		return nil, err
	}
	u.log.Info().
		Str("website_id", site.ID).
		Str("plan", site.Billing.Plan).
		Time("grace_ends_at", site.Billing.GraceEndsAt).
		Msg("website deployed, billing initialized")
	return site, nil
}

func (u *websiteUC) Get(ctx context.Context, websiteID string) (*model.Website, error) {
	return u.websites.FindByID(ctx, repository.NoTX, websiteID)
}

func (u *websiteUC) List(ctx context.Context, offset, limit int) ([]*model.Website, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return u.websites.List(ctx, repository.NoTX, offset, limit)
}

func (u *websiteUC) CountByBillingStatus(ctx context.Context) (map[model.BillingStatus]int, error) {
	return u.websites.CountByBillingStatus(ctx)
}
