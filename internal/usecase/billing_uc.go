// File: internal/usecase/billing_uc.go
package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"website-billing/internal/domain"
	"website-billing/internal/domain/model"
	"website-billing/internal/domain/ports/adapter"
	"website-billing/internal/domain/ports/repository"
	"website-billing/internal/infra/logging"
)

// Compile-time check
var _ BillingUseCase = (*billingUC)(nil)

// BillingUpdate is an administrative override of billing fields. Nil
// fields are left untouched. Status changes here bypass the automated
// state machine but still must name a valid status.
type BillingUpdate struct {
	Plan   *string
	Price  *int64
	Cycle  *string
	Status *string
}

type BillingUseCase interface {
	// RecordPayment appends a manually-entered payment fact and activates
	// the record. The activation notification is best-effort.
	RecordPayment(ctx context.Context, websiteID string, amount int64, method, txID string, now time.Time) (*model.BillingRecord, error)
	// UpdateBilling applies an admin override to a website's billing record.
	UpdateBilling(ctx context.Context, websiteID string, upd BillingUpdate) (*model.BillingRecord, error)
}

type billingUC struct {
	websites repository.WebsiteRepository
	payments repository.PaymentLogRepository
	notifier adapter.NotificationGateway
	tm       repository.TransactionManager
	log      *zerolog.Logger
}

func NewBillingUseCase(
	websites repository.WebsiteRepository,
	payments repository.PaymentLogRepository,
	notifier adapter.NotificationGateway,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *billingUC {
	l := logger.With().Str("component", "BillingUseCase").Logger()
	return &billingUC{websites: websites, payments: payments, notifier: notifier, tm: tm, log: &l}
}

func (u *billingUC) RecordPayment(ctx context.Context, websiteID string, amount int64, method, txID string, now time.Time) (*model.BillingRecord, error) {
	defer logging.TraceDuration(u.log, "BillingUC.RecordPayment")()
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	var updated *model.BillingRecord
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		site, err := u.websites.FindByID(ctx, tx, websiteID)
		if err != nil {
			return err
		}
		if site.Billing == nil {
			return domain.ErrNotDeployed
		}
		prior := site.Billing.Status
		if err := site.Billing.RecordPayment(amount, now, method, txID); err != nil {
			return err
		}
		if err := u.payments.Append(ctx, tx, websiteID, site.Billing.PaymentHistory[len(site.Billing.PaymentHistory)-1]); err != nil {
			return err
		}
		if err := u.websites.UpdateBilling(ctx, tx, websiteID, site.Billing, prior); err != nil {
			return err
		}
		updated = site.Billing
		return nil
	})
	if err != nil {
		return nil, err
	}

	// State is persisted; the activation email must not fail the call.
	site, err := u.websites.FindByID(ctx, repository.NoTX, websiteID)
	if err != nil {
		u.log.Error().Err(err).Str("website_id", websiteID).Msg("reload for activation notification failed, skipping send")
	} else if nerr := u.notifier.SendActivated(ctx, websiteID, site.ContactEmail); nerr != nil {
		u.log.Error().Err(nerr).Str("website_id", websiteID).Msg("activation notification failed")
	}

	u.log.Info().
		Str("website_id", websiteID).
		Int64("amount", amount).
		Time("due_at", updated.DueAt).
		Msg("payment recorded")
	return updated, nil
}

func (u *billingUC) UpdateBilling(ctx context.Context, websiteID string, upd BillingUpdate) (*model.BillingRecord, error) {
	defer logging.TraceDuration(u.log, "BillingUC.UpdateBilling")()
	var updated *model.BillingRecord
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		site, err := u.websites.FindByID(ctx, tx, websiteID)
		if err != nil {
			return err
		}
		if site.Billing == nil {
			return domain.ErrNotDeployed
		}
		prior := site.Billing.Status

		if upd.Plan != nil {
			site.Billing.Plan = normalizePlan(*upd.Plan)
		}
		if upd.Price != nil {
			if *upd.Price < 0 {
				return domain.ErrInvalidArgument
			}
			site.Billing.Price = *upd.Price
		}
		if upd.Cycle != nil {
			cycle, err := model.ParseBillingCycle(*upd.Cycle)
			if err != nil {
				return err
			}
			site.Billing.Cycle = cycle
		}
		if upd.Status != nil {
			status, err := model.ParseBillingStatus(*upd.Status)
			if err != nil {
				return err
			}
			site.Billing.Status = status
		}

		if err := u.websites.UpdateBilling(ctx, tx, websiteID, site.Billing, prior); err != nil {
			return err
		}
		updated = site.Billing
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.log.Info().Str("website_id", websiteID).Str("status", string(updated.Status)).Msg("billing updated by admin")
	return updated, nil
}

func normalizePlan(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

