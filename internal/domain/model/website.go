package model

import (
	"time"

	"website-billing/internal/domain"
)

type WebsiteStatus string

const (
	WebsiteStatusInProgress WebsiteStatus = "in_progress"
	WebsiteStatusDeployed   WebsiteStatus = "deployed"
)

// Website is a tracked client website project. Billing is nil until the
// site is deployed; it is never deleted independently of the website.
type Website struct {
	ID           string // UUID
	RequestID    string // originating build request, empty if created directly
	ClientName   string
	ContactEmail string
	DomainName   string
	Status       WebsiteStatus
	CreatedAt    time.Time
	DeployedAt   *time.Time
	Billing      *BillingRecord
}

// NewWebsite creates an in-progress website project.
func NewWebsite(id, requestID, clientName, contactEmail, domainName string, now time.Time) (*Website, error) {
	if id == "" || clientName == "" || contactEmail == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Website{
		ID:           id,
		RequestID:    requestID,
		ClientName:   clientName,
		ContactEmail: contactEmail,
		DomainName:   domainName,
		Status:       WebsiteStatusInProgress,
		CreatedAt:    now,
	}, nil
}

// Deploy marks the site live and initializes its billing record. Calling
// it on an already deployed site is an error so billing is created once.
func (w *Website) Deploy(plan string, price int64, cycle BillingCycle, now time.Time) error {
	if w.Status == WebsiteStatusDeployed {
		return domain.ErrAlreadyExists
	}
	billing, err := NewBillingRecord(plan, price, cycle, now)
	if err != nil {
		return err
	}
	at := now
	w.Status = WebsiteStatusDeployed
	w.DeployedAt = &at
	w.Billing = billing
	return nil
}
