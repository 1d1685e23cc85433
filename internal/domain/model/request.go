package model

import (
	"time"

	"website-billing/internal/domain"
)

type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

// BuildRequest is an incoming website build request submitted by a client.
// Approved requests become Website projects.
type BuildRequest struct {
	ID           string // UUID
	ClientName   string
	ContactEmail string
	BusinessType string
	Notes        string
	Status       RequestStatus
	CreatedAt    time.Time
	DecidedAt    *time.Time
}

func NewBuildRequest(id, clientName, contactEmail, businessType, notes string, now time.Time) (*BuildRequest, error) {
	if id == "" || clientName == "" || contactEmail == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &BuildRequest{
		ID:           id,
		ClientName:   clientName,
		ContactEmail: contactEmail,
		BusinessType: businessType,
		Notes:        notes,
		Status:       RequestStatusPending,
		CreatedAt:    now,
	}, nil
}
