package model

import (
	"strings"
	"time"

	"website-billing/internal/domain"
)

type BillingStatus string

const (
	BillingStatusPending   BillingStatus = "pending"
	BillingStatusActive    BillingStatus = "active"
	BillingStatusOverdue   BillingStatus = "overdue"
	BillingStatusSuspended BillingStatus = "suspended"
)

type BillingCycle string

const (
	BillingCycleMonthly   BillingCycle = "monthly"
	BillingCycleQuarterly BillingCycle = "quarterly"
	BillingCycleYearly    BillingCycle = "yearly"
)

// GraceDays is the window after activation within which the first payment
// must arrive before the record is suspended. Set once at initialization
// and never recomputed.
const GraceDays = 5

func ParseBillingStatus(s string) (BillingStatus, error) {
	switch BillingStatus(strings.ToLower(s)) {
	case BillingStatusPending, BillingStatusActive, BillingStatusOverdue, BillingStatusSuspended:
		return BillingStatus(strings.ToLower(s)), nil
	}
	return "", domain.ErrInvalidStatus
}

func ParseBillingCycle(s string) (BillingCycle, error) {
	switch BillingCycle(strings.ToLower(s)) {
	case BillingCycleMonthly, BillingCycleQuarterly, BillingCycleYearly:
		return BillingCycle(strings.ToLower(s)), nil
	}
	return "", domain.ErrInvalidCycle
}

// TransitionDecision is the outcome of evaluating a billing record
// against a point in time.
type TransitionDecision int

const (
	NoChange TransitionDecision = iota
	TransitionToSuspended
	TransitionToOverdue
)

func (d TransitionDecision) String() string {
	switch d {
	case TransitionToSuspended:
		return "suspend"
	case TransitionToOverdue:
		return "overdue"
	}
	return "no_change"
}

// PaymentRecord is one manually-entered payment fact. History entries are
// append-only and never mutated.
type PaymentRecord struct {
	Amount        int64
	PaidAt        time.Time
	Method        string
	TransactionID string
}

// BillingRecord is the billing sub-entity embedded in a Website. Created
// when the website is first deployed; mutated only by payment recording,
// admin overrides and the reconciler.
type BillingRecord struct {
	Status         BillingStatus
	Plan           string // free text, lowercased
	Price          int64  // 0 = unset
	Cycle          BillingCycle
	ActivatedAt    time.Time
	DueAt          time.Time
	GraceEndsAt    time.Time
	LastPaymentAt  *time.Time
	SuspendedAt    *time.Time
	PaymentHistory []PaymentRecord
}

// NewBillingRecord initializes billing for a freshly deployed website.
// The grace deadline doubles as the first due date.
func NewBillingRecord(plan string, price int64, cycle BillingCycle, now time.Time) (*BillingRecord, error) {
	if price < 0 {
		return nil, domain.ErrInvalidArgument
	}
	if cycle == "" {
		cycle = BillingCycleMonthly
	} else {
		c, err := ParseBillingCycle(string(cycle))
		if err != nil {
			return nil, err
		}
		cycle = c
	}
	grace := AddDays(now, GraceDays)
	return &BillingRecord{
		Status:      BillingStatusPending,
		Plan:        strings.ToLower(plan),
		Price:       price,
		Cycle:       cycle,
		ActivatedAt: now,
		DueAt:       grace,
		GraceEndsAt: grace,
	}, nil
}

// RecordPayment appends a payment fact and forces the record active.
// This is the only path that extends DueAt and the only way out of
// overdue or suspended.
func (b *BillingRecord) RecordPayment(amount int64, now time.Time, method, txID string) error {
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}
	b.PaymentHistory = append(b.PaymentHistory, PaymentRecord{
		Amount:        amount,
		PaidAt:        now,
		Method:        method,
		TransactionID: txID,
	})
	paid := now
	b.LastPaymentAt = &paid
	b.DueAt = NextDueDate(now, b.Cycle)
	b.Status = BillingStatusActive
	b.SuspendedAt = nil
	return nil
}

// EvaluateTransition decides, without mutating, whether the record is due
// for an automated status change. Overdue and suspended records are stable
// here; they change only through RecordPayment or an admin override.
// Overdue records are deliberately never auto-suspended: suspension is
// tied to the one-time grace deadline only.
func (b *BillingRecord) EvaluateTransition(now time.Time) TransitionDecision {
	switch b.Status {
	case BillingStatusPending:
		if b.GraceEndsAt.Before(now) {
			return TransitionToSuspended
		}
	case BillingStatusActive:
		if b.DueAt.Before(now) {
			return TransitionToOverdue
		}
	}
	return NoChange
}

// ApplyTransition mutates status per the decision.
func (b *BillingRecord) ApplyTransition(decision TransitionDecision, now time.Time) {
	switch decision {
	case TransitionToSuspended:
		b.Status = BillingStatusSuspended
		at := now
		b.SuspendedAt = &at
	case TransitionToOverdue:
		b.Status = BillingStatusOverdue
	}
}
