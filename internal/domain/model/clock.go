package model

import (
	"math"
	"time"
)

// Calendar arithmetic for billing dates. Everything funnels through
// time.AddDate, which normalizes month overflow: 2024-01-31 plus one
// month is 2024-03-02 (Feb 29 + 2). The same rule applies everywhere a
// due date is computed so stored dates stay comparable.

func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

func AddMonths(t time.Time, n int) time.Time {
	return t.AddDate(0, n, 0)
}

// NextDueDate advances from by one billing interval. An unrecognized
// cycle falls back to monthly so a corrupt value never freezes a record;
// validation paths should reject such values before they get here.
func NextDueDate(from time.Time, cycle BillingCycle) time.Time {
	switch cycle {
	case BillingCycleQuarterly:
		return AddMonths(from, 3)
	case BillingCycleYearly:
		return AddMonths(from, 12)
	default:
		return AddMonths(from, 1)
	}
}

// DaysRemaining returns whole days until due, rounded up. Negative when
// the due date has already passed.
func DaysRemaining(due, now time.Time) int {
	return int(math.Ceil(due.Sub(now).Hours() / 24))
}
