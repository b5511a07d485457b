package domain

import "time"

// FiscalPeriod is a bounded accounting interval. At most one period per
// tenant is open for posting.
type FiscalPeriod struct {
	FiscalPeriodID string     `json:"fiscalPeriodID"`
	TenantID       string     `json:"tenantID"`
	Name           string     `json:"name"`
	StartDate      time.Time  `json:"startDate"`
	EndDate        time.Time  `json:"endDate"` // inclusive
	IsClosed       bool       `json:"isClosed"`
	ClosedAt       *time.Time `json:"closedAt,omitempty"`
	ClosedBy       *string    `json:"closedBy,omitempty"`
	AuditFields
}

// Contains reports whether the calendar date of t falls inside the period.
func (p FiscalPeriod) Contains(t time.Time) bool {
	d := DateOf(t)
	return !d.Before(DateOf(p.StartDate)) && !d.After(DateOf(p.EndDate))
}
