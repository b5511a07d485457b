package domain

import "time"

// MemberStatus is the membership state of a cooperative member.
type MemberStatus string

const (
	MemberActive   MemberStatus = "active"
	MemberInactive MemberStatus = "inactive"
	MemberLeft     MemberStatus = "left"
)

// IsValid reports whether s is a known member status.
func (s MemberStatus) IsValid() bool {
	switch s {
	case MemberActive, MemberInactive, MemberLeft:
		return true
	}
	return false
}

// Member is a cooperative member.
type Member struct {
	MemberID     string       `json:"memberID"`
	TenantID     string       `json:"tenantID"`
	MemberNumber string       `json:"memberNumber"`
	Name         string       `json:"name"`
	Status       MemberStatus `json:"status"`
	JoinedAt     time.Time    `json:"joinedAt"`
	LeftAt       *time.Time   `json:"leftAt,omitempty"`
	AuditFields
}

// HasExited reports whether the member is inactive or has left, which is
// the precondition for withdrawing mandatory savings.
func (m Member) HasExited() bool {
	return m.Status == MemberInactive || m.Status == MemberLeft
}

// IsEligibleForShu reports whether the member takes part in a distribution
// for a period ending on periodEnd.
func (m Member) IsEligibleForShu(periodEnd time.Time) bool {
	return m.Status == MemberActive && !DateOf(m.JoinedAt).After(DateOf(periodEnd))
}
