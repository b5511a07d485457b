package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/koperasi_core/internal/core/domain"
)

// MemberReader defines read operations for members
type MemberReader interface {
	FindMemberByID(ctx context.Context, memberID string) (*domain.Member, error)

	// ListEligibleMembers returns up to limit active members joined on or before
	// joinedBy whose id sorts after afterMemberID. It is the keyset page used by
	// the SHU calculation.
	ListEligibleMembers(ctx context.Context, joinedBy time.Time, afterMemberID string, limit int) ([]domain.Member, error)
}

// MemberWriter defines write operations for members
type MemberWriter interface {
	SaveMember(ctx context.Context, member domain.Member) error
	UpdateMember(ctx context.Context, member domain.Member) error
}

// MemberRepositoryFacade combines all member-related repository interfaces
type MemberRepositoryFacade interface {
	MemberReader
	MemberWriter
}
