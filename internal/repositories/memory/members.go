package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/SscSPs/koperasi_core/internal/apperrors"
	"github.com/SscSPs/koperasi_core/internal/core/domain"
)

func (r *tenantRepos) FindMemberByID(_ context.Context, memberID string) (*domain.Member, error) {
	defer r.lockData()()
	m, ok := r.store.db.members[memberID]
	if !ok {
		return nil, notFound("member", memberID)
	}
	if err := r.checkTenant(m.TenantID, "member", memberID); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *tenantRepos) ListEligibleMembers(_ context.Context, joinedBy time.Time, afterMemberID string, limit int) ([]domain.Member, error) {
	defer r.lockData()()
	var members []domain.Member
	for _, m := range r.store.db.members {
		if m.TenantID == r.tenantID && m.MemberID > afterMemberID && m.IsEligibleForShu(joinedBy) {
			members = append(members, m)
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].MemberID < members[j].MemberID })
	if len(members) > limit {
		members = members[:limit]
	}
	return members, nil
}

func (r *tenantRepos) SaveMember(_ context.Context, member domain.Member) error {
	defer r.lockData()()
	if err := r.checkTenant(member.TenantID, "member", member.MemberID); err != nil {
		return err
	}
	for _, m := range r.store.db.members {
		if m.TenantID == r.tenantID && (m.MemberNumber == member.MemberNumber || m.MemberID == member.MemberID) {
			return apperrors.NewAppError(apperrors.ErrDuplicate, fmt.Sprintf("member number %s", member.MemberNumber), nil)
		}
	}
	put(r, r.store.db.members, member.MemberID, member)
	return nil
}

func (r *tenantRepos) UpdateMember(_ context.Context, member domain.Member) error {
	defer r.lockData()()
	current, ok := r.store.db.members[member.MemberID]
	if !ok {
		return notFound("member", member.MemberID)
	}
	if err := r.checkTenant(current.TenantID, "member", member.MemberID); err != nil {
		return err
	}
	put(r, r.store.db.members, member.MemberID, member)
	return nil
}
