package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SscSPs/koperasi_core/internal/apperrors"
	"github.com/SscSPs/koperasi_core/internal/core/domain"
	portsrepo "github.com/SscSPs/koperasi_core/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/koperasi_core/internal/core/ports/services"
	"github.com/SscSPs/koperasi_core/internal/dto"
	"github.com/SscSPs/koperasi_core/internal/platform/validation"
)

type memberService struct {
	BaseService
	store portsrepo.Store
}

// NewMemberService creates the member registry service.
func NewMemberService(store portsrepo.Store, options ...ServiceOption) portssvc.MemberSvc {
	return &memberService{
		BaseService: newBaseService(applyOptions(options)),
		store:       store,
	}
}

var _ portssvc.MemberSvc = (*memberService)(nil)

func (s *memberService) RegisterMember(ctx context.Context, tenantID string, req dto.RegisterMemberRequest, actorID string) (*domain.Member, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	member := domain.Member{
		MemberID:     s.newID(),
		TenantID:     tenantID,
		MemberNumber: strings.TrimSpace(req.MemberNumber),
		Name:         strings.TrimSpace(req.Name),
		Status:       domain.MemberActive,
		JoinedAt:     domain.DateOf(req.JoinedAt),
		AuditFields:  domain.NewAuditFields(actorID, s.now()),
	}

	err := s.store.WithinTransaction(ctx, tenantID, func(ctx context.Context, repos portsrepo.TenantRepositories) error {
		return repos.Members().SaveMember(ctx, member)
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			err = apperrors.NewAppError(apperrors.ErrDuplicate, fmt.Sprintf("member number %s", member.MemberNumber), err)
		}
		s.LogError(ctx, err, "Failed to register member", slog.String("tenant_id", tenantID))
		return nil, err
	}

	s.LogInfo(ctx, "Member registered",
		slog.String("tenant_id", tenantID),
		slog.String("member_id", member.MemberID))
	return &member, nil
}

// ChangeMemberStatus moves a member between active, inactive and left. Leaving
// stamps LeftAt; reactivation clears it.
func (s *memberService) ChangeMemberStatus(ctx context.Context, tenantID string, memberID string, req dto.ChangeMemberStatusRequest, actorID string) (*domain.Member, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	var member *domain.Member
	err := s.store.WithinTransaction(ctx, tenantID, func(ctx context.Context, repos portsrepo.TenantRepositories) error {
		var err error
		member, err = repos.Members().FindMemberByID(ctx, memberID)
		if err != nil {
			return err
		}

		now := s.now()
		member.Status = req.Status
		if member.HasExited() {
			left := domain.DateOf(now)
			if req.EffectiveAt != nil {
				left = domain.DateOf(*req.EffectiveAt)
			}
			member.LeftAt = &left
		} else {
			member.LeftAt = nil
		}
		member.Touch(actorID, now)
		return repos.Members().UpdateMember(ctx, *member)
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to change member status", slog.String("member_id", memberID))
		return nil, err
	}
	return member, nil
}

func (s *memberService) GetMember(ctx context.Context, tenantID string, memberID string) (*domain.Member, error) {
	return s.store.Tenant(tenantID).Members().FindMemberByID(ctx, memberID)
}
