package services

import (
	"context"

	"github.com/SscSPs/koperasi_core/internal/core/domain"
	"github.com/SscSPs/koperasi_core/internal/dto"
)

// MemberSvc manages cooperative members.
type MemberSvc interface {
	RegisterMember(ctx context.Context, tenantID string, req dto.RegisterMemberRequest, actorID string) (*domain.Member, error)
	ChangeMemberStatus(ctx context.Context, tenantID string, memberID string, req dto.ChangeMemberStatusRequest, actorID string) (*domain.Member, error)
	GetMember(ctx context.Context, tenantID string, memberID string) (*domain.Member, error)
}
