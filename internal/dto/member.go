package dto

import (
	"time"

	"github.com/SscSPs/koperasi_core/internal/core/domain"
)

// RegisterMemberRequest defines the data needed to register a member.
type RegisterMemberRequest struct {
	MemberNumber string    `json:"memberNumber" validate:"required,max=50"`
	Name         string    `json:"name" validate:"required,max=255"`
	JoinedAt     time.Time `json:"joinedAt" validate:"required"`
}

// ChangeMemberStatusRequest moves a member between active, inactive and left.
type ChangeMemberStatusRequest struct {
	Status      domain.MemberStatus `json:"status" validate:"required,oneof=active inactive left"`
	EffectiveAt *time.Time          `json:"effectiveAt,omitempty"`
}
