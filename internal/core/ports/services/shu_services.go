package services

import (
	"context"

	"github.com/SscSPs/koperasi_core/internal/core/domain"
	"github.com/SscSPs/koperasi_core/internal/dto"
)

// ShuPlanSvc manages SHU plans through their lifecycle.
type ShuPlanSvc interface {
	CreatePlan(ctx context.Context, tenantID string, req dto.CreateShuPlanRequest, actorID string) (*domain.ShuPlan, error)

	// UpdatePlan edits a draft plan, or a calculated one which returns it to draft.
	UpdatePlan(ctx context.Context, tenantID string, planID string, req dto.UpdateShuPlanRequest, actorID string) (*domain.ShuPlan, error)

	ApprovePlan(ctx context.Context, tenantID string, planID string, actorID string) (*domain.ShuPlan, error)
	DistributePlan(ctx context.Context, tenantID string, planID string, actorID string) (*domain.ShuPlan, error)
	CancelPlan(ctx context.Context, tenantID string, planID string, actorID string) (*domain.ShuPlan, error)
	ReopenPlan(ctx context.Context, tenantID string, planID string, actorID string) (*domain.ShuPlan, error)
	GetPlan(ctx context.Context, tenantID string, planID string) (*domain.ShuPlan, error)
}

// ShuCalculatorSvc runs and reads distributions.
type ShuCalculatorSvc interface {
	// CalculateShu computes every eligible member's share of the plan.
	CalculateShu(ctx context.Context, tenantID string, planID string, actorID string) (*dto.CalculateShuResponse, error)

	// GetSummary is recomputed from the persisted rows of the plan's latest run.
	GetSummary(ctx context.Context, tenantID string, planID string) (*domain.ShuSummary, error)

	ListMemberCalculations(ctx context.Context, tenantID string, planID string, params dto.ListParams) (*dto.ListShuCalculationsResponse, error)
	GetMemberCalculation(ctx context.Context, tenantID string, planID string, memberID string) (*domain.ShuMemberCalculation, error)
}

// ShuSvcFacade combines all SHU-related service interfaces
type ShuSvcFacade interface {
	ShuPlanSvc
	ShuCalculatorSvc
}
