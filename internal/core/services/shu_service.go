package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SscSPs/koperasi_core/internal/apperrors"
	"github.com/SscSPs/koperasi_core/internal/core/domain"
	portsrepo "github.com/SscSPs/koperasi_core/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/koperasi_core/internal/core/ports/services"
	"github.com/SscSPs/koperasi_core/internal/core/statemachine"
	"github.com/SscSPs/koperasi_core/internal/dto"
	"github.com/SscSPs/koperasi_core/internal/platform/config"
	"github.com/SscSPs/koperasi_core/internal/platform/lock"
	"github.com/SscSPs/koperasi_core/internal/platform/validation"
	"github.com/SscSPs/koperasi_core/internal/utils/pagination"
)

// shuService manages SHU plans and runs their calculation.
type shuService struct {
	BaseService
	store    portsrepo.Store
	locker   lock.Locker
	cfg      config.ShuConfig
	observer CalculationObserver
}

// NewShuService creates the SHU plan and calculation service. locker guards
// a plan against concurrent calculations across processes.
func NewShuService(store portsrepo.Store, locker lock.Locker, cfg config.ShuConfig, options ...ServiceOption) portssvc.ShuSvcFacade {
	opts := applyOptions(options)
	return &shuService{
		BaseService: newBaseService(opts),
		store:       store,
		locker:      locker,
		cfg:         cfg,
		observer:    opts.observer,
	}
}

var _ portssvc.ShuSvcFacade = (*shuService)(nil)

func (s *shuService) CreatePlan(ctx context.Context, tenantID string, req dto.CreateShuPlanRequest, actorID string) (*domain.ShuPlan, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	plan := domain.ShuPlan{
		ShuPlanID:             s.newID(),
		TenantID:              tenantID,
		FiscalPeriodID:        req.FiscalPeriodID,
		Name:                  strings.TrimSpace(req.Name),
		TotalShuAmount:        req.TotalShuAmount,
		SavingsPercentage:     req.SavingsPercentage,
		TransactionPercentage: req.TransactionPercentage,
		ActivityPercentage:    req.ActivityPercentage,
		MembershipPercentage:  req.MembershipPercentage,
		MinimumShuAmount:      req.MinimumShuAmount,
		MaximumShuAmount:      req.MaximumShuAmount,
		Status:                domain.ShuDraft,
		AuditFields:           domain.NewAuditFields(actorID, s.now()),
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	err := s.store.WithinTransaction(ctx, tenantID, func(ctx context.Context, repos portsrepo.TenantRepositories) error {
		if _, err := repos.FiscalPeriods().FindFiscalPeriodByID(ctx, plan.FiscalPeriodID); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrCrossTenantAccess) {
				return apperrors.NewAppError(apperrors.ErrInvalidFiscalPeriod, plan.FiscalPeriodID, err)
			}
			return fmt.Errorf("failed to load fiscal period: %w", err)
		}
		return repos.ShuPlans().SaveShuPlan(ctx, plan)
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to create SHU plan", slog.String("tenant_id", tenantID))
		return nil, err
	}

	s.LogInfo(ctx, "SHU plan created",
		slog.String("tenant_id", tenantID),
		slog.String("shu_plan_id", plan.ShuPlanID),
		slog.String("total", plan.TotalShuAmount.String()))
	return &plan, nil
}

// UpdatePlan changes a draft or calculated plan. A calculated plan returns to
// draft and its results are discarded.
func (s *shuService) UpdatePlan(ctx context.Context, tenantID string, planID string, req dto.UpdateShuPlanRequest, actorID string) (*domain.ShuPlan, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	return s.transition(ctx, tenantID, planID, actorID, statemachine.EventEdit,
		func(ctx context.Context, repos portsrepo.TenantRepositories, plan *domain.ShuPlan, _ time.Time) error {
			applyPlanUpdate(plan, req)
			if err := plan.Validate(); err != nil {
				return err
			}
			return s.discardResults(ctx, repos, plan)
		})
}

func applyPlanUpdate(plan *domain.ShuPlan, req dto.UpdateShuPlanRequest) {
	if req.Name != nil {
		plan.Name = strings.TrimSpace(*req.Name)
	}
	if req.TotalShuAmount != nil {
		plan.TotalShuAmount = *req.TotalShuAmount
	}
	if req.SavingsPercentage != nil {
		plan.SavingsPercentage = *req.SavingsPercentage
	}
	if req.TransactionPercentage != nil {
		plan.TransactionPercentage = *req.TransactionPercentage
	}
	if req.ActivityPercentage != nil {
		plan.ActivityPercentage = *req.ActivityPercentage
	}
	if req.MembershipPercentage != nil {
		plan.MembershipPercentage = *req.MembershipPercentage
	}
	switch {
	case req.ClearMinimum:
		plan.MinimumShuAmount = nil
	case req.MinimumShuAmount != nil:
		plan.MinimumShuAmount = req.MinimumShuAmount
	}
	switch {
	case req.ClearMaximum:
		plan.MaximumShuAmount = nil
	case req.MaximumShuAmount != nil:
		plan.MaximumShuAmount = req.MaximumShuAmount
	}
}

// discardResults removes every calculation row of the plan and forgets the run.
func (s *shuService) discardResults(ctx context.Context, repos portsrepo.TenantRepositories, plan *domain.ShuPlan) error {
	if _, err := repos.ShuCalculations().DeleteShuCalculationsByPlan(ctx, plan.ShuPlanID); err != nil {
		return fmt.Errorf("failed to delete calculation rows: %w", err)
	}
	plan.CalculationRunID = nil
	plan.CalculatedAt = nil
	return nil
}

func (s *shuService) ApprovePlan(ctx context.Context, tenantID string, planID string, actorID string) (*domain.ShuPlan, error) {
	return s.transition(ctx, tenantID, planID, actorID, statemachine.EventApprove,
		func(_ context.Context, _ portsrepo.TenantRepositories, plan *domain.ShuPlan, now time.Time) error {
			plan.ApprovedBy = &actorID
			plan.ApprovedAt = &now
			return nil
		})
}

func (s *shuService) DistributePlan(ctx context.Context, tenantID string, planID string, actorID string) (*domain.ShuPlan, error) {
	return s.transition(ctx, tenantID, planID, actorID, statemachine.EventDistribute,
		func(_ context.Context, _ portsrepo.TenantRepositories, plan *domain.ShuPlan, now time.Time) error {
			plan.DistributedBy = &actorID
			plan.DistributedAt = &now
			return nil
		})
}

func (s *shuService) CancelPlan(ctx context.Context, tenantID string, planID string, actorID string) (*domain.ShuPlan, error) {
	return s.transition(ctx, tenantID, planID, actorID, statemachine.EventCancel, nil)
}

// ReopenPlan returns a cancelled plan to draft without its old results or approval.
func (s *shuService) ReopenPlan(ctx context.Context, tenantID string, planID string, actorID string) (*domain.ShuPlan, error) {
	return s.transition(ctx, tenantID, planID, actorID, statemachine.EventReopen,
		func(ctx context.Context, repos portsrepo.TenantRepositories, plan *domain.ShuPlan, _ time.Time) error {
			plan.ApprovedBy = nil
			plan.ApprovedAt = nil
			return s.discardResults(ctx, repos, plan)
		})
}

type planMutation func(ctx context.Context, repos portsrepo.TenantRepositories, plan *domain.ShuPlan, now time.Time) error

// transition locks the plan, fires event and persists the result of mutate.
func (s *shuService) transition(ctx context.Context, tenantID, planID, actorID, event string, mutate planMutation) (*domain.ShuPlan, error) {
	var plan *domain.ShuPlan
	err := s.store.WithinTransaction(ctx, tenantID, func(ctx context.Context, repos portsrepo.TenantRepositories) error {
		var err error
		plan, err = repos.ShuPlans().LockShuPlan(ctx, planID)
		if err != nil {
			return err
		}
		from := plan.Status
		if err := statemachine.Transition(ctx, plan, event); err != nil {
			return err
		}

		now := s.now()
		if mutate != nil {
			if err := mutate(ctx, repos, plan, now); err != nil {
				return err
			}
		}
		plan.Touch(actorID, now)
		if err := repos.ShuPlans().UpdateShuPlan(ctx, *plan); err != nil {
			return fmt.Errorf("failed to update SHU plan: %w", err)
		}

		s.LogInfo(ctx, "SHU plan transitioned",
			slog.String("shu_plan_id", planID),
			slog.String("event", event),
			slog.String("from", string(from)),
			slog.String("to", string(plan.Status)))
		return nil
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to transition SHU plan",
			slog.String("shu_plan_id", planID),
			slog.String("event", event))
		return nil, err
	}
	return plan, nil
}

func (s *shuService) GetPlan(ctx context.Context, tenantID string, planID string) (*domain.ShuPlan, error) {
	return s.store.Tenant(tenantID).ShuPlans().FindShuPlanByID(ctx, planID)
}

// GetSummary recomputes the summary from the rows of the plan's current run.
func (s *shuService) GetSummary(ctx context.Context, tenantID string, planID string) (*domain.ShuSummary, error) {
	repos := s.store.Tenant(tenantID)
	plan, err := repos.ShuPlans().FindShuPlanByID(ctx, planID)
	if err != nil {
		return nil, err
	}

	var agg domain.ShuCalculationAggregate
	if plan.CalculationRunID != nil {
		agg, err = repos.ShuCalculations().SummarizeShuCalculations(ctx, planID, *plan.CalculationRunID)
		if err != nil {
			return nil, fmt.Errorf("failed to summarize SHU calculations: %w", err)
		}
	}
	summary := domain.NewShuSummary(*plan, agg)
	return &summary, nil
}

func (s *shuService) ListMemberCalculations(ctx context.Context, tenantID string, planID string, params dto.ListParams) (*dto.ListShuCalculationsResponse, error) {
	if err := validation.Struct(params); err != nil {
		return nil, err
	}
	repos := s.store.Tenant(tenantID)
	plan, err := repos.ShuPlans().FindShuPlanByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan.CalculationRunID == nil {
		return &dto.ListShuCalculationsResponse{Calculations: []domain.ShuMemberCalculation{}}, nil
	}

	rows, next, err := repos.ShuCalculations().ListShuCalculations(ctx, planID, *plan.CalculationRunID,
		pagination.NormalizeLimit(params.Limit), params.NextToken)
	if err != nil {
		return nil, fmt.Errorf("failed to list SHU calculations: %w", err)
	}
	return &dto.ListShuCalculationsResponse{Calculations: rows, NextToken: next}, nil
}

func (s *shuService) GetMemberCalculation(ctx context.Context, tenantID string, planID string, memberID string) (*domain.ShuMemberCalculation, error) {
	repos := s.store.Tenant(tenantID)
	plan, err := repos.ShuPlans().FindShuPlanByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan.CalculationRunID == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("plan %s has not been calculated", planID))
	}
	return repos.ShuCalculations().FindShuCalculationByMember(ctx, planID, *plan.CalculationRunID, memberID)
}
