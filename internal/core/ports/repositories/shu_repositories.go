package repositories

import (
	"context"

	"github.com/SscSPs/koperasi_core/internal/core/domain"
)

// ShuPlanRepository persists SHU plans.
type ShuPlanRepository interface {
	SaveShuPlan(ctx context.Context, plan domain.ShuPlan) error
	FindShuPlanByID(ctx context.Context, planID string) (*domain.ShuPlan, error)
	LockShuPlan(ctx context.Context, planID string) (*domain.ShuPlan, error)
	UpdateShuPlan(ctx context.Context, plan domain.ShuPlan) error
	ListShuPlansByPeriod(ctx context.Context, fiscalPeriodID string) ([]domain.ShuPlan, error)
}

// ShuCalculationRepository persists per-member calculation rows. Rows are
// tagged with the run that produced them so a failed run can be removed
// without touching any other.
type ShuCalculationRepository interface {
	InsertShuCalculations(ctx context.Context, rows []domain.ShuMemberCalculation) error
	DeleteShuCalculationsByPlan(ctx context.Context, planID string) (int64, error)
	DeleteShuCalculationsByRun(ctx context.Context, planID, runID string) (int64, error)
	SummarizeShuCalculations(ctx context.Context, planID, runID string) (domain.ShuCalculationAggregate, error)

	// ListShuCalculations pages through a run's rows ordered by member id.
	ListShuCalculations(ctx context.Context, planID, runID string, limit int, nextToken *string) ([]domain.ShuMemberCalculation, *string, error)
	FindShuCalculationByMember(ctx context.Context, planID, runID, memberID string) (*domain.ShuMemberCalculation, error)
}

// ShuMetricsReader aggregates savings and loan history for a distribution.
type ShuMetricsReader interface {
	// TenantShuTotals aggregates the denominators over all eligible members.
	TenantShuTotals(ctx context.Context, period domain.ShuPeriod) (domain.ShuTenantTotals, error)

	// MemberShuMetrics loads the numerators of the given members in one pass.
	MemberShuMetrics(ctx context.Context, period domain.ShuPeriod, memberIDs []string) (map[string]domain.MemberShuMetrics, error)
}
