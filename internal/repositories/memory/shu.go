package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/SscSPs/koperasi_core/internal/apperrors"
	"github.com/SscSPs/koperasi_core/internal/core/domain"
	"github.com/SscSPs/koperasi_core/internal/core/money"
	"github.com/SscSPs/koperasi_core/internal/utils/pagination"
)

func (r *tenantRepos) SaveShuPlan(_ context.Context, plan domain.ShuPlan) error {
	defer r.lockData()()
	if err := r.checkTenant(plan.TenantID, "shu plan", plan.ShuPlanID); err != nil {
		return err
	}
	if _, exists := r.store.db.shuPlans[plan.ShuPlanID]; exists {
		return apperrors.NewAppError(apperrors.ErrDuplicate, fmt.Sprintf("shu plan %s", plan.ShuPlanID), nil)
	}
	put(r, r.store.db.shuPlans, plan.ShuPlanID, plan)
	return nil
}

func (r *tenantRepos) FindShuPlanByID(_ context.Context, planID string) (*domain.ShuPlan, error) {
	defer r.lockData()()
	plan, ok := r.store.db.shuPlans[planID]
	if !ok {
		return nil, notFound("shu plan", planID)
	}
	if err := r.checkTenant(plan.TenantID, "shu plan", planID); err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *tenantRepos) LockShuPlan(ctx context.Context, planID string) (*domain.ShuPlan, error) {
	if err := r.lockRow(ctx, "shu_plan:"+planID); err != nil {
		return nil, err
	}
	return r.FindShuPlanByID(ctx, planID)
}

func (r *tenantRepos) UpdateShuPlan(_ context.Context, plan domain.ShuPlan) error {
	defer r.lockData()()
	current, ok := r.store.db.shuPlans[plan.ShuPlanID]
	if !ok {
		return notFound("shu plan", plan.ShuPlanID)
	}
	if err := r.checkTenant(current.TenantID, "shu plan", plan.ShuPlanID); err != nil {
		return err
	}
	put(r, r.store.db.shuPlans, plan.ShuPlanID, plan)
	return nil
}

func (r *tenantRepos) ListShuPlansByPeriod(_ context.Context, fiscalPeriodID string) ([]domain.ShuPlan, error) {
	defer r.lockData()()
	var plans []domain.ShuPlan
	for _, p := range r.store.db.shuPlans {
		if p.TenantID == r.tenantID && p.FiscalPeriodID == fiscalPeriodID {
			plans = append(plans, p)
		}
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].CreatedAt.Before(plans[j].CreatedAt) })
	return plans, nil
}

func (r *tenantRepos) InsertShuCalculations(_ context.Context, rows []domain.ShuMemberCalculation) error {
	if len(rows) == 0 {
		return nil
	}
	defer r.lockData()()
	byPlan := make(map[string][]domain.ShuMemberCalculation)
	for _, row := range rows {
		if err := r.checkTenant(row.TenantID, "shu calculation", row.ShuMemberCalculationID); err != nil {
			return err
		}
		byPlan[row.ShuPlanID] = append(byPlan[row.ShuPlanID], row)
	}
	for planID, added := range byPlan {
		existing := r.store.db.shuCalcs[planID]
		for _, row := range added {
			for _, e := range existing {
				if e.RunID == row.RunID && e.MemberID == row.MemberID {
					return apperrors.NewAppError(apperrors.ErrDuplicate, fmt.Sprintf("shu calculation for member %s", row.MemberID), nil)
				}
			}
		}
		next := make([]domain.ShuMemberCalculation, 0, len(existing)+len(added))
		next = append(next, existing...)
		put(r, r.store.db.shuCalcs, planID, append(next, added...))
	}
	return nil
}

func (r *tenantRepos) deleteCalcs(planID string, keep func(domain.ShuMemberCalculation) bool) int64 {
	existing := r.store.db.shuCalcs[planID]
	kept := make([]domain.ShuMemberCalculation, 0, len(existing))
	for _, c := range existing {
		if c.TenantID != r.tenantID || keep(c) {
			kept = append(kept, c)
		}
	}
	removed := int64(len(existing) - len(kept))
	if removed > 0 {
		put(r, r.store.db.shuCalcs, planID, kept)
	}
	return removed
}

func (r *tenantRepos) DeleteShuCalculationsByPlan(_ context.Context, planID string) (int64, error) {
	defer r.lockData()()
	return r.deleteCalcs(planID, func(domain.ShuMemberCalculation) bool { return false }), nil
}

func (r *tenantRepos) DeleteShuCalculationsByRun(_ context.Context, planID, runID string) (int64, error) {
	defer r.lockData()()
	return r.deleteCalcs(planID, func(c domain.ShuMemberCalculation) bool { return c.RunID != runID }), nil
}

func (r *tenantRepos) runRows(planID, runID string) []domain.ShuMemberCalculation {
	var rows []domain.ShuMemberCalculation
	for _, c := range r.store.db.shuCalcs[planID] {
		if c.TenantID == r.tenantID && c.RunID == runID {
			rows = append(rows, c)
		}
	}
	return rows
}

func (r *tenantRepos) SummarizeShuCalculations(_ context.Context, planID, runID string) (domain.ShuCalculationAggregate, error) {
	defer r.lockData()()
	var agg domain.ShuCalculationAggregate
	for i, c := range r.runRows(planID, runID) {
		agg.MemberCount++
		agg.TotalShu = agg.TotalShu.Add(c.TotalShu)
		agg.SavingsShuTotal = agg.SavingsShuTotal.Add(c.SavingsShu)
		agg.TransactionShuTotal = agg.TransactionShuTotal.Add(c.TransactionShu)
		agg.ActivityShuTotal = agg.ActivityShuTotal.Add(c.ActivityShu)
		agg.MembershipShuTotal = agg.MembershipShuTotal.Add(c.MembershipShu)
		if i == 0 {
			agg.MinimumShu, agg.MaximumShu = c.TotalShu, c.TotalShu
			continue
		}
		agg.MinimumShu = money.Min(agg.MinimumShu, c.TotalShu)
		agg.MaximumShu = money.Max(agg.MaximumShu, c.TotalShu)
	}
	return agg, nil
}

func (r *tenantRepos) ListShuCalculations(_ context.Context, planID, runID string, limit int, nextToken *string) ([]domain.ShuMemberCalculation, *string, error) {
	limit = pagination.NormalizeLimit(limit)
	after := ""
	if nextToken != nil && *nextToken != "" {
		fields, err := pagination.DecodeMultiFieldToken(*nextToken)
		if err != nil || len(fields) != 1 {
			return nil, nil, apperrors.NewAppError(apperrors.ErrValidation, "invalid next token", err)
		}
		after = fields[0]
	}

	defer r.lockData()()
	var rows []domain.ShuMemberCalculation
	for _, c := range r.runRows(planID, runID) {
		if c.MemberID > after {
			rows = append(rows, c)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].MemberID < rows[j].MemberID })

	var next *string
	if len(rows) > limit {
		rows = rows[:limit]
		token := pagination.EncodeMultiFieldToken(rows[limit-1].MemberID)
		next = &token
	}
	return rows, next, nil
}

func (r *tenantRepos) FindShuCalculationByMember(_ context.Context, planID, runID, memberID string) (*domain.ShuMemberCalculation, error) {
	defer r.lockData()()
	for _, c := range r.runRows(planID, runID) {
		if c.MemberID == memberID {
			return &c, nil
		}
	}
	return nil, notFound("shu calculation for member", memberID)
}
