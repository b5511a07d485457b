package pgsql

import (
	"context"
	"fmt"

	"github.com/SscSPs/koperasi_core/internal/core/domain"
	portsrepo "github.com/SscSPs/koperasi_core/internal/core/ports/repositories"
	"github.com/SscSPs/koperasi_core/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
)

type PgxShuPlanRepository struct {
	BaseRepository
}

type PgxShuCalculationRepository struct {
	BaseRepository
}

var (
	_ portsrepo.ShuPlanRepository        = (*PgxShuPlanRepository)(nil)
	_ portsrepo.ShuCalculationRepository = (*PgxShuCalculationRepository)(nil)
)

const shuPlanColumns = `shu_plan_id, tenant_id, fiscal_period_id, name, total_shu_amount,
	savings_percentage, transaction_percentage, activity_percentage, membership_percentage,
	minimum_shu_amount, maximum_shu_amount, status, calculation_run_id, calculated_at,
	approved_by, approved_at, distributed_by, distributed_at,
	created_at, created_by, last_updated_at, last_updated_by`

var shuCalculationColumns = []string{
	"shu_member_calculation_id", "tenant_id", "shu_plan_id", "run_id", "member_id",
	"savings_ratio", "transaction_ratio", "activity_ratio", "membership_ratio",
	"savings_shu", "transaction_shu", "activity_shu", "membership_shu", "total_shu", "created_at",
}

const shuCalculationSelect = `shu_member_calculation_id, tenant_id, shu_plan_id, run_id, member_id,
	savings_ratio, transaction_ratio, activity_ratio, membership_ratio,
	savings_shu, transaction_shu, activity_shu, membership_shu, total_shu, created_at`

func scanShuPlan(row rowScanner) (domain.ShuPlan, error) {
	var p domain.ShuPlan
	err := row.Scan(
		&p.ShuPlanID,
		&p.TenantID,
		&p.FiscalPeriodID,
		&p.Name,
		&p.TotalShuAmount,
		&p.SavingsPercentage,
		&p.TransactionPercentage,
		&p.ActivityPercentage,
		&p.MembershipPercentage,
		&p.MinimumShuAmount,
		&p.MaximumShuAmount,
		&p.Status,
		&p.CalculationRunID,
		&p.CalculatedAt,
		&p.ApprovedBy,
		&p.ApprovedAt,
		&p.DistributedBy,
		&p.DistributedAt,
		&p.CreatedAt,
		&p.CreatedBy,
		&p.LastUpdatedAt,
		&p.LastUpdatedBy,
	)
	return p, err
}

func scanShuCalculation(row rowScanner) (domain.ShuMemberCalculation, error) {
	var c domain.ShuMemberCalculation
	err := row.Scan(
		&c.ShuMemberCalculationID,
		&c.TenantID,
		&c.ShuPlanID,
		&c.RunID,
		&c.MemberID,
		&c.SavingsRatio,
		&c.TransactionRatio,
		&c.ActivityRatio,
		&c.MembershipRatio,
		&c.SavingsShu,
		&c.TransactionShu,
		&c.ActivityShu,
		&c.MembershipShu,
		&c.TotalShu,
		&c.CreatedAt,
	)
	return c, err
}

func (r *PgxShuPlanRepository) SaveShuPlan(ctx context.Context, plan domain.ShuPlan) error {
	if err := r.checkTenant(plan.TenantID, "shu plan", plan.ShuPlanID); err != nil {
		return err
	}
	query := `
		INSERT INTO shu_plans (` + shuPlanColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22);
	`
	_, err := r.db.Exec(ctx, query,
		plan.ShuPlanID,
		plan.TenantID,
		plan.FiscalPeriodID,
		plan.Name,
		plan.TotalShuAmount,
		plan.SavingsPercentage,
		plan.TransactionPercentage,
		plan.ActivityPercentage,
		plan.MembershipPercentage,
		plan.MinimumShuAmount,
		plan.MaximumShuAmount,
		plan.Status,
		plan.CalculationRunID,
		plan.CalculatedAt,
		plan.ApprovedBy,
		plan.ApprovedAt,
		plan.DistributedBy,
		plan.DistributedAt,
		plan.CreatedAt,
		plan.CreatedBy,
		plan.LastUpdatedAt,
		plan.LastUpdatedBy,
	)
	return mapError(err, fmt.Sprintf("shu plan %s", plan.ShuPlanID))
}

func (r *PgxShuPlanRepository) findPlan(ctx context.Context, planID string, forUpdate bool) (*domain.ShuPlan, error) {
	query := `SELECT ` + shuPlanColumns + ` FROM shu_plans WHERE shu_plan_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	p, err := scanShuPlan(r.db.QueryRow(ctx, query, planID))
	if err != nil {
		return nil, mapError(err, "shu plan "+planID)
	}
	if err := r.checkTenant(p.TenantID, "shu plan", planID); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PgxShuPlanRepository) FindShuPlanByID(ctx context.Context, planID string) (*domain.ShuPlan, error) {
	return r.findPlan(ctx, planID, false)
}

func (r *PgxShuPlanRepository) LockShuPlan(ctx context.Context, planID string) (*domain.ShuPlan, error) {
	return r.findPlan(ctx, planID, true)
}

// UpdateShuPlan overwrites every mutable column of the plan.
func (r *PgxShuPlanRepository) UpdateShuPlan(ctx context.Context, plan domain.ShuPlan) error {
	query := `
		UPDATE shu_plans
		SET name = $3, total_shu_amount = $4, savings_percentage = $5, transaction_percentage = $6,
			activity_percentage = $7, membership_percentage = $8, minimum_shu_amount = $9, maximum_shu_amount = $10,
			status = $11, calculation_run_id = $12, calculated_at = $13, approved_by = $14, approved_at = $15,
			distributed_by = $16, distributed_at = $17, last_updated_at = $18, last_updated_by = $19
		WHERE tenant_id = $1 AND shu_plan_id = $2;
	`
	tag, err := r.db.Exec(ctx, query,
		r.tenantID,
		plan.ShuPlanID,
		plan.Name,
		plan.TotalShuAmount,
		plan.SavingsPercentage,
		plan.TransactionPercentage,
		plan.ActivityPercentage,
		plan.MembershipPercentage,
		plan.MinimumShuAmount,
		plan.MaximumShuAmount,
		plan.Status,
		plan.CalculationRunID,
		plan.CalculatedAt,
		plan.ApprovedBy,
		plan.ApprovedAt,
		plan.DistributedBy,
		plan.DistributedAt,
		plan.LastUpdatedAt,
		plan.LastUpdatedBy,
	)
	if err != nil {
		return mapError(err, "update shu plan "+plan.ShuPlanID)
	}
	if tag.RowsAffected() == 0 {
		return mapError(pgx.ErrNoRows, "shu plan "+plan.ShuPlanID)
	}
	return nil
}

func (r *PgxShuPlanRepository) ListShuPlansByPeriod(ctx context.Context, fiscalPeriodID string) ([]domain.ShuPlan, error) {
	query := `SELECT ` + shuPlanColumns + ` FROM shu_plans WHERE tenant_id = $1 AND fiscal_period_id = $2 ORDER BY created_at;`
	rows, err := r.db.Query(ctx, query, r.tenantID, fiscalPeriodID)
	if err != nil {
		return nil, mapError(err, "list shu plans")
	}
	defer rows.Close()

	plans := make([]domain.ShuPlan, 0)
	for rows.Next() {
		p, err := scanShuPlan(rows)
		if err != nil {
			return nil, mapError(err, "scan shu plan")
		}
		plans = append(plans, p)
	}
	return plans, mapError(rows.Err(), "iterate shu plans")
}

// InsertShuCalculations streams one batch of rows with COPY. Amounts are sent
// in their canonical text form.
func (r *PgxShuCalculationRepository) InsertShuCalculations(ctx context.Context, rows []domain.ShuMemberCalculation) error {
	if len(rows) == 0 {
		return nil
	}
	for _, c := range rows {
		if err := r.checkTenant(c.TenantID, "shu calculation", c.ShuMemberCalculationID); err != nil {
			return err
		}
	}

	src := pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
		c := rows[i]
		return []any{
			c.ShuMemberCalculationID,
			c.TenantID,
			c.ShuPlanID,
			c.RunID,
			c.MemberID,
			c.SavingsRatio.String(),
			c.TransactionRatio.String(),
			c.ActivityRatio.String(),
			c.MembershipRatio.String(),
			c.SavingsShu.String(),
			c.TransactionShu.String(),
			c.ActivityShu.String(),
			c.MembershipShu.String(),
			c.TotalShu.String(),
			c.CreatedAt,
		}, nil
	})
	copied, err := r.db.CopyFrom(ctx, pgx.Identifier{"shu_member_calculations"}, shuCalculationColumns, src)
	if err != nil {
		return mapError(err, "copy shu calculations")
	}
	if copied != int64(len(rows)) {
		return fmt.Errorf("copy shu calculations: wrote %d of %d rows", copied, len(rows))
	}
	return nil
}

func (r *PgxShuCalculationRepository) DeleteShuCalculationsByPlan(ctx context.Context, planID string) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM shu_member_calculations WHERE tenant_id = $1 AND shu_plan_id = $2;`, r.tenantID, planID)
	if err != nil {
		return 0, mapError(err, "delete shu calculations")
	}
	return tag.RowsAffected(), nil
}

func (r *PgxShuCalculationRepository) DeleteShuCalculationsByRun(ctx context.Context, planID, runID string) (int64, error) {
	query := `DELETE FROM shu_member_calculations WHERE tenant_id = $1 AND shu_plan_id = $2 AND run_id = $3;`
	tag, err := r.db.Exec(ctx, query, r.tenantID, planID, runID)
	if err != nil {
		return 0, mapError(err, "delete shu calculations of run "+runID)
	}
	return tag.RowsAffected(), nil
}

func (r *PgxShuCalculationRepository) SummarizeShuCalculations(ctx context.Context, planID, runID string) (domain.ShuCalculationAggregate, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(total_shu), 0),
			COALESCE(MIN(total_shu), 0),
			COALESCE(MAX(total_shu), 0),
			COALESCE(SUM(savings_shu), 0),
			COALESCE(SUM(transaction_shu), 0),
			COALESCE(SUM(activity_shu), 0),
			COALESCE(SUM(membership_shu), 0)
		FROM shu_member_calculations
		WHERE tenant_id = $1 AND shu_plan_id = $2 AND run_id = $3;
	`
	var agg domain.ShuCalculationAggregate
	err := r.db.QueryRow(ctx, query, r.tenantID, planID, runID).Scan(
		&agg.MemberCount,
		&agg.TotalShu,
		&agg.MinimumShu,
		&agg.MaximumShu,
		&agg.SavingsShuTotal,
		&agg.TransactionShuTotal,
		&agg.ActivityShuTotal,
		&agg.MembershipShuTotal,
	)
	if err != nil {
		return domain.ShuCalculationAggregate{}, mapError(err, "summarize shu calculations")
	}
	return agg, nil
}

// ListShuCalculations pages through a run's rows by member_id.
func (r *PgxShuCalculationRepository) ListShuCalculations(ctx context.Context, planID, runID string, limit int, nextToken *string) ([]domain.ShuMemberCalculation, *string, error) {
	limit = pagination.NormalizeLimit(limit)
	args := []any{r.tenantID, planID, runID}
	query := `SELECT ` + shuCalculationSelect + ` FROM shu_member_calculations WHERE tenant_id = $1 AND shu_plan_id = $2 AND run_id = $3`

	if nextToken != nil && *nextToken != "" {
		fields, err := pagination.DecodeMultiFieldToken(*nextToken)
		if err != nil || len(fields) != 1 {
			return nil, nil, invalidToken(err)
		}
		query += ` AND member_id > $4::uuid`
		args = append(args, fields[0])
	}
	query += fmt.Sprintf(` ORDER BY member_id LIMIT %d;`, limit+1)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, mapError(err, "list shu calculations")
	}
	defer rows.Close()

	calcs := make([]domain.ShuMemberCalculation, 0, limit)
	for rows.Next() {
		c, err := scanShuCalculation(rows)
		if err != nil {
			return nil, nil, mapError(err, "scan shu calculation")
		}
		calcs = append(calcs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, mapError(err, "iterate shu calculations")
	}

	var next *string
	if len(calcs) > limit {
		calcs = calcs[:limit]
		token := pagination.EncodeMultiFieldToken(calcs[limit-1].MemberID)
		next = &token
	}
	return calcs, next, nil
}

func (r *PgxShuCalculationRepository) FindShuCalculationByMember(ctx context.Context, planID, runID, memberID string) (*domain.ShuMemberCalculation, error) {
	query := `
		SELECT ` + shuCalculationSelect + `
		FROM shu_member_calculations
		WHERE tenant_id = $1 AND shu_plan_id = $2 AND run_id = $3 AND member_id = $4;
	`
	c, err := scanShuCalculation(r.db.QueryRow(ctx, query, r.tenantID, planID, runID, memberID))
	if err != nil {
		return nil, mapError(err, "shu calculation for member "+memberID)
	}
	return &c, nil
}
