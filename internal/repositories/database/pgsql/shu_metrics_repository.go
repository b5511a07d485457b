package pgsql

import (
	"context"

	"github.com/SscSPs/koperasi_core/internal/core/domain"
	"github.com/SscSPs/koperasi_core/internal/core/money"
	portsrepo "github.com/SscSPs/koperasi_core/internal/core/ports/repositories"
)

// PgxShuMetricsRepository aggregates savings and loan history in SQL so the
// calculation never loads raw transaction rows.
type PgxShuMetricsRepository struct {
	BaseRepository
}

var _ portsrepo.ShuMetricsReader = (*PgxShuMetricsRepository)(nil)

// metricsCTE derives per-member numerators for the members matched by the
// selected CTE. Parameters: $1 tenant, $2 period start, $3 period end.
// Callers prepend the selected CTE.
const metricsCTE = `
	latest_savings AS (
		SELECT DISTINCT ON (st.savings_account_id) st.member_id, st.savings_type, st.balance_after
		FROM savings_transactions st
		JOIN selected s ON s.member_id = st.member_id
		WHERE st.tenant_id = $1 AND st.transaction_date <= $3
		ORDER BY st.savings_account_id, st.transaction_date DESC, st.sequence DESC
	),
	savings AS (
		SELECT member_id, SUM(balance_after) AS balance
		FROM latest_savings
		GROUP BY member_id
	),
	savings_activity AS (
		SELECT st.member_id, COUNT(*) AS activity
		FROM savings_transactions st
		JOIN selected s ON s.member_id = st.member_id
		WHERE st.tenant_id = $1 AND st.transaction_date BETWEEN $2 AND $3
		GROUP BY st.member_id
	),
	payments AS (
		SELECT lp.member_id, COUNT(*) AS activity, SUM(lp.total_amount) AS total
		FROM loan_payments lp
		JOIN selected s ON s.member_id = lp.member_id
		WHERE lp.tenant_id = $1 AND lp.payment_date BETWEEN $2 AND $3
		GROUP BY lp.member_id
	),
	metrics AS (
		SELECT
			s.member_id,
			COALESCE(sv.balance, 0) AS savings,
			COALESCE(p.total, 0) AS loan_payments,
			(COALESCE(sa.activity, 0) + COALESCE(p.activity, 0))::bigint AS activity,
			GREATEST(0,
				(EXTRACT(YEAR FROM $3::date) - EXTRACT(YEAR FROM s.joined_at)) * 12
				+ (EXTRACT(MONTH FROM $3::date) - EXTRACT(MONTH FROM s.joined_at))
				- CASE WHEN EXTRACT(DAY FROM $3::date) < EXTRACT(DAY FROM s.joined_at) THEN 1 ELSE 0 END
			)::bigint AS membership_months
		FROM selected s
		LEFT JOIN savings sv ON sv.member_id = s.member_id
		LEFT JOIN savings_activity sa ON sa.member_id = s.member_id
		LEFT JOIN payments p ON p.member_id = s.member_id
	)`

const eligibleCTE = `
	WITH selected AS (
		SELECT member_id, joined_at
		FROM members
		WHERE tenant_id = $1 AND status = 'active' AND joined_at <= $3
	),`

// TenantShuTotals aggregates the denominators over every active member
// joined by the end of the period.
func (r *PgxShuMetricsRepository) TenantShuTotals(ctx context.Context, period domain.ShuPeriod) (domain.ShuTenantTotals, error) {
	totals := domain.ShuTenantTotals{SavingsByType: make(map[domain.SavingsType]money.Money, len(domain.AllSavingsTypes))}
	for _, t := range domain.AllSavingsTypes {
		totals.SavingsByType[t] = money.Zero
	}
	args := []any{r.tenantID, period.Start, period.End}

	query := eligibleCTE + metricsCTE + `
		SELECT
			COUNT(*),
			COALESCE(SUM(savings), 0),
			COALESCE(SUM(loan_payments), 0),
			COALESCE(SUM(activity), 0)::bigint,
			COALESCE(SUM(membership_months), 0)::bigint
		FROM metrics;
	`
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&totals.MemberCount,
		&totals.TotalSavings,
		&totals.TotalLoanPayments,
		&totals.TotalActivity,
		&totals.TotalMembershipMonths,
	)
	if err != nil {
		return domain.ShuTenantTotals{}, mapError(err, "aggregate shu totals")
	}

	byType := eligibleCTE + metricsCTE + `
		SELECT savings_type, SUM(balance_after)
		FROM latest_savings
		GROUP BY savings_type;
	`
	rows, err := r.db.Query(ctx, byType, args...)
	if err != nil {
		return domain.ShuTenantTotals{}, mapError(err, "aggregate savings by type")
	}
	defer rows.Close()
	for rows.Next() {
		var t domain.SavingsType
		var balance money.Money
		if err := rows.Scan(&t, &balance); err != nil {
			return domain.ShuTenantTotals{}, mapError(err, "scan savings by type")
		}
		totals.SavingsByType[t] = balance
	}
	if err := rows.Err(); err != nil {
		return domain.ShuTenantTotals{}, mapError(err, "iterate savings by type")
	}

	avgLoan := `
		SELECT COALESCE(ROUND(AVG(l.principal_amount), 2), 0)
		FROM loan_accounts l
		JOIN members m ON m.member_id = l.member_id
		WHERE l.tenant_id = $1
			AND m.status = 'active'
			AND m.joined_at <= $2
			AND l.disbursed_at <= $2;
	`
	if err := r.db.QueryRow(ctx, avgLoan, r.tenantID, period.End).Scan(&totals.AverageLoanPrincipal); err != nil {
		return domain.ShuTenantTotals{}, mapError(err, "average loan principal")
	}
	return totals, nil
}

// MemberShuMetrics loads the numerators of memberIDs in one statement. Ids of
// other tenants are absent from the result.
func (r *PgxShuMetricsRepository) MemberShuMetrics(ctx context.Context, period domain.ShuPeriod, memberIDs []string) (map[string]domain.MemberShuMetrics, error) {
	result := make(map[string]domain.MemberShuMetrics, len(memberIDs))
	if len(memberIDs) == 0 {
		return result, nil
	}

	query := `
	WITH selected AS (
		SELECT member_id, joined_at
		FROM members
		WHERE tenant_id = $1 AND member_id = ANY($4::uuid[])
	),` + metricsCTE + `
		SELECT member_id, savings, loan_payments, activity, membership_months
		FROM metrics;
	`
	rows, err := r.db.Query(ctx, query, r.tenantID, period.Start, period.End, memberIDs)
	if err != nil {
		return nil, mapError(err, "load member shu metrics")
	}
	defer rows.Close()

	for rows.Next() {
		var m domain.MemberShuMetrics
		if err := rows.Scan(&m.MemberID, &m.Savings, &m.LoanPayments, &m.ActivityCount, &m.MembershipMonths); err != nil {
			return nil, mapError(err, "scan member shu metrics")
		}
		result[m.MemberID] = m
	}
	return result, mapError(rows.Err(), "iterate member shu metrics")
}
