package pgsql

import (
	"context"
	"time"

	"github.com/SscSPs/koperasi_core/internal/core/domain"
)

// HasLinesForAccount reports whether any entry of the tenant, approved or
// not, posts to the account.
func (r *PgxJournalRepository) HasLinesForAccount(ctx context.Context, accountID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM journal_entry_lines l
			JOIN journal_entries e ON e.journal_entry_id = l.journal_entry_id
			WHERE e.tenant_id = $1 AND l.account_id = $2
		);
	`
	var exists bool
	if err := r.db.QueryRow(ctx, query, r.tenantID, accountID).Scan(&exists); err != nil {
		return false, mapError(err, "check account lines")
	}
	return exists, nil
}

// SumApprovedLines totals approved lines per account dated on or before asOf.
// Every requested account is present in the result, zero when nothing posted.
func (r *PgxJournalRepository) SumApprovedLines(ctx context.Context, accountIDs []string, asOf time.Time) (map[string]domain.LineTotals, error) {
	totals := make(map[string]domain.LineTotals, len(accountIDs))
	if len(accountIDs) == 0 {
		return totals, nil
	}
	for _, id := range accountIDs {
		totals[id] = domain.LineTotals{}
	}

	query := `
		SELECT
			l.account_id,
			COALESCE(SUM(l.debit_amount), 0) AS total_debit,
			COALESCE(SUM(l.credit_amount), 0) AS total_credit
		FROM journal_entry_lines l
		JOIN journal_entries e ON e.journal_entry_id = l.journal_entry_id
		WHERE e.tenant_id = $1
			AND e.is_approved
			AND e.transaction_date <= $2
			AND l.account_id = ANY($3)
		GROUP BY l.account_id
	`
	rows, err := r.db.Query(ctx, query, r.tenantID, domain.DateOf(asOf), accountIDs)
	if err != nil {
		return nil, mapError(err, "sum approved lines")
	}
	defer rows.Close()

	for rows.Next() {
		var accountID string
		var t domain.LineTotals
		if err := rows.Scan(&accountID, &t.Debit, &t.Credit); err != nil {
			return nil, mapError(err, "scan line totals")
		}
		totals[accountID] = t
	}
	return totals, mapError(rows.Err(), "iterate line totals")
}

// TrialBalance returns approved totals per account up to asOf ordered by
// account code. Accounts without postings are omitted.
func (r *PgxJournalRepository) TrialBalance(ctx context.Context, asOf time.Time) ([]domain.TrialBalanceRow, error) {
	query := `
		SELECT
			a.account_id,
			a.code,
			a.name,
			a.account_type,
			SUM(l.debit_amount) AS total_debit,
			SUM(l.credit_amount) AS total_credit
		FROM journal_entry_lines l
		JOIN journal_entries e ON e.journal_entry_id = l.journal_entry_id
		JOIN accounts a ON a.account_id = l.account_id
		WHERE e.tenant_id = $1
			AND e.is_approved
			AND e.transaction_date <= $2
		GROUP BY a.account_id, a.code, a.name, a.account_type
		ORDER BY a.code
	`
	rows, err := r.db.Query(ctx, query, r.tenantID, domain.DateOf(asOf))
	if err != nil {
		return nil, mapError(err, "query trial balance")
	}
	defer rows.Close()

	result := make([]domain.TrialBalanceRow, 0)
	for rows.Next() {
		var row domain.TrialBalanceRow
		if err := rows.Scan(
			&row.AccountID,
			&row.AccountCode,
			&row.AccountName,
			&row.AccountType,
			&row.Debit,
			&row.Credit,
		); err != nil {
			return nil, mapError(err, "scan trial balance row")
		}
		result = append(result, row)
	}
	return result, mapError(rows.Err(), "iterate trial balance rows")
}
