package pgsql

import (
	"context"
	"fmt"

	"github.com/SscSPs/koperasi_core/internal/core/domain"
	"github.com/SscSPs/koperasi_core/internal/core/money"
	portsrepo "github.com/SscSPs/koperasi_core/internal/core/ports/repositories"
	"github.com/SscSPs/koperasi_core/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
)

type PgxLoanRepository struct {
	BaseRepository
}

var _ portsrepo.LoanRepository = (*PgxLoanRepository)(nil)

const loanAccountColumns = `loan_account_id, tenant_id, member_id, loan_number, principal_amount, interest_rate, term_months,
	outstanding_balance, status, disbursed_at, created_at, created_by, last_updated_at, last_updated_by`

const loanPaymentColumns = `loan_payment_id, tenant_id, loan_account_id, member_id, reference_number, principal_amount,
	interest_amount, total_amount, balance_before, balance_after, payment_date, sequence, notes, processed_by, created_at`

func scanLoanAccount(row rowScanner) (domain.LoanAccount, error) {
	var l domain.LoanAccount
	err := row.Scan(
		&l.LoanAccountID,
		&l.TenantID,
		&l.MemberID,
		&l.LoanNumber,
		&l.PrincipalAmount,
		&l.InterestRate,
		&l.TermMonths,
		&l.OutstandingBalance,
		&l.Status,
		&l.DisbursedAt,
		&l.CreatedAt,
		&l.CreatedBy,
		&l.LastUpdatedAt,
		&l.LastUpdatedBy,
	)
	return l, err
}

func scanLoanPayment(row rowScanner) (domain.LoanPayment, error) {
	var p domain.LoanPayment
	err := row.Scan(
		&p.LoanPaymentID,
		&p.TenantID,
		&p.LoanAccountID,
		&p.MemberID,
		&p.ReferenceNumber,
		&p.PrincipalAmount,
		&p.InterestAmount,
		&p.TotalAmount,
		&p.BalanceBefore,
		&p.BalanceAfter,
		&p.PaymentDate,
		&p.Sequence,
		&p.Notes,
		&p.ProcessedBy,
		&p.CreatedAt,
	)
	return p, err
}

func (r *PgxLoanRepository) SaveLoanAccount(ctx context.Context, loan domain.LoanAccount) error {
	if err := r.checkTenant(loan.TenantID, "loan", loan.LoanAccountID); err != nil {
		return err
	}
	query := `
		INSERT INTO loan_accounts (` + loanAccountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14);
	`
	_, err := r.db.Exec(ctx, query,
		loan.LoanAccountID,
		loan.TenantID,
		loan.MemberID,
		loan.LoanNumber,
		loan.PrincipalAmount,
		loan.InterestRate,
		loan.TermMonths,
		loan.OutstandingBalance,
		loan.Status,
		loan.DisbursedAt,
		loan.CreatedAt,
		loan.CreatedBy,
		loan.LastUpdatedAt,
		loan.LastUpdatedBy,
	)
	return mapError(err, fmt.Sprintf("loan %s", loan.LoanNumber))
}

func (r *PgxLoanRepository) findLoan(ctx context.Context, loanAccountID string, forUpdate bool) (*domain.LoanAccount, error) {
	query := `SELECT ` + loanAccountColumns + ` FROM loan_accounts WHERE loan_account_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	l, err := scanLoanAccount(r.db.QueryRow(ctx, query, loanAccountID))
	if err != nil {
		return nil, mapError(err, "loan "+loanAccountID)
	}
	if err := r.checkTenant(l.TenantID, "loan", loanAccountID); err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *PgxLoanRepository) FindLoanAccountByID(ctx context.Context, loanAccountID string) (*domain.LoanAccount, error) {
	return r.findLoan(ctx, loanAccountID, false)
}

func (r *PgxLoanRepository) LockLoanAccount(ctx context.Context, loanAccountID string) (*domain.LoanAccount, error) {
	return r.findLoan(ctx, loanAccountID, true)
}

func (r *PgxLoanRepository) UpdateLoanBalance(ctx context.Context, loan domain.LoanAccount) error {
	query := `
		UPDATE loan_accounts
		SET outstanding_balance = $3, status = $4, last_updated_at = $5, last_updated_by = $6
		WHERE tenant_id = $1 AND loan_account_id = $2;
	`
	tag, err := r.db.Exec(ctx, query,
		r.tenantID,
		loan.LoanAccountID,
		loan.OutstandingBalance,
		loan.Status,
		loan.LastUpdatedAt,
		loan.LastUpdatedBy,
	)
	if err != nil {
		return mapError(err, "update loan "+loan.LoanAccountID)
	}
	if tag.RowsAffected() == 0 {
		return mapError(pgx.ErrNoRows, "loan "+loan.LoanAccountID)
	}
	return nil
}

func (r *PgxLoanRepository) LatestLoanPayment(ctx context.Context, loanAccountID string) (*domain.LoanPayment, error) {
	query := `
		SELECT ` + loanPaymentColumns + `
		FROM loan_payments
		WHERE tenant_id = $1 AND loan_account_id = $2
		ORDER BY payment_date DESC, sequence DESC
		LIMIT 1;
	`
	p, err := scanLoanPayment(r.db.QueryRow(ctx, query, r.tenantID, loanAccountID))
	if err != nil {
		return nil, mapError(err, "loan payment for loan "+loanAccountID)
	}
	return &p, nil
}

func (r *PgxLoanRepository) SaveLoanPayment(ctx context.Context, payment domain.LoanPayment) error {
	if err := r.checkTenant(payment.TenantID, "loan payment", payment.LoanPaymentID); err != nil {
		return err
	}
	query := `
		INSERT INTO loan_payments (` + loanPaymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15);
	`
	_, err := r.db.Exec(ctx, query,
		payment.LoanPaymentID,
		payment.TenantID,
		payment.LoanAccountID,
		payment.MemberID,
		payment.ReferenceNumber,
		payment.PrincipalAmount,
		payment.InterestAmount,
		payment.TotalAmount,
		payment.BalanceBefore,
		payment.BalanceAfter,
		payment.PaymentDate,
		payment.Sequence,
		payment.Notes,
		payment.ProcessedBy,
		payment.CreatedAt,
	)
	return mapError(err, "save loan payment "+payment.ReferenceNumber)
}

// ListLoanPayments pages through the chain ordered by
// (payment_date DESC, sequence DESC).
func (r *PgxLoanRepository) ListLoanPayments(ctx context.Context, loanAccountID string, limit int, nextToken *string) ([]domain.LoanPayment, *string, error) {
	limit = pagination.NormalizeLimit(limit)
	args := []any{r.tenantID, loanAccountID}
	query := `SELECT ` + loanPaymentColumns + ` FROM loan_payments WHERE tenant_id = $1 AND loan_account_id = $2`

	if nextToken != nil && *nextToken != "" {
		date, seq, err := pagination.DecodeSequenceToken(*nextToken)
		if err != nil {
			return nil, nil, invalidToken(err)
		}
		query += ` AND (payment_date, sequence) < ($3, $4)`
		args = append(args, date, seq)
	}
	query += fmt.Sprintf(` ORDER BY payment_date DESC, sequence DESC LIMIT %d;`, limit+1)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, mapError(err, "list loan payments")
	}
	defer rows.Close()

	payments := make([]domain.LoanPayment, 0, limit)
	for rows.Next() {
		p, err := scanLoanPayment(rows)
		if err != nil {
			return nil, nil, mapError(err, "scan loan payment")
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, mapError(err, "iterate loan payments")
	}

	var next *string
	if len(payments) > limit {
		payments = payments[:limit]
		last := payments[limit-1]
		token := pagination.EncodeSequenceToken(last.PaymentDate, last.Sequence)
		next = &token
	}
	return payments, next, nil
}

func (r *PgxLoanRepository) SumOutstandingByMember(ctx context.Context, memberID string) (money.Money, error) {
	query := `
		SELECT COALESCE(SUM(outstanding_balance), 0)
		FROM loan_accounts
		WHERE tenant_id = $1 AND member_id = $2 AND status = 'active';
	`
	var total money.Money
	if err := r.db.QueryRow(ctx, query, r.tenantID, memberID).Scan(&total); err != nil {
		return money.Zero, mapError(err, "sum outstanding loans")
	}
	return total, nil
}
