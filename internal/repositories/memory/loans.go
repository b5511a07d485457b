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

func (r *tenantRepos) SaveLoanAccount(_ context.Context, loan domain.LoanAccount) error {
	defer r.lockData()()
	if err := r.checkTenant(loan.TenantID, "loan", loan.LoanAccountID); err != nil {
		return err
	}
	for _, l := range r.store.db.loans {
		if l.TenantID == r.tenantID && (l.LoanNumber == loan.LoanNumber || l.LoanAccountID == loan.LoanAccountID) {
			return apperrors.NewAppError(apperrors.ErrDuplicate, fmt.Sprintf("loan %s", loan.LoanNumber), nil)
		}
	}
	put(r, r.store.db.loans, loan.LoanAccountID, loan)
	return nil
}

func (r *tenantRepos) FindLoanAccountByID(_ context.Context, loanAccountID string) (*domain.LoanAccount, error) {
	defer r.lockData()()
	loan, ok := r.store.db.loans[loanAccountID]
	if !ok {
		return nil, notFound("loan", loanAccountID)
	}
	if err := r.checkTenant(loan.TenantID, "loan", loanAccountID); err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *tenantRepos) LockLoanAccount(ctx context.Context, loanAccountID string) (*domain.LoanAccount, error) {
	if err := r.lockRow(ctx, "loan:"+loanAccountID); err != nil {
		return nil, err
	}
	return r.FindLoanAccountByID(ctx, loanAccountID)
}

func (r *tenantRepos) UpdateLoanBalance(_ context.Context, loan domain.LoanAccount) error {
	defer r.lockData()()
	current, ok := r.store.db.loans[loan.LoanAccountID]
	if !ok {
		return notFound("loan", loan.LoanAccountID)
	}
	if err := r.checkTenant(current.TenantID, "loan", loan.LoanAccountID); err != nil {
		return err
	}
	current.OutstandingBalance = loan.OutstandingBalance
	current.Status = loan.Status
	current.LastUpdatedAt = loan.LastUpdatedAt
	current.LastUpdatedBy = loan.LastUpdatedBy
	put(r, r.store.db.loans, loan.LoanAccountID, current)
	return nil
}

func paymentAfter(a, b domain.LoanPayment) bool {
	if !a.PaymentDate.Equal(b.PaymentDate) {
		return a.PaymentDate.After(b.PaymentDate)
	}
	return a.Sequence > b.Sequence
}

func (r *tenantRepos) LatestLoanPayment(_ context.Context, loanAccountID string) (*domain.LoanPayment, error) {
	defer r.lockData()()
	var latest *domain.LoanPayment
	for _, p := range r.store.db.loanPayments[loanAccountID] {
		if p.TenantID != r.tenantID {
			continue
		}
		if latest == nil || paymentAfter(p, *latest) {
			p := p
			latest = &p
		}
	}
	if latest == nil {
		return nil, notFound("loan payment for loan", loanAccountID)
	}
	return latest, nil
}

func (r *tenantRepos) SaveLoanPayment(_ context.Context, payment domain.LoanPayment) error {
	defer r.lockData()()
	if err := r.checkTenant(payment.TenantID, "loan payment", payment.LoanPaymentID); err != nil {
		return err
	}
	chain := r.store.db.loanPayments[payment.LoanAccountID]
	for _, p := range chain {
		if p.Sequence == payment.Sequence {
			return apperrors.NewAppError(apperrors.ErrDuplicate, "loan payment sequence", nil)
		}
	}
	next := make([]domain.LoanPayment, len(chain), len(chain)+1)
	copy(next, chain)
	put(r, r.store.db.loanPayments, payment.LoanAccountID, append(next, payment))
	return nil
}

func (r *tenantRepos) ListLoanPayments(_ context.Context, loanAccountID string, limit int, nextToken *string) ([]domain.LoanPayment, *string, error) {
	limit = pagination.NormalizeLimit(limit)
	var cursor *domain.LoanPayment
	if nextToken != nil && *nextToken != "" {
		date, seq, err := pagination.DecodeSequenceToken(*nextToken)
		if err != nil {
			return nil, nil, apperrors.NewAppError(apperrors.ErrValidation, "invalid next token", err)
		}
		cursor = &domain.LoanPayment{PaymentDate: date, Sequence: seq}
	}

	defer r.lockData()()
	var payments []domain.LoanPayment
	for _, p := range r.store.db.loanPayments[loanAccountID] {
		if p.TenantID != r.tenantID {
			continue
		}
		if cursor != nil && !paymentAfter(*cursor, p) {
			continue
		}
		payments = append(payments, p)
	}
	sort.Slice(payments, func(i, j int) bool { return paymentAfter(payments[i], payments[j]) })

	var next *string
	if len(payments) > limit {
		payments = payments[:limit]
		last := payments[limit-1]
		token := pagination.EncodeSequenceToken(last.PaymentDate, last.Sequence)
		next = &token
	}
	return payments, next, nil
}

func (r *tenantRepos) SumOutstandingByMember(_ context.Context, memberID string) (money.Money, error) {
	defer r.lockData()()
	total := money.Zero
	for _, l := range r.store.db.loans {
		if l.TenantID == r.tenantID && l.MemberID == memberID && l.Status == domain.LoanActive {
			total = total.Add(l.OutstandingBalance)
		}
	}
	return total, nil
}
