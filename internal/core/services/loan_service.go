package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/koperasi_core/internal/apperrors"
	"github.com/SscSPs/koperasi_core/internal/core/domain"
	"github.com/SscSPs/koperasi_core/internal/core/money"
	portsrepo "github.com/SscSPs/koperasi_core/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/koperasi_core/internal/core/ports/services"
	"github.com/SscSPs/koperasi_core/internal/dto"
	"github.com/SscSPs/koperasi_core/internal/platform/validation"
	"github.com/SscSPs/koperasi_core/internal/utils/pagination"
	"github.com/shopspring/decimal"
)

var maxInterestRate = decimal.NewFromInt(100)

type loanService struct {
	BaseService
	store portsrepo.Store
}

// NewLoanService creates the loan disbursement and repayment service.
func NewLoanService(store portsrepo.Store, options ...ServiceOption) portssvc.LoanSvc {
	return &loanService{
		BaseService: newBaseService(applyOptions(options)),
		store:       store,
	}
}

var _ portssvc.LoanSvc = (*loanService)(nil)

func (s *loanService) OpenLoan(ctx context.Context, tenantID string, req dto.OpenLoanRequest, actorID string) (*domain.LoanAccount, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if !req.PrincipalAmount.IsPositive() {
		return nil, apperrors.NewAppError(apperrors.ErrInvalidAmount, "principal must be positive", nil)
	}
	if req.InterestRate.IsNegative() || req.InterestRate.GreaterThan(maxInterestRate) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("interest rate %s must be between 0 and 100", req.InterestRate))
	}

	now := s.now()
	loan := domain.LoanAccount{
		LoanAccountID:      s.newID(),
		TenantID:           tenantID,
		MemberID:           req.MemberID,
		PrincipalAmount:    req.PrincipalAmount,
		InterestRate:       req.InterestRate,
		TermMonths:         req.TermMonths,
		OutstandingBalance: req.PrincipalAmount,
		Status:             domain.LoanActive,
		DisbursedAt:        domain.DateOf(req.DisbursedAt),
		AuditFields:        domain.NewAuditFields(actorID, now),
	}

	err := s.store.WithinTransaction(ctx, tenantID, func(ctx context.Context, repos portsrepo.TenantRepositories) error {
		member, err := repos.Members().FindMemberByID(ctx, req.MemberID)
		if err != nil {
			return err
		}
		if member.HasExited() {
			return apperrors.NewValidationError(fmt.Sprintf("member %s is %s", member.MemberNumber, member.Status))
		}

		scope := domain.ReferenceScope(domain.LoanNumberPrefix, loan.DisbursedAt)
		n, err := repos.Sequences().NextValue(ctx, scope)
		if err != nil {
			return fmt.Errorf("failed to allocate loan number: %w", err)
		}
		loan.LoanNumber = domain.FormatReference(scope, n)

		if err := repos.Loans().SaveLoanAccount(ctx, loan); err != nil {
			return fmt.Errorf("failed to save loan: %w", err)
		}
		return nil
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to open loan", slog.String("member_id", req.MemberID))
		return nil, err
	}

	s.LogInfo(ctx, "Loan opened",
		slog.String("member_id", req.MemberID),
		slog.String("loan_number", loan.LoanNumber),
		slog.String("principal", loan.PrincipalAmount.String()))
	return &loan, nil
}

// RecordPayment applies one installment. The principal part reduces the
// outstanding balance; reaching zero marks the loan paid off.
func (s *loanService) RecordPayment(ctx context.Context, tenantID string, req dto.RecordPaymentRequest, actorID string) (*domain.LoanPaymentResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if req.PrincipalAmount.IsNegative() || req.InterestAmount.IsNegative() {
		return nil, apperrors.NewAppError(apperrors.ErrInvalidAmount, "payment parts must not be negative", nil)
	}
	total := req.PrincipalAmount.Add(req.InterestAmount)
	if !total.IsPositive() {
		return nil, apperrors.NewAppError(apperrors.ErrInvalidAmount, "payment must be positive", nil)
	}

	var result *domain.LoanPaymentResult
	err := s.store.WithinTransaction(ctx, tenantID, func(ctx context.Context, repos portsrepo.TenantRepositories) error {
		loan, err := repos.Loans().LockLoanAccount(ctx, req.LoanAccountID)
		if err != nil {
			return err
		}
		if loan.Status == domain.LoanPaidOff {
			return apperrors.NewValidationError(fmt.Sprintf("loan %s is already paid off", loan.LoanNumber))
		}

		date := domain.DateOf(req.PaymentDate)
		if date.Before(loan.DisbursedAt) {
			return apperrors.NewValidationError("payment date is before disbursement")
		}
		before, sequence, err := s.nextPaymentPosition(ctx, repos, loan, date)
		if err != nil {
			return err
		}
		if req.PrincipalAmount.GreaterThan(before) {
			return apperrors.NewValidationError(fmt.Sprintf(
				"principal %s exceeds outstanding balance %s", req.PrincipalAmount, before))
		}

		now := s.now()
		payment := domain.LoanPayment{
			LoanPaymentID:   s.newID(),
			TenantID:        tenantID,
			LoanAccountID:   loan.LoanAccountID,
			MemberID:        loan.MemberID,
			PrincipalAmount: req.PrincipalAmount,
			InterestAmount:  req.InterestAmount,
			TotalAmount:     total,
			BalanceBefore:   before,
			BalanceAfter:    before.Sub(req.PrincipalAmount),
			PaymentDate:     date,
			Sequence:        sequence,
			Notes:           req.Notes,
			ProcessedBy:     actorID,
			CreatedAt:       now,
		}

		scope := domain.ReferenceScope(domain.LoanPaymentRefPrefix, date)
		n, err := repos.Sequences().NextValue(ctx, scope)
		if err != nil {
			return fmt.Errorf("failed to allocate payment reference: %w", err)
		}
		payment.ReferenceNumber = domain.FormatReference(scope, n)

		if err := repos.Loans().SaveLoanPayment(ctx, payment); err != nil {
			return fmt.Errorf("failed to save loan payment: %w", err)
		}

		loan.OutstandingBalance = payment.BalanceAfter
		if loan.OutstandingBalance.IsZero() {
			loan.Status = domain.LoanPaidOff
		}
		loan.Touch(actorID, now)
		if err := repos.Loans().UpdateLoanBalance(ctx, *loan); err != nil {
			return fmt.Errorf("failed to update loan balance: %w", err)
		}

		result = &domain.LoanPaymentResult{
			Payment:            payment,
			OutstandingBalance: loan.OutstandingBalance,
			Status:             loan.Status,
		}
		return nil
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to record loan payment", slog.String("loan_account_id", req.LoanAccountID))
		return nil, err
	}

	s.LogInfo(ctx, "Loan payment recorded",
		slog.String("loan_account_id", req.LoanAccountID),
		slog.String("reference", result.Payment.ReferenceNumber),
		slog.String("outstanding", result.OutstandingBalance.String()))
	return result, nil
}

// nextPaymentPosition returns the balance before a payment on date and its
// sequence. A loan without payments starts from its principal.
func (s *loanService) nextPaymentPosition(ctx context.Context, repos portsrepo.TenantRepositories, loan *domain.LoanAccount, date time.Time) (money.Money, int64, error) {
	latest, err := repos.Loans().LatestLoanPayment(ctx, loan.LoanAccountID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return loan.PrincipalAmount, 1, nil
		}
		return money.Zero, 0, fmt.Errorf("failed to read latest loan payment: %w", err)
	}
	if date.Before(latest.PaymentDate) {
		return money.Zero, 0, apperrors.NewValidationError(fmt.Sprintf(
			"payment date %s is before the latest payment on %s",
			date.Format(time.DateOnly), latest.PaymentDate.Format(time.DateOnly)))
	}
	return latest.BalanceAfter, latest.Sequence + 1, nil
}

func (s *loanService) GetLoan(ctx context.Context, tenantID string, loanAccountID string) (*domain.LoanAccount, error) {
	return s.store.Tenant(tenantID).Loans().FindLoanAccountByID(ctx, loanAccountID)
}

func (s *loanService) ListLoanPayments(ctx context.Context, tenantID string, loanAccountID string, params dto.ListParams) (*dto.ListLoanPaymentsResponse, error) {
	if err := validation.Struct(params); err != nil {
		return nil, err
	}
	repos := s.store.Tenant(tenantID)
	if _, err := repos.Loans().FindLoanAccountByID(ctx, loanAccountID); err != nil {
		return nil, err
	}
	payments, next, err := repos.Loans().ListLoanPayments(ctx, loanAccountID, pagination.NormalizeLimit(params.Limit), params.NextToken)
	if err != nil {
		return nil, fmt.Errorf("failed to list loan payments: %w", err)
	}
	return &dto.ListLoanPaymentsResponse{Payments: payments, NextToken: next}, nil
}
