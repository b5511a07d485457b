package services

import (
	"context"

	"github.com/SscSPs/koperasi_core/internal/core/domain"
	"github.com/SscSPs/koperasi_core/internal/dto"
)

// SavingsSvc mutates and reads member savings balances.
type SavingsSvc interface {
	// Deposit adds to a savings balance, opening the account on first use.
	Deposit(ctx context.Context, tenantID string, req dto.SavingsMutationRequest, actorID string) (*domain.SavingsMutationResult, error)

	// Withdraw takes from a savings balance subject to the type's rules.
	Withdraw(ctx context.Context, tenantID string, req dto.SavingsMutationRequest, actorID string) (*domain.SavingsMutationResult, error)

	GetSavingsBalance(ctx context.Context, tenantID string, memberID string) (*dto.SavingsBalanceResponse, error)
	ListSavingsTransactions(ctx context.Context, tenantID string, memberID string, savingsType domain.SavingsType, params dto.ListParams) (*dto.ListSavingsTransactionsResponse, error)
}

// LoanSvc disburses loans and records their payments.
type LoanSvc interface {
	OpenLoan(ctx context.Context, tenantID string, req dto.OpenLoanRequest, actorID string) (*domain.LoanAccount, error)

	// RecordPayment reduces the outstanding balance by the principal part.
	RecordPayment(ctx context.Context, tenantID string, req dto.RecordPaymentRequest, actorID string) (*domain.LoanPaymentResult, error)

	GetLoan(ctx context.Context, tenantID string, loanAccountID string) (*domain.LoanAccount, error)
	ListLoanPayments(ctx context.Context, tenantID string, loanAccountID string, params dto.ListParams) (*dto.ListLoanPaymentsResponse, error)
}
