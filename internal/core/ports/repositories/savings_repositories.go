package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/koperasi_core/internal/core/domain"
	"github.com/SscSPs/koperasi_core/internal/core/money"
)

// SavingsRepository persists savings accounts and their balance chains.
type SavingsRepository interface {
	// LockOrCreateSavingsAccount returns the (member, type) account locked
	// until the transaction ends, inserting template first if none exists.
	LockOrCreateSavingsAccount(ctx context.Context, template domain.SavingsAccount) (*domain.SavingsAccount, error)

	// LockSavingsAccount locks an existing account. ErrNotFound if absent.
	LockSavingsAccount(ctx context.Context, memberID string, savingsType domain.SavingsType) (*domain.SavingsAccount, error)

	FindSavingsAccount(ctx context.Context, memberID string, savingsType domain.SavingsType) (*domain.SavingsAccount, error)
	ListSavingsAccountsByMember(ctx context.Context, memberID string) ([]domain.SavingsAccount, error)
	UpdateSavingsBalance(ctx context.Context, savingsAccountID string, balance money.Money, actorID string, now time.Time) error

	// LatestSavingsTransaction returns the last row by (date, sequence). ErrNotFound if none.
	LatestSavingsTransaction(ctx context.Context, savingsAccountID string) (*domain.SavingsTransaction, error)
	HasSavingsDeposit(ctx context.Context, savingsAccountID string) (bool, error)
	SaveSavingsTransaction(ctx context.Context, txn domain.SavingsTransaction) error

	// ListSavingsTransactions pages through an account's chain, newest first.
	ListSavingsTransactions(ctx context.Context, savingsAccountID string, limit int, nextToken *string) ([]domain.SavingsTransaction, *string, error)
}

// LoanRepository persists loans and their payment chains.
type LoanRepository interface {
	SaveLoanAccount(ctx context.Context, loan domain.LoanAccount) error
	FindLoanAccountByID(ctx context.Context, loanAccountID string) (*domain.LoanAccount, error)
	LockLoanAccount(ctx context.Context, loanAccountID string) (*domain.LoanAccount, error)

	// UpdateLoanBalance persists the outstanding balance and status.
	UpdateLoanBalance(ctx context.Context, loan domain.LoanAccount) error

	LatestLoanPayment(ctx context.Context, loanAccountID string) (*domain.LoanPayment, error)
	SaveLoanPayment(ctx context.Context, payment domain.LoanPayment) error
	ListLoanPayments(ctx context.Context, loanAccountID string, limit int, nextToken *string) ([]domain.LoanPayment, *string, error)

	// SumOutstandingByMember totals the outstanding balance of a member's active loans.
	SumOutstandingByMember(ctx context.Context, memberID string) (money.Money, error)
}
