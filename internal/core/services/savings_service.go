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
)

// savingsService mutates member savings balances. Every mutation locks the
// (member, type) account, extends its balance chain and updates the cached
// balance in one transaction.
type savingsService struct {
	BaseService
	store portsrepo.Store
}

// NewSavingsService creates the savings balance service.
func NewSavingsService(store portsrepo.Store, options ...ServiceOption) portssvc.SavingsSvc {
	return &savingsService{
		BaseService: newBaseService(applyOptions(options)),
		store:       store,
	}
}

var _ portssvc.SavingsSvc = (*savingsService)(nil)

// chainPosition is where a new row lands in a balance chain.
type chainPosition struct {
	before   money.Money
	sequence int64
}

// nextSavingsPosition reads the latest row of the account and rejects dates
// earlier than it.
func nextSavingsPosition(ctx context.Context, repos portsrepo.TenantRepositories, accountID string, date time.Time) (chainPosition, error) {
	latest, err := repos.Savings().LatestSavingsTransaction(ctx, accountID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return chainPosition{before: money.Zero, sequence: 1}, nil
		}
		return chainPosition{}, fmt.Errorf("failed to read latest savings transaction: %w", err)
	}
	if date.Before(latest.TransactionDate) {
		return chainPosition{}, apperrors.NewValidationError(fmt.Sprintf(
			"transaction date %s is before the latest transaction on %s",
			date.Format(time.DateOnly), latest.TransactionDate.Format(time.DateOnly)))
	}
	return chainPosition{before: latest.BalanceAfter, sequence: latest.Sequence + 1}, nil
}

func validateMutation(req dto.SavingsMutationRequest) error {
	if err := validation.Struct(req); err != nil {
		return err
	}
	if !req.Amount.IsPositive() {
		return apperrors.NewAppError(apperrors.ErrInvalidAmount, fmt.Sprintf("amount %s must be positive", req.Amount), nil)
	}
	return nil
}

func (s *savingsService) Deposit(ctx context.Context, tenantID string, req dto.SavingsMutationRequest, actorID string) (*domain.SavingsMutationResult, error) {
	if err := validateMutation(req); err != nil {
		return nil, err
	}

	var result *domain.SavingsMutationResult
	err := s.store.WithinTransaction(ctx, tenantID, func(ctx context.Context, repos portsrepo.TenantRepositories) error {
		if _, err := repos.Members().FindMemberByID(ctx, req.MemberID); err != nil {
			return err
		}

		now := s.now()
		account, err := repos.Savings().LockOrCreateSavingsAccount(ctx, domain.SavingsAccount{
			SavingsAccountID: s.newID(),
			TenantID:         tenantID,
			MemberID:         req.MemberID,
			SavingsType:      req.SavingsType,
			AuditFields:      domain.NewAuditFields(actorID, now),
		})
		if err != nil {
			return err
		}

		if req.SavingsType == domain.SavingsPokok {
			exists, err := repos.Savings().HasSavingsDeposit(ctx, account.SavingsAccountID)
			if err != nil {
				return fmt.Errorf("failed to check pokok deposit: %w", err)
			}
			if exists {
				return apperrors.NewAppError(apperrors.ErrDuplicateDeposit,
					fmt.Sprintf("member %s already paid simpanan pokok", req.MemberID), nil)
			}
		}

		result, err = s.apply(ctx, repos, account, domain.SavingsDeposit, req, actorID, now)
		return err
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to deposit savings",
			slog.String("member_id", req.MemberID),
			slog.String("savings_type", string(req.SavingsType)))
		return nil, err
	}

	s.LogInfo(ctx, "Savings deposited",
		slog.String("member_id", req.MemberID),
		slog.String("reference", result.Transaction.ReferenceNumber),
		slog.String("balance", result.Balance.String()))
	return result, nil
}

func (s *savingsService) Withdraw(ctx context.Context, tenantID string, req dto.SavingsMutationRequest, actorID string) (*domain.SavingsMutationResult, error) {
	if err := validateMutation(req); err != nil {
		return nil, err
	}

	var result *domain.SavingsMutationResult
	err := s.store.WithinTransaction(ctx, tenantID, func(ctx context.Context, repos portsrepo.TenantRepositories) error {
		member, err := repos.Members().FindMemberByID(ctx, req.MemberID)
		if err != nil {
			return err
		}

		account, err := repos.Savings().LockSavingsAccount(ctx, req.MemberID, req.SavingsType)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.NewAppError(apperrors.ErrInsufficientBalance,
					fmt.Sprintf("member %s has no %s savings", req.MemberID, req.SavingsType), err)
			}
			return err
		}

		if req.SavingsType == domain.SavingsWajib {
			if err := s.checkWajibWithdrawal(ctx, repos, member); err != nil {
				return err
			}
		}

		result, err = s.apply(ctx, repos, account, domain.SavingsWithdrawal, req, actorID, s.now())
		return err
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to withdraw savings",
			slog.String("member_id", req.MemberID),
			slog.String("savings_type", string(req.SavingsType)))
		return nil, err
	}

	s.LogInfo(ctx, "Savings withdrawn",
		slog.String("member_id", req.MemberID),
		slog.String("reference", result.Transaction.ReferenceNumber),
		slog.String("balance", result.Balance.String()))
	return result, nil
}

// checkWajibWithdrawal allows mandatory savings out only for members who have
// exited and carry no outstanding loan.
func (s *savingsService) checkWajibWithdrawal(ctx context.Context, repos portsrepo.TenantRepositories, member *domain.Member) error {
	if !member.HasExited() {
		return apperrors.NewAppError(apperrors.ErrWithdrawalNotAllowed,
			fmt.Sprintf("member %s is %s", member.MemberNumber, member.Status), nil)
	}
	outstanding, err := repos.Loans().SumOutstandingByMember(ctx, member.MemberID)
	if err != nil {
		return fmt.Errorf("failed to sum outstanding loans: %w", err)
	}
	if !outstanding.IsZero() {
		return apperrors.NewAppError(apperrors.ErrWithdrawalNotAllowed,
			fmt.Sprintf("member %s has outstanding loans of %s", member.MemberNumber, outstanding), nil)
	}
	return nil
}

// apply appends one row to the locked account's chain and updates its balance.
func (s *savingsService) apply(ctx context.Context, repos portsrepo.TenantRepositories, account *domain.SavingsAccount,
	kind domain.SavingsTransactionType, req dto.SavingsMutationRequest, actorID string, now time.Time) (*domain.SavingsMutationResult, error) {
	date := domain.DateOf(req.TransactionDate)
	pos, err := nextSavingsPosition(ctx, repos, account.SavingsAccountID, date)
	if err != nil {
		return nil, err
	}

	txn := domain.SavingsTransaction{
		SavingsTransactionID: s.newID(),
		TenantID:             account.TenantID,
		SavingsAccountID:     account.SavingsAccountID,
		MemberID:             account.MemberID,
		SavingsType:          account.SavingsType,
		TransactionType:      kind,
		Amount:               req.Amount,
		BalanceBefore:        pos.before,
		TransactionDate:      date,
		Sequence:             pos.sequence,
		Description:          req.Description,
		ProcessedBy:          actorID,
		CreatedAt:            now,
	}
	txn.BalanceAfter = pos.before.Add(txn.SignedAmount())

	if txn.BalanceAfter.IsNegative() {
		return nil, apperrors.NewAppError(apperrors.ErrInsufficientBalance,
			fmt.Sprintf("balance %s cannot cover %s", pos.before, req.Amount), nil)
	}
	if kind == domain.SavingsWithdrawal && txn.BalanceAfter.LessThan(account.MinimumBalance) {
		return nil, apperrors.NewAppError(apperrors.ErrInsufficientBalance,
			fmt.Sprintf("balance would fall below the minimum of %s", account.MinimumBalance), nil)
	}

	scope := domain.ReferenceScope(domain.SavingsRefPrefix, date)
	n, err := repos.Sequences().NextValue(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate savings reference: %w", err)
	}
	txn.ReferenceNumber = domain.FormatReference(scope, n)

	if err := repos.Savings().SaveSavingsTransaction(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to save savings transaction: %w", err)
	}
	if err := repos.Savings().UpdateSavingsBalance(ctx, account.SavingsAccountID, txn.BalanceAfter, actorID, now); err != nil {
		return nil, fmt.Errorf("failed to update savings balance: %w", err)
	}
	return &domain.SavingsMutationResult{Transaction: txn, Balance: txn.BalanceAfter}, nil
}

func (s *savingsService) GetSavingsBalance(ctx context.Context, tenantID string, memberID string) (*dto.SavingsBalanceResponse, error) {
	repos := s.store.Tenant(tenantID)
	if _, err := repos.Members().FindMemberByID(ctx, memberID); err != nil {
		return nil, err
	}
	accounts, err := repos.Savings().ListSavingsAccountsByMember(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to list savings accounts: %w", err)
	}

	resp := &dto.SavingsBalanceResponse{
		MemberID: memberID,
		Balances: make(map[domain.SavingsType]money.Money, len(domain.AllSavingsTypes)),
	}
	for _, t := range domain.AllSavingsTypes {
		resp.Balances[t] = money.Zero
	}
	for _, acc := range accounts {
		resp.Balances[acc.SavingsType] = acc.Balance
		resp.Total = resp.Total.Add(acc.Balance)
	}
	return resp, nil
}

func (s *savingsService) ListSavingsTransactions(ctx context.Context, tenantID string, memberID string, savingsType domain.SavingsType, params dto.ListParams) (*dto.ListSavingsTransactionsResponse, error) {
	if err := validation.Struct(params); err != nil {
		return nil, err
	}
	if !savingsType.IsValid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown savings type %q", savingsType))
	}

	repos := s.store.Tenant(tenantID)
	account, err := repos.Savings().FindSavingsAccount(ctx, memberID, savingsType)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return &dto.ListSavingsTransactionsResponse{Transactions: []domain.SavingsTransaction{}}, nil
		}
		return nil, err
	}

	txns, next, err := repos.Savings().ListSavingsTransactions(ctx, account.SavingsAccountID, pagination.NormalizeLimit(params.Limit), params.NextToken)
	if err != nil {
		return nil, fmt.Errorf("failed to list savings transactions: %w", err)
	}
	return &dto.ListSavingsTransactionsResponse{Transactions: txns, NextToken: next}, nil
}
