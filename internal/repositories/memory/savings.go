package memory

import (
	"context"
	"sort"
	"time"

	"github.com/SscSPs/koperasi_core/internal/apperrors"
	"github.com/SscSPs/koperasi_core/internal/core/domain"
	"github.com/SscSPs/koperasi_core/internal/core/money"
	"github.com/SscSPs/koperasi_core/internal/utils/pagination"
)

func savingsLockKey(tenantID, memberID string, t domain.SavingsType) string {
	return "savings:" + tenantID + ":" + memberID + ":" + string(t)
}

func (r *tenantRepos) findSavingsAccount(memberID string, t domain.SavingsType) (*domain.SavingsAccount, bool) {
	for _, acc := range r.store.db.savingsAccounts {
		if acc.TenantID == r.tenantID && acc.MemberID == memberID && acc.SavingsType == t {
			return &acc, true
		}
	}
	return nil, false
}

func (r *tenantRepos) LockOrCreateSavingsAccount(ctx context.Context, template domain.SavingsAccount) (*domain.SavingsAccount, error) {
	if err := r.checkTenant(template.TenantID, "savings account", template.SavingsAccountID); err != nil {
		return nil, err
	}
	if err := r.lockRow(ctx, savingsLockKey(r.tenantID, template.MemberID, template.SavingsType)); err != nil {
		return nil, err
	}
	defer r.lockData()()
	if acc, ok := r.findSavingsAccount(template.MemberID, template.SavingsType); ok {
		return acc, nil
	}
	put(r, r.store.db.savingsAccounts, template.SavingsAccountID, template)
	return &template, nil
}

func (r *tenantRepos) LockSavingsAccount(ctx context.Context, memberID string, savingsType domain.SavingsType) (*domain.SavingsAccount, error) {
	if err := r.lockRow(ctx, savingsLockKey(r.tenantID, memberID, savingsType)); err != nil {
		return nil, err
	}
	return r.FindSavingsAccount(ctx, memberID, savingsType)
}

func (r *tenantRepos) FindSavingsAccount(_ context.Context, memberID string, savingsType domain.SavingsType) (*domain.SavingsAccount, error) {
	defer r.lockData()()
	acc, ok := r.findSavingsAccount(memberID, savingsType)
	if !ok {
		return nil, notFound("savings account", memberID+"/"+string(savingsType))
	}
	return acc, nil
}

func (r *tenantRepos) ListSavingsAccountsByMember(_ context.Context, memberID string) ([]domain.SavingsAccount, error) {
	defer r.lockData()()
	var accounts []domain.SavingsAccount
	for _, t := range domain.AllSavingsTypes {
		if acc, ok := r.findSavingsAccount(memberID, t); ok {
			accounts = append(accounts, *acc)
		}
	}
	return accounts, nil
}

func (r *tenantRepos) UpdateSavingsBalance(_ context.Context, savingsAccountID string, balance money.Money, actorID string, now time.Time) error {
	defer r.lockData()()
	acc, ok := r.store.db.savingsAccounts[savingsAccountID]
	if !ok {
		return notFound("savings account", savingsAccountID)
	}
	if err := r.checkTenant(acc.TenantID, "savings account", savingsAccountID); err != nil {
		return err
	}
	acc.Balance = balance
	acc.Touch(actorID, now)
	put(r, r.store.db.savingsAccounts, savingsAccountID, acc)
	return nil
}

// savingsTxnAfter orders a chain by (transaction_date, sequence).
func savingsTxnAfter(a, b domain.SavingsTransaction) bool {
	if !a.TransactionDate.Equal(b.TransactionDate) {
		return a.TransactionDate.After(b.TransactionDate)
	}
	return a.Sequence > b.Sequence
}

func (r *tenantRepos) LatestSavingsTransaction(_ context.Context, savingsAccountID string) (*domain.SavingsTransaction, error) {
	defer r.lockData()()
	var latest *domain.SavingsTransaction
	for _, t := range r.store.db.savingsTxns[savingsAccountID] {
		if t.TenantID != r.tenantID {
			continue
		}
		if latest == nil || savingsTxnAfter(t, *latest) {
			t := t
			latest = &t
		}
	}
	if latest == nil {
		return nil, notFound("savings transaction for account", savingsAccountID)
	}
	return latest, nil
}

func (r *tenantRepos) HasSavingsDeposit(_ context.Context, savingsAccountID string) (bool, error) {
	defer r.lockData()()
	for _, t := range r.store.db.savingsTxns[savingsAccountID] {
		if t.TenantID == r.tenantID && t.TransactionType == domain.SavingsDeposit {
			return true, nil
		}
	}
	return false, nil
}

func (r *tenantRepos) SaveSavingsTransaction(_ context.Context, txn domain.SavingsTransaction) error {
	defer r.lockData()()
	if err := r.checkTenant(txn.TenantID, "savings transaction", txn.SavingsTransactionID); err != nil {
		return err
	}
	chain := r.store.db.savingsTxns[txn.SavingsAccountID]
	for _, t := range chain {
		if t.Sequence == txn.Sequence {
			return apperrors.NewAppError(apperrors.ErrDuplicate, "savings transaction sequence", nil)
		}
	}
	next := make([]domain.SavingsTransaction, len(chain), len(chain)+1)
	copy(next, chain)
	put(r, r.store.db.savingsTxns, txn.SavingsAccountID, append(next, txn))
	return nil
}

func (r *tenantRepos) ListSavingsTransactions(_ context.Context, savingsAccountID string, limit int, nextToken *string) ([]domain.SavingsTransaction, *string, error) {
	limit = pagination.NormalizeLimit(limit)
	var cursor *domain.SavingsTransaction
	if nextToken != nil && *nextToken != "" {
		date, seq, err := pagination.DecodeSequenceToken(*nextToken)
		if err != nil {
			return nil, nil, apperrors.NewAppError(apperrors.ErrValidation, "invalid next token", err)
		}
		cursor = &domain.SavingsTransaction{TransactionDate: date, Sequence: seq}
	}

	defer r.lockData()()
	var txns []domain.SavingsTransaction
	for _, t := range r.store.db.savingsTxns[savingsAccountID] {
		if t.TenantID != r.tenantID {
			continue
		}
		if cursor != nil && !savingsTxnAfter(*cursor, t) {
			continue
		}
		txns = append(txns, t)
	}
	sort.Slice(txns, func(i, j int) bool { return savingsTxnAfter(txns[i], txns[j]) })

	var next *string
	if len(txns) > limit {
		txns = txns[:limit]
		last := txns[limit-1]
		token := pagination.EncodeSequenceToken(last.TransactionDate, last.Sequence)
		next = &token
	}
	return txns, next, nil
}
