package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/SscSPs/koperasi_core/internal/apperrors"
	"github.com/SscSPs/koperasi_core/internal/core/domain"
)

func (r *tenantRepos) FindAccountByID(_ context.Context, accountID string) (*domain.Account, error) {
	defer r.lockData()()
	acc, ok := r.store.db.accounts[accountID]
	if !ok {
		return nil, notFound("account", accountID)
	}
	if err := r.checkTenant(acc.TenantID, "account", accountID); err != nil {
		return nil, err
	}
	return &acc, nil
}

func (r *tenantRepos) FindAccountByCode(_ context.Context, code string) (*domain.Account, error) {
	defer r.lockData()()
	for _, acc := range r.store.db.accounts {
		if acc.TenantID == r.tenantID && acc.Code == code && !acc.IsDeleted() {
			return &acc, nil
		}
	}
	return nil, notFound("account code", code)
}

func (r *tenantRepos) FindAccountsByIDs(_ context.Context, accountIDs []string) (map[string]domain.Account, error) {
	defer r.lockData()()
	result := make(map[string]domain.Account, len(accountIDs))
	for _, id := range accountIDs {
		acc, ok := r.store.db.accounts[id]
		if ok && acc.TenantID == r.tenantID {
			result[id] = acc
		}
	}
	return result, nil
}

func (r *tenantRepos) ListAccounts(_ context.Context) ([]domain.Account, error) {
	defer r.lockData()()
	var accounts []domain.Account
	for _, acc := range r.store.db.accounts {
		if acc.TenantID == r.tenantID && !acc.IsDeleted() {
			accounts = append(accounts, acc)
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Code < accounts[j].Code })
	return accounts, nil
}

func (r *tenantRepos) ListChildren(_ context.Context, parentIDs []string) ([]domain.Account, error) {
	defer r.lockData()()
	parents := make(map[string]struct{}, len(parentIDs))
	for _, id := range parentIDs {
		parents[id] = struct{}{}
	}
	var children []domain.Account
	for _, acc := range r.store.db.accounts {
		if acc.TenantID != r.tenantID || acc.IsDeleted() || acc.ParentAccountID == "" {
			continue
		}
		if _, ok := parents[acc.ParentAccountID]; ok {
			children = append(children, acc)
		}
	}
	sort.Slice(children, func(i, j int) bool { return children[i].Code < children[j].Code })
	return children, nil
}

func (r *tenantRepos) HasChildren(_ context.Context, accountID string) (bool, error) {
	defer r.lockData()()
	for _, acc := range r.store.db.accounts {
		if acc.TenantID == r.tenantID && acc.ParentAccountID == accountID && !acc.IsDeleted() {
			return true, nil
		}
	}
	return false, nil
}

func (r *tenantRepos) codeTaken(code, exceptID string) bool {
	for _, acc := range r.store.db.accounts {
		if acc.TenantID == r.tenantID && acc.Code == code && !acc.IsDeleted() && acc.AccountID != exceptID {
			return true
		}
	}
	return false
}

func (r *tenantRepos) SaveAccount(_ context.Context, account domain.Account) error {
	defer r.lockData()()
	if err := r.checkTenant(account.TenantID, "account", account.AccountID); err != nil {
		return err
	}
	if _, exists := r.store.db.accounts[account.AccountID]; exists {
		return apperrors.NewAppError(apperrors.ErrDuplicate, fmt.Sprintf("account %s", account.AccountID), nil)
	}
	if r.codeTaken(account.Code, account.AccountID) {
		return apperrors.NewAppError(apperrors.ErrDuplicate, fmt.Sprintf("account code %s", account.Code), nil)
	}
	put(r, r.store.db.accounts, account.AccountID, account)
	return nil
}

func (r *tenantRepos) UpdateAccount(_ context.Context, account domain.Account) error {
	defer r.lockData()()
	current, ok := r.store.db.accounts[account.AccountID]
	if !ok {
		return notFound("account", account.AccountID)
	}
	if err := r.checkTenant(current.TenantID, "account", account.AccountID); err != nil {
		return err
	}
	if r.codeTaken(account.Code, account.AccountID) {
		return apperrors.NewAppError(apperrors.ErrDuplicate, fmt.Sprintf("account code %s", account.Code), nil)
	}
	current.Code = account.Code
	current.Name = account.Name
	current.ParentAccountID = account.ParentAccountID
	current.Level = account.Level
	current.LastUpdatedAt = account.LastUpdatedAt
	current.LastUpdatedBy = account.LastUpdatedBy
	put(r, r.store.db.accounts, current.AccountID, current)
	return nil
}

func (r *tenantRepos) UpdateAccountLevels(_ context.Context, levels map[string]int, actorID string, now time.Time) error {
	defer r.lockData()()
	for id, level := range levels {
		acc, ok := r.store.db.accounts[id]
		if !ok {
			return notFound("account", id)
		}
		if err := r.checkTenant(acc.TenantID, "account", id); err != nil {
			return err
		}
		acc.Level = level
		acc.Touch(actorID, now)
		put(r, r.store.db.accounts, id, acc)
	}
	return nil
}

func (r *tenantRepos) SoftDeleteAccount(_ context.Context, accountID string, actorID string, now time.Time) error {
	defer r.lockData()()
	acc, ok := r.store.db.accounts[accountID]
	if !ok || acc.IsDeleted() {
		return notFound("account", accountID)
	}
	if err := r.checkTenant(acc.TenantID, "account", accountID); err != nil {
		return err
	}
	deletedAt := now
	acc.DeletedAt = &deletedAt
	acc.IsActive = false
	acc.Touch(actorID, now)
	put(r, r.store.db.accounts, accountID, acc)
	return nil
}
