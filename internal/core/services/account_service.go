package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SscSPs/koperasi_core/internal/apperrors"
	"github.com/SscSPs/koperasi_core/internal/core/domain"
	"github.com/SscSPs/koperasi_core/internal/core/money"
	portsrepo "github.com/SscSPs/koperasi_core/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/koperasi_core/internal/core/ports/services"
	"github.com/SscSPs/koperasi_core/internal/dto"
	"github.com/SscSPs/koperasi_core/internal/platform/config"
	"github.com/SscSPs/koperasi_core/internal/platform/validation"
	"github.com/SscSPs/koperasi_core/internal/utils/accounting"
)

// accountService implements the AccountSvcFacade interface
type accountService struct {
	BaseService
	store  portsrepo.Store
	ledger config.LedgerConfig
}

// NewAccountService creates a new account service with the provided options
func NewAccountService(store portsrepo.Store, ledger config.LedgerConfig, options ...ServiceOption) portssvc.AccountSvcFacade {
	return &accountService{
		BaseService: newBaseService(applyOptions(options)),
		store:       store,
		ledger:      ledger,
	}
}

// Ensure accountService implements the AccountSvcFacade interface
var _ portssvc.AccountSvcFacade = (*accountService)(nil)

func (s *accountService) CreateAccount(ctx context.Context, tenantID string, req dto.CreateAccountRequest, actorID string) (*domain.Account, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	now := s.now()
	account := domain.Account{
		AccountID:     s.newID(),
		TenantID:      tenantID,
		Code:          strings.TrimSpace(req.Code),
		Name:          strings.TrimSpace(req.Name),
		AccountType:   req.AccountType,
		Level:         1,
		NormalBalance: req.AccountType.DefaultNormalBalance(),
		IsActive:      true,
		IsSystem:      req.IsSystem,
		AuditFields:   domain.NewAuditFields(actorID, now),
	}
	if req.NormalBalance != nil {
		account.NormalBalance = *req.NormalBalance
	}

	err := s.store.WithinTransaction(ctx, tenantID, func(ctx context.Context, repos portsrepo.TenantRepositories) error {
		if req.ParentAccountID != nil {
			parent, err := s.resolveParent(ctx, repos, *req.ParentAccountID)
			if err != nil {
				return err
			}
			account.ParentAccountID = parent.AccountID
			account.Level = parent.Level + 1
			if account.Level > s.ledger.MaxHierarchyDepth {
				return apperrors.NewAppError(apperrors.ErrInvalidParent,
					fmt.Sprintf("hierarchy may not be deeper than %d levels", s.ledger.MaxHierarchyDepth), nil)
			}
		}

		if err := s.ensureCodeFree(ctx, repos, account.Code, ""); err != nil {
			return err
		}
		if err := repos.Accounts().SaveAccount(ctx, account); err != nil {
			if errors.Is(err, apperrors.ErrDuplicate) {
				return apperrors.NewAppError(apperrors.ErrDuplicateCode, account.Code, err)
			}
			return fmt.Errorf("failed to save account: %w", err)
		}
		return nil
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to create account",
			slog.String("tenant_id", tenantID),
			slog.String("code", account.Code))
		return nil, err
	}

	s.LogInfo(ctx, "Account created",
		slog.String("tenant_id", tenantID),
		slog.String("account_id", account.AccountID),
		slog.String("code", account.Code))
	return &account, nil
}

// resolveParent loads a live, active parent of the tenant. Anything else is ErrInvalidParent.
func (s *accountService) resolveParent(ctx context.Context, repos portsrepo.TenantRepositories, parentID string) (*domain.Account, error) {
	parent, err := repos.Accounts().FindAccountByID(ctx, parentID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrCrossTenantAccess) {
			return nil, apperrors.NewAppError(apperrors.ErrInvalidParent, fmt.Sprintf("parent %s does not exist", parentID), err)
		}
		return nil, fmt.Errorf("failed to load parent account: %w", err)
	}
	if !parent.CanPost() {
		return nil, apperrors.NewAppError(apperrors.ErrInvalidParent, fmt.Sprintf("parent %s is not active", parentID), nil)
	}
	return parent, nil
}

func (s *accountService) ensureCodeFree(ctx context.Context, repos portsrepo.TenantRepositories, code, accountID string) error {
	existing, err := repos.Accounts().FindAccountByCode(ctx, code)
	switch {
	case err == nil && existing.AccountID != accountID:
		return apperrors.NewAppError(apperrors.ErrDuplicateCode, code, nil)
	case err != nil && !errors.Is(err, apperrors.ErrNotFound):
		return fmt.Errorf("failed to check account code: %w", err)
	}
	return nil
}

func (s *accountService) loadLiveAccount(ctx context.Context, repos portsrepo.TenantRepositories, accountID string) (*domain.Account, error) {
	account, err := repos.Accounts().FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.IsDeleted() {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("account %s", accountID))
	}
	return account, nil
}

func (s *accountService) UpdateAccount(ctx context.Context, tenantID string, accountID string, req dto.UpdateAccountRequest, actorID string) (*domain.Account, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	var account *domain.Account
	err := s.store.WithinTransaction(ctx, tenantID, func(ctx context.Context, repos portsrepo.TenantRepositories) error {
		var err error
		account, err = s.loadLiveAccount(ctx, repos, accountID)
		if err != nil {
			return err
		}

		if req.Code != nil {
			code := strings.TrimSpace(*req.Code)
			if code != account.Code {
				if err := s.ensureCodeFree(ctx, repos, code, account.AccountID); err != nil {
					return err
				}
				account.Code = code
			}
		}
		if req.Name != nil {
			account.Name = strings.TrimSpace(*req.Name)
		}
		account.Touch(actorID, s.now())

		if err := repos.Accounts().UpdateAccount(ctx, *account); err != nil {
			if errors.Is(err, apperrors.ErrDuplicate) {
				return apperrors.NewAppError(apperrors.ErrDuplicateCode, account.Code, err)
			}
			return fmt.Errorf("failed to update account: %w", err)
		}
		return nil
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to update account", slog.String("account_id", accountID))
		return nil, err
	}
	return account, nil
}

// MoveAccount reparents an account. The new parent's ancestor chain must not
// contain the account, and the levels of the whole moved subtree are rewritten.
func (s *accountService) MoveAccount(ctx context.Context, tenantID string, accountID string, newParentID *string, actorID string) (*domain.Account, error) {
	var account *domain.Account
	err := s.store.WithinTransaction(ctx, tenantID, func(ctx context.Context, repos portsrepo.TenantRepositories) error {
		var err error
		account, err = s.loadLiveAccount(ctx, repos, accountID)
		if err != nil {
			return err
		}

		newLevel := 1
		account.ParentAccountID = ""
		if newParentID != nil && *newParentID != "" {
			if *newParentID == accountID {
				return apperrors.NewAppError(apperrors.ErrInvalidParent, "an account cannot be its own parent", nil)
			}
			parent, err := s.resolveParent(ctx, repos, *newParentID)
			if err != nil {
				return err
			}
			if err := s.checkNotAncestor(ctx, repos, accountID, parent); err != nil {
				return err
			}
			account.ParentAccountID = parent.AccountID
			newLevel = parent.Level + 1
		}

		descendants, err := s.walkSubtree(ctx, repos, accountID, newLevel)
		if err != nil {
			return err
		}
		levels := make(map[string]int, len(descendants))
		for _, d := range descendants {
			levels[d.account.AccountID] = d.level
		}

		now := s.now()
		account.Level = newLevel
		account.Touch(actorID, now)
		if err := repos.Accounts().UpdateAccount(ctx, *account); err != nil {
			return fmt.Errorf("failed to move account: %w", err)
		}
		if len(levels) > 0 {
			if err := repos.Accounts().UpdateAccountLevels(ctx, levels, actorID, now); err != nil {
				return fmt.Errorf("failed to update descendant levels: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to move account", slog.String("account_id", accountID))
		return nil, err
	}
	return account, nil
}

// checkNotAncestor walks up from parent and fails if accountID is on the path.
func (s *accountService) checkNotAncestor(ctx context.Context, repos portsrepo.TenantRepositories, accountID string, parent *domain.Account) error {
	visited := map[string]struct{}{parent.AccountID: {}}
	current := parent
	for steps := 0; current.ParentAccountID != ""; steps++ {
		if current.ParentAccountID == accountID {
			return apperrors.NewAppError(apperrors.ErrInvalidParent,
				fmt.Sprintf("account %s is a descendant of %s", parent.AccountID, accountID), nil)
		}
		if _, seen := visited[current.ParentAccountID]; seen || steps >= s.ledger.MaxHierarchyDepth {
			return apperrors.NewAppError(apperrors.ErrInvalidParent, "parent chain is corrupt", nil)
		}
		visited[current.ParentAccountID] = struct{}{}

		next, err := repos.Accounts().FindAccountByID(ctx, current.ParentAccountID)
		if err != nil {
			return fmt.Errorf("failed to walk parent chain: %w", err)
		}
		current = next
	}
	return nil
}

// subtreeNode is a descendant found by walkSubtree, with the level it takes
// when its root sits at the level passed in.
type subtreeNode struct {
	account domain.Account
	level   int
}

// walkSubtree loads every live descendant of rootID level by level, one
// query per level, and fails once the hierarchy exceeds the maximum depth.
func (s *accountService) walkSubtree(ctx context.Context, repos portsrepo.TenantRepositories, rootID string, rootLevel int) ([]subtreeNode, error) {
	var nodes []subtreeNode
	visited := map[string]struct{}{rootID: {}}
	frontier := []string{rootID}

	for level := rootLevel + 1; len(frontier) > 0; level++ {
		children, err := repos.Accounts().ListChildren(ctx, frontier)
		if err != nil {
			return nil, fmt.Errorf("failed to load children: %w", err)
		}
		if len(children) > 0 && level > s.ledger.MaxHierarchyDepth {
			return nil, apperrors.NewAppError(apperrors.ErrInvalidParent,
				fmt.Sprintf("hierarchy may not be deeper than %d levels", s.ledger.MaxHierarchyDepth), nil)
		}

		frontier = frontier[:0]
		for _, child := range children {
			if _, seen := visited[child.AccountID]; seen {
				continue
			}
			visited[child.AccountID] = struct{}{}
			nodes = append(nodes, subtreeNode{account: child, level: level})
			frontier = append(frontier, child.AccountID)
		}
	}
	return nodes, nil
}

func (s *accountService) DeleteAccount(ctx context.Context, tenantID string, accountID string, actorID string) error {
	err := s.store.WithinTransaction(ctx, tenantID, func(ctx context.Context, repos portsrepo.TenantRepositories) error {
		account, err := s.loadLiveAccount(ctx, repos, accountID)
		if err != nil {
			return err
		}
		if account.IsSystem {
			return apperrors.NewAppError(apperrors.ErrAccountInUse, "system accounts cannot be deleted", nil)
		}

		hasChildren, err := repos.Accounts().HasChildren(ctx, accountID)
		if err != nil {
			return fmt.Errorf("failed to check children: %w", err)
		}
		if hasChildren {
			return apperrors.NewAppError(apperrors.ErrAccountInUse, "account has child accounts", nil)
		}

		hasLines, err := repos.Journals().HasLinesForAccount(ctx, accountID)
		if err != nil {
			return fmt.Errorf("failed to check journal lines: %w", err)
		}
		if hasLines {
			return apperrors.NewAppError(apperrors.ErrAccountInUse, "account has journal lines", nil)
		}

		return repos.Accounts().SoftDeleteAccount(ctx, accountID, actorID, s.now())
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to delete account", slog.String("account_id", accountID))
		return err
	}
	s.LogInfo(ctx, "Account deleted", slog.String("account_id", accountID))
	return nil
}

func (s *accountService) GetAccount(ctx context.Context, tenantID string, accountID string) (*domain.Account, error) {
	account, err := s.store.Tenant(tenantID).Accounts().FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", accountID, err)
	}
	return account, nil
}

func (s *accountService) GetHierarchy(ctx context.Context, tenantID string) ([]*domain.AccountNode, error) {
	accounts, err := s.store.Tenant(tenantID).Accounts().ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return domain.BuildAccountTree(accounts), nil
}

func (s *accountService) GetBalance(ctx context.Context, tenantID string, accountID string, asOf time.Time) (*dto.AccountBalanceResponse, error) {
	repos := s.store.Tenant(tenantID)
	account, err := s.loadLiveAccount(ctx, repos, accountID)
	if err != nil {
		return nil, err
	}

	totals, err := repos.Journals().SumApprovedLines(ctx, []string{accountID}, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to sum lines: %w", err)
	}
	return &dto.AccountBalanceResponse{
		AccountID:        accountID,
		NormalBalance:    account.NormalBalance,
		AsOf:             asOf,
		Balance:          accounting.SignedBalance(totals[accountID], account.NormalBalance),
		AccountsIncluded: 1,
	}, nil
}

func (s *accountService) GetBalanceWithDescendants(ctx context.Context, tenantID string, accountID string, asOf time.Time) (*dto.AccountBalanceResponse, error) {
	repos := s.store.Tenant(tenantID)
	root, err := s.loadLiveAccount(ctx, repos, accountID)
	if err != nil {
		return nil, err
	}

	descendants, err := s.walkSubtree(ctx, repos, accountID, root.Level)
	if err != nil {
		return nil, err
	}
	sides := make(map[string]domain.NormalBalance, len(descendants)+1)
	sides[accountID] = root.NormalBalance
	ids := make([]string, 0, len(descendants)+1)
	ids = append(ids, accountID)
	for _, d := range descendants {
		sides[d.account.AccountID] = d.account.NormalBalance
		ids = append(ids, d.account.AccountID)
	}

	totals, err := repos.Journals().SumApprovedLines(ctx, ids, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to sum lines: %w", err)
	}
	// each account contributes its own balance, signed by its own normal side
	balance := money.Zero
	for _, id := range ids {
		balance = balance.Add(accounting.SignedBalance(totals[id], sides[id]))
	}

	s.LogDebug(ctx, "Computed subtree balance",
		slog.String("account_id", accountID),
		slog.Int("accounts", len(ids)))
	return &dto.AccountBalanceResponse{
		AccountID:        accountID,
		NormalBalance:    root.NormalBalance,
		AsOf:             asOf,
		Balance:          balance,
		AccountsIncluded: len(ids),
	}, nil
}
