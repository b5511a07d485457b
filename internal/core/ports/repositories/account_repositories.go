package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/koperasi_core/internal/core/domain"
)

// AccountReader defines read operations for account data. Soft-deleted
// accounts are only returned by FindAccountByID.
type AccountReader interface {
	// FindAccountByID retrieves a specific account by its unique identifier.
	FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error)

	// FindAccountByCode retrieves a live account by its tenant-unique code.
	FindAccountByCode(ctx context.Context, code string) (*domain.Account, error)

	// FindAccountsByIDs retrieves multiple accounts by their IDs. Missing ids are absent from the map.
	FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error)

	// ListAccounts returns every live account of the tenant ordered by code.
	ListAccounts(ctx context.Context) ([]domain.Account, error)

	// ListChildren returns the live direct children of any of parentIDs.
	ListChildren(ctx context.Context, parentIDs []string) ([]domain.Account, error)

	// HasChildren reports whether the account has live children.
	HasChildren(ctx context.Context, accountID string) (bool, error)
}

// AccountWriter defines write operations for account data
type AccountWriter interface {
	// SaveAccount persists a new account. A taken code fails with ErrDuplicate.
	SaveAccount(ctx context.Context, account domain.Account) error

	// UpdateAccount persists code, name, parent, level and audit fields.
	UpdateAccount(ctx context.Context, account domain.Account) error

	// UpdateAccountLevels rewrites the level of each account in levels.
	UpdateAccountLevels(ctx context.Context, levels map[string]int, actorID string, now time.Time) error

	// SoftDeleteAccount marks the account deleted and inactive.
	SoftDeleteAccount(ctx context.Context, accountID string, actorID string, now time.Time) error
}

// AccountRepositoryFacade combines all account-related repository interfaces
type AccountRepositoryFacade interface {
	AccountReader
	AccountWriter
}
