package services

import (
	"context"
	"time"

	"github.com/SscSPs/koperasi_core/internal/core/domain"
	"github.com/SscSPs/koperasi_core/internal/dto"
)

// AccountReaderSvc defines read operations for account data
type AccountReaderSvc interface {
	// GetAccount retrieves a specific account by its unique identifier.
	GetAccount(ctx context.Context, tenantID string, accountID string) (*domain.Account, error)

	// GetHierarchy returns the tenant's chart of accounts as a forest ordered by code.
	GetHierarchy(ctx context.Context, tenantID string) ([]*domain.AccountNode, error)
}

// AccountWriterSvc defines write operations for account data
type AccountWriterSvc interface {
	// CreateAccount persists a new account.
	CreateAccount(ctx context.Context, tenantID string, req dto.CreateAccountRequest, actorID string) (*domain.Account, error)

	// UpdateAccount changes an account's code or name.
	UpdateAccount(ctx context.Context, tenantID string, accountID string, req dto.UpdateAccountRequest, actorID string) (*domain.Account, error)

	// MoveAccount reparents an account; a nil parent makes it a root.
	MoveAccount(ctx context.Context, tenantID string, accountID string, newParentID *string, actorID string) (*domain.Account, error)

	// DeleteAccount soft deletes an unused account.
	DeleteAccount(ctx context.Context, tenantID string, accountID string, actorID string) error
}

// AccountCalculatorSvc defines calculation operations for account data
type AccountCalculatorSvc interface {
	// GetBalance returns the account's approved balance up to asOf, signed by its normal balance.
	GetBalance(ctx context.Context, tenantID string, accountID string, asOf time.Time) (*dto.AccountBalanceResponse, error)

	// GetBalanceWithDescendants adds the balances of every descendant, each
	// signed by its own normal balance.
	GetBalanceWithDescendants(ctx context.Context, tenantID string, accountID string, asOf time.Time) (*dto.AccountBalanceResponse, error)
}

// AccountSvcFacade combines all account-related service interfaces
// This is a facade for clients that need access to all operations
type AccountSvcFacade interface {
	AccountReaderSvc
	AccountWriterSvc
	AccountCalculatorSvc
}
