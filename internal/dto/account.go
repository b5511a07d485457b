package dto

import (
	"time"

	"github.com/SscSPs/koperasi_core/internal/core/domain"
	"github.com/SscSPs/koperasi_core/internal/core/money"
)

// CreateAccountRequest defines the data needed to create a new account.
type CreateAccountRequest struct {
	Code            string                `json:"code" validate:"required,max=32"`
	Name            string                `json:"name" validate:"required,max=255"`
	AccountType     domain.AccountType    `json:"accountType" validate:"required,oneof=asset liability equity revenue expense"`
	ParentAccountID *string               `json:"parentAccountID,omitempty" validate:"omitempty,uuid"` // nil for a root account
	NormalBalance   *domain.NormalBalance `json:"normalBalance,omitempty" validate:"omitempty,oneof=debit credit"`
	IsSystem        bool                  `json:"isSystem"`
}

// UpdateAccountRequest defines the data allowed for updating an account.
// Use pointers to distinguish between zero-value updates and fields not provided.
type UpdateAccountRequest struct {
	Code *string `json:"code,omitempty" validate:"omitempty,min=1,max=32"`
	Name *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
}

// AccountBalanceResponse defines the data returned for an account balance query.
type AccountBalanceResponse struct {
	AccountID     string               `json:"accountID"`
	NormalBalance domain.NormalBalance `json:"normalBalance"`
	AsOf          time.Time            `json:"asOf"`
	Balance       money.Money          `json:"balance"`
	// AccountsIncluded is 1 for a plain balance, or the size of the subtree.
	AccountsIncluded int `json:"accountsIncluded"`
}
