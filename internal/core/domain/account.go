package domain

import (
	"sort"
	"time"
)

// AccountType defines the fundamental accounting type of an account.
type AccountType string

const (
	Asset     AccountType = "asset"
	Liability AccountType = "liability"
	Equity    AccountType = "equity"
	Revenue   AccountType = "revenue"
	Expense   AccountType = "expense"
)

// IsValid reports whether t is one of the five account types.
func (t AccountType) IsValid() bool {
	switch t {
	case Asset, Liability, Equity, Revenue, Expense:
		return true
	}
	return false
}

// DefaultNormalBalance returns the side on which accounts of this type increase.
func (t AccountType) DefaultNormalBalance() NormalBalance {
	if t == Asset || t == Expense {
		return NormalDebit
	}
	return NormalCredit
}

// NormalBalance is the side (debit or credit) an account naturally increases on.
type NormalBalance string

const (
	NormalDebit  NormalBalance = "debit"
	NormalCredit NormalBalance = "credit"
)

// IsValid reports whether b is debit or credit.
func (b NormalBalance) IsValid() bool {
	return b == NormalDebit || b == NormalCredit
}

// Account is a node of a tenant's chart of accounts.
type Account struct {
	AccountID       string        `json:"accountID"`
	TenantID        string        `json:"tenantID"`
	Code            string        `json:"code"` // unique per tenant
	Name            string        `json:"name"`
	AccountType     AccountType   `json:"accountType"`
	ParentAccountID string        `json:"parentAccountID"` // empty for a root account
	Level           int           `json:"level"`           // 1 for roots
	NormalBalance   NormalBalance `json:"normalBalance"`
	IsActive        bool          `json:"isActive"`
	IsSystem        bool          `json:"isSystem"`
	DeletedAt       *time.Time    `json:"deletedAt,omitempty"`
	AuditFields
}

// IsRoot reports whether the account has no parent.
func (a Account) IsRoot() bool {
	return a.ParentAccountID == ""
}

// IsDeleted reports whether the account was soft deleted.
func (a Account) IsDeleted() bool {
	return a.DeletedAt != nil
}

// CanPost reports whether journal lines may reference the account.
func (a Account) CanPost() bool {
	return a.IsActive && !a.IsDeleted()
}

// AccountNode is an account with its children, used for hierarchy views.
type AccountNode struct {
	Account
	Children []*AccountNode `json:"children"`
}

// BuildAccountTree links a flat account list into root nodes ordered by code.
// Accounts whose parent is absent from the list are returned as roots.
func BuildAccountTree(accounts []Account) []*AccountNode {
	nodes := make(map[string]*AccountNode, len(accounts))
	for _, a := range accounts {
		nodes[a.AccountID] = &AccountNode{Account: a, Children: []*AccountNode{}}
	}

	roots := make([]*AccountNode, 0)
	for _, a := range accounts {
		node := nodes[a.AccountID]
		parent, ok := nodes[a.ParentAccountID]
		if a.IsRoot() || !ok {
			roots = append(roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}
	sortNodes(roots)
	return roots
}

func sortNodes(nodes []*AccountNode) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Code < nodes[j].Code })
	for _, n := range nodes {
		sortNodes(n.Children)
	}
}
