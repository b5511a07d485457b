package domain

import (
	"time"

	"github.com/SscSPs/koperasi_core/internal/core/money"
)

// SavingsType is the Indonesian cooperative savings category.
type SavingsType string

const (
	SavingsPokok    SavingsType = "pokok"    // principal, deposited once
	SavingsWajib    SavingsType = "wajib"    // mandatory, recurring
	SavingsSukarela SavingsType = "sukarela" // voluntary
)

// AllSavingsTypes lists the savings types in reporting order.
var AllSavingsTypes = []SavingsType{SavingsPokok, SavingsWajib, SavingsSukarela}

// IsValid reports whether t is a known savings type.
func (t SavingsType) IsValid() bool {
	switch t {
	case SavingsPokok, SavingsWajib, SavingsSukarela:
		return true
	}
	return false
}

// SavingsTransactionType is the direction of a savings mutation.
type SavingsTransactionType string

const (
	SavingsDeposit    SavingsTransactionType = "deposit"
	SavingsWithdrawal SavingsTransactionType = "withdrawal"
)

// SavingsAccount holds the cached running balance of one member and type.
type SavingsAccount struct {
	SavingsAccountID string      `json:"savingsAccountID"`
	TenantID         string      `json:"tenantID"`
	MemberID         string      `json:"memberID"`
	SavingsType      SavingsType `json:"savingsType"`
	Balance          money.Money `json:"balance"`
	MinimumBalance   money.Money `json:"minimumBalance"`
	AuditFields
}

// SavingsTransaction is an immutable row of a savings balance chain.
type SavingsTransaction struct {
	SavingsTransactionID string                 `json:"savingsTransactionID"`
	TenantID             string                 `json:"tenantID"`
	SavingsAccountID     string                 `json:"savingsAccountID"`
	MemberID             string                 `json:"memberID"`
	SavingsType          SavingsType            `json:"savingsType"`
	TransactionType      SavingsTransactionType `json:"transactionType"`
	ReferenceNumber      string                 `json:"referenceNumber"`
	Amount               money.Money            `json:"amount"`
	BalanceBefore        money.Money            `json:"balanceBefore"`
	BalanceAfter         money.Money            `json:"balanceAfter"`
	TransactionDate      time.Time              `json:"transactionDate"`
	Sequence             int64                  `json:"sequence"` // insertion order within the account
	Description          string                 `json:"description"`
	ProcessedBy          string                 `json:"processedBy"`
	CreatedAt            time.Time              `json:"createdAt"`
}

// SignedAmount returns the amount as a balance delta.
func (t SavingsTransaction) SignedAmount() money.Money {
	if t.TransactionType == SavingsWithdrawal {
		return t.Amount.Neg()
	}
	return t.Amount
}

// SavingsMutationResult is returned by deposit and withdrawal operations.
type SavingsMutationResult struct {
	Transaction SavingsTransaction `json:"transaction"`
	Balance     money.Money        `json:"balance"`
}
