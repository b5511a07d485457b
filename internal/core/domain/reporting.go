package domain

import (
	"time"

	"github.com/SscSPs/koperasi_core/internal/core/money"
)

// TrialBalanceRow represents a single row in a trial balance report
type TrialBalanceRow struct {
	AccountID   string      `json:"accountID"`
	AccountCode string      `json:"accountCode"`
	AccountName string      `json:"accountName"`
	AccountType AccountType `json:"accountType"`
	Debit       money.Money `json:"debit"`
	Credit      money.Money `json:"credit"`
}

// TrialBalance lists approved debit and credit totals per account.
type TrialBalance struct {
	AsOf        time.Time         `json:"asOf"`
	Rows        []TrialBalanceRow `json:"rows"`
	TotalDebit  money.Money       `json:"totalDebit"`
	TotalCredit money.Money       `json:"totalCredit"`
}

// IsBalanced reports whether both columns agree.
func (tb TrialBalance) IsBalanced() bool {
	return tb.TotalDebit.Equal(tb.TotalCredit)
}
