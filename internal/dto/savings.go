package dto

import (
	"time"

	"github.com/SscSPs/koperasi_core/internal/core/domain"
	"github.com/SscSPs/koperasi_core/internal/core/money"
	"github.com/shopspring/decimal"
)

// SavingsMutationRequest is the input of a deposit or a withdrawal.
type SavingsMutationRequest struct {
	MemberID        string             `json:"memberID" validate:"required,uuid"`
	SavingsType     domain.SavingsType `json:"savingsType" validate:"required,oneof=pokok wajib sukarela"`
	Amount          money.Money        `json:"amount"`
	TransactionDate time.Time          `json:"transactionDate" validate:"required"`
	Description     string             `json:"description" validate:"max=500"`
}

// ListSavingsTransactionsResponse is a page of one savings account's chain.
type ListSavingsTransactionsResponse struct {
	Transactions []domain.SavingsTransaction `json:"transactions"`
	NextToken    *string                     `json:"nextToken,omitempty"`
}

// SavingsBalanceResponse lists a member's balance per savings type.
type SavingsBalanceResponse struct {
	MemberID string                             `json:"memberID"`
	Balances map[domain.SavingsType]money.Money `json:"balances"`
	Total    money.Money                        `json:"total"`
}

// OpenLoanRequest disburses a new loan.
type OpenLoanRequest struct {
	MemberID        string          `json:"memberID" validate:"required,uuid"`
	PrincipalAmount money.Money     `json:"principalAmount"`
	InterestRate    decimal.Decimal `json:"interestRate"`
	TermMonths      int             `json:"termMonths" validate:"required,min=1,max=600"`
	DisbursedAt     time.Time       `json:"disbursedAt" validate:"required"`
}

// RecordPaymentRequest records one loan installment.
type RecordPaymentRequest struct {
	LoanAccountID   string      `json:"loanAccountID" validate:"required,uuid"`
	PrincipalAmount money.Money `json:"principalAmount"`
	InterestAmount  money.Money `json:"interestAmount"`
	PaymentDate     time.Time   `json:"paymentDate" validate:"required"`
	Notes           string      `json:"notes" validate:"max=500"`
}

// ListLoanPaymentsResponse is a page of one loan's payments.
type ListLoanPaymentsResponse struct {
	Payments  []domain.LoanPayment `json:"payments"`
	NextToken *string              `json:"nextToken,omitempty"`
}
