package domain

import (
	"time"

	"github.com/SscSPs/koperasi_core/internal/core/money"
	"github.com/shopspring/decimal"
)

// LoanStatus is the lifecycle state of a loan.
type LoanStatus string

const (
	LoanActive  LoanStatus = "active"
	LoanPaidOff LoanStatus = "paid_off"
)

// LoanAccount is a disbursed member loan with a cached outstanding balance.
type LoanAccount struct {
	LoanAccountID      string          `json:"loanAccountID"`
	TenantID           string          `json:"tenantID"`
	MemberID           string          `json:"memberID"`
	LoanNumber         string          `json:"loanNumber"`
	PrincipalAmount    money.Money     `json:"principalAmount"`
	InterestRate       decimal.Decimal `json:"interestRate"` // annual, percent
	TermMonths         int             `json:"termMonths"`
	OutstandingBalance money.Money     `json:"outstandingBalance"`
	Status             LoanStatus      `json:"status"`
	DisbursedAt        time.Time       `json:"disbursedAt"`
	AuditFields
}

// LoanPayment is an immutable row of a loan balance chain. Only the
// principal part reduces the outstanding balance.
type LoanPayment struct {
	LoanPaymentID   string      `json:"loanPaymentID"`
	TenantID        string      `json:"tenantID"`
	LoanAccountID   string      `json:"loanAccountID"`
	MemberID        string      `json:"memberID"`
	ReferenceNumber string      `json:"referenceNumber"`
	PrincipalAmount money.Money `json:"principalAmount"`
	InterestAmount  money.Money `json:"interestAmount"`
	TotalAmount     money.Money `json:"totalAmount"`
	BalanceBefore   money.Money `json:"balanceBefore"`
	BalanceAfter    money.Money `json:"balanceAfter"`
	PaymentDate     time.Time   `json:"paymentDate"`
	Sequence        int64       `json:"sequence"`
	Notes           string      `json:"notes"`
	ProcessedBy     string      `json:"processedBy"`
	CreatedAt       time.Time   `json:"createdAt"`
}

// LoanPaymentResult is returned by RecordPayment.
type LoanPaymentResult struct {
	Payment            LoanPayment `json:"payment"`
	OutstandingBalance money.Money `json:"outstandingBalance"`
	Status             LoanStatus  `json:"status"`
}
