package domain

import (
	"fmt"
	"time"

	"github.com/SscSPs/koperasi_core/internal/apperrors"
	"github.com/SscSPs/koperasi_core/internal/core/money"
)

// JournalEntry is a balanced double-entry posting. Once approved only the
// description may change.
type JournalEntry struct {
	JournalEntryID  string             `json:"journalEntryID"`
	TenantID        string             `json:"tenantID"`
	FiscalPeriodID  string             `json:"fiscalPeriodID"`
	ReferenceNumber string             `json:"referenceNumber"` // JE-YYYYMM-NNNN
	TransactionDate time.Time          `json:"transactionDate"`
	Description     string             `json:"description"`
	TotalDebit      money.Money        `json:"totalDebit"`
	TotalCredit     money.Money        `json:"totalCredit"`
	IsApproved      bool               `json:"isApproved"`
	ApprovedBy      *string            `json:"approvedBy,omitempty"`
	ApprovedAt      *time.Time         `json:"approvedAt,omitempty"`
	Lines           []JournalEntryLine `json:"lines,omitempty"`
	AuditFields
}

// IsBalanced reports whether total debits equal total credits exactly.
func (e JournalEntry) IsBalanced() bool {
	return e.TotalDebit.Equal(e.TotalCredit)
}

// JournalEntryLine is one side of a posting against a single account.
type JournalEntryLine struct {
	LineID         string      `json:"lineID"`
	JournalEntryID string      `json:"journalEntryID"`
	AccountID      string      `json:"accountID"`
	Description    string      `json:"description"`
	DebitAmount    money.Money `json:"debitAmount"`
	CreditAmount   money.Money `json:"creditAmount"`
	LineNumber     int         `json:"lineNumber"`
	CreatedAt      time.Time   `json:"createdAt"`
}

// IsDebit reports whether the line posts to the debit side.
func (l JournalEntryLine) IsDebit() bool {
	return l.DebitAmount.IsPositive()
}

// Amount returns the posted amount regardless of side.
func (l JournalEntryLine) Amount() money.Money {
	if l.IsDebit() {
		return l.DebitAmount
	}
	return l.CreditAmount
}

// Validate enforces that exactly one side is positive, neither is negative
// and the amount does not exceed maxAmount.
func (l JournalEntryLine) Validate(maxAmount money.Money) error {
	if l.DebitAmount.IsNegative() || l.CreditAmount.IsNegative() {
		return apperrors.NewAppError(apperrors.ErrInvalidLine,
			fmt.Sprintf("line %d has a negative amount", l.LineNumber), nil)
	}
	debit, credit := l.DebitAmount.IsPositive(), l.CreditAmount.IsPositive()
	if debit == credit {
		return apperrors.NewAppError(apperrors.ErrInvalidLine,
			fmt.Sprintf("line %d must have exactly one of debit or credit", l.LineNumber), nil)
	}
	if l.Amount().GreaterThan(maxAmount) {
		return apperrors.NewAppError(apperrors.ErrInvalidAmount,
			fmt.Sprintf("line %d amount %s exceeds maximum %s", l.LineNumber, l.Amount(), maxAmount), nil)
	}
	return nil
}

// SumLines returns total debits and total credits.
func SumLines(lines []JournalEntryLine) (debit, credit money.Money) {
	for _, l := range lines {
		debit = debit.Add(l.DebitAmount)
		credit = credit.Add(l.CreditAmount)
	}
	return debit, credit
}

// AccountLine is a journal line joined with its entry header, used when
// listing the activity of one account.
type AccountLine struct {
	JournalEntryLine
	ReferenceNumber string    `json:"referenceNumber"`
	TransactionDate time.Time `json:"transactionDate"`
	IsApproved      bool      `json:"isApproved"`
}

// LineTotals are the approved debit and credit totals of one account.
type LineTotals struct {
	Debit  money.Money
	Credit money.Money
}

