package accounting

import (
	"fmt"

	"github.com/SscSPs/koperasi_core/internal/apperrors"
	"github.com/SscSPs/koperasi_core/internal/core/domain"
	"github.com/SscSPs/koperasi_core/internal/core/money"
)

// SignedBalance applies the account's normal balance to approved totals.
// DEBIT-normal accounts (asset, expense) report debit - credit; CREDIT-normal
// accounts (liability, equity, revenue) report credit - debit.
func SignedBalance(totals domain.LineTotals, side domain.NormalBalance) money.Money {
	if side == domain.NormalDebit {
		return totals.Debit.Sub(totals.Credit)
	}
	return totals.Credit.Sub(totals.Debit)
}

// ValidateJournalLines checks the posting rules of a set of lines: at least
// two lines, each single-sided and within maxAmount, and debits equal to
// credits. It returns the totals of both sides.
func ValidateJournalLines(lines []domain.JournalEntryLine, maxAmount money.Money) (money.Money, money.Money, error) {
	if len(lines) < 2 {
		return money.Zero, money.Zero, apperrors.NewValidationError("journal entry must have at least two lines")
	}

	for _, line := range lines {
		if err := line.Validate(maxAmount); err != nil {
			return money.Zero, money.Zero, err
		}
	}

	debit, credit := domain.SumLines(lines)
	if !debit.Equal(credit) {
		return money.Zero, money.Zero, apperrors.NewAppError(apperrors.ErrUnbalancedEntry,
			fmt.Sprintf("debits %s, credits %s", debit, credit), nil)
	}
	return debit, credit, nil
}
