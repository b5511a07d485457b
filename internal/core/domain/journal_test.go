package domain_test

import (
	"testing"

	"github.com/SscSPs/koperasi_core/internal/apperrors"
	"github.com/SscSPs/koperasi_core/internal/core/domain"
	"github.com/SscSPs/koperasi_core/internal/core/money"
	"github.com/stretchr/testify/assert"
)

func TestJournalEntryLine_Validate(t *testing.T) {
	maxAmount := money.MustParse("1000000.00")

	tests := []struct {
		name    string
		line    domain.JournalEntryLine
		wantErr error
	}{
		{"debit only", domain.JournalEntryLine{DebitAmount: money.MustParse("100")}, nil},
		{"credit only", domain.JournalEntryLine{CreditAmount: money.MustParse("100")}, nil},
		{"both sides", domain.JournalEntryLine{DebitAmount: money.MustParse("1"), CreditAmount: money.MustParse("1")}, apperrors.ErrInvalidLine},
		{"neither side", domain.JournalEntryLine{}, apperrors.ErrInvalidLine},
		{"negative debit", domain.JournalEntryLine{DebitAmount: money.MustParse("-5"), CreditAmount: money.MustParse("5")}, apperrors.ErrInvalidLine},
		{"above maximum", domain.JournalEntryLine{DebitAmount: money.MustParse("1000000.01")}, apperrors.ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.line.Validate(maxAmount)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSumLines(t *testing.T) {
	lines := []domain.JournalEntryLine{
		{DebitAmount: money.MustParse("100.00")},
		{DebitAmount: money.MustParse("50.25")},
		{CreditAmount: money.MustParse("150.25")},
	}
	debit, credit := domain.SumLines(lines)
	assert.Equal(t, "150.25", debit.String())
	assert.True(t, debit.Equal(credit))

	entry := domain.JournalEntry{TotalDebit: debit, TotalCredit: credit}
	assert.True(t, entry.IsBalanced())
}

func TestFormatReference(t *testing.T) {
	scope := domain.ReferenceScope(domain.JournalRefPrefix, mustDate("2024-01-31"))
	assert.Equal(t, "JE-202401", scope)
	assert.Equal(t, "JE-202401-0007", domain.FormatReference(scope, 7))
	assert.Equal(t, "JE-202401-12345", domain.FormatReference(scope, 12345))
}
