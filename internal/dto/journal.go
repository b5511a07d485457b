package dto

import (
	"time"

	"github.com/SscSPs/koperasi_core/internal/core/domain"
	"github.com/SscSPs/koperasi_core/internal/core/money"
)

// JournalLineRequest is one line of a posting. Exactly one side must be positive.
type JournalLineRequest struct {
	AccountID    string      `json:"accountID" validate:"required,uuid"`
	Description  string      `json:"description" validate:"max=500"`
	DebitAmount  money.Money `json:"debitAmount"`
	CreditAmount money.Money `json:"creditAmount"`
}

// PostJournalRequest defines the data needed to post a journal entry.
type PostJournalRequest struct {
	FiscalPeriodID  string               `json:"fiscalPeriodID" validate:"required,uuid"`
	TransactionDate time.Time            `json:"transactionDate" validate:"required"`
	Description     string               `json:"description" validate:"max=500"`
	Lines           []JournalLineRequest `json:"lines" validate:"required,min=2,dive"`
}

// UpdateJournalRequest defines the fields that may change on an entry.
// TransactionDate and Lines are only accepted before approval.
type UpdateJournalRequest struct {
	Description     *string              `json:"description,omitempty" validate:"omitempty,max=500"`
	TransactionDate *time.Time           `json:"transactionDate,omitempty"`
	Lines           []JournalLineRequest `json:"lines,omitempty" validate:"omitempty,min=2,dive"`
}

// ListParams holds cursor pagination parameters.
type ListParams struct {
	Limit     int     `json:"limit" validate:"omitempty,min=1,max=500"`
	NextToken *string `json:"nextToken,omitempty"`
}

// ListJournalsResponse is a page of journal entries.
type ListJournalsResponse struct {
	Entries   []domain.JournalEntry `json:"entries"`
	NextToken *string               `json:"nextToken,omitempty"`
}

// ListAccountLinesResponse is a page of lines posted to one account.
type ListAccountLinesResponse struct {
	Lines     []domain.AccountLine `json:"lines"`
	NextToken *string              `json:"nextToken,omitempty"`
}

// ToJournalLines converts request lines into numbered domain lines.
func ToJournalLines(entryID string, reqs []JournalLineRequest, newID func() string, now time.Time) []domain.JournalEntryLine {
	lines := make([]domain.JournalEntryLine, len(reqs))
	for i, r := range reqs {
		lines[i] = domain.JournalEntryLine{
			LineID:         newID(),
			JournalEntryID: entryID,
			AccountID:      r.AccountID,
			Description:    r.Description,
			DebitAmount:    r.DebitAmount,
			CreditAmount:   r.CreditAmount,
			LineNumber:     i + 1,
			CreatedAt:      now,
		}
	}
	return lines
}
