package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/koperasi_core/internal/core/domain"
)

// JournalReader defines read operations for journal entries
type JournalReader interface {
	// FindJournalEntryByID retrieves an entry header.
	FindJournalEntryByID(ctx context.Context, entryID string) (*domain.JournalEntry, error)

	// FindJournalEntryForUpdate retrieves an entry header and locks it until the transaction ends.
	FindJournalEntryForUpdate(ctx context.Context, entryID string) (*domain.JournalEntry, error)

	// FindLinesByEntryID returns the lines of an entry ordered by line number.
	FindLinesByEntryID(ctx context.Context, entryID string) ([]domain.JournalEntryLine, error)

	// ListJournalEntriesByPeriod pages through a period's entries, newest first.
	ListJournalEntriesByPeriod(ctx context.Context, fiscalPeriodID string, limit int, nextToken *string) ([]domain.JournalEntry, *string, error)

	// ListLinesByAccount pages through the lines posted to an account, newest first.
	ListLinesByAccount(ctx context.Context, accountID string, limit int, nextToken *string) ([]domain.AccountLine, *string, error)
}

// JournalWriter defines write operations for journal entries
type JournalWriter interface {
	// SaveJournalEntry inserts the header and all lines.
	SaveJournalEntry(ctx context.Context, entry domain.JournalEntry, lines []domain.JournalEntryLine) error

	// UpdateJournalEntry persists header fields (description, date, totals, approval, audit).
	UpdateJournalEntry(ctx context.Context, entry domain.JournalEntry) error

	// ReplaceLines deletes the entry's lines and inserts lines.
	ReplaceLines(ctx context.Context, entryID string, lines []domain.JournalEntryLine) error
}

// LedgerReader aggregates posted lines.
type LedgerReader interface {
	// HasLinesForAccount reports whether any line references the account.
	HasLinesForAccount(ctx context.Context, accountID string) (bool, error)

	// SumApprovedLines totals approved lines per account up to asOf (inclusive).
	SumApprovedLines(ctx context.Context, accountIDs []string, asOf time.Time) (map[string]domain.LineTotals, error)

	// TrialBalance returns approved totals per account up to asOf, ordered by account code.
	TrialBalance(ctx context.Context, asOf time.Time) ([]domain.TrialBalanceRow, error)
}

// JournalRepositoryFacade combines all journal-related repository interfaces
type JournalRepositoryFacade interface {
	JournalReader
	JournalWriter
	LedgerReader
}

// FiscalPeriodRepository persists fiscal periods.
type FiscalPeriodRepository interface {
	SaveFiscalPeriod(ctx context.Context, period domain.FiscalPeriod) error
	FindFiscalPeriodByID(ctx context.Context, periodID string) (*domain.FiscalPeriod, error)
	// FindOpenFiscalPeriod fails with ErrNotFound when every period is closed.
	FindOpenFiscalPeriod(ctx context.Context) (*domain.FiscalPeriod, error)
	UpdateFiscalPeriod(ctx context.Context, period domain.FiscalPeriod) error
}
