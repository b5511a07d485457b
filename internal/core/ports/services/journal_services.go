package services

import (
	"context"
	"time"

	"github.com/SscSPs/koperasi_core/internal/core/domain"
	"github.com/SscSPs/koperasi_core/internal/dto"
)

// JournalReaderSvc defines read operations for journal data
type JournalReaderSvc interface {
	// GetJournal retrieves an entry with its lines.
	GetJournal(ctx context.Context, tenantID string, entryID string) (*domain.JournalEntry, error)

	// ListJournalsByPeriod pages through a fiscal period's entries, newest first.
	ListJournalsByPeriod(ctx context.Context, tenantID string, fiscalPeriodID string, params dto.ListParams) (*dto.ListJournalsResponse, error)

	// ListLinesByAccount pages through the lines posted to an account, newest first.
	ListLinesByAccount(ctx context.Context, tenantID string, accountID string, params dto.ListParams) (*dto.ListAccountLinesResponse, error)
}

// JournalWriterSvc defines write operations for journal data
type JournalWriterSvc interface {
	// PostJournal validates and persists a balanced entry with its lines.
	PostJournal(ctx context.Context, tenantID string, req dto.PostJournalRequest, actorID string) (*domain.JournalEntry, error)

	// ApproveJournal approves an entry. Approval is one-way.
	ApproveJournal(ctx context.Context, tenantID string, entryID string, approverID string) (*domain.JournalEntry, error)

	// UpdateJournal changes the description, and before approval the date and lines.
	UpdateJournal(ctx context.Context, tenantID string, entryID string, req dto.UpdateJournalRequest, actorID string) (*domain.JournalEntry, error)
}

// ReportingSvc defines ledger reports.
type ReportingSvc interface {
	// TrialBalance totals approved lines per account up to asOf.
	TrialBalance(ctx context.Context, tenantID string, asOf time.Time) (*domain.TrialBalance, error)
}

// JournalSvcFacade combines all journal-related service interfaces
// This is a facade for clients that need access to all operations
type JournalSvcFacade interface {
	JournalReaderSvc
	JournalWriterSvc
	ReportingSvc
}

// FiscalPeriodSvc manages the tenant's fiscal periods.
type FiscalPeriodSvc interface {
	OpenPeriod(ctx context.Context, tenantID string, req dto.OpenPeriodRequest, actorID string) (*domain.FiscalPeriod, error)
	ClosePeriod(ctx context.Context, tenantID string, periodID string, actorID string) (*domain.FiscalPeriod, error)
	GetOpenPeriod(ctx context.Context, tenantID string) (*domain.FiscalPeriod, error)
	GetPeriod(ctx context.Context, tenantID string, periodID string) (*domain.FiscalPeriod, error)
}
