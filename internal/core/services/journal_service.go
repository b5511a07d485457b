package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/koperasi_core/internal/apperrors"
	"github.com/SscSPs/koperasi_core/internal/core/domain"
	portsrepo "github.com/SscSPs/koperasi_core/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/koperasi_core/internal/core/ports/services"
	"github.com/SscSPs/koperasi_core/internal/dto"
	"github.com/SscSPs/koperasi_core/internal/platform/config"
	"github.com/SscSPs/koperasi_core/internal/platform/validation"
	"github.com/SscSPs/koperasi_core/internal/utils/accounting"
	"github.com/SscSPs/koperasi_core/internal/utils/pagination"
)

// journalService provides core journal posting, approval and reporting operations.
type journalService struct {
	BaseService
	store  portsrepo.Store
	ledger config.LedgerConfig
}

// NewJournalService creates a new JournalService.
func NewJournalService(store portsrepo.Store, ledger config.LedgerConfig, options ...ServiceOption) portssvc.JournalSvcFacade {
	return &journalService{
		BaseService: newBaseService(applyOptions(options)),
		store:       store,
		ledger:      ledger,
	}
}

// Ensure journalService implements the portssvc.JournalSvcFacade interface
var _ portssvc.JournalSvcFacade = (*journalService)(nil)

// PostJournal validates and persists a balanced entry with its lines. The
// entry starts unapproved and does not count towards balances until approved.
func (s *journalService) PostJournal(ctx context.Context, tenantID string, req dto.PostJournalRequest, actorID string) (*domain.JournalEntry, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	now := s.now()
	entry := domain.JournalEntry{
		JournalEntryID:  s.newID(),
		TenantID:        tenantID,
		FiscalPeriodID:  req.FiscalPeriodID,
		TransactionDate: domain.DateOf(req.TransactionDate),
		Description:     req.Description,
		AuditFields:     domain.NewAuditFields(actorID, now),
	}
	lines := dto.ToJournalLines(entry.JournalEntryID, req.Lines, s.newID, now)

	debit, credit, err := accounting.ValidateJournalLines(lines, s.ledger.MaxLineAmount)
	if err != nil {
		return nil, err
	}
	entry.TotalDebit, entry.TotalCredit = debit, credit

	err = s.store.WithinTransaction(ctx, tenantID, func(ctx context.Context, repos portsrepo.TenantRepositories) error {
		if err := s.checkPeriod(ctx, repos, entry.FiscalPeriodID, entry.TransactionDate); err != nil {
			return err
		}
		if err := s.checkAccounts(ctx, repos, lines); err != nil {
			return err
		}

		scope := domain.ReferenceScope(domain.JournalRefPrefix, entry.TransactionDate)
		n, err := repos.Sequences().NextValue(ctx, scope)
		if err != nil {
			return fmt.Errorf("failed to allocate journal reference: %w", err)
		}
		entry.ReferenceNumber = domain.FormatReference(scope, n)

		if err := repos.Journals().SaveJournalEntry(ctx, entry, lines); err != nil {
			return fmt.Errorf("failed to save journal entry: %w", err)
		}
		return nil
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to post journal",
			slog.String("tenant_id", tenantID),
			slog.String("fiscal_period_id", req.FiscalPeriodID))
		return nil, err
	}

	entry.Lines = lines
	s.LogInfo(ctx, "Journal posted",
		slog.String("tenant_id", tenantID),
		slog.String("journal_entry_id", entry.JournalEntryID),
		slog.String("reference", entry.ReferenceNumber),
		slog.String("total", entry.TotalDebit.String()))
	return &entry, nil
}

// checkPeriod requires periodID to be the tenant's open period and to contain date.
func (s *journalService) checkPeriod(ctx context.Context, repos portsrepo.TenantRepositories, periodID string, date time.Time) error {
	open, err := repos.FiscalPeriods().FindOpenFiscalPeriod(ctx)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NewAppError(apperrors.ErrInvalidFiscalPeriod, "no open fiscal period", err)
		}
		return fmt.Errorf("failed to load open fiscal period: %w", err)
	}
	if open.FiscalPeriodID != periodID {
		return apperrors.NewAppError(apperrors.ErrInvalidFiscalPeriod,
			fmt.Sprintf("fiscal period %s is not the open period", periodID), nil)
	}
	if !open.Contains(date) {
		return apperrors.NewAppError(apperrors.ErrInvalidFiscalPeriod,
			fmt.Sprintf("%s is outside fiscal period %s", date.Format(time.DateOnly), open.Name), nil)
	}
	return nil
}

// checkAccounts loads every referenced account in one query and requires each
// to exist in the tenant and accept postings.
func (s *journalService) checkAccounts(ctx context.Context, repos portsrepo.TenantRepositories, lines []domain.JournalEntryLine) error {
	ids := make([]string, 0, len(lines))
	seen := make(map[string]struct{}, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.AccountID]; ok {
			continue
		}
		seen[l.AccountID] = struct{}{}
		ids = append(ids, l.AccountID)
	}

	accounts, err := repos.Accounts().FindAccountsByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load accounts: %w", err)
	}
	for _, id := range ids {
		account, ok := accounts[id]
		if !ok {
			return apperrors.NewAppError(apperrors.ErrInvalidAccount, fmt.Sprintf("account %s does not exist", id), nil)
		}
		if !account.CanPost() {
			return apperrors.NewAppError(apperrors.ErrInvalidAccount, fmt.Sprintf("account %s is not active", account.Code), nil)
		}
	}
	return nil
}

// ApproveJournal marks an entry approved after re-verifying its persisted lines.
func (s *journalService) ApproveJournal(ctx context.Context, tenantID string, entryID string, approverID string) (*domain.JournalEntry, error) {
	var entry *domain.JournalEntry
	err := s.store.WithinTransaction(ctx, tenantID, func(ctx context.Context, repos portsrepo.TenantRepositories) error {
		var err error
		entry, err = repos.Journals().FindJournalEntryForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if entry.IsApproved {
			return apperrors.NewAppError(apperrors.ErrAlreadyApproved, entry.ReferenceNumber, nil)
		}

		lines, err := repos.Journals().FindLinesByEntryID(ctx, entryID)
		if err != nil {
			return fmt.Errorf("failed to load journal lines: %w", err)
		}
		debit, credit := domain.SumLines(lines)
		if !debit.Equal(credit) || !debit.Equal(entry.TotalDebit) || !credit.Equal(entry.TotalCredit) {
			return apperrors.NewAppError(apperrors.ErrUnbalancedEntry,
				fmt.Sprintf("persisted lines total debit %s credit %s", debit, credit), nil)
		}

		now := s.now()
		entry.IsApproved = true
		entry.ApprovedBy = &approverID
		entry.ApprovedAt = &now
		entry.Touch(approverID, now)
		if err := repos.Journals().UpdateJournalEntry(ctx, *entry); err != nil {
			return fmt.Errorf("failed to approve journal entry: %w", err)
		}
		entry.Lines = lines
		return nil
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to approve journal", slog.String("journal_entry_id", entryID))
		return nil, err
	}

	s.LogInfo(ctx, "Journal approved",
		slog.String("journal_entry_id", entryID),
		slog.String("approved_by", approverID))
	return entry, nil
}

// UpdateJournal changes the description of any entry. The transaction date and
// lines may only change before approval.
func (s *journalService) UpdateJournal(ctx context.Context, tenantID string, entryID string, req dto.UpdateJournalRequest, actorID string) (*domain.JournalEntry, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	var entry *domain.JournalEntry
	err := s.store.WithinTransaction(ctx, tenantID, func(ctx context.Context, repos portsrepo.TenantRepositories) error {
		var err error
		entry, err = repos.Journals().FindJournalEntryForUpdate(ctx, entryID)
		if err != nil {
			return err
		}

		structural := req.TransactionDate != nil || req.Lines != nil
		if structural && entry.IsApproved {
			return apperrors.NewAppError(apperrors.ErrImmutableRecord,
				fmt.Sprintf("journal %s is approved; only the description may change", entry.ReferenceNumber), nil)
		}

		now := s.now()
		if req.Description != nil {
			entry.Description = *req.Description
		}
		if req.TransactionDate != nil {
			entry.TransactionDate = domain.DateOf(*req.TransactionDate)
		}
		if structural {
			if err := s.checkPeriod(ctx, repos, entry.FiscalPeriodID, entry.TransactionDate); err != nil {
				return err
			}
		}

		if req.Lines != nil {
			lines := dto.ToJournalLines(entry.JournalEntryID, req.Lines, s.newID, now)
			debit, credit, err := accounting.ValidateJournalLines(lines, s.ledger.MaxLineAmount)
			if err != nil {
				return err
			}
			if err := s.checkAccounts(ctx, repos, lines); err != nil {
				return err
			}
			if err := repos.Journals().ReplaceLines(ctx, entry.JournalEntryID, lines); err != nil {
				return fmt.Errorf("failed to replace journal lines: %w", err)
			}
			entry.TotalDebit, entry.TotalCredit = debit, credit
			entry.Lines = lines
		}

		entry.Touch(actorID, now)
		if err := repos.Journals().UpdateJournalEntry(ctx, *entry); err != nil {
			return fmt.Errorf("failed to update journal entry: %w", err)
		}
		return nil
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to update journal", slog.String("journal_entry_id", entryID))
		return nil, err
	}
	return entry, nil
}

func (s *journalService) GetJournal(ctx context.Context, tenantID string, entryID string) (*domain.JournalEntry, error) {
	repos := s.store.Tenant(tenantID)
	entry, err := repos.Journals().FindJournalEntryByID(ctx, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get journal %s: %w", entryID, err)
	}
	lines, err := repos.Journals().FindLinesByEntryID(ctx, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get lines of journal %s: %w", entryID, err)
	}
	entry.Lines = lines
	return entry, nil
}

func (s *journalService) ListJournalsByPeriod(ctx context.Context, tenantID string, fiscalPeriodID string, params dto.ListParams) (*dto.ListJournalsResponse, error) {
	if err := validation.Struct(params); err != nil {
		return nil, err
	}
	entries, next, err := s.store.Tenant(tenantID).Journals().
		ListJournalEntriesByPeriod(ctx, fiscalPeriodID, pagination.NormalizeLimit(params.Limit), params.NextToken)
	if err != nil {
		return nil, fmt.Errorf("failed to list journals: %w", err)
	}
	return &dto.ListJournalsResponse{Entries: entries, NextToken: next}, nil
}

func (s *journalService) ListLinesByAccount(ctx context.Context, tenantID string, accountID string, params dto.ListParams) (*dto.ListAccountLinesResponse, error) {
	if err := validation.Struct(params); err != nil {
		return nil, err
	}
	lines, next, err := s.store.Tenant(tenantID).Journals().
		ListLinesByAccount(ctx, accountID, pagination.NormalizeLimit(params.Limit), params.NextToken)
	if err != nil {
		return nil, fmt.Errorf("failed to list account lines: %w", err)
	}
	return &dto.ListAccountLinesResponse{Lines: lines, NextToken: next}, nil
}

// TrialBalance totals approved lines per account up to asOf.
func (s *journalService) TrialBalance(ctx context.Context, tenantID string, asOf time.Time) (*domain.TrialBalance, error) {
	rows, err := s.store.Tenant(tenantID).Journals().TrialBalance(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to build trial balance: %w", err)
	}

	tb := &domain.TrialBalance{AsOf: asOf, Rows: rows}
	for _, r := range rows {
		tb.TotalDebit = tb.TotalDebit.Add(r.Debit)
		tb.TotalCredit = tb.TotalCredit.Add(r.Credit)
	}
	if !tb.IsBalanced() {
		s.LogError(ctx, apperrors.ErrUnbalancedEntry, "Trial balance does not balance",
			slog.String("tenant_id", tenantID),
			slog.String("debit", tb.TotalDebit.String()),
			slog.String("credit", tb.TotalCredit.String()))
	}
	return tb, nil
}
