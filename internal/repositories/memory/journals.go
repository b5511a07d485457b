package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/SscSPs/koperasi_core/internal/apperrors"
	"github.com/SscSPs/koperasi_core/internal/core/domain"
	"github.com/SscSPs/koperasi_core/internal/utils/pagination"
)

func (r *tenantRepos) findEntry(entryID string) (*domain.JournalEntry, error) {
	entry, ok := r.store.db.entries[entryID]
	if !ok {
		return nil, notFound("journal entry", entryID)
	}
	if err := r.checkTenant(entry.TenantID, "journal entry", entryID); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *tenantRepos) FindJournalEntryByID(_ context.Context, entryID string) (*domain.JournalEntry, error) {
	defer r.lockData()()
	return r.findEntry(entryID)
}

func (r *tenantRepos) FindJournalEntryForUpdate(ctx context.Context, entryID string) (*domain.JournalEntry, error) {
	if err := r.lockRow(ctx, "journal:"+entryID); err != nil {
		return nil, err
	}
	defer r.lockData()()
	return r.findEntry(entryID)
}

func (r *tenantRepos) FindLinesByEntryID(_ context.Context, entryID string) ([]domain.JournalEntryLine, error) {
	defer r.lockData()()
	if _, err := r.findEntry(entryID); err != nil {
		return nil, err
	}
	lines := append([]domain.JournalEntryLine(nil), r.store.db.lines[entryID]...)
	sort.Slice(lines, func(i, j int) bool { return lines[i].LineNumber < lines[j].LineNumber })
	return lines, nil
}

// entryBefore orders entries by (transaction_date DESC, reference_number DESC).
func entryBefore(a, b domain.JournalEntry) bool {
	if !a.TransactionDate.Equal(b.TransactionDate) {
		return a.TransactionDate.After(b.TransactionDate)
	}
	return a.ReferenceNumber > b.ReferenceNumber
}

func (r *tenantRepos) ListJournalEntriesByPeriod(_ context.Context, fiscalPeriodID string, limit int, nextToken *string) ([]domain.JournalEntry, *string, error) {
	limit = pagination.NormalizeLimit(limit)
	var cursor *domain.JournalEntry
	if nextToken != nil && *nextToken != "" {
		date, ref, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, apperrors.NewAppError(apperrors.ErrValidation, "invalid next token", err)
		}
		cursor = &domain.JournalEntry{TransactionDate: date, ReferenceNumber: ref}
	}

	defer r.lockData()()
	var entries []domain.JournalEntry
	for _, e := range r.store.db.entries {
		if e.TenantID != r.tenantID || e.FiscalPeriodID != fiscalPeriodID {
			continue
		}
		if cursor != nil && !entryBefore(*cursor, e) {
			continue
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entryBefore(entries[i], entries[j]) })

	var next *string
	if len(entries) > limit {
		entries = entries[:limit]
		last := entries[limit-1]
		token := pagination.EncodeToken(last.TransactionDate, last.ReferenceNumber)
		next = &token
	}
	return entries, next, nil
}

func lineBefore(a, b domain.AccountLine) bool {
	if !a.TransactionDate.Equal(b.TransactionDate) {
		return a.TransactionDate.After(b.TransactionDate)
	}
	return a.LineID > b.LineID
}

func (r *tenantRepos) ListLinesByAccount(_ context.Context, accountID string, limit int, nextToken *string) ([]domain.AccountLine, *string, error) {
	limit = pagination.NormalizeLimit(limit)
	var cursor *domain.AccountLine
	if nextToken != nil && *nextToken != "" {
		date, lineID, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, apperrors.NewAppError(apperrors.ErrValidation, "invalid next token", err)
		}
		cursor = &domain.AccountLine{TransactionDate: date}
		cursor.LineID = lineID
	}

	defer r.lockData()()
	var result []domain.AccountLine
	for entryID, lines := range r.store.db.lines {
		entry := r.store.db.entries[entryID]
		if entry.TenantID != r.tenantID {
			continue
		}
		for _, l := range lines {
			if l.AccountID != accountID {
				continue
			}
			al := domain.AccountLine{
				JournalEntryLine: l,
				ReferenceNumber:  entry.ReferenceNumber,
				TransactionDate:  entry.TransactionDate,
				IsApproved:       entry.IsApproved,
			}
			if cursor != nil && !lineBefore(*cursor, al) {
				continue
			}
			result = append(result, al)
		}
	}
	sort.Slice(result, func(i, j int) bool { return lineBefore(result[i], result[j]) })

	var next *string
	if len(result) > limit {
		result = result[:limit]
		last := result[limit-1]
		token := pagination.EncodeToken(last.TransactionDate, last.LineID)
		next = &token
	}
	return result, next, nil
}

func (r *tenantRepos) SaveJournalEntry(_ context.Context, entry domain.JournalEntry, lines []domain.JournalEntryLine) error {
	defer r.lockData()()
	if err := r.checkTenant(entry.TenantID, "journal entry", entry.JournalEntryID); err != nil {
		return err
	}
	if _, exists := r.store.db.entries[entry.JournalEntryID]; exists {
		return apperrors.NewAppError(apperrors.ErrDuplicate, fmt.Sprintf("journal entry %s", entry.JournalEntryID), nil)
	}
	for _, e := range r.store.db.entries {
		if e.TenantID == entry.TenantID && e.ReferenceNumber == entry.ReferenceNumber {
			return apperrors.NewAppError(apperrors.ErrDuplicate, fmt.Sprintf("reference number %s", entry.ReferenceNumber), nil)
		}
	}
	entry.Lines = nil
	put(r, r.store.db.entries, entry.JournalEntryID, entry)
	put(r, r.store.db.lines, entry.JournalEntryID, append([]domain.JournalEntryLine(nil), lines...))
	return nil
}

func (r *tenantRepos) UpdateJournalEntry(_ context.Context, entry domain.JournalEntry) error {
	defer r.lockData()()
	if _, err := r.findEntry(entry.JournalEntryID); err != nil {
		return err
	}
	entry.Lines = nil
	put(r, r.store.db.entries, entry.JournalEntryID, entry)
	return nil
}

func (r *tenantRepos) ReplaceLines(_ context.Context, entryID string, lines []domain.JournalEntryLine) error {
	defer r.lockData()()
	if _, err := r.findEntry(entryID); err != nil {
		return err
	}
	put(r, r.store.db.lines, entryID, append([]domain.JournalEntryLine(nil), lines...))
	return nil
}

func (r *tenantRepos) HasLinesForAccount(_ context.Context, accountID string) (bool, error) {
	defer r.lockData()()
	for entryID, lines := range r.store.db.lines {
		if r.store.db.entries[entryID].TenantID != r.tenantID {
			continue
		}
		for _, l := range lines {
			if l.AccountID == accountID {
				return true, nil
			}
		}
	}
	return false, nil
}

// approvedLines runs fn over every approved line dated on or before asOf.
func (r *tenantRepos) approvedLines(asOf time.Time, fn func(domain.JournalEntryLine)) {
	cutoff := domain.DateOf(asOf)
	for entryID, lines := range r.store.db.lines {
		entry := r.store.db.entries[entryID]
		if entry.TenantID != r.tenantID || !entry.IsApproved || domain.DateOf(entry.TransactionDate).After(cutoff) {
			continue
		}
		for _, l := range lines {
			fn(l)
		}
	}
}

func (r *tenantRepos) SumApprovedLines(_ context.Context, accountIDs []string, asOf time.Time) (map[string]domain.LineTotals, error) {
	defer r.lockData()()
	totals := make(map[string]domain.LineTotals, len(accountIDs))
	for _, id := range accountIDs {
		totals[id] = domain.LineTotals{}
	}
	r.approvedLines(asOf, func(l domain.JournalEntryLine) {
		t, ok := totals[l.AccountID]
		if !ok {
			return
		}
		t.Debit = t.Debit.Add(l.DebitAmount)
		t.Credit = t.Credit.Add(l.CreditAmount)
		totals[l.AccountID] = t
	})
	return totals, nil
}

func (r *tenantRepos) TrialBalance(_ context.Context, asOf time.Time) ([]domain.TrialBalanceRow, error) {
	defer r.lockData()()
	byAccount := make(map[string]*domain.TrialBalanceRow)
	r.approvedLines(asOf, func(l domain.JournalEntryLine) {
		row, ok := byAccount[l.AccountID]
		if !ok {
			acc := r.store.db.accounts[l.AccountID]
			row = &domain.TrialBalanceRow{
				AccountID:   acc.AccountID,
				AccountCode: acc.Code,
				AccountName: acc.Name,
				AccountType: acc.AccountType,
			}
			byAccount[l.AccountID] = row
		}
		row.Debit = row.Debit.Add(l.DebitAmount)
		row.Credit = row.Credit.Add(l.CreditAmount)
	})

	rows := make([]domain.TrialBalanceRow, 0, len(byAccount))
	for _, row := range byAccount {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].AccountCode < rows[j].AccountCode })
	return rows, nil
}

func (r *tenantRepos) SaveFiscalPeriod(_ context.Context, period domain.FiscalPeriod) error {
	defer r.lockData()()
	if err := r.checkTenant(period.TenantID, "fiscal period", period.FiscalPeriodID); err != nil {
		return err
	}
	if !period.IsClosed && r.openPeriodExcept(period.FiscalPeriodID) {
		return apperrors.NewAppError(apperrors.ErrDuplicate, "an open fiscal period already exists", nil)
	}
	put(r, r.store.db.periods, period.FiscalPeriodID, period)
	return nil
}

func (r *tenantRepos) openPeriodExcept(periodID string) bool {
	for _, p := range r.store.db.periods {
		if p.TenantID == r.tenantID && !p.IsClosed && p.FiscalPeriodID != periodID {
			return true
		}
	}
	return false
}

func (r *tenantRepos) FindFiscalPeriodByID(_ context.Context, periodID string) (*domain.FiscalPeriod, error) {
	defer r.lockData()()
	p, ok := r.store.db.periods[periodID]
	if !ok {
		return nil, notFound("fiscal period", periodID)
	}
	if err := r.checkTenant(p.TenantID, "fiscal period", periodID); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *tenantRepos) FindOpenFiscalPeriod(_ context.Context) (*domain.FiscalPeriod, error) {
	defer r.lockData()()
	for _, p := range r.store.db.periods {
		if p.TenantID == r.tenantID && !p.IsClosed {
			return &p, nil
		}
	}
	return nil, apperrors.NewNotFoundError("no open fiscal period")
}

func (r *tenantRepos) UpdateFiscalPeriod(_ context.Context, period domain.FiscalPeriod) error {
	defer r.lockData()()
	current, ok := r.store.db.periods[period.FiscalPeriodID]
	if !ok {
		return notFound("fiscal period", period.FiscalPeriodID)
	}
	if err := r.checkTenant(current.TenantID, "fiscal period", period.FiscalPeriodID); err != nil {
		return err
	}
	if !period.IsClosed && r.openPeriodExcept(period.FiscalPeriodID) {
		return apperrors.NewAppError(apperrors.ErrDuplicate, "an open fiscal period already exists", nil)
	}
	put(r, r.store.db.periods, period.FiscalPeriodID, period)
	return nil
}

// NextValue is not undone on rollback: values are never reused.
func (r *tenantRepos) NextValue(_ context.Context, scope string) (int64, error) {
	defer r.lockData()()
	key := r.tenantID + "/" + scope
	r.store.db.sequences[key]++
	return r.store.db.sequences[key], nil
}
