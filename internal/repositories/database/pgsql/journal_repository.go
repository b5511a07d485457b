package pgsql

import (
	"context"
	"fmt"

	"github.com/SscSPs/koperasi_core/internal/core/domain"
	portsrepo "github.com/SscSPs/koperasi_core/internal/core/ports/repositories"
	"github.com/SscSPs/koperasi_core/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
)

type PgxJournalRepository struct {
	BaseRepository
}

// Ensure PgxJournalRepository implements portsrepo.JournalRepositoryFacade
var _ portsrepo.JournalRepositoryFacade = (*PgxJournalRepository)(nil)

const journalEntryColumns = `journal_entry_id, tenant_id, fiscal_period_id, reference_number, transaction_date, description,
	total_debit, total_credit, is_approved, approved_by, approved_at,
	created_at, created_by, last_updated_at, last_updated_by`

const journalLineColumns = `line_id, journal_entry_id, account_id, description, debit_amount, credit_amount, line_number, created_at`

func scanJournalEntry(row rowScanner) (domain.JournalEntry, error) {
	var e domain.JournalEntry
	err := row.Scan(
		&e.JournalEntryID,
		&e.TenantID,
		&e.FiscalPeriodID,
		&e.ReferenceNumber,
		&e.TransactionDate,
		&e.Description,
		&e.TotalDebit,
		&e.TotalCredit,
		&e.IsApproved,
		&e.ApprovedBy,
		&e.ApprovedAt,
		&e.CreatedAt,
		&e.CreatedBy,
		&e.LastUpdatedAt,
		&e.LastUpdatedBy,
	)
	return e, err
}

func (r *PgxJournalRepository) findEntry(ctx context.Context, entryID string, forUpdate bool) (*domain.JournalEntry, error) {
	query := `SELECT ` + journalEntryColumns + ` FROM journal_entries WHERE journal_entry_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	e, err := scanJournalEntry(r.db.QueryRow(ctx, query, entryID))
	if err != nil {
		return nil, mapError(err, "journal entry "+entryID)
	}
	if err := r.checkTenant(e.TenantID, "journal entry", entryID); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *PgxJournalRepository) FindJournalEntryByID(ctx context.Context, entryID string) (*domain.JournalEntry, error) {
	return r.findEntry(ctx, entryID, false)
}

// FindJournalEntryForUpdate holds a row lock on the header until the
// surrounding transaction ends. Outside a transaction the lock is released
// immediately.
func (r *PgxJournalRepository) FindJournalEntryForUpdate(ctx context.Context, entryID string) (*domain.JournalEntry, error) {
	return r.findEntry(ctx, entryID, true)
}

func (r *PgxJournalRepository) FindLinesByEntryID(ctx context.Context, entryID string) ([]domain.JournalEntryLine, error) {
	if _, err := r.findEntry(ctx, entryID, false); err != nil {
		return nil, err
	}
	query := `SELECT ` + journalLineColumns + ` FROM journal_entry_lines WHERE journal_entry_id = $1 ORDER BY line_number;`
	rows, err := r.db.Query(ctx, query, entryID)
	if err != nil {
		return nil, mapError(err, "query journal lines")
	}
	defer rows.Close()

	lines := make([]domain.JournalEntryLine, 0)
	for rows.Next() {
		var l domain.JournalEntryLine
		if err := rows.Scan(
			&l.LineID,
			&l.JournalEntryID,
			&l.AccountID,
			&l.Description,
			&l.DebitAmount,
			&l.CreditAmount,
			&l.LineNumber,
			&l.CreatedAt,
		); err != nil {
			return nil, mapError(err, "scan journal line")
		}
		lines = append(lines, l)
	}
	return lines, mapError(rows.Err(), "iterate journal lines")
}

// ListJournalEntriesByPeriod pages through a period's entries ordered by
// (transaction_date DESC, reference_number DESC).
func (r *PgxJournalRepository) ListJournalEntriesByPeriod(ctx context.Context, fiscalPeriodID string, limit int, nextToken *string) ([]domain.JournalEntry, *string, error) {
	limit = pagination.NormalizeLimit(limit)
	args := []any{r.tenantID, fiscalPeriodID}
	query := `SELECT ` + journalEntryColumns + ` FROM journal_entries WHERE tenant_id = $1 AND fiscal_period_id = $2`

	if nextToken != nil && *nextToken != "" {
		date, ref, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, invalidToken(err)
		}
		query += ` AND (transaction_date, reference_number) < ($3, $4)`
		args = append(args, date, ref)
	}
	// Fetch one extra row to know whether another page exists.
	query += fmt.Sprintf(` ORDER BY transaction_date DESC, reference_number DESC LIMIT %d;`, limit+1)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, mapError(err, "list journal entries")
	}
	defer rows.Close()

	entries := make([]domain.JournalEntry, 0, limit)
	for rows.Next() {
		e, err := scanJournalEntry(rows)
		if err != nil {
			return nil, nil, mapError(err, "scan journal entry")
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, mapError(err, "iterate journal entries")
	}

	var next *string
	if len(entries) > limit {
		entries = entries[:limit]
		last := entries[limit-1]
		token := pagination.EncodeToken(last.TransactionDate, last.ReferenceNumber)
		next = &token
	}
	return entries, next, nil
}

// ListLinesByAccount pages through an account's lines ordered by
// (transaction_date DESC, line_id DESC).
func (r *PgxJournalRepository) ListLinesByAccount(ctx context.Context, accountID string, limit int, nextToken *string) ([]domain.AccountLine, *string, error) {
	limit = pagination.NormalizeLimit(limit)
	args := []any{r.tenantID, accountID}
	query := `
		SELECT l.line_id, l.journal_entry_id, l.account_id, l.description, l.debit_amount, l.credit_amount,
			l.line_number, l.created_at, e.reference_number, e.transaction_date, e.is_approved
		FROM journal_entry_lines l
		JOIN journal_entries e ON e.journal_entry_id = l.journal_entry_id
		WHERE e.tenant_id = $1 AND l.account_id = $2`

	if nextToken != nil && *nextToken != "" {
		date, lineID, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, invalidToken(err)
		}
		query += ` AND (e.transaction_date, l.line_id::text) < ($3, $4)`
		args = append(args, date, lineID)
	}
	query += fmt.Sprintf(` ORDER BY e.transaction_date DESC, l.line_id::text DESC LIMIT %d;`, limit+1)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, mapError(err, "list account lines")
	}
	defer rows.Close()

	result := make([]domain.AccountLine, 0, limit)
	for rows.Next() {
		var al domain.AccountLine
		if err := rows.Scan(
			&al.LineID,
			&al.JournalEntryID,
			&al.AccountID,
			&al.Description,
			&al.DebitAmount,
			&al.CreditAmount,
			&al.LineNumber,
			&al.CreatedAt,
			&al.ReferenceNumber,
			&al.TransactionDate,
			&al.IsApproved,
		); err != nil {
			return nil, nil, mapError(err, "scan account line")
		}
		result = append(result, al)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, mapError(err, "iterate account lines")
	}

	var next *string
	if len(result) > limit {
		result = result[:limit]
		last := result[limit-1]
		token := pagination.EncodeToken(last.TransactionDate, last.LineID)
		next = &token
	}
	return result, next, nil
}

// SaveJournalEntry inserts the header and queues every line in one batch.
func (r *PgxJournalRepository) SaveJournalEntry(ctx context.Context, entry domain.JournalEntry, lines []domain.JournalEntryLine) error {
	if err := r.checkTenant(entry.TenantID, "journal entry", entry.JournalEntryID); err != nil {
		return err
	}
	query := `
		INSERT INTO journal_entries (` + journalEntryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15);
	`
	_, err := r.db.Exec(ctx, query,
		entry.JournalEntryID,
		entry.TenantID,
		entry.FiscalPeriodID,
		entry.ReferenceNumber,
		entry.TransactionDate,
		entry.Description,
		entry.TotalDebit,
		entry.TotalCredit,
		entry.IsApproved,
		entry.ApprovedBy,
		entry.ApprovedAt,
		entry.CreatedAt,
		entry.CreatedBy,
		entry.LastUpdatedAt,
		entry.LastUpdatedBy,
	)
	if err != nil {
		return mapError(err, "save journal entry "+entry.ReferenceNumber)
	}
	return r.insertLines(ctx, lines)
}

func (r *PgxJournalRepository) insertLines(ctx context.Context, lines []domain.JournalEntryLine) error {
	if len(lines) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	query := `INSERT INTO journal_entry_lines (` + journalLineColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`
	for _, l := range lines {
		batch.Queue(query,
			l.LineID,
			l.JournalEntryID,
			l.AccountID,
			l.Description,
			l.DebitAmount,
			l.CreditAmount,
			l.LineNumber,
			l.CreatedAt,
		)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()
	for i := range lines {
		if _, err := results.Exec(); err != nil {
			return mapError(err, fmt.Sprintf("insert journal line %d", lines[i].LineNumber))
		}
	}
	return nil
}

func (r *PgxJournalRepository) UpdateJournalEntry(ctx context.Context, entry domain.JournalEntry) error {
	query := `
		UPDATE journal_entries
		SET transaction_date = $3, description = $4, total_debit = $5, total_credit = $6,
			is_approved = $7, approved_by = $8, approved_at = $9, last_updated_at = $10, last_updated_by = $11
		WHERE tenant_id = $1 AND journal_entry_id = $2;
	`
	tag, err := r.db.Exec(ctx, query,
		r.tenantID,
		entry.JournalEntryID,
		entry.TransactionDate,
		entry.Description,
		entry.TotalDebit,
		entry.TotalCredit,
		entry.IsApproved,
		entry.ApprovedBy,
		entry.ApprovedAt,
		entry.LastUpdatedAt,
		entry.LastUpdatedBy,
	)
	if err != nil {
		return mapError(err, "update journal entry "+entry.JournalEntryID)
	}
	if tag.RowsAffected() == 0 {
		return mapError(pgx.ErrNoRows, "journal entry "+entry.JournalEntryID)
	}
	return nil
}

func (r *PgxJournalRepository) ReplaceLines(ctx context.Context, entryID string, lines []domain.JournalEntryLine) error {
	if _, err := r.findEntry(ctx, entryID, false); err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, `DELETE FROM journal_entry_lines WHERE journal_entry_id = $1;`, entryID); err != nil {
		return mapError(err, "delete journal lines")
	}
	return r.insertLines(ctx, lines)
}
