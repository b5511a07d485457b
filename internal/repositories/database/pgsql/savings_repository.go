package pgsql

import (
	"context"
	"fmt"
	"time"

	"github.com/SscSPs/koperasi_core/internal/core/domain"
	"github.com/SscSPs/koperasi_core/internal/core/money"
	portsrepo "github.com/SscSPs/koperasi_core/internal/core/ports/repositories"
	"github.com/SscSPs/koperasi_core/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
)

type PgxSavingsRepository struct {
	BaseRepository
}

var _ portsrepo.SavingsRepository = (*PgxSavingsRepository)(nil)

const savingsAccountColumns = `savings_account_id, tenant_id, member_id, savings_type, balance, minimum_balance,
	created_at, created_by, last_updated_at, last_updated_by`

const savingsTransactionColumns = `savings_transaction_id, tenant_id, savings_account_id, member_id, savings_type,
	transaction_type, reference_number, amount, balance_before, balance_after, transaction_date, sequence,
	description, processed_by, created_at`

func scanSavingsAccount(row rowScanner) (domain.SavingsAccount, error) {
	var a domain.SavingsAccount
	err := row.Scan(
		&a.SavingsAccountID,
		&a.TenantID,
		&a.MemberID,
		&a.SavingsType,
		&a.Balance,
		&a.MinimumBalance,
		&a.CreatedAt,
		&a.CreatedBy,
		&a.LastUpdatedAt,
		&a.LastUpdatedBy,
	)
	return a, err
}

func scanSavingsTransaction(row rowScanner) (domain.SavingsTransaction, error) {
	var t domain.SavingsTransaction
	err := row.Scan(
		&t.SavingsTransactionID,
		&t.TenantID,
		&t.SavingsAccountID,
		&t.MemberID,
		&t.SavingsType,
		&t.TransactionType,
		&t.ReferenceNumber,
		&t.Amount,
		&t.BalanceBefore,
		&t.BalanceAfter,
		&t.TransactionDate,
		&t.Sequence,
		&t.Description,
		&t.ProcessedBy,
		&t.CreatedAt,
	)
	return t, err
}

func (r *PgxSavingsRepository) selectAccount(ctx context.Context, memberID string, savingsType domain.SavingsType, forUpdate bool) (*domain.SavingsAccount, error) {
	query := `SELECT ` + savingsAccountColumns + ` FROM savings_accounts WHERE tenant_id = $1 AND member_id = $2 AND savings_type = $3`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	acc, err := scanSavingsAccount(r.db.QueryRow(ctx, query, r.tenantID, memberID, savingsType))
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("savings account %s/%s", memberID, savingsType))
	}
	return &acc, nil
}

// LockOrCreateSavingsAccount inserts the template when the (member, type)
// account does not exist yet, then locks whichever row won. Two concurrent
// first deposits converge on one account.
func (r *PgxSavingsRepository) LockOrCreateSavingsAccount(ctx context.Context, template domain.SavingsAccount) (*domain.SavingsAccount, error) {
	if err := r.checkTenant(template.TenantID, "savings account", template.SavingsAccountID); err != nil {
		return nil, err
	}
	insert := `
		INSERT INTO savings_accounts (` + savingsAccountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (tenant_id, member_id, savings_type) DO NOTHING;
	`
	_, err := r.db.Exec(ctx, insert,
		template.SavingsAccountID,
		template.TenantID,
		template.MemberID,
		template.SavingsType,
		template.Balance,
		template.MinimumBalance,
		template.CreatedAt,
		template.CreatedBy,
		template.LastUpdatedAt,
		template.LastUpdatedBy,
	)
	if err != nil {
		return nil, mapError(err, "create savings account")
	}
	return r.selectAccount(ctx, template.MemberID, template.SavingsType, true)
}

func (r *PgxSavingsRepository) LockSavingsAccount(ctx context.Context, memberID string, savingsType domain.SavingsType) (*domain.SavingsAccount, error) {
	return r.selectAccount(ctx, memberID, savingsType, true)
}

func (r *PgxSavingsRepository) FindSavingsAccount(ctx context.Context, memberID string, savingsType domain.SavingsType) (*domain.SavingsAccount, error) {
	return r.selectAccount(ctx, memberID, savingsType, false)
}

func (r *PgxSavingsRepository) ListSavingsAccountsByMember(ctx context.Context, memberID string) ([]domain.SavingsAccount, error) {
	query := `
		SELECT ` + savingsAccountColumns + `
		FROM savings_accounts
		WHERE tenant_id = $1 AND member_id = $2
		ORDER BY array_position(ARRAY['pokok', 'wajib', 'sukarela']::varchar[], savings_type);
	`
	rows, err := r.db.Query(ctx, query, r.tenantID, memberID)
	if err != nil {
		return nil, mapError(err, "list savings accounts")
	}
	defer rows.Close()

	accounts := make([]domain.SavingsAccount, 0, len(domain.AllSavingsTypes))
	for rows.Next() {
		acc, err := scanSavingsAccount(rows)
		if err != nil {
			return nil, mapError(err, "scan savings account")
		}
		accounts = append(accounts, acc)
	}
	return accounts, mapError(rows.Err(), "iterate savings accounts")
}

func (r *PgxSavingsRepository) UpdateSavingsBalance(ctx context.Context, savingsAccountID string, balance money.Money, actorID string, now time.Time) error {
	query := `
		UPDATE savings_accounts
		SET balance = $3, last_updated_at = $4, last_updated_by = $5
		WHERE tenant_id = $1 AND savings_account_id = $2;
	`
	tag, err := r.db.Exec(ctx, query, r.tenantID, savingsAccountID, balance, now, actorID)
	if err != nil {
		return mapError(err, "update savings balance")
	}
	if tag.RowsAffected() == 0 {
		return mapError(pgx.ErrNoRows, "savings account "+savingsAccountID)
	}
	return nil
}

func (r *PgxSavingsRepository) LatestSavingsTransaction(ctx context.Context, savingsAccountID string) (*domain.SavingsTransaction, error) {
	query := `
		SELECT ` + savingsTransactionColumns + `
		FROM savings_transactions
		WHERE tenant_id = $1 AND savings_account_id = $2
		ORDER BY transaction_date DESC, sequence DESC
		LIMIT 1;
	`
	t, err := scanSavingsTransaction(r.db.QueryRow(ctx, query, r.tenantID, savingsAccountID))
	if err != nil {
		return nil, mapError(err, "savings transaction for account "+savingsAccountID)
	}
	return &t, nil
}

func (r *PgxSavingsRepository) HasSavingsDeposit(ctx context.Context, savingsAccountID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM savings_transactions
			WHERE tenant_id = $1 AND savings_account_id = $2 AND transaction_type = 'deposit'
		);
	`
	var exists bool
	if err := r.db.QueryRow(ctx, query, r.tenantID, savingsAccountID).Scan(&exists); err != nil {
		return false, mapError(err, "check savings deposit")
	}
	return exists, nil
}

func (r *PgxSavingsRepository) SaveSavingsTransaction(ctx context.Context, txn domain.SavingsTransaction) error {
	if err := r.checkTenant(txn.TenantID, "savings transaction", txn.SavingsTransactionID); err != nil {
		return err
	}
	query := `
		INSERT INTO savings_transactions (` + savingsTransactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15);
	`
	_, err := r.db.Exec(ctx, query,
		txn.SavingsTransactionID,
		txn.TenantID,
		txn.SavingsAccountID,
		txn.MemberID,
		txn.SavingsType,
		txn.TransactionType,
		txn.ReferenceNumber,
		txn.Amount,
		txn.BalanceBefore,
		txn.BalanceAfter,
		txn.TransactionDate,
		txn.Sequence,
		txn.Description,
		txn.ProcessedBy,
		txn.CreatedAt,
	)
	return mapError(err, "save savings transaction "+txn.ReferenceNumber)
}

// ListSavingsTransactions pages through the chain ordered by
// (transaction_date DESC, sequence DESC).
func (r *PgxSavingsRepository) ListSavingsTransactions(ctx context.Context, savingsAccountID string, limit int, nextToken *string) ([]domain.SavingsTransaction, *string, error) {
	limit = pagination.NormalizeLimit(limit)
	args := []any{r.tenantID, savingsAccountID}
	query := `SELECT ` + savingsTransactionColumns + ` FROM savings_transactions WHERE tenant_id = $1 AND savings_account_id = $2`

	if nextToken != nil && *nextToken != "" {
		date, seq, err := pagination.DecodeSequenceToken(*nextToken)
		if err != nil {
			return nil, nil, invalidToken(err)
		}
		query += ` AND (transaction_date, sequence) < ($3, $4)`
		args = append(args, date, seq)
	}
	query += fmt.Sprintf(` ORDER BY transaction_date DESC, sequence DESC LIMIT %d;`, limit+1)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, mapError(err, "list savings transactions")
	}
	defer rows.Close()

	txns := make([]domain.SavingsTransaction, 0, limit)
	for rows.Next() {
		t, err := scanSavingsTransaction(rows)
		if err != nil {
			return nil, nil, mapError(err, "scan savings transaction")
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, mapError(err, "iterate savings transactions")
	}

	var next *string
	if len(txns) > limit {
		txns = txns[:limit]
		last := txns[limit-1]
		token := pagination.EncodeSequenceToken(last.TransactionDate, last.Sequence)
		next = &token
	}
	return txns, next, nil
}
