package pgsql

import (
	"context"
	"fmt"
	"time"

	"github.com/SscSPs/koperasi_core/internal/core/domain"
	portsrepo "github.com/SscSPs/koperasi_core/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
)

type PgxAccountRepository struct {
	BaseRepository
}

// Ensure PgxAccountRepository implements portsrepo.AccountRepositoryFacade
var _ portsrepo.AccountRepositoryFacade = (*PgxAccountRepository)(nil)

const accountColumns = `account_id, tenant_id, code, name, account_type, parent_account_id, level, normal_balance,
	is_active, is_system, deleted_at, created_at, created_by, last_updated_at, last_updated_by`

func scanAccount(row rowScanner) (domain.Account, error) {
	var a domain.Account
	var parentID *string
	err := row.Scan(
		&a.AccountID,
		&a.TenantID,
		&a.Code,
		&a.Name,
		&a.AccountType,
		&parentID,
		&a.Level,
		&a.NormalBalance,
		&a.IsActive,
		&a.IsSystem,
		&a.DeletedAt,
		&a.CreatedAt,
		&a.CreatedBy,
		&a.LastUpdatedAt,
		&a.LastUpdatedBy,
	)
	a.ParentAccountID = derefString(parentID)
	return a, err
}

func collectAccounts(rows pgx.Rows) ([]domain.Account, error) {
	defer rows.Close()
	accounts := make([]domain.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, mapError(err, "scan account")
		}
		accounts = append(accounts, a)
	}
	return accounts, mapError(rows.Err(), "iterate accounts")
}

// SaveAccount inserts a new account. A live account with the same code fails with ErrDuplicate.
func (r *PgxAccountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	if err := r.checkTenant(account.TenantID, "account", account.AccountID); err != nil {
		return err
	}
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15);
	`
	_, err := r.db.Exec(ctx, query,
		account.AccountID,
		account.TenantID,
		account.Code,
		account.Name,
		account.AccountType,
		nullString(account.ParentAccountID),
		account.Level,
		account.NormalBalance,
		account.IsActive,
		account.IsSystem,
		account.DeletedAt,
		account.CreatedAt,
		account.CreatedBy,
		account.LastUpdatedAt,
		account.LastUpdatedBy,
	)
	return mapError(err, fmt.Sprintf("save account code %s", account.Code))
}

// FindAccountByID retrieves an account by its ID, including soft-deleted ones.
func (r *PgxAccountRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = $1;`
	a, err := scanAccount(r.db.QueryRow(ctx, query, accountID))
	if err != nil {
		return nil, mapError(err, "account "+accountID)
	}
	if err := r.checkTenant(a.TenantID, "account", accountID); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *PgxAccountRepository) FindAccountByCode(ctx context.Context, code string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE tenant_id = $1 AND code = $2 AND deleted_at IS NULL;`
	a, err := scanAccount(r.db.QueryRow(ctx, query, r.tenantID, code))
	if err != nil {
		return nil, mapError(err, "account code "+code)
	}
	return &a, nil
}

// FindAccountsByIDs retrieves multiple accounts by their IDs. Rows of other
// tenants are left out like missing ones.
func (r *PgxAccountRepository) FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	if len(accountIDs) == 0 {
		return map[string]domain.Account{}, nil
	}
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE tenant_id = $1 AND account_id = ANY($2);`
	rows, err := r.db.Query(ctx, query, r.tenantID, accountIDs)
	if err != nil {
		return nil, mapError(err, "query accounts by IDs")
	}
	accounts, err := collectAccounts(rows)
	if err != nil {
		return nil, err
	}
	result := make(map[string]domain.Account, len(accounts))
	for _, a := range accounts {
		result[a.AccountID] = a
	}
	return result, nil
}

func (r *PgxAccountRepository) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE tenant_id = $1 AND deleted_at IS NULL ORDER BY code;`
	rows, err := r.db.Query(ctx, query, r.tenantID)
	if err != nil {
		return nil, mapError(err, "list accounts")
	}
	return collectAccounts(rows)
}

func (r *PgxAccountRepository) ListChildren(ctx context.Context, parentIDs []string) ([]domain.Account, error) {
	if len(parentIDs) == 0 {
		return []domain.Account{}, nil
	}
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE tenant_id = $1 AND parent_account_id = ANY($2) AND deleted_at IS NULL
		ORDER BY code;
	`
	rows, err := r.db.Query(ctx, query, r.tenantID, parentIDs)
	if err != nil {
		return nil, mapError(err, "list child accounts")
	}
	return collectAccounts(rows)
}

func (r *PgxAccountRepository) HasChildren(ctx context.Context, accountID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM accounts WHERE tenant_id = $1 AND parent_account_id = $2 AND deleted_at IS NULL);`
	var exists bool
	if err := r.db.QueryRow(ctx, query, r.tenantID, accountID).Scan(&exists); err != nil {
		return false, mapError(err, "check child accounts")
	}
	return exists, nil
}

// UpdateAccount persists code, name, parent, level and audit fields.
func (r *PgxAccountRepository) UpdateAccount(ctx context.Context, account domain.Account) error {
	query := `
		UPDATE accounts
		SET code = $3, name = $4, parent_account_id = $5, level = $6, last_updated_at = $7, last_updated_by = $8
		WHERE tenant_id = $1 AND account_id = $2;
	`
	tag, err := r.db.Exec(ctx, query,
		r.tenantID,
		account.AccountID,
		account.Code,
		account.Name,
		nullString(account.ParentAccountID),
		account.Level,
		account.LastUpdatedAt,
		account.LastUpdatedBy,
	)
	if err != nil {
		return mapError(err, fmt.Sprintf("update account code %s", account.Code))
	}
	if tag.RowsAffected() == 0 {
		return mapError(pgx.ErrNoRows, "account "+account.AccountID)
	}
	return nil
}

// UpdateAccountLevels rewrites the levels of a moved subtree in one batch.
func (r *PgxAccountRepository) UpdateAccountLevels(ctx context.Context, levels map[string]int, actorID string, now time.Time) error {
	if len(levels) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	query := `UPDATE accounts SET level = $3, last_updated_at = $4, last_updated_by = $5 WHERE tenant_id = $1 AND account_id = $2;`
	for id, level := range levels {
		batch.Queue(query, r.tenantID, id, level, now, actorID)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()
	for range levels {
		tag, err := results.Exec()
		if err != nil {
			return mapError(err, "update account levels")
		}
		if tag.RowsAffected() == 0 {
			return mapError(pgx.ErrNoRows, "account in moved subtree")
		}
	}
	return nil
}

func (r *PgxAccountRepository) SoftDeleteAccount(ctx context.Context, accountID string, actorID string, now time.Time) error {
	query := `
		UPDATE accounts
		SET deleted_at = $3, is_active = FALSE, last_updated_at = $3, last_updated_by = $4
		WHERE tenant_id = $1 AND account_id = $2 AND deleted_at IS NULL;
	`
	tag, err := r.db.Exec(ctx, query, r.tenantID, accountID, now, actorID)
	if err != nil {
		return mapError(err, "delete account "+accountID)
	}
	if tag.RowsAffected() == 0 {
		return mapError(pgx.ErrNoRows, "account "+accountID)
	}
	return nil
}
