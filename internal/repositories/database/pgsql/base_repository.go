package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/SscSPs/koperasi_core/internal/apperrors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL error codes mapped to application errors.
const (
	pgUniqueViolation      = "23505"
	pgLockNotAvailable     = "55P03"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgQueryCanceled        = "57014"
)

// querier is the subset of pgxpool.Pool and pgx.Tx used by repositories.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// rowScanner is satisfied by pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// BaseRepository provides common functionality for all repositories. Every
// repository is bound to one tenant and to either the pool or a transaction.
type BaseRepository struct {
	db       querier
	tenantID string
}

func (r *BaseRepository) checkTenant(rowTenant, what, id string) error {
	if rowTenant != r.tenantID {
		return apperrors.NewAppError(apperrors.ErrCrossTenantAccess, fmt.Sprintf("%s %s", what, id), nil)
	}
	return nil
}

// mapError translates driver errors into application error kinds. what names
// the row or operation for the message.
func mapError(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFoundError(what)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return apperrors.NewAppError(apperrors.ErrDuplicate, fmt.Sprintf("%s (%s)", what, pgErr.ConstraintName), err)
		case pgLockNotAvailable, pgSerializationFailure, pgDeadlockDetected:
			return apperrors.NewAppError(apperrors.ErrLockTimeout, what, err)
		case pgQueryCanceled:
			return apperrors.NewAppError(apperrors.ErrStoreUnavailable, what, err)
		}
		return fmt.Errorf("%s: %w", what, err)
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return apperrors.NewAppError(apperrors.ErrStoreUnavailable, what, err)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// nullString maps an empty string to NULL.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func invalidToken(err error) error {
	return apperrors.NewAppError(apperrors.ErrValidation, "invalid next token", err)
}
