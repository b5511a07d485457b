package pgsql

import (
	"context"
	"errors"
	"testing"

	"github.com/SscSPs/koperasi_core/internal/apperrors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockQuerier stands in for a pgx.Tx; only QueryRow is expected.
type mockQuerier struct {
	mock.Mock
}

func (m *mockQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	panic("unexpected Exec")
}

func (m *mockQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("unexpected Query")
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return m.Called(args...).Get(0).(pgx.Row)
}

func (m *mockQuerier) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("unexpected SendBatch")
}

func (m *mockQuerier) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("unexpected CopyFrom")
}

type int64Row struct {
	value int64
	err   error
}

func (r int64Row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*int64) = r.value
	return nil
}

func TestNextValue_UsesTransactionConnection(t *testing.T) {
	tx := new(mockQuerier)
	tx.On("QueryRow", "t1", "JE-202501").Return(int64Row{value: 7}).Once()

	repos := newTenantRepos(tx, "t1")
	value, err := repos.Sequences().NextValue(context.Background(), "JE-202501")
	require.NoError(t, err)
	assert.Equal(t, int64(7), value)
	assert.Same(t, tx, repos.sequences.db.(*mockQuerier))
	tx.AssertExpectations(t)
}

func TestNextValue_LockTimeout(t *testing.T) {
	tx := new(mockQuerier)
	tx.On("QueryRow", "t1", "SV-202501").Return(int64Row{err: &pgconn.PgError{Code: pgLockNotAvailable}}).Once()

	_, err := newTenantRepos(tx, "t1").Sequences().NextValue(context.Background(), "SV-202501")
	assert.True(t, errors.Is(err, apperrors.ErrLockTimeout))
	assert.True(t, apperrors.IsTransient(err))
}
