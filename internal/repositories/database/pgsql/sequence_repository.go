package pgsql

import (
	"context"

	portsrepo "github.com/SscSPs/koperasi_core/internal/core/ports/repositories"
)

// PgxSequenceRepository issues values on the caller's connection. A value
// issued in a rolled back transaction is issued again; a committed value is
// never reused.
type PgxSequenceRepository struct {
	BaseRepository
}

var _ portsrepo.SequenceRepository = (*PgxSequenceRepository)(nil)

func (r *PgxSequenceRepository) NextValue(ctx context.Context, scope string) (int64, error) {
	query := `
		INSERT INTO reference_sequences (tenant_id, scope, last_value)
		VALUES ($1, $2, 1)
		ON CONFLICT (tenant_id, scope) DO UPDATE SET last_value = reference_sequences.last_value + 1
		RETURNING last_value;
	`
	var value int64
	if err := r.db.QueryRow(ctx, query, r.tenantID, scope).Scan(&value); err != nil {
		return 0, mapError(err, "next value for "+scope)
	}
	return value, nil
}
