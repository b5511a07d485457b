package pgsql

import (
	"context"
	"errors"

	"github.com/SscSPs/koperasi_core/internal/apperrors"
	"github.com/SscSPs/koperasi_core/internal/core/domain"
	portsrepo "github.com/SscSPs/koperasi_core/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
)

type PgxFiscalPeriodRepository struct {
	BaseRepository
}

var _ portsrepo.FiscalPeriodRepository = (*PgxFiscalPeriodRepository)(nil)

const fiscalPeriodColumns = `fiscal_period_id, tenant_id, name, start_date, end_date, is_closed, closed_at, closed_by,
	created_at, created_by, last_updated_at, last_updated_by`

func scanFiscalPeriod(row rowScanner) (domain.FiscalPeriod, error) {
	var p domain.FiscalPeriod
	err := row.Scan(
		&p.FiscalPeriodID,
		&p.TenantID,
		&p.Name,
		&p.StartDate,
		&p.EndDate,
		&p.IsClosed,
		&p.ClosedAt,
		&p.ClosedBy,
		&p.CreatedAt,
		&p.CreatedBy,
		&p.LastUpdatedAt,
		&p.LastUpdatedBy,
	)
	return p, err
}

// mapOpenPeriodError reports a second open period with a readable message.
func mapOpenPeriodError(err error, what string) error {
	mapped := mapError(err, what)
	if errors.Is(mapped, apperrors.ErrDuplicate) {
		return apperrors.NewAppError(apperrors.ErrDuplicate, "an open fiscal period already exists", err)
	}
	return mapped
}

func (r *PgxFiscalPeriodRepository) SaveFiscalPeriod(ctx context.Context, period domain.FiscalPeriod) error {
	if err := r.checkTenant(period.TenantID, "fiscal period", period.FiscalPeriodID); err != nil {
		return err
	}
	query := `
		INSERT INTO fiscal_periods (` + fiscalPeriodColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
	`
	_, err := r.db.Exec(ctx, query,
		period.FiscalPeriodID,
		period.TenantID,
		period.Name,
		period.StartDate,
		period.EndDate,
		period.IsClosed,
		period.ClosedAt,
		period.ClosedBy,
		period.CreatedAt,
		period.CreatedBy,
		period.LastUpdatedAt,
		period.LastUpdatedBy,
	)
	return mapOpenPeriodError(err, "save fiscal period "+period.Name)
}

func (r *PgxFiscalPeriodRepository) FindFiscalPeriodByID(ctx context.Context, periodID string) (*domain.FiscalPeriod, error) {
	query := `SELECT ` + fiscalPeriodColumns + ` FROM fiscal_periods WHERE fiscal_period_id = $1;`
	p, err := scanFiscalPeriod(r.db.QueryRow(ctx, query, periodID))
	if err != nil {
		return nil, mapError(err, "fiscal period "+periodID)
	}
	if err := r.checkTenant(p.TenantID, "fiscal period", periodID); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PgxFiscalPeriodRepository) FindOpenFiscalPeriod(ctx context.Context) (*domain.FiscalPeriod, error) {
	query := `SELECT ` + fiscalPeriodColumns + ` FROM fiscal_periods WHERE tenant_id = $1 AND NOT is_closed;`
	p, err := scanFiscalPeriod(r.db.QueryRow(ctx, query, r.tenantID))
	if err != nil {
		return nil, mapError(err, "no open fiscal period")
	}
	return &p, nil
}

func (r *PgxFiscalPeriodRepository) UpdateFiscalPeriod(ctx context.Context, period domain.FiscalPeriod) error {
	query := `
		UPDATE fiscal_periods
		SET name = $3, start_date = $4, end_date = $5, is_closed = $6, closed_at = $7, closed_by = $8,
			last_updated_at = $9, last_updated_by = $10
		WHERE tenant_id = $1 AND fiscal_period_id = $2;
	`
	tag, err := r.db.Exec(ctx, query,
		r.tenantID,
		period.FiscalPeriodID,
		period.Name,
		period.StartDate,
		period.EndDate,
		period.IsClosed,
		period.ClosedAt,
		period.ClosedBy,
		period.LastUpdatedAt,
		period.LastUpdatedBy,
	)
	if err != nil {
		return mapOpenPeriodError(err, "update fiscal period "+period.FiscalPeriodID)
	}
	if tag.RowsAffected() == 0 {
		return mapError(pgx.ErrNoRows, "fiscal period "+period.FiscalPeriodID)
	}
	return nil
}
