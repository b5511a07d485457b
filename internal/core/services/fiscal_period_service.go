package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SscSPs/koperasi_core/internal/apperrors"
	"github.com/SscSPs/koperasi_core/internal/core/domain"
	portsrepo "github.com/SscSPs/koperasi_core/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/koperasi_core/internal/core/ports/services"
	"github.com/SscSPs/koperasi_core/internal/dto"
	"github.com/SscSPs/koperasi_core/internal/platform/validation"
)

type fiscalPeriodService struct {
	BaseService
	store portsrepo.Store
}

// NewFiscalPeriodService creates the service that opens and closes fiscal periods.
func NewFiscalPeriodService(store portsrepo.Store, options ...ServiceOption) portssvc.FiscalPeriodSvc {
	return &fiscalPeriodService{
		BaseService: newBaseService(applyOptions(options)),
		store:       store,
	}
}

var _ portssvc.FiscalPeriodSvc = (*fiscalPeriodService)(nil)

// OpenPeriod starts a new fiscal period. A tenant has at most one open period.
func (s *fiscalPeriodService) OpenPeriod(ctx context.Context, tenantID string, req dto.OpenPeriodRequest, actorID string) (*domain.FiscalPeriod, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	period := domain.FiscalPeriod{
		FiscalPeriodID: s.newID(),
		TenantID:       tenantID,
		Name:           strings.TrimSpace(req.Name),
		StartDate:      domain.DateOf(req.StartDate),
		EndDate:        domain.DateOf(req.EndDate),
		AuditFields:    domain.NewAuditFields(actorID, s.now()),
	}
	if period.EndDate.Before(period.StartDate) {
		return nil, apperrors.NewValidationError("end date must not be before start date")
	}

	err := s.store.WithinTransaction(ctx, tenantID, func(ctx context.Context, repos portsrepo.TenantRepositories) error {
		open, err := repos.FiscalPeriods().FindOpenFiscalPeriod(ctx)
		switch {
		case err == nil:
			return apperrors.NewValidationError(fmt.Sprintf("fiscal period %s is still open", open.Name))
		case !errors.Is(err, apperrors.ErrNotFound):
			return fmt.Errorf("failed to check open fiscal period: %w", err)
		}

		if err := repos.FiscalPeriods().SaveFiscalPeriod(ctx, period); err != nil {
			if errors.Is(err, apperrors.ErrDuplicate) {
				return apperrors.NewAppError(apperrors.ErrValidation, "another fiscal period is open", err)
			}
			return fmt.Errorf("failed to save fiscal period: %w", err)
		}
		return nil
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to open fiscal period", slog.String("tenant_id", tenantID))
		return nil, err
	}

	s.LogInfo(ctx, "Fiscal period opened",
		slog.String("tenant_id", tenantID),
		slog.String("fiscal_period_id", period.FiscalPeriodID),
		slog.String("name", period.Name))
	return &period, nil
}

func (s *fiscalPeriodService) ClosePeriod(ctx context.Context, tenantID string, periodID string, actorID string) (*domain.FiscalPeriod, error) {
	var period *domain.FiscalPeriod
	err := s.store.WithinTransaction(ctx, tenantID, func(ctx context.Context, repos portsrepo.TenantRepositories) error {
		var err error
		period, err = repos.FiscalPeriods().FindFiscalPeriodByID(ctx, periodID)
		if err != nil {
			return err
		}
		if period.IsClosed {
			return apperrors.NewAppError(apperrors.ErrInvalidFiscalPeriod,
				fmt.Sprintf("fiscal period %s is already closed", period.Name), nil)
		}

		now := s.now()
		period.IsClosed = true
		period.ClosedAt = &now
		period.ClosedBy = &actorID
		period.Touch(actorID, now)
		return repos.FiscalPeriods().UpdateFiscalPeriod(ctx, *period)
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to close fiscal period", slog.String("fiscal_period_id", periodID))
		return nil, err
	}
	s.LogInfo(ctx, "Fiscal period closed", slog.String("fiscal_period_id", periodID))
	return period, nil
}

func (s *fiscalPeriodService) GetOpenPeriod(ctx context.Context, tenantID string) (*domain.FiscalPeriod, error) {
	return s.store.Tenant(tenantID).FiscalPeriods().FindOpenFiscalPeriod(ctx)
}

func (s *fiscalPeriodService) GetPeriod(ctx context.Context, tenantID string, periodID string) (*domain.FiscalPeriod, error) {
	return s.store.Tenant(tenantID).FiscalPeriods().FindFiscalPeriodByID(ctx, periodID)
}
