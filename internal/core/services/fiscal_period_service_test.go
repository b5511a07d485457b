package services_test

import (
	"testing"

	"github.com/SscSPs/koperasi_core/internal/apperrors"
	"github.com/SscSPs/koperasi_core/internal/dto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type FiscalPeriodServiceTestSuite struct {
	serviceFixture
}

func TestFiscalPeriodServiceTestSuite(t *testing.T) {
	suite.Run(t, new(FiscalPeriodServiceTestSuite))
}

func (suite *FiscalPeriodServiceTestSuite) TestOpenPeriod() {
	period := suite.openPeriod("2025-01-01", "2025-12-31")

	suite.Equal("2025", period.Name)
	suite.False(period.IsClosed)
	suite.Nil(period.ClosedAt)
	suite.Equal(suite.actorID, period.CreatedBy)

	open, err := suite.svc.FiscalPeriod.GetOpenPeriod(suite.ctx, suite.tenantID)
	suite.Require().NoError(err)
	suite.Equal(period.FiscalPeriodID, open.FiscalPeriodID)
}

func (suite *FiscalPeriodServiceTestSuite) TestOpenPeriod_OnlyOneOpen() {
	suite.openPeriod("2025-01-01", "2025-12-31")

	_, err := suite.svc.FiscalPeriod.OpenPeriod(suite.ctx, suite.tenantID, dto.OpenPeriodRequest{
		Name:      "2026",
		StartDate: date("2026-01-01"),
		EndDate:   date("2026-12-31"),
	}, suite.actorID)
	suite.ErrorIs(err, apperrors.ErrValidation)

	// another tenant is unaffected
	otherTenant := uuid.NewString()
	_, err = suite.svc.FiscalPeriod.OpenPeriod(suite.ctx, otherTenant, dto.OpenPeriodRequest{
		Name:      "2026",
		StartDate: date("2026-01-01"),
		EndDate:   date("2026-12-31"),
	}, suite.actorID)
	suite.NoError(err)
}

func (suite *FiscalPeriodServiceTestSuite) TestOpenPeriod_Validation() {
	_, err := suite.svc.FiscalPeriod.OpenPeriod(suite.ctx, suite.tenantID, dto.OpenPeriodRequest{
		Name:      "backwards",
		StartDate: date("2025-12-31"),
		EndDate:   date("2025-01-01"),
	}, suite.actorID)
	suite.ErrorIs(err, apperrors.ErrValidation)

	_, err = suite.svc.FiscalPeriod.OpenPeriod(suite.ctx, suite.tenantID, dto.OpenPeriodRequest{
		StartDate: date("2025-01-01"),
		EndDate:   date("2025-12-31"),
	}, suite.actorID)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *FiscalPeriodServiceTestSuite) TestClosePeriod() {
	period := suite.openPeriod("2025-01-01", "2025-12-31")

	closed, err := suite.svc.FiscalPeriod.ClosePeriod(suite.ctx, suite.tenantID, period.FiscalPeriodID, suite.actorID)
	suite.Require().NoError(err)
	suite.True(closed.IsClosed)
	suite.Require().NotNil(closed.ClosedBy)
	suite.Equal(suite.actorID, *closed.ClosedBy)
	suite.NotNil(closed.ClosedAt)

	_, err = suite.svc.FiscalPeriod.GetOpenPeriod(suite.ctx, suite.tenantID)
	suite.ErrorIs(err, apperrors.ErrNotFound)

	_, err = suite.svc.FiscalPeriod.ClosePeriod(suite.ctx, suite.tenantID, period.FiscalPeriodID, suite.actorID)
	suite.ErrorIs(err, apperrors.ErrInvalidFiscalPeriod)

	// a closed period frees the slot for the next one
	suite.openPeriod("2026-01-01", "2026-12-31")
}

func (suite *FiscalPeriodServiceTestSuite) TestGetPeriod() {
	period := suite.openPeriod("2025-01-01", "2025-12-31")

	got, err := suite.svc.FiscalPeriod.GetPeriod(suite.ctx, suite.tenantID, period.FiscalPeriodID)
	suite.Require().NoError(err)
	suite.Equal(period.Name, got.Name)

	_, err = suite.svc.FiscalPeriod.GetPeriod(suite.ctx, uuid.NewString(), period.FiscalPeriodID)
	suite.ErrorIs(err, apperrors.ErrCrossTenantAccess)

	_, err = suite.svc.FiscalPeriod.GetPeriod(suite.ctx, suite.tenantID, uuid.NewString())
	suite.ErrorIs(err, apperrors.ErrNotFound)
}
