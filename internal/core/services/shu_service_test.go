package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/SscSPs/koperasi_core/internal/apperrors"
	"github.com/SscSPs/koperasi_core/internal/core/domain"
	"github.com/SscSPs/koperasi_core/internal/core/money"
	portsrepo "github.com/SscSPs/koperasi_core/internal/core/ports/repositories"
	"github.com/SscSPs/koperasi_core/internal/core/services"
	"github.com/SscSPs/koperasi_core/internal/dto"
	"github.com/SscSPs/koperasi_core/internal/platform/lock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type mockLocker struct {
	mock.Mock
}

func (m *mockLocker) Acquire(ctx context.Context, key string, ttl, wait time.Duration) (lock.Lease, error) {
	args := m.Called(ctx, key, ttl, wait)
	lease, _ := args.Get(0).(lock.Lease)
	return lease, args.Error(1)
}

type mockObserver struct {
	mock.Mock
}

func (m *mockObserver) ChunkProcessed(ctx context.Context, tenantID, planID string, stats dto.CalculationStats) {
	m.Called(ctx, tenantID, planID, stats)
}

type ShuServiceTestSuite struct {
	serviceFixture
	period  *domain.FiscalPeriod
	members map[string]*domain.Member
}

func TestShuServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ShuServiceTestSuite))
}

func (suite *ShuServiceTestSuite) SetupTest() {
	suite.serviceFixture.SetupTest()
	suite.period = suite.openPeriod("2024-01-01", "2024-12-31")
	suite.members = make(map[string]*domain.Member)
}

func pct(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (suite *ShuServiceTestSuite) planRequest() dto.CreateShuPlanRequest {
	return dto.CreateShuPlanRequest{
		FiscalPeriodID:        suite.period.FiscalPeriodID,
		Name:                  "SHU 2024",
		TotalShuAmount:        amt("10000000.00"),
		SavingsPercentage:     pct("40"),
		TransactionPercentage: pct("30"),
		ActivityPercentage:    pct("20"),
		MembershipPercentage:  pct("10"),
	}
}

func (suite *ShuServiceTestSuite) createPlan(req dto.CreateShuPlanRequest) *domain.ShuPlan {
	plan, err := suite.svc.Shu.CreatePlan(suite.ctx, suite.tenantID, req, suite.actorID)
	suite.Require().NoError(err)
	return plan
}

func (suite *ShuServiceTestSuite) openLoanAndPay(member *domain.Member, principal, disbursed, paid, on string) {
	loan, err := suite.svc.Loan.OpenLoan(suite.ctx, suite.tenantID, dto.OpenLoanRequest{
		MemberID:        member.MemberID,
		PrincipalAmount: amt(principal),
		TermMonths:      12,
		DisbursedAt:     date(disbursed),
	}, suite.actorID)
	suite.Require().NoError(err)

	_, err = suite.svc.Loan.RecordPayment(suite.ctx, suite.tenantID, dto.RecordPaymentRequest{
		LoanAccountID:   loan.LoanAccountID,
		PrincipalAmount: amt(paid),
		PaymentDate:     date(on),
	}, suite.actorID)
	suite.Require().NoError(err)
}

// seedThreeMembers builds a cooperative whose 2024 denominators are
// savings 10,000,000, loan payments 4,000,000, activity 6 and 87 months.
func (suite *ShuServiceTestSuite) seedThreeMembers() {
	m1 := suite.registerMember("M1", "2020-01-01")
	m2 := suite.registerMember("M2", "2023-01-01")
	m3 := suite.registerMember("M3", "2024-07-01")
	suite.members["M1"], suite.members["M2"], suite.members["M3"] = m1, m2, m3

	suite.deposit(m1.MemberID, domain.SavingsSukarela, "6000000.00", "2024-03-01")
	suite.openLoanAndPay(m1, "3000000.00", "2024-01-10", "3000000.00", "2024-06-10")

	suite.deposit(m2.MemberID, domain.SavingsSukarela, "1500000.00", "2024-04-01")
	suite.deposit(m2.MemberID, domain.SavingsSukarela, "1500000.00", "2024-05-01")
	suite.openLoanAndPay(m2, "2000000.00", "2024-02-01", "1000000.00", "2024-08-01")

	suite.deposit(m3.MemberID, domain.SavingsSukarela, "1000000.00", "2024-08-01")
}

func (suite *ShuServiceTestSuite) calculate(planID string) *dto.CalculateShuResponse {
	resp, err := suite.svc.Shu.CalculateShu(suite.ctx, suite.tenantID, planID, suite.actorID)
	suite.Require().NoError(err)
	return resp
}

func (suite *ShuServiceTestSuite) memberShare(planID, number string) *domain.ShuMemberCalculation {
	calc, err := suite.svc.Shu.GetMemberCalculation(suite.ctx, suite.tenantID, planID, suite.members[number].MemberID)
	suite.Require().NoError(err)
	return calc
}

func (suite *ShuServiceTestSuite) TestCalculateShu_ThreeMembers() {
	suite.seedThreeMembers()
	plan := suite.createPlan(suite.planRequest())

	resp := suite.calculate(plan.ShuPlanID)
	suite.Equal(domain.ShuCalculated, resp.Plan.Status)
	suite.NotNil(resp.Plan.CalculatedAt)
	suite.Equal(3, resp.Stats.MembersProcessed)

	tests := []struct {
		member      string
		savings     string
		transaction string
		activity    string
		membership  string
		total       string
	}{
		{"M1", "2400000.00", "2250000.00", "666666.67", "678160.92", "5994827.59"},
		{"M2", "1200000.00", "750000.00", "1000000.00", "264367.82", "3214367.82"},
		{"M3", "400000.00", "0.00", "333333.33", "57471.26", "790804.59"},
	}
	for _, tt := range tests {
		calc := suite.memberShare(plan.ShuPlanID, tt.member)
		suite.Equal(tt.savings, calc.SavingsShu.String(), tt.member)
		suite.Equal(tt.transaction, calc.TransactionShu.String(), tt.member)
		suite.Equal(tt.activity, calc.ActivityShu.String(), tt.member)
		suite.Equal(tt.membership, calc.MembershipShu.String(), tt.member)
		suite.Equal(tt.total, calc.TotalShu.String(), tt.member)
	}

	summary, err := suite.svc.Shu.GetSummary(suite.ctx, suite.tenantID, plan.ShuPlanID)
	suite.Require().NoError(err)
	suite.Equal(int64(3), summary.MemberCount)
	suite.Equal("10000000.00", summary.DistributedAmount.String())
	suite.True(summary.RemainingAmount.IsZero())
	suite.Equal("3333333.33", summary.AverageShu.String())
	suite.Equal("790804.59", summary.MinimumMemberShu.String())
	suite.Equal("5994827.59", summary.MaximumMemberShu.String())
	suite.Equal("4000000.00", summary.SavingsShuTotal.String())
	suite.Equal(resp.Summary.DistributedAmount.String(), summary.DistributedAmount.String())
}

func (suite *ShuServiceTestSuite) TestCalculateShu_ClampsTotals() {
	suite.seedThreeMembers()

	req := suite.planRequest()
	maximum := amt("5000000.00")
	req.MaximumShuAmount = &maximum
	capped := suite.createPlan(req)
	suite.calculate(capped.ShuPlanID)

	m1 := suite.memberShare(capped.ShuPlanID, "M1")
	suite.Equal("5000000.00", m1.TotalShu.String())
	suite.Equal("2400000.00", m1.SavingsShu.String(), "components are not rescaled")
	suite.Equal("3214367.82", suite.memberShare(capped.ShuPlanID, "M2").TotalShu.String())

	req = suite.planRequest()
	minimum := amt("800000.00")
	req.MinimumShuAmount = &minimum
	floored := suite.createPlan(req)
	suite.calculate(floored.ShuPlanID)

	suite.Equal("800000.00", suite.memberShare(floored.ShuPlanID, "M3").TotalShu.String())
	suite.Equal("5994827.59", suite.memberShare(floored.ShuPlanID, "M1").TotalShu.String())
}

func (suite *ShuServiceTestSuite) TestCreatePlan_Validation() {
	req := suite.planRequest()
	req.MembershipPercentage = pct("5")
	_, err := suite.svc.Shu.CreatePlan(suite.ctx, suite.tenantID, req, suite.actorID)
	suite.ErrorIs(err, apperrors.ErrValidation, "percentages sum to 95")

	req = suite.planRequest()
	req.SavingsPercentage = pct("39.995")
	req.MembershipPercentage = pct("10.005")
	_, err = suite.svc.Shu.CreatePlan(suite.ctx, suite.tenantID, req, suite.actorID)
	suite.ErrorIs(err, apperrors.ErrValidation, "three decimals")

	req = suite.planRequest()
	req.TotalShuAmount = money.Zero
	_, err = suite.svc.Shu.CreatePlan(suite.ctx, suite.tenantID, req, suite.actorID)
	suite.ErrorIs(err, apperrors.ErrValidation)

	req = suite.planRequest()
	minimum, maximum := amt("10.00"), amt("5.00")
	req.MinimumShuAmount, req.MaximumShuAmount = &minimum, &maximum
	_, err = suite.svc.Shu.CreatePlan(suite.ctx, suite.tenantID, req, suite.actorID)
	suite.ErrorIs(err, apperrors.ErrValidation)

	req = suite.planRequest()
	req.FiscalPeriodID = uuid.NewString()
	_, err = suite.svc.Shu.CreatePlan(suite.ctx, suite.tenantID, req, suite.actorID)
	suite.ErrorIs(err, apperrors.ErrInvalidFiscalPeriod)
}

// registerMany adds n members with no savings or loans in a fresh tenant.
func (suite *ShuServiceTestSuite) registerMany(n int) {
	suite.tenantID = uuid.NewString()
	suite.period = suite.openPeriod("2024-01-01", "2024-12-31")
	for i := 0; i < n; i++ {
		suite.registerMember(fmt.Sprintf("B-%05d", i), "2020-01-01")
	}
}

func (suite *ShuServiceTestSuite) TestCalculateShu_BoundedMemory() {
	suite.cfg.Shu.ChunkSize = 100
	suite.cfg.Shu.BatchSize = 50
	suite.rebuild()

	profile := func(n int) dto.CalculationStats {
		suite.registerMany(n)
		plan := suite.createPlan(suite.planRequest())
		resp := suite.calculate(plan.ShuPlanID)

		suite.Equal(int64(n), resp.Summary.MemberCount)
		suite.Equal(n, resp.Stats.MembersProcessed)
		return resp.Stats
	}

	large := profile(1200)
	suite.Equal(12, large.Chunks)
	suite.Equal(24, large.Flushes)
	suite.LessOrEqual(large.PeakChunkSize, 100)
	suite.LessOrEqual(large.PeakBufferedRows, 50)

	small := profile(240)
	suite.Equal(3, small.Chunks)
	suite.Equal(large.PeakChunkSize, small.PeakChunkSize)
	suite.Equal(large.PeakBufferedRows, small.PeakBufferedRows)
}

func (suite *ShuServiceTestSuite) TestCalculateShu_ReportsProgress() {
	observer := new(mockObserver)
	suite.cfg.Shu.ChunkSize = 100
	suite.cfg.Shu.BatchSize = 40
	suite.rebuild(services.WithCalculationObserver(observer))

	suite.registerMany(250)
	plan := suite.createPlan(suite.planRequest())
	observer.On("ChunkProcessed", mock.Anything, suite.tenantID, plan.ShuPlanID, mock.AnythingOfType("dto.CalculationStats")).Return()

	suite.calculate(plan.ShuPlanID)

	observer.AssertNumberOfCalls(suite.T(), "ChunkProcessed", 3)
	last := observer.Calls[2].Arguments.Get(3).(dto.CalculationStats)
	suite.Equal(250, last.MembersProcessed)
	suite.Equal(3, last.Chunks)
	suite.Equal(100, last.PeakChunkSize)
	suite.Equal(40, last.PeakBufferedRows)
}

func (suite *ShuServiceTestSuite) TestCalculateShu_Timeout() {
	suite.seedThreeMembers()
	plan := suite.createPlan(suite.planRequest())

	suite.cfg.Shu.CalculationTimeout = time.Nanosecond
	suite.rebuild()

	_, err := suite.svc.Shu.CalculateShu(suite.ctx, suite.tenantID, plan.ShuPlanID, suite.actorID)
	suite.ErrorIs(err, apperrors.ErrCalculationTimeout)

	stored, err := suite.svc.Shu.GetPlan(suite.ctx, suite.tenantID, plan.ShuPlanID)
	suite.Require().NoError(err)
	suite.Equal(domain.ShuDraft, stored.Status)
	suite.Nil(stored.CalculationRunID)

	leftover, err := suite.store.Tenant(suite.tenantID).ShuCalculations().DeleteShuCalculationsByPlan(suite.ctx, plan.ShuPlanID)
	suite.Require().NoError(err)
	suite.Zero(leftover)

	suite.cfg.Shu.CalculationTimeout = time.Minute
	suite.rebuild()
	suite.Equal(domain.ShuCalculated, suite.calculate(plan.ShuPlanID).Plan.Status)
}

// A worker that died after committing the start of its run leaves the plan in
// calculating with partial rows. The next holder of the plan lock restarts it.
func (suite *ShuServiceTestSuite) TestCalculateShu_RecoversDeadRun() {
	suite.seedThreeMembers()
	plan := suite.createPlan(suite.planRequest())

	staleRun := uuid.NewString()
	err := suite.store.WithinTransaction(suite.ctx, suite.tenantID, func(ctx context.Context, repos portsrepo.TenantRepositories) error {
		stored, err := repos.ShuPlans().LockShuPlan(ctx, plan.ShuPlanID)
		if err != nil {
			return err
		}
		stored.Status = domain.ShuCalculating
		stored.CalculationRunID = &staleRun
		if err := repos.ShuPlans().UpdateShuPlan(ctx, *stored); err != nil {
			return err
		}
		return repos.ShuCalculations().InsertShuCalculations(ctx, []domain.ShuMemberCalculation{{
			ShuMemberCalculationID: uuid.NewString(),
			TenantID:               suite.tenantID,
			ShuPlanID:              plan.ShuPlanID,
			RunID:                  staleRun,
			MemberID:               suite.members["M1"].MemberID,
			TotalShu:               amt("1.00"),
		}})
	})
	suite.Require().NoError(err)

	resp := suite.calculate(plan.ShuPlanID)
	suite.Equal(domain.ShuCalculated, resp.Plan.Status)
	suite.Require().NotNil(resp.Plan.CalculationRunID)
	suite.NotEqual(staleRun, *resp.Plan.CalculationRunID)
	suite.Equal(3, resp.Stats.MembersProcessed)

	removed, err := suite.store.Tenant(suite.tenantID).ShuCalculations().DeleteShuCalculationsByRun(suite.ctx, plan.ShuPlanID, staleRun)
	suite.Require().NoError(err)
	suite.Zero(removed)

	summary, err := suite.svc.Shu.GetSummary(suite.ctx, suite.tenantID, plan.ShuPlanID)
	suite.Require().NoError(err)
	suite.Equal(int64(3), summary.MemberCount)
}

func (suite *ShuServiceTestSuite) TestCalculateShu_DurationFromClock() {
	observer := new(mockObserver)
	suite.cfg.Shu.ChunkSize = 2
	suite.rebuild(services.WithCalculationObserver(observer))

	suite.seedThreeMembers()
	plan := suite.createPlan(suite.planRequest())
	observer.On("ChunkProcessed", mock.Anything, suite.tenantID, plan.ShuPlanID, mock.AnythingOfType("dto.CalculationStats")).
		Run(func(mock.Arguments) { suite.clock.Advance(1500 * time.Millisecond) }).
		Return()

	resp := suite.calculate(plan.ShuPlanID)
	suite.Equal(int64(3000), resp.Stats.DurationMillis)
}

func (suite *ShuServiceTestSuite) TestCalculateShu_InProgress() {
	suite.seedThreeMembers()
	plan := suite.createPlan(suite.planRequest())

	suite.cfg.Shu.LockWait = 20 * time.Millisecond
	suite.rebuild()

	lease, err := suite.locker.Acquire(suite.ctx, services.PlanLockKey(plan.ShuPlanID), time.Minute, 0)
	suite.Require().NoError(err)

	_, err = suite.svc.Shu.CalculateShu(suite.ctx, suite.tenantID, plan.ShuPlanID, suite.actorID)
	suite.ErrorIs(err, apperrors.ErrCalculationInProgress)

	stored, err := suite.svc.Shu.GetPlan(suite.ctx, suite.tenantID, plan.ShuPlanID)
	suite.Require().NoError(err)
	suite.Equal(domain.ShuDraft, stored.Status)

	suite.Require().NoError(lease.Release(suite.ctx))
	suite.calculate(plan.ShuPlanID)
}

func (suite *ShuServiceTestSuite) TestCalculateShu_LockerErrors() {
	plan := suite.createPlan(suite.planRequest())

	locker := new(mockLocker)
	locker.On("Acquire", mock.Anything, services.PlanLockKey(plan.ShuPlanID), suite.cfg.Shu.LockTTL, suite.cfg.Shu.LockWait).
		Return(nil, lock.ErrNotAcquired).Once()
	locker.On("Acquire", mock.Anything, services.PlanLockKey(plan.ShuPlanID), suite.cfg.Shu.LockTTL, suite.cfg.Shu.LockWait).
		Return(nil, fmt.Errorf("redis: connection refused")).Once()
	suite.svc = services.NewServiceContainer(suite.cfg, suite.store, locker, services.WithClock(suite.clock))

	_, err := suite.svc.Shu.CalculateShu(suite.ctx, suite.tenantID, plan.ShuPlanID, suite.actorID)
	suite.ErrorIs(err, apperrors.ErrCalculationInProgress)

	_, err = suite.svc.Shu.CalculateShu(suite.ctx, suite.tenantID, plan.ShuPlanID, suite.actorID)
	suite.Error(err)
	suite.NotErrorIs(err, apperrors.ErrCalculationInProgress)

	locker.AssertExpectations(suite.T())
}

func (suite *ShuServiceTestSuite) TestRecalculationReplacesRows() {
	suite.seedThreeMembers()
	plan := suite.createPlan(suite.planRequest())

	first := suite.calculate(plan.ShuPlanID)
	second := suite.calculate(plan.ShuPlanID)
	suite.NotEqual(*first.Plan.CalculationRunID, *second.Plan.CalculationRunID)

	page, err := suite.svc.Shu.ListMemberCalculations(suite.ctx, suite.tenantID, plan.ShuPlanID, dto.ListParams{})
	suite.Require().NoError(err)
	suite.Len(page.Calculations, 3)
	for _, c := range page.Calculations {
		suite.Equal(*second.Plan.CalculationRunID, c.RunID)
	}
}

func (suite *ShuServiceTestSuite) TestListMemberCalculations_Pagination() {
	suite.seedThreeMembers()
	plan := suite.createPlan(suite.planRequest())

	empty, err := suite.svc.Shu.ListMemberCalculations(suite.ctx, suite.tenantID, plan.ShuPlanID, dto.ListParams{})
	suite.Require().NoError(err)
	suite.Empty(empty.Calculations)

	_, err = suite.svc.Shu.GetMemberCalculation(suite.ctx, suite.tenantID, plan.ShuPlanID, suite.members["M1"].MemberID)
	suite.ErrorIs(err, apperrors.ErrNotFound)

	suite.calculate(plan.ShuPlanID)

	first, err := suite.svc.Shu.ListMemberCalculations(suite.ctx, suite.tenantID, plan.ShuPlanID, dto.ListParams{Limit: 2})
	suite.Require().NoError(err)
	suite.Require().Len(first.Calculations, 2)
	suite.Require().NotNil(first.NextToken)

	rest, err := suite.svc.Shu.ListMemberCalculations(suite.ctx, suite.tenantID, plan.ShuPlanID,
		dto.ListParams{Limit: 2, NextToken: first.NextToken})
	suite.Require().NoError(err)
	suite.Require().Len(rest.Calculations, 1)
	suite.Nil(rest.NextToken)
	suite.Less(first.Calculations[1].MemberID, rest.Calculations[0].MemberID)
}

func (suite *ShuServiceTestSuite) TestPlanLifecycle() {
	suite.seedThreeMembers()
	plan := suite.createPlan(suite.planRequest())
	suite.Equal(domain.ShuDraft, plan.Status)

	_, err := suite.svc.Shu.ApprovePlan(suite.ctx, suite.tenantID, plan.ShuPlanID, suite.actorID)
	suite.ErrorIs(err, apperrors.ErrInvalidStatusTransition, "draft cannot be approved")

	suite.calculate(plan.ShuPlanID)

	_, err = suite.svc.Shu.CancelPlan(suite.ctx, suite.tenantID, plan.ShuPlanID, suite.actorID)
	suite.ErrorIs(err, apperrors.ErrInvalidStatusTransition, "calculated cannot be cancelled")

	approved, err := suite.svc.Shu.ApprovePlan(suite.ctx, suite.tenantID, plan.ShuPlanID, suite.actorID)
	suite.Require().NoError(err)
	suite.Equal(domain.ShuApproved, approved.Status)
	suite.Require().NotNil(approved.ApprovedBy)
	suite.Equal(suite.actorID, *approved.ApprovedBy)

	_, err = suite.svc.Shu.UpdatePlan(suite.ctx, suite.tenantID, plan.ShuPlanID, dto.UpdateShuPlanRequest{}, suite.actorID)
	suite.ErrorIs(err, apperrors.ErrInvalidStatusTransition, "approved plans are frozen")

	_, err = suite.svc.Shu.CalculateShu(suite.ctx, suite.tenantID, plan.ShuPlanID, suite.actorID)
	suite.ErrorIs(err, apperrors.ErrInvalidStatusTransition)

	distributed, err := suite.svc.Shu.DistributePlan(suite.ctx, suite.tenantID, plan.ShuPlanID, suite.actorID)
	suite.Require().NoError(err)
	suite.Equal(domain.ShuDistributed, distributed.Status)
	suite.NotNil(distributed.DistributedAt)

	_, err = suite.svc.Shu.CancelPlan(suite.ctx, suite.tenantID, plan.ShuPlanID, suite.actorID)
	suite.ErrorIs(err, apperrors.ErrInvalidStatusTransition, "distributed is terminal")
}

func (suite *ShuServiceTestSuite) TestCancelAndReopen() {
	suite.seedThreeMembers()
	plan := suite.createPlan(suite.planRequest())
	suite.calculate(plan.ShuPlanID)
	_, err := suite.svc.Shu.ApprovePlan(suite.ctx, suite.tenantID, plan.ShuPlanID, suite.actorID)
	suite.Require().NoError(err)

	cancelled, err := suite.svc.Shu.CancelPlan(suite.ctx, suite.tenantID, plan.ShuPlanID, suite.actorID)
	suite.Require().NoError(err)
	suite.Equal(domain.ShuCancelled, cancelled.Status)

	reopened, err := suite.svc.Shu.ReopenPlan(suite.ctx, suite.tenantID, plan.ShuPlanID, suite.actorID)
	suite.Require().NoError(err)
	suite.Equal(domain.ShuDraft, reopened.Status)
	suite.Nil(reopened.ApprovedBy)
	suite.Nil(reopened.CalculationRunID)

	summary, err := suite.svc.Shu.GetSummary(suite.ctx, suite.tenantID, plan.ShuPlanID)
	suite.Require().NoError(err)
	suite.Zero(summary.MemberCount)
	suite.Equal("10000000.00", summary.RemainingAmount.String())
}

func (suite *ShuServiceTestSuite) TestUpdateCalculatedPlanDiscardsResults() {
	suite.seedThreeMembers()
	plan := suite.createPlan(suite.planRequest())
	suite.calculate(plan.ShuPlanID)

	total := amt("20000000.00")
	updated, err := suite.svc.Shu.UpdatePlan(suite.ctx, suite.tenantID, plan.ShuPlanID,
		dto.UpdateShuPlanRequest{TotalShuAmount: &total}, suite.actorID)
	suite.Require().NoError(err)
	suite.Equal(domain.ShuDraft, updated.Status)
	suite.Nil(updated.CalculationRunID)
	suite.Nil(updated.CalculatedAt)

	_, err = suite.svc.Shu.GetMemberCalculation(suite.ctx, suite.tenantID, plan.ShuPlanID, suite.members["M1"].MemberID)
	suite.ErrorIs(err, apperrors.ErrNotFound)

	resp := suite.calculate(plan.ShuPlanID)
	suite.Equal("20000000.00", resp.Summary.DistributedAmount.String())

	bad := pct("90")
	_, err = suite.svc.Shu.UpdatePlan(suite.ctx, suite.tenantID, plan.ShuPlanID,
		dto.UpdateShuPlanRequest{SavingsPercentage: &bad}, suite.actorID)
	suite.ErrorIs(err, apperrors.ErrValidation)

	stored, err := suite.svc.Shu.GetPlan(suite.ctx, suite.tenantID, plan.ShuPlanID)
	suite.Require().NoError(err)
	suite.Equal(domain.ShuCalculated, stored.Status, "a rejected edit leaves the plan untouched")
	suite.Equal("40", stored.SavingsPercentage.String())
}
