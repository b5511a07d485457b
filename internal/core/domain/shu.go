package domain

import (
	"fmt"
	"time"

	"github.com/SscSPs/koperasi_core/internal/apperrors"
	"github.com/SscSPs/koperasi_core/internal/core/money"
	"github.com/shopspring/decimal"
)

// ShuPlanStatus is the lifecycle state of a SHU plan.
type ShuPlanStatus string

const (
	ShuDraft       ShuPlanStatus = "draft"
	ShuCalculating ShuPlanStatus = "calculating"
	ShuCalculated  ShuPlanStatus = "calculated"
	ShuApproved    ShuPlanStatus = "approved"
	ShuDistributed ShuPlanStatus = "distributed"
	ShuCancelled   ShuPlanStatus = "cancelled"
)

// ratioPrecision is the number of decimal places kept for member ratios.
const ratioPrecision = 16

var (
	hundred           = decimal.NewFromInt(100)
	percentTolerance  = decimal.RequireFromString("0.01")
	percentMaxDecimal = int32(2)
)

// ShuPlan configures one distribution of a fiscal period's surplus.
type ShuPlan struct {
	ShuPlanID             string          `json:"shuPlanID"`
	TenantID              string          `json:"tenantID"`
	FiscalPeriodID        string          `json:"fiscalPeriodID"`
	Name                  string          `json:"name"`
	TotalShuAmount        money.Money     `json:"totalShuAmount"`
	SavingsPercentage     decimal.Decimal `json:"savingsPercentage"`
	TransactionPercentage decimal.Decimal `json:"transactionPercentage"`
	ActivityPercentage    decimal.Decimal `json:"activityPercentage"`
	MembershipPercentage  decimal.Decimal `json:"membershipPercentage"`
	MinimumShuAmount      *money.Money    `json:"minimumShuAmount,omitempty"`
	MaximumShuAmount      *money.Money    `json:"maximumShuAmount,omitempty"`
	Status                ShuPlanStatus   `json:"status"`
	CalculationRunID      *string         `json:"calculationRunID,omitempty"`
	CalculatedAt          *time.Time      `json:"calculatedAt,omitempty"`
	ApprovedBy            *string         `json:"approvedBy,omitempty"`
	ApprovedAt            *time.Time      `json:"approvedAt,omitempty"`
	DistributedBy         *string         `json:"distributedBy,omitempty"`
	DistributedAt         *time.Time      `json:"distributedAt,omitempty"`
	AuditFields
}

// Validate checks the plan configuration before it is saved.
func (p ShuPlan) Validate() error {
	if p.Name == "" {
		return apperrors.NewValidationError("plan name is required")
	}
	if p.FiscalPeriodID == "" {
		return apperrors.NewValidationError("fiscal period is required")
	}
	if !p.TotalShuAmount.IsPositive() {
		return apperrors.NewValidationError("total SHU amount must be positive")
	}

	sum := decimal.Zero
	for _, w := range p.weights() {
		name, pct := w.name, w.pct
		if pct.IsNegative() || pct.GreaterThan(hundred) {
			return apperrors.NewValidationError(fmt.Sprintf("%s percentage %s must be between 0 and 100", name, pct))
		}
		if !pct.Round(percentMaxDecimal).Equal(pct) {
			return apperrors.NewValidationError(fmt.Sprintf("%s percentage %s has more than 2 decimals", name, pct))
		}
		sum = sum.Add(pct)
	}
	if sum.Sub(hundred).Abs().GreaterThan(percentTolerance) {
		return apperrors.NewValidationError(fmt.Sprintf("percentages must sum to 100, got %s", sum))
	}

	if p.MinimumShuAmount != nil && p.MinimumShuAmount.IsNegative() {
		return apperrors.NewValidationError("minimum SHU amount must not be negative")
	}
	if p.MaximumShuAmount != nil && p.MaximumShuAmount.IsNegative() {
		return apperrors.NewValidationError("maximum SHU amount must not be negative")
	}
	if p.MinimumShuAmount != nil && p.MaximumShuAmount != nil && p.MinimumShuAmount.GreaterThan(*p.MaximumShuAmount) {
		return apperrors.NewValidationError("minimum SHU amount exceeds maximum")
	}
	return nil
}

type weight struct {
	name string
	pct  decimal.Decimal
}

func (p ShuPlan) weights() []weight {
	return []weight{
		{"savings", p.SavingsPercentage},
		{"transaction", p.TransactionPercentage},
		{"activity", p.ActivityPercentage},
		{"membership", p.MembershipPercentage},
	}
}

// IsEditable reports whether configuration fields may change.
func (p ShuPlan) IsEditable() bool {
	return p.Status == ShuDraft || p.Status == ShuCalculated
}

// ShuMemberCalculation is one member's share in a plan, written only by a
// calculation run.
type ShuMemberCalculation struct {
	ShuMemberCalculationID string          `json:"shuMemberCalculationID"`
	TenantID               string          `json:"tenantID"`
	ShuPlanID              string          `json:"shuPlanID"`
	RunID                  string          `json:"runID"`
	MemberID               string          `json:"memberID"`
	SavingsRatio           decimal.Decimal `json:"savingsRatio"`
	TransactionRatio       decimal.Decimal `json:"transactionRatio"`
	ActivityRatio          decimal.Decimal `json:"activityRatio"`
	MembershipRatio        decimal.Decimal `json:"membershipRatio"`
	SavingsShu             money.Money     `json:"savingsShu"`
	TransactionShu         money.Money     `json:"transactionShu"`
	ActivityShu            money.Money     `json:"activityShu"`
	MembershipShu          money.Money     `json:"membershipShu"`
	TotalShu               money.Money     `json:"totalShu"`
	CreatedAt              time.Time       `json:"createdAt"`
}

// ShuTenantTotals are the denominators of a distribution, aggregated over
// eligible members in one pass.
type ShuTenantTotals struct {
	SavingsByType         map[SavingsType]money.Money `json:"savingsByType"`
	TotalSavings          money.Money                 `json:"totalSavings"`
	AverageLoanPrincipal  money.Money                 `json:"averageLoanPrincipal"`
	TotalLoanPayments     money.Money                 `json:"totalLoanPayments"`
	TotalActivity         int64                       `json:"totalActivity"`
	TotalMembershipMonths int64                       `json:"totalMembershipMonths"`
	MemberCount           int64                       `json:"memberCount"`
}

// MemberShuMetrics are one member's numerators.
type MemberShuMetrics struct {
	MemberID         string      `json:"memberID"`
	Savings          money.Money `json:"savings"`          // balances as of period end
	LoanPayments     money.Money `json:"loanPayments"`     // paid within the period
	ActivityCount    int64       `json:"activityCount"`    // savings rows + loan payments within the period
	MembershipMonths int64       `json:"membershipMonths"` // full months up to period end
}

// ShuSummary is recomputed from persisted calculation rows.
type ShuSummary struct {
	ShuPlanID           string        `json:"shuPlanID"`
	Status              ShuPlanStatus `json:"status"`
	TotalShuAmount      money.Money   `json:"totalShuAmount"`
	MemberCount         int64         `json:"memberCount"`
	DistributedAmount   money.Money   `json:"distributedAmount"`
	RemainingAmount     money.Money   `json:"remainingAmount"`
	AverageShu          money.Money   `json:"averageShu"`
	MinimumMemberShu    money.Money   `json:"minimumMemberShu"`
	MaximumMemberShu    money.Money   `json:"maximumMemberShu"`
	SavingsShuTotal     money.Money   `json:"savingsShuTotal"`
	TransactionShuTotal money.Money   `json:"transactionShuTotal"`
	ActivityShuTotal    money.Money   `json:"activityShuTotal"`
	MembershipShuTotal  money.Money   `json:"membershipShuTotal"`
}

// ShuCalculationAggregate is the raw aggregate a store returns over the rows
// of one run.
type ShuCalculationAggregate struct {
	MemberCount         int64
	TotalShu            money.Money
	MinimumShu          money.Money
	MaximumShu          money.Money
	SavingsShuTotal     money.Money
	TransactionShuTotal money.Money
	ActivityShuTotal    money.Money
	MembershipShuTotal  money.Money
}

// NewShuSummary derives the summary of a plan from the aggregate of its rows.
func NewShuSummary(plan ShuPlan, agg ShuCalculationAggregate) ShuSummary {
	summary := ShuSummary{
		ShuPlanID:           plan.ShuPlanID,
		Status:              plan.Status,
		TotalShuAmount:      plan.TotalShuAmount,
		MemberCount:         agg.MemberCount,
		DistributedAmount:   agg.TotalShu,
		RemainingAmount:     plan.TotalShuAmount.Sub(agg.TotalShu),
		MinimumMemberShu:    agg.MinimumShu,
		MaximumMemberShu:    agg.MaximumShu,
		SavingsShuTotal:     agg.SavingsShuTotal,
		TransactionShuTotal: agg.TransactionShuTotal,
		ActivityShuTotal:    agg.ActivityShuTotal,
		MembershipShuTotal:  agg.MembershipShuTotal,
	}
	if agg.MemberCount > 0 {
		// count is non-zero so Div cannot fail
		summary.AverageShu, _ = agg.TotalShu.Div(decimal.NewFromInt(agg.MemberCount))
	}
	return summary
}

// Ratio returns part/whole with 16 decimal places, or zero when whole is zero.
func Ratio(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.DivRound(whole, ratioPrecision)
}

// ComputeMemberShare applies the plan's weights to one member. Each component
// is rounded half-up independently; the total is the sum of the rounded
// components clamped to the plan's bounds.
func (p ShuPlan) ComputeMemberShare(totals ShuTenantTotals, m MemberShuMetrics) ShuMemberCalculation {
	calc := ShuMemberCalculation{
		TenantID:         p.TenantID,
		ShuPlanID:        p.ShuPlanID,
		MemberID:         m.MemberID,
		SavingsRatio:     Ratio(m.Savings.Decimal(), totals.TotalSavings.Decimal()),
		TransactionRatio: Ratio(m.LoanPayments.Decimal(), totals.TotalLoanPayments.Decimal()),
		ActivityRatio:    Ratio(decimal.NewFromInt(m.ActivityCount), decimal.NewFromInt(totals.TotalActivity)),
		MembershipRatio:  Ratio(decimal.NewFromInt(m.MembershipMonths), decimal.NewFromInt(totals.TotalMembershipMonths)),
	}

	calc.SavingsShu = p.component(p.SavingsPercentage, calc.SavingsRatio)
	calc.TransactionShu = p.component(p.TransactionPercentage, calc.TransactionRatio)
	calc.ActivityShu = p.component(p.ActivityPercentage, calc.ActivityRatio)
	calc.MembershipShu = p.component(p.MembershipPercentage, calc.MembershipRatio)

	total := money.Sum(calc.SavingsShu, calc.TransactionShu, calc.ActivityShu, calc.MembershipShu)
	if p.MinimumShuAmount != nil && total.LessThan(*p.MinimumShuAmount) {
		total = *p.MinimumShuAmount
	}
	if p.MaximumShuAmount != nil && total.GreaterThan(*p.MaximumShuAmount) {
		total = *p.MaximumShuAmount
	}
	calc.TotalShu = total
	return calc
}

func (p ShuPlan) component(pct, ratio decimal.Decimal) money.Money {
	return p.TotalShuAmount.MulDecimal(pct.Div(hundred).Mul(ratio))
}

// ShuPeriod bounds the history a distribution looks at. Both ends are
// inclusive calendar dates.
type ShuPeriod struct {
	Start time.Time
	End   time.Time
}

// NewShuPeriod derives the distribution period from a fiscal period.
func NewShuPeriod(fp FiscalPeriod) ShuPeriod {
	return ShuPeriod{Start: DateOf(fp.StartDate), End: DateOf(fp.EndDate)}
}
