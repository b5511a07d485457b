package dto

import (
	"github.com/SscSPs/koperasi_core/internal/core/domain"
	"github.com/SscSPs/koperasi_core/internal/core/money"
	"github.com/shopspring/decimal"
)

// CreateShuPlanRequest defines a new SHU plan. Percentage rules are checked
// by domain.ShuPlan.Validate.
type CreateShuPlanRequest struct {
	FiscalPeriodID        string          `json:"fiscalPeriodID" validate:"required,uuid"`
	Name                  string          `json:"name" validate:"required,max=255"`
	TotalShuAmount        money.Money     `json:"totalShuAmount"`
	SavingsPercentage     decimal.Decimal `json:"savingsPercentage"`
	TransactionPercentage decimal.Decimal `json:"transactionPercentage"`
	ActivityPercentage    decimal.Decimal `json:"activityPercentage"`
	MembershipPercentage  decimal.Decimal `json:"membershipPercentage"`
	MinimumShuAmount      *money.Money    `json:"minimumShuAmount,omitempty"`
	MaximumShuAmount      *money.Money    `json:"maximumShuAmount,omitempty"`
}

// UpdateShuPlanRequest changes a draft or calculated plan. Nil fields are kept.
type UpdateShuPlanRequest struct {
	Name                  *string          `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	TotalShuAmount        *money.Money     `json:"totalShuAmount,omitempty"`
	SavingsPercentage     *decimal.Decimal `json:"savingsPercentage,omitempty"`
	TransactionPercentage *decimal.Decimal `json:"transactionPercentage,omitempty"`
	ActivityPercentage    *decimal.Decimal `json:"activityPercentage,omitempty"`
	MembershipPercentage  *decimal.Decimal `json:"membershipPercentage,omitempty"`
	MinimumShuAmount      *money.Money     `json:"minimumShuAmount,omitempty"`
	MaximumShuAmount      *money.Money     `json:"maximumShuAmount,omitempty"`
	ClearMinimum          bool             `json:"clearMinimum"`
	ClearMaximum          bool             `json:"clearMaximum"`
}

// CalculationStats describes the resource profile of one calculation run.
type CalculationStats struct {
	RunID            string `json:"runID"`
	Chunks           int    `json:"chunks"`
	MembersProcessed int    `json:"membersProcessed"`
	Flushes          int    `json:"flushes"`
	PeakBufferedRows int    `json:"peakBufferedRows"`
	PeakChunkSize    int    `json:"peakChunkSize"`
	DurationMillis   int64  `json:"durationMillis"`
}

// CalculateShuResponse is returned by a successful calculation.
type CalculateShuResponse struct {
	Plan    domain.ShuPlan    `json:"plan"`
	Summary domain.ShuSummary `json:"summary"`
	Stats   CalculationStats  `json:"stats"`
}

// ListShuCalculationsResponse is a page of member calculations.
type ListShuCalculationsResponse struct {
	Calculations []domain.ShuMemberCalculation `json:"calculations"`
	NextToken    *string                       `json:"nextToken,omitempty"`
}
