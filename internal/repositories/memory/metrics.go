package memory

import (
	"context"
	"time"

	"github.com/SscSPs/koperasi_core/internal/core/domain"
	"github.com/SscSPs/koperasi_core/internal/core/money"
	"github.com/shopspring/decimal"
)

func inPeriod(t time.Time, period domain.ShuPeriod) bool {
	d := domain.DateOf(t)
	return !d.Before(period.Start) && !d.After(period.End)
}

// memberIndex groups the tenant's savings accounts and loans by member.
type memberIndex struct {
	savings map[string][]domain.SavingsAccount
	loans   map[string][]domain.LoanAccount
}

func (r *tenantRepos) buildMemberIndex() memberIndex {
	idx := memberIndex{
		savings: make(map[string][]domain.SavingsAccount),
		loans:   make(map[string][]domain.LoanAccount),
	}
	for _, acc := range r.store.db.savingsAccounts {
		if acc.TenantID == r.tenantID {
			idx.savings[acc.MemberID] = append(idx.savings[acc.MemberID], acc)
		}
	}
	for _, loan := range r.store.db.loans {
		if loan.TenantID == r.tenantID {
			idx.loans[loan.MemberID] = append(idx.loans[loan.MemberID], loan)
		}
	}
	return idx
}

// savingsAsOf returns the balance of each savings type of a member at the
// end of the period: the last balance_after dated on or before it.
func (r *tenantRepos) savingsAsOf(accounts []domain.SavingsAccount, end time.Time) map[domain.SavingsType]money.Money {
	balances := make(map[domain.SavingsType]money.Money)
	for _, acc := range accounts {
		var last *domain.SavingsTransaction
		for _, t := range r.store.db.savingsTxns[acc.SavingsAccountID] {
			if domain.DateOf(t.TransactionDate).After(end) {
				continue
			}
			if last == nil || savingsTxnAfter(t, *last) {
				t := t
				last = &t
			}
		}
		if last != nil {
			balances[acc.SavingsType] = balances[acc.SavingsType].Add(last.BalanceAfter)
		}
	}
	return balances
}

func (r *tenantRepos) memberMetrics(idx memberIndex, m domain.Member, period domain.ShuPeriod) (domain.MemberShuMetrics, map[domain.SavingsType]money.Money) {
	metrics := domain.MemberShuMetrics{
		MemberID:         m.MemberID,
		MembershipMonths: domain.FullMonthsBetween(m.JoinedAt, period.End),
	}

	byType := r.savingsAsOf(idx.savings[m.MemberID], period.End)
	for _, b := range byType {
		metrics.Savings = metrics.Savings.Add(b)
	}

	for _, acc := range idx.savings[m.MemberID] {
		for _, t := range r.store.db.savingsTxns[acc.SavingsAccountID] {
			if inPeriod(t.TransactionDate, period) {
				metrics.ActivityCount++
			}
		}
	}
	for _, loan := range idx.loans[m.MemberID] {
		for _, p := range r.store.db.loanPayments[loan.LoanAccountID] {
			if inPeriod(p.PaymentDate, period) {
				metrics.ActivityCount++
				metrics.LoanPayments = metrics.LoanPayments.Add(p.TotalAmount)
			}
		}
	}
	return metrics, byType
}

func (r *tenantRepos) TenantShuTotals(_ context.Context, period domain.ShuPeriod) (domain.ShuTenantTotals, error) {
	defer r.lockData()()
	totals := domain.ShuTenantTotals{SavingsByType: make(map[domain.SavingsType]money.Money)}
	for _, t := range domain.AllSavingsTypes {
		totals.SavingsByType[t] = money.Zero
	}

	idx := r.buildMemberIndex()
	principal, loans := money.Zero, int64(0)
	for _, m := range r.store.db.members {
		if m.TenantID != r.tenantID || !m.IsEligibleForShu(period.End) {
			continue
		}
		metrics, byType := r.memberMetrics(idx, m, period)
		totals.MemberCount++
		totals.TotalSavings = totals.TotalSavings.Add(metrics.Savings)
		totals.TotalLoanPayments = totals.TotalLoanPayments.Add(metrics.LoanPayments)
		totals.TotalActivity += metrics.ActivityCount
		totals.TotalMembershipMonths += metrics.MembershipMonths
		for t, b := range byType {
			totals.SavingsByType[t] = totals.SavingsByType[t].Add(b)
		}
		for _, loan := range idx.loans[m.MemberID] {
			if !domain.DateOf(loan.DisbursedAt).After(period.End) {
				principal = principal.Add(loan.PrincipalAmount)
				loans++
			}
		}
	}
	if loans > 0 {
		totals.AverageLoanPrincipal, _ = principal.Div(decimal.NewFromInt(loans))
	}
	return totals, nil
}

func (r *tenantRepos) MemberShuMetrics(_ context.Context, period domain.ShuPeriod, memberIDs []string) (map[string]domain.MemberShuMetrics, error) {
	defer r.lockData()()
	idx := r.buildMemberIndex()
	result := make(map[string]domain.MemberShuMetrics, len(memberIDs))
	for _, id := range memberIDs {
		m, ok := r.store.db.members[id]
		if !ok || m.TenantID != r.tenantID {
			continue
		}
		metrics, _ := r.memberMetrics(idx, m, period)
		result[id] = metrics
	}
	return result, nil
}
