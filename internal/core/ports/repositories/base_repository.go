package repositories

import (
	"context"
)

// TxFunc is the unit of work run by Store.WithinTransaction. Returning an
// error rolls back every write made through repos.
type TxFunc func(ctx context.Context, repos TenantRepositories) error

// Store is the transactional persistence boundary. Every handle it gives out
// is bound to one tenant; no repository method accepts a tenant id.
type Store interface {
	// Tenant returns non-transactional repositories scoped to tenantID.
	Tenant(tenantID string) TenantRepositories

	// WithinTransaction runs fn atomically with repositories scoped to tenantID.
	WithinTransaction(ctx context.Context, tenantID string, fn TxFunc) error
}

// TenantRepositories groups the per-entity repositories of one tenant.
type TenantRepositories interface {
	TenantID() string
	Accounts() AccountRepositoryFacade
	FiscalPeriods() FiscalPeriodRepository
	Journals() JournalRepositoryFacade
	Sequences() SequenceRepository
	Members() MemberRepositoryFacade
	Savings() SavingsRepository
	Loans() LoanRepository
	ShuPlans() ShuPlanRepository
	ShuCalculations() ShuCalculationRepository
	ShuMetrics() ShuMetricsReader
}

// SequenceRepository issues reference numbers from an atomic per-tenant
// per-scope counter. A value committed with its record is never issued
// again; gaps are allowed.
type SequenceRepository interface {
	NextValue(ctx context.Context, scope string) (int64, error)
}
