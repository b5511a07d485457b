package pgsql

import (
	"context"
	"fmt"
	"time"

	portsrepo "github.com/SscSPs/koperasi_core/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultLockTimeout = 5 * time.Second

// Store is the PostgreSQL implementation of the persistence boundary.
type Store struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewStore creates a Store on pool. lockTimeout bounds how long a transaction
// waits for a row lock before failing with ErrLockTimeout.
func NewStore(pool *pgxpool.Pool, lockTimeout time.Duration) *Store {
	if lockTimeout <= 0 {
		lockTimeout = defaultLockTimeout
	}
	return &Store{pool: pool, lockTimeout: lockTimeout}
}

var _ portsrepo.Store = (*Store)(nil)

// Tenant implements portsrepo.Store.
func (s *Store) Tenant(tenantID string) portsrepo.TenantRepositories {
	return newTenantRepos(s.pool, tenantID)
}

// WithinTransaction implements portsrepo.Store.
func (s *Store) WithinTransaction(ctx context.Context, tenantID string, fn portsrepo.TxFunc) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return mapError(err, "begin transaction")
	}
	// no-op once committed
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	timeout := fmt.Sprintf("%dms", s.lockTimeout.Milliseconds())
	if _, err := tx.Exec(ctx, "SELECT set_config('lock_timeout', $1, true)", timeout); err != nil {
		return mapError(err, "set lock timeout")
	}

	if err := fn(ctx, newTenantRepos(tx, tenantID)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapError(err, "commit transaction")
	}
	return nil
}

// tenantRepos groups the repositories of one tenant over one querier.
type tenantRepos struct {
	tenantID        string
	accounts        *PgxAccountRepository
	periods         *PgxFiscalPeriodRepository
	journals        *PgxJournalRepository
	sequences       *PgxSequenceRepository
	members         *PgxMemberRepository
	savings         *PgxSavingsRepository
	loans           *PgxLoanRepository
	shuPlans        *PgxShuPlanRepository
	shuCalculations *PgxShuCalculationRepository
	shuMetrics      *PgxShuMetricsRepository
}

// newTenantRepos binds every repository to db. Inside a transaction the
// counter row of a sequence stays locked until commit, so concurrent writers
// of one scope serialize there, bounded by lock_timeout.
func newTenantRepos(db querier, tenantID string) *tenantRepos {
	base := BaseRepository{db: db, tenantID: tenantID}
	return &tenantRepos{
		tenantID:        tenantID,
		accounts:        &PgxAccountRepository{BaseRepository: base},
		periods:         &PgxFiscalPeriodRepository{BaseRepository: base},
		journals:        &PgxJournalRepository{BaseRepository: base},
		sequences:       &PgxSequenceRepository{BaseRepository: base},
		members:         &PgxMemberRepository{BaseRepository: base},
		savings:         &PgxSavingsRepository{BaseRepository: base},
		loans:           &PgxLoanRepository{BaseRepository: base},
		shuPlans:        &PgxShuPlanRepository{BaseRepository: base},
		shuCalculations: &PgxShuCalculationRepository{BaseRepository: base},
		shuMetrics:      &PgxShuMetricsRepository{BaseRepository: base},
	}
}

var _ portsrepo.TenantRepositories = (*tenantRepos)(nil)

func (r *tenantRepos) TenantID() string                                    { return r.tenantID }
func (r *tenantRepos) Accounts() portsrepo.AccountRepositoryFacade         { return r.accounts }
func (r *tenantRepos) FiscalPeriods() portsrepo.FiscalPeriodRepository     { return r.periods }
func (r *tenantRepos) Journals() portsrepo.JournalRepositoryFacade         { return r.journals }
func (r *tenantRepos) Sequences() portsrepo.SequenceRepository             { return r.sequences }
func (r *tenantRepos) Members() portsrepo.MemberRepositoryFacade           { return r.members }
func (r *tenantRepos) Savings() portsrepo.SavingsRepository                { return r.savings }
func (r *tenantRepos) Loans() portsrepo.LoanRepository                     { return r.loans }
func (r *tenantRepos) ShuPlans() portsrepo.ShuPlanRepository               { return r.shuPlans }
func (r *tenantRepos) ShuCalculations() portsrepo.ShuCalculationRepository { return r.shuCalculations }
func (r *tenantRepos) ShuMetrics() portsrepo.ShuMetricsReader              { return r.shuMetrics }
