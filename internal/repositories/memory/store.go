// Package memory is an in-process implementation of the repository ports.
// Transactions keep an undo log and hold keyed row locks until they end, so
// services behave as they do against PostgreSQL. Uncommitted writes are
// visible to other transactions; callers that need isolation lock the row.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/SscSPs/koperasi_core/internal/apperrors"
	"github.com/SscSPs/koperasi_core/internal/core/domain"
	portsrepo "github.com/SscSPs/koperasi_core/internal/core/ports/repositories"
	"github.com/SscSPs/koperasi_core/internal/platform/lock"
)

const defaultLockTimeout = 5 * time.Second

type dataset struct {
	accounts        map[string]domain.Account
	periods         map[string]domain.FiscalPeriod
	entries         map[string]domain.JournalEntry
	lines           map[string][]domain.JournalEntryLine // by entry id
	sequences       map[string]int64                     // by tenant + scope
	members         map[string]domain.Member
	savingsAccounts map[string]domain.SavingsAccount
	savingsTxns     map[string][]domain.SavingsTransaction // by savings account id
	loans           map[string]domain.LoanAccount
	loanPayments    map[string][]domain.LoanPayment // by loan account id
	shuPlans        map[string]domain.ShuPlan
	shuCalcs        map[string][]domain.ShuMemberCalculation // by plan id
}

// Store is the in-memory persistence boundary.
type Store struct {
	mu          sync.Mutex
	db          *dataset
	rows        *lock.KeyedMutex
	lockTimeout time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithLockTimeout bounds how long a transaction waits for a row lock.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.lockTimeout = d
	}
}

// NewStore returns an empty Store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		db: &dataset{
			accounts:        make(map[string]domain.Account),
			periods:         make(map[string]domain.FiscalPeriod),
			entries:         make(map[string]domain.JournalEntry),
			lines:           make(map[string][]domain.JournalEntryLine),
			sequences:       make(map[string]int64),
			members:         make(map[string]domain.Member),
			savingsAccounts: make(map[string]domain.SavingsAccount),
			savingsTxns:     make(map[string][]domain.SavingsTransaction),
			loans:           make(map[string]domain.LoanAccount),
			loanPayments:    make(map[string][]domain.LoanPayment),
			shuPlans:        make(map[string]domain.ShuPlan),
			shuCalcs:        make(map[string][]domain.ShuMemberCalculation),
		},
		rows:        lock.NewKeyedMutex(),
		lockTimeout: defaultLockTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ portsrepo.Store = (*Store)(nil)

// Tenant implements portsrepo.Store. Writes made through the handle apply
// immediately and lock methods do not lock.
func (s *Store) Tenant(tenantID string) portsrepo.TenantRepositories {
	return &tenantRepos{store: s, tenantID: tenantID}
}

// WithinTransaction implements portsrepo.Store.
func (s *Store) WithinTransaction(ctx context.Context, tenantID string, fn portsrepo.TxFunc) error {
	tx := &txState{held: make(map[string]func())}
	repos := &tenantRepos{store: s, tenantID: tenantID, tx: tx}

	defer tx.releaseLocks()
	defer func() {
		if p := recover(); p != nil {
			s.rollback(tx)
			panic(p)
		}
	}()

	if err := fn(ctx, repos); err != nil {
		s.rollback(tx)
		return err
	}
	return nil
}

func (s *Store) rollback(tx *txState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
}

type txState struct {
	undo []func()
	held map[string]func()
}

func (t *txState) releaseLocks() {
	for key, unlock := range t.held {
		unlock()
		delete(t.held, key)
	}
}

// tenantRepos implements every repository interface for one tenant.
type tenantRepos struct {
	store    *Store
	tenantID string
	tx       *txState // nil outside a transaction
}

var (
	_ portsrepo.TenantRepositories       = (*tenantRepos)(nil)
	_ portsrepo.AccountRepositoryFacade  = (*tenantRepos)(nil)
	_ portsrepo.JournalRepositoryFacade  = (*tenantRepos)(nil)
	_ portsrepo.FiscalPeriodRepository   = (*tenantRepos)(nil)
	_ portsrepo.SequenceRepository       = (*tenantRepos)(nil)
	_ portsrepo.MemberRepositoryFacade   = (*tenantRepos)(nil)
	_ portsrepo.SavingsRepository        = (*tenantRepos)(nil)
	_ portsrepo.LoanRepository           = (*tenantRepos)(nil)
	_ portsrepo.ShuPlanRepository        = (*tenantRepos)(nil)
	_ portsrepo.ShuCalculationRepository = (*tenantRepos)(nil)
	_ portsrepo.ShuMetricsReader         = (*tenantRepos)(nil)
)

func (r *tenantRepos) TenantID() string { return r.tenantID }
func (r *tenantRepos) Accounts() portsrepo.AccountRepositoryFacade { return r }
func (r *tenantRepos) FiscalPeriods() portsrepo.FiscalPeriodRepository { return r }
func (r *tenantRepos) Journals() portsrepo.JournalRepositoryFacade { return r }
func (r *tenantRepos) Sequences() portsrepo.SequenceRepository { return r }
func (r *tenantRepos) Members() portsrepo.MemberRepositoryFacade { return r }
func (r *tenantRepos) Savings() portsrepo.SavingsRepository { return r }
func (r *tenantRepos) Loans() portsrepo.LoanRepository { return r }
func (r *tenantRepos) ShuPlans() portsrepo.ShuPlanRepository { return r }
func (r *tenantRepos) ShuCalculations() portsrepo.ShuCalculationRepository { return r }
func (r *tenantRepos) ShuMetrics() portsrepo.ShuMetricsReader { return r }

// put writes m[k] = v and records how to undo it. The store mutex must be held.
func put[K comparable, V any](r *tenantRepos, m map[K]V, k K, v V) {
	prev, existed := m[k]
	m[k] = v
	if r.tx == nil {
		return
	}
	r.tx.undo = append(r.tx.undo, func() {
		if existed {
			m[k] = prev
		} else {
			delete(m, k)
		}
	})
}

// lockRow takes a row lock held until the transaction ends.
func (r *tenantRepos) lockRow(ctx context.Context, key string) error {
	if r.tx == nil {
		return nil
	}
	if _, ok := r.tx.held[key]; ok {
		return nil
	}
	unlock, err := r.store.rows.Lock(ctx, key, r.store.lockTimeout)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return apperrors.NewAppError(apperrors.ErrLockTimeout, fmt.Sprintf("waiting for %s", key), nil)
		}
		return fmt.Errorf("lock %s: %w", key, err)
	}
	r.tx.held[key] = unlock
	return nil
}

func (r *tenantRepos) checkTenant(rowTenant, what, id string) error {
	if rowTenant != r.tenantID {
		return apperrors.NewAppError(apperrors.ErrCrossTenantAccess, fmt.Sprintf("%s %s", what, id), nil)
	}
	return nil
}

func notFound(what, id string) error {
	return apperrors.NewNotFoundError(fmt.Sprintf("%s %s", what, id))
}

func (r *tenantRepos) lockData() func() {
	r.store.mu.Lock()
	return r.store.mu.Unlock
}
