package services_test

import (
	"context"
	"io"
	"time"

	"github.com/SscSPs/koperasi_core/internal/core/domain"
	"github.com/SscSPs/koperasi_core/internal/core/money"
	portssvc "github.com/SscSPs/koperasi_core/internal/core/ports/services"
	"github.com/SscSPs/koperasi_core/internal/core/services"
	"github.com/SscSPs/koperasi_core/internal/dto"
	"github.com/SscSPs/koperasi_core/internal/platform/clock"
	"github.com/SscSPs/koperasi_core/internal/platform/config"
	"github.com/SscSPs/koperasi_core/internal/platform/lock"
	"github.com/SscSPs/koperasi_core/internal/platform/logging"
	"github.com/SscSPs/koperasi_core/internal/repositories/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

// serviceFixture wires every service to a fresh in-memory store per test.
type serviceFixture struct {
	suite.Suite
	ctx      context.Context
	store    *memory.Store
	clock    *clock.Fixed
	locker   *lock.LocalLocker
	cfg      *config.Config
	svc      *portssvc.ServiceContainer
	tenantID string
	actorID  string
}

func (f *serviceFixture) SetupTest() {
	f.ctx = logging.WithLogger(context.Background(), logging.NewWithWriter(io.Discard, false, "error"))
	f.store = memory.NewStore(memory.WithLockTimeout(2 * time.Second))
	f.clock = clock.NewFixed(time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC))
	f.locker = lock.NewLocalLocker()
	f.cfg = &config.Config{Ledger: config.DefaultLedgerConfig(), Shu: config.DefaultShuConfig()}
	f.tenantID = uuid.NewString()
	f.actorID = uuid.NewString()
	f.rebuild()
}

// rebuild recreates the services after f.cfg changed.
func (f *serviceFixture) rebuild(options ...services.ServiceOption) {
	options = append([]services.ServiceOption{services.WithClock(f.clock)}, options...)
	f.svc = services.NewServiceContainer(f.cfg, f.store, f.locker, options...)
}

func date(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func amt(s string) money.Money {
	return money.MustParse(s)
}

func (f *serviceFixture) openPeriod(start, end string) *domain.FiscalPeriod {
	period, err := f.svc.FiscalPeriod.OpenPeriod(f.ctx, f.tenantID, dto.OpenPeriodRequest{
		Name:      start[:4],
		StartDate: date(start),
		EndDate:   date(end),
	}, f.actorID)
	f.Require().NoError(err)
	return period
}

func (f *serviceFixture) createAccount(code string, accountType domain.AccountType, parent *domain.Account) *domain.Account {
	req := dto.CreateAccountRequest{Code: code, Name: "Account " + code, AccountType: accountType}
	if parent != nil {
		req.ParentAccountID = &parent.AccountID
	}
	account, err := f.svc.Account.CreateAccount(f.ctx, f.tenantID, req, f.actorID)
	f.Require().NoError(err)
	return account
}

func (f *serviceFixture) registerMember(number, joined string) *domain.Member {
	member, err := f.svc.Member.RegisterMember(f.ctx, f.tenantID, dto.RegisterMemberRequest{
		MemberNumber: number,
		Name:         "Member " + number,
		JoinedAt:     date(joined),
	}, f.actorID)
	f.Require().NoError(err)
	return member
}

func (f *serviceFixture) deposit(memberID string, t domain.SavingsType, amount, on string) *domain.SavingsMutationResult {
	res, err := f.svc.Savings.Deposit(f.ctx, f.tenantID, savingsReq(memberID, t, amount, on), f.actorID)
	f.Require().NoError(err)
	return res
}

func savingsReq(memberID string, t domain.SavingsType, amount, on string) dto.SavingsMutationRequest {
	return dto.SavingsMutationRequest{
		MemberID:        memberID,
		SavingsType:     t,
		Amount:          amt(amount),
		TransactionDate: date(on),
	}
}

func (f *serviceFixture) postJournal(periodID string, on string, lines ...dto.JournalLineRequest) (*domain.JournalEntry, error) {
	return f.svc.Journal.PostJournal(f.ctx, f.tenantID, dto.PostJournalRequest{
		FiscalPeriodID:  periodID,
		TransactionDate: date(on),
		Description:     "test posting",
		Lines:           lines,
	}, f.actorID)
}

func debitLine(accountID, amount string) dto.JournalLineRequest {
	return dto.JournalLineRequest{AccountID: accountID, DebitAmount: amt(amount)}
}

func creditLine(accountID, amount string) dto.JournalLineRequest {
	return dto.JournalLineRequest{AccountID: accountID, CreditAmount: amt(amount)}
}
