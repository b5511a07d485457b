package services

import (
	portsrepo "github.com/SscSPs/koperasi_core/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/koperasi_core/internal/core/ports/services"
	"github.com/SscSPs/koperasi_core/internal/platform/config"
	"github.com/SscSPs/koperasi_core/internal/platform/lock"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, store portsrepo.Store, locker lock.Locker, options ...ServiceOption) *portssvc.ServiceContainer {
	return &portssvc.ServiceContainer{
		Account:      NewAccountService(store, cfg.Ledger, options...),
		Journal:      NewJournalService(store, cfg.Ledger, options...),
		FiscalPeriod: NewFiscalPeriodService(store, options...),
		Member:       NewMemberService(store, options...),
		Savings:      NewSavingsService(store, options...),
		Loan:         NewLoanService(store, options...),
		Shu:          NewShuService(store, locker, cfg.Shu, options...),
	}
}

// Helper to check interface implementations at compile time
var (
	_ portssvc.AccountSvcFacade = (*accountService)(nil)
	_ portssvc.JournalSvcFacade = (*journalService)(nil)
	_ portssvc.ShuSvcFacade     = (*shuService)(nil)
)
