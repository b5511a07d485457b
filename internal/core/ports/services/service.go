package services

// ServiceContainer holds instances of all the application services.
// This is the main entry point for accessing service functionality and
// is used by the worker and any transport built on top of the core.
type ServiceContainer struct {
	Account      AccountSvcFacade
	Journal      JournalSvcFacade
	FiscalPeriod FiscalPeriodSvc
	Member       MemberSvc
	Savings      SavingsSvc
	Loan         LoanSvc
	Shu          ShuSvcFacade
}
