package services_test

import (
	"testing"

	"github.com/SscSPs/koperasi_core/internal/apperrors"
	"github.com/SscSPs/koperasi_core/internal/core/domain"
	"github.com/SscSPs/koperasi_core/internal/dto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type AccountServiceTestSuite struct {
	serviceFixture
}

func TestAccountServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AccountServiceTestSuite))
}

func (suite *AccountServiceTestSuite) TestCreateAccount_Success() {
	assets := suite.createAccount("1000", domain.Asset, nil)
	cash := suite.createAccount("1100", domain.Asset, assets)

	suite.Equal(1, assets.Level)
	suite.Equal(2, cash.Level)
	suite.Equal(assets.AccountID, cash.ParentAccountID)
	suite.Equal(domain.NormalDebit, cash.NormalBalance)
	suite.True(cash.IsActive)
	suite.Equal(suite.actorID, cash.CreatedBy)
	suite.True(suite.clock.Now().Equal(cash.CreatedAt))

	revenue := suite.createAccount("4000", domain.Revenue, nil)
	suite.Equal(domain.NormalCredit, revenue.NormalBalance)
}

func (suite *AccountServiceTestSuite) TestCreateAccount_ExplicitNormalBalance() {
	contra := domain.NormalCredit
	account, err := suite.svc.Account.CreateAccount(suite.ctx, suite.tenantID, dto.CreateAccountRequest{
		Code:          "1900",
		Name:          "Accumulated depreciation",
		AccountType:   domain.Asset,
		NormalBalance: &contra,
	}, suite.actorID)
	suite.Require().NoError(err)
	suite.Equal(domain.NormalCredit, account.NormalBalance)
}

func (suite *AccountServiceTestSuite) TestCreateAccount_DuplicateCode() {
	suite.createAccount("1000", domain.Asset, nil)

	_, err := suite.svc.Account.CreateAccount(suite.ctx, suite.tenantID, dto.CreateAccountRequest{
		Code: "1000", Name: "Again", AccountType: domain.Asset,
	}, suite.actorID)
	suite.ErrorIs(err, apperrors.ErrDuplicateCode)

	// codes are unique per tenant only
	_, err = suite.svc.Account.CreateAccount(suite.ctx, uuid.NewString(), dto.CreateAccountRequest{
		Code: "1000", Name: "Other tenant", AccountType: domain.Asset,
	}, suite.actorID)
	suite.NoError(err)
}

func (suite *AccountServiceTestSuite) TestCreateAccount_InvalidParent() {
	missing := uuid.NewString()
	_, err := suite.svc.Account.CreateAccount(suite.ctx, suite.tenantID, dto.CreateAccountRequest{
		Code: "1100", Name: "Orphan", AccountType: domain.Asset, ParentAccountID: &missing,
	}, suite.actorID)
	suite.ErrorIs(err, apperrors.ErrInvalidParent)

	foreign, err := suite.svc.Account.CreateAccount(suite.ctx, uuid.NewString(), dto.CreateAccountRequest{
		Code: "1000", Name: "Foreign", AccountType: domain.Asset,
	}, suite.actorID)
	suite.Require().NoError(err)
	_, err = suite.svc.Account.CreateAccount(suite.ctx, suite.tenantID, dto.CreateAccountRequest{
		Code: "1100", Name: "Cross", AccountType: domain.Asset, ParentAccountID: &foreign.AccountID,
	}, suite.actorID)
	suite.ErrorIs(err, apperrors.ErrInvalidParent)
}

func (suite *AccountServiceTestSuite) TestCreateAccount_Validation() {
	_, err := suite.svc.Account.CreateAccount(suite.ctx, suite.tenantID, dto.CreateAccountRequest{
		Code: "", Name: "No code", AccountType: "cash",
	}, suite.actorID)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *AccountServiceTestSuite) TestCreateAccount_MaxDepth() {
	suite.cfg.Ledger.MaxHierarchyDepth = 2
	suite.rebuild()

	root := suite.createAccount("1000", domain.Asset, nil)
	child := suite.createAccount("1100", domain.Asset, root)
	_, err := suite.svc.Account.CreateAccount(suite.ctx, suite.tenantID, dto.CreateAccountRequest{
		Code: "1110", Name: "Too deep", AccountType: domain.Asset, ParentAccountID: &child.AccountID,
	}, suite.actorID)
	suite.ErrorIs(err, apperrors.ErrInvalidParent)
}

func (suite *AccountServiceTestSuite) TestUpdateAccount() {
	suite.createAccount("1000", domain.Asset, nil)
	cash := suite.createAccount("1100", domain.Asset, nil)

	taken := "1000"
	_, err := suite.svc.Account.UpdateAccount(suite.ctx, suite.tenantID, cash.AccountID,
		dto.UpdateAccountRequest{Code: &taken}, suite.actorID)
	suite.ErrorIs(err, apperrors.ErrDuplicateCode)

	code, name := "1101", "Petty cash"
	updated, err := suite.svc.Account.UpdateAccount(suite.ctx, suite.tenantID, cash.AccountID,
		dto.UpdateAccountRequest{Code: &code, Name: &name}, suite.actorID)
	suite.Require().NoError(err)
	suite.Equal("1101", updated.Code)
	suite.Equal("Petty cash", updated.Name)
}

func (suite *AccountServiceTestSuite) TestMoveAccount_RecomputesSubtreeLevels() {
	assets := suite.createAccount("1000", domain.Asset, nil)
	current := suite.createAccount("1100", domain.Asset, nil)
	bank := suite.createAccount("1110", domain.Asset, current)
	branch := suite.createAccount("1111", domain.Asset, bank)

	moved, err := suite.svc.Account.MoveAccount(suite.ctx, suite.tenantID, current.AccountID, &assets.AccountID, suite.actorID)
	suite.Require().NoError(err)
	suite.Equal(2, moved.Level)

	got, err := suite.svc.Account.GetAccount(suite.ctx, suite.tenantID, bank.AccountID)
	suite.Require().NoError(err)
	suite.Equal(3, got.Level)
	got, err = suite.svc.Account.GetAccount(suite.ctx, suite.tenantID, branch.AccountID)
	suite.Require().NoError(err)
	suite.Equal(4, got.Level)

	// back to the root level
	moved, err = suite.svc.Account.MoveAccount(suite.ctx, suite.tenantID, current.AccountID, nil, suite.actorID)
	suite.Require().NoError(err)
	suite.Equal(1, moved.Level)
	suite.True(moved.IsRoot())
}

func (suite *AccountServiceTestSuite) TestMoveAccount_RejectsCycle() {
	root := suite.createAccount("1000", domain.Asset, nil)
	child := suite.createAccount("1100", domain.Asset, root)
	grandchild := suite.createAccount("1110", domain.Asset, child)

	_, err := suite.svc.Account.MoveAccount(suite.ctx, suite.tenantID, root.AccountID, &grandchild.AccountID, suite.actorID)
	suite.ErrorIs(err, apperrors.ErrInvalidParent)

	_, err = suite.svc.Account.MoveAccount(suite.ctx, suite.tenantID, root.AccountID, &root.AccountID, suite.actorID)
	suite.ErrorIs(err, apperrors.ErrInvalidParent)

	got, err := suite.svc.Account.GetAccount(suite.ctx, suite.tenantID, root.AccountID)
	suite.Require().NoError(err)
	suite.True(got.IsRoot())
}

func (suite *AccountServiceTestSuite) TestDeleteAccount() {
	period := suite.openPeriod("2025-01-01", "2025-12-31")
	root := suite.createAccount("1000", domain.Asset, nil)
	cash := suite.createAccount("1100", domain.Asset, root)
	revenue := suite.createAccount("4000", domain.Revenue, nil)
	unused := suite.createAccount("5000", domain.Expense, nil)

	system, err := suite.svc.Account.CreateAccount(suite.ctx, suite.tenantID, dto.CreateAccountRequest{
		Code: "3000", Name: "Retained SHU", AccountType: domain.Equity, IsSystem: true,
	}, suite.actorID)
	suite.Require().NoError(err)

	_, err = suite.postJournal(period.FiscalPeriodID, "2025-01-10",
		debitLine(cash.AccountID, "100.00"), creditLine(revenue.AccountID, "100.00"))
	suite.Require().NoError(err)

	suite.ErrorIs(suite.svc.Account.DeleteAccount(suite.ctx, suite.tenantID, system.AccountID, suite.actorID), apperrors.ErrAccountInUse)
	suite.ErrorIs(suite.svc.Account.DeleteAccount(suite.ctx, suite.tenantID, root.AccountID, suite.actorID), apperrors.ErrAccountInUse)
	suite.ErrorIs(suite.svc.Account.DeleteAccount(suite.ctx, suite.tenantID, cash.AccountID, suite.actorID), apperrors.ErrAccountInUse)

	suite.Require().NoError(suite.svc.Account.DeleteAccount(suite.ctx, suite.tenantID, unused.AccountID, suite.actorID))
	deleted, err := suite.svc.Account.GetAccount(suite.ctx, suite.tenantID, unused.AccountID)
	suite.Require().NoError(err)
	suite.True(deleted.IsDeleted())
	suite.False(deleted.IsActive)

	// the code is free again
	suite.createAccount("5000", domain.Expense, nil)
}

func (suite *AccountServiceTestSuite) TestGetHierarchy() {
	liabilities := suite.createAccount("2000", domain.Liability, nil)
	assets := suite.createAccount("1000", domain.Asset, nil)
	suite.createAccount("1200", domain.Asset, assets)
	suite.createAccount("1100", domain.Asset, assets)
	suite.createAccount("2100", domain.Liability, liabilities)

	tree, err := suite.svc.Account.GetHierarchy(suite.ctx, suite.tenantID)
	suite.Require().NoError(err)
	suite.Require().Len(tree, 2)
	suite.Equal("1000", tree[0].Code)
	suite.Require().Len(tree[0].Children, 2)
	suite.Equal("1100", tree[0].Children[0].Code)
	suite.Equal("1200", tree[0].Children[1].Code)
	suite.Equal("2000", tree[1].Code)
}

func (suite *AccountServiceTestSuite) TestBalances() {
	period := suite.openPeriod("2025-01-01", "2025-12-31")
	assets := suite.createAccount("1000", domain.Asset, nil)
	cash := suite.createAccount("1100", domain.Asset, assets)
	bank := suite.createAccount("1200", domain.Asset, assets)
	revenue := suite.createAccount("4000", domain.Revenue, nil)

	first, err := suite.postJournal(period.FiscalPeriodID, "2025-01-05",
		debitLine(cash.AccountID, "300.00"), creditLine(revenue.AccountID, "300.00"))
	suite.Require().NoError(err)
	second, err := suite.postJournal(period.FiscalPeriodID, "2025-01-20",
		debitLine(bank.AccountID, "200.00"), creditLine(revenue.AccountID, "200.00"))
	suite.Require().NoError(err)
	_, err = suite.postJournal(period.FiscalPeriodID, "2025-01-21",
		debitLine(bank.AccountID, "999.00"), creditLine(revenue.AccountID, "999.00"))
	suite.Require().NoError(err) // never approved

	for _, e := range []string{first.JournalEntryID, second.JournalEntryID} {
		_, err := suite.svc.Journal.ApproveJournal(suite.ctx, suite.tenantID, e, suite.actorID)
		suite.Require().NoError(err)
	}

	bal, err := suite.svc.Account.GetBalance(suite.ctx, suite.tenantID, revenue.AccountID, date("2025-12-31"))
	suite.Require().NoError(err)
	suite.Equal("500.00", bal.Balance.String())

	bal, err = suite.svc.Account.GetBalance(suite.ctx, suite.tenantID, cash.AccountID, date("2025-01-04"))
	suite.Require().NoError(err)
	suite.True(bal.Balance.IsZero())

	bal, err = suite.svc.Account.GetBalanceWithDescendants(suite.ctx, suite.tenantID, assets.AccountID, date("2025-01-31"))
	suite.Require().NoError(err)
	suite.Equal("500.00", bal.Balance.String())
	suite.Equal(3, bal.AccountsIncluded)

	bal, err = suite.svc.Account.GetBalanceWithDescendants(suite.ctx, suite.tenantID, assets.AccountID, date("2025-01-10"))
	suite.Require().NoError(err)
	suite.Equal("300.00", bal.Balance.String())
}

func (suite *AccountServiceTestSuite) TestBalanceWithDescendants_ContraChild() {
	period := suite.openPeriod("2025-01-01", "2025-12-31")
	equipment := suite.createAccount("1500", domain.Asset, nil)
	contra := domain.NormalCredit
	depreciation, err := suite.svc.Account.CreateAccount(suite.ctx, suite.tenantID, dto.CreateAccountRequest{
		Code:            "1501",
		Name:            "Accumulated depreciation",
		AccountType:     domain.Asset,
		ParentAccountID: &equipment.AccountID,
		NormalBalance:   &contra,
	}, suite.actorID)
	suite.Require().NoError(err)
	expense := suite.createAccount("6000", domain.Expense, nil)

	entry, err := suite.postJournal(period.FiscalPeriodID, "2025-02-01",
		debitLine(expense.AccountID, "100.00"), creditLine(depreciation.AccountID, "100.00"))
	suite.Require().NoError(err)
	_, err = suite.svc.Journal.ApproveJournal(suite.ctx, suite.tenantID, entry.JournalEntryID, suite.actorID)
	suite.Require().NoError(err)

	asOf := date("2025-12-31")
	parent, err := suite.svc.Account.GetBalance(suite.ctx, suite.tenantID, equipment.AccountID, asOf)
	suite.Require().NoError(err)
	child, err := suite.svc.Account.GetBalance(suite.ctx, suite.tenantID, depreciation.AccountID, asOf)
	suite.Require().NoError(err)
	suite.True(parent.Balance.IsZero())
	suite.Equal("100.00", child.Balance.String())

	subtree, err := suite.svc.Account.GetBalanceWithDescendants(suite.ctx, suite.tenantID, equipment.AccountID, asOf)
	suite.Require().NoError(err)
	suite.Equal(parent.Balance.Add(child.Balance).String(), subtree.Balance.String())
	suite.Equal(2, subtree.AccountsIncluded)
}

func (suite *AccountServiceTestSuite) TestGetAccount_OtherTenant() {
	account := suite.createAccount("1000", domain.Asset, nil)
	_, err := suite.svc.Account.GetAccount(suite.ctx, uuid.NewString(), account.AccountID)
	suite.ErrorIs(err, apperrors.ErrCrossTenantAccess)
}
