// Package storagetest holds the behaviour every storage implementation must share.
package storagetest

import (
	"context"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/d2r-multiplay/internal/model"
	"github.com/mcoot/d2r-multiplay/internal/storage"
)

// Suite runs storage conformance tests. Implementations embed it and set
// Storage in their SetupTest.
type Suite struct {
	suite.Suite
	Storage storage.Storage
	Ctx     context.Context
}

func (s *Suite) SetupSuite() {
	s.Ctx = context.Background()
}

func (s *Suite) account(id, user string) *model.Account {
	return &model.Account{
		ID:                   model.AccountID(id),
		WinUser:              user,
		WinPass:              "secret",
		BnetAccount:          user + "@example.com",
		Note:                 "main",
		PasswordNeverExpires: true,
	}
}

func (s *Suite) ids() []model.AccountID {
	accounts, err := s.Storage.ListAccounts(s.Ctx)
	s.Require().NoError(err)
	ids := make([]model.AccountID, len(accounts))
	for i, a := range accounts {
		ids[i] = a.ID
	}
	return ids
}

// Account tests

func (s *Suite) TestSaveAndGetAccount() {
	acc := s.account("a1", `PC\Bob`)
	s.Require().NoError(s.Storage.SaveAccount(s.Ctx, acc))

	got, err := s.Storage.GetAccount(s.Ctx, "a1")
	s.Require().NoError(err)
	s.Equal(*acc, *got)
}

func (s *Suite) TestGetAccountNotFound() {
	_, err := s.Storage.GetAccount(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrAccountNotFound)
}

func (s *Suite) TestListEmpty() {
	accounts, err := s.Storage.ListAccounts(s.Ctx)
	s.Require().NoError(err)
	s.Empty(accounts)
}

func (s *Suite) TestListKeepsInsertionOrder() {
	s.Require().NoError(s.Storage.SaveAccount(s.Ctx, s.account("a1", "Bob")))
	s.Require().NoError(s.Storage.SaveAccount(s.Ctx, s.account("a2", "Alice")))
	s.Require().NoError(s.Storage.SaveAccount(s.Ctx, s.account("a3", "Carol")))

	s.Equal([]model.AccountID{"a1", "a2", "a3"}, s.ids())
}

func (s *Suite) TestSaveExistingReplacesInPlace() {
	s.Require().NoError(s.Storage.SaveAccount(s.Ctx, s.account("a1", "Bob")))
	s.Require().NoError(s.Storage.SaveAccount(s.Ctx, s.account("a2", "Alice")))

	updated := s.account("a1", "Bob")
	updated.Note = "alt"
	s.Require().NoError(s.Storage.SaveAccount(s.Ctx, updated))

	s.Equal([]model.AccountID{"a1", "a2"}, s.ids())
	got, err := s.Storage.GetAccount(s.Ctx, "a1")
	s.Require().NoError(err)
	s.Equal("alt", got.Note)
}

func (s *Suite) TestDeleteAccount() {
	s.Require().NoError(s.Storage.SaveAccount(s.Ctx, s.account("a1", "Bob")))
	s.Require().NoError(s.Storage.SaveAccount(s.Ctx, s.account("a2", "Alice")))

	s.Require().NoError(s.Storage.DeleteAccount(s.Ctx, "a1"))

	_, err := s.Storage.GetAccount(s.Ctx, "a1")
	s.ErrorIs(err, model.ErrAccountNotFound)
	s.Equal([]model.AccountID{"a2"}, s.ids())
}

func (s *Suite) TestDeleteMissingAccountIsNoOp() {
	s.NoError(s.Storage.DeleteAccount(s.Ctx, "missing"))
}

func (s *Suite) TestSetAccountOrder() {
	s.Require().NoError(s.Storage.SaveAccount(s.Ctx, s.account("a1", "Bob")))
	s.Require().NoError(s.Storage.SaveAccount(s.Ctx, s.account("a2", "Alice")))
	s.Require().NoError(s.Storage.SaveAccount(s.Ctx, s.account("a3", "Carol")))

	s.Require().NoError(s.Storage.SetAccountOrder(s.Ctx, []model.AccountID{"a3", "a1", "a2"}))
	s.Equal([]model.AccountID{"a3", "a1", "a2"}, s.ids())

	// new accounts go to the end of the custom order
	s.Require().NoError(s.Storage.SaveAccount(s.Ctx, s.account("a4", "Dave")))
	s.Equal([]model.AccountID{"a3", "a1", "a2", "a4"}, s.ids())
}

func (s *Suite) TestSetAccountOrderRejectsMismatch() {
	s.Require().NoError(s.Storage.SaveAccount(s.Ctx, s.account("a1", "Bob")))
	s.Require().NoError(s.Storage.SaveAccount(s.Ctx, s.account("a2", "Alice")))

	s.ErrorIs(s.Storage.SetAccountOrder(s.Ctx, []model.AccountID{"a1"}), model.ErrInvalidOrder)
	s.ErrorIs(s.Storage.SetAccountOrder(s.Ctx, []model.AccountID{"a1", "a1"}), model.ErrInvalidOrder)
	s.ErrorIs(s.Storage.SetAccountOrder(s.Ctx, []model.AccountID{"a1", "zz"}), model.ErrInvalidOrder)

	s.Equal([]model.AccountID{"a1", "a2"}, s.ids())
}

// Settings tests

func (s *Suite) TestSettingsDefaultToZero() {
	settings, err := s.Storage.GetSettings(s.Ctx)
	s.Require().NoError(err)
	s.Equal(model.Settings{}, *settings)
}

func (s *Suite) TestSaveAndGetSettings() {
	settings := &model.Settings{
		GamePath:          `C:\Games\Diablo II Resurrected`,
		LastActiveAccount: "a1",
		Preferences: model.Preferences{
			Language:         "en",
			CloseToTray:      true,
			MultiAccountMode: true,
			ViewMode:         "list",
		},
	}
	s.Require().NoError(s.Storage.SaveSettings(s.Ctx, settings))

	got, err := s.Storage.GetSettings(s.Ctx)
	s.Require().NoError(err)
	s.Equal(*settings, *got)

	settings.GamePath = `D:\D2R`
	s.Require().NoError(s.Storage.SaveSettings(s.Ctx, settings))
	got, err = s.Storage.GetSettings(s.Ctx)
	s.Require().NoError(err)
	s.Equal(`D:\D2R`, got.GamePath)
}
