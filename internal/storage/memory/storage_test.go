package memory

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/d2r-multiplay/internal/model"
	"github.com/mcoot/d2r-multiplay/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.Suite
	storage *Storage
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.storage = New()
	s.Storage = s.storage
}

func (s *StorageSuite) TestReturnedAccountIsCopy() {
	acc := &model.Account{ID: "a1", WinUser: "Bob"}
	s.Require().NoError(s.storage.SaveAccount(s.Ctx, acc))

	acc.WinUser = "Mallory"
	got, err := s.storage.GetAccount(s.Ctx, "a1")
	s.Require().NoError(err)
	s.Equal("Bob", got.WinUser)

	got.WinUser = "Eve"
	again, _ := s.storage.GetAccount(s.Ctx, "a1")
	s.Equal("Bob", again.WinUser)
}
