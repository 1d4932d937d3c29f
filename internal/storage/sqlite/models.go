package sqlite

import "github.com/mcoot/d2r-multiplay/internal/model"

// accountRow is the persisted form of a model.Account
type accountRow struct {
	ID                   string `gorm:"primaryKey"`
	Position             int    `gorm:"index"`
	WinUser              string `gorm:"not null"`
	WinPass              string
	BnetAccount          string
	Note                 string
	Avatar               string
	PasswordNeverExpires bool
}

func (accountRow) TableName() string { return "accounts" }

// settingsRow is the single-row settings table; preferences are kept as a JSON column
type settingsRow struct {
	ID                uint `gorm:"primaryKey"`
	GamePath          string
	LastActiveAccount string
	Preferences       model.Preferences `gorm:"serializer:json;type:text"`
}

func (settingsRow) TableName() string { return "settings" }

const settingsRowID = 1

func toRow(a *model.Account, position int) accountRow {
	return accountRow{
		ID:                   string(a.ID),
		Position:             position,
		WinUser:              a.WinUser,
		WinPass:              a.WinPass,
		BnetAccount:          a.BnetAccount,
		Note:                 a.Note,
		Avatar:               a.Avatar,
		PasswordNeverExpires: a.PasswordNeverExpires,
	}
}

func (r accountRow) toModel() model.Account {
	return model.Account{
		ID:                   model.AccountID(r.ID),
		WinUser:              r.WinUser,
		WinPass:              r.WinPass,
		BnetAccount:          r.BnetAccount,
		Note:                 r.Note,
		Avatar:               r.Avatar,
		PasswordNeverExpires: r.PasswordNeverExpires,
	}
}
