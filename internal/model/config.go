package model

// AppConfig is the persisted application configuration.
// Accounts are kept in display order.
type AppConfig struct {
	Accounts []Account `json:"accounts"`
	Settings
}

// Settings is everything in the configuration except the identities
type Settings struct {
	GamePath          string      `json:"game_path"`
	LastActiveAccount AccountID   `json:"last_active_account,omitempty"`
	Preferences       Preferences `json:"preferences"`
}

// Preferences are app-level settings that do not affect launching
type Preferences struct {
	Language         string `json:"language,omitempty"`
	ThemeColor       string `json:"theme_color,omitempty"`
	CloseToTray      bool   `json:"close_to_tray"`
	EnableLogging    bool   `json:"enable_logging"`
	MultiAccountMode bool   `json:"multi_account_mode"`
	HasShownGuide    bool   `json:"has_shown_guide"`
	ViewMode         string `json:"dashboard_view_mode,omitempty"`
}

// FindAccount returns the account with the given ID, or nil
func (c *AppConfig) FindAccount(id AccountID) *Account {
	for i := range c.Accounts {
		if c.Accounts[i].ID == id {
			return &c.Accounts[i]
		}
	}
	return nil
}
