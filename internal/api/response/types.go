package response

import (
	"time"

	"github.com/mcoot/d2r-multiplay/internal/model"
	"github.com/mcoot/d2r-multiplay/internal/services/notify"
	"github.com/mcoot/d2r-multiplay/internal/services/status"
	"github.com/mcoot/d2r-multiplay/internal/services/tools"
)

// Account represents an identity in API responses. The OS password is
// never returned; HasPassword reports whether one is stored.
type Account struct {
	ID                   string `json:"id"`
	WinUser              string `json:"win_user"`
	BnetAccount          string `json:"bnet_account"`
	Note                 string `json:"note,omitempty"`
	Avatar               string `json:"avatar,omitempty"`
	PasswordNeverExpires bool   `json:"password_never_expires"`
	HasPassword          bool   `json:"has_password"`
}

// AccountFromModel converts a model.Account
func AccountFromModel(a *model.Account) Account {
	return Account{
		ID:                   string(a.ID),
		WinUser:              a.WinUser,
		BnetAccount:          a.BnetAccount,
		Note:                 a.Note,
		Avatar:               a.Avatar,
		PasswordNeverExpires: a.PasswordNeverExpires,
		HasPassword:          a.WinPass != "",
	}
}

// AccountsFromModel converts a list of accounts, keeping order
func AccountsFromModel(accounts []model.Account) []Account {
	out := make([]Account, len(accounts))
	for i := range accounts {
		out[i] = AccountFromModel(&accounts[i])
	}
	return out
}

// AccountList is the response for listing identities
type AccountList struct {
	Accounts          []Account `json:"accounts"`
	LastActiveAccount string    `json:"last_active_account,omitempty"`
}

// Settings is the response for the app settings
type Settings struct {
	GamePath          string            `json:"game_path"`
	LastActiveAccount string            `json:"last_active_account,omitempty"`
	Preferences       model.Preferences `json:"preferences"`
}

// SettingsFromModel converts model.Settings
func SettingsFromModel(s model.Settings) Settings {
	return Settings{
		GamePath:          s.GamePath,
		LastActiveAccount: string(s.LastActiveAccount),
		Preferences:       s.Preferences,
	}
}

// Initialized is the response for the profile initialization check
type Initialized struct {
	AccountID   string `json:"account_id"`
	Initialized bool   `json:"initialized"`
}

// LaunchResponse is the response after requesting a launch
type LaunchResponse struct {
	Outcome   string `json:"outcome"`
	Launching bool   `json:"launching"`
	// Notification is set when the launch is waiting on a choice
	Notification *Notification `json:"notification,omitempty"`
}

// AccountStatus represents one identity's process status
type AccountStatus struct {
	AccountID  string `json:"account_id"`
	WinUser    string `json:"win_user"`
	BnetActive bool   `json:"bnet_active"`
	D2RActive  bool   `json:"d2r_active"`
}

// StatusResponse is the response for the status snapshot
type StatusResponse struct {
	Accounts  []AccountStatus `json:"accounts"`
	UpdatedAt *time.Time      `json:"updated_at"`
	Visible   bool            `json:"visible"`
	Launching bool            `json:"launching"`
	// Refreshed is set on manual refresh; false means an in-flight poll was already running
	Refreshed *bool `json:"refreshed,omitempty"`
}

// StatusFromSnapshot joins the snapshot with the configured identities
func StatusFromSnapshot(accounts []model.Account, snap status.Snapshot) []AccountStatus {
	out := make([]AccountStatus, len(accounts))
	for i, a := range accounts {
		st := snap.For(a)
		out[i] = AccountStatus{
			AccountID:  string(a.ID),
			WinUser:    a.WinUser,
			BnetActive: st.BnetActive,
			D2RActive:  st.D2RActive,
		}
	}
	return out
}

// NotificationAction represents one choice on a notification
type NotificationAction struct {
	Index    int    `json:"index"`
	ID       string `json:"id"`
	Label    string `json:"label"`
	Emphasis string `json:"emphasis"`
}

// Notification represents the open notification
type Notification struct {
	ID       uint64               `json:"id"`
	Title    string               `json:"title"`
	Message  string               `json:"message"`
	Severity string               `json:"severity"`
	Actions  []NotificationAction `json:"actions"`
	Running  bool                 `json:"running"`
}

// NotificationFromView converts a notify.View
func NotificationFromView(v notify.View) Notification {
	actions := make([]NotificationAction, len(v.Actions))
	for i, a := range v.Actions {
		actions[i] = NotificationAction{
			Index:    a.Index,
			ID:       a.ID,
			Label:    a.Label,
			Emphasis: string(a.Emphasis),
		}
	}
	return Notification{
		ID:       v.ID,
		Title:    v.Title,
		Message:  v.Message,
		Severity: string(v.Severity),
		Actions:  actions,
		Running:  v.Running,
	}
}

// LogsResponse is the response for the Log Sink, newest first
type LogsResponse struct {
	Entries  []model.LogEntry `json:"entries"`
	Capacity int              `json:"capacity"`
}

// ToolList is the response for listing maintenance tools
type ToolList struct {
	Tools []tools.Tool `json:"tools"`
}

// ToolResult is the response after running a tool
type ToolResult struct {
	Tool   string `json:"tool"`
	Result string `json:"result"`
}

// SystemHealth is the response for the agent pre-flight report
type SystemHealth struct {
	model.InfraHealth
	Whoami string `json:"whoami,omitempty"`
}

// OSUsers is the response for listing local OS users
type OSUsers struct {
	Users []string `json:"users"`
}
