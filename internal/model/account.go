package model

import "strings"

// AccountID uniquely identifies a configured identity
type AccountID string

// Account binds a local OS user to a game-service account
type Account struct {
	ID                   AccountID `json:"id"`
	WinUser              string    `json:"win_user"`           // may carry a DOMAIN\ prefix
	WinPass              string    `json:"win_pass,omitempty"` // empty for the interactive user
	BnetAccount          string    `json:"bnet_account"`
	Note                 string    `json:"note,omitempty"`
	Avatar               string    `json:"avatar,omitempty"`
	PasswordNeverExpires bool      `json:"password_never_expires"`
}

// LocalName returns the OS username without any domain prefix
func (a *Account) LocalName() string {
	return LocalUserName(a.WinUser)
}

// IsCurrentUser reports whether the account is bound to the given interactive user
func (a *Account) IsCurrentUser(whoami string) bool {
	return strings.EqualFold(a.LocalName(), LocalUserName(whoami))
}

// LocalUserName strips a DOMAIN\ prefix from an OS username
func LocalUserName(user string) string {
	if i := strings.LastIndex(user, `\`); i >= 0 {
		return user[i+1:]
	}
	return user
}

// SameWinUser compares two OS usernames the way the OS does:
// case-insensitively and ignoring the domain prefix.
func SameWinUser(a, b string) bool {
	return strings.EqualFold(LocalUserName(a), LocalUserName(b))
}

// AccountStatus is a derived snapshot of the processes running under an OS user
type AccountStatus struct {
	BnetActive bool `json:"bnet_active"` // service client (launcher) running
	D2RActive  bool `json:"d2r_active"`  // game client running
}

// Active reports whether anything is running for the user
func (s AccountStatus) Active() bool {
	return s.BnetActive || s.D2RActive
}

// LaunchMode selects what the backend starts for an identity
type LaunchMode string

const (
	LaunchModeFull     LaunchMode = "full"      // game client
	LaunchModeBnetOnly LaunchMode = "bnet_only" // service client only
)

// Valid reports whether the mode is a known launch mode
func (m LaunchMode) Valid() bool {
	return m == LaunchModeFull || m == LaunchModeBnetOnly
}

// InfraHealth is the advisory pre-flight report for launching
type InfraHealth struct {
	AgentConfigWritable bool            `json:"agent_config_writable"`
	BnetPathValid       bool            `json:"bnet_path_valid"`
	BnetAllUsers        bool            `json:"is_bnet_all_users"`
	ProfilesReady       map[string]bool `json:"sandbox_profiles_ready,omitempty"`
}

// Healthy reports whether nothing in the report needs attention
func (h InfraHealth) Healthy() bool {
	return h.AgentConfigWritable && h.BnetPathValid
}
