package request

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// CreateAccountRequest is the request body for adding an identity
type CreateAccountRequest struct {
	WinUser              string `json:"win_user"`
	WinPass              string `json:"win_pass,omitempty"`
	BnetAccount          string `json:"bnet_account"`
	Note                 string `json:"note,omitempty"`
	Avatar               string `json:"avatar,omitempty"`
	PasswordNeverExpires bool   `json:"password_never_expires"`
	CreateOSUser         bool   `json:"create_os_user,omitempty"`
}

// UpdateAccountRequest is the request body for editing an identity.
// The identifier comes from the path and cannot be changed. A nil WinPass
// keeps the stored password.
type UpdateAccountRequest struct {
	WinUser              string  `json:"win_user"`
	WinPass              *string `json:"win_pass,omitempty"`
	BnetAccount          string  `json:"bnet_account"`
	Note                 string  `json:"note,omitempty"`
	Avatar               string  `json:"avatar,omitempty"`
	PasswordNeverExpires bool    `json:"password_never_expires"`
}

// ReorderRequest is the request body for setting the display order
type ReorderRequest struct {
	IDs []string `json:"ids"`
}

// PasswordPolicyRequest is the request body for the password-never-expires flag
type PasswordPolicyRequest struct {
	NeverExpires bool `json:"never_expires"`
}

// LaunchRequest is the request body for launching an identity
type LaunchRequest struct {
	Mode  string `json:"mode,omitempty"`
	Force bool   `json:"force,omitempty"`
}

// VisibilityRequest is the request body for reporting view visibility
type VisibilityRequest struct {
	Visible bool `json:"visible"`
}

// RunToolRequest is the request body for running a maintenance tool
type RunToolRequest struct {
	Args    map[string]string `json:"args,omitempty"`
	Confirm string            `json:"confirm,omitempty"`
}

// UpdateSettingsRequest is the request body for the app settings.
// Nil fields are left unchanged.
type UpdateSettingsRequest struct {
	GamePath    *string      `json:"game_path,omitempty"`
	Preferences *Preferences `json:"preferences,omitempty"`
}

// Preferences mirrors model.Preferences on the wire
type Preferences struct {
	Language         string `json:"language,omitempty"`
	ThemeColor       string `json:"theme_color,omitempty"`
	CloseToTray      bool   `json:"close_to_tray"`
	EnableLogging    bool   `json:"enable_logging"`
	MultiAccountMode bool   `json:"multi_account_mode"`
	HasShownGuide    bool   `json:"has_shown_guide"`
	ViewMode         string `json:"dashboard_view_mode,omitempty"`
}

// Decode reads a JSON body into v. An empty body leaves v untouched.
func Decode(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
