package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/mcoot/d2r-multiplay/internal/api/response"
	"github.com/mcoot/d2r-multiplay/internal/events"
	"github.com/mcoot/d2r-multiplay/internal/model"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to w
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		o.printJSON(map[string]string{"message": msg})
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

// PrintEvent outputs one stream event. JSON output is one object per line.
func (o *Output) PrintEvent(name string, data []byte) error {
	if o.format == "json" {
		return json.NewEncoder(o.w).Encode(struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}{name, data})
	}

	switch name {
	case events.EventConnected:
		fmt.Fprintln(o.w, "Watching; press Ctrl+C to stop")
	case events.EventLog:
		var e model.LogEntry
		if err := json.Unmarshal(data, &e); err != nil {
			return fmt.Errorf("bad %s event: %w", name, err)
		}
		o.printLogEntry(e)
	case events.EventNotification:
		var n events.NotificationChanged
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("bad %s event: %w", name, err)
		}
		if !n.Open || n.Notification == nil {
			fmt.Fprintln(o.w, "Notification closed")
			return nil
		}
		o.printNotification(response.NotificationFromView(*n.Notification))
	case events.EventStatus:
		var st events.StatusChanged
		if err := json.Unmarshal(data, &st); err != nil {
			return fmt.Errorf("bad %s event: %w", name, err)
		}
		users := make([]string, 0, len(st.Processes))
		for user := range st.Processes {
			users = append(users, user)
		}
		slices.Sort(users)
		parts := make([]string, len(users))
		for i, user := range users {
			p := st.Processes[user]
			parts[i] = fmt.Sprintf("%s launcher:%s game:%s", user, onOff(p.BnetActive), onOff(p.D2RActive))
		}
		fmt.Fprintf(o.w, "%s status: %s\n", st.UpdatedAt.Local().Format(time.TimeOnly), strings.Join(parts, ", "))
	}
	return nil
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case response.Account:
		o.printAccount(v)
	case response.AccountList:
		o.printAccountList(v)
	case response.Settings:
		o.printSettings(v)
	case response.Initialized:
		fmt.Fprintf(o.w, "Initialized: %s\n", yesNo(v.Initialized))
	case response.LaunchResponse:
		o.printLaunch(v)
	case response.Notification:
		o.printNotification(v)
	case response.StatusResponse:
		o.printStatus(v)
	case response.LogsResponse:
		o.printLogs(v)
	case response.ToolList:
		o.printTools(v)
	case response.ToolResult:
		fmt.Fprintf(o.w, "%s: %s\n", v.Tool, v.Result)
	case response.SystemHealth:
		o.printSystemHealth(v)
	case response.OSUsers:
		for _, u := range v.Users {
			fmt.Fprintln(o.w, u)
		}
	case HealthResult:
		fmt.Fprintf(o.w, "Status: %s\n", v.Status)
		fmt.Fprintf(o.w, "Launching: %s\n", yesNo(v.Launching))
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// HealthResult is the daemon liveness response
type HealthResult struct {
	Status    string `json:"status"`
	Launching bool   `json:"launching"`
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func (o *Output) printAccount(a response.Account) {
	fmt.Fprintf(o.w, "Account: %s (%s)\n", a.BnetAccount, a.ID)
	fmt.Fprintf(o.w, "OS user: %s\n", a.WinUser)
	if a.Note != "" {
		fmt.Fprintf(o.w, "Note: %s\n", a.Note)
	}
	fmt.Fprintf(o.w, "Password stored: %s\n", yesNo(a.HasPassword))
	fmt.Fprintf(o.w, "Password never expires: %s\n", yesNo(a.PasswordNeverExpires))
}

func (o *Output) printAccountList(l response.AccountList) {
	if len(l.Accounts) == 0 {
		fmt.Fprintln(o.w, "No accounts configured")
		return
	}
	for i, a := range l.Accounts {
		marker := " "
		if a.ID == l.LastActiveAccount {
			marker = "*"
		}
		fmt.Fprintf(o.w, "%s %d. %-20s %-24s %s\n", marker, i+1, a.WinUser, a.BnetAccount, a.ID)
	}
}

func (o *Output) printSettings(s response.Settings) {
	fmt.Fprintf(o.w, "Game path: %s\n", s.GamePath)
	if s.LastActiveAccount != "" {
		fmt.Fprintf(o.w, "Last active: %s\n", s.LastActiveAccount)
	}
	fmt.Fprintf(o.w, "Language: %s\n", s.Preferences.Language)
	fmt.Fprintf(o.w, "Multi-account mode: %s\n", yesNo(s.Preferences.MultiAccountMode))
}

func (o *Output) printLaunch(l response.LaunchResponse) {
	switch l.Outcome {
	case "succeeded":
		fmt.Fprintln(o.w, "Launched")
	case "failed":
		fmt.Fprintln(o.w, "Launch failed; see `multiplay logs`")
	default:
		fmt.Fprintln(o.w, "Waiting for a decision")
	}
	if l.Notification != nil {
		fmt.Fprintln(o.w)
		o.printNotification(*l.Notification)
	}
}

func (o *Output) printNotification(n response.Notification) {
	fmt.Fprintf(o.w, "[%s] %s\n", strings.ToUpper(n.Severity), n.Title)
	for _, line := range strings.Split(n.Message, "\n") {
		fmt.Fprintf(o.w, "  %s\n", line)
	}
	if n.Running {
		fmt.Fprintln(o.w, "  (an action is running)")
	}
	for _, a := range n.Actions {
		fmt.Fprintf(o.w, "  [%d] %s\n", a.Index, a.Label)
	}
}

func (o *Output) printStatus(s response.StatusResponse) {
	for _, a := range s.Accounts {
		fmt.Fprintf(o.w, "%-20s launcher: %-4s game: %s\n", a.WinUser, onOff(a.BnetActive), onOff(a.D2RActive))
	}
	if s.UpdatedAt != nil {
		fmt.Fprintf(o.w, "Updated: %s\n", s.UpdatedAt.Local().Format(time.TimeOnly))
	} else {
		fmt.Fprintln(o.w, "Not polled yet")
	}
	if s.Launching {
		fmt.Fprintln(o.w, "A launch is in progress")
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func (o *Output) printLogs(l response.LogsResponse) {
	if len(l.Entries) == 0 {
		fmt.Fprintln(o.w, "Log is empty")
		return
	}
	// stored newest first; print oldest first like a terminal log
	for i := len(l.Entries) - 1; i >= 0; i-- {
		o.printLogEntry(l.Entries[i])
	}
}

func (o *Output) printLogEntry(e model.LogEntry) {
	fmt.Fprintf(o.w, "%s %-7s %s\n", e.Time.Local().Format(time.TimeOnly), strings.ToUpper(string(e.Level)), e.Message)
}

func (o *Output) printTools(l response.ToolList) {
	for _, t := range l.Tools {
		flags := ""
		if t.Destructive {
			flags += " [confirm]"
		}
		if t.NeedsAccount {
			flags += " [account=<id>]"
		}
		fmt.Fprintf(o.w, "%-24s %s%s\n", t.Name, t.Description, flags)
	}
}

func (o *Output) printSystemHealth(h response.SystemHealth) {
	if h.Whoami != "" {
		fmt.Fprintf(o.w, "Interactive user: %s\n", h.Whoami)
	}
	fmt.Fprintf(o.w, "Agent config writable: %s\n", yesNo(h.AgentConfigWritable))
	fmt.Fprintf(o.w, "Launcher path valid: %s\n", yesNo(h.BnetPathValid))
	fmt.Fprintf(o.w, "Launcher installed for all users: %s\n", yesNo(h.BnetAllUsers))
	for user, ready := range h.ProfilesReady {
		fmt.Fprintf(o.w, "Profile %s ready: %s\n", user, yesNo(ready))
	}
}
