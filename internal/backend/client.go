package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mcoot/d2r-multiplay/internal/model"
)

// Command names understood by the agent
const (
	CmdLaunchGame               = "launch_game"
	CmdResolveLaunchConflict    = "resolve_launch_conflict"
	CmdGetInfraHealth           = "get_infra_health"
	CmdGetAccountsProcessStatus = "get_accounts_process_status"
	CmdOpenUserSwitch           = "open_user_switch"
	CmdCheckUserInitialization  = "check_user_initialization"
	CmdCreateWindowsUser        = "create_windows_user"
	CmdSetPasswordNeverExpires  = "set_password_never_expires"
	CmdGetWindowsUsers          = "get_windows_users"
	CmdGetWhoami                = "get_whoami"
)

// Config holds agent connection settings
type Config struct {
	// URL is the agent base URL (e.g., http://127.0.0.1:47810)
	URL string
	// Timeout bounds a single HTTP round-trip; zero means no timeout
	Timeout time.Duration
	// Token is sent as a bearer token when set
	Token string
}

// DefaultConfig returns sensible defaults for the agent connection.
// Launches can block for a long time while the agent cleans up, so the
// default round-trip timeout is generous.
func DefaultConfig() Config {
	return Config{
		URL:     "http://127.0.0.1:47810",
		Timeout: 5 * time.Minute,
	}
}

// Client is an HTTP JSON client for the agent's command endpoint
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// Ensure Client implements the interface
var _ Backend = (*Client)(nil)

// NewClient creates a new agent client
func NewClient(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(cfg.URL, "/"),
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger.With(slog.String("component", "backend-client")),
	}
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

// invoke posts args to /rpc/{command} and decodes the result into out
func (c *Client) invoke(ctx context.Context, command string, args, out any) error {
	var body io.Reader = http.NoBody
	if args != nil {
		data, err := json.Marshal(args)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", command, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rpc/"+command, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Command: command, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Command: command, Err: err}
	}

	c.logger.Debug("agent call",
		slog.String("command", command),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)))

	var rr rpcResponse
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &rr); err != nil && resp.StatusCode < 400 {
			return fmt.Errorf("failed to parse %s response: %w", command, err)
		}
	}

	if resp.StatusCode >= 400 {
		msg := rr.Error
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
		}
		return &RPCError{Command: command, Message: msg}
	}

	if out != nil && len(rr.Result) > 0 {
		if err := json.Unmarshal(rr.Result, out); err != nil {
			return fmt.Errorf("failed to parse %s result: %w", command, err)
		}
	}
	return nil
}

// Launch starts the launcher (and game) for an account.
// Agent errors come back classified as *LaunchError.
func (c *Client) Launch(ctx context.Context, account model.Account, gamePath string, mode model.LaunchMode, force bool) (string, error) {
	args := map[string]any{
		"account":  account,
		"gamePath": gamePath,
		"bnetOnly": mode == model.LaunchModeBnetOnly,
		"force":    force,
	}
	var result string
	if err := c.invoke(ctx, CmdLaunchGame, args, &result); err != nil {
		return "", AsLaunchError(rpcMessage(err))
	}
	return result, nil
}

// ResolveConflict asks the agent to clear a launch conflict
func (c *Client) ResolveConflict(ctx context.Context, accountID model.AccountID, action ConflictAction) error {
	args := map[string]any{
		"accountId": accountID,
		"action":    action,
	}
	return c.invoke(ctx, CmdResolveLaunchConflict, args, nil)
}

// GetInfraHealth returns the advisory launch pre-flight report
func (c *Client) GetInfraHealth(ctx context.Context, accounts []model.Account) (*model.InfraHealth, error) {
	var report struct {
		model.InfraHealth
		Profiles [][2]any `json:"sandbox_profiles_ready"`
	}
	if err := c.invoke(ctx, CmdGetInfraHealth, map[string]any{"accounts": accounts}, &report); err != nil {
		return nil, err
	}
	health := report.InfraHealth
	health.ProfilesReady = profilesFromPairs(report.Profiles)
	return &health, nil
}

// GetAccountsProcessStatus returns per-username process state
func (c *Client) GetAccountsProcessStatus(ctx context.Context, usernames []string) (map[string]model.AccountStatus, error) {
	result := make(map[string]model.AccountStatus)
	if err := c.invoke(ctx, CmdGetAccountsProcessStatus, map[string]any{"usernames": usernames}, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// OpenUserSwitch opens the OS account switch surface
func (c *Client) OpenUserSwitch(ctx context.Context) error {
	return c.invoke(ctx, CmdOpenUserSwitch, nil, nil)
}

// CheckUserInitialization reports whether the OS user completed first login
func (c *Client) CheckUserInitialization(ctx context.Context, username string) (bool, error) {
	var ok bool
	err := c.invoke(ctx, CmdCheckUserInitialization, map[string]any{"username": username}, &ok)
	return ok, err
}

// CreateOSUser creates a local OS user
func (c *Client) CreateOSUser(ctx context.Context, username, password string, neverExpires bool) error {
	args := map[string]any{
		"username":     username,
		"password":     password,
		"neverExpires": neverExpires,
	}
	return c.invoke(ctx, CmdCreateWindowsUser, args, nil)
}

// SetPasswordNeverExpires syncs the password expiry policy for an OS user
func (c *Client) SetPasswordNeverExpires(ctx context.Context, username string, neverExpires bool) error {
	args := map[string]any{
		"username":     username,
		"neverExpires": neverExpires,
	}
	return c.invoke(ctx, CmdSetPasswordNeverExpires, args, nil)
}

// ListOSUsers lists local OS users
func (c *Client) ListOSUsers(ctx context.Context, deepScan bool) ([]string, error) {
	var users []string
	err := c.invoke(ctx, CmdGetWindowsUsers, map[string]any{"deepScan": deepScan}, &users)
	return users, err
}

// Whoami returns the interactive OS user
func (c *Client) Whoami(ctx context.Context) (string, error) {
	var user string
	err := c.invoke(ctx, CmdGetWhoami, nil, &user)
	return user, err
}

// RunTool invokes a maintenance command by name
func (c *Client) RunTool(ctx context.Context, name string, args map[string]string) (string, error) {
	var body any
	if len(args) > 0 {
		body = args
	}
	var result string
	if err := c.invoke(ctx, name, body, &result); err != nil {
		return "", err
	}
	return result, nil
}

// rpcMessage turns an agent error into a LaunchError carrying the raw agent
// message; transport failures pass through unchanged.
func rpcMessage(err error) error {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return NewLaunchError(rpcErr.Message)
	}
	return err
}

func profilesFromPairs(pairs [][2]any) map[string]bool {
	if len(pairs) == 0 {
		return nil
	}
	ready := make(map[string]bool, len(pairs))
	for _, p := range pairs {
		user, _ := p[0].(string)
		ok, _ := p[1].(bool)
		if user != "" {
			ready[user] = ok
		}
	}
	return ready
}
