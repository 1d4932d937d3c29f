package mocks

import (
	"context"
	"errors"
	"sync"

	"github.com/mcoot/d2r-multiplay/internal/backend"
	"github.com/mcoot/d2r-multiplay/internal/model"
)

// LaunchCall records the arguments of one Launch call
type LaunchCall struct {
	Account  model.Account
	GamePath string
	Mode     model.LaunchMode
	Force    bool
}

// ResolveCall records the arguments of one ResolveConflict call
type ResolveCall struct {
	AccountID model.AccountID
	Action    backend.ConflictAction
}

// ToolCall records the arguments of one RunTool call
type ToolCall struct {
	Name string
	Args map[string]string
}

// MockBackend is a scriptable in-process Backend for testing.
// Launch results are consumed from a queue; an empty queue means success.
type MockBackend struct {
	mu sync.Mutex

	launchErrs  []error
	LaunchCalls []LaunchCall

	// LaunchGate, when set, blocks Launch until it is closed or the context ends
	LaunchGate chan struct{}
	// LaunchStarted, when set, receives once per launch before the gate is awaited
	LaunchStarted chan struct{}

	ResolveErr   error
	ResolveCalls []ResolveCall

	Health      *model.InfraHealth
	HealthErr   error
	HealthCalls int

	Statuses    map[string]model.AccountStatus
	StatusErr   error
	StatusCalls [][]string
	// StatusGate, when set, blocks GetAccountsProcessStatus until it is closed or receives
	StatusGate chan struct{}
	// StatusStarted, when set, receives once per status call before the gate is awaited
	StatusStarted chan struct{}

	UserSwitchErr   error
	UserSwitchCalls int

	Initialized  map[string]bool
	OSUsers      []string
	WhoamiUser   string
	CreatedUsers []string
	PolicyCalls  map[string]bool
	AdminErr     error
	// AdminGate, when set, blocks CreateOSUser and SetPasswordNeverExpires until closed
	AdminGate chan struct{}

	ToolResults map[string]string
	ToolErr     error
	ToolCalls   []ToolCall
}

// Ensure MockBackend implements Backend
var _ backend.Backend = (*MockBackend)(nil)

// NewMockBackend creates a MockBackend reporting healthy infrastructure
func NewMockBackend() *MockBackend {
	return &MockBackend{
		Health:      &model.InfraHealth{AgentConfigWritable: true, BnetPathValid: true},
		Statuses:    make(map[string]model.AccountStatus),
		Initialized: make(map[string]bool),
		PolicyCalls: make(map[string]bool),
		ToolResults: make(map[string]string),
	}
}

// QueueLaunchError queues raw agent error messages for upcoming Launch calls.
// An empty string queues a success.
func (m *MockBackend) QueueLaunchError(raws ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, raw := range raws {
		if raw == "" {
			m.launchErrs = append(m.launchErrs, nil)
			continue
		}
		m.launchErrs = append(m.launchErrs, backend.NewLaunchError(raw))
	}
}

// Launch records the call and returns the next queued result
func (m *MockBackend) Launch(ctx context.Context, account model.Account, gamePath string, mode model.LaunchMode, force bool) (string, error) {
	m.mu.Lock()
	m.LaunchCalls = append(m.LaunchCalls, LaunchCall{Account: account, GamePath: gamePath, Mode: mode, Force: force})
	gate, started := m.LaunchGate, m.LaunchStarted
	m.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.launchErrs) == 0 {
		return "launched", nil
	}
	err := m.launchErrs[0]
	m.launchErrs = m.launchErrs[1:]
	if err != nil {
		return "", err
	}
	return "launched", nil
}

// ResolveConflict records the call and returns ResolveErr
func (m *MockBackend) ResolveConflict(_ context.Context, accountID model.AccountID, action backend.ConflictAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ResolveCalls = append(m.ResolveCalls, ResolveCall{AccountID: accountID, Action: action})
	return m.ResolveErr
}

// GetInfraHealth returns Health or HealthErr
func (m *MockBackend) GetInfraHealth(_ context.Context, _ []model.Account) (*model.InfraHealth, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.HealthCalls++
	if m.HealthErr != nil {
		return nil, m.HealthErr
	}
	h := *m.Health
	return &h, nil
}

// GetAccountsProcessStatus returns the configured statuses for the requested users
func (m *MockBackend) GetAccountsProcessStatus(ctx context.Context, usernames []string) (map[string]model.AccountStatus, error) {
	m.mu.Lock()
	m.StatusCalls = append(m.StatusCalls, append([]string(nil), usernames...))
	gate, started := m.StatusGate, m.StatusStarted
	m.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.StatusErr != nil {
		return nil, m.StatusErr
	}
	result := make(map[string]model.AccountStatus, len(usernames))
	for _, u := range usernames {
		result[u] = m.Statuses[u]
	}
	return result, nil
}

// StatusCallCount returns the number of status queries issued
func (m *MockBackend) StatusCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.StatusCalls)
}

// OpenUserSwitch records the call
func (m *MockBackend) OpenUserSwitch(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UserSwitchCalls++
	return m.UserSwitchErr
}

// CheckUserInitialization reports Initialized[username]
func (m *MockBackend) CheckUserInitialization(_ context.Context, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Initialized[username], m.AdminErr
}

// CreateOSUser records the created user. Blocks on AdminGate when set.
func (m *MockBackend) CreateOSUser(ctx context.Context, username, _ string, _ bool) error {
	if err := m.waitAdmin(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AdminErr != nil {
		return m.AdminErr
	}
	m.CreatedUsers = append(m.CreatedUsers, username)
	return nil
}

// SetPasswordNeverExpires records the policy. Blocks on AdminGate when set.
func (m *MockBackend) SetPasswordNeverExpires(ctx context.Context, username string, neverExpires bool) error {
	if err := m.waitAdmin(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AdminErr != nil {
		return m.AdminErr
	}
	m.PolicyCalls[username] = neverExpires
	return nil
}

func (m *MockBackend) waitAdmin(ctx context.Context) error {
	m.mu.Lock()
	gate := m.AdminGate
	m.mu.Unlock()
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ListOSUsers returns OSUsers
func (m *MockBackend) ListOSUsers(_ context.Context, _ bool) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.OSUsers...), m.AdminErr
}

// Whoami returns WhoamiUser
func (m *MockBackend) Whoami(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WhoamiUser == "" {
		return "", errors.New("whoami not configured")
	}
	return m.WhoamiUser, nil
}

// RunTool records the call and returns ToolResults[name] or ToolErr
func (m *MockBackend) RunTool(_ context.Context, name string, args map[string]string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ToolCalls = append(m.ToolCalls, ToolCall{Name: name, Args: args})
	if m.ToolErr != nil {
		return "", m.ToolErr
	}
	return m.ToolResults[name], nil
}

// Launches returns a copy of the recorded Launch calls
func (m *MockBackend) Launches() []LaunchCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]LaunchCall(nil), m.LaunchCalls...)
}

// Resolves returns a copy of the recorded ResolveConflict calls
func (m *MockBackend) Resolves() []ResolveCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ResolveCall(nil), m.ResolveCalls...)
}
