package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/d2r-multiplay/internal/api"
	"github.com/mcoot/d2r-multiplay/internal/api/apierr"
	"github.com/mcoot/d2r-multiplay/internal/api/middleware"
	"github.com/mcoot/d2r-multiplay/internal/api/response"
	"github.com/mcoot/d2r-multiplay/internal/backend"
	"github.com/mcoot/d2r-multiplay/internal/factory"
	"github.com/mcoot/d2r-multiplay/internal/model"
	"github.com/mcoot/d2r-multiplay/internal/testutil"
)

// testServer wires the router over a TestApp with a mocked agent
type testServer struct {
	handler http.Handler
	app     *factory.TestApp
}

func newTestServer(t *testing.T, tokenHash string) *testServer {
	t.Helper()

	app := factory.NewTestApp()
	router := api.NewRouter(api.RouterConfig{
		Logger:          testutil.NopLogger(),
		Backend:         app.Backend,
		AccountService:  app.AccountService,
		LaunchSequencer: app.LaunchSequencer,
		StatusPoller:    app.StatusPoller,
		Notifications:   app.Notifications,
		LogSink:         app.LogSink,
		ToolService:     app.ToolService,
		Events:          app.Events,
		TokenHash:       tokenHash,
	})

	return &testServer{handler: router, app: app}
}

func (ts *testServer) request(method, path string, body any, token string) *httptest.ResponseRecorder {
	reqBody := bytes.NewBuffer(nil)
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func createAccount(t *testing.T, ts *testServer, winUser, bnet string) response.Account {
	t.Helper()
	body := map[string]any{"win_user": winUser, "win_pass": "pw-" + winUser, "bnet_account": bnet}
	rr := ts.request(http.MethodPost, "/api/v1/accounts", body, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[response.Account](t, rr)
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t, "")

	rr := ts.request(http.MethodGet, "/api/v1/health", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ok")
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestTokenAuth(t *testing.T) {
	hash, err := middleware.HashToken("s3cret")
	require.NoError(t, err)
	ts := newTestServer(t, hash)

	// Health stays open
	rr := ts.request(http.MethodGet, "/api/v1/health", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/accounts", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/accounts", nil, "wrong")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/accounts", nil, "s3cret")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAccountCRUD(t *testing.T) {
	ts := newTestServer(t, "")

	a := createAccount(t, ts, "alice", "alice#1234")
	assert.Equal(t, "alice", a.WinUser)
	assert.True(t, a.HasPassword)
	assert.NotContains(t, ts.request(http.MethodGet, "/api/v1/accounts/"+a.ID, nil, "").Body.String(), "pw-alice")

	// Duplicate OS user, case and domain prefix ignored
	rr := ts.request(http.MethodPost, "/api/v1/accounts", map[string]any{"win_user": `PC\Alice`}, "")
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeDuplicateWinUser, decode[apierr.ErrorResponse](t, rr).Error.Code)

	// Update without a password keeps the stored one
	rr = ts.request(http.MethodPut, "/api/v1/accounts/"+a.ID,
		map[string]any{"win_user": "alice", "bnet_account": "alice#9999", "note": "main"}, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decode[response.Account](t, rr)
	assert.Equal(t, "alice#9999", updated.BnetAccount)
	assert.True(t, updated.HasPassword)

	stored, err := ts.app.AccountService.Get(context.Background(), model.AccountID(a.ID))
	require.NoError(t, err)
	assert.Equal(t, "pw-alice", stored.WinPass)

	rr = ts.request(http.MethodDelete, "/api/v1/accounts/"+a.ID, nil, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/accounts/"+a.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestReorderAccounts(t *testing.T) {
	ts := newTestServer(t, "")

	a := createAccount(t, ts, "alice", "a")
	b := createAccount(t, ts, "bob", "b")

	rr := ts.request(http.MethodPut, "/api/v1/accounts/order", map[string]any{"ids": []string{b.ID, a.ID}}, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	list := decode[response.AccountList](t, rr)
	require.Len(t, list.Accounts, 2)
	assert.Equal(t, b.ID, list.Accounts[0].ID)

	rr = ts.request(http.MethodPut, "/api/v1/accounts/order", map[string]any{"ids": []string{a.ID}}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLaunchSuccess(t *testing.T) {
	ts := newTestServer(t, "")
	a := createAccount(t, ts, "alice", "a")

	rr := ts.request(http.MethodPost, "/api/v1/accounts/"+a.ID+"/launch", map[string]any{"mode": "bnet_only"}, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := decode[response.LaunchResponse](t, rr)
	assert.Equal(t, "succeeded", resp.Outcome)
	assert.False(t, resp.Launching)
	assert.Nil(t, resp.Notification)

	launches := ts.app.MockBackend.Launches()
	require.Len(t, launches, 1)
	assert.Equal(t, model.LaunchModeBnetOnly, launches[0].Mode)

	rr = ts.request(http.MethodGet, "/api/v1/settings", nil, "")
	assert.Equal(t, a.ID, decode[response.Settings](t, rr).LastActiveAccount)
}

// serveThenDisconnect starts the request, cancels its context once the agent
// launch is in flight, and only then lets the launch finish
func serveThenDisconnect(t *testing.T, ts *testServer, path string) *httptest.ResponseRecorder {
	t.Helper()

	gate := make(chan struct{})
	ts.app.MockBackend.LaunchGate = gate
	ts.app.MockBackend.LaunchStarted = make(chan struct{}, 4)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString("{}")).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		ts.handler.ServeHTTP(rr, req)
		close(done)
	}()

	select {
	case <-ts.app.MockBackend.LaunchStarted:
	case <-time.After(2 * time.Second):
		t.Fatal("launch never reached the agent")
	}
	cancel()

	assert.Never(t, func() bool {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}, 50*time.Millisecond, 5*time.Millisecond, "launch was abandoned with the caller")

	close(gate)
	<-done
	return rr
}

func TestLaunchOutlivesDisconnectedCaller(t *testing.T) {
	ts := newTestServer(t, "")
	a := createAccount(t, ts, "alice", "a")

	rr := serveThenDisconnect(t, ts, "/api/v1/accounts/"+a.ID+"/launch")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "succeeded", decode[response.LaunchResponse](t, rr).Outcome)

	rr = ts.request(http.MethodGet, "/api/v1/settings", nil, "")
	assert.Equal(t, a.ID, decode[response.Settings](t, rr).LastActiveAccount)
}

func TestChosenRetryOutlivesDisconnectedCaller(t *testing.T) {
	ts := newTestServer(t, "")
	a := createAccount(t, ts, "alice", "a")
	ts.app.MockBackend.QueueLaunchError(backend.MarkerConflict)

	rr := ts.request(http.MethodPost, "/api/v1/accounts/"+a.ID+"/launch", nil, "")
	require.Equal(t, "awaiting_choice", decode[response.LaunchResponse](t, rr).Outcome)

	// index 2 resets the conflicting archive and launches again
	rr = serveThenDisconnect(t, ts, "/api/v1/notification/actions/2")
	assert.Equal(t, http.StatusNoContent, rr.Code, rr.Body.String())

	assert.Len(t, ts.app.MockBackend.Launches(), 2)
	rr = ts.request(http.MethodGet, "/api/v1/health", nil, "")
	assert.Contains(t, rr.Body.String(), `"launching":false`)
	rr = ts.request(http.MethodGet, "/api/v1/settings", nil, "")
	assert.Equal(t, a.ID, decode[response.Settings](t, rr).LastActiveAccount)
}

func TestLaunchInvalidMode(t *testing.T) {
	ts := newTestServer(t, "")
	a := createAccount(t, ts, "alice", "a")

	rr := ts.request(http.MethodPost, "/api/v1/accounts/"+a.ID+"/launch", map[string]any{"mode": "turbo"}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, ts.app.MockBackend.Launches())
}

func TestLaunchConflictThroughNotification(t *testing.T) {
	ts := newTestServer(t, "")
	a := createAccount(t, ts, "alice", "a")
	ts.app.MockBackend.QueueLaunchError(backend.MarkerConflict+": archive exists", "")

	rr := ts.request(http.MethodPost, "/api/v1/accounts/"+a.ID+"/launch", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[response.LaunchResponse](t, rr)
	assert.Equal(t, "awaiting_choice", resp.Outcome)
	assert.True(t, resp.Launching)
	require.NotNil(t, resp.Notification)
	require.Len(t, resp.Notification.Actions, 3)

	rr = ts.request(http.MethodGet, "/api/v1/notification", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	n := decode[response.Notification](t, rr)

	// Pick "reset and continue"
	var reset response.NotificationAction
	for _, act := range n.Actions {
		if act.ID == "reset_and_continue" {
			reset = act
		}
	}
	require.NotEmpty(t, reset.ID)

	rr = ts.request(http.MethodPost, "/api/v1/notification/actions/"+strconv.Itoa(reset.Index), nil, "")
	assert.Equal(t, http.StatusNoContent, rr.Code, rr.Body.String())

	assert.Len(t, ts.app.MockBackend.Launches(), 2)
	require.Len(t, ts.app.MockBackend.Resolves(), 1)
	assert.Equal(t, backend.ConflictReset, ts.app.MockBackend.Resolves()[0].Action)

	rr = ts.request(http.MethodGet, "/api/v1/health", nil, "")
	assert.Contains(t, rr.Body.String(), `"launching":false`)

	rr = ts.request(http.MethodGet, "/api/v1/notification", nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestNotificationErrors(t *testing.T) {
	ts := newTestServer(t, "")

	rr := ts.request(http.MethodPost, "/api/v1/notification/dismiss", nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	a := createAccount(t, ts, "alice", "a")
	ts.app.MockBackend.QueueLaunchError(backend.MarkerConflict)
	ts.request(http.MethodPost, "/api/v1/accounts/"+a.ID+"/launch", nil, "")

	rr = ts.request(http.MethodPost, "/api/v1/notification/actions/9", nil, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/notification/actions/x", nil, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/notification/dismiss", nil, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.False(t, ts.app.LaunchSequencer.IsLaunching())
}

func TestStatusRefreshAndVisibility(t *testing.T) {
	ts := newTestServer(t, "")
	a := createAccount(t, ts, "alice", "a")
	createAccount(t, ts, "bob", "b")
	ts.app.MockBackend.Statuses["alice"] = model.AccountStatus{BnetActive: true, D2RActive: true}

	rr := ts.request(http.MethodGet, "/api/v1/status", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	before := decode[response.StatusResponse](t, rr)
	assert.Nil(t, before.UpdatedAt)
	assert.False(t, before.Accounts[0].D2RActive)

	rr = ts.request(http.MethodPost, "/api/v1/status/refresh", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	after := decode[response.StatusResponse](t, rr)
	require.NotNil(t, after.Refreshed)
	assert.True(t, *after.Refreshed)
	assert.NotNil(t, after.UpdatedAt)
	assert.Equal(t, a.ID, after.Accounts[0].AccountID)
	assert.True(t, after.Accounts[0].D2RActive)
	assert.False(t, after.Accounts[1].BnetActive)

	rr = ts.request(http.MethodPut, "/api/v1/status/visibility", map[string]bool{"visible": false}, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, decode[response.StatusResponse](t, rr).Visible)
	assert.False(t, ts.app.StatusPoller.Visible())
}

func TestLogsListAndClear(t *testing.T) {
	ts := newTestServer(t, "")
	ts.app.LogSink.Info(model.LogCategoryLaunch, "first")
	ts.app.LogSink.Warn(model.LogCategoryLaunch, "second")

	rr := ts.request(http.MethodGet, "/api/v1/logs", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	logs := decode[response.LogsResponse](t, rr)
	require.Len(t, logs.Entries, 2)
	assert.Equal(t, "second", logs.Entries[0].Message)

	rr = ts.request(http.MethodDelete, "/api/v1/logs", nil, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, 0, ts.app.LogSink.Len())
}

func TestTools(t *testing.T) {
	ts := newTestServer(t, "")
	ts.app.MockBackend.ToolResults["kill_mutexes"] = "closed 2 handles"

	rr := ts.request(http.MethodGet, "/api/v1/tools", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, decode[response.ToolList](t, rr).Tools)

	rr = ts.request(http.MethodPost, "/api/v1/tools/kill_mutexes", nil, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "closed 2 handles", decode[response.ToolResult](t, rr).Result)

	rr = ts.request(http.MethodPost, "/api/v1/tools/nuke_reset", map[string]any{"confirm": "no"}, "")
	assert.Equal(t, http.StatusPreconditionFailed, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/tools/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestBackendErrorsSurface(t *testing.T) {
	ts := newTestServer(t, "")
	ts.app.MockBackend.ToolErr = &backend.RPCError{Command: "kill_processes", Message: "access is denied"}

	rr := ts.request(http.MethodPost, "/api/v1/tools/kill_processes", nil, "")
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, "access is denied", decode[apierr.ErrorResponse](t, rr).Error.Message)
}

func TestSystemEndpoints(t *testing.T) {
	ts := newTestServer(t, "")
	ts.app.MockBackend.WhoamiUser = `PC\owner`
	ts.app.MockBackend.OSUsers = []string{"owner", "alice"}

	rr := ts.request(http.MethodGet, "/api/v1/system/health", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	health := decode[response.SystemHealth](t, rr)
	assert.True(t, health.BnetPathValid)
	assert.Equal(t, `PC\owner`, health.Whoami)

	rr = ts.request(http.MethodGet, "/api/v1/system/users", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"owner", "alice"}, decode[response.OSUsers](t, rr).Users)
}

func TestSettingsPatch(t *testing.T) {
	ts := newTestServer(t, "")

	body := map[string]any{
		"game_path":   `  D:\Games\Diablo II Resurrected  `,
		"preferences": map[string]any{"language": "en", "close_to_tray": true},
	}
	rr := ts.request(http.MethodPatch, "/api/v1/settings", body, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	s := decode[response.Settings](t, rr)
	assert.Equal(t, `D:\Games\Diablo II Resurrected`, s.GamePath)
	assert.True(t, s.Preferences.CloseToTray)

	// Omitted fields are untouched
	rr = ts.request(http.MethodPatch, "/api/v1/settings", map[string]any{"game_path": `E:\D2R`}, "")
	require.Equal(t, http.StatusOK, rr.Code)
	s = decode[response.Settings](t, rr)
	assert.Equal(t, "en", s.Preferences.Language)
}
