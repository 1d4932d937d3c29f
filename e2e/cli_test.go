package e2e_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAgent speaks the agent's /rpc/{command} protocol
type fakeAgent struct {
	mu       sync.Mutex
	server   *httptest.Server
	calls    []string
	launches int
	// launchErrors are returned by successive launch_game calls; "" is success
	launchErrors []string
}

func startFakeAgent(t *testing.T) *fakeAgent {
	t.Helper()
	a := &fakeAgent{}
	a.server = httptest.NewServer(http.HandlerFunc(a.serve))
	t.Cleanup(a.server.Close)
	return a
}

func (a *fakeAgent) serve(w http.ResponseWriter, r *http.Request) {
	cmd := strings.TrimPrefix(r.URL.Path, "/rpc/")
	args := map[string]any{}
	_ = json.NewDecoder(r.Body).Decode(&args)

	a.mu.Lock()
	a.calls = append(a.calls, cmd)
	var result any
	var errMsg string
	switch cmd {
	case "launch_game":
		a.launches++
		if len(a.launchErrors) > 0 {
			errMsg = a.launchErrors[0]
			a.launchErrors = a.launchErrors[1:]
		}
		result = "launched"
	case "resolve_launch_conflict":
		result = nil
	case "get_infra_health":
		result = map[string]any{"agent_config_writable": true, "bnet_path_valid": true}
	case "get_accounts_process_status":
		status := map[string]any{}
		if names, ok := args["usernames"].([]any); ok {
			for _, n := range names {
				status[fmt.Sprint(n)] = map[string]bool{"bnet_active": true, "d2r_active": false}
			}
		}
		result = status
	case "get_whoami":
		result = `PC\owner`
	case "cleanup_archives":
		result = "removed 0 archives"
	default:
		errMsg = "unknown command " + cmd
	}
	a.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if errMsg != "" {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": errMsg})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"result": result})
}

func (a *fakeAgent) queueLaunchErrors(errs ...string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.launchErrors = append(a.launchErrors, errs...)
}

func (a *fakeAgent) called(cmd string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, c := range a.calls {
		if c == cmd {
			n++
		}
	}
	return n
}

// cliRunner manages CLI binary execution
type cliRunner struct {
	binaryPath string
	serverURL  string
	tokenFile  string
}

func buildCLI(t *testing.T) string {
	t.Helper()

	projectRoot := findProjectRoot(t)
	binaryPath := filepath.Join(t.TempDir(), "multiplay-test")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/multiplay")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "failed to build CLI: %s", string(output))
	return binaryPath
}

func (r *cliRunner) run(args ...string) (string, error) {
	return r.runWithInput("", args...)
}

func (r *cliRunner) runWithInput(stdin string, args ...string) (string, error) {
	fullArgs := append([]string{
		"--server", r.serverURL,
		"--token-file", r.tokenFile,
		"--output", "json",
	}, args...)

	cmd := exec.Command(r.binaryPath, fullArgs...)
	cmd.Stdin = strings.NewReader(stdin)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

func freePort(t *testing.T) string {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	_, port, err := net.SplitHostPort(listener.Addr().String())
	require.NoError(t, err)
	require.NoError(t, listener.Close())
	return port
}

// startDaemon runs "multiplay serve" against the fake agent with a
// throwaway SQLite database
func startDaemon(t *testing.T, binaryPath string, agent *fakeAgent, env ...string) *cliRunner {
	t.Helper()

	port := freePort(t)
	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, binaryPath, "serve", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	cmd.Env = append(os.Environ(),
		"MULTIPLAY_PORT="+port,
		"MULTIPLAY_BACKEND_URL="+agent.server.URL,
		"MULTIPLAY_STORAGE=sqlite",
		"MULTIPLAY_SQLITE_PATH="+filepath.Join(t.TempDir(), "multiplay.db"),
		"MULTIPLAY_LOG_LEVEL=error",
	)
	cmd.Env = append(cmd.Env, env...)
	require.NoError(t, cmd.Start())
	t.Cleanup(func() {
		cancel()
		_ = cmd.Wait()
	})

	serverURL := "http://127.0.0.1:" + port
	waitForServer(t, serverURL+"/api/v1/health")

	return &cliRunner{
		binaryPath: binaryPath,
		serverURL:  serverURL,
		tokenFile:  filepath.Join(t.TempDir(), "token"),
	}
}

func waitForServer(t *testing.T, url string) {
	t.Helper()

	client := &http.Client{Timeout: 100 * time.Millisecond}
	deadline := time.Now().Add(10 * time.Second)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Fatal("server did not become ready in time")
}

// Response types for JSON parsing
type accountResponse struct {
	ID          string `json:"id"`
	WinUser     string `json:"win_user"`
	BnetAccount string `json:"bnet_account"`
	HasPassword bool   `json:"has_password"`
}

type accountListResponse struct {
	Accounts          []accountResponse `json:"accounts"`
	LastActiveAccount string            `json:"last_active_account"`
}

type launchResponse struct {
	Outcome   string `json:"outcome"`
	Launching bool   `json:"launching"`
}

type statusResponse struct {
	Accounts []struct {
		AccountID  string `json:"account_id"`
		BnetActive bool   `json:"bnet_active"`
		D2RActive  bool   `json:"d2r_active"`
	} `json:"accounts"`
}

type logsResponse struct {
	Entries []struct {
		Message string `json:"message"`
		Level   string `json:"level"`
	} `json:"entries"`
}

// firstJSON decodes the first JSON document in output; the prompt loop
// prints more than one
func firstJSON(t *testing.T, output string, v any) {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(output))
	require.NoError(t, dec.Decode(v), "output: %s", output)
}

func addAccount(t *testing.T, cli *cliRunner, winUser, bnet string) accountResponse {
	t.Helper()
	output, err := cli.run("accounts", "add", winUser, bnet, "--password", "pw")
	require.NoError(t, err, "output: %s", output)
	var a accountResponse
	firstJSON(t, output, &a)
	return a
}

// Tests

func TestCLI_AccountsPersistAcrossCommands(t *testing.T) {
	bin := buildCLI(t)
	agent := startFakeAgent(t)
	cli := startDaemon(t, bin, agent)

	alice := addAccount(t, cli, "alice", "alice#1111")
	bob := addAccount(t, cli, "bob", "bob#2222")
	assert.True(t, alice.HasPassword)

	output, err := cli.run("accounts", "order", bob.ID, alice.ID)
	require.NoError(t, err, "output: %s", output)

	output, err = cli.run("accounts", "list")
	require.NoError(t, err, "output: %s", output)
	var list accountListResponse
	firstJSON(t, output, &list)
	require.Len(t, list.Accounts, 2)
	assert.Equal(t, bob.ID, list.Accounts[0].ID)
	assert.Equal(t, alice.ID, list.Accounts[1].ID)

	output, err = cli.run("accounts", "add", "ALICE", "dup#3333")
	assert.Error(t, err)
	assert.Contains(t, output, "DUPLICATE_WIN_USER")
}

func TestCLI_LaunchConflictPrompt(t *testing.T) {
	bin := buildCLI(t)
	agent := startFakeAgent(t)
	cli := startDaemon(t, bin, agent)

	alice := addAccount(t, cli, "alice", "alice#1111")
	agent.queueLaunchErrors("CONFLICT: archive exists", "")

	// index 1 is "delete and continue"
	output, err := cli.runWithInput("1\n", "launch", alice.ID)
	require.NoError(t, err, "output: %s", output)

	var launch launchResponse
	firstJSON(t, output, &launch)
	assert.Equal(t, "awaiting_choice", launch.Outcome)
	assert.True(t, launch.Launching)

	assert.Equal(t, 2, agent.called("launch_game"))
	assert.Equal(t, 1, agent.called("resolve_launch_conflict"))

	output, err = cli.run("accounts", "list")
	require.NoError(t, err)
	var list accountListResponse
	firstJSON(t, output, &list)
	assert.Equal(t, alice.ID, list.LastActiveAccount)

	output, err = cli.run("logs")
	require.NoError(t, err)
	var logs logsResponse
	firstJSON(t, output, &logs)
	require.NotEmpty(t, logs.Entries)
	assert.Equal(t, "success", logs.Entries[0].Level)
}

func TestCLI_LauncherNotFoundFails(t *testing.T) {
	bin := buildCLI(t)
	agent := startFakeAgent(t)
	cli := startDaemon(t, bin, agent)

	alice := addAccount(t, cli, "alice", "alice#1111")
	agent.queueLaunchErrors("Launch failed: BNET_NOT_FOUND")

	output, err := cli.run("launch", alice.ID)
	require.NoError(t, err, "output: %s", output)
	var launch launchResponse
	firstJSON(t, output, &launch)
	assert.Equal(t, "failed", launch.Outcome)
	assert.False(t, launch.Launching)

	output, err = cli.run("logs")
	require.NoError(t, err)
	assert.Contains(t, output, "Battle.net launcher not found")
}

func TestCLI_StatusRefresh(t *testing.T) {
	bin := buildCLI(t)
	agent := startFakeAgent(t)
	cli := startDaemon(t, bin, agent)

	alice := addAccount(t, cli, "alice", "alice#1111")

	output, err := cli.run("status", "--refresh")
	require.NoError(t, err, "output: %s", output)
	var st statusResponse
	firstJSON(t, output, &st)
	require.Len(t, st.Accounts, 1)
	assert.Equal(t, alice.ID, st.Accounts[0].AccountID)
	assert.True(t, st.Accounts[0].BnetActive)
	assert.False(t, st.Accounts[0].D2RActive)
}

func TestCLI_ToolsAndTokenAuth(t *testing.T) {
	bin := buildCLI(t)
	agent := startFakeAgent(t)

	// Generate a token with the CLI, then start a daemon that requires it
	tokenFile := filepath.Join(t.TempDir(), "token")
	out, err := exec.Command(bin, "--token-file", tokenFile, "token", "new").CombinedOutput()
	require.NoError(t, err, "output: %s", out)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	hash := lines[len(lines)-1]

	cli := startDaemon(t, bin, agent, "MULTIPLAY_TOKEN_HASH="+hash)

	output, err := cli.run("tool", "cleanup_archives")
	assert.Error(t, err)
	assert.Contains(t, output, "UNAUTHORIZED")

	cli.tokenFile = tokenFile
	output, err = cli.run("tool", "cleanup_archives")
	require.NoError(t, err, "output: %s", output)
	assert.Contains(t, output, "removed 0 archives")

	output, err = cli.run("tool", "nuke_reset", "--confirm", "nope")
	assert.Error(t, err)
	assert.Contains(t, output, "CONFIRMATION_REQUIRED")
	assert.Equal(t, 0, agent.called("nuke_reset"))
}
