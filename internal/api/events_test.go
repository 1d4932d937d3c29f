package api_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/d2r-multiplay/internal/backend"
	"github.com/mcoot/d2r-multiplay/internal/events"
	"github.com/mcoot/d2r-multiplay/internal/model"
)

type sseEvent struct {
	name string
	data string
}

// openStream connects to the event stream and waits for the connected event
func openStream(t *testing.T, ts *testServer) <-chan sseEvent {
	t.Helper()

	server := httptest.NewServer(ts.handler)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		server.Close()
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/v1/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	out := make(chan sseEvent, 32)
	go func() {
		defer close(out)
		defer func() { _ = resp.Body.Close() }()
		scanner := bufio.NewScanner(resp.Body)
		var ev sseEvent
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case strings.HasPrefix(line, "event: "):
				ev.name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				ev.data += strings.TrimPrefix(line, "data: ")
			case line == "" && ev.name != "":
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
				ev = sseEvent{}
			}
		}
	}()

	first := nextEvent(t, out)
	require.Equal(t, events.EventConnected, first.name)
	return out
}

func nextEvent(t *testing.T, stream <-chan sseEvent) sseEvent {
	t.Helper()
	select {
	case ev, ok := <-stream:
		require.True(t, ok, "stream closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
		return sseEvent{}
	}
}

// waitEvent returns the next event with the given name
func waitEvent(t *testing.T, stream <-chan sseEvent, name string) sseEvent {
	t.Helper()
	for {
		ev := nextEvent(t, stream)
		if ev.name == name {
			return ev
		}
	}
}

func TestEventsStreamLogEntries(t *testing.T) {
	ts := newTestServer(t, "")
	stream := openStream(t, ts)

	ts.app.MockBackend.ToolResults["cleanup_archives"] = "removed 2"
	rr := ts.request(http.MethodPost, "/api/v1/tools/cleanup_archives", nil, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var entry model.LogEntry
	ev := waitEvent(t, stream, events.EventLog)
	require.NoError(t, json.Unmarshal([]byte(ev.data), &entry))
	assert.Equal(t, "> cleanup_archives...", entry.Message)

	ev = waitEvent(t, stream, events.EventLog)
	require.NoError(t, json.Unmarshal([]byte(ev.data), &entry))
	assert.Equal(t, model.LogLevelSuccess, entry.Level)
}

func TestEventsStreamNotificationLifecycle(t *testing.T) {
	ts := newTestServer(t, "")
	a := createAccount(t, ts, "alice", "alice#1")
	stream := openStream(t, ts)

	ts.app.MockBackend.QueueLaunchError(backend.MarkerConflict)
	rr := ts.request(http.MethodPost, "/api/v1/accounts/"+a.ID+"/launch", nil, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var changed events.NotificationChanged
	ev := waitEvent(t, stream, events.EventNotification)
	require.NoError(t, json.Unmarshal([]byte(ev.data), &changed))
	require.True(t, changed.Open)
	require.NotNil(t, changed.Notification)
	assert.NotEmpty(t, changed.Notification.Actions)

	rr = ts.request(http.MethodPost, "/api/v1/notification/dismiss", nil, "")
	require.Equal(t, http.StatusNoContent, rr.Code)

	var closed events.NotificationChanged
	ev = waitEvent(t, stream, events.EventNotification)
	require.NoError(t, json.Unmarshal([]byte(ev.data), &closed))
	assert.False(t, closed.Open)
	assert.Nil(t, closed.Notification)
}

func TestEventsStreamStatus(t *testing.T) {
	ts := newTestServer(t, "")
	createAccount(t, ts, `PC\Alice`, "alice#1")
	stream := openStream(t, ts)

	ts.app.MockBackend.Statuses["Alice"] = model.AccountStatus{BnetActive: true}
	rr := ts.request(http.MethodPost, "/api/v1/status/refresh", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var changed events.StatusChanged
	ev := waitEvent(t, stream, events.EventStatus)
	require.NoError(t, json.Unmarshal([]byte(ev.data), &changed))
	assert.True(t, changed.Processes["alice"].BnetActive)
	assert.False(t, changed.UpdatedAt.IsZero())
}

func TestEventsStreamEndsWhenHubCloses(t *testing.T) {
	ts := newTestServer(t, "")
	stream := openStream(t, ts)

	ts.app.Events.Close()

	select {
	case _, ok := <-stream:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end")
	}
}
