package server

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/devsync/errors"
	"github.com/grovetools/devsync/internal/journal"
	"github.com/grovetools/devsync/pkg/models"
	"github.com/grovetools/devsync/pkg/patcher"
)

type recordingApplier struct {
	mu     sync.Mutex
	events []models.ChangeEvent
}

func (a *recordingApplier) Apply(ev models.ChangeEvent) (models.PatchResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, ev)
	return models.PatchResult{Event: ev, Status: models.StatusApplied}, nil
}

func (a *recordingApplier) Events() []models.ChangeEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]models.ChangeEvent(nil), a.events...)
}

func startServer(t *testing.T, opts Options, applier Applier) (*Server, *httptest.Server) {
	t.Helper()
	s := New(opts, applier, journal.New(10), nil)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func wsURL(ts *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + path
}

func dial(t *testing.T, url string, header http.Header) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForPatches(t *testing.T, ch chan journal.Update, n int) []models.PatchResult {
	t.Helper()
	var out []models.PatchResult
	timeout := time.After(3 * time.Second)
	for len(out) < n {
		select {
		case u := <-ch:
			if u.Type == journal.UpdatePatch {
				out = append(out, *u.Result)
			}
		case <-timeout:
			t.Fatalf("saw %d of %d patch results", len(out), n)
		}
	}
	return out
}

func TestMessagesAppliedInOrder(t *testing.T) {
	applier := &recordingApplier{}
	s, ts := startServer(t, Options{}, applier)
	updates := s.Journal().Subscribe()

	conn := dial(t, wsURL(ts, "/"), nil)
	for _, left := range []string{"1px", "2px", "3px"} {
		data, err := models.Encode(models.NewDrag("#box", left, "0px", ""))
		require.NoError(t, err)
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
	}

	results := waitForPatches(t, updates, 3)
	events := applier.Events()
	require.Len(t, events, 3)
	assert.Equal(t, "1px", events[0].Position.Left)
	assert.Equal(t, "3px", events[2].Position.Left)
	assert.NotEmpty(t, results[0].Source)
	assert.Equal(t, results[0].Source, results[2].Source)
}

func TestMalformedMessageKeepsConnection(t *testing.T) {
	applier := &recordingApplier{}
	s, ts := startServer(t, Options{}, applier)
	updates := s.Journal().Subscribe()

	conn := dial(t, wsURL(ts, "/"), nil)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	data, err := models.Encode(models.NewInlineStyle("#box", "color: red;", ""))
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))

	results := waitForPatches(t, updates, 2)
	assert.Equal(t, models.StatusFailed, results[0].Status)
	assert.Equal(t, string(errors.ErrCodeMalformedMessage), results[0].Code)
	assert.Equal(t, models.StatusApplied, results[1].Status)
	assert.Len(t, applier.Events(), 1)
	assert.Equal(t, 1, s.Journal().Stats().Failed)
}

func TestEndToEndPatch(t *testing.T) {
	root := t.TempDir()
	page := "<html><body><div id=\"box\">Box</div></body></html>\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte(page), 0o644))

	p, err := patcher.New(patcher.Options{Root: root, DefaultFile: "index.html"}, nil)
	require.NoError(t, err)
	s, ts := startServer(t, Options{Path: "/sync"}, p)
	updates := s.Journal().Subscribe()

	conn := dial(t, wsURL(ts, "/sync"), nil)
	data, err := models.Encode(models.NewDrag("#box", "10px", "20px", ""))
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))

	results := waitForPatches(t, updates, 1)
	assert.Equal(t, models.StatusApplied, results[0].Status)

	out, err := os.ReadFile(filepath.Join(root, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(out), `<div id="box" style="position: relative; left: 10px; top: 20px;">`)
}

func TestOriginPolicy(t *testing.T) {
	_, ts := startServer(t, Options{AllowedOrigins: []string{"http://localhost:*", "null"}}, &recordingApplier{})

	dial(t, wsURL(ts, "/"), http.Header{"Origin": {"http://localhost:3000"}})
	dial(t, wsURL(ts, "/"), http.Header{"Origin": {"null"}})

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, "/"), http.Header{"Origin": {"https://evil.test"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestOriginAllowed(t *testing.T) {
	assert.True(t, originAllowed("https://anything.test", nil))
	assert.True(t, originAllowed("", []string{"http://localhost:*"}))
	assert.True(t, originAllowed("http://localhost:8000", []string{"http://localhost:*"}))
	assert.False(t, originAllowed("http://localhost.evil.test/x", []string{"http://localhost:*"}))
	assert.False(t, originAllowed("null", []string{"http://localhost:*"}))
}

func TestPlainHTTPOnEndpoint(t *testing.T) {
	_, ts := startServer(t, Options{}, &recordingApplier{})

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "ok", string(body))
}

func TestHistoryAndStatus(t *testing.T) {
	s, ts := startServer(t, Options{Listen: "localhost:0", ConfigSource: "/tmp/devsync.yml"}, &recordingApplier{})
	s.Journal().Record(models.PatchResult{Event: models.NewInlineStyle("#a", "color: red;", ""), Status: models.StatusApplied})
	s.Journal().Record(models.PatchResult{Event: models.NewInlineStyle("#b", "color: red;", ""), Status: models.StatusFailed})

	resp, err := http.Get(ts.URL + "/api/history?limit=1")
	require.NoError(t, err)
	defer resp.Body.Close()
	var history []models.PatchResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&history))
	require.Len(t, history, 1)
	assert.Equal(t, "#b", history[0].Event.Selector)

	resp, err = http.Get(ts.URL + "/api/history?limit=-3")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	var status Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "/tmp/devsync.yml", status.ConfigSource)
	assert.Equal(t, journal.Stats{Applied: 1, Failed: 1}, status.Stats)
}

func TestStreamDeliversPatches(t *testing.T) {
	s, ts := startServer(t, Options{}, &recordingApplier{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": connected\n", line)

	s.Journal().Record(models.PatchResult{Event: models.NewInlineStyle("#a", "color: red;", ""), Status: models.StatusApplied})

	var event, data string
	for data == "" {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event: "))
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data: "))
		}
	}
	assert.Equal(t, "patch", event)
	assert.Contains(t, data, `"selector":"#a"`)
}

func TestListenPortConflict(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	s := New(Options{Listen: l.Addr().String()}, &recordingApplier{}, nil, nil)
	_, err = s.Listen()
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodePortConflict, errors.GetCode(err))
}

func TestServeAndShutdown(t *testing.T) {
	s := New(Options{Listen: "127.0.0.1:0"}, &recordingApplier{}, nil, nil)
	l, err := s.Listen()
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Serve(l) }()

	require.Eventually(t, func() bool { return s.Addr() == l.Addr().String() }, time.Second, 10*time.Millisecond)
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+s.Addr()+"/", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return s.Journal().Stats().Connections == 1 }, time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	require.NoError(t, <-done)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway))
}
