package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/devsync/config"
	"github.com/grovetools/devsync/errors"
	"github.com/grovetools/devsync/internal/journal"
	"github.com/grovetools/devsync/internal/pidfile"
	"github.com/grovetools/devsync/internal/server"
	"github.com/grovetools/devsync/logging"
	"github.com/grovetools/devsync/pkg/models"
	"github.com/grovetools/devsync/pkg/paths"
	"github.com/grovetools/devsync/pkg/patcher"
)

const sitePage = `<!DOCTYPE html>
<html><head><style>
#box { color: blue; }
</style></head>
<body>
<div id="box" style="color: blue;">Box</div>
<div id="panel" style="width: 50px; height: 40px; color: red;">Panel</div>
</body></html>
`

// site creates a project directory with devsync.yml and index.html and
// points the devsync state directory into the test's temp space.
func site(t *testing.T) (dir, cfgPath string) {
	t.Helper()
	t.Setenv("DEVSYNC_HOME", t.TempDir())
	t.Setenv("DEVSYNC_LOG_LEVEL", "error")
	t.Cleanup(logging.Reset)

	dir = t.TempDir()
	cfgPath = filepath.Join(dir, "devsync.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("server:\n  listen: localhost:9000\npatch:\n  root: .\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte(sitePage), 0o644))
	return dir, cfgPath
}

func run(t *testing.T, stdin io.Reader, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	if stdin != nil {
		root.SetIn(stdin)
	}
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestPatchFromStdin(t *testing.T) {
	dir, cfg := site(t)
	msg := `{"type":"drag","selector":"#box","position":{"left":"10px","top":"20px"}}`

	out, err := run(t, strings.NewReader(msg), "patch", "-", "-c", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "Patched drag #box")
	assert.Contains(t, readFile(t, filepath.Join(dir, "index.html")),
		`<div id="box" style="position: relative; left: 10px; top: 20px;">`)
}

func TestPatchJSONReportsFailure(t *testing.T) {
	dir, cfg := site(t)
	msgPath := filepath.Join(dir, "msg.json")
	require.NoError(t, os.WriteFile(msgPath, []byte(`{"type":"drag","selector":".card","position":{"left":"1px","top":"2px"}}`), 0o644))

	out, err := run(t, nil, "patch", msgPath, "-c", cfg, "--json")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeUnsupportedSelector))

	var result models.PatchResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, models.StatusFailed, result.Status)
	assert.Equal(t, sitePage, readFile(t, filepath.Join(dir, "index.html")))
}

func TestPatchRejectsMalformed(t *testing.T) {
	_, cfg := site(t)
	_, err := run(t, strings.NewReader(`{"type":"spin"}`), "patch", "-", "-c", cfg)
	assert.True(t, errors.Is(err, errors.ErrCodeMalformedMessage))
}

func TestGestureLocalDrag(t *testing.T) {
	dir, cfg := site(t)
	file := filepath.Join(dir, "index.html")

	out, err := run(t, nil, "gesture", "drag", "#box", "--dx", "10", "--dy", "20", "--file", file, "--local", "-c", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "drag #box: left=10px, top=20px")
	assert.Contains(t, readFile(t, file), `<div id="box" style="position: relative; left: 10px; top: 20px;">`)
}

func TestGestureLocalResize(t *testing.T) {
	dir, cfg := site(t)
	file := filepath.Join(dir, "index.html")

	_, err := run(t, nil, "gesture", "resize", "#panel", "--dx", "70", "--dy", "40", "--file", file, "--local", "-c", cfg)
	require.NoError(t, err)
	assert.Contains(t, readFile(t, file), `<div id="panel" style="width: 120px; height: 80px; color: red;">`)
}

func TestGestureUnknownSelector(t *testing.T) {
	dir, cfg := site(t)
	_, err := run(t, nil, "gesture", "drag", "#nope", "--file", filepath.Join(dir, "index.html"), "--local", "-c", cfg)
	assert.True(t, errors.Is(err, errors.ErrCodeSelectorNotFound))
}

func TestSendThroughServer(t *testing.T) {
	dir, cfg := site(t)
	file := filepath.Join(dir, "index.html")

	p, err := patcher.New(patcher.Options{Root: dir}, nil)
	require.NoError(t, err)
	srv := server.New(server.Options{}, p, journal.New(10), nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	endpoint := "ws" + strings.TrimPrefix(ts.URL, "http")

	_, err = run(t, nil, "send", "inline", "#box", "--style", "color: red;", "--file", file, "--endpoint", endpoint, "-c", cfg)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return strings.Contains(readFile(t, file), `<div id="box" style="color: red;">`)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSendWithoutServer(t *testing.T) {
	_, cfg := site(t)
	_, err := run(t, nil, "send", "drag", "#box", "--left", "1px", "--top", "2px",
		"--endpoint", "ws://127.0.0.1:1", "--timeout", "100ms", "-c", cfg)
	assert.True(t, errors.Is(err, errors.ErrCodeConnectionUnavailable))
}

func TestBuildEvent(t *testing.T) {
	ev, err := buildEvent("resize", "#panel", sendFlags{width: "10px", height: "20px", file: "file:///x/index.html"})
	require.NoError(t, err)
	assert.Equal(t, models.NewResize("#panel", "10px", "20px", "file:///x/index.html"), ev)

	_, err = buildEvent("inline", "#box", sendFlags{})
	assert.True(t, errors.Is(err, errors.ErrCodeMissingPayload))
	_, err = buildEvent("spin", "#box", sendFlags{})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestInspect(t *testing.T) {
	dir, cfg := site(t)
	out, err := run(t, nil, "inspect", filepath.Join(dir, "index.html"), "--watch", "#box", "--json", "-c", cfg)
	require.NoError(t, err)

	var got InspectOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Elements, 2)
	assert.Equal(t, InspectElement{Tag: "div", Selector: "#box", Style: "color: blue;"}, got.Elements[0])
	assert.Equal(t, map[string]string{"#box": "color: blue;"}, got.Snapshots)
}

func TestSchemaAndConfig(t *testing.T) {
	_, cfg := site(t)

	out, err := run(t, nil, "schema")
	require.NoError(t, err)
	assert.Contains(t, out, `"selector"`)

	out, err = run(t, nil, "schema", "config")
	require.NoError(t, err)
	assert.Contains(t, out, `"allowed_origins"`)

	out, err = run(t, nil, "config", "-c", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "# Source: "+cfg)
	assert.Contains(t, out, "listen: localhost:9000")
}

func TestLogsPrintsTail(t *testing.T) {
	dir, cfg := site(t)
	logPath := filepath.Join(dir, "devsync.log")
	require.NoError(t, os.WriteFile(logPath, []byte("one\ntwo\nthree\n"), 0o644))

	out, err := run(t, nil, "logs", "--file", logPath, "-n", "2", "-c", cfg)
	require.NoError(t, err)
	assert.Equal(t, "two\nthree\n", out)

	out, err = run(t, nil, "logs", "--file", logPath, "-n", "1", "--json", "-c", cfg)
	require.NoError(t, err)
	assert.Equal(t, `{"raw_line":"three"}`+"\n", out)
}

func TestRunServe(t *testing.T) {
	dir, _ := site(t)
	cfg := config.Default()
	cfg.Server.Listen = "127.0.0.1:0"
	cfg.Patch.Root = dir

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan string, 1)
	done := make(chan error, 1)
	go func() { done <- runServe(ctx, cfg, false, ready) }()

	var addr string
	select {
	case addr = <-ready:
	case err := <-done:
		t.Fatalf("server exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	info, err := pidfile.Read(paths.PidFilePath())
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), info.PID)
	assert.Equal(t, addr, info.Addr)

	resp, err := http.Get(baseURL(addr) + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	status, err := fetchStatus(addr)
	require.NoError(t, err)
	assert.Equal(t, addr, status.Addr)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	_, err = os.Stat(paths.PidFilePath())
	assert.True(t, os.IsNotExist(err))
}

func TestOnReload(t *testing.T) {
	dir, _ := site(t)
	start := config.Default()
	start.Patch.Root = dir

	p, err := patcher.New(patchOptions(start), nil)
	require.NoError(t, err)
	j := journal.New(10)
	srv := server.New(server.Options{}, p, j, nil)
	updates := j.Subscribe()
	defer j.Unsubscribe(updates)

	next := config.Default()
	next.Patch.Root = dir
	next.Patch.DefaultFile = "other.html"
	next.Source = filepath.Join(dir, "devsync.yml")
	onReload(start, p, srv, j, logging.NewLogger("test"))(next)

	assert.Equal(t, "other.html", p.Options().DefaultFile)
	select {
	case u := <-updates:
		assert.Equal(t, journal.UpdateConfigReload, u.Type)
		assert.Equal(t, next.Source, u.File)
	case <-time.After(time.Second):
		t.Fatal("no reload broadcast")
	}

	bad := config.Default()
	bad.Patch.Allow = []string{"["}
	onReload(start, p, srv, j, logging.NewLogger("test"))(bad)
	assert.Equal(t, "other.html", p.Options().DefaultFile, "a rejected reload keeps the old options")
}

func TestBaseURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8080", baseURL(":8080"))
	assert.Equal(t, "http://127.0.0.1:9000", baseURL("127.0.0.1:9000"))
	assert.Equal(t, "http://[::1]:80", baseURL("[::1]:80"))
}
