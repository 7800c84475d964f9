package logging

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/devsync/config"
	"github.com/grovetools/devsync/pkg/paths"
)

func setup(t *testing.T) *bytes.Buffer {
	t.Helper()
	t.Setenv("DEVSYNC_HOME", t.TempDir())
	t.Setenv("DEVSYNC_LOG_LEVEL", "")
	t.Setenv("DEVSYNC_LOG_CALLER", "")
	t.Setenv("NO_COLOR", "1")

	var buf bytes.Buffer
	SetGlobalOutput(&buf)
	Reset()
	t.Cleanup(func() {
		SetGlobalOutput(os.Stderr)
		Reset()
	})
	return &buf
}

func configure(t *testing.T, yml string) {
	t.Helper()
	cfg, err := config.LoadFromBytes([]byte(yml), "yaml")
	require.NoError(t, err)
	require.NoError(t, Configure(cfg))
}

func TestNewLoggerIsCachedPerComponent(t *testing.T) {
	setup(t)
	require.NoError(t, Configure(nil))

	a := NewLogger("server")
	b := NewLogger("server")
	c := NewLogger("patcher")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, "server", a.Data["component"])
}

func TestTextOutput(t *testing.T) {
	buf := setup(t)
	configure(t, "logging:\n  format:\n    disable_timestamp: true\n")

	NewLogger("server").WithField("file", "index.html").Info("Patched")

	assert.Equal(t, "[INFO] [server] Patched file=index.html\n", buf.String())
}

func TestLevelFromConfigAndEnv(t *testing.T) {
	buf := setup(t)
	configure(t, "logging:\n  level: warn\n")

	log := NewLogger("server")
	log.Info("hidden")
	log.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "[WARN]")

	t.Setenv("DEVSYNC_LOG_LEVEL", "debug")
	configure(t, "logging:\n  level: warn\n")
	assert.Equal(t, logrus.DebugLevel, log.Logger.GetLevel())
}

func TestReconfigureAppliesToExistingLoggers(t *testing.T) {
	buf := setup(t)
	configure(t, "logging:\n  format:\n    structured_to_stderr: never\n")

	log := NewLogger("server")
	log.Info("quiet")
	assert.Empty(t, buf.String())

	configure(t, "logging:\n  format:\n    preset: json\n")
	log.Info("loud")
	assert.Contains(t, buf.String(), `"msg":"loud"`)
}

func TestFileSink(t *testing.T) {
	setup(t)
	configure(t, "logging:\n  format:\n    structured_to_stderr: never\n")

	NewLogger("patcher").Info("written to file")

	path := LogFilePath(CurrentConfig())
	assert.True(t, strings.HasPrefix(path, paths.LogDir()))
	assert.Contains(t, path, time.Now().Format("2006-01-02"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[patcher] written to file")
}

func TestPrettyLogger(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrettyLogger().WithWriter(&buf).WithStyles(PlainPrettyStyles())

	p.Success("Applied")
	p.Field("status", "applied")
	p.Error("Failed", assert.AnError)

	assert.Equal(t, "✓ Applied\n  status: applied\n✗ Failed: "+assert.AnError.Error()+"\n", buf.String())
}
