package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/devsync/errors"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "localhost:8080", cfg.Server.Listen)
	assert.Equal(t, "/", cfg.Server.Path)
	assert.Equal(t, 100, cfg.Server.History)
	assert.Equal(t, "ws://localhost:8080", cfg.Client.Endpoint)
	assert.Equal(t, 2*time.Second, cfg.Client.ReconnectInterval())
	assert.Equal(t, "index.html", cfg.Patch.DefaultFile)
	assert.Equal(t, []string{"**/*.html", "**/*.htm"}, cfg.Patch.Allow)
	assert.Equal(t, []string{"ds-", "dev-sync"}, cfg.Capture.NamespacePrefixes)
	assert.Equal(t, float64(20), cfg.Capture.MinSize)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromBytesYAML(t *testing.T) {
	t.Setenv("DEVSYNC_TEST_PORT", "9191")
	data := []byte(`
server:
  listen: "127.0.0.1:${DEVSYNC_TEST_PORT}"
  allowed_origins: ["http://localhost:*"]
client:
  endpoint: "ws://127.0.0.1:${DEVSYNC_TEST_PORT}"
  reconnect_delay: 500ms
patch:
  root: site
  default_file: "${DEVSYNC_TEST_UNSET:-home.html}"
logging:
  level: debug
`)

	cfg, err := LoadFromBytes(data, "yaml")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9191", cfg.Server.Listen)
	assert.Equal(t, []string{"http://localhost:*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 500*time.Millisecond, cfg.Client.ReconnectInterval())
	assert.Equal(t, "home.html", cfg.Patch.DefaultFile)
	assert.Contains(t, cfg.Extensions, "logging")

	var logCfg struct {
		Level string `yaml:"level"`
	}
	require.NoError(t, cfg.UnmarshalExtension("logging", &logCfg))
	assert.Equal(t, "debug", logCfg.Level)
}

func TestLoadFromBytesTOML(t *testing.T) {
	data := []byte(`
[server]
listen = "0.0.0.0:7070"
history = 5

[patch]
allow = ["*.html"]
`)

	cfg, err := LoadFromBytes(data, "toml")
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:7070", cfg.Server.Listen)
	assert.Equal(t, 5, cfg.Server.History)
	assert.Equal(t, []string{"*.html"}, cfg.Patch.Allow)
	assert.Equal(t, "/", cfg.Server.Path)
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		field string
	}{
		{"listen without port", "server:\n  listen: localhost\n", "server.listen"},
		{"path without slash", "server:\n  path: ws\n", "server.path"},
		{"http endpoint", "client:\n  endpoint: http://localhost:8080\n", "client.endpoint"},
		{"bad delay", "client:\n  reconnect_delay: soon\n", "client.reconnect_delay"},
		{"bad allow pattern", "patch:\n  allow: [\"[\"]\n", "patch.allow"},
		{"negative min size", "capture:\n  min_size: -1\n", "capture.min_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromBytes([]byte(tt.yaml), "yaml")
			require.Error(t, err)
			assert.Equal(t, errors.ErrCodeConfigInvalid, errors.GetCode(err))
			field, ok := errors.Detail(err, "field")
			require.True(t, ok)
			assert.Equal(t, tt.field, field)
		})
	}
}

func TestFindConfigFileWalksUp(t *testing.T) {
	t.Setenv("DEVSYNC_HOME", t.TempDir())
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "devsync.yml"), []byte("server:\n  history: 3\n"), 0644))

	path, err := FindConfigFile(nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "devsync.yml"), path)

	cfg, err := LoadFrom(nested)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Server.History)
	assert.Equal(t, filepath.Join(root, "devsync.yml"), cfg.Source)
	assert.Equal(t, root, cfg.Patch.Root)
}

func TestLoadFromWithoutFileUsesDefaults(t *testing.T) {
	t.Setenv("DEVSYNC_HOME", t.TempDir())

	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, cfg.Source)
	assert.Equal(t, DefaultListen, cfg.Server.Listen)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "devsync.yml"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfigNotFound, errors.GetCode(err))
}

func TestLoadResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "devsync.yml")
	require.NoError(t, os.WriteFile(path, []byte("patch:\n  root: site\n  mirror_css: out/mirror.css\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "site"), cfg.Patch.Root)
	assert.Equal(t, filepath.Join(dir, "out", "mirror.css"), cfg.Patch.MirrorCSS)
}

func TestGenerateSchema(t *testing.T) {
	data, err := GenerateSchema()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"reconnect_delay"`)
	assert.Contains(t, string(data), `"allowed_origins"`)
	assert.NotContains(t, string(data), `"Extensions"`)
}

func TestWatcherReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "devsync.yml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  history: 1\n"), 0644))

	reloaded := make(chan *Config, 4)
	w, err := NewWatcher(path, 20*time.Millisecond, nil, func(cfg *Config) {
		reloaded <- cfg
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	// An invalid edit is ignored.
	require.NoError(t, os.WriteFile(path, []byte("server:\n  path: nope\n"), 0644))
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("server:\n  history: 42\n"), 0644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, 42, cfg.Server.History)
	case <-time.After(3 * time.Second):
		t.Fatal("configuration was not reloaded")
	}
}
