package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/grovetools/devsync/errors"
	"github.com/grovetools/devsync/pkg/paths"
)

// Defaults applied by SetDefaults.
const (
	DefaultListen         = "localhost:8080"
	DefaultPath           = "/"
	DefaultHistory        = 100
	DefaultEndpoint       = "ws://localhost:8080"
	DefaultReconnectDelay = 2 * time.Second
	DefaultRoot           = "."
	DefaultFile           = "index.html"
	DefaultMinSize        = 20
)

var (
	// DefaultAllow is the patch allow-list when none is configured.
	DefaultAllow = []string{"**/*.html", "**/*.htm"}
	// DefaultNamespacePrefixes are the class prefixes of devsync's own UI.
	DefaultNamespacePrefixes = []string{"ds-", "dev-sync"}

	// ConfigNames are searched in order in every directory.
	ConfigNames = []string{
		"devsync.yml",
		"devsync.yaml",
		".devsync.yml",
		"devsync.toml",
	}

	envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)
)

// Default returns a configuration holding only defaults.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// Load reads and parses a devsync configuration file. Relative patch paths
// are resolved against the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigNotFound(path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config file").
			WithDetail("path", path)
	}

	cfg, err := LoadFromBytes(data, formatFor(path))
	if err != nil {
		return nil, errors.Wrap(err, errors.GetCode(err), "invalid configuration").WithDetail("path", path)
	}

	abs, err := filepath.Abs(path)
	if err == nil {
		path = abs
	}
	cfg.Source = path
	cfg.resolveRelative(filepath.Dir(path))
	return cfg, nil
}

// LoadDefault finds and loads the configuration starting from the working
// directory.
func LoadDefault() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to get current directory")
	}
	return LoadFrom(cwd)
}

// LoadFrom loads the first configuration file found from startDir upward.
// When there is none, defaults are returned.
func LoadFrom(startDir string) (*Config, error) {
	return LoadFromWithLogger(startDir, logrus.New())
}

// LoadFromWithLogger is LoadFrom with debug output to logger.
func LoadFromWithLogger(startDir string, logger *logrus.Logger) (*Config, error) {
	path, err := FindConfigFile(startDir)
	if err != nil {
		if errors.Is(err, errors.ErrCodeConfigNotFound) {
			logger.WithField("searchPath", startDir).Debug("No configuration file found, using defaults")
			return Default(), nil
		}
		return nil, err
	}

	logger.WithField("path", path).Debug("Loading configuration")
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if logger.IsLevelEnabled(logrus.DebugLevel) {
		if data, err := yaml.Marshal(cfg); err == nil {
			logger.Debugf("Effective configuration:\n%s", string(data))
		}
	}
	return cfg, nil
}

// LoadFromBytes parses configuration in the given format ("yaml" or "toml"),
// applies defaults and validates the result.
func LoadFromBytes(data []byte, format string) (*Config, error) {
	expanded := []byte(expandEnvVars(string(data)))

	if format == "toml" {
		// TOML is normalised through a generic map so both formats share the
		// YAML decoder and its inline extensions.
		var raw map[string]interface{}
		if err := toml.Unmarshal(expanded, &raw); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse TOML configuration")
		}
		converted, err := yaml.Marshal(raw)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to convert TOML configuration")
		}
		expanded = converted
	}

	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse YAML configuration")
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FindConfigFile searches for a devsync configuration file:
// 1. startDir up to the filesystem root
// 2. the XDG config directory (~/.config/devsync/)
func FindConfigFile(startDir string) (string, error) {
	dir := startDir
	for {
		if path := findIn(dir); path != "" {
			return path, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if xdg := paths.ConfigDir(); xdg != "" {
		if path := findIn(xdg); path != "" {
			return path, nil
		}
	}

	return "", errors.ConfigNotFound(startDir).WithDetail("searchPath", startDir)
}

func findIn(dir string) string {
	for _, name := range ConfigNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

func formatFor(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return "toml"
	}
	return "yaml"
}

// SetDefaults fills every unset field.
func (c *Config) SetDefaults() {
	if c.Server.Listen == "" {
		c.Server.Listen = DefaultListen
	}
	if c.Server.Path == "" {
		c.Server.Path = DefaultPath
	}
	if c.Server.History == 0 {
		c.Server.History = DefaultHistory
	}
	if c.Client.Endpoint == "" {
		c.Client.Endpoint = DefaultEndpoint
	}
	if c.Client.ReconnectDelay == "" {
		c.Client.ReconnectDelay = DefaultReconnectDelay.String()
	}
	if c.Patch.Root == "" {
		c.Patch.Root = DefaultRoot
	}
	if c.Patch.DefaultFile == "" {
		c.Patch.DefaultFile = DefaultFile
	}
	if len(c.Patch.Allow) == 0 {
		c.Patch.Allow = append([]string(nil), DefaultAllow...)
	}
	if c.Capture.NamespacePrefixes == nil {
		c.Capture.NamespacePrefixes = append([]string(nil), DefaultNamespacePrefixes...)
	}
	if c.Capture.MinSize == 0 {
		c.Capture.MinSize = DefaultMinSize
	}
}

// resolveRelative anchors the patch root and mirror file at dir.
func (c *Config) resolveRelative(dir string) {
	if !filepath.IsAbs(c.Patch.Root) {
		c.Patch.Root = filepath.Join(dir, c.Patch.Root)
	}
	if c.Patch.MirrorCSS != "" && !filepath.IsAbs(c.Patch.MirrorCSS) {
		c.Patch.MirrorCSS = filepath.Join(dir, c.Patch.MirrorCSS)
	}
}

// expandEnvVars replaces ${VAR} with environment variable values
func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		varName := envVarRegex.FindStringSubmatch(match)[1]

		// Handle default values: ${VAR:-default}
		parts := strings.SplitN(varName, ":-", 2)
		varName = parts[0]
		defaultValue := ""
		if len(parts) > 1 {
			defaultValue = parts[1]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}

		return defaultValue
	})
}
