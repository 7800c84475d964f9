package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Config is the root of devsync.yml.
type Config struct {
	Server  ServerConfig  `yaml:"server,omitempty" toml:"server,omitempty" jsonschema:"description=Patch server settings"`
	Client  ClientConfig  `yaml:"client,omitempty" toml:"client,omitempty" jsonschema:"description=Capture-side channel settings"`
	Patch   PatchConfig   `yaml:"patch,omitempty" toml:"patch,omitempty" jsonschema:"description=Where and what the patcher may write"`
	Capture CaptureConfig `yaml:"capture,omitempty" toml:"capture,omitempty" jsonschema:"description=Capture-side selector and gesture settings"`

	// Extensions captures all other top-level keys, such as logging.
	Extensions map[string]interface{} `yaml:",inline" toml:"-" jsonschema:"-"`

	// Source is the file the configuration was read from, empty for defaults.
	Source string `yaml:"-" toml:"-" jsonschema:"-"`
}

// ServerConfig configures the WebSocket endpoint.
type ServerConfig struct {
	Listen         string   `yaml:"listen,omitempty" toml:"listen,omitempty" jsonschema:"description=host:port to listen on (default localhost:8080)"`
	Path           string   `yaml:"path,omitempty" toml:"path,omitempty" jsonschema:"description=HTTP path of the WebSocket endpoint (default /)"`
	AllowedOrigins []string `yaml:"allowed_origins,omitempty" toml:"allowed_origins,omitempty" jsonschema:"description=Origin patterns accepted on upgrade; empty accepts any"`
	History        int      `yaml:"history,omitempty" toml:"history,omitempty" jsonschema:"description=Number of patch results kept for /api/history (default 100)"`
}

// ClientConfig configures the capture-side connection manager.
type ClientConfig struct {
	Endpoint       string `yaml:"endpoint,omitempty" toml:"endpoint,omitempty" jsonschema:"description=WebSocket URL of the patch server (default ws://localhost:8080)"`
	ReconnectDelay string `yaml:"reconnect_delay,omitempty" toml:"reconnect_delay,omitempty" jsonschema:"description=Delay before redialing after a close (default 2s)"`
}

// ReconnectInterval returns the parsed reconnect delay, falling back to the
// default when unset or invalid.
func (c ClientConfig) ReconnectInterval() time.Duration {
	d, err := time.ParseDuration(c.ReconnectDelay)
	if err != nil || d <= 0 {
		return DefaultReconnectDelay
	}
	return d
}

// PatchConfig configures the patcher.
type PatchConfig struct {
	Root        string   `yaml:"root,omitempty" toml:"root,omitempty" jsonschema:"description=Directory relative paths and page URLs resolve against (default .)"`
	DefaultFile string   `yaml:"default_file,omitempty" toml:"default_file,omitempty" jsonschema:"description=File patched when a message carries no filePath (default index.html)"`
	Allow       []string `yaml:"allow,omitempty" toml:"allow,omitempty" jsonschema:"description=Patterns a target must match (default **/*.html and **/*.htm)"`
	MirrorCSS   string   `yaml:"mirror_css,omitempty" toml:"mirror_css,omitempty" jsonschema:"description=Optional stylesheet receiving every style change"`
}

// CaptureConfig configures selector derivation and gestures.
type CaptureConfig struct {
	NamespacePrefixes []string `yaml:"namespace_prefixes,omitempty" toml:"namespace_prefixes,omitempty" jsonschema:"description=Class prefixes reserved for devsync's own UI"`
	MinSize           float64  `yaml:"min_size,omitempty" toml:"min_size,omitempty" jsonschema:"description=Smallest width or height a resize may produce (default 20)"`
}

// UnmarshalExtension decodes a specific extension's configuration from the
// loaded devsync.yml into the provided target struct. The target must be a
// pointer. A missing key leaves the target zero-valued.
//
// Example:
//
//	var logCfg logging.Config
//	err := cfg.UnmarshalExtension("logging", &logCfg)
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	extensionConfig, ok := c.Extensions[key]
	if !ok {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(extensionConfig); err != nil {
		return fmt.Errorf("failed to decode extension config for '%s': %w", key, err)
	}

	return nil
}
