package config

import (
	"fmt"
	"net"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/moby/patternmatcher"

	"github.com/grovetools/devsync/errors"
)

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Server.Listen); err != nil {
		return invalid("server.listen", c.Server.Listen, err)
	}
	if !strings.HasPrefix(c.Server.Path, "/") {
		return invalid("server.path", c.Server.Path, fmt.Errorf("must start with /"))
	}
	if c.Server.History < 0 {
		return invalid("server.history", c.Server.History, fmt.Errorf("must not be negative"))
	}
	for _, origin := range c.Server.AllowedOrigins {
		if _, err := path.Match(origin, ""); err != nil {
			return invalid("server.allowed_origins", origin, err)
		}
	}

	u, err := url.Parse(c.Client.Endpoint)
	if err != nil {
		return invalid("client.endpoint", c.Client.Endpoint, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return invalid("client.endpoint", c.Client.Endpoint, fmt.Errorf("scheme must be ws or wss"))
	}
	if d, err := time.ParseDuration(c.Client.ReconnectDelay); err != nil {
		return invalid("client.reconnect_delay", c.Client.ReconnectDelay, err)
	} else if d <= 0 {
		return invalid("client.reconnect_delay", c.Client.ReconnectDelay, fmt.Errorf("must be positive"))
	}

	if _, err := patternmatcher.New(c.Patch.Allow); err != nil {
		return invalid("patch.allow", c.Patch.Allow, err)
	}

	if c.Capture.MinSize < 0 {
		return invalid("capture.min_size", c.Capture.MinSize, fmt.Errorf("must not be negative"))
	}
	for _, prefix := range c.Capture.NamespacePrefixes {
		if strings.TrimSpace(prefix) == "" {
			return invalid("capture.namespace_prefixes", prefix, fmt.Errorf("prefix cannot be empty"))
		}
	}
	return nil
}

func invalid(field string, value interface{}, err error) error {
	return errors.Wrap(err, errors.ErrCodeConfigInvalid, fmt.Sprintf("invalid %s", field)).
		WithDetail("field", field).
		WithDetail("value", value)
}
