// Package paths provides XDG-compliant path resolution for devsync.
//
// Resolution order:
// 1. DEVSYNC_HOME (portable root) → $DEVSYNC_HOME/{config,state}
// 2. XDG env vars → $XDG_*_HOME/devsync
// 3. Platform defaults → ~/.config/devsync, ~/.local/state/devsync
package paths

import (
	"os"
	"path/filepath"
)

const appName = "devsync"

// base resolves one XDG base directory.
func base(portable, xdgVar string, fallback ...string) string {
	if home := os.Getenv("DEVSYNC_HOME"); home != "" {
		return filepath.Join(home, portable)
	}
	if dir := os.Getenv(xdgVar); dir != "" {
		return dir
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(append([]string{homeDir}, fallback...)...)
	}
	return ""
}

func appDir(b string) string {
	if b == "" {
		return ""
	}
	return filepath.Join(b, appName)
}

// ConfigDir returns the devsync configuration directory.
// Holds the global devsync.yml.
func ConfigDir() string {
	if home := os.Getenv("DEVSYNC_HOME"); home != "" {
		return filepath.Join(home, "config")
	}
	return appDir(base("config", "XDG_CONFIG_HOME", ".config"))
}

// StateDir returns the devsync state directory.
// Used for the pid file and logs.
func StateDir() string {
	if home := os.Getenv("DEVSYNC_HOME"); home != "" {
		return filepath.Join(home, "state")
	}
	return appDir(base("state", "XDG_STATE_HOME", ".local", "state"))
}

// LogDir returns the default directory for log files.
func LogDir() string {
	state := StateDir()
	if state == "" {
		return ""
	}
	return filepath.Join(state, "logs")
}

// PidFilePath returns the path to the server PID file.
func PidFilePath() string {
	return filepath.Join(StateDir(), "devsync.pid")
}

// EnsureDirs creates all devsync directories if they don't exist.
func EnsureDirs() error {
	for _, dir := range []string{ConfigDir(), StateDir(), LogDir()} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
