// Package pidfile provides PID file management for the devsync server.
//
// The file holds the PID on its first line and the listen address on the
// second, so status and stop can report where the server is bound.
package pidfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/grovetools/devsync/errors"
	"github.com/grovetools/devsync/pkg/process"
)

// Info describes the server recorded in a pid file.
type Info struct {
	PID  int
	Addr string
}

// Acquire writes the current PID and addr to the file.
// It returns an error if another instance is already running.
func Acquire(path, addr string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create pid directory")
	}

	if info, err := Read(path); err == nil {
		if process.Alive(info.PID) {
			return errors.New(errors.ErrCodePortConflict, fmt.Sprintf("server already running with PID %d", info.PID)).
				WithDetail("pid", info.PID).
				WithDetail("addr", info.Addr)
		}
		// Process is dead, cleanup stale file
		_ = os.Remove(path)
	}

	content := fmt.Sprintf("%d\n%s\n", os.Getpid(), addr)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to write pid file").WithDetail("path", path)
	}
	return nil
}

// Release removes the PID file.
func Release(path string) error {
	return os.Remove(path)
}

// Read returns the recorded server info.
func Read(path string) (Info, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Info{}, err
	}
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	pid, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil {
		return Info{}, errors.Wrap(err, errors.ErrCodeInvalidInput, "malformed pid file").WithDetail("path", path)
	}
	info := Info{PID: pid}
	if len(lines) > 1 {
		info.Addr = strings.TrimSpace(lines[1])
	}
	return info, nil
}

// IsRunning checks if the server described by the pidfile is active.
func IsRunning(path string) (bool, Info, error) {
	info, err := Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, Info{}, nil
		}
		return false, Info{}, err
	}
	return process.Alive(info.PID), info, nil
}
