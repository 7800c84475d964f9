// Package process checks and signals the patch server process recorded in
// the pid file.
package process

import (
	"fmt"
	"os"
	"syscall"
)

// Alive reports whether a process with the given PID exists. Signal 0
// probes without delivering anything; EPERM still means the process exists.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = p.Signal(syscall.Signal(0))
	return err == nil || os.IsPermission(err)
}

// Terminate asks the process to shut down with SIGTERM.
func Terminate(pid int) error {
	if !Alive(pid) {
		return fmt.Errorf("process %d is not running", pid)
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process %d: %w", pid, err)
	}
	if err := p.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to send stop signal to %d: %w", pid, err)
	}
	return nil
}
