package pidfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/devsync/errors"
)

func TestAcquireAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "devsync.pid")

	require.NoError(t, Acquire(path, "localhost:8080"))

	info, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), info.PID)
	assert.Equal(t, "localhost:8080", info.Addr)

	running, info, err := IsRunning(path)
	require.NoError(t, err)
	assert.True(t, running)
	assert.Equal(t, os.Getpid(), info.PID)
}

func TestAcquireWhileRunning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devsync.pid")
	require.NoError(t, Acquire(path, "localhost:8080"))

	err := Acquire(path, "localhost:9090")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodePortConflict, errors.GetCode(err))
}

func TestAcquireReplacesStaleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devsync.pid")
	// PIDs this large are never assigned.
	require.NoError(t, os.WriteFile(path, []byte("99999999\nlocalhost:1\n"), 0644))

	require.NoError(t, Acquire(path, "localhost:8080"))
	info, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, "localhost:8080", info.Addr)
}

func TestIsRunningWithoutFile(t *testing.T) {
	running, info, err := IsRunning(filepath.Join(t.TempDir(), "missing.pid"))
	require.NoError(t, err)
	assert.False(t, running)
	assert.Zero(t, info.PID)
}

func TestReleaseAndMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devsync.pid")
	require.NoError(t, os.WriteFile(path, []byte("not-a-pid"), 0644))

	_, err := Read(path)
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetCode(err))

	require.NoError(t, Release(path))
	assert.NoFileExists(t, path)
}
