package process

import (
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlive(t *testing.T) {
	assert.True(t, Alive(os.Getpid()))
	assert.False(t, Alive(0))
	assert.False(t, Alive(-1))
}

func TestTerminate(t *testing.T) {
	child := exec.Command("sleep", "30")
	if err := child.Start(); err != nil {
		t.Skip("sleep not available")
	}
	done := make(chan error, 1)
	go func() { done <- child.Wait() }()

	require.NoError(t, Terminate(child.Process.Pid))
	select {
	case err := <-done:
		assert.Error(t, err, "sleep exits with a signal status")
	case <-time.After(5 * time.Second):
		_ = child.Process.Kill()
		t.Fatal("process did not stop")
	}
	assert.Error(t, Terminate(-1))
}
