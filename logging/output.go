package logging

import (
	"io"
	"os"
	"sync"
)

// swapWriter forwards writes to a destination that can be replaced while
// loggers hold on to it.
type swapWriter struct {
	mu  sync.RWMutex
	dst io.Writer
}

func (s *swapWriter) Write(p []byte) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dst.Write(p)
}

func (s *swapWriter) swap(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	s.mu.Lock()
	s.dst = w
	s.mu.Unlock()
}

var stderrSink = &swapWriter{dst: os.Stderr}

// SetGlobalOutput redirects the stderr sink of every component logger.
// A nil writer restores os.Stderr.
func SetGlobalOutput(w io.Writer) { stderrSink.swap(w) }

// GetGlobalOutput returns the writer component loggers print to.
func GetGlobalOutput() io.Writer { return stderrSink }
