package server

import (
	"net/http"
	"path"
	"strings"
)

// checkOrigin accepts every origin when no patterns are configured. Pages
// opened from disk send the literal origin "null".
func (s *Server) checkOrigin(r *http.Request) bool {
	s.mu.RLock()
	patterns := s.opts.AllowedOrigins
	s.mu.RUnlock()
	return originAllowed(strings.TrimSpace(r.Header.Get("Origin")), patterns)
}

func originAllowed(origin string, patterns []string) bool {
	if len(patterns) == 0 || origin == "" {
		return true
	}
	for _, p := range patterns {
		if ok, err := path.Match(p, origin); err == nil && ok {
			return true
		}
	}
	return false
}
