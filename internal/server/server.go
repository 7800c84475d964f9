// Package server provides the patch server: a WebSocket endpoint that applies
// every change it receives to the page's source file, plus a small HTTP API
// over the patch history.
package server

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/grovetools/devsync/errors"
	"github.com/grovetools/devsync/internal/journal"
	"github.com/grovetools/devsync/pkg/models"
)

// Applier applies one change event. *patcher.Patcher implements it.
type Applier interface {
	Apply(ev models.ChangeEvent) (models.PatchResult, error)
}

// Options configures the listener and the upgrade endpoint.
type Options struct {
	Listen         string
	Path           string
	AllowedOrigins []string
	// ConfigSource is reported by /api/status.
	ConfigSource string
}

// Server accepts capture connections and applies their messages.
type Server struct {
	logger  *logrus.Entry
	applier Applier
	journal *journal.Journal

	mu       sync.RWMutex
	opts     Options
	server   *http.Server
	listener net.Listener
	conns    map[string]*websocket.Conn

	upgrader  websocket.Upgrader
	startedAt time.Time
	now       func() time.Time
}

// New creates a new Server instance.
func New(opts Options, applier Applier, j *journal.Journal, logger *logrus.Entry) *Server {
	if opts.Path == "" {
		opts.Path = "/"
	}
	if j == nil {
		j = journal.New(0)
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	s := &Server{
		logger:  logger,
		applier: applier,
		journal: j,
		opts:    opts,
		conns:   make(map[string]*websocket.Conn),
		now:     time.Now,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  16 * 1024,
		WriteBufferSize: 4 * 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Journal returns the history the server records into.
func (s *Server) Journal() *journal.Journal { return s.journal }

// SetAllowedOrigins swaps the origin policy for new connections.
func (s *Server) SetAllowedOrigins(origins []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts.AllowedOrigins = append([]string(nil), origins...)
}

// Handler returns the HTTP handler serving the WebSocket endpoint and API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/stream", s.handleStream)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc(s.opts.Path, s.handleUpgrade)

	return h2c.NewHandler(mux, &http2.Server{})
}

// Listen binds the configured address. An address already in use is a
// PORT_CONFLICT.
func (s *Server) Listen() (net.Listener, error) {
	l, err := net.Listen("tcp", s.opts.Listen)
	if err != nil {
		if stderrors.Is(err, syscall.EADDRINUSE) {
			return nil, errors.PortConflict(s.opts.Listen, err)
		}
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to listen").WithDetail("addr", s.opts.Listen)
	}
	return l, nil
}

// ListenAndServe binds and serves. It blocks until the server stops or fails.
func (s *Server) ListenAndServe() error {
	l, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(l)
}

// Serve accepts connections on l until Shutdown.
func (s *Server) Serve(l net.Listener) error {
	s.mu.Lock()
	s.listener = l
	s.startedAt = s.now()
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.server
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"addr": l.Addr().String(),
		"path": s.opts.Path,
	}).Info("Patch server listening")

	err := srv.Serve(l)
	if stderrors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Addr returns the bound address, or the configured one before Serve.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.opts.Listen
}

// Shutdown gracefully stops the server and closes open capture connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	s.mu.Lock()
	srv := s.server
	conns := make([]*websocket.Conn, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	// Hijacked connections are not tracked by http.Server.
	deadline := time.Now().Add(time.Second)
	for _, c := range conns {
		_ = c.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), deadline)
		_ = c.Close()
	}

	if srv != nil {
		return srv.Shutdown(ctx)
	}
	return nil
}

// handleUpgrade upgrades a capture connection and runs its read loop.
func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != s.opts.Path {
		http.NotFound(w, r)
		return
	}
	if !websocket.IsWebSocketUpgrade(r) {
		w.WriteHeader(http.StatusUpgradeRequired)
		w.Write([]byte("devsync patch endpoint: connect with a WebSocket client\n"))
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		s.logger.WithError(err).WithField("origin", r.Header.Get("Origin")).Warn("WebSocket upgrade failed")
		return
	}

	id := uuid.NewString()
	s.track(id, conn)
	defer s.untrack(id, conn)

	s.serveConn(id, conn)
}

func (s *Server) track(id string, conn *websocket.Conn) {
	s.mu.Lock()
	s.conns[id] = conn
	s.mu.Unlock()

	remote := conn.RemoteAddr().String()
	s.logger.WithFields(logrus.Fields{"conn": id, "remote": remote}).Info("Capture client connected")
	s.journal.Connected(journal.ConnectionEvent{ID: id, Remote: remote, Open: true})
}

func (s *Server) untrack(id string, conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.conns, id)
	s.mu.Unlock()
	conn.Close()

	remote := conn.RemoteAddr().String()
	s.logger.WithFields(logrus.Fields{"conn": id, "remote": remote}).Info("Capture client disconnected")
	s.journal.Connected(journal.ConnectionEvent{ID: id, Remote: remote, Open: false})
}

// serveConn reads messages one at a time. Each is applied to completion
// before the next read, so changes from one connection land in order.
func (s *Server) serveConn(id string, conn *websocket.Conn) {
	log := s.logger.WithField("conn", id)
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				log.WithError(err).Debug("Connection closed unexpectedly")
			}
			return
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		s.handleMessage(id, data)
	}
}

// handleMessage decodes and applies one message. Failures are recorded and
// logged; they never end the connection.
func (s *Server) handleMessage(id string, data []byte) {
	ev, err := models.Decode(data)
	if err != nil {
		res := models.PatchResult{
			Status: models.StatusFailed,
			Code:   string(errors.GetCode(err)),
			Error:  err.Error(),
			Source: id,
			At:     s.now(),
		}
		s.logger.WithFields(logrus.Fields{"conn": id, "code": res.Code}).Warn("Dropping malformed message: ", err)
		s.journal.Record(res)
		return
	}

	s.logger.WithFields(logrus.Fields{"conn": id, "kind": ev.Kind, "selector": ev.Selector}).Debug("Received change")

	res, _ := s.applier.Apply(ev)
	res.Source = id
	s.journal.Record(res)
}
