package cmd

import (
	"context"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/grovetools/devsync/config"
	"github.com/grovetools/devsync/errors"
	"github.com/grovetools/devsync/internal/journal"
	"github.com/grovetools/devsync/internal/pidfile"
	"github.com/grovetools/devsync/internal/server"
	"github.com/grovetools/devsync/logging"
	"github.com/grovetools/devsync/pkg/paths"
	"github.com/grovetools/devsync/pkg/patcher"
	"github.com/grovetools/devsync/version"
)

const (
	shutdownTimeout = 5 * time.Second
	reloadDebounce  = 200 * time.Millisecond
)

func newServeCmd() *cobra.Command {
	var (
		listen  string
		root    string
		noWatch bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the patch server",
		Long: `Run the patch server in the foreground.

Every message received on the WebSocket endpoint is applied to the target
HTML file before the next one is read. The server stops on SIGINT or
SIGTERM and reloads devsync.yml when it changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Server.Listen = listen
			}
			if root != "" {
				abs, err := filepath.Abs(root)
				if err != nil {
					return errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid --root")
				}
				cfg.Patch.Root = abs
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, !noWatch, nil)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Address to listen on (overrides server.listen)")
	cmd.Flags().StringVar(&root, "root", "", "Directory to patch files in (overrides patch.root)")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Do not reload the config file when it changes")
	return cmd
}

// runServe runs the server until ctx is done. ready, when set, receives the
// bound address once the server accepts connections.
func runServe(ctx context.Context, cfg *config.Config, watch bool, ready chan<- string) error {
	logger := logging.NewLogger("server")

	p, err := patcher.New(patchOptions(cfg), logging.NewLogger("patcher"))
	if err != nil {
		return err
	}
	j := journal.New(cfg.Server.History)
	srv := server.New(server.Options{
		Listen:         cfg.Server.Listen,
		Path:           cfg.Server.Path,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		ConfigSource:   cfg.Source,
	}, p, j, logger)

	pidPath := paths.PidFilePath()
	l, err := srv.Listen()
	if err != nil {
		if running, info, _ := pidfile.IsRunning(pidPath); running && errors.Is(err, errors.ErrCodePortConflict) {
			if syncErr, ok := err.(*errors.SyncError); ok {
				syncErr.WithDetail("pid", info.PID)
			}
		}
		return err
	}
	addr := l.Addr().String()
	if err := pidfile.Acquire(pidPath, addr); err != nil {
		l.Close()
		return err
	}
	defer func() {
		if err := pidfile.Release(pidPath); err != nil && !os.IsNotExist(err) {
			logger.WithError(err).Error("Failed to release pid file")
		}
	}()

	if watch && cfg.Source != "" {
		w, err := config.NewWatcher(cfg.Source, reloadDebounce, logging.NewLogger("config"), onReload(cfg, p, srv, j, logger))
		if err != nil {
			logger.WithError(err).Warn("Config hot reload disabled")
		} else {
			defer w.Close()
			go w.Start(ctx)
		}
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(l) }()

	logger.WithFields(logrus.Fields{
		"addr":    addr,
		"path":    cfg.Server.Path,
		"root":    cfg.Patch.Root,
		"pid":     os.Getpid(),
		"version": version.GetInfo().Version,
	}).Info("Patch server listening")
	if ready != nil {
		ready <- addr
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Received stop signal")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server shutdown error")
		return err
	}
	return <-errCh
}

// onReload applies a changed configuration to the running server. The
// listen address and endpoint path only change on restart.
func onReload(start *config.Config, p *patcher.Patcher, srv *server.Server, j *journal.Journal, logger *logrus.Entry) func(*config.Config) {
	return func(next *config.Config) {
		if err := p.SetOptions(patchOptions(next)); err != nil {
			logger.WithError(err).Warn("Keeping previous patch settings")
			return
		}
		srv.SetAllowedOrigins(next.Server.AllowedOrigins)
		if err := logging.Configure(next); err != nil {
			logger.WithError(err).Warn("Keeping previous logging settings")
		}
		if !sameAddr(start.Server.Listen, next.Server.Listen) || start.Server.Path != next.Server.Path {
			logger.Warn("server.listen and server.path take effect after a restart")
		}
		j.BroadcastConfigReload(next.Source)
	}
}

func sameAddr(a, b string) bool {
	ha, pa, errA := net.SplitHostPort(a)
	hb, pb, errB := net.SplitHostPort(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return ha == hb && pa == pb
}
