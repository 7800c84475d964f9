package cmd

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/grovetools/devsync/cli"
	"github.com/grovetools/devsync/errors"
	"github.com/grovetools/devsync/internal/pidfile"
	"github.com/grovetools/devsync/internal/server"
	"github.com/grovetools/devsync/logging"
	"github.com/grovetools/devsync/pkg/paths"
	"github.com/grovetools/devsync/pkg/process"
)

const probeTimeout = 2 * time.Second

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check whether the patch server is running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			running, info, err := pidfile.IsRunning(paths.PidFilePath())
			if err != nil {
				return err
			}
			if !running {
				fmt.Fprintln(cmd.OutOrStdout(), "Stopped")
				os.Exit(1) // non-zero for scripts
			}

			status, err := fetchStatus(info.Addr)
			if cli.GetOptions(cmd).JSONOutput {
				if err != nil {
					return printJSON(cmd, map[string]interface{}{"pid": info.PID, "addr": info.Addr, "error": err.Error()})
				}
				return printJSON(cmd, status)
			}

			pretty := logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout())
			pretty.Success(fmt.Sprintf("Running (PID: %d)", info.PID))
			pretty.Field("Address", info.Addr)
			if err != nil {
				pretty.Warn(fmt.Sprintf("Status endpoint unreachable: %v", err))
				return nil
			}
			if status.ConfigSource != "" {
				pretty.Path("Config", status.ConfigSource)
			}
			pretty.Field("Started", status.StartedAt.Format(time.RFC3339))
			pretty.Field("Connections", status.Stats.Connections)
			pretty.Field("Applied", status.Stats.Applied)
			pretty.Field("Unchanged", status.Stats.Unchanged)
			pretty.Field("Failed", status.Stats.Failed)
			return nil
		},
	}
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running patch server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			running, info, err := pidfile.IsRunning(paths.PidFilePath())
			if err != nil {
				return fmt.Errorf("error checking status: %w", err)
			}
			if !running {
				fmt.Fprintln(cmd.OutOrStdout(), "Patch server is not running")
				return nil
			}

			if err := process.Terminate(info.PID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sent SIGTERM to process %d\n", info.PID)
			return nil
		},
	}
}

// fetchStatus queries /api/status on the server bound to addr.
func fetchStatus(addr string) (*server.Status, error) {
	client := &http.Client{Timeout: probeTimeout}
	resp, err := client.Get(baseURL(addr) + "/api/status")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConnectionUnavailable, "status request failed").WithDetail("addr", addr)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(errors.ErrCodeInternal, fmt.Sprintf("status endpoint returned %s", resp.Status))
	}
	var status server.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMalformedMessage, "invalid status response")
	}
	return &status, nil
}

// baseURL turns a listen address into an http URL, dialing loopback for
// wildcard hosts.
func baseURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}
