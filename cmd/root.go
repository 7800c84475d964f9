// Package cmd holds the devsync subcommands.
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/grovetools/devsync/cli"
	"github.com/grovetools/devsync/config"
	"github.com/grovetools/devsync/logging"
	"github.com/grovetools/devsync/pkg/capture"
	"github.com/grovetools/devsync/pkg/patcher"
)

// NewRootCmd assembles the devsync command tree.
func NewRootCmd() *cobra.Command {
	root := cli.NewStandardCommand("devsync", "Write visual page edits back into the HTML source")
	root.Long = `devsync keeps a locally opened HTML page and its source file in sync.
Drag and resize gestures and style edits made on the page are sent to a
local patch server, which rewrites exactly the affected style data in the
file on disk.

Examples:
# run the patch server for the current directory
devsync serve
# move #box by 10px right and 20px down in index.html
devsync gesture drag '#box' --dx 10 --dy 20 --file index.html`
	cli.SetVersionTemplate(root)

	root.AddCommand(
		newServeCmd(),
		newStatusCmd(),
		newStopCmd(),
		newPatchCmd(),
		newSendCmd(),
		newGestureCmd(),
		newInspectCmd(),
		newSchemaCmd(),
		NewConfigCmd(),
		NewLogsCmd(),
		NewPathsCmd(),
		cli.NewVersionCommand("devsync"),
	)
	return root
}

// loadConfig loads the configuration for cmd and applies its logging
// section. --verbose raises every logger to debug.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := cli.LoadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if cli.GetOptions(cmd).Verbose && os.Getenv("DEVSYNC_LOG_LEVEL") == "" {
		os.Setenv("DEVSYNC_LOG_LEVEL", "debug")
	}
	if err := logging.Configure(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func patchOptions(cfg *config.Config) patcher.Options {
	return patcher.Options{
		Root:        cfg.Patch.Root,
		DefaultFile: cfg.Patch.DefaultFile,
		Allow:       cfg.Patch.Allow,
		MirrorCSS:   cfg.Patch.MirrorCSS,
	}
}

func captureOptions(cfg *config.Config, sink capture.Sink) capture.Options {
	return capture.Options{
		Namespace: capture.Namespace{Prefixes: cfg.Capture.NamespacePrefixes},
		MinSize:   cfg.Capture.MinSize,
		Sink:      sink,
		Logger:    logging.NewLogger("capture"),
	}
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
