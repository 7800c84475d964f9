package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/grovetools/devsync/cli"
)

// NewConfigCmd prints the effective configuration.
func NewConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Display the effective configuration",
		Long: `Shows the configuration devsync runs with: the nearest devsync.yml
(or the --config file) with defaults filled in. Without a file the
defaults are printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			if cli.GetOptions(cmd).JSONOutput {
				return printJSON(cmd, cfg)
			}

			w := cmd.OutOrStdout()
			if cfg.Source != "" {
				fmt.Fprintf(w, "# Source: %s\n", cfg.Source)
			} else {
				fmt.Fprintln(w, "# Source: defaults")
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			fmt.Fprint(w, string(data))
			return nil
		},
	}
}
