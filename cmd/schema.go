package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grovetools/devsync/config"
	"github.com/grovetools/devsync/pkg/models"
)

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "schema [wire|config]",
		Short:     "Print a JSON schema",
		Long:      "Print the JSON schema of the wire message (default) or of devsync.yml.",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"wire", "config"},
		RunE: func(cmd *cobra.Command, args []string) error {
			which := "wire"
			if len(args) == 1 {
				which = args[0]
			}
			var (
				data []byte
				err  error
			)
			switch which {
			case "wire":
				data, err = models.GenerateSchema()
			case "config":
				data, err = config.GenerateSchema()
			default:
				return fmt.Errorf("unknown schema %q, want wire or config", which)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}
