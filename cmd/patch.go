package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/grovetools/devsync/cli"
	"github.com/grovetools/devsync/errors"
	"github.com/grovetools/devsync/logging"
	"github.com/grovetools/devsync/pkg/models"
	"github.com/grovetools/devsync/pkg/patcher"
)

func newPatchCmd() *cobra.Command {
	var root string
	cmd := &cobra.Command{
		Use:   "patch <message.json|->",
		Short: "Apply one wire message directly to disk",
		Long: `Apply one wire message to its target file without a running server.
The message is validated against the wire schema first.

Examples:
# replay a captured drag
devsync patch drag.json
echo '{"type":"inline","selector":"#box","style":"color: red;"}' | devsync patch -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if root != "" {
				abs, err := filepath.Abs(root)
				if err != nil {
					return errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid --root")
				}
				cfg.Patch.Root = abs
			}

			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			ev, err := models.Decode(data)
			if err != nil {
				return err
			}

			p, err := patcher.New(patchOptions(cfg), logging.NewLogger("patcher"))
			if err != nil {
				return err
			}
			result, applyErr := p.Apply(ev)
			if cli.GetOptions(cmd).JSONOutput {
				if err := printJSON(cmd, result); err != nil {
					return err
				}
				return applyErr
			}
			if applyErr != nil {
				return applyErr
			}
			printResult(cmd, result)
			return nil
		},
	}
	cmd.Flags().StringVar(&root, "root", "", "Directory to patch files in (overrides patch.root)")
	return cmd
}

func readInput(cmd *cobra.Command, arg string) ([]byte, error) {
	if arg == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "failed to read stdin")
		}
		return data, nil
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "failed to read message file").WithDetail("path", arg)
	}
	return data, nil
}

func printResult(cmd *cobra.Command, r models.PatchResult) {
	pretty := logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout())
	switch r.Status {
	case models.StatusApplied:
		pretty.Success(fmt.Sprintf("Patched %s %s", r.Event.Kind, r.Event.Selector))
	case models.StatusUnchanged:
		pretty.Info(fmt.Sprintf("No change for %s %s", r.Event.Kind, r.Event.Selector))
	default:
		pretty.Warn(fmt.Sprintf("%s %s not applied: %s", r.Event.Kind, r.Event.Selector, r.Error))
	}
	if r.File != "" {
		pretty.Path("File", r.File)
	}
	if s := r.Event.Summary(); s != "" {
		pretty.Field("Value", s)
	}
}
