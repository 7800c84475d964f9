package cmd

import (
	"github.com/spf13/cobra"

	"github.com/grovetools/devsync/logging"
	"github.com/grovetools/devsync/pkg/paths"
)

// PathsOutput lists the locations devsync reads and writes.
type PathsOutput struct {
	ConfigDir string `json:"config_dir"`
	StateDir  string `json:"state_dir"`
	LogDir    string `json:"log_dir"`
	LogFile   string `json:"log_file"`
	PidFile   string `json:"pid_file"`
}

// NewPathsCmd prints the devsync paths as JSON.
func NewPathsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print the paths used by devsync",
		Long: `Print the paths used by devsync as JSON.

- config_dir: global devsync.yml lookup directory
- state_dir: pid file and logs
- log_file: current log file`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(cmd); err != nil {
				return err
			}
			return printJSON(cmd, PathsOutput{
				ConfigDir: paths.ConfigDir(),
				StateDir:  paths.StateDir(),
				LogDir:    paths.LogDir(),
				LogFile:   logging.LogFilePath(logging.CurrentConfig()),
				PidFile:   paths.PidFilePath(),
			})
		},
	}
}
