package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"

	"github.com/hpcloud/tail"
	"github.com/spf13/cobra"

	"github.com/grovetools/devsync/cli"
	"github.com/grovetools/devsync/errors"
	"github.com/grovetools/devsync/logging"
)

// NewLogsCmd creates the `logs` command.
func NewLogsCmd() *cobra.Command {
	var (
		follow bool
		lines  int
		file   string
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print or follow the devsync log file",
		Long: `Print the devsync log file. With -f the file is followed across
rotation until interrupted.

Examples:
# last 50 lines
devsync logs -n 50
# follow the server log
devsync logs -f`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(cmd); err != nil {
				return err
			}
			path := file
			if path == "" {
				path = logging.LogFilePath(logging.CurrentConfig())
			}
			if path == "" {
				return errors.New(errors.ErrCodeInvalidInput, "no log file location")
			}

			jsonOutput := cli.GetOptions(cmd).JSONOutput
			out := cmd.OutOrStdout()
			last, err := lastLines(path, lines)
			if err != nil && !(follow && os.IsNotExist(err)) {
				return errors.Wrap(err, errors.ErrCodeInvalidInput, "failed to read log file").WithDetail("path", path)
			}
			for _, line := range last {
				printLogLine(out, line, jsonOutput)
			}
			if !follow {
				return nil
			}

			t, err := tail.TailFile(path, tail.Config{
				Follow:    true,
				ReOpen:    true,
				MustExist: false,
				Location:  &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd},
				Logger:    stdlog.New(io.Discard, "", 0),
			})
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeInternal, "failed to follow log file").WithDetail("path", path)
			}
			defer t.Cleanup()
			defer t.Stop()

			ctx := cmd.Context()
			for {
				select {
				case <-ctx.Done():
					return nil
				case line, ok := <-t.Lines:
					if !ok {
						return t.Err()
					}
					if line.Err != nil {
						continue
					}
					printLogLine(out, line.Text, jsonOutput)
				}
			}
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", -1, "Number of lines to show from the end (default: all)")
	cmd.Flags().StringVar(&file, "file", "", "Log file to read (default: the configured log file)")
	return cmd
}

// lastLines returns the last n lines of path, or all of them when n < 0.
func lastLines(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var all []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			all = append(all, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if n >= 0 && len(all) > n {
		all = all[len(all)-n:]
	}
	return all, nil
}

// printLogLine prints one line. In JSON mode text lines are wrapped so the
// output stays one JSON object per line.
func printLogLine(w io.Writer, line string, jsonOutput bool) {
	line = strings.TrimRight(line, "\r\n")
	if !jsonOutput {
		fmt.Fprintln(w, line)
		return
	}
	if json.Valid([]byte(line)) {
		fmt.Fprintln(w, line)
		return
	}
	data, _ := json.Marshal(map[string]string{"raw_line": line})
	fmt.Fprintln(w, string(data))
}
