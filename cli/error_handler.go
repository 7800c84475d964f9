package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/grovetools/devsync/errors"
)

// ErrorHandler provides user-friendly error messages
type ErrorHandler struct {
	Verbose bool
	Out     io.Writer
}

// NewErrorHandler creates a new error handler writing to stderr
func NewErrorHandler(verbose bool) *ErrorHandler {
	return &ErrorHandler{
		Verbose: verbose,
		Out:     os.Stderr,
	}
}

// Handle prints a message and a hint for err and returns it unchanged.
func (h *ErrorHandler) Handle(err error) error {
	if err == nil {
		return nil
	}
	out := h.Out
	if out == nil {
		out = os.Stderr
	}

	switch errors.GetCode(err) {
	case errors.ErrCodeConfigNotFound:
		path, _ := errors.Detail(err, "path")
		fmt.Fprintf(out, "Error: configuration file %v not found\n", path)
		fmt.Fprintln(out, "Run 'devsync config' to print the defaults, or drop the --config flag.")

	case errors.ErrCodeConfigInvalid:
		field, _ := errors.Detail(err, "field")
		fmt.Fprintf(out, "Error: %v\n", err)
		if field != nil {
			fmt.Fprintf(out, "Fix the '%v' setting in devsync.yml.\n", field)
		}

	case errors.ErrCodePortConflict:
		addr, _ := errors.Detail(err, "addr")
		fmt.Fprintf(out, "Error: %v is already in use\n", addr)
		if pid, ok := errors.Detail(err, "pid"); ok {
			fmt.Fprintf(out, "A devsync server is running as pid %v. Stop it with 'devsync stop'.\n", pid)
		} else {
			fmt.Fprintln(out, "Stop the conflicting process or change server.listen in devsync.yml.")
		}

	case errors.ErrCodeConnectionUnavailable:
		fmt.Fprintf(out, "Error: %v\n", err)
		fmt.Fprintln(out, "Start the patch server with 'devsync serve'.")

	case errors.ErrCodeTargetFileMissing:
		path, _ := errors.Detail(err, "path")
		fmt.Fprintf(out, "Error: target file %v does not exist\n", path)
		fmt.Fprintln(out, "Check the event's targetFile or patch.default_file.")

	case errors.ErrCodePathNotAllowed:
		path, _ := errors.Detail(err, "path")
		fmt.Fprintf(out, "Error: %v is outside the allowed patch files\n", path)
		fmt.Fprintln(out, "Extend patch.allow in devsync.yml to include it.")

	case errors.ErrCodeSelectorNotFound, errors.ErrCodeUnsupportedSelector:
		fmt.Fprintf(out, "Error: %v\n", err)
		fmt.Fprintln(out, "The file was left untouched.")

	default:
		fmt.Fprintf(out, "Error: %v\n", err)
	}

	if h.Verbose {
		if syncErr, ok := err.(*errors.SyncError); ok {
			fmt.Fprintf(out, "\nError details:\n%s\n", syncErr.ToJSON())
		}
	}
	return err
}
