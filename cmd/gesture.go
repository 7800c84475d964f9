package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grovetools/devsync/cli"
	"github.com/grovetools/devsync/errors"
	"github.com/grovetools/devsync/logging"
	"github.com/grovetools/devsync/pkg/capture"
	"github.com/grovetools/devsync/pkg/capture/htmldoc"
	"github.com/grovetools/devsync/pkg/models"
	"github.com/grovetools/devsync/pkg/patcher"
)

type gestureFlags struct {
	dx, dy   float64
	file     string
	local    bool
	endpoint string
}

func newGestureCmd() *cobra.Command {
	var f gestureFlags
	cmd := &cobra.Command{
		Use:   "gesture <drag|resize> <selector>",
		Short: "Replay a drag or resize on a page and persist it",
		Long: `Load the page into memory, track the element, replay a pointer gesture
of --dx/--dy and persist the resulting change event. The event goes to the
patch server unless --local applies it directly.

Examples:
devsync gesture drag '#box' --dx 10 --dy 20 --file index.html
devsync gesture resize '#panel' --dx 30 --dy -10 --file index.html --local`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			file := f.file
			if file == "" {
				file = cfg.Patch.DefaultFile
			}
			doc, err := htmldoc.Load(file)
			if err != nil {
				return err
			}

			var sink capture.Sink
			var sendErr error
			if f.local {
				p, err := patcher.New(patchOptions(cfg), logging.NewLogger("patcher"))
				if err != nil {
					return err
				}
				sink = capture.SinkFunc(func(ev models.ChangeEvent) bool {
					_, sendErr = p.Apply(ev)
					return sendErr == nil
				})
			} else {
				endpoint := f.endpoint
				if endpoint == "" {
					endpoint = cfg.Client.Endpoint
				}
				sink = capture.SinkFunc(func(ev models.ChangeEvent) bool {
					sendErr = sendEvent(cmd.Context(), cfg, endpoint, defaultConnectTimeout, ev)
					return sendErr == nil
				})
			}

			ev, err := replayGesture(doc, captureOptions(cfg, sink), args[0], args[1], f.dx, f.dy)
			if err != nil {
				return err
			}
			if sendErr != nil {
				return sendErr
			}
			if cli.GetOptions(cmd).JSONOutput {
				return printJSON(cmd, ev.ToMessage())
			}
			logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout()).
				Success(fmt.Sprintf("%s %s: %s", ev.Kind, ev.Selector, ev.Summary()))
			return nil
		},
	}
	cmd.Flags().Float64Var(&f.dx, "dx", 0, "Horizontal pointer movement")
	cmd.Flags().Float64Var(&f.dy, "dy", 0, "Vertical pointer movement")
	cmd.Flags().StringVar(&f.file, "file", "", "HTML file to load (default: patch.default_file)")
	cmd.Flags().BoolVar(&f.local, "local", false, "Apply the change directly instead of sending it")
	cmd.Flags().StringVar(&f.endpoint, "endpoint", "", "Patch server URL (overrides client.endpoint)")
	return cmd
}

// replayGesture drives a capture session through one pointer-down, move and
// up on the element matching selector.
func replayGesture(doc *htmldoc.Document, opts capture.Options, kind, selector string, dx, dy float64) (models.ChangeEvent, error) {
	el := doc.QuerySelector(selector)
	if el == nil {
		return models.ChangeEvent{}, errors.SelectorNotFound(selector, "element")
	}
	s := capture.NewSession(doc, opts)
	defer s.Disable()

	target := el
	switch kind {
	case "drag":
		s.EnableDrag(el)
	case "resize":
		s.EnableResize(el)
		target = s.Resize().Handle(el)
	default:
		return models.ChangeEvent{}, errors.New(errors.ErrCodeInvalidInput, fmt.Sprintf("unknown gesture %q, want drag or resize", kind))
	}

	if !s.PointerDown(capture.PointerEvent{Target: target}) {
		return models.ChangeEvent{}, errors.New(errors.ErrCodeInternal, "gesture did not start on "+selector)
	}
	s.PointerMove(capture.PointerEvent{X: dx, Y: dy})
	ev, _ := s.PointerUp(capture.PointerEvent{X: dx, Y: dy})
	return ev, nil
}
