package cmd

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/grovetools/devsync/cli"
	"github.com/grovetools/devsync/config"
	"github.com/grovetools/devsync/errors"
	"github.com/grovetools/devsync/logging"
	"github.com/grovetools/devsync/pkg/channel"
	"github.com/grovetools/devsync/pkg/models"
)

const defaultConnectTimeout = 3 * time.Second

type sendFlags struct {
	style, left, top, width, height string
	file                            string
	endpoint                        string
	timeout                         time.Duration
}

func newSendCmd() *cobra.Command {
	var f sendFlags
	cmd := &cobra.Command{
		Use:   "send <inline|cssRule|drag|resize> <selector>",
		Short: "Send one change event to the patch server",
		Long: `Send one change event through the capture channel, the way a page would.

Examples:
devsync send inline '#box' --style 'color: red;' --file index.html
devsync send drag '#box' --left 10px --top 20px --file index.html
devsync send resize '#panel' --width 120px --height 80px`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ev, err := buildEvent(args[0], args[1], f)
			if err != nil {
				return err
			}
			endpoint := f.endpoint
			if endpoint == "" {
				endpoint = cfg.Client.Endpoint
			}
			if err := sendEvent(cmd.Context(), cfg, endpoint, f.timeout, ev); err != nil {
				return err
			}
			if cli.GetOptions(cmd).JSONOutput {
				return printJSON(cmd, ev.ToMessage())
			}
			logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout()).
				Success("Sent " + string(ev.Kind) + " " + ev.Selector + " to " + endpoint)
			return nil
		},
	}
	cmd.Flags().StringVar(&f.style, "style", "", "Style text for inline and cssRule events")
	cmd.Flags().StringVar(&f.left, "left", "", "Left offset for drag events")
	cmd.Flags().StringVar(&f.top, "top", "", "Top offset for drag events")
	cmd.Flags().StringVar(&f.width, "width", "", "Width for resize events")
	cmd.Flags().StringVar(&f.height, "height", "", "Height for resize events")
	cmd.Flags().StringVar(&f.file, "file", "", "Target HTML file (default: the server's patch.default_file)")
	cmd.Flags().StringVar(&f.endpoint, "endpoint", "", "Patch server URL (overrides client.endpoint)")
	cmd.Flags().DurationVar(&f.timeout, "timeout", defaultConnectTimeout, "How long to wait for the connection")
	return cmd
}

func buildEvent(kind, selector string, f sendFlags) (models.ChangeEvent, error) {
	k, err := models.ParseKind(kind)
	if err != nil {
		return models.ChangeEvent{}, errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid event kind")
	}
	target := f.file
	if target != "" && !strings.Contains(target, "://") {
		if abs, err := filepath.Abs(target); err == nil {
			target = abs
		}
	}

	var ev models.ChangeEvent
	switch k {
	case models.KindInlineStyle:
		ev = models.NewInlineStyle(selector, f.style, target)
	case models.KindCSSRule:
		ev = models.NewCSSRule(selector, f.style, target)
	case models.KindDrag:
		ev = models.NewDrag(selector, f.left, f.top, target)
	case models.KindResize:
		ev = models.NewResize(selector, f.width, f.height, target)
	}
	if err := ev.Validate(); err != nil {
		return models.ChangeEvent{}, err
	}
	return ev, nil
}

// sendEvent opens a channel client, waits for it to connect and sends ev.
func sendEvent(ctx context.Context, cfg *config.Config, endpoint string, timeout time.Duration, ev models.ChangeEvent) error {
	client := channel.New(channel.Options{
		Endpoint:       endpoint,
		ReconnectDelay: cfg.Client.ReconnectInterval(),
	}, logging.NewLogger("channel"))
	defer client.Close()
	client.Connect()

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.WaitOpen(waitCtx); err != nil {
		return errors.ConnectionUnavailable(endpoint)
	}
	if !client.Send(ev) {
		return errors.ConnectionUnavailable(endpoint)
	}
	return nil
}
