package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/grovetools/devsync/cli"
	"github.com/grovetools/devsync/logging"
	"github.com/grovetools/devsync/pkg/capture"
	"github.com/grovetools/devsync/pkg/capture/htmldoc"
)

// InspectOutput is the --json form of devsync inspect.
type InspectOutput struct {
	Location  string            `json:"location"`
	Elements  []InspectElement  `json:"elements"`
	Snapshots map[string]string `json:"snapshots,omitempty"`
}

// InspectElement is one element of the page body.
type InspectElement struct {
	Tag      string `json:"tag"`
	Selector string `json:"selector"`
	Style    string `json:"style,omitempty"`
}

func newInspectCmd() *cobra.Command {
	var watch []string
	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Show the selectors devsync derives for a page",
		Long: `Print the selector sent for every element in the page body and, for each
--watch selector, the rule body the CSS snapshot would record.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			doc, err := htmldoc.Load(args[0])
			if err != nil {
				return err
			}
			out := inspect(doc, capture.Namespace{Prefixes: cfg.Capture.NamespacePrefixes}, watch)
			if cli.GetOptions(cmd).JSONOutput {
				return printJSON(cmd, out)
			}

			w := cmd.OutOrStdout()
			for _, el := range out.Elements {
				if el.Style != "" {
					fmt.Fprintf(w, "%-8s %s  [%s]\n", el.Tag, el.Selector, el.Style)
				} else {
					fmt.Fprintf(w, "%-8s %s\n", el.Tag, el.Selector)
				}
			}
			if len(watch) > 0 {
				fmt.Fprintln(w)
				for _, sel := range watch {
					body, ok := out.Snapshots[sel]
					if !ok {
						fmt.Fprintf(w, "%s { } (no inline rule)\n", sel)
						continue
					}
					fmt.Fprintf(w, "%s { %s }\n", sel, body)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&watch, "watch", nil, "Rule selectors to snapshot (repeatable)")
	return cmd
}

func inspect(doc *htmldoc.Document, ns capture.Namespace, watch []string) InspectOutput {
	out := InspectOutput{Location: doc.Location()}
	body := doc.Body()
	for _, el := range doc.Elements() {
		if body == nil || el == body || el.Closest("body") == nil {
			continue
		}
		style, _ := el.Attr("style")
		out.Elements = append(out.Elements, InspectElement{
			Tag:      el.TagName(),
			Selector: capture.SelectorFor(el, ns),
			Style:    strings.TrimSpace(style),
		})
	}
	if len(watch) > 0 {
		rules := capture.NewRuleWatcher(doc, nil, logging.NewLogger("capture"))
		for _, sel := range watch {
			rules.Watch(sel)
		}
		out.Snapshots = rules.Snapshot()
	}
	return out
}
