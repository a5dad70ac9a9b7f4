package cmd

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tarrence/oascli/internal/layout"
	"github.com/tarrence/oascli/internal/output"
)

func newLayoutCmd() *cobra.Command {
	layoutCmd := &cobra.Command{
		Use:           "layout",
		Short:         "Inspect a layout file",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	layoutCmd.AddCommand(newLayoutCheckCmd())
	layoutCmd.AddCommand(newLayoutTreeCmd())
	layoutCmd.AddCommand(newLayoutOpsCmd())
	return layoutCmd
}

// startFlag registers --start. An empty value means the configured start command.
func startFlag(cmd *cobra.Command, start *string) {
	cmd.Flags().StringVar(start, "start", "", "Top-level subcommand of the layout (default from config, \"main\")")
}

func startOr(app *appState, start string) string {
	if start != "" {
		return start
	}
	return app.cfg.Start
}

// readLayout loads the <layout> argument.
func readLayout(cmd *cobra.Command, path string) (*appState, *layout.File, error) {
	app, err := appFrom(cmd)
	if err != nil {
		return nil, nil, err
	}
	stdinUsed := false
	data, err := app.source(path, &stdinUsed)
	if err != nil {
		return nil, nil, err
	}
	f, err := layout.Decode(data)
	if err != nil {
		return nil, nil, err
	}
	return app, f, nil
}

func newLayoutCheckCmd() *cobra.Command {
	var start string
	var only []string
	cmd := &cobra.Command{
		Use:   "check <layout>",
		Short: "Check a layout for missing fields, duplicates, ordering and references",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, f, err := readLayout(cmd, args[0])
			if err != nil {
				return err
			}
			checks, err := selectChecks(only)
			if err != nil {
				return err
			}
			report := layout.Check(f, startOr(app, start), checks)
			p := app.printer
			if p.Format() != output.FormatText {
				if err := p.PrintValue(report); err != nil {
					return err
				}
			} else {
				printReport(p, report)
			}
			if !report.OK() {
				return errors.New("layout check failed")
			}
			if p.Format() == output.FormatText {
				p.Success("%s is clean", args[0])
			}
			return nil
		},
	}
	startFlag(cmd, &start)
	cmd.Flags().StringSliceVar(&only, "check", nil, "Run only these checks: references, order, missing, duplicates, operations, pagination")
	return cmd
}

func selectChecks(names []string) (layout.Checks, error) {
	if len(names) == 0 {
		return layout.AllChecks, nil
	}
	var c layout.Checks
	for _, n := range names {
		switch n {
		case "references":
			c.References = true
		case "order":
			c.SubcommandOrder = true
		case "missing":
			c.MissingProperties = true
		case "duplicates":
			c.Duplicates = true
		case "operations":
			c.OperationOrder = true
		case "pagination":
			c.Pagination = true
		default:
			return c, fmt.Errorf("unknown check %q", n)
		}
	}
	return c, nil
}

func printReport(p *output.Printer, r *layout.Report) {
	keyed := func(title string, m map[string]string) {
		for _, k := range slices.Sorted(maps.Keys(m)) {
			p.Notice("%s: %s: %s", title, k, m[k])
		}
	}
	listed := func(title string, items []string) {
		for _, item := range items {
			p.Notice("%s: %s", title, item)
		}
	}
	keyed("missing properties", r.Missing)
	keyed("duplicate operations", r.Duplicates)
	keyed("operations out of order, expected", r.Misordered)
	listed("unused subcommand", r.UnusedSubcommands)
	listed("missing subcommand", r.MissingSubcommands)
	listed("subcommand order", r.SubcommandOrder)
	keyed("pagination", r.Pagination)
}

func newLayoutTreeCmd() *cobra.Command {
	var start string
	cmd := &cobra.Command{
		Use:   "tree <layout>",
		Short: "Print the command tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, f, err := readLayout(cmd, args[0])
			if err != nil {
				return err
			}
			tree, err := f.Tree(startOr(app, start))
			if err != nil {
				return err
			}
			if app.printer.Format() != output.FormatText {
				return app.printer.PrintValue(tree)
			}
			return app.printer.Tree(treeNode(tree))
		},
	}
	startFlag(cmd, &start)
	return cmd
}

func treeNode(n *layout.Node) *output.TreeNode {
	label := n.Command
	if !n.IsGroup() && n.Identifier != "" {
		label += " (" + n.Identifier + ")"
	}
	if len(n.Bugs) > 0 {
		label += " [bugs: " + strings.Join(n.Bugs, ", ") + "]"
	}
	out := &output.TreeNode{Label: label}
	for _, c := range n.Children {
		out.Children = append(out.Children, treeNode(c))
	}
	return out
}

func newLayoutOpsCmd() *cobra.Command {
	var start string
	cmd := &cobra.Command{
		Use:   "ops <layout>",
		Short: "List the operation ids the layout retains",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, f, err := readLayout(cmd, args[0])
			if err != nil {
				return err
			}
			tree, err := f.Tree(startOr(app, start))
			if err != nil {
				return err
			}
			return printNames(app, tree.OperationIDs())
		},
	}
	startFlag(cmd, &start)
	return cmd
}
