package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tarrence/oascli/internal/layout"
	"github.com/tarrence/oascli/internal/manifest"
	"github.com/tarrence/oascli/internal/openapi"
	"github.com/tarrence/oascli/internal/output"
	"github.com/tarrence/oascli/internal/params"
)

type inputOptions struct {
	start   string
	example bool
}

func (o *inputOptions) register(cmd *cobra.Command) {
	startFlag(cmd, &o.start)
	cmd.Flags().BoolVar(&o.example, "example", false, "Use the bundled pet store document and layout")
}

// load reads <oas> and <layout> and builds the layout tree.
func (o *inputOptions) load(cmd *cobra.Command, args []string) (*appState, *openapi.Document, *layout.Node, error) {
	app, err := appFrom(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	doc, _, lf, err := app.loadInputs(args, o.example)
	if err != nil {
		return nil, nil, nil, err
	}
	tree, err := lf.Tree(startOr(app, o.start))
	if err != nil {
		return nil, nil, nil, err
	}
	return app, doc, tree, nil
}

func newGenerateCmd() *cobra.Command {
	var in inputOptions
	var out string
	cmd := &cobra.Command{
		Use:   "generate <oas> <layout>",
		Short: "Resolve every layout operation and write a manifest",
		Long: "Resolve every operation the layout retains and write a manifest of commands,\n" +
			"flat parameters and enums. Nothing is written when any operation fails.",
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, doc, tree, err := in.load(cmd, args)
			if err != nil {
				return err
			}
			p := app.printer
			resolved, failures := app.engine(doc).ResolveAll(cmd.Context(), tree.OperationIDs())
			if len(failures) > 0 {
				for _, f := range failures {
					p.Notice("error: %v", f)
				}
				return fmt.Errorf("%d of %d operations failed to resolve", len(failures), len(resolved))
			}
			results := make(map[string]*params.Resolution, len(resolved))
			for _, r := range resolved {
				results[r.Operation.ID] = r
			}
			m, err := manifest.Build(doc, tree, results)
			if err != nil {
				return err
			}
			p.Diagnostics(m.Diagnostics())

			asJSON := strings.EqualFold(filepath.Ext(out), ".json") ||
				(out == "" && p.Format() == output.FormatJSON)
			if err := writeOutput(cmd, out, func(w io.Writer) error { return m.Encode(w, asJSON) }); err != nil {
				return err
			}
			app.logger.Info("wrote manifest", "commands", len(m.Commands), "groups", len(m.Groups), "out", out)
			return nil
		},
	}
	in.register(cmd)
	cmd.Flags().StringVar(&out, "out", "", "Write the manifest to FILE (.json for JSON) instead of stdout")

	cmd.AddCommand(newGenerateCheckCmd())
	cmd.AddCommand(newGenerateUnreferencedCmd())
	return cmd
}

func newGenerateCheckCmd() *cobra.Command {
	var in inputOptions
	cmd := &cobra.Command{
		Use:   "check <oas> <layout>",
		Short: "List layout operations missing from the document",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, doc, tree, err := in.load(cmd, args)
			if err != nil {
				return err
			}
			var missing []string
			for _, id := range tree.OperationIDs() {
				if !doc.HasOperation(id) {
					missing = append(missing, id)
				}
			}
			if err := printNames(app, missing); err != nil {
				return err
			}
			if len(missing) > 0 {
				return fmt.Errorf("%d layout operations are missing from the document", len(missing))
			}
			return nil
		},
	}
	in.register(cmd)
	return cmd
}

func newGenerateUnreferencedCmd() *cobra.Command {
	var in inputOptions
	cmd := &cobra.Command{
		Use:   "unreferenced <oas> <layout>",
		Short: "List document operations the layout does not use",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, doc, tree, err := in.load(cmd, args)
			if err != nil {
				return err
			}
			// Bugged operations are still referenced.
			var used []string
			tree.Walk(func(_ []string, n *layout.Node) {
				if !n.IsGroup() {
					used = append(used, n.Identifier)
				}
			})
			var unused []string
			for _, op := range doc.Operations() {
				if !slices.Contains(used, op.ID) {
					unused = append(unused, op.ID)
				}
			}
			return printNames(app, unused)
		},
	}
	in.register(cmd)
	return cmd
}
