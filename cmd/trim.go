package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/tarrence/oascli/internal/openapi"
	"github.com/tarrence/oascli/internal/prune"
)

func newTrimCmd() *cobra.Command {
	var in inputOptions
	var out string
	var opts prune.Options
	cmd := &cobra.Command{
		Use:   "trim <oas> <layout>",
		Short: "Write a document holding only what the layout uses",
		Long: "Drop every operation the layout does not retain, then every component no\n" +
			"remaining operation reaches, then unused tags. Key order is preserved.",
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, doc, tree, err := in.load(cmd, args)
			if err != nil {
				return err
			}
			opts.Keep = tree.OperationIDs()
			report, err := prune.Document(doc.Root, opts)
			if err != nil {
				return err
			}
			target := out
			if target == "" || target == "-" {
				target = formatTarget(app)
			}
			if err := writeOutput(cmd, out, func(w io.Writer) error {
				return openapi.Encode(w, doc.Root, target)
			}); err != nil {
				return err
			}
			app.printer.Notice("removed %d operations, %d paths, %d components, %d tags, %d properties",
				len(report.Operations), len(report.Paths), len(report.Components), len(report.Tags), report.Properties)
			app.logger.Debug("trimmed document", "operations", report.Operations, "components", report.Components)
			return nil
		},
	}
	in.register(cmd)
	f := cmd.Flags()
	f.StringVar(&out, "out", "", "Write the document to FILE (.json for JSON) instead of stdout")
	f.StringArrayVar(&opts.RemoveProperties, "remove", nil, "Remove a schema property by name everywhere (repeatable)")
	f.StringArrayVar(&opts.Remove, "remove-operation", nil, "Also remove this operation (repeatable)")
	f.BoolVar(&opts.RemoveAllTags, "remove-all-tags", false, "Remove every tag")
	f.BoolVar(&opts.NullableNotRequired, "nullable-not-required", false, "Drop nullable properties from required lists")
	return cmd
}
