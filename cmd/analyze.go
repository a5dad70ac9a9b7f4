package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tarrence/oascli/internal/openapi"
	"github.com/tarrence/oascli/internal/output"
	"github.com/tarrence/oascli/internal/params"
	"github.com/tarrence/oascli/internal/refgraph"
)

func newAnalyzeCmd() *cobra.Command {
	analyzeCmd := &cobra.Command{
		Use:           "analyze",
		Short:         "Inspect an OpenAPI document",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	analyzeCmd.AddCommand(newAnalyzeInfoCmd())
	analyzeCmd.AddCommand(newAnalyzeValidateCmd())
	analyzeCmd.AddCommand(newAnalyzeOpsCmd())
	analyzeCmd.AddCommand(newAnalyzeModelsCmd())
	return analyzeCmd
}

// readDocument loads the <oas> argument.
func readDocument(cmd *cobra.Command, path string) (*appState, *openapi.Document, error) {
	app, err := appFrom(cmd)
	if err != nil {
		return nil, nil, err
	}
	stdinUsed := false
	data, err := app.source(path, &stdinUsed)
	if err != nil {
		return nil, nil, err
	}
	doc, err := openapi.Parse(data)
	if err != nil {
		return nil, nil, err
	}
	return app, doc, nil
}

func newAnalyzeInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <oas>",
		Short: "Show title, version and counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			stdinUsed := false
			data, err := app.source(args[0], &stdinUsed)
			if err != nil {
				return err
			}
			s, err := openapi.Summarize(data)
			if err != nil {
				return err
			}
			p := app.printer
			if p.Format() != output.FormatText {
				return p.PrintValue(s)
			}
			return p.Table([]string{"Property", "Value"}, [][]string{
				{"title", s.Title},
				{"version", s.Version},
				{"openapi", s.OpenAPI},
				{"paths", fmt.Sprint(s.Paths)},
				{"operations", fmt.Sprint(s.Operations)},
				{"schemas", fmt.Sprint(s.Schemas)},
				{"tags", strings.Join(s.Tags, ", ")},
				{"servers", strings.Join(s.Servers, ", ")},
			})
		},
	}
}

func newAnalyzeValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <oas>",
		Short: "Validate the document structure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			stdinUsed := false
			data, err := app.source(args[0], &stdinUsed)
			if err != nil {
				return err
			}
			if err := openapi.Validate(cmd.Context(), data); err != nil {
				return err
			}
			app.printer.Success("%s is valid", args[0])
			return nil
		},
	}
}

func newAnalyzeOpsCmd() *cobra.Command {
	opsCmd := &cobra.Command{
		Use:   "ops",
		Short: "Inspect operations",
	}

	opsCmd.AddCommand(&cobra.Command{
		Use:   "list <oas>",
		Short: "List operation ids with method and path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, doc, err := readDocument(cmd, args[0])
			if err != nil {
				return err
			}
			type row struct {
				Operation string `json:"operation" yaml:"operation"`
				Method    string `json:"method" yaml:"method"`
				Path      string `json:"path" yaml:"path"`
			}
			var rows []row
			var cells [][]string
			for _, op := range doc.Operations() {
				rows = append(rows, row{op.ID, op.Method, op.Path})
				cells = append(cells, []string{op.ID, op.Method, op.Path})
			}
			if app.printer.Format() != output.FormatText {
				return app.printer.PrintValue(rows)
			}
			return app.printer.Table([]string{"Operation", "Method", "Path"}, cells)
		},
	})

	opsCmd.AddCommand(&cobra.Command{
		Use:   "show <oas> <operationId>",
		Short: "Print the raw operation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, doc, err := readDocument(cmd, args[0])
			if err != nil {
				return err
			}
			op, err := doc.Operation(args[1])
			if err != nil {
				return err
			}
			return openapi.Encode(app.printer.Out(), op.Node, formatTarget(app))
		},
	})

	opsCmd.AddCommand(&cobra.Command{
		Use:   "models <oas> <operationId>",
		Short: "List every model the operation depends on",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, doc, err := readDocument(cmd, args[0])
			if err != nil {
				return err
			}
			seeds, err := refgraph.OperationSeeds(doc, args[1])
			if err != nil {
				return err
			}
			g := refgraph.Build(doc.Components())
			return printNames(app, refgraph.Closure(g, seeds.Sorted()...).Sorted())
		},
	})

	var in []string
	paramsCmd := &cobra.Command{
		Use:   "params <oas> <operationId>",
		Short: "Show the flat parameters of an operation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			locs := make([]params.Location, 0, len(in))
			for _, s := range in {
				loc, ok := params.ParseLocation(s)
				if !ok {
					return fmt.Errorf("invalid --in %q (expected path, query, header or body)", s)
				}
				locs = append(locs, loc)
			}
			app, doc, err := readDocument(cmd, args[0])
			if err != nil {
				return err
			}
			res, err := app.engine(doc).ResolveOperation(args[1], locs...)
			if err != nil {
				return err
			}
			p := app.printer
			p.Diagnostics(res.Diagnostics)
			if p.Format() != output.FormatText {
				return p.PrintValue(map[string]any{
					"operation":   res.Operation.ID,
					"contentType": res.ContentType,
					"parameters":  res.Ordered(),
					"enums":       res.Enums.Definitions,
				})
			}
			for _, set := range res.Ordered() {
				if err := p.Title(string(set.Location)); err != nil {
					return err
				}
				var rows [][]string
				for _, prop := range set.Properties {
					rows = append(rows, []string{prop.Name, prop.Flag, propertyType(prop), requiredMark(prop), enumValues(res.Enums, prop)})
				}
				if err := p.Table([]string{"Name", "Flag", "Type", "Required", "Enum"}, rows); err != nil {
					return err
				}
			}
			return nil
		},
	}
	paramsCmd.Flags().StringSliceVar(&in, "in", nil, "Only resolve these locations: path, query, header, body")
	opsCmd.AddCommand(paramsCmd)
	return opsCmd
}

func newAnalyzeModelsCmd() *cobra.Command {
	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "Inspect component models",
	}

	modelsCmd.AddCommand(&cobra.Command{
		Use:   "list <oas>",
		Short: "List schema names in document order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, doc, err := readDocument(cmd, args[0])
			if err != nil {
				return err
			}
			return printNames(app, doc.Models())
		},
	})

	modelsCmd.AddCommand(&cobra.Command{
		Use:   "show <oas> <model>",
		Short: "Print one component",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, doc, err := readDocument(cmd, args[0])
			if err != nil {
				return err
			}
			name, err := refgraph.FullName(refgraph.Build(doc.Components()), args[1])
			if err != nil {
				return err
			}
			node := openapi.Lookup(doc.Components(), strings.Split(name, "/")...)
			if node == nil {
				return fmt.Errorf("no component named %q", args[1])
			}
			return openapi.Encode(app.printer.Out(), node, formatTarget(app))
		},
	})

	graphCmd := func(use, short string, query func(refgraph.Graph, string) refgraph.Set) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <oas> <model>",
			Short: short,
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				app, doc, err := readDocument(cmd, args[0])
				if err != nil {
					return err
				}
				g := refgraph.Build(doc.Components())
				name, err := refgraph.FullName(g, args[1])
				if err != nil {
					return err
				}
				return printNames(app, query(g, name).Sorted())
			},
		}
	}
	modelsCmd.AddCommand(graphCmd("uses", "List the models a model depends on", refgraph.Uses))
	modelsCmd.AddCommand(graphCmd("used-by", "List the models that depend on a model", refgraph.UsedBy))

	modelsCmd.AddCommand(&cobra.Command{
		Use:   "ops <oas> <model>",
		Short: "List the operations that use a model",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, doc, err := readDocument(cmd, args[0])
			if err != nil {
				return err
			}
			g := refgraph.Build(doc.Components())
			name, err := refgraph.FullName(g, args[1])
			if err != nil {
				return err
			}
			return printNames(app, refgraph.OperationsUsing(doc, g, name))
		},
	})
	return modelsCmd
}

// printNames prints one name per line, or a list in json/yaml.
func printNames(app *appState, names []string) error {
	if app.printer.Format() != output.FormatText {
		if names == nil {
			names = []string{}
		}
		return app.printer.PrintValue(names)
	}
	for _, n := range names {
		if err := app.printer.Println(n); err != nil {
			return err
		}
	}
	return nil
}

// formatTarget maps --format onto the file name openapi.Encode keys off.
func formatTarget(app *appState) string {
	if app.printer.Format() == output.FormatJSON {
		return "-.json"
	}
	return "-.yaml"
}

func propertyType(p *params.Property) string {
	t := string(p.Type)
	if p.Collection {
		t = "[]" + t
	}
	return t
}

func requiredMark(p *params.Property) string {
	if p.Required {
		return "yes"
	}
	return ""
}

func enumValues(enums *params.EnumTable, p *params.Property) string {
	if d := enums.For(p); d != nil {
		return strings.Join(d.Values(), ", ")
	}
	return ""
}
