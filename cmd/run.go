package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tarrence/oascli/internal/cligen"
)

func newRunCmd() *cobra.Command {
	var in inputOptions
	cmd := &cobra.Command{
		Use:   "run [<oas> <layout>] -- <command...>",
		Short: "Run the CLI described by a document and a layout",
		Long: "Build the command tree of a layout at runtime and execute one command of it.\n" +
			"Arguments after -- belong to the generated CLI.\n\n" +
			"Examples:\n" +
			"  oascli run openapi.yaml layout.yaml -- pets list --all\n" +
			"  oascli run --example --base-url http://localhost:8080/v1 -- pets show 42\n",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, generated := args, []string(nil)
			if at := cmd.ArgsLenAtDash(); at >= 0 {
				inputs, generated = args[:at], args[at:]
			}
			if len(inputs) > 2 {
				return fmt.Errorf("unexpected arguments before --: %v", inputs[2:])
			}
			app, doc, tree, err := in.load(cmd, inputs)
			if err != nil {
				return err
			}

			sub := &cobra.Command{
				Use:           tree.Command,
				Short:         tree.Description,
				SilenceUsage:  true,
				SilenceErrors: true,
			}
			if err := cligen.AddCommands(cmd.Context(), sub, app.engine(doc), tree); err != nil {
				return err
			}
			sub.SetArgs(generated)
			sub.SetOut(cmd.OutOrStdout())
			sub.SetErr(cmd.ErrOrStderr())
			sub.SetIn(cmd.InOrStdin())

			ctx := cligen.WithRuntime(cmd.Context(), &cligen.Runtime{
				BaseURL: app.cfg.BaseURL,
				Token:   app.cfg.Token,
				Auth:    app.cfg.Auth,
				Client:  app.client,
				Printer: app.printer,
				Logger:  app.logger,
			})
			return sub.ExecuteContext(ctx)
		},
	}
	in.register(cmd)
	return cmd
}
