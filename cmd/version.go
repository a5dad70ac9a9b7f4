package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tarrence/oascli/internal/output"
	"github.com/tarrence/oascli/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			if app.printer.Format() == output.FormatText {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Version())
				return err
			}
			return app.printer.PrintValue(version.Get())
		},
	}
}
