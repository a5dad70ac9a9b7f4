package cligen

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tarrence/oascli/internal/httpclient"
	"github.com/tarrence/oascli/internal/output"
)

// Runtime is what generated commands need at execution time. The root command
// installs it in the command context before any subcommand runs.
type Runtime struct {
	BaseURL string

	Token string
	Auth  string // bearer|basic|none

	Client  *httpclient.Client
	Printer *output.Printer
	Logger  *slog.Logger
}

type runtimeKey struct{}

func WithRuntime(ctx context.Context, rt *Runtime) context.Context {
	return context.WithValue(ctx, runtimeKey{}, rt)
}

func RuntimeFrom(cmd *cobra.Command) (*Runtime, error) {
	v := cmd.Context().Value(runtimeKey{})
	if v == nil {
		return nil, errors.New("internal error: runtime missing from context")
	}
	rt, ok := v.(*Runtime)
	if !ok || rt == nil {
		return nil, errors.New("internal error: runtime has wrong type")
	}
	if rt.Client == nil {
		return nil, errors.New("internal error: HTTP client missing from runtime")
	}
	if rt.Printer == nil {
		return nil, errors.New("internal error: printer missing from runtime")
	}
	if rt.Logger == nil {
		rt.Logger = slog.New(slog.DiscardHandler)
	}
	return rt, nil
}
