package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tarrence/oascli/internal/config"
	"github.com/tarrence/oascli/internal/httpclient"
	"github.com/tarrence/oascli/internal/layout"
	"github.com/tarrence/oascli/internal/logging"
	"github.com/tarrence/oascli/internal/openapi"
	"github.com/tarrence/oascli/internal/output"
	"github.com/tarrence/oascli/internal/params"
	"github.com/tarrence/oascli/internal/version"
	"github.com/tarrence/oascli/specs"
)

type rootOptions struct {
	ConfigFile string
	LogLevel   string
	LogFormat  string
	Format     string

	Token   string
	Auth    string
	BaseURL string
	Timeout time.Duration

	Pretty   bool
	NoPretty bool
	Ndjson   bool

	Debug bool
	Trace bool

	Status  bool
	Headers bool

	RetryNonIdempotent bool
}

type appState struct {
	opts    rootOptions
	cfg     config.Config
	logger  *slog.Logger
	client  *httpclient.Client
	printer *output.Printer
	stdin   io.Reader
}

func (a *appState) initFromFlags(cmd *cobra.Command) error {
	if a.opts.Pretty && a.opts.NoPretty {
		return fmt.Errorf("cannot set both --pretty and --no-pretty")
	}
	switch a.opts.Format {
	case output.FormatText, output.FormatJSON, output.FormatYAML:
	default:
		return fmt.Errorf("invalid --format %q (expected text, json or yaml)", a.opts.Format)
	}

	flags := cmd.Flags()
	cfg, err := config.Load(a.opts.ConfigFile, flags.Changed("config"))
	if err != nil {
		return err
	}
	// Flags win over the environment and the config file.
	if flags.Changed("log-level") {
		cfg.LogLevel = a.opts.LogLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = a.opts.LogFormat
	}
	if flags.Changed("token") {
		cfg.Token = a.opts.Token
	}
	if flags.Changed("auth") {
		cfg.Auth = a.opts.Auth
	}
	if flags.Changed("base-url") {
		cfg.BaseURL = a.opts.BaseURL
	}
	if flags.Changed("timeout") {
		cfg.Timeout = a.opts.Timeout
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	a.logger, err = logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	a.printer = output.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.PrinterOptions{
		ForcePretty:  a.opts.Pretty,
		ForceCompact: a.opts.NoPretty,
		Ndjson:       a.opts.Ndjson,
		Format:       a.opts.Format,
		PrintStatus:  a.opts.Status,
		PrintHeaders: a.opts.Headers,
	})

	a.client = httpclient.New(httpclient.Options{
		Timeout:            cfg.Timeout,
		Debug:              a.opts.Debug,
		Trace:              a.opts.Trace,
		RetryNonIdempotent: a.opts.RetryNonIdempotent,
		UserAgent:          version.UserAgent(),
		Out:                cmd.ErrOrStderr(),
		Logger:             a.logger,
	})
	a.stdin = cmd.InOrStdin()
	return nil
}

func (a *appState) contextWithApp(ctx context.Context) context.Context {
	return context.WithValue(ctx, appKey{}, a)
}

type appKey struct{}

func appFrom(cmd *cobra.Command) (*appState, error) {
	v := cmd.Context().Value(appKey{})
	if v == nil {
		return nil, errors.New("internal error: app state missing from command context")
	}
	a, ok := v.(*appState)
	if !ok {
		return nil, errors.New("internal error: app state has wrong type")
	}
	return a, nil
}

// engine builds a resolution engine over doc from the configuration.
func (a *appState) engine(doc *openapi.Document) *params.Engine {
	return params.NewEngine(doc,
		params.WithLogger(a.logger),
		params.WithContentTypes(a.cfg.ContentTypes...),
		params.WithReservedWords(a.cfg.ReservedWords...),
		params.WithWorkers(a.cfg.MaxWorkers),
	)
}

// source reads a document or layout argument. "-" is stdin, which can be used once
// per command.
func (a *appState) source(path string, stdinUsed *bool) ([]byte, error) {
	if path == "-" {
		if *stdinUsed {
			return nil, fmt.Errorf("only one input can be read from stdin")
		}
		*stdinUsed = true
	}
	return openapi.ReadSource(path, a.stdin)
}

// loadInputs reads the document and layout arguments, or the bundled pet store
// example when example is set.
func (a *appState) loadInputs(args []string, example bool) (*openapi.Document, []byte, *layout.File, error) {
	var docData, layoutData []byte
	var err error
	if example {
		if docData, err = openapi.LoadEmbedded(specs.PetsDocument); err != nil {
			return nil, nil, nil, err
		}
		if layoutData, err = openapi.LoadEmbedded(specs.PetsLayout); err != nil {
			return nil, nil, nil, err
		}
	} else {
		if len(args) < 2 {
			return nil, nil, nil, fmt.Errorf("expected <oas> and <layout> arguments (or --example)")
		}
		stdinUsed := false
		if docData, err = a.source(args[0], &stdinUsed); err != nil {
			return nil, nil, nil, err
		}
		if layoutData, err = a.source(args[1], &stdinUsed); err != nil {
			return nil, nil, nil, err
		}
	}
	doc, err := openapi.Parse(docData)
	if err != nil {
		return nil, nil, nil, err
	}
	lf, err := layout.Decode(layoutData)
	if err != nil {
		return nil, nil, nil, err
	}
	return doc, docData, lf, nil
}

func NewRootCmd() (*cobra.Command, error) {
	app := &appState{
		opts: rootOptions{
			LogLevel:  "warn",
			LogFormat: "text",
			Format:    output.FormatText,
			Auth:      httpclient.AuthBearer,
			Timeout:   30 * time.Second,
		},
	}

	root := &cobra.Command{
		Use:   "oascli",
		Short: "Build command-line interfaces from OpenAPI documents",
		Long: "Build command-line interfaces from OpenAPI documents.\n\n" +
			"A layout file maps operations onto a command tree. oascli resolves every\n" +
			"operation's parameters into flat options and either runs the resulting\n" +
			"commands directly or writes a manifest for code generation.\n\n" +
			"Examples:\n" +
			"  oascli analyze info openapi.yaml\n" +
			"  oascli layout check layout.yaml\n" +
			"  oascli generate openapi.yaml layout.yaml --out manifest.yaml\n" +
			"  oascli trim openapi.yaml layout.yaml --out trimmed.yaml\n" +
			"  oascli run openapi.yaml layout.yaml --token $TOKEN -- pets list --all\n",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := app.initFromFlags(cmd); err != nil {
				return err
			}
			cmd.SetContext(app.contextWithApp(cmd.Context()))
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&app.opts.ConfigFile, "config", config.DefaultFile, "Config file")
	pf.StringVar(&app.opts.LogLevel, "log-level", app.opts.LogLevel, "Log level: debug, info, warn or error (or set OASCLI_LOG_LEVEL)")
	pf.StringVar(&app.opts.LogFormat, "log-format", app.opts.LogFormat, "Log format: text or json")
	pf.StringVarP(&app.opts.Format, "format", "o", app.opts.Format, "Output format: text, json or yaml")

	pf.StringVar(&app.opts.Token, "token", "", "API token for run (or set OASCLI_TOKEN)")
	pf.StringVar(&app.opts.Auth, "auth", app.opts.Auth, "Auth scheme for --token: bearer, basic or none")
	pf.StringVar(&app.opts.BaseURL, "base-url", "", "Override the document's server URL (or set OASCLI_BASE_URL)")
	pf.DurationVar(&app.opts.Timeout, "timeout", app.opts.Timeout, "HTTP client timeout")

	pf.BoolVar(&app.opts.Pretty, "pretty", false, "Force pretty-printed JSON output")
	pf.BoolVar(&app.opts.NoPretty, "no-pretty", false, "Force compact (non-pretty) output")
	pf.BoolVar(&app.opts.Ndjson, "ndjson", false, "Output newline-delimited JSON where applicable (primarily with --all)")

	pf.BoolVar(&app.opts.Debug, "debug", false, "Log request/response metadata to stderr (redacts auth)")
	pf.BoolVar(&app.opts.Trace, "trace", false, "Log full request/response bodies to stderr (redacts auth headers)")
	pf.BoolVar(&app.opts.Status, "status", false, "Print HTTP status code to stderr")
	pf.BoolVar(&app.opts.Headers, "headers", false, "Print response headers to stderr (redacts auth-related headers)")
	pf.BoolVar(&app.opts.RetryNonIdempotent, "retry-non-idempotent", false, "Allow retries for non-idempotent requests on 429/5xx")

	root.SetVersionTemplate("{{.Version}}\n")
	root.Version = version.Version()

	root.AddCommand(newVersionCmd())
	root.AddCommand(newAnalyzeCmd())
	root.AddCommand(newLayoutCmd())
	root.AddCommand(newGenerateCmd())
	root.AddCommand(newTrimCmd())
	root.AddCommand(newRunCmd())

	return root, nil
}

// writeOutput writes to path, or to stdout when path is empty or "-".
func writeOutput(cmd *cobra.Command, path string, write func(io.Writer) error) error {
	if path == "" || path == "-" {
		return write(cmd.OutOrStdout())
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
