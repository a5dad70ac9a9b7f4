package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"os"
	"slices"
	"strings"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/tarrence/oascli/internal/httpclient"
)

// Formats accepted by PrintValue.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

type PrinterOptions struct {
	ForcePretty  bool
	ForceCompact bool
	Ndjson       bool
	Format       string

	PrintStatus  bool
	PrintHeaders bool
}

type Printer struct {
	out io.Writer
	err io.Writer

	pretty bool
	tty    bool
	format string

	ndjson bool

	printStatus  bool
	printHeaders bool

	styles styles
}

func NewPrinter(out io.Writer, err io.Writer, opts PrinterOptions) *Printer {
	tty := false
	if f, ok := out.(*os.File); ok {
		tty = term.IsTerminal(int(f.Fd()))
	}
	pretty := tty
	if opts.ForcePretty {
		pretty = true
	} else if opts.ForceCompact {
		pretty = false
	}
	format := opts.Format
	if format == "" {
		format = FormatText
	}

	return &Printer{
		out: out,
		err: err,

		pretty: pretty,
		tty:    tty,
		format: format,
		ndjson: opts.Ndjson,

		printStatus:  opts.PrintStatus,
		printHeaders: opts.PrintHeaders,

		styles: newStyles(out, err),
	}
}

func (p *Printer) Out() io.Writer      { return p.out }
func (p *Printer) Err() io.Writer      { return p.err }
func (p *Printer) NDJSONEnabled() bool { return p.ndjson }
func (p *Printer) Format() string      { return p.format }

// Styled reports whether tables and trees are drawn with borders and colors.
func (p *Printer) Styled() bool { return p.tty }

func (p *Printer) PrintHTTP(status int, headers http.Header, body []byte) error {
	if p.printStatus {
		if _, err := fmt.Fprintf(p.err, "%d\n", status); err != nil {
			return err
		}
	}
	if err := p.printHeadersTo(p.err, headers); err != nil {
		return err
	}
	return p.printBodyTo(p.out, body)
}

func (p *Printer) PrintBody(body []byte) error {
	return p.printBodyTo(p.out, body)
}

func (p *Printer) PrintHTTPError(status int, headers http.Header, body []byte) error {
	// Always print a status line for non-2xx responses.
	line := fmt.Sprintf("HTTP %d", status)
	if text := http.StatusText(status); text != "" {
		line += " " + text
	}
	if _, err := fmt.Fprintln(p.err, p.styles.errText.Render(line)); err != nil {
		return err
	}
	if err := p.printHeadersTo(p.err, headers); err != nil {
		return err
	}
	return p.printBodyTo(p.err, body)
}

func (p *Printer) printHeadersTo(w io.Writer, headers http.Header) error {
	if !p.printHeaders {
		return nil
	}
	headers = httpclient.RedactHeaders(headers)
	for _, k := range slices.Sorted(maps.Keys(headers)) {
		if _, err := fmt.Fprintf(w, "%s: %s\n", k, strings.Join(headers[k], ", ")); err != nil {
			return err
		}
	}
	return nil
}

func (p *Printer) printBodyTo(w io.Writer, body []byte) error {
	if len(body) == 0 {
		return nil
	}

	out := body
	if p.pretty && json.Valid(body) {
		var buf bytes.Buffer
		if err := json.Indent(&buf, body, "", "  "); err == nil {
			out = buf.Bytes()
		}
	}

	if _, err := w.Write(out); err != nil {
		return err
	}
	if len(out) == 0 || out[len(out)-1] != '\n' {
		_, _ = w.Write([]byte("\n"))
	}
	return nil
}

// PrintValue encodes v as JSON or YAML according to the configured format. Text
// falls back to YAML, which reads well for nested values.
func (p *Printer) PrintValue(v any) error {
	switch p.format {
	case FormatJSON:
		enc := json.NewEncoder(p.out)
		if p.pretty {
			enc.SetIndent("", "  ")
		}
		return enc.Encode(v)
	default:
		enc := yaml.NewEncoder(p.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
}

// PrintJSONLine writes v as a single line of JSON, for --ndjson streams.
func (p *Printer) PrintJSONLine(v any) error {
	return json.NewEncoder(p.out).Encode(v)
}

// Println writes one plain line to stdout.
func (p *Printer) Println(a ...any) error {
	_, err := fmt.Fprintln(p.out, a...)
	return err
}

// Notice writes a line to stderr.
func (p *Printer) Notice(format string, a ...any) {
	fmt.Fprintln(p.err, p.styles.notice.Render(fmt.Sprintf(format, a...)))
}

// Success writes a highlighted line to stdout.
func (p *Printer) Success(format string, a ...any) {
	fmt.Fprintln(p.out, p.styles.success.Render(fmt.Sprintf(format, a...)))
}
