package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/tarrence/oascli/internal/schema"
)

const (
	colorPurple = "#7C3AED"
	colorGray   = "#9CA3AF"
	colorGreen  = "#10B981"
	colorYellow = "#F59E0B"
	colorRed    = "#EF4444"
	colorCyan   = "#06B6D4"
)

type styles struct {
	header  lipgloss.Style
	cell    lipgloss.Style
	border  lipgloss.Style
	title   lipgloss.Style
	warn    lipgloss.Style
	info    lipgloss.Style
	notice  lipgloss.Style
	success lipgloss.Style
	errText lipgloss.Style
}

// newStyles binds colors to the writers they render to, so redirected output stays
// free of escape codes.
func newStyles(out, errOut io.Writer) styles {
	o, e := lipgloss.NewRenderer(out), lipgloss.NewRenderer(errOut)
	return styles{
		header:  o.NewStyle().Bold(true).Foreground(lipgloss.Color(colorPurple)).Padding(0, 1),
		cell:    o.NewStyle().Padding(0, 1),
		border:  o.NewStyle().Foreground(lipgloss.Color(colorGray)),
		title:   o.NewStyle().Bold(true).Foreground(lipgloss.Color(colorPurple)),
		warn:    e.NewStyle().Bold(true).Foreground(lipgloss.Color(colorYellow)),
		info:    e.NewStyle().Foreground(lipgloss.Color(colorCyan)),
		notice:  e.NewStyle().Foreground(lipgloss.Color(colorGray)),
		success: o.NewStyle().Foreground(lipgloss.Color(colorGreen)),
		errText: e.NewStyle().Bold(true).Foreground(lipgloss.Color(colorRed)),
	}
}

// Table prints rows under headers. On a terminal it draws a bordered table; otherwise
// columns are tab separated so the output pipes cleanly into cut or awk.
func (p *Printer) Table(headers []string, rows [][]string) error {
	if !p.tty {
		var b strings.Builder
		b.WriteString(strings.Join(headers, "\t"))
		b.WriteByte('\n')
		for _, r := range rows {
			b.WriteString(strings.Join(r, "\t"))
			b.WriteByte('\n')
		}
		_, err := io.WriteString(p.out, b.String())
		return err
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(p.styles.border).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return p.styles.header
			}
			return p.styles.cell
		})
	_, err := fmt.Fprintln(p.out, t.Render())
	return err
}

// Title prints a heading line.
func (p *Printer) Title(s string) error {
	_, err := fmt.Fprintln(p.out, p.styles.title.Render(s))
	return err
}

// Diagnostics prints warnings and notices to stderr, one per line.
func (p *Printer) Diagnostics(diags []schema.Diagnostic) {
	for _, d := range diags {
		label, style := "notice", p.styles.info
		if d.Kind == schema.UnrepresentablePropertyWarning {
			label, style = "warning", p.styles.warn
		}
		fmt.Fprintf(p.err, "%s %s\n", style.Render(label+":"), d.String())
	}
}
