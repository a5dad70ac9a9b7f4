package output

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarrence/oascli/internal/schema"
)

func newTestPrinter(opts PrinterOptions) (*Printer, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return NewPrinter(&out, &errOut, opts), &out, &errOut
}

func TestPrintHTTP(t *testing.T) {
	p, out, errOut := newTestPrinter(PrinterOptions{ForcePretty: true, PrintStatus: true, PrintHeaders: true})
	h := http.Header{"Set-Cookie": []string{"sid=1"}, "Content-Type": []string{"application/json"}}

	require.NoError(t, p.PrintHTTP(200, h, []byte(`{"a":1}`)))
	assert.Equal(t, "{\n  \"a\": 1\n}\n", out.String())
	assert.Equal(t, "200\nContent-Type: application/json\nSet-Cookie: <redacted>\n", errOut.String())
}

func TestPrintHTTPError(t *testing.T) {
	p, out, errOut := newTestPrinter(PrinterOptions{})
	require.NoError(t, p.PrintHTTPError(404, nil, []byte(`{"code":404}`)))
	assert.Empty(t, out.String())
	assert.Equal(t, "HTTP 404 Not Found\n{\"code\":404}\n", errOut.String())
}

func TestPrintValue(t *testing.T) {
	v := map[string]any{"name": "rex", "tags": []string{"a"}}

	p, out, _ := newTestPrinter(PrinterOptions{Format: FormatJSON})
	require.NoError(t, p.PrintValue(v))
	assert.JSONEq(t, `{"name":"rex","tags":["a"]}`, out.String())

	p, out, _ = newTestPrinter(PrinterOptions{Format: FormatYAML})
	require.NoError(t, p.PrintValue(v))
	assert.Equal(t, "name: rex\ntags:\n  - a\n", out.String())
}

func TestPlainTableAndTree(t *testing.T) {
	p, out, _ := newTestPrinter(PrinterOptions{})
	assert.False(t, p.Styled())

	require.NoError(t, p.Table([]string{"ID", "NAME"}, [][]string{{"1", "rex"}, {"2", "tom"}}))
	assert.Equal(t, "ID\tNAME\n1\trex\n2\ttom\n", out.String())

	out.Reset()
	require.NoError(t, p.Tree(&TreeNode{Label: "main", Children: []*TreeNode{
		{Label: "pets", Children: []*TreeNode{{Label: "list"}}},
		{Label: "owners"},
	}}))
	assert.Equal(t, "main\n  pets\n    list\n  owners\n", out.String())
}

func TestStyledTable(t *testing.T) {
	p, out, _ := newTestPrinter(PrinterOptions{})
	p.tty = true
	require.NoError(t, p.Table([]string{"ID"}, [][]string{{"1"}}))
	assert.Contains(t, out.String(), "ID")
	assert.Contains(t, out.String(), "╭")

	out.Reset()
	require.NoError(t, p.Tree(&TreeNode{Label: "main", Children: []*TreeNode{{Label: "pets"}}}))
	assert.Contains(t, out.String(), "pets")
	assert.Contains(t, out.String(), "╰──")
}

func TestDiagnostics(t *testing.T) {
	p, _, errOut := newTestPrinter(PrinterOptions{})
	p.Diagnostics([]schema.Diagnostic{
		{Kind: schema.UnrepresentablePropertyWarning, Operation: "createOwner", Property: "contact", Message: "free-form object"},
		{Kind: schema.AmbiguousVariantNotice, Operation: "updatePet", Property: "size", Message: "picked first of 2"},
	})
	assert.Contains(t, errOut.String(), "warning: ")
	assert.Contains(t, errOut.String(), "createOwner contact: free-form object")
	assert.Contains(t, errOut.String(), "notice: ")
}
