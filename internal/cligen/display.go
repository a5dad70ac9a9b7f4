package cligen

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/vmware-labs/yaml-jsonpath/pkg/yamlpath"
	"gopkg.in/yaml.v3"

	"github.com/tarrence/oascli/internal/output"
	"github.com/tarrence/oascli/internal/params"
)

// summarizer reduces response items to the layout's summary fields. Fields are
// dotted property names ("home.city").
type summarizer struct {
	fields []string
	paths  []*yamlpath.Path
}

func newSummarizer(fields []string) (*summarizer, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	s := &summarizer{fields: fields}
	for _, f := range fields {
		p, err := yamlpath.NewPath("$." + f)
		if err != nil {
			return nil, fmt.Errorf("summary field %q: %w", f, err)
		}
		s.paths = append(s.paths, p)
	}
	return s, nil
}

// summary returns the fields of item as a map keyed by field name. Missing fields
// are nil.
func (s *summarizer) summary(item *yaml.Node) (map[string]any, error) {
	out := make(map[string]any, len(s.fields))
	for i, p := range s.paths {
		found, err := p.Find(item)
		if err != nil {
			return nil, err
		}
		var v any
		switch len(found) {
		case 0:
		case 1:
			if err := found[0].Decode(&v); err != nil {
				return nil, err
			}
		default:
			vals := make([]any, 0, len(found))
			for _, n := range found {
				var e any
				if err := n.Decode(&e); err != nil {
					return nil, err
				}
				vals = append(vals, e)
			}
			v = vals
		}
		out[s.fields[i]] = v
	}
	return out, nil
}

func (s *summarizer) summaries(items []*yaml.Node) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		m, err := s.summary(item)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// print writes the summaries as a table in text format, and as a list (or a single
// object) in JSON and YAML.
func (s *summarizer) print(p *output.Printer, rows []map[string]any, single bool) error {
	if p.Format() != output.FormatText {
		if single && len(rows) == 1 {
			return p.PrintValue(rows[0])
		}
		return p.PrintValue(rows)
	}
	table := make([][]string, 0, len(rows))
	for _, m := range rows {
		row := make([]string, 0, len(s.fields))
		for _, f := range s.fields {
			row = append(row, cellText(m[f]))
		}
		table = append(table, row)
	}
	return p.Table(s.fields, table)
}

func cellText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return params.FormatValue(t)
	}
}

// itemNodes returns the elements of a list response, or the response itself.
func itemNodes(doc *yaml.Node) (nodes []*yaml.Node, single bool) {
	root := doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind == yaml.SequenceNode {
		return root.Content, false
	}
	return []*yaml.Node{root}, true
}

// printResponse shows one response. With summary fields and without --details
// only those fields are shown; anything that is not JSON is printed as is.
func printResponse(p *output.Printer, s *summarizer, details bool, status int, headers http.Header, body []byte) error {
	if s == nil || details || len(strings.TrimSpace(string(body))) == 0 {
		return p.PrintHTTP(status, headers, body)
	}
	doc, err := decodeJSONNode(body)
	if err != nil {
		return p.PrintHTTP(status, headers, body)
	}
	if err := p.PrintHTTP(status, headers, nil); err != nil {
		return err
	}
	nodes, single := itemNodes(doc)
	rows, err := s.summaries(nodes)
	if err != nil {
		return err
	}
	return s.print(p, rows, single)
}

// printItems shows the items collected across pages.
func printItems(p *output.Printer, s *summarizer, details bool, res *paginationResult) error {
	if err := p.PrintHTTP(res.LastStatus, res.LastHeaders, nil); err != nil {
		return err
	}
	items := res.Items
	if s != nil && !details {
		nodes := make([]*yaml.Node, 0, len(items))
		for _, item := range items {
			var n yaml.Node
			if err := n.Encode(item); err != nil {
				return err
			}
			nodes = append(nodes, &n)
		}
		rows, err := s.summaries(nodes)
		if err != nil {
			return err
		}
		if p.NDJSONEnabled() {
			for _, r := range rows {
				if err := p.PrintJSONLine(r); err != nil {
					return err
				}
			}
			return nil
		}
		return s.print(p, rows, false)
	}
	if p.NDJSONEnabled() {
		for _, item := range items {
			if err := p.PrintJSONLine(item); err != nil {
				return err
			}
		}
		return nil
	}
	if items == nil {
		items = []any{}
	}
	if p.Format() == output.FormatText {
		b, err := json.Marshal(items)
		if err != nil {
			return err
		}
		return p.PrintBody(b)
	}
	return p.PrintValue(items)
}
