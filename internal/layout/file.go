// Package layout reads the file that maps a command tree onto operation ids.
//
// A layout file is a mapping of subcommand ids. Each entry has a description and an
// ordered list of operations; an operation names either an operationId (a leaf
// command) or a subcommandId (a nested group).
package layout

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultStart is the subcommand the tree is rooted at.
const DefaultStart = "main"

// Field names used by the layout format.
const (
	FieldName          = "name"
	FieldBugIDs        = "bugIds"
	FieldDescription   = "description"
	FieldOperationID   = "operationId"
	FieldOperations    = "operations"
	FieldSubcommandID  = "subcommandId"
	FieldSummaryFields = "summaryFields"
	FieldPagination    = "pagination"
)

var knownFields = []string{
	FieldName, FieldBugIDs, FieldDescription, FieldOperationID,
	FieldOperations, FieldSubcommandID, FieldSummaryFields, FieldPagination,
}

// File is the decoded layout file with its subcommands in document order.
type File struct {
	Names    []string
	Commands map[string]*Command
}

// Command is one top-level entry of the file.
type Command struct {
	Description   string
	Operations    []*Operation
	BugIDs        []string
	SummaryFields []string
	Pagination    map[string]string
	Extra         map[string]any

	keys []string
}

// Has reports whether key was present in the file.
func (c *Command) Has(key string) bool { return slices.Contains(c.keys, key) }

// Operation is one entry of a command's operations list.
type Operation struct {
	Name          string
	OperationID   string
	SubcommandID  string
	Description   string
	BugIDs        []string
	SummaryFields []string
	Pagination    map[string]string
	Extra         map[string]any

	keys []string
}

func (o *Operation) Has(key string) bool { return slices.Contains(o.keys, key) }

// Decode parses a layout file.
func Decode(data []byte) (*File, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	f := &File{Commands: map[string]*Command{}}
	if len(root.Content) == 0 {
		return f, nil
	}
	m := root.Content[0]
	if m.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("layout must be a mapping of subcommands")
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		name := m.Content[i].Value
		cmd, err := decodeCommand(m.Content[i+1])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		f.Names = append(f.Names, name)
		f.Commands[name] = cmd
	}
	return f, nil
}

// ReadFile reads and decodes path.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

func decodeCommand(n *yaml.Node) (*Command, error) {
	c := &Command{}
	if n.Tag == "!!null" {
		return c, nil
	}
	fields, err := decodeFields(n)
	if err != nil {
		return nil, err
	}
	c.keys = fields.keys
	c.Description = fields.str(FieldDescription)
	c.BugIDs = fields.list(FieldBugIDs)
	c.SummaryFields = fields.list(FieldSummaryFields)
	c.Pagination = fields.pagination
	c.Extra = fields.extra
	if ops := fields.nodes[FieldOperations]; ops != nil {
		if ops.Kind != yaml.SequenceNode {
			return nil, fmt.Errorf("operations must be a list")
		}
		for i, on := range ops.Content {
			op, err := decodeOperation(on)
			if err != nil {
				return nil, fmt.Errorf("operations[%d]: %w", i, err)
			}
			c.Operations = append(c.Operations, op)
		}
	}
	return c, nil
}

func decodeOperation(n *yaml.Node) (*Operation, error) {
	fields, err := decodeFields(n)
	if err != nil {
		return nil, err
	}
	return &Operation{
		Name:          fields.str(FieldName),
		OperationID:   fields.str(FieldOperationID),
		SubcommandID:  fields.str(FieldSubcommandID),
		Description:   fields.str(FieldDescription),
		BugIDs:        fields.list(FieldBugIDs),
		SummaryFields: fields.list(FieldSummaryFields),
		Pagination:    fields.pagination,
		Extra:         fields.extra,
		keys:          fields.keys,
	}, nil
}

type fieldSet struct {
	keys       []string
	nodes      map[string]*yaml.Node
	pagination map[string]string
	extra      map[string]any
}

func decodeFields(n *yaml.Node) (*fieldSet, error) {
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("expected a mapping, got %s", n.ShortTag())
	}
	fs := &fieldSet{nodes: map[string]*yaml.Node{}}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i].Value, n.Content[i+1]
		fs.keys = append(fs.keys, key)
		fs.nodes[key] = val
		if !slices.Contains(knownFields, key) {
			var v any
			if err := val.Decode(&v); err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			if fs.extra == nil {
				fs.extra = map[string]any{}
			}
			fs.extra[key] = v
		}
	}
	if pn := fs.nodes[FieldPagination]; pn != nil && pn.Tag != "!!null" {
		if err := pn.Decode(&fs.pagination); err != nil {
			return nil, fmt.Errorf("pagination: %w", err)
		}
	}
	return fs, nil
}

func (fs *fieldSet) str(key string) string {
	if n := fs.nodes[key]; n != nil && n.Kind == yaml.ScalarNode && n.Tag != "!!null" {
		return n.Value
	}
	return ""
}

// list accepts either a YAML sequence or comma separated text.
func (fs *fieldSet) list(key string) []string {
	n := fs.nodes[key]
	if n == nil {
		return nil
	}
	var raw []string
	switch n.Kind {
	case yaml.SequenceNode:
		for _, c := range n.Content {
			raw = append(raw, c.Value)
		}
	case yaml.ScalarNode:
		if n.Tag != "!!null" {
			raw = strings.Split(n.Value, ",")
		}
	}
	var out []string
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
