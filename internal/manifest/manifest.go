// Package manifest renders resolved operations as a document a code emitter can
// consume: one entry per command with its flat parameters, enums and diagnostics.
package manifest

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tarrence/oascli/internal/layout"
	"github.com/tarrence/oascli/internal/openapi"
	"github.com/tarrence/oascli/internal/params"
	"github.com/tarrence/oascli/internal/schema"
)

type Manifest struct {
	Title    string     `json:"title" yaml:"title"`
	Version  string     `json:"version" yaml:"version"`
	Start    string     `json:"start" yaml:"start"`
	Groups   []*Group   `json:"groups" yaml:"groups"`
	Commands []*Command `json:"commands" yaml:"commands"`
}

// Group is a command that only holds subcommands.
type Group struct {
	Command     string `json:"command" yaml:"command"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Command is one runnable command. Command is the space separated path below the
// start command.
type Command struct {
	Command       string                   `json:"command" yaml:"command"`
	Description   string                   `json:"description,omitempty" yaml:"description,omitempty"`
	Operation     string                   `json:"operation" yaml:"operation"`
	Method        string                   `json:"method" yaml:"method"`
	Path          string                   `json:"path" yaml:"path"`
	Deprecated    bool                     `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
	ContentType   string                   `json:"contentType,omitempty" yaml:"contentType,omitempty"`
	SummaryFields []string                 `json:"summaryFields,omitempty" yaml:"summaryFields,omitempty"`
	Pagination    *layout.Pagination       `json:"pagination,omitempty" yaml:"pagination,omitempty"`
	Parameters    []*params.ParameterSet   `json:"parameters" yaml:"parameters"`
	Enums         []*params.EnumDefinition `json:"enums,omitempty" yaml:"enums,omitempty"`
	Diagnostics   []schema.Diagnostic      `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// Build walks tree in layout order. results holds the resolution of every retained
// operation, keyed by operation id.
func Build(doc *openapi.Document, tree *layout.Node, results map[string]*params.Resolution) (*Manifest, error) {
	m := &Manifest{
		Title:   doc.Info.Title,
		Version: doc.Info.Version,
		Start:   tree.Identifier,
	}
	var walk func(path []string, n *layout.Node) error
	walk = func(path []string, n *layout.Node) error {
		for _, sub := range n.Subcommands(false) {
			p := append(path[:len(path):len(path)], sub.Command)
			m.Groups = append(m.Groups, &Group{Command: strings.Join(p, " "), Description: sub.Description})
			if err := walk(p, sub); err != nil {
				return err
			}
		}
		for _, leaf := range n.Operations(false) {
			res := results[leaf.Identifier]
			if res == nil {
				return fmt.Errorf("no resolution for operation %q", leaf.Identifier)
			}
			description := leaf.Description
			if description == "" {
				description = res.Operation.Summary
			}
			m.Commands = append(m.Commands, &Command{
				Command:       strings.Join(append(path[:len(path):len(path)], leaf.Command), " "),
				Description:   description,
				Operation:     leaf.Identifier,
				Method:        res.Operation.Method,
				Path:          res.Operation.Path,
				Deprecated:    res.Operation.Deprecated,
				ContentType:   res.ContentType,
				SummaryFields: leaf.SummaryFields,
				Pagination:    leaf.Pagination,
				Parameters:    res.Ordered(),
				Enums:         res.Enums.Definitions,
				Diagnostics:   res.Diagnostics,
			})
		}
		return nil
	}
	if err := walk(nil, tree); err != nil {
		return nil, err
	}
	return m, nil
}

// Diagnostics returns every diagnostic of the manifest in command order.
func (m *Manifest) Diagnostics() []schema.Diagnostic {
	var out []schema.Diagnostic
	for _, c := range m.Commands {
		out = append(out, c.Diagnostics...)
	}
	return out
}

// Encode writes m as indented JSON when asJSON is set, YAML otherwise.
func (m *Manifest) Encode(w io.Writer, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return err
	}
	return enc.Close()
}
