// Package prune rewrites a document so that it only carries what a set of retained
// operations needs.
package prune

import (
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tarrence/oascli/internal/openapi"
	"github.com/tarrence/oascli/internal/refgraph"
)

// Options selects what to retain. An empty Keep retains every operation not listed
// in Remove.
type Options struct {
	Keep                []string
	Remove              []string
	RemoveProperties    []string
	RemoveAllTags       bool
	NullableNotRequired bool
}

// Report lists what was removed.
type Report struct {
	Operations []string `json:"operations,omitempty" yaml:"operations,omitempty"`
	Paths      []string `json:"paths,omitempty" yaml:"paths,omitempty"`
	Components []string `json:"components,omitempty" yaml:"components,omitempty"`
	Tags       []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Properties int      `json:"properties,omitempty" yaml:"properties,omitempty"`
}

var methods = []string{"get", "put", "post", "delete", "options", "head", "patch", "trace"}

// alwaysKept component sections are referenced from security requirements by name,
// not by $ref, so the closure cannot see them.
var alwaysKept = []string{"securitySchemes"}

// Document prunes root in place, preserving key order.
func Document(root *yaml.Node, opts Options) (*Report, error) {
	doc, err := openapi.NewDocument(root)
	if err != nil {
		return nil, err
	}
	var missing []string
	for _, id := range slices.Concat(opts.Keep, opts.Remove) {
		if !doc.HasOperation(id) {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("schema is missing: %s", strings.Join(missing, ", "))
	}

	report := &Report{}
	if len(opts.RemoveProperties) > 0 {
		report.Properties += removeProperties(root, opts.RemoveProperties)
	}
	if opts.NullableNotRequired {
		walkSchemas(root, nullableNotRequired)
	}

	retain := func(id string) bool {
		if id == "" {
			return len(opts.Keep) == 0
		}
		if len(opts.Keep) > 0 && !slices.Contains(opts.Keep, id) {
			return false
		}
		return !slices.Contains(opts.Remove, id)
	}
	pruneOperations(openapi.Lookup(root, "paths"), retain, report)

	pruneComponents(root, report)

	if opts.RemoveAllTags {
		removeAllTags(root, report)
	} else {
		pruneTags(root, report)
	}
	return report, nil
}

func pruneOperations(paths *yaml.Node, retain func(string) bool, report *Report) {
	if paths == nil {
		return
	}
	for _, path := range openapi.Keys(paths) {
		item := openapi.Lookup(paths, path)
		remaining := 0
		for _, method := range openapi.Keys(item) {
			if !slices.Contains(methods, method) {
				continue
			}
			id := ""
			if n := openapi.Lookup(item, method, "operationId"); n != nil {
				id = n.Value
			}
			if retain(id) {
				remaining++
				continue
			}
			openapi.RemoveKey(item, method)
			if id == "" {
				id = strings.ToUpper(method) + " " + path
			}
			report.Operations = append(report.Operations, id)
		}
		if remaining == 0 {
			openapi.RemoveKey(paths, path)
			report.Paths = append(report.Paths, path)
		}
	}
}

func pruneComponents(root *yaml.Node, report *Report) {
	components := openapi.Lookup(root, "components")
	if components == nil {
		return
	}
	g := refgraph.Build(components)
	seeds := openapi.FindRefs(openapi.Lookup(root, "paths"))
	keep := refgraph.Closure(g, seeds...)

	for _, section := range openapi.Keys(components) {
		if slices.Contains(alwaysKept, section) {
			continue
		}
		entries := openapi.Lookup(components, section)
		for _, name := range openapi.Keys(entries) {
			ref := section + "/" + name
			if keep.Has(ref) {
				continue
			}
			openapi.RemoveKey(entries, name)
			report.Components = append(report.Components, ref)
		}
		if len(openapi.Keys(entries)) == 0 {
			openapi.RemoveKey(components, section)
		}
	}
	if len(openapi.Keys(components)) == 0 {
		openapi.RemoveKey(root, "components")
	}
}

func usedTags(root *yaml.Node) map[string]bool {
	used := map[string]bool{}
	paths := openapi.Lookup(root, "paths")
	for _, path := range openapi.Keys(paths) {
		item := openapi.Lookup(paths, path)
		for _, method := range openapi.Keys(item) {
			tags := openapi.Lookup(item, method, "tags")
			if tags == nil || tags.Kind != yaml.SequenceNode {
				continue
			}
			for _, t := range tags.Content {
				used[t.Value] = true
			}
		}
	}
	return used
}

func pruneTags(root *yaml.Node, report *Report) {
	tags := openapi.Lookup(root, "tags")
	if tags == nil || tags.Kind != yaml.SequenceNode {
		return
	}
	used := usedTags(root)
	tags.Content = slices.DeleteFunc(tags.Content, func(n *yaml.Node) bool {
		name := openapi.Lookup(n, "name")
		if name == nil || used[name.Value] {
			return false
		}
		report.Tags = append(report.Tags, name.Value)
		return true
	})
	if len(tags.Content) == 0 {
		openapi.RemoveKey(root, "tags")
	}
}

func removeAllTags(root *yaml.Node, report *Report) {
	if tags := openapi.Lookup(root, "tags"); tags != nil {
		for _, n := range tags.Content {
			if name := openapi.Lookup(n, "name"); name != nil {
				report.Tags = append(report.Tags, name.Value)
			}
		}
		openapi.RemoveKey(root, "tags")
	}
	paths := openapi.Lookup(root, "paths")
	for _, path := range openapi.Keys(paths) {
		item := openapi.Lookup(paths, path)
		for _, method := range openapi.Keys(item) {
			if slices.Contains(methods, method) {
				openapi.RemoveKey(openapi.Lookup(item, method), "tags")
			}
		}
	}
}
