package prune

import (
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/tarrence/oascli/internal/openapi"
)

// walkSchemas calls fn on every mapping that declares "properties", anywhere in n.
func walkSchemas(n *yaml.Node, fn func(*yaml.Node)) {
	if n == nil {
		return
	}
	if n.Kind == yaml.MappingNode && openapi.Lookup(n, "properties") != nil {
		fn(n)
	}
	for _, c := range n.Content {
		walkSchemas(c, fn)
	}
}

// nullableNotRequired drops nullable properties from the schema's required list.
func nullableNotRequired(s *yaml.Node) {
	props := openapi.Lookup(s, "properties")
	dropRequired(s, func(name string) bool {
		return isNullable(openapi.Lookup(props, name))
	})
}

func isNullable(p *yaml.Node) bool {
	if p == nil {
		return false
	}
	if n := openapi.Lookup(p, "nullable"); n != nil && n.Value == "true" {
		return true
	}
	if t := openapi.Lookup(p, "type"); t != nil && t.Kind == yaml.SequenceNode {
		for _, c := range t.Content {
			if c.Value == "null" {
				return true
			}
		}
	}
	for _, keyword := range []string{"oneOf", "anyOf"} {
		branches := openapi.Lookup(p, keyword)
		if branches == nil {
			continue
		}
		for _, b := range branches.Content {
			if t := openapi.Lookup(b, "type"); t != nil && t.Value == "null" {
				return true
			}
		}
	}
	return false
}

// removeProperties deletes the named properties from every schema and from the
// matching required lists. It returns the number of properties removed.
func removeProperties(root *yaml.Node, names []string) int {
	removed := 0
	walkSchemas(root, func(s *yaml.Node) {
		props := openapi.Lookup(s, "properties")
		for _, name := range names {
			if openapi.RemoveKey(props, name) {
				removed++
			}
		}
		dropRequired(s, func(name string) bool { return slices.Contains(names, name) })
	})
	return removed
}

func dropRequired(s *yaml.Node, drop func(string) bool) {
	req := openapi.Lookup(s, "required")
	if req == nil || req.Kind != yaml.SequenceNode {
		return
	}
	req.Content = slices.DeleteFunc(req.Content, func(n *yaml.Node) bool { return drop(n.Value) })
	if len(req.Content) == 0 {
		openapi.RemoveKey(s, "required")
	}
}
