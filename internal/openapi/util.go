package openapi

import (
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Lookup walks mapping keys from n. A DocumentNode is unwrapped first.
func Lookup(n *yaml.Node, keys ...string) *yaml.Node {
	n = unwrap(n)
	for _, key := range keys {
		if n == nil || n.Kind != yaml.MappingNode {
			return nil
		}
		var next *yaml.Node
		for i := 0; i+1 < len(n.Content); i += 2 {
			if n.Content[i].Value == key {
				next = unwrap(n.Content[i+1])
				break
			}
		}
		n = next
	}
	return n
}

// Keys returns the mapping keys of n in document order.
func Keys(n *yaml.Node) []string {
	n = unwrap(n)
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	out := make([]string, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		out = append(out, n.Content[i].Value)
	}
	return out
}

// RemoveKey deletes key from mapping n and reports whether it was present.
func RemoveKey(n *yaml.Node, key string) bool {
	n = unwrap(n)
	if n == nil || n.Kind != yaml.MappingNode {
		return false
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			n.Content = slices.Delete(n.Content, i, i+2)
			return true
		}
	}
	return false
}

// FindRefs collects every $ref value below n, shortened to the part after
// "#/components/", sorted and without duplicates.
func FindRefs(n *yaml.Node) []string {
	seen := map[string]bool{}
	var walk func(*yaml.Node)
	walk = func(n *yaml.Node) {
		if n == nil {
			return
		}
		if n.Kind == yaml.MappingNode {
			for i := 0; i+1 < len(n.Content); i += 2 {
				k, v := n.Content[i], n.Content[i+1]
				if k.Value == "$ref" && v.Kind == yaml.ScalarNode {
					seen[strings.TrimPrefix(v.Value, "#/components/")] = true
					continue
				}
				walk(v)
			}
			return
		}
		for _, c := range n.Content {
			walk(c)
		}
	}
	walk(n)

	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func unwrap(n *yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	if n.Kind == yaml.DocumentNode && len(n.Content) > 0 {
		return n.Content[0]
	}
	if n.Kind == yaml.AliasNode {
		return n.Alias
	}
	return n
}

func (d *Document) ServerURLForOperation(op *Operation) string {
	if op != nil && len(op.Servers) > 0 && op.Servers[0].URL != "" {
		return op.Servers[0].URL
	}
	if len(d.Servers) > 0 {
		return d.Servers[0].URL
	}
	return ""
}

func (d *Document) OperationRequiresAuth(op *Operation) bool {
	// Operation-level security overrides global.
	if op != nil && op.Security != nil {
		return len(op.Security) > 0
	}
	return len(d.Security) > 0
}

func mediaType(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}
