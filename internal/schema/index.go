package schema

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const componentsPrefix = "#/components/"

// ShortRef drops the "#/components/" prefix: "#/components/schemas/Pet" -> "schemas/Pet".
func ShortRef(ref string) string {
	return strings.TrimPrefix(ref, componentsPrefix)
}

// Index is the immutable lookup table from short reference path to schema node.
type Index struct {
	nodes map[string]*Node
}

// NewIndex decodes every entry of components/schemas.
func NewIndex(components *yaml.Node) (*Index, error) {
	idx := &Index{nodes: map[string]*Node{}}
	if components == nil || components.Kind != yaml.MappingNode {
		return idx, nil
	}
	for i := 0; i+1 < len(components.Content); i += 2 {
		if components.Content[i].Value != "schemas" {
			continue
		}
		schemas := components.Content[i+1]
		if schemas.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("components.schemas must be a mapping")
		}
		for j := 0; j+1 < len(schemas.Content); j += 2 {
			name := schemas.Content[j].Value
			n, err := Decode(schemas.Content[j+1])
			if err != nil {
				return nil, fmt.Errorf("schemas/%s: %w", name, err)
			}
			idx.nodes["schemas/"+name] = n
		}
	}
	return idx, nil
}

// IndexOf builds an index from already decoded nodes keyed by short reference.
func IndexOf(nodes map[string]*Node) *Index {
	idx := &Index{nodes: make(map[string]*Node, len(nodes))}
	for k, v := range nodes {
		idx.nodes[ShortRef(k)] = v
	}
	return idx
}

// Lookup accepts both "#/components/schemas/Pet" and "schemas/Pet".
func (idx *Index) Lookup(ref string) (*Node, bool) {
	if !strings.HasPrefix(ref, componentsPrefix) && strings.HasPrefix(ref, "#") {
		return nil, false
	}
	n, ok := idx.nodes[ShortRef(ref)]
	return n, ok
}

func (idx *Index) Len() int {
	return len(idx.nodes)
}

func (idx *Index) Names() []string {
	names := make([]string, 0, len(idx.nodes))
	for k := range idx.nodes {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
