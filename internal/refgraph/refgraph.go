// Package refgraph computes reachability over the component reference graph of a
// document. It works on names only, never on expanded schemas.
package refgraph

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tarrence/oascli/internal/openapi"
)

// Set is a set of short reference paths such as "schemas/Pet".
type Set map[string]struct{}

func NewSet(items ...string) Set {
	s := make(Set, len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}

func (s Set) Add(item string) { s[item] = struct{}{} }

func (s Set) Has(item string) bool {
	_, ok := s[item]
	return ok
}

// Sorted returns the members in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// SubsetOf reports whether every member of s is in other.
func (s Set) SubsetOf(other Set) bool {
	for k := range s {
		if !other.Has(k) {
			return false
		}
	}
	return true
}

// Graph maps a reference path to the reference paths it mentions directly.
type Graph map[string]Set

// Build walks every section of the raw components mapping (schemas, parameters,
// requestBodies, responses, headers, ...) and records the $refs found in each entry.
func Build(components *yaml.Node) Graph {
	g := Graph{}
	for _, section := range openapi.Keys(components) {
		entries := openapi.Lookup(components, section)
		for _, name := range openapi.Keys(entries) {
			g[section+"/"+name] = NewSet(openapi.FindRefs(openapi.Lookup(entries, name))...)
		}
	}
	return g
}

// Closure returns every path reachable from seeds, seeds included. It terminates on
// cyclic graphs.
func Closure(g Graph, seeds ...string) Set {
	seen := Set{}
	stack := append([]string(nil), seeds...)
	for len(stack) > 0 {
		n := len(stack) - 1
		cur := stack[n]
		stack = stack[:n]
		if seen.Has(cur) {
			continue
		}
		seen.Add(cur)
		for next := range g[cur] {
			if !seen.Has(next) {
				stack = append(stack, next)
			}
		}
	}
	return seen
}

// Invert reverses every edge. Every node of g is a key of the result.
func Invert(g Graph) Graph {
	inv := make(Graph, len(g))
	for from, tos := range g {
		if _, ok := inv[from]; !ok {
			inv[from] = Set{}
		}
		for to := range tos {
			if _, ok := inv[to]; !ok {
				inv[to] = Set{}
			}
			inv[to].Add(from)
		}
	}
	return inv
}

// Uses is everything name depends on, directly or not. name itself is included only
// when it sits on a cycle.
func Uses(g Graph, name string) Set {
	return Closure(g, g[name].Sorted()...)
}

// UsedBy is everything that depends on name.
func UsedBy(g Graph, name string) Set {
	return Uses(Invert(g), name)
}

// FullName expands a bare model name ("Pet") to its reference path ("schemas/Pet").
// Exact paths are returned as-is; a bare name must match exactly one entry.
func FullName(g Graph, name string) (string, error) {
	if _, ok := g[name]; ok {
		return name, nil
	}
	if _, ok := g["schemas/"+name]; ok {
		return "schemas/" + name, nil
	}
	var matches []string
	for k := range g {
		if strings.HasSuffix(k, "/"+name) {
			matches = append(matches, k)
		}
	}
	sort.Strings(matches)
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no component named %q", name)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("component name %q is ambiguous: %s", name, strings.Join(matches, ", "))
	}
}

// OperationSeeds collects the direct references of the given operations.
func OperationSeeds(doc *openapi.Document, ids ...string) (Set, error) {
	seeds := Set{}
	for _, id := range ids {
		op, err := doc.Operation(id)
		if err != nil {
			return nil, err
		}
		for _, r := range doc.Refs(op) {
			seeds.Add(r)
		}
	}
	return seeds, nil
}

// OperationsUsing lists, in document order, the operations that reference name or
// anything that transitively uses it.
func OperationsUsing(doc *openapi.Document, g Graph, name string) []string {
	targets := UsedBy(g, name)
	targets.Add(name)
	var out []string
	for _, op := range doc.Operations() {
		for _, r := range doc.Refs(op) {
			if targets.Has(r) {
				out = append(out, op.ID)
				break
			}
		}
	}
	return out
}
