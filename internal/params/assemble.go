package params

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
)

const rootPath = ""

// AssemblyPlan is the dependency map used to rebuild a nested payload: each ancestor
// path (dotted, "" for the root) maps to the ancestor paths directly below it.
type AssemblyPlan struct {
	Children map[string][]string

	order  []string
	field  map[string]string
	leaves map[string][]*Property
}

func NewAssemblyPlan(set *ParameterSet) *AssemblyPlan {
	a := &AssemblyPlan{
		Children: map[string][]string{},
		field:    map[string]string{},
		leaves:   map[string][]*Property{},
	}
	a.add(rootPath)
	for _, p := range set.Properties {
		parent := rootPath
		for i, seg := range p.Parents {
			child := strings.Join(p.Parents[:i+1], ".")
			if _, ok := a.field[child]; !ok {
				a.add(child)
				a.field[child] = seg
				a.Children[parent] = append(a.Children[parent], child)
			}
			parent = child
		}
		a.leaves[parent] = append(a.leaves[parent], p)
	}
	return a
}

func (a *AssemblyPlan) add(path string) {
	if !slices.Contains(a.order, path) {
		a.order = append(a.order, path)
	}
}

// BottomUp orders ancestors so that each one comes after every ancestor it contains.
// At each step the first ancestor (in first-seen order) whose children are all done
// is selected.
func (a *AssemblyPlan) BottomUp() []string {
	done := map[string]bool{}
	out := make([]string, 0, len(a.order))
	for len(out) < len(a.order) {
		progressed := false
		for _, path := range a.order {
			if done[path] {
				continue
			}
			ready := true
			for _, c := range a.Children[path] {
				if !done[c] {
					ready = false
					break
				}
			}
			if ready {
				done[path] = true
				out = append(out, path)
				progressed = true
				break
			}
		}
		if !progressed {
			// Unreachable for plans built from dotted paths, which form a tree.
			break
		}
	}
	return out
}

// Assemble rebuilds the nested payload for set from flat values keyed by dotted name.
// Unset (absent or nil) values are skipped and ancestors left empty are omitted.
func Assemble(set *ParameterSet, values map[string]any) (map[string]any, error) {
	for name := range values {
		if set.Lookup(name) == nil {
			return nil, fmt.Errorf("unknown property %q", name)
		}
	}

	plan := NewAssemblyPlan(set)
	built := map[string]map[string]any{}
	for _, path := range plan.BottomUp() {
		obj := map[string]any{}
		for _, p := range plan.leaves[path] {
			v, ok := values[p.Name]
			if !ok || v == nil {
				continue
			}
			if p.ItemField != "" {
				v = wrapItems(v, p.ItemField)
			}
			obj[p.Field] = v
		}
		for _, child := range plan.Children[path] {
			if c := built[child]; len(c) > 0 {
				obj[plan.field[child]] = c
			}
		}
		built[path] = obj
	}
	return built[rootPath], nil
}

func wrapItems(v any, field string) []any {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{map[string]any{field: v}}
	}
	out := make([]any, 0, rv.Len())
	for i := range rv.Len() {
		out = append(out, map[string]any{field: rv.Index(i).Interface()})
	}
	return out
}
