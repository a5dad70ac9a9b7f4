package params

import (
	"fmt"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/iancoleman/strcase"
	"golang.org/x/text/cases"
)

const valueMarker = "VALUE_"

type EnumMember struct {
	Identifier string `json:"identifier" yaml:"identifier"`
	Value      any    `json:"value" yaml:"value"`
}

// EnumDefinition is a named, de-duplicated enumeration.
type EnumDefinition struct {
	Name string    `json:"name" yaml:"name"`
	Kind Primitive `json:"kind" yaml:"kind"`
	// CaseSensitive is set when two members differ only by case.
	CaseSensitive bool         `json:"caseSensitive" yaml:"caseSensitive"`
	SourceRef     string       `json:"sourceRef,omitempty" yaml:"sourceRef,omitempty"`
	Members       []EnumMember `json:"members" yaml:"members"`
}

func (d *EnumDefinition) Values() []string {
	out := make([]string, 0, len(d.Members))
	for _, m := range d.Members {
		out = append(out, fmt.Sprint(m.Value))
	}
	return out
}

// Match finds the member whose value matches s, folding case unless the
// enumeration is case sensitive.
func (d *EnumDefinition) Match(s string) (any, bool) {
	folder := cases.Fold()
	for _, m := range d.Members {
		v := fmt.Sprint(m.Value)
		if v == s || (!d.CaseSensitive && folder.String(v) == folder.String(s)) {
			return m.Value, true
		}
	}
	return nil, false
}

// EnumTable maps enum-bearing properties to their definitions. Properties sharing a
// source reference share one *EnumDefinition.
type EnumTable struct {
	Definitions []*EnumDefinition
	byProp      map[*Property]*EnumDefinition
}

func (t *EnumTable) For(p *Property) *EnumDefinition {
	if t == nil {
		return nil
	}
	return t.byProp[p]
}

func (t *EnumTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Definitions)
}

// EnumsFor extracts the enum table for all sets of one operation.
func EnumsFor(sets ...*ParameterSet) *EnumTable {
	t := &EnumTable{byProp: map[*Property]*EnumDefinition{}}
	byRef := map[string]*EnumDefinition{}
	taken := map[string]bool{}

	for _, set := range sets {
		if set == nil {
			continue
		}
		for _, p := range set.Properties {
			if len(p.Enum) == 0 {
				continue
			}
			if p.SourceRef != "" {
				if d, ok := byRef[p.SourceRef]; ok {
					t.byProp[p] = d
					continue
				}
			}
			d := newEnumDefinition(uniqueName(enumBaseName(p), taken), p)
			if p.SourceRef != "" {
				byRef[p.SourceRef] = d
			}
			t.Definitions = append(t.Definitions, d)
			t.byProp[p] = d
		}
	}
	return t
}

func enumBaseName(p *Property) string {
	if p.SourceRef != "" {
		return TypeName(path.Base(p.SourceRef))
	}
	if len(p.Parents) > 0 {
		return TypeName(p.Parents[len(p.Parents)-1]) + TypeName(p.Field)
	}
	return TypeName(p.Field)
}

func uniqueName(base string, taken map[string]bool) string {
	name := base
	for i := 1; taken[name]; i++ {
		name = base + strconv.Itoa(i)
	}
	taken[name] = true
	return name
}

func newEnumDefinition(name string, p *Property) *EnumDefinition {
	var values []any
	for _, v := range p.Enum {
		if !slices.ContainsFunc(values, func(w any) bool { return sameValue(v, w) }) {
			values = append(values, v)
		}
	}
	kind := p.Type
	if kind != Integer && kind != Number {
		kind = String
	}
	return &EnumDefinition{
		Name:          name,
		Kind:          kind,
		CaseSensitive: caseSensitive(values),
		SourceRef:     p.SourceRef,
		Members:       enumMembers(kind, values),
	}
}

// enumMembers names every value in SCREAMING_SNAKE form. When the values are not all
// usable as names the marker is prefixed to every member. Repeated names get 0, 1, 2...
// suffixes in encounter order, skipping any suffix that would land on another member's
// name.
func enumMembers(kind Primitive, values []any) []EnumMember {
	prefix := ""
	if kind != String || slices.ContainsFunc(values, func(v any) bool { return !cleanEnumValue(v) }) {
		prefix = valueMarker
	}

	names := make([]string, len(values))
	counts := map[string]int{}
	for i, v := range values {
		names[i] = prefix + strings.Trim(strcase.ToScreamingSnake(unspecial(fmt.Sprint(v))), "_")
		counts[names[i]]++
	}
	used := map[string]bool{}
	for _, n := range names {
		if counts[n] == 1 {
			used[n] = true
		}
	}
	next := map[string]int{}
	members := make([]EnumMember, len(values))
	for i, v := range values {
		id := names[i]
		if counts[id] > 1 {
			for {
				id = names[i] + strconv.Itoa(next[names[i]])
				next[names[i]]++
				if !used[id] {
					break
				}
			}
			used[id] = true
		}
		members[i] = EnumMember{Identifier: id, Value: v}
	}
	return members
}

func cleanEnumValue(v any) bool {
	s, ok := v.(string)
	if !ok || s == "" {
		return false
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return false
	}
	id := strings.Trim(strcase.ToScreamingSnake(unspecial(s)), "_")
	return id != "" && (id[0] < '0' || id[0] > '9')
}

func caseSensitive(values []any) bool {
	folder := cases.Fold()
	seen := map[string]string{}
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		key := folder.String(s)
		if prev, ok := seen[key]; ok && prev != s {
			return true
		}
		seen[key] = s
	}
	return false
}

func enumKind(values []any) Primitive {
	kind := Primitive("")
	for _, v := range values {
		var k Primitive
		switch v.(type) {
		case int, int64, int32, uint64:
			k = Integer
		case float64, float32:
			k = Number
		default:
			return String
		}
		if kind == Integer && k == Number || kind == Number && k == Integer {
			k = Number
		}
		kind = k
	}
	if kind == "" {
		return String
	}
	return kind
}

// sameValue compares numbers by value so 1 and 1.0 are one member.
func sameValue(a, b any) bool {
	if x, ok := numeric(a); ok {
		y, ok := numeric(b)
		return ok && x == y
	}
	return fmt.Sprintf("%T:%v", a, a) == fmt.Sprintf("%T:%v", b, b)
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
