package schema

import (
	"slices"
	"strings"
)

// Trail records where a resolution is happening: the operation, the chain of field
// names walked so far and the stack of references currently being expanded. Trails
// are values; every extension returns a copy.
type Trail struct {
	Operation string
	fields    []string
	refs      []string
}

func NewTrail(operation string) Trail {
	return Trail{Operation: operation}
}

// Field descends into a named child.
func (t Trail) Field(name string) Trail {
	t.fields = append(slices.Clip(t.fields), name)
	return t
}

// Through pushes references that an enclosing resolution already entered, typically
// a Property's Via list.
func (t Trail) Through(refs ...string) Trail {
	if len(refs) == 0 {
		return t
	}
	t.refs = append(slices.Clip(t.refs), refs...)
	return t
}

func (t Trail) enter(ref string) (Trail, error) {
	if slices.Contains(t.refs, ref) {
		return t, &CycleDetectedError{Ref: ref, Stack: slices.Clone(t.refs)}
	}
	return t.Through(ref), nil
}

// Path is the dotted field chain.
func (t Trail) Path() string {
	return strings.Join(t.fields, ".")
}

// Chain is the operation followed by the field chain, for error reporting.
func (t Trail) Chain() []string {
	out := make([]string, 0, len(t.fields)+1)
	if t.Operation != "" {
		out = append(out, t.Operation)
	}
	return append(out, t.fields...)
}

func (t Trail) Refs() []string {
	return slices.Clone(t.refs)
}
