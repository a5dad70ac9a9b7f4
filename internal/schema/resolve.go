package schema

import (
	"fmt"
	"log/slog"
	"reflect"
	"slices"
)

// Resolver dereferences $refs against an Index and folds allOf/anyOf/oneOf into one
// effective node. Resolution is shallow: the properties and items of the result are
// left as declared and are resolved by the caller as it descends.
type Resolver struct {
	index  *Index
	diags  *Diagnostics
	logger *slog.Logger
}

type Option func(*Resolver)

// WithDiagnostics sets the collector that receives AmbiguousVariantNotice entries.
func WithDiagnostics(d *Diagnostics) Option {
	return func(r *Resolver) { r.diags = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

func NewResolver(index *Index, opts ...Option) *Resolver {
	r := &Resolver{
		index:  index,
		diags:  &Diagnostics{},
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) Index() *Index {
	return r.index
}

func (r *Resolver) Diagnostics() *Diagnostics {
	return r.diags
}

// Resolve returns the effective node for n. The result carries no Ref and no
// composition lists. n itself is never modified.
func (r *Resolver) Resolve(n *Node, t Trail) (*Node, error) {
	if n == nil {
		return nil, nil
	}
	switch n.Variant() {
	case VariantReference:
		return r.resolveRef(n, t)
	case VariantComposition:
		return r.merge(n, t)
	default:
		return n, nil
	}
}

func (r *Resolver) resolveRef(n *Node, t Trail) (*Node, error) {
	target, ok := r.index.Lookup(n.Ref)
	if !ok {
		return nil, &MissingReferenceError{Ref: n.Ref, Chain: t.Chain()}
	}
	short := ShortRef(n.Ref)
	inner, err := t.enter(short)
	if err != nil {
		return nil, err
	}
	res, err := r.Resolve(target, inner)
	if err != nil {
		return nil, err
	}

	out := res.Clone()
	if out.Source == "" {
		out.Source = short
	}
	for i, p := range out.Properties {
		out.Properties[i].Via = append([]string{short}, p.Via...)
	}

	// Siblings of $ref only fill gaps left by the target.
	if out.Description == "" {
		out.Description = n.Description
	}
	if !out.HasDefault && n.HasDefault {
		out.Default, out.HasDefault = n.Default, true
	}
	if out.DeprecatedSince == "" {
		out.DeprecatedSince = n.DeprecatedSince
	}
	out.ReadOnly = out.ReadOnly || n.ReadOnly
	out.Deprecated = out.Deprecated || n.Deprecated
	out.Nullable = out.Nullable || n.Nullable
	return out, nil
}

func (r *Resolver) merge(n *Node, t Trail) (*Node, error) {
	acc := &Node{}
	for i, m := range n.AllOf {
		rm, err := r.Resolve(m, t)
		if err != nil {
			return nil, fmt.Errorf("allOf[%d]: %w", i, err)
		}
		overlay(acc, rm)
	}

	for _, v := range []struct {
		keyword  string
		branches []*Node
	}{
		{"oneOf", n.OneOf},
		{"anyOf", n.AnyOf},
	} {
		if len(v.branches) == 0 {
			continue
		}
		chosen, err := r.pick(v.keyword, v.branches, t)
		if err != nil {
			return nil, err
		}
		overlay(acc, chosen)
	}

	own := n.Clone()
	own.AllOf, own.AnyOf, own.OneOf = nil, nil, nil
	overlay(acc, own)

	if acc.Kind == KindUnknown {
		switch {
		case len(acc.Properties) > 0:
			acc.Kind = KindObject
		case acc.Items != nil:
			acc.Kind = KindArray
		}
	}
	return acc, nil
}

// pick applies the first-candidate rule to a oneOf/anyOf list. Null branches are
// dropped and make the result nullable. A branch that is an array of another branch
// is collapsed onto that branch, which is then marked as a collection.
func (r *Resolver) pick(keyword string, branches []*Node, t Trail) (*Node, error) {
	type candidate struct {
		index int
		node  *Node
	}
	var (
		candidates []candidate
		nullable   bool
	)
	for i, b := range branches {
		if isNullBranch(b) {
			nullable = true
			continue
		}
		candidates = append(candidates, candidate{index: i, node: b})
	}
	if len(candidates) == 0 {
		return &Node{Kind: KindNull, Nullable: true}, nil
	}

	collection := -1
	for i, a := range candidates {
		arr := r.target(a.node)
		if arr == nil || arr.Kind != KindArray {
			continue
		}
		j := slices.IndexFunc(candidates, func(b candidate) bool {
			return b.index != a.index && sameSchema(arr.Items, b.node)
		})
		if j >= 0 {
			collection = candidates[j].index
			candidates = slices.Delete(candidates, i, i+1)
			break
		}
	}

	first := candidates[0]
	if len(candidates) > 1 {
		d := Diagnostic{
			Kind:       AmbiguousVariantNotice,
			Operation:  t.Operation,
			Property:   t.Path(),
			Keyword:    keyword,
			Chosen:     first.index,
			Candidates: len(candidates),
			Message:    fmt.Sprintf("%s has %d candidates, using the first (index %d)", keyword, len(candidates), first.index),
		}
		r.diags.Add(d)
		r.logger.Info("ambiguous variant", "operation", d.Operation, "property", d.Property, "keyword", keyword, "chosen", d.Chosen, "candidates", d.Candidates)
	}

	res, err := r.Resolve(first.node, t)
	if err != nil {
		return nil, fmt.Errorf("%s[%d]: %w", keyword, first.index, err)
	}
	if first.index == collection || nullable {
		res = res.Clone()
		res.Collection = res.Collection || first.index == collection
		res.Nullable = res.Nullable || nullable
	}
	return res, nil
}

func isNullBranch(n *Node) bool {
	return n.Ref == "" && n.Kind == KindNull && len(n.Properties) == 0 && len(n.Enum) == 0
}

// target follows a chain of plain references to the node it names, without merging
// or recording anything. It returns nil for missing or cyclic references.
func (r *Resolver) target(n *Node) *Node {
	seen := map[string]bool{}
	for n != nil && n.Ref != "" {
		if seen[n.Ref] {
			return nil
		}
		seen[n.Ref] = true
		next, ok := r.index.Lookup(n.Ref)
		if !ok {
			return nil
		}
		n = next
	}
	return n
}

func sameSchema(a, b *Node) bool {
	if a == nil || b == nil {
		return false
	}
	if a.Ref != "" || b.Ref != "" {
		return a.Ref == b.Ref
	}
	return reflect.DeepEqual(a, b)
}

// overlay folds src into dst, later values winning. Properties and required lists are
// unioned in order.
func overlay(dst, src *Node) {
	if src == nil {
		return
	}
	if src.Kind != KindUnknown {
		dst.Kind = src.Kind
	}
	if src.Format != "" {
		dst.Format = src.Format
	}
	if len(src.Enum) > 0 {
		dst.Enum = slices.Clone(src.Enum)
		dst.Source = src.Source
	}
	for _, p := range src.Properties {
		dst.setProperty(p)
	}
	for _, name := range src.Required {
		if !slices.Contains(dst.Required, name) {
			dst.Required = append(dst.Required, name)
		}
	}
	if src.Items != nil {
		dst.Items = src.Items
	}
	if src.Description != "" {
		dst.Description = src.Description
	}
	if src.HasDefault {
		dst.Default, dst.HasDefault = src.Default, true
	}
	if src.DeprecatedSince != "" {
		dst.DeprecatedSince = src.DeprecatedSince
	}
	dst.ReadOnly = dst.ReadOnly || src.ReadOnly
	dst.Deprecated = dst.Deprecated || src.Deprecated
	dst.Nullable = dst.Nullable || src.Nullable
	dst.Collection = dst.Collection || src.Collection
}
