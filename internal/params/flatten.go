package params

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/tarrence/oascli/internal/openapi"
	"github.com/tarrence/oascli/internal/schema"
)

var ErrNameCollision = errors.New("name collision")

// NameCollisionError reports two properties of one ParameterSet that map to the same
// identifier.
type NameCollisionError struct {
	Operation  string
	Location   Location
	Identifier string
	First      string
	Second     string
}

func (e *NameCollisionError) Error() string {
	return fmt.Sprintf("%s %s: %q and %q both map to identifier %q", e.Operation, e.Location, e.First, e.Second, e.Identifier)
}

func (e *NameCollisionError) Unwrap() error { return ErrNameCollision }

// Flattener turns resolved object schemas into ParameterSets.
type Flattener struct {
	resolver *schema.Resolver
	reserved map[string]bool
	logger   *slog.Logger
}

func NewFlattener(r *schema.Resolver, reserved map[string]bool, logger *slog.Logger) *Flattener {
	if reserved == nil {
		reserved = ReservedSet()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Flattener{resolver: r, reserved: reserved, logger: logger}
}

// Flatten walks an object schema (typically a request body) into a ParameterSet.
// A non-object root yields an empty set and a warning.
func (f *Flattener) Flatten(op string, loc Location, root *schema.Node) (*ParameterSet, error) {
	set := &ParameterSet{Operation: op, Location: loc}
	if root == nil {
		return set, nil
	}
	t := schema.NewTrail(op)
	eff, err := f.resolver.Resolve(root, t)
	if err != nil {
		return nil, err
	}
	if !eff.IsObject() || len(eff.Enum) > 0 {
		f.skip(t, string(loc), fmt.Sprintf("%s schema of kind %q is not an object", loc, eff.Kind))
		return set, nil
	}
	if err := f.walk(set, eff, t, nil, true); err != nil {
		return nil, err
	}
	if err := f.assignIdentifiers(set); err != nil {
		return nil, err
	}
	return set, nil
}

// FlattenParameters builds the set for one non-body location from declared
// parameters. Object-valued parameters are flattened under the parameter name.
func (f *Flattener) FlattenParameters(op string, loc Location, ps []openapi.Parameter) (*ParameterSet, error) {
	set := &ParameterSet{Operation: op, Location: loc}
	for _, p := range ps {
		if Location(p.In) != loc {
			continue
		}
		t := schema.NewTrail(op).Field(p.Name)
		node, err := schema.Decode(p.Schema)
		if err != nil {
			return nil, fmt.Errorf("%s parameter %s: %w", op, p.Name, err)
		}
		if node == nil {
			node = &schema.Node{Kind: schema.KindString}
		}
		eff, err := f.resolver.Resolve(node, t)
		if err != nil {
			return nil, err
		}
		eff = eff.Clone()
		if p.Description != "" {
			eff.Description = p.Description
		}
		if p.DeprecatedSince != "" {
			eff.DeprecatedSince = p.DeprecatedSince
		}
		eff.Deprecated = eff.Deprecated || p.Deprecated
		if err := f.visit(set, p.Name, eff, t, nil, p.Required); err != nil {
			return nil, err
		}
	}
	if err := f.assignIdentifiers(set); err != nil {
		return nil, err
	}
	return set, nil
}

func (f *Flattener) walk(set *ParameterSet, parent *schema.Node, t schema.Trail, parents []string, parentRequired bool) error {
	for _, p := range parent.Properties {
		if p.Schema == nil {
			continue
		}
		ct := t.Field(p.Name).Through(p.Via...)
		eff, err := f.resolver.Resolve(p.Schema, ct)
		if err != nil {
			return err
		}
		if eff.ReadOnly {
			continue
		}
		required := parentRequired && parent.IsRequired(p.Name)
		if err := f.visit(set, p.Name, eff, ct, parents, required); err != nil {
			return err
		}
	}
	return nil
}

func (f *Flattener) visit(set *ParameterSet, field string, eff *schema.Node, t schema.Trail, parents []string, required bool) error {
	name := joinName(parents, field)
	switch {
	case len(eff.Enum) > 0:
		f.leaf(set, field, parents, eff, eff, required, false, "")
	case eff.Kind == schema.KindArray:
		return f.visitArray(set, field, eff, t, parents, required)
	case eff.IsObject():
		n, err := f.resolver.SettableCount(eff, t, 1)
		if err != nil {
			return err
		}
		if n == 0 {
			f.skip(t, name, "object has no settable properties")
			return nil
		}
		return f.walk(set, eff, t, append(slices.Clip(parents), field), required)
	case eff.Kind == schema.KindUnknown, eff.Kind == schema.KindNull:
		f.skip(t, name, "schema has no usable type")
	default:
		f.leaf(set, field, parents, eff, eff, required, false, "")
	}
	return nil
}

func (f *Flattener) visitArray(set *ParameterSet, field string, eff *schema.Node, t schema.Trail, parents []string, required bool) error {
	name := joinName(parents, field)
	if eff.Items == nil {
		f.skip(t, name, "array has no items schema")
		return nil
	}
	c, err := f.resolver.Classify(eff, t)
	if err != nil {
		return err
	}
	if c.IsComplex {
		f.skip(t, name, "array items are too complex")
		return nil
	}
	items, err := f.resolver.Resolve(eff.Items, t)
	if err != nil {
		return err
	}
	switch {
	case len(items.Enum) > 0:
		f.leaf(set, field, parents, items, eff, required, true, "")
	case items.Kind == schema.KindArray:
		f.skip(t, name, "nested arrays are not supported")
	case items.IsObject():
		settable := f.resolver.Settable(items)
		if len(settable) == 0 {
			f.skip(t, name, "array items have no settable properties")
			return nil
		}
		only := settable[0]
		inner, err := f.resolver.Resolve(only.Schema, t.Field(only.Name).Through(only.Via...))
		if err != nil {
			return err
		}
		if len(inner.Enum) == 0 && (inner.IsObject() || inner.Kind == schema.KindArray || inner.Kind == schema.KindUnknown || inner.Kind == schema.KindNull) {
			f.skip(t, name, "array items are too complex")
			return nil
		}
		f.leaf(set, field, parents, inner, eff, required, true, only.Name)
	case items.Kind == schema.KindUnknown, items.Kind == schema.KindNull:
		f.skip(t, name, "array items have no usable type")
	default:
		f.leaf(set, field, parents, items, eff, required, true, "")
	}
	return nil
}

// leaf emits a property typed by typ and described by meta. For plain leaves they are
// the same node; for collections typ is the item schema and meta the array.
func (f *Flattener) leaf(set *ParameterSet, field string, parents []string, typ, meta *schema.Node, required, collection bool, itemField string) {
	name := joinName(parents, field)
	nullable := typ.Nullable || meta.Nullable
	p := &Property{
		Name:            name,
		Flag:            FlagName(name),
		Field:           field,
		Parents:         slices.Clone(parents),
		Type:            primitiveOf(typ),
		Format:          typ.Format,
		Enum:            slices.Clone(typ.Enum),
		Required:        required && !nullable,
		Collection:      collection || meta.Collection || typ.Collection,
		ItemField:       itemField,
		SourceRef:       typ.Source,
		Deprecated:      meta.Deprecated || typ.Deprecated,
		DeprecatedSince: firstNonEmpty(meta.DeprecatedSince, typ.DeprecatedSince),
		Description:     firstNonEmpty(meta.Description, typ.Description),
		Nullable:        nullable,
		Location:        set.Location,
	}
	switch {
	case meta.HasDefault:
		p.Default, p.HasDefault = meta.Default, true
	case typ.HasDefault:
		p.Default, p.HasDefault = typ.Default, true
	}
	set.Properties = append(set.Properties, p)
}

func (f *Flattener) skip(t schema.Trail, name, reason string) {
	f.resolver.Diagnostics().Add(schema.Diagnostic{
		Kind:      schema.UnrepresentablePropertyWarning,
		Operation: t.Operation,
		Property:  name,
		Message:   reason,
	})
	f.logger.Warn("skipping property", "operation", t.Operation, "property", name, "reason", reason)
}

func (f *Flattener) assignIdentifiers(set *ParameterSet) error {
	seen := map[string]*Property{}
	for _, p := range set.Properties {
		p.Identifier = Identifier(p.Name, f.reserved)
		if prev, ok := seen[p.Identifier]; ok {
			return &NameCollisionError{
				Operation:  set.Operation,
				Location:   set.Location,
				Identifier: p.Identifier,
				First:      prev.Name,
				Second:     p.Name,
			}
		}
		seen[p.Identifier] = p
	}
	return nil
}

func primitiveOf(n *schema.Node) Primitive {
	switch n.Kind {
	case schema.KindInteger:
		return Integer
	case schema.KindNumber:
		return Number
	case schema.KindBoolean:
		return Boolean
	case schema.KindString:
		switch n.Format {
		case "date":
			return Date
		case "date-time":
			return DateTime
		}
		return String
	}
	// Untyped enums take their type from the values.
	if len(n.Enum) > 0 {
		return enumKind(n.Enum)
	}
	return String
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
