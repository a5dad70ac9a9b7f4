package schema

import "slices"

// Kind is the structural type marker of a schema node.
type Kind int

const (
	KindUnknown Kind = iota
	KindObject
	KindArray
	KindString
	KindInteger
	KindNumber
	KindBoolean
	KindNull
)

var kindNames = map[Kind]string{
	KindUnknown: "",
	KindObject:  "object",
	KindArray:   "array",
	KindString:  "string",
	KindInteger: "integer",
	KindNumber:  "number",
	KindBoolean: "boolean",
	KindNull:    "null",
}

func (k Kind) String() string {
	return kindNames[k]
}

// ParseKind maps an OpenAPI type name to a Kind. Unrecognized names yield KindUnknown.
func ParseKind(s string) Kind {
	switch s {
	case "object":
		return KindObject
	case "array":
		return KindArray
	case "string":
		return KindString
	case "integer":
		return KindInteger
	case "number", "numeric":
		return KindNumber
	case "boolean":
		return KindBoolean
	case "null":
		return KindNull
	default:
		return KindUnknown
	}
}

// Variant is the tagged shape of a node, used to dispatch resolution.
type Variant int

const (
	VariantScalar Variant = iota
	VariantReference
	VariantComposition
	VariantEnum
	VariantObject
	VariantArray
)

// Property is a named child of an object node. Via lists the component references
// the property was pulled in through while resolving its parent, outermost first.
type Property struct {
	Name   string
	Schema *Node
	Via    []string
}

// Node is a parsed schema. Nodes decoded from a document are never mutated; the
// resolver always works on copies.
type Node struct {
	Kind   Kind
	Format string
	Enum   []any

	Properties []Property
	Items      *Node
	Required   []string

	AllOf []*Node
	AnyOf []*Node
	OneOf []*Node

	Ref string

	ReadOnly        bool
	Deprecated      bool
	DeprecatedSince string
	Nullable        bool

	Default    any
	HasDefault bool

	Description string

	// Collection is set by the merger when a "value or array of value" variant list
	// was collapsed onto this node.
	Collection bool

	// Source is the short reference (e.g. "schemas/Pet") this node was resolved from.
	Source string
}

// Variant reports the node's tagged shape. References take precedence over
// compositions, which take precedence over enums.
func (n *Node) Variant() Variant {
	switch {
	case n.Ref != "":
		return VariantReference
	case len(n.AllOf) > 0 || len(n.AnyOf) > 0 || len(n.OneOf) > 0:
		return VariantComposition
	case len(n.Enum) > 0:
		return VariantEnum
	case n.Kind == KindArray:
		return VariantArray
	case n.IsObject():
		return VariantObject
	default:
		return VariantScalar
	}
}

// IsObject is true for nodes typed object or carrying properties.
func (n *Node) IsObject() bool {
	return n.Kind == KindObject || len(n.Properties) > 0
}

func (n *Node) Property(name string) (*Node, bool) {
	for _, p := range n.Properties {
		if p.Name == name {
			return p.Schema, true
		}
	}
	return nil, false
}

func (n *Node) IsRequired(name string) bool {
	return slices.Contains(n.Required, name)
}

// Clone returns a copy whose slices may be modified without touching n.
func (n *Node) Clone() *Node {
	c := *n
	c.Enum = slices.Clone(n.Enum)
	c.Properties = slices.Clone(n.Properties)
	c.Required = slices.Clone(n.Required)
	c.AllOf = slices.Clone(n.AllOf)
	c.AnyOf = slices.Clone(n.AnyOf)
	c.OneOf = slices.Clone(n.OneOf)
	return &c
}

func (n *Node) setProperty(p Property) {
	for i := range n.Properties {
		if n.Properties[i].Name == p.Name {
			n.Properties[i] = p
			return
		}
	}
	n.Properties = append(n.Properties, p)
}
