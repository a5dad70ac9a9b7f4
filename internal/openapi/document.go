package openapi

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tarrence/oascli/internal/schema"
)

var (
	ErrUnknownOperation   = errors.New("unknown operation")
	ErrUnsupportedContent = errors.New("no supported request content type")
)

// Document is an OpenAPI document kept as an ordered yaml.v3 tree, plus typed views of
// the parts the CLI needs.
type Document struct {
	Root *yaml.Node

	OpenAPI  string
	Info     Info
	Servers  []Server
	Tags     []Tag
	Security []map[string][]string

	ops   []*Operation
	byID  map[string]*Operation
	index *schema.Index
}

// NewDocument builds the views over root. Operations without an operationId cannot be
// addressed from a layout and are left out of Operations.
func NewDocument(root *yaml.Node) (*Document, error) {
	m := unwrap(root)
	if m == nil || m.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("document must be a mapping")
	}
	var head struct {
		OpenAPI  string                `yaml:"openapi"`
		Info     Info                  `yaml:"info"`
		Servers  []Server              `yaml:"servers"`
		Tags     []Tag                 `yaml:"tags"`
		Security []map[string][]string `yaml:"security"`
	}
	if err := m.Decode(&head); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}

	d := &Document{
		Root:     root,
		OpenAPI:  head.OpenAPI,
		Info:     head.Info,
		Servers:  head.Servers,
		Tags:     head.Tags,
		Security: head.Security,
		byID:     map[string]*Operation{},
	}
	if err := d.walkPaths(Lookup(m, "paths")); err != nil {
		return nil, err
	}
	idx, err := schema.NewIndex(Lookup(m, "components"))
	if err != nil {
		return nil, fmt.Errorf("components: %w", err)
	}
	d.index = idx
	return d, nil
}

func (d *Document) walkPaths(paths *yaml.Node) error {
	if paths == nil {
		return nil
	}
	for i := 0; i+1 < len(paths.Content); i += 2 {
		path, item := paths.Content[i].Value, unwrap(paths.Content[i+1])
		var shared []Parameter
		if pn := Lookup(item, "parameters"); pn != nil {
			if err := pn.Decode(&shared); err != nil {
				return fmt.Errorf("paths %s parameters: %w", path, err)
			}
		}
		for j := 0; item != nil && j+1 < len(item.Content); j += 2 {
			method := item.Content[j].Value
			if !slices.Contains(methods, method) {
				continue
			}
			op := &Operation{}
			if err := item.Content[j+1].Decode(op); err != nil {
				return fmt.Errorf("paths %s %s: %w", path, method, err)
			}
			if op.ID == "" {
				continue
			}
			if prev, ok := d.byID[op.ID]; ok {
				return fmt.Errorf("duplicate operationId %q (%s %s and %s %s)", op.ID, prev.Method, prev.Path, strings.ToUpper(method), path)
			}
			op.Method = strings.ToUpper(method)
			op.Path = path
			op.Node = unwrap(item.Content[j+1])
			op.shared = shared
			d.ops = append(d.ops, op)
			d.byID[op.ID] = op
		}
	}
	return nil
}

// Operations returns operations in document order.
func (d *Document) Operations() []*Operation {
	return slices.Clone(d.ops)
}

func (d *Document) Operation(id string) (*Operation, error) {
	op, ok := d.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, id)
	}
	return op, nil
}

func (d *Document) HasOperation(id string) bool {
	_, ok := d.byID[id]
	return ok
}

func (d *Document) Components() *yaml.Node {
	return Lookup(d.Root, "components")
}

// Index is the schema lookup table for components/schemas.
func (d *Document) Index() *schema.Index {
	return d.index
}

// Models lists schema names in document order.
func (d *Document) Models() []string {
	return Keys(Lookup(d.Root, "components", "schemas"))
}

// Refs lists the components op references directly, including those of path-level
// parameters.
func (d *Document) Refs(op *Operation) []string {
	refs := FindRefs(op.Node)
	if shared := Lookup(d.Root, "paths", op.Path, "parameters"); shared != nil {
		refs = append(refs, FindRefs(shared)...)
		slices.Sort(refs)
		refs = slices.Compact(refs)
	}
	return refs
}

// Parameters returns the effective parameters of op: path-level parameters first,
// operation parameters overriding them by (in, name). Component references are
// resolved.
func (d *Document) Parameters(op *Operation) ([]Parameter, error) {
	var out []Parameter
	add := func(p Parameter) error {
		if p.Ref != "" {
			resolved, err := d.parameterRef(op, p.Ref)
			if err != nil {
				return err
			}
			p = resolved
		}
		i := slices.IndexFunc(out, func(q Parameter) bool { return q.In == p.In && q.Name == p.Name })
		if i >= 0 {
			out[i] = p
			return nil
		}
		out = append(out, p)
		return nil
	}
	for _, group := range [][]Parameter{op.shared, op.Parameters} {
		for _, p := range group {
			if err := add(p); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func (d *Document) parameterRef(op *Operation, ref string) (Parameter, error) {
	const prefix = "#/components/parameters/"
	var p Parameter
	node := Lookup(d.Root, "components", "parameters", strings.TrimPrefix(ref, prefix))
	if !strings.HasPrefix(ref, prefix) || node == nil {
		return p, &schema.MissingReferenceError{Ref: ref, Chain: []string{op.ID}}
	}
	if err := node.Decode(&p); err != nil {
		return p, fmt.Errorf("%s: %w", ref, err)
	}
	return p, nil
}

// RequestBody picks the first of contentTypes offered by op. It returns nil when op
// has no body and ErrUnsupportedContent when none of the offered types is supported.
func (d *Document) RequestBody(op *Operation, contentTypes []string) (*Body, error) {
	rb := op.RequestBody
	if rb == nil {
		return nil, nil
	}
	if rb.Ref != "" {
		const prefix = "#/components/requestBodies/"
		node := Lookup(d.Root, "components", "requestBodies", strings.TrimPrefix(rb.Ref, prefix))
		if !strings.HasPrefix(rb.Ref, prefix) || node == nil {
			return nil, &schema.MissingReferenceError{Ref: rb.Ref, Chain: []string{op.ID}}
		}
		rb = &RequestBody{}
		if err := node.Decode(rb); err != nil {
			return nil, fmt.Errorf("%s: %w", op.RequestBody.Ref, err)
		}
	}

	offered := make([]string, 0, len(rb.Content))
	for ct := range rb.Content {
		offered = append(offered, ct)
	}
	slices.Sort(offered)
	for _, want := range contentTypes {
		for _, ct := range offered {
			if mediaType(ct) == mediaType(want) {
				return &Body{
					ContentType: ct,
					Required:    rb.Required,
					Description: rb.Description,
					Schema:      rb.Content[ct].Schema,
				}, nil
			}
		}
	}
	return nil, fmt.Errorf("%w (offered: %s)", ErrUnsupportedContent, strings.Join(offered, ", "))
}
