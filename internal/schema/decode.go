package schema

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Decode parses a YAML (or JSON) schema object. Property order follows the document.
func Decode(y *yaml.Node) (*Node, error) {
	if y == nil {
		return nil, nil
	}
	if y.Kind == yaml.DocumentNode && len(y.Content) > 0 {
		y = y.Content[0]
	}
	if y.Kind == yaml.AliasNode && y.Alias != nil {
		y = y.Alias
	}
	switch y.Kind {
	case yaml.MappingNode:
	case yaml.ScalarNode:
		// Boolean schemas (true/false) carry no structure.
		if y.Tag == "!!bool" {
			return &Node{}, nil
		}
		return nil, fmt.Errorf("line %d: schema must be an object, got %q", y.Line, y.Value)
	default:
		return nil, fmt.Errorf("line %d: schema must be an object", y.Line)
	}

	n := &Node{}
	for i := 0; i+1 < len(y.Content); i += 2 {
		key := y.Content[i].Value
		val := y.Content[i+1]
		var err error
		switch key {
		case "$ref":
			n.Ref = val.Value
		case "type":
			err = decodeType(n, val)
		case "format":
			n.Format = val.Value
		case "description":
			n.Description = val.Value
		case "enum":
			err = decodeEnum(n, val)
		case "properties":
			err = decodeProperties(n, val)
		case "items":
			n.Items, err = Decode(val)
		case "required":
			err = val.Decode(&n.Required)
		case "allOf":
			n.AllOf, err = decodeList(val)
		case "anyOf":
			n.AnyOf, err = decodeList(val)
		case "oneOf":
			n.OneOf, err = decodeList(val)
		case "readOnly":
			err = val.Decode(&n.ReadOnly)
		case "deprecated":
			err = val.Decode(&n.Deprecated)
		case "nullable":
			err = val.Decode(&n.Nullable)
		case "x-deprecated":
			n.DeprecatedSince = val.Value
		case "default":
			err = val.Decode(&n.Default)
			n.HasDefault = err == nil
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
	}

	if n.Kind == KindUnknown {
		switch {
		case len(n.Properties) > 0:
			n.Kind = KindObject
		case n.Items != nil:
			n.Kind = KindArray
		}
	}
	return n, nil
}

// decodeType handles both the 3.0 scalar form and the 3.1 list form. A "null"
// entry in a list marks the node nullable; the first remaining entry wins.
func decodeType(n *Node, val *yaml.Node) error {
	switch val.Kind {
	case yaml.ScalarNode:
		n.Kind = ParseKind(val.Value)
		return nil
	case yaml.SequenceNode:
		for _, item := range val.Content {
			k := ParseKind(item.Value)
			if k == KindNull {
				n.Nullable = true
				continue
			}
			if n.Kind == KindUnknown {
				n.Kind = k
			}
		}
		if n.Kind == KindUnknown && n.Nullable {
			n.Kind = KindNull
		}
		return nil
	default:
		return fmt.Errorf("line %d: unsupported type declaration", val.Line)
	}
}

func decodeEnum(n *Node, val *yaml.Node) error {
	if val.Kind != yaml.SequenceNode {
		return fmt.Errorf("line %d: enum must be a list", val.Line)
	}
	for _, item := range val.Content {
		if item.Tag == "!!null" {
			n.Nullable = true
			continue
		}
		var v any
		if err := item.Decode(&v); err != nil {
			return err
		}
		n.Enum = append(n.Enum, v)
	}
	return nil
}

func decodeProperties(n *Node, val *yaml.Node) error {
	if val.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: properties must be a mapping", val.Line)
	}
	for i := 0; i+1 < len(val.Content); i += 2 {
		name := val.Content[i].Value
		child, err := Decode(val.Content[i+1])
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		n.Properties = append(n.Properties, Property{Name: name, Schema: child})
	}
	return nil
}

func decodeList(val *yaml.Node) ([]*Node, error) {
	if val.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("line %d: expected a list of schemas", val.Line)
	}
	out := make([]*Node, 0, len(val.Content))
	for i, item := range val.Content {
		child, err := Decode(item)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out = append(out, child)
	}
	return out, nil
}

// Parse decodes a schema from raw YAML or JSON bytes.
func Parse(data []byte) (*Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return Decode(&doc)
}
