package openapi

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const bodyResource = "oascli:///request-body.json"

// BodyValidator checks assembled request bodies against the operation's schema.
type BodyValidator struct {
	schema *jsonschema.Schema
}

// CompileBodySchema compiles body.Schema with the document's components available, so
// local "#/components/..." references resolve inside the same resource.
func (d *Document) CompileBodySchema(body *Body) (*BodyValidator, error) {
	if body == nil || body.Schema == nil {
		return nil, fmt.Errorf("operation has no body schema")
	}
	var raw any
	if err := body.Schema.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode body schema: %w", err)
	}
	res, ok := Normalize(raw).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("body schema must be an object")
	}
	if comps := d.Components(); comps != nil {
		var c any
		if err := comps.Decode(&c); err != nil {
			return nil, fmt.Errorf("decode components: %w", err)
		}
		res["components"] = Normalize(c)
	}

	inst, err := toJSONValue(res)
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	c.DefaultDraft(jsonschema.Draft2020)
	if err := c.AddResource(bodyResource, inst); err != nil {
		return nil, fmt.Errorf("add body schema: %w", err)
	}
	sch, err := c.Compile(bodyResource)
	if err != nil {
		return nil, fmt.Errorf("compile body schema: %w", err)
	}
	return &BodyValidator{schema: sch}, nil
}

func (v *BodyValidator) Validate(body any) error {
	inst, err := toJSONValue(body)
	if err != nil {
		return err
	}
	return v.schema.Validate(inst)
}

// toJSONValue round-trips through encoding/json so numbers have the representation the
// validator expects.
func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(b))
}
