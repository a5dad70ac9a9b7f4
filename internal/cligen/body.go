package cligen

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tarrence/oascli/internal/openapi"
	"github.com/tarrence/oascli/internal/params"
)

type bodyFlags struct {
	doc *openapi.Document
	op  *openapi.Operation
	set *params.ParameterSet

	contentType string

	// contentTypes is the preference list used to find the body schema for --validate.
	contentTypes []string

	data       *string
	ctOverride *string
	validate   *bool
}

func bindBodyFlags(cmd *cobra.Command, doc *openapi.Document, res *params.Resolution) *bodyFlags {
	b := &bodyFlags{
		doc:          doc,
		op:           res.Operation,
		set:          res.Set(params.LocationBody),
		contentType:  res.ContentType,
		contentTypes: []string{res.ContentType},
		data:         new(string),
		ctOverride:   new(string),
		validate:     new(bool),
	}

	cmd.Flags().StringVar(b.data, flagData, "", "Request body data: '@file.json', '-' for stdin, or inline string (replaces body options)")
	cmd.Flags().StringVar(b.ctOverride, flagContentType, "", "Override request Content-Type")
	cmd.Flags().BoolVar(b.validate, flagValidate, false, "Check the request body against the operation schema before sending")
	return b
}

// dataSet reports whether --data replaces the body options.
func (b *bodyFlags) dataSet(cmd *cobra.Command) bool {
	return cmd.Flags().Changed(flagData) && strings.TrimSpace(*b.data) != ""
}

// build returns the encoded body and its content type. values are the body options
// the user set; they are ignored when --data is given.
func (b *bodyFlags) build(cmd *cobra.Command, values map[string]any) (body []byte, contentType string, err error) {
	contentType = b.contentType
	if cmd.Flags().Changed(flagContentType) {
		contentType = strings.TrimSpace(*b.ctOverride)
		if contentType == "" {
			return nil, "", fmt.Errorf("--content-type set but empty")
		}
	}
	if contentType == "" {
		contentType = "application/json"
	}

	var payload any
	switch {
	case b.dataSet(cmd):
		raw, err := readDataArg(*b.data, cmd.InOrStdin())
		if err != nil {
			return nil, "", err
		}
		if !*b.validate {
			return raw, contentType, nil
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, "", fmt.Errorf("--validate needs a JSON body: %w", err)
		}
		if err := b.check(payload); err != nil {
			return nil, "", err
		}
		return raw, contentType, nil
	case len(values) > 0:
		obj, err := params.Assemble(b.set, values)
		if err != nil {
			return nil, "", err
		}
		payload = obj
	default:
		return nil, "", nil
	}

	if *b.validate {
		if err := b.check(payload); err != nil {
			return nil, "", err
		}
	}
	body, err = encodeBody(contentType, payload)
	if err != nil {
		return nil, "", err
	}
	return body, contentType, nil
}

func (b *bodyFlags) check(payload any) error {
	body, err := b.doc.RequestBody(b.op, b.contentTypes)
	if err != nil {
		return err
	}
	if body == nil {
		return nil
	}
	v, err := b.doc.CompileBodySchema(body)
	if err != nil {
		return err
	}
	if err := v.Validate(payload); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// encodeBody writes payload as JSON, or as a form when the content type asks for
// one. Nested form values are sent as JSON text.
func encodeBody(contentType string, payload any) ([]byte, error) {
	if !strings.HasPrefix(contentType, "application/x-www-form-urlencoded") {
		return json.Marshal(payload)
	}
	obj, ok := payload.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("form body must be an object")
	}
	vals := url.Values{}
	for k, v := range obj {
		switch t := v.(type) {
		case map[string]any:
			b, err := json.Marshal(t)
			if err != nil {
				return nil, err
			}
			vals.Set(k, string(b))
		case []any:
			for _, e := range t {
				vals.Add(k, params.FormatValue(e))
			}
		default:
			vals.Set(k, params.FormatValue(v))
		}
	}
	return []byte(vals.Encode()), nil
}

func readDataArg(arg string, stdin io.Reader) ([]byte, error) {
	arg = strings.TrimSpace(arg)
	switch {
	case arg == "-":
		return io.ReadAll(stdin)
	case strings.HasPrefix(arg, "@"):
		return os.ReadFile(strings.TrimPrefix(arg, "@"))
	default:
		return []byte(arg), nil
	}
}
