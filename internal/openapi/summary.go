package openapi

import (
	"context"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/pb33f/libopenapi"
)

// Summary is the headline information of a document.
type Summary struct {
	Title      string   `json:"title" yaml:"title"`
	Version    string   `json:"version" yaml:"version"`
	OpenAPI    string   `json:"openapi" yaml:"openapi"`
	Paths      int      `json:"paths" yaml:"paths"`
	Operations int      `json:"operations" yaml:"operations"`
	Schemas    int      `json:"schemas" yaml:"schemas"`
	Tags       []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Servers    []string `json:"servers,omitempty" yaml:"servers,omitempty"`
}

// Summarize builds a v3 model with libopenapi and counts its contents.
func Summarize(data []byte) (*Summary, error) {
	doc, err := libopenapi.NewDocument(data)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	model, err := doc.BuildV3Model()
	if model == nil {
		if err == nil {
			err = fmt.Errorf("not an OpenAPI 3 document")
		}
		return nil, fmt.Errorf("build model: %w", err)
	}

	v3 := model.Model
	s := &Summary{OpenAPI: v3.Version}
	if v3.Info != nil {
		s.Title = v3.Info.Title
		s.Version = v3.Info.Version
	}
	if v3.Paths != nil && v3.Paths.PathItems != nil {
		s.Paths = v3.Paths.PathItems.Len()
		for pair := v3.Paths.PathItems.First(); pair != nil; pair = pair.Next() {
			if ops := pair.Value().GetOperations(); ops != nil {
				s.Operations += ops.Len()
			}
		}
	}
	if v3.Components != nil && v3.Components.Schemas != nil {
		s.Schemas = v3.Components.Schemas.Len()
	}
	for _, t := range v3.Tags {
		s.Tags = append(s.Tags, t.Name)
	}
	for _, srv := range v3.Servers {
		s.Servers = append(s.Servers, srv.URL)
	}
	return s, nil
}

// Validate checks the document structurally with kin-openapi. External references are
// not followed.
func Validate(ctx context.Context, data []byte) error {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	loader.IsExternalRefsAllowed = false
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	return nil
}
