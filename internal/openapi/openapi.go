package openapi

import "gopkg.in/yaml.v3"

// The typed structs below are views decoded from the yaml.v3 tree. Schemas stay raw
// (*yaml.Node) so that property order survives into the engine.

type Info struct {
	Title       string `yaml:"title,omitempty"`
	Version     string `yaml:"version,omitempty"`
	Description string `yaml:"description,omitempty"`
}

type Tag struct {
	Name        string `yaml:"name,omitempty"`
	Description string `yaml:"description,omitempty"`
}

type Server struct {
	URL         string `yaml:"url"`
	Description string `yaml:"description,omitempty"`
}

type Operation struct {
	ID          string   `yaml:"operationId,omitempty"`
	Tags        []string `yaml:"tags,omitempty"`
	Summary     string   `yaml:"summary,omitempty"`
	Description string   `yaml:"description,omitempty"`
	Deprecated  bool     `yaml:"deprecated,omitempty"`

	Parameters  []Parameter           `yaml:"parameters,omitempty"`
	RequestBody *RequestBody          `yaml:"requestBody,omitempty"`
	Security    []map[string][]string `yaml:"security,omitempty"`
	Servers     []Server              `yaml:"servers,omitempty"`

	// Filled in while walking paths.
	Method string `yaml:"-"`
	Path   string `yaml:"-"`
	// Node is the raw operation mapping.
	Node *yaml.Node `yaml:"-"`

	shared []Parameter
}

type Parameter struct {
	Ref             string     `yaml:"$ref,omitempty"`
	Name            string     `yaml:"name,omitempty"`
	In              string     `yaml:"in,omitempty"` // path, query, header, cookie
	Description     string     `yaml:"description,omitempty"`
	Required        bool       `yaml:"required,omitempty"`
	Deprecated      bool       `yaml:"deprecated,omitempty"`
	DeprecatedSince string     `yaml:"x-deprecated,omitempty"`
	Style           string     `yaml:"style,omitempty"`
	Explode         *bool      `yaml:"explode,omitempty"`
	Schema          *yaml.Node `yaml:"schema,omitempty"`
}

type RequestBody struct {
	Ref         string               `yaml:"$ref,omitempty"`
	Description string               `yaml:"description,omitempty"`
	Required    bool                 `yaml:"required,omitempty"`
	Content     map[string]MediaType `yaml:"content,omitempty"`
}

type MediaType struct {
	Schema *yaml.Node `yaml:"schema,omitempty"`
}

// Body is the request body selected for one supported content type.
type Body struct {
	ContentType string
	Required    bool
	Description string
	Schema      *yaml.Node
}

var methods = []string{"get", "put", "post", "delete", "options", "head", "patch", "trace"}
