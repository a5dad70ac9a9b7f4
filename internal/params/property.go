package params

import "strings"

// Location is where a parameter travels in the request.
type Location string

const (
	LocationPath   Location = "path"
	LocationQuery  Location = "query"
	LocationHeader Location = "header"
	LocationBody   Location = "body"
)

var AllLocations = []Location{LocationPath, LocationQuery, LocationHeader, LocationBody}

func ParseLocation(s string) (Location, bool) {
	for _, l := range AllLocations {
		if string(l) == s {
			return l, true
		}
	}
	return "", false
}

// Primitive is the target value type of a flat property.
type Primitive string

const (
	String   Primitive = "string"
	Integer  Primitive = "integer"
	Number   Primitive = "number"
	Boolean  Primitive = "boolean"
	Date     Primitive = "date"
	DateTime Primitive = "date-time"
)

// Property is one flattened, settable value of an operation.
type Property struct {
	// Name is the dotted path, unique within its ParameterSet.
	Name string `json:"name" yaml:"name"`
	// Identifier is Name made safe for emission.
	Identifier string `json:"identifier" yaml:"identifier"`
	// Flag is the external flag name.
	Flag string `json:"flag" yaml:"flag"`
	// Field is the unmangled field name inside the immediate parent.
	Field   string   `json:"field" yaml:"field"`
	Parents []string `json:"parents,omitempty" yaml:"parents,omitempty"`

	Type   Primitive `json:"type" yaml:"type"`
	Format string    `json:"format,omitempty" yaml:"format,omitempty"`
	Enum   []any     `json:"enum,omitempty" yaml:"enum,omitempty"`

	Required   bool `json:"required" yaml:"required"`
	Collection bool `json:"collection,omitempty" yaml:"collection,omitempty"`
	// ItemField is set when each collection element is an object with a single field.
	ItemField string `json:"itemField,omitempty" yaml:"itemField,omitempty"`

	SourceRef       string `json:"sourceRef,omitempty" yaml:"sourceRef,omitempty"`
	Default         any    `json:"default,omitempty" yaml:"default,omitempty"`
	HasDefault      bool   `json:"-" yaml:"-"`
	Deprecated      bool   `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
	DeprecatedSince string `json:"deprecatedSince,omitempty" yaml:"deprecatedSince,omitempty"`
	Description     string `json:"description,omitempty" yaml:"description,omitempty"`
	Nullable        bool   `json:"nullable,omitempty" yaml:"nullable,omitempty"`

	Location Location `json:"location" yaml:"location"`
}

// Path returns the ancestor segments followed by the field name.
func (p *Property) Path() []string {
	out := make([]string, 0, len(p.Parents)+1)
	out = append(out, p.Parents...)
	return append(out, p.Field)
}

func (p *Property) IsDeprecated() bool {
	return p.Deprecated || p.DeprecatedSince != ""
}

// ParameterSet is the ordered flat model of one operation at one location.
type ParameterSet struct {
	Operation  string      `json:"operation" yaml:"operation"`
	Location   Location    `json:"location" yaml:"location"`
	Properties []*Property `json:"properties" yaml:"properties"`
}

func (s *ParameterSet) Lookup(name string) *Property {
	if s == nil {
		return nil
	}
	for _, p := range s.Properties {
		if p.Name == name {
			return p
		}
	}
	return nil
}

func (s *ParameterSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Properties)
}

// Required lists the names of required properties in order.
func (s *ParameterSet) Required() []string {
	var out []string
	for _, p := range s.Properties {
		if p.Required {
			out = append(out, p.Name)
		}
	}
	return out
}

func joinName(parents []string, field string) string {
	if len(parents) == 0 {
		return field
	}
	return strings.Join(parents, ".") + "." + field
}
