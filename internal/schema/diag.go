package schema

import (
	"fmt"
	"slices"
	"sync"
)

type DiagnosticKind string

const (
	// UnrepresentablePropertyWarning: a property was skipped because it cannot be a flat value.
	UnrepresentablePropertyWarning DiagnosticKind = "UnrepresentablePropertyWarning"
	// AmbiguousVariantNotice: the first anyOf/oneOf candidate was picked out of several.
	AmbiguousVariantNotice DiagnosticKind = "AmbiguousVariantNotice"
)

// Diagnostic is a non-fatal finding. Chosen and Candidates are only set for
// AmbiguousVariantNotice; Chosen is the index in the declared list.
type Diagnostic struct {
	Kind       DiagnosticKind `json:"kind" yaml:"kind"`
	Operation  string         `json:"operation,omitempty" yaml:"operation,omitempty"`
	Property   string         `json:"property,omitempty" yaml:"property,omitempty"`
	Message    string         `json:"message" yaml:"message"`
	Keyword    string         `json:"keyword,omitempty" yaml:"keyword,omitempty"`
	Chosen     int            `json:"chosen,omitempty" yaml:"chosen,omitempty"`
	Candidates int            `json:"candidates,omitempty" yaml:"candidates,omitempty"`
}

func (d Diagnostic) String() string {
	where := d.Operation
	if d.Property != "" {
		if where != "" {
			where += " "
		}
		where += d.Property
	}
	if where == "" {
		return fmt.Sprintf("%s: %s", d.Kind, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", d.Kind, where, d.Message)
}

// Diagnostics collects findings in order. It is safe for concurrent use.
type Diagnostics struct {
	mu    sync.Mutex
	items []Diagnostic
}

func (d *Diagnostics) Add(diag Diagnostic) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.items = append(d.items, diag)
}

func (d *Diagnostics) All() []Diagnostic {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.items)
}

func (d *Diagnostics) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.items)
}

func (d *Diagnostics) OfKind(kind DiagnosticKind) []Diagnostic {
	var out []Diagnostic
	for _, diag := range d.All() {
		if diag.Kind == kind {
			out = append(out, diag)
		}
	}
	return out
}
