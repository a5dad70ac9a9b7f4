package layout

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// MissingProperties reports, per subcommand, the required fields that are absent.
func MissingProperties(f *File) map[string]string {
	errs := map[string]string{}
	for _, name := range f.Names {
		c := f.Commands[name]
		var missing []string
		for _, k := range []string{FieldDescription, FieldOperations} {
			if !c.Has(k) {
				missing = append(missing, k)
			}
		}
		for i, op := range c.Operations {
			id := op.Name
			if id == "" {
				id = fmt.Sprintf("operation[%d]", i)
			}
			if !op.Has(FieldName) {
				missing = append(missing, id+" "+FieldName)
			}
			if !op.Has(FieldOperationID) && !op.Has(FieldSubcommandID) {
				missing = append(missing, fmt.Sprintf("%s %s or %s", id, FieldOperationID, FieldSubcommandID))
			}
		}
		if len(missing) > 0 {
			errs[name] = strings.Join(missing, ", ")
		}
	}
	return errs
}

// Duplicates reports operation names used more than once within a subcommand.
func Duplicates(f *File) map[string]string {
	errs := map[string]string{}
	for _, name := range f.Names {
		indices := map[string][]string{}
		for i, op := range f.Commands[name].Operations {
			if op.Name != "" {
				indices[op.Name] = append(indices[op.Name], fmt.Sprint(i))
			}
		}
		var multiples []string
		for op, at := range indices {
			if len(at) > 1 {
				multiples = append(multiples, fmt.Sprintf("%s at %s", op, strings.Join(at, ", ")))
			}
		}
		if len(multiples) > 0 {
			slices.Sort(multiples)
			errs[name] = strings.Join(multiples, "; ")
		}
	}
	return errs
}

// OperationOrder reports subcommands whose operations are not sorted by name. The
// value is the expected order.
func OperationOrder(f *File) map[string]string {
	errs := map[string]string{}
	for _, name := range f.Names {
		var names []string
		for _, op := range f.Commands[name].Operations {
			names = append(names, op.Name)
		}
		if !slices.IsSorted(names) {
			slices.Sort(names)
			errs[name] = strings.Join(names, ", ")
		}
	}
	return errs
}

// SubcommandReferences returns the subcommands nothing refers to and the referenced
// subcommands that are not defined, both sorted.
func SubcommandReferences(f *File, start string) (unused, missing []string) {
	if start == "" {
		start = DefaultStart
	}
	referenced := map[string]bool{}
	for _, name := range f.Names {
		for _, op := range f.Commands[name].Operations {
			if op.SubcommandID != "" {
				referenced[op.SubcommandID] = true
			}
		}
	}
	for _, name := range f.Names {
		if name != start && !referenced[name] {
			unused = append(unused, name)
		}
	}
	for ref := range referenced {
		if _, ok := f.Commands[ref]; !ok {
			missing = append(missing, ref)
		}
	}
	slices.Sort(unused)
	slices.Sort(missing)
	return unused, missing
}

// SubcommandOrder expects the start subcommand first and the rest sorted.
func SubcommandOrder(f *File, start string) []string {
	if start == "" {
		start = DefaultStart
	}
	names := f.Names
	if len(names) == 0 {
		return nil
	}
	var misordered []string
	if names[0] != start {
		misordered = append(misordered, "First should be "+start)
	} else {
		names = names[1:]
	}
	for i := 1; i < len(names); i++ {
		if names[i] < names[i-1] {
			misordered = append(misordered, fmt.Sprintf("%s < %s", names[i], names[i-1]))
		}
	}
	return misordered
}

// PaginationErrors reports pagination blocks that are ambiguous, keyed by
// "subcommand.operation".
func PaginationErrors(f *File) map[string]string {
	errs := map[string]string{}
	for _, name := range f.Names {
		for _, op := range f.Commands[name].Operations {
			if len(op.Pagination) == 0 {
				continue
			}
			if reasons := paginationReasons(op.Pagination); len(reasons) > 0 {
				errs[name+"."+op.Name] = strings.Join(reasons, "; ")
			}
		}
	}
	return errs
}

func paginationReasons(raw map[string]string) []string {
	var reasons []string
	var extra []string
	for _, k := range slices.Sorted(maps.Keys(raw)) {
		if !slices.Contains(paginationFields, k) {
			extra = append(extra, k)
		}
	}
	if len(extra) > 0 {
		reasons = append(reasons, "unsupported parameters: "+strings.Join(extra, ", "))
	}

	failed := map[string]bool{}
	var verrs validator.ValidationErrors
	if err := validate.Struct(newPagination(raw)); errors.As(err, &verrs) {
		for _, fe := range verrs {
			failed[fe.StructField()] = true
		}
	}
	if failed["NextHeader"] {
		reasons = append(reasons, "cannot have next URL in both header and body property")
	}
	if failed["ItemStart"] {
		reasons = append(reasons, "start can only be specified with page or item parameter")
	}
	return reasons
}

// Report collects every check of a layout file.
type Report struct {
	Missing            map[string]string `json:"missing,omitempty" yaml:"missing,omitempty"`
	Duplicates         map[string]string `json:"duplicates,omitempty" yaml:"duplicates,omitempty"`
	Misordered         map[string]string `json:"misordered,omitempty" yaml:"misordered,omitempty"`
	UnusedSubcommands  []string          `json:"unusedSubcommands,omitempty" yaml:"unusedSubcommands,omitempty"`
	MissingSubcommands []string          `json:"missingSubcommands,omitempty" yaml:"missingSubcommands,omitempty"`
	SubcommandOrder    []string          `json:"subcommandOrder,omitempty" yaml:"subcommandOrder,omitempty"`
	Pagination         map[string]string `json:"pagination,omitempty" yaml:"pagination,omitempty"`
}

// Checks selects which checks Check runs.
type Checks struct {
	References        bool
	SubcommandOrder   bool
	MissingProperties bool
	Duplicates        bool
	OperationOrder    bool
	Pagination        bool
}

// AllChecks enables everything.
var AllChecks = Checks{true, true, true, true, true, true}

// Check runs the selected checks against f.
func Check(f *File, start string, checks Checks) *Report {
	r := &Report{}
	if checks.References {
		r.UnusedSubcommands, r.MissingSubcommands = SubcommandReferences(f, start)
	}
	if checks.SubcommandOrder {
		r.SubcommandOrder = SubcommandOrder(f, start)
	}
	if checks.MissingProperties {
		r.Missing = MissingProperties(f)
	}
	if checks.Duplicates {
		r.Duplicates = Duplicates(f)
	}
	if checks.OperationOrder {
		r.Misordered = OperationOrder(f)
	}
	if checks.Pagination {
		r.Pagination = PaginationErrors(f)
	}
	return r
}

// OK reports whether no check failed.
func (r *Report) OK() bool {
	return len(r.Missing) == 0 && len(r.Duplicates) == 0 && len(r.Misordered) == 0 &&
		len(r.UnusedSubcommands) == 0 && len(r.MissingSubcommands) == 0 &&
		len(r.SubcommandOrder) == 0 && len(r.Pagination) == 0
}
