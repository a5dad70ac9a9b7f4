package cligen

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tarrence/oascli/internal/params"
)

type paramKind int

const (
	kindString paramKind = iota
	kindInt
	kindBool
	kindFloat
	kindStringArray
)

// paramBinding ties one flattened property to the flag that sets it.
type paramBinding struct {
	prop *params.Property
	enum *params.EnumDefinition
	flag string
	kind paramKind

	s  *string
	i  *int64
	b  *bool
	f  *float64
	sa *[]string
}

// bindParams registers a flag for every property of set. Path properties are
// positional arguments and are skipped.
func bindParams(cmd *cobra.Command, namer *flagNamer, set *params.ParameterSet, enums *params.EnumTable) []*paramBinding {
	var out []*paramBinding
	for _, p := range set.Properties {
		if p.Location == params.LocationPath {
			continue
		}
		b := &paramBinding{
			prop: p,
			enum: enums.For(p),
			flag: namer.name(p),
			kind: detectParamKind(p, enums.For(p)),
			s:    new(string),
			i:    new(int64),
			b:    new(bool),
			f:    new(float64),
			sa:   new([]string),
		}
		desc := flagUsage(p, b.enum)

		fs := cmd.Flags()
		switch b.kind {
		case kindInt:
			fs.Int64Var(b.i, b.flag, 0, desc)
		case kindBool:
			fs.BoolVar(b.b, b.flag, false, desc)
		case kindFloat:
			fs.Float64Var(b.f, b.flag, 0, desc)
		case kindStringArray:
			fs.StringArrayVar(b.sa, b.flag, nil, desc)
		default:
			fs.StringVar(b.s, b.flag, "", desc)
		}
		// Defaults are the server's business: shown in help, never sent.
		if p.HasDefault {
			fs.Lookup(b.flag).DefValue = params.FormatValue(p.Default)
		}
		if p.IsDeprecated() {
			_ = fs.MarkHidden(b.flag)
		}
		out = append(out, b)
	}
	return out
}

func detectParamKind(p *params.Property, enum *params.EnumDefinition) paramKind {
	if p.Collection {
		return kindStringArray
	}
	if enum != nil {
		return kindString
	}
	switch p.Type {
	case params.Integer:
		return kindInt
	case params.Boolean:
		return kindBool
	case params.Number:
		return kindFloat
	default:
		return kindString
	}
}

func flagUsage(p *params.Property, enum *params.EnumDefinition) string {
	desc := strings.TrimSpace(p.Description)
	if desc == "" {
		desc = fmt.Sprintf("%s %s %q", p.Location, p.Type, p.Name)
	}
	if i := strings.IndexByte(desc, '\n'); i >= 0 {
		desc = desc[:i]
	}
	if enum != nil {
		desc += " [" + strings.Join(enum.Values(), ", ") + "]"
	}
	if p.Collection {
		desc += " (repeatable)"
	}
	if p.Required {
		desc += " (required)"
	}
	return desc
}

func (b *paramBinding) changed(cmd *cobra.Command) bool {
	return cmd.Flags().Changed(b.flag)
}

// value returns the typed value of the flag. Enum values are matched against the
// members of their definition.
func (b *paramBinding) value() (any, error) {
	switch b.kind {
	case kindInt:
		return *b.i, nil
	case kindBool:
		return *b.b, nil
	case kindFloat:
		return *b.f, nil
	case kindStringArray:
		out := make([]any, 0, len(*b.sa))
		for _, s := range *b.sa {
			v, err := b.convert(s)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	default:
		return b.convert(*b.s)
	}
}

func (b *paramBinding) convert(s string) (any, error) {
	if b.enum != nil {
		v, ok := b.enum.Match(s)
		if !ok {
			return nil, fmt.Errorf("invalid value %q for --%s (choose from %s)", s, b.flag, strings.Join(b.enum.Values(), ", "))
		}
		return v, nil
	}
	var err error
	switch b.prop.Type {
	case params.Integer:
		var v int64
		if v, err = strconv.ParseInt(s, 10, 64); err == nil {
			return v, nil
		}
	case params.Number:
		var v float64
		if v, err = strconv.ParseFloat(s, 64); err == nil {
			return v, nil
		}
	case params.Boolean:
		var v bool
		if v, err = strconv.ParseBool(s); err == nil {
			return v, nil
		}
	case params.Date:
		_, err = time.Parse(time.DateOnly, s)
	case params.DateTime:
		_, err = time.Parse(time.RFC3339, s)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q for --%s", b.prop.Type, s, b.flag)
	}
	return s, nil
}

// collectValues gathers the flags the user set, keyed by property name. Missing
// required flags are reported together unless skipRequired is set.
func collectValues(cmd *cobra.Command, bindings []*paramBinding, skipRequired bool, logger *slog.Logger) (map[string]any, error) {
	values := map[string]any{}
	var missing []string
	for _, b := range bindings {
		if !b.changed(cmd) {
			if b.prop.Required && !skipRequired {
				missing = append(missing, "--"+b.flag)
			}
			continue
		}
		if b.prop.IsDeprecated() {
			logger.Warn("option is deprecated", "flag", "--"+b.flag, "since", b.prop.DeprecatedSince)
		}
		v, err := b.value()
		if err != nil {
			return nil, err
		}
		values[b.prop.Name] = v
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required options: %s", strings.Join(missing, ", "))
	}
	return values, nil
}

// splitBindings groups bindings by location.
func splitBindings(bindings []*paramBinding) map[params.Location][]*paramBinding {
	out := map[params.Location][]*paramBinding{}
	for _, b := range bindings {
		out[b.prop.Location] = append(out[b.prop.Location], b)
	}
	return out
}
