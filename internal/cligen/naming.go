package cligen

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tarrence/oascli/internal/params"
)

// Flags every generated operation command owns.
const (
	flagData        = "data"
	flagContentType = "content-type"
	flagValidate    = "validate"
	flagAll         = "all"
	flagMaxCount    = "max-count"
	flagMaxPages    = "max-pages"
	flagSleepMS     = "sleep-ms"
	flagDetails     = "details"
)

var ownFlags = []string{"help", flagData, flagContentType, flagValidate, flagAll, flagMaxCount, flagMaxPages, flagSleepMS, flagDetails}

// flagNamer hands out unique flag names for one command. A name already taken by
// another location (or by the command itself) gets the location as a prefix, so a
// query "name" and a body "name" become --name and --body-name.
type flagNamer struct {
	taken map[string]bool
}

func newFlagNamer(parent *cobra.Command) *flagNamer {
	n := &flagNamer{taken: map[string]bool{}}
	for _, f := range ownFlags {
		n.taken[f] = true
	}
	// Inherited persistent flags would be shadowed by a local flag of the same name.
	for c := parent; c != nil; c = c.Parent() {
		c.PersistentFlags().VisitAll(func(f *pflag.Flag) { n.taken[f.Name] = true })
	}
	return n
}

func (n *flagNamer) name(p *params.Property) string {
	base := p.Flag
	if base == "" {
		base = params.FlagName(p.Name)
	}
	name := base
	if n.taken[name] {
		name = string(p.Location) + "-" + base
	}
	for i := 2; n.taken[name]; i++ {
		name = fmt.Sprintf("%s-%s-%d", p.Location, base, i)
	}
	n.taken[name] = true
	return name
}
