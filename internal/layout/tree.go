package layout

import (
	"fmt"
	"slices"
	"strings"
)

// Pagination names the parameters and response fields that drive paging.
type Pagination struct {
	PageSize     string `yaml:"pageSize,omitempty" json:"pageSize,omitempty"`
	PageStart    string `yaml:"pageStart,omitempty" json:"pageStart,omitempty"`
	ItemStart    string `yaml:"itemStart,omitempty" json:"itemStart,omitempty" validate:"excluded_with=PageStart"`
	ItemProperty string `yaml:"itemProperty,omitempty" json:"itemProperty,omitempty"`
	NextHeader   string `yaml:"nextHeader,omitempty" json:"nextHeader,omitempty" validate:"excluded_with=NextProperty"`
	NextProperty string `yaml:"nextProperty,omitempty" json:"nextProperty,omitempty"`
}

// Pagination field names.
const (
	PageSize     = "pageSize"
	PageStart    = "pageStart"
	ItemStart    = "itemStart"
	ItemProperty = "itemProperty"
	NextHeader   = "nextHeader"
	NextProperty = "nextProperty"
)

var paginationFields = []string{ItemProperty, ItemStart, NextHeader, NextProperty, PageSize, PageStart}

func newPagination(m map[string]string) *Pagination {
	if len(m) == 0 {
		return nil
	}
	return &Pagination{
		PageSize:     m[PageSize],
		PageStart:    m[PageStart],
		ItemStart:    m[ItemStart],
		ItemProperty: m[ItemProperty],
		NextHeader:   m[NextHeader],
		NextProperty: m[NextProperty],
	}
}

// Node is one command of the tree. Leaves carry an operation id in Identifier;
// groups carry the subcommand id.
type Node struct {
	Command       string         `yaml:"command" json:"command"`
	Identifier    string         `yaml:"identifier" json:"identifier"`
	Description   string         `yaml:"description,omitempty" json:"description,omitempty"`
	Bugs          []string       `yaml:"bugs,omitempty" json:"bugs,omitempty"`
	SummaryFields []string       `yaml:"summaryFields,omitempty" json:"summaryFields,omitempty"`
	Pagination    *Pagination    `yaml:"pagination,omitempty" json:"pagination,omitempty"`
	Extra         map[string]any `yaml:"extra,omitempty" json:"extra,omitempty"`
	Children      []*Node        `yaml:"children,omitempty" json:"children,omitempty"`
}

// IsGroup reports whether n has subcommands.
func (n *Node) IsGroup() bool { return len(n.Children) > 0 }

// Subcommands returns the children that have children of their own. Children with
// bug ids are left out unless includeBugged is set.
func (n *Node) Subcommands(includeBugged bool) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.IsGroup() && (includeBugged || len(c.Bugs) == 0) {
			out = append(out, c)
		}
	}
	return out
}

// Operations returns the leaf children.
func (n *Node) Operations(includeBugged bool) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if !c.IsGroup() && (includeBugged || len(c.Bugs) == 0) {
			out = append(out, c)
		}
	}
	return out
}

// Find walks the command names down from n.
func (n *Node) Find(commands ...string) *Node {
	if len(commands) == 0 {
		return n
	}
	for _, c := range n.Children {
		if c.Command == commands[0] {
			return c.Find(commands[1:]...)
		}
	}
	return nil
}

// OperationIDs returns the sorted ids of every retained leaf below n.
func (n *Node) OperationIDs() []string {
	seen := map[string]bool{}
	var walk func(*Node)
	walk = func(n *Node) {
		for _, op := range n.Operations(false) {
			seen[op.Identifier] = true
		}
		for _, sub := range n.Subcommands(false) {
			walk(sub)
		}
	}
	walk(n)
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Walk calls fn for n and every descendant, depth first, with the command path
// leading to it.
func (n *Node) Walk(fn func(path []string, n *Node)) {
	var walk func([]string, *Node)
	walk = func(path []string, n *Node) {
		fn(path, n)
		for _, c := range n.Children {
			walk(append(slices.Clone(path), c.Command), c)
		}
	}
	walk(nil, n)
}

// Tree builds the command tree rooted at start.
func (f *File) Tree(start string) (*Node, error) {
	if start == "" {
		start = DefaultStart
	}
	top := f.Commands[start]
	if top == nil || len(top.keys) == 0 {
		return nil, fmt.Errorf("no start value found for %q", start)
	}
	return f.commandNode(start, start, top, nil), nil
}

func (f *File) commandNode(id, command string, c *Command, visiting []string) *Node {
	n := &Node{
		Command:       command,
		Identifier:    id,
		Description:   c.Description,
		Bugs:          slices.Clone(c.BugIDs),
		SummaryFields: c.SummaryFields,
		Pagination:    newPagination(c.Pagination),
		Extra:         c.Extra,
	}
	visiting = append(visiting, id)
	for _, op := range c.Operations {
		if op.SubcommandID != "" {
			sub := f.Commands[op.SubcommandID]
			if sub == nil || slices.Contains(visiting, op.SubcommandID) {
				sub = &Command{}
			}
			child := f.commandNode(op.SubcommandID, op.Name, sub, visiting)
			child.Bugs = append(child.Bugs, op.BugIDs...)
			n.Children = append(n.Children, child)
			continue
		}
		n.Children = append(n.Children, &Node{
			Command:       op.Name,
			Identifier:    op.OperationID,
			Description:   op.Description,
			Bugs:          op.BugIDs,
			SummaryFields: op.SummaryFields,
			Pagination:    newPagination(op.Pagination),
			Extra:         op.Extra,
		})
	}
	return n
}

// Parse decodes data and builds the tree rooted at start.
func Parse(data []byte, start string) (*Node, error) {
	f, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return f.Tree(start)
}

// String renders the tree as indented command names, for logs and tests.
func (n *Node) String() string {
	var b strings.Builder
	n.Walk(func(path []string, n *Node) {
		if len(path) == 0 {
			return
		}
		fmt.Fprintf(&b, "%s%s", strings.Repeat("  ", len(path)-1), n.Command)
		if !n.IsGroup() {
			fmt.Fprintf(&b, " (%s)", n.Identifier)
		}
		b.WriteByte('\n')
	})
	return b.String()
}
