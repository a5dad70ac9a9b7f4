package output

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss/tree"
)

// TreeNode is a labelled node for Tree.
type TreeNode struct {
	Label    string
	Children []*TreeNode
}

// Tree prints root. Terminals get box drawing; pipes get two-space indentation.
func (p *Printer) Tree(root *TreeNode) error {
	if !p.tty {
		var b strings.Builder
		var walk func(*TreeNode, int)
		walk = func(n *TreeNode, depth int) {
			b.WriteString(strings.Repeat("  ", depth))
			b.WriteString(n.Label)
			b.WriteByte('\n')
			for _, c := range n.Children {
				walk(c, depth+1)
			}
		}
		walk(root, 0)
		_, err := fmt.Fprint(p.out, b.String())
		return err
	}
	_, err := fmt.Fprintln(p.out, p.lipglossTree(root))
	return err
}

func (p *Printer) lipglossTree(n *TreeNode) *tree.Tree {
	t := tree.Root(n.Label).
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(p.styles.border)
	for _, c := range n.Children {
		if len(c.Children) == 0 {
			t.Child(c.Label)
			continue
		}
		t.Child(p.lipglossTree(c))
	}
	return t
}
