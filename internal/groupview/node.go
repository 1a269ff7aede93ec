package groupview

import (
	"strings"

	"github.com/reflib/reflib/internal/groups"
)

// Node is the view model of one group in the tree. Its hit count is readable
// from anywhere; children, expansion, and selection flags belong to the
// dispatcher goroutine.
type Node struct {
	tree        *Tree
	groupNode   *groups.TreeNode
	displayName string
	counter     *Counter
	children    []*Node

	anyMatched bool
	allMatched bool
}

// GroupNode returns the underlying tree node.
func (n *Node) GroupNode() *groups.TreeNode { return n.groupNode }

// DisplayName returns the name shown for the group.
func (n *Node) DisplayName() string { return n.displayName }

// Hits returns the last published number of matching entries.
func (n *Node) Hits() int { return n.counter.Hits() }

// Counter returns the node's hit counter.
func (n *Node) Counter() *Counter { return n.counter }

// Children returns the child nodes in display order. The slice is a copy;
// call from the dispatcher goroutine, children change on rebuilds.
func (n *Node) Children() []*Node {
	children := make([]*Node, len(n.children))
	copy(children, n.children)
	return children
}

// HasChildren reports whether the node has any children.
func (n *Node) HasChildren() bool { return len(n.children) > 0 }

// Expanded reports whether the group is unfolded. The flag lives on the
// group itself, so it survives rebuilds and travels with the library.
func (n *Node) Expanded() bool { return n.groupNode.Group().IsExpanded() }

// SetExpanded folds or unfolds the group.
func (n *Node) SetExpanded(expanded bool) { n.groupNode.Group().SetExpanded(expanded) }

// ToggleExpansion flips the folded state.
func (n *Node) ToggleExpansion() { n.SetExpanded(!n.Expanded()) }

// Description returns the group's description, empty when unset.
func (n *Node) Description() string { return n.groupNode.Group().Description() }

// IconCode returns the group's icon identifier, empty when unset.
func (n *Node) IconCode() string { return n.groupNode.Group().IconCode() }

// Color returns the group's color, empty when unset.
func (n *Node) Color() string { return n.groupNode.Group().Color() }

// Path returns the group's position in the model tree.
func (n *Node) Path() string { return n.groupNode.Path() }

// MatchedBy reports whether the node survives a name filter: a blank filter
// keeps everything, otherwise the display name must contain the text.
func (n *Node) MatchedBy(searchText string) bool {
	if strings.TrimSpace(searchText) == "" {
		return true
	}
	return strings.Contains(n.displayName, searchText)
}

// AnySelectedMatched reports whether at least one selected entry belongs to
// the group. Read from the dispatcher goroutine.
func (n *Node) AnySelectedMatched() bool { return n.anyMatched }

// AllSelectedMatched reports whether every selected entry belongs to the
// group; true for an empty selection. Read from the dispatcher goroutine.
func (n *Node) AllSelectedMatched() bool { return n.allMatched }

func (n *Node) walk(visit func(*Node)) {
	visit(n)
	for _, child := range n.children {
		child.walk(visit)
	}
}
