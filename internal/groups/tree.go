package groups

import (
	"errors"
	"strings"
)

// PathSeparator joins group names in a tree path.
const PathSeparator = " > "

var (
	// ErrMoveIntoSelf is returned when a node would become its own ancestor.
	ErrMoveIntoSelf = errors.New("cannot move a group below itself")
	// ErrMoveRoot is returned when the root node is moved.
	ErrMoveRoot = errors.New("cannot move the root group")
)

// TreeNode places a group in the tree. Nodes are not synchronized; the tree
// belongs to whoever owns the library and is mutated from one goroutine.
type TreeNode struct {
	group    Group
	parent   *TreeNode
	children []*TreeNode
}

// NewTreeNode returns a detached node carrying the given group.
func NewTreeNode(g Group) *TreeNode {
	return &TreeNode{group: g}
}

// Group returns the group stored at this node.
func (n *TreeNode) Group() Group { return n.group }

// Parent returns the parent node, nil for the root.
func (n *TreeNode) Parent() *TreeNode { return n.parent }

// IsRoot reports whether the node has no parent.
func (n *TreeNode) IsRoot() bool { return n.parent == nil }

// Children returns the child nodes in order. The slice is a copy.
func (n *TreeNode) Children() []*TreeNode {
	children := make([]*TreeNode, len(n.children))
	copy(children, n.children)
	return children
}

// AddSubgroup appends a new child node carrying g and returns it.
func (n *TreeNode) AddSubgroup(g Group) *TreeNode {
	child := NewTreeNode(g)
	child.parent = n
	n.children = append(n.children, child)
	return child
}

// AddChild attaches an existing detached node as the last child.
func (n *TreeNode) AddChild(child *TreeNode) {
	child.parent = n
	n.children = append(n.children, child)
}

// Detach removes the node from its parent. Detaching the root is a no-op.
func (n *TreeNode) Detach() {
	if n.parent == nil {
		return
	}
	siblings := n.parent.children
	for i, candidate := range siblings {
		if candidate == n {
			n.parent.children = append(siblings[:i], siblings[i+1:]...)
			break
		}
	}
	n.parent = nil
}

// MoveTo detaches the node and attaches it under target. Moves that would
// create a cycle are rejected: the target must not be the node itself or any
// of its descendants.
func (n *TreeNode) MoveTo(target *TreeNode) error {
	if n.parent == nil {
		return ErrMoveRoot
	}
	if n == target || n.isAncestorOf(target) {
		return ErrMoveIntoSelf
	}
	n.Detach()
	target.AddChild(n)
	return nil
}

func (n *TreeNode) isAncestorOf(other *TreeNode) bool {
	for p := other.parent; p != nil; p = p.parent {
		if p == n {
			return true
		}
	}
	return false
}

// Path returns the node's position as group names joined by PathSeparator,
// leaving out the root. The root's own path is empty.
func (n *TreeNode) Path() string {
	var names []string
	for node := n; node.parent != nil; node = node.parent {
		names = append(names, node.group.Name())
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return strings.Join(names, PathSeparator)
}

// ChildByPath descends from the node along a path as produced by Path. An
// empty path returns the node itself.
func (n *TreeNode) ChildByPath(path string) (*TreeNode, bool) {
	if path == "" {
		return n, true
	}
	node := n
	for _, name := range strings.Split(path, PathSeparator) {
		var next *TreeNode
		for _, child := range node.children {
			if child.group.Name() == name {
				next = child
				break
			}
		}
		if next == nil {
			return nil, false
		}
		node = next
	}
	return node, true
}

// Walk visits the node and all descendants depth-first, in child order.
func (n *TreeNode) Walk(visit func(*TreeNode)) {
	visit(n)
	for _, child := range n.children {
		child.Walk(visit)
	}
}

// Matches reports whether the record belongs to the node's group.
func (n *TreeNode) Matches(r Record) bool {
	return n.group.Matches(r)
}

// CountMatches counts the records belonging to the node's group. This is the
// synchronous counterpart of the view layer's background counters.
func (n *TreeNode) CountMatches(records []Record) int {
	count := 0
	for _, r := range records {
		if n.group.Matches(r) {
			count++
		}
	}
	return count
}
