package groupview

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/reflib/reflib/internal/bib"
	"github.com/reflib/reflib/internal/groups"
)

// Tree is the view model of a library's group tree. It mirrors the model
// tree into Nodes, keeps every node's hit count current while the database
// changes, and tracks which groups contain the currently selected entries.
//
// The tree subscribes to the database; Close detaches it again. The caller
// owns the dispatcher and closes it separately.
type Tree struct {
	db         *bib.Database
	dispatcher Dispatcher
	logger     *slog.Logger
	inflight   sync.WaitGroup

	root      *Node
	sub       *bib.Subscription
	selection map[string]bool // dispatcher goroutine only
	closed    atomic.Bool
}

// NewTree builds the view model for the context's group tree and schedules
// the initial hit counts. A library without groups gets a fresh all-entries
// root, written back to the metadata. The logger may be nil.
func NewTree(c *bib.Context, d Dispatcher, logger *slog.Logger) *Tree {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	t := &Tree{
		db:         c.Database(),
		dispatcher: d,
		logger:     logger,
		selection:  make(map[string]bool),
	}

	rootNode, ok := c.MetaData().GroupsRoot()
	if !ok {
		rootNode = groups.NewTreeNode(groups.NewAllEntriesGroup())
		c.MetaData().SetGroupsRoot(rootNode)
	}
	t.root = t.buildNode(rootNode)
	t.sub = c.Database().Subscribe(t.handleEvent)
	return t
}

// Root returns the root node. Traverse it from the dispatcher goroutine, for
// example through View.
func (t *Tree) Root() *Node { return t.root }

// View runs fn with the root node on the dispatcher goroutine and waits for
// it to return. It reports false when the dispatcher is closed.
func (t *Tree) View(fn func(root *Node)) bool {
	done := make(chan struct{})
	if !t.dispatcher.Dispatch(func() {
		fn(t.root)
		close(done)
	}) {
		return false
	}
	<-done
	return true
}

// SetSelection replaces the set of selected entries, given by citation key,
// and refreshes the per-node selection flags.
func (t *Tree) SetSelection(citationKeys ...string) {
	keys := make(map[string]bool, len(citationKeys))
	for _, key := range citationKeys {
		keys[key] = true
	}
	t.dispatcher.Dispatch(func() {
		t.selection = keys
		t.refreshSelection()
	})
}

// Wait blocks until every recomputation triggered so far has been delivered
// or discarded. New database events arriving while waiting start new work
// that Wait does not cover.
func (t *Tree) Wait() {
	t.barrier()
	t.inflight.Wait()
}

// Close detaches the tree from the database. Counts already in flight still
// finish; no new ones are triggered. Close is idempotent.
func (t *Tree) Close() {
	if t.closed.Swap(true) {
		return
	}
	t.sub.Unsubscribe()
}

// barrier waits until the dispatcher has worked off everything queued before
// it, so that refreshes triggered by earlier events have registered their
// recomputations.
func (t *Tree) barrier() {
	done := make(chan struct{})
	if !t.dispatcher.Dispatch(func() { close(done) }) {
		return
	}
	<-done
}

// handleEvent runs synchronously on whatever goroutine mutated the database
// and only queues the real work.
func (t *Tree) handleEvent(bib.Event) {
	if t.closed.Load() {
		return
	}
	t.dispatcher.Dispatch(t.refresh)
}

// refresh runs on the dispatcher goroutine: derived children are rebuilt
// from the current entries, every counter recounts, and the selection flags
// are brought up to date.
func (t *Tree) refresh() {
	t.rebuildDerived(t.root)
	t.root.walk(func(n *Node) {
		n.counter.Recompute()
	})
	t.refreshSelection()
}

func (t *Tree) buildNode(gn *groups.TreeNode) *Node {
	n := &Node{
		tree:        t,
		groupNode:   gn,
		displayName: gn.Group().Name(),
		allMatched:  true,
	}
	n.counter = NewCounter(gn, t.db, t.dispatcher, t.logger, &t.inflight)

	if auto, ok := gn.Group().(groups.AutomaticGroup); ok {
		n.children = t.deriveChildren(auto)
	} else {
		for _, child := range gn.Children() {
			n.children = append(n.children, t.buildNode(child))
		}
	}
	return n
}

// deriveChildren materializes the subgroups an automatic group induces over
// the current entries. The derived nodes live only in the view model.
func (t *Tree) deriveChildren(auto groups.AutomaticGroup) []*Node {
	entries := t.db.Entries()
	records := make([]groups.Record, len(entries))
	for i, e := range entries {
		records[i] = e
	}

	derived := groups.DeriveSubgroups(auto, records)
	children := make([]*Node, 0, len(derived))
	for _, gn := range derived {
		children = append(children, t.buildNode(gn))
	}
	return children
}

func (t *Tree) rebuildDerived(n *Node) {
	if auto, ok := n.groupNode.Group().(groups.AutomaticGroup); ok {
		n.children = t.deriveChildren(auto)
		return
	}
	for _, child := range n.children {
		t.rebuildDerived(child)
	}
}

// refreshSelection recomputes the any/all selection flags for every node.
// An empty selection matches no group but satisfies "all".
func (t *Tree) refreshSelection() {
	var selected []*bib.Entry
	for key := range t.selection {
		if e, ok := t.db.EntryByKey(key); ok {
			selected = append(selected, e)
		}
	}

	t.root.walk(func(n *Node) {
		any, all := false, true
		for _, e := range selected {
			if n.groupNode.Matches(e) {
				any = true
			} else {
				all = false
			}
		}
		n.anyMatched, n.allMatched = any, all
	})
}
