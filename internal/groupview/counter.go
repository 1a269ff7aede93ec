// Package groupview provides the view-model side of the group tree: nodes
// mirroring the group structure, asynchronous hit counters, and selection
// state. All mutable view state is confined to a dispatcher goroutine;
// counting itself runs on throwaway background goroutines.
package groupview

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/reflib/reflib/internal/bib"
	"github.com/reflib/reflib/internal/groups"
)

// Dispatcher queues functions onto the goroutine that owns the view state.
// Dispatch reports whether the function was accepted; after shutdown it
// reports false and the function never runs.
type Dispatcher interface {
	Dispatch(fn func()) bool
}

// Counter maintains the number of database entries matching one group node.
//
// Every Recompute spawns a fresh goroutine that counts over a snapshot of the
// database and then hands the result to the dispatcher. Recomputations may
// overlap freely; each one carries a generation number and the dispatcher
// discards results that have been overtaken by a newer one, so the published
// value never moves backwards in time. The count starts at zero and only
// ever changes to the result of a completed recomputation.
type Counter struct {
	node       *groups.TreeNode
	db         *bib.Database
	dispatcher Dispatcher
	logger     *slog.Logger
	inflight   *sync.WaitGroup

	hits       atomic.Int64
	generation atomic.Uint64
	applied    uint64 // newest generation applied; dispatcher goroutine only

	mu        sync.Mutex
	listeners []func(int)
}

// NewCounter creates a counter for the given node and schedules the first
// computation. The logger may be nil. The inflight wait group, if non-nil,
// tracks every recomputation from spawn to delivery; the tree uses a shared
// one to implement Wait.
func NewCounter(node *groups.TreeNode, db *bib.Database, d Dispatcher, logger *slog.Logger, inflight *sync.WaitGroup) *Counter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if inflight == nil {
		inflight = &sync.WaitGroup{}
	}
	c := &Counter{
		node:       node,
		db:         db,
		dispatcher: d,
		logger:     logger,
		inflight:   inflight,
	}
	c.Recompute()
	return c
}

// Hits returns the last published match count.
func (c *Counter) Hits() int {
	return int(c.hits.Load())
}

// OnChange registers fn, invoked on the dispatcher goroutine whenever the
// published count changes.
func (c *Counter) OnChange(fn func(int)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Recompute schedules a fresh count on its own goroutine. It returns
// immediately and never blocks on earlier recomputations.
func (c *Counter) Recompute() {
	generation := c.generation.Add(1)
	c.inflight.Add(1)
	go c.count(generation)
}

// Wait blocks until all recomputations started so far have been delivered or
// discarded.
func (c *Counter) Wait() {
	c.inflight.Wait()
}

func (c *Counter) count(generation uint64) {
	matches, ok := c.countMatches()
	if !ok {
		c.inflight.Done()
		return
	}

	accepted := c.dispatcher.Dispatch(func() {
		defer c.inflight.Done()
		if generation <= c.applied {
			return // overtaken by a newer count
		}
		c.applied = generation
		if c.hits.Swap(int64(matches)) != int64(matches) {
			c.notify(matches)
		}
	})
	if !accepted {
		c.inflight.Done()
	}
}

// countMatches scans a database snapshot. A panicking group predicate is
// logged and reported as a failed count, leaving the published value alone.
func (c *Counter) countMatches() (matches int, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("counting group matches failed",
				"group", c.node.Group().Name(),
				"panic", r)
		}
	}()
	for _, e := range c.db.Entries() {
		if c.node.Matches(e) {
			matches++
		}
	}
	return matches, true
}

func (c *Counter) notify(matches int) {
	c.mu.Lock()
	listeners := make([]func(int), len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()
	for _, fn := range listeners {
		fn(matches)
	}
}
