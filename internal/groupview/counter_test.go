package groupview

import (
	"sync"
	"testing"
	"time"

	"github.com/reflib/reflib/internal/bib"
	"github.com/reflib/reflib/internal/groups"
)

// manualDispatcher queues dispatched functions and runs them only when the
// test says so, making delivery order fully deterministic.
type manualDispatcher struct {
	mu     sync.Mutex
	queue  []func()
	closed bool
}

func (d *manualDispatcher) Dispatch(fn func()) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	d.queue = append(d.queue, fn)
	return true
}

func (d *manualDispatcher) pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// take removes and returns the i-th queued function.
func (d *manualDispatcher) take(i int) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn := d.queue[i]
	d.queue = append(d.queue[:i], d.queue[i+1:]...)
	return fn
}

func (d *manualDispatcher) close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func newScienceDatabase(t *testing.T) *bib.Database {
	t.Helper()
	db := bib.NewDatabase()
	entries := []struct {
		key      string
		keywords string
	}{
		{"miller2019", "science, biology"},
		{"smith2020", "history"},
		{"jones2021", "art"},
	}
	for _, spec := range entries {
		e := bib.NewEntry(spec.key, "article")
		e.SetField(bib.FieldKeywords, spec.keywords)
		if err := db.Insert(e); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}
	return db
}

func newScienceNode() *groups.TreeNode {
	return groups.NewTreeNode(groups.NewWordGroup("Science", bib.FieldKeywords, "science"))
}

func TestCounterStartsAtZero(t *testing.T) {
	d := &manualDispatcher{}
	c := NewCounter(newScienceNode(), newScienceDatabase(t), d, nil, nil)

	// The first computation is scheduled but not yet delivered.
	if hits := c.Hits(); hits != 0 {
		t.Errorf("expected 0 before delivery, got %d", hits)
	}

	waitFor(t, "delivery to be queued", func() bool { return d.pending() == 1 })
	d.take(0)()
	if hits := c.Hits(); hits != 1 {
		t.Errorf("expected 1 after delivery, got %d", hits)
	}
	c.Wait()
}

func TestCounterRecomputesOverSnapshot(t *testing.T) {
	db := newScienceDatabase(t)
	d := &manualDispatcher{}
	c := NewCounter(newScienceNode(), db, d, nil, nil)
	waitFor(t, "first delivery", func() bool { return d.pending() == 1 })
	d.take(0)()

	e := bib.NewEntry("new2022", "article")
	e.SetField(bib.FieldKeywords, "science")
	if err := db.Insert(e); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	c.Recompute()
	waitFor(t, "second delivery", func() bool { return d.pending() == 1 })
	d.take(0)()

	if hits := c.Hits(); hits != 2 {
		t.Errorf("expected 2, got %d", hits)
	}
	c.Wait()
}

func TestCounterNewestGenerationWins(t *testing.T) {
	db := newScienceDatabase(t)
	d := &manualDispatcher{}
	c := NewCounter(newScienceNode(), db, d, nil, nil)

	// First count sees one matching entry.
	waitFor(t, "first delivery", func() bool { return d.pending() == 1 })

	e := bib.NewEntry("new2022", "article")
	e.SetField(bib.FieldKeywords, "science")
	if err := db.Insert(e); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	// Second count sees two.
	c.Recompute()
	waitFor(t, "second delivery", func() bool { return d.pending() == 2 })

	// Deliver the newer result first, then the stale one.
	newer := d.take(1)
	stale := d.take(0)

	newer()
	if hits := c.Hits(); hits != 2 {
		t.Fatalf("expected 2 after newer delivery, got %d", hits)
	}
	stale()
	if hits := c.Hits(); hits != 2 {
		t.Errorf("stale delivery overwrote newer result: got %d", hits)
	}
	c.Wait()
}

func TestCounterInOrderDeliveries(t *testing.T) {
	db := newScienceDatabase(t)
	d := &manualDispatcher{}
	c := NewCounter(newScienceNode(), db, d, nil, nil)
	waitFor(t, "first delivery", func() bool { return d.pending() == 1 })

	e := bib.NewEntry("new2022", "article")
	e.SetField(bib.FieldKeywords, "science")
	if err := db.Insert(e); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	c.Recompute()
	waitFor(t, "second delivery", func() bool { return d.pending() == 2 })

	d.take(0)()
	if hits := c.Hits(); hits != 1 {
		t.Fatalf("expected 1 after first delivery, got %d", hits)
	}
	d.take(0)()
	if hits := c.Hits(); hits != 2 {
		t.Errorf("expected 2 after second delivery, got %d", hits)
	}
	c.Wait()
}

// panickingGroup fails on every match attempt.
type panickingGroup struct {
	groups.ExplicitGroup
}

func (panickingGroup) Matches(groups.Record) bool {
	panic("broken predicate")
}

func TestCounterPanicLeavesCountAlone(t *testing.T) {
	db := newScienceDatabase(t)
	d := &manualDispatcher{}
	node := groups.NewTreeNode(&panickingGroup{})

	c := NewCounter(node, db, d, nil, nil)
	c.Wait()

	if pending := d.pending(); pending != 0 {
		t.Errorf("expected no delivery from a failed count, got %d", pending)
	}
	if hits := c.Hits(); hits != 0 {
		t.Errorf("expected count to stay at 0, got %d", hits)
	}
}

func TestCounterClosedDispatcherDoesNotHang(t *testing.T) {
	d := &manualDispatcher{}
	d.close()

	c := NewCounter(newScienceNode(), newScienceDatabase(t), d, nil, nil)
	c.Recompute()
	c.Wait() // must return even though nothing can be delivered

	if hits := c.Hits(); hits != 0 {
		t.Errorf("expected 0, got %d", hits)
	}
}

func TestCounterOnChange(t *testing.T) {
	db := newScienceDatabase(t)
	d := &manualDispatcher{}
	c := NewCounter(newScienceNode(), db, d, nil, nil)

	var notified []int
	c.OnChange(func(hits int) { notified = append(notified, hits) })

	waitFor(t, "first delivery", func() bool { return d.pending() == 1 })
	d.take(0)()

	// A recount with an unchanged result must not notify again.
	c.Recompute()
	waitFor(t, "second delivery", func() bool { return d.pending() == 1 })
	d.take(0)()

	if len(notified) != 1 || notified[0] != 1 {
		t.Errorf("expected a single notification with 1, got %v", notified)
	}
	c.Wait()
}
