// Package dispatch provides a serial run loop. State owned by the loop is
// only ever touched from the loop goroutine, which is how the group views
// keep their counters and selection flags consistent without locking.
package dispatch

import "sync"

// Loop runs queued functions one at a time, in submission order, on a single
// goroutine. The queue is unbounded, so Dispatch never blocks.
type Loop struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []func()
	closed  bool
	stopped chan struct{}
}

// NewLoop starts the loop goroutine.
func NewLoop() *Loop {
	l := &Loop{stopped: make(chan struct{})}
	l.cond = sync.NewCond(&l.mu)
	go l.run()
	return l
}

func (l *Loop) run() {
	for {
		l.mu.Lock()
		for len(l.queue) == 0 && !l.closed {
			l.cond.Wait()
		}
		if len(l.queue) == 0 {
			l.mu.Unlock()
			close(l.stopped)
			return
		}
		fn := l.queue[0]
		l.queue = l.queue[1:]
		l.mu.Unlock()

		fn()
	}
}

// Dispatch queues fn for execution on the loop goroutine. It reports whether
// the function was accepted; after Close it reports false and fn never runs.
func (l *Loop) Dispatch(fn func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	l.queue = append(l.queue, fn)
	l.cond.Signal()
	return true
}

// Sync runs fn on the loop goroutine and waits for it to finish. It reports
// false when the loop is closed. Calling Sync from inside the loop deadlocks.
func (l *Loop) Sync(fn func()) bool {
	done := make(chan struct{})
	if !l.Dispatch(func() {
		fn()
		close(done)
	}) {
		return false
	}
	<-done
	return true
}

// Close stops accepting new work, drains the pending queue, and waits for
// the loop goroutine to exit. Close is idempotent.
func (l *Loop) Close() {
	l.mu.Lock()
	l.closed = true
	l.cond.Signal()
	l.mu.Unlock()
	<-l.stopped
}
