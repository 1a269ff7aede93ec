package bib

import "sync"

// EventKind identifies what changed.
type EventKind int

const (
	// EntryAdded fires after an entry was inserted into the database.
	EntryAdded EventKind = iota
	// EntryRemoved fires after an entry was removed from the database.
	EntryRemoved
	// EntryChanged fires after an entry's fields were updated in place.
	EntryChanged
	// MetaDataChanged fires after any metadata setter ran.
	MetaDataChanged
)

// String returns a stable name for the event kind, for logging.
func (k EventKind) String() string {
	switch k {
	case EntryAdded:
		return "entry-added"
	case EntryRemoved:
		return "entry-removed"
	case EntryChanged:
		return "entry-changed"
	case MetaDataChanged:
		return "metadata-changed"
	default:
		return "unknown"
	}
}

// Event describes a single change to a database or its metadata. Entry is a
// clone and set for entry events; MetaData is set for MetaDataChanged.
type Event struct {
	Kind     EventKind
	Entry    *Entry
	MetaData *MetaData
}

// Subscription is a handle to a registered event handler. Unsubscribe stops
// delivery; it is safe to call more than once.
type Subscription struct {
	bus *bus
	id  int
}

// Unsubscribe removes the handler from the bus.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.bus == nil {
		return
	}
	s.bus.remove(s.id)
}

// bus is a minimal synchronous event bus. Handlers run on the goroutine that
// triggered the change, after the owner released its locks, so a handler may
// call back into the owner.
type bus struct {
	mu       sync.Mutex
	nextID   int
	handlers map[int]func(Event)
}

func newBus() *bus {
	return &bus{handlers: make(map[int]func(Event))}
}

func (b *bus) subscribe(handler func(Event)) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.handlers[id] = handler
	return &Subscription{bus: b, id: id}
}

func (b *bus) remove(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, id)
}

func (b *bus) publish(ev Event) {
	b.mu.Lock()
	handlers := make([]func(Event), 0, len(b.handlers))
	for _, handler := range b.handlers {
		handlers = append(handlers, handler)
	}
	b.mu.Unlock()
	for _, handler := range handlers {
		handler(ev)
	}
}
