package bib

import (
	"errors"
	"sync"
)

// ErrDuplicateKey is returned when inserting an entry whose citation key is
// already present.
var ErrDuplicateKey = errors.New("duplicate citation key")

// Database is an ordered, observable collection of entries. All methods are
// safe for concurrent use. Readers get cloned entries, so a snapshot taken
// with Entries stays stable while writers keep mutating.
type Database struct {
	mu      sync.RWMutex
	entries []*Entry
	byKey   map[string]*Entry
	bus     *bus
}

// NewDatabase returns an empty database.
func NewDatabase() *Database {
	return &Database{
		byKey: make(map[string]*Entry),
		bus:   newBus(),
	}
}

// Insert adds an entry. The database keeps its own clone; later mutation of
// the argument does not leak in. Fails with ErrDuplicateKey when the citation
// key is taken.
func (db *Database) Insert(e *Entry) error {
	db.mu.Lock()
	if _, exists := db.byKey[e.citationKey]; exists {
		db.mu.Unlock()
		return ErrDuplicateKey
	}
	stored := e.Clone()
	db.entries = append(db.entries, stored)
	db.byKey[stored.citationKey] = stored
	db.mu.Unlock()

	db.bus.publish(Event{Kind: EntryAdded, Entry: stored.Clone()})
	return nil
}

// Remove deletes the entry with the given citation key. It reports whether an
// entry was removed.
func (db *Database) Remove(citationKey string) bool {
	db.mu.Lock()
	stored, exists := db.byKey[citationKey]
	if !exists {
		db.mu.Unlock()
		return false
	}
	delete(db.byKey, citationKey)
	for i, candidate := range db.entries {
		if candidate == stored {
			db.entries = append(db.entries[:i], db.entries[i+1:]...)
			break
		}
	}
	db.mu.Unlock()

	db.bus.publish(Event{Kind: EntryRemoved, Entry: stored.Clone()})
	return true
}

// Update applies fn to the stored entry under the write lock and publishes an
// EntryChanged event. It reports whether the entry exists.
func (db *Database) Update(citationKey string, fn func(*Entry)) bool {
	db.mu.Lock()
	stored, exists := db.byKey[citationKey]
	if !exists {
		db.mu.Unlock()
		return false
	}
	fn(stored)
	changed := stored.Clone()
	db.mu.Unlock()

	db.bus.publish(Event{Kind: EntryChanged, Entry: changed})
	return true
}

// Entries returns a cloned snapshot of all entries in insertion order.
func (db *Database) Entries() []*Entry {
	db.mu.RLock()
	defer db.mu.RUnlock()
	snapshot := make([]*Entry, len(db.entries))
	for i, e := range db.entries {
		snapshot[i] = e.Clone()
	}
	return snapshot
}

// EntryByKey returns a clone of the entry with the given citation key.
func (db *Database) EntryByKey(citationKey string) (*Entry, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	stored, exists := db.byKey[citationKey]
	if !exists {
		return nil, false
	}
	return stored.Clone(), true
}

// Size returns the number of entries.
func (db *Database) Size() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.entries)
}

// Subscribe registers a handler for entry events. Handlers run synchronously
// on the mutating goroutine, after the database released its locks.
func (db *Database) Subscribe(handler func(Event)) *Subscription {
	return db.bus.subscribe(handler)
}
