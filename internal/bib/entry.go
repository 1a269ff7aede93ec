// Package bib provides the in-memory bibliography model: entries, the entry
// database with its change bus, and the context that ties a database to its
// metadata, file location, and directory-resolution rules.
package bib

import (
	"sort"
	"strings"
)

// Names of the fields consumed elsewhere in reflib. Field names are stored
// lower-cased; use these constants instead of raw strings.
const (
	FieldAuthor   = "author"
	FieldFile     = "file"
	FieldGroups   = "groups"
	FieldKeywords = "keywords"
	FieldTitle    = "title"
)

// Entry is a single bibliography record: a citation key, an entry type, and
// a set of named fields. Field names are normalised to lower case.
//
// An Entry is not safe for concurrent use; the Database hands out clones so
// that readers never observe concurrent mutation.
type Entry struct {
	citationKey string
	entryType   string
	fields      map[string]string
}

// NewEntry creates an entry with the given citation key and type.
func NewEntry(citationKey, entryType string) *Entry {
	return &Entry{
		citationKey: citationKey,
		entryType:   strings.ToLower(entryType),
		fields:      make(map[string]string),
	}
}

// CitationKey returns the entry's citation key.
func (e *Entry) CitationKey() string {
	return e.citationKey
}

// Type returns the lower-cased entry type, e.g. "article".
func (e *Entry) Type() string {
	return e.entryType
}

// Field returns the value stored under the given field name.
func (e *Entry) Field(name string) (string, bool) {
	value, ok := e.fields[strings.ToLower(name)]
	return value, ok
}

// SetField stores a field value. Setting an empty value removes the field.
func (e *Entry) SetField(name, value string) {
	key := strings.ToLower(name)
	if value == "" {
		delete(e.fields, key)
		return
	}
	e.fields[key] = value
}

// FieldNames returns the sorted names of all set fields.
func (e *Entry) FieldNames() []string {
	names := make([]string, 0, len(e.fields))
	for name := range e.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Fields returns a copy of the field map.
func (e *Entry) Fields() map[string]string {
	fields := make(map[string]string, len(e.fields))
	for name, value := range e.fields {
		fields[name] = value
	}
	return fields
}

// Clone returns a deep copy of the entry.
func (e *Entry) Clone() *Entry {
	return &Entry{
		citationKey: e.citationKey,
		entryType:   e.entryType,
		fields:      e.Fields(),
	}
}
