// Package groups implements the group model: named buckets of bibliography
// records, arranged in a tree. Groups only see records through the Record
// interface, so the package has no dependency on the entry model.
package groups

import (
	"sort"
	"strings"
)

// Record is the view of a bibliography entry that group predicates consume.
type Record interface {
	CitationKey() string
	Field(name string) (string, bool)
}

// Group is a named, persistable bucket of records.
type Group interface {
	// Name returns the display name. Names are unique among siblings by
	// convention, not enforcement.
	Name() string
	// Description returns the free-text description, empty when unset.
	Description() string
	// IconCode returns the icon identifier chosen for the group, empty when
	// the view should fall back to its default.
	IconCode() string
	// Color returns the group color as a hex string, empty when unset.
	Color() string
	// IsExpanded reports whether the group's node is unfolded in tree views.
	IsExpanded() bool
	// SetExpanded records the folded state. Views call this from their
	// dispatch loop; the flag is not synchronized.
	SetExpanded(expanded bool)
	// Matches reports whether the record belongs to the group.
	Matches(r Record) bool
}

// AutomaticGroup is a group whose subgroups are derived from record contents
// rather than edited by hand.
type AutomaticGroup interface {
	Group
	// CreateSubgroups returns the subgroup nodes induced by a single record.
	CreateSubgroups(r Record) []*TreeNode
}

// base carries the attributes shared by all group kinds.
type base struct {
	name        string
	description string
	iconCode    string
	color       string
	expanded    bool
}

func (b *base) Name() string              { return b.name }
func (b *base) Description() string       { return b.description }
func (b *base) SetDescription(d string)   { b.description = d }
func (b *base) IconCode() string          { return b.iconCode }
func (b *base) SetIconCode(code string)   { b.iconCode = code }
func (b *base) Color() string             { return b.color }
func (b *base) SetColor(color string)     { b.color = color }
func (b *base) IsExpanded() bool          { return b.expanded }
func (b *base) SetExpanded(expanded bool) { b.expanded = expanded }

// AllEntriesGroup is the root group that matches every record.
type AllEntriesGroup struct {
	base
}

// NewAllEntriesGroup returns the canonical root group.
func NewAllEntriesGroup() *AllEntriesGroup {
	g := &AllEntriesGroup{}
	g.name = "All entries"
	g.expanded = true
	return g
}

// Matches always reports true.
func (g *AllEntriesGroup) Matches(Record) bool { return true }

// ExplicitGroup holds records assigned by hand, identified by citation key.
type ExplicitGroup struct {
	base
	members map[string]struct{}
}

// NewExplicitGroup returns an empty explicit group with the given name.
func NewExplicitGroup(name string) *ExplicitGroup {
	g := &ExplicitGroup{members: make(map[string]struct{})}
	g.name = name
	return g
}

// Add puts the citation key into the group.
func (g *ExplicitGroup) Add(citationKey string) {
	g.members[citationKey] = struct{}{}
}

// Remove takes the citation key out of the group.
func (g *ExplicitGroup) Remove(citationKey string) {
	delete(g.members, citationKey)
}

// Members returns the sorted citation keys assigned to the group.
func (g *ExplicitGroup) Members() []string {
	members := make([]string, 0, len(g.members))
	for key := range g.members {
		members = append(members, key)
	}
	sort.Strings(members)
	return members
}

// Matches reports whether the record's citation key was assigned to the
// group.
func (g *ExplicitGroup) Matches(r Record) bool {
	_, ok := g.members[r.CitationKey()]
	return ok
}

// WordGroup matches records whose given field contains a search word,
// case-insensitively.
type WordGroup struct {
	base
	field string
	word  string
}

// NewWordGroup returns a group matching records whose field contains word.
func NewWordGroup(name, field, word string) *WordGroup {
	g := &WordGroup{field: strings.ToLower(field), word: word}
	g.name = name
	return g
}

// Field returns the searched field name.
func (g *WordGroup) Field() string { return g.field }

// Word returns the search word.
func (g *WordGroup) Word() string { return g.word }

// Matches reports whether the record's field contains the search word.
func (g *WordGroup) Matches(r Record) bool {
	value, ok := r.Field(g.field)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(value), strings.ToLower(g.word))
}

// AutomaticKeywordGroup derives one subgroup per distinct keyword found in a
// field, splitting values on a separator.
type AutomaticKeywordGroup struct {
	base
	field     string
	separator string
}

// NewAutomaticKeywordGroup returns an automatic group over the given field,
// splitting its values on separator.
func NewAutomaticKeywordGroup(name, field, separator string) *AutomaticKeywordGroup {
	g := &AutomaticKeywordGroup{field: strings.ToLower(field), separator: separator}
	g.name = name
	return g
}

// Field returns the scanned field name.
func (g *AutomaticKeywordGroup) Field() string { return g.field }

// Separator returns the keyword separator.
func (g *AutomaticKeywordGroup) Separator() string { return g.separator }

// Matches reports whether the record has any keyword in the scanned field.
func (g *AutomaticKeywordGroup) Matches(r Record) bool {
	return len(g.keywords(r)) > 0
}

// CreateSubgroups returns one word-group node per keyword of the record.
func (g *AutomaticKeywordGroup) CreateSubgroups(r Record) []*TreeNode {
	keywords := g.keywords(r)
	nodes := make([]*TreeNode, 0, len(keywords))
	for _, keyword := range keywords {
		nodes = append(nodes, NewTreeNode(NewWordGroup(keyword, g.field, keyword)))
	}
	return nodes
}

func (g *AutomaticKeywordGroup) keywords(r Record) []string {
	value, ok := r.Field(g.field)
	if !ok {
		return nil
	}
	var keywords []string
	for _, part := range strings.Split(value, g.separator) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			keywords = append(keywords, trimmed)
		}
	}
	return keywords
}

// DeriveSubgroups collects the subgroups induced by all records, keeps the
// first occurrence per name, and sorts the result by name without regard to
// case. It builds fresh nodes on every call and never mutates the group.
func DeriveSubgroups(g AutomaticGroup, records []Record) []*TreeNode {
	seen := make(map[string]bool)
	var nodes []*TreeNode
	for _, r := range records {
		for _, node := range g.CreateSubgroups(r) {
			name := node.Group().Name()
			if seen[name] {
				continue
			}
			seen[name] = true
			nodes = append(nodes, node)
		}
	}
	sort.SliceStable(nodes, func(i, j int) bool {
		return strings.ToLower(nodes[i].Group().Name()) < strings.ToLower(nodes[j].Group().Name())
	})
	return nodes
}
