// Package library reads and writes reflib library files. A library file is a
// JSON document carrying the entries, the metadata, and the group tree; the
// loaded form is a bib.Context.
package library

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/reflib/reflib/internal/bib"
	"github.com/reflib/reflib/internal/groups"
)

// formatVersion is written into every saved file. Files claiming a newer
// version are rejected instead of being half-understood.
const formatVersion = 1

// Group kind markers in the file format.
const (
	kindAllEntries       = "allEntries"
	kindExplicit         = "explicit"
	kindWord             = "word"
	kindAutomaticKeyword = "automaticKeyword"
)

type libraryJSON struct {
	Version  int          `json:"version"`
	Metadata metadataJSON `json:"metadata"`
	Groups   *groupJSON   `json:"groups,omitempty"`
	Entries  []entryJSON  `json:"entries"`
}

type metadataJSON struct {
	Mode                 string            `json:"mode,omitempty"`
	DefaultFileDirectory string            `json:"defaultFileDirectory,omitempty"`
	UserFileDirectories  map[string]string `json:"userFileDirectories,omitempty"`
}

type entryJSON struct {
	CitationKey string            `json:"citationKey"`
	Type        string            `json:"type"`
	Fields      map[string]string `json:"fields,omitempty"`
}

type groupJSON struct {
	Kind        string       `json:"kind"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	IconCode    string       `json:"iconCode,omitempty"`
	Color       string       `json:"color,omitempty"`
	Expanded    bool         `json:"expanded,omitempty"`
	Field       string       `json:"field,omitempty"`
	Word        string       `json:"word,omitempty"`
	Separator   string       `json:"separator,omitempty"`
	Members     []string     `json:"members,omitempty"`
	Children    []*groupJSON `json:"children,omitempty"`
}

// Load reads the library file at path and builds a context from it. The
// context's database path is set to the absolute location of the file.
func Load(path string) (*bib.Context, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read library: %w", err)
	}

	var doc libraryJSON
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse library: %w", err)
	}
	if doc.Version > formatVersion {
		return nil, fmt.Errorf("library format version %d is newer than supported version %d", doc.Version, formatVersion)
	}

	db := bib.NewDatabase()
	for _, je := range doc.Entries {
		e := bib.NewEntry(je.CitationKey, je.Type)
		for name, value := range je.Fields {
			e.SetField(name, value)
		}
		if err := db.Insert(e); err != nil {
			return nil, fmt.Errorf("failed to load entry %q: %w", je.CitationKey, err)
		}
	}

	md := bib.NewMetaData()
	if doc.Metadata.Mode != "" {
		md.SetMode(bib.Mode(doc.Metadata.Mode))
	}
	if doc.Metadata.DefaultFileDirectory != "" {
		md.SetDefaultFileDirectory(doc.Metadata.DefaultFileDirectory)
	}
	for user, dir := range doc.Metadata.UserFileDirectories {
		md.SetUserFileDirectory(user, dir)
	}
	if doc.Groups != nil {
		root, err := decodeGroup(doc.Groups)
		if err != nil {
			return nil, err
		}
		md.SetGroupsRoot(root)
	}

	c := bib.NewContextOf(db, md, bib.Defaults{})
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve library path: %w", err)
	}
	c.SetDatabasePath(abs)
	return c, nil
}

// Save writes the context as a library file at path, creating parent
// directories as needed.
func Save(c *bib.Context, path string) error {
	doc := libraryJSON{
		Version: formatVersion,
		Metadata: metadataJSON{
			UserFileDirectories: c.MetaData().UserFileDirectories(),
		},
	}
	if mode, ok := c.MetaData().Mode(); ok {
		doc.Metadata.Mode = string(mode)
	}
	if dir, ok := c.MetaData().DefaultFileDirectory(); ok {
		doc.Metadata.DefaultFileDirectory = dir
	}
	if len(doc.Metadata.UserFileDirectories) == 0 {
		doc.Metadata.UserFileDirectories = nil
	}
	if root, ok := c.MetaData().GroupsRoot(); ok {
		encoded, err := encodeGroup(root)
		if err != nil {
			return err
		}
		doc.Groups = encoded
	}

	for _, e := range c.Database().Entries() {
		doc.Entries = append(doc.Entries, entryJSON{
			CitationKey: e.CitationKey(),
			Type:        e.Type(),
			Fields:      e.Fields(),
		})
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode library: %w", err)
	}
	raw = append(raw, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create library directory: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write library: %w", err)
	}
	return nil
}

func encodeGroup(n *groups.TreeNode) (*groupJSON, error) {
	g := n.Group()
	j := &groupJSON{
		Name:        g.Name(),
		Description: g.Description(),
		IconCode:    g.IconCode(),
		Color:       g.Color(),
		Expanded:    g.IsExpanded(),
	}

	switch concrete := g.(type) {
	case *groups.AllEntriesGroup:
		j.Kind = kindAllEntries
	case *groups.ExplicitGroup:
		j.Kind = kindExplicit
		j.Members = concrete.Members()
	case *groups.WordGroup:
		j.Kind = kindWord
		j.Field = concrete.Field()
		j.Word = concrete.Word()
	case *groups.AutomaticKeywordGroup:
		j.Kind = kindAutomaticKeyword
		j.Field = concrete.Field()
		j.Separator = concrete.Separator()
	default:
		return nil, fmt.Errorf("cannot save group %q: unsupported kind %T", g.Name(), g)
	}

	for _, child := range n.Children() {
		encoded, err := encodeGroup(child)
		if err != nil {
			return nil, err
		}
		j.Children = append(j.Children, encoded)
	}
	return j, nil
}

// groupAttributes is satisfied by every group kind and carries the shared
// display attributes through decoding.
type groupAttributes interface {
	SetDescription(string)
	SetIconCode(string)
	SetColor(string)
	SetExpanded(bool)
}

func decodeGroup(j *groupJSON) (*groups.TreeNode, error) {
	var g groups.Group
	switch j.Kind {
	case kindAllEntries:
		g = groups.NewAllEntriesGroup()
	case kindExplicit:
		eg := groups.NewExplicitGroup(j.Name)
		for _, member := range j.Members {
			eg.Add(member)
		}
		g = eg
	case kindWord:
		g = groups.NewWordGroup(j.Name, j.Field, j.Word)
	case kindAutomaticKeyword:
		g = groups.NewAutomaticKeywordGroup(j.Name, j.Field, j.Separator)
	default:
		return nil, fmt.Errorf("cannot load group %q: unsupported kind %q", j.Name, j.Kind)
	}

	attrs := g.(groupAttributes)
	attrs.SetDescription(j.Description)
	attrs.SetIconCode(j.IconCode)
	attrs.SetColor(j.Color)
	attrs.SetExpanded(j.Expanded)

	node := groups.NewTreeNode(g)
	for _, child := range j.Children {
		decoded, err := decodeGroup(child)
		if err != nil {
			return nil, err
		}
		node.AddChild(decoded)
	}
	return node, nil
}
