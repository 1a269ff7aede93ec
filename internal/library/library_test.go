package library

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/reflib/reflib/internal/bib"
	"github.com/reflib/reflib/internal/groups"
)

func newTestContext(t *testing.T) *bib.Context {
	t.Helper()
	c := bib.NewContext()

	article := bib.NewEntry("smith2020", "article")
	article.SetField(bib.FieldTitle, "On Testing")
	article.SetField(bib.FieldKeywords, "science, biology")
	if err := c.Database().Insert(article); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	online := bib.NewEntry("jones2021", "online")
	if err := c.Database().Insert(online); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	c.MetaData().SetMode(bib.ModeBibLaTeX)
	c.MetaData().SetDefaultFileDirectory("papers")
	c.MetaData().SetUserFileDirectory("jane-laptop", "/home/jane/papers")

	root := groups.NewTreeNode(groups.NewAllEntriesGroup())
	research := groups.NewExplicitGroup("Research")
	research.Add("smith2020")
	research.SetDescription("Ongoing work")
	research.SetColor("#ff8800")
	research.SetExpanded(true)
	researchNode := root.AddSubgroup(research)
	researchNode.AddSubgroup(groups.NewWordGroup("Science", bib.FieldKeywords, "science"))
	root.AddSubgroup(groups.NewAutomaticKeywordGroup("By keyword", bib.FieldKeywords, ","))
	c.MetaData().SetGroupsRoot(root)

	return c
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "refs.json")

	original := newTestContext(t)
	if err := Save(original, path); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if loaded.Database().Size() != 2 {
		t.Fatalf("expected 2 entries, got %d", loaded.Database().Size())
	}
	e, ok := loaded.Database().EntryByKey("smith2020")
	if !ok {
		t.Fatal("expected smith2020 to survive the round trip")
	}
	if title, _ := e.Field(bib.FieldTitle); title != "On Testing" {
		t.Errorf("unexpected title %q", title)
	}
	if e.Type() != "article" {
		t.Errorf("unexpected type %q", e.Type())
	}

	if mode, ok := loaded.MetaData().Mode(); !ok || mode != bib.ModeBibLaTeX {
		t.Errorf("mode did not round-trip: %q (%v)", mode, ok)
	}
	if dir, ok := loaded.MetaData().DefaultFileDirectory(); !ok || dir != "papers" {
		t.Errorf("default directory did not round-trip: %q (%v)", dir, ok)
	}
	if dir, ok := loaded.MetaData().UserFileDirectory("jane-laptop"); !ok || dir != "/home/jane/papers" {
		t.Errorf("user directory did not round-trip: %q (%v)", dir, ok)
	}

	if path, ok := loaded.DatabasePath(); !ok || !filepath.IsAbs(path) {
		t.Errorf("expected absolute database path, got %q (%v)", path, ok)
	}
}

func TestGroupsRoundTrip(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "refs.json")

	if err := Save(newTestContext(t), path); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	root, ok := loaded.MetaData().GroupsRoot()
	if !ok {
		t.Fatal("expected a groups root")
	}
	if _, isAll := root.Group().(*groups.AllEntriesGroup); !isAll {
		t.Fatalf("expected all-entries root, got %T", root.Group())
	}

	researchNode, ok := root.ChildByPath("Research")
	if !ok {
		t.Fatal("expected Research group")
	}
	research, ok := researchNode.Group().(*groups.ExplicitGroup)
	if !ok {
		t.Fatalf("expected explicit group, got %T", researchNode.Group())
	}
	if research.Description() != "Ongoing work" || research.Color() != "#ff8800" {
		t.Errorf("attributes did not round-trip: %q %q", research.Description(), research.Color())
	}
	if !research.IsExpanded() {
		t.Error("expanded flag did not round-trip")
	}
	members := research.Members()
	if len(members) != 1 || members[0] != "smith2020" {
		t.Errorf("members did not round-trip: %v", members)
	}

	scienceNode, ok := root.ChildByPath("Research > Science")
	if !ok {
		t.Fatal("expected nested Science group")
	}
	science, ok := scienceNode.Group().(*groups.WordGroup)
	if !ok {
		t.Fatalf("expected word group, got %T", scienceNode.Group())
	}
	if science.Field() != bib.FieldKeywords || science.Word() != "science" {
		t.Errorf("word group did not round-trip: %q %q", science.Field(), science.Word())
	}

	autoNode, ok := root.ChildByPath("By keyword")
	if !ok {
		t.Fatal("expected automatic group")
	}
	auto, ok := autoNode.Group().(*groups.AutomaticKeywordGroup)
	if !ok {
		t.Fatalf("expected automatic keyword group, got %T", autoNode.Group())
	}
	if auto.Separator() != "," {
		t.Errorf("separator did not round-trip: %q", auto.Separator())
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestLoadRejectsNewerVersion(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "refs.json")
	if err := os.WriteFile(path, []byte(`{"version": 99, "entries": []}`), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected an error for a newer format version")
	}
	if !strings.Contains(err.Error(), "version") {
		t.Errorf("expected a version error, got %v", err)
	}
}

func TestLoadRejectsUnknownGroupKind(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "refs.json")
	doc := `{
  "version": 1,
  "metadata": {},
  "groups": {"kind": "search", "name": "Broken"},
  "entries": []
}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for an unknown group kind")
	}
}

func TestLoadRejectsDuplicateKeys(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "refs.json")
	doc := `{
  "version": 1,
  "metadata": {},
  "entries": [
    {"citationKey": "dup", "type": "article"},
    {"citationKey": "dup", "type": "book"}
  ]
}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for duplicate citation keys")
	}
}

func TestSaveCreatesParentDirectories(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "nested", "dir", "refs.json")

	if err := Save(bib.NewContext(), path); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file to exist: %v", err)
	}
}
