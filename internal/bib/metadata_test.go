package bib

import (
	"testing"

	"github.com/reflib/reflib/internal/groups"
)

func TestMetaDataDirectories(t *testing.T) {
	md := NewMetaData()

	if _, ok := md.DefaultFileDirectory(); ok {
		t.Error("expected no default directory on fresh metadata")
	}

	md.SetDefaultFileDirectory("/shared/papers")
	if dir, ok := md.DefaultFileDirectory(); !ok || dir != "/shared/papers" {
		t.Errorf("expected /shared/papers, got %q (%v)", dir, ok)
	}

	md.SetUserFileDirectory("jane-laptop", "/home/jane/papers")
	if dir, ok := md.UserFileDirectory("jane-laptop"); !ok || dir != "/home/jane/papers" {
		t.Errorf("expected /home/jane/papers, got %q (%v)", dir, ok)
	}
	if _, ok := md.UserFileDirectory("someone-else"); ok {
		t.Error("expected no directory for unknown user")
	}

	md.SetUserFileDirectory("jane-laptop", "")
	if _, ok := md.UserFileDirectory("jane-laptop"); ok {
		t.Error("expected cleared user directory")
	}
}

func TestMetaDataPublishesChanges(t *testing.T) {
	md := NewMetaData()
	var events []Event
	sub := md.Subscribe(func(ev Event) { events = append(events, ev) })
	defer sub.Unsubscribe()

	md.SetDefaultFileDirectory("/papers")
	md.SetUserFileDirectory("jane-laptop", "/home/jane")
	md.SetMode(ModeBibLaTeX)
	md.SetGroupsRoot(groups.NewTreeNode(groups.NewAllEntriesGroup()))

	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}
	for i, ev := range events {
		if ev.Kind != MetaDataChanged {
			t.Errorf("event %d: expected MetaDataChanged, got %v", i, ev.Kind)
		}
		if ev.MetaData != md {
			t.Errorf("event %d: unexpected metadata reference", i)
		}
	}
}

func TestMetaDataGroupsRoot(t *testing.T) {
	md := NewMetaData()
	if _, ok := md.GroupsRoot(); ok {
		t.Error("expected no groups on fresh metadata")
	}

	root := groups.NewTreeNode(groups.NewAllEntriesGroup())
	md.SetGroupsRoot(root)
	if got, ok := md.GroupsRoot(); !ok || got != root {
		t.Error("expected stored groups root")
	}

	md.SetGroupsRoot(nil)
	if _, ok := md.GroupsRoot(); ok {
		t.Error("expected groups root to be cleared")
	}
}
