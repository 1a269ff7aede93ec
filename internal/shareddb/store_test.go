package shareddb

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "shared.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close store: %v", err)
		}
	})
	return store
}

func tableExists(t *testing.T, store *Store, name string) bool {
	t.Helper()
	var count int
	err := store.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&count)
	if err != nil {
		t.Fatalf("failed to query sqlite_master: %v", err)
	}
	return count > 0
}

func TestOpenCreatesSchema(t *testing.T) {
	store := openTestStore(t)

	for _, table := range []string{"entries", "metadata"} {
		if !tableExists(t, store, table) {
			t.Errorf("expected table %q to exist", table)
		}
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")

	first, err := Open(path)
	if err != nil {
		t.Fatalf("first open failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	second, err := Open(path)
	if err != nil {
		t.Fatalf("second open failed: %v", err)
	}
	if err := second.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
}

func TestUpsertAndGet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	e := SharedEntry{
		SharedID:    "id-1",
		CitationKey: "smith2020",
		EntryType:   "article",
		Fields:      map[string]string{"title": "On Testing", "keywords": "science"},
		UpdatedBy:   "client-a",
	}
	if err := store.UpsertEntry(ctx, e); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	stored, err := store.GetEntry(ctx, "smith2020")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.SharedID != "id-1" || stored.EntryType != "article" {
		t.Errorf("unexpected entry %+v", stored)
	}
	if stored.Fields["title"] != "On Testing" || stored.Fields["keywords"] != "science" {
		t.Errorf("unexpected fields %v", stored.Fields)
	}
	if stored.UpdatedAt.IsZero() {
		t.Error("expected UpdatedAt to be filled in")
	}

	if _, err := store.GetEntry(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpsertKeepsSharedID(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.UpsertEntry(ctx, SharedEntry{
		SharedID:    "id-1",
		CitationKey: "smith2020",
		EntryType:   "article",
		Fields:      map[string]string{"title": "First"},
	}); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if err := store.UpsertEntry(ctx, SharedEntry{
		SharedID:    "id-2",
		CitationKey: "smith2020",
		EntryType:   "book",
		Fields:      map[string]string{"title": "Second"},
		UpdatedBy:   "client-b",
	}); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	stored, err := store.GetEntry(ctx, "smith2020")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.SharedID != "id-1" {
		t.Errorf("expected original shared id to survive, got %q", stored.SharedID)
	}
	if stored.EntryType != "book" || stored.Fields["title"] != "Second" || stored.UpdatedBy != "client-b" {
		t.Errorf("expected updated content, got %+v", stored)
	}

	count, err := store.EntryCount(ctx)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 entry, got %d", count)
	}
}

func TestListEntriesKeepsInsertionOrder(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i, key := range []string{"c", "a", "b"} {
		if err := store.UpsertEntry(ctx, SharedEntry{
			SharedID:    key,
			CitationKey: key,
			EntryType:   "article",
			Fields:      map[string]string{},
		}); err != nil {
			t.Fatalf("upsert %d failed: %v", i, err)
		}
	}

	entries, err := store.ListEntries(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.CitationKey
	}
	expected := []string{"c", "a", "b"}
	for i := range expected {
		if keys[i] != expected[i] {
			t.Fatalf("expected order %v, got %v", expected, keys)
		}
	}
}

func TestRemoveEntry(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.UpsertEntry(ctx, SharedEntry{
		SharedID: "id-1", CitationKey: "smith2020", EntryType: "article", Fields: map[string]string{},
	}); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	if err := store.RemoveEntry(ctx, "smith2020"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if _, err := store.GetEntry(ctx, "smith2020"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected entry to be gone, got %v", err)
	}
	if err := store.RemoveEntry(ctx, "smith2020"); err != nil {
		t.Errorf("expected removing an absent entry to succeed, got %v", err)
	}
}

func TestReplaceMetadata(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.ReplaceMetadata(ctx, map[string]string{
		"mode":  "biblatex",
		"stale": "value",
	}); err != nil {
		t.Fatalf("replace failed: %v", err)
	}
	if err := store.ReplaceMetadata(ctx, map[string]string{
		"mode":                 "bibtex",
		"defaultFileDirectory": "/papers",
	}); err != nil {
		t.Fatalf("second replace failed: %v", err)
	}

	pairs, err := store.Metadata(ctx)
	if err != nil {
		t.Fatalf("metadata failed: %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %v", pairs)
	}
	if pairs["mode"] != "bibtex" || pairs["defaultFileDirectory"] != "/papers" {
		t.Errorf("unexpected pairs %v", pairs)
	}
	if _, ok := pairs["stale"]; ok {
		t.Error("expected stale key to be removed")
	}
}

func TestClear(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.UpsertEntry(ctx, SharedEntry{
		SharedID: "id-1", CitationKey: "smith2020", EntryType: "article", Fields: map[string]string{},
	}); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if err := store.ReplaceMetadata(ctx, map[string]string{"mode": "bibtex"}); err != nil {
		t.Fatalf("replace failed: %v", err)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear failed: %v", err)
	}

	count, err := store.EntryCount(ctx)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 entries, got %d", count)
	}
	pairs, err := store.Metadata(ctx)
	if err != nil {
		t.Fatalf("metadata failed: %v", err)
	}
	if len(pairs) != 0 {
		t.Errorf("expected no metadata, got %v", pairs)
	}
}
