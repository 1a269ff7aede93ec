package shareddb

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/reflib/reflib/internal/bib"
)

// Metadata keys used in the shared store. Per-user directories are stored as
// one key per user-host identity.
const (
	metaDefaultFileDirectory = "defaultFileDirectory"
	metaMode                 = "mode"
	metaUserDirectoryPrefix  = "userFileDirectory:"
)

// Synchronizer mirrors a library into a shared store. Attached to a context
// via ConvertToShared it receives every entry and metadata event and applies
// it to the store right away, on the goroutine that made the change. Store
// failures are logged and the local library keeps working.
type Synchronizer struct {
	store    *Store
	clientID string
	logger   *slog.Logger
}

// NewSynchronizer creates a synchronizer writing to the given store. Each
// synchronizer gets a fresh client id that marks the rows it writes. The
// logger may be nil.
func NewSynchronizer(store *Store, logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Synchronizer{
		store:    store,
		clientID: uuid.NewString(),
		logger:   logger,
	}
}

// ClientID returns the identity this synchronizer writes into the store.
func (s *Synchronizer) ClientID() string { return s.clientID }

// HandleEvent applies one library change to the store. It implements
// bib.Synchronizer.
func (s *Synchronizer) HandleEvent(ev bib.Event) {
	ctx := context.Background()
	var err error
	switch ev.Kind {
	case bib.EntryAdded, bib.EntryChanged:
		err = s.store.UpsertEntry(ctx, s.toShared(ev.Entry))
	case bib.EntryRemoved:
		err = s.store.RemoveEntry(ctx, ev.Entry.CitationKey())
	case bib.MetaDataChanged:
		err = s.store.ReplaceMetadata(ctx, metadataPairs(ev.MetaData))
	}
	if err != nil {
		s.logger.Error("failed to mirror change into shared store",
			"kind", ev.Kind.String(),
			"client", s.clientID,
			"error", err)
	}
}

// InitialPush writes the context's complete state into the store: every
// entry and the metadata. Existing rows with the same citation keys are
// overwritten; other rows stay.
func (s *Synchronizer) InitialPush(ctx context.Context, c *bib.Context) error {
	for _, e := range c.Database().Entries() {
		if err := s.store.UpsertEntry(ctx, s.toShared(e)); err != nil {
			return err
		}
	}
	if err := s.store.ReplaceMetadata(ctx, metadataPairs(c.MetaData())); err != nil {
		return err
	}
	return nil
}

// Pull builds a fresh local context from the store's current state. The
// returned context is local; convert it to shared to keep it mirrored.
func (s *Synchronizer) Pull(ctx context.Context) (*bib.Context, error) {
	entries, err := s.store.ListEntries(ctx)
	if err != nil {
		return nil, err
	}
	pairs, err := s.store.Metadata(ctx)
	if err != nil {
		return nil, err
	}

	db := bib.NewDatabase()
	for _, shared := range entries {
		e := bib.NewEntry(shared.CitationKey, shared.EntryType)
		for name, value := range shared.Fields {
			e.SetField(name, value)
		}
		if err := db.Insert(e); err != nil {
			return nil, fmt.Errorf("failed to rebuild entry %q: %w", shared.CitationKey, err)
		}
	}

	md := bib.NewMetaData()
	applyMetadataPairs(md, pairs)
	return bib.NewContextOf(db, md, bib.Defaults{}), nil
}

func (s *Synchronizer) toShared(e *bib.Entry) SharedEntry {
	return SharedEntry{
		SharedID:    uuid.NewString(),
		CitationKey: e.CitationKey(),
		EntryType:   e.Type(),
		Fields:      e.Fields(),
		UpdatedBy:   s.clientID,
	}
}

// metadataPairs flattens metadata into the key/value rows of the store.
func metadataPairs(md *bib.MetaData) map[string]string {
	pairs := make(map[string]string)
	if dir, ok := md.DefaultFileDirectory(); ok {
		pairs[metaDefaultFileDirectory] = dir
	}
	if mode, ok := md.Mode(); ok {
		pairs[metaMode] = string(mode)
	}
	for user, dir := range md.UserFileDirectories() {
		pairs[metaUserDirectoryPrefix+user] = dir
	}
	return pairs
}

// applyMetadataPairs is the inverse of metadataPairs.
func applyMetadataPairs(md *bib.MetaData, pairs map[string]string) {
	for key, value := range pairs {
		switch {
		case key == metaDefaultFileDirectory:
			md.SetDefaultFileDirectory(value)
		case key == metaMode:
			md.SetMode(bib.Mode(value))
		case strings.HasPrefix(key, metaUserDirectoryPrefix):
			md.SetUserFileDirectory(strings.TrimPrefix(key, metaUserDirectoryPrefix), value)
		}
	}
}
