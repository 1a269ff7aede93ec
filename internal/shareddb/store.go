// Package shareddb mirrors a library into a shared SQLite store so that
// several clients can work on the same bibliography. The store holds the
// entries and the library metadata; the Synchronizer keeps it in step with a
// live library context.
package shareddb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/reflib/reflib/db/migrations"

	// Import SQLite driver for database/sql
	_ "modernc.org/sqlite"
)

// ErrNotFound indicates a requested record does not exist.
var ErrNotFound = errors.New("shareddb: not found")

// SharedEntry is one bibliography entry as stored in the shared store.
type SharedEntry struct {
	SharedID    string
	CitationKey string
	EntryType   string
	Fields      map[string]string
	UpdatedBy   string
	UpdatedAt   time.Time
}

// Store is a handle to the shared SQLite store.
type Store struct {
	db *sql.DB
}

// Open opens the store at path, creating the file and applying pending
// schema migrations as needed. Use ":memory:" for a throwaway store.
func Open(path string) (*Store, error) {
	useMemory := path == ":memory:"

	if !useMemory {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	var dsn string
	if useMemory {
		dsn = "file::memory:?cache=shared&_pragma=foreign_keys(ON)"
	} else {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve store path: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=foreign_keys(ON)", filepath.ToSlash(absPath))
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping store: %w", err)
	}

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func runMigrations(db *sql.DB) error {
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to initialise migrate driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrations.Files, ".")
	if err != nil {
		return fmt.Errorf("failed to load embedded migrations: %w", err)
	}
	defer func() {
		_ = sourceDriver.Close()
	}()

	migrator, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return nil
}

// withTx runs fn inside a transaction, rolling back on error.
func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback error: %w)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpsertEntry inserts the entry or, when the citation key is already stored,
// replaces its type and fields. The original shared id survives updates. A
// zero UpdatedAt is filled with the current time.
func (s *Store) UpsertEntry(ctx context.Context, e SharedEntry) error {
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = time.Now().UTC()
	}
	fields, err := json.Marshal(e.Fields)
	if err != nil {
		return fmt.Errorf("failed to encode entry fields: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO entries (shared_id, citation_key, entry_type, fields, updated_by, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(citation_key) DO UPDATE SET
			entry_type = excluded.entry_type,
			fields = excluded.fields,
			updated_by = excluded.updated_by,
			updated_at = excluded.updated_at`,
		e.SharedID, e.CitationKey, e.EntryType, string(fields), e.UpdatedBy, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert entry %q: %w", e.CitationKey, err)
	}
	return nil
}

// RemoveEntry deletes the entry with the given citation key. Removing an
// absent entry is not an error.
func (s *Store) RemoveEntry(ctx context.Context, citationKey string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM entries WHERE citation_key = ?", citationKey); err != nil {
		return fmt.Errorf("failed to remove entry %q: %w", citationKey, err)
	}
	return nil
}

// GetEntry returns the stored entry with the given citation key, or
// ErrNotFound.
func (s *Store) GetEntry(ctx context.Context, citationKey string) (*SharedEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT shared_id, citation_key, entry_type, fields, updated_by, updated_at
		FROM entries WHERE citation_key = ?`, citationKey)

	e, err := scanEntry(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// ListEntries returns all stored entries in insertion order.
func (s *Store) ListEntries(ctx context.Context) ([]SharedEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT shared_id, citation_key, entry_type, fields, updated_by, updated_at
		FROM entries ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var entries []SharedEntry
	for rows.Next() {
		e, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read entries: %w", err)
	}
	return entries, nil
}

// EntryCount returns the number of stored entries.
func (s *Store) EntryCount(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return count, nil
}

// ReplaceMetadata wipes the metadata table and writes the given pairs.
func (s *Store) ReplaceMetadata(ctx context.Context, pairs map[string]string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM metadata"); err != nil {
			return fmt.Errorf("failed to clear metadata: %w", err)
		}
		for key, value := range pairs {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO metadata (key, value) VALUES (?, ?)", key, value); err != nil {
				return fmt.Errorf("failed to write metadata %q: %w", key, err)
			}
		}
		return nil
	})
}

// Metadata returns all stored metadata pairs.
func (s *Store) Metadata(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM metadata")
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	pairs := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}
		pairs[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}
	return pairs, nil
}

// Clear removes all entries and metadata from the store.
func (s *Store) Clear(ctx context.Context) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM entries"); err != nil {
			return fmt.Errorf("failed to clear entries: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM metadata"); err != nil {
			return fmt.Errorf("failed to clear metadata: %w", err)
		}
		return nil
	})
}

func scanEntry(scan func(...any) error) (*SharedEntry, error) {
	var e SharedEntry
	var fields string
	if err := scan(&e.SharedID, &e.CitationKey, &e.EntryType, &fields, &e.UpdatedBy, &e.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(fields), &e.Fields); err != nil {
		return nil, fmt.Errorf("failed to decode fields of %q: %w", e.CitationKey, err)
	}
	return &e, nil
}
