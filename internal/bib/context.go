package bib

import (
	"github.com/reflib/reflib/internal/prefs"
)

// Location says where a library lives.
type Location string

const (
	// LocationLocal marks a library backed only by its file.
	LocationLocal Location = "local"
	// LocationShared marks a library mirrored into a shared store.
	LocationShared Location = "shared"
)

// Defaults are the fallbacks applied when the library itself does not pin a
// behavior down.
type Defaults struct {
	// Mode is assumed when the metadata has no dialect and the entries do
	// not force one.
	Mode Mode
}

// Synchronizer mirrors local changes into a shared store. Implementations
// receive every entry and metadata event of a converted context.
type Synchronizer interface {
	HandleEvent(Event)
}

// Context represents one open library: the entry database, its metadata, the
// file it was loaded from, and whether it is mirrored into a shared store.
//
// The database and metadata are safe for concurrent use on their own; the
// context's remaining state belongs to the goroutine that owns the library.
type Context struct {
	database     *Database
	metaData     *MetaData
	defaults     Defaults
	databasePath string
	location     Location
	synchronizer Synchronizer
	dbSub        *Subscription
	mdSub        *Subscription
}

// NewContext returns a context around a fresh database with empty metadata.
func NewContext() *Context {
	return NewContextOf(NewDatabase(), NewMetaData(), Defaults{})
}

// NewContextOf wraps an existing database and metadata.
func NewContextOf(db *Database, md *MetaData, defaults Defaults) *Context {
	return &Context{
		database: db,
		metaData: md,
		defaults: defaults,
		location: LocationLocal,
	}
}

// Database returns the entry database.
func (c *Context) Database() *Database { return c.database }

// MetaData returns the library metadata.
func (c *Context) MetaData() *MetaData { return c.metaData }

// Location reports whether the library is local or shared.
func (c *Context) Location() Location { return c.location }

// DatabasePath returns the library file's path, if the library has been
// saved.
func (c *Context) DatabasePath() (string, bool) {
	return c.databasePath, c.databasePath != ""
}

// SetDatabasePath records where the library file lives.
func (c *Context) SetDatabasePath(path string) { c.databasePath = path }

// ClearDatabasePath marks the library as unsaved.
func (c *Context) ClearDatabasePath() { c.databasePath = "" }

// Mode returns the library's dialect. When the metadata does not store one,
// the dialect is inferred from the entries, combined with the defaults, and
// written back to the metadata so later calls are stable.
func (c *Context) Mode() Mode {
	if mode, ok := c.metaData.Mode(); ok {
		return mode
	}
	mode := ModeBibTeX
	if c.defaults.Mode == ModeBibLaTeX || InferMode(c.database) == ModeBibLaTeX {
		mode = ModeBibLaTeX
	}
	c.metaData.SetMode(mode)
	return mode
}

// SetMode stores the dialect in the metadata.
func (c *Context) SetMode(mode Mode) { c.metaData.SetMode(mode) }

// FileDirectories returns the ordered directories to search for files linked
// in the given field, combining the per-user and library-wide directories
// from the metadata, the preferences directory for the field, and the
// library file's own directory.
func (c *Context) FileDirectories(field string, fp prefs.FilePreferences) []string {
	userDirectory, _ := c.metaData.UserFileDirectory(fp.User)
	generalDirectory, _ := c.metaData.DefaultFileDirectory()
	preferenceDirectory, _ := fp.FieldDirectory(field)

	return ResolveDirectories(DirectoryRequest{
		UserDirectory:       userDirectory,
		GeneralDirectory:    generalDirectory,
		PreferenceDirectory: preferenceDirectory,
		DatabaseFilePath:    c.databasePath,
		PreferBaseLocation:  fp.PreferBaseLocation,
	})
}

// FirstExistingFileDirectory returns the first directory for the "file"
// field that exists on disk.
func (c *Context) FirstExistingFileDirectory(fp prefs.FilePreferences) (string, bool) {
	return FirstExistingDirectory(c.FileDirectories(FieldFile, fp))
}

// ConvertToShared attaches a synchronizer to the database and metadata event
// buses and marks the library as shared. A previously attached synchronizer
// is detached first.
func (c *Context) ConvertToShared(s Synchronizer) {
	c.detach()
	c.synchronizer = s
	c.dbSub = c.database.Subscribe(s.HandleEvent)
	c.mdSub = c.metaData.Subscribe(s.HandleEvent)
	c.location = LocationShared
}

// ConvertToLocal detaches the synchronizer from the event buses and marks
// the library as local again. The synchronizer itself stays referenced until
// ClearSynchronizer is called.
func (c *Context) ConvertToLocal() {
	c.detach()
	c.location = LocationLocal
}

// Synchronizer returns the attached synchronizer, if any.
func (c *Context) Synchronizer() (Synchronizer, bool) {
	return c.synchronizer, c.synchronizer != nil
}

// ClearSynchronizer drops the synchronizer reference, detaching it first.
func (c *Context) ClearSynchronizer() {
	c.detach()
	c.synchronizer = nil
}

func (c *Context) detach() {
	c.dbSub.Unsubscribe()
	c.mdSub.Unsubscribe()
	c.dbSub = nil
	c.mdSub = nil
}
