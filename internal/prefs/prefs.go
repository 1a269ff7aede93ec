// Package prefs loads and stores the local, per-machine preferences. The
// preferences live in an INI file under the user's config directory and are
// deliberately separate from the library metadata, which travels with the
// library file.
package prefs

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"

	"gopkg.in/ini.v1"
)

const (
	filesSection           = "files"
	fieldDirectoriesSection = "field_directories"
)

// FilePreferences is the locally configured side of file-directory lookup: a
// main directory, optional per-field overrides, and the flag that prefers the
// library file's own directory over everything else.
type FilePreferences struct {
	// User identifies this user on this machine, e.g. "jane-worklaptop".
	// Per-user directories in the library metadata are keyed by it. The
	// value is derived, not persisted.
	User string

	// MainDirectory is the default directory for linked files.
	MainDirectory string

	// PreferBaseLocation puts the library file's directory first when
	// resolving file directories.
	PreferBaseLocation bool

	fieldDirectories map[string]string
}

// iniFiles mirrors the [files] section.
type iniFiles struct {
	MainDirectory      string `ini:"main_directory"`
	PreferBaseLocation bool   `ini:"prefer_base_location"`
}

// Default returns preferences with nothing configured and the user identity
// filled in.
func Default() FilePreferences {
	return FilePreferences{
		User:             DefaultUser(),
		fieldDirectories: make(map[string]string),
	}
}

// DefaultUser derives the user-host identity used to key per-user directories
// in library metadata.
func DefaultUser() string {
	name := "unknown"
	if u, err := user.Current(); err == nil && u.Username != "" {
		name = u.Username
	}
	host := "localhost"
	if h, err := os.Hostname(); err == nil && h != "" {
		host = h
	}
	return name + "-" + host
}

// Load reads preferences from the INI file at path. A missing file yields the
// defaults without an error.
func Load(path string) (FilePreferences, error) {
	p := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return p, nil
	}
	cfg, err := ini.Load(path)
	if err != nil {
		return p, fmt.Errorf("failed to load preferences: %w", err)
	}

	var files iniFiles
	if err := cfg.Section(filesSection).MapTo(&files); err != nil {
		return p, fmt.Errorf("failed to parse preferences: %w", err)
	}
	p.MainDirectory = files.MainDirectory
	p.PreferBaseLocation = files.PreferBaseLocation

	for _, key := range cfg.Section(fieldDirectoriesSection).Keys() {
		if key.String() != "" {
			p.fieldDirectories[key.Name()] = key.String()
		}
	}
	return p, nil
}

// Save writes the preferences to the INI file at path, creating parent
// directories as needed.
func (p FilePreferences) Save(path string) error {
	cfg := ini.Empty()
	files := iniFiles{
		MainDirectory:      p.MainDirectory,
		PreferBaseLocation: p.PreferBaseLocation,
	}
	if err := cfg.Section(filesSection).ReflectFrom(&files); err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	for field, dir := range p.fieldDirectories {
		cfg.Section(fieldDirectoriesSection).Key(field).SetValue(dir)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create preferences directory: %w", err)
	}
	if err := cfg.SaveTo(path); err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}

// FieldDirectory returns the directory configured for the given field,
// falling back to the main directory.
func (p FilePreferences) FieldDirectory(field string) (string, bool) {
	if dir, ok := p.fieldDirectories[field]; ok && dir != "" {
		return dir, true
	}
	if p.MainDirectory != "" {
		return p.MainDirectory, true
	}
	return "", false
}

// SetFieldDirectory configures a directory for one field. An empty directory
// removes the override.
func (p *FilePreferences) SetFieldDirectory(field, dir string) {
	if p.fieldDirectories == nil {
		p.fieldDirectories = make(map[string]string)
	}
	if dir == "" {
		delete(p.fieldDirectories, field)
		return
	}
	p.fieldDirectories[field] = dir
}

// FieldDirectories returns a copy of the per-field overrides.
func (p FilePreferences) FieldDirectories() map[string]string {
	dirs := make(map[string]string, len(p.fieldDirectories))
	for field, dir := range p.fieldDirectories {
		dirs[field] = dir
	}
	return dirs
}
