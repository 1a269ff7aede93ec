package bib

import (
	"os"
	"path/filepath"
	"strings"
)

// DirectoryRequest carries the inputs for ResolveDirectories. Empty string
// means the corresponding directory is not configured.
type DirectoryRequest struct {
	// UserDirectory is the per-user directory from the library metadata.
	UserDirectory string
	// GeneralDirectory is the library-wide directory from the metadata.
	GeneralDirectory string
	// PreferenceDirectory is the directory from the local preferences. It is
	// taken over verbatim, never resolved against the library file.
	PreferenceDirectory string
	// DatabaseFilePath is the location of the library file on disk, empty for
	// unsaved libraries.
	DatabaseFilePath string
	// PreferBaseLocation moves the library file's directory to the front of
	// the result instead of the back.
	PreferBaseLocation bool
}

// ResolveDirectories computes the ordered list of directories to search for
// linked files. The order is: the user-specific directory, the library-wide
// directory, the preferences directory, and finally the directory containing
// the library file itself — unless PreferBaseLocation is set, which moves the
// library file's directory to the front.
//
// Directories that are not configured are skipped; nothing else is filtered,
// so duplicates and non-existing paths stay in. The result has at most four
// elements and is empty when nothing is configured and the library has no
// file.
func ResolveDirectories(req DirectoryRequest) []string {
	dirs := make([]string, 0, 4)

	if req.UserDirectory != "" {
		dirs = append(dirs, resolveFileDirectory(req.UserDirectory, req.DatabaseFilePath))
	}
	if req.GeneralDirectory != "" {
		dirs = append(dirs, resolveFileDirectory(req.GeneralDirectory, req.DatabaseFilePath))
	}
	if req.PreferenceDirectory != "" {
		dirs = append(dirs, req.PreferenceDirectory)
	}

	if req.DatabaseFilePath != "" {
		base := filepath.Dir(req.DatabaseFilePath)
		if abs, err := filepath.Abs(base); err == nil {
			base = abs
		}
		if req.PreferBaseLocation {
			dirs = append([]string{base}, dirs...)
		} else {
			dirs = append(dirs, base)
		}
	}

	return dirs
}

// resolveFileDirectory interprets a relative directory as relative to the
// directory containing the library file. The substitution only happens when
// the combined path actually exists; otherwise the configured value is kept
// verbatim, as are absolute paths and everything else when the library has no
// file. A directory of "." stands for the library file's directory itself.
func resolveFileDirectory(directory, databaseFilePath string) string {
	if filepath.IsAbs(directory) || databaseFilePath == "" {
		return directory
	}
	base := filepath.Dir(databaseFilePath)
	candidate := base
	if directory != "." {
		candidate = filepath.Join(base, directory)
	}
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return directory
}

// FirstExistingDirectory returns the first member of dirs that exists on
// disk, skipping blank strings. It reports false when none exists.
func FirstExistingDirectory(dirs []string) (string, bool) {
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if _, err := os.Stat(dir); err == nil {
			return dir, true
		}
	}
	return "", false
}
