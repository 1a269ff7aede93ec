// Package filelink reads and writes the "file" field microformat. A field
// value holds one or more links, separated by semicolons; each link is a
// colon-separated triple of description, path, and file type. Backslash
// escapes separators inside any part.
package filelink

import (
	"os"
	"path/filepath"
	"strings"
)

// LinkedFile is one link stored in an entry's "file" field.
type LinkedFile struct {
	// Description is free text shown for the link.
	Description string
	// Path is the file location, absolute or relative to one of the
	// library's file directories.
	Path string
	// Type names the file type, e.g. "PDF".
	Type string
}

// Parse splits a "file" field value into its links. Malformed input never
// fails: missing parts stay empty, a bare path becomes a link with only the
// path set, and empty links are dropped.
func Parse(value string) []LinkedFile {
	var links []LinkedFile
	for _, chunk := range splitEscaped(value, ';') {
		rawParts := splitEscaped(chunk, ':')
		parts := make([]string, len(rawParts))
		for i, part := range rawParts {
			parts[i] = unescape(part)
		}

		link := LinkedFile{}
		switch len(parts) {
		case 0:
			continue
		case 1:
			link.Path = parts[0]
		case 2:
			link.Description = parts[0]
			link.Path = parts[1]
		default:
			link.Description = parts[0]
			link.Path = parts[1]
			link.Type = parts[2]
		}
		if link.Description == "" && link.Path == "" && link.Type == "" {
			continue
		}
		links = append(links, link)
	}
	return links
}

// Render writes links back into the field format. Each link is written as a
// full description:path:type triple so that parsing is unambiguous.
func Render(links []LinkedFile) string {
	rendered := make([]string, len(links))
	for i, link := range links {
		rendered[i] = escape(link.Description) + ":" + escape(link.Path) + ":" + escape(link.Type)
	}
	return strings.Join(rendered, ";")
}

// Locate finds the link's file on disk. Absolute paths are checked directly;
// relative paths are tried against each directory in order. It reports false
// when the file exists nowhere.
func Locate(link LinkedFile, dirs []string) (string, bool) {
	if link.Path == "" {
		return "", false
	}
	if filepath.IsAbs(link.Path) {
		if _, err := os.Stat(link.Path); err == nil {
			return link.Path, true
		}
		return "", false
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, link.Path)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}
	return "", false
}

// splitEscaped splits s on unescaped occurrences of sep. Escape sequences
// are kept intact in the returned parts; unescape resolves them once the
// innermost split is done.
func splitEscaped(s string, sep byte) []string {
	if s == "" {
		return nil
	}
	var parts []string
	var current strings.Builder
	escaped := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case escaped:
			current.WriteByte(ch)
			escaped = false
		case ch == '\\':
			current.WriteByte(ch)
			escaped = true
		case ch == sep:
			parts = append(parts, current.String())
			current.Reset()
		default:
			current.WriteByte(ch)
		}
	}
	parts = append(parts, current.String())
	return parts
}

// unescape resolves backslash escapes.
func unescape(s string) string {
	if !strings.Contains(s, "\\") {
		return s
	}
	var b strings.Builder
	escaped := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if escaped {
			b.WriteByte(ch)
			escaped = false
			continue
		}
		if ch == '\\' {
			escaped = true
			continue
		}
		b.WriteByte(ch)
	}
	if escaped {
		b.WriteByte('\\')
	}
	return b.String()
}

func escape(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch == '\\' || ch == ':' || ch == ';' {
			b.WriteByte('\\')
		}
		b.WriteByte(ch)
	}
	return b.String()
}
