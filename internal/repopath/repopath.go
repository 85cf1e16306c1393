// Package repopath implements path classification and normalization for
// repository paths. A repository path identifies a location inside a Depot
// repository ("libs-release/org/app/app-1.0.jar"); a trailing slash marks it
// as a directory, its absence marks it as a file. All functions are pure and
// never touch the filesystem or network.
package repopath

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Separator is the path separator used in repository paths. It is always a
// forward slash, independent of the local OS.
const Separator = "/"

// IsDirectory reports whether the path denotes a directory, i.e. carries a
// trailing separator.
func IsDirectory(path string) bool {
	return strings.HasSuffix(path, Separator)
}

// AsDirectory returns the path with exactly one trailing separator. Multiple
// trailing separators collapse into one. Idempotent. The empty path is
// returned unchanged.
func AsDirectory(path string) string {
	if path == "" {
		return path
	}

	return strings.TrimRight(path, Separator) + Separator
}

// BaseName returns the final segment of the path, ignoring any trailing
// separator. Used to preserve file names when relocating into a directory.
// Returns "" for the empty path and for paths consisting only of separators.
func BaseName(path string) string {
	trimmed := strings.TrimRight(path, Separator)
	if trimmed == "" {
		return ""
	}

	idx := strings.LastIndex(trimmed, Separator)

	return trimmed[idx+1:]
}

// Join concatenates a directory path and a child name with exactly one
// separator between them.
func Join(dir, name string) string {
	return AsDirectory(dir) + name
}

// Clean strips leading and trailing separators and applies Unicode NFC
// normalization. The server stores names in NFC; normalizing here keeps
// client-side comparisons (filters, base-name matching) consistent for
// names typed on macOS, which decomposes to NFD.
func Clean(path string) string {
	return norm.NFC.String(strings.Trim(path, Separator))
}
