// Package fileutil provides small file and path helpers.
package fileutil

import (
	"os"
	"strings"
)

// FileExists returns true if the path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// IsFilePath reports whether the string looks like a file path rather than
// a bare name: anything containing a path separator counts as a path.
func IsFilePath(s string) bool {
	return strings.ContainsAny(s, `/\`)
}

// HasExt reports whether path ends with the extension, compared
// case-insensitively. ext includes the dot, e.g. ".pdf".
func HasExt(path, ext string) bool {
	return len(path) >= len(ext) && strings.EqualFold(path[len(path)-len(ext):], ext)
}
