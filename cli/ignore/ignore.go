// Package ignore maintains entries in line-based ignore files such as
// .gitignore and .npmignore.
package ignore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
)

// File is an ignore file held in memory.
type File struct {
	lines   []string
	changed bool
}

// Load reads the ignore file at p. A missing file loads as empty.
func Load(p string) (*File, error) {
	f := &File{}
	data, err := os.ReadFile(p) //nolint:gosec // project file
	if errors.Is(err, fs.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p, err)
	}

	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	content = strings.TrimSuffix(content, "\n")
	if content != "" {
		f.lines = strings.Split(content, "\n")
	}
	return f, nil
}

// Contains reports whether entry is present as a whole line.
func (f *File) Contains(entry string) bool {
	for _, l := range f.lines {
		if strings.TrimSpace(l) == entry {
			return true
		}
	}
	return false
}

// Ensure appends entry unless it is already present and reports whether the
// file changed.
func (f *File) Ensure(entry string) bool {
	if f.Contains(entry) {
		return false
	}
	f.lines = append(f.lines, entry)
	f.changed = true
	return true
}

// Changed reports whether Ensure added anything since Load.
func (f *File) Changed() bool { return f.changed }

// Bytes returns the file contents with a trailing newline.
func (f *File) Bytes() []byte {
	if len(f.lines) == 0 {
		return nil
	}
	return []byte(strings.Join(f.lines, "\n") + "\n")
}

// GitEntry is the .gitignore line that excludes the bundle directory.
func GitEntry(bundleDir string) string {
	return "/" + dirPattern(bundleDir)
}

// NpmEntry is the .npmignore line that re-includes the bundle directory so
// published packages ship the bundles.
func NpmEntry(bundleDir string) string {
	return "!/" + dirPattern(bundleDir)
}

func dirPattern(bundleDir string) string {
	p := path.Clean(strings.ReplaceAll(bundleDir, "\\", "/"))
	return strings.TrimPrefix(p, "/") + "/"
}
