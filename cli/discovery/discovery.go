// Package discovery finds handler entrypoints in a project source tree.
package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Discoverer produces the ordered set of files below root whose names end
// with extension.
type Discoverer interface {
	Discover(root, extension string) ([]string, error)
}

// Walker discovers entrypoints by walking the file system. Returned paths are
// relative to the project directory and use the platform separator.
type Walker struct {
	dir      string
	patterns []string
	exclude  []glob.Glob
	logger   zerolog.Logger
}

// Option configures a Walker.
type Option func(*Walker)

// WithLogger sets the walker's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(w *Walker) { w.logger = l }
}

// New creates a Walker rooted at projectDir. exclude holds glob patterns
// matched against forward-slash paths relative to projectDir; a directory
// is tested with a trailing slash so "**/node_modules/**" prunes the whole
// subtree.
func New(projectDir string, exclude []string, opts ...Option) (*Walker, error) {
	w := &Walker{
		dir:      projectDir,
		patterns: exclude,
		logger:   log.Logger,
	}
	for _, pattern := range exclude {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
		w.exclude = append(w.exclude, g)
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Discover walks root (relative to the project directory) and returns every
// regular file ending in extension, sorted lexically by forward-slash path.
// A missing root yields an empty result.
func (w *Walker) Discover(root, extension string) ([]string, error) {
	start := filepath.Join(w.dir, root)

	info, err := os.Stat(start)
	if errors.Is(err, fs.ErrNotExist) {
		w.logger.Debug().Str("root", root).Msg("Source root does not exist, nothing to discover")
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat source root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source root %s is not a directory", root)
	}

	found := []string{}
	err = filepath.WalkDir(start, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(w.dir, p)
		if err != nil {
			return err
		}
		slashed := filepath.ToSlash(rel)

		if d.IsDir() {
			if p != start && w.excluded(slashed+"/") {
				w.logger.Debug().Str("dir", slashed).Msg("Skipping excluded directory")
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() && d.Type()&fs.ModeSymlink == 0 {
			return nil
		}
		if !strings.HasSuffix(d.Name(), extension) {
			return nil
		}
		if w.excluded(slashed) {
			w.logger.Debug().Str("file", slashed).Msg("Skipping excluded file")
			return nil
		}

		found = append(found, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	sort.Slice(found, func(i, j int) bool {
		return filepath.ToSlash(found[i]) < filepath.ToSlash(found[j])
	})

	w.logger.Debug().
		Str("root", root).
		Str("extension", extension).
		Int("count", len(found)).
		Msg("Discovered entrypoints")

	return found, nil
}

// excluded reports whether p matches an exclude pattern. Patterns are also
// tried against "/"+p so a leading "**/" matches top-level entries.
func (w *Walker) excluded(p string) bool {
	for _, g := range w.exclude {
		if g.Match(p) || g.Match("/"+p) {
			return true
		}
	}
	return false
}
