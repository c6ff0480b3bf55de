package project

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/akedrou/textdiff"
	"github.com/rs/zerolog"

	"github.com/fluxbase-eu/lambdagen/cli/bundler"
	"github.com/fluxbase-eu/lambdagen/cli/ignore"
)

// File is one file the plan wants on disk.
type File struct {
	// Path is relative to the project directory.
	Path    string
	Content []byte
}

// Change describes a file whose content on disk differs from the plan.
type Change struct {
	Path string `json:"path" yaml:"path"`
	Diff string `json:"diff" yaml:"diff"`
	New  bool   `json:"new" yaml:"new"`
}

// Writer renders a plan into files and writes them below the project
// directory.
type Writer struct {
	dir    string
	logger zerolog.Logger
}

// NewWriter returns a writer rooted at the project directory.
func NewWriter(dir string, opts ...Option) *Writer {
	o := newOptions(opts)
	return &Writer{dir: dir, logger: o.logger}
}

// Render produces the content of every construct file and of every ignore
// file that needs a new entry. Nothing is written.
func (w *Writer) Render(plan *Plan) ([]File, error) {
	var files []File
	for _, b := range plan.Bundles {
		content, err := b.Construct.Render()
		if err != nil {
			return nil, err
		}
		files = append(files, File{Path: b.Construct.File, Content: content})
	}

	loaded := make(map[string]*ignore.File)
	var order []string
	for _, e := range plan.Ignores {
		f, ok := loaded[e.File]
		if !ok {
			var err error
			f, err = ignore.Load(w.path(e.File))
			if err != nil {
				return nil, err
			}
			loaded[e.File] = f
			order = append(order, e.File)
		}
		f.Ensure(e.Entry)
	}
	for _, name := range order {
		if f := loaded[name]; f.Changed() {
			files = append(files, File{Path: name, Content: f.Bytes()})
		}
	}

	return files, nil
}

// Check compares files with the disk and returns a unified diff for every
// file that is missing or stale.
func (w *Writer) Check(files []File) ([]Change, error) {
	var changes []Change
	for _, f := range files {
		current, exists, err := w.read(f.Path)
		if err != nil {
			return nil, err
		}
		if exists && bytes.Equal(current, f.Content) {
			continue
		}
		label := bundler.ToPortablePath(f.Path)
		changes = append(changes, Change{
			Path: label,
			Diff: textdiff.Unified("a/"+label, "b/"+label, string(current), string(f.Content)),
			New:  !exists,
		})
	}
	return changes, nil
}

// Apply writes every file whose content differs from the disk and returns
// the paths written.
func (w *Writer) Apply(files []File) ([]string, error) {
	var written []string
	for _, f := range files {
		current, exists, err := w.read(f.Path)
		if err != nil {
			return written, err
		}
		if exists && bytes.Equal(current, f.Content) {
			w.logger.Debug().Str("file", f.Path).Msg("Generated file is up to date")
			continue
		}

		full := w.path(f.Path)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return written, fmt.Errorf("failed to create directory for %s: %w", f.Path, err)
		}
		if err := os.WriteFile(full, f.Content, 0o644); err != nil { //nolint:gosec // generated source, checked in
			return written, fmt.Errorf("failed to write %s: %w", f.Path, err)
		}
		w.logger.Debug().Str("file", f.Path).Msg("Wrote generated file")
		written = append(written, bundler.ToPortablePath(f.Path))
	}
	return written, nil
}

func (w *Writer) read(p string) ([]byte, bool, error) {
	data, err := os.ReadFile(w.path(p)) //nolint:gosec // path from the plan
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", p, err)
	}
	return data, true, nil
}

func (w *Writer) path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(w.dir, p)
}
