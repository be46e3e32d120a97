// Package discover finds and classifies the source files of a project.
package discover

import (
	"errors"
	"io/fs"
	"iter"
	"os"
	"path/filepath"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/phobologic/abuild/internal/lang"
	"github.com/phobologic/abuild/internal/profile"
)

// IgnoreFile is the name of the optional exclude file read by LoadIgnore.
const IgnoreFile = ".abuildignore"

// Source is one classified, discovered file.
type Source struct {
	Path    string
	Type    lang.FileType
	Options profile.CompileOptions
}

// Options configures a walk.
type Options struct {
	// Exclude skips entries whose root-relative path matches. Excluded
	// directories are not descended into.
	Exclude *ignore.GitIgnore

	// Base is the directory Exclude patterns are relative to. Default: the
	// walk root.
	Base string
}

// LoadIgnore compiles dir/.abuildignore. It returns nil if the file does
// not exist.
func LoadIgnore(dir string) (*ignore.GitIgnore, error) {
	path := filepath.Join(dir, IgnoreFile)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil, &IOError{Op: "read ignore file", Path: path, Err: err}
	}
	return gi, nil
}

// entry is a pending work-list item.
type entry struct {
	path string
	dir  fs.DirEntry
}

// Walker lazily walks a directory tree. Each call to Next performs at most
// the I/O needed to produce one item. A Walker is single-pass and not safe
// for concurrent use.
type Walker struct {
	root    string
	opts    Options
	started bool
	pending []entry

	// visited holds the real paths of yielded files and read directories.
	// links holds the symlinks already followed, by their own path.
	visited map[string]struct{}
	links   map[string]struct{}
}

// Walk returns a walker over root. No I/O happens until the first Next.
func Walk(root string, opts Options) *Walker {
	return &Walker{
		root:    root,
		opts:    opts,
		visited: make(map[string]struct{}),
		links:   make(map[string]struct{}),
	}
}

// Next returns the next source. Per-item failures are returned as
// *IOError or *UnknownFileTypeError and the walk may be continued by
// calling Next again. Done is returned once the walk is exhausted.
func (w *Walker) Next() (Source, error) {
	if !w.started {
		w.started = true
		w.markVisited(w.root)
		if err := w.readDir(w.root); err != nil {
			return Source{}, err
		}
	}

	for len(w.pending) > 0 {
		e := w.pending[len(w.pending)-1]
		w.pending = w.pending[:len(w.pending)-1]

		if w.excluded(e.path, e.dir.IsDir()) {
			continue
		}

		info, err := e.dir.Info()
		if err != nil {
			return Source{}, &IOError{Op: "stat", Path: e.path, Err: err}
		}

		src, ok, err := w.visit(e.path, info.Mode())
		if err != nil {
			return Source{}, err
		}
		if ok {
			return src, nil
		}
	}
	return Source{}, Done
}

// All adapts the walker to a range-over-func sequence. Iteration stops
// when the walk is exhausted or the consumer breaks out of the loop.
func (w *Walker) All() iter.Seq2[Source, error] {
	return func(yield func(Source, error) bool) {
		for {
			src, err := w.Next()
			if errors.Is(err, Done) {
				return
			}
			if !yield(src, err) {
				return
			}
		}
	}
}

// visit handles one entry whose mode is known. It returns a source for
// regular files, pushes directory children, and follows symlinks. Files
// and directories are deduplicated by real path, so a tree reached again
// through a link is not walked twice.
func (w *Walker) visit(path string, mode fs.FileMode) (Source, bool, error) {
	for {
		switch {
		case mode.IsRegular():
			if !w.markVisited(path) {
				return Source{}, false, nil
			}
			src, err := classify(path)
			return src, err == nil, err

		case mode.IsDir():
			if !w.markVisited(path) {
				return Source{}, false, nil
			}
			return Source{}, false, w.readDir(path)

		case mode&fs.ModeSymlink != 0:
			key := absKey(path)
			if _, ok := w.links[key]; ok {
				return Source{}, false, nil
			}
			w.links[key] = struct{}{}

			target, err := os.Readlink(path)
			if err != nil {
				return Source{}, false, &IOError{Op: "readlink", Path: path, Err: err}
			}
			if !filepath.IsAbs(target) {
				target = filepath.Join(filepath.Dir(path), target)
			}
			target = filepath.Clean(target)

			info, err := os.Lstat(target)
			if err != nil {
				return Source{}, false, &IOError{Op: "lstat", Path: target, Err: err}
			}
			path, mode = target, info.Mode()

		default:
			return Source{}, false, &IOError{Op: "walk", Path: path, Err: ErrUnsupportedEntry}
		}
	}
}

func (w *Walker) readDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return &IOError{Op: "read dir", Path: dir, Err: err}
	}
	for _, d := range entries {
		w.pending = append(w.pending, entry{path: filepath.Join(dir, d.Name()), dir: d})
	}
	return nil
}

func (w *Walker) excluded(path string, isDir bool) bool {
	if w.opts.Exclude == nil {
		return false
	}
	base := w.opts.Base
	if base == "" {
		base = w.root
	}
	rel, err := filepath.Rel(base, path)
	if err != nil || !filepath.IsLocal(rel) {
		return false
	}
	rel = filepath.ToSlash(rel)
	if w.opts.Exclude.MatchesPath(rel) {
		return true
	}
	return isDir && w.opts.Exclude.MatchesPath(rel+"/")
}

// markVisited records the real path of path and reports whether it was
// new.
func (w *Walker) markVisited(path string) bool {
	key := realKey(path)
	if _, ok := w.visited[key]; ok {
		return false
	}
	w.visited[key] = struct{}{}
	return true
}

// realKey resolves every symlink in path. Paths that cannot be resolved
// fall back to their cleaned absolute form.
func realKey(path string) string {
	abs := absKey(path)
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real
	}
	return abs
}

func absKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

func classify(path string) (Source, error) {
	ft, ok := lang.Classify(path)
	if !ok {
		return Source{}, &UnknownFileTypeError{Path: path, Hint: lang.Hint(path)}
	}
	return Source{Path: path, Type: ft, Options: profile.Default()}, nil
}

// Collect drains a walk, returning the sources and per-item errors
// separately.
func Collect(w *Walker) ([]Source, []error) {
	var (
		sources []Source
		errs    []error
	)
	for src, err := range w.All() {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		sources = append(sources, src)
	}
	return sources, errs
}
