package commands

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// StashDir is the directory under a project's state directory that holds
// stashes.
const StashDir = "stash"

// Stash moves a fixed set of paths aside so that a command's effect on
// them can be undone and redone without recomputing anything. A path's
// previous content lives in Dir/before/<i> and its content after the
// command in Dir/after/<i>, whichever is not currently in place.
// Created lists the parent directories of Paths that did not exist when
// the stash was made, deepest first.
type Stash struct {
	Dir     string   `yaml:"dir"`
	Paths   []string `yaml:"paths"`
	Before  []bool   `yaml:"before"`
	Created []string `yaml:"created,omitempty"`
}

// newStash moves every existing path into a fresh stash under stateDir.
// On error nothing has moved.
func newStash(stateDir string, paths []string) (*Stash, error) {
	s := &Stash{
		Dir:    filepath.Join(stateDir, StashDir, uuid.NewString()),
		Paths:  paths,
		Before: make([]bool, len(paths)),
	}
	for i, path := range paths {
		ok, err := exists(path)
		if err == nil && ok {
			err = move(path, s.slot("before", i))
		}
		if err != nil {
			s.putBack()
			return nil, err
		}
		if !ok {
			continue
		}
		s.Before[i] = true
	}
	created, err := missingDirs(paths)
	if err != nil {
		s.putBack()
		return nil, err
	}
	s.Created = created
	return s, nil
}

// missingDirs returns the parent directories of paths that do not exist,
// deepest first.
func missingDirs(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, path := range paths {
		for dir := filepath.Dir(path); !seen[dir]; dir = filepath.Dir(dir) {
			seen[dir] = true
			ok, err := exists(dir)
			if err != nil {
				return nil, err
			}
			if ok {
				break
			}
			out = append(out, dir)
		}
	}
	slices.SortFunc(out, func(a, b string) int {
		if c := cmp.Compare(depth(b), depth(a)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	return out, nil
}

func depth(path string) int { return strings.Count(path, string(filepath.Separator)) }

// removeCreated deletes the directories the stash recorded as new, as long
// as they are empty. Directories shared with other content stay.
func (s *Stash) removeCreated() {
	for _, dir := range s.Created {
		_ = os.Remove(dir)
	}
}

func (s *Stash) slot(side string, i int) string {
	return filepath.Join(s.Dir, side, strconv.Itoa(i))
}

// putBack returns the content moved so far by newStash.
func (s *Stash) putBack() {
	for i, path := range s.Paths {
		if s.Before[i] {
			_ = move(s.slot("before", i), path)
		}
	}
	_ = os.RemoveAll(s.Dir)
}

// rollback discards whatever now occupies the paths, puts the previous
// content back and deletes the stash.
func (s *Stash) rollback() error {
	var errs []error
	for i, path := range s.Paths {
		if err := os.RemoveAll(path); err != nil {
			errs = append(errs, err)
			continue
		}
		if s.Before[i] {
			if err := move(s.slot("before", i), path); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if len(errs) == 0 {
		errs = append(errs, os.RemoveAll(s.Dir))
	}
	s.removeCreated()
	return errors.Join(errs...)
}

// undo parks the current content in after/ and restores before/.
func (s *Stash) undo() error {
	if err := s.swap("after", "before"); err != nil {
		return err
	}
	s.removeCreated()
	return nil
}

// redo parks the current content in before/ and restores after/.
func (s *Stash) redo() error { return s.swap("before", "after") }

func (s *Stash) swap(park, restore string) error {
	for i, path := range s.Paths {
		if err := moveIfExists(path, s.slot(park, i)); err != nil {
			return err
		}
		if err := moveIfExists(s.slot(restore, i), path); err != nil {
			return err
		}
	}
	return nil
}

// Discard deletes the stash directory.
func (s *Stash) Discard() error {
	if s == nil {
		return nil
	}
	return os.RemoveAll(s.Dir)
}

// PruneStashes deletes every stash under stateDir whose directory is not
// in keep.
func PruneStashes(stateDir string, keep []string) error {
	root := filepath.Join(stateDir, StashDir)
	entries, err := os.ReadDir(root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("prune stashes: %w", err)
	}

	live := make(map[string]bool, len(keep))
	for _, k := range keep {
		live[filepath.Clean(k)] = true
	}
	var errs []error
	for _, e := range entries {
		dir := filepath.Join(root, e.Name())
		if !live[dir] {
			errs = append(errs, os.RemoveAll(dir))
		}
	}
	return errors.Join(errs...)
}

func exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	}
	return false, err
}

func move(from, to string) error {
	if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
		return err
	}
	return os.Rename(from, to)
}

func moveIfExists(from, to string) error {
	ok, err := exists(from)
	if err != nil || !ok {
		return err
	}
	if err := os.RemoveAll(to); err != nil {
		return err
	}
	return move(from, to)
}
