// Package commands implements the reversible project commands: build,
// clean, rebuild, run, and profile creation and removal.
package commands

import (
	"io"
	"os"

	"github.com/phobologic/abuild/internal/project"
	"github.com/phobologic/abuild/internal/toolchain"
)

// Command tags.
const (
	TagBuild         = "build"
	TagClean         = "clean"
	TagRebuild       = "rebuild"
	TagRun           = "run"
	TagCreateProfile = "create-profile"
	TagRemoveProfile = "remove-profile"
)

// Built-in profiles. DefaultProfile is used when a command is not given
// one.
const (
	DefaultProfile = "debug"
	ReleaseProfile = "release"
)

// Options configures the commands returned by All.
type Options struct {
	// Runner compiles build jobs. Nil means a default runner logging to
	// the project's logger.
	Runner *toolchain.Runner

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// All returns every command, ready to register on a project.
func All(opts Options) []project.Command {
	build := &Build{Runner: opts.Runner}
	return []project.Command{
		build,
		&Clean{},
		&Rebuild{Build: build, Clean: &Clean{}},
		&Run{Build: build, Stdin: opts.Stdin, Stdout: opts.Stdout, Stderr: opts.Stderr},
		&CreateProfile{},
		&RemoveProfile{},
	}
}

// NewCache returns an empty cache for kind, for decoding persisted logs.
func NewCache(kind string) (project.Cache, bool) {
	switch kind {
	case TagBuild:
		return &BuildCache{}, true
	case TagClean:
		return &CleanCache{}, true
	case TagRebuild:
		return &RebuildCache{}, true
	case TagRun:
		return &RunCache{}, true
	case TagCreateProfile:
		return &CreateProfileCache{}, true
	case TagRemoveProfile:
		return &RemoveProfileCache{}, true
	}
	return nil, false
}

// Stashes lists the stash directories a cache still refers to.
func Stashes(c project.Cache) []string {
	switch c := c.(type) {
	case *BuildCache:
		if c.Stash != nil {
			return []string{c.Stash.Dir}
		}
	case *CleanCache:
		if c.Stash != nil {
			return []string{c.Stash.Dir}
		}
	case *RebuildCache:
		var out []string
		if c.Clean != nil {
			out = append(out, Stashes(c.Clean)...)
		}
		if c.Build != nil {
			out = append(out, Stashes(c.Build)...)
		}
		return out
	case *RunCache:
		if c.Build != nil {
			return Stashes(c.Build)
		}
	}
	return nil
}

func orStdout(w io.Writer) io.Writer {
	if w != nil {
		return w
	}
	return os.Stdout
}

func orStderr(w io.Writer) io.Writer {
	if w != nil {
		return w
	}
	return os.Stderr
}
