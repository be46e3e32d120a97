package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"github.com/phobologic/abuild/internal/project"
)

var (
	// ErrNoBinary is returned by run when the build produced no binary.
	ErrNoBinary = errors.New("no binary to run")

	// ErrAmbiguousBinary is returned by run when several binaries were
	// built and none was chosen with --binary.
	ErrAmbiguousBinary = errors.New("several binaries, choose one with --binary")
)

// RunCache records the build behind a run and how the program exited.
type RunCache struct {
	Build    *BuildCache `yaml:"build"`
	Binary   string      `yaml:"binary"`
	ExitCode int         `yaml:"exit_code"`
}

func (*RunCache) Kind() string { return TagRun }

// Run builds a project and executes one of its binaries. Arguments:
// [--profile NAME] [--binary NAME] [--] [program args...]. A program that
// exits non-zero does not fail the command; its code is kept in the cache.
// Undo and redo act on the build only and never run the program again.
type Run struct {
	Build  *Build
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func (*Run) Tag() string { return TagRun }

func (r *Run) Do(ctx context.Context, p *project.Project, args []string) (project.Cache, error) {
	a, programArgs, err := parseBuildArgs(TagRun, args, false)
	if err != nil {
		return nil, err
	}

	built, err := r.Build.build(ctx, p, a)
	if err != nil {
		return nil, err
	}

	bin, err := pickBinary(built.Binaries, a.binary)
	if err == nil {
		var code int
		code, err = r.exec(ctx, p, bin, programArgs)
		if err == nil {
			return &RunCache{Build: built, Binary: bin.Name, ExitCode: code}, nil
		}
	}
	if rbErr := built.Stash.rollback(); rbErr != nil {
		p.Logger().Error("rolling back build", "project", p.Name(), "error", rbErr)
	}
	return nil, err
}

func pickBinary(built []Artifact, name string) (Artifact, error) {
	switch {
	case name != "":
		for _, b := range built {
			if b.Name == name {
				return b, nil
			}
		}
		return Artifact{}, fmt.Errorf("%w %q", ErrUnknownBinary, name)
	case len(built) == 0:
		return Artifact{}, ErrNoBinary
	case len(built) > 1:
		return Artifact{}, ErrAmbiguousBinary
	}
	return built[0], nil
}

func (r *Run) exec(ctx context.Context, p *project.Project, bin Artifact, args []string) (int, error) {
	cmd := exec.CommandContext(ctx, bin.Path, args...)
	cmd.Dir = p.Root()
	cmd.Stdin = r.Stdin
	cmd.Stdout = orStdout(r.Stdout)
	cmd.Stderr = orStderr(r.Stderr)

	p.Logger().Debug("running", "project", p.Name(), "binary", bin.Name, "args", args)
	err := cmd.Run()

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return 0, fmt.Errorf("run %s: %w", bin.Name, err)
	}
	return 0, nil
}

func (r *Run) Undo(ctx context.Context, p *project.Project, cache project.Cache, args []string) error {
	c, ok := cache.(*RunCache)
	if !ok {
		return ErrWrongCache
	}
	return r.Build.Undo(ctx, p, c.Build, args)
}

func (r *Run) Redo(ctx context.Context, p *project.Project, cache project.Cache, args []string) error {
	c, ok := cache.(*RunCache)
	if !ok {
		return ErrWrongCache
	}
	return r.Build.Redo(ctx, p, c.Build, args)
}
