package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/phobologic/abuild/internal/project"
)

// CleanCache holds the removed outputs.
type CleanCache struct {
	Stash *Stash `yaml:"stash"`
}

func (*CleanCache) Kind() string { return TagClean }

// Clean removes build outputs. With --profile NAME only that profile's
// directory goes; otherwise everything in the output directory except the
// state directory.
type Clean struct{}

func (*Clean) Tag() string { return TagClean }

func (c *Clean) Do(ctx context.Context, p *project.Project, args []string) (project.Cache, error) {
	fs := pflag.NewFlagSet(TagClean, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	profileName := fs.StringP("profile", "p", "", "")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%s: %w", TagClean, err)
	}
	return c.clean(ctx, p, *profileName)
}

func (c *Clean) clean(ctx context.Context, p *project.Project, profileName string) (*CleanCache, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	targets, err := cleanTargets(p, profileName)
	if err != nil {
		return nil, err
	}
	stash, err := newStash(p.StateDir(), targets)
	if err != nil {
		return nil, fmt.Errorf("clean: %w", err)
	}
	p.Logger().Info("cleaned", "project", p.Name(), "paths", len(targets))
	return &CleanCache{Stash: stash}, nil
}

func cleanTargets(p *project.Project, profileName string) ([]string, error) {
	out := p.OutputDir()
	if profileName != "" {
		target := filepath.Join(out, profileName)
		if rel, err := filepath.Rel(target, p.StateDir()); err == nil && (rel == "." || filepath.IsLocal(rel)) {
			return nil, fmt.Errorf("clean: profile directory %s holds the state directory", target)
		}
		return []string{target}, nil
	}

	entries, err := os.ReadDir(out)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("clean: %w", err)
	}

	keep := ""
	if rel, err := filepath.Rel(out, p.StateDir()); err == nil && filepath.IsLocal(rel) {
		keep, _, _ = strings.Cut(filepath.ToSlash(rel), "/")
	}
	var targets []string
	for _, e := range entries {
		if e.Name() == keep {
			continue
		}
		targets = append(targets, filepath.Join(out, e.Name()))
	}
	return targets, nil
}

func (*Clean) Undo(_ context.Context, _ *project.Project, cache project.Cache, _ []string) error {
	c, ok := cache.(*CleanCache)
	if !ok {
		return ErrWrongCache
	}
	return c.Stash.undo()
}

func (*Clean) Redo(_ context.Context, _ *project.Project, cache project.Cache, _ []string) error {
	c, ok := cache.(*CleanCache)
	if !ok {
		return ErrWrongCache
	}
	return c.Stash.redo()
}
