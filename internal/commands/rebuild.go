package commands

import (
	"context"

	"github.com/phobologic/abuild/internal/project"
)

// RebuildCache chains the clean and build halves of a rebuild.
type RebuildCache struct {
	Clean *CleanCache `yaml:"clean"`
	Build *BuildCache `yaml:"build"`
}

func (*RebuildCache) Kind() string { return TagRebuild }

// Rebuild removes a profile's outputs and builds it from scratch. It takes
// the same arguments as Build.
type Rebuild struct {
	Build *Build
	Clean *Clean
}

func (*Rebuild) Tag() string { return TagRebuild }

func (r *Rebuild) Do(ctx context.Context, p *project.Project, args []string) (project.Cache, error) {
	a, _, err := parseBuildArgs(TagRebuild, args, true)
	if err != nil {
		return nil, err
	}

	cleaned, err := r.Clean.clean(ctx, p, a.profile)
	if err != nil {
		return nil, err
	}
	built, err := r.Build.build(ctx, p, a)
	if err != nil {
		if rbErr := cleaned.Stash.rollback(); rbErr != nil {
			p.Logger().Error("rolling back clean", "project", p.Name(), "error", rbErr)
		}
		return nil, err
	}
	return &RebuildCache{Clean: cleaned, Build: built}, nil
}

func (r *Rebuild) Undo(ctx context.Context, p *project.Project, cache project.Cache, args []string) error {
	c, ok := cache.(*RebuildCache)
	if !ok {
		return ErrWrongCache
	}
	if err := r.Build.Undo(ctx, p, c.Build, args); err != nil {
		return err
	}
	return r.Clean.Undo(ctx, p, c.Clean, args)
}

func (r *Rebuild) Redo(ctx context.Context, p *project.Project, cache project.Cache, args []string) error {
	c, ok := cache.(*RebuildCache)
	if !ok {
		return ErrWrongCache
	}
	if err := r.Clean.Redo(ctx, p, c.Clean, args); err != nil {
		return err
	}
	return r.Build.Redo(ctx, p, c.Build, args)
}
