package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/phobologic/abuild/internal/discover"
	"github.com/phobologic/abuild/internal/model"
	"github.com/phobologic/abuild/internal/project"
	"github.com/phobologic/abuild/internal/toolchain"
)

var (
	// ErrUnknownBinary is returned when --binary names no declared binary.
	ErrUnknownBinary = errors.New("unknown binary")

	// ErrWrongCache is returned when a command is handed another command's
	// cache.
	ErrWrongCache = errors.New("cache belongs to another command")
)

// Artifact is a linked binary.
type Artifact struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// BuildCache records the files a build wrote and where their previous
// versions are kept.
type BuildCache struct {
	Profile  string     `yaml:"profile"`
	Binaries []Artifact `yaml:"binaries,omitempty"`
	Outputs  []string   `yaml:"outputs,omitempty"`
	Stash    *Stash     `yaml:"stash"`

	// Report describes the compiler invocations. It is not persisted.
	Report model.Report `yaml:"-"`
}

func (*BuildCache) Kind() string { return TagBuild }

// Build compiles a project's sources under a profile into
// <output>/<profile>. Arguments: [--profile NAME] [--binary NAME].
type Build struct {
	Runner *toolchain.Runner
}

func (*Build) Tag() string { return TagBuild }

type buildArgs struct {
	profile string
	binary  string
}

func parseBuildArgs(tag string, args []string, interspersed bool) (buildArgs, []string, error) {
	fs := pflag.NewFlagSet(tag, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SetInterspersed(interspersed)

	var a buildArgs
	fs.StringVarP(&a.profile, "profile", "p", DefaultProfile, "")
	fs.StringVarP(&a.binary, "binary", "b", "", "")
	if err := fs.Parse(args); err != nil {
		return a, nil, fmt.Errorf("%s: %w", tag, err)
	}
	return a, fs.Args(), nil
}

func (b *Build) Do(ctx context.Context, p *project.Project, args []string) (project.Cache, error) {
	a, _, err := parseBuildArgs(TagBuild, args, true)
	if err != nil {
		return nil, err
	}
	return b.build(ctx, p, a)
}

func (b *Build) build(ctx context.Context, p *project.Project, a buildArgs) (*BuildCache, error) {
	plan, err := Plan(ctx, p, a.profile, a.binary)
	if err != nil {
		return nil, err
	}

	stash, err := newStash(p.StateDir(), plan.Outputs())
	if err != nil {
		return nil, fmt.Errorf("stash previous outputs: %w", err)
	}

	runner := b.runner(p)
	report := model.Report{Project: p.Name(), Profile: a.profile}
	for _, stage := range [][]toolchain.Job{plan.Compile, plan.Link} {
		results, err := runner.Run(ctx, stage)
		report.Steps = append(report.Steps, steps(results)...)
		if err != nil {
			if rbErr := stash.rollback(); rbErr != nil {
				p.Logger().Error("rolling back build", "project", p.Name(), "error", rbErr)
			}
			return nil, err
		}
	}

	cache := &BuildCache{
		Profile: a.profile,
		Outputs: plan.Outputs(),
		Stash:   stash,
		Report:  report,
	}
	m := plan.Model(p.Name(), a.profile)
	for _, bin := range m.Binaries {
		cache.Binaries = append(cache.Binaries, Artifact{Name: bin.Name, Path: bin.Output})
	}
	p.Logger().Info("built", "project", p.Name(), "profile", a.profile,
		"units", len(plan.Compile), "binaries", len(plan.Link))
	return cache, nil
}

func (b *Build) runner(p *project.Project) *toolchain.Runner {
	if b.Runner != nil {
		return b.Runner
	}
	return &toolchain.Runner{Logger: p.Logger()}
}

func (b *Build) Undo(_ context.Context, _ *project.Project, cache project.Cache, _ []string) error {
	c, ok := cache.(*BuildCache)
	if !ok {
		return ErrWrongCache
	}
	return c.Stash.undo()
}

func (b *Build) Redo(_ context.Context, _ *project.Project, cache project.Cache, _ []string) error {
	c, ok := cache.(*BuildCache)
	if !ok {
		return ErrWrongCache
	}
	return c.Stash.redo()
}

func steps(results []toolchain.Result) []model.Step {
	out := make([]model.Step, 0, len(results))
	for _, r := range results {
		s := model.Step{Key: r.Job.Key, Output: r.Job.Output, Status: model.Compiled, Duration: r.Duration}
		if r.Err != nil {
			s.Status = model.Failed
		}
		out = append(out, s)
	}
	return out
}

// Layout returns where a profile's outputs go.
func Layout(p *project.Project, profileName string) toolchain.Layout {
	return toolchain.Layout{
		SourceDir: p.SourceDir(),
		OutputDir: filepath.Join(p.OutputDir(), profileName),
	}
}

// Plan resolves a project's sources under profileName and plans the
// compiler invocations. A non-empty binary restricts linking to that
// binary. Unknown file types are logged and skipped; other discovery
// errors fail the plan.
func Plan(ctx context.Context, p *project.Project, profileName, binary string) (*toolchain.Plan, error) {
	res, err := p.Resolve(ctx, profileName)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", toolchain.ErrCancelled, err)
		}
		return nil, err
	}

	var failures []error
	for _, err := range res.Errors {
		if discover.IsUnknownFileType(err) {
			p.Logger().Warn("skipping file", "project", p.Name(), "error", err)
			continue
		}
		failures = append(failures, err)
	}
	if err := project.DiscoveryErrors(failures); err != nil {
		return nil, err
	}

	bins, err := binaries(p, res.Sources, binary)
	if err != nil {
		return nil, err
	}
	return toolchain.NewPlan(res.Sources, p.Compilers(), bins, Layout(p, profileName))
}

func binaries(p *project.Project, sources []discover.Source, only string) ([]toolchain.Binary, error) {
	var bins []toolchain.Binary
	for _, b := range p.Binaries() {
		bins = append(bins, toolchain.Binary{Name: b.Name, Entry: filepath.Join(p.Root(), b.Entry)})
	}
	if len(bins) == 0 {
		if b, ok := toolchain.DefaultBinary(p.Name(), p.SourceDir(), sources); ok {
			bins = append(bins, b)
		}
	}
	if only == "" {
		return bins, nil
	}
	for _, b := range bins {
		if b.Name == only {
			return []toolchain.Binary{b}, nil
		}
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownBinary, only)
}
