package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/google/uuid"

	"github.com/phobologic/abuild/internal/discover"
	"github.com/phobologic/abuild/internal/lang"
	"github.com/phobologic/abuild/internal/profile"
	"github.com/phobologic/abuild/internal/project"
)

// Built-in profile names registered on every project.
const (
	ProfileDebug   = "debug"
	ProfileRelease = "release"
)

// CreateProject adds a project in a new directory, which must be empty or
// absent, and creates its source directory. An empty path means name.
func (w *Workspace) CreateProject(name, path string) (ProjectConfig, error) {
	pc, err := w.newProject(name, path)
	if err != nil {
		return ProjectConfig{}, err
	}
	dir := w.ProjectDir(pc)
	if err := requireEmpty(dir); err != nil {
		return ProjectConfig{}, err
	}
	if err := os.MkdirAll(filepath.Join(dir, project.DefaultSourceDir), 0o755); err != nil {
		return ProjectConfig{}, fmt.Errorf("create project: %w", err)
	}
	return pc, w.addProject(pc)
}

// InitProject adds an existing directory as a project.
func (w *Workspace) InitProject(name, path string) (ProjectConfig, error) {
	pc, err := w.newProject(name, path)
	if err != nil {
		return ProjectConfig{}, err
	}
	if err := os.MkdirAll(w.ProjectDir(pc), 0o755); err != nil {
		return ProjectConfig{}, fmt.Errorf("init project: %w", err)
	}
	return pc, w.addProject(pc)
}

func (w *Workspace) newProject(name, path string) (ProjectConfig, error) {
	if err := validName(name); err != nil {
		return ProjectConfig{}, err
	}
	if w.index(name) >= 0 {
		return ProjectConfig{}, fmt.Errorf("%w: %s", ErrProjectExists, name)
	}
	if path == "" {
		path = name
	}
	path = filepath.ToSlash(filepath.Clean(path))
	if path != "." && !filepath.IsLocal(filepath.FromSlash(path)) {
		return ProjectConfig{}, fmt.Errorf("project path %q must stay inside the workspace", path)
	}
	return ProjectConfig{Name: name, Path: path}, nil
}

func (w *Workspace) addProject(pc ProjectConfig) error {
	w.File.Projects = append(w.File.Projects, pc)
	if err := w.Save(); err != nil {
		w.File.Projects = w.File.Projects[:len(w.File.Projects)-1]
		return err
	}
	return nil
}

// RemoveProject drops a project from the workspace. Its directory is moved
// to the workspace trash rather than deleted, and its history is removed.
// It returns the trash location.
func (w *Workspace) RemoveProject(name string) (string, error) {
	i := w.index(name)
	if i < 0 {
		return "", fmt.Errorf("%w %q", ErrUnknownProject, name)
	}
	g, err := w.File.graph()
	if err != nil {
		return "", err
	}
	if deps := g.Dependents(name); len(deps) > 0 {
		return "", fmt.Errorf("%s: %w: %v", name, ErrHasDependents, deps)
	}

	pc := w.File.Projects[i]
	trash := filepath.Join(w.StateDir(), "trash", uuid.NewString(), pc.Name)
	dir := w.ProjectDir(pc)
	if pc.Path != "." {
		if _, err := os.Lstat(dir); err == nil {
			if err := os.MkdirAll(filepath.Dir(trash), 0o755); err != nil {
				return "", err
			}
			if err := os.Rename(dir, trash); err != nil {
				return "", fmt.Errorf("remove project: %w", err)
			}
		}
	}

	w.File.Projects = slices.Delete(w.File.Projects, i, i+1)
	if err := w.Save(); err != nil {
		return "", err
	}
	for _, path := range []string{w.journalPath(name), w.projectStateDir(name), filepath.Join(w.OutputDir(), name)} {
		if err := os.RemoveAll(path); err != nil {
			return trash, err
		}
	}
	return trash, nil
}

func (w *Workspace) projectStateDir(name string) string {
	return filepath.Join(w.StateDir(), "projects", name)
}

// OpenOptions configures Open.
type OpenOptions struct {
	Commands []project.Command
	Logger   *slog.Logger

	// Probe finds a compiler for a language the project does not pin. Nil
	// disables probing.
	Probe func(ctx context.Context, language string) (lang.CompilerInfo, error)

	// CacheSize bounds each rules profile's resolution cache. Zero means
	// profile.DefaultCacheSize.
	CacheSize int
}

// Open builds the named project with the built-in profiles, the
// workspace's stored profiles, the given commands, and its persisted
// command history.
func (w *Workspace) Open(ctx context.Context, name string, opts OpenOptions) (*project.Project, error) {
	pc, err := w.Project(name)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	profiles, err := buildProfiles(pc.Profiles, opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", name, err)
	}

	root := w.ProjectDir(pc)
	sourceDir := pc.SourceDir
	if sourceDir == "" {
		sourceDir = project.DefaultSourceDir
	}
	exclude, err := discover.LoadIgnore(root)
	if err != nil {
		return nil, err
	}

	p := project.New(project.Config{
		Name:      pc.Name,
		Root:      root,
		SourceDir: sourceDir,
		OutputDir: filepath.Join(w.OutputDir(), pc.Name),
		StateDir:  w.projectStateDir(pc.Name),
		Sources: project.DirSources{
			Dir:     filepath.Join(root, sourceDir),
			Options: discover.Options{Exclude: exclude, Base: root},
		},
		Commands:  opts.Commands,
		Profiles:  profiles,
		Compilers: w.compilers(ctx, pc, opts.Probe, logger),
		Binaries:  pc.Binaries,
		Logger:    logger,
	})
	return p, nil
}

func buildProfiles(specs map[string]profile.Spec, cacheSize int) (map[string]profile.Profile, error) {
	if cacheSize <= 0 {
		cacheSize = profile.DefaultCacheSize
	}
	out := map[string]profile.Profile{
		ProfileDebug:   profile.Dev{},
		ProfileRelease: profile.Release{},
	}
	for _, name := range slices.Sorted(maps.Keys(specs)) {
		prof, err := profile.FromSpec(specs[name])
		if err != nil {
			return nil, fmt.Errorf("profile %s: %w", name, err)
		}
		if _, ok := prof.(*profile.Rules); ok {
			if prof, err = profile.NewCached(prof, cacheSize); err != nil {
				return nil, err
			}
		}
		out[name] = prof
	}
	return out, nil
}

func (w *Workspace) compilers(ctx context.Context, pc ProjectConfig, probe func(context.Context, string) (lang.CompilerInfo, error), logger *slog.Logger) map[string]lang.CompilerInfo {
	out := make(map[string]lang.CompilerInfo, len(lang.Languages))
	for language, info := range pc.Compilers {
		if info.Language == "" {
			info.Language = language
		}
		out[language] = info
	}
	if probe == nil {
		return out
	}
	for _, language := range slices.Sorted(maps.Keys(lang.Languages)) {
		if _, ok := out[language]; ok {
			continue
		}
		info, err := probe(ctx, language)
		if err != nil {
			logger.Debug("no compiler", "language", language, "error", err)
			continue
		}
		out[language] = info
	}
	return out
}

// SyncProfiles stores the project's profiles in the workspace file. The
// built-in presets under their own names are not stored, nor are profiles
// with no serialisable form.
func (w *Workspace) SyncProfiles(p *project.Project) error {
	i := w.index(p.Name())
	if i < 0 {
		return fmt.Errorf("%w %q", ErrUnknownProject, p.Name())
	}

	specs := make(map[string]profile.Spec)
	for _, name := range p.Profiles() {
		prof, err := p.Profile(name)
		if err != nil {
			return err
		}
		if builtin(name, prof) {
			continue
		}
		spec, ok := profile.SpecOf(prof)
		if !ok {
			p.Logger().Warn("profile not saved: no stored form", "project", p.Name(), "profile", name)
			continue
		}
		specs[name] = spec
	}
	if len(specs) == 0 {
		specs = nil
	}
	w.File.Projects[i].Profiles = specs
	return w.Save()
}

func builtin(name string, prof profile.Profile) bool {
	switch prof.(type) {
	case profile.Dev:
		return name == ProfileDebug
	case profile.Release:
		return name == ProfileRelease
	}
	return false
}
