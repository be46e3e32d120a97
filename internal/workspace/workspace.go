// Package workspace manages an abuild workspace: the abuild.yaml file, the
// projects it lists, their persisted profiles and command history.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/phobologic/abuild/internal/graph"
	"github.com/phobologic/abuild/internal/lang"
	"github.com/phobologic/abuild/internal/profile"
	"github.com/phobologic/abuild/internal/project"
)

const (
	// FileName is the workspace file at the workspace root.
	FileName = "abuild.yaml"

	// StateDirName holds history, stashes and trash.
	StateDirName = ".abuild"

	// EnvPrefix prefixes environment overrides, e.g. ABUILD_JOBS.
	EnvPrefix = "ABUILD"

	// DefaultOutputDir is the default output_dir.
	DefaultOutputDir = "target"
)

// File is the content of abuild.yaml.
type File struct {
	Name      string          `yaml:"name" mapstructure:"name"`
	OutputDir string          `yaml:"output_dir,omitempty" mapstructure:"output_dir"`
	Jobs      int             `yaml:"jobs,omitempty" mapstructure:"jobs"`
	Projects  []ProjectConfig `yaml:"projects" mapstructure:"projects"`
}

// ProjectConfig is one entry of File.Projects.
type ProjectConfig struct {
	Name      string                       `yaml:"name" mapstructure:"name"`
	Path      string                       `yaml:"path" mapstructure:"path"`
	SourceDir string                       `yaml:"source_dir,omitempty" mapstructure:"source_dir"`
	DependsOn []string                     `yaml:"depends_on,omitempty" mapstructure:"depends_on"`
	Binaries  []project.Binary             `yaml:"binaries,omitempty" mapstructure:"binaries"`
	Compilers map[string]lang.CompilerInfo `yaml:"compilers,omitempty" mapstructure:"compilers"`
	Profiles  map[string]profile.Spec      `yaml:"profiles,omitempty" mapstructure:"profiles"`
}

// Validate checks names, paths, compilers and dependencies.
func (f *File) Validate() error {
	seen := make(map[string]bool, len(f.Projects))
	for _, pc := range f.Projects {
		if err := validName(pc.Name); err != nil {
			return err
		}
		if seen[pc.Name] {
			return fmt.Errorf("project %q: %w", pc.Name, ErrProjectExists)
		}
		seen[pc.Name] = true
		if !filepath.IsLocal(filepath.FromSlash(pc.Path)) && pc.Path != "." {
			return fmt.Errorf("project %q: path %q must stay inside the workspace", pc.Name, pc.Path)
		}
		for language := range pc.Compilers {
			if _, err := lang.Lookup(language); err != nil {
				return fmt.Errorf("project %q: %w", pc.Name, err)
			}
		}
	}
	if f.Jobs < 0 {
		return fmt.Errorf("jobs must be >= 0, got %d", f.Jobs)
	}
	_, err := f.graph()
	return err
}

func (f *File) graph() (*graph.Graph, error) {
	nodes := make([]graph.Node, 0, len(f.Projects))
	for _, pc := range f.Projects {
		nodes = append(nodes, graph.Node{Name: pc.Name, DependsOn: pc.DependsOn})
	}
	g, err := graph.Build(nodes)
	if errors.Is(err, graph.ErrUnknown) {
		return nil, fmt.Errorf("%w: %w", ErrUnknownProject, err)
	}
	return g, err
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid project name %q", name)
	}
	return nil
}

// Workspace is a loaded workspace.
type Workspace struct {
	Root string

	// File is abuild.yaml as written. Environment overrides are kept in
	// the effective settings below and never reach Save.
	File File

	path      string
	name      string
	outputDir string
	jobs      int
}

// settings are the scalar values of abuild.yaml after defaults and
// environment overrides.
type settings struct {
	Name      string `mapstructure:"name"`
	OutputDir string `mapstructure:"output_dir"`
	Jobs      int    `mapstructure:"jobs"`
}

// Load reads the workspace at root. configFile, if set, replaces
// <root>/abuild.yaml. Environment variables prefixed ABUILD_ override the
// name, output_dir and jobs settings for this process only.
func Load(root, configFile string) (*Workspace, error) {
	path := configFile
	if path == "" {
		path = filepath.Join(root, FileName)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	_ = v.BindEnv("name")
	_ = v.BindEnv("output_dir")
	_ = v.BindEnv("jobs")

	v.SetDefault("output_dir", DefaultOutputDir)
	v.SetDefault("jobs", 0)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", root, ErrNotWorkspace)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var eff settings
	if err := v.Unmarshal(&eff); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if eff.Jobs < 0 {
		return nil, fmt.Errorf("invalid workspace %s: jobs must be >= 0, got %d", path, eff.Jobs)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	w := &Workspace{
		Root:      absOr(root),
		path:      path,
		name:      eff.Name,
		outputDir: eff.OutputDir,
		jobs:      eff.Jobs,
	}
	if err := yaml.Unmarshal(data, &w.File); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := w.File.Validate(); err != nil {
		return nil, fmt.Errorf("invalid workspace %s: %w", path, err)
	}
	return w, nil
}

// Save writes the workspace file.
func (w *Workspace) Save() error {
	data, err := yaml.Marshal(&w.File)
	if err != nil {
		return fmt.Errorf("encode workspace: %w", err)
	}
	return writeFileAtomic(w.path, data)
}

// Path returns the workspace file path.
func (w *Workspace) Path() string { return w.path }

// StateDir returns <root>/.abuild.
func (w *Workspace) StateDir() string { return filepath.Join(w.Root, StateDirName) }

// Name returns the effective workspace name. An unnamed workspace takes
// the base name of its root.
func (w *Workspace) Name() string {
	switch {
	case w.name != "":
		return w.name
	case w.File.Name != "":
		return w.File.Name
	}
	return filepath.Base(w.Root)
}

// Jobs returns the effective default parallelism. Zero means one job per
// CPU.
func (w *Workspace) Jobs() int {
	if w.jobs != 0 {
		return w.jobs
	}
	return w.File.Jobs
}

// OutputDir returns the effective workspace output directory.
func (w *Workspace) OutputDir() string {
	out := w.outputDir
	if out == "" {
		out = w.File.OutputDir
	}
	if out == "" {
		out = DefaultOutputDir
	}
	if filepath.IsAbs(out) {
		return out
	}
	return filepath.Join(w.Root, out)
}

// Init creates a workspace in dir, which must be empty or absent. An empty
// name means the directory's base name.
func Init(dir, name string) (*Workspace, error) {
	if err := requireEmpty(dir); err != nil {
		return nil, err
	}
	if name == "" {
		name = filepath.Base(absOr(dir))
	}
	w := &Workspace{
		Root: absOr(dir),
		File: File{Name: name, OutputDir: DefaultOutputDir, Projects: []ProjectConfig{}},
		path: filepath.Join(dir, FileName),
	}
	if err := os.MkdirAll(w.StateDir(), 0o755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	if err := w.Save(); err != nil {
		return nil, err
	}
	if err := UpdateGitignore(dir, w.File.OutputDir); err != nil {
		return nil, err
	}
	return w, nil
}

// Remove unregisters the workspace at dir: it deletes the workspace file,
// the state and output directories, and the managed .gitignore section.
// Project sources are left in place.
func Remove(dir string) error {
	w, err := Load(dir, "")
	if err != nil {
		return err
	}
	for _, path := range []string{w.OutputDir(), w.StateDir(), w.path} {
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("remove workspace: %w", err)
		}
	}
	return RemoveGitignoreSection(dir)
}

// Project returns the named project's configuration.
func (w *Workspace) Project(name string) (ProjectConfig, error) {
	i := w.index(name)
	if i < 0 {
		return ProjectConfig{}, fmt.Errorf("%w %q", ErrUnknownProject, name)
	}
	return w.File.Projects[i], nil
}

func (w *Workspace) index(name string) int {
	return slices.IndexFunc(w.File.Projects, func(pc ProjectConfig) bool { return pc.Name == name })
}

// Names returns the project names in file order.
func (w *Workspace) Names() []string {
	out := make([]string, 0, len(w.File.Projects))
	for _, pc := range w.File.Projects {
		out = append(out, pc.Name)
	}
	return out
}

// BuildOrder returns every project with dependencies first.
func (w *Workspace) BuildOrder() ([]string, error) {
	g, err := w.File.graph()
	if err != nil {
		return nil, err
	}
	return g.Order()
}

// Select picks a project: the named one, else the only one, else the one
// whose directory contains cwd.
func (w *Workspace) Select(name, cwd string) (ProjectConfig, error) {
	if name != "" {
		return w.Project(name)
	}
	if len(w.File.Projects) == 1 {
		return w.File.Projects[0], nil
	}
	if cwd != "" {
		abs := absOr(cwd)
		for _, pc := range w.File.Projects {
			rel, err := filepath.Rel(absOr(w.ProjectDir(pc)), abs)
			if err == nil && (rel == "." || filepath.IsLocal(rel)) {
				return pc, nil
			}
		}
	}
	return ProjectConfig{}, fmt.Errorf("%w: name one with --project", ErrNoProject)
}

// ProjectDir returns the directory of a project.
func (w *Workspace) ProjectDir(pc ProjectConfig) string {
	return filepath.Join(w.Root, filepath.FromSlash(pc.Path))
}

func requireEmpty(dir string) error {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		return fmt.Errorf("%s: %w", dir, ErrNotEmpty)
	}
	return nil
}

func absOr(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
