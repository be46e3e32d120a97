// Package project holds the unit of build configuration: a set of named
// profiles, a source provider and a registry of reversible commands with
// an undo/redo log.
package project

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"maps"
	"path/filepath"
	"slices"
	"sort"

	"github.com/phobologic/abuild/internal/discover"
	"github.com/phobologic/abuild/internal/lang"
	"github.com/phobologic/abuild/internal/profile"
)

// Defaults applied by New.
const (
	DefaultRoot      = "."
	DefaultSourceDir = "src"
	DefaultOutputDir = "target"
)

// Sources provides a project's source files.
type Sources interface {
	Sources() iter.Seq2[discover.Source, error]
}

// DirSources discovers sources under a directory.
type DirSources struct {
	Dir     string
	Options discover.Options
}

func (d DirSources) Sources() iter.Seq2[discover.Source, error] {
	return discover.Walk(d.Dir, d.Options).All()
}

// Binary is a named executable target built from an entry source.
type Binary struct {
	Name  string `yaml:"name" mapstructure:"name"`
	Entry string `yaml:"entry" mapstructure:"entry"` // relative to the project root
}

// Config describes a project. Zero fields take the documented defaults.
type Config struct {
	Name string

	// Root is the project directory. Default ".".
	Root string

	// SourceDir is where sources live, relative to Root. Default "src".
	SourceDir string

	// OutputDir receives build artefacts, relative to Root unless
	// absolute. Default "target".
	OutputDir string

	// StateDir holds stashes kept for undo/redo, relative to Root unless
	// absolute. Default "<OutputDir>/.abuild".
	StateDir string

	// Sources overrides the default DirSources{Root/SourceDir}.
	Sources Sources

	Commands []Command
	Profiles map[string]profile.Profile

	// Compilers maps a language name to the toolchain used for it.
	Compilers map[string]lang.CompilerInfo

	Binaries []Binary
	Logger   *slog.Logger
}

// Project is the unit of build/clean/run/rebuild. It is not safe for
// concurrent mutation; callers serialise RunCommand, Undo and Redo.
type Project struct {
	name      string
	root      string
	sourceDir string
	outputDir string
	stateDir  string
	sources   Sources
	compilers map[string]lang.CompilerInfo
	binaries  []Binary
	logger    *slog.Logger

	commands map[string]Command
	profiles map[string]profile.Profile
	log      *Log
}

// New builds a project from cfg.
func New(cfg Config) *Project {
	p := &Project{
		name:      cfg.Name,
		root:      cfg.Root,
		sourceDir: cfg.SourceDir,
		outputDir: cfg.OutputDir,
		stateDir:  cfg.StateDir,
		sources:   cfg.Sources,
		compilers: maps.Clone(cfg.Compilers),
		binaries:  slices.Clone(cfg.Binaries),
		logger:    cfg.Logger,
		commands:  make(map[string]Command),
		profiles:  make(map[string]profile.Profile),
		log:       NewLog(),
	}
	if p.root == "" {
		p.root = DefaultRoot
	}
	if p.sourceDir == "" {
		p.sourceDir = DefaultSourceDir
	}
	if p.outputDir == "" {
		p.outputDir = DefaultOutputDir
	}
	if p.stateDir == "" {
		p.stateDir = filepath.Join(p.outputDir, ".abuild")
	}
	if p.sources == nil {
		p.sources = DirSources{Dir: p.SourceDir()}
	}
	if p.compilers == nil {
		p.compilers = make(map[string]lang.CompilerInfo)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.name == "" {
		p.name = filepath.Base(p.root)
	}
	for _, c := range cfg.Commands {
		p.RegisterCommand(c)
	}
	for name, prof := range cfg.Profiles {
		p.RegisterProfile(name, prof)
	}
	return p
}

func (p *Project) Name() string { return p.name }

// Root returns the project directory.
func (p *Project) Root() string { return p.root }

// SourceDir returns the absolute-or-root-relative source directory.
func (p *Project) SourceDir() string { return p.join(p.sourceDir) }

// OutputDir returns the directory receiving build artefacts.
func (p *Project) OutputDir() string { return p.join(p.outputDir) }

// StateDir returns the directory holding undo/redo stashes.
func (p *Project) StateDir() string { return p.join(p.stateDir) }

func (p *Project) join(dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(p.root, dir)
}

func (p *Project) Logger() *slog.Logger { return p.logger }

// Binaries returns the declared executable targets.
func (p *Project) Binaries() []Binary { return slices.Clone(p.binaries) }

// Binary looks up a declared executable target by name.
func (p *Project) Binary(name string) (Binary, bool) {
	for _, b := range p.binaries {
		if b.Name == name {
			return b, true
		}
	}
	return Binary{}, false
}

// Compiler returns the toolchain configured for a language.
func (p *Project) Compiler(language string) (lang.CompilerInfo, bool) {
	c, ok := p.compilers[language]
	return c, ok
}

// Compilers returns a copy of the configured toolchains.
func (p *Project) Compilers() map[string]lang.CompilerInfo { return maps.Clone(p.compilers) }

// RegisterCommand adds cmd under its tag, replacing any previous command
// with the same tag.
func (p *Project) RegisterCommand(cmd Command) {
	p.commands[cmd.Tag()] = cmd
}

// Command looks up a registered command.
func (p *Project) Command(tag string) (Command, bool) {
	c, ok := p.commands[tag]
	return c, ok
}

// Commands returns the registered command tags, sorted.
func (p *Project) Commands() []string {
	return slices.Sorted(maps.Keys(p.commands))
}

// RegisterProfile adds prof under name, replacing any previous profile.
func (p *Project) RegisterProfile(name string, prof profile.Profile) {
	p.profiles[name] = prof
}

// UnregisterProfile removes a profile and returns it.
func (p *Project) UnregisterProfile(name string) (profile.Profile, bool) {
	prof, ok := p.profiles[name]
	if ok {
		delete(p.profiles, name)
	}
	return prof, ok
}

// Profile looks up a registered profile.
func (p *Project) Profile(name string) (profile.Profile, error) {
	prof, ok := p.profiles[name]
	if !ok {
		return nil, &Error{Kind: ErrUnknownProfile, Subject: name}
	}
	return prof, nil
}

// Profiles returns the registered profile names, sorted.
func (p *Project) Profiles() []string {
	return slices.Sorted(maps.Keys(p.profiles))
}

// Sources returns the project's source provider.
func (p *Project) Sources() Sources { return p.sources }

// Log returns the project's command log.
func (p *Project) Log() *Log { return p.log }

// RunCommand looks up the command registered under tag and executes it
// through the log.
func (p *Project) RunCommand(ctx context.Context, tag string, args []string) (Outcome, error) {
	cmd, ok := p.commands[tag]
	if !ok {
		return Outcome{}, &Error{Kind: ErrUnknownCommand, Subject: tag}
	}
	var out Outcome
	err := p.atomically(func() error {
		var err error
		out, err = p.log.Execute(ctx, p, cmd, args)
		return err
	})
	if err == nil {
		p.logger.Debug("command done", "project", p.name, "tag", tag, "id", out.ID)
	}
	return out, err
}

// Undo reverts the most recent operation.
func (p *Project) Undo(ctx context.Context) (Outcome, error) {
	var out Outcome
	err := p.atomically(func() error {
		var err error
		out, err = p.log.Undo(ctx, p)
		return err
	})
	return out, err
}

// Redo re-applies the most recently undone operation.
func (p *Project) Redo(ctx context.Context) (Outcome, error) {
	var out Outcome
	err := p.atomically(func() error {
		var err error
		out, err = p.log.Redo(ctx, p)
		return err
	})
	return out, err
}

// RestoreLog replaces the command log with s, binding each entry to the
// command registered under its tag.
func (p *Project) RestoreLog(s Snapshot) error {
	return p.log.restore(s, p.Command)
}

// atomically runs fn and rolls the command and profile registries back if
// it fails.
func (p *Project) atomically(fn func() error) error {
	commands := maps.Clone(p.commands)
	profiles := maps.Clone(p.profiles)
	if err := fn(); err != nil {
		p.commands, p.profiles = commands, profiles
		return err
	}
	return nil
}

// Resolution is the result of resolving every source under a profile.
type Resolution struct {
	Profile string
	Sources []discover.Source // sorted by path
	Errors  []error           // per-item discovery errors
}

// Resolve discovers the project's sources and resolves each one's compile
// options under the named profile. Discovery errors are collected rather
// than aborting; a cancelled ctx stops the walk.
func (p *Project) Resolve(ctx context.Context, profileName string) (Resolution, error) {
	prof, err := p.Profile(profileName)
	if err != nil {
		return Resolution{}, err
	}

	res := Resolution{Profile: profileName}
	for src, err := range p.sources.Sources() {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Resolution{}, ctxErr
		}
		if err != nil {
			res.Errors = append(res.Errors, err)
			continue
		}
		info := p.compilerFor(src.Type)
		src.Options = prof.Resolve(p.Relative(src.Path), info)
		res.Sources = append(res.Sources, src)
	}
	sort.Slice(res.Sources, func(i, j int) bool {
		return res.Sources[i].Path < res.Sources[j].Path
	})
	return res, nil
}

func (p *Project) compilerFor(ft lang.FileType) lang.CompilerInfo {
	if c, ok := p.compilers[ft.Language()]; ok {
		return c
	}
	return lang.CompilerInfo{Language: ft.Language()}
}

// Relative is the path profiles see for a source: relative to the source
// directory when the source lives under it, unchanged otherwise.
func (p *Project) Relative(path string) string {
	rel, err := filepath.Rel(p.SourceDir(), path)
	if err != nil || !filepath.IsLocal(rel) {
		return path
	}
	return rel
}

// DiscoveryErrors joins per-item discovery errors, or returns nil.
func DiscoveryErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%d discovery errors: %w", len(errs), errors.Join(errs...))
}
