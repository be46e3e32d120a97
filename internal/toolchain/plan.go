package toolchain

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/phobologic/abuild/internal/discover"
	"github.com/phobologic/abuild/internal/lang"
	"github.com/phobologic/abuild/internal/model"
	"github.com/phobologic/abuild/internal/profile"
)

// Binary is an executable to link. Entry is the path of its entry source
// as discovery reports it.
type Binary struct {
	Name  string
	Entry string
}

// Layout places build outputs.
type Layout struct {
	SourceDir string
	// OutputDir is the per-profile output directory.
	OutputDir string
}

// ObjectDir holds object files, mirroring the source tree.
func (l Layout) ObjectDir() string { return filepath.Join(l.OutputDir, "obj") }

// BinDir holds linked binaries.
func (l Layout) BinDir() string { return filepath.Join(l.OutputDir, "bin") }

// Object returns the object file path for a source.
func (l Layout) Object(path string) string {
	rel, err := filepath.Rel(l.SourceDir, path)
	if err != nil || !filepath.IsLocal(rel) {
		flat := strings.ReplaceAll(strings.TrimLeft(filepath.ToSlash(path), "/"), "/", "_")
		rel = filepath.Join("_external", flat)
	}
	return filepath.Join(l.ObjectDir(), rel+".o")
}

// Plan is the ordered work of one build. Compile jobs are independent of
// each other; link jobs run after every compile job succeeded.
type Plan struct {
	Compile []Job
	Link    []Job
	Skipped []string

	sources map[string]discover.Source
	names   map[string]string
}

// Outputs lists every file the plan writes.
func (p *Plan) Outputs() []string {
	var out []string
	for _, j := range slices.Concat(p.Compile, p.Link) {
		out = append(out, j.Output)
	}
	return out
}

// Model converts the plan into its encodable form.
func (p *Plan) Model(project, profileName string) model.Plan {
	m := model.Plan{Project: project, Profile: profileName, Skipped: slices.Clone(p.Skipped)}
	for _, j := range p.Compile {
		m.Units = append(m.Units, model.Unit{
			Path:     j.Key,
			Type:     p.sources[j.Key].Type.String(),
			Compiler: j.Compiler.String(),
			Output:   j.Output,
			Args:     slices.Clone(j.Args),
		})
	}
	for _, j := range p.Link {
		m.Binaries = append(m.Binaries, model.Artifact{
			Name:     p.names[j.Key],
			Entry:    j.Key,
			Compiler: j.Compiler.String(),
			Output:   j.Output,
			Args:     slices.Clone(j.Args),
		})
	}
	return m
}

// DefaultEntries are the entry file names, relative to the source
// directory, that make a default binary when a project declares none.
var DefaultEntries = []string{"main.rs", "main.c", "main.cpp", "main.cc", "Program.cs"}

// DefaultBinary returns the binary a project builds when it declares none:
// the first default entry present among sources, named after the project.
func DefaultBinary(name, sourceDir string, sources []discover.Source) (Binary, bool) {
	for _, entry := range DefaultEntries {
		path := filepath.Join(sourceDir, entry)
		for _, src := range sources {
			if filepath.Clean(src.Path) == path {
				return Binary{Name: name, Entry: src.Path}, true
			}
		}
	}
	return Binary{}, false
}

// NewPlan builds the jobs for sources. Every C and C++ compilation unit
// becomes an object; each binary links them (C, C++), compiles the crate
// rooted at its entry (Rust), or compiles every C# source (C#).
func NewPlan(sources []discover.Source, compilers map[string]lang.CompilerInfo, binaries []Binary, layout Layout) (*Plan, error) {
	p := &Plan{
		sources: make(map[string]discover.Source, len(sources)),
		names:   make(map[string]string, len(binaries)),
	}
	for _, src := range sources {
		p.sources[src.Path] = src
	}

	entries := make(map[string]bool, len(binaries))
	for _, b := range binaries {
		entries[filepath.Clean(b.Entry)] = true
	}

	compilerFor := func(language string) (lang.CompilerInfo, error) {
		info, ok := compilers[language]
		if !ok || info.Executable() == "" {
			return lang.CompilerInfo{}, fmt.Errorf("%s: %w", language, ErrNoCompiler)
		}
		return info, nil
	}

	var objects []string
	cpp := false
	for _, src := range sources {
		switch src.Type {
		case lang.CSource, lang.CPPSource, lang.CPPModule:
		default:
			if !entries[filepath.Clean(src.Path)] {
				p.Skipped = append(p.Skipped, src.Path)
			}
			continue
		}
		info, err := compilerFor(src.Type.Language())
		if err != nil {
			return nil, err
		}
		obj := layout.Object(src.Path)
		args := Flags(info, src.Type, src.Options)
		args = append(args, "-c", src.Path, "-o", obj)
		p.Compile = append(p.Compile, Job{Key: src.Path, Compiler: info, Args: args, Output: obj})

		if !entries[filepath.Clean(src.Path)] {
			objects = append(objects, obj)
		}
		cpp = cpp || src.Type.Language() == lang.CPP
	}

	for _, b := range binaries {
		entry, ok := p.sources[filepath.Clean(b.Entry)]
		if !ok {
			return nil, fmt.Errorf("binary %s: entry %s: %w", b.Name, b.Entry, ErrNoEntry)
		}
		p.names[entry.Path] = b.Name
		out := filepath.Join(layout.BinDir(), b.Name)

		var job Job
		switch entry.Type.Language() {
		case lang.Rust:
			info, err := compilerFor(lang.Rust)
			if err != nil {
				return nil, err
			}
			args := Flags(info, entry.Type, entry.Options)
			args = append(args, "--crate-name", crateName(b.Name), "--crate-type", "bin", entry.Path, "-o", out)
			job = Job{Key: entry.Path, Compiler: info, Args: args, Output: out}

		case lang.CSharp:
			info, err := compilerFor(lang.CSharp)
			if err != nil {
				return nil, err
			}
			out += ".exe"
			args := Flags(info, entry.Type, entry.Options)
			args = append(args, "-nologo", "-out:"+out)
			for _, src := range sources {
				if src.Type == lang.CSharpSource {
					args = append(args, src.Path)
				}
			}
			job = Job{Key: entry.Path, Compiler: info, Args: args, Output: out}

		default:
			if entry.Type.IsHeader() {
				return nil, fmt.Errorf("binary %s: entry %s is a header: %w", b.Name, b.Entry, ErrNoEntry)
			}
			language := lang.C
			if cpp {
				language = lang.CPP
			}
			info, err := compilerFor(language)
			if err != nil {
				return nil, err
			}
			args := linkFlags(entry.Options)
			args = append(args, layout.Object(entry.Path))
			args = append(args, objects...)
			args = append(args, "-o", out)
			job = Job{Key: entry.Path, Compiler: info, Args: args, Output: out}
		}
		p.Link = append(p.Link, job)
	}

	slices.SortFunc(p.Compile, compareJobs)
	slices.SortFunc(p.Link, compareJobs)
	slices.Sort(p.Skipped)
	return p, nil
}

// linkFlags keeps the options that matter when linking objects.
func linkFlags(o profile.CompileOptions) []string {
	var out []string
	if o.LTO != nil && (*o.LTO == profile.LTOThin || *o.LTO == profile.LTOFat) {
		out = append(out, "-flto")
	}
	return append(out, o.Flags...)
}

func compareJobs(a, b Job) int { return strings.Compare(a.Key, b.Key) }

// crateName maps a binary name to a valid Rust crate name.
func crateName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return '_'
	}, name)
}
