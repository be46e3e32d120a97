// Package model defines the build plan and build report records shared by
// the toolchain, the commands and the plan encoder.
package model

import (
	"path/filepath"
	"time"
)

// Unit is one source file compiled on its own into an object file.
type Unit struct {
	Path     string
	Type     string
	Compiler string
	Output   string
	Args     []string
}

// Artifact is a binary produced from an entry source.
type Artifact struct {
	Name     string
	Entry    string
	Compiler string
	Output   string
	Args     []string
}

// Plan is the resolved set of compiler invocations for one project and
// profile.
type Plan struct {
	Project  string
	Profile  string
	Units    []Unit
	Binaries []Artifact
	// Skipped lists sources that take part in the build without their own
	// invocation: headers, and Rust or C# files compiled through an entry.
	Skipped []string
}

// RelativeTo returns a copy of p with paths under root made relative to
// it. Paths outside root and compiler arguments are kept as they are.
func (p Plan) RelativeTo(root string) Plan {
	rel := func(path string) string {
		r, err := filepath.Rel(root, path)
		if err != nil || !filepath.IsLocal(r) {
			return path
		}
		return filepath.ToSlash(r)
	}

	out := Plan{Project: p.Project, Profile: p.Profile}
	for _, u := range p.Units {
		u.Path, u.Output = rel(u.Path), rel(u.Output)
		out.Units = append(out.Units, u)
	}
	for _, b := range p.Binaries {
		b.Entry, b.Output = rel(b.Entry), rel(b.Output)
		out.Binaries = append(out.Binaries, b)
	}
	for _, path := range p.Skipped {
		out.Skipped = append(out.Skipped, rel(path))
	}
	return out
}

// Status is the outcome of one compiler invocation.
type Status string

const (
	Compiled Status = "ok"
	Failed   Status = "failed"
)

// Step is one finished compiler invocation.
type Step struct {
	Key      string
	Output   string
	Status   Status
	Duration time.Duration
}

// Report summarises a finished build.
type Report struct {
	Project string
	Profile string
	Steps   []Step
}
