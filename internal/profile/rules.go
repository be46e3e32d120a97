package profile

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"

	"github.com/phobologic/abuild/internal/lang"
)

// Base presets understood by Spec.Base.
const (
	BaseDev     = "dev"
	BaseRelease = "release"
)

// Spec is the persisted description of a Rules profile.
type Spec struct {
	// Base is "dev", "release", or the name of a custom profile kind.
	// Empty means "dev".
	Base string `yaml:"base,omitempty" mapstructure:"base"`

	// Options apply to every file.
	Options CompileOptions `yaml:"options,omitempty" mapstructure:"options"`

	// Languages holds per-language overrides keyed by language name.
	Languages map[string]CompileOptions `yaml:"languages,omitempty" mapstructure:"languages"`

	// Files holds glob-scoped overrides applied in order.
	Files []FileRule `yaml:"files,omitempty" mapstructure:"files"`
}

// FileRule overrides options for files whose project-relative path matches
// Match.
type FileRule struct {
	Match   string         `yaml:"match" mapstructure:"match"`
	Options CompileOptions `yaml:"options" mapstructure:"options"`
}

// baseOptions returns the preset options for a Spec base.
func baseOptions(base string) CompileOptions {
	switch base {
	case "", BaseDev, string(KindDebug):
		return DevOptions()
	case BaseRelease:
		return ReleaseOptions()
	}
	return CompileOptions{Profile: Ptr(Kind(base))}
}

// compiledRule holds both the pattern string and compiled globs.
type compiledRule struct {
	pattern string
	globs   []glob.Glob
	options CompileOptions
}

func (r *compiledRule) match(path string) bool {
	for _, g := range r.globs {
		if g.Match(path) {
			return true
		}
	}
	return false
}

// Rules is a user-defined profile built from a Spec.
type Rules struct {
	spec  Spec
	base  CompileOptions
	rules []compiledRule
}

// NewRules validates spec and compiles its file patterns.
func NewRules(spec Spec) (*Rules, error) {
	if err := spec.Options.Validate(); err != nil {
		return nil, fmt.Errorf("options: %w", err)
	}
	for name, o := range spec.Languages {
		if _, err := lang.Lookup(name); err != nil {
			return nil, err
		}
		if err := o.Validate(); err != nil {
			return nil, fmt.Errorf("languages.%s: %w", name, err)
		}
	}

	r := &Rules{
		spec: spec,
		base: baseOptions(spec.Base).Merge(spec.Options),
	}
	for i, fr := range spec.Files {
		if err := fr.Options.Validate(); err != nil {
			return nil, fmt.Errorf("files[%d]: %w", i, err)
		}
		g, err := glob.Compile(fr.Match, '/')
		if err != nil {
			return nil, fmt.Errorf("files[%d]: compiling %q: %w", i, fr.Match, err)
		}
		cr := compiledRule{pattern: fr.Match, globs: []glob.Glob{g}, options: fr.Options}

		// "**/*.rs" should match root-level files too.
		if trimmed, ok := strings.CutPrefix(fr.Match, "**/"); ok {
			if tg, err := glob.Compile(trimmed, '/'); err == nil {
				cr.globs = append(cr.globs, tg)
			}
		}
		r.rules = append(r.rules, cr)
	}
	return r, nil
}

// Resolve applies the base preset, the common options, the language
// overrides and then every matching file rule in order.
func (r *Rules) Resolve(path string, info lang.CompilerInfo) CompileOptions {
	out := r.base.Clone()
	if o, ok := r.spec.Languages[info.Language]; ok {
		out = out.Merge(o)
	}
	rel := filepath.ToSlash(filepath.Clean(path))
	for i := range r.rules {
		if r.rules[i].match(rel) {
			out = out.Merge(r.rules[i].options)
		}
	}
	return out
}

// Spec returns the spec the profile was built from.
func (r *Rules) Spec() Spec {
	return r.spec
}

// FromSpec builds a profile from a persisted spec. Plain presets come back
// as Dev or Release so that they round-trip unchanged.
func FromSpec(spec Spec) (Profile, error) {
	plain := spec.Options.Equal(CompileOptions{}) && len(spec.Languages) == 0 && len(spec.Files) == 0
	if plain {
		switch spec.Base {
		case "", BaseDev:
			return Dev{}, nil
		case BaseRelease:
			return Release{}, nil
		}
	}
	return NewRules(spec)
}

// SpecOf returns the persisted form of p, looking through Cached wrappers.
func SpecOf(p Profile) (Spec, bool) {
	for {
		switch v := p.(type) {
		case Specced:
			return v.Spec(), true
		case *Cached:
			p = v.Unwrap()
		default:
			return Spec{}, false
		}
	}
}
