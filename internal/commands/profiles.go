package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"

	"github.com/phobologic/abuild/internal/profile"
	"github.com/phobologic/abuild/internal/project"
)

var (
	// ErrProfileExists is returned when creating a profile whose name is taken.
	ErrProfileExists = errors.New("profile already exists")

	// ErrBuiltinProfile is returned when removing the debug or release
	// profile, which every project registers on open.
	ErrBuiltinProfile = errors.New("built-in profile cannot be removed")

	// ErrProfileName is returned for profile names that are empty or not
	// lowercase. Stored profiles are looked up by their exact name.
	ErrProfileName = errors.New("profile names must be lowercase")
)

// CreateProfileCache holds the created profile's definition.
type CreateProfileCache struct {
	Name string       `yaml:"name"`
	Spec profile.Spec `yaml:"spec"`
}

func (*CreateProfileCache) Kind() string { return TagCreateProfile }

// CreateProfile registers a rules profile. Arguments: NAME [--base NAME]
// [--opt-level L] [--lto L] [--debug-info D] [--debug-assertions on|off]
// [--overflow-checks=BOOL] [--flag F]...
type CreateProfile struct{}

func (*CreateProfile) Tag() string { return TagCreateProfile }

// ParseProfileArgs turns create-profile arguments into a name and spec.
func ParseProfileArgs(args []string) (string, profile.Spec, error) {
	fs := pflag.NewFlagSet(TagCreateProfile, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var spec profile.Spec
	var optLevel, lto, debugInfo, debugAssertions string
	var overflow bool
	fs.StringVar(&spec.Base, "base", profile.BaseDev, "")
	fs.StringVar(&optLevel, "opt-level", "", "")
	fs.StringVar(&lto, "lto", "", "")
	fs.StringVar(&debugInfo, "debug-info", "", "")
	fs.StringVar(&debugAssertions, "debug-assertions", "", "")
	fs.BoolVar(&overflow, "overflow-checks", false, "")
	fs.StringArrayVar(&spec.Options.Flags, "flag", nil, "")
	if err := fs.Parse(args); err != nil {
		return "", profile.Spec{}, fmt.Errorf("%s: %w", TagCreateProfile, err)
	}
	if fs.NArg() != 1 {
		return "", profile.Spec{}, fmt.Errorf("%s: expected one profile name, got %d", TagCreateProfile, fs.NArg())
	}
	name := fs.Arg(0)
	if name == "" || name != strings.ToLower(name) {
		return "", profile.Spec{}, fmt.Errorf("%s: %w: %q", TagCreateProfile, ErrProfileName, name)
	}

	o := &spec.Options
	if optLevel != "" {
		o.OptLevel = profile.Ptr(profile.OptLevel(optLevel))
	}
	if lto != "" {
		o.LTO = profile.Ptr(profile.LTO(lto))
	}
	if debugInfo != "" {
		o.DebugInfo = profile.Ptr(profile.DebugInfo(debugInfo))
	}
	if debugAssertions != "" {
		o.DebugAssertions = profile.Ptr(profile.DebugAssertions(debugAssertions))
	}
	if fs.Changed("overflow-checks") {
		o.OverflowChecks = profile.Ptr(overflow)
	}
	return name, spec, nil
}

func (*CreateProfile) Do(_ context.Context, p *project.Project, args []string) (project.Cache, error) {
	name, spec, err := ParseProfileArgs(args)
	if err != nil {
		return nil, err
	}
	if _, err := p.Profile(name); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrProfileExists, name)
	}
	prof, err := profile.FromSpec(spec)
	if err != nil {
		return nil, err
	}
	p.RegisterProfile(name, prof)
	return &CreateProfileCache{Name: name, Spec: spec}, nil
}

func (*CreateProfile) Undo(_ context.Context, p *project.Project, cache project.Cache, _ []string) error {
	c, ok := cache.(*CreateProfileCache)
	if !ok {
		return ErrWrongCache
	}
	p.UnregisterProfile(c.Name)
	return nil
}

func (*CreateProfile) Redo(_ context.Context, p *project.Project, cache project.Cache, _ []string) error {
	c, ok := cache.(*CreateProfileCache)
	if !ok {
		return ErrWrongCache
	}
	prof, err := profile.FromSpec(c.Spec)
	if err != nil {
		return err
	}
	p.RegisterProfile(c.Name, prof)
	return nil
}

// RemoveProfileCache keeps a removed profile so it can be put back.
// Profiles without a Spec survive undo only within the process that
// removed them.
type RemoveProfileCache struct {
	Name    string       `yaml:"name"`
	Spec    profile.Spec `yaml:"spec"`
	HasSpec bool         `yaml:"has_spec"`

	removed profile.Profile
}

func (*RemoveProfileCache) Kind() string { return TagRemoveProfile }

// RemoveProfile unregisters a profile. Arguments: NAME.
type RemoveProfile struct{}

func (*RemoveProfile) Tag() string { return TagRemoveProfile }

func (*RemoveProfile) Do(_ context.Context, p *project.Project, args []string) (project.Cache, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("%s: expected one profile name, got %d", TagRemoveProfile, len(args))
	}
	name := args[0]
	if name == DefaultProfile || name == ReleaseProfile {
		return nil, fmt.Errorf("%w: %s", ErrBuiltinProfile, name)
	}
	prof, err := p.Profile(name)
	if err != nil {
		return nil, err
	}
	spec, hasSpec := profile.SpecOf(prof)
	p.UnregisterProfile(name)
	return &RemoveProfileCache{Name: name, Spec: spec, HasSpec: hasSpec, removed: prof}, nil
}

func (*RemoveProfile) Undo(_ context.Context, p *project.Project, cache project.Cache, _ []string) error {
	c, ok := cache.(*RemoveProfileCache)
	if !ok {
		return ErrWrongCache
	}
	prof := c.removed
	if prof == nil {
		if !c.HasSpec {
			return fmt.Errorf("profile %s has no stored definition", c.Name)
		}
		var err error
		if prof, err = profile.FromSpec(c.Spec); err != nil {
			return err
		}
	}
	p.RegisterProfile(c.Name, prof)
	return nil
}

func (*RemoveProfile) Redo(_ context.Context, p *project.Project, cache project.Cache, _ []string) error {
	c, ok := cache.(*RemoveProfileCache)
	if !ok {
		return ErrWrongCache
	}
	if prof, ok := p.UnregisterProfile(c.Name); ok {
		c.removed = prof
	}
	return nil
}
