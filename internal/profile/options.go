// Package profile models compile options and the profiles that resolve them
// per file and per compiler.
package profile

import (
	"fmt"
	"slices"
)

// OptLevel is an optimization level.
type OptLevel string

const (
	O0 OptLevel = "O0"
	O1 OptLevel = "O1"
	O2 OptLevel = "O2"
	O3 OptLevel = "O3"
	Os OptLevel = "Os"
	Oz OptLevel = "Oz"
)

// LTO selects a link-time optimization mode.
type LTO string

const (
	LTOOff   LTO = "off"
	LTOThin  LTO = "thin"
	LTOFat   LTO = "fat"
	LTOLocal LTO = "local" // thin LTO local to the crate
)

// DebugInfo is the amount of debug information to emit. Values other than
// the predefined ones are passed through as a custom level.
type DebugInfo string

const (
	DebugInfoNone    DebugInfo = "none"
	DebugInfoLimited DebugInfo = "limited"
	DebugInfoFull    DebugInfo = "full"
)

// IsCustom reports whether d is not one of the predefined levels.
func (d DebugInfo) IsCustom() bool {
	switch d {
	case DebugInfoNone, DebugInfoLimited, DebugInfoFull:
		return false
	}
	return true
}

// DebugAssertions is a tri-state; the zero value defers to the compiler.
type DebugAssertions string

const (
	DebugAssertionsDefault DebugAssertions = ""
	DebugAssertionsOn      DebugAssertions = "on"
	DebugAssertionsOff     DebugAssertions = "off"
)

// Kind is the compile profile kind.
type Kind string

const (
	KindDebug   Kind = "debug"
	KindRelease Kind = "release"
)

// IsCustom reports whether k names a custom profile.
func (k Kind) IsCustom() bool {
	return k != KindDebug && k != KindRelease
}

// CompileOptions is a resolved option set. Nil fields defer to the
// toolchain default. Flags are appended after every derived flag.
type CompileOptions struct {
	OptLevel        *OptLevel        `yaml:"opt_level,omitempty" mapstructure:"opt_level"`
	LTO             *LTO             `yaml:"lto,omitempty" mapstructure:"lto"`
	DebugInfo       *DebugInfo       `yaml:"debug_info,omitempty" mapstructure:"debug_info"`
	DebugAssertions *DebugAssertions `yaml:"debug_assertions,omitempty" mapstructure:"debug_assertions"`
	OverflowChecks  *bool            `yaml:"overflow_checks,omitempty" mapstructure:"overflow_checks"`
	Profile         *Kind            `yaml:"profile,omitempty" mapstructure:"profile"`
	Flags           []string         `yaml:"flags,omitempty" mapstructure:"flags"`
}

// Default returns the Dev preset.
func Default() CompileOptions {
	return DevOptions()
}

// DevOptions returns the Dev preset: a debug profile with everything else
// left to the toolchain.
func DevOptions() CompileOptions {
	return CompileOptions{Profile: Ptr(KindDebug)}
}

// ReleaseOptions returns the Release preset.
func ReleaseOptions() CompileOptions {
	return CompileOptions{Profile: Ptr(KindRelease)}
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// Merge returns o with every field set in over replacing the corresponding
// field of o. Flags from over are appended.
func (o CompileOptions) Merge(over CompileOptions) CompileOptions {
	out := o.Clone()
	if over.OptLevel != nil {
		out.OptLevel = Ptr(*over.OptLevel)
	}
	if over.LTO != nil {
		out.LTO = Ptr(*over.LTO)
	}
	if over.DebugInfo != nil {
		out.DebugInfo = Ptr(*over.DebugInfo)
	}
	if over.DebugAssertions != nil {
		out.DebugAssertions = Ptr(*over.DebugAssertions)
	}
	if over.OverflowChecks != nil {
		out.OverflowChecks = Ptr(*over.OverflowChecks)
	}
	if over.Profile != nil {
		out.Profile = Ptr(*over.Profile)
	}
	out.Flags = append(out.Flags, over.Flags...)
	return out
}

// Clone returns a deep copy of o.
func (o CompileOptions) Clone() CompileOptions {
	out := CompileOptions{Flags: slices.Clone(o.Flags)}
	if o.OptLevel != nil {
		out.OptLevel = Ptr(*o.OptLevel)
	}
	if o.LTO != nil {
		out.LTO = Ptr(*o.LTO)
	}
	if o.DebugInfo != nil {
		out.DebugInfo = Ptr(*o.DebugInfo)
	}
	if o.DebugAssertions != nil {
		out.DebugAssertions = Ptr(*o.DebugAssertions)
	}
	if o.OverflowChecks != nil {
		out.OverflowChecks = Ptr(*o.OverflowChecks)
	}
	if o.Profile != nil {
		out.Profile = Ptr(*o.Profile)
	}
	return out
}

// Equal reports whether o and other describe the same options.
func (o CompileOptions) Equal(other CompileOptions) bool {
	return eqPtr(o.OptLevel, other.OptLevel) &&
		eqPtr(o.LTO, other.LTO) &&
		eqPtr(o.DebugInfo, other.DebugInfo) &&
		eqPtr(o.DebugAssertions, other.DebugAssertions) &&
		eqPtr(o.OverflowChecks, other.OverflowChecks) &&
		eqPtr(o.Profile, other.Profile) &&
		slices.Equal(o.Flags, other.Flags)
}

func eqPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Validate checks that every set field holds a known value.
func (o CompileOptions) Validate() error {
	if o.OptLevel != nil {
		switch *o.OptLevel {
		case O0, O1, O2, O3, Os, Oz:
		default:
			return fmt.Errorf("invalid opt_level %q", *o.OptLevel)
		}
	}
	if o.LTO != nil {
		switch *o.LTO {
		case LTOOff, LTOThin, LTOFat, LTOLocal:
		default:
			return fmt.Errorf("invalid lto %q", *o.LTO)
		}
	}
	if o.DebugInfo != nil && *o.DebugInfo == "" {
		return fmt.Errorf("debug_info must not be empty")
	}
	if o.DebugAssertions != nil {
		switch *o.DebugAssertions {
		case DebugAssertionsDefault, DebugAssertionsOn, DebugAssertionsOff:
		default:
			return fmt.Errorf("invalid debug_assertions %q", *o.DebugAssertions)
		}
	}
	if o.Profile != nil && *o.Profile == "" {
		return fmt.Errorf("profile must not be empty")
	}
	return nil
}

// ProfileKind returns the profile kind, defaulting to debug.
func (o CompileOptions) ProfileKind() Kind {
	if o.Profile == nil {
		return KindDebug
	}
	return *o.Profile
}
