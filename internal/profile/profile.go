package profile

import (
	"github.com/phobologic/abuild/internal/lang"
)

// Profile resolves the compile options for one file under one compiler.
// Implementations must be deterministic and free of side effects so that
// callers may cache results and call Resolve from several goroutines.
type Profile interface {
	Resolve(path string, info lang.CompilerInfo) CompileOptions
}

// Specced is implemented by profiles that can be persisted as a Spec.
type Specced interface {
	Spec() Spec
}

// Dev is the built-in development preset.
type Dev struct{}

func (Dev) Resolve(string, lang.CompilerInfo) CompileOptions { return DevOptions() }

func (Dev) Spec() Spec { return Spec{Base: BaseDev} }

// Release is the built-in release preset.
type Release struct{}

func (Release) Resolve(string, lang.CompilerInfo) CompileOptions { return ReleaseOptions() }

func (Release) Spec() Spec { return Spec{Base: BaseRelease} }

// Func adapts an ordinary function to the Profile interface.
type Func func(path string, info lang.CompilerInfo) CompileOptions

func (f Func) Resolve(path string, info lang.CompilerInfo) CompileOptions {
	return f(path, info)
}

// Preset returns the built-in profile for name ("dev", "debug" or
// "release").
func Preset(name string) (Profile, bool) {
	switch name {
	case BaseDev, string(KindDebug):
		return Dev{}, true
	case BaseRelease:
		return Release{}, true
	}
	return nil, false
}
