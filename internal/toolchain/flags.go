// Package toolchain turns resolved compile options into compiler
// invocations and runs them.
package toolchain

import (
	"strings"

	"github.com/phobologic/abuild/internal/lang"
	"github.com/phobologic/abuild/internal/profile"
)

// Flags maps semantic compile options to command-line flags for the
// compiler described by info. Options the toolchain does not support are
// omitted. The escape-hatch flags always come last.
func Flags(info lang.CompilerInfo, ft lang.FileType, o profile.CompileOptions) []string {
	language := info.Language
	if language == "" {
		language = ft.Language()
	}

	var out []string
	switch language {
	case lang.Rust:
		out = rustFlags(o)
	case lang.C, lang.CPP:
		out = ccFlags(info, ft, o)
	case lang.CSharp:
		out = csharpFlags(o)
	}
	return append(out, o.Flags...)
}

var rustOptLevels = map[profile.OptLevel]string{
	profile.O0: "0",
	profile.O1: "1",
	profile.O2: "2",
	profile.O3: "3",
	profile.Os: "s",
	profile.Oz: "z",
}

var rustDebugInfo = map[profile.DebugInfo]string{
	profile.DebugInfoNone:    "0",
	profile.DebugInfoLimited: "1",
	profile.DebugInfoFull:    "2",
}

var rustLTO = map[profile.LTO]string{
	profile.LTOOff:   "off",
	profile.LTOThin:  "thin",
	profile.LTOFat:   "true",
	profile.LTOLocal: "false",
}

func rustFlags(o profile.CompileOptions) []string {
	var out []string
	codegen := func(kv string) { out = append(out, "-C", kv) }

	kind := o.ProfileKind()
	switch {
	case o.OptLevel != nil:
		codegen("opt-level=" + rustOptLevels[*o.OptLevel])
	case kind == profile.KindRelease:
		codegen("opt-level=3")
	}
	switch {
	case o.DebugInfo != nil && o.DebugInfo.IsCustom():
		codegen("debuginfo=" + string(*o.DebugInfo))
	case o.DebugInfo != nil:
		codegen("debuginfo=" + rustDebugInfo[*o.DebugInfo])
	case kind == profile.KindDebug:
		codegen("debuginfo=2")
	}
	if o.DebugAssertions != nil {
		switch *o.DebugAssertions {
		case profile.DebugAssertionsOn:
			codegen("debug-assertions=true")
		case profile.DebugAssertionsOff:
			codegen("debug-assertions=false")
		}
	}
	if o.LTO != nil {
		codegen("lto=" + rustLTO[*o.LTO])
	}
	if o.OverflowChecks != nil {
		if *o.OverflowChecks {
			codegen("overflow-checks=true")
		} else {
			codegen("overflow-checks=false")
		}
	}
	if kind.IsCustom() {
		codegen("profile-use=" + string(kind))
	}
	return out
}

// isClang reports whether a C-family compiler is clang rather than gcc.
func isClang(info lang.CompilerInfo) bool {
	return strings.Contains(info.Name, "clang")
}

var ccDebugInfo = map[profile.DebugInfo]string{
	profile.DebugInfoNone:    "-g0",
	profile.DebugInfoLimited: "-g1",
	profile.DebugInfoFull:    "-g",
}

func ccFlags(info lang.CompilerInfo, ft lang.FileType, o profile.CompileOptions) []string {
	var out []string
	if ft == lang.CPPModule {
		out = append(out, "-std=c++20")
	}

	kind := o.ProfileKind()
	switch {
	case o.OptLevel != nil:
		level := string(*o.OptLevel)
		if *o.OptLevel == profile.Oz && !isClang(info) {
			level = string(profile.Os)
		}
		out = append(out, "-"+level)
	case kind == profile.KindRelease:
		out = append(out, "-O2")
	case kind == profile.KindDebug:
		out = append(out, "-O0")
	}

	switch {
	case o.DebugInfo != nil && o.DebugInfo.IsCustom():
		out = append(out, "-g"+string(*o.DebugInfo))
	case o.DebugInfo != nil:
		out = append(out, ccDebugInfo[*o.DebugInfo])
	case kind == profile.KindDebug:
		out = append(out, "-g")
	}

	switch {
	case o.DebugAssertions != nil && *o.DebugAssertions == profile.DebugAssertionsOff:
		out = append(out, "-DNDEBUG")
	case o.DebugAssertions != nil && *o.DebugAssertions == profile.DebugAssertionsOn:
	case kind == profile.KindRelease:
		out = append(out, "-DNDEBUG")
	}

	if o.LTO != nil {
		switch *o.LTO {
		case profile.LTOThin:
			if isClang(info) {
				out = append(out, "-flto=thin")
			} else {
				out = append(out, "-flto")
			}
		case profile.LTOFat:
			out = append(out, "-flto")
		}
	}
	return out
}

func csharpFlags(o profile.CompileOptions) []string {
	var out []string
	kind := o.ProfileKind()

	switch {
	case o.OptLevel != nil && *o.OptLevel == profile.O0:
		out = append(out, "-optimize-")
	case o.OptLevel != nil:
		out = append(out, "-optimize+")
	case kind == profile.KindRelease:
		out = append(out, "-optimize+")
	}

	switch {
	case o.DebugInfo == nil:
		if kind == profile.KindDebug {
			out = append(out, "-debug:portable")
		}
	case *o.DebugInfo == profile.DebugInfoNone:
		out = append(out, "-debug-")
	case *o.DebugInfo == profile.DebugInfoLimited:
		out = append(out, "-debug:portable")
	case *o.DebugInfo == profile.DebugInfoFull:
		out = append(out, "-debug:full")
	default:
		out = append(out, "-debug:"+string(*o.DebugInfo))
	}

	if o.DebugAssertions != nil && *o.DebugAssertions == profile.DebugAssertionsOn {
		out = append(out, "-define:DEBUG")
	}
	return out
}
