package toolchain

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/phobologic/abuild/internal/lang"
	"github.com/phobologic/abuild/internal/profile"
)

var (
	rustc = lang.CompilerInfo{Name: "rustc", Version: "1.82.0", Language: lang.Rust}
	gcc   = lang.CompilerInfo{Name: "gcc", Version: "13.2.0", Language: lang.C}
	clang = lang.CompilerInfo{Name: "clang", Version: "18.1.0", Language: lang.CPP}
	csc   = lang.CompilerInfo{Name: "csc", Version: "4.8.0", Language: lang.CSharp}
)

func TestRustFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts profile.CompileOptions
		want []string
	}{
		{"debug preset", profile.DevOptions(), []string{"-C", "debuginfo=2"}},
		{"release preset", profile.ReleaseOptions(), []string{"-C", "opt-level=3"}},
		{"zero value", profile.CompileOptions{}, nil},
		{"opt z", profile.CompileOptions{OptLevel: profile.Ptr(profile.Oz)}, []string{"-C", "opt-level=z"}},
		{"opt s", profile.CompileOptions{OptLevel: profile.Ptr(profile.Os)}, []string{"-C", "opt-level=s"}},
		{"debuginfo limited", profile.CompileOptions{DebugInfo: profile.Ptr(profile.DebugInfoLimited)}, []string{"-C", "debuginfo=1"}},
		{"debuginfo custom", profile.CompileOptions{DebugInfo: profile.Ptr(profile.DebugInfo("line-tables-only"))}, []string{"-C", "debuginfo=line-tables-only"}},
		{"assertions off", profile.CompileOptions{DebugAssertions: profile.Ptr(profile.DebugAssertionsOff)}, []string{"-C", "debug-assertions=false"}},
		{"lto fat", profile.CompileOptions{LTO: profile.Ptr(profile.LTOFat)}, []string{"-C", "lto=true"}},
		{"lto local", profile.CompileOptions{LTO: profile.Ptr(profile.LTOLocal)}, []string{"-C", "lto=false"}},
		{"lto off", profile.CompileOptions{LTO: profile.Ptr(profile.LTOOff)}, []string{"-C", "lto=off"}},
		{"overflow", profile.CompileOptions{OverflowChecks: profile.Ptr(true)}, []string{"-C", "overflow-checks=true"}},
		{"custom kind", profile.CompileOptions{Profile: profile.Ptr(profile.Kind("pgo"))}, []string{"-C", "profile-use=pgo"}},
		{
			"release explicit opt and flags",
			profile.CompileOptions{Profile: profile.Ptr(profile.KindRelease), OptLevel: profile.Ptr(profile.O1), Flags: []string{"--cfg", "fast"}},
			[]string{"-C", "opt-level=1", "--cfg", "fast"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Flags(rustc, lang.RustSource, tt.opts))
		})
	}
}

func TestCCFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		info lang.CompilerInfo
		ft   lang.FileType
		opts profile.CompileOptions
		want []string
	}{
		{"debug preset", gcc, lang.CSource, profile.DevOptions(), []string{"-O0", "-g"}},
		{"release preset", gcc, lang.CSource, profile.ReleaseOptions(), []string{"-O2", "-DNDEBUG"}},
		{"gcc oz", gcc, lang.CSource, profile.CompileOptions{OptLevel: profile.Ptr(profile.Oz)}, []string{"-Os"}},
		{"clang oz", clang, lang.CPPSource, profile.CompileOptions{OptLevel: profile.Ptr(profile.Oz)}, []string{"-Oz"}},
		{"debuginfo none", gcc, lang.CSource, profile.CompileOptions{DebugInfo: profile.Ptr(profile.DebugInfoNone)}, []string{"-g0"}},
		{"debuginfo custom", gcc, lang.CSource, profile.CompileOptions{DebugInfo: profile.Ptr(profile.DebugInfo("gdb"))}, []string{"-ggdb"}},
		{"gcc thin lto", gcc, lang.CSource, profile.CompileOptions{LTO: profile.Ptr(profile.LTOThin)}, []string{"-flto"}},
		{"clang thin lto", clang, lang.CPPSource, profile.CompileOptions{LTO: profile.Ptr(profile.LTOThin)}, []string{"-flto=thin"}},
		{"local lto", clang, lang.CPPSource, profile.CompileOptions{LTO: profile.Ptr(profile.LTOLocal)}, nil},
		{"overflow ignored", gcc, lang.CSource, profile.CompileOptions{OverflowChecks: profile.Ptr(true)}, nil},
		{"module", clang, lang.CPPModule, profile.CompileOptions{}, []string{"-std=c++20"}},
		{
			"release keeps assertions",
			gcc, lang.CSource,
			profile.CompileOptions{Profile: profile.Ptr(profile.KindRelease), DebugAssertions: profile.Ptr(profile.DebugAssertionsOn)},
			[]string{"-O2"},
		},
		{"flags last", gcc, lang.CSource, profile.CompileOptions{OptLevel: profile.Ptr(profile.O3), Flags: []string{"-Wall"}}, []string{"-O3", "-Wall"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Flags(tt.info, tt.ft, tt.opts))
		})
	}
}

func TestCSharpFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts profile.CompileOptions
		want []string
	}{
		{"debug preset", profile.DevOptions(), []string{"-debug:portable"}},
		{"release preset", profile.ReleaseOptions(), []string{"-optimize+"}},
		{"o0", profile.CompileOptions{OptLevel: profile.Ptr(profile.O0)}, []string{"-optimize-"}},
		{"o2", profile.CompileOptions{OptLevel: profile.Ptr(profile.O2)}, []string{"-optimize+"}},
		{"debuginfo none", profile.CompileOptions{DebugInfo: profile.Ptr(profile.DebugInfoNone)}, []string{"-debug-"}},
		{"debuginfo full", profile.CompileOptions{DebugInfo: profile.Ptr(profile.DebugInfoFull)}, []string{"-debug:full"}},
		{"assertions", profile.CompileOptions{DebugAssertions: profile.Ptr(profile.DebugAssertionsOn)}, []string{"-define:DEBUG"}},
		{"lto ignored", profile.CompileOptions{LTO: profile.Ptr(profile.LTOFat)}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Flags(csc, lang.CSharpSource, tt.opts))
		})
	}
}

func TestFlagsFallsBackToFileLanguage(t *testing.T) {
	t.Parallel()

	got := Flags(lang.CompilerInfo{Name: "rustc"}, lang.RustSource, profile.ReleaseOptions())
	assert.Equal(t, []string{"-C", "opt-level=3"}, got)
}
