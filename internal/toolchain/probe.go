package toolchain

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/phobologic/abuild/internal/lang"
)

// ProbeTimeout bounds a single "--version" call.
const ProbeTimeout = 10 * time.Second

var versionPattern = regexp.MustCompile(`\d+\.\d+(\.\d+)*`)

// Probe finds the first installed compiler for language and describes it.
func Probe(ctx context.Context, language string) (lang.CompilerInfo, error) {
	l, err := lang.Lookup(language)
	if err != nil {
		return lang.CompilerInfo{}, err
	}
	for _, candidate := range l.Compilers {
		path, err := exec.LookPath(candidate)
		if err != nil {
			continue
		}
		return ProbePath(ctx, language, path)
	}
	return lang.CompilerInfo{}, fmt.Errorf("%s: %w (tried %s)", l.Display, ErrNoCompiler, strings.Join(l.Compilers, ", "))
}

// ProbePath describes the compiler at path by running it with --version.
func ProbePath(ctx context.Context, language, path string) (lang.CompilerInfo, error) {
	execCtx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()

	out, err := exec.CommandContext(execCtx, path, "--version").CombinedOutput()
	if err != nil {
		return lang.CompilerInfo{}, fmt.Errorf("probe %s: %w", path, err)
	}
	return parseVersion(language, path, string(out)), nil
}

func parseVersion(language, path, output string) lang.CompilerInfo {
	first, _, _ := strings.Cut(strings.TrimSpace(output), "\n")
	return lang.CompilerInfo{
		Name:     family(path, output),
		Version:  versionPattern.FindString(first),
		Language: language,
		Path:     path,
	}
}

// family names the compiler implementation. gcc-compatible drivers such as
// cc report themselves as GCC or clang in their version banner.
func family(path, output string) string {
	banner := strings.ToLower(output)
	switch {
	case strings.Contains(banner, "clang"):
		return "clang"
	case strings.Contains(banner, "gcc"), strings.Contains(banner, "free software foundation"):
		return "gcc"
	}
	return filepath.Base(path)
}
