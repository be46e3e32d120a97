// Package lang provides the language registry mapping file extensions to
// abuild file types and the toolchains that compile them.
package lang

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-enry/go-enry/v2"
)

// Language names used as registry keys and in CompilerInfo.
const (
	C      = "c"
	CPP    = "cpp"
	CSharp = "csharp"
	Rust   = "rust"
)

// Language holds classification and toolchain configuration for a
// supported language.
type Language struct {
	Name    string
	Display string

	// Extensions maps an extension (without the leading dot) to the file
	// type it denotes. Matching is case-sensitive.
	Extensions map[string]FileType

	// Compilers lists compiler commands to probe, in preference order.
	Compilers []string
}

// Languages maps language names to their configuration.
// Populated by init() functions in per-language files.
var Languages = map[string]*Language{}

func register(l *Language) {
	Languages[l.Name] = l
}

// extensionMap is built lazily after all init() functions have run.
var extensionMap map[string]FileType
var extensionOnce sync.Once

func getExtensionMap() map[string]FileType {
	extensionOnce.Do(func() {
		extensionMap = make(map[string]FileType)
		for _, l := range Languages {
			for ext, ft := range l.Extensions {
				extensionMap[ext] = ft
			}
		}
	})
	return extensionMap
}

// Extension returns the final dot-segment of the base name of path, or ""
// when there is none. A leading dot marks a hidden file, not an
// extension, so ".rs" has none.
func Extension(path string) string {
	base := filepath.Base(path)
	i := strings.LastIndexByte(base, '.')
	if i <= 0 {
		return ""
	}
	return base[i+1:]
}

// Classify returns the file type for path based solely on its extension.
func Classify(path string) (FileType, bool) {
	ext := Extension(path)
	if ext == "" {
		return 0, false
	}
	ft, ok := getExtensionMap()[ext]
	return ft, ok
}

// Hint returns a best-effort language name for a file that Classify does
// not recognise, or "" if nothing is known about it. It is meant for
// diagnostics only.
func Hint(path string) string {
	if name, _ := enry.GetLanguageByExtension(path); name != "" {
		return name
	}
	name, _ := enry.GetLanguageByFilename(path)
	return name
}

// Lookup returns the registered language by name.
func Lookup(name string) (*Language, error) {
	l, ok := Languages[name]
	if !ok {
		return nil, fmt.Errorf("unsupported language %q", name)
	}
	return l, nil
}

// CompilerInfo identifies a toolchain. It is produced by compiler probing
// and consumed read-only by profiles.
type CompilerInfo struct {
	Name     string `yaml:"name" mapstructure:"name"`
	Version  string `yaml:"version,omitempty" mapstructure:"version"`
	Language string `yaml:"language" mapstructure:"language"`

	// Path is the executable to invoke. Empty means Name looked up in PATH.
	Path string `yaml:"path,omitempty" mapstructure:"path"`
}

// Executable returns the command used to invoke the compiler.
func (c CompilerInfo) Executable() string {
	if c.Path != "" {
		return c.Path
	}
	return c.Name
}

func (c CompilerInfo) String() string {
	if c.Version == "" {
		return c.Name
	}
	return c.Name + " " + c.Version
}
