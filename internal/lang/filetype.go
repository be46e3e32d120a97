package lang

import "fmt"

// FileType is the classification of a source file.
type FileType int

const (
	CSource FileType = iota + 1
	CHeader
	CPPSource
	CPPHeader
	CPPModule
	CSharpSource
	RustSource
)

// The string forms are persisted in build metadata; do not change them.
var fileTypeNames = map[FileType]string{
	CSource:      "c-source",
	CHeader:      "c-header",
	CPPSource:    "cpp-source",
	CPPHeader:    "cpp-header",
	CPPModule:    "cpp-module",
	CSharpSource: "csharp-source",
	RustSource:   "rust-source",
}

var fileTypeLanguages = map[FileType]string{
	CSource:      C,
	CHeader:      C,
	CPPSource:    CPP,
	CPPHeader:    CPP,
	CPPModule:    CPP,
	CSharpSource: CSharp,
	RustSource:   Rust,
}

// FileTypes returns every known file type in declaration order.
func FileTypes() []FileType {
	return []FileType{CSource, CHeader, CPPSource, CPPHeader, CPPModule, CSharpSource, RustSource}
}

func (t FileType) String() string {
	if name, ok := fileTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("FileType(%d)", int(t))
}

// Language returns the name of the language the file type belongs to.
func (t FileType) Language() string {
	return fileTypeLanguages[t]
}

// IsHeader reports whether the file type is a header. Headers are
// discovered but never compiled on their own.
func (t FileType) IsHeader() bool {
	return t == CHeader || t == CPPHeader
}

// ParseFileType is the inverse of FileType.String.
func ParseFileType(s string) (FileType, error) {
	for ft, name := range fileTypeNames {
		if name == s {
			return ft, nil
		}
	}
	return 0, fmt.Errorf("unknown file type %q", s)
}

func (t FileType) MarshalText() ([]byte, error) {
	if _, ok := fileTypeNames[t]; !ok {
		return nil, fmt.Errorf("unknown file type %d", int(t))
	}
	return []byte(t.String()), nil
}

func (t *FileType) UnmarshalText(b []byte) error {
	ft, err := ParseFileType(string(b))
	if err != nil {
		return err
	}
	*t = ft
	return nil
}
