package toolchain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCancelled is returned by Runner.Run when ctx was cancelled before
	// every job ran.
	ErrCancelled = errors.New("build cancelled")

	// ErrNoCompiler is returned when no compiler is known for a language.
	ErrNoCompiler = errors.New("no compiler found")

	// ErrNoEntry is returned when a binary's entry is not a discovered
	// compilation unit.
	ErrNoEntry = errors.New("entry is not a compilable source")
)

// CompileError is a failed compiler invocation. Output holds the combined
// stdout and stderr of the compiler.
type CompileError struct {
	Path   string
	Output string
	Err    error
}

func (e *CompileError) Error() string {
	msg := fmt.Sprintf("compile %s: %v", e.Path, e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += "\n" + out
	}
	return msg
}

func (e *CompileError) Unwrap() error { return e.Err }
