package discover

import (
	"errors"
	"fmt"
)

// Done is returned by Walker.Next when no items remain.
var Done = errors.New("no more sources")

// ErrUnsupportedEntry marks an entry that is neither a regular file, a
// directory nor a symlink (a socket, device or named pipe).
var ErrUnsupportedEntry = errors.New("unsupported file system entry")

// IOError reports a file system failure for a single entry.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// UnknownFileTypeError reports a regular file whose extension is not in the
// classification table.
type UnknownFileTypeError struct {
	Path string
	Hint string // best-effort language name, may be empty
}

func (e *UnknownFileTypeError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: unknown file type (looks like %s)", e.Path, e.Hint)
	}
	return fmt.Sprintf("%s: unknown file type", e.Path)
}

// IsUnknownFileType reports whether err is an UnknownFileTypeError.
func IsUnknownFileType(err error) bool {
	var u *UnknownFileTypeError
	return errors.As(err, &u)
}
