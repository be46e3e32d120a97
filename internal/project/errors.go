package project

import (
	"errors"
	"fmt"
)

// Error kinds. Every *Error matches exactly one of these with errors.Is.
var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrUnknownProfile = errors.New("unknown profile")
	ErrCommandFailed  = errors.New("command failed")
	ErrNothingToUndo  = errors.New("nothing to undo")
	ErrNothingToRedo  = errors.New("nothing to redo")
	ErrUndoFailed     = errors.New("undo failed")
	ErrRedoFailed     = errors.New("redo failed")
)

// Error is returned by Project operations. Kind is one of the Err*
// sentinels; Err is the underlying cause, if any.
type Error struct {
	Kind    error
	Subject string // command tag or profile name
	Err     error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Subject != "" {
		msg = fmt.Sprintf("%s %q", msg, e.Subject)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
