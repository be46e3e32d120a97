package project

import (
	"context"
	"slices"
)

// Entry is one operation in the command log.
type Entry struct {
	ID    uint64
	Tag   string
	Args  []string
	Cache Cache

	cmd Command
}

func (e Entry) outcome() Outcome {
	return Outcome{ID: e.ID, Tag: e.Tag, Args: slices.Clone(e.Args), Cache: e.Cache}
}

// Log is a two-stack undo/redo history. A fresh Execute clears the redo
// stack. Log is not safe for concurrent use.
type Log struct {
	done   []Entry
	undone []Entry
	nextID uint64
}

// NewLog returns an empty log.
func NewLog() *Log {
	return &Log{nextID: 1}
}

// Execute runs cmd.Do and records it on success.
func (l *Log) Execute(ctx context.Context, p *Project, cmd Command, args []string) (Outcome, error) {
	cache, err := cmd.Do(ctx, p, args)
	if err != nil {
		return Outcome{}, &Error{Kind: ErrCommandFailed, Subject: cmd.Tag(), Err: err}
	}
	e := Entry{ID: l.nextID, Tag: cmd.Tag(), Args: slices.Clone(args), Cache: cache, cmd: cmd}
	l.nextID++
	l.done = append(l.done, e)
	l.undone = nil
	return e.outcome(), nil
}

// Undo reverts the most recent done operation. When the command's Undo
// fails the entry is dropped from the log and ErrUndoFailed is returned.
func (l *Log) Undo(ctx context.Context, p *Project) (Outcome, error) {
	if len(l.done) == 0 {
		return Outcome{}, &Error{Kind: ErrNothingToUndo}
	}
	e := l.done[len(l.done)-1]
	l.done = l.done[:len(l.done)-1]

	if err := e.cmd.Undo(ctx, p, e.Cache, e.Args); err != nil {
		return e.outcome(), &Error{Kind: ErrUndoFailed, Subject: e.Tag, Err: err}
	}
	l.undone = append(l.undone, e)
	return e.outcome(), nil
}

// Redo re-applies the most recently undone operation. When the command's
// Redo fails the entry is dropped from the log and ErrRedoFailed is
// returned.
func (l *Log) Redo(ctx context.Context, p *Project) (Outcome, error) {
	if len(l.undone) == 0 {
		return Outcome{}, &Error{Kind: ErrNothingToRedo}
	}
	e := l.undone[len(l.undone)-1]
	l.undone = l.undone[:len(l.undone)-1]

	if err := e.cmd.Redo(ctx, p, e.Cache, e.Args); err != nil {
		return e.outcome(), &Error{Kind: ErrRedoFailed, Subject: e.Tag, Err: err}
	}
	l.done = append(l.done, e)
	return e.outcome(), nil
}

// CanUndo reports whether Undo has an entry to revert.
func (l *Log) CanUndo() bool { return len(l.done) > 0 }

// CanRedo reports whether Redo has an entry to re-apply.
func (l *Log) CanRedo() bool { return len(l.undone) > 0 }

// Snapshot is a copy of a log's state, suitable for persisting. Entries
// are ordered oldest first.
type Snapshot struct {
	NextID uint64
	Done   []Entry
	Undone []Entry
}

// Snapshot returns a copy of the log's state.
func (l *Log) Snapshot() Snapshot {
	return Snapshot{
		NextID: l.nextID,
		Done:   slices.Clone(l.done),
		Undone: slices.Clone(l.undone),
	}
}

// restore binds every entry in s to a command from lookup and replaces the
// log's state. On error the log is unchanged.
func (l *Log) restore(s Snapshot, lookup func(tag string) (Command, bool)) error {
	bind := func(entries []Entry) ([]Entry, error) {
		out := make([]Entry, len(entries))
		for i, e := range entries {
			cmd, ok := lookup(e.Tag)
			if !ok {
				return nil, &Error{Kind: ErrUnknownCommand, Subject: e.Tag}
			}
			e.cmd = cmd
			e.Args = slices.Clone(e.Args)
			out[i] = e
		}
		return out, nil
	}

	done, err := bind(s.Done)
	if err != nil {
		return err
	}
	undone, err := bind(s.Undone)
	if err != nil {
		return err
	}

	next := s.NextID
	for _, e := range append(slices.Clone(done), undone...) {
		if e.ID >= next {
			next = e.ID + 1
		}
	}
	if next == 0 {
		next = 1
	}

	l.done, l.undone, l.nextID = done, undone, next
	return nil
}
