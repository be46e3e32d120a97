package project

import "context"

// Cache is the state a command's Do step hands to its Undo and Redo steps.
// Each command defines its own concrete cache type; Kind names it. Caches
// are passed by pointer so Undo and Redo may update them in place.
type Cache interface {
	Kind() string
}

// Command is a reversible, named project mutation.
//
// Do must be all-or-nothing: when it returns an error the project and any
// files it touched must be as they were before the call.
type Command interface {
	Tag() string
	Do(ctx context.Context, p *Project, args []string) (Cache, error)
	Undo(ctx context.Context, p *Project, cache Cache, args []string) error
	Redo(ctx context.Context, p *Project, cache Cache, args []string) error
}

// Outcome describes a logged operation.
type Outcome struct {
	ID    uint64
	Tag   string
	Args  []string
	Cache Cache
}
