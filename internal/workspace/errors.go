package workspace

import (
	"errors"

	"github.com/phobologic/abuild/internal/graph"
)

var (
	// ErrNotWorkspace is returned when a directory has no workspace file.
	ErrNotWorkspace = errors.New("not an abuild workspace")

	// ErrNotEmpty is returned when creating into a non-empty directory.
	ErrNotEmpty = errors.New("directory is not empty")

	// ErrProjectExists is returned when a project name is taken.
	ErrProjectExists = errors.New("project already exists")

	// ErrUnknownProject is returned for a project name not in the
	// workspace.
	ErrUnknownProject = errors.New("unknown project")

	// ErrNoProject is returned when no project was named and none can be
	// inferred.
	ErrNoProject = errors.New("no project selected")

	// ErrHasDependents is returned when removing a project others depend
	// on.
	ErrHasDependents = errors.New("project has dependents")

	// ErrDependencyCycle is returned when project dependencies form a
	// cycle.
	ErrDependencyCycle = graph.ErrCycle
)
