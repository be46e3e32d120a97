package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phobologic/abuild/internal/project"
)

func newUndoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Undo the last command on the current project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.history(cmd, "undid", (*project.Project).Undo)
		},
	}
}

func newRedoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "redo",
		Short: "Redo the last undone command on the current project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.history(cmd, "redid", (*project.Project).Redo)
		},
	}
}

func (a *app) history(cmd *cobra.Command, verb string, step func(*project.Project, context.Context) (project.Outcome, error)) error {
	ws, err := a.loadWorkspace()
	if err != nil {
		return err
	}
	name, err := a.current(ws)
	if err != nil {
		return err
	}
	s, err := a.open(cmd.Context(), ws, name, 0)
	if err != nil {
		return err
	}

	out, err := step(s.project, cmd.Context())
	// A failed undo or redo drops its entry, so the log is saved either way.
	if saveErr := s.save(); saveErr != nil && err == nil {
		err = saveErr
	}
	if err != nil {
		return fmt.Errorf("project %s: %w", name, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s #%d %s in %s\n", verb, out.ID, out.Tag, name)
	return nil
}
