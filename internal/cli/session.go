package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/phobologic/abuild/internal/commands"
	"github.com/phobologic/abuild/internal/project"
	"github.com/phobologic/abuild/internal/toolchain"
	"github.com/phobologic/abuild/internal/workspace"
)

func (a *app) loadWorkspace() (*workspace.Workspace, error) {
	return workspace.Load(a.workspaceDir, a.configFile)
}

// session is an opened project together with the workspace it belongs to.
type session struct {
	ws       *workspace.Workspace
	project  *project.Project
	progress *progress
}

// open loads a project, its stored profiles and its command history.
func (a *app) open(ctx context.Context, ws *workspace.Workspace, name string, jobs int) (*session, error) {
	if jobs == 0 {
		jobs = ws.Jobs()
	}
	s := &session{ws: ws, progress: newProgress(a.streams.Err, a.showProgress())}
	runner := &toolchain.Runner{Jobs: jobs, Logger: a.logger, OnResult: s.progress.onResult}

	p, err := ws.Open(ctx, name, workspace.OpenOptions{
		Commands: commands.All(commands.Options{
			Runner: runner,
			Stdin:  a.streams.In,
			Stdout: a.streams.Out,
			Stderr: a.streams.Err,
		}),
		Logger: a.logger.With("project", name),
		Probe:  a.probe,
	})
	if err != nil {
		return nil, err
	}
	if err := ws.LoadJournal(p, commands.NewCache); err != nil {
		return nil, fmt.Errorf("project %s: %w", name, err)
	}
	s.project = p
	return s, nil
}

// save persists the project's profiles and history and drops stashes no
// history entry refers to.
func (s *session) save() error {
	if err := s.ws.SyncProfiles(s.project); err != nil {
		return err
	}
	if err := s.ws.SaveJournal(s.project); err != nil {
		return err
	}

	snap := s.project.Log().Snapshot()
	var keep []string
	for _, e := range append(snap.Done, snap.Undone...) {
		keep = append(keep, commands.Stashes(e.Cache)...)
	}
	return commands.PruneStashes(s.project.StateDir(), keep)
}

// execute runs a command on the session's project and saves the result.
func (s *session) execute(ctx context.Context, tag string, args []string) (project.Outcome, error) {
	out, err := s.project.RunCommand(ctx, tag, args)
	s.progress.finish()
	if err != nil {
		return out, fmt.Errorf("project %s: %w", s.project.Name(), err)
	}
	return out, s.save()
}

// current picks the project named by --project, else the only project,
// else the one containing the working directory.
func (a *app) current(ws *workspace.Workspace) (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = ""
	}
	pc, err := ws.Select(a.projectName, cwd)
	if err != nil {
		return "", err
	}
	return pc.Name, nil
}

// targets lists the projects a workspace-wide command acts on: the one
// named by --project, else every project in dependency order.
func (a *app) targets(ws *workspace.Workspace) ([]string, error) {
	if a.projectName != "" {
		if _, err := ws.Project(a.projectName); err != nil {
			return nil, err
		}
		return []string{a.projectName}, nil
	}
	return ws.BuildOrder()
}
