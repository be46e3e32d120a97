package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phobologic/abuild/internal/commands"
	"github.com/phobologic/abuild/internal/project"
	"github.com/phobologic/abuild/internal/toon"
	"github.com/phobologic/abuild/internal/workspace"
)

func newBuildCmd(a *app) *cobra.Command {
	var (
		binary string
		plan   bool
		jobs   int
	)
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Compile projects under a profile",
		Long: `Build compiles every project of the workspace in dependency order, or
only the project named by --project.

Outputs go to <output_dir>/<project>/<profile>. The previous outputs are kept
so the build can be undone.

Examples:
  # Build everything with the debug profile
  abuild build

  # Show the compiler invocations of a release build without running them
  abuild build -p release --plan`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws, err := a.loadWorkspace()
			if err != nil {
				return err
			}
			names, err := a.buildTargets(ws, binary)
			if err != nil {
				return err
			}
			for _, name := range names {
				s, err := a.open(cmd.Context(), ws, name, jobs)
				if err != nil {
					return err
				}
				if plan {
					if err := a.printPlan(cmd, s, binary); err != nil {
						return err
					}
					continue
				}
				s.startBuild(cmd, a.profileName, binary)
				out, err := s.execute(cmd.Context(), commands.TagBuild, buildArgs(a.profileName, binary))
				if err != nil {
					return err
				}
				a.printBuild(cmd, s.project, out.Cache.(*commands.BuildCache))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&binary, "binary", "b", "", "build only this binary")
	cmd.Flags().BoolVar(&plan, "plan", false, "print the compiler invocations instead of running them")
	cmd.Flags().IntVar(&jobs, "jobs", 0, "parallel compiler invocations (default: workspace jobs, else CPU count)")
	return cmd
}

func newCleanCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove build outputs",
		Long: `Clean removes the build outputs of every project, or of the project named
by --project. With --profile only that profile's outputs are removed.
Removed outputs are kept until the clean drops out of the history.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws, err := a.loadWorkspace()
			if err != nil {
				return err
			}
			names, err := a.targets(ws)
			if err != nil {
				return err
			}
			var args []string
			if cmd.Flags().Changed("profile") {
				args = []string{"--profile", a.profileName}
			}
			for _, name := range names {
				s, err := a.open(cmd.Context(), ws, name, 0)
				if err != nil {
					return err
				}
				if _, err := s.execute(cmd.Context(), commands.TagClean, args); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "cleaned %s\n", name)
			}
			return nil
		},
	}
}

func newRebuildCmd(a *app) *cobra.Command {
	var binary string
	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Clean and build projects under a profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws, err := a.loadWorkspace()
			if err != nil {
				return err
			}
			names, err := a.buildTargets(ws, binary)
			if err != nil {
				return err
			}
			for _, name := range names {
				s, err := a.open(cmd.Context(), ws, name, 0)
				if err != nil {
					return err
				}
				s.startBuild(cmd, a.profileName, binary)
				out, err := s.execute(cmd.Context(), commands.TagRebuild, buildArgs(a.profileName, binary))
				if err != nil {
					return err
				}
				a.printBuild(cmd, s.project, out.Cache.(*commands.RebuildCache).Build)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&binary, "binary", "b", "", "build only this binary")
	return cmd
}

func newRunCmd(a *app) *cobra.Command {
	var binary string
	cmd := &cobra.Command{
		Use:   "run [-- args...]",
		Short: "Build a project and run one of its binaries",
		Long: `Run builds the current project and executes a binary with the given
arguments. The program's exit status becomes abuild's exit status. Undoing a
run undoes its build.`,
		RunE: func(cmd *cobra.Command, args []string) error {
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
			s.startBuild(cmd, a.profileName, binary)
			runArgs := append(buildArgs(a.profileName, binary), "--")
			out, err := s.execute(cmd.Context(), commands.TagRun, append(runArgs, args...))
			if err != nil {
				return err
			}
			if code := out.Cache.(*commands.RunCache).ExitCode; code != 0 {
				return &ExitError{Code: code}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&binary, "binary", "b", "", "binary to run")
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func buildArgs(profileName, binary string) []string {
	args := []string{"--profile", profileName}
	if binary != "" {
		args = append(args, "--binary", binary)
	}
	return args
}

// buildTargets is targets, narrowed to the current project when a binary
// is named.
func (a *app) buildTargets(ws *workspace.Workspace, binary string) ([]string, error) {
	if binary == "" {
		return a.targets(ws)
	}
	name, err := a.current(ws)
	if err != nil {
		return nil, err
	}
	return []string{name}, nil
}

// startBuild sizes the progress bar from the build plan.
func (s *session) startBuild(cmd *cobra.Command, profileName, binary string) {
	if !s.progress.enabled {
		return
	}
	total := -1
	if plan, err := commands.Plan(cmd.Context(), s.project, profileName, binary); err == nil {
		total = len(plan.Compile) + len(plan.Link)
	}
	s.progress.start("building "+s.project.Name(), total)
}

func (a *app) printPlan(cmd *cobra.Command, s *session, binary string) error {
	plan, err := commands.Plan(cmd.Context(), s.project, a.profileName, binary)
	if err != nil {
		return fmt.Errorf("project %s: %w", s.project.Name(), err)
	}
	m := plan.Model(s.project.Name(), a.profileName).RelativeTo(s.ws.Root)
	fmt.Fprintln(cmd.OutOrStdout(), toon.EncodePlan(&m))
	return nil
}

func (a *app) printBuild(cmd *cobra.Command, p *project.Project, c *commands.BuildCache) {
	w := cmd.OutOrStdout()
	if a.verbose {
		fmt.Fprintln(w, toon.EncodeReport(&c.Report))
	}
	if len(c.Binaries) == 0 {
		fmt.Fprintf(w, "built %s (%s)\n", p.Name(), c.Profile)
		return
	}
	for _, bin := range c.Binaries {
		fmt.Fprintf(w, "built %s (%s): %s\n", p.Name(), c.Profile, bin.Path)
	}
}
