package cli

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/phobologic/abuild/internal/commands"
	"github.com/phobologic/abuild/internal/workspace"
)

func newInitCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a workspace, project or profile in place",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "workspace [name]",
			Short: "Make the workspace directory a workspace",
			Long: `Init workspace writes abuild.yaml in the workspace directory, which must be
empty or absent. The name defaults to the directory name.`,
			Args: cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.initWorkspace(cmd, a.workspaceDir, firstArg(args))
			},
		},
		a.projectCmd("project name", "Add an existing directory as a project", (*workspace.Workspace).InitProject),
		a.createProfileCmd(),
	)
	return cmd
}

func newCreateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a workspace, project or profile",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "workspace name",
			Short: "Create a workspace in a new directory under the workspace directory",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.initWorkspace(cmd, filepath.Join(a.workspaceDir, args[0]), args[0])
			},
		},
		a.projectCmd("project name", "Create a project in a new directory", (*workspace.Workspace).CreateProject),
		a.createProfileCmd(),
	)
	return cmd
}

func newRemoveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove a workspace, project or profile",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "workspace",
			Short: "Unregister the workspace",
			Long: `Remove workspace deletes abuild.yaml, the history and the build outputs.
Project sources are left in place.`,
			Args: cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := workspace.Remove(a.workspaceDir); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed workspace %s\n", a.workspaceDir)
				return nil
			},
		},
		&cobra.Command{
			Use:   "project name",
			Short: "Remove a project from the workspace",
			Long: `Remove project drops the project from abuild.yaml and moves its directory to
the workspace trash under .abuild/trash.`,
			Args: cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ws, err := a.loadWorkspace()
				if err != nil {
					return err
				}
				trash, err := ws.RemoveProject(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed project %s (moved to %s)\n", args[0], trash)
				return nil
			},
		},
		&cobra.Command{
			Use:   "profile name",
			Short: "Remove a profile from the current project",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.profileCommand(cmd, commands.TagRemoveProfile, args, "removed")
			},
		},
	)
	return cmd
}

func (a *app) initWorkspace(cmd *cobra.Command, dir, name string) error {
	ws, err := workspace.Init(dir, name)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "initialized workspace %s in %s\n", ws.Name(), ws.Root)
	return nil
}

func (a *app) projectCmd(use, short string, add func(*workspace.Workspace, string, string) (workspace.ProjectConfig, error)) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.loadWorkspace()
			if err != nil {
				return err
			}
			pc, err := add(ws, args[0], path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added project %s at %s\n", pc.Name, ws.ProjectDir(pc))
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "project directory relative to the workspace (default: the name)")
	return cmd
}

// profileFlags are the create-profile options, passed through by name.
var profileFlags = []string{"base", "opt-level", "lto", "debug-info", "debug-assertions"}

func (a *app) createProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile name",
		Short: "Add a compile profile to the current project",
		Long: `Create profile adds a named profile built on the dev or release preset.
Unset options keep the base preset's behaviour. Creating a profile is
recorded and can be undone.

Examples:
  abuild create profile fast --base release --opt-level O3 --lto thin
  abuild create profile checked --overflow-checks --flag=-fsanitize=address`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.profileCommand(cmd, commands.TagCreateProfile, profileArgs(cmd.Flags(), args[0]), "created")
		},
	}
	f := cmd.Flags()
	f.String("base", "dev", "preset to build on (dev, release or a custom kind)")
	f.String("opt-level", "", "optimisation level (O0, O1, O2, O3, Os, Oz)")
	f.String("lto", "", "link-time optimisation (off, thin, fat, local)")
	f.String("debug-info", "", "debug info (none, limited, full)")
	f.String("debug-assertions", "", "debug assertions (on, off)")
	f.Bool("overflow-checks", false, "enable integer overflow checks")
	f.StringArray("flag", nil, "extra compiler flag (repeatable)")
	return cmd
}

// profileArgs rebuilds create-profile arguments from the flags the user
// set.
func profileArgs(flags *pflag.FlagSet, name string) []string {
	args := []string{name}
	for _, n := range profileFlags {
		if flags.Changed(n) {
			v, _ := flags.GetString(n)
			args = append(args, "--"+n+"="+v)
		}
	}
	if flags.Changed("overflow-checks") {
		v, _ := flags.GetBool("overflow-checks")
		args = append(args, "--overflow-checks="+strconv.FormatBool(v))
	}
	extra, _ := flags.GetStringArray("flag")
	for _, v := range extra {
		args = append(args, "--flag="+v)
	}
	return args
}

func (a *app) profileCommand(cmd *cobra.Command, tag string, args []string, verb string) error {
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
	if _, err := s.execute(cmd.Context(), tag, args); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s profile %s in %s\n", verb, args[0], name)
	return nil
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
