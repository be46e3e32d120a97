// Package cli implements the abuild command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/phobologic/abuild/internal/lang"
	"github.com/phobologic/abuild/internal/logging"
	"github.com/phobologic/abuild/internal/toolchain"
)

var version = "dev"

// ExitError reports a non-zero exit status that needs no message, such as
// the exit code of a program started by run.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string { return fmt.Sprintf("exit status %d", e.Code) }

// Streams are the standard streams of a command invocation.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// app holds the state shared by every command of one invocation.
type app struct {
	streams Streams

	workspaceDir string
	projectName  string
	profileName  string
	configFile   string
	logFormat    string
	verbose      bool

	logger *slog.Logger

	// probe finds compilers for languages a project does not pin.
	probe func(ctx context.Context, language string) (lang.CompilerInfo, error)
}

// Execute runs the command line args.
func Execute(ctx context.Context, args []string, streams Streams) error {
	cmd := newRootCmd(&app{streams: streams, probe: toolchain.Probe})
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func newRootCmd(a *app) *cobra.Command {
	if a.streams.In == nil {
		a.streams.In = os.Stdin
	}
	if a.streams.Out == nil {
		a.streams.Out = os.Stdout
	}
	if a.streams.Err == nil {
		a.streams.Err = os.Stderr
	}

	root := &cobra.Command{
		Use:   "abuild",
		Short: "Build C, C++, C# and Rust projects with undoable commands",
		Long: `abuild builds the projects of a workspace with named compile profiles.

Every command that changes a project (build, clean, rebuild, run and
profile changes) is recorded and can be undone and redone.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.SetIn(a.streams.In)
	root.SetOut(a.streams.Out)
	root.SetErr(a.streams.Err)

	flags := root.PersistentFlags()
	flags.StringVarP(&a.workspaceDir, "workspace", "w", ".", "workspace directory")
	flags.StringVarP(&a.projectName, "project", "j", "", "project to operate on")
	flags.StringVarP(&a.profileName, "profile", "p", "debug", "compile profile")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&a.logFormat, "log-format", logging.FormatText, "log format (text or json)")
	flags.StringVar(&a.configFile, "config", "", "workspace file (default is <workspace>/abuild.yaml)")

	root.AddCommand(
		newInitCmd(a),
		newCreateCmd(a),
		newRemoveCmd(a),
		newUndoCmd(a),
		newRedoCmd(a),
		newBuildCmd(a),
		newCleanCmd(a),
		newRebuildCmd(a),
		newRunCmd(a),
	)
	return root
}

func (a *app) setup(*cobra.Command, []string) error {
	cfg := logging.DefaultConfig()
	cfg.Format = a.logFormat
	cfg.Writer = a.streams.Err
	if a.verbose {
		cfg.Level = slog.LevelDebug
	}
	logger, err := logging.New(cfg)
	if err != nil {
		return err
	}
	a.logger = logger
	return nil
}
