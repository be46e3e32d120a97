package workspace

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/abuild/internal/commands"
	"github.com/phobologic/abuild/internal/lang"
	"github.com/phobologic/abuild/internal/logging"
	"github.com/phobologic/abuild/internal/profile"
	"github.com/phobologic/abuild/internal/project"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newWorkspace(t *testing.T) *Workspace {
	t.Helper()
	w, err := Init(filepath.Join(t.TempDir(), "ws"), "")
	require.NoError(t, err)
	return w
}

func TestInit(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "demo")
	w, err := Init(dir, "")
	require.NoError(t, err)
	assert.Equal(t, "demo", w.File.Name)
	assert.FileExists(t, filepath.Join(dir, FileName))
	assert.DirExists(t, filepath.Join(dir, StateDirName))
	assert.FileExists(t, filepath.Join(dir, ".gitignore"))

	loaded, err := Load(dir, "")
	require.NoError(t, err)
	assert.Equal(t, "demo", loaded.File.Name)
	assert.Equal(t, DefaultOutputDir, loaded.File.OutputDir)
	assert.Empty(t, loaded.File.Projects)
}

func TestInitRequiresEmptyDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "README", "hi")
	_, err := Init(dir, "x")
	assert.ErrorIs(t, err, ErrNotEmpty)

	// An existing empty directory is fine.
	_, err = Init(t.TempDir(), "x")
	assert.NoError(t, err)
}

func TestLoadNotWorkspace(t *testing.T) {
	t.Parallel()

	_, err := Load(t.TempDir(), "")
	assert.ErrorIs(t, err, ErrNotWorkspace)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ABUILD_JOBS", "4")
	t.Setenv("ABUILD_OUTPUT_DIR", "build")

	w := newWorkspace(t)
	loaded, err := Load(w.Root, "")
	require.NoError(t, err)
	assert.Equal(t, 4, loaded.Jobs())
	assert.Equal(t, filepath.Join(w.Root, "build"), loaded.OutputDir())
	assert.Zero(t, loaded.File.Jobs)
	assert.Equal(t, DefaultOutputDir, loaded.File.OutputDir)
}

func TestSaveIgnoresEnvOverride(t *testing.T) {
	t.Setenv("ABUILD_NAME", "other")
	t.Setenv("ABUILD_JOBS", "4")
	t.Setenv("ABUILD_OUTPUT_DIR", "build")

	w := newWorkspace(t)
	before, err := os.ReadFile(w.Path())
	require.NoError(t, err)

	loaded, err := Load(w.Root, "")
	require.NoError(t, err)
	assert.Equal(t, "other", loaded.Name())
	require.NoError(t, loaded.Save())

	after, err := os.ReadFile(w.Path())
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
	assert.NotContains(t, string(after), "build")
}

func TestLoadAlternateConfigFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "conf/ws.yaml", "name: alt\njobs: 2\nprojects:\n  - name: app\n    path: app\n")
	w, err := Load(root, filepath.Join(root, "conf", "ws.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "alt", w.File.Name)
	assert.Equal(t, []string{"app"}, w.Names())
}

func TestLoadRejectsInvalidFiles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yaml string
		want error
	}{
		{"cycle", "projects:\n  - {name: a, path: a, depends_on: [b]}\n  - {name: b, path: b, depends_on: [a]}\n", ErrDependencyCycle},
		{"unknown dep", "projects:\n  - {name: a, path: a, depends_on: [ghost]}\n", ErrUnknownProject},
		{"duplicate", "projects:\n  - {name: a, path: a}\n  - {name: a, path: b}\n", ErrProjectExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			root := t.TempDir()
			writeFile(t, root, FileName, tt.yaml)
			_, err := Load(root, "")
			assert.ErrorIs(t, err, tt.want)
		})
	}

	root := t.TempDir()
	writeFile(t, root, FileName, "projects:\n  - {name: a, path: ../outside}\n")
	_, err := Load(root, "")
	assert.Error(t, err)
}

func TestCreateAndRemoveProject(t *testing.T) {
	t.Parallel()

	w := newWorkspace(t)
	pc, err := w.CreateProject("app", "")
	require.NoError(t, err)
	assert.Equal(t, "app", pc.Path)
	assert.DirExists(t, filepath.Join(w.Root, "app", "src"))

	_, err = w.CreateProject("app", "other")
	assert.ErrorIs(t, err, ErrProjectExists)

	writeFile(t, w.Root, "occupied/file.txt", "x")
	_, err = w.CreateProject("occupied", "")
	assert.ErrorIs(t, err, ErrNotEmpty)

	_, err = w.InitProject("occupied", "")
	require.NoError(t, err)

	loaded, err := Load(w.Root, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"app", "occupied"}, loaded.Names())

	trash, err := loaded.RemoveProject("app")
	require.NoError(t, err)
	assert.NoDirExists(t, filepath.Join(w.Root, "app"))
	assert.DirExists(t, filepath.Join(trash, "src"))
	assert.Equal(t, []string{"occupied"}, loaded.Names())

	_, err = loaded.RemoveProject("app")
	assert.ErrorIs(t, err, ErrUnknownProject)
}

func TestRemoveProjectWithDependents(t *testing.T) {
	t.Parallel()

	w := newWorkspace(t)
	_, err := w.CreateProject("core", "")
	require.NoError(t, err)
	_, err = w.CreateProject("app", "")
	require.NoError(t, err)
	w.File.Projects[1].DependsOn = []string{"core"}
	require.NoError(t, w.Save())

	_, err = w.RemoveProject("core")
	assert.ErrorIs(t, err, ErrHasDependents)
	assert.DirExists(t, filepath.Join(w.Root, "core"))
}

func TestBuildOrderAndSelect(t *testing.T) {
	t.Parallel()

	w := newWorkspace(t)
	for _, name := range []string{"app", "core", "net"} {
		_, err := w.CreateProject(name, "")
		require.NoError(t, err)
	}
	w.File.Projects[0].DependsOn = []string{"net"}
	w.File.Projects[2].DependsOn = []string{"core"}

	order, err := w.BuildOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"core", "net", "app"}, order)

	pc, err := w.Select("net", "")
	require.NoError(t, err)
	assert.Equal(t, "net", pc.Name)

	pc, err = w.Select("", filepath.Join(w.Root, "core", "src"))
	require.NoError(t, err)
	assert.Equal(t, "core", pc.Name)

	_, err = w.Select("", w.Root)
	assert.ErrorIs(t, err, ErrNoProject)

	_, err = w.Select("ghost", "")
	assert.ErrorIs(t, err, ErrUnknownProject)
}

func TestOpen(t *testing.T) {
	t.Parallel()

	w := newWorkspace(t)
	_, err := w.CreateProject("app", "")
	require.NoError(t, err)
	writeFile(t, w.Root, "app/src/main.rs", "fn main() {}\n")
	writeFile(t, w.Root, "app/src/gen/skip.rs", "\n")
	writeFile(t, w.Root, "app/.abuildignore", "src/gen/\n")

	w.File.Projects[0].Compilers = map[string]lang.CompilerInfo{lang.Rust: {Name: "rustc", Path: "/opt/rustc"}}
	w.File.Projects[0].Profiles = map[string]profile.Spec{
		"fast": {Base: profile.BaseRelease, Options: profile.CompileOptions{OptLevel: profile.Ptr(profile.O3)}},
	}

	var probed []string
	p, err := w.Open(context.Background(), "app", OpenOptions{
		Commands: commands.All(commands.Options{}),
		Logger:   logging.Discard(),
		Probe: func(_ context.Context, language string) (lang.CompilerInfo, error) {
			probed = append(probed, language)
			if language == lang.C {
				return lang.CompilerInfo{Name: "gcc", Language: lang.C, Path: "/usr/bin/gcc"}, nil
			}
			return lang.CompilerInfo{}, errors.New("not installed")
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"debug", "fast", "release"}, p.Profiles())
	assert.Contains(t, p.Commands(), commands.TagBuild)
	assert.Equal(t, filepath.Join(w.Root, "target", "app"), p.OutputDir())
	assert.Equal(t, []string{lang.C, lang.CPP, lang.CSharp}, probed)

	rustc, ok := p.Compiler(lang.Rust)
	require.True(t, ok)
	assert.Equal(t, lang.Rust, rustc.Language)
	_, ok = p.Compiler(lang.C)
	assert.True(t, ok)

	fast, err := p.Profile("fast")
	require.NoError(t, err)
	_, cached := fast.(*profile.Cached)
	assert.True(t, cached)

	res, err := p.Resolve(context.Background(), "fast")
	require.NoError(t, err)
	require.Len(t, res.Sources, 1, "ignored directory is not walked")
	assert.Equal(t, profile.O3, *res.Sources[0].Options.OptLevel)
}

func TestSyncProfilesAndJournal(t *testing.T) {
	t.Parallel()

	w := newWorkspace(t)
	_, err := w.CreateProject("app", "")
	require.NoError(t, err)
	ctx := context.Background()
	opts := OpenOptions{Commands: commands.All(commands.Options{}), Logger: logging.Discard()}

	p, err := w.Open(ctx, "app", opts)
	require.NoError(t, err)
	_, err = p.RunCommand(ctx, commands.TagCreateProfile, []string{"small", "--base", "release", "--opt-level", "Oz"})
	require.NoError(t, err)
	_, err = p.RunCommand(ctx, commands.TagCreateProfile, []string{"tiny", "--opt-level", "Os"})
	require.NoError(t, err)
	_, err = p.Undo(ctx)
	require.NoError(t, err)

	require.NoError(t, w.SyncProfiles(p))
	require.NoError(t, w.SaveJournal(p))

	// A fresh load sees the stored profile and the history.
	w2, err := Load(w.Root, "")
	require.NoError(t, err)
	pc, err := w2.Project("app")
	require.NoError(t, err)
	require.Contains(t, pc.Profiles, "small")
	assert.NotContains(t, pc.Profiles, "debug")

	p2, err := w2.Open(ctx, "app", opts)
	require.NoError(t, err)
	require.NoError(t, w2.LoadJournal(p2, commands.NewCache))
	assert.Equal(t, p.Log().Snapshot().NextID, p2.Log().Snapshot().NextID)
	assert.True(t, p2.Log().CanUndo())
	assert.True(t, p2.Log().CanRedo())

	out, err := p2.Redo(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), out.ID)
	assert.Contains(t, p2.Profiles(), "tiny")

	_, err = p2.Undo(ctx)
	require.NoError(t, err)
	_, err = p2.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"debug", "release"}, p2.Profiles())
}

func TestLoadJournalUnknownKind(t *testing.T) {
	t.Parallel()

	w := newWorkspace(t)
	_, err := w.CreateProject("app", "")
	require.NoError(t, err)
	writeFile(t, w.StateDir(), "history/app.yaml", "next_id: 2\ndone:\n  - {id: 1, tag: build, kind: mystery, cache: {}}\n")

	p, err := w.Open(context.Background(), "app", OpenOptions{Commands: commands.All(commands.Options{})})
	require.NoError(t, err)
	err = w.LoadJournal(p, commands.NewCache)
	assert.ErrorContains(t, err, "mystery")
	assert.False(t, p.Log().CanUndo())
}

func TestLoadJournalUnknownCommand(t *testing.T) {
	t.Parallel()

	w := newWorkspace(t)
	_, err := w.CreateProject("app", "")
	require.NoError(t, err)
	writeFile(t, w.StateDir(), "history/app.yaml", "next_id: 2\ndone:\n  - {id: 1, tag: deploy}\n")

	p, err := w.Open(context.Background(), "app", OpenOptions{Commands: commands.All(commands.Options{})})
	require.NoError(t, err)
	assert.ErrorIs(t, w.LoadJournal(p, commands.NewCache), project.ErrUnknownCommand)
}

func TestRemoveWorkspace(t *testing.T) {
	t.Parallel()

	w := newWorkspace(t)
	_, err := w.CreateProject("app", "")
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(w.OutputDir(), 0o755))

	require.NoError(t, Remove(w.Root))
	assert.NoFileExists(t, filepath.Join(w.Root, FileName))
	assert.NoDirExists(t, w.StateDir())
	assert.NoDirExists(t, w.OutputDir())
	assert.NoFileExists(t, filepath.Join(w.Root, ".gitignore"))
	assert.DirExists(t, filepath.Join(w.Root, "app", "src"))

	assert.ErrorIs(t, Remove(w.Root), ErrNotWorkspace)
}
