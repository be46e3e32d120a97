//go:build unix

package toolchain

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/abuild/internal/lang"
)

// fakeCompiler writes a shell script that mimics a compiler: it writes
// the file named by -o or -out:, fails on arguments containing "bad",
// and sleeps on arguments containing "slow".
func fakeCompiler(t *testing.T, banner string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fakecc")
	script := `#!/bin/sh
out=""
while [ $# -gt 0 ]; do
  case "$1" in
    --version) echo "` + banner + `"; exit 0 ;;
    -o) shift; out="$1" ;;
    -out:*) out="${1#-out:}" ;;
    *bad*) echo "error: cannot compile $1" >&2; exit 1 ;;
    *slow*) sleep 1 ;;
  esac
  shift
done
[ -n "$out" ] && echo compiled > "$out"
exit 0
`
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func jobs(cc lang.CompilerInfo, dir string, keys ...string) []Job {
	var out []Job
	for _, k := range keys {
		obj := filepath.Join(dir, "obj", k+".o")
		out = append(out, Job{Key: k, Compiler: cc, Args: []string{"-c", k, "-o", obj}, Output: obj})
	}
	return out
}

func TestRunnerSortedResults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cc := lang.CompilerInfo{Name: "gcc", Language: lang.C, Path: fakeCompiler(t, "gcc 13")}

	var seen atomic.Int32
	r := &Runner{Jobs: 3, OnResult: func(Result) { seen.Add(1) }}
	results, err := r.Run(context.Background(), jobs(cc, dir, "c.c", "a.c", "b.c", "d.c"))
	require.NoError(t, err)

	require.Len(t, results, 4)
	for i, want := range []string{"a.c", "b.c", "c.c", "d.c"} {
		assert.Equal(t, want, results[i].Job.Key)
		assert.FileExists(t, results[i].Job.Output)
	}
	assert.Equal(t, int32(4), seen.Load())
}

func TestRunnerCompileError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cc := lang.CompilerInfo{Name: "gcc", Language: lang.C, Path: fakeCompiler(t, "gcc 13")}

	r := &Runner{Jobs: 2}
	results, err := r.Run(context.Background(), jobs(cc, dir, "good.c", "bad.c"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCancelled)
	require.Len(t, results, 2)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "bad.c", ce.Path)
	assert.Contains(t, ce.Output, "cannot compile bad.c")
	assert.Contains(t, ce.Error(), "compile bad.c")
	assert.NoError(t, results[1].Err)
}

func TestRunnerCancelStopsDispatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cc := lang.CompilerInfo{Name: "gcc", Language: lang.C, Path: fakeCompiler(t, "gcc 13")}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := &Runner{Jobs: 1, OnResult: func(Result) { cancel() }}
	results, err := r.Run(ctx, jobs(cc, dir, "a.c", "b.c", "c.c", "d.c", "e.c"))
	require.ErrorIs(t, err, ErrCancelled)
	assert.NotEmpty(t, results)
	assert.Less(t, len(results), 5)
	for _, res := range results {
		assert.NoError(t, res.Err)
	}
}

func TestRunnerAlreadyCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := (&Runner{}).Run(ctx, []Job{{Key: "a.c"}})
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Empty(t, results)
}

func TestRunnerTimeout(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cc := lang.CompilerInfo{Name: "gcc", Language: lang.C, Path: fakeCompiler(t, "gcc 13")}

	r := &Runner{Timeout: 50 * time.Millisecond}
	_, err := r.Run(context.Background(), jobs(cc, dir, "slow.c"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunnerMissingCompiler(t *testing.T) {
	t.Parallel()

	cc := lang.CompilerInfo{Name: "gcc", Path: filepath.Join(t.TempDir(), "nope")}
	_, err := (&Runner{}).Run(context.Background(), []Job{{Key: "a.c", Compiler: cc}})
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "a.c", ce.Path)
}

func TestProbePath(t *testing.T) {
	t.Parallel()

	path := fakeCompiler(t, "clang version 18.1.8 (Fedora 18.1.8-1.fc40)")
	info, err := ProbePath(context.Background(), lang.C, path)
	require.NoError(t, err)
	assert.Equal(t, "clang", info.Name)
	assert.Equal(t, "18.1.8", info.Version)
	assert.Equal(t, lang.C, info.Language)
	assert.Equal(t, path, info.Executable())
}
