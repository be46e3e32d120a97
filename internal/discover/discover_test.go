package discover

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/abuild/internal/lang"
	"github.com/phobologic/abuild/internal/profile"
)

func TestWalkFindsEveryFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	files := map[string]lang.FileType{
		"main.rs":              lang.RustSource,
		"util.rs":              lang.RustSource,
		"net/client.c":         lang.CSource,
		"net/client.h":         lang.CHeader,
		"gfx/render.cpp":       lang.CPPSource,
		"gfx/render.hpp":       lang.CPPHeader,
		"gfx/mod/core.ixx":     lang.CPPModule,
		"tools/Program.cs":     lang.CSharpSource,
		"tools/deep/er/x.cc":   lang.CPPSource,
		"tools/deep/er/y.c++":  lang.CPPSource,
		"tools/deep/er/z.h++":  lang.CPPHeader,
		"tools/deep/er/w.cxxm": lang.CPPModule,
	}
	for rel := range files {
		writeFile(t, dir, rel, "x")
	}

	sources, errs := Collect(Walk(dir, Options{}))
	require.Empty(t, errs)
	require.Len(t, sources, len(files))

	seen := make(map[string]struct{})
	for _, s := range sources {
		rel, err := filepath.Rel(dir, s.Path)
		require.NoError(t, err)
		rel = filepath.ToSlash(rel)

		_, dup := seen[rel]
		assert.False(t, dup, "duplicate %s", rel)
		seen[rel] = struct{}{}

		assert.Equal(t, files[rel], s.Type, rel)
		assert.True(t, s.Options.Equal(profile.Default()), rel)
	}
}

func TestWalkIsolatesUnknownFileTypes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "a.rs", "")
	writeFile(t, dir, "b.rs", "")
	writeFile(t, dir, "sub/c.c", "")
	writeFile(t, dir, "sub/notes.txt", "")

	sources, errs := Collect(Walk(dir, Options{}))
	assert.Len(t, sources, 3)
	require.Len(t, errs, 1)

	var u *UnknownFileTypeError
	require.ErrorAs(t, errs[0], &u)
	assert.Equal(t, filepath.Join(dir, "sub", "notes.txt"), u.Path)
	assert.True(t, IsUnknownFileType(errs[0]))
}

func TestWalkSymlinkToAncestorTerminates(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "main.rs", "")
	writeFile(t, dir, "lib/util.rs", "")

	symlink(t, dir, filepath.Join(dir, "lib", "up"))
	symlink(t, filepath.Join(dir, "lib"), filepath.Join(dir, "lib", "self"))
	symlink(t, "..", filepath.Join(dir, "lib", "parent"))

	sources, errs := Collect(Walk(dir, Options{}))
	require.Empty(t, errs)
	assert.ElementsMatch(t, []string{"main.rs", "lib/util.rs"}, relPaths(t, dir, sources))
}

func TestWalkSymlinkDirectoryOutsideRoot(t *testing.T) {
	t.Parallel()

	outside := t.TempDir()
	writeFile(t, outside, "vendored.c", "")

	dir := t.TempDir()
	writeFile(t, dir, "main.c", "")
	symlink(t, outside, filepath.Join(dir, "third_party"))
	symlink(t, outside, filepath.Join(dir, "third_party_again"))

	sources, errs := Collect(Walk(dir, Options{}))
	require.Empty(t, errs)
	require.Len(t, sources, 2)

	var names []string
	for _, s := range sources {
		names = append(names, filepath.Base(s.Path))
	}
	assert.ElementsMatch(t, []string{"main.c", "vendored.c"}, names)
}

func TestWalkFileSymlinkYieldsOnce(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "real.rs", "")
	symlink(t, "real.rs", filepath.Join(dir, "link.rs"))
	symlink(t, "link.rs", filepath.Join(dir, "chain.rs"))

	sources, errs := Collect(Walk(dir, Options{}))
	require.Empty(t, errs)
	require.Len(t, sources, 1)
	assert.Equal(t, filepath.Join(dir, "real.rs"), sources[0].Path)
}

func TestWalkSelfReferentialLinkSkipped(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "main.rs", "")
	symlink(t, "loop.rs", filepath.Join(dir, "loop.rs"))
	symlink(t, "pong", filepath.Join(dir, "ping"))
	symlink(t, "ping", filepath.Join(dir, "pong"))

	sources, errs := Collect(Walk(dir, Options{}))
	require.Empty(t, errs)
	assert.Equal(t, []string{"main.rs"}, relPaths(t, dir, sources))
}

func TestWalkLinkedTreeWalkedOnce(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "sub/a.rs", "")
	symlink(t, ".", filepath.Join(dir, "s"))
	symlink(t, filepath.Join("..", "s", "sub"), filepath.Join(dir, "sub", "back"))

	sources, errs := Collect(Walk(dir, Options{}))
	require.Empty(t, errs)
	require.Len(t, sources, 1)
	assert.Equal(t, "a.rs", filepath.Base(sources[0].Path))
}

func TestWalkFileReachedThroughLinkedDirYieldsOnce(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "d/f.rs", "")
	symlink(t, "d", filepath.Join(dir, "l"))
	symlink(t, filepath.Join("l", "f.rs"), filepath.Join(dir, "m"))

	sources, errs := Collect(Walk(dir, Options{}))
	require.Empty(t, errs)
	require.Len(t, sources, 1)
	assert.Equal(t, "f.rs", filepath.Base(sources[0].Path))
}

func TestWalkDanglingLinkIsIOError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "main.rs", "")
	symlink(t, "missing.rs", filepath.Join(dir, "dangling.rs"))

	sources, errs := Collect(Walk(dir, Options{}))
	assert.Len(t, sources, 1)
	require.Len(t, errs, 1)

	var ioErr *IOError
	require.ErrorAs(t, errs[0], &ioErr)
	assert.True(t, errors.Is(errs[0], os.ErrNotExist))
}

func TestWalkMissingRoot(t *testing.T) {
	t.Parallel()

	w := Walk(filepath.Join(t.TempDir(), "nope"), Options{})

	_, err := w.Next()
	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "read dir", ioErr.Op)

	_, err = w.Next()
	assert.ErrorIs(t, err, Done)
}

func TestWalkIsLazy(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"a.rs", "b.rs", "c.rs", "d.rs"} {
		writeFile(t, dir, name, "")
	}

	w := Walk(dir, Options{})
	n := 0
	for _, err := range w.All() {
		require.NoError(t, err)
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)

	// The walker resumes where the consumer stopped.
	rest, errs := Collect(w)
	assert.Empty(t, errs)
	assert.Len(t, rest, 2)
}

func TestWalkFreshStatePerCall(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "a.rs", "")
	writeFile(t, dir, "b/c.rs", "")

	first, _ := Collect(Walk(dir, Options{}))
	second, _ := Collect(Walk(dir, Options{}))
	assert.ElementsMatch(t, relPaths(t, dir, first), relPaths(t, dir, second))
	assert.Len(t, second, 2)
}

func TestWalkDeepTree(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	parts := make([]string, 0, 64)
	for range 64 {
		parts = append(parts, "d")
	}
	writeFile(t, dir, filepath.Join(append(parts, "leaf.rs")...), "")

	sources, errs := Collect(Walk(dir, Options{}))
	require.Empty(t, errs)
	require.Len(t, sources, 1)
	assert.True(t, strings.HasSuffix(sources[0].Path, "leaf.rs"))
}

func TestWalkExclude(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "main.rs", "")
	writeFile(t, dir, "schema.gen.rs", "")
	writeFile(t, dir, "vendor/dep.c", "")
	writeFile(t, dir, "notes.md", "")
	writeFile(t, dir, IgnoreFile, "vendor/\n*.gen.rs\n*.md\n"+IgnoreFile+"\n")

	gi, err := LoadIgnore(dir)
	require.NoError(t, err)
	require.NotNil(t, gi)

	sources, errs := Collect(Walk(dir, Options{Exclude: gi}))
	require.Empty(t, errs)
	assert.Equal(t, []string{"main.rs"}, relPaths(t, dir, sources))
}

func TestWalkExcludeBase(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "src/main.c", "")
	writeFile(t, root, "src/gen/out.c", "")
	writeFile(t, root, IgnoreFile, "src/gen/\n")

	gi, err := LoadIgnore(root)
	require.NoError(t, err)

	src := filepath.Join(root, "src")
	sources, errs := Collect(Walk(src, Options{Exclude: gi, Base: root}))
	require.Empty(t, errs)
	assert.Equal(t, []string{"main.c"}, relPaths(t, src, sources))
}

func TestLoadIgnoreMissing(t *testing.T) {
	t.Parallel()

	gi, err := LoadIgnore(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, gi)
}

func TestUnknownFileTypeErrorMessage(t *testing.T) {
	t.Parallel()

	err := &UnknownFileTypeError{Path: "tool.py", Hint: "Python"}
	assert.Equal(t, "tool.py: unknown file type (looks like Python)", err.Error())
	assert.Equal(t, "x: unknown file type", (&UnknownFileTypeError{Path: "x"}).Error())
}

func relPaths(t *testing.T, root string, sources []Source) []string {
	t.Helper()
	out := make([]string, 0, len(sources))
	for _, s := range sources {
		rel, err := filepath.Rel(root, s.Path)
		require.NoError(t, err)
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

func symlink(t *testing.T, target, link string) {
	t.Helper()
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
