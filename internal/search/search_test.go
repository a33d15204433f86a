// SPDX-License-Identifier: MPL-2.0

package search

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slncrawl/slncrawl/internal/testutil"
)

func newTree(t *testing.T, files ...string) afero.Fs {
	t.Helper()
	tree := make(map[string]string, len(files))
	for _, f := range files {
		tree[strings.TrimPrefix(f, "/")] = "<Project />"
	}
	return testutil.MemTree(t, "/", tree)
}

func mustGlob(t *testing.T, pattern string) Matcher {
	t.Helper()
	m, err := Glob(pattern)
	require.NoError(t, err)
	return m
}

func TestSearchFindsNestedMatches(t *testing.T) {
	t.Parallel()

	mem := newTree(t,
		"/repo/A/A.csproj",
		"/repo/A/Program.cs",
		"/repo/libs/B/B.csproj",
		"/repo/libs/deep/er/C/C.csproj",
		"/repo/README.md",
	)

	got, err := Collect(New(mem).Search(context.Background(), "/repo", mustGlob(t, "*.csproj")))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/repo/A/A.csproj",
		"/repo/libs/B/B.csproj",
		"/repo/libs/deep/er/C/C.csproj",
	}, got)
}

func TestSearchEmptyTree(t *testing.T) {
	t.Parallel()

	mem := afero.NewMemMapFs()
	require.NoError(t, mem.MkdirAll("/empty", 0o755))

	got, err := Collect(New(mem).Search(context.Background(), "/empty", mustGlob(t, "*.csproj")))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearchEmitsEachMatchOnce(t *testing.T) {
	t.Parallel()

	var files []string
	for _, dir := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		for _, sub := range []string{"x", "y", "z"} {
			files = append(files, filepath.Join("/wide", dir, sub, dir+sub+".csproj"))
		}
	}
	mem := newTree(t, files...)

	got, err := Collect(New(mem, WithConcurrency(2)).Search(context.Background(), "/wide", mustGlob(t, "*.csproj")))
	require.NoError(t, err)
	assert.Len(t, got, len(files))
	assert.ElementsMatch(t, files, got)
}

func TestSearchSkipsIgnoredDirectories(t *testing.T) {
	t.Parallel()

	mem := newTree(t,
		"/repo/App/App.csproj",
		"/repo/.git/modules/Stale.csproj",
		"/repo/web/node_modules/pkg/Pkg.csproj",
		"/repo/vendor/Vendored.csproj",
	)

	got, err := Collect(New(mem, WithIgnore("vendor")).Search(context.Background(), "/repo", mustGlob(t, "*.csproj")))
	require.NoError(t, err)
	assert.Equal(t, []string{"/repo/App/App.csproj"}, got)
}

func TestSearchDirectoryMode(t *testing.T) {
	t.Parallel()

	mem := newTree(t,
		"/repo/A/A.csproj",
		"/repo/A/bin/Debug/A.dll",
		"/repo/A/obj/project.assets.json",
		"/repo/B/B.csproj",
		"/repo/B/obj/bin/nested.txt",
	)

	isArtifactDir := func(name string) bool { return name == "bin" || name == "obj" }
	got, err := Collect(New(mem, WithDirectories()).Search(context.Background(), "/repo", isArtifactDir))
	require.NoError(t, err)
	assert.Equal(t, []string{"/repo/A/bin", "/repo/A/obj", "/repo/B/obj"}, got)
}

func TestSearchMissingRoot(t *testing.T) {
	t.Parallel()

	st := New(afero.NewMemMapFs()).Search(context.Background(), "/nope", mustGlob(t, "*.csproj"))
	_, err := Collect(st)
	require.Error(t, err)

	var searchErr *Error
	require.ErrorAs(t, err, &searchErr)
	assert.Equal(t, "/nope", searchErr.Path)
	assert.True(t, errors.Is(err, fs.ErrNotExist) || errors.Is(err, os.ErrNotExist))
}

// openFailFs fails Open for one directory and delegates everything else.
type openFailFs struct {
	afero.Fs
	bad string
}

func (f openFailFs) Open(name string) (afero.File, error) {
	if filepath.Clean(name) == f.bad {
		return nil, fs.ErrPermission
	}
	return f.Fs.Open(name)
}

func TestSearchNestedDirectoryFailure(t *testing.T) {
	t.Parallel()

	var files []string
	for _, dir := range []string{"a", "b", "c", "d", "e", "f"} {
		for _, sub := range []string{"x", "y", "z"} {
			files = append(files, filepath.Join("/repo", dir, sub, dir+sub+".csproj"))
		}
	}
	files = append(files, "/repo/bad/deep/Hidden.csproj")
	failing := openFailFs{Fs: newTree(t, files...), bad: filepath.Clean("/repo/bad")}

	st := New(failing, WithConcurrency(2)).Search(context.Background(), "/repo", mustGlob(t, "*.csproj"))
	got, err := Collect(st)

	require.Error(t, err)
	assert.Nil(t, got)
	var searchErr *Error
	require.ErrorAs(t, err, &searchErr)
	assert.Equal(t, filepath.Clean("/repo/bad"), searchErr.Path)
	assert.ErrorIs(t, err, fs.ErrPermission)
}

func TestSearchCancelled(t *testing.T) {
	t.Parallel()

	mem := newTree(t, "/repo/A/A.csproj", "/repo/B/B.csproj")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Collect(New(mem).Search(ctx, "/repo", mustGlob(t, "*.csproj")))
	require.ErrorIs(t, err, context.Canceled)
}

func TestGlob(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pattern string
		name    string
		want    bool
	}{
		{"*.csproj", "App.csproj", true},
		{"*.csproj", "App.csproj.user", false},
		{"*.{csproj,fsproj}", "Lib.fsproj", true},
		{"*.csproj", "Program.cs", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, mustGlob(t, tt.pattern)(tt.name))
		})
	}
}

func TestGlobRejectsBadPattern(t *testing.T) {
	t.Parallel()

	_, err := Glob("[")
	require.ErrorIs(t, err, ErrBadPattern)

	_, err = Glob("")
	require.ErrorIs(t, err, ErrBadPattern)
}
