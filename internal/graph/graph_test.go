// SPDX-License-Identifier: MPL-2.0

package graph

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slncrawl/slncrawl/internal/project"
	"github.com/slncrawl/slncrawl/internal/search"
	"github.com/slncrawl/slncrawl/internal/testutil"
)

const root = "/repo"

func build(t *testing.T, files map[string]string) *Graph {
	t.Helper()
	g, err := NewBuilder(testutil.MemTree(t, root, files), project.NewXMLParser()).Build(context.Background(), root)
	require.NoError(t, err)
	return g
}

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from    ProjectPath
		include string
		want    ProjectPath
	}{
		{"A/A.csproj", `..\B\B.csproj`, "B/B.csproj"},
		{"A/A.csproj", "../B/B.csproj", "B/B.csproj"},
		{"A/A.csproj", `Sub\S.csproj`, "A/Sub/S.csproj"},
		{"A.csproj", "B/./B.csproj", "B/B.csproj"},
		{"src/A/A.csproj", `..\..\lib\L\L.csproj`, "lib/L/L.csproj"},
		{"A/A.csproj", "/repo/C/C.csproj", "C/C.csproj"},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+tt.include, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Resolve(root, tt.from, tt.include))
		})
	}
}

func TestProjectPathHelpers(t *testing.T) {
	t.Parallel()

	p := ProjectPath("src/App/App.csproj")
	assert.Equal(t, "src/App", p.Dir())
	assert.Equal(t, "App.csproj", p.Base())
	assert.Equal(t, "App", p.Name())
	assert.Equal(t, filepath.Join("/repo", "src", "App", "App.csproj"), p.OSPath("/repo"))
	assert.Equal(t, "../../lib/L/L.csproj", ProjectPath("lib/L/L.csproj").RelativeTo("src/App"))
	assert.Equal(t, "Sub/S.csproj", ProjectPath("src/App/Sub/S.csproj").RelativeTo("src/App"))
	assert.Equal(t, "B/B.csproj", ProjectPath("B/B.csproj").RelativeTo("."))
}

func TestBuildEveryDiscoveredDescriptorHasNode(t *testing.T) {
	t.Parallel()

	g := build(t, map[string]string{
		"A/A.csproj":       testutil.Csproj(false, `..\B\B.csproj`),
		"B/B.csproj":       testutil.Csproj(false),
		"Lone/Lone.csproj": testutil.Csproj(false),
		"A/Program.cs":     "class P {}",
	})

	assert.Equal(t, []ProjectPath{"A/A.csproj", "B/B.csproj", "Lone/Lone.csproj"}, g.Paths())
	assert.Equal(t, []ProjectPath{"B/B.csproj"}, g.Node("A/A.csproj").Dependencies)
	assert.Empty(t, g.Node("Lone/Lone.csproj").Dependencies)
	assert.Empty(t, g.Node("Lone/Lone.csproj").TestProjects)
}

func TestBuildSingleProject(t *testing.T) {
	t.Parallel()

	g := build(t, map[string]string{"Solo/Solo.csproj": testutil.Csproj(false)})

	require.Equal(t, 1, g.Len())
	n := g.Node("Solo/Solo.csproj")
	require.NotNil(t, n)
	assert.Equal(t, Node{}, *n)
	assert.Empty(t, Walk(g, "Solo/Solo.csproj"))
}

func TestBuildTestBackReferencesSurviveConcurrency(t *testing.T) {
	t.Parallel()

	files := map[string]string{"Core/Core.csproj": testutil.Csproj(false)}
	var want []ProjectPath
	for i := range 64 {
		name := fmt.Sprintf("Tests%02d", i)
		files[name+"/"+name+".csproj"] = testutil.Csproj(true, `..\Core\Core.csproj`)
		want = append(want, ProjectPath(name+"/"+name+".csproj"))
	}

	mem := testutil.MemTree(t, root, files)
	for range 5 {
		g, err := NewBuilder(mem, project.NewXMLParser(), WithParallelism(16)).Build(context.Background(), root)
		require.NoError(t, err)
		assert.Equal(t, want, g.Node("Core/Core.csproj").TestProjects)
		assert.Equal(t, []ProjectPath{"Core/Core.csproj"}, g.Roots())
	}
}

func TestBuildDiamondWithTestProject(t *testing.T) {
	t.Parallel()

	g := build(t, map[string]string{
		"A/A.csproj":         testutil.Csproj(false, "../C/C.csproj"),
		"B/B.csproj":         testutil.Csproj(false, "../C/C.csproj"),
		"C/C.csproj":         testutil.Csproj(false),
		"A.Tests/T.csproj":   testutil.Csproj(true, `..\A\A.csproj`),
		"Orphan/Orph.csproj": testutil.Csproj(false),
	})

	assert.Empty(t, g.Node("C/C.csproj").TestProjects)
	assert.Equal(t, []ProjectPath{"A.Tests/T.csproj"}, g.Node("A/A.csproj").TestProjects)

	test := g.Node("A.Tests/T.csproj")
	assert.True(t, test.IsTestProject)
	assert.Equal(t, []ProjectPath{"A/A.csproj"}, test.Dependencies)

	assert.Equal(t, []ProjectPath{"C/C.csproj", "A.Tests/T.csproj"}, Walk(g, "A/A.csproj"))
	assert.NotContains(t, g.Roots(), ProjectPath("A.Tests/T.csproj"))
}

func TestBuildReferenceToUndiscoveredDescriptor(t *testing.T) {
	t.Parallel()

	g := build(t, map[string]string{
		"A/A.csproj": testutil.Csproj(false, "../Missing/Missing.csproj"),
	})

	n := g.Node("Missing/Missing.csproj")
	require.NotNil(t, n)
	assert.Empty(t, n.Dependencies)
}

func TestBuildDuplicateReferences(t *testing.T) {
	t.Parallel()

	g := build(t, map[string]string{
		"A/A.csproj": testutil.Csproj(false, "../B/B.csproj", `..\B\B.csproj`),
		"B/B.csproj": testutil.Csproj(false),
	})
	assert.Equal(t, []ProjectPath{"B/B.csproj"}, g.Node("A/A.csproj").Dependencies)
}

func TestBuildFailsOnMalformedDescriptor(t *testing.T) {
	t.Parallel()

	mem := testutil.MemTree(t, root, map[string]string{
		"A/A.csproj":   testutil.Csproj(false),
		"Bad/B.csproj": "<Project><ItemGroup>",
	})

	g, err := NewBuilder(mem, project.NewXMLParser()).Build(context.Background(), root)
	require.Error(t, err)
	assert.Nil(t, g)

	var metaErr *MetadataError
	require.ErrorAs(t, err, &metaErr)
	assert.Equal(t, filepath.Join(root, "Bad", "B.csproj"), metaErr.Path)

	var syntaxErr *project.SyntaxError
	assert.ErrorAs(t, err, &syntaxErr)
}

func TestBuildFailsOnMissingRoot(t *testing.T) {
	t.Parallel()

	_, err := NewBuilder(afero.NewMemMapFs(), project.NewXMLParser()).Build(context.Background(), "/absent")
	var searchErr *search.Error
	require.ErrorAs(t, err, &searchErr)
}

type unreadableDirFs struct {
	afero.Fs
	dir string
}

func (f unreadableDirFs) Open(name string) (afero.File, error) {
	if filepath.Clean(name) == f.dir {
		return nil, fs.ErrPermission
	}
	return f.Fs.Open(name)
}

func TestBuildFailsOnUnreadableNestedDirectory(t *testing.T) {
	t.Parallel()

	files := map[string]string{"bad/X/X.csproj": testutil.Csproj(false)}
	for i := range 20 {
		files[fmt.Sprintf("P%d/P%d.csproj", i, i)] = testutil.Csproj(false, "../bad/X/X.csproj")
	}
	mem := unreadableDirFs{Fs: testutil.MemTree(t, root, files), dir: filepath.Join(root, "bad")}

	g, err := NewBuilder(mem, project.NewXMLParser()).Build(context.Background(), root)
	assert.Nil(t, g)
	var searchErr *search.Error
	require.ErrorAs(t, err, &searchErr)
	assert.Equal(t, filepath.Join(root, "bad"), searchErr.Path)
	assert.ErrorIs(t, err, fs.ErrPermission)
}

func TestBuildCustomPattern(t *testing.T) {
	t.Parallel()

	mem := testutil.MemTree(t, root, map[string]string{
		"F/F.fsproj": testutil.Csproj(false, "../C/C.csproj"),
		"C/C.csproj": testutil.Csproj(false),
	})
	g, err := NewBuilder(mem, project.NewXMLParser(), WithPattern("*.{csproj,fsproj}")).Build(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []ProjectPath{"C/C.csproj", "F/F.fsproj"}, g.Paths())
	assert.Equal(t, "F", ProjectPath("F/F.fsproj").Name())
}
